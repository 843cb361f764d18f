package main

import "runtime/pprof"
import "os"
import "os/signal"
import "syscall"

// profileCPU writes a CPU profile to path until the returned function is
// called or the process is interrupted.
func profileCPU(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	stop = func() {
		signal.Stop(sigChan)
		close(done)
		pprof.StopCPUProfile()
		f.Close()
	}

	// Keep the profile collected so far when interrupted
	go func() {
		select {
		case <-sigChan:
			pprof.StopCPUProfile()
			f.Close()
			os.Exit(130)
		case <-done:
		}
	}()
	return stop, nil
}
