// Package parallel contains bounded parallel loops used by the solver and the detector collapse.
package parallel

import "sync"

import "github.com/klauspost/cpuid/v2"

// DefaultThreads returns the number of logical cores reported by the CPU,
// or 1 when it cannot be determined.
func DefaultThreads() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return 1
}

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one integer, from 0 to length.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}
	if limit == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// Chunks splits [0, length) into at most parts contiguous ranges of nearly
// equal size. Range k is [bounds[k], bounds[k+1]).
func Chunks(length, parts int) (bounds []int) {
	if length <= 0 {
		return []int{0}
	}
	if parts <= 0 {
		parts = 1
	}
	if parts > length {
		parts = length
	}
	bounds = make([]int, parts+1)
	for k := 1; k <= parts; k++ {
		bounds[k] = length * k / parts
	}
	return
}

// ForEachChunk runs body once per range of Chunks(length, parts), each in
// its own goroutine, and waits for all of them.
func ForEachChunk(length, parts int, body func(chunk, lo, hi int)) {
	bounds := Chunks(length, parts)
	ForEach(len(bounds)-1, len(bounds)-1, func(k int) {
		body(k, bounds[k], bounds[k+1])
	})
}
