package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid/v2"
	"go.uber.org/zap"

	"github.com/neurlang/svmdetector/learning"
	"github.com/neurlang/svmdetector/logging"
	"github.com/neurlang/svmdetector/trainer"
)

type args struct {
	Examples   string  `arg:"positional,required" help:"example file, one '<label> <index>:<value> ...' line per example"`
	Model      string  `arg:"positional,required" help:"model file to write, compressed when the name ends in .lzw"`
	Config     string  `help:"YAML file overriding the default hyperparameters"`
	C          float64 `help:"soft margin trade-off, negative keeps the configured value, 0 derives it from the data"`
	Threads    int     `help:"goroutines computing kernel rows, 0 keeps the configured value"`
	Evaluate   bool    `help:"report training accuracy on a 95% significance sample"`
	Verbose    bool    `help:"log solver progress"`
	CPUProfile string  `arg:"--cpuprofile" help:"write a CPU profile to this file"`
}

func (args) Description() string {
	return "train_detector fits a linear SVM to an example file and saves the model"
}

func run(a args, log *zap.Logger) error {
	h := learning.Default()
	if a.Config != "" {
		if err := h.ReadYAMLFile(a.Config); err != nil {
			return err
		}
	}
	if a.C >= 0 {
		h.C = a.C
	}
	if a.Threads > 0 {
		h.Threads = a.Threads
	}
	h.SetLogger(log)

	log.Info("training",
		zap.String("cpu", cpuid.CPU.BrandName),
		zap.Int("threads", h.Threads),
		zap.Float64("c", h.C),
		zap.Bool("biased", h.Biased),
		zap.Bool("remove_inconsistent", h.RemoveInconsistent))

	opts := []trainer.Option{trainer.WithLogger(log)}
	if a.Evaluate {
		opts = append(opts, trainer.WithEvaluation(95))
	}
	if err := trainer.Train(a.Examples, a.Model, &h, opts...); err != nil {
		return err
	}

	if info, err := os.Stat(a.Model); err == nil {
		log.Info("model written", zap.String("path", a.Model), zap.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	return nil
}

func main() {
	a := args{C: -1}
	arg.MustParse(&a)

	log := logging.New(a.Verbose)
	if err := profiled(a.CPUProfile, func() error { return run(a, log) }); err != nil {
		log.Error("training failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

// profiled runs fn, under a CPU profile when path is set.
func profiled(path string, fn func() error) error {
	if path == "" {
		return fn()
	}
	stop, err := profileCPU(path)
	if err != nil {
		return err
	}
	defer stop()
	return fn()
}
