package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/neurlang/svmdetector/datasets"
	"github.com/neurlang/svmdetector/inference"
	"github.com/neurlang/svmdetector/logging"
	"github.com/neurlang/svmdetector/parallel"
	"github.com/neurlang/svmdetector/svmerr"
)

type args struct {
	Model    string `arg:"positional,required" help:"linear SVMLight model file"`
	Out      string `arg:"-o" help:"write the detector vector here instead of stdout"`
	Examples string `help:"example file to classify with the detector"`
	Threads  int    `help:"goroutines collapsing the model, 0 uses every core"`
	Verbose  bool   `help:"debug logging"`
}

func (args) Description() string {
	return "infer_detector collapses a linear SVM model into a detector vector: w followed by -b"
}

// writeDetector writes one value per line.
func writeDetector(w io.Writer, detector []float64) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, v := range detector {
		buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func run(a args, log *zap.Logger) error {
	e := inference.Extractor{Threads: a.Threads}
	if e.Threads <= 0 {
		e.Threads = parallel.DefaultThreads()
	}
	if err := e.LoadModel(a.Model); err != nil {
		return err
	}
	m := e.Model()
	log.Info("loaded model",
		zap.String("path", a.Model),
		zap.String("id", m.ID),
		zap.Int("support_vectors", m.SupportVectors.Count()),
		zap.String("entries", humanize.Comma(int64(m.SupportVectors.NNZ()))))

	detector, err := e.ExtractDetectorVector()
	if err != nil {
		return err
	}

	if a.Out == "" {
		if err := writeDetector(os.Stdout, detector); err != nil {
			return svmerr.New(svmerr.IO, "write detector", err)
		}
	} else {
		f, err := os.Create(a.Out)
		if err != nil {
			return svmerr.New(svmerr.IO, "create detector file", err)
		}
		err = writeDetector(f, detector)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return svmerr.New(svmerr.IO, "write detector", err)
		}
		log.Info("detector written", zap.String("path", a.Out), zap.Int("length", len(detector)))
	}

	if a.Examples != "" {
		d, err := datasets.ReadFile(a.Examples)
		if err != nil {
			return errors.WithMessage(err, "classify examples")
		}
		acc := inference.Evaluate(detector, d)
		log.Info("classified examples",
			zap.String("path", a.Examples),
			zap.Float64("percent", acc.Percent()),
			zap.Int("true_positives", acc.TruePositives),
			zap.Int("true_negatives", acc.TrueNegatives),
			zap.Int("false_positives", acc.FalsePositives),
			zap.Int("false_negatives", acc.FalseNegatives))
	}
	return nil
}

func main() {
	var a args
	arg.MustParse(&a)

	log := logging.New(a.Verbose)
	if a.Out == "" {
		// stdout carries the detector vector
		log = logging.NewTo(os.Stderr, os.Stderr, a.Verbose)
	}
	if err := run(a, log); err != nil {
		log.Error("extraction failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}
