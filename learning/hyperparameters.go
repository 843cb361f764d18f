package learning

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/neurlang/svmdetector/model"
	"github.com/neurlang/svmdetector/parallel"
	"github.com/neurlang/svmdetector/svmerr"
)

// HyperParameters configures one training run. The zero value is not
// usable; start from Default.
type HyperParameters struct {
	Kernel model.KernelParameters

	Biased             bool    // fit the bias term instead of forcing b = 0
	C                  float64 // soft margin trade-off, 0 selects 1/avg(|x|)^2
	CostRatio          float64 // C for positive examples is C*CostRatio
	RemoveInconsistent bool    // drop misclassified examples at the bound and refit once

	Epsilon       float64 // stopping tolerance on the KKT violation
	EpsilonA      float64 // alphas at or below this are not support vectors
	MaxIterations int     // solver iteration cap

	KernelCacheSize int // kernel row cache in MB
	Threads         int // goroutines computing kernel rows

	l *zap.Logger
}

// Default returns the configuration of the HOG detector training setup:
// linear kernel, biased hyperplane, soft margin C = 0.01, every example
// kept in the fit.
func Default() HyperParameters {
	return HyperParameters{
		Kernel:             model.DefaultKernel(),
		Biased:             true,
		C:                  0.01,
		CostRatio:          1.0,
		RemoveInconsistent: false,
		Epsilon:            0.001,
		EpsilonA:           1e-15,
		MaxIterations:      100000,
		KernelCacheSize:    40,
		Threads:            parallel.DefaultThreads(),
	}
}

// SetLogger attaches a logger to training runs started from h.
func (h *HyperParameters) SetLogger(l *zap.Logger) {
	h.l = l
}

// Logger returns the attached logger, or a no-op logger.
func (h *HyperParameters) Logger() *zap.Logger {
	if h.l == nil {
		return zap.NewNop()
	}
	return h.l
}

// Check validates the configuration. A non-linear kernel is reported as
// an unsupported kernel, anything else as a training error.
func (h *HyperParameters) Check() error {
	const op = "check hyperparameters"
	switch {
	case h.Kernel.Type != model.Linear:
		return svmerr.Newf(svmerr.UnsupportedKernel, op, "kernel %v: only linear models can be trained", h.Kernel.Type)
	case h.C < 0:
		return svmerr.Newf(svmerr.Training, op, "C must not be negative, got %g", h.C)
	case h.CostRatio <= 0:
		return svmerr.Newf(svmerr.Training, op, "cost ratio must be positive, got %g", h.CostRatio)
	case h.Epsilon <= 0:
		return svmerr.Newf(svmerr.Training, op, "epsilon must be positive, got %g", h.Epsilon)
	case h.EpsilonA < 0:
		return svmerr.Newf(svmerr.Training, op, "epsilon_a must not be negative, got %g", h.EpsilonA)
	case h.MaxIterations <= 0:
		return svmerr.Newf(svmerr.Training, op, "iteration cap must be positive, got %d", h.MaxIterations)
	case h.KernelCacheSize <= 0:
		return svmerr.Newf(svmerr.Training, op, "kernel cache size must be positive, got %d", h.KernelCacheSize)
	}
	return nil
}

// overrides is the YAML form of HyperParameters. Absent keys keep the
// current value.
type overrides struct {
	Kernel             *string  `yaml:"kernel"`
	BiasedHyperplane   *bool    `yaml:"biased_hyperplane"`
	C                  *float64 `yaml:"c"`
	CostRatio          *float64 `yaml:"cost_ratio"`
	RemoveInconsistent *bool    `yaml:"remove_inconsistent"`
	Epsilon            *float64 `yaml:"epsilon"`
	EpsilonA           *float64 `yaml:"epsilon_a"`
	MaxIterations      *int     `yaml:"max_iterations"`
	KernelCacheSize    *int     `yaml:"kernel_cache_size"`
	Threads            *int     `yaml:"threads"`
}

// ReadYAML overrides h with the keys present in r. Unknown keys are an error.
func (h *HyperParameters) ReadYAML(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read hyperparameters")
	}
	var o overrides
	if err := yaml.UnmarshalStrict(data, &o); err != nil {
		return errors.Wrap(err, "parse hyperparameters")
	}

	if o.Kernel != nil {
		k, err := model.ParseKernelType(*o.Kernel)
		if err != nil {
			return errors.Wrap(err, "parse hyperparameters")
		}
		h.Kernel.Type = k
	}
	if o.BiasedHyperplane != nil {
		h.Biased = *o.BiasedHyperplane
	}
	if o.C != nil {
		h.C = *o.C
	}
	if o.CostRatio != nil {
		h.CostRatio = *o.CostRatio
	}
	if o.RemoveInconsistent != nil {
		h.RemoveInconsistent = *o.RemoveInconsistent
	}
	if o.Epsilon != nil {
		h.Epsilon = *o.Epsilon
	}
	if o.EpsilonA != nil {
		h.EpsilonA = *o.EpsilonA
	}
	if o.MaxIterations != nil {
		h.MaxIterations = *o.MaxIterations
	}
	if o.KernelCacheSize != nil {
		h.KernelCacheSize = *o.KernelCacheSize
	}
	if o.Threads != nil {
		h.Threads = *o.Threads
	}
	return nil
}

// ReadYAMLFile is ReadYAML on the named file.
func (h *HyperParameters) ReadYAMLFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return svmerr.New(svmerr.IO, "open hyperparameters", err)
	}
	defer file.Close()
	return errors.WithMessage(h.ReadYAML(file), name)
}
