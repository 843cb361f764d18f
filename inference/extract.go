package inference

import "github.com/pkg/errors"

import "github.com/neurlang/svmdetector/model"
import "github.com/neurlang/svmdetector/parallel"
import "github.com/neurlang/svmdetector/svmerr"

var errNoModel = errors.New("no model loaded")

// Extractor turns a trained linear model into a detector vector.
//
// The zero value is ready to use and collapses on the calling goroutine.
// Setting Threads above one splits the support vectors into contiguous
// chunks that accumulate into private partial vectors.
type Extractor struct {
	Threads int

	m *model.Model
}

// LoadModel reads the model file at path. The model must use the linear
// kernel.
func (e *Extractor) LoadModel(path string) error {
	m, err := model.ReadFile(path)
	if err != nil {
		return err
	}
	return e.SetModel(m)
}

// SetModel installs an in-memory model, with the same checks as LoadModel.
func (e *Extractor) SetModel(m *model.Model) error {
	const op = "set model"
	if m == nil {
		return svmerr.New(svmerr.ModelLoad, op, errNoModel)
	}
	if !m.IsLinear() {
		return svmerr.Newf(svmerr.UnsupportedKernel, op,
			"kernel %v: only linear models collapse to a detector vector", m.Kernel.Type)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	e.m = m
	return nil
}

// Model returns the loaded model, or nil.
func (e *Extractor) Model() *model.Model {
	return e.m
}

// ExtractDetectorVector collapses the loaded model into w followed by -b,
// a vector of length TotalWords+1.
func (e *Extractor) ExtractDetectorVector() ([]float64, error) {
	if e.m == nil {
		return nil, svmerr.New(svmerr.InvalidState, "extract detector vector", errNoModel)
	}
	return Collapse(e.m, e.Threads), nil
}

// Collapse computes w = sum_i alpha_i x_i over the real support vectors of
// a validated linear model and returns w with -b appended. The reserved
// slot never contributes.
func Collapse(m *model.Model, threads int) []float64 {
	n := m.TotalWords
	svs := m.SupportVectors.Active()

	if threads <= 1 || len(svs) < 2 {
		acc := make([]float64, n+1)
		accumulate(acc, svs)
		acc[n] = -m.Bias
		return acc
	}

	bounds := parallel.Chunks(len(svs), threads)
	partial := make([][]float64, len(bounds)-1)
	parallel.ForEachChunk(len(svs), threads, func(chunk, lo, hi int) {
		partial[chunk] = make([]float64, n)
		accumulate(partial[chunk], svs[lo:hi])
	})

	acc := partial[0][:n:n]
	acc = append(acc, -m.Bias)
	for _, p := range partial[1:] {
		for i, v := range p {
			acc[i] += v
		}
	}
	return acc
}

func accumulate(acc []float64, svs []model.SupportVector) {
	for k := range svs {
		alpha := svs[k].Alpha
		for _, f := range svs[k].Features {
			acc[f.Index-1] += f.Weight * alpha
		}
	}
}
