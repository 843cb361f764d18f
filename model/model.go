// Package model implements the dual-form SVM model (support vector expansion)
package model

import "strconv"
import "strings"

import "github.com/pkg/errors"

import "github.com/neurlang/svmdetector/svmerr"

// KernelType identifies the kernel a model was trained with. The numeric
// values are the ones SVMLight writes into its model files.
type KernelType int

const (
	Linear KernelType = iota
	Polynomial
	RBF
	Sigmoid
	Custom
)

func (k KernelType) String() string {
	switch k {
	case Linear:
		return "linear"
	case Polynomial:
		return "polynomial"
	case RBF:
		return "rbf"
	case Sigmoid:
		return "sigmoid"
	case Custom:
		return "custom"
	}
	return "kernel(" + strconv.Itoa(int(k)) + ")"
}

// ParseKernelType accepts a kernel name as printed by String or its
// numeric SVMLight code.
func ParseKernelType(s string) (KernelType, error) {
	for k := Linear; k <= Custom; k++ {
		if s == k.String() || s == strconv.Itoa(int(k)) {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown kernel type %q", s)
}

// KernelParameters mirrors the kernel section of an SVMLight model file.
// Only Type matters for linear models; the rest round-trip untouched.
type KernelParameters struct {
	Type       KernelType
	PolyDegree int
	RBFGamma   float64
	CoefLin    float64
	CoefConst  float64
	Custom     string
}

// DefaultKernel is the linear kernel with SVMLight's default parameters
// and "0" as the custom kernel string.
func DefaultKernel() KernelParameters {
	return KernelParameters{
		Type:       Linear,
		PolyDegree: 3,
		RBFGamma:   1,
		CoefLin:    1,
		CoefConst:  1,
		Custom:     "0",
	}
}

// checkCustom rejects custom kernel strings that cannot be stored on a
// single model file header line and read back unchanged.
func checkCustom(custom string) error {
	if strings.ContainsAny(custom, "#\r\n") || strings.TrimSpace(custom) != custom {
		return errors.Errorf("custom kernel parameter %q: no '#', line breaks or surrounding blanks allowed", custom)
	}
	return nil
}

// Feature is one stored (index, weight) entry of a sparse vector.
// Indices are 1-based.
type Feature struct {
	Index  int
	Weight float64
}

// SupportVector is a sparse feature list plus its dual coefficient.
// Alpha already carries the sign of the example label.
type SupportVector struct {
	Features []Feature
	Alpha    float64
}

// SupportVectors is the expansion of a model. Slot 0 is reserved: it keeps
// positions aligned with the model file numbering and never contributes to
// any computation. Real support vectors are at 1..len-1; visit them with
// Active or Each rather than indexing.
type SupportVectors []SupportVector

// Count returns the number of real support vectors.
func (s SupportVectors) Count() int {
	if len(s) == 0 {
		return 0
	}
	return len(s) - 1
}

// Active returns the real support vectors, skipping the reserved slot.
func (s SupportVectors) Active() []SupportVector {
	if len(s) <= 1 {
		return nil
	}
	return s[1:]
}

// Each calls fn for every real support vector with its model position.
func (s SupportVectors) Each(fn func(i int, sv *SupportVector)) {
	for i := 1; i < len(s); i++ {
		fn(i, &s[i])
	}
}

// NNZ returns the number of stored sparse entries over all real support vectors.
func (s SupportVectors) NNZ() (n int) {
	for _, sv := range s.Active() {
		n += len(sv.Features)
	}
	return
}

// Model is the dual form produced by a solver.
type Model struct {
	ID             string
	Kernel         KernelParameters
	TotalWords     int
	TotalDocs      int
	SupportVectors SupportVectors
	Bias           float64
}

// IsLinear reports whether the model can be collapsed into a single vector.
func (m *Model) IsLinear() bool {
	return m.Kernel.Type == Linear
}

// MaxTotalWords bounds the feature count of a model, and so the length of
// its detector vector.
const MaxTotalWords = 1 << 28

// Validate checks the structural invariants consumers rely on.
func (m *Model) Validate() error {
	const op = "validate model"
	if m.TotalWords < 0 || m.TotalWords > MaxTotalWords {
		return svmerr.Newf(svmerr.ModelLoad, op, "feature count %d outside 0..%d", m.TotalWords, MaxTotalWords)
	}
	if err := checkCustom(m.Kernel.Custom); err != nil {
		return svmerr.New(svmerr.ModelLoad, op, err)
	}
	if len(m.SupportVectors) == 0 {
		return svmerr.Newf(svmerr.ModelLoad, op, "missing reserved support vector slot")
	}
	var bad error
	m.SupportVectors.Each(func(i int, sv *SupportVector) {
		if bad != nil {
			return
		}
		for _, f := range sv.Features {
			if f.Index < 1 || f.Index > m.TotalWords {
				bad = svmerr.Newf(svmerr.ModelLoad, op,
					"support vector %d: feature index %d outside 1..%d", i, f.Index, m.TotalWords)
				return
			}
		}
	})
	return bad
}
