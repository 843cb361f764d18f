package model

// Builder collects support vectors into a single backing arena so that a
// model owns one feature allocation, released as a unit.
type Builder struct {
	arena []Feature
	ends  []int
	alpha []float64
}

// NewBuilder returns a Builder sized for about n support vectors with nnz
// stored entries in total. Both are hints.
func NewBuilder(n, nnz int) *Builder {
	return &Builder{
		arena: make([]Feature, 0, nnz),
		ends:  make([]int, 0, n),
		alpha: make([]float64, 0, n),
	}
}

// Add appends a support vector. features is copied.
func (b *Builder) Add(features []Feature, alpha float64) {
	b.arena = append(b.arena, features...)
	b.ends = append(b.ends, len(b.arena))
	b.alpha = append(b.alpha, alpha)
}

// Len returns the number of support vectors added so far.
func (b *Builder) Len() int {
	return len(b.alpha)
}

// Build returns the collected support vectors with the reserved slot 0
// in front. The Builder must not be used afterwards.
func (b *Builder) Build() SupportVectors {
	svs := make(SupportVectors, len(b.alpha)+1)
	start := 0
	for i, end := range b.ends {
		svs[i+1] = SupportVector{
			Features: b.arena[start:end:end],
			Alpha:    b.alpha[i],
		}
		start = end
	}
	b.arena, b.ends, b.alpha = nil, nil, nil
	return svs
}

// New returns a model with no support vectors (only the reserved slot).
func New(kernel KernelParameters, totalWords int) *Model {
	return &Model{
		Kernel:         kernel,
		TotalWords:     totalWords,
		SupportVectors: make(SupportVectors, 1),
	}
}
