package learning

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/svmdetector/datasets"
	"github.com/neurlang/svmdetector/model"
	"github.com/neurlang/svmdetector/svmerr"
)

func scalar(v float64, positive bool) datasets.Example {
	return datasets.Example{Positive: positive, Features: []model.Feature{{Index: 1, Weight: v}}}
}

// primal weights and bias of a linear model
func primal(m *model.Model) ([]float64, float64) {
	w := make([]float64, m.TotalWords)
	for _, sv := range m.SupportVectors.Active() {
		for _, f := range sv.Features {
			w[f.Index-1] += sv.Alpha * f.Weight
		}
	}
	return w, m.Bias
}

func decision(w []float64, b float64, e datasets.Example) float64 {
	s := -b
	for _, f := range e.Features {
		s += w[f.Index-1] * f.Weight
	}
	return s
}

func testParameters() HyperParameters {
	h := Default()
	h.C = 10
	h.Threads = 1
	return h
}

func TestFitTwoPoints(t *testing.T) {
	h := testParameters()
	m, err := h.Fit(datasets.Dataset{scalar(1, true), scalar(-1, false)})
	require.NoError(t, err)

	assert.True(t, m.IsLinear())
	assert.Equal(t, 1, m.TotalWords)
	assert.Equal(t, 2, m.TotalDocs)
	require.Equal(t, 2, m.SupportVectors.Count())
	assert.InDelta(t, 0.5, m.SupportVectors.Active()[0].Alpha, 1e-9)
	assert.InDelta(t, -0.5, m.SupportVectors.Active()[1].Alpha, 1e-9)
	assert.InDelta(t, 0, m.Bias, 1e-9)

	w, _ := primal(m)
	assert.InDeltaSlice(t, []float64{1}, w, 1e-9)
}

func TestFitUnbiased(t *testing.T) {
	h := testParameters()
	h.Biased = false
	m, err := h.Fit(datasets.Dataset{scalar(1, true), scalar(-1, false)})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Bias)
	w, _ := primal(m)
	assert.InDeltaSlice(t, []float64{1}, w, 1e-9)
}

func gaussianBlobs(rng *rand.Rand, n, dim int, gap float64) datasets.Dataset {
	d := make(datasets.Dataset, 0, 2*n)
	for k := 0; k < 2*n; k++ {
		positive := k%2 == 0
		center := -gap
		if positive {
			center = gap
		}
		e := datasets.Example{Positive: positive}
		for i := 1; i <= dim; i++ {
			v := center + rng.NormFloat64()*0.3
			if i%3 == 0 {
				// sparse dimensions carry noise only, some entries absent
				if rng.Intn(2) == 0 {
					continue
				}
				v = rng.NormFloat64()
			}
			e.Features = append(e.Features, model.Feature{Index: i, Weight: v})
		}
		d = append(d, e)
	}
	return d
}

func TestFitSeparable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := gaussianBlobs(rng, 40, 9, 1.5)

	for _, threads := range []int{1, 4} {
		h := testParameters()
		h.Threads = threads
		m, err := h.Fit(d)
		require.NoError(t, err)
		require.NoError(t, m.Validate())

		var sum float64
		for _, sv := range m.SupportVectors.Active() {
			sum += sv.Alpha
			assert.LessOrEqual(t, sv.Alpha, h.C+1e-12)
			assert.GreaterOrEqual(t, sv.Alpha, -h.C-1e-12)
		}
		assert.InDelta(t, 0, sum, 1e-9, "sum of alpha*y")

		w, b := primal(m)
		for n, e := range d {
			got := decision(w, b, e) > 0
			assert.Equal(t, e.Positive, got, "example %d", n)
		}
	}
}

func TestFitRemoveInconsistent(t *testing.T) {
	d := datasets.Dataset{
		scalar(1, true), scalar(1.5, true), scalar(2, true), scalar(2.5, true), scalar(3, true),
		scalar(-1, false), scalar(-1.5, false), scalar(-2, false), scalar(-2.5, false), scalar(-3, false),
		scalar(-2.2, true),
	}
	isOutlier := func(sv model.SupportVector) bool {
		return len(sv.Features) == 1 && sv.Features[0].Weight == -2.2
	}

	h := testParameters()
	h.C = 1
	m, err := h.Fit(d)
	require.NoError(t, err)
	var found bool
	for _, sv := range m.SupportVectors.Active() {
		if isOutlier(sv) {
			found = true
			assert.InDelta(t, 1.0, sv.Alpha, 1e-9)
		}
	}
	assert.True(t, found, "outlier should be a bounded support vector")

	h.RemoveInconsistent = true
	m, err = h.Fit(d)
	require.NoError(t, err)
	assert.Equal(t, len(d), m.TotalDocs)
	for _, sv := range m.SupportVectors.Active() {
		assert.False(t, isOutlier(sv))
	}
	w, b := primal(m)
	assert.InDelta(t, 1, w[0], 1e-2)
	assert.InDelta(t, 0, b, 1e-2)
}

func TestFitErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	overlapping := gaussianBlobs(rng, 50, 6, 0.1)

	testCases := []struct {
		name  string
		tweak func(h *HyperParameters)
		data  datasets.Dataset
		want  error
	}{
		{"empty", nil, nil, svmerr.ErrTraining},
		{"positives only", nil, datasets.Dataset{scalar(1, true), scalar(2, true)}, svmerr.ErrTraining},
		{"negatives only", nil, datasets.Dataset{scalar(1, false)}, svmerr.ErrTraining},
		{"rbf kernel", func(h *HyperParameters) { h.Kernel.Type = model.RBF }, overlapping, svmerr.ErrUnsupportedKernel},
		{"negative C", func(h *HyperParameters) { h.C = -1 }, overlapping, svmerr.ErrTraining},
		{"zero epsilon", func(h *HyperParameters) { h.Epsilon = 0 }, overlapping, svmerr.ErrTraining},
		{"iteration cap", func(h *HyperParameters) { h.MaxIterations = 1 }, overlapping, svmerr.ErrTraining},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := testParameters()
			if tc.tweak != nil {
				tc.tweak(&h)
			}
			m, err := h.Fit(tc.data)
			assert.Nil(t, m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "%v", err)
		})
	}
}

func TestDefaultC(t *testing.T) {
	d := datasets.Dataset{scalar(1, true), scalar(-3, false)}
	assert.InDelta(t, 0.25, defaultC(d), 1e-12)

	h := testParameters()
	h.C = 0
	_, err := h.Fit(d)
	assert.NoError(t, err)
}

func TestReadYAML(t *testing.T) {
	h := Default()
	err := h.ReadYAML(strings.NewReader(`
c: 0.5
biased_hyperplane: false
max_iterations: 250
remove_inconsistent: true
`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, h.C)
	assert.False(t, h.Biased)
	assert.Equal(t, 250, h.MaxIterations)
	assert.True(t, h.RemoveInconsistent)
	assert.Equal(t, Default().Epsilon, h.Epsilon)
	assert.Equal(t, model.Linear, h.Kernel.Type)

	require.NoError(t, h.ReadYAML(strings.NewReader("kernel: rbf\n")))
	assert.True(t, errors.Is(h.Check(), svmerr.ErrUnsupportedKernel))

	assert.Error(t, h.ReadYAML(strings.NewReader("unknown_key: 1\n")))
	assert.Error(t, h.ReadYAML(strings.NewReader("kernel: banana\n")))
}

func TestDefault(t *testing.T) {
	h := Default()
	assert.NoError(t, h.Check())
	assert.Equal(t, model.Linear, h.Kernel.Type)
	assert.True(t, h.Biased)
	assert.Equal(t, 0.01, h.C)
	assert.False(t, h.RemoveInconsistent)
	assert.Equal(t, 100000, h.MaxIterations)
	assert.GreaterOrEqual(t, h.Threads, 1)
	assert.NotNil(t, h.Logger())
}
