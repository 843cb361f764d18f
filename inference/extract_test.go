package inference

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/svmdetector/datasets"
	"github.com/neurlang/svmdetector/model"
	"github.com/neurlang/svmdetector/svmerr"
)

func linearModel(totalWords int, bias float64, svs ...model.SupportVector) *model.Model {
	b := model.NewBuilder(len(svs), 0)
	for _, sv := range svs {
		b.Add(sv.Features, sv.Alpha)
	}
	m := model.New(model.DefaultKernel(), totalWords)
	m.SupportVectors = b.Build()
	m.Bias = bias
	return m
}

func sv(alpha float64, features ...model.Feature) model.SupportVector {
	return model.SupportVector{Alpha: alpha, Features: features}
}

func TestExtractSingleSupportVector(t *testing.T) {
	var e Extractor
	require.NoError(t, e.SetModel(linearModel(2, 0.2, sv(1, model.Feature{Index: 1, Weight: 0.5}, model.Feature{Index: 2, Weight: -0.5}))))

	got, err := e.ExtractDetectorVector()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5, -0.2}, got)
}

func TestExtractBiasSign(t *testing.T) {
	var e Extractor
	require.NoError(t, e.SetModel(linearModel(3, 3.5, sv(2, model.Feature{Index: 3, Weight: 1}))))

	got, err := e.ExtractDetectorVector()
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, -3.5, got[3])
	assert.Equal(t, []float64{0, 0, 2}, got[:3])
}

func TestExtractIgnoresReservedSlot(t *testing.T) {
	clean := linearModel(2, 1, sv(0.5, model.Feature{Index: 1, Weight: 2}), sv(-1, model.Feature{Index: 2, Weight: 4}))
	poisoned := linearModel(2, 1, sv(0.5, model.Feature{Index: 1, Weight: 2}), sv(-1, model.Feature{Index: 2, Weight: 4}))
	poisoned.SupportVectors[0] = sv(1000, model.Feature{Index: 1, Weight: 1000}, model.Feature{Index: 2, Weight: -1000})

	for _, threads := range []int{1, 2} {
		var a, b Extractor
		a.Threads, b.Threads = threads, threads
		require.NoError(t, a.SetModel(clean))
		require.NoError(t, b.SetModel(poisoned))
		va, err := a.ExtractDetectorVector()
		require.NoError(t, err)
		vb, err := b.ExtractDetectorVector()
		require.NoError(t, err)
		assert.Equal(t, va, vb)
		assert.Equal(t, []float64{1, -4, -1}, va)
	}
}

func TestExtractNoSupportVectors(t *testing.T) {
	var e Extractor
	require.NoError(t, e.SetModel(model.New(model.DefaultKernel(), 3)))
	got, err := e.ExtractDetectorVector()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, got)
}

func randomModel(rng *rand.Rand, totalWords, count int) *model.Model {
	svs := make([]model.SupportVector, count)
	for i := range svs {
		var features []model.Feature
		for idx := 1; idx <= totalWords; idx++ {
			if rng.Intn(4) == 0 {
				features = append(features, model.Feature{Index: idx, Weight: rng.NormFloat64()})
			}
		}
		svs[i] = sv(rng.NormFloat64(), features...)
	}
	return linearModel(totalWords, rng.NormFloat64(), svs...)
}

// dense reference: w_j = sum_i alpha_i x_ij
func naiveCollapse(m *model.Model) []float64 {
	out := make([]float64, m.TotalWords+1)
	for i := 1; i < len(m.SupportVectors); i++ {
		dense := make([]float64, m.TotalWords)
		for _, f := range m.SupportVectors[i].Features {
			dense[f.Index-1] = f.Weight
		}
		for j := range dense {
			out[j] += m.SupportVectors[i].Alpha * dense[j]
		}
	}
	out[m.TotalWords] = -m.Bias
	return out
}

func TestExtractMatchesDenseReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		m := randomModel(rng, 1+rng.Intn(50), rng.Intn(40))
		want := naiveCollapse(m)
		for _, threads := range []int{1, 3, 8} {
			e := Extractor{Threads: threads}
			require.NoError(t, e.SetModel(m))
			got, err := e.ExtractDetectorVector()
			require.NoError(t, err)
			require.Len(t, got, m.TotalWords+1)
			assert.InDeltaSlice(t, want, got, 1e-9, "round %d threads %d", round, threads)
		}
	}
}

func TestExtractBeforeLoad(t *testing.T) {
	var e Extractor
	_, err := e.ExtractDetectorVector()
	require.Error(t, err)
	assert.True(t, errors.Is(err, svmerr.ErrInvalidState))
}

func TestSetModelErrors(t *testing.T) {
	rbf := linearModel(1, 0, sv(1, model.Feature{Index: 1, Weight: 1}))
	rbf.Kernel.Type = model.RBF

	outOfRange := linearModel(1, 0, sv(1, model.Feature{Index: 2, Weight: 1}))
	tooWide := linearModel(model.MaxTotalWords+1, 0, sv(1, model.Feature{Index: 1, Weight: 1}))

	testCases := []struct {
		name string
		m    *model.Model
		want error
	}{
		{"nil", nil, svmerr.ErrModelLoad},
		{"rbf", rbf, svmerr.ErrUnsupportedKernel},
		{"index out of range", outOfRange, svmerr.ErrModelLoad},
		{"too many features", tooWide, svmerr.ErrModelLoad},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var e Extractor
			err := e.SetModel(tc.m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "%v", err)
			assert.Nil(t, e.Model())
		})
	}
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()

	linear := filepath.Join(dir, "linear.model")
	require.NoError(t, model.WriteFile(linear, linearModel(2, 0.2, sv(1, model.Feature{Index: 1, Weight: 0.5}, model.Feature{Index: 2, Weight: -0.5}))))
	var e Extractor
	require.NoError(t, e.LoadModel(linear))
	got, err := e.ExtractDetectorVector()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5, -0.2}, got)

	poly := linearModel(2, 0, sv(1, model.Feature{Index: 1, Weight: 1}))
	poly.Kernel.Type = model.Polynomial
	polyPath := filepath.Join(dir, "poly.model")
	require.NoError(t, model.WriteFile(polyPath, poly))
	err = e.LoadModel(polyPath)
	assert.True(t, errors.Is(err, svmerr.ErrUnsupportedKernel), "%v", err)

	err = e.LoadModel(filepath.Join(dir, "missing.model"))
	assert.True(t, errors.Is(err, svmerr.ErrModelLoad), "%v", err)

	// a failed load keeps the previous model
	got, err = e.ExtractDetectorVector()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.5, -0.2}, got)
}

func TestScoreAndEvaluate(t *testing.T) {
	detector := []float64{1, -1, -0.5}

	assert.Equal(t, 0.5, Score(detector, []model.Feature{{Index: 1, Weight: 1}}))
	assert.Equal(t, -1.5, Score(detector, []model.Feature{{Index: 2, Weight: 1}}))
	assert.Equal(t, 0.5, Score(detector, []model.Feature{{Index: 1, Weight: 1}, {Index: 7, Weight: 100}}))
	assert.Equal(t, 0.0, Score(nil, []model.Feature{{Index: 1, Weight: 1}}))

	d := datasets.Dataset{
		{Positive: true, Features: []model.Feature{{Index: 1, Weight: 2}}},
		{Positive: true, Features: []model.Feature{{Index: 2, Weight: 2}}},
		{Positive: false, Features: []model.Feature{{Index: 2, Weight: 1}}},
		{Positive: false, Features: []model.Feature{{Index: 1, Weight: 3}}},
	}
	a := Evaluate(detector, d)
	assert.Equal(t, Accuracy{TruePositives: 1, FalseNegatives: 1, TrueNegatives: 1, FalsePositives: 1}, a)
	assert.Equal(t, 4, a.Total())
	assert.Equal(t, 50.0, a.Percent())
	assert.Equal(t, 0.0, Accuracy{}.Percent())
}

func BenchmarkCollapse(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	m := randomModel(rng, 3780, 2000)
	for _, threads := range []int{1, 4} {
		b.Run(map[int]string{1: "serial", 4: "parallel"}[threads], func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				Collapse(m, threads)
			}
		})
	}
}
