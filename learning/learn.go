// Package learning implements the training stage: hyperparameters and an SMO solver for linear C-SVC
package learning

import (
	"math"

	"go.uber.org/zap"

	"github.com/neurlang/svmdetector/datasets"
	"github.com/neurlang/svmdetector/model"
	"github.com/neurlang/svmdetector/svmerr"
)

// Fit trains a linear soft-margin SVM on d and returns its dual form.
// Support vectors carry alpha*y as their coefficient and the decision
// function is w·x - b, as in SVMLight model files.
func (h *HyperParameters) Fit(d datasets.Dataset) (*model.Model, error) {
	const op = "fit"
	if err := h.Check(); err != nil {
		return nil, err
	}
	if len(d) == 0 {
		return nil, svmerr.Newf(svmerr.Training, op, "empty example set")
	}
	if split := datasets.SplitDataset(d); split.Degenerate() {
		return nil, svmerr.Newf(svmerr.Training, op,
			"examples of a single class: %d positive, %d negative", len(split[1]), len(split[0]))
	}

	log := h.Logger()
	c := h.C
	if c == 0 {
		c = defaultC(d)
		log.Info("derived soft margin C from the data", zap.Float64("c", c))
	}

	keep := make([]int, len(d))
	for i := range keep {
		keep[i] = i
	}
	sol, err := h.solve(d, keep, c)
	if err != nil {
		return nil, err
	}

	if h.RemoveInconsistent {
		if consistent := sol.consistent(keep); len(consistent) < len(keep) {
			log.Info("removing inconsistent examples and retraining",
				zap.Int("removed", len(keep)-len(consistent)))
			keep = consistent
			sub := make(datasets.Dataset, len(keep))
			for n, i := range keep {
				sub[n] = d[i]
			}
			if split := datasets.SplitDataset(sub); split.Degenerate() {
				return nil, svmerr.Newf(svmerr.Training, op, "no examples of one class left after removing inconsistent examples")
			}
			if sol, err = h.solve(d, keep, c); err != nil {
				return nil, err
			}
		}
	}

	m := h.build(d, keep, sol)
	log.Info("optimization finished",
		zap.Int("iterations", sol.iterations),
		zap.Int("support_vectors", m.SupportVectors.Count()),
		zap.Int("features", m.TotalWords),
		zap.Float64("bias", m.Bias))
	return m, nil
}

// defaultC is SVMLight's choice for C = 0: the inverse squared average norm.
func defaultC(d datasets.Dataset) float64 {
	var avg float64
	for _, e := range d {
		avg += math.Sqrt(dot(e.Features, e.Features))
	}
	avg /= float64(len(d))
	if avg == 0 {
		return 1
	}
	return 1 / (avg * avg)
}

type solution struct {
	alpha      []float64
	g          []float64
	y          []int8
	cp, cn     float64
	bias       float64
	iterations int
}

// consistent returns the entries of keep whose example is not both at the
// upper bound and misclassified.
func (s *solution) consistent(keep []int) []int {
	out := make([]int, 0, len(keep))
	for n, i := range keep {
		c := s.cn
		if s.y[n] > 0 {
			c = s.cp
		}
		// y f(x) = G + 1 - y b
		margin := s.g[n] + 1 - float64(s.y[n])*s.bias
		if s.alpha[n] >= c && margin < 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (h *HyperParameters) solve(d datasets.Dataset, keep []int, c float64) (*solution, error) {
	x := make([][]model.Feature, len(keep))
	y := make([]int8, len(keep))
	for n, i := range keep {
		x[n] = d[i].Features
		y[n] = d[i].Label()
	}
	q, err := newQMatrix(x, y, h.KernelCacheSize, h.Threads)
	if err != nil {
		return nil, svmerr.New(svmerr.Training, "allocate kernel cache", err)
	}

	s := newSMO(q, y, c*h.CostRatio, c, h.Epsilon, h.MaxIterations, h.Logger())
	if h.Biased {
		err = s.solve()
	} else {
		err = s.solveUnbiased()
	}
	if err != nil {
		return nil, err
	}
	return &solution{
		alpha:      s.alpha,
		g:          s.g,
		y:          y,
		cp:         s.cp,
		cn:         s.cn,
		bias:       s.bias,
		iterations: s.iterations,
	}, nil
}

func (h *HyperParameters) build(d datasets.Dataset, keep []int, sol *solution) *model.Model {
	var count, nnz int
	for n, i := range keep {
		if sol.alpha[n] > h.EpsilonA {
			count++
			nnz += len(d[i].Features)
		}
	}
	b := model.NewBuilder(count, nnz)
	for n, i := range keep {
		if sol.alpha[n] > h.EpsilonA {
			b.Add(d[i].Features, sol.alpha[n]*float64(d[i].Label()))
		}
	}

	m := model.New(h.Kernel, d.Dim())
	m.TotalDocs = len(d)
	m.SupportVectors = b.Build()
	m.Bias = sol.bias
	return m
}
