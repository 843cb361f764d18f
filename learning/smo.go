package learning

import (
	"math"

	"go.uber.org/zap"

	"github.com/neurlang/svmdetector/svmerr"
)

// An SMO algorithm in Fan et al., JMLR 6(2005), p. 1889--1918
// Solves:
//
//	min 0.5(\alpha^T Q \alpha) - e^T \alpha
//
//		y^T \alpha = 0            (biased hyperplane only)
//		0 <= alpha_i <= Cp for y_i = +1
//		0 <= alpha_i <= Cn for y_i = -1
//
// starting from alpha = 0.

const (
	lowerBound int8 = iota
	upperBound
	free
)

// tau replaces non-positive quadratic coefficients
const tau = 1e-12

const progressEvery = 1000

type smo struct {
	q           *qMatrix
	qd          []float64
	y           []int8
	alpha       []float64
	alphaStatus []int8
	g           []float64 // gradient of the objective
	cp, cn      float64
	eps         float64
	maxIter     int
	log         *zap.Logger

	bias       float64
	iterations int
}

func newSMO(q *qMatrix, y []int8, cp, cn, eps float64, maxIter int, log *zap.Logger) *smo {
	l := len(y)
	s := &smo{
		q:           q,
		qd:          q.diag(),
		y:           y,
		alpha:       make([]float64, l),
		alphaStatus: make([]int8, l),
		g:           make([]float64, l),
		cp:          cp,
		cn:          cn,
		eps:         eps,
		maxIter:     maxIter,
		log:         log,
	}
	for i := range s.g {
		s.g[i] = -1
	}
	return s
}

func (s *smo) c(i int) float64 {
	if s.y[i] > 0 {
		return s.cp
	}
	return s.cn
}

func (s *smo) updateAlphaStatus(i int) {
	switch {
	case s.alpha[i] >= s.c(i):
		s.alphaStatus[i] = upperBound
	case s.alpha[i] <= 0:
		s.alphaStatus[i] = lowerBound
	default:
		s.alphaStatus[i] = free
	}
}

func (s *smo) isUpperBound(i int) bool { return s.alphaStatus[i] == upperBound }
func (s *smo) isLowerBound(i int) bool { return s.alphaStatus[i] == lowerBound }

func (s *smo) notConverged() error {
	return svmerr.Newf(svmerr.Training, "solve", "no convergence within %d iterations", s.maxIter)
}

// solve runs SMO with the equality constraint and sets alpha, g and bias.
func (s *smo) solve() error {
	for {
		i, j, gap := s.selectWorkingSet()
		if gap < s.eps {
			break
		}
		if s.iterations >= s.maxIter {
			return s.notConverged()
		}
		s.iterations++
		if s.iterations%progressEvery == 0 {
			s.log.Debug("solver progress", zap.Int("iteration", s.iterations), zap.Float64("violation", gap))
		}
		s.update(i, j)
	}
	s.bias = s.calculateRho()
	return nil
}

// update optimizes alpha[i] and alpha[j] jointly, handling bounds carefully.
func (s *smo) update(i, j int) {
	qi := s.q.row(i)
	qj := s.q.row(j)
	ci, cj := s.c(i), s.c(j)
	oldI, oldJ := s.alpha[i], s.alpha[j]

	if s.y[i] != s.y[j] {
		quad := s.qd[i] + s.qd[j] + 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.g[i] - s.g[j]) / quad
		diff := s.alpha[i] - s.alpha[j]
		s.alpha[i] += delta
		s.alpha[j] += delta

		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j] = 0
				s.alpha[i] = diff
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = -diff
		}
		if diff > ci-cj {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = ci - diff
			}
		} else if s.alpha[j] > cj {
			s.alpha[j] = cj
			s.alpha[i] = cj + diff
		}
	} else {
		quad := s.qd[i] + s.qd[j] - 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (s.g[i] - s.g[j]) / quad
		sum := s.alpha[i] + s.alpha[j]
		s.alpha[i] -= delta
		s.alpha[j] += delta

		if sum > ci {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = sum - ci
			}
		} else if s.alpha[j] < 0 {
			s.alpha[j] = 0
			s.alpha[i] = sum
		}
		if sum > cj {
			if s.alpha[j] > cj {
				s.alpha[j] = cj
				s.alpha[i] = sum - cj
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = sum
		}
	}

	di := s.alpha[i] - oldI
	dj := s.alpha[j] - oldJ
	for k := range s.g {
		s.g[k] += qi[k]*di + qj[k]*dj
	}
	s.updateAlphaStatus(i)
	s.updateAlphaStatus(j)
}

// selectWorkingSet returns i, j such that
// i maximizes -y_i * grad(f)_i over I_up(alpha) and
// j minimizes the decrease of the objective over I_low(alpha),
// together with the maximal KKT violation m(alpha) - M(alpha).
func (s *smo) selectWorkingSet() (int, int, float64) {
	gmax := math.Inf(-1)
	gmax2 := math.Inf(-1)
	gmaxIdx, gminIdx := -1, -1
	objDiffMin := math.Inf(1)

	for t := range s.y {
		if s.y[t] == +1 {
			if !s.isUpperBound(t) && -s.g[t] >= gmax {
				gmax = -s.g[t]
				gmaxIdx = t
			}
		} else if !s.isLowerBound(t) && s.g[t] >= gmax {
			gmax = s.g[t]
			gmaxIdx = t
		}
	}

	i := gmaxIdx
	var qi []float64
	if i != -1 {
		qi = s.q.row(i)
	}

	for j := range s.y {
		var gradDiff, quad float64
		if s.y[j] == +1 {
			if s.isLowerBound(j) {
				continue
			}
			if s.g[j] >= gmax2 {
				gmax2 = s.g[j]
			}
			gradDiff = gmax + s.g[j]
			if gradDiff <= 0 {
				continue
			}
			quad = s.qd[i] + s.qd[j] - 2*float64(s.y[i])*qi[j]
		} else {
			if s.isUpperBound(j) {
				continue
			}
			if -s.g[j] >= gmax2 {
				gmax2 = -s.g[j]
			}
			gradDiff = gmax - s.g[j]
			if gradDiff <= 0 {
				continue
			}
			quad = s.qd[i] + s.qd[j] + 2*float64(s.y[i])*qi[j]
		}
		if quad <= 0 {
			quad = tau
		}
		if objDiff := -(gradDiff * gradDiff) / quad; objDiff <= objDiffMin {
			gminIdx = j
			objDiffMin = objDiff
		}
	}

	return gmaxIdx, gminIdx, gmax + gmax2
}

// calculateRho returns the threshold b of the decision function w·x - b.
func (s *smo) calculateRho() float64 {
	var nrFree int
	var sumFree float64
	ub := math.Inf(1)
	lb := math.Inf(-1)
	for i := range s.y {
		yG := float64(s.y[i]) * s.g[i]
		switch {
		case s.isLowerBound(i):
			if s.y[i] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case s.isUpperBound(i):
			if s.y[i] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nrFree++
			sumFree += yG
		}
	}
	if nrFree > 0 {
		return sumFree / float64(nrFree)
	}
	return (ub + lb) / 2
}

// solveUnbiased runs coordinate descent without the equality constraint,
// which fixes b = 0.
func (s *smo) solveUnbiased() error {
	for {
		best, bestPG := -1, 0.0
		for t, g := range s.g {
			pg := g
			switch {
			case s.isLowerBound(t):
				pg = math.Min(g, 0)
			case s.isUpperBound(t):
				pg = math.Max(g, 0)
			}
			if math.Abs(pg) > math.Abs(bestPG) {
				best, bestPG = t, pg
			}
		}
		if best < 0 || math.Abs(bestPG) < s.eps {
			break
		}
		if s.iterations >= s.maxIter {
			return s.notConverged()
		}
		s.iterations++
		if s.iterations%progressEvery == 0 {
			s.log.Debug("solver progress", zap.Int("iteration", s.iterations), zap.Float64("violation", math.Abs(bestPG)))
		}

		qb := s.q.row(best)
		quad := s.qd[best]
		if quad <= 0 {
			quad = tau
		}
		old := s.alpha[best]
		s.alpha[best] = math.Min(math.Max(old-s.g[best]/quad, 0), s.c(best))
		delta := s.alpha[best] - old
		for k := range s.g {
			s.g[k] += qb[k] * delta
		}
		s.updateAlphaStatus(best)
	}
	s.bias = 0
	return nil
}
