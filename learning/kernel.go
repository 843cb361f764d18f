package learning

import lru "github.com/hashicorp/golang-lru"

import "github.com/neurlang/svmdetector/model"
import "github.com/neurlang/svmdetector/parallel"

// rows shorter than this are computed on the calling goroutine
const parallelRowLength = 4096

// dot is the sparse dot product of two index-ascending feature lists.
func dot(x, y []model.Feature) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(x) && j < len(y) {
		switch {
		case x[i].Index == y[j].Index:
			sum += x[i].Weight * y[j].Weight
			i++
			j++
		case x[i].Index > y[j].Index:
			j++
		default:
			i++
		}
	}
	return sum
}

// qMatrix serves rows of Q_ij = y_i y_j K(x_i, x_j) for the linear kernel,
// keeping recently used rows in an LRU cache bounded by the configured size.
type qMatrix struct {
	x       [][]model.Feature
	y       []int8
	qd      []float64
	cache   *lru.Cache
	threads int
}

func newQMatrix(x [][]model.Feature, y []int8, cacheMB, threads int) (*qMatrix, error) {
	l := len(x)
	rows := (cacheMB << 20) / (8 * l)
	if rows < 2 {
		rows = 2
	}
	cache, err := lru.New(rows)
	if err != nil {
		return nil, err
	}
	q := &qMatrix{
		x:       x,
		y:       y,
		qd:      make([]float64, l),
		cache:   cache,
		threads: threads,
	}
	for i := range x {
		q.qd[i] = dot(x[i], x[i])
	}
	return q, nil
}

// diag returns Q_ii.
func (q *qMatrix) diag() []float64 {
	return q.qd
}

// row returns Q_i. The slice is shared with the cache and must not be modified.
func (q *qMatrix) row(i int) []float64 {
	if v, ok := q.cache.Get(i); ok {
		return v.([]float64)
	}
	l := len(q.x)
	r := make([]float64, l)
	fill := func(_, lo, hi int) {
		xi, yi := q.x[i], float64(q.y[i])
		for j := lo; j < hi; j++ {
			r[j] = yi * float64(q.y[j]) * dot(xi, q.x[j])
		}
	}
	if q.threads > 1 && l >= parallelRowLength {
		parallel.ForEachChunk(l, q.threads, fill)
	} else {
		fill(0, 0, l)
	}
	q.cache.Add(i, r)
	return r
}
