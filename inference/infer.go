// Package inference implements the detection stage: collapsing a linear SVM into a detector vector and scoring with it
package inference

import "github.com/neurlang/svmdetector/datasets"
import "github.com/neurlang/svmdetector/model"

// Score returns w·x + detector[n] for a detector of length n+1, that is
// w·x - b. Features beyond n contribute nothing.
func Score(detector []float64, x []model.Feature) float64 {
	n := len(detector) - 1
	if n < 0 {
		return 0
	}
	s := detector[n]
	for _, f := range x {
		if f.Index >= 1 && f.Index <= n {
			s += detector[f.Index-1] * f.Weight
		}
	}
	return s
}

// Classify reports whether x falls on the positive side of the hyperplane.
func Classify(detector []float64, x []model.Feature) bool {
	return Score(detector, x) > 0
}

// Accuracy counts the outcome of classifying a labeled example set.
type Accuracy struct {
	TruePositives  int
	TrueNegatives  int
	FalsePositives int
	FalseNegatives int
}

// Total returns the number of classified examples.
func (a Accuracy) Total() int {
	return a.TruePositives + a.TrueNegatives + a.FalsePositives + a.FalseNegatives
}

// Correct returns the number of correctly classified examples.
func (a Accuracy) Correct() int {
	return a.TruePositives + a.TrueNegatives
}

// Percent returns the share of correct classifications, 0..100.
func (a Accuracy) Percent() float64 {
	if a.Total() == 0 {
		return 0
	}
	return 100 * float64(a.Correct()) / float64(a.Total())
}

// Evaluate classifies every example of d with detector.
func Evaluate(detector []float64, d datasets.Dataset) (a Accuracy) {
	for _, e := range d {
		a.add(e.Positive, Classify(detector, e.Features))
	}
	return
}

func (a *Accuracy) add(positive, predicted bool) {
	switch {
	case positive && predicted:
		a.TruePositives++
	case positive:
		a.FalseNegatives++
	case predicted:
		a.FalsePositives++
	default:
		a.TrueNegatives++
	}
}
