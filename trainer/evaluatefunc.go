package trainer

import "math"

import "github.com/neurlang/svmdetector/datasets"
import "github.com/neurlang/svmdetector/inference"

// sampleSize calculates the statistically sufficient sample size
// for a given dataset size N and significance level (0–100).
func sampleSize(N int, significance byte) int {
	if significance == 0 || significance >= 100 {
		return N
	}

	// Convert significance level to Z-score
	z := zScoreFromAlpha(100 - significance)

	// Assume worst-case proportion p = 0.5 for max variability
	p := 0.5
	e := float64(100-significance) * 0.01

	numerator := math.Pow(z, 2) * p * (1 - p)
	denominator := math.Pow(e, 2)

	// Initial sample size without population correction
	ss := numerator / denominator

	// Apply finite population correction
	correctedSS := ss * float64(N) / (float64(N) - 1 + ss)

	if int(correctedSS) > N {
		return N
	}
	if correctedSS < 1 && N > 0 {
		return 1
	}
	return int(correctedSS)
}

// zScoreFromAlpha returns the Z-score for a given alpha level
// Common: 90% => 1.645, 95% => 1.96, 99% => 2.576
func zScoreFromAlpha(alpha byte) float64 {
	switch {
	case alpha <= 1:
		return 2.576 // 99% confidence
	case alpha <= 5:
		return 1.96 // 95% confidence
	case alpha <= 10:
		return 1.645 // 90% confidence
	default:
		return 1.96 // default fallback
	}
}

// evaluate classifies an evenly spaced sample of d with detector. The
// sample covers the whole set when significance is 0.
func evaluate(detector []float64, d datasets.Dataset, significance byte) inference.Accuracy {
	l := sampleSize(len(d), significance)
	if l == len(d) {
		return inference.Evaluate(detector, d)
	}
	sample := make(datasets.Dataset, l)
	for i := range sample {
		sample[i] = d[i*len(d)/l]
	}
	return inference.Evaluate(detector, sample)
}
