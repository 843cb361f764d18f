// Package datasets implements labeled example sets and the example file protocol
package datasets

import "github.com/neurlang/svmdetector/model"

// Example is one labeled sparse feature vector. Feature indices are 1-based
// and ascending.
type Example struct {
	Positive bool
	Features []model.Feature
}

// Label returns +1 for positive examples and -1 for negative ones.
func (e Example) Label() int8 {
	if e.Positive {
		return +1
	}
	return -1
}

// AppendText appends the example in example file syntax, without a newline.
func (e Example) AppendText(buf []byte) []byte {
	buf = appendLabel(buf, e.Positive)
	for _, f := range e.Features {
		buf = append(buf, ' ')
		buf = model.AppendFeature(buf, f)
	}
	return buf
}

func appendLabel(buf []byte, positive bool) []byte {
	if positive {
		return append(buf, "+1"...)
	}
	return append(buf, "-1"...)
}

// Dataset is an ordered example set backing one training run.
type Dataset []Example

// Dim returns the highest feature index used by any example.
func (d Dataset) Dim() (n int) {
	for _, e := range d {
		if l := len(e.Features); l > 0 && e.Features[l-1].Index > n {
			n = e.Features[l-1].Index
		}
	}
	return
}

// SplittedDataset holds the negative examples at 0 and the positive ones at 1.
type SplittedDataset [2]Dataset

// SplitDataset splits dataset into a negative set and a positive set
func SplitDataset(d Dataset) (o SplittedDataset) {
	for _, e := range d {
		if e.Positive {
			o[1] = append(o[1], e)
		} else {
			o[0] = append(o[0], e)
		}
	}
	return
}

// Degenerate reports whether one of the classes is empty.
func (s SplittedDataset) Degenerate() bool {
	return len(s[0]) == 0 || len(s[1]) == 0
}
