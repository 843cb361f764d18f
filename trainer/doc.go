// Package trainer drives one training run of a linear SVM detector.
// It appends labeled examples to an example file, hands the file to a
// Solver once it is closed and saves the returned model, strictly in
// that order.
package trainer
