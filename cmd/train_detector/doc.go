// Package main provides the training program of the detector toolkit. It
// fits a linear SVM to an example file and writes an SVMLight model file,
// which infer_detector later collapses into a detector vector.
package main
