// Package main provides the detection-side program of the detector toolkit.
// It loads a linear SVMLight model, collapses it into a detector vector and
// optionally scores an example file with it.
package main
