// Package svmerr defines the error kinds reported by the detector toolkit.
//
// Every failure surfaced by the datasets, trainer, model and inference
// packages carries exactly one Kind. Callers distinguish them with errors.Is:
//
//	if errors.Is(err, svmerr.ErrUnsupportedKernel) { ... }
package svmerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error.
type Kind uint8

const (
	// IO means a file could not be opened, read or written.
	IO Kind = iota + 1
	// InvalidState means an operation was called out of sequence.
	InvalidState
	// Training means the solver rejected or could not fit the example set.
	Training
	// ModelLoad means a model file is absent, truncated or malformed.
	ModelLoad
	// UnsupportedKernel means a model uses a kernel other than linear.
	UnsupportedKernel
)

var kindNames = [...]string{
	IO:                "io error",
	InvalidState:      "invalid state",
	Training:          "training error",
	ModelLoad:         "model load error",
	UnsupportedKernel: "unsupported kernel",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error makes a Kind usable as a sentinel.
func (k Kind) Error() string {
	return k.String()
}

// Sentinels for errors.Is.
var (
	ErrIO                error = IO
	ErrInvalidState      error = InvalidState
	ErrTraining          error = Training
	ErrModelLoad         error = ModelLoad
	ErrUnsupportedKernel error = UnsupportedKernel
)

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Cause is the github.com/pkg/errors spelling of Unwrap.
func (e *Error) Cause() error {
	return e.Err
}

// Is matches the Kind sentinels.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New returns an error of the given kind with a stack trace attached.
// cause may be nil.
func New(kind Kind, op string, cause error) error {
	return errors.WithStack(&Error{Kind: kind, Op: op, Err: cause})
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op string, format string, args ...interface{}) error {
	return New(kind, op, errors.Errorf(format, args...))
}

// KindOf reports the Kind carried by err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
