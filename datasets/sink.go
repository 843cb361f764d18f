package datasets

import "bufio"
import "os"

import "github.com/pkg/errors"

import "github.com/neurlang/svmdetector/model"
import "github.com/neurlang/svmdetector/svmerr"

var errSinkClosed = errors.New("example sink is closed")

// Sink appends labeled feature vectors to an example file.
//
// A Sink is opened once, written any number of times and closed once.
// Numbers are formatted with strconv, so the decimal separator is always
// '.' regardless of the process locale.
type Sink struct {
	path  string
	file  *os.File
	w     *bufio.Writer
	buf   []byte
	count int
}

// Open creates or truncates the example file at path.
func Open(path string) (*Sink, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, svmerr.New(svmerr.IO, "open example sink", err)
	}
	return &Sink{
		path: path,
		file: file,
		w:    bufio.NewWriter(file),
	}, nil
}

// Path returns the example file path.
func (s *Sink) Path() string {
	return s.path
}

// Count returns the number of examples written so far.
func (s *Sink) Count() int {
	return s.count
}

// Closed reports whether Close has been called.
func (s *Sink) Closed() bool {
	return s.file == nil
}

// Write appends one dense example. Every position is written as
// "index:value" with 1-based indices, zeros included, so the line keeps a
// one to one correspondence with vector.
func (s *Sink) Write(vector []float64, positive bool) error {
	if s.file == nil {
		return svmerr.New(svmerr.InvalidState, "write example", errSinkClosed)
	}
	s.buf = appendLabel(s.buf[:0], positive)
	for i, v := range vector {
		s.buf = append(s.buf, ' ')
		s.buf = model.AppendFeature(s.buf, model.Feature{Index: i + 1, Weight: v})
	}
	return s.writeLine()
}

// WriteExample appends one sparse example as is.
func (s *Sink) WriteExample(e Example) error {
	if s.file == nil {
		return svmerr.New(svmerr.InvalidState, "write example", errSinkClosed)
	}
	s.buf = e.AppendText(s.buf[:0])
	return s.writeLine()
}

func (s *Sink) writeLine() error {
	s.buf = append(s.buf, '\n')
	if _, err := s.w.Write(s.buf); err != nil {
		return svmerr.New(svmerr.IO, "write example", err)
	}
	s.count++
	return nil
}

// Close flushes buffered examples and releases the file. Closing an
// already closed sink does nothing.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.file, s.w = nil, nil
	if err != nil {
		return svmerr.New(svmerr.IO, "close example sink", err)
	}
	return nil
}
