package datasets

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/neurlang/svmdetector/model"
	"github.com/neurlang/svmdetector/svmerr"
)

// MaxLineSize bounds a single example line. Dense descriptors of a few
// thousand dimensions take well under a megabyte.
const MaxLineSize = 64 << 20

// Errors returned by Scanner.
var (
	ErrMalformedLabel    = errors.New("datasets.Scanner: malformed label")
	ErrUnlabeledExample  = errors.New("datasets.Scanner: unlabeled example")
	ErrMalformedFeatures = errors.New("datasets.Scanner: malformed features")
)

// Scanner reads examples from an example file, one per line:
//
//	<label> <idx1>:<val1> <idx2>:<val2> ...
//
// Blank lines and lines starting with '#' are skipped, and anything after a
// '#' on an example line is treated as a comment.
type Scanner struct {
	bufScanner *bufio.Scanner
	err        error
	lineNumber int
	example    Example
}

func NewScanner(r io.Reader) *Scanner {
	s := &Scanner{
		bufScanner: bufio.NewScanner(r),
	}
	s.bufScanner.Buffer(nil, MaxLineSize)
	return s
}

// Err returns the first non-EOF error that was encountered by the Scanner.
func (s *Scanner) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.bufScanner.Err()
}

func (s *Scanner) LineNumber() int {
	return s.lineNumber
}

// Example returns the most recently scanned example. Its feature slice is
// reused by the next call to Scan.
func (s *Scanner) Example() Example {
	return s.example
}

func (s *Scanner) Scan() bool {
	if s.Err() != nil {
		return false
	}

	for s.bufScanner.Scan() {
		s.lineNumber++
		text := s.bufScanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := s.parse(fields); err != nil {
			s.err = errors.WithMessagef(err, "line %d", s.lineNumber)
			return false
		}
		return true
	}
	return false
}

func (s *Scanner) parse(fields []string) error {
	label, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(label) {
		return ErrMalformedLabel
	}
	if label == 0 {
		return ErrUnlabeledExample
	}
	s.example.Positive = label > 0

	s.example.Features, err = model.ParseFeatures(s.example.Features[:0], fields[1:])
	if err != nil {
		return errors.Wrap(ErrMalformedFeatures, err.Error())
	}
	return nil
}

// Read parses a whole example set.
func Read(r io.Reader) (Dataset, error) {
	var d Dataset
	s := NewScanner(r)
	for s.Scan() {
		e := s.Example()
		d = append(d, Example{
			Positive: e.Positive,
			Features: append([]model.Feature(nil), e.Features...),
		})
	}
	return d, s.Err()
}

// ReadFile parses the example file at path. Failing to open or read the
// file is an IO error; malformed content is returned unclassified.
func ReadFile(path string) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, svmerr.New(svmerr.IO, "open example file", err)
	}
	defer file.Close()

	d, err := Read(file)
	if err != nil {
		var perr *os.PathError
		if errors.As(err, &perr) {
			return nil, svmerr.New(svmerr.IO, "read example file", err)
		}
		return nil, errors.WithMessage(err, path)
	}
	return d, nil
}
