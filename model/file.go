package model

import "bufio"
import "compress/lzw"
import "io"
import "os"
import "path/filepath"
import "strconv"
import "strings"

import "github.com/pkg/errors"

import "github.com/neurlang/svmdetector/svmerr"

// Version is written on the first line of every model file.
const Version = "SVM-light Version V6.02"

const versionPrefix = "SVM-light Version"

const idPrefix = "# id "

const maxPreallocated = 1 << 16

// CompressedSuffix selects LZW compression in WriteFile and ReadFile.
const CompressedSuffix = ".lzw"

// Write writes the model in SVMLight's text model syntax.
func Write(w io.Writer, m *Model) error {
	if err := checkCustom(m.Kernel.Custom); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	var buf []byte

	line := func(value string, comment string) {
		buf = append(buf[:0], value...)
		buf = append(buf, " # "...)
		buf = append(buf, comment...)
		buf = append(buf, '\n')
		bw.Write(buf)
	}
	float := func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	bw.WriteString(Version + "\n")
	if m.ID != "" {
		bw.WriteString(idPrefix + m.ID + "\n")
	}
	line(strconv.Itoa(int(m.Kernel.Type)), "kernel type")
	line(strconv.Itoa(m.Kernel.PolyDegree), "kernel parameter -d")
	line(float(m.Kernel.RBFGamma), "kernel parameter -g")
	line(float(m.Kernel.CoefLin), "kernel parameter -s")
	line(float(m.Kernel.CoefConst), "kernel parameter -r")
	bw.WriteString(m.Kernel.Custom + "# kernel parameter -u\n")
	line(strconv.Itoa(m.TotalWords), "highest feature index")
	line(strconv.Itoa(m.TotalDocs), "number of training documents")
	line(strconv.Itoa(m.SupportVectors.Count()+1), "number of support vectors plus 1")
	line(float(m.Bias), "threshold b, each following line is a SV (starting with alpha*y)")

	for _, sv := range m.SupportVectors.Active() {
		buf = strconv.AppendFloat(buf[:0], sv.Alpha, 'g', -1, 64)
		for _, f := range sv.Features {
			buf = append(buf, ' ')
			buf = AppendFeature(buf, f)
		}
		buf = append(buf, " #\n"...)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the model to name. The file appears only once it is
// complete: the model is written to a temporary file in the same directory
// and renamed into place. Names ending in CompressedSuffix are LZW compressed.
func WriteFile(name string, m *Model) (err error) {
	const op = "write model file"
	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".tmp*")
	if err != nil {
		return svmerr.New(svmerr.IO, op, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if strings.HasSuffix(name, CompressedSuffix) {
		lw := lzw.NewWriter(tmp, lzw.LSB, 8)
		if err = Write(lw, m); err != nil {
			return svmerr.New(svmerr.IO, op, err)
		}
		if err = lw.Close(); err != nil {
			return svmerr.New(svmerr.IO, op, err)
		}
	} else if err = Write(tmp, m); err != nil {
		return svmerr.New(svmerr.IO, op, err)
	}

	if err = tmp.Close(); err != nil {
		return svmerr.New(svmerr.IO, op, err)
	}
	if err = os.Rename(tmp.Name(), name); err != nil {
		return svmerr.New(svmerr.IO, op, err)
	}
	return nil
}

// ReadFile reads a model written by WriteFile. An absent or unreadable
// file is a model load error, like a malformed one.
func ReadFile(name string) (*Model, error) {
	const op = "read model file"
	file, err := os.Open(name)
	if err != nil {
		return nil, svmerr.New(svmerr.ModelLoad, op, err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(name, CompressedSuffix) {
		lr := lzw.NewReader(file, lzw.LSB, 8)
		defer lr.Close()
		r = lr
	}
	m, err := Read(r)
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}
	return m, nil
}

type modelReader struct {
	r    *bufio.Reader
	line int
}

func (mr *modelReader) next() (string, error) {
	s, err := mr.r.ReadString('\n')
	if err == io.EOF && s != "" {
		err = nil
	}
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	mr.line++
	return strings.TrimRight(s, "\r\n"), nil
}

// header returns the value part of a "value # comment" header line.
func (mr *modelReader) header() (string, error) {
	s, err := mr.next()
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s), nil
}

func (mr *modelReader) int() (int, error) {
	s, err := mr.header()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	return v, errors.Wrapf(err, "line %d", mr.line)
}

func (mr *modelReader) float() (float64, error) {
	s, err := mr.header()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, errors.Wrapf(err, "line %d", mr.line)
}

// Read parses a model in SVMLight's text model syntax.
func Read(r io.Reader) (*Model, error) {
	m, err := read(r)
	if err != nil {
		return nil, svmerr.New(svmerr.ModelLoad, "read model", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func read(r io.Reader) (*Model, error) {
	mr := &modelReader{r: bufio.NewReader(r)}
	m := new(Model)

	version, err := mr.next()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(version, versionPrefix) {
		return nil, errors.Errorf("not a model file: %q", version)
	}

	peek, err := mr.r.Peek(len(idPrefix))
	if err == nil && string(peek) == idPrefix {
		s, err := mr.next()
		if err != nil {
			return nil, err
		}
		m.ID = strings.TrimSpace(strings.TrimPrefix(s, idPrefix))
	}

	var kernelType int
	if kernelType, err = mr.int(); err != nil {
		return nil, errors.WithMessage(err, "kernel type")
	}
	m.Kernel.Type = KernelType(kernelType)
	if m.Kernel.PolyDegree, err = mr.int(); err != nil {
		return nil, errors.WithMessage(err, "kernel parameter -d")
	}
	if m.Kernel.RBFGamma, err = mr.float(); err != nil {
		return nil, errors.WithMessage(err, "kernel parameter -g")
	}
	if m.Kernel.CoefLin, err = mr.float(); err != nil {
		return nil, errors.WithMessage(err, "kernel parameter -s")
	}
	if m.Kernel.CoefConst, err = mr.float(); err != nil {
		return nil, errors.WithMessage(err, "kernel parameter -r")
	}
	if m.Kernel.Custom, err = mr.header(); err != nil {
		return nil, errors.WithMessage(err, "kernel parameter -u")
	}
	if m.TotalWords, err = mr.int(); err != nil {
		return nil, errors.WithMessage(err, "highest feature index")
	}
	if m.TotalDocs, err = mr.int(); err != nil {
		return nil, errors.WithMessage(err, "number of training documents")
	}
	svNum, err := mr.int()
	if err != nil {
		return nil, errors.WithMessage(err, "number of support vectors")
	}
	if svNum < 1 {
		return nil, errors.Errorf("line %d: support vector count %d must include the reserved slot", mr.line, svNum)
	}
	if m.Bias, err = mr.float(); err != nil {
		return nil, errors.WithMessage(err, "threshold b")
	}

	// the count is only a hint until the lines are actually there
	hint := svNum - 1
	if hint > maxPreallocated {
		hint = maxPreallocated
	}
	b := NewBuilder(hint, 0)
	var features []Feature
	for i := 1; i < svNum; i++ {
		s, err := mr.next()
		if err != nil {
			return nil, errors.Wrapf(err, "support vector %d of %d", i, svNum-1)
		}
		if c := strings.IndexByte(s, '#'); c >= 0 {
			s = s[:c]
		}
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return nil, errors.Errorf("line %d: empty support vector", mr.line)
		}
		alpha, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: alpha", mr.line)
		}
		features, err = ParseFeatures(features[:0], fields[1:])
		if err != nil {
			return nil, errors.WithMessagef(err, "line %d", mr.line)
		}
		b.Add(features, alpha)
	}
	m.SupportVectors = b.Build()
	return m, nil
}
