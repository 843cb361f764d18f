package model

import "strconv"
import "strings"

import "github.com/pkg/errors"

// AppendFeature appends "index:weight" to buf. The weight uses the shortest
// representation that parses back to the same float64, always with '.' as
// the decimal separator.
func AppendFeature(buf []byte, f Feature) []byte {
	buf = strconv.AppendInt(buf, int64(f.Index), 10)
	buf = append(buf, ':')
	return strconv.AppendFloat(buf, f.Weight, 'g', -1, 64)
}

// ParseFeature parses a single "index:weight" token.
func ParseFeature(tok string) (Feature, error) {
	colon := strings.IndexByte(tok, ':')
	if colon <= 0 || colon == len(tok)-1 {
		return Feature{}, errors.Errorf("malformed feature %q", tok)
	}
	idx, err := strconv.Atoi(tok[:colon])
	if err != nil {
		return Feature{}, errors.Wrapf(err, "feature %q: index", tok)
	}
	w, err := strconv.ParseFloat(tok[colon+1:], 64)
	if err != nil {
		return Feature{}, errors.Wrapf(err, "feature %q: value", tok)
	}
	return Feature{Index: idx, Weight: w}, nil
}

// ParseFeatures parses whitespace separated "index:weight" tokens into dst.
// Indices must be positive and strictly ascending.
func ParseFeatures(dst []Feature, fields []string) ([]Feature, error) {
	last := 0
	for _, tok := range fields {
		f, err := ParseFeature(tok)
		if err != nil {
			return dst, err
		}
		if f.Index <= last {
			return dst, errors.Errorf("feature index %d after %d: indices must be positive and ascending", f.Index, last)
		}
		last = f.Index
		dst = append(dst, f)
	}
	return dst, nil
}
