package datasets

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/svmdetector/svmerr"
)

func TestSinkLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examples.dat")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Write([]float64{1.0, 0.0}, true))
	require.NoError(t, s.Write([]float64{0.9, 0.1}, true))
	require.NoError(t, s.Write([]float64{0.0, 1.0}, false))
	require.NoError(t, s.Write([]float64{-2.5e-7, 1234.5}, false))
	assert.Equal(t, 4, s.Count())
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "+1 1:1 2:0\n"+
		"+1 1:0.9 2:0.1\n"+
		"-1 1:0 2:1\n"+
		"-1 1:-2.5e-07 2:1234.5\n", string(data))
}

// independent reading of the example file syntax, split on single spaces
func parseLine(t *testing.T, line string) (bool, []float64) {
	fields := strings.Split(line, " ")
	require.NotEmpty(t, fields)
	require.Contains(t, []string{"+1", "-1"}, fields[0])
	values := make([]float64, 0, len(fields)-1)
	for i, field := range fields[1:] {
		pair := strings.Split(field, ":")
		require.Len(t, pair, 2)
		idx, err := strconv.Atoi(pair[0])
		require.NoError(t, err)
		require.Equal(t, i+1, idx)
		require.NotContains(t, pair[1], ",")
		v, err := strconv.ParseFloat(pair[1], 64)
		require.NoError(t, err)
		values = append(values, v)
	}
	return fields[0] == "+1", values
}

func TestSinkRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, dim := range []int{0, 1, 2, 17, 3780} {
		t.Run(strconv.Itoa(dim), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "examples.dat")
			s, err := Open(path)
			require.NoError(t, err)

			type labeled struct {
				positive bool
				vector   []float64
			}
			var written []labeled
			for n := 0; n < 25; n++ {
				v := make([]float64, dim)
				for i := range v {
					switch rng.Intn(4) {
					case 0:
					case 1:
						v[i] = rng.NormFloat64() * 1e-9
					default:
						v[i] = rng.NormFloat64()
					}
				}
				positive := rng.Intn(2) == 0
				require.NoError(t, s.Write(v, positive))
				written = append(written, labeled{positive, v})
			}
			require.NoError(t, s.Close())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			require.Len(t, lines, len(written))
			for n, line := range lines {
				positive, values := parseLine(t, line)
				assert.Equal(t, written[n].positive, positive)
				assert.InDeltaSlice(t, written[n].vector, values, 1e-12)
			}

			d, err := ReadFile(path)
			require.NoError(t, err)
			require.Len(t, d, len(written))
			for n, e := range d {
				assert.Equal(t, written[n].positive, e.Positive)
				require.Len(t, e.Features, dim)
				for i, f := range e.Features {
					assert.Equal(t, i+1, f.Index)
					assert.Equal(t, written[n].vector[i], f.Weight)
				}
			}
		})
	}
}

func TestSinkWriteAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "examples.dat"))
	require.NoError(t, err)
	require.NoError(t, s.Write([]float64{1}, true))
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())

	err = s.Write([]float64{1}, true)
	assert.True(t, errors.Is(err, svmerr.ErrInvalidState), "%v", err)
	err = s.WriteExample(Example{Positive: true})
	assert.True(t, errors.Is(err, svmerr.ErrInvalidState), "%v", err)
	assert.Equal(t, 1, s.Count())

	assert.NoError(t, s.Close())
}

func TestSinkOpenFailure(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "examples.dat"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, svmerr.ErrIO))
}

func TestSinkTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examples.dat")
	require.NoError(t, os.WriteFile(path, []byte("stale content\n"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Write([]float64{0.5}, false))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "-1 1:0.5\n", string(data))
}
