package lut

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaPeaksAtKnot(t *testing.T) {
	for _, m := range []int{3, 10, 32} {
		c, err := Delta(DefaultKnots, m)
		require.NoError(t, err)
		u := DefaultKnots[m-1]
		r, g, b := c.Apply(u, u, u)
		assert.InDelta(t, 1.0, r, 1e-12, "delta %d", m)
		assert.InDelta(t, 1.0, g, 1e-12, "delta %d", m)
		assert.InDelta(t, 1.0, b, 1e-12, "delta %d", m)

		if m < 32 {
			far := DefaultKnots[m+1]
			r, _, _ = c.Apply(far, far, far)
			assert.InDelta(t, 0.0, r, 1e-12)
		}
	}
}

func TestApplyInterpolatesPerChannel(t *testing.T) {
	knots := []float64{0, 1, 2, 4}
	c, err := Channels(knots, [][3]float64{{0, 0, 0}, {0, 1, 2}, {1, 1, 2}, {2, 3, 2}})
	require.NoError(t, err)

	// clamped below knots[2]
	r, g, b := c.Apply(0.5, 0, 10)
	assert.InDelta(t, 1.0, r, 1e-12)
	assert.InDelta(t, 1.0, g, 1e-12)
	assert.InDelta(t, 2.0, b, 1e-12)

	r, g, _ = c.Apply(3, 3, 3)
	assert.InDelta(t, 1.5, r, 1e-12)
	assert.InDelta(t, 2.0, g, 1e-12)
}

func TestCubeFileRoundTrip(t *testing.T) {
	c, err := Delta(DefaultKnots, 7)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "TITLE \"delta_07\"\nLUT_3D_SIZE 32\n"))

	back, err := Read(&buf, DefaultKnots)
	require.NoError(t, err)
	assert.Equal(t, "delta_07", back.Title)
	assert.Equal(t, c.Data, back.Data)
}

func TestReadRejectsWrongSize(t *testing.T) {
	_, err := Read(strings.NewReader("LUT_3D_SIZE 2\n0 0 0\n"), DefaultKnots)
	assert.Error(t, err)
	_, err = Read(strings.NewReader("0 0\n"), []float64{0})
	assert.Error(t, err)
}

func TestLibrarySelect(t *testing.T) {
	lib, err := DeltaLibrary(DefaultKnots)
	require.NoError(t, err)
	assert.Len(t, lib.Deltas(), 32)

	c, err := lib.Select(5)
	require.NoError(t, err)
	assert.Equal(t, "delta_05", c.Title)

	_, err = lib.Select(33)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAsset))
	assert.Contains(t, err.Error(), "delta 33")
}

func TestLoadDirSkipsMissing(t *testing.T) {
	knots := []float64{0, 1e-9, 0.5, 1}
	dir := t.TempDir()
	src := NewLibrary()
	for _, m := range []int{1, 3} {
		c, err := Delta(knots, m)
		require.NoError(t, err)
		src.Add(m, c)
	}
	require.NoError(t, src.SaveDir(dir))
	_, err := os.Stat(filepath.Join(dir, "delta_03.cube"))
	require.NoError(t, err)

	lib, err := LoadDir(dir, knots, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, lib.Deltas())
	_, err = lib.Select(2)
	assert.True(t, errors.Is(err, ErrMissingAsset))
}
