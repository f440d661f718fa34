package bloom

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterPersistRoundTrip(t *testing.T) {
	f, err := New(5000, 0.01)
	require.NoError(t, err)
	for i := uint64(0); i < 5000; i++ {
		f.Add(keyBytes(i))
	}

	path := filepath.Join(t.TempDir(), "targets.blm")
	require.NoError(t, f.Save(path))

	g, err := Load(path)
	require.NoError(t, err)

	// Geometry survives exactly, so probe positions line up.
	require.Equal(t, f.M(), g.M())
	require.Equal(t, f.K(), g.K())
	require.Equal(t, uint64(5000), g.ItemsAdded())

	for i := uint64(0); i < 5000; i++ {
		require.True(t, g.Query(keyBytes(i)), "false negative after reload for %d", i)
	}
	// Identical query results, positive or not, across the reload.
	for i := uint64(5000); i < 6000; i++ {
		require.Equal(t, f.Query(keyBytes(i)), g.Query(keyBytes(i)), "divergent query for %d", i)
	}
}

func TestCountingPersistRoundTrip(t *testing.T) {
	c, err := NewCounting(4096, 5, 4)
	require.NoError(t, err)
	for i := uint64(0); i < 100; i++ {
		c.Add(keyBytes(i))
	}

	path := filepath.Join(t.TempDir(), "counting.blm")
	require.NoError(t, c.Save(path))

	g, err := LoadCounting(path)
	require.NoError(t, err)
	require.Equal(t, c.M(), g.M())
	require.Equal(t, c.K(), g.K())
	require.Equal(t, c.CounterBits(), g.CounterBits())

	for i := uint64(0); i < 100; i++ {
		require.True(t, g.Query(keyBytes(i)))
	}
	// Removal still works on the reloaded filter.
	require.True(t, g.Remove(keyBytes(0)))
}

func TestLoadRejectsBadMagic(t *testing.T) {
	f, err := New(100, 0.01)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	data := buf.Bytes()
	data[0] = 'X'
	_, err = Read(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestLoadRejectsBadVariant(t *testing.T) {
	f, err := New(100, 0.01)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	data := buf.Bytes()
	data[4] = 99
	_, err = Read(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrBadVariant)
}

func TestLoadRejectsTruncated(t *testing.T) {
	f, err := New(100, 0.01)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	data := buf.Bytes()
	_, err = Read(bytes.NewReader(data[:len(data)-5]))
	require.ErrorIs(t, err, ErrTruncated)

	_, err = Read(bytes.NewReader(data[:10]))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestLoadRejectsWrongVariant(t *testing.T) {
	c, err := NewCounting(128, 3, 4)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = c.WriteTo(&buf)
	require.NoError(t, err)

	_, err = Read(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrWrongVariant)
}

func TestCascadePersistRoundTrip(t *testing.T) {
	c, err := NewCascade(3, 1000, 0.05, DefaultCascadeRatio)
	require.NoError(t, err)
	for i := uint64(0); i < 1000; i++ {
		c.Add(keyBytes(i))
	}

	base := filepath.Join(t.TempDir(), "cascade.blm")
	require.NoError(t, c.SaveCascade(base))

	// One file per level, named <base>.<i>.
	for i := range 3 {
		_, err := os.Stat(cascadeLevelPath(base, i))
		require.NoError(t, err)
	}

	g, err := LoadCascade(base)
	require.NoError(t, err)
	require.Equal(t, 3, g.Levels())
	for i := uint64(0); i < 1000; i++ {
		require.True(t, g.Query(keyBytes(i)))
	}
}

func TestLoadCascadeMissing(t *testing.T) {
	_, err := LoadCascade(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, ErrBadLevels)
}
