package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountingAddRemoveQuery(t *testing.T) {
	c, err := NewCounting(1024, 4, 4)
	require.NoError(t, err)

	x := []byte("element")
	require.False(t, c.Query(x))

	c.Add(x)
	require.True(t, c.Query(x))
	require.GreaterOrEqual(t, c.MinCount(x), uint8(1))

	require.True(t, c.Remove(x))
	require.False(t, c.Query(x), "add then remove leaves the element absent")
	require.Zero(t, c.MinCount(x))
}

func TestCountingRemoveAbsent(t *testing.T) {
	c, err := NewCounting(1024, 4, 4)
	require.NoError(t, err)
	require.False(t, c.Remove([]byte("never added")))
}

func TestCountingSaturationSticks(t *testing.T) {
	// 1-bit counters saturate on the first add.
	c, err := NewCounting(256, 3, 1)
	require.NoError(t, err)
	require.Equal(t, uint8(1), c.MaxCount())

	x := []byte("stuck")
	c.Add(x)
	require.True(t, c.Query(x))

	// The minimum counter is saturated, so the element cannot be removed.
	require.False(t, c.Remove(x))
	require.True(t, c.Query(x))
}

func TestCountingSaturatingAdd(t *testing.T) {
	c, err := NewCounting(64, 2, 2)
	require.NoError(t, err)
	x := []byte("x")
	for range 10 {
		c.Add(x)
	}
	// Counter width 2 bits: max count 3, no wraparound.
	require.Equal(t, uint8(3), c.MinCount(x))
}

func TestCountingCounterPacking(t *testing.T) {
	// 3-bit counters straddle byte boundaries; exercise raw get/set.
	c, err := NewCounting(16, 1, 3)
	require.NoError(t, err)
	for j := uint64(0); j < 16; j++ {
		c.setCounter(j, uint8(j%8))
	}
	for j := uint64(0); j < 16; j++ {
		require.Equal(t, uint8(j%8), c.counter(j), "counter %d", j)
	}
}

func TestCountingValidation(t *testing.T) {
	_, err := NewCounting(0, 1, 4)
	require.ErrorIs(t, err, ErrBadM)
	_, err = NewCounting(10, 0, 4)
	require.ErrorIs(t, err, ErrBadK)
	_, err = NewCounting(10, 1, 0)
	require.ErrorIs(t, err, ErrBadCounter)
	_, err = NewCounting(10, 1, 9)
	require.ErrorIs(t, err, ErrBadCounter)
}

func TestCountingClear(t *testing.T) {
	c, err := NewCounting(128, 3, 4)
	require.NoError(t, err)
	c.Add([]byte("a"))
	c.Add([]byte("b"))
	require.Equal(t, uint64(2), c.ItemsAdded())
	c.Clear()
	require.Zero(t, c.ItemsAdded())
	require.False(t, c.Query([]byte("a")))
}
