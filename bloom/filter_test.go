package bloom

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func keyBytes(i uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, i)
	return b
}

func TestSizeFor(t *testing.T) {
	m, k, err := SizeFor(10000, 0.01)
	require.NoError(t, err)
	// m = ceil(-n ln p / (ln2)^2) = 95851, k = ceil((m/n) ln2) = 7
	require.Equal(t, uint64(95851), m)
	require.Equal(t, uint32(7), k)

	_, _, err = SizeFor(0, 0.01)
	require.ErrorIs(t, err, ErrBadParams)
	_, _, err = SizeFor(100, 0)
	require.ErrorIs(t, err, ErrBadParams)
	_, _, err = SizeFor(100, 1)
	require.ErrorIs(t, err, ErrBadParams)
}

func TestFilterNoFalseNegatives(t *testing.T) {
	f, err := New(1000, 0.01)
	require.NoError(t, err)

	for i := uint64(0); i < 1000; i++ {
		f.Add(keyBytes(i))
	}
	for i := uint64(0); i < 1000; i++ {
		require.True(t, f.Query(keyBytes(i)), "false negative for %d", i)
	}
}

func TestFilterObservedFPRate(t *testing.T) {
	const (
		n       = 10000
		nonMem  = 100000
		targetP = 0.01
	)
	f, err := New(n, targetP)
	require.NoError(t, err)
	for i := uint64(0); i < n; i++ {
		f.Add(keyBytes(i))
	}
	for i := uint64(0); i < n; i++ {
		require.True(t, f.Query(keyBytes(i)), "false negative for %d", i)
	}

	var fps int
	for i := uint64(n); i < n+nonMem; i++ {
		if f.Query(keyBytes(i)) {
			fps++
		}
	}
	observed := float64(fps) / float64(nonMem)
	require.LessOrEqual(t, observed, 3*targetP, "observed fp rate %f", observed)

	st := f.Stats()
	require.Equal(t, uint64(n), st.ItemsAdded)
	require.Equal(t, uint64(n+nonMem), st.Queries)
	// Every member query was positive, plus the observed false positives.
	require.Equal(t, uint64(n)+uint64(fps), st.Positives)
}

func TestFilterClear(t *testing.T) {
	f, err := New(100, 0.01)
	require.NoError(t, err)
	f.Add([]byte("abc"))
	require.True(t, f.Query([]byte("abc")))
	f.Clear()
	require.False(t, f.Query([]byte("abc")))
	require.Zero(t, f.ItemsAdded())
}

func TestFilterConcurrentAddQuery(t *testing.T) {
	f, err := New(100000, 0.01)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := uint64(w * 10000); i < uint64(w*10000+10000); i++ {
				f.Add(keyBytes(i))
				// Monotone invariant: once added, always present.
				require.True(t, f.Query(keyBytes(i)))
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, uint64(80000), f.ItemsAdded())
}

func TestNewBitsValidation(t *testing.T) {
	_, err := NewBits(0, 3)
	require.ErrorIs(t, err, ErrBadM)
	_, err = NewBits(100, 0)
	require.ErrorIs(t, err, ErrBadK)
}
