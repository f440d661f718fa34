package bloom

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionedNoFalseNegatives(t *testing.T) {
	p, err := NewPartitioned(8, 10000, 0.01)
	require.NoError(t, err)
	require.Equal(t, 8, p.Partitions())

	for i := uint64(0); i < 10000; i++ {
		p.Add(keyBytes(i))
	}
	for i := uint64(0); i < 10000; i++ {
		require.True(t, p.Query(keyBytes(i)), "false negative for %d", i)
	}
	require.Equal(t, uint64(10000), p.ItemsAdded())
}

func TestPartitionedStableSelection(t *testing.T) {
	// The same key always lands in the same partition.
	for i := uint64(0); i < 100; i++ {
		a := partitionIndex(keyBytes(i), 16)
		b := partitionIndex(keyBytes(i), 16)
		require.Equal(t, a, b)
		require.Less(t, a, uint64(16))
	}
}

func TestPartitionedConcurrentAdds(t *testing.T) {
	p, err := NewPartitioned(8, 100000, 0.01)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := uint64(w * 5000); i < uint64(w*5000+5000); i++ {
				p.Add(keyBytes(i))
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, uint64(40000), p.ItemsAdded())
	for i := uint64(0); i < 40000; i++ {
		require.True(t, p.Query(keyBytes(i)))
	}
}

func TestPartitionedValidation(t *testing.T) {
	_, err := NewPartitioned(0, 100, 0.01)
	require.ErrorIs(t, err, ErrBadPartitions)
}
