package work

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyquarry/go-keyquarry/uint256"
)

func newTestLedger(t *testing.T, width, units uint64) *Ledger {
	t.Helper()
	r := uint256.NewRange(uint256.New(0), uint256.New(width*units-1))
	l, err := NewLedger(r, width)
	require.NoError(t, err)
	require.Equal(t, units, l.TotalUnits())
	return l
}

func TestLedgerGeneratesContiguousUnits(t *testing.T) {
	l := newTestLedger(t, 100, 5)

	var prevEnd uint256.Uint256
	for i := uint64(0); i < 5; i++ {
		u, ok := l.Next("w1")
		require.True(t, ok)
		require.Equal(t, i, u.ID)
		require.Equal(t, uint64(100), u.Range.Width64())
		if i > 0 {
			require.Equal(t, prevEnd.AddUint64(1), u.Range.Start)
		}
		prevEnd = u.Range.End
	}
	_, ok := l.Next("w1")
	require.False(t, ok, "range exhausted")
}

func TestLedgerClampsFinalUnit(t *testing.T) {
	r := uint256.NewRange(uint256.New(0), uint256.New(249))
	l, err := NewLedger(r, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(3), l.TotalUnits())

	var widths []uint64
	for {
		u, ok := l.Next("w")
		if !ok {
			break
		}
		widths = append(widths, u.Range.Width64())
	}
	require.Equal(t, []uint64{100, 100, 50}, widths)
}

func TestLedgerCompleteAndLateReport(t *testing.T) {
	l := newTestLedger(t, 10, 3)

	u, ok := l.Next("a")
	require.True(t, ok)

	done, ok := l.Complete(u.ID)
	require.True(t, ok)
	require.False(t, done.CompletedAt.IsZero())

	// A second completion for the same id is a late report: dropped.
	_, ok = l.Complete(u.ID)
	require.False(t, ok)

	// Completing a never-assigned id is dropped too.
	_, ok = l.Complete(999)
	require.False(t, ok)
}

func TestLedgerTimeoutRequeuesToFront(t *testing.T) {
	l := newTestLedger(t, 10, 4)

	u0, _ := l.Next("a")
	time.Sleep(20 * time.Millisecond)

	expired := l.RequeueTimedOut(10 * time.Millisecond)
	require.Len(t, expired, 1)
	require.Equal(t, u0.ID, expired[0].ID)
	require.Equal(t, "a", expired[0].Assignee)

	// The re-queued unit is handed out before fresh generation, with its
	// assignment state cleared then re-stamped for the new worker.
	u, ok := l.Next("b")
	require.True(t, ok)
	require.Equal(t, u0.ID, u.ID)
	require.Equal(t, "b", u.Assignee)
}

func TestLedgerTimeoutSparesFresh(t *testing.T) {
	l := newTestLedger(t, 10, 4)
	l.Next("a")
	expired := l.RequeueTimedOut(time.Hour)
	require.Empty(t, expired)
	_, inProgress, _ := l.Counts()
	require.Equal(t, uint64(1), inProgress)
}

func TestLedgerProgress(t *testing.T) {
	l := newTestLedger(t, 10, 4)
	require.Zero(t, l.Progress())

	u, _ := l.Next("a")
	l.Complete(u.ID)
	require.InDelta(t, 0.25, l.Progress(), 1e-9)
	require.False(t, l.Exhausted())

	for {
		u, ok := l.Next("a")
		if !ok {
			break
		}
		l.Complete(u.ID)
	}
	require.InDelta(t, 1.0, l.Progress(), 1e-9)
	require.True(t, l.Exhausted())
}

func TestLedgerSnapshotRestore(t *testing.T) {
	l := newTestLedger(t, 10, 6)

	// Complete 0 and 1 and leave 2 in flight; nothing is pending and 3 is
	// not generated yet.
	u0, _ := l.Next("a")
	l.Complete(u0.ID)
	u1, _ := l.Next("a")
	l.Complete(u1.ID)
	u2, _ := l.Next("a")
	require.Equal(t, uint64(2), u2.ID)

	pending, inProgress, completed, nextID := l.SnapshotState()
	require.Empty(t, pending)
	require.Len(t, inProgress, 1)
	require.ElementsMatch(t, []uint64{0, 1}, completed)
	require.Equal(t, uint64(3), nextID)

	// Restore into a fresh ledger: in-flight folds into pending.
	fresh := newTestLedger(t, 10, 6)
	resume := append(pending, inProgress...)
	fresh.Restore(resume, completed, nextID)

	var got []uint64
	for {
		u, ok := fresh.Next("b")
		if !ok {
			break
		}
		got = append(got, u.ID)
	}
	// Unit 2 first (restored), then fresh generation 3..5; 0 and 1 are
	// excluded by the completed set.
	require.Equal(t, []uint64{2, 3, 4, 5}, got)
}

func TestLedgerValidation(t *testing.T) {
	r := uint256.NewRange(uint256.New(0), uint256.New(9))
	_, err := NewLedger(r, 0)
	require.ErrorIs(t, err, ErrBadUnitWidth)

	empty := uint256.NewRange(uint256.New(1), uint256.New(0))
	_, err = NewLedger(empty, 10)
	require.ErrorIs(t, err, ErrEmptyRange)
}
