package work

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/keyquarry/go-keyquarry/uint256"
)

var (
	ErrBadUnitWidth = errors.New("work: unit width must be nonzero")
	ErrEmptyRange   = errors.New("work: range is empty")
)

// Unit is one assignable sub-range.
type Unit struct {
	ID    uint64
	Range uint256.Range

	// Assignment state. Discarded by checkpoints.
	Assignee    string
	AssignedAt  time.Time
	CompletedAt time.Time
}

// Ledger tracks pending, in-flight and completed units under one mutex.
// The in-progress map and pending queue are never locked separately.
type Ledger struct {
	mu sync.Mutex

	original  uint256.Range
	unitWidth uint64

	nextID     uint64
	pending    []Unit
	inProgress map[uint64]Unit
	completed  map[uint64]struct{}
	totalUnits uint64
}

// NewLedger creates a ledger over r with the given unit width.
func NewLedger(r uint256.Range, unitWidth uint64) (*Ledger, error) {
	if unitWidth == 0 {
		return nil, ErrBadUnitWidth
	}
	if r.IsEmpty() {
		return nil, ErrEmptyRange
	}
	return &Ledger{
		original:   r,
		unitWidth:  unitWidth,
		inProgress: make(map[uint64]Unit),
		completed:  make(map[uint64]struct{}),
		totalUnits: countUnits(r, unitWidth),
	}, nil
}

// countUnits returns ceil(width/unitWidth), saturating at the uint64 max.
func countUnits(r uint256.Range, unitWidth uint64) uint64 {
	w, carry := r.Width()
	q, rem := w.DivMod64(unitWidth)
	if carry || q.HighestBit() >= 64 {
		return ^uint64(0)
	}
	n := q.Limb(0)
	if rem != 0 {
		n++
	}
	return n
}

// Range returns the original search range.
func (l *Ledger) Range() uint256.Range { return l.original }

// UnitWidth returns the per-unit key count.
func (l *Ledger) UnitWidth() uint64 { return l.unitWidth }

// TotalUnits returns the number of units covering the range.
func (l *Ledger) TotalUnits() uint64 { return l.totalUnits }

// unitForID derives unit id's range. ok is false past the range end.
func (l *Ledger) unitForID(id uint64) (Unit, bool) {
	if id >= l.totalUnits {
		return Unit{}, false
	}
	start := l.original.Start.Add(uint256.New(l.unitWidth).Mul64(id))
	end := start.AddUint64(l.unitWidth - 1)
	if l.original.End.Less(end) || end.Less(start) {
		end = l.original.End
	}
	return Unit{ID: id, Range: uint256.NewRange(start, end)}, true
}

// Next hands out the next unit: re-queued units first, then a fresh unit,
// skipping ids completed in an earlier run. assignee is recorded on the
// unit. ok is false when the range is exhausted.
func (l *Ledger) Next(assignee string) (Unit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var u Unit
	for {
		if len(l.pending) > 0 {
			u = l.pending[0]
			l.pending = l.pending[1:]
			break
		}
		candidate, ok := l.unitForID(l.nextID)
		if !ok {
			return Unit{}, false
		}
		l.nextID++
		if _, done := l.completed[candidate.ID]; done {
			continue
		}
		u = candidate
		break
	}
	u.Assignee = assignee
	u.AssignedAt = time.Now()
	l.inProgress[u.ID] = u
	return u, true
}

// Complete marks a unit done. Unknown ids report false and change nothing:
// a late report after reassignment.
func (l *Ledger) Complete(id uint64) (Unit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.inProgress[id]
	if !ok {
		return Unit{}, false
	}
	delete(l.inProgress, id)
	u.CompletedAt = time.Now()
	l.completed[id] = struct{}{}
	return u, true
}

// RequeueTimedOut moves every in-flight unit older than timeout back to
// the FRONT of the pending queue and returns them, freshest last. LIFO
// reassignment keeps recently generated units hot.
func (l *Ledger) RequeueTimedOut(timeout time.Duration) []Unit {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []Unit
	for id, u := range l.inProgress {
		if now.Sub(u.AssignedAt) > timeout {
			expired = append(expired, u)
			delete(l.inProgress, id)
		}
	}
	// Oldest first, so the freshest unit is pushed last and ends up at the
	// front of pending.
	slices.SortFunc(expired, func(a, b Unit) int { return a.AssignedAt.Compare(b.AssignedAt) })
	for _, u := range expired {
		u.Assignee = ""
		u.AssignedAt = time.Time{}
		l.pending = append([]Unit{u}, l.pending...)
	}
	return expired
}

// Requeue surrenders one in-flight unit back to the front of the pending
// queue, e.g. after a failed or interrupted sweep. Unknown ids are
// ignored.
func (l *Ledger) Requeue(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.inProgress[id]
	if !ok {
		return
	}
	delete(l.inProgress, id)
	u.Assignee = ""
	u.AssignedAt = time.Time{}
	l.pending = append([]Unit{u}, l.pending...)
}

// RequeueAll folds every in-flight unit back into pending, for a pause or
// shutdown that should surrender assignments.
func (l *Ledger) RequeueAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, u := range l.inProgress {
		u.Assignee = ""
		u.AssignedAt = time.Time{}
		l.pending = append([]Unit{u}, l.pending...)
		delete(l.inProgress, id)
	}
}

// Counts returns (pending known, in progress, completed).
func (l *Ledger) Counts() (pending, inProgress, completed uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.pending)), uint64(len(l.inProgress)), uint64(len(l.completed))
}

// Progress returns completed / total, weighted by unit count. Units all
// share a width except the final clamped one, so the count weighting is
// the width weighting to within one unit.
func (l *Ledger) Progress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.totalUnits == 0 {
		return 0
	}
	return float64(len(l.completed)) / float64(l.totalUnits)
}

// Exhausted reports whether every unit is completed.
func (l *Ledger) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.completed)) >= l.totalUnits
}

// SnapshotState returns the serializable frontier: pending and in-flight
// units, completed ids, and the generation cursor. Callers pass these to
// the checkpoint layer.
func (l *Ledger) SnapshotState() (pending, inProgress []Unit, completed []uint64, nextID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending = append([]Unit{}, l.pending...)
	for _, u := range l.inProgress {
		inProgress = append(inProgress, u)
	}
	completed = make([]uint64, 0, len(l.completed))
	for id := range l.completed {
		completed = append(completed, id)
	}
	return pending, inProgress, completed, l.nextID
}

// Restore rebuilds the frontier from checkpoint state: pending and
// formerly in-flight units merge into the pending queue with assignments
// dropped, completed ids are excluded from regeneration.
func (l *Ledger) Restore(pending []Unit, completed []uint64, nextID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = l.pending[:0]
	for _, u := range pending {
		u.Assignee = ""
		u.AssignedAt = time.Time{}
		l.pending = append(l.pending, u)
	}
	l.completed = make(map[uint64]struct{}, len(completed))
	for _, id := range completed {
		l.completed[id] = struct{}{}
	}
	l.nextID = nextID
	clear(l.inProgress)
}
