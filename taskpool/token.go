package taskpool

import "sync/atomic"

// Token is a cooperative cancellation flag shared between a submitter and
// its tasks. The zero value is ready to use.
type Token struct {
	canceled atomic.Bool
}

// Cancel requests cancellation. Idempotent.
func (t *Token) Cancel() { t.canceled.Store(true) }

// Canceled reports whether cancellation was requested.
func (t *Token) Canceled() bool { return t.canceled.Load() }

// Reset rearms the token for reuse between runs.
func (t *Token) Reset() { t.canceled.Store(false) }
