package secmem

import "sync/atomic"

// zeroFence orders zeroization stores before later loads; see Zeroize.
var zeroFence atomic.Uint32

// SecureBuffer holds key material. The pages are locked against swap where
// the platform supports it, and the contents are zeroized before release.
// SecureBuffer is exclusively owned and must not be copied.
type SecureBuffer struct {
	buf    *AlignedBuffer
	locked bool
	// lockErr records a failed lock attempt. Not fatal; the caller decides
	// whether to log it.
	lockErr error
	closed  bool
}

// NewSecure allocates n zeroed bytes of aligned, optionally page-locked
// memory.
func NewSecure(n int, lock bool) (*SecureBuffer, error) {
	ab, err := NewAligned(n, DefaultAlignment)
	if err != nil {
		return nil, err
	}
	s := &SecureBuffer{buf: ab}
	if lock && n > 0 {
		if err := lockPages(ab.Bytes()); err != nil {
			s.lockErr = err
		} else {
			s.locked = true
		}
	}
	return s, nil
}

// Bytes returns the buffer contents. Invalid after Close.
func (s *SecureBuffer) Bytes() []byte {
	if s.closed {
		return nil
	}
	return s.buf.Bytes()
}

// Len returns the buffer size in bytes.
func (s *SecureBuffer) Len() int { return s.buf.Len() }

// Locked reports whether the pages are locked against swap.
func (s *SecureBuffer) Locked() bool { return s.locked }

// LockErr returns the recorded lock failure, if any.
func (s *SecureBuffer) LockErr() error { return s.lockErr }

// Zeroize overwrites the contents with zeros. The stores are followed by a
// sequentially consistent atomic so they cannot be elided.
func (s *SecureBuffer) Zeroize() {
	b := s.Bytes()
	for i := range b {
		b[i] = 0
	}
	zeroFence.Add(1)
}

// Close zeroizes, unlocks and releases the buffer. Safe to call twice.
func (s *SecureBuffer) Close() error {
	if s.closed {
		return nil
	}
	s.Zeroize()
	if s.locked {
		_ = unlockPages(s.buf.Bytes())
		s.locked = false
	}
	s.buf.Free()
	s.closed = true
	return nil
}

// LockSupported reports whether page locking is available on this platform.
func LockSupported() bool { return lockSupported }
