package search

import (
	"sync"
	"time"

	"github.com/keyquarry/go-keyquarry/uint256"
)

// Result records a confirmed hit: a candidate whose derived hash matched a
// target exactly, after the filter positive was re-checked.
type Result struct {
	Found      bool
	PrivateKey uint256.PrivateKey
	TargetHash uint256.Hash160
	Address    string
	FoundAt    time.Time
}

// ResultCallback observes confirmed hits.
type ResultCallback func(Result)

// resultSink is the append-only, discovery-ordered result log. The
// callback fires outside the sink lock.
type resultSink struct {
	mu      sync.Mutex
	results []Result
	cb      ResultCallback
}

func (s *resultSink) setCallback(cb ResultCallback) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

// emit appends r and invokes the callback with no lock held.
func (s *resultSink) emit(r Result) {
	s.mu.Lock()
	r.FoundAt = time.Now()
	s.results = append(s.results, r)
	cb := s.cb
	s.mu.Unlock()
	if cb != nil {
		cb(r)
	}
}

// restore appends a result carried over from a checkpoint without firing
// the callback; it was already reported in the original run.
func (s *resultSink) restore(r Result) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

func (s *resultSink) all() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

func (s *resultSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
