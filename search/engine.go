package search

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/keyquarry/go-keyquarry/bloom"
	"github.com/keyquarry/go-keyquarry/errs"
	"github.com/keyquarry/go-keyquarry/secmem"
	"github.com/keyquarry/go-keyquarry/taskpool"
	"github.com/keyquarry/go-keyquarry/uint256"
)

// Engine is the capability set a search device implements. CPUEngine is the
// portable variant; accelerator engines implement the same set and are
// selected at construction.
type Engine interface {
	Initialize(targets *TargetSet, filter *bloom.Filter) error
	SetParams(p Params) error
	Start() error
	Stop()
	Pause()
	Resume()
	Running() bool
	Progress() Progress
	Results() []Result
	// SearchRange sweeps one work unit synchronously. The coordinator's
	// dispatchers call this; Start covers the standalone case by running
	// the configured range as a single unit.
	SearchRange(r uint256.Range) error
}

// CPUEngine sweeps candidates on the host CPU, scheduling derive batches
// on the shared task pool.
type CPUEngine struct {
	log     logger.Logger
	pool    *taskpool.Pool
	deriver KeyDeriver

	mu      sync.Mutex
	params  Params
	targets *TargetSet
	filter  *bloom.Filter
	current uint256.Uint256

	token   taskpool.Token
	running atomic.Bool
	paused  atomic.Bool

	keysChecked atomic.Uint64
	cryptoSkips atomic.Uint64
	// startTime is guarded by mu.
	startTime time.Time
	width     uint64

	results resultSink
	wg      sync.WaitGroup

	// secOnce gates the one-time warning when page locking for key
	// material is unavailable.
	secOnce sync.Once
}

// NewCPUEngine creates an engine over the shared pool. deriver may be nil,
// selecting the secp256k1 deriver.
func NewCPUEngine(log logger.Logger, pool *taskpool.Pool, deriver KeyDeriver) *CPUEngine {
	if deriver == nil {
		deriver = SecpDeriver{}
	}
	return &CPUEngine{log: log, pool: pool, deriver: deriver}
}

// Initialize wires the frozen target set and its prefilter. Must complete
// before any unit is dispatched.
func (e *CPUEngine) Initialize(targets *TargetSet, filter *bloom.Filter) error {
	if targets == nil || filter == nil {
		return errs.New(errs.Validation, "engine requires a target set and filter")
	}
	e.mu.Lock()
	e.targets = targets
	e.filter = filter
	e.mu.Unlock()
	return nil
}

// SetParams validates and installs the search parameters.
func (e *CPUEngine) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.params = p
	e.width = p.Range.Width64()
	e.mu.Unlock()
	return nil
}

// OnResult registers the hit callback. Fired outside all engine locks.
func (e *CPUEngine) OnResult(cb ResultCallback) { e.results.setCallback(cb) }

// Start sweeps the configured range asynchronously as one unit.
func (e *CPUEngine) Start() error {
	e.mu.Lock()
	r := e.params.Range
	ready := e.targets != nil && e.filter != nil
	e.mu.Unlock()
	if !ready {
		return errs.New(errs.Validation, "engine not initialized")
	}
	if !e.running.CompareAndSwap(false, true) {
		return errs.New(errs.Runtime, "engine already running")
	}
	e.token.Reset()
	e.mu.Lock()
	e.startTime = time.Now()
	e.mu.Unlock()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.running.Store(false)
		if err := e.SearchRange(r); err != nil && e.log != nil {
			e.log.Infof("engine sweep ended: %v", err)
		}
	}()
	return nil
}

// Stop requests cooperative cancellation and joins the sweep.
func (e *CPUEngine) Stop() {
	e.token.Cancel()
	e.wg.Wait()
	e.running.Store(false)
}

// Pause stops new batches from being dispatched; in-flight batches finish.
func (e *CPUEngine) Pause() { e.paused.Store(true) }

// Resume lifts a pause.
func (e *CPUEngine) Resume() { e.paused.Store(false) }

// Running reports whether a sweep is active.
func (e *CPUEngine) Running() bool { return e.running.Load() }

// Results returns the confirmed hits in discovery order.
func (e *CPUEngine) Results() []Result { return e.results.all() }

// Progress snapshots the engine counters.
func (e *CPUEngine) Progress() Progress {
	e.mu.Lock()
	current := e.current
	width := e.width
	started := e.startTime
	e.mu.Unlock()

	checked := e.keysChecked.Load()
	var kps uint64
	var percent float64
	if !started.IsZero() {
		if secs := time.Since(started).Seconds(); secs > 0 {
			kps = uint64(float64(checked) / secs)
		}
	}
	if width > 0 {
		percent = 100 * float64(checked) / float64(width)
		if percent > 100 {
			percent = 100
		}
	}
	return Progress{
		KeysChecked:   checked,
		KeysPerSecond: kps,
		Percent:       percent,
		StartTime:     started,
		LastUpdate:    time.Now(),
		Current:       current,
		ResultsFound:  e.results.count(),
	}
}

// SearchRange sweeps one unit, batching candidates onto the task pool. It
// returns when the unit is exhausted or cancellation is observed.
func (e *CPUEngine) SearchRange(r uint256.Range) error {
	if r.IsEmpty() {
		return nil
	}
	e.mu.Lock()
	p := e.params
	if e.startTime.IsZero() {
		e.startTime = time.Now()
	}
	e.mu.Unlock()

	sw := newSweeper(r, p.Mode, p.stride(), time.Now().UnixNano())
	batchLen := p.batchSize()

	// A bounded window of in-flight batch tasks keeps memory flat while
	// letting the pool overlap derive work. KFactor widens the window,
	// trading memory for scheduling slack.
	window := e.pool.Workers() * 2 * p.KFactor
	inflight := make([]*taskpool.Handle, 0, window)

	var firstErr error
	for !e.token.Canceled() {
		for e.paused.Load() && !e.token.Canceled() {
			time.Sleep(5 * time.Millisecond)
		}
		batch := make([]uint256.Uint256, batchLen)
		n := sw.next(batch)
		if n == 0 {
			break
		}
		batch = batch[:n]

		h, err := e.pool.Submit(func() error { return e.processBatch(batch) }, taskpool.Normal)
		if err != nil {
			firstErr = err
			break
		}
		inflight = append(inflight, h)
		if len(inflight) >= window {
			if err := inflight[0].Wait(); err != nil && firstErr == nil {
				firstErr = err
			}
			inflight = inflight[1:]
		}

		e.mu.Lock()
		e.current = batch[n-1]
		e.mu.Unlock()
	}
	for _, h := range inflight {
		if err := h.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// processBatch derives and tests one candidate batch. Crypto failures skip
// the candidate, are counted, and never halt the pool.
func (e *CPUEngine) processBatch(batch []uint256.Uint256) error {
	e.mu.Lock()
	p := e.params
	targets := e.targets
	filter := e.filter
	e.mu.Unlock()

	// Serialized key material stages through page-locked memory and is
	// zeroized when the batch ends.
	scratch, err := secmem.NewSecure(32, true)
	if err != nil {
		return errs.Wrap(errs.Memory, "allocating key scratch", err)
	}
	defer scratch.Close()
	e.secOnce.Do(func() {
		if scratch.LockErr() != nil && e.log != nil {
			e.log.Infof("page lock unavailable for key material: %v", scratch.LockErr())
		}
	})

	for _, cand := range batch {
		if e.token.Canceled() {
			return nil
		}
		kb := cand.Bytes()
		copy(scratch.Bytes(), kb[:])
		var priv uint256.PrivateKey
		copy(priv[:], scratch.Bytes())
		pub, cpub, err := e.deriver.Derive(priv)
		if err != nil {
			e.cryptoSkips.Add(1)
			if e.log != nil {
				e.log.Debugf("derive failed for candidate %s: %v", cand.Hex(), err)
			}
			continue
		}
		hit := false
		if p.KeyType == KeyUncompressed || p.KeyType == KeyBoth {
			hit = e.testCandidate(priv, Hash160(pub[:]), targets, filter) || hit
		}
		if p.KeyType == KeyCompressed || p.KeyType == KeyBoth {
			hit = e.testCandidate(priv, Hash160(cpub[:]), targets, filter) || hit
		}
		e.keysChecked.Add(1)
		if !hit {
			priv.Zeroize()
		}
		if hit && p.StopOnFound {
			e.token.Cancel()
			return nil
		}
	}
	return nil
}

// testCandidate runs the two-stage hit path: filter first, exact set only
// on a filter positive.
func (e *CPUEngine) testCandidate(priv uint256.PrivateKey, h uint256.Hash160, targets *TargetSet, filter *bloom.Filter) bool {
	if !filter.Query(h[:]) {
		return false
	}
	if !targets.Contains(h) {
		return false
	}
	e.results.emit(Result{
		Found:      true,
		PrivateKey: priv,
		TargetHash: h,
		Address:    EncodeP2PKH(h, VersionP2PKH),
	})
	if e.log != nil {
		e.log.Infof("hit: key %s matches target %s", priv.Hex(), h.Hex())
	}
	return true
}

// CryptoSkips reports candidates dropped by derive failures.
func (e *CPUEngine) CryptoSkips() uint64 { return e.cryptoSkips.Load() }
