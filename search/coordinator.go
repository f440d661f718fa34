package search

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/veraison/go-cose"

	"github.com/keyquarry/go-keyquarry/bloom"
	"github.com/keyquarry/go-keyquarry/checkpoint"
	"github.com/keyquarry/go-keyquarry/errs"
	"github.com/keyquarry/go-keyquarry/storage"
	"github.com/keyquarry/go-keyquarry/taskpool"
	"github.com/keyquarry/go-keyquarry/uint256"
	"github.com/keyquarry/go-keyquarry/work"
)

// unitTargetSeconds tunes the unit width so one unit is a few tens of
// seconds of work on one engine.
const unitTargetSeconds = 30

// Coordinator owns the target set, the prefilter and the work-unit ledger
// for a search on one host, and dispatches units to one engine per device.
type Coordinator struct {
	log  logger.Logger
	pool *taskpool.Pool

	mu      sync.Mutex
	params  Params
	targets *TargetSet
	filter  *bloom.Filter
	engines []Engine
	ledger  *work.Ledger

	codec       checkpoint.CBORCodec
	restored    *checkpoint.Snapshot
	initialized bool

	// Optional checkpoint sealing. With a signer configured every saved
	// checkpoint gets a COSE Sign1 seal beside it; with a verifier
	// configured a load refuses an unsealed or tampered checkpoint.
	sealer       checkpoint.Sealer
	sealSigner   cose.Signer
	sealVerifier cose.Verifier

	running    atomic.Bool
	stopped    atomic.Bool
	dispatchWg sync.WaitGroup
	loopWg     sync.WaitGroup
	stopCh     chan struct{}
	stopOnce   sync.Once
	results    resultSink
	onProgress ProgressCallback
	startTime  time.Time
}

// NewCoordinator validates params and prepares the shared pool.
func NewCoordinator(params Params, log logger.Logger) (*Coordinator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	codec, err := checkpoint.NewCBORCodec()
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		log:    log,
		params: params,
		pool:   taskpool.New(params.NumThreads, log),
		codec:  codec,
	}, nil
}

// Pool exposes the shared task pool, e.g. for callers that co-schedule.
func (c *Coordinator) Pool() *taskpool.Pool { return c.pool }

// OnResult registers the confirmed-hit callback. Fired outside all locks.
func (c *Coordinator) OnResult(cb ResultCallback) { c.results.setCallback(cb) }

// OnProgress registers the periodic progress callback.
func (c *Coordinator) OnProgress(cb ProgressCallback) {
	c.mu.Lock()
	c.onProgress = cb
	c.mu.Unlock()
}

// SetCheckpointSigner enables checkpoint sealing: every saved checkpoint
// is accompanied by a COSE Sign1 seal over its digest, attributed to
// issuer. Configure before Start.
func (c *Coordinator) SetCheckpointSigner(issuer string, signer cose.Signer) {
	c.mu.Lock()
	c.sealer = checkpoint.NewSealer(issuer)
	c.sealSigner = signer
	c.mu.Unlock()
}

// SetCheckpointVerifier makes LoadCheckpoint require a valid seal.
// Configure before loading.
func (c *Coordinator) SetCheckpointVerifier(verifier cose.Verifier) {
	c.mu.Lock()
	c.sealVerifier = verifier
	c.mu.Unlock()
}

// AddEngine installs a device engine. Without any, Initialize creates one
// CPU engine per device weight (or a single one).
func (c *Coordinator) AddEngine(e Engine) {
	c.mu.Lock()
	c.engines = append(c.engines, e)
	c.mu.Unlock()
}

// Initialize builds the prefilter from targets and wires the engines. The
// build phase is exclusive and completes before any unit is dispatched.
func (c *Coordinator) Initialize(targets *TargetSet) error {
	if targets == nil || targets.Count() == 0 {
		return errs.New(errs.Validation, "no targets loaded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return errs.New(errs.Runtime, "coordinator already initialized")
	}

	filter, err := targets.BuildFilter(c.params.BloomBitsPerElement, c.params.BloomHashFunctions)
	if err != nil {
		return err
	}
	c.targets = targets
	c.filter = filter

	if len(c.engines) == 0 {
		n := len(c.params.DeviceWeights)
		if n == 0 {
			n = 1
		}
		for range n {
			c.engines = append(c.engines, NewCPUEngine(c.log, c.pool, nil))
		}
	}
	for i, e := range c.engines {
		if err := e.Initialize(c.targets, c.filter); err != nil {
			return errs.Wrap(errs.Runtime, "initializing engine "+strconv.Itoa(i), err)
		}
		if err := e.SetParams(c.params); err != nil {
			return err
		}
		if cpu, ok := e.(*CPUEngine); ok {
			cpu.OnResult(c.results.emit)
		}
	}
	c.initialized = true
	return nil
}

// LoadCheckpoint restores a prior run's frontier. Must follow Initialize,
// whose filter is verified against the snapshot digest, and precede Start.
func (c *Coordinator) LoadCheckpoint(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return errs.New(errs.Validation, "initialize before loading a checkpoint")
	}
	snap, err := checkpoint.Load(c.codec, path)
	if err != nil {
		return errs.Wrap(errs.IO, "loading checkpoint", err)
	}
	if err := checkpoint.VerifyFilterDigest(snap, c.filter); err != nil {
		return err
	}
	if c.sealVerifier != nil {
		sealed, err := os.ReadFile(checkpoint.SealPath(path))
		if err != nil {
			return errs.Wrap(errs.IO, "loading checkpoint seal", err)
		}
		digest, err := checkpoint.SnapshotDigest(c.codec, snap)
		if err != nil {
			return err
		}
		if err := checkpoint.VerifySeal(sealed, c.sealVerifier, digest); err != nil {
			return err
		}
	}
	c.restored = snap
	for _, rr := range snap.Results {
		var res Result
		res.Found = true
		copy(res.PrivateKey[:], rr.PrivateKey)
		copy(res.TargetHash[:], rr.TargetHash)
		res.Address = rr.Address
		res.FoundAt = time.UnixMilli(rr.FoundAt)
		c.results.restore(res)
	}
	return nil
}

// Start dispatches the range. With a restored checkpoint, r must equal the
// checkpointed range and enumeration resumes at the saved frontier.
func (c *Coordinator) Start(r uint256.Range) error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return errs.New(errs.Validation, "coordinator not initialized")
	}
	if c.running.Load() {
		c.mu.Unlock()
		return errs.New(errs.Runtime, "coordinator already running")
	}
	if c.stopped.Load() {
		// Engine cancellation tokens are spent; a resumed run builds a
		// fresh coordinator from the checkpoint instead.
		c.mu.Unlock()
		return errs.New(errs.Runtime, "coordinator cannot be restarted")
	}

	width := uint256.OptimalChunk(r, uint64(len(c.engines)), unitTargetSeconds)
	if c.restored != nil {
		if !c.restored.Range().Start.Equal(r.Start) || !c.restored.Range().End.Equal(r.End) {
			c.mu.Unlock()
			return errs.New(errs.Validation, "checkpoint range does not match the requested range")
		}
		width = c.restored.UnitWidth
	}
	ledger, err := work.NewLedger(r, width)
	if err != nil {
		c.mu.Unlock()
		return errs.Wrap(errs.Validation, "partitioning range", err)
	}
	if c.restored != nil {
		var resume []work.Unit
		for _, us := range c.restored.ResumeUnits() {
			resume = append(resume, work.Unit{ID: us.ID, Range: us.Range()})
		}
		ledger.Restore(resume, c.restored.CompletedIDs(), c.restored.NextID)
	}
	c.ledger = ledger
	c.stopCh = make(chan struct{})
	c.startTime = time.Now()
	engines := append([]Engine{}, c.engines...)
	c.mu.Unlock()

	c.running.Store(true)

	for i, e := range engines {
		c.dispatchWg.Add(1)
		go c.dispatch(i, e)
	}
	if c.params.CheckpointEnabled {
		c.loopWg.Add(1)
		go c.checkpointLoop()
	}
	if c.onProgress != nil {
		c.loopWg.Add(1)
		go c.progressLoop()
	}
	return nil
}

// dispatch is one engine's unit loop: pull, sweep, complete.
func (c *Coordinator) dispatch(idx int, e Engine) {
	defer c.dispatchWg.Done()
	name := "engine-" + strconv.Itoa(idx)
	attempts := make(map[uint64]int)
	for !c.stopped.Load() {
		u, ok := c.ledger.Next(name)
		if !ok {
			return
		}
		err := e.SearchRange(u.Range)
		if c.stopped.Load() {
			// The sweep was interrupted; surrender the unit so a resume
			// re-enumerates it.
			c.ledger.Requeue(u.ID)
			return
		}
		if err != nil {
			attempts[u.ID]++
			if attempts[u.ID] < 2 {
				if c.log != nil {
					c.log.Infof("%s: unit %d failed, requeueing: %v", name, u.ID, err)
				}
				c.ledger.Requeue(u.ID)
				continue
			}
			// A unit that fails twice is abandoned rather than letting it
			// wedge the dispatcher; the error was already surfaced.
			if c.log != nil {
				c.log.Infof("%s: abandoning unit %d after retry: %v", name, u.ID, err)
			}
		}
		c.ledger.Complete(u.ID)
	}
}

// checkpointLoop snapshots on the configured cadence. Save failures are
// logged and retried at the next interval, never fatal.
func (c *Coordinator) checkpointLoop() {
	defer c.loopWg.Done()
	interval := time.Duration(c.params.CheckpointIntervalS) * time.Second
	if interval == 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-t.C:
			if err := c.SaveCheckpoint(c.params.CheckpointPath); err != nil && c.log != nil {
				c.log.Infof("checkpoint save failed, will retry: %v", err)
			}
		}
	}
}

func (c *Coordinator) progressLoop() {
	defer c.loopWg.Done()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-t.C:
			c.mu.Lock()
			cb := c.onProgress
			c.mu.Unlock()
			if cb != nil {
				cb(c.Progress())
			}
		}
	}
}

// SaveCheckpoint writes the current frontier atomically.
func (c *Coordinator) SaveCheckpoint(path string) error {
	c.mu.Lock()
	ledger := c.ledger
	filter := c.filter
	c.mu.Unlock()
	if ledger == nil {
		return errs.New(errs.Validation, "nothing to checkpoint before start")
	}

	digest, err := checkpoint.FilterDigest(filter)
	if err != nil {
		return err
	}
	pending, inProgress, completed, nextID := ledger.SnapshotState()

	snap := &checkpoint.Snapshot{
		UnitWidth:    ledger.UnitWidth(),
		NextID:       nextID,
		Completed:    checkpoint.EncodeIDSpans(completed),
		FilterDigest: digest,
		CreatedAt:    time.Now().UnixMilli(),
	}
	snap.SetRange(ledger.Range())
	for _, u := range pending {
		snap.Pending = append(snap.Pending, checkpoint.NewUnitState(u.ID, u.Range))
	}
	for _, u := range inProgress {
		snap.InProgress = append(snap.InProgress, checkpoint.NewUnitState(u.ID, u.Range))
	}
	for _, res := range c.results.all() {
		snap.Results = append(snap.Results, checkpoint.ResultRecord{
			PrivateKey: append([]byte{}, res.PrivateKey[:]...),
			TargetHash: append([]byte{}, res.TargetHash[:]...),
			Address:    res.Address,
			FoundAt:    res.FoundAt.UnixMilli(),
		})
	}
	if err := checkpoint.Save(c.codec, path, snap); err != nil {
		return errs.Wrap(errs.IO, "saving checkpoint", err)
	}

	c.mu.Lock()
	sealer, signer := c.sealer, c.sealSigner
	c.mu.Unlock()
	if signer != nil {
		digest, err := checkpoint.SnapshotDigest(c.codec, snap)
		if err != nil {
			return err
		}
		sealed, err := sealer.Seal(signer, digest)
		if err != nil {
			return errs.Wrap(errs.Crypto, "sealing checkpoint", err)
		}
		if err := storage.AtomicWriteFile(checkpoint.SealPath(path), sealed); err != nil {
			return errs.Wrap(errs.IO, "saving checkpoint seal", err)
		}
	}
	return nil
}

// Wait blocks until every dispatcher drains (range exhausted or stopped),
// then writes the final checkpoint when enabled: a clean shutdown always
// leaves the last known frontier on disk.
func (c *Coordinator) Wait() {
	c.dispatchWg.Wait()
	c.mu.Lock()
	stopCh := c.stopCh
	c.mu.Unlock()
	if stopCh != nil {
		c.stopOnce.Do(func() { close(stopCh) })
	}
	c.loopWg.Wait()
	c.running.Store(false)

	if c.params.CheckpointEnabled {
		if err := c.SaveCheckpoint(c.params.CheckpointPath); err != nil && c.log != nil {
			c.log.Infof("final checkpoint save failed: %v", err)
		}
	}
}

// Stop requests cooperative shutdown: engines observe it between batches,
// dispatchers between units. The final checkpoint is written on the way
// out if enabled.
func (c *Coordinator) Stop() {
	if !c.running.Load() {
		return
	}
	c.stopped.Store(true)
	c.mu.Lock()
	engines := append([]Engine{}, c.engines...)
	c.mu.Unlock()
	for _, e := range engines {
		e.Stop()
	}
	c.Wait()
}

// Running reports whether dispatchers are active.
func (c *Coordinator) Running() bool { return c.running.Load() }

// Initialized reports whether the filter build phase has completed.
func (c *Coordinator) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Results returns the confirmed hits in discovery order.
func (c *Coordinator) Results() []Result { return c.results.all() }

// Progress aggregates the per-engine counters and the ledger frontier.
func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	engines := append([]Engine{}, c.engines...)
	ledger := c.ledger
	start := c.startTime
	c.mu.Unlock()

	var agg Progress
	agg.StartTime = start
	agg.LastUpdate = time.Now()
	for _, e := range engines {
		p := e.Progress()
		agg.KeysChecked += p.KeysChecked
		agg.KeysPerSecond += p.KeysPerSecond
		if agg.Current.Less(p.Current) {
			agg.Current = p.Current
		}
	}
	agg.ResultsFound = c.results.count()
	if ledger != nil {
		_, _, completed := ledger.Counts()
		agg.UnitsCompleted = completed
		agg.UnitsTotal = ledger.TotalUnits()
		agg.Percent = 100 * ledger.Progress()
	}
	return agg
}
