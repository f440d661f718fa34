package distributed

import (
	"os"
	"sync"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/veraison/go-cose"

	"github.com/keyquarry/go-keyquarry/checkpoint"
	"github.com/keyquarry/go-keyquarry/errs"
	"github.com/keyquarry/go-keyquarry/search"
	"github.com/keyquarry/go-keyquarry/storage"
	"github.com/keyquarry/go-keyquarry/uint256"
	"github.com/keyquarry/go-keyquarry/work"
)

const (
	// DefaultWorkTimeout is how long a unit may stay assigned before the
	// sweeper reclaims it.
	DefaultWorkTimeout = 300 * time.Second
	// DefaultHeartbeatTimeout is how long a worker may stay silent before
	// it is presumed dead.
	DefaultHeartbeatTimeout = 60 * time.Second
)

// Config tunes the coordinator timeouts.
type Config struct {
	WorkTimeout      time.Duration
	HeartbeatTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.WorkTimeout == 0 {
		c.WorkTimeout = DefaultWorkTimeout
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
}

// Coordinator assigns work units to registered workers and aggregates
// their results.
type Coordinator struct {
	log logger.Logger
	cfg Config

	mu      sync.Mutex
	ledger  *work.Ledger
	workers map[string]*WorkerStatus
	results []search.Result
	cb      search.ResultCallback

	running  bool
	stopCh   chan struct{}
	sweeper  sync.WaitGroup
	codec    checkpoint.CBORCodec
	restored *checkpoint.Snapshot

	// Optional checkpoint sealing, mirroring the local coordinator: a
	// configured signer seals every save, a configured verifier refuses
	// an unsealed or tampered load.
	sealer       checkpoint.Sealer
	sealSigner   cose.Signer
	sealVerifier cose.Verifier
}

// NewCoordinator creates a coordinator with the given timeouts.
func NewCoordinator(cfg Config, log logger.Logger) (*Coordinator, error) {
	cfg.setDefaults()
	codec, err := checkpoint.NewCBORCodec()
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		log:     log,
		cfg:     cfg,
		workers: make(map[string]*WorkerStatus),
		codec:   codec,
	}, nil
}

// Initialize partitions the range into units of unitWidth keys.
func (c *Coordinator) Initialize(r uint256.Range, unitWidth uint64) error {
	ledger, err := work.NewLedger(r, unitWidth)
	if err != nil {
		return errs.Wrap(errs.Validation, "partitioning range", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ledger != nil {
		return errs.New(errs.Runtime, "coordinator already initialized")
	}
	if c.restored != nil {
		var resume []work.Unit
		for _, us := range c.restored.ResumeUnits() {
			resume = append(resume, work.Unit{ID: us.ID, Range: us.Range()})
		}
		ledger.Restore(resume, c.restored.CompletedIDs(), c.restored.NextID)
	}
	c.ledger = ledger
	return nil
}

// SetCheckpointSigner enables checkpoint sealing under issuer's key.
func (c *Coordinator) SetCheckpointSigner(issuer string, signer cose.Signer) {
	c.mu.Lock()
	c.sealer = checkpoint.NewSealer(issuer)
	c.sealSigner = signer
	c.mu.Unlock()
}

// SetCheckpointVerifier makes LoadCheckpoint require a valid seal.
func (c *Coordinator) SetCheckpointVerifier(verifier cose.Verifier) {
	c.mu.Lock()
	c.sealVerifier = verifier
	c.mu.Unlock()
}

// OnResult registers the confirmed-hit callback, fired outside the lock.
func (c *Coordinator) OnResult(cb search.ResultCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

// Start launches the timeout sweeper.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.running || c.ledger == nil {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	c.sweeper.Add(1)
	go c.sweepLoop()
}

// Stop halts the sweeper. Assigned units stay in flight; a subsequent
// snapshot folds them back into pending.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()
	c.sweeper.Wait()
}

// RegisterWorker adds or reconnects a worker. Idempotent.
func (c *Coordinator) RegisterWorker(id, hostname, deviceInfo string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workers[id]
	if !ok {
		w = &WorkerStatus{ID: id}
		c.workers[id] = w
	}
	w.Hostname = hostname
	w.DeviceInfo = deviceInfo
	w.Connected = true
	w.LastHeartbeat = time.Now()
	if c.log != nil {
		c.log.Infof("worker %s registered from %s (%s)", id, hostname, deviceInfo)
	}
}

// UnregisterWorker disconnects a worker. Its in-flight unit is reclaimed
// by the sweeper on timeout rather than instantly, so a worker that
// reconnects quickly keeps its assignment.
func (c *Coordinator) UnregisterWorker(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.workers[id]; ok {
		w.Connected = false
		w.Busy = false
	}
}

// GetNextWork assigns the next unit to worker id. ok is false when the
// range is exhausted. An unknown worker is implicitly registered.
func (c *Coordinator) GetNextWork(id string) (work.Unit, bool) {
	c.mu.Lock()
	if c.ledger == nil {
		c.mu.Unlock()
		return work.Unit{}, false
	}
	w, ok := c.workers[id]
	if !ok {
		w = &WorkerStatus{ID: id, Connected: true, LastHeartbeat: time.Now()}
		c.workers[id] = w
	}
	c.mu.Unlock()

	u, ok := c.ledger.Next(id)
	if !ok {
		return work.Unit{}, false
	}
	c.mu.Lock()
	w.Busy = true
	c.mu.Unlock()
	if c.log != nil {
		c.log.Debugf("assigned unit %d [%s] to %s", u.ID, u.Range.Hex(), id)
	}
	return u, true
}

// ReportCompletion finishes unit id. A late report for a reassigned unit
// is dropped silently. The result, if any, is recorded and the callback
// fired outside the lock.
func (c *Coordinator) ReportCompletion(unitID uint64, result *search.Result) {
	u, ok := c.ledger.Complete(unitID)
	if !ok {
		if c.log != nil {
			c.log.Debugf("dropping late completion for unit %d", unitID)
		}
		return
	}

	c.mu.Lock()
	if w, ok := c.workers[u.Assignee]; ok {
		w.Busy = false
		w.UnitsCompleted++
	}
	var cb search.ResultCallback
	if result != nil {
		c.results = append(c.results, *result)
		cb = c.cb
	}
	c.mu.Unlock()

	if cb != nil && result != nil {
		cb(*result)
	}
}

// Heartbeat updates a worker's liveness and throughput. Unknown workers
// re-register implicitly; heartbeat is idempotent.
func (c *Coordinator) Heartbeat(id string, keysPerSecond uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workers[id]
	if !ok {
		w = &WorkerStatus{ID: id}
		c.workers[id] = w
	}
	w.Connected = true
	w.KeysPerSecond = keysPerSecond
	w.LastHeartbeat = time.Now()
}

// sweepLoop periodically reclaims timed out units.
func (c *Coordinator) sweepLoop() {
	defer c.sweeper.Done()
	t := time.NewTicker(c.cfg.HeartbeatTimeout / 4)
	defer t.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-t.C:
			c.reclaimTimedOut()
		}
	}
}

// reclaimTimedOut is one sweeper pass; exported behavior is observable via
// CheckTimeouts for hosts that drive the sweep themselves.
func (c *Coordinator) reclaimTimedOut() {
	expired := c.ledger.RequeueTimedOut(c.cfg.WorkTimeout)
	if len(expired) == 0 {
		return
	}
	c.mu.Lock()
	for _, u := range expired {
		if w, ok := c.workers[u.Assignee]; ok {
			w.Busy = false
		}
		if c.log != nil {
			c.log.Infof("unit %d timed out on %s, requeued", u.ID, u.Assignee)
		}
	}
	c.mu.Unlock()
}

// CheckTimeouts runs one reclaim pass immediately.
func (c *Coordinator) CheckTimeouts() { c.reclaimTimedOut() }

// Workers snapshots the registry.
func (c *Coordinator) Workers() []WorkerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WorkerStatus, 0, len(c.workers))
	for _, w := range c.workers {
		out = append(out, *w)
	}
	return out
}

// TotalKPS sums the live workers' throughput.
func (c *Coordinator) TotalKPS() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total uint64
	for _, w := range c.workers {
		if w.Connected && !w.TimedOut(c.cfg.HeartbeatTimeout) {
			total += w.KeysPerSecond
		}
	}
	return total
}

// Results returns the hits in report order.
func (c *Coordinator) Results() []search.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]search.Result, len(c.results))
	copy(out, c.results)
	return out
}

// Progress returns the completed fraction, unit-count weighted.
func (c *Coordinator) Progress() float64 {
	return c.ledger.Progress()
}

// PendingCount and InProgressCount expose the frontier for monitoring.
func (c *Coordinator) PendingCount() uint64 {
	pending, _, _ := c.ledger.Counts()
	return pending
}

func (c *Coordinator) InProgressCount() uint64 {
	_, inProgress, _ := c.ledger.Counts()
	return inProgress
}

// Snapshot captures the frontier for checkpointing. Produced under the
// ledger lock; worker assignments are discarded by design.
func (c *Coordinator) Snapshot(filterDigest []byte) *checkpoint.Snapshot {
	pending, inProgress, completed, nextID := c.ledger.SnapshotState()
	snap := &checkpoint.Snapshot{
		UnitWidth:    c.ledger.UnitWidth(),
		NextID:       nextID,
		Completed:    checkpoint.EncodeIDSpans(completed),
		FilterDigest: filterDigest,
		CreatedAt:    time.Now().UnixMilli(),
	}
	snap.SetRange(c.ledger.Range())
	for _, u := range pending {
		snap.Pending = append(snap.Pending, checkpoint.NewUnitState(u.ID, u.Range))
	}
	for _, u := range inProgress {
		snap.InProgress = append(snap.InProgress, checkpoint.NewUnitState(u.ID, u.Range))
	}
	c.mu.Lock()
	for _, r := range c.results {
		snap.Results = append(snap.Results, checkpoint.ResultRecord{
			PrivateKey: append([]byte{}, r.PrivateKey[:]...),
			TargetHash: append([]byte{}, r.TargetHash[:]...),
			Address:    r.Address,
			FoundAt:    r.FoundAt.UnixMilli(),
		})
	}
	c.mu.Unlock()
	return snap
}

// SaveCheckpoint writes the frontier to path atomically, sealing it when
// a signer is configured.
func (c *Coordinator) SaveCheckpoint(path string, filterDigest []byte) error {
	snap := c.Snapshot(filterDigest)
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

// LoadCheckpoint restores a frontier. Call before Initialize; the digest
// check against the rebuilt filter is the caller's step, via
// checkpoint.VerifyFilterDigest, since the coordinator does not own the
// filter.
func (c *Coordinator) LoadCheckpoint(path string) (*checkpoint.Snapshot, error) {
	snap, err := checkpoint.Load(c.codec, path)
	if err != nil {
		return nil, errs.Wrap(errs.IO, "loading checkpoint", err)
	}
	c.mu.Lock()
	verifier := c.sealVerifier
	c.mu.Unlock()
	if verifier != nil {
		sealed, err := os.ReadFile(checkpoint.SealPath(path))
		if err != nil {
			return nil, errs.Wrap(errs.IO, "loading checkpoint seal", err)
		}
		digest, err := checkpoint.SnapshotDigest(c.codec, snap)
		if err != nil {
			return nil, err
		}
		if err := checkpoint.VerifySeal(sealed, verifier, digest); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	c.restored = snap
	for _, rr := range snap.Results {
		var res search.Result
		res.Found = true
		copy(res.PrivateKey[:], rr.PrivateKey)
		copy(res.TargetHash[:], rr.TargetHash)
		res.Address = rr.Address
		res.FoundAt = time.UnixMilli(rr.FoundAt)
		c.results = append(c.results, res)
	}
	c.mu.Unlock()
	return snap, nil
}
