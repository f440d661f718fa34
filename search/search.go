package search

import (
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/veraison/go-cose"

	"github.com/keyquarry/go-keyquarry/uint256"
)

// Search is the top-level entry point: configure, add targets, run.
type Search struct {
	params Params
	coord  *Coordinator
	target *TargetSet
}

// New validates params and builds the coordinator. Configuration errors
// surface here, before any work is scheduled.
func New(params Params, log logger.Logger) (*Search, error) {
	coord, err := NewCoordinator(params, log)
	if err != nil {
		return nil, err
	}
	return &Search{
		params: params,
		coord:  coord,
		target: NewTargetSet(),
	}, nil
}

// AddTarget registers one hash160 target.
func (s *Search) AddTarget(h uint256.Hash160) { s.target.Add(h) }

// AddTargetAddress registers a target by address string.
func (s *Search) AddTargetAddress(addr string) error { return s.target.AddAddress(addr) }

// LoadTargets reads a target file and returns the count added.
func (s *Search) LoadTargets(path string) (int, error) { return s.target.LoadFile(path) }

// OnProgress registers the progress callback.
func (s *Search) OnProgress(cb ProgressCallback) { s.coord.OnProgress(cb) }

// OnResult registers the confirmed-hit callback.
func (s *Search) OnResult(cb ResultCallback) { s.coord.OnResult(cb) }

// AddEngine installs a device engine ahead of Run or StartAsync.
func (s *Search) AddEngine(e Engine) { s.coord.AddEngine(e) }

// SetCheckpointSigner seals every saved checkpoint under issuer's key.
func (s *Search) SetCheckpointSigner(issuer string, signer cose.Signer) {
	s.coord.SetCheckpointSigner(issuer, signer)
}

// SetCheckpointVerifier makes ResumeFrom require a valid checkpoint seal.
func (s *Search) SetCheckpointVerifier(verifier cose.Verifier) {
	s.coord.SetCheckpointVerifier(verifier)
}

// ResumeFrom loads a checkpoint after initialization. Call between target
// loading and Run.
func (s *Search) ResumeFrom(path string) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	return s.coord.LoadCheckpoint(path)
}

func (s *Search) ensureInitialized() error {
	if s.coord.Initialized() {
		return nil
	}
	return s.coord.Initialize(s.target)
}

// Run executes the search to completion (or Stop) and returns the
// confirmed hits.
func (s *Search) Run() ([]Result, error) {
	if err := s.StartAsync(); err != nil {
		return nil, err
	}
	s.coord.Wait()
	return s.coord.Results(), nil
}

// StartAsync begins the search and returns immediately.
func (s *Search) StartAsync() error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	return s.coord.Start(s.params.Range)
}

// Stop requests cooperative shutdown and writes a final checkpoint when
// enabled.
func (s *Search) Stop() { s.coord.Stop() }

// Wait blocks until the search drains.
func (s *Search) Wait() { s.coord.Wait() }

// Running reports whether the search is active.
func (s *Search) Running() bool { return s.coord.Running() }

// Progress snapshots the aggregated counters.
func (s *Search) Progress() Progress { return s.coord.Progress() }

// Results returns the confirmed hits so far.
func (s *Search) Results() []Result { return s.coord.Results() }

// Close releases the worker pool.
func (s *Search) Close() { s.coord.Pool().Shutdown() }
