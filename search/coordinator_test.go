package search

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"

	"github.com/keyquarry/go-keyquarry/checkpoint"
	"github.com/keyquarry/go-keyquarry/uint256"
)

func TestCoordinatorRunFindsTargets(t *testing.T) {
	p := DefaultParams()
	p.Range = uint256.NewRange(uint256.New(1), uint256.New(400))
	p.NumThreads = 2
	p.KeyType = KeyCompressed

	s, err := New(p, nil)
	require.NoError(t, err)
	defer s.Close()

	s.AddTarget(targetForKey(t, 33))
	s.AddTarget(targetForKey(t, 377))

	var cbResults []Result
	s.OnResult(func(r Result) { cbResults = append(cbResults, r) })

	results, err := s.Run()
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, cbResults, 2)

	found := map[uint64]bool{}
	for _, r := range results {
		found[r.PrivateKey.Uint256().Limb(0)] = true
	}
	require.True(t, found[33] && found[377])

	// After a full run the ledger covered the whole range.
	prog := s.Progress()
	require.Equal(t, prog.UnitsTotal, prog.UnitsCompleted)
}

func TestCoordinatorRequiresTargets(t *testing.T) {
	p := DefaultParams()
	p.Range = uint256.NewRange(uint256.New(1), uint256.New(100))
	s, err := New(p, nil)
	require.NoError(t, err)
	defer s.Close()

	err = s.StartAsync()
	require.Error(t, err)
}

func TestCoordinatorRejectsBadParams(t *testing.T) {
	p := DefaultParams() // empty range
	_, err := New(p, nil)
	require.Error(t, err)

	p = DefaultParams()
	p.Range = uint256.NewRange(uint256.New(1), uint256.New(10))
	p.BloomBitsPerElement = 0
	_, err = New(p, nil)
	require.Error(t, err)
}

func TestCoordinatorStopIsClean(t *testing.T) {
	r, err := uint256.ForBits(48)
	require.NoError(t, err)

	p := DefaultParams()
	p.Range = r
	p.NumThreads = 2

	s, err := New(p, nil)
	require.NoError(t, err)
	defer s.Close()
	s.AddTarget(targetForKey(t, 1)) // outside range

	require.NoError(t, s.StartAsync())
	require.True(t, s.Running())
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	require.False(t, s.Running())

	// A stopped coordinator cannot be restarted.
	require.Error(t, s.StartAsync())
}

// TestCheckpointResumeSkipsCompleted hand-builds a checkpoint marking the
// unit holding target A completed, then resumes: A's unit is excluded from
// regeneration, so only target B is found.
func TestCheckpointResumeSkipsCompleted(t *testing.T) {
	r := uint256.NewRange(uint256.New(0x100), uint256.New(0x4FF)) // 1024 keys
	const unitWidth = 256                                         // 4 units

	p := DefaultParams()
	p.Range = r
	p.NumThreads = 1
	p.KeyType = KeyCompressed

	targetA := targetForKey(t, 0x150) // unit 0
	targetB := targetForKey(t, 0x350) // unit 2

	build := func() (*Search, *TargetSet) {
		s, err := New(p, nil)
		require.NoError(t, err)
		s.AddTarget(targetA)
		s.AddTarget(targetB)
		return s, s.target
	}

	// Compute the digest of the filter the resuming coordinator builds.
	s, targets := build()
	defer s.Close()
	filter, err := targets.BuildFilter(p.BloomBitsPerElement, p.BloomHashFunctions)
	require.NoError(t, err)
	digest, err := checkpoint.FilterDigest(filter)
	require.NoError(t, err)

	codec, err := checkpoint.NewCBORCodec()
	require.NoError(t, err)
	snap := &checkpoint.Snapshot{
		UnitWidth:    unitWidth,
		NextID:       1,
		Completed:    checkpoint.EncodeIDSpans([]uint64{0}),
		FilterDigest: digest,
		CreatedAt:    time.Now().UnixMilli(),
	}
	snap.SetRange(r)
	path := filepath.Join(t.TempDir(), "resume.kqcp")
	require.NoError(t, checkpoint.Save(codec, path, snap))

	require.NoError(t, s.ResumeFrom(path))
	results, err := s.Run()
	require.NoError(t, err)

	require.Len(t, results, 1)
	require.Equal(t, targetB, results[0].TargetHash)
	require.Equal(t, uint256.New(0x350), results[0].PrivateKey.Uint256())
}

// TestCheckpointSaveLoadRoundTrip runs a search to completion with
// checkpointing on: the final checkpoint holds the whole range as completed,
// with its one result, and a resumed run finds nothing new.
func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	r := uint256.NewRange(uint256.New(1), uint256.New(512))

	dir := t.TempDir()
	p := DefaultParams()
	p.Range = r
	p.NumThreads = 1
	p.KeyType = KeyCompressed
	p.CheckpointEnabled = true
	p.CheckpointIntervalS = 3600 // only the final save fires
	p.CheckpointPath = filepath.Join(dir, "run.kqcp")

	s, err := New(p, nil)
	require.NoError(t, err)
	defer s.Close()
	s.AddTarget(targetForKey(t, 0x42))

	results, err := s.Run()
	require.NoError(t, err)
	require.Len(t, results, 1)
	s.Stop() // no-op: the Wait inside Run already wrote the final checkpoint

	codec, err := checkpoint.NewCBORCodec()
	require.NoError(t, err)
	snap, err := checkpoint.Load(codec, p.CheckpointPath)
	require.NoError(t, err)
	require.Equal(t, r, snap.Range())
	require.Len(t, snap.Results, 1)

	// Everything completed, nothing pending or in flight.
	require.Empty(t, snap.Pending)
	require.Empty(t, snap.InProgress)
	require.NotEmpty(t, snap.Completed)

	// Resuming the finished run finds nothing new.
	s2, err := New(p, nil)
	require.NoError(t, err)
	defer s2.Close()
	s2.AddTarget(targetForKey(t, 0x42))
	require.NoError(t, s2.ResumeFrom(p.CheckpointPath))
	results2, err := s2.Run()
	require.NoError(t, err)
	// The restored result is carried; no new discovery occurs.
	require.Len(t, results2, 1)
	require.Equal(t, results[0].TargetHash, results2[0].TargetHash)
}

// TestCheckpointSealRoundTrip runs a sealed search, then resumes with the
// matching verifier; a tampered or missing seal refuses the resume.
func TestCheckpointSealRoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	require.NoError(t, err)
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, &key.PublicKey)
	require.NoError(t, err)

	dir := t.TempDir()
	p := DefaultParams()
	p.Range = uint256.NewRange(uint256.New(1), uint256.New(64))
	p.NumThreads = 1
	p.KeyType = KeyCompressed
	p.CheckpointEnabled = true
	p.CheckpointIntervalS = 3600
	p.CheckpointPath = filepath.Join(dir, "run.kqcp")

	s, err := New(p, nil)
	require.NoError(t, err)
	defer s.Close()
	s.AddTarget(targetForKey(t, 0x20))
	s.SetCheckpointSigner("test-coordinator", signer)

	_, err = s.Run()
	require.NoError(t, err)

	sealPath := checkpoint.SealPath(p.CheckpointPath)
	sealed, err := os.ReadFile(sealPath)
	require.NoError(t, err, "a sealed run leaves a seal beside the checkpoint")
	require.NotEmpty(t, sealed)

	resume := func() error {
		s2, err := New(p, nil)
		require.NoError(t, err)
		defer s2.Close()
		s2.AddTarget(targetForKey(t, 0x20))
		s2.SetCheckpointVerifier(verifier)
		return s2.ResumeFrom(p.CheckpointPath)
	}

	require.NoError(t, resume())

	// A tampered seal is refused.
	bad := append([]byte{}, sealed...)
	bad[len(bad)-1] ^= 0x01
	require.NoError(t, os.WriteFile(sealPath, bad, 0o644))
	require.Error(t, resume())

	// So is a missing one, when a verifier is configured.
	require.NoError(t, os.Remove(sealPath))
	require.Error(t, resume())

	// Without a verifier the unsealed checkpoint still loads.
	s3, err := New(p, nil)
	require.NoError(t, err)
	defer s3.Close()
	s3.AddTarget(targetForKey(t, 0x20))
	require.NoError(t, s3.ResumeFrom(p.CheckpointPath))
}

func TestTargetsLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.txt")

	h := targetForKey(t, 0x42)
	addr := EncodeP2PKH(h, VersionP2PKH)

	content := "# known targets\n" +
		h.Hex() + "\n" +
		"\n" +
		addr + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	targets := NewTargetSet()
	n, err := targets.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	// Both lines decode to the same hash; the set deduplicates.
	require.Equal(t, 1, targets.Count())
	require.True(t, targets.Contains(h))
}

func TestTargetsLoadFileBadLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.txt")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an address\n"), 0o644))

	targets := NewTargetSet()
	_, err := targets.LoadFile(path)
	require.Error(t, err)
}

func TestParamsValidation(t *testing.T) {
	p := DefaultParams()
	require.Error(t, p.Validate(), "empty range")

	p.Range = uint256.NewRange(uint256.New(1), uint256.New(100))
	require.NoError(t, p.Validate())

	bad := p
	bad.KFactor = 0
	require.Error(t, bad.Validate())

	bad = p
	bad.CheckpointEnabled = true
	require.Error(t, bad.Validate(), "checkpoint without path")

	bad = p
	bad.DeviceWeights = []float64{1, -1}
	require.Error(t, bad.Validate())

	bad = p
	bad.Mode = Mode(200)
	require.Error(t, bad.Validate())
}
