package taskpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitAndWait(t *testing.T) {
	p := New(4, nil)
	defer p.Shutdown()

	var count atomic.Uint64
	for range 100 {
		_, err := p.Submit(func() error {
			count.Add(1)
			return nil
		}, Normal)
		require.NoError(t, err)
	}
	p.Wait()
	require.Equal(t, uint64(100), count.Load())

	st := p.Stats()
	require.Equal(t, uint64(100), st.Submitted)
	require.Equal(t, uint64(100), st.Completed)
	require.Zero(t, st.Pending)
	require.Zero(t, st.Active)
}

func TestHandleResult(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown()

	boom := errors.New("boom")
	h, err := p.Submit(func() error { return boom }, Normal)
	require.NoError(t, err)
	require.ErrorIs(t, h.Wait(), boom)

	h, err = p.Submit(func() error { return nil }, Normal)
	require.NoError(t, err)
	require.NoError(t, h.Wait())
}

func TestHandleWaitTimeout(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	release := make(chan struct{})
	h, err := p.Submit(func() error { <-release; return nil }, Normal)
	require.NoError(t, err)

	_, done := h.WaitTimeout(20 * time.Millisecond)
	require.False(t, done)

	close(release)
	err, done = h.WaitTimeout(5 * time.Second)
	require.True(t, done)
	require.NoError(t, err)
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	h, err := p.Submit(func() error { panic("kaboom") }, Normal)
	require.NoError(t, err)
	require.Error(t, h.Wait())

	// The lone worker survives and runs the next task.
	h, err = p.Submit(func() error { return nil }, Normal)
	require.NoError(t, err)
	require.NoError(t, h.Wait())

	require.Equal(t, uint64(1), p.Stats().Failed)
}

func TestPriorityPreemptsQueueOrder(t *testing.T) {
	// Single worker: submit a gate task, then 5 Low, then 1 High while the
	// gate holds the worker. The High task must run second overall,
	// before the remaining Lows.
	p := New(1, nil)
	defer p.Shutdown()

	gate := make(chan struct{})
	var mu sync.Mutex
	var order []string

	record := func(name string) Func {
		return func() error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	_, err := p.Submit(func() error { <-gate; return nil }, Normal)
	require.NoError(t, err)

	for range 5 {
		_, err := p.Submit(record("low"), Low)
		require.NoError(t, err)
	}
	_, err = p.Submit(record("high"), High)
	require.NoError(t, err)

	close(gate)
	p.Wait()

	require.Len(t, order, 6)
	require.Equal(t, "high", order[0], "high priority runs before queued lows")
	for _, name := range order[1:] {
		require.Equal(t, "low", name)
	}
}

func TestFIFOWithinClass(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	gate := make(chan struct{})
	_, err := p.Submit(func() error { <-gate; return nil }, Normal)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	for i := range 10 {
		_, err := p.Submit(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}, Normal)
		require.NoError(t, err)
	}
	close(gate)
	p.Wait()
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestPauseResume(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown()

	p.Pause()
	var ran atomic.Bool
	_, err := p.Submit(func() error { ran.Store(true); return nil }, Normal)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	require.False(t, ran.Load(), "paused pool must not start tasks")
	require.True(t, p.Paused())

	p.Resume()
	p.Wait()
	require.True(t, ran.Load())
}

func TestShutdownRejectsSubmissions(t *testing.T) {
	p := New(2, nil)
	p.Shutdown()

	_, err := p.Submit(func() error { return nil }, Normal)
	require.ErrorIs(t, err, ErrPoolStopped)

	_, err = p.SubmitBatch([]Func{func() error { return nil }}, Normal)
	require.ErrorIs(t, err, ErrPoolStopped)

	// Idempotent.
	p.Shutdown()
}

func TestShutdownDropsPending(t *testing.T) {
	p := New(1, nil)

	gate := make(chan struct{})
	_, err := p.Submit(func() error { <-gate; return nil }, Normal)
	require.NoError(t, err)

	h, err := p.Submit(func() error { return nil }, Normal)
	require.NoError(t, err)

	// Begin shutdown while the gate task holds the lone worker, so the
	// second task is still pending when the queue drains.
	go p.Shutdown()
	require.Eventually(t, func() bool {
		_, err := p.Submit(func() error { return nil }, Normal)
		return errors.Is(err, ErrPoolStopped)
	}, 5*time.Second, time.Millisecond)

	close(gate)
	p.Shutdown() // joins the in-flight shutdown

	// The pending task was dropped; its handle reports the shutdown.
	require.ErrorIs(t, h.Wait(), ErrPoolStopped)
}

func TestSubmitBatch(t *testing.T) {
	p := New(4, nil)
	defer p.Shutdown()

	var count atomic.Uint64
	fns := make([]Func, 50)
	for i := range fns {
		fns[i] = func() error { count.Add(1); return nil }
	}
	handles, err := p.SubmitBatch(fns, High)
	require.NoError(t, err)
	require.Len(t, handles, 50)
	for _, h := range handles {
		require.NoError(t, h.Wait())
	}
	require.Equal(t, uint64(50), count.Load())
}

func TestAccountingIdentity(t *testing.T) {
	p := New(4, nil)
	defer p.Shutdown()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			st := p.Stats()
			require.Equal(t, st.Submitted,
				st.Completed+uint64(st.Pending)+uint64(st.Active),
				"identity violated: %+v", st)
		}
	}()

	for range 500 {
		_, err := p.Submit(func() error { return nil }, Normal)
		require.NoError(t, err)
	}
	p.Wait()
	close(stop)
	wg.Wait()
}

func TestWaitFor(t *testing.T) {
	p := New(1, nil)
	defer p.Shutdown()

	release := make(chan struct{})
	_, err := p.Submit(func() error { <-release; return nil }, Normal)
	require.NoError(t, err)

	require.False(t, p.WaitFor(20*time.Millisecond))
	close(release)
	require.True(t, p.WaitFor(5*time.Second))
}

func TestToken(t *testing.T) {
	var tok Token
	require.False(t, tok.Canceled())
	tok.Cancel()
	require.True(t, tok.Canceled())
	tok.Cancel()
	require.True(t, tok.Canceled())
	tok.Reset()
	require.False(t, tok.Canceled())
}

func TestStatsAverages(t *testing.T) {
	var s Stats
	require.Zero(t, s.AvgWait())
	require.Zero(t, s.AvgExec())

	s = Stats{Completed: 2, TotalWaitNs: 2000, TotalExecNs: 4000}
	require.Equal(t, time.Duration(1000), s.AvgWait())
	require.Equal(t, time.Duration(2000), s.AvgExec())
}
