package taskpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/keyquarry/go-keyquarry/errs"
)

var (
	ErrPoolStopped = errors.New("taskpool: pool is shut down")
	ErrNoTask      = errors.New("taskpool: task function is nil")
)

// Func is a unit of work. A non-nil return is published on the task handle.
type Func func() error

type task struct {
	run        Func
	handle     *Handle
	enqueuedAt time.Time
}

// queue is a FIFO of tasks with amortized O(1) pop from the head.
type queue struct {
	items []task
	head  int
}

func (q *queue) push(t task) { q.items = append(q.items, t) }

func (q *queue) empty() bool { return q.head == len(q.items) }

func (q *queue) pop() task {
	t := q.items[q.head]
	q.items[q.head] = task{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return t
}

func (q *queue) len() int { return len(q.items) - q.head }

// Pool is a fixed-size worker pool over a single priority queue.
type Pool struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	drained  *sync.Cond

	queues  [numPriorities]queue
	pending int
	active  int
	stopped bool
	paused  bool

	numWorkers int
	workers    sync.WaitGroup
	st         poolStats
	log        logger.Logger
}

// New starts a pool of numWorkers OS-thread-backed workers. Zero means one
// worker per logical CPU.
func New(numWorkers int, log logger.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	p := &Pool{numWorkers: numWorkers, log: log}
	p.notEmpty = sync.NewCond(&p.mu)
	p.drained = sync.NewCond(&p.mu)
	p.workers.Add(numWorkers)
	for i := range numWorkers {
		go p.workerLoop(i)
	}
	return p
}

// Workers returns the worker thread count.
func (p *Pool) Workers() int { return p.numWorkers }

// Submit enqueues fn at prio and returns a handle to await it. Submission
// fails with ErrPoolStopped once Shutdown has begun.
func (p *Pool) Submit(fn Func, prio Priority) (*Handle, error) {
	if fn == nil {
		return nil, ErrNoTask
	}
	h := newHandle()
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrPoolStopped
	}
	p.queues[prio].push(task{run: fn, handle: h, enqueuedAt: time.Now()})
	p.pending++
	p.st.submitted.Add(1)
	p.mu.Unlock()
	p.notEmpty.Signal()
	return h, nil
}

// SubmitBatch enqueues all tasks atomically and wakes every worker once.
func (p *Pool) SubmitBatch(fns []Func, prio Priority) ([]*Handle, error) {
	for _, fn := range fns {
		if fn == nil {
			return nil, ErrNoTask
		}
	}
	handles := make([]*Handle, 0, len(fns))
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrPoolStopped
	}
	now := time.Now()
	for _, fn := range fns {
		h := newHandle()
		p.queues[prio].push(task{run: fn, handle: h, enqueuedAt: now})
		handles = append(handles, h)
	}
	p.pending += len(fns)
	p.st.submitted.Add(uint64(len(fns)))
	p.mu.Unlock()
	p.notEmpty.Broadcast()
	return handles, nil
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.pending != 0 || p.active != 0 {
		p.drained.Wait()
	}
	p.mu.Unlock()
}

// WaitFor blocks up to d for the pool to drain. It returns false on
// timeout without altering any state.
func (p *Pool) WaitFor(d time.Duration) bool {
	deadline := time.Now().Add(d)
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(time.Until(deadline)):
		return false
	}
}

// Pause stops workers from starting new tasks. In-flight tasks finish.
func (p *Pool) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume lets workers pull tasks again.
func (p *Pool) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
	p.notEmpty.Broadcast()
}

// Paused reports the pause flag.
func (p *Pool) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Shutdown stops the pool and joins the workers. Tasks still pending are
// dropped; their handles complete with ErrPoolStopped. Safe to call twice.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.workers.Wait()
		return
	}
	p.stopped = true
	var dropped []task
	for i := range p.queues {
		for !p.queues[i].empty() {
			dropped = append(dropped, p.queues[i].pop())
		}
	}
	p.pending = 0
	p.mu.Unlock()
	p.notEmpty.Broadcast()
	p.workers.Wait()

	for _, t := range dropped {
		t.handle.complete(ErrPoolStopped)
	}
	p.mu.Lock()
	p.drained.Broadcast()
	p.mu.Unlock()
}

// popLocked returns the next task honoring class priority then FIFO order.
func (p *Pool) popLocked() (task, bool) {
	for i := numPriorities - 1; i >= 0; i-- {
		if !p.queues[i].empty() {
			return p.queues[i].pop(), true
		}
	}
	return task{}, false
}

func (p *Pool) workerLoop(id int) {
	defer p.workers.Done()
	for {
		p.mu.Lock()
		for !p.stopped && (p.paused || p.pending == 0) {
			p.notEmpty.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		t, ok := p.popLocked()
		if !ok {
			p.mu.Unlock()
			continue
		}
		p.pending--
		p.active++
		p.mu.Unlock()

		started := time.Now()
		p.st.waitNs.Add(uint64(started.Sub(t.enqueuedAt).Nanoseconds()))

		err := p.runTask(id, t)
		p.st.execNs.Add(uint64(time.Since(started).Nanoseconds()))
		t.handle.complete(err)

		p.mu.Lock()
		// Completion and the active decrement commit together so the
		// accounting identity submitted == completed+pending+active holds
		// whenever the lock is observed.
		p.st.completed.Add(1)
		if err != nil {
			p.st.failed.Add(1)
		}
		p.active--
		if p.pending == 0 && p.active == 0 {
			p.drained.Broadcast()
		}
		p.mu.Unlock()
	}
}

// runTask executes one task, converting a panic into a runtime error so the
// worker survives.
func (p *Pool) runTask(id int, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Newf(errs.Runtime, "task panic: %v", r)
			if p.log != nil {
				p.log.Infof("worker %d recovered task panic: %v", id, r)
			}
		}
	}()
	if err := t.run(); err != nil {
		if p.log != nil {
			p.log.Debugf("worker %d task error: %v", id, err)
		}
		return fmt.Errorf("task: %w", err)
	}
	return nil
}
