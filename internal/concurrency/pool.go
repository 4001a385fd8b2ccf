// Package concurrency provides a small bounded worker pool used by stages
// that need to fan work out across goroutines without spawning one
// goroutine per item (the back-projection merge step runs one task per
// device).
package concurrency

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when submitting work to a closed pool.
var ErrPoolClosed = errors.New("concurrency: pool closed")

// Task is a unit of work submitted to the pool. It returns an error to
// signal failure; the first error observed by the pool is the one RunAll
// returns.
type Task func() error

// Pool runs submitted tasks on a fixed number of worker goroutines.
// Submit blocks once every worker is busy and the task buffer (one slot
// per worker) is full, which bounds the amount of in-flight work the same
// way the pipeline's bounded queues do.
type Pool struct {
	tasks  chan Task
	stopCh chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	failOnce sync.Once
	err      atomic.Value // error
}

// New starts a pool with the given number of workers. workers <= 0 is
// normalised to 1.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		tasks:  make(chan Task, workers),
		stopCh: make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			if err := t(); err != nil {
				p.setErr(err)
			}
		}
	}
}

func (p *Pool) setErr(err error) {
	p.failOnce.Do(func() { p.err.Store(err) })
}

// Submit enqueues a task. It blocks while the task buffer is full.
func (p *Pool) Submit(t Task) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case <-p.stopCh:
		return ErrPoolClosed
	case p.tasks <- t:
		return nil
	}
}

// RunAll submits every task and blocks until all of them complete,
// returning the first error observed, if any.
func (p *Pool) RunAll(tasks ...Task) error {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, t := range tasks {
		t := t
		_ = p.Submit(func() error {
			defer wg.Done()
			return t()
		})
	}
	wg.Wait()
	if v := p.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Close signals every worker to stop and waits for them to exit. Tasks
// still waiting in the buffer when Close is called are not guaranteed to
// run. Close is idempotent.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
}
