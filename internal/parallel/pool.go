// Package parallel provides the worker pool and row-band partitioning used by
// the software escape-time renderer.
//
// A frame is split into horizontal bands of rows that are evaluated
// independently. Each band is one work item; workers pull from their own queue
// and steal from others when idle, which balances bands whose points need very
// different iteration counts (bands crossing the set run the full budget).
package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is reported by a Batch submitted to a closed pool.
var ErrPoolClosed = errors.New("parallel: worker pool closed")

// task is one queued unit of work, already wrapped for error and panic
// reporting.
type task func()

// WorkerPool runs tasks on a fixed set of goroutines. Each goroutine owns a
// buffered queue; Go deals tasks to the queues round-robin and an idle
// goroutine takes tasks from its neighbours' queues. It is safe for
// concurrent use.
type WorkerPool struct {
	queues []chan task
	quit   chan struct{}
	exited sync.WaitGroup
	open   atomic.Bool

	// sending is held for reading while Go queues tasks and for writing by
	// Close, so no task is queued after the workers start to exit.
	sending sync.RWMutex
}

// NewWorkerPool starts n goroutines, or GOMAXPROCS of them when n <= 0.
func NewWorkerPool(n int) *WorkerPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	depth := max(4*n, 8)

	p := &WorkerPool{
		queues: make([]chan task, n),
		quit:   make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan task, depth)
	}
	p.open.Store(true)

	p.exited.Add(n)
	for i := range p.queues {
		go p.run(i)
	}
	return p
}

// run executes tasks for goroutine id until the pool is closed, then
// finishes whatever is left in its own queue.
func (p *WorkerPool) run(id int) {
	defer p.exited.Done()

	own := p.queues[id]
	for {
		var t task
		select {
		case t = <-own:
		case <-p.quit:
			p.flush(own)
			return
		default:
			if t = p.take(id); t == nil {
				select {
				case t = <-own:
				case <-p.quit:
					p.flush(own)
					return
				}
			}
		}
		t()
	}
}

// flush runs the tasks already buffered in q.
func (p *WorkerPool) flush(q chan task) {
	for {
		select {
		case t := <-q:
			t()
		default:
			return
		}
	}
}

// take returns a task from any queue other than id's, or nil.
func (p *WorkerPool) take(id int) task {
	n := len(p.queues)
	for off := 1; off < n; off++ {
		select {
		case t := <-p.queues[(id+off)%n]:
			return t
		default:
		}
	}
	return nil
}

// Batch tracks a group of work items submitted together.
type Batch struct {
	wg   sync.WaitGroup
	once sync.Once
	err  error
}

func (b *Batch) fail(err error) {
	b.once.Do(func() { b.err = err })
}

// Wait blocks until every item of the batch has finished and returns the
// first error any of them reported. A panicking item is reported as an error.
func (b *Batch) Wait() error {
	b.wg.Wait()
	return b.err
}

// Go queues work and returns at once; the Batch's Wait collects the result.
// Item i goes to queue i modulo the worker count.
func (p *WorkerPool) Go(work []func() error) *Batch {
	b := &Batch{}
	if len(work) == 0 {
		return b
	}
	p.sending.RLock()
	defer p.sending.RUnlock()
	if !p.open.Load() {
		b.fail(ErrPoolClosed)
		return b
	}

	n := len(p.queues)
	b.wg.Add(len(work))
	for i, fn := range work {
		t := task(func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.fail(fmt.Errorf("parallel: work item %d panicked: %v", i, r))
				}
			}()
			if err := fn(); err != nil {
				b.fail(err)
			}
		})

		p.queues[i%n] <- t
	}
	return b
}

// ExecuteAll runs work on the pool and returns once every item is done, with
// the first error reported.
func (p *WorkerPool) ExecuteAll(work []func() error) error {
	return p.Go(work).Wait()
}

// Close stops the pool after the queued tasks have run. Later calls return
// immediately.
func (p *WorkerPool) Close() {
	p.sending.Lock()
	if !p.open.CompareAndSwap(true, false) {
		p.sending.Unlock()
		return
	}
	close(p.quit)
	p.sending.Unlock()
	p.exited.Wait()
}

// Workers returns the number of goroutines.
func (p *WorkerPool) Workers() int {
	return len(p.queues)
}

// IsRunning reports whether Close has not been called yet.
func (p *WorkerPool) IsRunning() bool {
	return p.open.Load()
}
