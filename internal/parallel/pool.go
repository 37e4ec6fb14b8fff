// Package parallel runs batches of independent jobs on a fixed set of
// worker goroutines.
package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a set of worker goroutines with per-worker queues.
//
// Jobs are distributed round-robin. A worker that runs out of its own work
// steals from the other queues, which keeps the batch balanced when some
// jobs are slower than others.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int

	// queues holds per-worker work queues.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}
	wg   sync.WaitGroup

	running atomic.Bool
}

// New starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

// steal takes one job from another worker's queue, or returns nil.
func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// Run calls job(0) through job(n-1) on the workers and waits for all of
// them. Errors are joined in index order. On a closed pool the jobs run on
// the calling goroutine.
func (p *Pool) Run(n int, job func(i int) error) error {
	if n <= 0 {
		return nil
	}
	errs := make([]error, n)

	if !p.running.Load() {
		for i := range n {
			errs[i] = job(i)
		}
		return errors.Join(errs...)
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		work := func() {
			defer wg.Done()
			errs[i] = job(i)
		}
		select {
		case p.queues[i%p.workers] <- work:
		case <-p.done:
			work()
		}
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Close stops the workers once their queued jobs have run. It must not be
// called concurrently with Run. Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
