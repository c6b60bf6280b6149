package workerpool

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrStopped = errors.New("worker pool stopped")

// Pool runs submitted jobs on a fixed number of workers. A panicking job is
// logged and does not take its worker down.
type Pool struct {
	jobs    chan func()
	workers int
	log     *zap.Logger

	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// New creates a pool with workers goroutines and a queue of queueSize jobs.
func New(workers, queueSize int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		jobs:    make(chan func(), queueSize),
		workers: workers,
		log:     log,
		quit:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	p.log.Debug("worker pool started", zap.Int("workers", p.workers))
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			p.runSafe(id, job)
		case <-p.quit:
			// drain what was accepted before Stop
			for {
				select {
				case job := <-p.jobs:
					p.runSafe(id, job)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) runSafe(id int, job func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("job panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	job()
}

// Submit queues job, blocking while the queue is full until ctx is done.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues job only if there is room.
func (p *Pool) TrySubmit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop rejects new jobs, runs the queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()
	p.wg.Wait()
}
