package concurrency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolStopped is returned when submitting to a stopped pool.
	ErrPoolStopped = errors.New("pool is shutting down")
	// ErrQueueFull is returned when the job queue has no room.
	ErrQueueFull = errors.New("job queue is full")
)

// Job is a unit of work.
type Job interface {
	Execute(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

// Execute runs the function.
func (f JobFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// WorkerPool runs submitted jobs on a fixed number of goroutines.
// Submit never blocks: a full queue rejects the job.
type WorkerPool struct {
	size     int
	jobQueue chan Job
	onError  func(error)
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.RWMutex
	stopped bool
	started atomic.Bool

	processed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a pool. onError may be nil.
func NewWorkerPool(size, queueSize int, onError func(error)) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if onError == nil {
		onError = func(error) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		size:     size,
		jobQueue: make(chan Job, queueSize),
		onError:  onError,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *WorkerPool) Start() {
	if p.started.Swap(true) {
		return
	}
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for job := range p.jobQueue {
		p.execute(job)
	}
}

func (p *WorkerPool) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.onError(panicError{value: r})
		}
	}()

	if err := job.Execute(p.ctx); err != nil {
		p.failed.Add(1)
		p.onError(err)
		return
	}
	p.processed.Add(1)
}

// Submit enqueues a job without blocking.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new jobs, lets queued jobs finish and waits for the workers.
// If ctx expires first, running jobs see their context cancelled.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	if !p.started.Load() {
		p.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

// Stats returns the number of succeeded and failed jobs.
func (p *WorkerPool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return "job panicked"
}
