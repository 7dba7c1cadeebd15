// Package workerpool provides the asynchronous dispatch queue that decouples
// transport goroutines from delivery work.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

const logPrefix = "workerpool:pool"

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

// ErrClosed is returned by Submit after the pool has been closed.
var ErrClosed = errors.New("workerpool: closed")

// Job is a unit of work run on a worker goroutine.
type Job func(ctx context.Context)

// Queue accepts jobs for later execution. Jobs submitted independently may run
// in any order.
type Queue interface {
	Submit(job Job) error
}

// Pool runs jobs on a fixed set of worker goroutines fed by a buffered channel.
// Submit never holds the lock while it waits for buffer space; Close wakes
// waiting senders through quit and closes jobs only once they have left.
type Pool struct {
	workers int
	jobs    chan Job
	quit    chan struct{}

	mu      sync.Mutex
	closed  bool
	started bool
	group   *errgroup.Group
	senders sync.WaitGroup
}

// New creates a Pool. Non-positive arguments fall back to defaults.
func New(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, queueSize),
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. ctx is handed to every job; cancelling it does
// not stop the workers, Close does.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	g := &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			p.work(ctx, id)
			return nil
		})
	}
	p.group = g
	slog.Debug(fmt.Sprintf("%s - started %d workers", logPrefix, p.workers))
}

// Submit enqueues job. While the buffer is full it blocks until space frees
// up or the pool is closed, in which case it returns ErrClosed.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return fmt.Errorf("%s - nil job", logPrefix)
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.senders.Add(1)
	p.mu.Unlock()
	defer p.senders.Done()

	select {
	case <-p.quit:
		return ErrClosed
	default:
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrClosed
	}
}

// Close stops accepting jobs, releases blocked Submit calls, waits for queued
// jobs to finish and stops the workers. Jobs still buffered in a pool that was
// never started are discarded. It is safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.quit)
	g := p.group
	p.mu.Unlock()

	p.senders.Wait()
	close(p.jobs)

	if g == nil {
		if n := len(p.jobs); n > 0 {
			slog.Warn(fmt.Sprintf("%s - discarded %d jobs queued on a pool that never started", logPrefix, n))
		}
		return nil
	}
	return g.Wait()
}

func (p *Pool) work(ctx context.Context, id int) {
	for job := range p.jobs {
		run(ctx, id, job)
	}
}

func run(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - worker %d recovered from panic: %v", logPrefix, id, r))
		}
	}()
	job(ctx)
}

// Inline runs every job synchronously on the submitting goroutine.
type Inline struct{}

// Submit runs job immediately.
func (Inline) Submit(job Job) error {
	if job == nil {
		return fmt.Errorf("%s - nil job", logPrefix)
	}
	run(context.Background(), -1, job)
	return nil
}
