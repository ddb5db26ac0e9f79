// Package workerpool runs display jobs off the goroutine that requested them.
// A pool with one worker also serializes display changes made by hotkeys.
package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/displayhotkeys/dhk/internal/logging"
)

var log = logging.L("workerpool")

// Job is a named unit of work. A returned error is logged, never retried.
type Job struct {
	Name string
	Run  func() error
}

// Pool runs jobs on a fixed number of goroutines from a bounded queue.
type Pool struct {
	mu     sync.RWMutex // held for reading while enqueueing; Shutdown closes under the write lock
	closed bool
	queue  chan Job
	done   chan struct{}

	completed atomic.Uint64
	failed    atomic.Uint64
}

func New(workers, queueSize int) *Pool {
	workers = max(workers, 1)
	p := &Pool{queue: make(chan Job, max(queueSize, 1)), done: make(chan struct{})}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range p.queue {
				p.run(job)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(p.done)
	}()
	return p
}

// Submit queues job without blocking. It reports false when the queue is
// full or the pool is shut down.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- job:
		return true
	default:
		log.Warn("queue full, job rejected", "job", job.Name)
		return false
	}
}

// Pending is the number of queued jobs not yet picked up by a worker.
func (p *Pool) Pending() int { return len(p.queue) }

// Shutdown stops accepting jobs and waits for queued and running ones to
// finish. When ctx ends first the remaining jobs keep running in the
// background and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		log.Warn("shutdown timed out", "pending", p.Pending())
		return ctx.Err()
	}
}

// Stats returns the number of jobs that finished without and with an error.
func (p *Pool) Stats() (completed, failed uint64) {
	return p.completed.Load(), p.failed.Load()
}

func (p *Pool) run(job Job) {
	start := time.Now()
	err := safely(job.Run)
	ms := time.Since(start).Milliseconds()
	if err != nil {
		p.failed.Add(1)
		log.Warn("job failed", "job", job.Name, logging.KeyError, err.Error(), logging.KeyDurationMs, ms)
		return
	}
	p.completed.Add(1)
	log.Debug("job done", "job", job.Name, logging.KeyDurationMs, ms)
}

// safely turns a panic in fn into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
