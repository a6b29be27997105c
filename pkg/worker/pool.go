// Package worker runs background tasks on a fixed pool of goroutines.
// The ingest path uses it to embed and index new records off the hot
// path. The queue is bounded; when it is full, tasks are dropped with a
// warning rather than blocking the caller.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const (
	// DefaultWorkers is the pool size when none is configured.
	DefaultWorkers = 4

	// DefaultQueueSize bounds the pending task queue.
	DefaultQueueSize = 256
)

// Task is a unit of background work.
type Task func(ctx context.Context)

// Pool is a bounded asynchronous task runner.
type Pool struct {
	logger *zap.Logger
	tasks  chan Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// New creates and starts a pool. Non-positive sizes fall back to the
// defaults.
func New(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger: logger,
		tasks:  make(chan Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task(p.ctx)
	}
}

// Submit enqueues a task. It returns false when the queue is full or the
// pool is stopped; the task is dropped in both cases.
func (p *Pool) Submit(task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		p.logger.Warn("task queue full, dropping task")
		return false
	}
}

// Stop drains queued tasks, waits for in-flight ones, then cancels the
// pool context. Safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}
