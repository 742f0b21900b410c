// Package scheduler runs background tasks handed off by request handlers.
// Submission is fire-and-forget: a failed or dropped task is logged, never
// surfaced to the submitting request.
package scheduler

import (
	"go.uber.org/zap"
)

// Task is a named unit of background work.
type Task struct {
	Name string
	Run  func() error
}

// Scheduler accepts tasks for asynchronous execution.
type Scheduler interface {
	Enqueue(task Task)
	Stop()
}

// Pool is a fixed worker pool over a buffered queue. When the queue is full
// the task is dropped with a warning rather than blocking the caller.
type Pool struct {
	queue  chan Task
	done   chan struct{}
	logger *zap.Logger
}

// NewPool starts workers goroutines draining a queue of the given size.
func NewPool(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &Pool{
		queue:  make(chan Task, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for {
		select {
		case task := <-p.queue:
			p.run(task)
		case <-p.done:
			return
		}
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("background task panicked",
				zap.String("task", task.Name),
				zap.Any("panic", rec))
		}
	}()
	if err := task.Run(); err != nil {
		p.logger.Warn("background task failed",
			zap.String("task", task.Name),
			zap.Error(err))
	}
}

// Enqueue submits a task without blocking. A saturated queue drops the task.
func (p *Pool) Enqueue(task Task) {
	select {
	case p.queue <- task:
	default:
		p.logger.Warn("background queue full, dropping task",
			zap.String("task", task.Name))
	}
}

// Stop signals the workers to exit. Queued tasks that no worker has picked
// up yet are abandoned.
func (p *Pool) Stop() {
	close(p.done)
}

// Inline executes tasks synchronously on the calling goroutine. It exists so
// tests can assert on task side effects without sleeping.
type Inline struct {
	logger *zap.Logger
}

// NewInline creates a synchronous scheduler.
func NewInline(logger *zap.Logger) *Inline {
	return &Inline{logger: logger}
}

// Enqueue runs the task immediately, logging a failure like the pool does.
func (s *Inline) Enqueue(task Task) {
	if err := task.Run(); err != nil {
		s.logger.Warn("background task failed",
			zap.String("task", task.Name),
			zap.Error(err))
	}
}

// Stop is a no-op for the inline scheduler.
func (s *Inline) Stop() {}
