// Package dispatch provides the serial execution context used for work that
// must never run inline inside a notification dispatch, such as subscription
// disposal and native de-registration.
package dispatch

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Executor runs work asynchronously.
type Executor interface {
	Async(fn func())
}

// Queue is an unbounded FIFO executor backed by a single goroutine. Tasks
// never run concurrently with each other, and Async never blocks, so it is
// safe to call from inside notification callbacks.
type Queue struct {
	name   string
	logger *zap.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(l *zap.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// NewQueue creates and starts a queue.
func NewQueue(name string, opts ...Option) *Queue {
	q := &Queue{
		name:   name,
		logger: zap.NewNop(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.run()
	return q
}

// Name returns the queue label.
func (q *Queue) Name() string {
	return q.name
}

// Async enqueues fn. Tasks submitted after Close are dropped.
func (q *Queue) Async(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Debug("task dropped on closed queue", zap.String("queue", q.name))
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Sync enqueues fn and waits for it to finish. It returns false if the queue
// was closed. Sync must not be called from a task running on q.
func (q *Queue) Sync(fn func()) bool {
	finished := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, func() {
		defer close(finished)
		fn()
	})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-finished
	return true
}

// Flush waits until every task enqueued before the call has run.
func (q *Queue) Flush() {
	q.Sync(func() {})
}

// Close stops accepting tasks, runs what is already queued, and waits for the
// worker to exit. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for range q.wake {
		for {
			q.mu.Lock()
			if len(q.pending) == 0 {
				closed := q.closed
				q.mu.Unlock()
				if closed {
					return
				}
				break
			}
			batch := q.pending
			q.pending = nil
			q.mu.Unlock()

			for _, fn := range batch {
				q.execute(fn)
			}
		}
	}
}

func (q *Queue) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue task panicked",
				zap.String("queue", q.name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	fn()
}

var (
	defaultOnce  sync.Once
	defaultQueue *Queue
)

// Default returns the process-wide disposal queue, used when a component is
// not given one explicitly.
func Default() *Queue {
	defaultOnce.Do(func() {
		defaultQueue = NewQueue("narrator.dispose")
	})
	return defaultQueue
}
