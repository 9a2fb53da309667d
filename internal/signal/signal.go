// Package signal implements a synchronous publish/subscribe channel with
// explicit cancellation and deferred disposal.
package signal

import (
	"sync"
	"sync/atomic"

	"github.com/mj1618/desktop-narrator/internal/dispatch"
)

// Signal broadcasts values to its subscribers in subscription order.
type Signal[T any] struct {
	executor dispatch.Executor

	mu     sync.Mutex
	nextID uint64
	subs   []*entry[T]
}

type entry[T any] struct {
	id  uint64
	cb  func(T)
	sub *Subscription
}

// Option configures a Signal.
type Option func(*options)

type options struct {
	executor dispatch.Executor
}

// WithExecutor sets the context dispose callbacks run on. The default is the
// process-wide disposal queue.
func WithExecutor(e dispatch.Executor) Option {
	return func(o *options) {
		if e != nil {
			o.executor = e
		}
	}
}

// New creates an empty signal.
func New[T any](opts ...Option) *Signal[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.executor == nil {
		o.executor = dispatch.Default()
	}
	return &Signal[T]{executor: o.executor}
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*Subscription)

// OnDispose attaches a callback that runs exactly once after the
// subscription is cancelled.
func OnDispose(fn func()) SubscribeOption {
	return func(s *Subscription) {
		s.dispose = fn
	}
}

// Subscribe registers cb. The subscription stays live until Cancel.
func (s *Signal[T]) Subscribe(cb func(T), opts ...SubscribeOption) *Subscription {
	sub := &Subscription{executor: s.executor}
	for _, opt := range opts {
		opt(sub)
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, &entry[T]{id: id, cb: cb, sub: sub})
	s.mu.Unlock()

	sub.remove = func() { s.remove(id) }
	return sub
}

// Fire delivers v to a snapshot of the current subscribers on the calling
// goroutine. Subscribers cancelled before their turn are skipped.
func (s *Signal[T]) Fire(v T) {
	s.mu.Lock()
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	snapshot := make([]*entry[T], len(s.subs))
	copy(snapshot, s.subs)
	s.mu.Unlock()

	for _, e := range snapshot {
		if e.sub.Cancelled() {
			continue
		}
		e.cb(v)
	}
}

// Len returns the number of live subscribers.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Signal[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.subs {
		if e.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Subscription is the handle returned by Subscribe. It is owned by exactly
// one caller.
type Subscription struct {
	executor  dispatch.Executor
	cancelled atomic.Bool
	remove    func()
	dispose   func()
}

// Cancel stops delivery to the subscription. No callback starts after Cancel
// returns, but a delivery already in progress is not interrupted. The dispose
// callback is scheduled on the executor. Calling Cancel again is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	if s.remove != nil {
		s.remove()
	}
	if s.dispose != nil {
		dispose := s.dispose
		s.executor.Async(dispose)
	}
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription) Cancelled() bool {
	return s.cancelled.Load()
}
