// Package observer multiplexes logical notification subscriptions onto one
// native observer per application, reference counting interest per
// (element, notification) key so the native registration is added and
// removed at most once per transition.
package observer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/dispatch"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// Manager owns the observers for every monitored application, keyed by
// process identifier. It is constructed and closed explicitly by the host.
type Manager struct {
	provider  platform.ObserverProvider
	logger    *zap.Logger
	queue     *dispatch.Queue
	ownsQueue bool
	liveness  LivenessChecker

	mu        sync.Mutex
	observers map[int]*ApplicationObserver
	closed    bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithQueue sets the queue disposal work runs on. Without it the manager
// creates and owns a private queue.
func WithQueue(q *dispatch.Queue) ManagerOption {
	return func(m *Manager) {
		if q != nil {
			m.queue = q
		}
	}
}

// WithLiveness sets the process liveness check. The default consults the
// process table.
func WithLiveness(c LivenessChecker) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.liveness = c
		}
	}
}

// NewManager creates a manager that builds native observers with provider.
func NewManager(provider platform.ObserverProvider, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider:  provider,
		logger:    zap.NewNop(),
		liveness:  ProcessLiveness,
		observers: make(map[int]*ApplicationObserver),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.queue == nil {
		m.queue = dispatch.NewQueue("observer.dispose", dispatch.WithLogger(m.logger))
		m.ownsQueue = true
	}
	return m
}

// Queue returns the queue subscription disposal runs on.
func (m *Manager) Queue() *dispatch.Queue {
	return m.queue
}

// RegisterObserver returns the observer for the application's process,
// creating it through the provider on first use. An observer that was
// marked invalid is replaced.
func (m *Manager) RegisterObserver(application platform.Element) (*ApplicationObserver, error) {
	if application == nil {
		return nil, fmt.Errorf("%w: nil application", ErrInvalidApplication)
	}
	pid := application.ProcessIdentifier()
	if pid <= 0 {
		return nil, fmt.Errorf("%w: pid %d", ErrInvalidApplication, pid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: manager closed", ErrInvalidApplication)
	}

	if existing, ok := m.observers[pid]; ok {
		if existing.Valid() {
			return existing, nil
		}
		m.logger.Info("replacing invalid observer", zap.Int("pid", pid))
		delete(m.observers, pid)
		existing.Stop()
	}

	if m.provider == nil {
		return nil, fmt.Errorf("%w: pid %d: no observer provider", ErrInvalidApplication, pid)
	}
	native, err := m.provider(pid)
	if err != nil {
		return nil, fmt.Errorf("%w: pid %d: %w", ErrInvalidApplication, pid, err)
	}

	obs := newApplicationObserver(pid, application, native, m)
	m.observers[pid] = obs
	m.logger.Debug("observer registered", zap.Int("pid", pid))
	return obs, nil
}

// Observer returns the registered observer for pid.
func (m *Manager) Observer(pid int) (*ApplicationObserver, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obs, ok := m.observers[pid]
	return obs, ok
}

// Len returns the number of registered observers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers)
}

// Close stops every observer and drains pending disposal work. Later
// registrations fail.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	observers := m.observers
	m.observers = make(map[int]*ApplicationObserver)
	m.mu.Unlock()

	m.queue.Flush()
	for _, obs := range observers {
		obs.Stop()
	}
	if m.ownsQueue {
		m.queue.Close()
	}
}
