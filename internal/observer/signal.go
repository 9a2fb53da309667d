package observer

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/signal"
)

// ObserverSignal is the subscription point for one (element, notification)
// key. Observation starts with the first subscriber and stops after the last
// subscription is disposed.
type ObserverSignal struct {
	observer     *ApplicationObserver
	element      platform.Element
	notification platform.NotificationName
	inner        *signal.Signal[platform.Notification]
	logger       *zap.Logger

	mu     sync.Mutex
	count  int
	token  Token
	active bool
}

func newObserverSignal(o *ApplicationObserver, element platform.Element, notification platform.NotificationName) *ObserverSignal {
	return &ObserverSignal{
		observer:     o,
		element:      element,
		notification: notification,
		inner:        signal.New[platform.Notification](signal.WithExecutor(o.manager.queue)),
		logger: o.logger.With(
			zap.String("element", string(element.ID())),
			zap.String("notification", string(notification))),
	}
}

// Element returns the observed element.
func (s *ObserverSignal) Element() platform.Element { return s.element }

// Notification returns the observed notification name.
func (s *ObserverSignal) Notification() platform.NotificationName { return s.notification }

// Subscribe adds cb. The returned subscription is always usable; if native
// observation cannot be started the failure is logged and cb never fires.
func (s *ObserverSignal) Subscribe(cb func(platform.Notification)) *signal.Subscription {
	s.increment()
	return s.inner.Subscribe(cb, signal.OnDispose(s.decrement))
}

// Subscribers returns the number of subscriptions not yet disposed.
func (s *ObserverSignal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Active reports whether native observation is running for this key.
func (s *ObserverSignal) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *ObserverSignal) increment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.active {
		return
	}
	tok, err := s.observer.StartObserving(s.element, s.notification, s.inner.Fire)
	if err != nil {
		s.logger.Warn("start observing failed", zap.Error(err))
		return
	}
	s.token = tok
	s.active = true
}

// reset forgets the native token after the observer stopped it. Existing
// subscriptions stay counted.
func (s *ObserverSignal) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.token = 0
}

// decrement runs on the manager queue, never inside a notification callback.
func (s *ObserverSignal) decrement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return
	}
	s.count--
	if s.count > 0 || !s.active {
		return
	}
	s.active = false
	if err := s.observer.StopObserving(s.token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.logger.Debug("stop observing on stale token", zap.Error(err))
			return
		}
		s.logger.Warn("stop observing failed", zap.Error(err))
	}
}
