package observer

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/dispatch"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// Token identifies one StartObserving call. It is required to stop.
type Token uint64

// Key identifies one native registration slot.
type Key struct {
	Element      platform.ElementID
	Notification platform.NotificationName
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Element, k.Notification)
}

// slot holds the refcount and handlers for one key. Its mutex covers both the
// count and the native call that goes with a 0<->1 transition.
type slot struct {
	key     Key
	element platform.Element

	mu       sync.Mutex
	count    int
	handlers map[Token]platform.Callback
}

func (s *slot) dispatch(n platform.Notification) {
	s.mu.Lock()
	tokens := make([]Token, 0, len(s.handlers))
	for tok := range s.handlers {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	handlers := make([]platform.Callback, 0, len(tokens))
	for _, tok := range tokens {
		handlers = append(handlers, s.handlers[tok])
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(n)
	}
}

// ApplicationObserver multiplexes subscriptions for one process onto its
// native observer.
type ApplicationObserver struct {
	pid         int
	application platform.Element
	native      platform.NativeObserver
	manager     *Manager
	logger      *zap.Logger

	valid     atomic.Bool
	nextToken atomic.Uint64

	mu      sync.Mutex
	slots   map[Key]*slot
	tokens  map[Token]*slot
	signals map[Key]*ObserverSignal
}

func newApplicationObserver(pid int, application platform.Element, native platform.NativeObserver, m *Manager) *ApplicationObserver {
	o := &ApplicationObserver{
		pid:         pid,
		application: application,
		native:      native,
		manager:     m,
		logger:      m.logger.With(zap.Int("pid", pid)),
		slots:       make(map[Key]*slot),
		tokens:      make(map[Token]*slot),
		signals:     make(map[Key]*ObserverSignal),
	}
	o.valid.Store(true)
	return o
}

// PID returns the observed process identifier.
func (o *ApplicationObserver) PID() int { return o.pid }

// Application returns the application element the observer was registered for.
func (o *ApplicationObserver) Application() platform.Element { return o.application }

// Valid reports whether the observer can still register notifications.
func (o *ApplicationObserver) Valid() bool { return o.valid.Load() }

// Queue returns the manager queue that deferred disposal runs on.
func (o *ApplicationObserver) Queue() *dispatch.Queue { return o.manager.queue }

// Signal returns the cached signal for (element, notification), creating it
// on first use.
func (o *ApplicationObserver) Signal(element platform.Element, notification platform.NotificationName) *ObserverSignal {
	key := Key{Element: element.ID(), Notification: notification}

	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.signals[key]; ok {
		return s
	}
	s := newObserverSignal(o, element, notification)
	o.signals[key] = s
	return s
}

func (o *ApplicationObserver) slotFor(element platform.Element, notification platform.NotificationName) *slot {
	key := Key{Element: element.ID(), Notification: notification}

	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.slots[key]
	if !ok {
		s = &slot{key: key, element: element, handlers: make(map[Token]platform.Callback)}
		o.slots[key] = s
	}
	return s
}

// StartObserving adds handler for (element, notification). The first
// handler for a key registers with the native observer; if that fails the
// refcount is restored and the error returned.
func (o *ApplicationObserver) StartObserving(element platform.Element, notification platform.NotificationName, handler platform.Callback) (Token, error) {
	if !o.Valid() {
		return 0, fmt.Errorf("%w: pid %d", ErrInvalidApplication, o.pid)
	}
	s := o.slotFor(element, notification)

	s.mu.Lock()
	s.count++
	if s.count == 1 {
		if err := o.native.Register(s.element, notification, s.dispatch); err != nil {
			s.count--
			s.mu.Unlock()
			if !o.manager.liveness.Alive(o.pid) {
				o.valid.Store(false)
				o.logger.Warn("application exited, observer invalidated", zap.Error(err))
				return 0, fmt.Errorf("%w: pid %d: %w", ErrInvalidApplication, o.pid, err)
			}
			return 0, fmt.Errorf("register %s: %w", s.key, err)
		}
		o.logger.Debug("native registration added", zap.Stringer("key", s.key))
	}
	tok := Token(o.nextToken.Add(1))
	s.handlers[tok] = handler
	s.mu.Unlock()

	o.mu.Lock()
	o.tokens[tok] = s
	o.mu.Unlock()
	return tok, nil
}

// StopObserving removes the handler registered under token. The last handler
// for a key unregisters from the native observer. An unknown or already
// stopped token yields ErrInvalidToken and leaves every refcount unchanged.
func (o *ApplicationObserver) StopObserving(token Token) error {
	o.mu.Lock()
	s, ok := o.tokens[token]
	if ok {
		delete(o.tokens, token)
	}
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidToken, token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, token)
	s.count--
	if s.count == 0 {
		if err := o.native.Unregister(s.element, s.key.Notification); err != nil {
			if !o.manager.liveness.Alive(o.pid) {
				o.valid.Store(false)
			}
			return fmt.Errorf("unregister %s: %w", s.key, err)
		}
		o.logger.Debug("native registration removed", zap.Stringer("key", s.key))
	}
	return nil
}

// Stop stops every live token and marks every cached signal inactive, so a
// later subscriber starts native observation again. Errors are logged.
func (o *ApplicationObserver) Stop() {
	o.mu.Lock()
	tokens := make([]Token, 0, len(o.tokens))
	for tok := range o.tokens {
		tokens = append(tokens, tok)
	}
	signals := make([]*ObserverSignal, 0, len(o.signals))
	for _, sig := range o.signals {
		signals = append(signals, sig)
	}
	o.mu.Unlock()

	for _, sig := range signals {
		sig.reset()
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	for _, tok := range tokens {
		if err := o.StopObserving(tok); err != nil && !errors.Is(err, ErrInvalidToken) {
			o.logger.Warn("stop observing failed", zap.Uint64("token", uint64(tok)), zap.Error(err))
		}
	}
}

// RefCount returns the number of live handlers for (element, notification).
func (o *ApplicationObserver) RefCount(element platform.Element, notification platform.NotificationName) int {
	key := Key{Element: element.ID(), Notification: notification}
	o.mu.Lock()
	s, ok := o.slots[key]
	o.mu.Unlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
