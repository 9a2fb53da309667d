package scripted

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/platform"
)

var (
	// ErrAlreadyRegistered is returned when an element and notification pair
	// is registered twice on one observer.
	ErrAlreadyRegistered = errors.New("notification already registered")
	// ErrNotRegistered is returned when unregistering an unknown pair.
	ErrNotRegistered = errors.New("notification not registered")
	// ErrObserverInvalid is returned once the observed process has exited.
	ErrObserverInvalid = errors.New("observer invalid")
)

type registration struct {
	element platform.ElementID
	name    platform.NotificationName
}

func (r registration) String() string {
	return fmt.Sprintf("%s/%s", r.element, r.name)
}

// Observer is the scripted native observer of one process. Like its
// platform counterpart it allows a single registration per element and
// notification pair, and calls back outside its own lock.
type Observer struct {
	world  *World
	pid    int
	logger *zap.Logger

	mu            sync.Mutex
	registrations map[registration]platform.Callback
	invalid       bool
	registers     int
	unregisters   int
}

func newObserver(w *World, pid int, logger *zap.Logger) *Observer {
	return &Observer{
		world:         w,
		pid:           pid,
		logger:        logger.With(zap.Int("pid", pid)),
		registrations: make(map[registration]platform.Callback),
	}
}

// Register records callback for notifications named name on element.
func (o *Observer) Register(element platform.Element, name platform.NotificationName, callback platform.Callback) error {
	if element == nil || callback == nil {
		return fmt.Errorf("register %s: %w", name, platform.ErrNoValue)
	}
	if _, ok := o.world.Lookup(element.ID()); !ok {
		return fmt.Errorf("register %s on %s: %w", name, element.ID(), platform.ErrNoValue)
	}
	key := registration{element: element.ID(), name: name}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.invalid {
		return ErrObserverInvalid
	}
	if _, ok := o.registrations[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrAlreadyRegistered)
	}
	o.registrations[key] = callback
	o.registers++
	o.logger.Debug("registered", zap.Stringer("key", key))
	return nil
}

// Unregister removes a registration.
func (o *Observer) Unregister(element platform.Element, name platform.NotificationName) error {
	key := registration{element: element.ID(), name: name}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.invalid {
		return ErrObserverInvalid
	}
	if _, ok := o.registrations[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrNotRegistered)
	}
	delete(o.registrations, key)
	o.unregisters++
	o.logger.Debug("unregistered", zap.Stringer("key", key))
	return nil
}

// Registered reports whether element and name are currently registered.
func (o *Observer) Registered(element string, name platform.NotificationName) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.registrations[registration{element: platform.ElementID(element), name: name}]
	return ok
}

// Registrations lists the active registrations as "element/notification",
// sorted.
func (o *Observer) Registrations() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.registrations))
	for key := range o.registrations {
		out = append(out, key.String())
	}
	sort.Strings(out)
	return out
}

// Calls returns the number of successful Register and Unregister calls.
func (o *Observer) Calls() (registers, unregisters int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registers, o.unregisters
}

func (o *Observer) invalidate() {
	o.mu.Lock()
	o.invalid = true
	o.registrations = make(map[registration]platform.Callback)
	o.mu.Unlock()
}

func (o *Observer) deliver(target platform.ElementID, n platform.Notification) {
	o.mu.Lock()
	cb, ok := o.registrations[registration{element: target, name: n.Name}]
	invalid := o.invalid
	o.mu.Unlock()
	if !ok || invalid {
		o.logger.Debug("notification not observed",
			zap.String("element", string(target)),
			zap.String("notification", string(n.Name)))
		return
	}
	cb(n)
}
