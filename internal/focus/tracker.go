// Package focus follows keyboard focus inside one application and keeps an
// event handler connected to the focused element.
package focus

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/eventhandler"
	"github.com/mj1618/desktop-narrator/internal/observer"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/signal"
)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("focus tracker stopped")

// Tracker reacts to focused element and focused window changes of an
// application. Each change disconnects the previous element's handler,
// connects one for the new element and speaks its description.
type Tracker struct {
	app       platform.Element
	obs       *observer.ApplicationObserver
	registrar *eventhandler.Registrar
	ctx       eventhandler.Context
	out       output.Sink
	logger    *zap.Logger

	mu      sync.Mutex
	subs    []*signal.Subscription
	current eventhandler.EventHandler
	started bool
	stopped bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRegistrar sets the registrar used to pick handlers.
func WithRegistrar(r *eventhandler.Registrar) Option {
	return func(t *Tracker) {
		if r != nil {
			t.registrar = r
		}
	}
}

// WithContext sets the collaborators passed to handlers. Its Observer is
// replaced by the tracker's observer.
func WithContext(c eventhandler.Context) Option {
	return func(t *Tracker) { t.ctx = c }
}

// New returns a tracker for the application observed by obs.
func New(obs *observer.ApplicationObserver, opts ...Option) *Tracker {
	t := &Tracker{
		app:       obs.Application(),
		obs:       obs,
		registrar: eventhandler.NewRegistrar(),
	}
	for _, o := range opts {
		o(t)
	}
	t.ctx.Observer = obs
	if t.ctx.Output == nil {
		t.ctx.Output = output.Discard
	}
	if t.ctx.Logger == nil {
		t.ctx.Logger = zap.NewNop()
	}
	t.out = t.ctx.Output
	t.logger = t.ctx.Logger.With(zap.Int("pid", obs.PID()))
	return t
}

// Start subscribes to focus notifications on the application element.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return ErrStopped
	}
	if t.started {
		return nil
	}
	if !t.obs.Valid() {
		return fmt.Errorf("track focus of %d: %w", t.obs.PID(), observer.ErrInvalidApplication)
	}
	subs := []*signal.Subscription{
		t.obs.Signal(t.app, platform.FocusedUIElementChanged).Subscribe(func(n platform.Notification) {
			t.ElementFocused(n.Element)
		}),
		t.obs.Signal(t.app, platform.FocusedWindowChanged).Subscribe(func(n platform.Notification) {
			t.WindowFocused(n.Element)
		}),
	}
	// Registration on an exited process invalidates the observer.
	if !t.obs.Valid() {
		for _, s := range subs {
			s.Cancel()
		}
		return fmt.Errorf("track focus of %d: %w", t.obs.PID(), observer.ErrInvalidApplication)
	}
	t.subs = subs
	t.started = true
	return nil
}

// Activate announces the application and then its current focus, the way
// switching to the application would.
func (t *Tracker) Activate() {
	app := t.registrar.EventHandler(t.app, t.ctx)
	if text, ok := app.FocusIn(); ok && text != "" {
		t.out.Submit(output.NewJob(output.QueueFocus, output.Interrupt, output.Speech(text)))
	}
	locator, ok := t.app.(platform.FocusLocator)
	if !ok {
		return
	}
	if el, err := locator.FocusedElement(); err == nil {
		t.ElementFocused(el)
		return
	}
	if win, err := locator.FocusedWindow(); err == nil {
		t.ElementFocused(win)
	}
}

// WindowFocused handles a focused window change. The application's focused
// element wins over the window when it can be resolved.
func (t *Tracker) WindowFocused(window platform.Element) {
	if locator, ok := t.app.(platform.FocusLocator); ok {
		if el, err := locator.FocusedElement(); err == nil {
			t.ElementFocused(el)
			return
		}
	}
	t.ElementFocused(window)
}

// ElementFocused moves the tracker to el. Refocusing the current element
// is ignored.
func (t *Tracker) ElementFocused(el platform.Element) {
	if el == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.current != nil && t.current.Element().ID() == el.ID() {
		return
	}
	t.release()

	h := t.registrar.EventHandler(el, t.ctx)
	h.Connect()
	t.current = h
	t.logger.Debug("focus changed",
		zap.String("element", string(el.ID())),
		zap.String("handler", h.Kind()))
	if text, ok := h.FocusIn(); ok && text != "" {
		t.out.Submit(output.NewJob(output.QueueFocus, output.Interrupt, output.Speech(text)))
	}
}

// release must be called with t.mu held.
func (t *Tracker) release() {
	if t.current == nil {
		return
	}
	if text, ok := t.current.FocusOut(); ok && text != "" {
		t.out.Submit(output.NewJob(output.QueueFocus, 0, output.Speech(text)))
	}
	t.current.Disconnect()
	t.current = nil
}

// Focused returns the handler of the focused element, or nil.
func (t *Tracker) Focused() eventhandler.EventHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Stop cancels the focus subscriptions and disconnects the focused handler.
// A stopped tracker cannot be restarted.
func (t *Tracker) Stop() {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.stopped = true
	t.release()
	t.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}
