package focus

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/observer"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/signal"
)

// WindowLifecycle follows the windows an application creates. Each created
// window is observed for AXUIElementDestroyed until it goes away.
type WindowLifecycle struct {
	app    platform.Element
	obs    *observer.ApplicationObserver
	logger *zap.Logger

	mu      sync.Mutex
	sub     *signal.Subscription
	windows map[platform.ElementID]observer.Token
	started bool
	stopped bool
}

// LifecycleOption configures a WindowLifecycle.
type LifecycleOption func(*WindowLifecycle)

// WithLifecycleLogger sets the lifecycle logger.
func WithLifecycleLogger(l *zap.Logger) LifecycleOption {
	return func(w *WindowLifecycle) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWindowLifecycle returns a window lifecycle for the application observed
// by obs.
func NewWindowLifecycle(obs *observer.ApplicationObserver, opts ...LifecycleOption) *WindowLifecycle {
	w := &WindowLifecycle{
		app:     obs.Application(),
		obs:     obs,
		logger:  zap.NewNop(),
		windows: make(map[platform.ElementID]observer.Token),
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = w.logger.With(zap.Int("pid", obs.PID()))
	return w
}

// Start subscribes to AXWindowCreated on the application element.
func (w *WindowLifecycle) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	if w.started {
		return nil
	}
	if !w.obs.Valid() {
		return fmt.Errorf("observe windows of %d: %w", w.obs.PID(), observer.ErrInvalidApplication)
	}
	sub := w.obs.Signal(w.app, platform.WindowCreated).Subscribe(func(n platform.Notification) {
		w.WindowCreated(n.Element)
	})
	if !w.obs.Valid() {
		sub.Cancel()
		return fmt.Errorf("observe windows of %d: %w", w.obs.PID(), observer.ErrInvalidApplication)
	}
	w.sub = sub
	w.started = true
	return nil
}

// WindowCreated starts observing the destruction of window. A window that is
// already observed is ignored.
func (w *WindowLifecycle) WindowCreated(window platform.Element) {
	if window == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	id := window.ID()
	if _, ok := w.windows[id]; ok {
		return
	}
	tok, err := w.obs.StartObserving(window, platform.UIElementDestroyed, func(platform.Notification) {
		w.WindowDestroyed(window)
	})
	if err != nil {
		w.logger.Warn("observe window failed", zap.String("window", string(id)), zap.Error(err))
		return
	}
	w.windows[id] = tok
	w.logger.Debug("window created", zap.String("window", string(id)))
}

// WindowDestroyed stops observing window. The registration is removed on the
// manager queue, never inside the notification callback that reported it.
func (w *WindowLifecycle) WindowDestroyed(window platform.Element) {
	if window == nil {
		return
	}
	id := window.ID()
	w.mu.Lock()
	tok, ok := w.windows[id]
	delete(w.windows, id)
	w.mu.Unlock()
	if !ok {
		return
	}
	w.logger.Debug("window destroyed", zap.String("window", string(id)))
	w.obs.Queue().Async(func() { w.release(id, tok) })
}

func (w *WindowLifecycle) release(id platform.ElementID, tok observer.Token) {
	err := w.obs.StopObserving(tok)
	switch {
	case err == nil:
	case errors.Is(err, observer.ErrInvalidToken):
		w.logger.Debug("window registration already released",
			zap.String("window", string(id)), zap.Error(err))
	default:
		w.logger.Warn("stop observing window failed",
			zap.String("window", string(id)), zap.Error(err))
	}
}

// Windows returns the IDs of the observed windows, sorted.
func (w *WindowLifecycle) Windows() []platform.ElementID {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]platform.ElementID, 0, len(w.windows))
	for id := range w.windows {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stop cancels the AXWindowCreated subscription and releases every window
// registration. A stopped lifecycle cannot be restarted.
func (w *WindowLifecycle) Stop() {
	w.mu.Lock()
	sub := w.sub
	w.sub = nil
	w.stopped = true
	windows := w.windows
	w.windows = make(map[platform.ElementID]observer.Token)
	w.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	ids := make([]platform.ElementID, 0, len(windows))
	for id := range windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		w.release(id, windows[id])
	}
}
