// Package echo speaks the text a caret moved over. A handler watches one
// element's selected-text notifications, keeps the previous selection as a
// baseline and emits the span between the old and new caret positions.
package echo

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/observer"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/selection"
	"github.com/mj1618/desktop-narrator/internal/signal"
)

// Echoer is the domain independent view of a Handler.
type Echoer interface {
	Start() error
	Stop()
}

// Handler tracks the selection of one element.
type Handler[I comparable] struct {
	domain   Domain[I]
	observer *observer.ApplicationObserver
	sink     output.Sink
	logger   *zap.Logger
	target   func() (platform.Element, error)

	mu       sync.Mutex
	previous *model.Range[I]
	sub      *signal.Subscription
}

// Option configures a Handler.
type Option func(*config)

type config struct {
	sink   output.Sink
	logger *zap.Logger
}

// WithOutput sets the sink speech jobs are submitted to.
func WithOutput(s output.Sink) Option {
	return func(c *config) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newHandler[I comparable](d Domain[I], obs *observer.ApplicationObserver, opts []Option) *Handler[I] {
	c := config{sink: output.Discard, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	h := &Handler[I]{
		domain:   d,
		observer: obs,
		sink:     c.sink,
		logger:   c.logger.With(zap.String("element", string(d.Element().ID()))),
	}
	h.target = func() (platform.Element, error) { return d.Element(), nil }
	return h
}

// NewIntegerIndex returns a handler for an element addressed by character
// offsets.
func NewIntegerIndex(el platform.TextElement, obs *observer.ApplicationObserver, opts ...Option) *Handler[int] {
	return newHandler[int](integerDomain{el: el}, obs, opts)
}

// NewTextMarker returns a handler for an element addressed by text markers.
// WebKit posts selection changes on the element itself; Blink posts them on
// the application, which is detected by probing a WebKit only attribute.
func NewTextMarker(el platform.MarkerTextElement, obs *observer.ApplicationObserver, opts ...Option) *Handler[model.TextMarker] {
	h := newHandler[model.TextMarker](markerDomain{el: el}, obs, opts)
	h.target = func() (platform.Element, error) { return markerTarget(el) }
	return h
}

func markerTarget(el platform.MarkerTextElement) (platform.Element, error) {
	wk, ok := el.(platform.WebKitElement)
	if !ok {
		return el, nil
	}
	if _, err := wk.CaretBrowsingEnabled(); err == nil {
		return el, nil
	}
	locator, ok := el.(platform.ApplicationLocator)
	if !ok {
		return nil, fmt.Errorf("locate application of %s: %w", el.ID(), platform.ErrUnsupported)
	}
	app, err := locator.Application()
	if err != nil {
		return nil, fmt.Errorf("locate application of %s: %w", el.ID(), err)
	}
	return app, nil
}

// Start subscribes to selected-text notifications. It is a no-op when the
// handler is already started.
func (h *Handler[I]) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sub != nil {
		return nil
	}
	target, err := h.target()
	if err != nil {
		return err
	}
	sig := h.observer.Signal(target, platform.SelectedTextChanged)
	h.sub = sig.Subscribe(h.notify)
	h.logger.Debug("selection echo started", zap.String("target", string(target.ID())))
	return nil
}

// Stop cancels the subscription. It is a no-op when not started.
func (h *Handler[I]) Stop() {
	h.mu.Lock()
	sub := h.sub
	h.sub = nil
	h.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Started reports whether the handler is subscribed.
func (h *Handler[I]) Started() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sub != nil
}

func (h *Handler[I]) notify(n platform.Notification) {
	change, err := h.domain.Classify(n.Info)
	if err != nil {
		if !errors.Is(err, selection.ErrNoEvent) {
			h.logger.Debug("selection change dropped", zap.Error(err))
		}
		return
	}
	h.Handle(change)
}

// PreviousSelection returns the current baseline, nil before the first move.
func (h *Handler[I]) PreviousSelection() *model.Range[I] {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.previous == nil {
		return nil
	}
	out := *h.previous
	return &out
}

// Handle applies a decoded change. Only moves are acted on.
func (h *Handler[I]) Handle(change selection.Change[I]) {
	if change.Kind != selection.KindMove {
		return
	}
	if text, ok := h.move(change.Navigation); ok {
		h.sink.Submit(output.NewJob(output.QueueSelection, 0, output.Speech(text)))
	}
}

func (h *Handler[I]) move(nav selection.Navigation[I]) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.previous == nil {
		if nav.Selection != nil {
			sel := *nav.Selection
			h.previous = &sel
		}
		return "", false
	}
	if nav.Selection == nil {
		return "", false
	}

	previous := *h.previous
	current := *nav.Selection
	h.previous = &current

	if previous == current {
		return "", false
	}

	a, b := previous.Lower, current.Lower
	if nav.Direction.Backward() {
		a, b = b, a
	}
	span, err := h.domain.RangeForUnorderedPositions(a, b)
	if err != nil {
		h.logger.Debug("selection delta failed", zap.Error(err))
		return "", false
	}
	text, err := h.domain.AttributedText(span)
	if err != nil {
		h.logger.Debug("selection text failed", zap.Error(err))
		return "", false
	}
	return text.Text, true
}
