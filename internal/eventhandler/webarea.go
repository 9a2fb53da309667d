package eventhandler

import (
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/echo"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// WebArea echoes caret movement inside web content. It has no focus-in
// description of its own.
type WebArea struct {
	element platform.Element
	ctx     Context
	logger  *zap.Logger
	handler echo.Echoer
}

// NewWebArea builds the web area handler.
func NewWebArea(el platform.Element, ctx Context) EventHandler {
	ctx = ctx.withDefaults()
	return &WebArea{
		element: el,
		ctx:     ctx,
		logger:  ctx.Logger.With(zap.String("element", string(el.ID()))),
	}
}

// Element returns the web area.
func (w *WebArea) Element() platform.Element { return w.element }

// Kind names the handler.
func (w *WebArea) Kind() string { return "webArea" }

// Connect starts echoing selection changes. Elements that expose a text
// marker use the marker domain, others character offsets.
func (w *WebArea) Connect() {
	if w.handler != nil {
		return
	}
	if w.ctx.Observer == nil {
		w.logger.Debug("web area without observer")
		return
	}
	opts := []echo.Option{echo.WithOutput(w.ctx.Output), echo.WithLogger(w.ctx.Logger)}
	if marker, ok := w.element.(platform.MarkerTextElement); ok {
		if _, err := marker.FirstMarker(); err == nil {
			w.handler = echo.NewTextMarker(marker, w.ctx.Observer, opts...)
		}
	}
	if w.handler == nil {
		text, ok := w.element.(platform.TextElement)
		if !ok {
			w.logger.Debug("web area exposes no text")
			return
		}
		w.handler = echo.NewIntegerIndex(text, w.ctx.Observer, opts...)
	}
	if err := w.handler.Start(); err != nil {
		w.logger.Warn("selection echo not started", zap.Error(err))
	}
}

// Domain reports which echo handler Connect chose: "marker", "integer" or
// "" before Connect.
func (w *WebArea) Domain() string {
	switch w.handler.(type) {
	case *echo.Handler[int]:
		return "integer"
	case nil:
		return ""
	default:
		return "marker"
	}
}

// FocusIn is silent.
func (w *WebArea) FocusIn() (string, bool) { return "", false }

// FocusOut is silent.
func (w *WebArea) FocusOut() (string, bool) { return "", false }

// Disconnect stops the echo handler.
func (w *WebArea) Disconnect() {
	if w.handler != nil {
		w.handler.Stop()
		w.handler = nil
	}
}
