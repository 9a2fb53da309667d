// Package eventhandler turns focus transitions into spoken descriptions.
// Each focused element gets an EventHandler chosen by role and subrole.
package eventhandler

import (
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/describe"
	"github.com/mj1618/desktop-narrator/internal/observer"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// EventHandler reacts to one element gaining and losing focus.
type EventHandler interface {
	Element() platform.Element
	// Kind names the handler, e.g. "button".
	Kind() string
	Connect()
	// FocusIn returns the description to speak, ok is false for silence.
	FocusIn() (string, bool)
	FocusOut() (string, bool)
	Disconnect()
}

// Context carries the collaborators handlers are built with.
type Context struct {
	Observer  *observer.ApplicationObserver
	Describer describe.Describer
	Output    output.Sink
	Logger    *zap.Logger
}

func (c Context) withDefaults() Context {
	if c.Describer == nil {
		c.Describer = describe.New()
	}
	if c.Output == nil {
		c.Output = output.Discard
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Constructor builds a handler for el.
type Constructor func(el platform.Element, ctx Context) EventHandler

// Described is a handler whose focus-in text comes from one describer call.
type Described struct {
	kind      string
	element   platform.Element
	describer describe.Describer
	logger    *zap.Logger
	requests  []describe.Request
	combine   func(describe.Results) (string, bool)
}

func newDescribed(kind string, el platform.Element, ctx Context, combine func(describe.Results) (string, bool), requests ...describe.Request) *Described {
	ctx = ctx.withDefaults()
	return &Described{
		kind:      kind,
		element:   el,
		describer: ctx.Describer,
		logger:    ctx.Logger,
		requests:  requests,
		combine:   combine,
	}
}

// Element returns the handled element.
func (d *Described) Element() platform.Element { return d.element }

// Kind names the handler.
func (d *Described) Kind() string { return d.kind }

// Requests returns the describer requests issued on focus-in.
func (d *Described) Requests() []describe.Request { return d.requests }

// Connect is a no-op.
func (d *Described) Connect() {}

// Disconnect is a no-op.
func (d *Described) Disconnect() {}

// FocusIn describes the element. A failed description is silence.
func (d *Described) FocusIn() (string, bool) {
	results, err := d.describer.Describe(d.element, d.requests)
	if err != nil {
		d.logger.Debug("no description",
			zap.String("handler", d.kind),
			zap.String("element", string(d.element.ID())),
			zap.Error(err))
		return "", false
	}
	return d.combine(results)
}

// FocusOut is always silent.
func (d *Described) FocusOut() (string, bool) { return "", false }

func concat(r describe.Results) (string, bool) { return r.Concat() }
func first(r describe.Results) (string, bool)  { return r.First() }
func commaJoin(r describe.Results) (string, bool) {
	return r.Join(", ")
}

// StaticText speaks the text's value.
func StaticText(el platform.Element, ctx Context) EventHandler {
	return newDescribed("staticText", el, ctx, concat,
		describe.Single{Required: true, Attribute: describe.StringValue})
}

// TextField speaks the field's value.
func TextField(el platform.Element, ctx Context) EventHandler {
	return newDescribed("textField", el, ctx, first,
		describe.Single{Required: true, Attribute: describe.StringValue})
}

// TextAttachment speaks the attachment descriptions embedded in the text.
func TextAttachment(el platform.Element, ctx Context) EventHandler {
	return newDescribed("textAttachment", el, ctx, first,
		describe.Single{Required: true, Attribute: describe.AttachmentText})
}

func label(attrs ...describe.Attribute) describe.Request {
	return describe.Fallthrough{Required: true, Attributes: attrs}
}

// Button speaks the button's label and role.
func Button(el platform.Element, ctx Context) EventHandler {
	return newDescribed("button", el, ctx, commaJoin, controlRequests()...)
}

// Default describes any element without a dedicated handler.
func Default(el platform.Element, ctx Context) EventHandler {
	return newDescribed("default", el, ctx, commaJoin, controlRequests()...)
}

func controlRequests() []describe.Request {
	return []describe.Request{
		label(describe.Title, describe.Description, describe.StringValue,
			describe.TitleElement(label(describe.Title, describe.Description, describe.StringValue))),
		describe.Single{Required: true, Attribute: describe.RoleDescription},
	}
}

// Toggle speaks the label, on/off state and role.
func Toggle(el platform.Element, ctx Context) EventHandler {
	return newDescribed("toggle", el, ctx, commaJoin,
		label(describe.TitleElement(label(describe.StringValue, describe.Title, describe.Description)),
			describe.Title, describe.Description, describe.StringValue),
		describe.Single{Required: true, Attribute: describe.ToggleValue},
		describe.Single{Required: true, Attribute: describe.RoleDescription})
}

// Checkbox speaks the label, checked state and role.
func Checkbox(el platform.Element, ctx Context) EventHandler {
	return newDescribed("checkbox", el, ctx, commaJoin,
		label(describe.Title, describe.Description,
			describe.TitleElement(label(describe.StringValue, describe.Title, describe.Description))),
		describe.Single{Required: true, Attribute: describe.CheckboxValue},
		describe.Single{Required: true, Attribute: describe.RoleDescription})
}

// Window speaks the window title and role when available.
func Window(el platform.Element, ctx Context) EventHandler {
	return newDescribed("window", el, ctx, commaJoin,
		describe.Single{Attribute: describe.Title},
		describe.Single{Attribute: describe.RoleDescription})
}

// Application speaks the application title.
func Application(el platform.Element, ctx Context) EventHandler {
	return newDescribed("application", el, ctx, func(r describe.Results) (string, bool) {
		if s, ok := r.First(); ok && s != "" {
			return s, true
		}
		return "unknown application", true
	}, describe.Single{Attribute: describe.Title})
}
