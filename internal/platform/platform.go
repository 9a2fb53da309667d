// Package platform defines the capabilities the narrator consumes from an
// accessibility backend: queryable elements and native notification
// observers. Backends live in subpackages.
package platform

import (
	"errors"

	"github.com/mj1618/desktop-narrator/internal/model"
)

var (
	// ErrNoValue is returned when a requested attribute or selection does not exist.
	ErrNoValue = errors.New("no value")

	// ErrTypeMismatch is returned when an attribute exists but has the wrong shape.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnsupported is returned when an element does not support a query.
	ErrUnsupported = errors.New("attribute unsupported")
)

// ElementID identifies an element. Two Element values with the same ID refer
// to the same node.
type ElementID string

// Element is a read-only node in the accessibility tree. Every query returns
// ErrNoValue when the attribute is absent and ErrTypeMismatch when the
// attribute is present with an unexpected shape.
type Element interface {
	ID() ElementID
	ProcessIdentifier() int

	Role() (string, error)
	Subrole() (string, error)
	RoleDescription() (string, error)
	Title() (string, error)
	TitleElement() (Element, error)
	Description() (string, error)
	Value() (any, error)
	URL() (string, error)
	NumberOfCharacters() (int, error)
}

// TextElement exposes text addressed by integer character offsets.
type TextElement interface {
	Element
	SelectedRanges() ([]model.Range[int], error)
	RangeForUnorderedPositions(a, b int) (model.Range[int], error)
	AttributedText(r model.Range[int]) (model.AttributedText, error)
}

// MarkerTextElement exposes text addressed by opaque text markers, used by
// web content where character offsets are not stable.
type MarkerTextElement interface {
	Element
	FirstMarker() (model.TextMarker, error)
	SelectedMarkerRanges() ([]model.Range[model.TextMarker], error)
	MarkerRangeForUnorderedPositions(a, b model.TextMarker) (model.Range[model.TextMarker], error)
	AttributedTextForMarkerRange(r model.Range[model.TextMarker]) (model.AttributedText, error)
}

// WebKitElement is implemented by elements that can report WebKit-only state.
// Blink based content fails the check.
type WebKitElement interface {
	CaretBrowsingEnabled() (bool, error)
}

// ApplicationLocator is implemented by elements that can find their
// owning application element.
type ApplicationLocator interface {
	Application() (Element, error)
}

// FocusLocator is implemented by application elements that report focus.
type FocusLocator interface {
	FocusedElement() (Element, error)
	FocusedWindow() (Element, error)
}

// NativeObserver is the per-application native notification registration
// handle. Register and Unregister are fast, fallible, synchronous calls.
type NativeObserver interface {
	Register(element Element, name NotificationName, callback Callback) error
	Unregister(element Element, name NotificationName) error
}

// ObserverProvider creates the native observer for a process.
type ObserverProvider func(pid int) (NativeObserver, error)
