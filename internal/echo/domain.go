package echo

import (
	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/selection"
)

// Domain binds a handler to one text addressing scheme.
type Domain[I comparable] interface {
	Element() platform.Element
	Classify(info platform.Info) (selection.Change[I], error)
	RangeForUnorderedPositions(a, b I) (model.Range[I], error)
	AttributedText(r model.Range[I]) (model.AttributedText, error)
}

type integerDomain struct {
	el platform.TextElement
}

func (d integerDomain) Element() platform.Element { return d.el }

func (d integerDomain) Classify(info platform.Info) (selection.Change[int], error) {
	return selection.FromIntegerIndexNotification(info, d.el)
}

func (d integerDomain) RangeForUnorderedPositions(a, b int) (model.Range[int], error) {
	return d.el.RangeForUnorderedPositions(a, b)
}

func (d integerDomain) AttributedText(r model.Range[int]) (model.AttributedText, error) {
	return d.el.AttributedText(r)
}

type markerDomain struct {
	el platform.MarkerTextElement
}

func (d markerDomain) Element() platform.Element { return d.el }

func (d markerDomain) Classify(info platform.Info) (selection.Change[model.TextMarker], error) {
	return selection.FromTextMarkerNotification(info, d.el)
}

func (d markerDomain) RangeForUnorderedPositions(a, b model.TextMarker) (model.Range[model.TextMarker], error) {
	return d.el.MarkerRangeForUnorderedPositions(a, b)
}

func (d markerDomain) AttributedText(r model.Range[model.TextMarker]) (model.AttributedText, error) {
	return d.el.AttributedTextForMarkerRange(r)
}
