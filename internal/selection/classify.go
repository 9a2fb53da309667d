package selection

import (
	"fmt"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// FromIntegerIndexNotification classifies a notification from an element
// addressed by character offsets. These producers send no structured
// payload, so info is ignored and the element's current selection is
// reported as a discontiguous move of el.
func FromIntegerIndexNotification(_ platform.Info, el platform.TextElement) (Change[int], error) {
	ranges, err := el.SelectedRanges()
	if err != nil {
		return Change[int]{}, err
	}
	return synthesizeMove(el, ranges)
}

// FromTextMarkerNotification classifies a notification from an element
// addressed by text markers. A nil payload is treated like the integer
// domain; otherwise the payload is decoded with DecodeRich.
func FromTextMarkerNotification(info platform.Info, el platform.MarkerTextElement) (Change[model.TextMarker], error) {
	if info == nil {
		ranges, err := el.SelectedMarkerRanges()
		if err != nil {
			return Change[model.TextMarker]{}, err
		}
		return synthesizeMove(el, ranges)
	}
	return DecodeRich[model.TextMarker](info)
}

func synthesizeMove[I comparable](el platform.Element, ranges []model.Range[I]) (Change[I], error) {
	if len(ranges) == 0 {
		return Change[I]{}, fmt.Errorf("selected ranges: %w", platform.ErrNoValue)
	}
	sel := ranges[0]
	return NewMove(Navigation[I]{
		Element:     el,
		Selection:   &sel,
		Direction:   DirectionDiscontiguous,
		Granularity: GranularityUnknown,
	}), nil
}

// DecodeRich decodes a hierarchical payload keyed by the change type. A
// payload without a change type, or with the unknown change type, comes from
// a producer that only sends the flat shape and is decoded with
// DecodeFallback.
func DecodeRich[I comparable](info platform.Info) (Change[I], error) {
	raw, present, err := readInt(info, KeyChangeType)
	if err != nil {
		return Change[I]{}, err
	}
	if !present {
		return fallbackMove[I](info)
	}

	switch raw {
	case rawUnknown:
		return fallbackMove[I](info)
	case rawChangeEdit:
		return decodeEdit[I](info)
	case rawChangeMove, rawChangeExtend, rawChangeBoundary:
		nav, err := DecodeNavigation[I](info)
		if err != nil {
			return Change[I]{}, err
		}
		switch raw {
		case rawChangeMove:
			return NewMove(nav), nil
		case rawChangeExtend:
			return NewExtend(nav), nil
		default:
			return NewBoundary(nav), nil
		}
	}
	return Change[I]{}, &DecodeError{Key: KeyChangeType, Value: raw, Err: errOutOfRange}
}

func decodeEdit[I comparable](info platform.Info) (Change[I], error) {
	raw, present, err := readInt(info, KeyEditType)
	if err != nil || !present || raw == rawUnknown {
		return Change[I]{}, ErrNoEvent
	}
	kind := EditKind(raw)
	if _, ok := editNames[kind]; !ok {
		return Change[I]{}, ErrNoEvent
	}
	return NewEdit[I](kind), nil
}

func fallbackMove[I comparable](info platform.Info) (Change[I], error) {
	nav, err := DecodeFallback[I](info)
	if err != nil {
		return Change[I]{}, err
	}
	return NewMove(nav), nil
}

// DecodeNavigation decodes direction, granularity, flags, element and
// selection. Direction and granularity are required. Values outside their
// enums fail, but the unknown sentinel in either routes to DecodeFallback.
func DecodeNavigation[I comparable](info platform.Info) (Navigation[I], error) {
	rawDir, err := requireInt(info, KeyDirection)
	if err != nil {
		return Navigation[I]{}, err
	}
	direction, ok := rawDirections[rawDir]
	if !ok && rawDir != rawUnknown {
		return Navigation[I]{}, &DecodeError{Key: KeyDirection, Value: rawDir, Err: errOutOfRange}
	}

	rawGran, err := requireInt(info, KeyGranularity)
	if err != nil {
		return Navigation[I]{}, err
	}
	granularity, ok := rawGranularities[rawGran]
	if !ok && rawGran != rawUnknown {
		return Navigation[I]{}, &DecodeError{Key: KeyGranularity, Value: rawGran, Err: errOutOfRange}
	}

	if rawDir == rawUnknown || rawGran == rawUnknown {
		return DecodeFallback[I](info)
	}

	nav, err := decodeCommon[I](info)
	if err != nil {
		return Navigation[I]{}, err
	}
	nav.Direction = direction
	nav.Granularity = granularity
	return nav, nil
}

func requireInt(info platform.Info, key string) (int, error) {
	n, present, err := readInt(info, key)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, &DecodeError{Key: key, Err: platform.ErrNoValue}
	}
	return n, nil
}

// DecodeFallback decodes the flat payload shape. Direction and granularity
// are left unset and every field is optional.
func DecodeFallback[I comparable](info platform.Info) (Navigation[I], error) {
	return decodeCommon[I](info)
}

func decodeCommon[I comparable](info platform.Info) (Navigation[I], error) {
	var nav Navigation[I]
	var err error
	if nav.FocusChanged, err = readFlag(info, KeyFocusChanged); err != nil {
		return Navigation[I]{}, err
	}
	if nav.Sync, err = readFlag(info, KeySync); err != nil {
		return Navigation[I]{}, err
	}
	if nav.Element, err = readElement(info); err != nil {
		return Navigation[I]{}, err
	}
	if nav.Selection, err = readSelection[I](info); err != nil {
		return Navigation[I]{}, err
	}
	return nav, nil
}
