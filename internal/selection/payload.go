package selection

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cast"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// Payload keys of a selected-text-changed notification.
const (
	KeyChangeType   = "AXTextStateChangeType"
	KeyEditType     = "AXTextEditType"
	KeyDirection    = "AXTextSelectionDirection"
	KeyGranularity  = "AXTextSelectionGranularity"
	KeyFocusChanged = "AXTextSelectionChangedFocus"
	KeySync         = "AXTextStateSync"
	KeyChangeElem   = "AXTextChangeElement"
	KeySelection    = "AXSelectedTextMarkerRange"
)

// Raw enum values used on the wire. Zero is the unknown sentinel for every
// enum.
const rawUnknown = 0

const (
	rawChangeEdit = iota + 1
	rawChangeMove
	rawChangeExtend
	rawChangeBoundary
)

var rawDirections = map[int]Direction{
	1: DirectionBeginning,
	2: DirectionEnd,
	3: DirectionPrevious,
	4: DirectionNext,
	5: DirectionDiscontiguous,
}

var rawGranularities = map[int]Granularity{
	1: GranularityCharacter,
	2: GranularityWord,
	3: GranularityLine,
	4: GranularitySentence,
	5: GranularityParagraph,
	6: GranularityPage,
	7: GranularityDocument,
	8: GranularityAll,
}

var errOutOfRange = errors.New("value out of range")

// readInt reads an integer key. The bool result is false when the key is
// absent. Booleans and fractional floats are rejected even though cast
// would coerce them.
func readInt(info platform.Info, key string) (int, bool, error) {
	v, ok := info[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch f := v.(type) {
	case bool:
		return 0, true, &DecodeError{Key: key, Value: v, Err: platform.ErrTypeMismatch}
	case float32:
		if float64(f) != math.Trunc(float64(f)) {
			return 0, true, &DecodeError{Key: key, Value: v, Err: platform.ErrTypeMismatch}
		}
	case float64:
		if f != math.Trunc(f) {
			return 0, true, &DecodeError{Key: key, Value: v, Err: platform.ErrTypeMismatch}
		}
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, true, &DecodeError{Key: key, Value: v, Err: fmt.Errorf("%w: %w", platform.ErrTypeMismatch, err)}
	}
	return n, true, nil
}

// readFlag reads an optional boolean key, defaulting to false.
func readFlag(info platform.Info, key string) (bool, error) {
	v, ok := info[key]
	if !ok || v == nil {
		return false, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, &DecodeError{Key: key, Value: v, Err: fmt.Errorf("%w: %w", platform.ErrTypeMismatch, err)}
	}
	return b, nil
}

// readElement reads the optional changed element.
func readElement(info platform.Info) (platform.Element, error) {
	v, ok := info[KeyChangeElem]
	if !ok || v == nil {
		return nil, nil
	}
	el, ok := v.(platform.Element)
	if !ok {
		return nil, &DecodeError{Key: KeyChangeElem, Value: v, Err: platform.ErrTypeMismatch}
	}
	return el, nil
}

// readSelection reads the optional selected range.
func readSelection[I comparable](info platform.Info) (*model.Range[I], error) {
	v, ok := info[KeySelection]
	if !ok || v == nil {
		return nil, nil
	}
	switch r := v.(type) {
	case model.Range[I]:
		return &r, nil
	case *model.Range[I]:
		if r == nil {
			return nil, nil
		}
		out := *r
		return &out, nil
	}
	return nil, &DecodeError{Key: KeySelection, Value: v, Err: platform.ErrTypeMismatch}
}

// RawChangeType returns the wire value of k.
func RawChangeType(k Kind) int {
	switch k {
	case KindEdit:
		return rawChangeEdit
	case KindMove:
		return rawChangeMove
	case KindExtend:
		return rawChangeExtend
	case KindBoundary:
		return rawChangeBoundary
	}
	return rawUnknown
}

// RawValue returns the wire value of d. DirectionNone maps to the unknown
// sentinel.
func (d Direction) RawValue() int {
	for raw, dir := range rawDirections {
		if dir == d {
			return raw
		}
	}
	return rawUnknown
}

// RawValue returns the wire value of g. GranularityNone and
// GranularityUnknown map to the unknown sentinel.
func (g Granularity) RawValue() int {
	for raw, gran := range rawGranularities {
		if gran == g {
			return raw
		}
	}
	return rawUnknown
}

// ParseDirection parses a direction name as printed by String.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return DirectionNone, fmt.Errorf("unknown direction %q", s)
}

// ParseGranularity parses a granularity name as printed by String.
func ParseGranularity(s string) (Granularity, error) {
	for g, name := range granularityNames {
		if name == s {
			return g, nil
		}
	}
	return GranularityNone, fmt.Errorf("unknown granularity %q", s)
}
