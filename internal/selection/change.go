// Package selection classifies selected-text notifications into edit, move,
// extend and boundary events over either integer offsets or text markers.
package selection

import (
	"fmt"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// Kind is the variant of a Change.
type Kind int

const (
	KindEdit Kind = iota + 1
	KindMove
	KindExtend
	KindBoundary
)

func (k Kind) String() string {
	switch k {
	case KindEdit:
		return "edit"
	case KindMove:
		return "move"
	case KindExtend:
		return "extend"
	case KindBoundary:
		return "boundary"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// EditKind describes how text was edited.
type EditKind int

const (
	EditDelete EditKind = iota + 1
	EditInsert
	EditTyping
	EditDictation
	EditCut
	EditPaste
	EditAttributesChange
)

var editNames = map[EditKind]string{
	EditDelete:           "delete",
	EditInsert:           "insert",
	EditTyping:           "typing",
	EditDictation:        "dictation",
	EditCut:              "cut",
	EditPaste:            "paste",
	EditAttributesChange: "attributesChange",
}

func (e EditKind) String() string {
	if s, ok := editNames[e]; ok {
		return s
	}
	return fmt.Sprintf("EditKind(%d)", int(e))
}

// Direction is the direction of a selection navigation. DirectionNone means
// the producer did not report one.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionBeginning
	DirectionEnd
	DirectionPrevious
	DirectionNext
	DirectionDiscontiguous
)

var directionNames = map[Direction]string{
	DirectionNone:          "none",
	DirectionBeginning:     "beginning",
	DirectionEnd:           "end",
	DirectionPrevious:      "previous",
	DirectionNext:          "next",
	DirectionDiscontiguous: "discontiguous",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Backward reports whether the navigation moved toward the start of the text.
func (d Direction) Backward() bool {
	return d == DirectionPrevious || d == DirectionBeginning
}

// Granularity is the text unit of a navigation. GranularityNone means the
// producer did not report one; GranularityUnknown is a reported but
// unspecified unit.
type Granularity int

const (
	GranularityNone Granularity = iota
	GranularityUnknown
	GranularityCharacter
	GranularityWord
	GranularityLine
	GranularitySentence
	GranularityParagraph
	GranularityPage
	GranularityDocument
	// GranularityAll is selecting the whole document in one action.
	GranularityAll
)

var granularityNames = map[Granularity]string{
	GranularityNone:      "none",
	GranularityUnknown:   "unknown",
	GranularityCharacter: "character",
	GranularityWord:      "word",
	GranularityLine:      "line",
	GranularitySentence:  "sentence",
	GranularityParagraph: "paragraph",
	GranularityPage:      "page",
	GranularityDocument:  "document",
	GranularityAll:       "all",
}

func (g Granularity) String() string {
	if s, ok := granularityNames[g]; ok {
		return s
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// Navigation describes a move, extend or boundary event.
type Navigation[I comparable] struct {
	// Element is the element the change happened in, nil when not reported.
	Element platform.Element
	// Selection is nil when the producer sent no selected range.
	Selection    *model.Range[I]
	Direction    Direction
	Granularity  Granularity
	FocusChanged bool
	Sync         bool
}

// Change is a decoded selection change. Edit is set for KindEdit and
// Navigation for every other kind.
type Change[I comparable] struct {
	Kind       Kind
	Edit       EditKind
	Navigation Navigation[I]
}

// NewEdit returns an edit change.
func NewEdit[I comparable](kind EditKind) Change[I] {
	return Change[I]{Kind: KindEdit, Edit: kind}
}

// NewMove returns a move change.
func NewMove[I comparable](nav Navigation[I]) Change[I] {
	return Change[I]{Kind: KindMove, Navigation: nav}
}

// NewExtend returns an extend change.
func NewExtend[I comparable](nav Navigation[I]) Change[I] {
	return Change[I]{Kind: KindExtend, Navigation: nav}
}

// NewBoundary returns a boundary change.
func NewBoundary[I comparable](nav Navigation[I]) Change[I] {
	return Change[I]{Kind: KindBoundary, Navigation: nav}
}

func (c Change[I]) String() string {
	if c.Kind == KindEdit {
		return fmt.Sprintf("edit(%s)", c.Edit)
	}
	n := c.Navigation
	sel := "nil"
	if n.Selection != nil {
		sel = fmt.Sprintf("%v..%v", n.Selection.Lower, n.Selection.Upper)
	}
	return fmt.Sprintf("%s(selection=%s direction=%s granularity=%s focusChanged=%t sync=%t)",
		c.Kind, sel, n.Direction, n.Granularity, n.FocusChanged, n.Sync)
}
