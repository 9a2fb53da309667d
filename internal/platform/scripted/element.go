package scripted

import (
	"fmt"
	"unicode/utf8"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// Element is a live handle to a node of a World. Queries read the current
// state, so a handle observes later script steps.
type Element struct {
	world *World
	id    platform.ElementID
}

var (
	_ platform.TextElement        = (*Element)(nil)
	_ platform.MarkerTextElement  = (*Element)(nil)
	_ platform.WebKitElement        = (*Element)(nil)
	_ platform.ApplicationLocator = (*Element)(nil)
	_ platform.FocusLocator       = (*Element)(nil)
)

// ID returns the element ID.
func (e *Element) ID() platform.ElementID { return e.id }

// ProcessIdentifier returns the pid of the owning application.
func (e *Element) ProcessIdentifier() int {
	n, ok := e.world.snapshot(e.id)
	if !ok {
		return 0
	}
	return n.pid
}

func (e *Element) String() string { return string(e.id) }

func (e *Element) data() (model.Element, error) {
	n, ok := e.world.snapshot(e.id)
	if !ok {
		return model.Element{}, fmt.Errorf("element %q: %w", e.id, platform.ErrNoValue)
	}
	return n.data, nil
}

func (e *Element) attr(get func(model.Element) string) (string, error) {
	d, err := e.data()
	if err != nil {
		return "", err
	}
	v := get(d)
	if v == "" {
		return "", platform.ErrNoValue
	}
	return v, nil
}

// Role returns the AX role.
func (e *Element) Role() (string, error) {
	return e.attr(func(d model.Element) string { return d.Role })
}

// Subrole returns the AX subrole.
func (e *Element) Subrole() (string, error) {
	return e.attr(func(d model.Element) string { return d.Subrole })
}

// RoleDescription returns the scripted role description. Absent
// descriptions are ErrNoValue; callers derive one from the role.
func (e *Element) RoleDescription() (string, error) {
	return e.attr(func(d model.Element) string { return d.RoleDescription })
}

// Title returns the title.
func (e *Element) Title() (string, error) {
	return e.attr(func(d model.Element) string { return d.Title })
}

// TitleElement returns the labelling element.
func (e *Element) TitleElement() (platform.Element, error) {
	id, err := e.attr(func(d model.Element) string { return d.TitleElement })
	if err != nil {
		return nil, err
	}
	el, ok := e.world.Lookup(platform.ElementID(id))
	if !ok {
		return nil, fmt.Errorf("title element %q: %w", id, platform.ErrNoValue)
	}
	return el, nil
}

// Description returns the description.
func (e *Element) Description() (string, error) {
	return e.attr(func(d model.Element) string { return d.Description })
}

// Value returns the raw value as loaded from the script.
func (e *Element) Value() (any, error) {
	d, err := e.data()
	if err != nil {
		return nil, err
	}
	if d.Value == nil {
		return nil, platform.ErrNoValue
	}
	return d.Value, nil
}

// URL returns the URL attribute.
func (e *Element) URL() (string, error) {
	return e.attr(func(d model.Element) string { return d.URL })
}

// NumberOfCharacters returns the rune length of a text element's value.
func (e *Element) NumberOfCharacters() (int, error) {
	d, err := e.textData()
	if err != nil {
		return 0, err
	}
	return runeCount(d.Value), nil
}

func (e *Element) textData() (model.Element, error) {
	d, err := e.data()
	if err != nil {
		return d, err
	}
	if d.Text == nil {
		return d, platform.ErrUnsupported
	}
	if _, ok := d.Value.(string); !ok && d.Value != nil {
		return d, fmt.Errorf("value is %T: %w", d.Value, platform.ErrTypeMismatch)
	}
	return d, nil
}

func (e *Element) integerText() (model.Element, error) {
	d, err := e.textData()
	if err != nil {
		return d, err
	}
	if d.Text.Markers {
		return d, platform.ErrUnsupported
	}
	return d, nil
}

func (e *Element) markerText() (model.Element, error) {
	d, err := e.textData()
	if err != nil {
		return d, err
	}
	if !d.Text.Markers {
		return d, platform.ErrUnsupported
	}
	return d, nil
}

// SelectedRanges returns the current selection of an integer-indexed text
// element. An element without a selection reports ErrNoValue.
func (e *Element) SelectedRanges() ([]model.Range[int], error) {
	d, err := e.integerText()
	if err != nil {
		return nil, err
	}
	if len(d.Text.Selected) == 0 {
		return nil, platform.ErrNoValue
	}
	return d.Text.Selected, nil
}

// RangeForUnorderedPositions orders a and b into a range.
func (e *Element) RangeForUnorderedPositions(a, b int) (model.Range[int], error) {
	d, err := e.integerText()
	if err != nil {
		return model.Range[int]{}, err
	}
	return orderedRange(a, b, runeCount(d.Value))
}

// AttributedText returns the text and attribute runs covering r.
func (e *Element) AttributedText(r model.Range[int]) (model.AttributedText, error) {
	d, err := e.integerText()
	if err != nil {
		return model.AttributedText{}, err
	}
	return attributed(d, r)
}

// FirstMarker returns the marker of the first character. Only elements
// scripted with markers support it.
func (e *Element) FirstMarker() (model.TextMarker, error) {
	if _, err := e.markerText(); err != nil {
		return "", err
	}
	return model.MarkerAt(0), nil
}

// SelectedMarkerRanges returns the selection as marker ranges.
func (e *Element) SelectedMarkerRanges() ([]model.Range[model.TextMarker], error) {
	d, err := e.markerText()
	if err != nil {
		return nil, err
	}
	if len(d.Text.Selected) == 0 {
		return nil, platform.ErrNoValue
	}
	out := make([]model.Range[model.TextMarker], len(d.Text.Selected))
	for i, r := range d.Text.Selected {
		out[i] = MarkerRange(r)
	}
	return out, nil
}

// MarkerRangeForUnorderedPositions orders two markers into a range.
func (e *Element) MarkerRangeForUnorderedPositions(a, b model.TextMarker) (model.Range[model.TextMarker], error) {
	d, err := e.markerText()
	if err != nil {
		return model.Range[model.TextMarker]{}, err
	}
	r, err := offsets(model.NewRange(a, b))
	if err != nil {
		return model.Range[model.TextMarker]{}, err
	}
	ordered, err := orderedRange(r.Lower, r.Upper, runeCount(d.Value))
	if err != nil {
		return model.Range[model.TextMarker]{}, err
	}
	return MarkerRange(ordered), nil
}

// AttributedTextForMarkerRange returns the text covering a marker range.
func (e *Element) AttributedTextForMarkerRange(r model.Range[model.TextMarker]) (model.AttributedText, error) {
	d, err := e.markerText()
	if err != nil {
		return model.AttributedText{}, err
	}
	ir, err := offsets(r)
	if err != nil {
		return model.AttributedText{}, err
	}
	return attributed(d, ir)
}

// CaretBrowsingEnabled is the WebKit-only check. Blink content fails it.
func (e *Element) CaretBrowsingEnabled() (bool, error) {
	d, err := e.data()
	if err != nil {
		return false, err
	}
	if d.Text != nil && d.Text.Blink {
		return false, platform.ErrUnsupported
	}
	return false, nil
}

// Application returns the owning application element.
func (e *Element) Application() (platform.Element, error) {
	pid := e.ProcessIdentifier()
	e.world.mu.Lock()
	app, ok := e.world.apps[pid]
	e.world.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("application of %q: %w", e.id, platform.ErrNoValue)
	}
	return &Element{world: e.world, id: app.element}, nil
}

// FocusedElement returns the focused element of an application element.
func (e *Element) FocusedElement() (platform.Element, error) {
	return e.focus(func(a *appState) platform.ElementID { return a.focused })
}

// FocusedWindow returns the focused window of an application element.
func (e *Element) FocusedWindow() (platform.Element, error) {
	return e.focus(func(a *appState) platform.ElementID { return a.focusedWindow })
}

func (e *Element) focus(get func(*appState) platform.ElementID) (platform.Element, error) {
	pid := e.ProcessIdentifier()
	e.world.mu.Lock()
	app, ok := e.world.apps[pid]
	var id platform.ElementID
	if ok {
		ok = app.element == e.id
		id = get(app)
	}
	e.world.mu.Unlock()
	if !ok {
		return nil, platform.ErrUnsupported
	}
	if id == "" {
		return nil, platform.ErrNoValue
	}
	return &Element{world: e.world, id: id}, nil
}

// MarkerRange converts a character range to the markers scripted elements
// produce.
func MarkerRange(r model.Range[int]) model.Range[model.TextMarker] {
	return model.NewRange(model.MarkerAt(r.Lower), model.MarkerAt(r.Upper))
}

func offsets(r model.Range[model.TextMarker]) (model.Range[int], error) {
	lower, err := model.MarkerOffset(r.Lower)
	if err != nil {
		return model.Range[int]{}, fmt.Errorf("%w: %w", platform.ErrTypeMismatch, err)
	}
	upper, err := model.MarkerOffset(r.Upper)
	if err != nil {
		return model.Range[int]{}, fmt.Errorf("%w: %w", platform.ErrTypeMismatch, err)
	}
	return model.NewRange(lower, upper), nil
}

func orderedRange(a, b, n int) (model.Range[int], error) {
	if a > b {
		a, b = b, a
	}
	if a < 0 || b > n {
		return model.Range[int]{}, fmt.Errorf("positions %d..%d out of bounds: %w", a, b, platform.ErrNoValue)
	}
	return model.NewRange(a, b), nil
}

func attributed(d model.Element, r model.Range[int]) (model.AttributedText, error) {
	runes := []rune(textOf(d.Value))
	if r.Lower < 0 || r.Upper < r.Lower || r.Upper > len(runes) {
		return model.AttributedText{}, fmt.Errorf("range %v out of bounds: %w", r, platform.ErrNoValue)
	}
	out := model.AttributedText{Text: string(runes[r.Lower:r.Upper])}
	for _, run := range d.Text.Attributes {
		lower := max(run.Range.Lower, r.Lower)
		upper := min(run.Range.Upper, r.Upper)
		if lower >= upper {
			continue
		}
		out.Runs = append(out.Runs, model.AttributeRun{
			Range:      model.NewRange(lower-r.Lower, upper-r.Lower),
			Attributes: run.Attributes,
		})
	}
	return out, nil
}

func textOf(v any) string {
	s, _ := v.(string)
	return s
}

func runeCount(v any) int {
	return utf8.RuneCountInString(textOf(v))
}
