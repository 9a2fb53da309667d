package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a half-open range of positions [Lower, Upper).
type Range[I comparable] struct {
	Lower I `yaml:"lower" json:"lower"`
	Upper I `yaml:"upper" json:"upper"`
}

// NewRange returns the range [lower, upper).
func NewRange[I comparable](lower, upper I) Range[I] {
	return Range[I]{Lower: lower, Upper: upper}
}

// IntRange builds a character-offset range from a location and a length.
func IntRange(location, length int) Range[int] {
	return Range[int]{Lower: location, Upper: location + length}
}

// Len returns the number of characters covered by an integer range.
func Len(r Range[int]) int {
	if r.Upper < r.Lower {
		return 0
	}
	return r.Upper - r.Lower
}

// TextMarker is an opaque, ordered location in rich text content. Only the
// element that produced a marker can compare or resolve it.
type TextMarker string

// MarkerAt returns the marker the scripted platform uses for a character offset.
func MarkerAt(offset int) TextMarker {
	return TextMarker("m:" + strconv.Itoa(offset))
}

// MarkerOffset resolves a marker created by MarkerAt.
func MarkerOffset(m TextMarker) (int, error) {
	s, ok := strings.CutPrefix(string(m), "m:")
	if !ok {
		return 0, fmt.Errorf("unrecognized text marker %q", string(m))
	}
	return strconv.Atoi(s)
}

// Attribute names carried by AttributeRun.
const (
	AttachmentAttribute = "AXAttachment"
	FontAttribute       = "AXFont"
	LinkAttribute       = "AXLink"
)

// AttributeRun applies a set of attributes to a character range.
type AttributeRun struct {
	Range      Range[int]        `yaml:"range"      json:"range"`
	Attributes map[string]string `yaml:"attributes" json:"attributes"`
}

// AttributedText is styled text returned for a range of an element.
type AttributedText struct {
	Text string         `yaml:"text"           json:"text"`
	Runs []AttributeRun `yaml:"runs,omitempty" json:"runs,omitempty"`
}

// Attachments returns the attachment attribute values in run order.
func (t AttributedText) Attachments() []string {
	var out []string
	for _, run := range t.Runs {
		if v, ok := run.Attributes[AttachmentAttribute]; ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}
