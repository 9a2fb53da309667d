// Package describe builds spoken descriptions of elements by probing an
// ordered list of attributes.
package describe

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

// ErrNilRequirement is returned when a required request has no value.
var ErrNilRequirement = errors.New("required attribute has no value")

// Describer resolves requests against an element.
type Describer interface {
	Describe(el platform.Element, requests []Request) (Results, error)
}

// ElementDescriber is the Describer backed by platform element queries.
type ElementDescriber struct {
	printer *message.Printer
	logger  *zap.Logger
}

// Option configures an ElementDescriber.
type Option func(*ElementDescriber)

// WithLanguage sets the locale numbers are formatted in.
func WithLanguage(tag language.Tag) Option {
	return func(d *ElementDescriber) {
		d.printer = message.NewPrinter(tag)
	}
}

// WithLogger sets the describer logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *ElementDescriber) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns an ElementDescriber formatting numbers in English by default.
func New(opts ...Option) *ElementDescriber {
	d := &ElementDescriber{
		printer: message.NewPrinter(language.English),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Describe returns one result per request. A required request without a
// value fails the whole call with ErrNilRequirement.
func (d *ElementDescriber) Describe(el platform.Element, requests []Request) (Results, error) {
	results := make(Results, 0, len(requests))
	for i, req := range requests {
		var value *string
		switch r := req.(type) {
		case Single:
			value = d.value(el, r.Attribute)
		default:
			for _, attr := range req.attributes() {
				if v := d.value(el, attr); v != nil && *v != "" {
					value = v
					break
				}
			}
		}
		if value == nil && req.required() {
			return nil, fmt.Errorf("%w: request %d (%s)", ErrNilRequirement, i, describeAttributes(req))
		}
		results = append(results, value)
	}
	return results, nil
}

func describeAttributes(r Request) string {
	attrs := r.attributes()
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.String()
	}
	return strings.Join(names, "|")
}

func (d *ElementDescriber) value(el platform.Element, attr Attribute) *string {
	s, err := d.query(el, attr)
	if err != nil {
		if !errors.Is(err, platform.ErrNoValue) {
			d.logger.Debug("attribute query failed",
				zap.String("element", string(el.ID())),
				zap.Stringer("attribute", attr),
				zap.Error(err))
		}
		return nil
	}
	return &s
}

func (d *ElementDescriber) query(el platform.Element, attr Attribute) (string, error) {
	switch attr.kind {
	case kindRole:
		return el.Role()
	case kindRoleDescription:
		if desc, err := el.RoleDescription(); err == nil && desc != "" {
			return desc, nil
		}
		role, err := el.Role()
		if err != nil {
			return "", err
		}
		subrole, _ := el.Subrole()
		return model.DescribeRole(role, subrole), nil
	case kindSubrole:
		return el.Subrole()
	case kindTitle:
		return el.Title()
	case kindTitleElement:
		return d.titleElement(el, attr.nested)
	case kindDescription:
		return el.Description()
	case kindStringValue:
		return stringValue(el, attr.max)
	case kindNumberValue:
		return d.numberValue(el)
	case kindToggleValue:
		return twoState(el, "on", "off")
	case kindCheckboxValue:
		return twoState(el, "checked", "unchecked")
	case kindAttachmentText:
		return attachmentText(el)
	case kindFileName:
		return fileName(el)
	}
	return "", fmt.Errorf("unknown attribute %d", attr.kind)
}

func (d *ElementDescriber) titleElement(el platform.Element, nested Request) (string, error) {
	if nested == nil {
		return "", platform.ErrNoValue
	}
	title, err := el.TitleElement()
	if err != nil {
		return "", err
	}
	if title == nil || title.ID() == el.ID() {
		return "", platform.ErrNoValue
	}
	results, err := d.Describe(title, []Request{nested})
	if err != nil {
		return "", err
	}
	if s, ok := results.First(); ok {
		return s, nil
	}
	return "", platform.ErrNoValue
}

func stringValue(el platform.Element, limit int) (string, error) {
	v, err := el.Value()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("value is %T: %w", v, platform.ErrTypeMismatch)
	}
	if limit > 0 {
		if runes := []rune(s); len(runes) > limit {
			s = string(runes[:limit])
		}
	}
	return s, nil
}

func (d *ElementDescriber) numberValue(el platform.Element) (string, error) {
	v, err := el.Value()
	if err != nil {
		return "", err
	}
	if _, isBool := v.(bool); isBool {
		return "", fmt.Errorf("value is bool: %w", platform.ErrTypeMismatch)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", platform.ErrTypeMismatch, err)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return d.printer.Sprintf("%d", int64(f)), nil
	}
	return d.printer.Sprintf("%.2f", f), nil
}

func twoState(el platform.Element, on, off string) (string, error) {
	v, err := el.Value()
	if err != nil {
		return "", err
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", platform.ErrTypeMismatch, err)
	}
	if b {
		return on, nil
	}
	return off, nil
}

func attachmentText(el platform.Element) (string, error) {
	text, ok := el.(platform.TextElement)
	if !ok {
		return "", platform.ErrUnsupported
	}
	n, err := el.NumberOfCharacters()
	if err != nil {
		return "", err
	}
	attributed, err := text.AttributedText(model.IntRange(0, n))
	if err != nil {
		return "", err
	}
	attachments := attributed.Attachments()
	if len(attachments) == 0 {
		return "", platform.ErrNoValue
	}
	return strings.Join(attachments, ", "), nil
}

func fileName(el platform.Element) (string, error) {
	raw, err := el.URL()
	if err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", platform.ErrTypeMismatch, err)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return "", platform.ErrNoValue
	}
	return name, nil
}
