package describe

import "strings"

type attributeKind int

const (
	kindRole attributeKind = iota + 1
	kindRoleDescription
	kindSubrole
	kindTitle
	kindTitleElement
	kindDescription
	kindStringValue
	kindNumberValue
	kindToggleValue
	kindCheckboxValue
	kindAttachmentText
	kindFileName
)

var kindNames = map[attributeKind]string{
	kindRole:            "role",
	kindRoleDescription: "roleDescription",
	kindSubrole:         "subrole",
	kindTitle:           "title",
	kindTitleElement:    "titleElement",
	kindDescription:     "description",
	kindStringValue:     "stringValue",
	kindNumberValue:     "numberValue",
	kindToggleValue:     "toggleValue",
	kindCheckboxValue:   "checkboxValue",
	kindAttachmentText:  "attachmentText",
	kindFileName:        "fileName",
}

// Attribute is one query a request can make.
type Attribute struct {
	kind attributeKind
	// nested is the request applied to the title element.
	nested Request
	// max truncates string values, in runes. Zero means no limit.
	max int
}

func (a Attribute) String() string {
	return kindNames[a.kind]
}

// Attributes understood by the describer.
var (
	Role            = Attribute{kind: kindRole}
	RoleDescription = Attribute{kind: kindRoleDescription}
	Subrole         = Attribute{kind: kindSubrole}
	Title           = Attribute{kind: kindTitle}
	Description     = Attribute{kind: kindDescription}
	StringValue     = Attribute{kind: kindStringValue}
	NumberValue     = Attribute{kind: kindNumberValue}
	ToggleValue     = Attribute{kind: kindToggleValue}
	CheckboxValue   = Attribute{kind: kindCheckboxValue}
	AttachmentText  = Attribute{kind: kindAttachmentText}
	FileName        = Attribute{kind: kindFileName}
)

// TitleElement describes the element that labels the queried element using r.
func TitleElement(r Request) Attribute {
	return Attribute{kind: kindTitleElement, nested: r}
}

// StringValueMax is StringValue truncated to n runes.
func StringValueMax(n int) Attribute {
	return Attribute{kind: kindStringValue, max: n}
}

// Request asks for one optional string.
type Request interface {
	required() bool
	attributes() []Attribute
}

// Single queries one attribute.
type Single struct {
	Required  bool
	Attribute Attribute
}

func (s Single) required() bool          { return s.Required }
func (s Single) attributes() []Attribute { return []Attribute{s.Attribute} }

// Fallthrough queries attributes in order and keeps the first non-empty value.
type Fallthrough struct {
	Required   bool
	Attributes []Attribute
}

func (f Fallthrough) required() bool          { return f.Required }
func (f Fallthrough) attributes() []Attribute { return f.Attributes }

// Results holds one optional value per request, in request order.
type Results []*string

// Value returns a result holding s.
func Value(s string) *string { return &s }

// Concat joins every present value with no separator. ok is false when no
// value is present.
func (r Results) Concat() (string, bool) {
	return r.Join("")
}

// First returns the first present value.
func (r Results) First() (string, bool) {
	for _, v := range r {
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

// Join joins the present, non-empty values with sep.
func (r Results) Join(sep string) (string, bool) {
	var parts []string
	for _, v := range r {
		if v != nil && *v != "" {
			parts = append(parts, *v)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, sep), true
}
