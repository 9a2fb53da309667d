package model

// Element is a serializable snapshot of one node in the accessibility tree.
// Scripted platforms load trees of these; live platforms never need them.
type Element struct {
	ID              string       `yaml:"id"                         json:"id"`
	Role            string       `yaml:"role"                       json:"role"`
	Subrole         string       `yaml:"subrole,omitempty"          json:"subrole,omitempty"`
	RoleDescription string       `yaml:"role_description,omitempty" json:"role_description,omitempty"`
	Title           string       `yaml:"title,omitempty"            json:"title,omitempty"`
	TitleElement    string       `yaml:"title_element,omitempty"    json:"title_element,omitempty"` // ID of the labelling element
	Description     string       `yaml:"description,omitempty"      json:"description,omitempty"`
	Value           any          `yaml:"value,omitempty"            json:"value,omitempty"`
	URL             string       `yaml:"url,omitempty"              json:"url,omitempty"`
	Text            *TextContent `yaml:"text,omitempty"             json:"text,omitempty"`
	Children        []Element    `yaml:"children,omitempty"         json:"children,omitempty"`
}

// TextContent describes the text exposed by an element. The text itself is
// the element's string Value. Markers switches the element into the
// text-marker index domain; Blink marks web content that fails WebKit-only
// checks and posts selection changes on the application.
type TextContent struct {
	Selected   []Range[int]   `yaml:"selected,omitempty"   json:"selected,omitempty"`
	Markers    bool           `yaml:"markers,omitempty"    json:"markers,omitempty"`
	Blink      bool           `yaml:"blink,omitempty"      json:"blink,omitempty"`
	Attributes []AttributeRun `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}
