package model

import "strings"

// Accessibility roles the narrator distinguishes.
const (
	RoleApplication = "AXApplication"
	RoleWindow      = "AXWindow"
	RoleButton      = "AXButton"
	RoleCheckBox    = "AXCheckBox"
	RoleStaticText  = "AXStaticText"
	RoleTextField   = "AXTextField"
	RoleTextArea    = "AXTextArea"
	RoleWebArea     = "AXWebArea"
	RoleGroup       = "AXGroup"
	RoleLink        = "AXLink"
	RoleImage       = "AXImage"
)

// Accessibility subroles the narrator distinguishes.
const (
	SubroleToggle         = "AXToggle"
	SubroleSwitch         = "AXSwitch"
	SubroleTextAttachment = "AXTextAttachment"
	SubroleSearchField    = "AXSearchField"
	SubroleSecureField    = "AXSecureTextField"
)

// RoleMap maps macOS AXRole values to compact role codes.
var RoleMap = map[string]string{
	"AXApplication": "app",
	"AXButton":      "btn",
	"AXStaticText":  "txt",
	"AXLink":        "lnk",
	"AXImage":       "img",
	"AXTextField":   "input",
	"AXTextArea":    "input",
	"AXCheckBox":    "chk",
	"AXSwitch":      "toggle",
	"AXRadioButton": "radio",
	"AXMenu":        "menu",
	"AXMenuBar":     "menu",
	"AXMenuItem":    "menuitem",
	"AXTabGroup":    "tab",
	"AXList":        "list",
	"AXTable":       "list",
	"AXRow":         "row",
	"AXCell":        "cell",
	"AXGroup":       "group",
	"AXSplitGroup":  "group",
	"AXScrollArea":  "scroll",
	"AXToolbar":     "toolbar",
	"AXWebArea":     "web",
	"AXWindow":      "window",
}

// MapRole converts a raw accessibility role to a compact code.
func MapRole(axRole string) string {
	if short, ok := RoleMap[axRole]; ok {
		return short
	}
	return "other"
}

// roleDescriptions holds spoken names for roles whose AX name does not
// humanize cleanly.
var roleDescriptions = map[string]string{
	"AXCheckBox":    "checkbox",
	"AXWebArea":     "HTML content",
	"AXStaticText":  "text",
	"AXTextArea":    "text entry area",
	"AXPopUpButton": "pop up button",
}

var subroleDescriptions = map[string]string{
	"AXToggle":          "toggle button",
	"AXSwitch":          "switch",
	"AXSearchField":     "search text field",
	"AXSecureTextField": "secure text field",
	"AXTextAttachment":  "attachment",
}

// DescribeRole returns a spoken role description, preferring the subrole.
// It is the fallback used when an element has no AXRoleDescription.
func DescribeRole(role, subrole string) string {
	if d, ok := subroleDescriptions[subrole]; ok {
		return d
	}
	if d, ok := roleDescriptions[role]; ok {
		return d
	}
	return humanize(strings.TrimPrefix(role, "AX"))
}

// humanize splits a CamelCase identifier into lower-case words.
func humanize(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToLower(string(r)))
	}
	return b.String()
}
