package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mj1618/desktop-narrator/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// ReplayResult is the top-level output of the `replay` command.
type ReplayResult struct {
	Script    string   `yaml:"script,omitempty" json:"script,omitempty"`
	Apps      []AppRef `yaml:"apps,omitempty"   json:"apps,omitempty"`
	Steps     int      `yaml:"steps"            json:"steps"`
	Completed int      `yaml:"completed"        json:"completed"`
	Error     string   `yaml:"error,omitempty"  json:"error,omitempty"`
	TS        int64    `yaml:"ts"               json:"ts"`
	Jobs      []Job    `yaml:"jobs"             json:"jobs"`
}

// AppRef names an application that took part in a replay.
type AppRef struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	PID  int    `yaml:"pid"            json:"pid"`
}

// DescribeResult is the output of the `describe` command.
type DescribeResult struct {
	ID          string `yaml:"id"                    json:"id"`
	Role        string `yaml:"role,omitempty"        json:"role,omitempty"`
	Path        string `yaml:"path,omitempty"        json:"path,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Silent is set when the element produced no description.
	Silent bool `yaml:"silent,omitempty" json:"silent,omitempty"`
}

// TreeResult lists the flattened elements of a script.
type TreeResult struct {
	Script   string              `yaml:"script,omitempty" json:"script,omitempty"`
	Elements []model.FlatElement `yaml:"elements"         json:"elements"`
}

// Print serializes v to stdout in the current output format.
func Print(v interface{}) error {
	return Fprint(os.Stdout, v)
}

// Fprint serializes v to w in the current output format.
func Fprint(w io.Writer, v interface{}) error {
	return FprintFormat(w, OutputFormat, v)
}

// FprintFormat serializes v to w in format f.
func FprintFormat(w io.Writer, f Format, v interface{}) error {
	switch f {
	case FormatJSON:
		return FprintJSON(w, v, PrettyOutput)
	case FormatYAML:
		return FprintYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}
}
