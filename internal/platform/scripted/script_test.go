package scripted

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const editorScript = `
name: editor
apps:
  - name: TextEdit
    pid: 42
    focused: doc
    focused_window: main
    windows:
      - id: main
        role: AXWindow
        title: Untitled
        children:
          - id: doc
            role: AXTextArea
            value: "Hello, accessible world"
            text:
              selected: [{lower: 0, upper: 0}]
          - id: ok
            role: AXButton
            title: OK
steps:
  - select: { element: doc, lower: 0, upper: 5 }
  - select: { element: doc, lower: 10, upper: 15 }
  - focus: { element: ok }
`

func TestParse_YAML(t *testing.T) {
	s, err := Parse([]byte(editorScript), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "editor", s.Name)
	require.Len(t, s.Apps, 1)
	assert.Equal(t, 42, s.Apps[0].PID)
	assert.Equal(t, "app:42", s.Apps[0].ElementID())
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "doc", s.Steps[0]["select"]["element"])
}

func TestParse_JSON(t *testing.T) {
	data := `{"apps":[{"name":"Safari","pid":7,"windows":[{"id":"w","role":"AXWindow"}]}],
	"steps":[{"focus":{"element":"w","app":7}}]}`
	s, err := Parse([]byte(data), "json")
	require.NoError(t, err)
	assert.Equal(t, 7, s.Apps[0].PID)
	assert.Equal(t, 7, intParam(s.Steps[0]["focus"], "app", 0))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no apps", "steps: []"},
		{"bad pid", "apps: [{name: a, pid: 0}]"},
		{"duplicate pid", "apps: [{name: a, pid: 1}, {name: b, pid: 1}]"},
		{"duplicate id", "apps: [{name: a, pid: 1, windows: [{id: w, role: AXWindow}, {id: w, role: AXWindow}]}]"},
		{"missing id", "apps: [{name: a, pid: 1, windows: [{role: AXWindow}]}]"},
		{"unknown focus", "apps: [{name: a, pid: 1, focused: nope}]"},
		{"two actions", "apps: [{name: a, pid: 1}]\nsteps: [{focus: {element: x}, sleep: {ms: 1}}]"},
		{"not yaml", "apps: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "yaml")
			assert.Error(t, err)
		})
	}
	_, err := Parse([]byte(editorScript), "xml")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apps: [{name: a, pid: 3}]"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "session", s.Name, "name defaults to the file name")

	jsonPath := filepath.Join(dir, "other.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"x","apps":[{"name":"a","pid":3}]}`), 0o644))
	s, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "x", s.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
