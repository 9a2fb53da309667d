package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mj1618/desktop-narrator/internal/config"
	"github.com/mj1618/desktop-narrator/internal/output"
)

const notes = `
name: notes
apps:
  - name: Notes
    pid: 5
    windows:
      - id: win
        role: AXWindow
        title: Groceries
        children:
          - id: save
            role: AXButton
            title: Save
steps:
  - focus: { element: save }
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := FromConfig(config.Default())
	return New(cfg, zaptest.NewLogger(t))
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReplay_InlineJSON(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleReplay, map[string]any{"source": notes, "format": "json"})
	require.False(t, isErr, text)

	var res output.ReplayResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, "notes", res.Script)
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, 1, res.Completed)
	var spoken []string
	for _, job := range res.Jobs {
		spoken = append(spoken, job.Text())
	}
	assert.Contains(t, spoken, "Save, button")
}

func TestReplay_FromFile(t *testing.T) {
	s := newTestServer(t)
	path := writeScript(t, notes)
	text, isErr := call(t, s.handleReplay, map[string]any{"script": path})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Save, button")
	assert.Equal(t, 1, s.Cache().Len())
}

func TestReplay_Errors(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s.handleReplay, map[string]any{})
	assert.True(t, isErr)
	assert.Equal(t, errNoScript.Error(), text)

	_, isErr = call(t, s.handleReplay, map[string]any{"source": notes, "format": "xml"})
	assert.True(t, isErr)

	failing := notes + "  - focus: { element: missing }\n"
	text, isErr = call(t, s.handleReplay, map[string]any{"source": failing})
	assert.True(t, isErr)
	assert.Contains(t, text, "missing")
}

func TestDescribe(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleDescribe, map[string]any{"source": notes, "id": "save", "format": "json"})
	require.False(t, isErr, text)

	var res output.DescribeResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, "Save, button", res.Description)
	assert.Equal(t, "AXButton", res.Role)
	assert.False(t, res.Silent)

	_, isErr = call(t, s.handleDescribe, map[string]any{"source": notes})
	assert.True(t, isErr)
	_, isErr = call(t, s.handleDescribe, map[string]any{"source": notes, "id": "nope"})
	assert.True(t, isErr)

	text, isErr = call(t, s.handleDescribe, map[string]any{"source": notes, "id": "save", "after-replay": true})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Save, button")
}

func TestTree(t *testing.T) {
	s := newTestServer(t)
	text, isErr := call(t, s.handleTree, map[string]any{"source": notes, "format": "json"})
	require.False(t, isErr, text)

	var res output.TreeResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	assert.Equal(t, "notes", res.Script)
	require.Len(t, res.Elements, 3)
	assert.Equal(t, "save", res.Elements[2].ID)
}

func TestScriptCache(t *testing.T) {
	path := writeScript(t, notes)

	c := NewScriptCache(time.Minute)
	first, err := c.Load(path)
	require.NoError(t, err)
	second, err := c.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	third, err := c.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third, "modified files are parsed again")

	c.Invalidate(path)
	assert.Equal(t, 0, c.Len())

	_, err = c.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	uncached := NewScriptCache(0)
	a, err := uncached.Load(path)
	require.NoError(t, err)
	b, err := uncached.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 0, uncached.Len())
}

func TestNew_RegistersTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.MCP().HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`))
	resp := s.MCP().HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"replay", "describe", "tree"} {
		assert.Contains(t, string(raw), `"name":"`+name+`"`)
	}
}
