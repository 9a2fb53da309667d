package output

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := fn()
	w.Close()
	os.Stdout = old

	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestPrintJSON_Compact(t *testing.T) {
	output := captureStdout(t, func() error { return PrintJSON(sampleReplay(), false) })

	// Compact output should be a single line (plus newline from Encode)
	if bytes.Count([]byte(output), []byte("\n")) > 1 {
		t.Errorf("compact output should be single line, got:\n%s", output)
	}

	var decoded ReplayResult
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Jobs) != 2 {
		t.Errorf("jobs: got %d, want 2", len(decoded.Jobs))
	}
}

func TestPrintJSON_Pretty(t *testing.T) {
	output := captureStdout(t, func() error { return PrintJSON(sampleReplay(), true) })

	if bytes.Count([]byte(output), []byte("\n")) <= 1 {
		t.Errorf("pretty output should be multi-line, got:\n%s", output)
	}
	if !strings.Contains(output, `"options": "interrupt"`) {
		t.Errorf("options should render as text, got:\n%s", output)
	}
}

func TestPrintJSON_NoHTMLEscape(t *testing.T) {
	output := captureStdout(t, func() error {
		return PrintJSON(NewJob(QueueFocus, 0, Speech("<b>&</b>")), false)
	})
	if !strings.Contains(output, "<b>&</b>") {
		t.Errorf("HTML characters should not be escaped, got %s", output)
	}
}

func TestJob_OmitsZeroOptions(t *testing.T) {
	data, err := json.Marshal(NewJob(QueueSelection, 0, Speech("x")))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "options") {
		t.Errorf("zero options should be omitted, got %s", data)
	}
}
