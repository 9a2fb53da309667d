package output

import (
	"bytes"
	"os"
	"testing"

	"gopkg.in/yaml.v3"
)

func sampleReplay() ReplayResult {
	return ReplayResult{
		Script: "notes.yaml",
		Apps:   []AppRef{{Name: "TextEdit", PID: 42}},
		Steps:  2,
		TS:     1707500000,
		Jobs: []Job{
			NewJob(QueueSelection, 0, Speech("hello")),
			NewJob(QueueFocus, Interrupt, Speech("Name, text field")),
		},
	}
}

func TestPrintYAML(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := PrintYAML(sampleReplay())
	w.Close()
	os.Stdout = old

	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	// YAML output should be multi-line
	if bytes.Count([]byte(output), []byte("\n")) <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", output)
	}

	var decoded ReplayResult
	if err := yaml.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.Script != "notes.yaml" {
		t.Errorf("script: got %q, want %q", decoded.Script, "notes.yaml")
	}
	if len(decoded.Jobs) != 2 {
		t.Fatalf("jobs: got %d, want 2", len(decoded.Jobs))
	}
	if decoded.Jobs[1].Options != Interrupt {
		t.Errorf("options: got %v, want interrupt", decoded.Jobs[1].Options)
	}
	if decoded.Jobs[0].Payloads[0].Text != "hello" {
		t.Errorf("payload text: got %q", decoded.Jobs[0].Payloads[0].Text)
	}
}

func TestReplayResult_OmitEmpty(t *testing.T) {
	result := ReplayResult{TS: 123, Jobs: []Job{}}
	data, err := yaml.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	// Script and apps should be omitted when empty
	if _, ok := m["script"]; ok {
		t.Error("empty script should be omitted")
	}
	if _, ok := m["apps"]; ok {
		t.Error("empty apps should be omitted")
	}
	// TS and jobs should always be present
	if _, ok := m["ts"]; !ok {
		t.Error("ts should always be present")
	}
	if _, ok := m["jobs"]; !ok {
		t.Error("jobs should always be present")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "json"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestFprintFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := FprintFormat(&buf, FormatJSON, DescribeResult{ID: "e1", Description: "OK, button"}); err != nil {
		t.Fatal(err)
	}
	want := `{"id":"e1","description":"OK, button"}` + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := FprintFormat(&buf, Format("toml"), nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
