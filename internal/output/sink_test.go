package output

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestOptions_Text(t *testing.T) {
	b, err := Interrupt.MarshalText()
	if err != nil || string(b) != "interrupt" {
		t.Fatalf("MarshalText: got %q, %v", b, err)
	}
	var o Options
	if err := o.UnmarshalText([]byte("interrupt")); err != nil || o != Interrupt {
		t.Fatalf("UnmarshalText: got %v, %v", o, err)
	}
	if err := o.UnmarshalText([]byte("loud")); err == nil {
		t.Error("expected error for unknown option")
	}
}

func TestPlaySound_Zips(t *testing.T) {
	p := PlaySound([]string{"tick", "tock"}, []int{1}, []time.Duration{time.Second, time.Second})
	if len(p.Sound.Names) != 1 || len(p.Sound.Cadences) != 1 {
		t.Errorf("expected slices trimmed to 1, got %+v", p.Sound)
	}
	if p.String() != "sound(tick)" {
		t.Errorf("String: got %q", p.String())
	}
}

func TestJob_Text(t *testing.T) {
	job := NewJob(QueueFocus, Interrupt, CancelSpeech(), Speech("a"), PauseSpeech(), Speech("b"), ContinueSpeech())
	if got := job.Text(); got != "a\nb" {
		t.Errorf("Text: got %q", got)
	}
}

func TestRecorder_Limit(t *testing.T) {
	r := NewRecorder(3)
	for i := 0; i < 5; i++ {
		r.Submit(NewJob(QueueSelection, 0, Speech(fmt.Sprint(i))))
	}
	if r.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", r.Len())
	}
	got := strings.Join(r.Spoken(), ",")
	if got != "2,3,4" {
		t.Errorf("Spoken: got %q, want %q", got, "2,3,4")
	}
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Reset: got %d jobs", r.Len())
	}
}

func TestRecorder_Unbounded(t *testing.T) {
	r := NewRecorder(0)
	for i := 0; i < 100; i++ {
		r.Submit(NewJob(QueueSelection, 0))
	}
	if r.Len() != 100 {
		t.Errorf("Len: got %d, want 100", r.Len())
	}
}

func TestWriterSink_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf, FormatJSON, nil)
	s.Submit(NewJob(QueueFocus, 0, Speech("one")))
	s.Submit(NewJob(QueueFocus, 0, Speech("two")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], `"text":"two"`) {
		t.Errorf("second line: %s", lines[1])
	}
}

func TestWriterSink_YAML(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriterSink(&buf, FormatYAML, nil)
	s.Submit(NewJob(QueueSelection, 0, Speech("hello")))
	if !strings.Contains(buf.String(), "- id: selection") {
		t.Errorf("expected a YAML list item, got:\n%s", buf.String())
	}
}

func TestQueued_PreservesOrderPerIdentifier(t *testing.T) {
	var mu sync.Mutex
	got := map[string][]string{}
	q := NewQueued(SinkFunc(func(job Job) {
		mu.Lock()
		got[job.Identifier] = append(got[job.Identifier], job.Text())
		mu.Unlock()
	}), nil)
	defer q.Close()

	for i := 0; i < 20; i++ {
		q.Submit(NewJob(QueueFocus, 0, Speech(fmt.Sprint("f", i))))
		q.Submit(NewJob(QueueSelection, 0, Speech(fmt.Sprint("s", i))))
	}
	q.Flush()

	mu.Lock()
	defer mu.Unlock()
	for _, id := range []string{QueueFocus, QueueSelection} {
		if len(got[id]) != 20 {
			t.Fatalf("%s: got %d jobs", id, len(got[id]))
		}
		for i, text := range got[id] {
			if text != fmt.Sprint(id[:1], i) {
				t.Errorf("%s[%d] = %q", id, i, text)
			}
		}
	}
	if ids := q.Identifiers(); strings.Join(ids, ",") != "focus,selection" {
		t.Errorf("Identifiers: got %v", ids)
	}
}

func TestQueued_DropsAfterClose(t *testing.T) {
	r := NewRecorder(0)
	q := NewQueued(r, nil)
	q.Submit(NewJob(QueueFocus, 0, Speech("kept")))
	q.Close()
	q.Submit(NewJob(QueueFocus, 0, Speech("dropped")))
	if got := r.Spoken(); len(got) != 1 || got[0] != "kept" {
		t.Errorf("Spoken: got %v", got)
	}
}

func TestTee(t *testing.T) {
	a, b := NewRecorder(0), NewRecorder(0)
	Tee(a, b, Discard).Submit(NewJob(QueueFocus, 0, Speech("x")))
	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("tee: got %d and %d", a.Len(), b.Len())
	}
}
