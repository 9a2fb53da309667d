package output

import (
	"fmt"
	"strings"
	"time"
)

// Options modify how a job is rendered.
type Options uint8

const (
	// Interrupt stops whatever is being spoken before the job starts.
	Interrupt Options = 1 << iota
)

// MarshalText renders the options as a comma separated list.
func (o Options) MarshalText() ([]byte, error) {
	var parts []string
	if o&Interrupt != 0 {
		parts = append(parts, "interrupt")
	}
	return []byte(strings.Join(parts, ",")), nil
}

// UnmarshalText parses the form written by MarshalText.
func (o *Options) UnmarshalText(b []byte) error {
	*o = 0
	for _, part := range strings.Split(string(b), ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "interrupt":
			*o |= Interrupt
		default:
			return fmt.Errorf("unknown output option %q", part)
		}
	}
	return nil
}

// PayloadKind identifies a payload variant.
type PayloadKind string

const (
	KindSpeech         PayloadKind = "speech"
	KindPauseSpeech    PayloadKind = "pause"
	KindContinueSpeech PayloadKind = "continue"
	KindCancelSpeech   PayloadKind = "cancel"
	KindSound          PayloadKind = "sound"
)

// Sound is a compound earcon: each named sound plays Count times, Cadence apart.
type Sound struct {
	Names    []string        `yaml:"names"    json:"names"`
	Counts   []int           `yaml:"counts"   json:"counts"`
	Cadences []time.Duration `yaml:"cadences" json:"cadences"`
}

// Payload is one instruction in a job.
type Payload struct {
	Kind  PayloadKind `yaml:"kind"            json:"kind"`
	Text  string      `yaml:"text,omitempty"  json:"text,omitempty"`
	Sound *Sound      `yaml:"sound,omitempty" json:"sound,omitempty"`
}

// Speech returns a payload that speaks text.
func Speech(text string) Payload {
	return Payload{Kind: KindSpeech, Text: text}
}

// PauseSpeech returns a payload that pauses speech at the next word boundary.
func PauseSpeech() Payload { return Payload{Kind: KindPauseSpeech} }

// ContinueSpeech returns a payload that resumes paused speech.
func ContinueSpeech() Payload { return Payload{Kind: KindContinueSpeech} }

// CancelSpeech returns a payload that stops speech.
func CancelSpeech() Payload { return Payload{Kind: KindCancelSpeech} }

// PlaySound returns a sound payload. The slices are zipped; extra entries in
// any of them are ignored.
func PlaySound(names []string, counts []int, cadences []time.Duration) Payload {
	n := min(len(names), len(counts), len(cadences))
	return Payload{Kind: KindSound, Sound: &Sound{
		Names:    names[:n],
		Counts:   counts[:n],
		Cadences: cadences[:n],
	}}
}

func (p Payload) String() string {
	switch p.Kind {
	case KindSpeech:
		return fmt.Sprintf("speech(%q)", p.Text)
	case KindSound:
		if p.Sound != nil {
			return fmt.Sprintf("sound(%s)", strings.Join(p.Sound.Names, ","))
		}
	}
	return string(p.Kind)
}

// Job is an ordered batch of payloads for one output queue. Jobs with the
// same Identifier render in submission order.
type Job struct {
	Identifier string    `yaml:"id"                json:"id"`
	Options    Options   `yaml:"options,omitempty" json:"options,omitempty"`
	Payloads   []Payload `yaml:"payloads"          json:"payloads"`
}

// Job identifiers used by the narrator.
const (
	QueueFocus     = "focus"
	QueueSelection = "selection"
)

// NewJob builds a job.
func NewJob(identifier string, opts Options, payloads ...Payload) Job {
	return Job{Identifier: identifier, Options: opts, Payloads: payloads}
}

// Text returns the spoken text of the job, one payload per line.
func (j Job) Text() string {
	var parts []string
	for _, p := range j.Payloads {
		if p.Kind == KindSpeech {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}
