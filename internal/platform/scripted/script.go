// Package scripted is an in-memory accessibility backend driven by replay
// scripts. A script declares applications with their element trees and a
// timeline of steps (focus changes, selection changes, raw notifications)
// that the Player turns into native notifications.
package scripted

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/desktop-narrator/internal/model"
)

// Step is one timeline entry: exactly one action name mapped to its
// parameters, e.g. `- focus: { app: 42, element: doc }`.
type Step map[string]map[string]any

// App declares one scripted application.
type App struct {
	// ID of the application element. Defaults to "app:<pid>".
	ID      string          `yaml:"id,omitempty"             json:"id,omitempty"`
	Name    string          `yaml:"name"                     json:"name"`
	PID     int             `yaml:"pid"                      json:"pid"`
	Focused string          `yaml:"focused,omitempty"        json:"focused,omitempty"`
	Window  string          `yaml:"focused_window,omitempty" json:"focused_window,omitempty"`
	Windows []model.Element `yaml:"windows,omitempty"        json:"windows,omitempty"`

	// Inaccessible applications refuse native observers.
	Inaccessible bool `yaml:"inaccessible,omitempty" json:"inaccessible,omitempty"`
}

// ElementID returns the ID of the application element.
func (a App) ElementID() string {
	if a.ID != "" {
		return a.ID
	}
	return fmt.Sprintf("app:%d", a.PID)
}

// Script is a replayable accessibility session.
type Script struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Apps  []App  `yaml:"apps"           json:"apps"`
	Steps []Step `yaml:"steps"          json:"steps"`
}

var (
	// ErrEmptyScript is returned when a script declares no applications.
	ErrEmptyScript = errors.New("script declares no applications")
	// ErrDuplicateID is returned when two elements share an ID.
	ErrDuplicateID = errors.New("duplicate element id")
)

// Load reads a script from path. Files ending in .json are parsed as JSON,
// everything else as YAML.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes and validates a script in the given format ("yaml" or "json").
func Parse(data []byte, format string) (*Script, error) {
	var s Script
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to parse JSON script: %w", err)
		}
	case "yaml", "":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse YAML script: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported script format %q", format)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that pids and element IDs are unique, that focus
// references resolve and that every step names exactly one action.
func (s *Script) Validate() error {
	if len(s.Apps) == 0 {
		return ErrEmptyScript
	}
	pids := make(map[int]bool)
	ids := make(map[string]bool)
	var walk func(el model.Element) error
	walk = func(el model.Element) error {
		if el.ID == "" {
			return fmt.Errorf("element with role %q has no id", el.Role)
		}
		if ids[el.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, el.ID)
		}
		ids[el.ID] = true
		for _, c := range el.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, app := range s.Apps {
		if app.PID <= 0 {
			return fmt.Errorf("app %q: pid must be > 0", app.Name)
		}
		if pids[app.PID] {
			return fmt.Errorf("app %q: duplicate pid %d", app.Name, app.PID)
		}
		pids[app.PID] = true
		if ids[app.ElementID()] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, app.ElementID())
		}
		ids[app.ElementID()] = true
		for _, w := range app.Windows {
			if err := walk(w); err != nil {
				return fmt.Errorf("app %q: %w", app.Name, err)
			}
		}
	}
	for _, app := range s.Apps {
		for _, ref := range []string{app.Focused, app.Window} {
			if ref != "" && !ids[ref] {
				return fmt.Errorf("app %q: unknown element %q", app.Name, ref)
			}
		}
	}
	for i, step := range s.Steps {
		if len(step) != 1 {
			return fmt.Errorf("step %d: expected exactly one action key, got %d", i+1, len(step))
		}
	}
	return nil
}
