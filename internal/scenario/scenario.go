// Package scenario replays scripted editing sessions against the headless
// editor.
//
// A scenario is a YAML document:
//
//	name: mention commit
//	html: '<div contenteditable="true"><p>hi </p></div>'
//	config:
//	  mention:
//	    hide_on_blur_delay_ms: 100
//	contacts:
//	  - {user_id: u1, name: Ada Lovelace}
//	steps:
//	  - caret: {tag: p, end: true}
//	  - type: "@ad"
//	  - expect: {composing: true, suggestions: [Ada Lovelace]}
//	  - choose: 0
//	  - expect: {text: "hi @Ada Lovelace"}
//
// Each step performs exactly one action. Timers run on a manual clock that
// only moves on advance steps.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/inkwell/internal/directory"
)

var (
	// ErrInvalidScenario is returned for scenarios that cannot be run.
	ErrInvalidScenario = errors.New("invalid scenario")

	// ErrTargetNotFound is returned when a step names a node that does not
	// exist.
	ErrTargetNotFound = errors.New("target not found")
)

// Scenario is one scripted session.
type Scenario struct {
	Name string `yaml:"name"`
	// HTML is the initial document. It needs at least one
	// contenteditable="true" element.
	HTML string `yaml:"html"`
	// Config overrides defaults using the config file layout.
	Config map[string]any `yaml:"config"`
	// Contacts seed an in-memory directory that backs the mention panel.
	Contacts []directory.Contact `yaml:"contacts"`
	Steps    []Step              `yaml:"steps"`
}

// Target picks a node in the document. Tag, Class and ID filter; Index
// selects among the matches in document order.
type Target struct {
	Tag   string `yaml:"tag"`
	Class string `yaml:"class"`
	ID    string `yaml:"id"`
	Index int    `yaml:"index"`
}

// Caret places the caret at a rune offset within a target's text, or at
// the end of it.
type Caret struct {
	Target `yaml:",inline"`
	Offset int  `yaml:"offset"`
	End    bool `yaml:"end"`
}

// Media answers a pending media picker click.
type Media struct {
	Kind      string         `yaml:"kind"`
	URL       string         `yaml:"url"`
	Thumbnail string         `yaml:"thumbnail"`
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	VideoType string         `yaml:"video_type"`
	ID        string         `yaml:"id"`
	Attach    map[string]any `yaml:"attachment"`
}

// Expect checks session state. Unset fields are not checked.
type Expect struct {
	HTML           *string  `yaml:"html"`
	Text           *string  `yaml:"text"`
	Composing      *bool    `yaml:"composing"`
	Word           *string  `yaml:"word"`
	PanelVisible   *bool    `yaml:"panel_visible"`
	Suggestions    []string `yaml:"suggestions"`
	Markers        *int     `yaml:"markers"`
	PickerVisible  *bool    `yaml:"picker_visible"`
	PickerExpanded *bool    `yaml:"picker_expanded"`
	Waiting        *bool    `yaml:"waiting"`
	Lists          *int     `yaml:"lists"`
}

// Step is a single action.
type Step struct {
	Caret        *Caret        `yaml:"caret"`
	Type         string        `yaml:"type"`
	Key          string        `yaml:"key"`
	Repeat       int           `yaml:"repeat"`
	Click        *Target       `yaml:"click"`
	ClickOutside bool          `yaml:"click_outside"`
	Blur         bool          `yaml:"blur"`
	Focus        bool          `yaml:"focus"`
	Advance      time.Duration `yaml:"advance"`
	Choose       *int          `yaml:"choose"`
	Cancel       bool          `yaml:"cancel"`
	Picker       string        `yaml:"picker"`
	Media        *Media        `yaml:"media"`
	Expect       *Expect       `yaml:"expect"`
}

// Action names the step's action.
func (s Step) Action() (string, error) {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(s.Caret != nil, "caret")
	add(s.Type != "", "type")
	add(s.Key != "", "key")
	add(s.Click != nil, "click")
	add(s.ClickOutside, "click_outside")
	add(s.Blur, "blur")
	add(s.Focus, "focus")
	add(s.Advance != 0, "advance")
	add(s.Choose != nil, "choose")
	add(s.Cancel, "cancel")
	add(s.Picker != "", "picker")
	add(s.Media != nil, "media")
	add(s.Expect != nil, "expect")

	switch len(names) {
	case 0:
		return "", fmt.Errorf("step has no action: %w", ErrInvalidScenario)
	case 1:
		if s.Repeat != 0 && names[0] != "key" {
			return "", fmt.Errorf("repeat only applies to key steps: %w", ErrInvalidScenario)
		}
		return names[0], nil
	}
	return "", fmt.Errorf("step has several actions %v: %w", names, ErrInvalidScenario)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Validate checks that every step names exactly one action.
func (sc *Scenario) Validate() error {
	if sc.HTML == "" {
		return fmt.Errorf("html is required: %w", ErrInvalidScenario)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("no steps: %w", ErrInvalidScenario)
	}
	for i, st := range sc.Steps {
		if _, err := st.Action(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if st.Advance < 0 {
			return fmt.Errorf("step %d: negative advance: %w", i+1, ErrInvalidScenario)
		}
		if st.Repeat < 0 {
			return fmt.Errorf("step %d: negative repeat: %w", i+1, ErrInvalidScenario)
		}
	}
	return nil
}
