// Package config loads inkwell settings.
//
// Settings come from three layers, lowest priority first:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension
//  3. Environment variables prefixed with INKWELL_
//
// Files and environment are first read into generic maps and then applied
// key by key onto the typed Config, so every value is checked against the
// setting it targets. A Watcher reloads the file when it changes and hands
// the new Config to subscribers, which push it into running sessions with
// mention.Session.ApplyOptions.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/mediapicker"
	"github.com/dshills/inkwell/internal/mention"
)

// Config is the complete inkwell configuration.
type Config struct {
	Mention     MentionConfig
	MediaPicker MediaPickerConfig
	Editor      EditorConfig
	Logging     LoggingConfig
	Directory   DirectoryConfig
	Script      ScriptConfig
}

// MentionConfig configures the mention extension.
type MentionConfig struct {
	TagName                    string
	TriggerClassMap            map[string]string
	ActiveTriggerClassMap      map[string]string
	ExtraTriggerClassMap       map[string]string
	ExtraActiveTriggerClassMap map[string]string
	ActiveTriggers             []string
	ExtraPanelClass            string
	ExtraActivePanelClass      string

	// HideOnBlurDelayMS is nil or negative when blur never hides the panel.
	HideOnBlurDelayMS *int
}

// MediaPickerConfig configures the media picker extension.
type MediaPickerConfig struct {
	Buttons          []string
	TopMargin        int
	MinTopOffset     int
	InlinePlusButton bool
}

// EditorConfig configures the headless editor.
type EditorConfig struct {
	ViewportWidth  int
	ViewportHeight int
}

// LoggingConfig configures the host logger.
type LoggingConfig struct {
	Level string
	// Output is "stderr", "stdout" or a file path.
	Output string
}

// DirectoryConfig configures the contact directory.
type DirectoryConfig struct {
	Path  string
	Limit int
}

// ScriptConfig configures Lua host handlers. An empty Path disables them.
type ScriptConfig struct {
	Path string
}

// Default returns the built-in configuration.
func Default() *Config {
	m := mention.DefaultOptions()
	mp := mediapicker.DefaultOptions()
	delay := int(m.HideOnBlurDelay / time.Millisecond)

	buttons := make([]string, len(mp.Buttons))
	for i, k := range mp.Buttons {
		buttons[i] = string(k)
	}

	return &Config{
		Mention: MentionConfig{
			TagName:                    m.TagName,
			TriggerClassMap:            copyMap(m.TriggerClassMap),
			ActiveTriggerClassMap:      copyMap(m.ActiveTriggerClassMap),
			ExtraTriggerClassMap:       map[string]string{},
			ExtraActiveTriggerClassMap: map[string]string{},
			ActiveTriggers:             append([]string(nil), m.ActiveTriggers...),
			HideOnBlurDelayMS:          &delay,
		},
		MediaPicker: MediaPickerConfig{
			Buttons:          buttons,
			TopMargin:        mp.TopMargin,
			MinTopOffset:     mp.MinTopOffset,
			InlinePlusButton: mp.InlinePlusButton,
		},
		Editor: EditorConfig{
			ViewportWidth:  80,
			ViewportHeight: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
		},
		Directory: DirectoryConfig{
			Path:  "inkwell.db",
			Limit: 8,
		},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	m := &out.Mention
	m.TriggerClassMap = copyMap(c.Mention.TriggerClassMap)
	m.ActiveTriggerClassMap = copyMap(c.Mention.ActiveTriggerClassMap)
	m.ExtraTriggerClassMap = copyMap(c.Mention.ExtraTriggerClassMap)
	m.ExtraActiveTriggerClassMap = copyMap(c.Mention.ExtraActiveTriggerClassMap)
	m.ActiveTriggers = append([]string(nil), c.Mention.ActiveTriggers...)
	if c.Mention.HideOnBlurDelayMS != nil {
		v := *c.Mention.HideOnBlurDelayMS
		m.HideOnBlurDelayMS = &v
	}
	out.MediaPicker.Buttons = append([]string(nil), c.MediaPicker.Buttons...)
	return &out
}

// Validate checks every section and reports all failures at once as a
// *ValidationError.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	m := c.Mention
	if !validTag(m.TagName) {
		verr.add("mention.tag_name", "must be a tag name", m.TagName)
	}
	if len(m.TriggerClassMap) == 0 {
		verr.add("mention.trigger_class_map", "needs at least one trigger", nil)
	}
	for trig, class := range m.TriggerClassMap {
		if !validTrigger(trig) {
			verr.add("mention.trigger_class_map", "trigger must be one non-space character", trig)
		}
		if strings.TrimSpace(class) == "" {
			verr.add("mention.trigger_class_map", "class must not be empty", trig)
		}
	}
	maps := []struct {
		path string
		m    map[string]string
	}{
		{"mention.active_trigger_class_map", m.ActiveTriggerClassMap},
		{"mention.extra_trigger_class_map", m.ExtraTriggerClassMap},
		{"mention.extra_active_trigger_class_map", m.ExtraActiveTriggerClassMap},
	}
	for _, cm := range maps {
		for trig := range cm.m {
			if _, ok := m.TriggerClassMap[trig]; !ok {
				verr.add(cm.path, "trigger is not in trigger_class_map", trig)
			}
		}
	}
	for _, trig := range m.ActiveTriggers {
		if _, ok := m.TriggerClassMap[trig]; !ok {
			verr.add("mention.active_triggers", "trigger is not in trigger_class_map", trig)
		}
	}

	seen := make(map[string]bool)
	for _, b := range c.MediaPicker.Buttons {
		if _, err := mediapicker.ParseKind(b); err != nil {
			verr.add("media_picker.buttons", "unknown media kind", b)
		} else if seen[b] {
			verr.add("media_picker.buttons", "duplicate button", b)
		}
		seen[b] = true
	}
	if c.MediaPicker.TopMargin < 0 {
		verr.add("media_picker.top_margin", "must not be negative", c.MediaPicker.TopMargin)
	}
	if c.MediaPicker.MinTopOffset < 0 {
		verr.add("media_picker.min_top_offset", "must not be negative", c.MediaPicker.MinTopOffset)
	}

	if c.Editor.ViewportWidth <= 0 {
		verr.add("editor.viewport_width", "must be positive", c.Editor.ViewportWidth)
	}
	if c.Editor.ViewportHeight <= 0 {
		verr.add("editor.viewport_height", "must be positive", c.Editor.ViewportHeight)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		verr.add("logging.level", "must be one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Output == "" {
		verr.add("logging.output", "must not be empty", nil)
	}

	if c.Directory.Path == "" {
		verr.add("directory.path", "must not be empty", nil)
	}
	if c.Directory.Limit <= 0 {
		verr.add("directory.limit", "must be positive", c.Directory.Limit)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// HideOnBlurDelay converts the millisecond setting; a negative result
// disables hiding on blur.
func (m MentionConfig) HideOnBlurDelay() time.Duration {
	if m.HideOnBlurDelayMS == nil || *m.HideOnBlurDelayMS < 0 {
		return -1
	}
	return time.Duration(*m.HideOnBlurDelayMS) * time.Millisecond
}

// MentionOptions builds session options. Callbacks and the logger are left
// for the host to fill in.
func (c *Config) MentionOptions() mention.Options {
	m := c.Mention
	return mention.Options{
		TagName:                    m.TagName,
		TriggerClassMap:            copyMap(m.TriggerClassMap),
		ActiveTriggerClassMap:      copyMap(m.ActiveTriggerClassMap),
		ExtraTriggerClassMap:       copyMap(m.ExtraTriggerClassMap),
		ExtraActiveTriggerClassMap: copyMap(m.ExtraActiveTriggerClassMap),
		ActiveTriggers:             append([]string(nil), m.ActiveTriggers...),
		ExtraPanelClass:            m.ExtraPanelClass,
		ExtraActivePanelClass:      m.ExtraActivePanelClass,
		HideOnBlurDelay:            m.HideOnBlurDelay(),
	}
}

// MediaPickerOptions builds picker options. The delegate and the logger are
// left for the host to fill in.
func (c *Config) MediaPickerOptions() (mediapicker.Options, error) {
	mp := c.MediaPicker
	buttons := make([]mediapicker.Kind, 0, len(mp.Buttons))
	for _, b := range mp.Buttons {
		k, err := mediapicker.ParseKind(b)
		if err != nil {
			return mediapicker.Options{}, fmt.Errorf("media_picker.buttons: %w", err)
		}
		buttons = append(buttons, k)
	}
	return mediapicker.Options{
		Buttons:          buttons,
		InlinePlusButton: mp.InlinePlusButton,
		TopMargin:        mp.TopMargin,
		MinTopOffset:     mp.MinTopOffset,
	}, nil
}

// Viewport returns the editor window metrics.
func (c *Config) Viewport() dom.Viewport {
	return dom.Viewport{Width: c.Editor.ViewportWidth, Height: c.Editor.ViewportHeight}
}

// OpenLogger builds the host logger. The returned closer releases a log
// file and is a no-op for the standard streams.
func (l LoggingConfig) OpenLogger() (*logging.Logger, io.Closer, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(l.Level)

	var closer io.Closer = nopCloser{}
	switch l.Output {
	case "", "stderr":
		cfg.Output = os.Stderr
	case "stdout":
		cfg.Output = os.Stdout
	default:
		f, err := os.OpenFile(l.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log output: %w", err)
		}
		cfg.Output, closer = f, f
	}
	return logging.New(cfg), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func validTrigger(s string) bool {
	r, n := utf8.DecodeRuneInString(s)
	return n > 0 && n == len(s) && r != utf8.RuneError && !unicode.IsSpace(r)
}

func validTag(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))) {
			return false
		}
	}
	return true
}
