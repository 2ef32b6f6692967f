package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "INKWELL_"

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Load reads the file at path over the defaults, then applies INKWELL_
// environment overrides and validates the result. An empty path or a
// missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with a custom environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		values, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(values); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if lookup != nil {
		if err := cfg.Apply(EnvValues(lookup)); err != nil {
			return nil, fmt.Errorf("environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile parses the file at path into a settings map. A missing file
// yields nil and no error.
func ReadFile(path string) (map[string]any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(path, data, format)
}

// Parse decodes data into a settings map. source names the data in
// errors.
func Parse(source string, data []byte, format Format) (map[string]any, error) {
	values := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &values); err != nil {
			perr := &ParseError{Path: source, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, _ = derr.Position()
			}
			return nil, perr
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("%s: %w", source, ErrUnsupportedFormat)
	}
	return values, nil
}

// Apply writes a two-level settings map (section, then key) onto c. Keys
// are visited in sorted order and the first bad value stops the walk.
// Map and list settings are replaced, not merged.
func (c *Config) Apply(values map[string]any) error {
	for _, section := range sortedKeys(values) {
		keys, ok := values[section].(map[string]any)
		if !ok {
			if values[section] == nil {
				continue
			}
			return &SettingError{Path: section, Value: values[section], Err: ErrTypeMismatch}
		}
		for _, key := range sortedKeys(keys) {
			path := section + "." + key
			s, ok := settingsByPath[path]
			if !ok {
				return &SettingError{Path: path, Value: keys[key], Err: ErrUnknownSetting}
			}
			if err := s.set(c, keys[key]); err != nil {
				return &SettingError{Path: path, Value: keys[key], Err: err}
			}
		}
	}
	return nil
}

// EnvName returns the environment variable overriding a setting path,
// e.g. INKWELL_MENTION_HIDE_ON_BLUR_DELAY_MS for
// mention.hide_on_blur_delay_ms.
func EnvName(path string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// EnvValues collects the overrides visible through lookup as a settings
// map. Values stay strings; the setters parse them.
func EnvValues(lookup func(string) (string, bool)) map[string]any {
	values := make(map[string]any)
	for _, s := range settings {
		raw, ok := lookup(EnvName(s.path))
		if !ok {
			continue
		}
		section, key, _ := strings.Cut(s.path, ".")
		m, ok := values[section].(map[string]any)
		if !ok {
			m = make(map[string]any)
			values[section] = m
		}
		m[key] = raw
	}
	return values
}

// Paths lists every setting path.
func Paths() []string {
	out := make([]string, len(settings))
	for i, s := range settings {
		out[i] = s.path
	}
	return out
}

type setting struct {
	path string
	set  func(c *Config, v any) error
}

var settings = []setting{
	{"mention.tag_name", func(c *Config, v any) error { return setString(&c.Mention.TagName, v) }},
	{"mention.trigger_class_map", func(c *Config, v any) error { return setStringMap(&c.Mention.TriggerClassMap, v) }},
	{"mention.active_trigger_class_map", func(c *Config, v any) error { return setStringMap(&c.Mention.ActiveTriggerClassMap, v) }},
	{"mention.extra_trigger_class_map", func(c *Config, v any) error { return setStringMap(&c.Mention.ExtraTriggerClassMap, v) }},
	{"mention.extra_active_trigger_class_map", func(c *Config, v any) error {
		return setStringMap(&c.Mention.ExtraActiveTriggerClassMap, v)
	}},
	{"mention.active_triggers", func(c *Config, v any) error { return setStringList(&c.Mention.ActiveTriggers, v) }},
	{"mention.extra_panel_class", func(c *Config, v any) error { return setString(&c.Mention.ExtraPanelClass, v) }},
	{"mention.extra_active_panel_class", func(c *Config, v any) error { return setString(&c.Mention.ExtraActivePanelClass, v) }},
	{"mention.hide_on_blur_delay_ms", func(c *Config, v any) error { return setOptionalInt(&c.Mention.HideOnBlurDelayMS, v) }},

	{"media_picker.buttons", func(c *Config, v any) error { return setStringList(&c.MediaPicker.Buttons, v) }},
	{"media_picker.top_margin", func(c *Config, v any) error { return setInt(&c.MediaPicker.TopMargin, v) }},
	{"media_picker.min_top_offset", func(c *Config, v any) error { return setInt(&c.MediaPicker.MinTopOffset, v) }},
	{"media_picker.inline_plus_button", func(c *Config, v any) error { return setBool(&c.MediaPicker.InlinePlusButton, v) }},

	{"editor.viewport_width", func(c *Config, v any) error { return setInt(&c.Editor.ViewportWidth, v) }},
	{"editor.viewport_height", func(c *Config, v any) error { return setInt(&c.Editor.ViewportHeight, v) }},

	{"logging.level", func(c *Config, v any) error { return setString(&c.Logging.Level, v) }},
	{"logging.output", func(c *Config, v any) error { return setString(&c.Logging.Output, v) }},

	{"directory.path", func(c *Config, v any) error { return setString(&c.Directory.Path, v) }},
	{"directory.limit", func(c *Config, v any) error { return setInt(&c.Directory.Limit, v) }},

	{"script.path", func(c *Config, v any) error { return setString(&c.Script.Path, v) }},
}

var settingsByPath = func() map[string]setting {
	m := make(map[string]setting, len(settings))
	for _, s := range settings {
		m[s.path] = s
	}
	return m
}()

func setString(dst *string, v any) error {
	s, ok := v.(string)
	if !ok {
		return ErrTypeMismatch
	}
	*dst = s
	return nil
}

func setBool(dst *bool, v any) error {
	switch b := v.(type) {
	case bool:
		*dst = b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return ErrTypeMismatch
		}
		*dst = parsed
	default:
		return ErrTypeMismatch
	}
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, ErrTypeMismatch
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, ErrTypeMismatch
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, ErrTypeMismatch
		}
		return i, nil
	}
	return 0, ErrTypeMismatch
}

func setInt(dst *int, v any) error {
	i, err := toInt(v)
	if err != nil {
		return err
	}
	*dst = i
	return nil
}

// setOptionalInt accepts nil, "" and "null" as unset.
func setOptionalInt(dst **int, v any) error {
	if s, ok := v.(string); ok {
		if t := strings.TrimSpace(s); t == "" || strings.EqualFold(t, "null") {
			v = nil
		}
	}
	if v == nil {
		*dst = nil
		return nil
	}
	i, err := toInt(v)
	if err != nil {
		return err
	}
	*dst = &i
	return nil
}

// setStringMap accepts a decoded table or a JSON object string.
func setStringMap(dst *map[string]string, v any) error {
	if s, ok := v.(string); ok {
		if !gjson.Valid(s) {
			return ErrTypeMismatch
		}
		res := gjson.Parse(s)
		if !res.IsObject() {
			return ErrTypeMismatch
		}
		out := make(map[string]string)
		var bad bool
		res.ForEach(func(k, val gjson.Result) bool {
			if val.Type != gjson.String {
				bad = true
				return false
			}
			out[k.String()] = val.String()
			return true
		})
		if bad {
			return ErrTypeMismatch
		}
		*dst = out
		return nil
	}

	switch m := v.(type) {
	case nil:
		*dst = map[string]string{}
	case map[string]string:
		*dst = copyMap(m)
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			s, ok := val.(string)
			if !ok {
				return ErrTypeMismatch
			}
			out[k] = s
		}
		*dst = out
	default:
		return ErrTypeMismatch
	}
	return nil
}

// setStringList accepts a decoded array, a JSON array string or a comma
// separated string.
func setStringList(dst *[]string, v any) error {
	switch l := v.(type) {
	case nil:
		*dst = []string{}
	case []string:
		*dst = append([]string{}, l...)
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return ErrTypeMismatch
			}
			out = append(out, s)
		}
		*dst = out
	case string:
		t := strings.TrimSpace(l)
		out := []string{}
		if strings.HasPrefix(t, "[") {
			res := gjson.Parse(t)
			if !gjson.Valid(t) || !res.IsArray() {
				return ErrTypeMismatch
			}
			for _, item := range res.Array() {
				if item.Type != gjson.String {
					return ErrTypeMismatch
				}
				out = append(out, item.String())
			}
		} else if t != "" {
			for _, part := range strings.Split(t, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
		}
		*dst = out
	default:
		return ErrTypeMismatch
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
