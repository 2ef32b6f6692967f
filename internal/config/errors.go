package config

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by configuration operations.
var (
	// ErrUnknownSetting indicates a key that no section defines.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrTypeMismatch indicates the value type doesn't match the setting.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnsupportedFormat indicates a file extension with no parser.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrWatcherClosed indicates the watcher was already closed.
	ErrWatcherClosed = errors.New("watcher closed")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Line is the line number where the error occurred (if available).
	Line int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// SettingError reports a value that could not be applied to a setting.
type SettingError struct {
	Path  string
	Value any
	Err   error
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("setting %s (%v): %v", e.Path, e.Value, e.Err)
}

func (e *SettingError) Unwrap() error {
	return e.Err
}

// FieldError is a single validation failure.
type FieldError struct {
	Path    string
	Message string
	Value   any
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationError collects every validation failure of a Config.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch len(e.Fields) {
	case 0:
		return "no validation errors"
	case 1:
		return "invalid config: " + e.Fields[0].String()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return fmt.Sprintf("%d config errors:\n  - %s", len(e.Fields), strings.Join(msgs, "\n  - "))
}

func (e *ValidationError) add(path, message string, value any) {
	e.Fields = append(e.Fields, FieldError{Path: path, Message: message, Value: value})
}

// Has reports whether path failed validation.
func (e *ValidationError) Has(path string) bool {
	for _, f := range e.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}
