package script

import "errors"

// Errors for script operations.
var (
	// ErrClosed is returned when operating on a closed engine.
	ErrClosed = errors.New("script engine is closed")

	// ErrNoHandler is returned when the script does not define a handler.
	ErrNoHandler = errors.New("handler not defined")

	// ErrTimeout is returned when a handler runs past its deadline.
	ErrTimeout = errors.New("script execution timeout")

	// ErrBadResult is returned when a handler returns a value of the wrong
	// shape.
	ErrBadResult = errors.New("unexpected handler result")
)
