package editor

import "errors"

// Sentinel errors for the editor.
var (
	// ErrNoEditable is returned when a document has no editable root.
	ErrNoEditable = errors.New("document has no editable element")

	// ErrNotEditable is returned when a node lies outside every editable root.
	ErrNotEditable = errors.New("node is not inside an editable element")

	// ErrNoSelection is returned by operations that need a live caret.
	ErrNoSelection = errors.New("no selection")

	// ErrUnknownAction is returned by ExecAction for unregistered actions.
	ErrUnknownAction = errors.New("unknown action")

	// ErrExtensionExists is returned when an extension name is registered twice.
	ErrExtensionExists = errors.New("extension already registered")

	// ErrClosed is returned when using a closed editor.
	ErrClosed = errors.New("editor is closed")
)
