package mediapicker

import (
	"errors"
	"fmt"
)

var (
	// ErrNilHost is returned when a session is created without a host.
	ErrNilHost = errors.New("media picker: nil host")

	// ErrUnknownKind is matched by UnknownKindError.
	ErrUnknownKind = errors.New("media picker: unknown media kind")

	// ErrButtonNotConfigured is returned by ClickButton for a kind that is
	// not in the button row.
	ErrButtonNotConfigured = errors.New("media picker: button not configured")

	// ErrWaiting is returned by ClickButton while an earlier click still
	// waits for its completion.
	ErrWaiting = errors.New("media picker: waiting for the host")

	// ErrAttachmentNotFound is returned by RemoveAttachment.
	ErrAttachmentNotFound = errors.New("media picker: attachment not found")

	// ErrInvalidAttachment is returned for malformed attachment metadata.
	ErrInvalidAttachment = errors.New("media picker: invalid attachment metadata")

	// ErrDestroyed is returned when using a destroyed session.
	ErrDestroyed = errors.New("media picker: session destroyed")
)

// UnknownKindError reports a button name that is not a media kind.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("media picker: unknown media kind %q", e.Kind)
}

// Is matches ErrUnknownKind.
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}
