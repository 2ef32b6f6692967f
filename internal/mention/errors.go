package mention

import "errors"

var (
	// ErrNilHost is returned when a session is created without a host.
	ErrNilHost = errors.New("mention: nil host")

	// ErrDestroyed is returned when using a destroyed session.
	ErrDestroyed = errors.New("mention: session destroyed")
)
