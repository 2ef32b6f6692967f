package dom

import "errors"

// Errors returned by document operations.
var (
	// ErrNodeNotFound indicates a handle that was never issued by this document.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDetached indicates an operation that requires a parent on a node without one.
	ErrDetached = errors.New("node is detached")

	// ErrNotElement indicates an element-only operation on a text node.
	ErrNotElement = errors.New("node is not an element")

	// ErrNotText indicates a text-only operation on an element.
	ErrNotText = errors.New("node is not a text node")

	// ErrOffsetOutOfRange indicates a point offset outside its container.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrHierarchy indicates an insertion that would create a cycle or
	// reference a node that is not a child of the given parent.
	ErrHierarchy = errors.New("invalid hierarchy")
)
