// Package event provides the synchronous, hierarchical event bus that
// editor extensions subscribe to.
//
// Topics use dot notation ("editor.editableKeyup"). Subscription patterns
// may contain wildcards: "*" matches exactly one segment and "**" matches
// zero or more. Publish delivers to every matching subscriber in priority
// order, then subscription order, on the caller's goroutine. A panicking
// handler is recovered and reported as a *PanicError; the remaining
// handlers still run.
package event
