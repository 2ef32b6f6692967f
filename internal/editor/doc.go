// Package editor defines the capability interface editor extensions are
// written against, and Editor, a headless editable surface that
// implements it.
//
// Editor processes input on a FIFO queue. A queued task runs to
// completion before the next one starts; events published while a task is
// running (a blur triggered from inside a click handler, a content-changed
// notification raised by an insertion) are queued behind it. Timer
// callbacks scheduled through AfterFunc are posted onto the same queue, so
// they never interleave with an event handler.
//
// The harness methods (TypeText, KeyUp, Click, Blur and friends) drive the
// surface the way a user would. Only the minimal editing primitives needed
// to exercise extensions are implemented.
package editor
