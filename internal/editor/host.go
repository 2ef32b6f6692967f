package editor

import (
	"time"

	"github.com/dshills/inkwell/internal/clock"
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/event"
)

// Key identifies a key in keyboard events.
type Key int

// Keys reported in keyboard events.
const (
	KeyNone Key = iota
	KeyRune
	KeySpace
	KeyEnter
	KeyBackspace
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyEscape
	KeyTab
)

var keyNames = map[Key]string{
	KeyNone:      "none",
	KeyRune:      "rune",
	KeySpace:     "space",
	KeyEnter:     "enter",
	KeyBackspace: "backspace",
	KeyLeft:      "left",
	KeyRight:     "right",
	KeyUp:        "up",
	KeyDown:      "down",
	KeyEscape:    "escape",
	KeyTab:       "tab",
}

// String returns the key name.
func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKey returns the key with the given name.
func ParseKey(name string) (Key, bool) {
	for k, s := range keyNames {
		if s == name {
			return k, true
		}
	}
	return KeyNone, false
}

// KeyForRune returns the key reported when r is typed.
func KeyForRune(r rune) Key {
	switch r {
	case ' ':
		return KeySpace
	case '\n':
		return KeyEnter
	case '\t':
		return KeyTab
	}
	return KeyRune
}

// Event is the payload delivered to extension handlers.
type Event struct {
	// Name is the topic the event was published on.
	Name event.Topic
	// Target is the node the event is about: the editable root for
	// keyboard and focus events, the clicked node for clicks, or
	// dom.InvalidNode for clicks outside the document.
	Target dom.NodeID
	// Key and Rune describe keyboard events.
	Key  Key
	Rune rune

	stopped   bool
	prevented bool
}

// StopPropagation prevents a click from reaching ancestors and window
// click handlers.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool {
	return e.stopped
}

// PreventDefault suppresses the default action of a keypress.
func (e *Event) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.prevented
}

// Handler receives editor events.
type Handler func(ev *Event)

// Host is the capability interface an extension depends on.
type Host interface {
	// Subscribe registers h for the named event.
	Subscribe(name event.Topic, h Handler) (*event.Subscription, error)
	// Unsubscribe removes a subscription. Unknown subscriptions are ignored.
	Unsubscribe(sub *event.Subscription)

	// Document returns the document being edited.
	Document() *dom.Document
	// EditorElements returns the editable roots.
	EditorElements() []dom.NodeID
	// ElementsContainer returns the node floating UI is appended to.
	ElementsContainer() dom.NodeID
	// FocusedElement returns the focused editable root, or dom.InvalidNode.
	FocusedElement() dom.NodeID

	// Selection returns the live range, if any.
	Selection() (dom.Range, bool)
	// SetSelection replaces the live range and focuses its editable root.
	SetSelection(r dom.Range) error
	// SaveSelection records the live range as text offsets.
	SaveSelection()
	// RestoreSelection re-applies the range recorded by SaveSelection.
	RestoreSelection()

	// CheckContentChanged publishes an input event if the editable content
	// changed since the last check.
	CheckContentChanged()
	// ExecAction runs a named editing action.
	ExecAction(name string) error
	// ExtensionByName returns a registered extension, or nil.
	ExtensionByName(name string) Extension

	// Blur removes focus and the live range.
	Blur()
	// Focus focuses the editable root.
	Focus(root dom.NodeID)

	// Viewport returns the visible window metrics.
	Viewport() dom.Viewport
	// Layout computes the geometry of the current document.
	Layout() *dom.Layout

	// AfterFunc schedules f onto the event queue after d.
	AfterFunc(d time.Duration, f func()) clock.Timer
	// OnClick registers a click listener on node. Clicks on descendants
	// bubble to it. The returned function removes the listener.
	OnClick(node dom.NodeID, fn Handler) (remove func())
}

// Extension is a feature plugged into a Host.
type Extension interface {
	Name() string
	Init(h Host) error
	Destroy()
}
