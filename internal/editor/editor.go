package editor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/inkwell/internal/clock"
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/logging"
)

// EditableAttr marks editable roots.
const EditableAttr = "contenteditable"

// Default viewport size in cells.
const (
	DefaultViewportWidth  = 80
	DefaultViewportHeight = 24
)

var _ Host = (*Editor)(nil)

// Editor is a headless editable surface.
type Editor struct {
	doc       *dom.Document
	roots     []dom.NodeID
	container dom.NodeID

	bus   *event.Bus
	clock clock.Clock
	log   *logging.Logger

	viewport dom.Viewport

	// Live selection state.
	sel     dom.Range
	hasSel  bool
	focused dom.NodeID
	saved   *savedSelection

	lastContent string

	actions    map[string]Action
	extensions []Extension
	byName     map[string]Extension

	listeners map[dom.NodeID][]*listener
	listenSeq uint64

	mu       sync.Mutex
	queue    []func()
	draining bool
	closed   bool
}

type savedSelection struct {
	root       int
	start, end int
}

type listener struct {
	id uint64
	fn Handler
}

// Option configures an Editor.
type Option func(*Editor)

// WithClock sets the clock used by AfterFunc.
func WithClock(c clock.Clock) Option {
	return func(e *Editor) {
		e.clock = c
	}
}

// WithLogger sets the editor logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Editor) {
		e.log = l
	}
}

// WithViewport sets the visible window metrics.
func WithViewport(vp dom.Viewport) Option {
	return func(e *Editor) {
		e.viewport = vp
	}
}

// WithContainer sets the node floating UI is appended to. It defaults to
// the document root.
func WithContainer(id dom.NodeID) Option {
	return func(e *Editor) {
		e.container = id
	}
}

// New creates an editor over doc. Every element with
// contenteditable="true" becomes an editable root.
func New(doc *dom.Document, opts ...Option) (*Editor, error) {
	e := &Editor{
		doc:       doc,
		container: doc.Root(),
		clock:     clock.Real(),
		log:       logging.Nop(),
		viewport:  dom.Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		byName:    make(map[string]Extension),
		listeners: make(map[dom.NodeID][]*listener),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrNop(e.log).WithComponent("editor")
	e.bus = event.NewBus(event.WithLogger(e.log))

	e.roots = doc.FindAll(doc.Root(), func(id dom.NodeID) bool {
		v, ok := doc.Attr(id, EditableAttr)
		return ok && v == "true"
	})
	if len(e.roots) == 0 {
		return nil, ErrNoEditable
	}

	e.actions = defaultActions()
	e.lastContent = e.content()
	return e, nil
}

// NewFromHTML parses src and creates an editor over it.
func NewFromHTML(src string, opts ...Option) (*Editor, error) {
	doc, err := dom.ParseHTML(src)
	if err != nil {
		return nil, fmt.Errorf("parse editor content: %w", err)
	}
	return New(doc, opts...)
}

// Document returns the edited document.
func (e *Editor) Document() *dom.Document {
	return e.doc
}

// EditorElements returns the editable roots.
func (e *Editor) EditorElements() []dom.NodeID {
	out := make([]dom.NodeID, len(e.roots))
	copy(out, e.roots)
	return out
}

// ElementsContainer returns the node floating UI is appended to.
func (e *Editor) ElementsContainer() dom.NodeID {
	return e.container
}

// FocusedElement returns the focused editable root.
func (e *Editor) FocusedElement() dom.NodeID {
	return e.focused
}

// Viewport returns the visible window metrics.
func (e *Editor) Viewport() dom.Viewport {
	return e.viewport
}

// SetViewport updates the visible window metrics.
func (e *Editor) SetViewport(vp dom.Viewport) {
	e.viewport = vp
}

// Layout computes geometry for the whole document at the viewport width.
func (e *Editor) Layout() *dom.Layout {
	return e.doc.Layout(e.doc.Root(), e.viewport.Width)
}

// Logger returns the editor logger.
func (e *Editor) Logger() *logging.Logger {
	return e.log
}

// RootOf returns the editable root containing id, or dom.InvalidNode.
func (e *Editor) RootOf(id dom.NodeID) dom.NodeID {
	for _, r := range e.roots {
		if e.doc.Contains(r, id) {
			return r
		}
	}
	return dom.InvalidNode
}

// Subscribe registers h for the named event.
func (e *Editor) Subscribe(name event.Topic, h Handler) (*event.Subscription, error) {
	if h == nil {
		return nil, event.ErrNilHandler
	}
	return e.bus.Subscribe(name, func(ev event.Event) error {
		if p, ok := ev.Payload.(*Event); ok {
			h(p)
		}
		return nil
	})
}

// Unsubscribe removes sub.
func (e *Editor) Unsubscribe(sub *event.Subscription) {
	if sub == nil {
		return
	}
	_ = e.bus.Unsubscribe(sub)
}

// Selection returns the live range.
func (e *Editor) Selection() (dom.Range, bool) {
	if !e.hasSel {
		return dom.Range{}, false
	}
	return e.sel, true
}

// SetSelection replaces the live range. If the range lies in an editable
// root that is not focused, that root gains focus.
func (e *Editor) SetSelection(r dom.Range) error {
	if err := e.doc.CheckRange(r); err != nil {
		return fmt.Errorf("set selection: %w", err)
	}
	root := e.RootOf(r.Start.Node)
	if root == dom.InvalidNode || e.RootOf(r.End.Node) != root {
		return fmt.Errorf("set selection %s: %w", r, ErrNotEditable)
	}
	e.sel, e.hasSel = r, true
	if e.focused != root {
		e.focusRoot(root)
	}
	return nil
}

// ClearSelection drops the live range without changing focus.
func (e *Editor) ClearSelection() {
	e.sel, e.hasSel = dom.Range{}, false
}

// SaveSelection records the live range as text offsets in its editable
// root, so it survives structural changes that keep the text intact.
func (e *Editor) SaveSelection() {
	e.saved = nil
	if !e.hasSel {
		return
	}
	root := e.RootOf(e.sel.Start.Node)
	start, ok1 := e.doc.TextOffset(root, e.sel.Start)
	end, ok2 := e.doc.TextOffset(root, e.sel.End)
	if !ok1 || !ok2 {
		return
	}
	for i, r := range e.roots {
		if r == root {
			e.saved = &savedSelection{root: i, start: start, end: end}
		}
	}
}

// RestoreSelection re-applies the range recorded by SaveSelection.
func (e *Editor) RestoreSelection() {
	if e.saved == nil || e.saved.root >= len(e.roots) {
		return
	}
	root := e.roots[e.saved.root]
	start := e.doc.PointAtTextOffset(root, e.saved.start, true)
	end := e.doc.PointAtTextOffset(root, e.saved.end, false)
	if e.saved.start == e.saved.end {
		end = start
	}
	if err := e.SetSelection(dom.Range{Start: start, End: end}); err != nil {
		e.log.Debug("restore selection failed", "error", err)
	}
}

// CheckContentChanged queues an input event if the editable content
// differs from the last check.
func (e *Editor) CheckContentChanged() {
	content := e.content()
	if content == e.lastContent {
		return
	}
	e.lastContent = content
	target := e.focused
	if target == dom.InvalidNode {
		target = e.roots[0]
	}
	e.emit(&Event{Name: event.TopicInput, Target: target})
}

func (e *Editor) content() string {
	var b strings.Builder
	for _, r := range e.roots {
		b.WriteString(e.doc.InnerHTML(r))
		b.WriteByte(0)
	}
	return b.String()
}

// Blur removes focus and the live range and queues a blur event.
func (e *Editor) Blur() {
	if e.focused == dom.InvalidNode {
		return
	}
	root := e.focused
	e.focused = dom.InvalidNode
	e.ClearSelection()
	e.emit(&Event{Name: event.TopicBlur, Target: root})
}

// Focus focuses root. Without a live range in root the caret is placed at
// its start.
func (e *Editor) Focus(root dom.NodeID) {
	if e.RootOf(root) != root {
		return
	}
	if !e.hasSel || e.RootOf(e.sel.Start.Node) != root {
		e.sel, e.hasSel = dom.CaretAt(e.doc.PointAtTextOffset(root, 0, true)), true
	}
	if e.focused != root {
		e.focusRoot(root)
	}
}

func (e *Editor) focusRoot(root dom.NodeID) {
	prev := e.focused
	e.focused = root
	if prev != dom.InvalidNode {
		e.emit(&Event{Name: event.TopicBlur, Target: prev})
	}
	e.emit(&Event{Name: event.TopicFocus, Target: root})
}

// ExtensionByName returns a registered extension, or nil.
func (e *Editor) ExtensionByName(name string) Extension {
	return e.byName[name]
}

// Use registers and initializes ext.
func (e *Editor) Use(ext Extension) error {
	if e.closed {
		return ErrClosed
	}
	name := ext.Name()
	if _, ok := e.byName[name]; ok {
		return fmt.Errorf("use %q: %w", name, ErrExtensionExists)
	}
	if err := ext.Init(e); err != nil {
		return fmt.Errorf("init %q: %w", name, err)
	}
	e.extensions = append(e.extensions, ext)
	e.byName[name] = ext
	e.log.Debug("extension registered", "name", name)
	return nil
}

// Close destroys every extension in reverse registration order. It is
// safe to call more than once.
func (e *Editor) Close() {
	if e.closed {
		return
	}
	e.closed = true
	for i := len(e.extensions) - 1; i >= 0; i-- {
		e.extensions[i].Destroy()
	}
	e.extensions = nil
	e.byName = make(map[string]Extension)
}

// AfterFunc schedules f onto the event queue after d.
func (e *Editor) AfterFunc(d time.Duration, f func()) clock.Timer {
	return e.clock.AfterFunc(d, func() { e.post(f) })
}

// OnClick registers a click listener on node.
func (e *Editor) OnClick(node dom.NodeID, fn Handler) func() {
	e.listenSeq++
	id := e.listenSeq
	e.listeners[node] = append(e.listeners[node], &listener{id: id, fn: fn})
	return func() {
		ls := e.listeners[node]
		for i, l := range ls {
			if l.id == id {
				e.listeners[node] = append(ls[:i], ls[i+1:]...)
				break
			}
		}
		if len(e.listeners[node]) == 0 {
			delete(e.listeners, node)
		}
	}
}

// Listeners returns the number of click listeners registered on node.
func (e *Editor) Listeners(node dom.NodeID) int {
	return len(e.listeners[node])
}

// Do runs f on the event queue. When called outside a queued task, f and
// everything it queues have run when Do returns.
func (e *Editor) Do(f func()) {
	e.post(f)
}

// emit queues the publication of ev.
func (e *Editor) emit(ev *Event) {
	e.post(func() { e.publish(ev) })
}

func (e *Editor) publish(ev *Event) {
	if err := e.bus.Publish(ev.Name, ev); err != nil {
		e.log.Warn("event handler failed", "event", ev.Name, "error", err)
	}
}

// post appends f to the queue and drains it unless a drain is already in
// progress, in which case f runs after the current task.
func (e *Editor) post(f func()) {
	e.mu.Lock()
	e.queue = append(e.queue, f)
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	e.mu.Unlock()

	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.draining = false
			e.mu.Unlock()
			return
		}
		next := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()
		next()
	}
}
