// Package mediapicker implements the media insertion session: a floating
// "+" affordance shown next to empty blocks, a row of media buttons, and
// the completion calls that insert images, embeds, attachment cards and
// dividers at the caret saved when the row was opened.
//
// The affordance is either visible or hidden; independently, the row is
// collapsed or expanded. Clicking a media button other than the divider
// sets a waiting guard until the host answers with a completion call, and
// every show, hide, expand and collapse is refused while it is set.
package mediapicker

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/selection"
	"github.com/dshills/inkwell/internal/trigger"
)

// Markup classes.
const (
	PickerClass            = "medium-editor-media-picker"
	MainButtonClass        = "add-media-bt"
	ButtonsClass           = "media-picker-container"
	ExpandedClass          = "expanded"
	PlaceholderHiddenClass = "medium-editor-placeholder-hidden"
)

const (
	titleInsert = "Insert media"
	titleClose  = "Close"
)

// PlaceholderName is the extension asked to hide its placeholder on expand.
const PlaceholderName = "placeholder"

// PlaceholderHider is implemented by placeholder extensions.
type PlaceholderHider interface {
	HidePlaceholder()
}

// Session is one media picker instance bound to a host.
type Session struct {
	host    editor.Host
	doc     *dom.Document
	opts    Options
	log     *logging.Logger
	memento *selection.Memento

	picker     dom.NodeID
	mainButton dom.NodeID
	row        dom.NodeID
	buttons    map[Kind]dom.NodeID

	visible  bool
	expanded bool
	waiting  bool
	pending  Kind
	top      int
	snapshot *selection.Snapshot

	subs      []*event.Subscription
	unclick   []func()
	removers  map[string]func()
	destroyed bool
}

// New creates a session. With InlinePlusButton set the affordance is
// appended next to the first editable root.
func New(host editor.Host, opts Options) (*Session, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if opts.Buttons == nil {
		opts.Buttons = append([]Kind(nil), DefaultButtons...)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.Logger = logging.OrNop(opts.Logger)

	s := &Session{
		host:    host,
		doc:     host.Document(),
		opts:    opts,
		log:     opts.Logger.WithComponent(Name),
		memento: selection.NewMemento(host.Document()),
		buttons: make(map[Kind]dom.NodeID),
	}
	if opts.InlinePlusButton {
		if err := s.createPicker(); err != nil {
			return nil, err
		}
	}
	if err := s.attach(); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *Session) createPicker() error {
	d := s.doc
	picker := d.CreateElement("div")
	_ = d.SetAttr(picker, "id", "medium-editor-media-picker-"+uuid.NewString()[:8])
	_ = d.AddClass(picker, PickerClass)
	_ = d.SetAttr(picker, "style", "display: none")
	_ = d.SetAttr(picker, dom.FloatingAttr, "true")

	main := d.CreateElement("button")
	_ = d.AddClass(main, "media", MainButtonClass)
	tooltip(d, main, titleInsert)
	_ = d.AppendChild(picker, main)

	row := d.CreateElement("div")
	_ = d.AddClass(row, ButtonsClass, "media-"+strconv.Itoa(len(s.opts.Buttons)))
	for i, k := range s.opts.Buttons {
		spec := buttonSpecs[k]
		b := d.CreateElement("button")
		_ = d.AddClass(b, "media", spec.class, "media-"+strconv.Itoa(i))
		_ = d.SetAttr(b, "data-media-kind", string(k))
		tooltip(d, b, spec.title)
		_ = d.AppendChild(row, b)
		s.buttons[k] = b
	}
	_ = d.AppendChild(picker, row)

	if err := d.AppendChild(s.pickerParent(), picker); err != nil {
		return err
	}
	s.picker, s.mainButton, s.row = picker, main, row
	return nil
}

func tooltip(d *dom.Document, id dom.NodeID, title string) {
	_ = d.SetAttr(id, "title", title)
	_ = d.SetAttr(id, "data-toggle", "tooltip")
	_ = d.SetAttr(id, "data-placement", "top")
	_ = d.SetAttr(id, "data-container", "body")
}

func (s *Session) pickerParent() dom.NodeID {
	roots := s.host.EditorElements()
	if len(roots) > 0 {
		if p := s.doc.Parent(roots[0]); p != dom.InvalidNode {
			return p
		}
	}
	return s.host.ElementsContainer()
}

func (s *Session) attach() error {
	sub := func(name event.Topic, h editor.Handler) error {
		x, err := s.host.Subscribe(name, h)
		if err != nil {
			return err
		}
		s.subs = append(s.subs, x)
		return nil
	}
	if s.opts.InlinePlusButton {
		refresh := func(*editor.Event) { s.Refresh() }
		for _, t := range []event.Topic{event.TopicClick, event.TopicKeyup, event.TopicInput} {
			if err := sub(t, refresh); err != nil {
				return err
			}
		}
		s.unclick = append(s.unclick, s.host.OnClick(s.mainButton, s.handleMainClick))
		for _, k := range s.opts.Buttons {
			kind := k
			s.unclick = append(s.unclick, s.host.OnClick(s.buttons[k], func(ev *editor.Event) {
				s.handleButtonClick(kind, ev)
			}))
		}
	}
	return sub(event.TopicWindowClick, func(ev *editor.Event) {
		s.HandleOutsideClick(ev.Target)
	})
}

// Name returns the extension name.
func (s *Session) Name() string {
	return Name
}

// Picker returns the affordance element, or dom.InvalidNode without an
// inline button.
func (s *Session) Picker() dom.NodeID {
	return s.picker
}

// MainButton returns the "+" button.
func (s *Session) MainButton() dom.NodeID {
	return s.mainButton
}

// Button returns the button for kind, or dom.InvalidNode.
func (s *Session) Button(kind Kind) dom.NodeID {
	return s.buttons[kind]
}

// Visible reports whether the affordance is shown.
func (s *Session) Visible() bool {
	return s.visible
}

// Expanded reports whether the button row is open.
func (s *Session) Expanded() bool {
	return s.expanded
}

// Waiting reports whether a host completion is outstanding.
func (s *Session) Waiting() bool {
	return s.waiting
}

// Pending returns the kind of the outstanding request, or "".
func (s *Session) Pending() Kind {
	if !s.waiting {
		return ""
	}
	return s.pending
}

// Top returns the affordance's last top offset relative to its parent.
func (s *Session) Top() int {
	return s.top
}

// Snapshot returns the saved selection, or nil.
func (s *Session) Snapshot() *selection.Snapshot {
	return s.snapshot
}

func (s *Session) notify(ev Lifecycle) {
	if f := s.opts.Delegate.OnLifecycle; f != nil {
		f(s, ev)
	}
}

// Refresh shows the affordance above the caret's block when that block is
// empty, and hides it otherwise.
func (s *Session) Refresh() {
	if s.destroyed || !s.opts.InlinePlusButton || s.waiting {
		return
	}
	if rng, ok := s.host.Selection(); ok {
		block := s.doc.CommonAncestor(rng)
		if trigger.IsEmptyBlock(s.doc, block) {
			s.position(block)
			s.show()
			return
		}
	}
	s.hide()
}

func (s *Session) position(block dom.NodeID) {
	lay := s.host.Layout()
	r, ok := lay.Rect(block)
	if !ok {
		return
	}
	parentY := 0
	if pr, ok := lay.Rect(s.doc.Parent(s.picker)); ok {
		parentY = pr.Y
	}
	s.top = max(r.Y-parentY-s.opts.TopMargin, s.opts.MinTopOffset)
	_ = s.doc.SetAttr(s.picker, "data-top", strconv.Itoa(s.top))
}

func (s *Session) show() {
	if s.waiting || s.visible {
		return
	}
	s.notify(WillShow)
	s.visible = true
	_ = s.doc.SetAttr(s.picker, "style", "display: block")
	s.notify(DidShow)
}

func (s *Session) hide() {
	if s.waiting {
		return
	}
	s.collapse()
	if !s.visible {
		return
	}
	s.notify(WillHide)
	s.visible = false
	if s.picker != dom.InvalidNode {
		_ = s.doc.SetAttr(s.picker, "style", "display: none")
	}
	s.notify(DidHide)
}

func (s *Session) expand() {
	if s.waiting || s.expanded {
		return
	}
	s.notify(WillExpand)
	d := s.doc
	for _, r := range s.host.EditorElements() {
		_ = d.AddClass(r, PlaceholderHiddenClass)
	}
	if ph, ok := s.host.ExtensionByName(PlaceholderName).(PlaceholderHider); ok {
		ph.HidePlaceholder()
	}
	s.SaveSelection()

	s.expanded = true
	_ = d.AddClass(s.mainButton, ExpandedClass)
	_ = d.AddClass(s.row, ExpandedClass)
	_ = d.SetAttr(s.mainButton, "title", titleClose)
	s.notify(DidExpand)
}

func (s *Session) collapse() {
	if s.waiting || !s.expanded {
		return
	}
	s.notify(WillCollapse)
	s.expanded = false
	d := s.doc
	d.RemoveClass(s.mainButton, ExpandedClass)
	d.RemoveClass(s.row, ExpandedClass)
	_ = d.SetAttr(s.mainButton, "title", titleInsert)
	s.notify(DidCollapse)
}

// SaveSelection snapshots the live range and blurs the surface, so the
// range survives a host dialog taking focus. A previous snapshot is
// dropped first.
func (s *Session) SaveSelection() {
	s.memento.Discard()
	s.snapshot = nil
	if rng, ok := s.host.Selection(); ok {
		snap, err := s.memento.Save(rng)
		if err != nil {
			s.log.Debug("selection not saved", "error", err)
		} else {
			s.snapshot = snap
		}
	}
	s.host.Blur()
}

// RemoveSelection drops the saved selection without restoring it.
func (s *Session) RemoveSelection() {
	s.memento.Discard()
	s.snapshot = nil
}

// handleMainClick toggles the row. A direct click always clears the
// waiting guard.
func (s *Session) handleMainClick(ev *editor.Event) {
	ev.StopPropagation()
	if s.destroyed {
		return
	}
	s.waiting = false
	if s.expanded {
		s.collapse()
		s.RemoveSelection()
		return
	}
	s.expand()
}

func (s *Session) handleButtonClick(kind Kind, ev *editor.Event) {
	if kind == KindDivider {
		ev.StopPropagation()
	}
	_ = s.ClickButton(kind)
}

// ClickButton performs a media button click. The divider is inserted at
// once; every other kind collapses the row, sets the waiting guard and asks
// the delegate. Clicks of any kind fail with ErrWaiting until the pending
// one is completed or cancelled.
func (s *Session) ClickButton(kind Kind) error {
	if s.destroyed {
		return ErrDestroyed
	}
	if !kind.Valid() {
		return &UnknownKindError{Kind: string(kind)}
	}
	if !s.configured(kind) {
		return ErrButtonNotConfigured
	}
	if s.waiting {
		s.log.Debug("click dropped while waiting", "kind", string(kind), "pending", string(s.pending))
		return ErrWaiting
	}
	s.collapse()
	if kind == KindDivider {
		s.delegateClick(kind)
		s.insertDivider()
		return nil
	}
	s.waiting, s.pending = true, kind
	s.log.Debug("waiting for host", "kind", string(kind))
	s.delegateClick(kind)
	return nil
}

func (s *Session) configured(kind Kind) bool {
	for _, k := range s.opts.Buttons {
		if k == kind {
			return true
		}
	}
	return false
}

func (s *Session) delegateClick(kind Kind) {
	if f := s.opts.Delegate.OnPickerClick; f != nil {
		f(s, kind)
	}
}

// HandleOutsideClick hides and collapses the picker when target is neither
// inside an editable root nor inside the picker.
func (s *Session) HandleOutsideClick(target dom.NodeID) {
	if s.destroyed || s.waiting || !s.opts.InlinePlusButton {
		return
	}
	if target != dom.InvalidNode {
		if s.doc.Contains(s.picker, target) {
			return
		}
		for _, r := range s.host.EditorElements() {
			if s.doc.Contains(r, target) {
				return
			}
		}
	}
	s.hide()
	s.collapse()
}

// Destroy removes the affordance and any saved selection markers. It is
// safe to call more than once.
func (s *Session) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, sub := range s.subs {
		s.host.Unsubscribe(sub)
	}
	s.subs = nil
	for _, remove := range s.unclick {
		remove()
	}
	s.unclick = nil
	for _, release := range s.removers {
		release()
	}
	s.removers = nil
	s.RemoveSelection()
	for _, r := range s.host.EditorElements() {
		s.doc.RemoveClass(r, PlaceholderHiddenClass)
	}
	if s.picker != dom.InvalidNode && s.doc.IsAttached(s.picker) {
		_ = s.doc.Remove(s.picker)
	}
	s.picker, s.mainButton, s.row = dom.InvalidNode, dom.InvalidNode, dom.InvalidNode
	s.buttons = nil
	s.visible, s.expanded, s.waiting = false, false, false
}

// Plugin adapts a Session to editor.Extension.
type Plugin struct {
	opts    Options
	session *Session
}

// NewPlugin returns an extension that creates a session on Init.
func NewPlugin(opts Options) *Plugin {
	return &Plugin{opts: opts}
}

// Name returns the extension name.
func (p *Plugin) Name() string {
	return Name
}

// Init creates the session.
func (p *Plugin) Init(h editor.Host) error {
	s, err := New(h, p.opts)
	if err != nil {
		return err
	}
	p.session = s
	return nil
}

// Destroy tears the session down.
func (p *Plugin) Destroy() {
	if p.session != nil {
		p.session.Destroy()
	}
}

// Session returns the running session, or nil before Init.
func (p *Plugin) Session() *Session {
	return p.session
}
