// Package mention implements the in-progress mention session: it wraps a
// trigger word being typed in a marker element, keeps a suggestion panel
// positioned next to it, and commits or unwraps the marker.
//
// State machine:
//
//	Idle -> Composing         keyup on an active trigger word longer than one rune
//	Composing -> Idle         Select with text (commit)
//	Composing -> Idle         Select with "" / word shrinks / trigger lost /
//	                          space typed / blur outlasting the delay (abandon)
//
// Abandonment always unwraps the marker and merges the text it held back
// into its neighbours.
package mention

import (
	"strconv"

	"github.com/dshills/inkwell/internal/debounce"
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/trigger"
)

// caretMode says where the caret goes when a marker is unwrapped.
type caretMode int

const (
	caretAfter caretMode = iota // just after the former marker text
	caretStart                  // at the former marker start
	caretKeep                   // wherever it currently is
)

// Session is one mention extension instance bound to a host.
type Session struct {
	host     editor.Host
	doc      *dom.Document
	opts     Options
	detector *trigger.Detector
	log      *logging.Logger

	panel       dom.NodeID
	panelActive bool
	top, left   int

	marker  dom.NodeID
	created bool // marker was created by this session, not reused
	word    trigger.Word

	subs      []*event.Subscription
	blur      *debounce.Debouncer
	destroyed bool
}

// New creates a session, appends its panel to the host's elements
// container and subscribes to the host events.
func New(host editor.Host, opts Options) (*Session, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	opts = opts.withDefaults()
	s := &Session{
		host:     host,
		doc:      host.Document(),
		opts:     opts,
		detector: trigger.NewDetector(opts.TriggerClassMap),
		log:      opts.Logger.WithComponent(Name),
	}
	if err := s.initPanel(); err != nil {
		return nil, err
	}
	if err := s.attach(); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *Session) initPanel() error {
	d := s.doc
	el := d.CreateElement("div")
	_ = d.AddClass(el, PanelClass, s.opts.ExtraPanelClass)
	_ = d.SetAttr(el, dom.FloatingAttr, "true")
	if err := d.AppendChild(s.host.ElementsContainer(), el); err != nil {
		return err
	}
	s.panel = el
	return nil
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
	if s.opts.HideOnBlurDelay >= 0 {
		s.blur = debounce.New(s.host, s.opts.HideOnBlurDelay, func() {
			s.log.Debug("hiding after blur")
			s.hide(caretAfter)
		})
		if err := sub(event.TopicBlur, s.handleBlur); err != nil {
			return err
		}
		if err := sub(event.TopicFocus, s.handleFocus); err != nil {
			return err
		}
	}
	return sub(event.TopicKeyup, s.handleKeyup)
}

// Name returns the extension name.
func (s *Session) Name() string {
	return Name
}

// Panel returns the suggestion panel element.
func (s *Session) Panel() dom.NodeID {
	return s.panel
}

// PanelVisible reports whether the panel is active.
func (s *Session) PanelVisible() bool {
	return s.panelActive
}

// PanelPosition returns the last computed panel position in cells.
func (s *Session) PanelPosition() (top, left int) {
	return s.top, s.left
}

// Composing reports whether a mention is in progress.
func (s *Session) Composing() bool {
	return s.marker != dom.InvalidNode
}

// Marker returns the active marker element, or dom.InvalidNode.
func (s *Session) Marker() dom.NodeID {
	return s.marker
}

// Word returns the current mention word.
func (s *Session) Word() string {
	return s.word.Text
}

func (s *Session) handleBlur(*editor.Event) {
	if s.blur != nil {
		s.blur.Call()
	}
}

func (s *Session) handleFocus(*editor.Event) {
	if s.blur != nil {
		s.blur.Cancel()
	}
}

func (s *Session) handleKeyup(ev *editor.Event) {
	if s.destroyed {
		return
	}
	isSpace := ev.Key == editor.KeySpace
	bias := 0
	if isSpace {
		bias = -1
	}
	rng, ok := s.host.Selection()
	if !ok {
		return
	}
	word, ok := s.detector.Detect(s.doc, rng, bias)
	if !ok {
		s.log.Debug("keyup without a usable caret", "range", rng)
		return
	}
	s.word = word

	if !isSpace && s.isActiveTrigger(word.Trigger) && word.Len() > 1 {
		s.show()
		return
	}
	mode := caretAfter
	if ev.Key == editor.KeyLeft {
		mode = caretStart
	}
	if isSpace {
		mode = caretKeep
	}
	s.hide(mode)
}

func (s *Session) isActiveTrigger(t string) bool {
	for _, a := range s.opts.ActiveTriggers {
		if a == t {
			return true
		}
	}
	return false
}

func (s *Session) show() {
	d := s.doc
	if s.marker != dom.InvalidNode && (!d.Contains(s.marker, s.word.Node) || !d.HasClass(s.marker, s.word.Class)) {
		// The caret left the marker; settle the old one before starting over.
		s.abandon(caretKeep)
		if !s.redetect() {
			return
		}
	}

	if s.marker == dom.InvalidNode {
		if err := s.wrap(); err != nil {
			s.log.Warn("wrap mention failed", "error", err)
			return
		}
	}
	s.activatePanel()
	s.render()
	s.position()
}

// redetect recomputes the word after the tree changed under the caret.
func (s *Session) redetect() bool {
	rng, ok := s.host.Selection()
	if !ok {
		return false
	}
	word, ok := s.detector.Detect(s.doc, rng, 0)
	if !ok || !s.isActiveTrigger(word.Trigger) || word.Len() <= 1 {
		return false
	}
	s.word = word
	return true
}

func (s *Session) wrap() error {
	d := s.doc
	w := s.word
	parent := d.Parent(w.Node)

	if d.HasClass(parent, w.Class) {
		s.marker, s.created = parent, false
	} else {
		rng, _ := s.host.Selection()
		caret := d.NormalizePoint(rng.Start)

		el := d.CreateElement(s.opts.TagName)
		_ = d.AddClass(el, w.Class, s.opts.ExtraTriggerClassMap[w.Trigger])
		inner, err := d.SurroundContents(w.Node, w.Start, w.End, el)
		if err != nil {
			return err
		}
		s.marker, s.created = el, true
		off := max(0, min(caret.Offset-w.Start, w.Len()))
		if err := s.host.SetSelection(dom.Caret(inner, off)); err != nil {
			s.log.Debug("caret not moved into marker", "error", err)
		}
	}
	_ = d.AddClass(s.marker,
		s.opts.ActiveTriggerClassMap[w.Trigger],
		s.opts.ExtraActiveTriggerClassMap[w.Trigger])
	s.log.Debug("composing", "word", w.Text)
	return nil
}

func (s *Session) activatePanel() {
	if s.panelActive {
		return
	}
	s.panelActive = true
	_ = s.doc.AddClass(s.panel, PanelActiveClass, s.opts.ExtraActivePanelClass)
}

func (s *Session) deactivatePanel() {
	s.panelActive = false
	if s.doc.Valid(s.panel) {
		s.doc.RemoveClass(s.panel, PanelActiveClass, s.opts.ExtraActivePanelClass)
	}
}

func (s *Session) render() {
	if s.opts.Render == nil {
		return
	}
	marker := s.marker
	s.opts.Render(s.panel, s.word.Text, func(text string, details Details) {
		// A stale callback from an earlier render must not touch a newer marker.
		if s.marker != marker {
			return
		}
		s.Select(text, details)
	})
}

// position places the panel at the marker's left edge, below it, or
// above it when the marker's bottom is in the lower half of the viewport.
// Layout rects are document coordinates; the flip test uses the
// marker's position within the viewport.
func (s *Session) position() {
	r, ok := s.host.Layout().Rect(s.marker)
	if !ok {
		return
	}
	vp := s.host.Viewport()
	panelHeight := max(1, s.doc.ChildCount(s.panel))

	s.left = r.X
	if 2*(r.Bottom()-vp.ScrollY) > vp.Height {
		s.top = r.Y - panelHeight
	} else {
		s.top = r.Bottom()
	}
	_ = s.doc.SetAttr(s.panel, "data-top", strconv.Itoa(s.top))
	_ = s.doc.SetAttr(s.panel, "data-left", strconv.Itoa(s.left))
}

// Select commits the in-progress mention with text, or abandons it when
// text is empty. It does nothing when no mention is in progress.
func (s *Session) Select(text string, details Details) {
	if s.destroyed || s.marker == dom.InvalidNode {
		return
	}
	if text == "" {
		s.hide(caretAfter)
		return
	}

	d := s.doc
	m := s.marker
	if !d.IsAttached(m) {
		s.marker = dom.InvalidNode
		s.deactivatePanel()
		return
	}
	if _, err := d.SetTextContent(m, text); err != nil {
		s.log.Warn("commit mention failed", "error", err)
		return
	}
	for _, kv := range details.attrs() {
		_ = d.SetAttr(m, kv[0], kv[1])
	}
	_ = d.SetAttr(m, "data-found", "true")
	s.deactivateMarker(m)
	s.marker = dom.InvalidNode
	s.word = trigger.Word{}
	s.deactivatePanel()
	s.log.Debug("committed", "text", text)

	focused := s.host.FocusedElement() != dom.InvalidNode
	parent := d.Parent(m)
	if err := s.host.SetSelection(dom.Caret(parent, d.IndexOf(m)+1)); err != nil {
		s.log.Debug("caret not moved after mention", "error", err)
	}
	if focused {
		s.host.CheckContentChanged()
	}
}

func (s *Session) deactivateMarker(m dom.NodeID) {
	for _, c := range s.opts.ActiveTriggerClassMap {
		s.doc.RemoveClass(m, c)
	}
	for _, c := range s.opts.ExtraActiveTriggerClassMap {
		s.doc.RemoveClass(m, c)
	}
}

// hide closes the panel and abandons any in-progress marker.
func (s *Session) hide(mode caretMode) {
	s.deactivatePanel()
	if s.marker != dom.InvalidNode {
		s.abandon(mode)
	}
}

// abandon removes the active marker. A marker this session created is
// unwrapped and its text merged back; a reused, previously committed
// marker only loses its active state unless its text no longer forms a
// mention.
func (s *Session) abandon(mode caretMode) {
	d := s.doc
	m := s.marker
	s.marker = dom.InvalidNode
	s.deactivatePanel()
	if !d.IsAttached(m) {
		return
	}
	s.deactivateMarker(m)

	if !s.created {
		text := []rune(d.TextContent(m))
		if len(text) > 1 && d.HasClass(m, s.detector.Classify(string(text[0]))) {
			return
		}
	}

	parent := d.Parent(m)
	idx := d.IndexOf(m)
	var pt dom.Point
	switch mode {
	case caretStart:
		pt = dom.Point{Node: parent, Offset: idx}
	case caretKeep:
		rng, ok := s.host.Selection()
		if ok {
			pt = rng.Start
		} else {
			pt = dom.Point{Node: parent, Offset: idx + 1}
		}
	default:
		pt = dom.Point{Node: parent, Offset: idx + 1}
	}

	if err := d.Unwrap(m, &pt); err != nil {
		s.log.Warn("unwrap mention failed", "error", err)
		return
	}
	if err := d.MergeAdjacentText(parent, &pt); err != nil {
		s.log.Warn("merge text failed", "error", err)
	}
	s.log.Debug("abandoned", "word", s.word.Text)

	if s.host.FocusedElement() != dom.InvalidNode && d.IsAttached(pt.Node) {
		if err := s.host.SetSelection(dom.CaretAt(pt)); err != nil {
			s.log.Debug("caret not restored", "error", err)
		}
	}
}

// ApplyOptions swaps in new options on a live session. An in-progress
// mention is abandoned first so no marker carries stale classes. Nil
// callbacks and a nil logger keep their current values.
func (s *Session) ApplyOptions(opts Options) error {
	if s.destroyed {
		return ErrDestroyed
	}
	s.hide(caretKeep)

	old := s.opts
	if opts.Render == nil {
		opts.Render = old.Render
	}
	if opts.DestroyPanelContent == nil {
		opts.DestroyPanelContent = old.DestroyPanelContent
	}
	if opts.Logger == nil {
		opts.Logger = old.Logger
	}
	opts = opts.withDefaults()

	s.doc.RemoveClass(s.panel, old.ExtraPanelClass)
	_ = s.doc.AddClass(s.panel, opts.ExtraPanelClass)
	for _, sub := range s.subs {
		s.host.Unsubscribe(sub)
	}
	s.subs = nil
	if s.blur != nil {
		s.blur.Cancel()
		s.blur = nil
	}

	s.opts = opts
	s.detector = trigger.NewDetector(opts.TriggerClassMap)
	s.log = opts.Logger.WithComponent(Name)
	return s.attach()
}

// Destroy unsubscribes, abandons any in-progress marker and removes the
// panel. It is safe to call more than once.
func (s *Session) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, sub := range s.subs {
		s.host.Unsubscribe(sub)
	}
	s.subs = nil
	if s.blur != nil {
		s.blur.Cancel()
	}
	if s.marker != dom.InvalidNode {
		s.abandon(caretAfter)
	}
	if s.panel != dom.InvalidNode {
		if s.doc.IsAttached(s.panel) {
			if s.opts.DestroyPanelContent != nil {
				s.opts.DestroyPanelContent(s.panel)
			}
			_ = s.doc.Remove(s.panel)
		}
		s.panel = dom.InvalidNode
	}
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
