package editor

import (
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/event"
)

// TypeText types s one rune at a time. Each rune produces a keypress, the
// insertion (unless a keypress handler prevented it), an input event and a
// keyup, in that order.
func (e *Editor) TypeText(s string) error {
	var firstErr error
	for _, r := range s {
		if r == '\n' {
			if err := e.Enter(); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.post(func() {
			if err := e.typeRune(r); err != nil && firstErr == nil {
				firstErr = err
			}
		})
		e.emitKeyup(KeyForRune(r), r)
	}
	return firstErr
}

func (e *Editor) typeRune(r rune) error {
	root := e.focused
	if root == dom.InvalidNode || !e.hasSel {
		return ErrNoSelection
	}
	ev := &Event{Name: event.TopicKeypress, Target: root, Key: KeyForRune(r), Rune: r}
	e.publish(ev)
	if ev.DefaultPrevented() {
		return nil
	}
	if !e.hasSel {
		return nil
	}
	if err := e.insertText(string(r)); err != nil {
		return err
	}
	e.CheckContentChanged()
	return nil
}

// insertText replaces the live range with s and leaves the caret after it.
func (e *Editor) insertText(s string) error {
	d := e.doc
	if !e.sel.Collapsed() {
		if err := e.deleteRange(); err != nil {
			return err
		}
	}
	p := d.NormalizePoint(e.sel.Start)
	n := len([]rune(s))

	if d.IsText(p.Node) {
		if err := d.InsertText(p.Node, p.Offset, s); err != nil {
			return err
		}
		e.sel = dom.Caret(p.Node, p.Offset+n)
		return nil
	}

	// Typing into an empty block replaces its placeholder line break.
	off := p.Offset
	if d.ChildCount(p.Node) == 1 && d.Tag(d.FirstChild(p.Node)) == "br" {
		_ = d.Remove(d.FirstChild(p.Node))
		off = 0
	}
	t := d.CreateText(s)
	if err := d.InsertAt(p.Node, t, off); err != nil {
		return err
	}
	e.sel = dom.Caret(t, n)
	return nil
}

// deleteRange removes the selected text when the range lies in one text
// node, and collapses the range otherwise.
func (e *Editor) deleteRange() error {
	if e.sel.SameContainer() && e.doc.IsText(e.sel.Start.Node) {
		if err := e.doc.DeleteText(e.sel.Start.Node, e.sel.Start.Offset, e.sel.End.Offset); err != nil {
			return err
		}
	}
	e.sel = dom.CaretAt(e.sel.Start)
	return nil
}

// KeyUp queues a keyup event without changing the document.
func (e *Editor) KeyUp(k Key) {
	e.emitKeyup(k, 0)
}

// PressKey handles a navigation or editing key and then queues its keyup.
func (e *Editor) PressKey(k Key) error {
	switch k {
	case KeyBackspace:
		return e.Backspace()
	case KeyEnter:
		return e.Enter()
	case KeyLeft:
		return e.Left()
	case KeyRight:
		return e.Right()
	case KeySpace:
		return e.TypeText(" ")
	}
	e.emitKeyup(k, 0)
	return nil
}

func (e *Editor) emitKeyup(k Key, r rune) {
	e.post(func() {
		if e.focused == dom.InvalidNode {
			return
		}
		e.publish(&Event{Name: event.TopicKeyup, Target: e.focused, Key: k, Rune: r})
	})
}

// Backspace deletes the character before the caret within its block.
func (e *Editor) Backspace() error {
	var err error
	e.post(func() {
		err = e.backspace()
	})
	e.emitKeyup(KeyBackspace, 0)
	return err
}

func (e *Editor) backspace() error {
	if e.focused == dom.InvalidNode || !e.hasSel {
		return ErrNoSelection
	}
	if !e.sel.Collapsed() {
		if err := e.deleteRange(); err != nil {
			return err
		}
		e.CheckContentChanged()
		return nil
	}
	d := e.doc
	block := d.ClosestBlock(e.sel.Start.Node, e.focused)
	if block == dom.InvalidNode {
		return nil
	}
	off, ok := d.TextOffset(block, e.sel.Start)
	if !ok || off == 0 {
		return nil
	}
	p := d.PointAtTextOffset(block, off, false)
	if !d.IsText(p.Node) || p.Offset == 0 {
		return nil
	}
	if err := d.DeleteText(p.Node, p.Offset-1, p.Offset); err != nil {
		return err
	}
	e.sel = dom.Caret(p.Node, p.Offset-1)
	e.CheckContentChanged()
	return nil
}

// Left moves the caret one character left within its block.
func (e *Editor) Left() error {
	e.post(func() { e.moveCaret(-1) })
	e.emitKeyup(KeyLeft, 0)
	return nil
}

// Right moves the caret one character right within its block.
func (e *Editor) Right() error {
	e.post(func() { e.moveCaret(1) })
	e.emitKeyup(KeyRight, 0)
	return nil
}

func (e *Editor) moveCaret(delta int) {
	if e.focused == dom.InvalidNode || !e.hasSel {
		return
	}
	d := e.doc
	block := d.ClosestBlock(e.sel.Start.Node, e.focused)
	if block == dom.InvalidNode {
		return
	}
	off, ok := d.TextOffset(block, e.sel.Start)
	if !ok {
		return
	}
	target := max(0, min(off+delta, len([]rune(d.TextContent(block)))))
	e.sel = dom.CaretAt(d.PointAtTextOffset(block, target, delta > 0))
}

// Enter splits the caret's block in two and moves the caret to the start
// of the new block.
func (e *Editor) Enter() error {
	var err error
	e.post(func() {
		err = e.enter()
	})
	e.emitKeyup(KeyEnter, 0)
	return err
}

func (e *Editor) enter() error {
	if e.focused == dom.InvalidNode || !e.hasSel {
		return ErrNoSelection
	}
	d := e.doc
	if !e.sel.Collapsed() {
		if err := e.deleteRange(); err != nil {
			return err
		}
	}
	block := d.ClosestBlock(e.sel.Start.Node, e.focused)
	if block == dom.InvalidNode || block == e.focused {
		// Wrap loose content in a paragraph first.
		return e.appendParagraph(e.focused)
	}

	// The first node of the right-hand side, as a child of its parent.
	p := e.sel.Start
	var first dom.NodeID
	if d.IsText(p.Node) {
		switch {
		case p.Offset == 0:
			first = p.Node
		case p.Offset == d.TextLen(p.Node):
			first = d.NextSibling(p.Node)
			if first == dom.InvalidNode {
				return e.splitAfter(p.Node, block)
			}
		default:
			rest, err := d.SplitText(p.Node, p.Offset)
			if err != nil {
				return err
			}
			first = rest
		}
	} else {
		first = d.Child(p.Node, p.Offset)
		if first == dom.InvalidNode {
			if p.Node == block {
				return e.splitAfterBlock(block)
			}
			return e.splitAfter(p.Node, block)
		}
	}
	return e.splitFrom(first, block)
}

// splitFrom moves first, its following siblings and the matching part of
// every ancestor up to block into a new block after block.
func (e *Editor) splitFrom(first, block dom.NodeID) error {
	d := e.doc
	node := first
	for {
		parent := d.Parent(node)
		clone := e.shallowClone(parent)
		for cur := node; cur != dom.InvalidNode; {
			next := d.NextSibling(cur)
			if err := d.AppendChild(clone, cur); err != nil {
				return err
			}
			cur = next
		}
		if err := d.InsertAfter(clone, parent); err != nil {
			return err
		}
		e.fillEmpty(parent)
		e.fillEmpty(clone)
		if parent == block {
			e.sel = dom.CaretAt(d.NormalizePoint(dom.Point{Node: clone, Offset: 0}))
			e.CheckContentChanged()
			return nil
		}
		node = clone
	}
}

// splitAfter handles a caret at the very end of n: everything after n's
// ancestors moves, or a fresh block is added when nothing follows.
func (e *Editor) splitAfter(n, block dom.NodeID) error {
	d := e.doc
	for cur := n; cur != block; cur = d.Parent(cur) {
		if next := d.NextSibling(cur); next != dom.InvalidNode {
			return e.splitFrom(next, block)
		}
	}
	return e.splitAfterBlock(block)
}

func (e *Editor) splitAfterBlock(block dom.NodeID) error {
	d := e.doc
	tag := d.Tag(block)
	if tag == "div" {
		tag = "p"
	}
	next := d.CreateElement(tag)
	_ = d.AppendChild(next, d.CreateElement("br"))
	if err := d.InsertAfter(next, block); err != nil {
		return err
	}
	e.sel = dom.Caret(next, 0)
	e.CheckContentChanged()
	return nil
}

func (e *Editor) appendParagraph(root dom.NodeID) error {
	d := e.doc
	p := d.CreateElement("p")
	_ = d.AppendChild(p, d.CreateElement("br"))
	if err := d.AppendChild(root, p); err != nil {
		return err
	}
	e.sel = dom.Caret(p, 0)
	e.CheckContentChanged()
	return nil
}

func (e *Editor) shallowClone(id dom.NodeID) dom.NodeID {
	d := e.doc
	c := d.CreateElement(d.Tag(id))
	for k, v := range d.Attrs(id) {
		_ = d.SetAttr(c, k, v)
	}
	return c
}

// fillEmpty keeps a block that lost all its content selectable.
func (e *Editor) fillEmpty(id dom.NodeID) {
	d := e.doc
	if d.IsBlock(id) && d.TextContent(id) == "" && len(d.ByTag(id, "br")) == 0 && len(d.ByTag(id, "img")) == 0 {
		d.RemoveChildren(id)
		_ = d.AppendChild(id, d.CreateElement("br"))
	}
}

// Click clicks target. Listeners on target and its ancestors run first,
// innermost first; then editableClick is published if target is inside
// an editable root, and windowClick unless propagation was stopped. A
// click inside a different editable root moves focus there. Clicking a
// node outside every editable root does not change focus.
func (e *Editor) Click(target dom.NodeID) {
	e.post(func() { e.click(target) })
}

// ClickAt places the caret at p and clicks the node containing it.
func (e *Editor) ClickAt(p dom.Point) error {
	var err error
	e.post(func() {
		err = e.SetSelection(dom.CaretAt(p))
	})
	if err != nil {
		return err
	}
	target := p.Node
	if e.doc.IsText(target) {
		target = e.doc.Parent(target)
	}
	e.Click(target)
	return nil
}

// ClickOutside clicks outside the document, which removes focus.
func (e *Editor) ClickOutside() {
	e.post(func() {
		e.click(dom.InvalidNode)
		e.Blur()
	})
}

func (e *Editor) click(target dom.NodeID) {
	ev := &Event{Name: event.TopicClick, Target: target}
	for cur := target; cur != dom.InvalidNode && !ev.stopped; cur = e.doc.Parent(cur) {
		for _, l := range append([]*listener(nil), e.listeners[cur]...) {
			l.fn(ev)
		}
	}
	if ev.stopped {
		return
	}
	if root := e.RootOf(target); root != dom.InvalidNode {
		if e.focused != root {
			e.Focus(root)
		}
		e.publish(ev)
	}
	if ev.stopped {
		return
	}
	e.publish(&Event{Name: event.TopicWindowClick, Target: target})
}
