package editor

import (
	"fmt"

	"github.com/dshills/inkwell/internal/dom"
)

// Action is a named editing command.
type Action func(e *Editor) error

// Built-in action names.
const (
	ActionInsertUnorderedList = "insertunorderedlist"
)

func defaultActions() map[string]Action {
	return map[string]Action{
		ActionInsertUnorderedList: insertUnorderedList,
	}
}

// RegisterAction adds or replaces a named action.
func (e *Editor) RegisterAction(name string, a Action) {
	e.actions[name] = a
}

// ExecAction runs the named action.
func (e *Editor) ExecAction(name string) error {
	a, ok := e.actions[name]
	if !ok {
		return fmt.Errorf("exec %q: %w", name, ErrUnknownAction)
	}
	if err := a(e); err != nil {
		return fmt.Errorf("exec %q: %w", name, err)
	}
	return nil
}

// SelectedBlock returns the block containing the caret, or dom.InvalidNode.
func (e *Editor) SelectedBlock() dom.NodeID {
	if !e.hasSel {
		return dom.InvalidNode
	}
	root := e.RootOf(e.sel.Start.Node)
	if root == dom.InvalidNode {
		return dom.InvalidNode
	}
	return e.doc.ClosestBlock(e.sel.Start.Node, root)
}

// insertUnorderedList turns the caret's block into a single-item list, or
// a single-item list back into a paragraph.
func insertUnorderedList(e *Editor) error {
	d := e.doc
	block := e.SelectedBlock()
	if block == dom.InvalidNode {
		return ErrNoSelection
	}
	root := e.RootOf(block)

	if d.Tag(block) == "li" {
		list := d.Parent(block)
		if list == root || d.Tag(list) != "ul" || d.ChildCount(list) != 1 {
			return nil
		}
		p := d.CreateElement("p")
		if err := d.Replace(list, p); err != nil {
			return err
		}
		return e.moveContents(block, p)
	}
	if block == root {
		return nil
	}

	ul := d.CreateElement("ul")
	li := d.CreateElement("li")
	if err := d.AppendChild(ul, li); err != nil {
		return err
	}
	if err := d.Replace(block, ul); err != nil {
		return err
	}
	return e.moveContents(block, li)
}

// moveContents moves the children of from into to, keeping the live
// range valid.
func (e *Editor) moveContents(from, to dom.NodeID) error {
	d := e.doc
	for _, c := range d.Children(from) {
		if err := d.AppendChild(to, c); err != nil {
			return err
		}
	}
	if e.hasSel {
		if e.sel.Start.Node == from {
			e.sel.Start.Node = to
		}
		if e.sel.End.Node == from {
			e.sel.End.Node = to
		}
	}
	return nil
}
