package dom

import (
	"fmt"
	"strings"
)

// AppendChild appends child to parent, detaching it from any previous parent.
func (d *Document) AppendChild(parent, child NodeID) error {
	return d.InsertAt(parent, child, d.ChildCount(parent))
}

// InsertBefore inserts child into parent before ref. A zero ref appends.
func (d *Document) InsertBefore(parent, child, ref NodeID) error {
	if ref == InvalidNode {
		return d.AppendChild(parent, child)
	}
	if d.Parent(ref) != parent {
		return fmt.Errorf("insert before %d: %w", ref, ErrHierarchy)
	}
	return d.InsertAt(parent, child, d.IndexOf(ref))
}

// InsertAfter inserts child as the next sibling of ref.
func (d *Document) InsertAfter(child, ref NodeID) error {
	parent := d.Parent(ref)
	if parent == InvalidNode {
		return fmt.Errorf("insert after %d: %w", ref, ErrDetached)
	}
	return d.InsertAt(parent, child, d.IndexOf(ref)+1)
}

// InsertAt inserts child into parent at index i.
func (d *Document) InsertAt(parent, child NodeID, i int) error {
	if _, err := d.element(parent); err != nil {
		return fmt.Errorf("insert into %d: %w", parent, err)
	}
	if _, err := d.get(child); err != nil {
		return fmt.Errorf("insert %d: %w", child, err)
	}
	if d.Contains(child, parent) {
		return fmt.Errorf("insert %d into its own subtree: %w", child, ErrHierarchy)
	}

	limit := len(d.nodes[parent].children)
	if d.Parent(child) == parent {
		// Detaching from the same parent shifts the target index.
		limit--
		if d.IndexOf(child) < i {
			i--
		}
	}
	if i < 0 || i > limit {
		return fmt.Errorf("insert at %d of %d: %w", i, limit, ErrOffsetOutOfRange)
	}
	d.detach(child)

	p := &d.nodes[parent]
	p.children = append(p.children, InvalidNode)
	copy(p.children[i+1:], p.children[i:])
	p.children[i] = child
	d.nodes[child].parent = parent
	return nil
}

// Remove detaches id from its parent. Removing a detached node is a no-op.
func (d *Document) Remove(id NodeID) error {
	if _, err := d.get(id); err != nil {
		return err
	}
	d.detach(id)
	return nil
}

// RemoveChildren detaches every child of id.
func (d *Document) RemoveChildren(id NodeID) {
	for _, c := range d.Children(id) {
		d.detach(c)
	}
}

func (d *Document) detach(id NodeID) {
	parent := d.nodes[id].parent
	if parent == InvalidNode {
		return
	}
	p := &d.nodes[parent]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	d.nodes[id].parent = InvalidNode
}

// Replace puts repl where old is and detaches old.
func (d *Document) Replace(old, repl NodeID) error {
	parent := d.Parent(old)
	if parent == InvalidNode {
		return fmt.Errorf("replace %d: %w", old, ErrDetached)
	}
	i := d.IndexOf(old)
	d.detach(old)
	return d.InsertAt(parent, repl, i)
}

// Text returns the content of a text node.
func (d *Document) Text(id NodeID) string {
	n, err := d.textNode(id)
	if err != nil {
		return ""
	}
	return string(n.text)
}

// Runes returns a copy of the content of a text node.
func (d *Document) Runes(id NodeID) []rune {
	n, err := d.textNode(id)
	if err != nil {
		return nil
	}
	return append([]rune(nil), n.text...)
}

// TextLen returns the rune length of a text node.
func (d *Document) TextLen(id NodeID) int {
	n, err := d.textNode(id)
	if err != nil {
		return 0
	}
	return len(n.text)
}

// SetText replaces the content of a text node.
func (d *Document) SetText(id NodeID, s string) error {
	n, err := d.textNode(id)
	if err != nil {
		return err
	}
	n.text = []rune(s)
	return nil
}

// InsertText inserts s into a text node at rune offset.
func (d *Document) InsertText(id NodeID, offset int, s string) error {
	n, err := d.textNode(id)
	if err != nil {
		return err
	}
	if offset < 0 || offset > len(n.text) {
		return fmt.Errorf("insert text at %d of %d: %w", offset, len(n.text), ErrOffsetOutOfRange)
	}
	ins := []rune(s)
	out := make([]rune, 0, len(n.text)+len(ins))
	out = append(out, n.text[:offset]...)
	out = append(out, ins...)
	out = append(out, n.text[offset:]...)
	n.text = out
	return nil
}

// DeleteText removes the runes [start, end) from a text node.
func (d *Document) DeleteText(id NodeID, start, end int) error {
	n, err := d.textNode(id)
	if err != nil {
		return err
	}
	if start < 0 || end > len(n.text) || start > end {
		return fmt.Errorf("delete text [%d,%d) of %d: %w", start, end, len(n.text), ErrOffsetOutOfRange)
	}
	n.text = append(n.text[:start:start], n.text[end:]...)
	return nil
}

// TextContent returns the concatenated text of id and its descendants.
func (d *Document) TextContent(id NodeID) string {
	var b strings.Builder
	d.Walk(id, func(n NodeID) bool {
		if d.IsText(n) {
			b.WriteString(string(d.nodes[n].text))
		}
		return true
	})
	return b.String()
}

// SetTextContent replaces the children of an element with a single text
// node holding s and returns that node. For a text node it sets the text.
func (d *Document) SetTextContent(id NodeID, s string) (NodeID, error) {
	n, err := d.get(id)
	if err != nil {
		return InvalidNode, err
	}
	if n.kind == KindText {
		return id, d.SetText(id, s)
	}
	d.RemoveChildren(id)
	t := d.CreateText(s)
	if err := d.AppendChild(id, t); err != nil {
		return InvalidNode, err
	}
	return t, nil
}

// blockTags are laid out on their own lines and bound insertion targets.
var blockTags = map[string]bool{
	"body": true, "div": true, "p": true, "ul": true, "ol": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "hr": true, "figure": true,
}

// IsBlock reports whether id is a block-level element.
func (d *Document) IsBlock(id NodeID) bool {
	return blockTags[d.Tag(id)]
}

// ClosestBlock returns the nearest inclusive block ancestor of id that is
// still inside within (inclusive), or InvalidNode.
func (d *Document) ClosestBlock(id, within NodeID) NodeID {
	for cur := id; cur != InvalidNode; cur = d.Parent(cur) {
		if d.IsBlock(cur) {
			if !d.Contains(within, cur) {
				return InvalidNode
			}
			return cur
		}
		if cur == within {
			return InvalidNode
		}
	}
	return InvalidNode
}
