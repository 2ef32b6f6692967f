package dom

import "fmt"

// SplitText splits a text node at offset. The original node keeps the
// runes before offset; a new sibling holding the rest is inserted after it
// and returned.
func (d *Document) SplitText(id NodeID, offset int) (NodeID, error) {
	n, err := d.textNode(id)
	if err != nil {
		return InvalidNode, err
	}
	if offset < 0 || offset > len(n.text) {
		return InvalidNode, fmt.Errorf("split %d at %d: %w", id, offset, ErrOffsetOutOfRange)
	}
	if n.parent == InvalidNode {
		return InvalidNode, fmt.Errorf("split %d: %w", id, ErrDetached)
	}
	tail := string(n.text[offset:])
	head := string(n.text[:offset])

	rest := d.CreateText(tail)
	// CreateText may have moved the arena; re-fetch through the handle.
	d.nodes[id].text = []rune(head)
	if err := d.InsertAfter(rest, id); err != nil {
		return InvalidNode, err
	}
	return rest, nil
}

// SurroundContents wraps runes [start, end) of a text node in wrapper, a
// detached element. It returns the text node now inside wrapper.
//
// All arguments are validated before anything is mutated. When start is 0
// the original text node itself moves into the wrapper, so no empty text
// node is left in front of it.
func (d *Document) SurroundContents(text NodeID, start, end int, wrapper NodeID) (NodeID, error) {
	n, err := d.textNode(text)
	if err != nil {
		return InvalidNode, err
	}
	if n.parent == InvalidNode {
		return InvalidNode, fmt.Errorf("surround %d: %w", text, ErrDetached)
	}
	if start < 0 || end > len(n.text) || start > end {
		return InvalidNode, fmt.Errorf("surround [%d,%d) of %d: %w", start, end, len(n.text), ErrOffsetOutOfRange)
	}
	w, err := d.element(wrapper)
	if err != nil {
		return InvalidNode, err
	}
	if w.parent != InvalidNode || len(w.children) != 0 {
		return InvalidNode, fmt.Errorf("surround with %d: wrapper must be empty and detached: %w", wrapper, ErrHierarchy)
	}

	runes := d.Runes(text)
	head, mid, tail := string(runes[:start]), string(runes[start:end]), string(runes[end:])

	var inner NodeID
	if head == "" {
		if err := d.Replace(text, wrapper); err != nil {
			return InvalidNode, err
		}
		_ = d.SetText(text, mid)
		inner = text
	} else {
		_ = d.SetText(text, head)
		inner = d.CreateText(mid)
		if err := d.InsertAfter(wrapper, text); err != nil {
			return InvalidNode, err
		}
	}
	if err := d.AppendChild(wrapper, inner); err != nil {
		return InvalidNode, err
	}
	if tail != "" {
		if err := d.InsertAfter(d.CreateText(tail), wrapper); err != nil {
			return InvalidNode, err
		}
	}
	return inner, nil
}

// Unwrap replaces an element by its children. Points addressing the element
// are rewritten to the equivalent position in its parent; points inside its
// children need no change because the children move intact.
func (d *Document) Unwrap(el NodeID, pts ...*Point) error {
	if _, err := d.element(el); err != nil {
		return err
	}
	parent := d.Parent(el)
	if parent == InvalidNode {
		return fmt.Errorf("unwrap %d: %w", el, ErrDetached)
	}
	at := d.IndexOf(el)
	kids := d.Children(el)

	for _, p := range pts {
		if p == nil {
			continue
		}
		switch {
		case p.Node == el:
			p.Node, p.Offset = parent, at+p.Offset
		case p.Node == parent && p.Offset > at:
			p.Offset += len(kids) - 1
		}
	}

	d.detach(el)
	for i, c := range kids {
		if err := d.InsertAt(parent, c, at+i); err != nil {
			return err
		}
	}
	return nil
}

// MergeAdjacentText merges runs of sibling text nodes under parent into
// their first node and drops text nodes left empty, so the parent holds no
// split or empty text nodes. Points that addressed a merged node, or a
// child index of parent, are rewritten to the same logical position and
// then normalized onto a text node when one is adjacent.
func (d *Document) MergeAdjacentText(parent NodeID, pts ...*Point) error {
	if _, err := d.element(parent); err != nil {
		return err
	}
	kids := d.Children(parent)

	// Element points are tracked by the child they precede.
	before := make([]NodeID, len(pts))
	for i, p := range pts {
		if p != nil && p.Node == parent {
			if p.Offset < len(kids) {
				before[i] = kids[p.Offset]
			} else {
				before[i] = InvalidNode
			}
		}
	}

	remap := make(map[NodeID]Point)
	kept := make([]NodeID, 0, len(kids))
	var run NodeID

	dropEmptyRun := func() {
		if run != InvalidNode && d.TextLen(run) == 0 {
			kept = kept[:len(kept)-1]
			remap[run] = Point{Node: parent, Offset: len(kept)}
		}
		run = InvalidNode
	}

	for _, c := range kids {
		if d.IsText(c) {
			if run != InvalidNode {
				remap[c] = Point{Node: run, Offset: d.TextLen(run)}
				d.nodes[run].text = append(d.nodes[run].text, d.nodes[c].text...)
				continue
			}
			run = c
			kept = append(kept, c)
			continue
		}
		dropEmptyRun()
		kept = append(kept, c)
	}
	dropEmptyRun()

	// Detach every dropped or merged child, then install the kept list.
	for _, c := range kids {
		if _, gone := remap[c]; gone {
			d.nodes[c].parent = InvalidNode
		}
	}
	d.nodes[parent].children = kept

	index := func(id NodeID) int {
		for i, c := range kept {
			if c == id {
				return i
			}
		}
		return -1
	}
	resolve := func(p Point) Point {
		for {
			to, ok := remap[p.Node]
			if !ok {
				return p
			}
			if to.Node == parent {
				return to
			}
			p = Point{Node: to.Node, Offset: to.Offset + p.Offset}
		}
	}

	for i, p := range pts {
		if p == nil {
			continue
		}
		switch {
		case p.Node == parent:
			ref := before[i]
			if ref == InvalidNode {
				*p = Point{Node: parent, Offset: len(kept)}
			} else if k := index(ref); k >= 0 {
				*p = Point{Node: parent, Offset: k}
			} else {
				*p = resolve(Point{Node: ref, Offset: 0})
			}
		default:
			*p = resolve(*p)
		}
		*p = d.NormalizePoint(*p)
	}
	return nil
}
