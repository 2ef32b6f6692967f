package dom

import "fmt"

// Point is a boundary point: a rune offset inside a text node or a child
// index inside an element.
type Point struct {
	Node   NodeID
	Offset int
}

// String returns a debug representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.Node, p.Offset)
}

// Range is an ordered pair of boundary points. Start and End are expected
// in document order; the document does not reorder them.
type Range struct {
	Start Point
	End   Point
}

// Caret returns a collapsed range at (n, offset).
func Caret(n NodeID, offset int) Range {
	p := Point{Node: n, Offset: offset}
	return Range{Start: p, End: p}
}

// CaretAt returns a collapsed range at p.
func CaretAt(p Point) Range {
	return Range{Start: p, End: p}
}

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// SameContainer reports whether both boundaries share a container node.
func (r Range) SameContainer() bool {
	return r.Start.Node == r.End.Node
}

// String returns a debug representation of the range.
func (r Range) String() string {
	if r.Collapsed() {
		return "caret" + r.Start.String()
	}
	return r.Start.String() + "-" + r.End.String()
}

// PointLen returns the maximum offset for a point in id: the rune length of
// a text node or the child count of an element.
func (d *Document) PointLen(id NodeID) int {
	if d.IsText(id) {
		return d.TextLen(id)
	}
	return d.ChildCount(id)
}

// CheckPoint validates that p addresses a real position.
func (d *Document) CheckPoint(p Point) error {
	if !d.Valid(p.Node) {
		return fmt.Errorf("point %s: %w", p, ErrNodeNotFound)
	}
	if p.Offset < 0 || p.Offset > d.PointLen(p.Node) {
		return fmt.Errorf("point %s: %w", p, ErrOffsetOutOfRange)
	}
	return nil
}

// CheckRange validates both boundaries of r.
func (d *Document) CheckRange(r Range) error {
	if err := d.CheckPoint(r.Start); err != nil {
		return err
	}
	return d.CheckPoint(r.End)
}

// CommonAncestor returns the deepest node containing both boundaries of r.
// For a range inside a single node that node is returned, mirroring
// commonAncestorContainer.
func (d *Document) CommonAncestor(r Range) NodeID {
	if r.SameContainer() {
		return r.Start.Node
	}
	for cur := r.Start.Node; cur != InvalidNode; cur = d.Parent(cur) {
		if d.Contains(cur, r.End.Node) {
			return cur
		}
	}
	return InvalidNode
}

// NormalizePoint moves an element point onto an adjacent text node when
// there is one: the end of the preceding text sibling, else the start of
// the following one.
func (d *Document) NormalizePoint(p Point) Point {
	if !d.IsElement(p.Node) {
		return p
	}
	if prev := d.Child(p.Node, p.Offset-1); d.IsText(prev) {
		return Point{Node: prev, Offset: d.TextLen(prev)}
	}
	if next := d.Child(p.Node, p.Offset); d.IsText(next) {
		return Point{Node: next, Offset: 0}
	}
	return p
}

// TextOffset converts p into a rune offset within the text content of
// root. It returns false when p is outside root.
func (d *Document) TextOffset(root NodeID, p Point) (int, bool) {
	if !d.Contains(root, p.Node) {
		return 0, false
	}
	// An element point counts the text of the children before it.
	target, inner := p.Node, p.Offset
	if d.IsElement(p.Node) {
		if p.Offset < d.ChildCount(p.Node) {
			target, inner = d.Child(p.Node, p.Offset), -1
		} else {
			// Past the last child: everything inside p.Node precedes the point.
			return d.textBefore(root, p.Node) + len([]rune(d.TextContent(p.Node))), true
		}
	}

	total := 0
	found := false
	d.Walk(root, func(id NodeID) bool {
		if found {
			return false
		}
		if id == target {
			found = true
			if inner >= 0 {
				total += inner
			}
			return false
		}
		if d.IsText(id) {
			total += d.TextLen(id)
		}
		return true
	})
	return total, found
}

// textBefore sums the text length of nodes preceding n in document order
// under root.
func (d *Document) textBefore(root, n NodeID) int {
	total := 0
	found := false
	d.Walk(root, func(id NodeID) bool {
		if found {
			return false
		}
		if id == n {
			found = true
			return false
		}
		if d.IsText(id) {
			total += d.TextLen(id)
		}
		return true
	})
	return total
}

// PointAtTextOffset resolves a rune offset within the text content of root
// to a text point. At a boundary between two text nodes the earlier node
// wins unless forward is set. A root without text yields (root, 0).
func (d *Document) PointAtTextOffset(root NodeID, offset int, forward bool) Point {
	var (
		result  Point
		have    bool
		remain  = offset
		lastTxt NodeID
	)
	d.Walk(root, func(id NodeID) bool {
		if have {
			return false
		}
		if !d.IsText(id) {
			return true
		}
		n := d.TextLen(id)
		lastTxt = id
		if remain < n || (remain == n && !forward) {
			result, have = Point{Node: id, Offset: remain}, true
			return false
		}
		remain -= n
		return true
	})
	if have {
		return result
	}
	if lastTxt != InvalidNode {
		return Point{Node: lastTxt, Offset: d.TextLen(lastTxt)}
	}
	return Point{Node: root, Offset: 0}
}
