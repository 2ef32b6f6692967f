package dom

import (
	"strconv"

	"github.com/rivo/uniseg"
)

// Rect is an axis-aligned box in character cells.
type Rect struct {
	X, Y, W, H int
}

// Right returns the x coordinate just past the box.
func (r Rect) Right() int { return r.X + r.W }

// Bottom returns the y coordinate just below the box.
func (r Rect) Bottom() int { return r.Y + r.H }

// union returns the smallest rect containing r and o.
func (r Rect) union(o Rect) Rect {
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.Right(), o.Right()), max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Viewport describes the visible window over the laid-out document.
type Viewport struct {
	Width   int
	Height  int
	ScrollX int
	ScrollY int
}

// Replaced elements occupy a fixed number of lines.
const (
	ImageLines  = 3
	IframeLines = 4
)

// FloatingAttr marks elements (panels, affordances) positioned by their
// owners rather than by the layout flow.
const FloatingAttr = "data-floating"

// Layout holds the geometry computed for one document pass.
type Layout struct {
	width int
	rects map[NodeID]Rect
}

// Rect returns the box of id, if it was laid out.
func (l *Layout) Rect(id NodeID) (Rect, bool) {
	r, ok := l.rects[id]
	return r, ok
}

// Width returns the wrap width the layout was computed with.
func (l *Layout) Width() int {
	return l.width
}

// Layout computes geometry for root and its descendants at the given width.
// Floating elements and their subtrees are skipped.
func (d *Document) Layout(root NodeID, width int) *Layout {
	if width <= 0 {
		width = 80
	}
	lay := &layouter{doc: d, width: width, out: &Layout{width: width, rects: make(map[NodeID]Rect)}}
	lay.node(root)
	return lay.out
}

type layouter struct {
	doc   *Document
	width int
	x, y  int
	out   *Layout
}

func (l *layouter) newline() {
	l.x = 0
	l.y++
}

func (l *layouter) node(id NodeID) (Rect, bool) {
	d := l.doc
	if d.IsText(id) {
		return l.text(id)
	}
	if _, floating := d.Attr(id, FloatingAttr); floating {
		return Rect{}, false
	}

	tag := d.Tag(id)
	switch tag {
	case "br":
		r := Rect{X: l.x, Y: l.y, W: 0, H: 1}
		l.newline()
		l.out.rects[id] = r
		return r, true
	case "img", "iframe":
		return l.replaced(id, tag)
	}

	block := d.IsBlock(id)
	if block && l.x > 0 {
		l.newline()
	}
	startX, startY := l.x, l.y

	var (
		box  Rect
		have bool
	)
	for _, c := range d.Children(id) {
		r, ok := l.node(c)
		if !ok {
			continue
		}
		if have {
			box = box.union(r)
		} else {
			box, have = r, true
		}
	}

	switch {
	case block:
		h := max(l.y-startY, 1)
		if l.x > 0 {
			h = l.y - startY + 1
			l.newline()
		} else if l.y == startY {
			// Empty block still takes a line.
			l.newline()
		}
		box = Rect{X: 0, Y: startY, W: l.width, H: h}
	case !have:
		box = Rect{X: startX, Y: startY, W: 0, H: 1}
	}
	l.out.rects[id] = box
	return box, true
}

func (l *layouter) replaced(id NodeID, tag string) (Rect, bool) {
	if l.x > 0 {
		l.newline()
	}
	lines := ImageLines
	if tag == "iframe" {
		lines = IframeLines
	}
	w := l.width
	if v, ok := l.doc.Attr(id, "width"); ok {
		// Pixel widths map to cells at 8px per column.
		if px, err := strconv.Atoi(v); err == nil && px > 0 {
			w = min(l.width, max(1, px/8))
		}
	}
	r := Rect{X: 0, Y: l.y, W: w, H: lines}
	l.y += lines
	l.x = 0
	l.out.rects[id] = r
	return r, true
}

func (l *layouter) text(id NodeID) (Rect, bool) {
	s := l.doc.Text(id)
	startX, startY := l.x, l.y
	box := Rect{X: startX, Y: startY, W: 0, H: 1}

	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		w := g.Width()
		if cluster == "\n" {
			l.newline()
			continue
		}
		if l.x+w > l.width && l.x > 0 {
			l.newline()
		}
		box = box.union(Rect{X: l.x, Y: l.y, W: w, H: 1})
		l.x += w
	}
	l.out.rects[id] = box
	return box, true
}
