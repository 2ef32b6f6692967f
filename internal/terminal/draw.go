package terminal

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/inkwell/internal/directory"
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/mediapicker"
)

// gutter is the column count left of the text, where the picker's "+"
// is drawn.
const gutter = 2

type painter struct {
	a    *App
	w, h int
	x, y int

	caret     dom.Point
	wantCaret bool
	caretX    int
	caretY    int
	haveCaret bool

	markerX, markerY int
}

// Draw paints the whole screen.
func (a *App) Draw() {
	s := a.screen
	w, h := s.Size()
	for y := range h {
		for x := range w {
			s.SetContent(x, y, ' ', nil, a.styles.text)
		}
	}
	clear(a.rows)

	p := &painter{a: a, w: w, h: h, y: -1, markerX: -1}
	if rng, ok := a.ed.Selection(); ok && a.ed.FocusedElement() != dom.InvalidNode {
		p.caret, p.wantCaret = rng.Start, true
	}
	for _, root := range a.ed.EditorElements() {
		for _, n := range a.doc.Children(root) {
			p.block(n)
		}
	}

	if p.haveCaret {
		a.pickerRow = p.caretY
	}
	a.drawPicker(p)
	a.drawPanel(p)
	a.drawStatus(w, h)

	if p.haveCaret {
		s.ShowCursor(p.caretX, p.caretY)
	} else {
		s.HideCursor()
	}
	s.Show()
}

func (p *painter) newline() {
	p.y++
	p.x = gutter
}

func (p *painter) block(n dom.NodeID) {
	d := p.a.doc
	switch d.Tag(n) {
	case "ul", "ol":
		for _, li := range d.Children(n) {
			p.newline()
			p.text("• ", p.a.styles.text)
			p.inline(li, p.a.styles.text)
		}
		if d.ChildCount(n) == 0 {
			p.newline()
		}
	case "hr":
		p.newline()
		p.text(strings.Repeat("─", max(0, p.w-2*gutter)), p.a.styles.media)
	default:
		p.newline()
		p.inline(n, p.a.styles.text)
	}
}

func (p *painter) inline(n dom.NodeID, st tcell.Style) {
	d := p.a.doc
	if d.IsText(n) {
		for i, r := range d.Runes(n) {
			p.mark(n, i)
			p.put(r, st)
		}
		p.mark(n, d.TextLen(n))
		return
	}

	switch d.Tag(n) {
	case "br":
		p.mark(n, 0)
		return
	case "img":
		p.text("[image]", p.a.styles.media)
		return
	case "iframe":
		kind, _ := d.Attr(n, mediapicker.MediaTypeAttr)
		p.text("["+kind+"]", p.a.styles.media)
		return
	}
	if d.HasClass(n, mediapicker.AttachmentClass) {
		name, _ := d.Attr(n, "data-name")
		p.text("[file "+name+"]", p.a.styles.media)
		return
	}

	if n == p.a.mention.Marker() {
		st = p.a.styles.active
		p.markerX, p.markerY = p.x, p.y
	} else if p.a.isMarker(n) {
		st = p.a.styles.mention
	}
	for i, c := range d.Children(n) {
		p.mark(n, i)
		p.inline(c, st)
	}
	p.mark(n, d.ChildCount(n))
}

// mark records the caret position when it sits at (n, off).
func (p *painter) mark(n dom.NodeID, off int) {
	if p.wantCaret && !p.haveCaret && p.caret.Node == n && p.caret.Offset == off {
		p.caretX, p.caretY, p.haveCaret = min(p.x, p.w-1), p.y, true
	}
}

func (p *painter) text(s string, st tcell.Style) {
	for _, r := range s {
		p.put(r, st)
	}
}

func (p *painter) put(r rune, st tcell.Style) {
	rw := max(1, uniseg.StringWidth(string(r)))
	if p.x+rw > p.w {
		p.newline()
	}
	if p.y >= 0 && p.y < p.h-1 {
		p.a.screen.SetContent(p.x, p.y, r, nil, st)
	}
	p.x += rw
}

func (a *App) isMarker(n dom.NodeID) bool {
	for _, cls := range a.cfg.Mention.TriggerClassMap {
		if a.doc.HasClass(n, cls) {
			return true
		}
	}
	return false
}

func (a *App) drawPicker(p *painter) {
	if !a.picker.Visible() || a.pickerRow < 0 || a.pickerRow >= p.h-1 {
		return
	}
	a.screen.SetContent(0, a.pickerRow, '+', nil, a.styles.picker)
	a.rows[a.pickerRow] = a.picker.MainButton()
	if !a.picker.Expanded() {
		return
	}
	x := gutter
	for i, k := range a.cfg.MediaPicker.Buttons {
		label := string(rune('1'+i)) + ":" + k + " "
		x = a.label(x, a.pickerRow, label, a.styles.panel)
	}
}

// drawPanel lists the suggestions under the marker, or above it when they
// would not fit.
func (a *App) drawPanel(p *painter) {
	if !a.mention.PanelVisible() {
		return
	}
	d := a.doc
	var items []dom.NodeID
	d.Walk(a.mention.Panel(), func(n dom.NodeID) bool {
		if d.HasClass(n, directory.ItemClass) || d.HasClass(n, directory.EmptyClass) {
			items = append(items, n)
			return false
		}
		return true
	})
	if len(items) == 0 {
		return
	}

	if a.panel != nil {
		if n := len(a.panel.Suggestions()); n > 0 {
			a.selected = min(a.selected, n-1)
		} else {
			a.selected = 0
		}
	}

	x, y := p.markerX, p.markerY
	if x < 0 {
		x, y = p.caretX, p.caretY
	}
	top := y + 1
	if top+len(items) > p.h-1 {
		top = max(0, y-len(items))
	}
	width := 0
	for _, it := range items {
		width = max(width, uniseg.StringWidth(d.TextContent(it)))
	}
	for i, it := range items {
		row := top + i
		if row >= p.h-1 {
			break
		}
		st := a.styles.panel
		if d.HasClass(it, directory.ItemClass) && i == a.selected {
			st = a.styles.selected
		}
		text := d.TextContent(it)
		pad := strings.Repeat(" ", width-uniseg.StringWidth(text))
		a.label(x, row, " "+text+pad+" ", st)
		if d.HasClass(it, directory.ItemClass) {
			a.rows[row] = it
		}
	}
}

func (a *App) drawStatus(w, h int) {
	if h == 0 {
		return
	}
	y := h - 1
	for x := range w {
		a.screen.SetContent(x, y, ' ', nil, a.styles.status)
	}
	msg := " inkwell  ^P media  ^Q quit"
	if a.picker.Waiting() {
		msg += "  waiting for " + string(a.picker.Pending())
	}
	if a.status != "" {
		msg += "  " + a.status
	}
	a.label(0, y, msg, a.styles.status)
}

// label writes s at (x, y) and returns the column after it.
func (a *App) label(x, y int, s string, st tcell.Style) int {
	w, _ := a.screen.Size()
	g := uniseg.NewGraphemes(s)
	for g.Next() && x < w {
		runes := g.Runes()
		a.screen.SetContent(x, y, runes[0], runes[1:], st)
		x += max(1, g.Width())
	}
	return x
}
