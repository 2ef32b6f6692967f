package dom

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := ParseHTML(src)
	if err != nil {
		t.Fatalf("ParseHTML(%q): %v", src, err)
	}
	return d
}

func TestParseHTML_RoundTrip(t *testing.T) {
	src := `<div class="editable" contenteditable="true"><p>hello <strong>@al</strong></p><p><br/></p></div>`
	d := mustParse(t, src)

	if got := d.InnerHTML(d.Root()); got != src {
		t.Errorf("round trip:\n got %s\nwant %s", got, src)
	}
}

func TestParseHTML_BodyAttributes(t *testing.T) {
	d := mustParse(t, `<body id="b"><p>x</p></body>`)

	if v, _ := d.Attr(d.Root(), "id"); v != "b" {
		t.Errorf("root id = %q, want b", v)
	}
	if d.ChildCount(d.Root()) != 1 {
		t.Errorf("root children = %d, want 1", d.ChildCount(d.Root()))
	}
}

func TestInsertAt_MoveWithinParent(t *testing.T) {
	d := New()
	a, b, c := d.CreateElement("a"), d.CreateElement("b"), d.CreateElement("c")
	for _, n := range []NodeID{a, b, c} {
		if err := d.AppendChild(d.Root(), n); err != nil {
			t.Fatal(err)
		}
	}

	if err := d.AppendChild(d.Root(), a); err != nil {
		t.Fatal(err)
	}
	if got := d.InnerHTML(d.Root()); got != "<b></b><c></c><a></a>" {
		t.Errorf("got %s", got)
	}
}

func TestInsertAt_RejectsCycle(t *testing.T) {
	d := New()
	p := d.CreateElement("p")
	_ = d.AppendChild(d.Root(), p)

	err := d.AppendChild(p, d.Root())
	if !errors.Is(err, ErrHierarchy) {
		t.Errorf("expected ErrHierarchy, got %v", err)
	}
}

func TestInsertAt_OutOfRangeLeavesTreeIntact(t *testing.T) {
	d := mustParse(t, `<p>a</p><div></div>`)
	p := d.Child(d.Root(), 0)
	div := d.Child(d.Root(), 1)

	err := d.InsertAt(div, p, 5)
	if !errors.Is(err, ErrOffsetOutOfRange) {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if d.Parent(p) != d.Root() {
		t.Error("failed insert must not detach the child")
	}
}

func TestSurroundContents(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		want       string
		wantInner  string
	}{
		{"middle", 6, 10, `<p>hello <strong>@wor</strong>ld</p>`, "@wor"},
		{"start", 0, 5, `<p><strong>hello</strong> @world</p>`, "hello"},
		{"end", 6, 12, `<p>hello <strong>@world</strong></p>`, "@world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustParse(t, `<p>hello @world</p>`)
			p := d.Child(d.Root(), 0)
			text := d.FirstChild(p)

			inner, err := d.SurroundContents(text, tt.start, tt.end, d.CreateElement("strong"))
			if err != nil {
				t.Fatal(err)
			}
			if got := d.HTML(p); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if d.Text(inner) != tt.wantInner {
				t.Errorf("inner text = %q", d.Text(inner))
			}
		})
	}
}

func TestSurroundContents_ValidatesFirst(t *testing.T) {
	d := mustParse(t, `<p>abc</p>`)
	text := d.FirstChild(d.Child(d.Root(), 0))

	_, err := d.SurroundContents(text, 1, 9, d.CreateElement("strong"))
	if !errors.Is(err, ErrOffsetOutOfRange) {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if d.Text(text) != "abc" {
		t.Errorf("text mutated on failure: %q", d.Text(text))
	}
}

func TestUnwrapAndMerge_RestoresSingleTextNode(t *testing.T) {
	d := mustParse(t, `<p>hello <strong>@wor</strong>ld</p>`)
	p := d.Child(d.Root(), 0)
	marker := d.Child(p, 1)

	pt := Point{Node: p, Offset: 2} // just after the marker
	if err := d.Unwrap(marker, &pt); err != nil {
		t.Fatal(err)
	}
	if err := d.MergeAdjacentText(p, &pt); err != nil {
		t.Fatal(err)
	}

	if d.ChildCount(p) != 1 {
		t.Fatalf("children = %d, want 1 (%s)", d.ChildCount(p), d.HTML(p))
	}
	text := d.FirstChild(p)
	if d.Text(text) != "hello @world" {
		t.Errorf("text = %q", d.Text(text))
	}
	if pt != (Point{Node: text, Offset: 10}) {
		t.Errorf("point = %v, want (%d,10)", pt, text)
	}
}

func TestMergeAdjacentText_DropsEmpty(t *testing.T) {
	d := New()
	p := d.CreateElement("p")
	_ = d.AppendChild(d.Root(), p)
	empty := d.CreateText("")
	br := d.CreateElement("br")
	_ = d.AppendChild(p, empty)
	_ = d.AppendChild(p, br)

	pt := Point{Node: empty, Offset: 0}
	if err := d.MergeAdjacentText(p, &pt); err != nil {
		t.Fatal(err)
	}
	if d.ChildCount(p) != 1 || d.FirstChild(p) != br {
		t.Errorf("got %s", d.HTML(p))
	}
	if pt != (Point{Node: p, Offset: 0}) {
		t.Errorf("point = %v", pt)
	}
	if d.Parent(empty) != InvalidNode {
		t.Error("empty text node should be detached")
	}
}

func TestTextOffsetRoundTrip(t *testing.T) {
	d := mustParse(t, `<div><p>ab<strong>cd</strong></p><p>ef</p></div>`)
	root := d.Child(d.Root(), 0)

	for off := 0; off <= 6; off++ {
		p := d.PointAtTextOffset(root, off, false)
		got, ok := d.TextOffset(root, p)
		if !ok || got != off {
			t.Errorf("offset %d -> %v -> %d (ok=%v)", off, p, got, ok)
		}
	}

	// Boundary affinity.
	back := d.PointAtTextOffset(root, 2, false)
	fwd := d.PointAtTextOffset(root, 2, true)
	if d.Text(back.Node) != "ab" || d.Text(fwd.Node) != "cd" {
		t.Errorf("affinity: back=%q fwd=%q", d.Text(back.Node), d.Text(fwd.Node))
	}
}

func TestCommonAncestor(t *testing.T) {
	d := mustParse(t, `<div><p>ab</p><p>cd</p></div>`)
	div := d.Child(d.Root(), 0)
	a := d.FirstChild(d.Child(div, 0))
	c := d.FirstChild(d.Child(div, 1))

	if got := d.CommonAncestor(Range{Start: Point{a, 1}, End: Point{c, 1}}); got != div {
		t.Errorf("common ancestor = %d, want %d", got, div)
	}
	if got := d.CommonAncestor(Caret(a, 1)); got != a {
		t.Errorf("collapsed common ancestor = %d, want %d", got, a)
	}
}

func TestClasses(t *testing.T) {
	d := New()
	el := d.CreateElement("div")

	_ = d.AddClass(el, "a", "b", "a", "")
	if got := d.Classes(el); len(got) != 2 {
		t.Errorf("classes = %v", got)
	}
	d.RemoveClass(el, "a")
	if d.HasClass(el, "a") || !d.HasClass(el, "b") {
		t.Errorf("classes after remove = %v", d.Classes(el))
	}
	if v, _ := d.Attr(el, "class"); v != "b" {
		t.Errorf("class attr = %q", v)
	}
}

func TestLayout_BlocksAndInline(t *testing.T) {
	d := mustParse(t, `<div><p>hello <strong>@al</strong></p><p><br/></p><p>x</p></div>`)
	div := d.Child(d.Root(), 0)
	lay := d.Layout(div, 40)

	marker := d.Child(d.Child(div, 0), 1)
	r, ok := lay.Rect(marker)
	if !ok {
		t.Fatal("marker not laid out")
	}
	if r != (Rect{X: 6, Y: 0, W: 3, H: 1}) {
		t.Errorf("marker rect = %+v", r)
	}

	empty, _ := lay.Rect(d.Child(div, 1))
	if empty.Y != 1 || empty.H != 1 {
		t.Errorf("empty paragraph rect = %+v", empty)
	}
	last, _ := lay.Rect(d.Child(div, 2))
	if last.Y != 2 {
		t.Errorf("third paragraph y = %d, want 2", last.Y)
	}
}

func TestLayout_WideGraphemesAndWrap(t *testing.T) {
	d := mustParse(t, `<p>日本語</p>`)
	p := d.Child(d.Root(), 0)
	lay := d.Layout(p, 4)

	r, _ := lay.Rect(d.FirstChild(p))
	if r.H != 2 {
		t.Errorf("wide text should wrap onto two lines, got %+v", r)
	}
}

func TestLayout_SkipsFloating(t *testing.T) {
	d := mustParse(t, `<p>a</p><div data-floating="true"><p>panel</p></div>`)
	lay := d.Layout(d.Root(), 20)

	if _, ok := lay.Rect(d.Child(d.Root(), 1)); ok {
		t.Error("floating element should not be laid out")
	}
}
