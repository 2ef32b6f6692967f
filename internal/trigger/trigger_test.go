package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/inkwell/internal/dom"
)

func textDoc(t *testing.T, text string) (*dom.Document, dom.NodeID) {
	t.Helper()
	d := dom.New()
	p := d.CreateElement("p")
	require.NoError(t, d.AppendChild(d.Root(), p))
	n := d.CreateText(text)
	require.NoError(t, d.AppendChild(p, n))
	return d, n
}

func TestWordAt(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		caret     int
		bias      int
		wantStart int
		wantEnd   int
	}{
		{"end of text", "hello @wor", 10, 0, 6, 10},
		{"middle of word", "hello @wor", 8, 0, 6, 10},
		{"after space with bias", "hello @wor ", 11, -1, 6, 10},
		{"after space without bias", "hello @wor ", 11, 0, 11, 11},
		{"start of text", "@a", 0, 0, 0, 2},
		{"bias clamps at zero", "x", 0, -1, 0, 1},
		{"caret past end clamps", "ab", 9, 0, 0, 2},
		{"empty", "", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WordAt([]rune(tt.text), tt.caret, tt.bias)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestDetect_RoundTrip(t *testing.T) {
	d, n := textDoc(t, "hello @wor")
	det := DefaultDetector()

	w, ok := det.Detect(d, dom.Caret(n, 10), 0)
	require.True(t, ok)
	assert.Equal(t, "@wor", w.Text)
	assert.Equal(t, "@", w.Trigger)
	assert.Equal(t, ClassMention, w.Class)
	assert.Equal(t, 4, w.Len())

	require.NoError(t, d.InsertText(n, 10, " "))
	spaced, ok := det.Detect(d, dom.Caret(n, 11), -1)
	require.True(t, ok)
	assert.Equal(t, w.Text, spaced.Text)
	assert.Equal(t, w.Start, spaced.Start)
	assert.Equal(t, w.End, spaced.End)
}

func TestDetect_Unmapped(t *testing.T) {
	d, n := textDoc(t, "plain word")
	w, ok := DefaultDetector().Detect(d, dom.Caret(n, 10), 0)

	require.True(t, ok)
	assert.Equal(t, "word", w.Text)
	assert.False(t, w.IsTrigger())
}

func TestDetect_Hashtag(t *testing.T) {
	d, n := textDoc(t, "#golang")
	w, ok := DefaultDetector().Detect(d, dom.Caret(n, 7), 0)

	require.True(t, ok)
	assert.Equal(t, ClassHashtag, w.Class)
}

func TestDetect_MalformedSelection(t *testing.T) {
	d, n := textDoc(t, "hello @wor")
	other := d.CreateText("x")
	require.NoError(t, d.AppendChild(d.Parent(n), other))
	det := DefaultDetector()

	_, ok := det.Detect(d, dom.Range{Start: dom.Point{Node: n, Offset: 1}, End: dom.Point{Node: other, Offset: 1}}, 0)
	assert.False(t, ok, "multi-container selection")

	_, ok = det.Detect(d, dom.Range{Start: dom.Point{Node: n, Offset: 1}, End: dom.Point{Node: n, Offset: 3}}, 0)
	assert.False(t, ok, "non-collapsed selection")
}

func TestDetect_ElementPointNormalizes(t *testing.T) {
	d, n := textDoc(t, "@ab")
	p := d.Parent(n)

	w, ok := DefaultDetector().Detect(d, dom.Caret(p, 1), 0)
	require.True(t, ok)
	assert.Equal(t, "@ab", w.Text)
}

func TestIsEmptyBlock(t *testing.T) {
	tests := []struct {
		html string
		want bool
	}{
		{`<p></p>`, true},
		{`<p><br/></p>`, true},
		{`<p><br/><span class="rangySelectionBoundary"></span></p>`, true},
		{`<p><span class="rangySelectionBoundary"></span><br/></p>`, true},
		{`<p><br/><br/></p>`, false},
		{`<p>text</p>`, false},
		{`<p><span></span><br/></p>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.html, func(t *testing.T) {
			d, err := dom.ParseHTML(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, IsEmptyBlock(d, d.FirstChild(d.Root())))
		})
	}
}

func TestIsEmptyBlock_TextNode(t *testing.T) {
	d, n := textDoc(t, "")
	assert.False(t, IsEmptyBlock(d, n))
}

func TestLeadingCue(t *testing.T) {
	assert.True(t, LeadingCue("- item", "- "))
	assert.False(t, LeadingCue("-item", "- "))
	assert.False(t, LeadingCue("-", "- "))
	assert.False(t, LeadingCue("anything", ""))
}
