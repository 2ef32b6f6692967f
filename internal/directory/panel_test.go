package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/mention"
)

type panelFixture struct {
	e     *editor.Editor
	doc   *dom.Document
	p     dom.NodeID
	panel *Panel
	s     *mention.Session
}

func newPanelFixture(t *testing.T) *panelFixture {
	t.Helper()
	e, err := editor.NewFromHTML(`<div contenteditable="true"><p>hi </p></div>`)
	require.NoError(t, err)

	f := &panelFixture{e: e, doc: e.Document()}
	f.p = f.doc.ByTag(e.EditorElements()[0], "p")[0]
	f.panel = NewPanel(e, openStore(t), 5, nil)

	opts := mention.DefaultOptions()
	opts.Render = f.panel.Render
	opts.DestroyPanelContent = f.panel.Clear
	f.s, err = mention.New(e, opts)
	require.NoError(t, err)
	return f
}

func (f *panelFixture) typeAtEnd(t *testing.T, s string) {
	t.Helper()
	text := f.doc.FirstChild(f.p)
	require.NoError(t, f.e.ClickAt(dom.Point{Node: text, Offset: f.doc.TextLen(text)}))
	require.NoError(t, f.e.TypeText(s))
}

func (f *panelFixture) items() []dom.NodeID {
	return f.doc.ByClass(f.s.Panel(), ItemClass)
}

func TestPanel_RendersMatches(t *testing.T) {
	f := newPanelFixture(t)
	f.typeAtEnd(t, "@a")
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, names(f.panel.Suggestions()))

	// Each keystroke re-renders into a single list.
	require.NoError(t, f.e.TypeText("l"))
	assert.Len(t, f.doc.ByClass(f.s.Panel(), ListClass), 1)

	items := f.items()
	require.Len(t, items, 1)
	assert.Equal(t, "Alan Turing", f.doc.TextContent(items[0]))
	uid, _ := f.doc.Attr(items[0], "data-user-id")
	assert.Equal(t, "u2", uid)
	idx, _ := f.doc.Attr(items[0], "data-index")
	assert.Equal(t, "0", idx)
}

func TestPanel_NoMatches(t *testing.T) {
	f := newPanelFixture(t)
	f.typeAtEnd(t, "@zz")

	assert.Empty(t, f.items())
	assert.Len(t, f.doc.ByClass(f.s.Panel(), EmptyClass), 1)
	assert.Empty(t, f.panel.Suggestions())
}

func TestPanel_ClickCommits(t *testing.T) {
	f := newPanelFixture(t)
	f.typeAtEnd(t, "@a")

	items := f.items()
	require.Len(t, items, 2)
	f.e.Click(items[1])

	markers := f.doc.ByClass(f.p, "medium-editor-mention-at")
	require.Len(t, markers, 1)
	m := markers[0]
	assert.Equal(t, "@Alan Turing", f.doc.TextContent(m))
	uid, _ := f.doc.Attr(m, "data-user-id")
	assert.Equal(t, "u2", uid)
	slack, _ := f.doc.Attr(m, "data-slack-username")
	assert.Equal(t, "turing", slack)
	assert.False(t, f.s.PanelVisible())
	assert.False(t, f.s.Composing())
}

func TestPanel_Choose(t *testing.T) {
	f := newPanelFixture(t)
	f.typeAtEnd(t, "@gr")

	assert.ErrorIs(t, f.panel.Choose(3), ErrNoSuggestion)
	require.NoError(t, f.panel.Choose(0))

	m := f.doc.ByClass(f.p, "medium-editor-mention-at")[0]
	assert.Equal(t, "@Grace Hopper", f.doc.TextContent(m))
	avatar, _ := f.doc.Attr(m, "data-avatar-url")
	assert.Equal(t, "https://example.com/g.png", avatar)
}

func TestPanel_Cancel(t *testing.T) {
	f := newPanelFixture(t)
	f.typeAtEnd(t, "@a")
	require.True(t, f.s.Composing())

	f.panel.Cancel()

	assert.False(t, f.s.Composing())
	assert.Empty(t, f.doc.ByClass(f.p, "medium-editor-mention-at"))
	assert.Equal(t, "hi @a", f.doc.TextContent(f.p))
}

func TestPanel_ClearOnDestroy(t *testing.T) {
	f := newPanelFixture(t)
	f.typeAtEnd(t, "@a")
	require.Len(t, f.items(), 2)
	items := f.items()

	f.s.Destroy()

	assert.Empty(t, f.panel.Suggestions())
	assert.Zero(t, f.e.Listeners(items[0]))
	assert.ErrorIs(t, f.panel.Choose(0), ErrNoSuggestion)
}
