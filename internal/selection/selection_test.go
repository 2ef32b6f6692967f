package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/trigger"
)

func paragraph(t *testing.T, text string) (*dom.Document, dom.NodeID, dom.NodeID) {
	t.Helper()
	d, err := dom.ParseHTML("<p>" + text + "</p>")
	require.NoError(t, err)
	p := d.FirstChild(d.Root())
	return d, p, d.FirstChild(p)
}

func TestSaveRestore_Caret(t *testing.T) {
	d, p, text := paragraph(t, "hello")
	m := NewMemento(d)

	snap, err := m.Save(dom.Caret(text, 2))
	require.NoError(t, err)
	assert.True(t, snap.Collapsed())
	assert.Len(t, d.ByClass(p, trigger.BoundaryClass), 1)

	rng, err := m.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, dom.Caret(text, 2), rng)
	assert.Equal(t, "<p>hello</p>", d.HTML(p))
	assert.Nil(t, m.Live())
}

func TestSaveRestore_Range(t *testing.T) {
	d, p, text := paragraph(t, "hello")
	m := NewMemento(d)

	snap, err := m.Save(dom.Range{
		Start: dom.Point{Node: text, Offset: 1},
		End:   dom.Point{Node: text, Offset: 3},
	})
	require.NoError(t, err)
	assert.Len(t, d.ByClass(p, trigger.BoundaryClass), 2)

	rng, err := m.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", d.HTML(p))
	assert.Equal(t, dom.Point{Node: text, Offset: 1}, rng.Start)
	assert.Equal(t, dom.Point{Node: text, Offset: 3}, rng.End)
}

func TestSaveRestore_EmptyParagraph(t *testing.T) {
	d, err := dom.ParseHTML("<p><br/></p>")
	require.NoError(t, err)
	p := d.FirstChild(d.Root())
	m := NewMemento(d)

	snap, err := m.Save(dom.Caret(p, 0))
	require.NoError(t, err)
	assert.True(t, trigger.IsEmptyBlock(d, p), "boundary marker keeps the block empty")

	rng, err := m.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, dom.Caret(p, 0), rng)
	assert.Equal(t, "<p><br/></p>", d.HTML(p))
}

func TestRestore_Consumed(t *testing.T) {
	d, _, text := paragraph(t, "abc")
	m := NewMemento(d)

	snap, err := m.Save(dom.Caret(text, 1))
	require.NoError(t, err)
	_, err = m.Restore(snap)
	require.NoError(t, err)

	_, err = m.Restore(snap)
	assert.ErrorIs(t, err, ErrSnapshotConsumed)
}

func TestSave_ReplacesPrevious(t *testing.T) {
	d, err := dom.ParseHTML("<p>abc</p><p>def</p>")
	require.NoError(t, err)
	p1, p2 := d.Child(d.Root(), 0), d.Child(d.Root(), 1)
	m := NewMemento(d)

	first, err := m.Save(dom.Caret(d.FirstChild(p1), 1))
	require.NoError(t, err)
	second, err := m.Save(dom.Caret(d.FirstChild(p2), 2))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Empty(t, d.ByClass(p1, trigger.BoundaryClass), "old markers removed")
	assert.Len(t, d.ByClass(d.Root(), trigger.BoundaryClass), 1, "only one live snapshot")
	assert.Equal(t, "<p>abc</p>", d.HTML(p1))

	_, err = m.Restore(first)
	assert.ErrorIs(t, err, ErrSnapshotConsumed)

	rng, err := m.Restore(second)
	require.NoError(t, err)
	assert.Equal(t, dom.Caret(d.FirstChild(p2), 2), rng)
	assert.Equal(t, "<p>def</p>", d.HTML(p2))
}

func TestRestore_MarkerRemoved(t *testing.T) {
	d, p, text := paragraph(t, "abc")
	m := NewMemento(d)

	snap, err := m.Save(dom.Caret(text, 1))
	require.NoError(t, err)
	for _, b := range d.ByClass(p, trigger.BoundaryClass) {
		require.NoError(t, d.Remove(b))
	}

	_, err = m.Restore(snap)
	assert.ErrorIs(t, err, ErrStaleSnapshot)
	assert.Nil(t, m.Live())
}

func TestRestore_Nil(t *testing.T) {
	m := NewMemento(dom.New())
	_, err := m.Restore(nil)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestDiscard(t *testing.T) {
	d, p, text := paragraph(t, "abc")
	m := NewMemento(d)

	snap, err := m.Save(dom.Range{
		Start: dom.Point{Node: text, Offset: 0},
		End:   dom.Point{Node: text, Offset: 3},
	})
	require.NoError(t, err)

	m.Discard()
	m.Discard()
	assert.Equal(t, "<p>abc</p>", d.HTML(p))
	_, err = m.Restore(snap)
	assert.ErrorIs(t, err, ErrSnapshotConsumed)
}

func TestSave_InvalidRange(t *testing.T) {
	d, _, text := paragraph(t, "abc")
	m := NewMemento(d)

	_, err := m.Save(dom.Caret(text, 10))
	assert.ErrorIs(t, err, dom.ErrOffsetOutOfRange)
	assert.Nil(t, m.Live())
}
