package editor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/inkwell/internal/clock"
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/event"
)

const twoParagraphs = `<div class="editable" contenteditable="true"><p>hello</p><p><br/></p></div>`

func newEditor(t *testing.T, src string, opts ...Option) *Editor {
	t.Helper()
	e, err := NewFromHTML(src, opts...)
	require.NoError(t, err)
	return e
}

func editable(e *Editor) dom.NodeID {
	return e.EditorElements()[0]
}

type recorder struct {
	names []string
}

func (r *recorder) on(t *testing.T, e *Editor, topics ...event.Topic) {
	t.Helper()
	for _, topic := range topics {
		_, err := e.Subscribe(topic, func(ev *Event) {
			name := ev.Name.Base()
			if ev.Key != KeyNone {
				name += ":" + ev.Key.String()
			}
			r.names = append(r.names, name)
		})
		require.NoError(t, err)
	}
}

func TestNew_RequiresEditable(t *testing.T) {
	_, err := NewFromHTML(`<p>plain</p>`)
	assert.ErrorIs(t, err, ErrNoEditable)
}

func TestTypeText_EventOrder(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	root := editable(e)
	d := e.Document()
	text := d.FirstChild(d.Child(root, 0))
	require.NoError(t, e.SetSelection(dom.Caret(text, 5)))

	rec := &recorder{}
	rec.on(t, e, event.TopicKeypress, event.TopicInput, event.TopicKeyup)

	require.NoError(t, e.TypeText("! "))
	assert.Equal(t, []string{
		"editableKeypress:rune", "editableInput", "editableKeyup:rune",
		"editableKeypress:space", "editableInput", "editableKeyup:space",
	}, rec.names)
	assert.Equal(t, "hello! ", d.Text(text))

	rng, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, dom.Caret(text, 7), rng)
}

func TestTypeText_ReplacesPlaceholderBreak(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	d := e.Document()
	p := d.Child(editable(e), 1)
	require.NoError(t, e.SetSelection(dom.Caret(p, 0)))

	require.NoError(t, e.TypeText("ok"))
	assert.Equal(t, "<p>ok</p>", d.HTML(p))
}

func TestTypeText_PreventDefault(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	d := e.Document()
	text := d.FirstChild(d.Child(editable(e), 0))
	require.NoError(t, e.SetSelection(dom.Caret(text, 5)))

	_, err := e.Subscribe(event.TopicKeypress, func(ev *Event) {
		if ev.Key == KeySpace {
			ev.PreventDefault()
		}
	})
	require.NoError(t, err)

	require.NoError(t, e.TypeText("a b"))
	assert.Equal(t, "helloab", d.Text(text))
}

func TestTypeText_RequiresFocus(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	err := e.TypeText("x")
	assert.ErrorIs(t, err, ErrNoSelection)
}

// A blur raised inside a click handler is delivered only after every
// handler of the click has returned.
func TestEventOrdering_BlurInsideClick(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	root := editable(e)
	e.Focus(root)

	var log []string
	_, err := e.Subscribe(event.TopicClick, func(ev *Event) {
		log = append(log, "click:start")
		e.Blur()
		log = append(log, "click:end")
	})
	require.NoError(t, err)
	_, err = e.Subscribe(event.TopicClick, func(ev *Event) {
		log = append(log, "click:second")
	})
	require.NoError(t, err)
	_, err = e.Subscribe(event.TopicBlur, func(ev *Event) {
		log = append(log, "blur")
	})
	require.NoError(t, err)

	e.Click(docOf(e).Child(root, 0))
	assert.Equal(t, []string{"click:start", "click:end", "click:second", "blur"}, log)
	assert.Equal(t, dom.InvalidNode, e.FocusedElement())
	_, ok := e.Selection()
	assert.False(t, ok, "blur clears the live range")
}

func docOf(e *Editor) *dom.Document {
	return e.Document()
}

func TestClick_ListenersBubbleAndStop(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>x</p></div><div id="ui"><button>b</button></div>`)
	doc := e.Document()
	ui := doc.Child(doc.Root(), 1)
	button := doc.FirstChild(ui)

	var got []string
	removeButton := e.OnClick(button, func(ev *Event) { got = append(got, "button") })
	e.OnClick(ui, func(ev *Event) {
		got = append(got, "ui")
		ev.StopPropagation()
	})
	_, err := e.Subscribe(event.TopicWindowClick, func(ev *Event) { got = append(got, "window") })
	require.NoError(t, err)

	e.Click(button)
	assert.Equal(t, []string{"button", "ui"}, got)

	got = nil
	removeButton()
	assert.Equal(t, 0, e.Listeners(button))
	e.ClickOutside()
	assert.Equal(t, []string{"window"}, got)
}

func TestClickAt_FocusesAndPublishes(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	root := editable(e)
	text := docOf(e).FirstChild(docOf(e).Child(root, 0))
	rec := &recorder{}
	rec.on(t, e, event.TopicFocus, event.TopicClick, event.TopicWindowClick)

	require.NoError(t, e.ClickAt(dom.Point{Node: text, Offset: 2}))
	assert.Equal(t, []string{"focus", "editableClick", "windowClick"}, rec.names)
	assert.Equal(t, root, e.FocusedElement())
}

func TestClickOutside_Blurs(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	e.Focus(editable(e))
	rec := &recorder{}
	rec.on(t, e, event.TopicWindowClick, event.TopicBlur)

	e.ClickOutside()
	assert.Equal(t, []string{"windowClick", "blur"}, rec.names)
	assert.Equal(t, dom.InvalidNode, e.FocusedElement())
}

func TestBackspace(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>ab<strong>cd</strong></p></div>`)
	p := docOf(e).Child(editable(e), 0)
	strong := docOf(e).Child(p, 1)
	require.NoError(t, e.SetSelection(dom.Caret(docOf(e).FirstChild(strong), 1)))

	require.NoError(t, e.Backspace())
	require.NoError(t, e.Backspace())
	assert.Equal(t, "<p>a<strong>d</strong></p>", docOf(e).HTML(p))
}

func TestEnter_SplitsBlock(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>hello world</p></div>`)
	root := editable(e)
	text := docOf(e).FirstChild(docOf(e).Child(root, 0))
	require.NoError(t, e.SetSelection(dom.Caret(text, 5)))

	require.NoError(t, e.Enter())
	assert.Equal(t, "<p>hello</p><p> world</p>", docOf(e).InnerHTML(root))

	rng, _ := e.Selection()
	second := docOf(e).Child(root, 1)
	assert.Equal(t, second, docOf(e).Parent(rng.Start.Node))
	assert.Equal(t, 0, rng.Start.Offset)
}

func TestEnter_AtEnd(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>hi</p></div>`)
	root := editable(e)
	text := docOf(e).FirstChild(docOf(e).Child(root, 0))
	require.NoError(t, e.SetSelection(dom.Caret(text, 2)))

	require.NoError(t, e.Enter())
	assert.Equal(t, "<p>hi</p><p><br/></p>", docOf(e).InnerHTML(root))
	rng, _ := e.Selection()
	assert.Equal(t, dom.Caret(docOf(e).Child(root, 1), 0), rng)
}

func TestLeftRight(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>abc</p></div>`)
	text := docOf(e).FirstChild(docOf(e).Child(editable(e), 0))
	require.NoError(t, e.SetSelection(dom.Caret(text, 1)))

	rec := &recorder{}
	rec.on(t, e, event.TopicKeyup)
	require.NoError(t, e.Left())
	require.NoError(t, e.Left())
	rng, _ := e.Selection()
	assert.Equal(t, dom.Caret(text, 0), rng)

	require.NoError(t, e.Right())
	rng, _ = e.Selection()
	assert.Equal(t, dom.Caret(text, 1), rng)
	assert.Equal(t, []string{"editableKeyup:left", "editableKeyup:left", "editableKeyup:right"}, rec.names)
}

func TestSaveRestoreSelection(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>ab<strong>cd</strong>ef</p></div>`)
	root := editable(e)
	p := docOf(e).Child(root, 0)
	strong := docOf(e).Child(p, 1)
	require.NoError(t, e.SetSelection(dom.Caret(docOf(e).FirstChild(strong), 1)))

	e.SaveSelection()
	e.Blur()
	_, ok := e.Selection()
	require.False(t, ok)

	e.RestoreSelection()
	rng, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, dom.Caret(docOf(e).FirstChild(strong), 1), rng)
	assert.Equal(t, root, e.FocusedElement())
}

func TestCheckContentChanged(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	rec := &recorder{}
	rec.on(t, e, event.TopicInput)

	e.CheckContentChanged()
	assert.Empty(t, rec.names, "unchanged content publishes nothing")

	text := docOf(e).FirstChild(docOf(e).Child(editable(e), 0))
	require.NoError(t, docOf(e).InsertText(text, 0, "x"))
	e.CheckContentChanged()
	e.CheckContentChanged()
	assert.Equal(t, []string{"editableInput"}, rec.names)
}

func TestExecAction_UnorderedListToggle(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>item</p></div>`)
	root := editable(e)
	text := docOf(e).FirstChild(docOf(e).Child(root, 0))
	require.NoError(t, e.SetSelection(dom.Caret(text, 4)))

	require.NoError(t, e.ExecAction(ActionInsertUnorderedList))
	assert.Equal(t, "<ul><li>item</li></ul>", docOf(e).InnerHTML(root))

	require.NoError(t, e.ExecAction(ActionInsertUnorderedList))
	assert.Equal(t, "<p>item</p>", docOf(e).InnerHTML(root))

	err := e.ExecAction("bold")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

type stubExtension struct {
	name      string
	inits     int
	destroys  int
	failInit  error
	destroyed *[]string
}

func (s *stubExtension) Name() string { return s.name }

func (s *stubExtension) Init(Host) error {
	s.inits++
	return s.failInit
}

func (s *stubExtension) Destroy() {
	s.destroys++
	*s.destroyed = append(*s.destroyed, s.name)
}

func TestExtensions(t *testing.T) {
	e := newEditor(t, twoParagraphs)
	var order []string
	a := &stubExtension{name: "a", destroyed: &order}
	b := &stubExtension{name: "b", destroyed: &order}

	require.NoError(t, e.Use(a))
	require.NoError(t, e.Use(b))
	assert.ErrorIs(t, e.Use(&stubExtension{name: "a", destroyed: &order}), ErrExtensionExists)
	assert.Same(t, a, e.ExtensionByName("a"))
	assert.Nil(t, e.ExtensionByName("missing"))

	boom := errors.New("boom")
	err := e.Use(&stubExtension{name: "c", failInit: boom, destroyed: &order})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, e.ExtensionByName("c"))

	e.Close()
	e.Close()
	assert.Equal(t, []string{"b", "a"}, order)
	assert.ErrorIs(t, e.Use(&stubExtension{name: "d", destroyed: &order}), ErrClosed)
}

func TestAfterFunc_RunsOnQueue(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	e := newEditor(t, twoParagraphs, WithClock(c))

	fired := 0
	tm := e.AfterFunc(300*time.Millisecond, func() { fired++ })
	c.Advance(299 * time.Millisecond)
	assert.Equal(t, 0, fired)
	c.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.False(t, tm.Stop())
}

func TestSetSelection_OutsideEditable(t *testing.T) {
	e := newEditor(t, `<div contenteditable="true"><p>a</p></div><p>outside</p>`)
	outside := docOf(e).FirstChild(docOf(e).Child(docOf(e).Root(), 1))

	err := e.SetSelection(dom.Caret(outside, 0))
	assert.ErrorIs(t, err, ErrNotEditable)
	err = e.SetSelection(dom.Caret(outside, 99))
	assert.ErrorIs(t, err, dom.ErrOffsetOutOfRange)
}

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("left")
	assert.True(t, ok)
	assert.Equal(t, KeyLeft, k)
	_, ok = ParseKey("hyper")
	assert.False(t, ok)
	assert.Equal(t, KeySpace, KeyForRune(' '))
}
