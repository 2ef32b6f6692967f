package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/dshills/inkwell/internal/autolist"
	"github.com/dshills/inkwell/internal/clock"
	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/directory"
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/mediapicker"
	"github.com/dshills/inkwell/internal/mention"
)

// Option configures a run.
type Option func(*runner)

// WithLogger routes editor and session logs to l.
func WithLogger(l *logging.Logger) Option {
	return func(r *runner) { r.log = logging.OrNop(l) }
}

// WithSource backs the mention panel with src. Scenario contacts, when
// present, take precedence.
func WithSource(src directory.Source) Option {
	return func(r *runner) { r.src = src }
}

// WithDelegate answers media picker clicks. Without one, media steps
// answer them.
func WithDelegate(d mediapicker.Delegate) Option {
	return func(r *runner) { r.delegate = d }
}

// WithConfig sets the base configuration the scenario's config section is
// applied over.
func WithConfig(cfg *config.Config) Option {
	return func(r *runner) { r.base = cfg }
}

type runner struct {
	log      *logging.Logger
	src      directory.Source
	delegate mediapicker.Delegate
	base     *config.Config

	cfg     *config.Config
	clk     *clock.Manual
	ed      *editor.Editor
	doc     *dom.Document
	panel   *directory.Panel
	mention *mention.Session
	picker  *mediapicker.Session
	clicks  []string
	events  map[string]int
}

// Run replays sc. Failed expectations are collected in the result; an
// error is returned only when the scenario cannot be set up or a step
// cannot be performed.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	r := &runner{log: logging.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	res := &Result{Name: sc.Name}

	cleanup, err := r.setup(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		action, err := st.Action()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		sr := StepResult{Index: i + 1, Action: action}
		if action == "expect" {
			sr.Failures = r.check(st.Expect)
		} else if err := r.perform(action, st); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, action, err)
		}
		res.Steps = append(res.Steps, sr)
		r.log.Debug("step done", "index", sr.Index, "action", action, "failures", len(sr.Failures))
	}

	res.HTML = r.doc.InnerHTML(r.ed.EditorElements()[0])
	res.PickerClicks = r.clicks
	res.Events = r.events
	return res, nil
}

func (r *runner) setup(ctx context.Context, sc *Scenario) (func(), error) {
	if r.base != nil {
		r.cfg = r.base.Clone()
	} else {
		r.cfg = config.Default()
	}
	if err := r.cfg.Apply(sc.Config); err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if len(sc.Contacts) > 0 {
		store, err := directory.Open(ctx, directory.MemoryPath, r.log)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func() { _ = store.Close() })
		for _, c := range sc.Contacts {
			if _, err := store.Put(ctx, c); err != nil {
				cleanup()
				return nil, fmt.Errorf("seed contact %q: %w", c.UserID, err)
			}
		}
		r.src = store
	}

	r.clk = clock.NewManual(time.Unix(0, 0))
	ed, err := editor.NewFromHTML(sc.HTML,
		editor.WithClock(r.clk),
		editor.WithViewport(r.cfg.Viewport()),
		editor.WithLogger(r.log),
	)
	if err != nil {
		cleanup()
		return nil, err
	}
	r.ed, r.doc = ed, ed.Document()
	closers = append(closers, ed.Close)

	r.events = make(map[string]int)
	sub, err := ed.Subscribe(event.TopicAllEditor, func(ev *editor.Event) {
		r.events[ev.Name.Base()]++
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	closers = append(closers, func() { ed.Unsubscribe(sub) })

	mopts := r.cfg.MentionOptions()
	mopts.Logger = r.log
	if r.src != nil {
		r.panel = directory.NewPanel(ed, r.src, r.cfg.Directory.Limit, r.log)
		mopts.Render = r.panel.Render
		mopts.DestroyPanelContent = r.panel.Clear
	}
	mp := mention.NewPlugin(mopts)

	popts, err := r.cfg.MediaPickerOptions()
	if err != nil {
		cleanup()
		return nil, err
	}
	popts.Logger = r.log
	popts.Delegate = r.delegate
	userClick := r.delegate.OnPickerClick
	popts.Delegate.OnPickerClick = func(s *mediapicker.Session, k mediapicker.Kind) {
		r.clicks = append(r.clicks, string(k))
		if userClick != nil {
			userClick(s, k)
		}
	}
	pp := mediapicker.NewPlugin(popts)

	for _, ext := range []editor.Extension{mp, pp, autolist.New(r.log)} {
		if err := ed.Use(ext); err != nil {
			cleanup()
			return nil, err
		}
	}
	r.mention, r.picker = mp.Session(), pp.Session()
	return cleanup, nil
}

func (r *runner) perform(action string, st Step) error {
	switch action {
	case "caret":
		n, err := r.find(st.Caret.Target)
		if err != nil {
			return err
		}
		off := st.Caret.Offset
		if st.Caret.End {
			off = len([]rune(r.doc.TextContent(n)))
		}
		return r.ed.ClickAt(r.doc.PointAtTextOffset(n, off, false))
	case "type":
		return r.ed.TypeText(st.Type)
	case "key":
		k, ok := editor.ParseKey(st.Key)
		if !ok {
			return fmt.Errorf("unknown key %q: %w", st.Key, ErrInvalidScenario)
		}
		for range max(st.Repeat, 1) {
			if err := r.ed.PressKey(k); err != nil {
				return err
			}
		}
	case "click":
		n, err := r.find(*st.Click)
		if err != nil {
			return err
		}
		r.ed.Click(n)
	case "click_outside":
		r.ed.ClickOutside()
	case "blur":
		r.ed.Do(r.ed.Blur)
	case "focus":
		roots := r.ed.EditorElements()
		r.ed.Do(func() { r.ed.Focus(roots[0]) })
	case "advance":
		r.clk.Advance(st.Advance)
	case "choose":
		if r.panel == nil {
			return fmt.Errorf("choose needs contacts: %w", ErrInvalidScenario)
		}
		var err error
		r.ed.Do(func() { err = r.panel.Choose(*st.Choose) })
		return err
	case "cancel":
		if r.panel == nil {
			return fmt.Errorf("cancel needs contacts: %w", ErrInvalidScenario)
		}
		r.ed.Do(r.panel.Cancel)
	case "picker":
		return r.pick(st.Picker)
	case "media":
		return r.answer(st.Media)
	}
	return nil
}

// pick clicks the main button for "open" and a media button otherwise.
// Without the inline affordance the click goes through ClickButton.
func (r *runner) pick(name string) error {
	if name == "open" {
		if r.picker.MainButton() == dom.InvalidNode {
			return fmt.Errorf("no inline picker: %w", ErrTargetNotFound)
		}
		r.ed.Click(r.picker.MainButton())
		return nil
	}
	if name == "save" {
		r.ed.Do(r.picker.SaveSelection)
		return nil
	}
	kind, err := mediapicker.ParseKind(name)
	if err != nil {
		return err
	}
	if btn := r.picker.Button(kind); btn != dom.InvalidNode {
		r.ed.Click(btn)
		return nil
	}
	r.ed.Do(func() { err = r.picker.ClickButton(kind) })
	return err
}

func (r *runner) answer(m *Media) error {
	kind, err := mediapicker.ParseKind(m.Kind)
	if err != nil {
		return err
	}
	s := r.picker
	if kind != mediapicker.KindEntry && !s.Waiting() {
		return fmt.Errorf("no picker click waits for %s: %w", kind, ErrInvalidScenario)
	}
	switch kind {
	case mediapicker.KindPhoto:
		r.ed.Do(func() { s.AddPhoto(m.URL, m.Thumbnail, m.Width, m.Height) })
	case mediapicker.KindVideo:
		r.ed.Do(func() { s.AddVideo(m.URL, m.VideoType, m.ID, m.Thumbnail) })
	case mediapicker.KindChart:
		r.ed.Do(func() { s.AddChart(m.URL, m.ID, m.Thumbnail) })
	case mediapicker.KindAttachment:
		a, err := mediapicker.AttachmentFromJSON([]byte(attachmentJSON(m.Attach)))
		if err != nil {
			return err
		}
		r.ed.Do(func() { s.AddAttachment(m.URL, a) })
	default:
		return fmt.Errorf("%s has no completion: %w", kind, ErrInvalidScenario)
	}
	return nil
}

func attachmentJSON(fields map[string]any) string {
	out := "{}"
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		next, err := sjson.Set(out, escapePath(k), fields[k])
		if err == nil {
			out = next
		}
	}
	return out
}

func escapePath(key string) string {
	return strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`).Replace(key)
}

// find resolves t against the whole document.
func (r *runner) find(t Target) (dom.NodeID, error) {
	matches := r.doc.FindAll(r.doc.Root(), func(n dom.NodeID) bool {
		if !r.doc.IsElement(n) {
			return false
		}
		if t.Tag != "" && r.doc.Tag(n) != strings.ToLower(t.Tag) {
			return false
		}
		if t.Class != "" && !r.doc.HasClass(n, t.Class) {
			return false
		}
		if t.ID != "" {
			if v, _ := r.doc.Attr(n, "id"); v != t.ID {
				return false
			}
		}
		return true
	})
	if t.Index < 0 || t.Index >= len(matches) {
		return dom.InvalidNode, fmt.Errorf("%+v (%d matches): %w", t, len(matches), ErrTargetNotFound)
	}
	return matches[t.Index], nil
}

func (r *runner) check(x *Expect) []string {
	var fails []string
	failf := func(format string, args ...any) {
		fails = append(fails, fmt.Sprintf(format, args...))
	}
	root := r.ed.EditorElements()[0]

	if x.HTML != nil {
		if got := r.doc.InnerHTML(root); got != *x.HTML {
			failf("html = %q, want %q", got, *x.HTML)
		}
	}
	if x.Text != nil {
		if got := r.doc.TextContent(root); got != *x.Text {
			failf("text = %q, want %q", got, *x.Text)
		}
	}
	if x.Composing != nil && r.mention.Composing() != *x.Composing {
		failf("composing = %v, want %v", r.mention.Composing(), *x.Composing)
	}
	if x.Word != nil && r.mention.Word() != *x.Word {
		failf("word = %q, want %q", r.mention.Word(), *x.Word)
	}
	if x.PanelVisible != nil && r.mention.PanelVisible() != *x.PanelVisible {
		failf("panel_visible = %v, want %v", r.mention.PanelVisible(), *x.PanelVisible)
	}
	if x.Suggestions != nil {
		var got []string
		if r.panel != nil {
			for _, c := range r.panel.Suggestions() {
				got = append(got, c.Name)
			}
		}
		if !slices.Equal(got, x.Suggestions) {
			failf("suggestions = %q, want %q", got, x.Suggestions)
		}
	}
	if x.Markers != nil {
		got := 0
		for _, cls := range r.cfg.Mention.TriggerClassMap {
			got += len(r.doc.ByClass(root, cls))
		}
		if got != *x.Markers {
			failf("markers = %d, want %d", got, *x.Markers)
		}
	}
	if x.PickerVisible != nil && r.picker.Visible() != *x.PickerVisible {
		failf("picker_visible = %v, want %v", r.picker.Visible(), *x.PickerVisible)
	}
	if x.PickerExpanded != nil && r.picker.Expanded() != *x.PickerExpanded {
		failf("picker_expanded = %v, want %v", r.picker.Expanded(), *x.PickerExpanded)
	}
	if x.Waiting != nil && r.picker.Waiting() != *x.Waiting {
		failf("waiting = %v, want %v", r.picker.Waiting(), *x.Waiting)
	}
	if x.Lists != nil {
		if got := len(r.doc.ByTag(root, "ul")); got != *x.Lists {
			failf("lists = %d, want %d", got, *x.Lists)
		}
	}
	return fails
}
