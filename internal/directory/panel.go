package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/mention"
)

// Suggestion list markup.
const (
	ListClass  = "mention-suggestions"
	ItemClass  = "mention-suggestion"
	EmptyClass = "mention-suggestions-empty"
)

// ErrNoSuggestion is returned by Choose for an index with no suggestion.
var ErrNoSuggestion = errors.New("no such suggestion")

// Source finds contacts for a query typed after a trigger. *Store is a
// Source; so is a scripted provider.
type Source interface {
	Search(ctx context.Context, query string, limit int) ([]Contact, error)
}

// Panel fills the mention panel with matches from a Source. Its Render
// and Clear methods plug into mention.Options as Render and
// DestroyPanelContent.
type Panel struct {
	host  editor.Host
	src   Source
	limit int
	log   *logging.Logger

	results  []Contact
	trigger  string
	selectFn mention.SelectFunc
	release  []func()
}

// NewPanel creates a renderer querying src for at most limit matches.
func NewPanel(host editor.Host, src Source, limit int, log *logging.Logger) *Panel {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Panel{
		host:  host,
		src:   src,
		limit: limit,
		log:   logging.OrNop(log).WithComponent("directory-panel"),
	}
}

// Render replaces the panel content with the contacts matching word. word
// starts with its trigger character, which is not part of the query.
func (p *Panel) Render(panel dom.NodeID, word string, selectFn mention.SelectFunc) {
	p.Clear(panel)

	trig, size := utf8.DecodeRuneInString(word)
	if size == 0 {
		return
	}
	p.trigger = string(trig)
	p.selectFn = selectFn

	results, err := p.src.Search(context.Background(), word[size:], p.limit)
	if err != nil {
		p.log.Warn("suggestion lookup failed", "word", word, "error", err)
	}
	p.results = results

	d := p.host.Document()
	list := d.CreateElement("ul")
	_ = d.AddClass(list, ListClass)
	if len(results) == 0 {
		empty := d.CreateElement("li")
		_ = d.AddClass(empty, EmptyClass)
		_ = d.AppendChild(empty, d.CreateText("No matches"))
		_ = d.AppendChild(list, empty)
	}
	for i, c := range results {
		item := d.CreateElement("li")
		_ = d.AddClass(item, ItemClass)
		_ = d.SetAttr(item, "data-index", strconv.Itoa(i))
		_ = d.SetAttr(item, "data-user-id", c.UserID)
		_ = d.AppendChild(item, d.CreateText(c.Name))
		_ = d.AppendChild(list, item)

		p.release = append(p.release, p.host.OnClick(item, func(ev *editor.Event) {
			ev.PreventDefault()
			ev.StopPropagation()
			if err := p.Choose(i); err != nil {
				p.log.Debug("suggestion click ignored", "error", err)
			}
		}))
	}
	if err := d.AppendChild(panel, list); err != nil {
		p.log.Warn("panel render failed", "error", err)
	}
}

// Clear removes the panel content and its click listeners.
func (p *Panel) Clear(panel dom.NodeID) {
	for _, release := range p.release {
		release()
	}
	p.release = nil
	p.results = nil
	p.selectFn = nil
	p.host.Document().RemoveChildren(panel)
}

// Suggestions returns the contacts currently listed.
func (p *Panel) Suggestions() []Contact {
	return append([]Contact(nil), p.results...)
}

// Choose commits the i-th listed contact as trigger + name.
func (p *Panel) Choose(i int) error {
	if p.selectFn == nil || i < 0 || i >= len(p.results) {
		return fmt.Errorf("choose %d: %w", i, ErrNoSuggestion)
	}
	c, selectFn := p.results[i], p.selectFn
	selectFn(p.trigger+c.Name, c.Details())
	return nil
}

// Cancel abandons the mention being composed.
func (p *Panel) Cancel() {
	if p.selectFn != nil {
		p.selectFn("", mention.Details{})
	}
}
