// Package autolist turns a paragraph typed as "- " into a bulleted list
// item.
package autolist

import (
	"errors"
	"strings"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/event"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/trigger"
)

// Name is the extension name.
const Name = "autolist"

// Cue starts a list item when followed by a space.
const Cue = "-"

// Extension converts cue paragraphs on a space keypress.
type Extension struct {
	host editor.Host
	log  *logging.Logger
	sub  *event.Subscription
}

// New creates the extension. A nil logger discards output.
func New(log *logging.Logger) *Extension {
	return &Extension{log: logging.OrNop(log).WithComponent(Name)}
}

// Name returns the extension name.
func (x *Extension) Name() string {
	return Name
}

// Init subscribes to keypresses.
func (x *Extension) Init(h editor.Host) error {
	sub, err := h.Subscribe(event.TopicKeypress, x.handleKeypress)
	if err != nil {
		return err
	}
	x.host, x.sub = h, sub
	return nil
}

// Destroy unsubscribes. It is safe to call more than once.
func (x *Extension) Destroy() {
	if x.sub != nil {
		x.host.Unsubscribe(x.sub)
		x.sub = nil
	}
}

func (x *Extension) handleKeypress(ev *editor.Event) {
	if ev.Key != editor.KeySpace {
		return
	}
	d := x.host.Document()
	block := x.selectedBlock()
	if block == dom.InvalidNode || d.Tag(block) == "li" {
		return
	}
	if !trigger.LeadingCue(d.TextContent(block), Cue) {
		return
	}

	if err := x.host.ExecAction(editor.ActionInsertUnorderedList); err != nil {
		if !errors.Is(err, editor.ErrUnknownAction) {
			x.log.Warn("list conversion failed", "error", err)
		}
		return
	}
	item := x.selectedBlock()
	if item == dom.InvalidNode {
		return
	}

	text := strings.TrimSpace(strings.TrimPrefix(d.TextContent(item), Cue))
	caret := dom.Caret(item, 0)
	if text == "" {
		d.RemoveChildren(item)
		_ = d.AppendChild(item, d.CreateElement("br"))
	} else {
		t, err := d.SetTextContent(item, text)
		if err != nil {
			x.log.Warn("strip list cue failed", "error", err)
			return
		}
		caret = dom.Caret(t, d.TextLen(t))
	}
	if err := x.host.SetSelection(caret); err != nil {
		x.log.Debug("caret not moved into list item", "error", err)
	}
	ev.PreventDefault()
	x.host.CheckContentChanged()
}

func (x *Extension) selectedBlock() dom.NodeID {
	rng, ok := x.host.Selection()
	if !ok {
		return dom.InvalidNode
	}
	d := x.host.Document()
	for _, r := range x.host.EditorElements() {
		if d.Contains(r, rng.Start.Node) {
			if b := d.ClosestBlock(rng.Start.Node, r); b != r {
				return b
			}
		}
	}
	return dom.InvalidNode
}
