package mediapicker

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
)

// Inserted media markup.
const (
	NoPreviewClass    = "carrot-no-preview"
	MediaTypeAttr     = "data-media-type"
	AttachmentClass   = "media-attachment"
	DividerClass      = "media-divider-line"
	RemoveButtonClass = "remove-attachment"

	// AttachmentIDPrefix starts the id of every attachment card.
	AttachmentIDPrefix = "remove-bt-"
)

// Embed sizes in pixels.
const (
	VideoWidth  = 560
	VideoHeight = 315
	ChartWidth  = 550
	ChartHeight = 430
)

// AddPhoto inserts an image at the saved selection and clears the waiting
// guard. An empty url inserts nothing.
func (s *Session) AddPhoto(url, thumbnailURL string, width, height int) {
	s.complete(url, func(d *dom.Document) dom.NodeID {
		img := d.CreateElement("img")
		_ = d.SetAttr(img, "src", url)
		_ = d.AddClass(img, NoPreviewClass)
		_ = d.SetAttr(img, MediaTypeAttr, "image")
		_ = d.SetAttr(img, "data-thumbnail", thumbnailURL)
		_ = d.SetAttr(img, "width", strconv.Itoa(width))
		_ = d.SetAttr(img, "height", strconv.Itoa(height))
		return img
	})
}

// AddVideo inserts a video embed. An empty url inserts nothing.
func (s *Session) AddVideo(url, videoType, id, thumbnailURL string) {
	s.complete(url, func(d *dom.Document) dom.NodeID {
		f := embed(d, "video", url, thumbnailURL, VideoWidth, VideoHeight)
		_ = d.SetAttr(f, "data-video-type", videoType)
		_ = d.SetAttr(f, "data-video-id", id)
		return f
	})
}

// AddChart inserts a chart embed. An empty url inserts nothing.
func (s *Session) AddChart(url, id, thumbnailURL string) {
	s.complete(url, func(d *dom.Document) dom.NodeID {
		f := embed(d, "chart", url, thumbnailURL, ChartWidth, ChartHeight)
		_ = d.SetAttr(f, "data-chart-id", id)
		return f
	})
}

// AddAttachment inserts an attachment card with a remove button. An empty
// url inserts nothing.
func (s *Session) AddAttachment(url string, a Attachment) {
	s.complete(url, func(d *dom.Document) dom.NodeID {
		return s.attachmentCard(url, a)
	})
}

// Cancel ends a host round trip without inserting anything. The saved
// selection is still restored.
func (s *Session) Cancel() {
	s.complete("", nil)
}

func embed(d *dom.Document, mediaType, url, thumbnailURL string, width, height int) dom.NodeID {
	f := d.CreateElement("iframe")
	_ = d.AddClass(f, NoPreviewClass)
	_ = d.SetAttr(f, MediaTypeAttr, mediaType)
	_ = d.SetAttr(f, "frameborder", "0")
	_ = d.SetAttr(f, "webkitallowfullscreen", "true")
	_ = d.SetAttr(f, "mozallowfullscreen", "true")
	_ = d.SetAttr(f, "allowfullscreen", "true")
	_ = d.SetAttr(f, "data-thumbnail", thumbnailURL)
	_ = d.SetAttr(f, "src", url)
	_ = d.SetAttr(f, "width", strconv.Itoa(width))
	_ = d.SetAttr(f, "height", strconv.Itoa(height))
	return f
}

func (s *Session) attachmentCard(url string, a Attachment) dom.NodeID {
	d := s.doc
	id := AttachmentIDPrefix + uuid.NewString()

	link := d.CreateElement("a")
	_ = d.AddClass(link, NoPreviewClass, AttachmentClass)
	_ = d.SetAttr(link, MediaTypeAttr, "attachment")
	_ = d.SetAttr(link, "contenteditable", "false")
	_ = d.SetAttr(link, "href", url)
	_ = d.SetAttr(link, "target", "_blank")
	_ = d.SetAttr(link, "id", id)
	_ = d.SetAttr(link, "data-name", a.FileName)
	_ = d.SetAttr(link, "data-mimetype", a.FileType)
	_ = d.SetAttr(link, "data-size", strconv.FormatInt(a.FileSize, 10))
	_ = d.SetAttr(link, "data-author", a.Author)
	_ = d.SetAttr(link, "data-createdat", a.CreatedAt)
	_ = d.SetAttr(link, "data-disable-preview", "true")

	icon := d.CreateElement("i")
	_ = d.SetAttr(icon, "contenteditable", "false")
	_ = d.AddClass(icon, "file-mimetype", "fa", a.Icon)
	_ = d.AppendChild(link, icon)

	for _, part := range [][2]string{
		{"media-attachment-title", a.Title},
		{"media-attachment-subtitle", a.Subtitle},
	} {
		label := d.CreateElement("label")
		_ = d.SetAttr(label, "contenteditable", "false")
		_ = d.AddClass(label, part[0])
		if part[1] != "" {
			_ = d.AppendChild(label, d.CreateText(part[1]))
		}
		_ = d.AppendChild(link, label)
	}

	remove := d.CreateElement("button")
	_ = d.AddClass(remove, "mlb-reset", RemoveButtonClass)
	_ = d.SetAttr(remove, "title", "Remove attachment")
	_ = d.SetAttr(remove, "data-remove-target", id)
	x := d.CreateElement("i")
	_ = d.AddClass(x, "fa", "fa-times")
	_ = d.AppendChild(remove, x)
	_ = d.AppendChild(link, remove)

	if s.removers == nil {
		s.removers = make(map[string]func())
	}
	s.removers[id] = s.host.OnClick(remove, func(ev *editor.Event) {
		ev.PreventDefault()
		ev.StopPropagation()
		if err := s.RemoveAttachment(id); err != nil {
			s.log.Debug("remove attachment failed", "id", id, "error", err)
		}
	})
	return link
}

// RemoveAttachment removes the attachment card with the given id together
// with the block holding it.
func (s *Session) RemoveAttachment(id string) error {
	if s.destroyed {
		return ErrDestroyed
	}
	d := s.doc
	var card dom.NodeID
	for _, r := range s.host.EditorElements() {
		found := d.FindAll(r, func(n dom.NodeID) bool {
			v, ok := d.Attr(n, "id")
			return ok && v == id
		})
		if len(found) > 0 {
			card = found[0]
			break
		}
	}
	if card == dom.InvalidNode {
		return fmt.Errorf("remove %q: %w", id, ErrAttachmentNotFound)
	}

	target := card
	if p := d.Parent(card); !s.isRoot(p) {
		target = p
	}
	parent, at := d.Parent(target), d.IndexOf(target)
	if err := d.Remove(target); err != nil {
		return fmt.Errorf("remove %q: %w", id, err)
	}
	if release, ok := s.removers[id]; ok {
		release()
		delete(s.removers, id)
	}

	// Keep a caret that lived inside the removed block usable.
	if rng, ok := s.host.Selection(); ok && !d.IsAttached(rng.Start.Node) {
		pt := d.NormalizePoint(dom.Point{Node: parent, Offset: min(at, d.ChildCount(parent))})
		if err := s.host.SetSelection(dom.CaretAt(pt)); err != nil {
			s.log.Debug("caret not moved after removal", "error", err)
		}
	}
	s.host.CheckContentChanged()
	return nil
}

func (s *Session) isRoot(id dom.NodeID) bool {
	for _, r := range s.host.EditorElements() {
		if r == id {
			return true
		}
	}
	return false
}

func (s *Session) insertDivider() {
	s.restoreSelection()
	d := s.doc
	hr := d.CreateElement("hr")
	_ = d.AddClass(hr, NoPreviewClass, DividerClass)
	if err := s.insert(hr); err != nil {
		s.log.Warn("insert divider failed", "error", err)
	}
	s.Refresh()
}

// complete finishes a host round trip: the saved selection is restored,
// the media built by build is inserted when url is set, and the waiting
// guard is cleared. A completion with no click waiting is ignored.
func (s *Session) complete(url string, build func(d *dom.Document) dom.NodeID) {
	if s.destroyed {
		return
	}
	if !s.waiting {
		s.log.Debug("completion without a pending click ignored", "url", url)
		return
	}
	s.restoreSelection()
	if url != "" {
		if err := s.insert(build(s.doc)); err != nil {
			s.log.Warn("insert media failed", "kind", string(s.pending), "error", err)
		}
	} else {
		s.log.Debug("host cancelled", "kind", string(s.pending))
	}
	s.waiting, s.pending = false, ""
	s.Refresh()
}

func (s *Session) restoreSelection() {
	snap := s.snapshot
	s.snapshot = nil
	if snap == nil {
		return
	}
	rng, err := s.memento.Restore(snap)
	if err != nil {
		s.log.Debug("saved selection lost", "error", err)
		return
	}
	if err := s.host.SetSelection(rng); err != nil {
		s.log.Debug("saved selection not applied", "error", err)
	}
}

// insert appends media to the block holding the caret and opens a fresh
// empty paragraph after that block for the caret.
func (s *Session) insert(media dom.NodeID) error {
	d := s.doc
	if s.host.FocusedElement() == dom.InvalidNode {
		roots := s.host.EditorElements()
		if len(roots) == 0 {
			return editor.ErrNoEditable
		}
		s.host.Focus(roots[0])
	}
	rng, ok := s.host.Selection()
	if !ok {
		return editor.ErrNoSelection
	}
	block := s.addableBlock(d.CommonAncestor(rng))
	if block == dom.InvalidNode {
		return editor.ErrNotEditable
	}

	target := block
	if d.Tag(block) == "p" {
		if d.ChildCount(block) == 1 && d.Tag(d.FirstChild(block)) == "br" {
			_ = d.Remove(d.FirstChild(block))
		}
	} else {
		target = d.CreateElement("p")
		if err := d.AppendChild(block, target); err != nil {
			return err
		}
	}
	if err := d.AppendChild(target, media); err != nil {
		return err
	}

	next := d.CreateElement("p")
	_ = d.AppendChild(next, d.CreateElement("br"))
	if err := d.InsertAfter(next, target); err != nil {
		return err
	}
	if err := s.host.SetSelection(dom.Caret(next, 0)); err != nil {
		return err
	}
	s.host.CheckContentChanged()
	return nil
}

// addableBlock walks up from n to the nearest paragraph, div or editable
// root.
func (s *Session) addableBlock(n dom.NodeID) dom.NodeID {
	d := s.doc
	for cur := n; cur != dom.InvalidNode; cur = d.Parent(cur) {
		if s.isRoot(cur) {
			return cur
		}
		if tag := d.Tag(cur); tag == "p" || tag == "div" {
			return cur
		}
	}
	return dom.InvalidNode
}
