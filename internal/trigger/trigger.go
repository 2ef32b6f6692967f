// Package trigger detects trigger words around the caret.
//
// A trigger word is the run of non-whitespace characters touching the
// caret whose first character appears in a configured class map, such as
// "@" for mentions or "#" for hashtags. Detection is a pure function of the
// document text and the current range.
package trigger

import (
	"unicode"

	"github.com/dshills/inkwell/internal/dom"
)

// Common trigger classes.
const (
	ClassMention = "mention"
	ClassHashtag = "hashtag"
)

// BoundaryClass marks the zero-width selection boundary elements inserted
// by selection snapshots.
const BoundaryClass = "rangySelectionBoundary"

// Word is the token around the caret.
type Word struct {
	// Trigger is the first character of the word, or "" for an empty word.
	Trigger string
	// Class is the semantic class mapped to Trigger, or "" when unmapped.
	Class string
	// Node is the text node the word was read from.
	Node dom.NodeID
	// Start and End are rune offsets of the word in Node.
	Start int
	End   int
	// Text is the word itself.
	Text string
}

// Len returns the rune length of the word.
func (w Word) Len() int {
	return w.End - w.Start
}

// IsTrigger reports whether the word starts with a mapped trigger.
func (w Word) IsTrigger() bool {
	return w.Class != ""
}

// Detector classifies words by their leading character.
type Detector struct {
	classes map[string]string
}

// NewDetector creates a detector for the given character -> class map.
func NewDetector(classes map[string]string) *Detector {
	m := make(map[string]string, len(classes))
	for k, v := range classes {
		m[k] = v
	}
	return &Detector{classes: m}
}

// DefaultDetector recognizes "@" mentions and "#" hashtags.
func DefaultDetector() *Detector {
	return NewDetector(map[string]string{
		"@": ClassMention,
		"#": ClassHashtag,
	})
}

// Classify returns the class for a trigger character, or "".
func (d *Detector) Classify(trigger string) string {
	return d.classes[trigger]
}

// WordAt returns the bounds of the non-whitespace run around caret in
// text. The walk starts from caret+bias; a bias of -1 excludes a space that
// was just typed in front of the caret. Offsets are clamped to the text.
func WordAt(text []rune, caret, bias int) (start, end int) {
	pos := caret + bias
	pos = max(0, min(pos, len(text)))

	start = pos
	for start > 0 && !unicode.IsSpace(text[start-1]) {
		start--
	}
	end = pos
	for end < len(text) && !unicode.IsSpace(text[end]) {
		end++
	}
	return start, end
}

// Detect computes the word around the caret of rng. It reports false when
// the range is not a caret inside a single text node; that is a "no trigger"
// outcome, not an error.
func (d *Detector) Detect(doc *dom.Document, rng dom.Range, bias int) (Word, bool) {
	if !rng.SameContainer() || !rng.Collapsed() {
		return Word{}, false
	}
	p := doc.NormalizePoint(rng.Start)
	if !doc.IsText(p.Node) {
		return Word{}, false
	}
	text := doc.Runes(p.Node)
	if p.Offset < 0 || p.Offset > len(text) {
		return Word{}, false
	}

	start, end := WordAt(text, p.Offset, bias)
	w := Word{
		Node:  p.Node,
		Start: start,
		End:   end,
		Text:  string(text[start:end]),
	}
	if end > start {
		w.Trigger = string(text[start])
		w.Class = d.Classify(w.Trigger)
	}
	return w, true
}

// IsEmptyBlock reports whether id can receive inserted media: it has no
// children, a single line break, or a line break plus a selection boundary
// marker in either order.
func IsEmptyBlock(doc *dom.Document, id dom.NodeID) bool {
	if !doc.IsElement(id) {
		return false
	}
	kids := doc.Children(id)
	isBR := func(n dom.NodeID) bool { return doc.Tag(n) == "br" }
	isBoundary := func(n dom.NodeID) bool { return doc.HasClass(n, BoundaryClass) }

	switch len(kids) {
	case 0:
		return true
	case 1:
		return isBR(kids[0])
	case 2:
		return (isBR(kids[0]) && isBoundary(kids[1])) ||
			(isBoundary(kids[0]) && isBR(kids[1]))
	default:
		return false
	}
}

// LeadingCue reports whether text begins with cue.
func LeadingCue(text, cue string) bool {
	if cue == "" || len(text) < len(cue) {
		return false
	}
	return text[:len(cue)] == cue
}
