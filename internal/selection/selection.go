// Package selection captures a caret or selection so it can be restored
// after focus has left the editable surface.
//
// A snapshot is stored in the document itself as zero-width boundary
// marker elements, so it survives unrelated edits elsewhere in the tree.
// Restoring removes the markers, merges the text they split and yields the
// equivalent range. A Memento holds at most one live snapshot: saving a new
// one discards the previous one's markers.
package selection

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/trigger"
)

// Errors returned by memento operations.
var (
	// ErrNoSnapshot indicates Restore was called with a nil snapshot.
	ErrNoSnapshot = errors.New("no snapshot")

	// ErrSnapshotConsumed indicates the snapshot was already restored or discarded.
	ErrSnapshotConsumed = errors.New("snapshot already consumed")

	// ErrStaleSnapshot indicates a newer snapshot replaced this one, or its
	// markers were removed from the document.
	ErrStaleSnapshot = errors.New("snapshot is stale")
)

const boundaryIDAttr = "data-boundary-id"

// Snapshot is an opaque capture of a range.
type Snapshot struct {
	id        string
	start     dom.NodeID
	end       dom.NodeID
	collapsed bool
	consumed  bool
}

// ID returns the snapshot identifier.
func (s *Snapshot) ID() string {
	return s.id
}

// Collapsed reports whether the captured range was a caret.
func (s *Snapshot) Collapsed() bool {
	return s.collapsed
}

// Memento owns the single live snapshot for one document.
type Memento struct {
	doc  *dom.Document
	live *Snapshot
}

// NewMemento creates a memento for doc.
func NewMemento(doc *dom.Document) *Memento {
	return &Memento{doc: doc}
}

// Live returns the current snapshot, if any.
func (m *Memento) Live() *Snapshot {
	return m.live
}

// Save captures rng by inserting boundary markers. Any previous snapshot is
// discarded first.
func (m *Memento) Save(rng dom.Range) (*Snapshot, error) {
	if err := m.doc.CheckRange(rng); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}
	m.Discard()

	snap := &Snapshot{id: uuid.NewString(), collapsed: rng.Collapsed()}
	if snap.collapsed {
		start, err := m.insertMarker(rng.Start, snap.id, "start")
		if err != nil {
			return nil, err
		}
		snap.start, snap.end = start, start
	} else {
		// End first, so inserting it cannot shift the start offset.
		end, err := m.insertMarker(rng.End, snap.id, "end")
		if err != nil {
			return nil, err
		}
		start, err := m.insertMarker(rng.Start, snap.id, "start")
		if err != nil {
			m.removeMarker(end)
			return nil, err
		}
		snap.start, snap.end = start, end
	}
	m.live = snap
	return snap, nil
}

// Restore consumes snap and returns the captured range.
func (m *Memento) Restore(snap *Snapshot) (dom.Range, error) {
	if snap == nil {
		return dom.Range{}, ErrNoSnapshot
	}
	if snap.consumed {
		return dom.Range{}, ErrSnapshotConsumed
	}
	if snap != m.live || !m.doc.IsAttached(snap.start) || !m.doc.IsAttached(snap.end) {
		snap.consumed = true
		if snap == m.live {
			m.Discard()
		}
		return dom.Range{}, ErrStaleSnapshot
	}

	snap.consumed = true
	m.live = nil

	end := m.removeMarker(snap.end)
	if snap.collapsed {
		return dom.CaretAt(end), nil
	}
	start := m.removeMarker(snap.start, &end)
	return dom.Range{Start: start, End: end}, nil
}

// Discard drops the live snapshot and removes its markers.
func (m *Memento) Discard() {
	if m.live == nil {
		return
	}
	snap := m.live
	m.live = nil
	snap.consumed = true
	m.removeMarker(snap.end)
	if snap.start != snap.end {
		m.removeMarker(snap.start)
	}
}

func (m *Memento) insertMarker(p dom.Point, id, edge string) (dom.NodeID, error) {
	d := m.doc
	marker := d.CreateElement("span")
	_ = d.AddClass(marker, trigger.BoundaryClass)
	_ = d.SetAttr(marker, boundaryIDAttr, id+"-"+edge)
	_ = d.SetAttr(marker, "style", "line-height: 0; display: none;")

	if d.IsElement(p.Node) {
		if err := d.InsertAt(p.Node, marker, p.Offset); err != nil {
			return dom.InvalidNode, fmt.Errorf("insert boundary: %w", err)
		}
		return marker, nil
	}

	parent := d.Parent(p.Node)
	if parent == dom.InvalidNode {
		return dom.InvalidNode, fmt.Errorf("insert boundary: %w", dom.ErrDetached)
	}
	switch {
	case p.Offset == 0:
		if err := d.InsertBefore(parent, marker, p.Node); err != nil {
			return dom.InvalidNode, err
		}
	case p.Offset == d.TextLen(p.Node):
		if err := d.InsertAfter(marker, p.Node); err != nil {
			return dom.InvalidNode, err
		}
	default:
		rest, err := d.SplitText(p.Node, p.Offset)
		if err != nil {
			return dom.InvalidNode, err
		}
		if err := d.InsertBefore(parent, marker, rest); err != nil {
			return dom.InvalidNode, err
		}
	}
	return marker, nil
}

// removeMarker detaches a marker, merges the text around it and returns
// the position it occupied. Extra points in the same parent are kept valid.
func (m *Memento) removeMarker(marker dom.NodeID, keep ...*dom.Point) dom.Point {
	d := m.doc
	parent := d.Parent(marker)
	if parent == dom.InvalidNode {
		return dom.Point{}
	}
	at := dom.Point{Node: parent, Offset: d.IndexOf(marker)}
	for _, k := range keep {
		if k != nil && k.Node == parent && k.Offset > at.Offset {
			k.Offset--
		}
	}
	_ = d.Remove(marker)
	pts := append([]*dom.Point{&at}, keep...)
	_ = d.MergeAdjacentText(parent, pts...)
	return at
}
