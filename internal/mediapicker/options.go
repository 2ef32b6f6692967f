package mediapicker

import (
	"github.com/dshills/inkwell/internal/logging"
)

// Name is the extension name.
const Name = "media-picker"

// Kind identifies a media button.
type Kind string

// Media kinds, in their default button order.
const (
	KindEntry      Kind = "entry"
	KindPhoto      Kind = "photo"
	KindVideo      Kind = "video"
	KindChart      Kind = "chart"
	KindAttachment Kind = "attachment"
	KindDivider    Kind = "divider-line"
)

// DefaultButtons is the stock button row.
var DefaultButtons = []Kind{KindEntry, KindPhoto, KindVideo, KindChart, KindAttachment, KindDivider}

type buttonSpec struct {
	class string
	title string
}

var buttonSpecs = map[Kind]buttonSpec{
	KindEntry:      {"media-entry", "Add update"},
	KindPhoto:      {"media-photo", "Add picture"},
	KindVideo:      {"media-video", "Add video"},
	KindChart:      {"media-chart", "Add chart"},
	KindAttachment: {"media-attachment", "Add attachment"},
	KindDivider:    {"media-divider", "Add divider line"},
}

// Valid reports whether k is a known media kind.
func (k Kind) Valid() bool {
	_, ok := buttonSpecs[k]
	return ok
}

// ParseKind converts a button name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", &UnknownKindError{Kind: s}
	}
	return k, nil
}

// Lifecycle names a picker state transition reported to the delegate.
type Lifecycle string

// Lifecycle notifications.
const (
	WillExpand   Lifecycle = "willExpand"
	DidExpand    Lifecycle = "didExpand"
	WillCollapse Lifecycle = "willCollapse"
	DidCollapse  Lifecycle = "didCollapse"
	WillShow     Lifecycle = "willShow"
	DidShow      Lifecycle = "didShow"
	WillHide     Lifecycle = "willHide"
	DidHide      Lifecycle = "didHide"
)

// Delegate receives picker callbacks. Nil fields are skipped.
type Delegate struct {
	// OnPickerClick runs when a media button is clicked. For every kind but
	// the divider the host is expected to answer with the matching
	// completion call (AddPhoto, AddVideo, ...).
	OnPickerClick func(s *Session, kind Kind)

	// OnLifecycle reports expand, collapse, show and hide transitions.
	OnLifecycle func(s *Session, ev Lifecycle)
}

// Options configures a Session.
type Options struct {
	// Buttons is the ordered button row.
	Buttons []Kind

	// InlinePlusButton creates the floating "+" affordance next to empty
	// blocks. Without it the host drives the picker through SaveSelection,
	// ClickButton and the completion calls.
	InlinePlusButton bool

	// TopMargin is how many rows above the empty block the affordance sits.
	TopMargin int
	// MinTopOffset clamps the affordance's top offset.
	MinTopOffset int

	Delegate Delegate
	Logger   *logging.Logger
}

// Default geometry, in cells.
const (
	DefaultTopMargin    = 1
	DefaultMinTopOffset = 0
)

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Buttons:          append([]Kind(nil), DefaultButtons...),
		InlinePlusButton: true,
		TopMargin:        DefaultTopMargin,
		MinTopOffset:     DefaultMinTopOffset,
	}
}

func (o Options) validate() error {
	for _, k := range o.Buttons {
		if !k.Valid() {
			return &UnknownKindError{Kind: string(k)}
		}
	}
	return nil
}
