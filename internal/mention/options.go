package mention

import (
	"time"

	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/logging"
)

// Name is the extension name.
const Name = "mention"

// Panel classes.
const (
	PanelClass       = "medium-editor-mention-panel"
	PanelActiveClass = "medium-editor-mention-panel-active"
)

// DefaultHideOnBlurDelay is how long the panel survives a blur.
const DefaultHideOnBlurDelay = 300 * time.Millisecond

// SelectFunc commits the in-progress mention with text, or abandons it
// when text is empty.
type SelectFunc func(text string, details Details)

// RenderFunc fills panel with suggestions for word. It is called every
// time the panel content must refresh.
type RenderFunc func(panel dom.NodeID, word string, selectFn SelectFunc)

// Options configures a Session.
type Options struct {
	// TagName is the marker element tag.
	TagName string

	// TriggerClassMap maps trigger characters to marker classes. It also
	// defines which characters are triggers.
	TriggerClassMap map[string]string
	// ActiveTriggerClassMap maps trigger characters to the class a marker
	// carries while composing.
	ActiveTriggerClassMap map[string]string
	// ExtraTriggerClassMap and ExtraActiveTriggerClassMap add one more class
	// per trigger.
	ExtraTriggerClassMap       map[string]string
	ExtraActiveTriggerClassMap map[string]string

	// ActiveTriggers are the triggers that open the panel.
	ActiveTriggers []string

	// ExtraPanelClass is added to the panel; ExtraActivePanelClass while
	// it is visible.
	ExtraPanelClass       string
	ExtraActivePanelClass string

	// HideOnBlurDelay is how long after a blur the mention is abandoned.
	// A negative value disables hiding on blur.
	HideOnBlurDelay time.Duration

	// Render fills the panel. A nil Render leaves the panel empty.
	Render RenderFunc
	// DestroyPanelContent runs before the panel is removed on Destroy.
	DestroyPanelContent func(panel dom.NodeID)

	Logger *logging.Logger
}

// DefaultOptions returns the stock configuration: "@" opens the panel,
// "#" and "@" are both recognized, markers are <strong> elements.
func DefaultOptions() Options {
	return Options{
		TagName: "strong",
		TriggerClassMap: map[string]string{
			"#": "medium-editor-mention-hash",
			"@": "medium-editor-mention-at",
		},
		ActiveTriggerClassMap: map[string]string{
			"#": "medium-editor-mention-hash-active",
			"@": "medium-editor-mention-at-active",
		},
		ActiveTriggers:  []string{"@"},
		HideOnBlurDelay: DefaultHideOnBlurDelay,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TagName == "" {
		o.TagName = def.TagName
	}
	if o.TriggerClassMap == nil {
		o.TriggerClassMap = def.TriggerClassMap
	}
	if o.ActiveTriggerClassMap == nil {
		o.ActiveTriggerClassMap = def.ActiveTriggerClassMap
	}
	if o.ActiveTriggers == nil {
		o.ActiveTriggers = def.ActiveTriggers
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Details carries the metadata written onto a committed marker.
type Details struct {
	Name           string
	FirstName      string
	LastName       string
	SlackUsername  string
	SlackUsernames []string
	UserID         string
	Email          string
	AvatarURL      string
}

// attrs returns the marker attributes for the non-empty fields.
func (d Details) attrs() [][2]string {
	slack := d.SlackUsername
	if slack == "" && len(d.SlackUsernames) > 0 {
		slack = d.SlackUsernames[0]
	}
	all := [][2]string{
		{"data-name", d.Name},
		{"data-first-name", d.FirstName},
		{"data-last-name", d.LastName},
		{"data-slack-username", slack},
		{"data-user-id", d.UserID},
		{"data-email", d.Email},
		{"data-avatar-url", d.AvatarURL},
	}
	out := all[:0]
	for _, kv := range all {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}
