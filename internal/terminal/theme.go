package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme holds the demo colors as hex strings ("#RRGGBB" or "#RGB").
type Theme struct {
	Foreground string
	Background string
	// Mention colors committed markers; Active the marker being composed.
	Mention string
	Active  string
	// Accent tints the suggestion panel, the picker and the status bar.
	Accent string
}

// DefaultTheme returns a dark theme.
func DefaultTheme() Theme {
	return Theme{
		Foreground: "#d8dee9",
		Background: "#1e222a",
		Mention:    "#88c0d0",
		Active:     "#ebcb8b",
		Accent:     "#5e81ac",
	}
}

type styles struct {
	text     tcell.Style
	mention  tcell.Style
	active   tcell.Style
	media    tcell.Style
	panel    tcell.Style
	selected tcell.Style
	picker   tcell.Style
	status   tcell.Style
}

func (t Theme) styles() (styles, error) {
	var c struct{ fg, bg, mention, active, accent colorful.Color }
	for _, f := range []struct {
		name string
		hex  string
		dst  *colorful.Color
	}{
		{"foreground", t.Foreground, &c.fg},
		{"background", t.Background, &c.bg},
		{"mention", t.Mention, &c.mention},
		{"active", t.Active, &c.active},
		{"accent", t.Accent, &c.accent},
	} {
		col, err := colorful.Hex(f.hex)
		if err != nil {
			return styles{}, fmt.Errorf("theme %s %q: %w", f.name, f.hex, err)
		}
		*f.dst = col
	}

	// Panels sit on a background tinted toward the accent; the selected
	// row uses the accent itself.
	panelBg := c.bg.BlendLab(c.accent, 0.25).Clamped()
	statusBg := c.bg.BlendLab(c.accent, 0.5).Clamped()
	muted := c.fg.BlendLab(c.bg, 0.4).Clamped()

	base := tcell.StyleDefault.Foreground(tc(c.fg)).Background(tc(c.bg))
	return styles{
		text:     base,
		mention:  base.Foreground(tc(c.mention)).Bold(true),
		active:   base.Foreground(tc(c.active)).Underline(true),
		media:    base.Foreground(tc(muted)).Italic(true),
		panel:    base.Background(tc(panelBg)),
		selected: base.Background(tc(c.accent)).Bold(true),
		picker:   base.Foreground(tc(c.accent)).Bold(true),
		status:   base.Background(tc(statusBg)),
	}, nil
}

func tc(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
