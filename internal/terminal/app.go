// Package terminal is an interactive front end for the headless editor:
// it draws the document, the mention panel and the media picker with
// tcell and turns terminal input into editor operations.
package terminal

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/directory"
	"github.com/dshills/inkwell/internal/dom"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/mediapicker"
	"github.com/dshills/inkwell/internal/mention"
)

// ErrQuit is returned by HandleEvent when the user asked to leave.
var ErrQuit = errors.New("quit requested")

// Options wires an App.
type Options struct {
	Screen  tcell.Screen
	Editor  *editor.Editor
	Mention *mention.Session
	Picker  *mediapicker.Session
	// Panel, when set, lets the keyboard and mouse pick suggestions.
	Panel  *directory.Panel
	Config *config.Config
	Theme  Theme
	Logger *logging.Logger
}

// App owns the screen and the event loop.
type App struct {
	screen  tcell.Screen
	ed      *editor.Editor
	doc     *dom.Document
	mention *mention.Session
	picker  *mediapicker.Session
	panel   *directory.Panel
	cfg     *config.Config
	styles  styles
	log     *logging.Logger

	selected  int
	status    string
	pickerRow int
	// rows maps clickable screen rows to the node a click targets.
	rows map[int]dom.NodeID
}

// New builds an App. The screen is initialized by Run.
func New(opts Options) (*App, error) {
	if opts.Screen == nil || opts.Editor == nil || opts.Mention == nil || opts.Picker == nil {
		return nil, errors.New("terminal: screen, editor, mention and picker are required")
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = DefaultTheme()
	}
	st, err := opts.Theme.styles()
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &App{
		screen:    opts.Screen,
		ed:        opts.Editor,
		doc:       opts.Editor.Document(),
		mention:   opts.Mention,
		picker:    opts.Picker,
		panel:     opts.Panel,
		cfg:       cfg,
		styles:    st,
		log:       logging.OrNop(opts.Logger).WithComponent("terminal"),
		rows:      make(map[int]dom.NodeID),
		pickerRow: -1,
	}, nil
}

// Run initializes the screen and processes events until the user quits.
func (a *App) Run() error {
	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer a.screen.Fini()
	a.screen.EnableMouse()
	a.screen.EnablePaste()

	roots := a.ed.EditorElements()
	a.ed.Do(func() { a.ed.Focus(roots[0]) })
	a.Draw()
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if err := a.HandleEvent(ev); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
		a.Draw()
	}
}

// Post runs f on the event loop. It is safe to call from any goroutine.
func (a *App) Post(f func()) {
	if err := a.screen.PostEvent(tcell.NewEventInterrupt(f)); err != nil {
		a.log.Warn("event queue full, callback dropped", "error", err)
	}
}

type quitRequest struct{}

// Quit stops Run. It is safe to call from any goroutine.
func (a *App) Quit() {
	_ = a.screen.PostEvent(tcell.NewEventInterrupt(quitRequest{}))
}

// SetConfig applies a reloaded configuration to the running sessions.
func (a *App) SetConfig(cfg *config.Config) {
	opts := cfg.MentionOptions()
	var err error
	a.ed.Do(func() { err = a.mention.ApplyOptions(opts) })
	if err != nil {
		a.setStatus("config not applied: %v", err)
		return
	}
	a.cfg = cfg
	a.setStatus("config reloaded")
}

// Status returns the status bar message.
func (a *App) Status() string {
	return a.status
}

func (a *App) setStatus(format string, args ...any) {
	a.status = fmt.Sprintf(format, args...)
	a.log.Debug("status", "message", a.status)
}

// HandleEvent applies one terminal event to the editor.
func (a *App) HandleEvent(ev tcell.Event) error {
	switch e := ev.(type) {
	case *tcell.EventInterrupt:
		switch d := e.Data().(type) {
		case quitRequest:
			return ErrQuit
		case func():
			d()
		}
	case *tcell.EventResize:
		w, h := e.Size()
		vp := a.ed.Viewport()
		vp.Width, vp.Height = w, h
		a.ed.SetViewport(vp)
		a.screen.Sync()
	case *tcell.EventMouse:
		if e.Buttons()&tcell.Button1 != 0 {
			_, y := e.Position()
			if n, ok := a.rows[y]; ok {
				a.ed.Click(n)
			}
		}
	case *tcell.EventKey:
		return a.handleKey(e)
	}
	return nil
}

func (a *App) handleKey(e *tcell.EventKey) error {
	switch e.Key() {
	case tcell.KeyCtrlQ, tcell.KeyCtrlC:
		return ErrQuit
	case tcell.KeyCtrlP:
		a.togglePicker()
		return nil
	}

	if a.mention.PanelVisible() && a.panel != nil && a.handlePanelKey(e) {
		return nil
	}
	if a.picker.Expanded() && a.handlePickerKey(e) {
		return nil
	}

	if a.ed.FocusedElement() == dom.InvalidNode {
		if e.Key() == tcell.KeyEscape {
			return nil
		}
		roots := a.ed.EditorElements()
		a.ed.Do(func() { a.ed.Focus(roots[0]) })
	}

	var err error
	switch e.Key() {
	case tcell.KeyRune:
		err = a.ed.TypeText(string(e.Rune()))
	case tcell.KeyEnter:
		err = a.ed.PressKey(editor.KeyEnter)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		err = a.ed.PressKey(editor.KeyBackspace)
	case tcell.KeyLeft:
		err = a.ed.PressKey(editor.KeyLeft)
	case tcell.KeyRight:
		err = a.ed.PressKey(editor.KeyRight)
	case tcell.KeyEscape:
		a.ed.ClickOutside()
	}
	if err != nil {
		a.setStatus("%v", err)
	}
	return nil
}

// handlePanelKey navigates the suggestion list. It reports whether the key
// was consumed.
func (a *App) handlePanelKey(e *tcell.EventKey) bool {
	n := len(a.panel.Suggestions())
	switch e.Key() {
	case tcell.KeyUp:
		if n > 0 {
			a.selected = (a.selected + n - 1) % n
		}
	case tcell.KeyDown:
		if n > 0 {
			a.selected = (a.selected + 1) % n
		}
	case tcell.KeyEnter, tcell.KeyTab:
		if n == 0 {
			return false
		}
		var err error
		a.ed.Do(func() { err = a.panel.Choose(a.selected) })
		if err != nil {
			a.setStatus("%v", err)
		}
		a.selected = 0
	case tcell.KeyEscape:
		a.ed.Do(a.panel.Cancel)
		a.selected = 0
	default:
		return false
	}
	return true
}

// handlePickerKey maps digits to the expanded button row.
func (a *App) handlePickerKey(e *tcell.EventKey) bool {
	if e.Key() == tcell.KeyEscape {
		a.ed.Click(a.picker.MainButton())
		return true
	}
	if e.Key() != tcell.KeyRune {
		return false
	}
	i, err := strconv.Atoi(string(e.Rune()))
	buttons := a.cfg.MediaPicker.Buttons
	if err != nil || i < 1 || i > len(buttons) {
		return false
	}
	kind := mediapicker.Kind(buttons[i-1])
	if btn := a.picker.Button(kind); btn != dom.InvalidNode {
		a.ed.Click(btn)
		a.setStatus("%s requested", kind)
	}
	return true
}

func (a *App) togglePicker() {
	if !a.picker.Visible() || a.picker.MainButton() == dom.InvalidNode {
		a.setStatus("media picker opens on an empty paragraph")
		return
	}
	a.ed.Click(a.picker.MainButton())
}
