package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/directory"
	"github.com/dshills/inkwell/internal/editor"
	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/mediapicker"
	"github.com/dshills/inkwell/internal/mention"
	"github.com/dshills/inkwell/internal/script"
	"github.com/dshills/inkwell/internal/terminal"
)

const demoHTML = `<div contenteditable="true">` +
	`<p>Type @ and a name to mention someone.</p>` +
	`<p>Press Ctrl-P on an empty line to add media.</p>` +
	`<p><br/></p></div>`

func runDemo(args []string, _, stderr io.Writer) int {
	fs := newFlagSet("demo", stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	watch := fs.Bool("watch", false, "Reload the configuration file when it changes")
	scriptPath := fs.String("script", "", "Lua handlers (overrides script.path)")
	htmlPath := fs.String("html", "", "HTML document to edit")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *watch && *configPath == "" {
		fmt.Fprintln(stderr, "Error: -watch needs -config")
		return exitUsage
	}

	if err := demo(*configPath, *watch, *scriptPath, *htmlPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func demo(configPath string, watch bool, scriptPath, htmlPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.Nop()
	// The screen owns the standard streams; only file output is kept.
	if out := cfg.Logging.Output; out != "" && out != "stderr" && out != "stdout" {
		l, closer, err := cfg.Logging.OpenLogger()
		if err != nil {
			return err
		}
		defer closeQuietly(closer)
		log = l
	}

	var watcher *config.Watcher
	if watch {
		watcher, err = config.NewWatcher(configPath, config.WithWatcherLogger(log))
		if err != nil {
			return err
		}
		defer closeQuietly(watcher)
		cfg = watcher.Current()
	}

	html := demoHTML
	if htmlPath != "" {
		data, err := os.ReadFile(htmlPath)
		if err != nil {
			return err
		}
		html = string(data)
	}

	if scriptPath == "" {
		scriptPath = cfg.Script.Path
	}
	engine, err := loadScript(scriptPath, log)
	if err != nil {
		return err
	}
	if engine != nil {
		defer closeQuietly(engine)
	}

	var src directory.Source
	if engine != nil && engine.Has(script.SuggestFunc) {
		src = engine
	} else {
		store, err := directory.Open(context.Background(), cfg.Directory.Path, log)
		if err != nil {
			return err
		}
		defer closeQuietly(store)
		src = store
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create terminal: %w", err)
	}
	ed, err := editor.NewFromHTML(html,
		editor.WithClock(terminal.NewClock(screen)),
		editor.WithViewport(cfg.Viewport()),
		editor.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer ed.Close()

	panel := directory.NewPanel(ed, src, cfg.Directory.Limit, log)
	mopts := cfg.MentionOptions()
	mopts.Render = panel.Render
	mopts.DestroyPanelContent = panel.Clear
	mopts.Logger = log
	mp := mention.NewPlugin(mopts)
	if err := ed.Use(mp); err != nil {
		return err
	}

	popts, err := cfg.MediaPickerOptions()
	if err != nil {
		return err
	}
	popts.Delegate = sampleDelegate()
	if engine != nil && engine.Has(script.PickerClickFunc) {
		popts.Delegate = engine.PickerDelegate()
	}
	popts.Logger = log
	pp := mediapicker.NewPlugin(popts)
	if err := ed.Use(pp); err != nil {
		return err
	}

	app, err := terminal.New(terminal.Options{
		Screen:  screen,
		Editor:  ed,
		Mention: mp.Session(),
		Picker:  pp.Session(),
		Panel:   panel,
		Config:  cfg,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	if watcher != nil {
		unsubscribe := watcher.Subscribe(func(c *config.Config) {
			app.Post(func() { app.SetConfig(c) })
		})
		defer unsubscribe()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		if _, ok := <-signals; ok {
			app.Quit()
		}
	}()

	return app.Run()
}

// sampleDelegate answers picker clicks with fixed sample media, standing
// in for a host that would open a file or URL chooser.
func sampleDelegate() mediapicker.Delegate {
	return mediapicker.Delegate{
		OnPickerClick: func(s *mediapicker.Session, kind mediapicker.Kind) {
			switch kind {
			case mediapicker.KindPhoto:
				s.AddPhoto("https://picsum.photos/id/10/640/480", "https://picsum.photos/id/10/64/48", 640, 480)
			case mediapicker.KindVideo:
				s.AddVideo("https://www.youtube.com/embed/aqz-KE-bpKQ", "youtube", "aqz-KE-bpKQ", "")
			case mediapicker.KindChart:
				s.AddChart("https://charts.example.com/embed/42", "42", "")
			case mediapicker.KindAttachment:
				s.AddAttachment("https://files.example.com/notes.pdf", mediapicker.Attachment{
					FileName: "notes.pdf",
					FileType: "application/pdf",
					FileSize: 48213,
					Title:    "notes.pdf",
					Icon:     "fa-file-pdf-o",
				})
			case mediapicker.KindDivider:
			default:
				s.Cancel()
			}
		},
	}
}
