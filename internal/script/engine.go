// Package script runs host handlers written in Lua.
//
// A script may define two globals:
//
//	suggest(query, limit)   -> array of contacts (tables or plain names)
//	on_picker_click(kind)   -> media table, or nil to cancel
//
// The engine turns them into a directory.Source for the mention panel and
// a mediapicker.Delegate. Scripts run in a reduced standard library (base,
// table, string, math; no io, os, package or chunk loading) and every
// call is bounded by a timeout.
//
// gopher-lua states are not goroutine-safe; the engine serializes calls
// with a mutex.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/logging"
	"github.com/dshills/inkwell/internal/mediapicker"
)

// Handler names.
const (
	SuggestFunc     = "suggest"
	PickerClickFunc = "on_picker_click"
)

// ModuleName is the global table scripts use to reach the host.
const ModuleName = "inkwell"

// DefaultTimeout bounds a single handler call.
const DefaultTimeout = time.Second

// Engine holds one Lua state and the handlers it defines.
type Engine struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	log     *logging.Logger
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-call deadline. Zero or less disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger receives print output and handler failures.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = logging.OrNop(l) }
}

func newEngine(opts []Option) *Engine {
	e := &Engine{
		timeout: DefaultTimeout,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("script")

	e.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(e.L)
	lua.OpenTable(e.L)
	lua.OpenString(e.L)
	lua.OpenMath(e.L)
	e.sandbox()
	e.installModule()
	return e
}

// sandbox removes the base functions that load code from disk or strings.
func (e *Engine) sandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		e.L.SetGlobal(name, lua.LNil)
	}
	e.L.SetGlobal("print", e.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		e.log.Info(strings.Join(parts, "\t"))
		return 0
	}))
}

func (e *Engine) installModule() {
	mod := e.L.SetFuncs(e.L.NewTable(), map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			msg := L.CheckString(1)
			switch L.OptString(2, "info") {
			case "debug":
				e.log.Debug(msg)
			case "warn":
				e.log.Warn(msg)
			case "error":
				e.log.Error(msg)
			default:
				e.log.Info(msg)
			}
			return 0
		},
	})
	kinds := e.L.NewTable()
	for _, k := range mediapicker.DefaultButtons {
		kinds.Append(lua.LString(k))
	}
	e.L.SetField(mod, "media_kinds", kinds)
	e.L.SetGlobal(ModuleName, mod)
}

// LoadFile runs the script at path and returns an engine holding its
// handlers.
func LoadFile(path string, opts ...Option) (*Engine, error) {
	e := newEngine(opts)
	if err := e.run(func() error { return e.L.DoFile(path) }); err != nil {
		e.L.Close()
		return nil, fmt.Errorf("load script %s: %w", path, err)
	}
	return e, nil
}

// LoadString runs src, naming it name in errors.
func LoadString(name, src string, opts ...Option) (*Engine, error) {
	e := newEngine(opts)
	fn, err := e.L.Load(strings.NewReader(src), name)
	if err != nil {
		e.L.Close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}
	err = e.run(func() error {
		e.L.Push(fn)
		return e.L.PCall(0, lua.MultRet, nil)
	})
	if err != nil {
		e.L.Close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}
	return e, nil
}

// Has reports whether the script defines the global function name.
func (e *Engine) Has(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	return e.L.GetGlobal(name).Type() == lua.LTFunction
}

// Close releases the Lua state. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.L.Close()
	e.closed = true
	return nil
}

// call invokes the global function name and returns its first result.
func (e *Engine) call(ctx context.Context, name string, args ...lua.LValue) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return lua.LNil, ErrClosed
	}

	fn := e.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, fmt.Errorf("%s: %w", name, ErrNoHandler)
	}

	var ret lua.LValue = lua.LNil
	err := e.runContext(ctx, func() error {
		if err := e.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = e.L.Get(-1)
		e.L.Pop(1)
		return nil
	})
	if err != nil {
		return lua.LNil, fmt.Errorf("%s: %w", name, err)
	}
	return ret, nil
}

func (e *Engine) run(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runContext(context.Background(), fn)
}

// runContext runs fn under the engine deadline with panic recovery. The
// caller holds e.mu.
func (e *Engine) runContext(ctx context.Context, fn func() error) (err error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	err = fn()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
