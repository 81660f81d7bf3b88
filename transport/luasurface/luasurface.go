// Package luasurface runs an editor surface inside a sandboxed gopher-lua
// state in the host process. It speaks the Lua dialect and is used by the
// REPL, the demo host and end-to-end tests.
package luasurface

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/errors"
	"github.com/grovetools/editorbridge/internal/metrics"
	"github.com/grovetools/editorbridge/internal/queue"
	"github.com/grovetools/editorbridge/logging"
	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

const transportName = "lua"

// DefaultScriptTimeout bounds a single executed command.
const DefaultScriptTimeout = 5 * time.Second

// Script is the embedded editor surface model.
//
//go:embed surface.lua
var Script string

// Options configures a Surface.
type Options struct {
	// Script replaces the embedded surface model.
	Script string
	// ScriptTimeout bounds each executed command. Zero selects DefaultScriptTimeout.
	ScriptTimeout time.Duration
	// QueueSize is the number of commands that may wait for execution.
	QueueSize int
	Logger    *logrus.Entry
}

// Surface is an editor.Transport backed by an in-process Lua state. All
// scripts run on one worker goroutine in submission order; inbound events
// are dispatched synchronously on that goroutine.
type Surface struct {
	state         *lua.LState
	queue         *queue.Queue
	log           *logrus.Entry
	scriptTimeout time.Duration

	mu      sync.RWMutex
	handler editor.Handler

	closeOnce sync.Once
}

var _ editor.Transport = (*Surface)(nil)

// safeLibraries are the only libraries opened in the surface state.
var safeLibraries = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// unsafeBaseFunctions can reach the filesystem or compile arbitrary chunks.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load", "require", "module"}

// New creates a Lua state, loads the surface model into it and starts the
// worker. The surface announces itself with onDomLoaded once bound.
func New(opts Options) (*Surface, error) {
	if opts.Script == "" {
		opts.Script = Script
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = DefaultScriptTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("luasurface")
	}

	s := &Surface{
		log:           opts.Logger,
		scriptTimeout: opts.ScriptTimeout,
	}

	L, err := s.newState()
	if err != nil {
		return nil, err
	}
	if err := L.DoString(opts.Script); err != nil {
		L.Close()
		return nil, errors.Wrap(err, errors.ErrCodeScriptFailed, "failed to load editor surface")
	}
	s.state = L
	s.queue = queue.New(transportName, opts.QueueSize)
	return s, nil
}

func (s *Surface) newState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(s.print))
	bridge := L.NewTable()
	L.SetField(bridge, "emit", L.NewFunction(s.emit))
	L.SetGlobal("bridge", bridge)
	return L, nil
}

// Execute queues a script. Script errors are logged, not returned.
func (s *Surface) Execute(script string) error {
	return s.queue.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.scriptTimeout)
		defer cancel()

		s.state.SetContext(ctx)
		err := s.state.DoString(script)
		s.state.RemoveContext()
		if err != nil {
			s.log.WithError(errors.ScriptFailed(script, err)).Warn("Editor command failed")
		}
	})
}

type answer struct {
	value string
	err   error
}

// Evaluate runs an expression chunk such as "return getTitle()" and returns
// its value as a string. A nil or non-scalar value is NO_RESULT.
func (s *Surface) Evaluate(ctx context.Context, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ch := make(chan answer, 1)
	if err := s.queue.Submit(func() { ch <- s.evaluate(ctx, script) }); err != nil {
		return "", err
	}

	select {
	case a := <-ch:
		return a.value, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.queue.Done():
		return "", errors.TransportClosed(transportName)
	}
}

func (s *Surface) evaluate(ctx context.Context, script string) answer {
	if ctx.Err() != nil {
		return answer{err: ctx.Err()}
	}
	L := s.state

	fn, err := L.LoadString(script)
	if err != nil {
		return answer{err: errors.ScriptFailed(script, err)}
	}

	L.SetContext(ctx)
	defer L.RemoveContext()

	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return answer{err: errors.ScriptFailed(script, err)}
	}
	ret := L.Get(-1)
	L.Pop(1)

	switch v := ret.(type) {
	case lua.LString:
		return answer{value: string(v)}
	case lua.LNumber, lua.LBool:
		return answer{value: v.String()}
	}
	return answer{err: errors.New(errors.ErrCodeNoResult, "editor surface returned no value").
		WithDetail("script", script).
		WithDetail("type", ret.Type().String())}
}

// Bind installs the event handler and asks the surface to announce itself.
func (s *Surface) Bind(h editor.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()

	err := s.queue.Submit(func() {
		if fn, ok := s.state.GetGlobal("ready").(*lua.LFunction); ok {
			if err := s.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
				s.log.WithError(err).Warn("Editor surface failed to announce readiness")
			}
		}
	})
	if err != nil {
		s.log.WithError(err).Debug("Bind on a closed surface")
	}
}

// Close stops the worker; the Lua state is released on the worker once the
// job in flight returns. Listeners may call Close from an event callback.
func (s *Surface) Close() error {
	s.closeOnce.Do(func() {
		s.queue.Stop(s.state.Close)
	})
	return nil
}

func (s *Surface) boundHandler() editor.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

// emit is bridge.emit(name, ...): it forwards one event to the bound handler.
func (s *Surface) emit(L *lua.LState) int {
	name := L.CheckString(1)
	args := make([]any, 0, L.GetTop())
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, toGo(L.Get(i)))
	}

	h := s.boundHandler()
	if h == nil {
		metrics.RecordDroppedEvent(transportName, "unbound")
		s.log.WithField("event", name).Debug("Dropping event, no handler bound")
		return 0
	}
	if err := editor.Dispatch(h, name, args); err != nil {
		metrics.RecordDroppedEvent(transportName, string(errors.GetCode(err)))
		s.log.WithError(err).WithField("event", name).Warn("Dropping editor event")
	}
	return 0
}

func (s *Surface) print(L *lua.LState) int {
	parts := make([]any, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.log.Debug(parts...)
	return 0
}

// toGo converts a Lua value into the JSON-like shapes editor.Dispatch accepts.
func toGo(v lua.LValue) any {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v)
	}
	return v.String()
}

// tableToGo converts a table with keys 1..n into a slice and anything else
// into a map keyed by the string form of each key.
func tableToGo(t *lua.LTable) any {
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })

	if n := t.Len(); n > 0 && n == count {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, toGo(t.RawGetInt(i)))
		}
		return out
	}

	out := make(map[string]any, count)
	t.ForEach(func(k, val lua.LValue) {
		out[k.String()] = toGo(val)
	})
	return out
}
