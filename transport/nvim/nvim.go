// Package nvim hosts the Lua editor surface inside a Neovim instance,
// either an embedded child process or a running instance reached by address.
package nvim

import (
	"context"
	"fmt"
	"sync"

	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/errors"
	"github.com/grovetools/editorbridge/internal/metrics"
	"github.com/grovetools/editorbridge/internal/queue"
	"github.com/grovetools/editorbridge/logging"
	"github.com/grovetools/editorbridge/transport/luasurface"
	"github.com/neovim/go-client/nvim"
	"github.com/sirupsen/logrus"
)

const transportName = "nvim"

// notification is the rpcnotify method the surface emits events on.
const notification = "editorbridge"

// prelude installs bridge.emit inside Neovim. Its single argument is the
// RPC channel of this client.
const prelude = `
local chan = ...
bridge = {
  emit = function(name, ...)
    local n = select('#', ...)
    local args = { ... }
    for i = 1, n do
      if args[i] == nil then
        args[i] = vim.NIL
      end
    end
    vim.rpcnotify(chan, '` + notification + `', name, args)
  end,
}
`

// Options configures the Neovim transport.
type Options struct {
	// Address of a running Neovim (socket path or host:port). Empty starts
	// an embedded child process.
	Address string
	// Args are appended to the child process arguments.
	Args []string
	// Script replaces the embedded surface model.
	Script    string
	QueueSize int
	Logger    *logrus.Entry
}

// Transport is an editor.Transport backed by a Neovim RPC connection.
type Transport struct {
	v     *nvim.Nvim
	queue *queue.Queue
	log   *logrus.Entry

	mu      sync.RWMutex
	handler editor.Handler

	closeOnce sync.Once
	closeErr  error
}

var _ editor.Transport = (*Transport)(nil)

// New connects to Neovim and loads the surface model into it.
func New(opts Options) (*Transport, error) {
	if opts.Script == "" {
		opts.Script = luasurface.Script
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("nvim")
	}

	v, err := connect(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransportUnavailable, "failed to start nvim").
			WithDetail("transport", transportName)
	}

	t := &Transport{v: v, log: opts.Logger}

	if err := v.RegisterHandler(notification, t.handleEvent); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to register %s handler: %w", notification, err)
	}
	if err := v.ExecLua(prelude, nil, v.ChannelID()); err != nil {
		v.Close()
		return nil, errors.Wrap(err, errors.ErrCodeScriptFailed, "failed to install event bridge")
	}
	if err := v.ExecLua(opts.Script, nil); err != nil {
		v.Close()
		return nil, errors.Wrap(err, errors.ErrCodeScriptFailed, "failed to load editor surface")
	}

	t.queue = queue.New(transportName, opts.QueueSize)
	t.log.WithField("channel", v.ChannelID()).Debug("Editor surface loaded into nvim")
	return t, nil
}

func connect(opts Options) (*nvim.Nvim, error) {
	if opts.Address != "" {
		return nvim.Dial(opts.Address)
	}
	args := append([]string{"--embed", "--headless", "--clean"}, opts.Args...)
	return nvim.NewChildProcess(nvim.ChildProcessArgs(args...))
}

// Execute queues a script for nvim_exec_lua. Script errors are logged.
func (t *Transport) Execute(script string) error {
	return t.queue.Submit(func() {
		if err := t.v.ExecLua(script, nil); err != nil {
			t.log.WithError(errors.ScriptFailed(script, err)).Warn("Editor command failed")
		}
	})
}

type answer struct {
	value string
	err   error
}

// Evaluate runs an expression chunk through nvim_exec_lua and returns its
// value as a string.
func (t *Transport) Evaluate(ctx context.Context, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ch := make(chan answer, 1)
	err := t.queue.Submit(func() {
		if ctx.Err() != nil {
			ch <- answer{err: ctx.Err()}
			return
		}
		var result interface{}
		if err := t.v.ExecLua(script, &result); err != nil {
			ch <- answer{err: errors.ScriptFailed(script, err)}
			return
		}
		value, err := resultString(script, result)
		ch <- answer{value: value, err: err}
	})
	if err != nil {
		return "", err
	}

	select {
	case a := <-ch:
		return a.value, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.queue.Done():
		return "", errors.TransportClosed(transportName)
	}
}

// resultString converts a decoded msgpack result into the string answer of
// an evaluation.
func resultString(script string, result interface{}) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool, int64, uint64, float64, int:
		return fmt.Sprint(v), nil
	case nil:
		return "", errors.New(errors.ErrCodeNoResult, "editor surface returned no value").
			WithDetail("script", script)
	}
	return "", errors.New(errors.ErrCodeNoResult, "editor surface returned a non-scalar value").
		WithDetail("script", script).
		WithDetail("type", fmt.Sprintf("%T", result))
}

// Bind installs the event handler and asks the surface to announce itself.
func (t *Transport) Bind(h editor.Handler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()

	err := t.queue.Submit(func() {
		if err := t.v.ExecLua("if type(ready) == 'function' then ready() end", nil); err != nil {
			t.log.WithError(err).Warn("Editor surface failed to announce readiness")
		}
	})
	if err != nil {
		t.log.WithError(err).Debug("Bind on a closed transport")
	}
}

// Close disconnects from Neovim, stopping an embedded child process.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.v.Close()
		t.queue.Close()
	})
	return t.closeErr
}

// handleEvent receives rpcnotify(chan, "editorbridge", name, args).
func (t *Transport) handleEvent(name string, args []interface{}) {
	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()

	if h == nil {
		metrics.RecordDroppedEvent(transportName, "unbound")
		t.log.WithField("event", name).Debug("Dropping event, no handler bound")
		return
	}
	if err := editor.Dispatch(h, name, args); err != nil {
		metrics.RecordDroppedEvent(transportName, string(errors.GetCode(err)))
		t.log.WithError(err).WithField("event", name).Warn("Dropping editor event")
	}
}
