package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/errors"
	"github.com/stretchr/testify/require"
)

// WriteConfig writes an editorbridge.yml with the given content into a fresh
// temporary directory and returns the directory.
func WriteConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "editorbridge.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return dir
}

// RecordingTransport is an in-memory editor.Transport. It records executed
// scripts and answers evaluations from a fixed table.
type RecordingTransport struct {
	mu       sync.Mutex
	handler  editor.Handler
	executed []string
	results  map[string]string
	closed   bool

	// EvaluateFunc, when set, answers every evaluation instead of the table.
	EvaluateFunc func(ctx context.Context, script string) (string, error)
}

var _ editor.Transport = (*RecordingTransport)(nil)

// NewRecordingTransport creates an empty recording transport.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{results: make(map[string]string)}
}

// Answer makes Evaluate return result for script.
func (t *RecordingTransport) Answer(script, result string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[script] = result
}

func (t *RecordingTransport) Execute(script string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.TransportClosed("recording")
	}
	t.executed = append(t.executed, script)
	return nil
}

func (t *RecordingTransport) Evaluate(ctx context.Context, script string) (string, error) {
	t.mu.Lock()
	closed, fn := t.closed, t.EvaluateFunc
	result, ok := t.results[script]
	t.mu.Unlock()

	if closed {
		return "", errors.TransportClosed("recording")
	}
	if fn != nil {
		return fn(ctx, script)
	}
	if !ok {
		return "", errors.New(errors.ErrCodeNoResult, "no answer recorded").WithDetail("script", script)
	}
	return result, nil
}

func (t *RecordingTransport) Bind(h editor.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

func (t *RecordingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Executed returns a copy of every script executed so far.
func (t *RecordingTransport) Executed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.executed))
	copy(out, t.executed)
	return out
}

// Emit delivers an inbound event to the bound handler.
func (t *RecordingTransport) Emit(name string, args ...any) error {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	return editor.Dispatch(h, name, args)
}

// Call is one listener notification captured by RecordingListener.
type Call struct {
	Method  string
	Index   int
	State   editor.StyleState
	Style   editor.Style
	Enabled bool
	Title   string
	URL     string
}

// RecordingListener records every editor.Listener notification in order.
type RecordingListener struct {
	mu    sync.Mutex
	calls []Call
}

var _ editor.Listener = (*RecordingListener)(nil)

func (l *RecordingListener) record(c Call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

// Calls returns a copy of the recorded notifications.
func (l *RecordingListener) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Call, len(l.calls))
	copy(out, l.calls)
	return out
}

// CallsTo returns the recorded notifications of one method.
func (l *RecordingListener) CallsTo(method string) []Call {
	var out []Call
	for _, c := range l.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (l *RecordingListener) OnFormatsChanged(state editor.StyleState) {
	l.record(Call{Method: "OnFormatsChanged", State: state})
}

func (l *RecordingListener) OnCursorChanged(index int, state editor.StyleState) {
	l.record(Call{Method: "OnCursorChanged", Index: index, State: state})
}

func (l *RecordingListener) OnStyleChanged(style editor.Style, enabled bool) {
	l.record(Call{Method: "OnStyleChanged", Style: style, Enabled: enabled})
}

func (l *RecordingListener) OnClickedLink(title, url string) {
	l.record(Call{Method: "OnClickedLink", Title: title, URL: url})
}

func (l *RecordingListener) GotoLink(title, url string) {
	l.record(Call{Method: "GotoLink", Title: title, URL: url})
}
