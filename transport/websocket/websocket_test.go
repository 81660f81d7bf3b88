package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/errors"
	"github.com/grovetools/editorbridge/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePage is a scripted stand-in for a browser page running the shim.
type fakePage struct {
	t       *testing.T
	conn    *websocket.Conn
	writeMu sync.Mutex
	// answers maps an evaluated script to its result; a nil value answers
	// null and a missing script answers with an error. A nil map never answers.
	answers map[string]*string
	scripts chan Envelope
	done    chan struct{}
}

func str(s string) *string { return &s }

func startServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	server := NewServer(Options{})
	mux := http.NewServeMux()
	mux.Handle("/editor", server)
	mux.Handle("/editorbridge.js", ShimHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = server.Close()
		ts.Close()
	})
	return server, ts
}

func connectPage(t *testing.T, ts *httptest.Server, answers map[string]*string) *fakePage {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/editor"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	p := &fakePage{
		t:       t,
		conn:    conn,
		answers: answers,
		scripts: make(chan Envelope, 64),
		done:    make(chan struct{}),
	}
	go p.run()
	t.Cleanup(p.close)
	return p
}

func (p *fakePage) run() {
	defer close(p.done)
	for {
		var env Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			return
		}
		p.scripts <- env
		if env.Type == TypeEvaluate && p.answers != nil {
			result, ok := p.answers[env.Script]
			reply := Envelope{Type: TypeResult, ID: env.ID, Result: result}
			if !ok {
				reply = Envelope{Type: TypeResult, ID: env.ID, Error: "ReferenceError: not defined"}
			}
			if err := p.write(reply); err != nil {
				return
			}
		}
	}
}

func (p *fakePage) write(env Envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(env)
}

func (p *fakePage) emit(event string, args ...any) {
	require.NoError(p.t, p.write(Envelope{Type: TypeEvent, Event: event, Args: args}))
}

func (p *fakePage) close() {
	p.conn.Close()
	<-p.done
}

func waitConnected(t *testing.T, server *Server) {
	t.Helper()
	require.Eventually(t, server.Connected, 2*time.Second, 5*time.Millisecond)
}

func TestServer_NoPage(t *testing.T) {
	server, _ := startServer(t)

	err := server.Execute("toggleBold();")
	assert.True(t, errors.Is(err, errors.ErrCodeTransportUnavailable))

	_, err = server.Evaluate(context.Background(), "getTitle();")
	assert.True(t, errors.Is(err, errors.ErrCodeTransportUnavailable))
}

func TestServer_SessionRoundTrip(t *testing.T) {
	server, ts := startServer(t)
	listener := &testutil.RecordingListener{}
	session := editor.NewSession(server, listener)

	page := connectPage(t, ts, map[string]*string{
		"getTitle();":                           str("Tom &amp; Jerry"),
		"quill.root.innerHTML;":                 str("One\n\nTwo"),
		"getSelection();":                       nil,
		"String(typeof quill !== 'undefined');": str("true"),
	})
	waitConnected(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, session.WaitReady(ctx))

	require.NoError(t, session.ToggleBold())
	require.NoError(t, session.SetTitle("it's"))

	title, err := session.GetTitle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", title)

	content, err := session.GetContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "<p>One</p><p>Two</p>", content)

	_, err = session.GetSelection(ctx)
	assert.True(t, errors.IsNoResult(err))

	var executed []string
	for len(page.scripts) > 0 {
		env := <-page.scripts
		if env.Type == TypeExecute {
			executed = append(executed, env.Script)
		}
	}
	assert.Equal(t, []string{"toggleBold();", "setTitle('it&#39;s');"}, executed)
}

func TestServer_EventsReachListenerInOrder(t *testing.T) {
	server, ts := startServer(t)
	listener := &testutil.RecordingListener{}
	editor.NewSession(server, listener)

	page := connectPage(t, ts, map[string]*string{"getTitle();": str("")})
	waitConnected(t, server)

	page.emit(editor.EventFormatChanged, map[string]any{"bold": true, "list": "bullet"})
	page.emit(editor.EventCursorChanged, 4, map[string]any{"italic": true})
	page.emit(editor.EventHighlighted, 2, 3, `{"link":"http://x"}`)
	page.emit(editor.EventSelectionStyleChanged, map[string]any{"italic": true, "bold": false})
	page.emit(editor.EventLinkTapped, "http://x", "X")
	page.emit(editor.EventGotoLink, "Y", "http://y")
	page.emit("noSuchEvent")
	page.emit(editor.EventCursorChanged, "not an index", map[string]any{})

	require.Eventually(t, func() bool { return len(listener.Calls()) == 7 }, 2*time.Second, 5*time.Millisecond)

	calls := listener.Calls()
	assert.Equal(t, "OnFormatsChanged", calls[0].Method)
	assert.Equal(t, editor.StyleState{
		editor.Bold:          {Enabled: true},
		editor.UnorderedList: {Enabled: true},
		editor.OrderedList:   {Enabled: false},
	}, calls[0].State)

	assert.Equal(t, "OnCursorChanged", calls[1].Method)
	assert.Equal(t, 4, calls[1].Index)

	assert.Equal(t, "OnCursorChanged", calls[2].Method)
	assert.Equal(t, 2, calls[2].Index)
	link, ok := calls[2].State.Link()
	require.True(t, ok)
	assert.Equal(t, "http://x", link.URL())

	assert.Equal(t, testutil.Call{Method: "OnStyleChanged", Style: editor.Bold, Enabled: false}, calls[3])
	assert.Equal(t, testutil.Call{Method: "OnStyleChanged", Style: editor.Italic, Enabled: true}, calls[4])
	assert.Equal(t, testutil.Call{Method: "OnClickedLink", Title: "X", URL: "http://x"}, calls[5])
	assert.Equal(t, testutil.Call{Method: "GotoLink", Title: "Y", URL: "http://y"}, calls[6])
}

func TestServer_SecondPageRefused(t *testing.T) {
	server, ts := startServer(t)
	connectPage(t, ts, nil)
	waitConnected(t, server)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/editor"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_PageDisconnectFailsPendingEvaluate(t *testing.T) {
	server, ts := startServer(t)
	page := connectPage(t, ts, nil)
	waitConnected(t, server)

	result := make(chan error, 1)
	go func() {
		_, err := server.Evaluate(context.Background(), "getTitle();")
		result <- err
	}()

	select {
	case <-page.scripts:
	case <-time.After(2 * time.Second):
		t.Fatal("evaluate request never reached the page")
	}
	page.close()

	select {
	case err := <-result:
		assert.True(t, errors.Is(err, errors.ErrCodeTransportUnavailable), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("evaluate did not return after disconnect")
	}

	require.Eventually(t, func() bool { return !server.Connected() }, 2*time.Second, 5*time.Millisecond)

	// A new page may attach once the old one is gone.
	connectPage(t, ts, nil)
	waitConnected(t, server)
}

func TestServer_EvaluateHonorsContext(t *testing.T) {
	server, ts := startServer(t)
	connectPage(t, ts, nil)
	waitConnected(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := server.Evaluate(ctx, "getTitle();")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServer_ScriptError(t *testing.T) {
	server, ts := startServer(t)
	connectPage(t, ts, map[string]*string{})
	waitConnected(t, server)

	_, err := server.Evaluate(context.Background(), "getTitle();")
	assert.True(t, errors.Is(err, errors.ErrCodeScriptFailed))
}

func TestServer_CloseRefusesWork(t *testing.T) {
	server, ts := startServer(t)
	connectPage(t, ts, nil)
	waitConnected(t, server)

	require.NoError(t, server.Close())
	require.NoError(t, server.Close())

	assert.True(t, errors.Is(server.Execute("toggleBold();"), errors.ErrCodeTransportClosed))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/editor"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestShimHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	ShimHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/editorbridge.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rec.Body.String(), "onDomLoaded")
}

func TestServer_ListenerClosesSession(t *testing.T) {
	server, ts := startServer(t)

	var session *editor.Session
	closed := make(chan error, 1)
	session = editor.NewSession(server, editor.ListenerFuncs{
		ClickedLink: func(string, string) { closed <- session.Close() },
	})

	page := connectPage(t, ts, nil)
	waitConnected(t, server)
	page.emit(editor.EventLinkTapped, "http://x", "Docs")

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Session.Close from a listener never returned")
	}
	assert.True(t, errors.Is(server.Execute("toggleBold();"), errors.ErrCodeTransportClosed))
}
