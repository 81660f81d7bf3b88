// Package websocket carries editor scripts to a browser-hosted surface over
// a WebSocket connection and its events back to the host.
package websocket

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/errors"
	"github.com/grovetools/editorbridge/internal/metrics"
	"github.com/grovetools/editorbridge/internal/queue"
	"github.com/grovetools/editorbridge/logging"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const transportName = "websocket"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Envelope types.
const (
	TypeExecute  = "execute"
	TypeEvaluate = "evaluate"
	TypeResult   = "result"
	TypeEvent    = "event"
)

// Shim is the page-side script that connects a page to a Server.
//
//go:embed bridge.js
var Shim []byte

// Envelope is one message on the wire in either direction.
type Envelope struct {
	Type string `json:"type"`
	// ID correlates an evaluate request with its result.
	ID     string `json:"id,omitempty"`
	Script string `json:"script,omitempty"`
	// Result is null when the expression produced no value.
	Result *string `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	Event  string  `json:"event,omitempty"`
	Args   []any   `json:"args,omitempty"`
}

// Options configures a Server.
type Options struct {
	// SendBuffer is the number of outbound messages queued per connection.
	SendBuffer int
	// CheckOrigin overrides the same-origin check of the upgrade.
	CheckOrigin func(r *http.Request) bool
	Logger      *logrus.Entry
}

// Server is an editor.Transport that accepts one page connection at a time.
// Mount it on the path the page shim dials.
type Server struct {
	upgrader   websocket.Upgrader
	sendBuffer int
	log        *logrus.Entry

	mu      sync.Mutex
	client  *client
	handler editor.Handler
	pending map[string]chan answer
	closed  bool

	// events delivers page events to the handler off the read pump, so a
	// listener may evaluate or close the session.
	events *queue.Queue

	done chan struct{}
	wg   sync.WaitGroup
}

var _ editor.Transport = (*Server)(nil)

type answer struct {
	value string
	err   error
}

// client is one page connection.
type client struct {
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

func (c *client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

// NewServer creates a transport with no page connected.
func NewServer(opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("websocket")
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
		sendBuffer: opts.SendBuffer,
		log:        opts.Logger,
		pending:    make(map[string]chan answer),
		events:     queue.New(transportName, 0),
		done:       make(chan struct{}),
	}
}

// ShimHandler serves the page shim.
func ShimHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		_, _ = w.Write(Shim)
	})
}

// Connected reports whether a page is attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

// ServeHTTP upgrades a page connection. A second page is refused while one
// is attached.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		http.Error(w, "editor transport closed", http.StatusServiceUnavailable)
		return
	case s.client != nil:
		s.mu.Unlock()
		http.Error(w, "an editor page is already connected", http.StatusConflict)
		return
	}
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, s.sendBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed || s.client != nil {
		s.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "busy"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.client = c
	s.wg.Add(2)
	s.mu.Unlock()

	s.log.WithField("remote", r.RemoteAddr).Info("Editor page connected")
	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) detach(c *client) {
	c.stop()
	s.mu.Lock()
	if s.client == c {
		s.client = nil
	}
	s.mu.Unlock()
}

// readPump routes results to waiting evaluations and queues events for the
// handler in arrival order.
func (s *Server) readPump(c *client) {
	defer func() {
		s.detach(c)
		c.conn.Close()
		s.wg.Done()
		s.log.Info("Editor page disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Warn("Editor page connection lost")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			metrics.RecordDroppedEvent(transportName, "unreadable")
			s.log.WithError(err).Debug("Dropping unreadable message")
			continue
		}

		switch env.Type {
		case TypeResult:
			s.resolve(env)
		case TypeEvent:
			if err := s.events.Submit(func() { s.dispatch(env) }); err != nil {
				return
			}
		default:
			metrics.RecordDroppedEvent(transportName, "unknown_type")
			s.log.WithField("type", env.Type).Debug("Dropping message of unknown type")
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		s.wg.Done()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.WithError(err).Debug("Write to editor page failed")
				s.detach(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.detach(c)
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) resolve(env Envelope) {
	s.mu.Lock()
	ch, ok := s.pending[env.ID]
	delete(s.pending, env.ID)
	s.mu.Unlock()

	if !ok {
		s.log.WithField("id", env.ID).Debug("Dropping result nobody waits for")
		return
	}

	switch {
	case env.Error != "":
		ch <- answer{err: errors.New(errors.ErrCodeScriptFailed, env.Error)}
	case env.Result == nil:
		ch <- answer{err: errors.New(errors.ErrCodeNoResult, "editor surface returned no value")}
	default:
		ch <- answer{value: *env.Result}
	}
}

func (s *Server) dispatch(env Envelope) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()

	if h == nil {
		metrics.RecordDroppedEvent(transportName, "unbound")
		s.log.WithField("event", env.Event).Debug("Dropping event, no handler bound")
		return
	}
	if err := editor.Dispatch(h, env.Event, env.Args); err != nil {
		metrics.RecordDroppedEvent(transportName, string(errors.GetCode(err)))
		s.log.WithError(err).WithField("event", env.Event).Warn("Dropping editor event")
	}
}

// current returns the attached page, or an error when there is none.
func (s *Server) current() (*client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.TransportClosed(transportName)
	}
	if s.client == nil {
		return nil, errors.TransportUnavailable(transportName, "no editor page connected")
	}
	return s.client, nil
}

func (s *Server) enqueue(c *client, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode message")
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errors.TransportUnavailable(transportName, "editor page disconnected")
	case <-s.done:
		return errors.TransportClosed(transportName)
	}
}

// Execute sends a script to the attached page.
func (s *Server) Execute(script string) error {
	c, err := s.current()
	if err != nil {
		return err
	}
	return s.enqueue(c, Envelope{Type: TypeExecute, Script: script})
}

// Evaluate sends an expression to the attached page and waits for its result.
func (s *Server) Evaluate(ctx context.Context, script string) (string, error) {
	c, err := s.current()
	if err != nil {
		return "", err
	}

	id := ulid.Make().String()
	ch := make(chan answer, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.enqueue(c, Envelope{Type: TypeEvaluate, ID: id, Script: script}); err != nil {
		return "", err
	}

	select {
	case a := <-ch:
		return a.value, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", errors.TransportUnavailable(transportName, "editor page disconnected")
	case <-s.done:
		return "", errors.TransportClosed(transportName)
	}
}

// Bind installs the event handler.
func (s *Server) Bind(h editor.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Close disconnects the page and refuses further connections.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	c := s.client
	s.mu.Unlock()

	if c != nil {
		c.stop()
	}
	s.events.Stop(nil)
	s.wg.Wait()
	return nil
}
