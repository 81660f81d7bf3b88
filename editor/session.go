package editor

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grovetools/editorbridge/errors"
	"github.com/grovetools/editorbridge/internal/metrics"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// DefaultEvaluateTimeout bounds read-path accessors unless overridden.
const DefaultEvaluateTimeout = 5 * time.Second

// Session binds one transport to one listener for the lifetime of an editor surface.
//
// Commands are fire-and-forget. Read-path accessors block until the surface
// answers or the evaluate timeout elapses. Inbound events are decoded and
// forwarded to the listener in delivery order.
type Session struct {
	transport Transport
	listener  Listener
	encoder   *Encoder
	log       *logrus.Entry

	dialect Dialect
	escaper Escaper

	evaluateTimeout atomic.Int64
	ready           chan struct{}
	readyOnce       sync.Once
	closeOnce       sync.Once
	closed          atomic.Bool
	closeErr        error
}

// Option configures a Session.
type Option func(*Session)

// WithDialect selects the script dialect of the surface. Defaults to Quill.
func WithDialect(d Dialect) Option {
	return func(s *Session) { s.dialect = d }
}

// WithEscaper replaces the HTML escaper used for arguments and results.
func WithEscaper(e Escaper) Option {
	return func(s *Session) { s.escaper = e }
}

// WithEvaluateTimeout bounds every read-path round trip. Zero disables the bound.
func WithEvaluateTimeout(d time.Duration) Option {
	return func(s *Session) { s.evaluateTimeout.Store(int64(d)) }
}

// WithLogger replaces the session logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(s *Session) { s.log = entry }
}

// NewSession creates a session and binds it to the transport's inbound events.
// The listener may be nil, in which case inbound events are discarded.
func NewSession(transport Transport, listener Listener, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		listener:  listener,
		log:       log,
		dialect:   Quill,
		ready:     make(chan struct{}),
	}
	s.evaluateTimeout.Store(int64(DefaultEvaluateTimeout))
	for _, opt := range opts {
		opt(s)
	}
	s.encoder = NewEncoder(s.dialect, s.escaper)
	transport.Bind(s)
	return s
}

// Encoder returns the encoder used for outgoing commands.
func (s *Session) Encoder() *Encoder { return s.encoder }

// SetEvaluateTimeout changes the read-path bound for subsequent calls.
func (s *Session) SetEvaluateTimeout(d time.Duration) {
	s.evaluateTimeout.Store(int64(d))
}

// EvaluateTimeout returns the current read-path bound.
func (s *Session) EvaluateTimeout() time.Duration {
	return time.Duration(s.evaluateTimeout.Load())
}

// Close tears the session down and closes its transport.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.transport.Close()
		s.log.Debug("Editor session closed")
	})
	return s.closeErr
}

// --- commands ---

func (s *Session) SetTitle(title string) error {
	return s.execute("set_title", s.encoder.SetTitle(title))
}

func (s *Session) SetContent(html string) error {
	return s.execute("set_content", s.encoder.SetContent(html))
}

func (s *Session) InsertImage(title, url string) error {
	return s.execute("insert_image", s.encoder.InsertImage(title, url))
}

func (s *Session) InsertLink(title, url string) error {
	return s.execute("insert_link", s.encoder.InsertLink(title, url))
}

// UpdateLink retargets the selected link. The surface keeps the existing
// link text, so title is not sent.
func (s *Session) UpdateLink(title, url string) error {
	return s.execute("update_link", s.encoder.UpdateLink(url))
}

func (s *Session) ClearLink() error {
	return s.execute("clear_link", s.encoder.ClearLink())
}

func (s *Session) ToggleBold() error {
	return s.execute("toggle_bold", s.encoder.ToggleBold())
}

func (s *Session) ToggleItalic() error {
	return s.execute("toggle_italic", s.encoder.ToggleItalic())
}

func (s *Session) ToggleQuote() error {
	return s.execute("toggle_quote", s.encoder.ToggleQuote())
}

func (s *Session) ToggleHeading() error {
	return s.execute("toggle_heading", s.encoder.ToggleHeading())
}

func (s *Session) ToggleOrderedList() error {
	return s.execute("toggle_ordered_list", s.encoder.ToggleOrderedList())
}

func (s *Session) ToggleUnorderedList() error {
	return s.execute("toggle_unordered_list", s.encoder.ToggleUnorderedList())
}

func (s *Session) Undo() error {
	return s.execute("undo", s.encoder.Undo())
}

func (s *Session) Redo() error {
	return s.execute("redo", s.encoder.Redo())
}

func (s *Session) SetEditingEnabled(enabled bool) error {
	return s.execute("set_editing_enabled", s.encoder.SetEditingEnabled(enabled))
}

func (s *Session) execute(command, script string) error {
	if s.closed.Load() {
		return errors.SessionClosed()
	}
	err := s.transport.Execute(script)
	metrics.RecordCommand(command, err)
	if err != nil {
		s.log.WithError(err).WithField("command", command).Warn("Command not delivered to editor surface")
		return err
	}
	s.log.WithFields(logrus.Fields{"command": command, "script": script}).Debug("Command sent")
	return nil
}

// --- read path ---

// GetTitle returns the document title.
func (s *Session) GetTitle(ctx context.Context) (string, error) {
	result, err := s.evaluate(ctx, "get_title", s.encoder.GetTitle())
	if err != nil {
		return "", err
	}
	return s.encoder.Unescape(result), nil
}

// GetContent returns the document body with paragraph structure restored.
func (s *Session) GetContent(ctx context.Context) (string, error) {
	result, err := s.evaluate(ctx, "get_content", s.encoder.GetContent())
	if err != nil {
		return "", err
	}
	return WrapParagraphs(s.encoder.Unescape(result)), nil
}

// GetSelection returns the currently selected text.
func (s *Session) GetSelection(ctx context.Context) (string, error) {
	result, err := s.evaluate(ctx, "get_selection", s.encoder.GetSelection())
	if err != nil {
		return "", err
	}
	return s.encoder.Unescape(result), nil
}

// evaluate runs a read-path expression. Every failure is reported as
// NO_RESULT, or EVALUATE_TIMEOUT when the session's bound or the caller's
// deadline elapsed; the "bound" detail says which.
func (s *Session) evaluate(ctx context.Context, accessor, script string) (string, error) {
	if s.closed.Load() {
		return "", errors.NoResult(accessor, errors.SessionClosed())
	}

	timeout := s.EvaluateTimeout()
	evalCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.transport.Evaluate(evalCtx, script)
	metrics.ObserveEvaluate(accessor, time.Since(start), err)
	if err == nil {
		return result, nil
	}

	entry := s.log.WithError(err).WithField("accessor", accessor)
	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		// The caller's own deadline ran out first.
		deadline, _ := ctx.Deadline()
		budget := max(deadline.Sub(start), 0).Round(time.Millisecond)
		entry.Warn("Editor surface did not answer before the caller's deadline")
		return "", errors.EvaluateTimeout(accessor, budget, err).WithDetail("bound", "caller")
	case ctx.Err() != nil:
		entry.Debug("Read cancelled by the caller")
		return "", errors.NoResult(accessor, ctx.Err())
	case timeout > 0 && stderrors.Is(evalCtx.Err(), context.DeadlineExceeded):
		entry.Warn("Editor surface did not answer in time")
		return "", errors.EvaluateTimeout(accessor, timeout, err).WithDetail("bound", "session")
	}
	entry.Warn("Editor surface returned no result")
	if errors.Is(err, errors.ErrCodeNoResult) {
		return "", err
	}
	return "", errors.NoResult(accessor, err)
}

// WaitReady blocks until the surface reports it has loaded, either through
// an onDomLoaded event or by answering the dialect's ready probe.
func (s *Session) WaitReady(ctx context.Context) error {
	if s.isReady() {
		return nil
	}

	backoff := retry.WithCappedDuration(time.Second, retry.NewExponential(25*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if s.isReady() {
			return nil
		}
		if s.closed.Load() {
			return errors.SessionClosed()
		}
		answer, err := s.transport.Evaluate(ctx, s.encoder.ReadyProbe())
		if errors.Is(err, errors.ErrCodeTransportClosed) {
			return err
		}
		if err == nil && answer == "true" {
			s.markReady()
			return nil
		}
		if err == nil {
			err = errors.TransportUnavailable("editor", "surface not ready")
		}
		return retry.RetryableError(err)
	})
}

// Ready is closed once the surface has loaded.
func (s *Session) Ready() <-chan struct{} { return s.ready }

func (s *Session) isReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// --- inbound events (Handler) ---

var _ Handler = (*Session)(nil)

// accept counts an inbound event and reports whether it should reach the listener.
func (s *Session) accept(event string) bool {
	metrics.RecordEvent(event)
	return !s.closed.Load() && s.listener != nil
}

func (s *Session) OnFormatChanged(raw RawFormatEvent) {
	s.log.WithField("formats", raw).Debug("onFormatChanged")
	if !s.accept(EventFormatChanged) {
		return
	}
	s.listener.OnFormatsChanged(Decode(raw))
}

func (s *Session) OnCursorChanged(index int, raw RawFormatEvent) {
	s.log.WithFields(logrus.Fields{"index": index, "formats": raw}).Debug("onCursorChanged")
	if !s.accept(EventCursorChanged) {
		return
	}
	s.listener.OnCursorChanged(index, Decode(raw))
}

// OnHighlighted reports a range's aggregate style through the cursor callback.
func (s *Session) OnHighlighted(index, length int, raw RawFormatEvent) {
	s.log.WithFields(logrus.Fields{"index": index, "length": length, "formats": raw}).Debug("onHighlighted")
	if !s.accept(EventHighlighted) {
		return
	}
	s.listener.OnCursorChanged(index, Decode(raw))
}

func (s *Session) GotoLink(title, url string) {
	s.log.WithFields(logrus.Fields{"title": title, "url": url}).Debug("gotoLink")
	if !s.accept(EventGotoLink) {
		return
	}
	s.listener.GotoLink(title, url)
}

func (s *Session) OnLinkTapped(url, title string) {
	s.log.WithFields(logrus.Fields{"title": title, "url": url}).Info("onLinkTapped")
	if !s.accept(EventLinkTapped) {
		return
	}
	s.listener.OnClickedLink(title, url)
}

func (s *Session) OnSelectionStyleChanged(changeSet map[string]any) {
	s.log.WithField("changes", changeSet).Debug("onSelectionStyleChanged")
	if !s.accept(EventSelectionStyleChanged) {
		return
	}
	for _, change := range DecodeStyleChanges(changeSet) {
		s.listener.OnStyleChanged(change.Style, change.Enabled)
	}
}

func (s *Session) OnSelectionChanged(args map[string]any) {
	metrics.RecordEvent(EventSelectionChanged)
	s.log.WithField("data", args).Debug("onSelectionChanged")
}

func (s *Session) OnGetHTMLResponse(args map[string]any) {
	metrics.RecordEvent(EventGetHTMLResponse)
	s.log.WithField("data", args).Debug("onGetHtmlResponse")
}

func (s *Session) OnMediaTapped(mediaID, url string, meta map[string]any, uploadStatus string) {
	metrics.RecordEvent(EventMediaTapped)
	s.log.WithFields(logrus.Fields{
		"media_id":      mediaID,
		"url":           url,
		"meta":          meta,
		"upload_status": uploadStatus,
	}).Debug("onMediaTapped")
}

func (s *Session) OnDomLoaded() {
	metrics.RecordEvent(EventDomLoaded)
	s.log.Info("Editor surface loaded")
	s.markReady()
}
