package editor

import "context"

// Transport carries scripts to one editor surface and its events back.
type Transport interface {
	// Execute queues a script for execution and returns without waiting for
	// it to run. It fails only when the transport cannot accept work.
	Execute(script string) error
	// Evaluate runs an expression and waits for its string result. A surface
	// that answers with no value yields an error, never "".
	Evaluate(ctx context.Context, script string) (string, error)
	// Bind installs the receiver of inbound events. Events that arrive
	// before Bind are dropped.
	Bind(h Handler)
	// Close releases the surface connection. It is safe to call twice.
	Close() error
}

// Handler is the set of entry points a transport invokes for inbound events.
// Session implements it; transports usually feed it through Dispatch.
type Handler interface {
	OnFormatChanged(raw RawFormatEvent)
	OnCursorChanged(index int, raw RawFormatEvent)
	OnHighlighted(index, length int, raw RawFormatEvent)
	GotoLink(title, url string)
	OnLinkTapped(url, title string)
	OnSelectionStyleChanged(changeSet map[string]any)
	OnSelectionChanged(args map[string]any)
	OnGetHTMLResponse(args map[string]any)
	OnDomLoaded()
	OnMediaTapped(mediaID, url string, meta map[string]any, uploadStatus string)
}
