package editor

// Listener receives decoded editor state and editor-originated interactions.
//
// Callbacks run on whatever goroutine the transport delivers on, in delivery
// order. A listener must not block on read-path accessors of the session that
// invokes it, since the transport may be waiting for the callback to return
// before it can deliver the result. Closing the session from a callback is
// allowed.
type Listener interface {
	// OnFormatsChanged carries a whole-selection format snapshot.
	OnFormatsChanged(state StyleState)
	// OnCursorChanged carries the style in effect at a caret position. Highlight
	// events over a range are reported here too, keyed by the range start.
	OnCursorChanged(index int, state StyleState)
	// OnStyleChanged carries one entry of a selection style delta.
	OnStyleChanged(style Style, enabled bool)
	// OnClickedLink reports a link tapped inside the surface.
	OnClickedLink(title, url string)
	// GotoLink reports a request to navigate to a link target.
	GotoLink(title, url string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are no-ops.
type ListenerFuncs struct {
	FormatsChanged func(state StyleState)
	CursorChanged  func(index int, state StyleState)
	StyleChanged   func(style Style, enabled bool)
	ClickedLink    func(title, url string)
	Goto           func(title, url string)
}

var _ Listener = ListenerFuncs{}

func (f ListenerFuncs) OnFormatsChanged(state StyleState) {
	if f.FormatsChanged != nil {
		f.FormatsChanged(state)
	}
}

func (f ListenerFuncs) OnCursorChanged(index int, state StyleState) {
	if f.CursorChanged != nil {
		f.CursorChanged(index, state)
	}
}

func (f ListenerFuncs) OnStyleChanged(style Style, enabled bool) {
	if f.StyleChanged != nil {
		f.StyleChanged(style, enabled)
	}
}

func (f ListenerFuncs) OnClickedLink(title, url string) {
	if f.ClickedLink != nil {
		f.ClickedLink(title, url)
	}
}

func (f ListenerFuncs) GotoLink(title, url string) {
	if f.Goto != nil {
		f.Goto(title, url)
	}
}
