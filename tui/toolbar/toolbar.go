// Package toolbar keeps the host's view of the editor style state and
// renders it as a formatting toolbar.
package toolbar

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/tui/theme"
)

// Link is a link interaction reported by the surface.
type Link struct {
	Title string
	URL   string
	// Navigate is true for a navigation request, false for a tap.
	Navigate bool
}

// Snapshot is the tracked state at one point in time.
type Snapshot struct {
	State  editor.StyleState
	Cursor int
	// LastLink is the most recent link interaction, if any.
	LastLink *Link
}

// Tracker is an editor.Listener that folds partial style states into the
// state currently in effect. Format snapshots replace it, cursor states are
// merged into it and delta changes set a single style.
type Tracker struct {
	mu       sync.Mutex
	state    editor.StyleState
	cursor   int
	lastLink *Link

	// OnChange, when set, is called after every update, outside the lock.
	OnChange func(Snapshot)
}

var _ editor.Listener = (*Tracker)(nil)

// NewTracker returns a tracker with an empty state.
func NewTracker() *Tracker {
	return &Tracker{state: editor.StyleState{}}
}

// Snapshot returns a copy of the tracked state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := Snapshot{
		State:  editor.StyleState{}.Merge(t.state),
		Cursor: t.cursor,
	}
	if t.lastLink != nil {
		link := *t.lastLink
		s.LastLink = &link
	}
	return s
}

func (t *Tracker) update(fn func()) {
	t.mu.Lock()
	fn()
	snap := t.snapshotLocked()
	onChange := t.OnChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
}

func (t *Tracker) OnFormatsChanged(state editor.StyleState) {
	t.update(func() { t.state = editor.StyleState{}.Merge(state) })
}

func (t *Tracker) OnCursorChanged(index int, state editor.StyleState) {
	t.update(func() {
		t.cursor = index
		t.state = merge(t.state, state)
	})
}

func (t *Tracker) OnStyleChanged(style editor.Style, enabled bool) {
	t.update(func() {
		t.state = merge(t.state, editor.StyleState{style: {Enabled: enabled}})
	})
}

// merge overlays delta on state. A list kind switched on in delta switches
// the other kind off unless delta says otherwise.
func merge(state, delta editor.StyleState) editor.StyleState {
	out := state.Merge(delta)
	for _, pair := range [][2]editor.Style{
		{editor.OrderedList, editor.UnorderedList},
		{editor.UnorderedList, editor.OrderedList},
	} {
		on, _ := delta.Enabled(pair[0])
		if _, said := delta[pair[1]]; on && !said {
			out[pair[1]] = editor.Value{Enabled: false}
		}
	}
	return out
}

func (t *Tracker) OnClickedLink(title, url string) {
	t.update(func() { t.lastLink = &Link{Title: title, URL: url} })
}

func (t *Tracker) GotoLink(title, url string) {
	t.update(func() { t.lastLink = &Link{Title: title, URL: url, Navigate: true} })
}

// Label returns the toolbar label of a style.
func Label(style editor.Style) string {
	switch style {
	case editor.Bold:
		return "B"
	case editor.Italic:
		return "I"
	case editor.BlockQuote:
		return theme.IconQuote
	case editor.Header:
		return theme.IconHeader
	case editor.OrderedList:
		return theme.IconOrdered
	case editor.UnorderedList:
		return theme.IconUnordered
	case editor.Link:
		return theme.IconLink
	}
	return style.String()
}

// Active reports whether a style is in effect in state.
func Active(state editor.StyleState, style editor.Style) bool {
	if style == editor.Link {
		link, ok := state.Link()
		return ok && link.Present()
	}
	enabled, _ := state.Enabled(style)
	return enabled
}

// Render draws one button per style, highlighting the styles in effect, and
// the link target when there is one.
func Render(state editor.StyleState, th *theme.Theme) string {
	if th == nil {
		th = theme.DefaultTheme
	}

	buttons := make([]string, 0, len(editor.Styles())+1)
	for _, style := range editor.Styles() {
		label := Label(style)
		switch {
		case style == editor.Bold && Active(state, style):
			buttons = append(buttons, th.ToolbarActive.Bold(true).Render(label))
		case style == editor.Italic && Active(state, style):
			buttons = append(buttons, th.ToolbarActive.Italic(true).Render(label))
		case Active(state, style):
			buttons = append(buttons, th.ToolbarActive.Render(label))
		default:
			buttons = append(buttons, th.ToolbarInactive.Render(label))
		}
	}

	if link, ok := state.Link(); ok && link.Present() {
		buttons = append(buttons, th.Muted.Render(" "+link.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, buttons...)
}

// Describe renders the state as plain text, e.g. "BOLD LINK(http://x)".
func Describe(state editor.StyleState) string {
	var parts []string
	for _, style := range editor.Styles() {
		if !Active(state, style) {
			continue
		}
		if style == editor.Link {
			link, _ := state.Link()
			parts = append(parts, fmt.Sprintf("%s(%s)", style, link))
			continue
		}
		parts = append(parts, style.String())
	}
	if len(parts) == 0 {
		return "plain"
	}
	return strings.Join(parts, " ")
}
