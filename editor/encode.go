package editor

import "strings"

// Encoder renders host editing intents as scripts for one dialect.
// Encoding is pure; executing the result is the transport's job.
type Encoder struct {
	dialect Dialect
	escaper Escaper
}

// NewEncoder returns an encoder for the dialect. A nil escaper selects HTMLEscaper.
func NewEncoder(dialect Dialect, escaper Escaper) *Encoder {
	if escaper == nil {
		escaper = HTMLEscaper{}
	}
	return &Encoder{dialect: dialect, escaper: escaper}
}

// Dialect returns the dialect the encoder writes.
func (e *Encoder) Dialect() Dialect { return e.dialect }

// text escapes a free-text argument and quotes it as a literal.
func (e *Encoder) text(s string) string {
	return e.dialect.Literal(e.escaper.Escape(s))
}

func (e *Encoder) call(fn string, args ...string) string {
	return e.dialect.statement(fn + "(" + strings.Join(args, ", ") + ")")
}

func (e *Encoder) SetTitle(title string) string {
	return e.call("setTitle", e.text(title))
}

func (e *Encoder) SetContent(html string) string {
	return e.call("quill.pasteHTML", e.text(html), e.dialect.Literal("silent"))
}

func (e *Encoder) InsertImage(title, url string) string {
	return e.call("insertImage", e.text(title), e.text(url))
}

func (e *Encoder) InsertLink(title, url string) string {
	return e.call("insertLink", e.text(title), e.text(url))
}

// UpdateLink retargets the link under the selection.
func (e *Encoder) UpdateLink(url string) string {
	return e.call("quill.format", e.dialect.Literal("link"), e.text(url))
}

// ClearLink removes the link format from the selection.
func (e *Encoder) ClearLink() string {
	return e.call("quill.format", e.dialect.Literal("link"), e.dialect.Null)
}

func (e *Encoder) ToggleBold() string          { return e.call("toggleBold") }
func (e *Encoder) ToggleItalic() string        { return e.call("toggleItalic") }
func (e *Encoder) ToggleQuote() string         { return e.call("toggleQuote") }
func (e *Encoder) ToggleHeading() string       { return e.call("toggleHeader") }
func (e *Encoder) ToggleOrderedList() string   { return e.call("toggleOrderedList") }
func (e *Encoder) ToggleUnorderedList() string { return e.call("toggleBulletList") }
func (e *Encoder) Undo() string                { return e.call("quill.history.undo") }
func (e *Encoder) Redo() string                { return e.call("quill.history.redo") }

// SetEditingEnabled switches the surface between editable and read-only.
func (e *Encoder) SetEditingEnabled(enabled bool) string {
	if enabled {
		return e.call("enable")
	}
	return e.call("disable")
}

// GetTitle, GetContent and GetSelection are read-path expressions; their
// evaluated result must be passed through Unescape.

func (e *Encoder) GetTitle() string     { return e.dialect.expression("getTitle()") }
func (e *Encoder) GetContent() string   { return e.dialect.expression("quill.root.innerHTML") }
func (e *Encoder) GetSelection() string { return e.dialect.expression("getSelection()") }

// ReadyProbe is an expression evaluating to "true" once the surface is ready.
func (e *Encoder) ReadyProbe() string { return e.dialect.expression(e.dialect.ReadyProbe) }

// Unescape reverses the argument escaping on a read-path result.
func (e *Encoder) Unescape(result string) string {
	return e.escaper.Unescape(result)
}
