package editor

import "html"

// Escaper converts free text to and from the form the editor surface stores.
// It is applied to every free-text command argument and to every read-path
// result.
type Escaper interface {
	Escape(text string) string
	Unescape(text string) string
}

// HTMLEscaper escapes the five HTML-significant characters (< > & ' ") into
// entities and decodes any HTML entity on the way back.
type HTMLEscaper struct{}

func (HTMLEscaper) Escape(text string) string   { return html.EscapeString(text) }
func (HTMLEscaper) Unescape(text string) string { return html.UnescapeString(text) }
