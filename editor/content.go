package editor

import "strings"

const paragraphSeparator = "\n\n"

// WrapParagraphs rebuilds paragraph structure lost by the editor's flat text
// extraction: content is split on blank lines and every segment is wrapped in
// <p>…</p>, a single segment included. Empty content is returned as is.
//
// Trailing empty segments are dropped, so "A\n\n" yields one paragraph. If
// nothing but separators remains, the input is returned unchanged.
func WrapParagraphs(content string) string {
	if content == "" {
		return content
	}
	segments := strings.Split(content, paragraphSeparator)
	for len(segments) > 0 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return content
	}

	var b strings.Builder
	for _, segment := range segments {
		b.WriteString("<p>")
		b.WriteString(segment)
		b.WriteString("</p>")
	}
	return b.String()
}
