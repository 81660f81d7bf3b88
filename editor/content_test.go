package editor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapParagraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty stays unwrapped", "", ""},
		{"single segment is wrapped", "A", "<p>A</p>"},
		{"single newline is not a boundary", "A\nB", "<p>A\nB</p>"},
		{"three segments in order", "A\n\nB\n\nC", "<p>A</p><p>B</p><p>C</p>"},
		{"trailing separator dropped", "A\n\n", "<p>A</p>"},
		{"leading separator kept", "\n\nA", "<p></p><p>A</p>"},
		{"only separators", "\n\n\n\n", "\n\n\n\n"},
		{"markup passes through", "<b>x</b>\n\ny", "<p><b>x</b></p><p>y</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapParagraphs(tt.input))
		})
	}
}

func TestWrapParagraphs_SegmentCount(t *testing.T) {
	for n := 1; n <= 6; n++ {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = strings.Repeat("x", i+1)
		}
		out := WrapParagraphs(strings.Join(parts, "\n\n"))
		assert.Equal(t, n, strings.Count(out, "<p>"))
		assert.Equal(t, n, strings.Count(out, "</p>"))
	}
}
