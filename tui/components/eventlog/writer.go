package eventlog

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender is the part of *tea.Program a StreamWriter needs.
type Sender interface {
	Send(msg tea.Msg)
}

// StreamWriter implements io.Writer and sends complete lines as LineMsg to
// a program. Partial lines are buffered until their newline arrives.
type StreamWriter struct {
	sender Sender
	source string
	buffer strings.Builder
	mu     sync.Mutex
}

// NewStreamWriter creates a writer that tags lines with source.
func NewStreamWriter(sender Sender, source string) *StreamWriter {
	return &StreamWriter{sender: sender, source: source}
}

func (w *StreamWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer.Write(p)
	lines := strings.Split(w.buffer.String(), "\n")

	w.buffer.Reset()
	w.buffer.WriteString(lines[len(lines)-1])

	if w.sender == nil {
		return len(p), nil
	}
	for _, line := range lines[:len(lines)-1] {
		w.sender.Send(LineMsg{Source: w.source, Line: line})
	}
	return len(p), nil
}
