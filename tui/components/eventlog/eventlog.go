package eventlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/editorbridge/tui/theme"
)

// DefaultMaxLines bounds the number of lines kept in memory.
const DefaultMaxLines = 1000

// LineMsg is sent when a new line is received.
type LineMsg struct {
	Source string
	Line   string
}

// Model is a scrolling panel of editor events and log lines.
type Model struct {
	viewport viewport.Model
	follow   bool
	ready    bool
	width    int
	height   int
	lines    []string
	maxLines int
}

// New creates an event log panel.
func New(width, height int) Model {
	vp := viewport.New(width, height)
	return Model{
		viewport: vp,
		follow:   true,
		width:    width,
		height:   height,
		maxLines: DefaultMaxLines,
	}
}

// Append adds a formatted line.
func (m *Model) Append(source, line string) {
	m.lines = append(m.lines, formatLine(source, line))
	if over := len(m.lines) - m.maxLines; over > 0 {
		m.lines = m.lines[over:]
	}
	m.setWrappedContent()
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// Lines returns the formatted lines currently held.
func (m Model) Lines() []string {
	return m.lines
}

// Clear removes every line.
func (m *Model) Clear() {
	m.lines = nil
	m.viewport.SetContent("")
}

// SetSize resizes the panel.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.ready = true
	m.setWrappedContent()
}

func (m *Model) setWrappedContent() {
	if !m.ready {
		return
	}

	// Leave a column for the scrollbar.
	wrapWidth := m.viewport.Width - 1
	if wrapWidth < 1 {
		wrapWidth = 1
	}
	wrapStyle := lipgloss.NewStyle().Width(wrapWidth)

	wrapped := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		wrapped = append(wrapped, wrapStyle.Render(line))
	}
	m.viewport.SetContent(strings.Join(wrapped, "\n"))
}

// IsFollowing returns whether new lines scroll the panel to the bottom.
func (m Model) IsFollowing() bool {
	return m.follow
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LineMsg:
		m.Append(msg.Source, msg.Line)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+f":
			m.follow = !m.follow
			if m.follow {
				m.viewport.GotoBottom()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the panel with a scrollbar on the right.
func (m Model) View() string {
	if !m.ready {
		return ""
	}

	lines := strings.Split(m.viewport.View(), "\n")
	bar := scrollbar(&m.viewport, len(lines))
	for i := range lines {
		lines[i] += bar[i]
	}
	return strings.Join(lines, "\n")
}

func scrollbar(vp *viewport.Model, height int) []string {
	bar := make([]string, height)
	muted := theme.DefaultTheme.Muted

	total := vp.TotalLineCount()
	if total <= vp.Height {
		for i := range bar {
			bar[i] = muted.Render(" ")
		}
		return bar
	}

	thumb := max(1, (height*vp.Height)/total)
	maxStart := height - thumb
	start := int(float64(maxStart)*vp.ScrollPercent() + 0.5)
	start = min(max(start, 0), maxStart)

	for i := range bar {
		if i >= start && i < start+thumb {
			bar[i] = muted.Render("█")
		} else {
			bar[i] = muted.Render("░")
		}
	}
	return bar
}

// formatLine renders JSON log records compactly and passes other text through.
func formatLine(source, line string) string {
	var record map[string]interface{}
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		if source == "" {
			return line
		}
		return fmt.Sprintf("[%s] %s", theme.DefaultTheme.Accent.Render(source), line)
	}

	msg, _ := record["msg"].(string)
	level, _ := record["level"].(string)
	ts, _ := record["time"].(string)
	if component, ok := record["component"].(string); ok && source == "" {
		source = component
	}

	var parts []string
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		parts = append(parts, parsed.Format("15:04:05"))
	}
	if source != "" {
		parts = append(parts, fmt.Sprintf("[%s]", theme.DefaultTheme.Accent.Render(source)))
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = theme.DefaultTheme.Error
	case "warning", "warn":
		levelStyle = theme.DefaultTheme.Warning
	default:
		levelStyle = theme.DefaultTheme.Info
	}
	if level != "" {
		parts = append(parts, levelStyle.Render(strings.ToUpper(level))+":")
	}
	parts = append(parts, msg)
	return strings.Join(parts, " ")
}
