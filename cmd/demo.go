package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/editorbridge/cli"
	"github.com/grovetools/editorbridge/command"
	"github.com/grovetools/editorbridge/config"
	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/logging"
	"github.com/grovetools/editorbridge/tui/components/eventlog"
	"github.com/grovetools/editorbridge/tui/keymap"
	"github.com/grovetools/editorbridge/tui/theme"
	"github.com/grovetools/editorbridge/tui/toolbar"
	"github.com/spf13/cobra"
)

// NewDemoCmd creates the `demo` command
func NewDemoCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"demo",
		"Interactive host with a live formatting toolbar",
	)
	cmd.Long = `Opens a session and shows the style state under the cursor as a toolbar,
the events raised by the surface and the session logs.

Commands are typed at the prompt; "help" lists them. With a Lua surface the
extra commands type, select, tap and follow simulate user input.`

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		log := cli.GetLogger(cmd, "demo")

		cfg, _, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}

		var program atomic.Pointer[tea.Program]
		tracker := toolbar.NewTracker()
		tracker.OnChange = func(s toolbar.Snapshot) {
			if p := program.Load(); p != nil {
				p.Send(snapshotMsg(s))
			}
		}

		b, err := openBridge(cfg, tracker, log)
		if err != nil {
			return err
		}
		defer b.Close()

		registry := command.NewRegistry()
		if config.IsLuaDialect(cfg.Surface.Dialect) {
			if err := registerSurfaceCommands(registry, b.Transport, b.Session.Encoder().Dialect()); err != nil {
				return err
			}
		}

		if err := b.waitReady(cmd.Context(), cfg); err != nil {
			return err
		}

		keys := keymap.NewEditor()
		overrides, err := keymap.LoadOverrides(cfg)
		if err != nil {
			log.WithError(err).Warn("Ignoring invalid tui.keybindings")
		}
		keymap.ApplyOverrides(&keys, overrides)

		p := tea.NewProgram(newDemoModel(registry, b.Session, keys, tracker.Snapshot()), tea.WithAltScreen())
		program.Store(p)

		logging.SetGlobalOutput(eventlog.NewStreamWriter(p, ""))
		defer logging.SetGlobalOutput(os.Stderr)
		logCfg := demoLogConfig(cfg)
		if cli.GetOptions(cmd).Verbose {
			logCfg.Level = "debug"
		}
		logging.ApplyConfig(logCfg)

		_, err = p.Run()
		return err
	}

	return cmd
}

// demoLogConfig keeps the configured logging section but routes JSON
// records to the terminal sink so the event pane can render them.
func demoLogConfig(cfg *config.Config) logging.Config {
	var logCfg logging.Config
	_ = cfg.UnmarshalExtension("logging", &logCfg)
	logCfg.Format.Preset = "json"
	logCfg.Format.StructuredToStderr = "always"
	return logCfg
}

// registerSurfaceCommands adds commands that drive the host helpers of the
// Lua surface, simulating what a user would do inside the editor.
func registerSurfaceCommands(r *command.Registry, transport editor.Transport, d editor.Dialect) error {
	execute := func(script string) (string, error) {
		return "", transport.Execute(script)
	}
	specs := []command.Spec{
		{
			Name: "type", Usage: "type <text>", Summary: "Type text at the cursor",
			Args: 1, Rest: true,
			Run: func(_ context.Context, _ command.Editor, args []string) (string, error) {
				return execute(fmt.Sprintf("typeText(%s)", d.Literal(args[0])))
			},
		},
		{
			Name: "select", Usage: "select <index> <length>", Summary: "Move the selection",
			Args:       2,
			Validators: map[int]func(string) error{0: validateCount, 1: validateCount},
			Run: func(_ context.Context, _ command.Editor, args []string) (string, error) {
				return execute(fmt.Sprintf("setSelection(%s, %s)", args[0], args[1]))
			},
		},
		{
			Name: "tap", Usage: "tap", Summary: "Tap the link under the cursor",
			Run: func(context.Context, command.Editor, []string) (string, error) { return execute("tapLink()") },
		},
		{
			Name: "follow", Usage: "follow", Summary: "Follow the link under the cursor",
			Run: func(context.Context, command.Editor, []string) (string, error) { return execute("followLink()") },
		},
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func validateCount(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	if n < 0 {
		return fmt.Errorf("%d is negative", n)
	}
	return nil
}

type snapshotMsg toolbar.Snapshot

type resultMsg struct {
	line   string
	output string
	err    error
}

type demoModel struct {
	registry *command.Registry
	session  *editor.Session
	theme    *theme.Theme
	keys     keymap.Editor
	help     help.Model

	snapshot toolbar.Snapshot
	input    textinput.Model
	events   eventlog.Model
	width    int
	height   int
}

func newDemoModel(registry *command.Registry, session *editor.Session, keys keymap.Editor, snapshot toolbar.Snapshot) demoModel {
	input := textinput.New()
	input.Placeholder = "bold, title My notes, link Docs https://example.com, help"
	input.Prompt = "> "
	input.Focus()

	return demoModel{
		registry: registry,
		session:  session,
		theme:    theme.DefaultTheme,
		keys:     keys,
		help:     help.New(),
		snapshot: snapshot,
		input:    input,
		events:   eventlog.New(80, 20),
		width:    80,
		height:   24,
	}
}

func (m demoModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m demoModel) run(line string) tea.Cmd {
	return func() tea.Msg {
		if line == "help" {
			return resultMsg{line: line, output: m.registry.Help()}
		}
		out, err := m.registry.Run(context.Background(), m.session, line)
		return resultMsg{line: line, output: out, err: err}
	}
}

func (m demoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		m.help.Width = msg.Width
		m.events.SetSize(msg.Width-2, max(msg.Height-m.chromeHeight(), 1))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.events.SetSize(m.width-2, max(m.height-m.chromeHeight(), 1))
			return m, nil
		case key.Matches(msg, m.keys.Run):
			line := m.input.Value()
			m.input.Reset()
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			if line == "" {
				return m, nil
			}
			return m, m.run(line)
		case key.Matches(msg, m.keys.Bold):
			return m, m.run("bold")
		case key.Matches(msg, m.keys.Italic):
			return m, m.run("italic")
		case key.Matches(msg, m.keys.Undo):
			return m, m.run("undo")
		case key.Matches(msg, m.keys.Redo):
			return m, m.run("redo")
		case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(msg)
			return m, cmd
		case key.Matches(msg, m.keys.ToggleFollow):
			// The event pane toggles on ctrl+f, whatever the binding is.
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
			return m, cmd
		}

	case snapshotMsg:
		m.snapshot = toolbar.Snapshot(msg)
		m.events.Append("state", toolbar.Describe(m.snapshot.State))
		return m, nil

	case resultMsg:
		m.events.Append("command", msg.line)
		if msg.err != nil {
			m.events.Append("command", m.theme.Error.Render(msg.err.Error()))
		} else if msg.output != "" {
			m.events.Append("command", msg.output)
		}
		return m, nil

	case eventlog.LineMsg:
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m demoModel) View() string {
	header := m.theme.Header.Render("editorbridge")
	bar := toolbar.Render(m.snapshot.State, m.theme)
	status := m.theme.Muted.Render(fmt.Sprintf("cursor %d", m.snapshot.Cursor))
	if link := m.snapshot.LastLink; link != nil {
		verb := "tapped"
		if link.Navigate {
			verb = "goto"
		}
		status += m.theme.Muted.Render(fmt.Sprintf("  %s %s", verb, link.URL))
	}

	events := m.theme.Box.Width(m.width - 2).Render(m.events.View())
	helpView := m.help.View(m.keys)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, header, " ", bar, "  ", status),
		events,
		m.input.View(),
		helpView,
	)
}

// chromeHeight is the number of rows around the event pane.
func (m demoModel) chromeHeight() int {
	return 4 + lipgloss.Height(m.help.View(m.keys))
}
