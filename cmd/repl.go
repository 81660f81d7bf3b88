package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grovetools/editorbridge/cli"
	"github.com/grovetools/editorbridge/command"
	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/logging"
	"github.com/grovetools/editorbridge/tui/toolbar"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewReplCmd creates the `repl` command
func NewReplCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"repl",
		"Drive an editor surface from the command line",
	)
	cmd.Long = `Opens a session on the configured transport and reads commands from stdin.
Events raised by the surface are printed as they arrive.

Lines starting with "!" are executed as raw scripts, lines starting with "="
are evaluated and their result printed. Type "help" for the command list and
"quit" to leave.

Examples:
  # Start against the in-process Lua surface
  editorbridge repl

  # Pipe a script of commands
  printf 'title Notes\nbold\nget-title\n' | editorbridge repl`

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, _, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		logging.Configure(cfg)
		log := cli.GetLogger(cmd, "repl")

		events := cli.NewLogger(
			cli.WithOutput(cmd.OutOrStdout()),
			cli.WithFormatter(&logging.TextFormatter{Config: logging.FormatConfig{DisableTimestamp: true}}),
		)

		b, err := openBridge(cfg, eventPrinter(events.WithField("component", "event")), log)
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.waitReady(cmd.Context(), cfg); err != nil {
			return err
		}

		r := &repl{
			registry:  command.NewRegistry(),
			session:   b.Session,
			transport: b.Transport,
			out:       logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()),
		}
		return r.run(cmd.Context(), cmd.InOrStdin())
	}

	return cmd
}

// eventPrinter logs every listener callback to log.
func eventPrinter(log *logrus.Entry) editor.Listener {
	return editor.ListenerFuncs{
		FormatsChanged: func(state editor.StyleState) {
			log.WithField("style", toolbar.Describe(state)).Info("formats changed")
		},
		CursorChanged: func(index int, state editor.StyleState) {
			log.WithFields(logrus.Fields{"index": index, "style": toolbar.Describe(state)}).Info("cursor changed")
		},
		StyleChanged: func(style editor.Style, enabled bool) {
			log.WithFields(logrus.Fields{"style": style.String(), "enabled": enabled}).Info("style changed")
		},
		ClickedLink: func(title, url string) {
			log.WithFields(logrus.Fields{"title": title, "url": url}).Info("link tapped")
		},
		Goto: func(title, url string) {
			log.WithFields(logrus.Fields{"title": title, "url": url}).Info("goto link")
		},
	}
}

type repl struct {
	registry  *command.Registry
	session   *editor.Session
	transport editor.Transport
	out       *logging.PrettyLogger
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if !r.handle(ctx, scanner.Text()) {
			return nil
		}
	}
	return scanner.Err()
}

// handle runs one line and reports whether the loop should continue.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "" || strings.HasPrefix(line, "#"):
		return true
	case line == "quit" || line == "exit":
		return false
	case line == "help":
		r.out.Code(strings.TrimRight(r.registry.Help(), "\n"))
		r.out.Code(fmt.Sprintf("  %-32s %s\n  %-32s %s", "!<script>", "Execute a raw script", "=<expression>", "Evaluate a raw expression"))
		return true
	case strings.HasPrefix(line, "!"):
		if err := r.transport.Execute(strings.TrimSpace(line[1:])); err != nil {
			r.out.ErrorPretty("execute failed", err)
		}
		return true
	case strings.HasPrefix(line, "="):
		evalCtx, cancel := r.evaluateContext(ctx)
		defer cancel()
		d := r.session.Encoder().Dialect()
		result, err := r.transport.Evaluate(evalCtx, d.ExprPrefix+strings.TrimSpace(line[1:])+d.Terminator)
		if err != nil {
			r.out.ErrorPretty("evaluate failed", err)
			return true
		}
		r.out.Code(result)
		return true
	}

	result, err := r.registry.Run(ctx, r.session, line)
	if err != nil {
		r.out.ErrorPretty("command failed", err)
		return true
	}
	if result != "" {
		r.out.Code(result)
	}
	return true
}

func (r *repl) evaluateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := r.session.EvaluateTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
