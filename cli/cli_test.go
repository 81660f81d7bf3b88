package cli

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/grovetools/editorbridge/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config not found", errors.ConfigNotFound("/tmp/editorbridge.yml"), "Configuration not found at /tmp/editorbridge.yml"},
		{"no surface", errors.TransportUnavailable("websocket", "no page connected"), "No editor surface is attached to the websocket transport"},
		{"timeout", errors.EvaluateTimeout("getTitle", 2*time.Second, nil), "getTitle did not answer within 2s"},
		{"no result", errors.NoResult("getSelection", nil), "getSelection returned no result"},
		{"closed", errors.SessionClosed(), "The editor session has ended"},
		{"wrapped", fmt.Errorf("serve: %w", errors.TransportClosed("lua")), "The editor session has ended"},
		{"plain", fmt.Errorf("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := &ErrorHandler{Out: &out}
			assert.Equal(t, tt.err, h.Handle(tt.err))
			assert.Contains(t, out.String(), tt.want)
			assert.NotContains(t, out.String(), "Error details")
		})
	}
}

func TestErrorHandler_Verbose(t *testing.T) {
	var out bytes.Buffer
	h := &ErrorHandler{Verbose: true, Out: &out}
	_ = h.Handle(errors.ScriptFailed("toggleBold()", fmt.Errorf("attempt to call a nil value")))

	assert.Contains(t, out.String(), "attempt to call a nil value")
	assert.Contains(t, out.String(), `"code": "SCRIPT_FAILED"`)
	assert.Nil(t, h.Handle(nil))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short", wrapText("short", 20))
	assert.Equal(t, "one two\nthree", wrapText("one two three", 8))
	assert.Equal(t, "a\nb", wrapText("a\nb", 8))
}

func TestParseChoices(t *testing.T) {
	desc, choices := parseChoices("Transport kind: websocket, nvim, or lua (default lua)")
	assert.Equal(t, "Transport kind: (default lua)", desc)
	assert.Equal(t, []string{"websocket", "nvim", "lua"}, choices)

	desc, choices = parseChoices("Dialect:\n  • quill - JavaScript\n  • lua - Lua")
	assert.Equal(t, "Dialect:", desc)
	assert.Equal(t, []string{"quill - JavaScript", "lua - Lua"}, choices)

	desc, choices = parseChoices("Path to file")
	assert.Equal(t, "Path to file", desc)
	assert.Nil(t, choices)
}

func TestParseDescription(t *testing.T) {
	desc, examples := parseDescription("Does things.\n\nExamples:\n  editorbridge serve")
	assert.Equal(t, "Does things.", desc)
	assert.Equal(t, "editorbridge serve", examples)
}

func TestStandardCommandOptions(t *testing.T) {
	cmd := NewStandardCommand("probe", "Probe")
	cmd.RunE = func(*cobra.Command, []string) error { return nil }
	cmd.SetArgs([]string{"--verbose", "--json", "-c", "/tmp/x.yml"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, CommandOptions{ConfigFile: "/tmp/x.yml", Verbose: true, JSONOutput: true}, GetOptions(cmd))

	path, err := InitConfig("/explicit.yml")
	require.NoError(t, err)
	assert.Equal(t, "/explicit.yml", path)
}

func TestVersionCommand_JSON(t *testing.T) {
	root := NewStandardCommand("editorbridge", "root")
	root.AddCommand(NewVersionCommand("editorbridge"))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"version": "dev"`)
}

func TestStyledHelp(t *testing.T) {
	root := NewStandardCommand("editorbridge", "Drive editor surfaces")
	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the surface",
		Example: "# attach a page\neditorbridge serve --listen :8080",
		RunE:    func(*cobra.Command, []string) error { return nil },
	}
	serve.Flags().String("kind", "lua", "Transport kind: websocket, nvim, or lua")
	root.AddCommand(serve)
	ApplyStyledHelpRecursive(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "EDITORBRIDGE")
	assert.Contains(t, help, "COMMANDS")
	assert.Contains(t, help, "Serve the surface")
	assert.Contains(t, help, "-v/--verbose")
	assert.Contains(t, help, "ENVIRONMENT")
	assert.Contains(t, help, "EDITORBRIDGE_THEME")

	out.Reset()
	root.SetArgs([]string{"serve", "--help"})
	require.NoError(t, root.Execute())

	help = out.String()
	assert.Contains(t, help, "EDITORBRIDGE SERVE")
	assert.Contains(t, help, "--kind")
	assert.Contains(t, help, "• websocket")
	assert.Contains(t, help, "(default: lua)")
	assert.Contains(t, help, "Global flags: -c/--config, --json, -v/--verbose")
	assert.Contains(t, help, "# attach a page")
	assert.NotContains(t, help, "ENVIRONMENT")
}

func TestTerminalWidth_NotATerminal(t *testing.T) {
	assert.Equal(t, maxWidth, terminalWidth(&bytes.Buffer{}))
}
