package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/editorbridge/tui/theme"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	maxWidth = 60
	minWidth = 40
)

// environment lists the variables the root help documents.
var environment = [][2]string{
	{"EDITORBRIDGE_THEME", "Palette for help, logs and the demo (kanagawa, terminal)"},
	{"EDITORBRIDGE_ICONS", "Set to ascii to avoid Nerd Font glyphs"},
	{"EDITORBRIDGE_LOG_LEVEL", "Overrides logging.level from the config file"},
	{"EDITORBRIDGE_LOG_CALLER", "Set to true to report the calling function"},
	{"EDITORBRIDGE_DEBUG", "Set to 1 to mirror every log record to stderr"},
}

// terminalWidth measures w when it is a terminal, capped at maxWidth.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return maxWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < minWidth {
		return maxWidth
	}
	return min(width, maxWidth)
}

// wrapText wraps text to the specified width, preserving existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxWidth
	}

	var result []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}

		var line string
		for _, word := range strings.Fields(paragraph) {
			if line == "" {
				line = word
			} else if len(line)+1+len(word) <= width {
				line += " " + word
			} else {
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// SetStyledHelp applies the themed help layout to a command's help output.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
}

// ApplyStyledHelpRecursive applies styled help and usage to a command and all its subcommands.
// Call this after all subcommands have been added, before Execute().
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	cmd.SetUsageFunc(styledUsageFunc)
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// styledUsageFunc suppresses cobra's usage dump; ErrorHandler reports failures.
func styledUsageFunc(*cobra.Command) error {
	return nil
}

func styledHelpFunc(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	newHelpPage(out, theme.DefaultTheme, terminalWidth(out)).render(cmd)
}

// helpPage renders one command's help to a writer.
type helpPage struct {
	w     io.Writer
	t     *theme.Theme
	width int

	title   lipgloss.Style
	section lipgloss.Style
	name    lipgloss.Style
	sub     lipgloss.Style
	flag    lipgloss.Style
	italic  lipgloss.Style
}

func newHelpPage(w io.Writer, t *theme.Theme, width int) *helpPage {
	return &helpPage{
		w:       w,
		t:       t,
		width:   width - 2,
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Orange),
		section: lipgloss.NewStyle().Italic(true).Foreground(t.Colors.Orange),
		name:    lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Cyan),
		sub:     lipgloss.NewStyle().Foreground(t.Colors.Green),
		flag:    lipgloss.NewStyle().Foreground(t.Colors.Violet),
		italic:  lipgloss.NewStyle().Italic(true),
	}
}

func (p *helpPage) line(s string) {
	fmt.Fprintln(p.w, " "+s)
}

func (p *helpPage) heading(s string) {
	fmt.Fprintln(p.w)
	p.line(p.section.Render(s))
}

func (p *helpPage) wrapped(s string, style *lipgloss.Style) {
	for _, l := range strings.Split(wrapText(s, p.width), "\n") {
		if style != nil {
			l = style.Render(l)
		}
		p.line(l)
	}
}

func (p *helpPage) render(cmd *cobra.Command) {
	p.line(p.title.Render(strings.ToUpper(cmd.CommandPath())))

	description, examples := cmd.Short, ""
	if cmd.Long != "" {
		description, examples = parseDescription(cmd.Long)
	}
	if cmd.Short != "" {
		p.wrapped(cmd.Short, &p.italic)
	}
	if description != "" && description != cmd.Short {
		fmt.Fprintln(p.w)
		p.wrapped(description, nil)
	}

	p.usage(cmd)
	p.commands(cmd)
	p.flags(cmd)

	if cmd.Example != "" {
		examples = cmd.Example
	}
	if examples != "" {
		p.heading("EXAMPLES")
		p.examples(examples, cmd.Root().Name())
	}

	if !cmd.HasParent() {
		p.environment()
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(p.w, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

func (p *helpPage) usage(cmd *cobra.Command) {
	if !cmd.Runnable() && !cmd.HasSubCommands() {
		return
	}
	p.heading("USAGE")
	if cmd.Runnable() {
		p.line(cmd.UseLine())
	}
	if cmd.HasSubCommands() {
		p.line(cmd.CommandPath() + " [command]")
	}
}

func (p *helpPage) commands(cmd *cobra.Command) {
	var subs []*cobra.Command
	width := 0
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			subs = append(subs, sub)
			width = max(width, len(sub.Name()))
		}
	}
	if len(subs) == 0 {
		return
	}

	p.heading("COMMANDS")
	for _, sub := range subs {
		name := sub.Name() + strings.Repeat(" ", width-len(sub.Name()))
		p.line(fmt.Sprintf("%s  %s", p.name.Render(name), sub.Short))
	}
}

// flags lists local flags in full for leaf commands and inline for parents.
// The standard flags inherited from the root are summarised on one line.
func (p *helpPage) flags(cmd *cobra.Command) {
	local := visibleFlags(cmd.LocalNonPersistentFlags())
	if !cmd.HasParent() {
		local = visibleFlags(cmd.LocalFlags())
	}

	if len(local) > 0 {
		if cmd.HasAvailableSubCommands() {
			p.heading("FLAGS")
			p.line(p.t.Muted.Render(strings.Join(compactFlags(local), ", ")))
		} else {
			p.flagTable(local)
		}
	}

	if cmd.HasParent() {
		if inherited := visibleFlags(cmd.InheritedFlags()); len(inherited) > 0 {
			fmt.Fprintln(p.w)
			p.line(p.t.Muted.Render("Global flags: " + strings.Join(compactFlags(inherited), ", ")))
		}
	}
}

func (p *helpPage) flagTable(flags []*pflag.Flag) {
	p.heading("FLAGS")
	width := 0
	for _, f := range flags {
		width = max(width, len(formatFlagName(f)))
	}
	indent := strings.Repeat(" ", width+2)
	for _, f := range flags {
		name := formatFlagName(f)
		usage, choices := parseChoices(f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" && f.DefValue != "0s" {
			usage += p.t.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
		}
		p.line(fmt.Sprintf("%s%s  %s", p.flag.Render(name), strings.Repeat(" ", width-len(name)), usage))
		for _, choice := range choices {
			p.line(indent + p.t.Muted.Render("• "+choice))
		}
	}
}

// examples styles comment lines muted and highlights the command, subcommand
// and flags of every other line.
func (p *helpPage) examples(text, root string) {
	for _, l := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(l)
		switch {
		case trimmed == "":
			fmt.Fprintln(p.w)
		case strings.HasPrefix(trimmed, "#"):
			p.line(p.t.Muted.Render(trimmed))
		default:
			p.line("  " + p.exampleLine(trimmed, root))
		}
	}
}

func (p *helpPage) exampleLine(l, root string) string {
	parts := strings.Fields(l)
	for i, part := range parts {
		switch {
		case i == 0 && part == root:
			parts[i] = p.name.Render(part)
		case strings.HasPrefix(part, "-"):
			parts[i] = p.flag.Render(part)
		case i == 1 && parts[0] != part:
			parts[i] = p.sub.Render(part)
		}
	}
	return strings.Join(parts, " ")
}

func (p *helpPage) environment() {
	width := 0
	for _, env := range environment {
		width = max(width, len(env[0]))
	}
	p.heading("ENVIRONMENT")
	for _, env := range environment {
		p.line(fmt.Sprintf("%s%s  %s", p.flag.Render(env[0]), strings.Repeat(" ", width-len(env[0])), env[1]))
	}
}

func visibleFlags(set *pflag.FlagSet) []*pflag.Flag {
	var flags []*pflag.Flag
	set.VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
		}
	})
	return flags
}

func compactFlags(flags []*pflag.Flag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if f.Shorthand != "" {
			out = append(out, fmt.Sprintf("-%s/--%s", f.Shorthand, f.Name))
		} else {
			out = append(out, "--"+f.Name)
		}
	}
	return out
}

// formatFlagName returns a formatted flag string like "-f, --flag" or "--flag".
func formatFlagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}

// parseDescription splits a command's long description into main text and examples.
func parseDescription(long string) (description string, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return long, ""
}

// parseChoices extracts choices from a flag usage string, either a bulleted
// list on the lines after the description or an inline "kind: x, y, or z"
// list of at least three entries.
func parseChoices(usage string) (description string, choices []string) {
	if lines := strings.Split(usage, "\n"); len(lines) > 1 {
		var bullets []string
		for _, l := range lines[1:] {
			trimmed := strings.TrimSpace(l)
			if strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "- ") {
				bullets = append(bullets, strings.TrimSpace(trimmed[strings.Index(trimmed, " ")+1:]))
			}
		}
		if len(bullets) > 0 {
			return strings.TrimSpace(lines[0]), bullets
		}
	}

	colon := strings.Index(usage, ": ")
	if colon == -1 {
		return usage, nil
	}
	list, suffix := usage[colon+2:], ""
	if end := strings.Index(list, " ("); end != -1 {
		list, suffix = list[:end], list[end:]
	}
	parts := strings.Split(list, ", ")
	if len(parts) < 3 {
		return usage, nil
	}
	for i, part := range parts {
		parts[i] = strings.TrimSpace(strings.TrimPrefix(part, "or "))
	}
	return usage[:colon+1] + suffix, parts
}
