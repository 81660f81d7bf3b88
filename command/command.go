// Package command parses host command lines such as `link "Docs" https://x`
// into validated editor intents and runs them against a session.
package command

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/google/shlex"
	"github.com/grovetools/editorbridge/errors"
)

// Editor is the part of an editor session a command line drives.
// *editor.Session satisfies it.
type Editor interface {
	SetTitle(title string) error
	SetContent(html string) error
	InsertImage(title, url string) error
	InsertLink(title, url string) error
	UpdateLink(title, url string) error
	ClearLink() error
	ToggleBold() error
	ToggleItalic() error
	ToggleQuote() error
	ToggleHeading() error
	ToggleOrderedList() error
	ToggleUnorderedList() error
	Undo() error
	Redo() error
	SetEditingEnabled(enabled bool) error

	GetTitle(ctx context.Context) (string, error)
	GetContent(ctx context.Context) (string, error)
	GetSelection(ctx context.Context) (string, error)
}

// RunFunc executes a command with validated arguments. The returned string
// is shown to the user; it is empty for commands without output.
type RunFunc func(ctx context.Context, e Editor, args []string) (string, error)

// Spec describes one command.
type Spec struct {
	Name    string
	Aliases []string
	Usage   string
	Summary string
	// Args is the number of arguments. When Rest is set the last argument
	// takes the remainder of the line.
	Args int
	Rest bool
	// Validators check individual arguments by position.
	Validators map[int]func(string) error
	Run        RunFunc
}

// Registry holds the commands a host accepts.
type Registry struct {
	specs   map[string]*Spec
	aliases map[string]string
}

// NewRegistry returns a registry with the standard editor commands.
func NewRegistry() *Registry {
	r := &Registry{
		specs:   make(map[string]*Spec),
		aliases: make(map[string]string),
	}
	for _, spec := range standardSpecs() {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a command. Names and aliases must be unique.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" || spec.Run == nil {
		return errors.New(errors.ErrCodeInvalidInput, "command needs a name and a run function")
	}
	for _, name := range append([]string{spec.Name}, spec.Aliases...) {
		if _, taken := r.resolve(name); taken {
			return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("command %q already registered", name))
		}
	}
	s := spec
	r.specs[spec.Name] = &s
	for _, alias := range spec.Aliases {
		r.aliases[alias] = spec.Name
	}
	return nil
}

func (r *Registry) resolve(name string) (*Spec, bool) {
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	spec, ok := r.specs[name]
	return spec, ok
}

// Lookup finds a command by name or alias.
func (r *Registry) Lookup(name string) (Spec, bool) {
	spec, ok := r.resolve(strings.ToLower(name))
	if !ok {
		return Spec{}, false
	}
	return *spec, true
}

// Specs returns every command sorted by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, *spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Help renders a usage table.
func (r *Registry) Help() string {
	var b strings.Builder
	for _, spec := range r.Specs() {
		fmt.Fprintf(&b, "  %-32s %s\n", spec.Usage, spec.Summary)
	}
	return b.String()
}

// Run parses a command line, validates it and runs it against e.
func (r *Registry) Run(ctx context.Context, e Editor, line string) (string, error) {
	name, args, err := r.Parse(line)
	if err != nil {
		return "", err
	}
	spec, _ := r.resolve(name)
	return spec.Run(ctx, e, args)
}

// Parse splits and validates a command line, returning the canonical
// command name and its arguments. The last argument of a Rest command is
// the remainder of the line as typed, unquoted only when it is a single
// quoted word.
func (r *Registry) Parse(line string) (string, []string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, errors.New(errors.ErrCodeInvalidInput, "empty command")
	}

	head, remainder, err := cut(line, 1)
	if err != nil {
		return "", nil, err
	}
	if len(head) == 0 {
		return "", nil, errors.New(errors.ErrCodeInvalidInput, "empty command")
	}
	spec, ok := r.resolve(strings.ToLower(head[0]))
	if !ok {
		return "", nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown command %q", head[0]))
	}

	args := []string{}
	if spec.Rest && spec.Args > 0 {
		fixed, rest, err := cut(remainder, spec.Args-1)
		if err != nil {
			return "", nil, err
		}
		args = append(args, fixed...)
		if rest != "" {
			args = append(args, restArgument(rest))
		}
	} else {
		words, err := Split(remainder)
		if err != nil {
			return "", nil, err
		}
		args = append(args, words...)
	}

	if len(args) != spec.Args {
		return "", nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("usage: %s", spec.Usage)).
			WithDetail("command", spec.Name)
	}

	for i, validate := range spec.Validators {
		if i < len(args) {
			if err := validate(args[i]); err != nil {
				return "", nil, errors.Wrap(err, errors.ErrCodeInvalidInput, fmt.Sprintf("%s: invalid argument", spec.Name)).
					WithDetail("argument", args[i])
			}
		}
	}
	return spec.Name, args, nil
}

// Split breaks a line into shell words. Single or double quotes group
// words; a backslash escapes the next character outside single quotes.
// A leading # is literal.
func Split(line string) ([]string, error) {
	words, _, err := splitN(line, -1)
	return words, err
}

// cut splits the first n words off s and returns the rest of s untouched
// apart from surrounding whitespace.
func cut(s string, n int) ([]string, string, error) {
	words, end, err := splitN(s, n)
	if err != nil {
		return nil, "", err
	}
	return words, strings.TrimSpace(s[end:]), nil
}

// splitN parses up to n words (all when n < 0) and returns the offset
// just past the last one.
func splitN(s string, n int) ([]string, int, error) {
	var words []string
	end := 0
	for n < 0 || len(words) < n {
		start := strings.IndexFunc(s[end:], func(r rune) bool { return !unicode.IsSpace(r) })
		if start < 0 {
			break
		}
		start += end
		end = wordEnd(s, start)

		word := s[start:end]
		if strings.HasPrefix(word, "#") {
			word = `\` + word
		}
		parsed, err := shlex.Split(word)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInvalidInput, "unterminated quote or escape").
				WithDetail("word", s[start:end])
		}
		words = append(words, parsed...)
	}
	return words, end, nil
}

// wordEnd returns the index of the first unquoted, unescaped space at or
// after i, or len(s).
func wordEnd(s string, i int) int {
	var quote rune
	escaped := false
	for j, r := range s[i:] {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case unicode.IsSpace(r):
			return i + j
		}
	}
	return len(s)
}

func restArgument(rest string) string {
	if rest[0] != '"' && rest[0] != '\'' {
		return rest
	}
	if wordEnd(rest, 0) != len(rest) {
		return rest
	}
	words, err := Split(rest)
	if err != nil || len(words) != 1 {
		return rest
	}
	return words[0]
}

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// validateURL accepts absolute http(s), mailto and tel targets and relative references.
func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return fmt.Errorf("url cannot contain whitespace")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "" && !allowedSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("url scheme %q is not allowed", u.Scheme)
	}
	return nil
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("argument cannot be empty")
	}
	return nil
}

func action(fn func(Editor) error) RunFunc {
	return func(_ context.Context, e Editor, _ []string) (string, error) {
		return "", fn(e)
	}
}

func read(fn func(Editor, context.Context) (string, error)) RunFunc {
	return func(ctx context.Context, e Editor, _ []string) (string, error) {
		return fn(e, ctx)
	}
}

func standardSpecs() []Spec {
	urlArg := func(i int) map[int]func(string) error {
		return map[int]func(string) error{i: validateURL}
	}

	return []Spec{
		{
			Name: "title", Usage: "title <text>", Summary: "Set the document title",
			Args: 1, Rest: true,
			Run: func(_ context.Context, e Editor, args []string) (string, error) {
				return "", e.SetTitle(args[0])
			},
		},
		{
			Name: "content", Usage: "content <html>", Summary: "Replace the document body",
			Args: 1, Rest: true,
			Run: func(_ context.Context, e Editor, args []string) (string, error) {
				return "", e.SetContent(args[0])
			},
		},
		{
			Name: "image", Usage: "image <title> <url>", Summary: "Insert an image at the cursor",
			Args: 2, Validators: urlArg(1),
			Run: func(_ context.Context, e Editor, args []string) (string, error) {
				return "", e.InsertImage(args[0], args[1])
			},
		},
		{
			Name: "link", Usage: "link <title> <url>", Summary: "Insert a link at the cursor",
			Args: 2, Validators: map[int]func(string) error{0: validateNotEmpty, 1: validateURL},
			Run: func(_ context.Context, e Editor, args []string) (string, error) {
				return "", e.InsertLink(args[0], args[1])
			},
		},
		{
			Name: "update-link", Usage: "update-link <url>", Summary: "Retarget the selected link",
			Args: 1, Validators: urlArg(0),
			Run: func(_ context.Context, e Editor, args []string) (string, error) {
				return "", e.UpdateLink("", args[0])
			},
		},
		{Name: "clear-link", Usage: "clear-link", Summary: "Remove the link from the selection", Run: action(Editor.ClearLink)},
		{Name: "bold", Aliases: []string{"b"}, Usage: "bold", Summary: "Toggle bold", Run: action(Editor.ToggleBold)},
		{Name: "italic", Aliases: []string{"i"}, Usage: "italic", Summary: "Toggle italic", Run: action(Editor.ToggleItalic)},
		{Name: "quote", Usage: "quote", Summary: "Toggle block quote", Run: action(Editor.ToggleQuote)},
		{Name: "heading", Aliases: []string{"h"}, Usage: "heading", Summary: "Toggle heading", Run: action(Editor.ToggleHeading)},
		{Name: "ordered", Aliases: []string{"ol"}, Usage: "ordered", Summary: "Toggle ordered list", Run: action(Editor.ToggleOrderedList)},
		{Name: "bullet", Aliases: []string{"ul"}, Usage: "bullet", Summary: "Toggle bullet list", Run: action(Editor.ToggleUnorderedList)},
		{Name: "undo", Aliases: []string{"u"}, Usage: "undo", Summary: "Undo the last change", Run: action(Editor.Undo)},
		{Name: "redo", Usage: "redo", Summary: "Redo the last undone change", Run: action(Editor.Redo)},
		{
			Name: "enable", Usage: "enable", Summary: "Make the document editable",
			Run: action(func(e Editor) error { return e.SetEditingEnabled(true) }),
		},
		{
			Name: "disable", Usage: "disable", Summary: "Make the document read-only",
			Run: action(func(e Editor) error { return e.SetEditingEnabled(false) }),
		},
		{Name: "get-title", Usage: "get-title", Summary: "Print the document title", Run: read(Editor.GetTitle)},
		{Name: "get-content", Usage: "get-content", Summary: "Print the document body as paragraphs", Run: read(Editor.GetContent)},
		{Name: "get-selection", Usage: "get-selection", Summary: "Print the selected text", Run: read(Editor.GetSelection)},
	}
}
