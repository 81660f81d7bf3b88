package editor

import (
	"fmt"
	"strings"
)

// Dialect describes the script language spoken by an editor surface.
type Dialect struct {
	// Name is the configuration name of the dialect.
	Name string
	// Terminator ends every statement and expression.
	Terminator string
	// Null is the literal used to clear a format.
	Null string
	// ExprPrefix turns an expression into an evaluable chunk.
	ExprPrefix string
	// ReadyProbe evaluates to the string "true" once the surface accepts commands.
	ReadyProbe string

	quote func(string) string
}

// Quill is the JavaScript dialect of a browser-hosted Quill surface.
var Quill = Dialect{
	Name:       "quill",
	Terminator: ";",
	Null:       "null",
	ReadyProbe: "String(typeof quill !== 'undefined')",
	quote:      quoteJS,
}

// Lua is the dialect of the Lua surface, run either inside Neovim or in-process.
var Lua = Dialect{
	Name:       "lua",
	Null:       "nil",
	ExprPrefix: "return ",
	ReadyProbe: "tostring(quill ~= nil)",
	quote:      quoteLua,
}

// ParseDialect resolves a dialect by name. The empty name selects Quill.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Quill.Name, "js", "javascript":
		return Quill, nil
	case Lua.Name:
		return Lua, nil
	}
	return Dialect{}, fmt.Errorf("unknown script dialect %q", name)
}

// Literal renders s as a single-quoted string literal. The result never
// contains an unescaped quote, backslash, or line terminator, so s cannot
// close the literal early.
func (d Dialect) Literal(s string) string {
	if d.quote == nil {
		return quoteJS(s)
	}
	return d.quote(s)
}

func (d Dialect) statement(call string) string {
	return call + d.Terminator
}

func (d Dialect) expression(expr string) string {
	return d.ExprPrefix + expr + d.Terminator
}

func quoteJS(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '<':
			// keeps "</script>" inert when the script is inlined into a page
			b.WriteString(`\x3c`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func quoteLua(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
