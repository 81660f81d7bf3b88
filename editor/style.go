package editor

import (
	"fmt"
	"sort"
	"strings"
)

// Style is one recognized formatting attribute of the editor surface.
type Style int

const (
	Bold Style = iota
	Italic
	BlockQuote
	Header
	OrderedList
	UnorderedList
	Link
)

var styleNames = [...]string{
	Bold:          "BOLD",
	Italic:        "ITALIC",
	BlockQuote:    "BLOCK_QUOTE",
	Header:        "HEADER",
	OrderedList:   "ORDERED_LIST",
	UnorderedList: "UNORDERED_LIST",
	Link:          "LINK",
}

// Styles returns every recognized style in declaration order.
func Styles() []Style {
	return []Style{Bold, Italic, BlockQuote, Header, OrderedList, UnorderedList, Link}
}

func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styleNames[s]
}

// IsBoolean reports whether the style's value domain is a plain on/off flag.
func (s Style) IsBoolean() bool {
	return s >= Bold && s <= UnorderedList
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(styleNames) {
		return nil, fmt.Errorf("unknown style %d", int(s))
	}
	return []byte(styleNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(text []byte) error {
	parsed, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStyle resolves a canonical style name such as "BLOCK_QUOTE". Matching is case-insensitive.
func ParseStyle(name string) (Style, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range styleNames {
		if n == upper {
			return Style(i), nil
		}
	}
	return 0, fmt.Errorf("unknown style %q", name)
}

// LinkValue is the decoded value of the LINK style.
//
// The zero value means the editor reported no link at the location. A single
// link target keeps Multiple false; a mixed selection spanning several links
// is reported as a sequence and keeps Multiple true, even when it holds one
// element.
type LinkValue struct {
	URLs     []string
	Multiple bool
}

// Present reports whether the editor reported any link target.
func (l LinkValue) Present() bool {
	return l.URLs != nil
}

// URL returns the first link target, or "" when there is none.
func (l LinkValue) URL() string {
	if len(l.URLs) == 0 {
		return ""
	}
	return l.URLs[0]
}

func (l LinkValue) String() string {
	switch {
	case !l.Present():
		return "<none>"
	case l.Multiple:
		return "[" + strings.Join(l.URLs, ", ") + "]"
	default:
		return l.URL()
	}
}

// Value is the decoded value of a single style. Boolean styles use Enabled,
// LINK uses Link.
type Value struct {
	Enabled bool
	Link    LinkValue
}

// StyleState maps styles to their values at a cursor position or over a selection.
//
// A StyleState is partial: a style missing from the map means the event said
// nothing about it, which callers must treat as "unchanged", not as false.
type StyleState map[Style]Value

// Enabled returns the flag for a boolean style and whether the state carries it.
func (s StyleState) Enabled(style Style) (enabled, ok bool) {
	v, ok := s[style]
	return v.Enabled, ok
}

// Link returns the LINK entry and whether the state carries it.
func (s StyleState) Link() (LinkValue, bool) {
	v, ok := s[Link]
	return v.Link, ok
}

// Merge returns a new state holding s overlaid with every entry of delta.
func (s StyleState) Merge(delta StyleState) StyleState {
	out := make(StyleState, len(s)+len(delta))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}

// String renders the state deterministically, e.g. "BOLD=true LINK=http://x".
func (s StyleState) String() string {
	keys := make([]Style, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == Link {
			parts = append(parts, fmt.Sprintf("%s=%s", k, s[k].Link))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%t", k, s[k].Enabled))
	}
	return strings.Join(parts, " ")
}
