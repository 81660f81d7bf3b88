package keymap

import "github.com/charmbracelet/bubbles/key"

// Base contains the keybindings every editorbridge TUI understands.
type Base struct {
	PageUp   key.Binding
	PageDown key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// NewBase returns the default base bindings.
func NewBase() Base {
	return Base{
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// Editor is the keymap of the demo host. Formatting keys are shortcuts for
// the matching prompt commands.
type Editor struct {
	Base

	Run          key.Binding
	Bold         key.Binding
	Italic       key.Binding
	Undo         key.Binding
	Redo         key.Binding
	ToggleFollow key.Binding
}

// NewEditor returns the default editor keymap.
func NewEditor() Editor {
	return Editor{
		Base: NewBase(),
		Run: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run command"),
		),
		Bold: key.NewBinding(
			key.WithKeys("alt+b"),
			key.WithHelp("alt+b", "bold"),
		),
		Italic: key.NewBinding(
			key.WithKeys("alt+i"),
			key.WithHelp("alt+i", "italic"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "redo"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "follow events"),
		),
	}
}

// Sections groups the bindings for the full help view.
func (k Editor) Sections() []Section {
	return []Section{
		NewSection(SectionFormatting, k.Bold, k.Italic, k.Undo, k.Redo),
		ViewSection(k.PageUp, k.PageDown, k.ToggleFollow),
		SystemSection(k.Run, k.Help, k.Quit),
	}
}

// ShortHelp implements help.KeyMap.
func (k Editor) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Bold, k.Italic, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap, one column per section.
func (k Editor) FullHelp() [][]key.Binding {
	var columns [][]key.Binding
	for _, s := range k.Sections() {
		if !s.IsEmpty() {
			columns = append(columns, s.FilterEnabled())
		}
	}
	return columns
}
