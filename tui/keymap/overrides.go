package keymap

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/grovetools/editorbridge/config"
)

// Overrides maps snake_case binding names to replacement keys, as read from
// the tui.keybindings section of editorbridge.yml.
type Overrides map[string][]string

// LoadOverrides reads tui.keybindings from cfg. A missing section yields nil.
func LoadOverrides(cfg *config.Config) (Overrides, error) {
	if cfg == nil {
		return nil, nil
	}
	var section struct {
		Keybindings Overrides `yaml:"keybindings"`
	}
	if err := cfg.UnmarshalExtension("tui", &section); err != nil {
		return nil, err
	}
	return section.Keybindings, nil
}

// ApplyOverrides applies keybinding overrides to any KeyMap struct.
// It uses reflection to automatically map config keys (snake_case) to struct fields (CamelCase).
// Only fields of type key.Binding are processed. Embedded structs are recursively processed.
//
// Example:
//
//	km := NewEditor()
//	ApplyOverrides(&km, overrides) // overrides["toggle_follow"] -> km.ToggleFollow
func ApplyOverrides(km interface{}, overrides Overrides) {
	if overrides == nil {
		return
	}

	v := reflect.ValueOf(km)
	if v.Kind() != reflect.Ptr {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}

	applyOverridesRecursive(v, overrides)
}

// applyOverridesRecursive applies overrides to struct fields, recursing into embedded structs.
func applyOverridesRecursive(v reflect.Value, overrides Overrides) {
	t := v.Type()
	bindingType := reflect.TypeOf(key.Binding{})

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if fieldType.Anonymous && field.Kind() == reflect.Struct {
			applyOverridesRecursive(field, overrides)
			continue
		}

		if fieldType.Type != bindingType {
			continue
		}

		configKey := camelToSnake(fieldType.Name)

		if keys, ok := overrides[configKey]; ok && len(keys) > 0 {
			// Keep the help description, show the first new key.
			currentBinding := field.Interface().(key.Binding)
			helpDesc := currentBinding.Help().Desc

			newBinding := key.NewBinding(
				key.WithKeys(keys...),
				key.WithHelp(keys[0], helpDesc),
			)
			field.Set(reflect.ValueOf(newBinding))
		}
	}
}

// camelToSnake converts a CamelCase string to snake_case.
// Examples: PageUp -> page_up, ToggleFollow -> toggle_follow
func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
