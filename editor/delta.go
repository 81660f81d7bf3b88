package editor

import (
	"sort"
)

// StyleChange is one entry of a selection style delta.
type StyleChange struct {
	Style   Style
	Enabled bool
}

// deltaStyles is the vocabulary of the selection style-change channel. It
// differs from the format payload vocabulary in Decode: the list kinds arrive
// as two independent keys, so there is no fan-out here.
var deltaStyles = map[string]Style{
	"bold":          Bold,
	"italic":        Italic,
	"orderedList":   OrderedList,
	"unorderedList": UnorderedList,
}

// DecodeStyleChanges turns a style change set into discrete changes, one per
// recognized key, ordered by key. Unknown keys are dropped and non-boolean
// values count as false.
func DecodeStyleChanges(changeSet map[string]any) []StyleChange {
	keys := make([]string, 0, len(changeSet))
	for k := range changeSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes := make([]StyleChange, 0, len(keys))
	for _, key := range keys {
		style, ok := deltaStyles[key]
		if !ok {
			log.WithField("key", key).Debug("Ignoring unrecognized style change key")
			continue
		}
		changes = append(changes, StyleChange{Style: style, Enabled: flag(key, changeSet[key])})
	}
	return changes
}
