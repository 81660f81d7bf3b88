package editor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/grovetools/editorbridge/logging"
	"github.com/sirupsen/logrus"
)

var log = logging.NewLogger("editor")

// RawFormatEvent is a format payload as emitted by the editor surface: raw
// attribute names mapped to loosely typed values. It is untrusted input.
type RawFormatEvent map[string]any

// Raw attribute names understood by Decode.
const (
	rawBold       = "bold"
	rawItalic     = "italic"
	rawBlockquote = "blockquote"
	rawHeader     = "header"
	rawList       = "list"
	rawLink       = "link"

	listBullet  = "bullet"
	listOrdered = "ordered"
)

// Decode normalizes a raw format payload into a StyleState.
//
// Decode is total: unknown keys are skipped and a recognized key whose value
// has an unexpected type resolves to that style's default. Only keys present
// in raw produce entries, except "list" which always yields both list flags.
func Decode(raw RawFormatEvent) StyleState {
	state := make(StyleState, len(raw))
	for key, value := range raw {
		switch key {
		case rawBold:
			state[Bold] = Value{Enabled: flag(key, value)}
		case rawItalic:
			state[Italic] = Value{Enabled: flag(key, value)}
		case rawBlockquote:
			state[BlockQuote] = Value{Enabled: flag(key, value)}
		case rawHeader:
			state[Header] = Value{Enabled: headerLevel(value) > 0}
		case rawList:
			ordered, bullet := listKind(value)
			state[OrderedList] = Value{Enabled: ordered}
			state[UnorderedList] = Value{Enabled: bullet}
		case rawLink:
			state[Link] = Value{Link: linkTargets(value)}
		default:
			log.WithField("key", key).Debug("Ignoring unrecognized format attribute")
		}
	}
	return state
}

// ParseRawFormatEvent parses a JSON object into a RawFormatEvent.
func ParseRawFormatEvent(data []byte) (RawFormatEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawFormatEvent{}, fmt.Errorf("parse format payload: %w", err)
	}
	if raw == nil {
		return RawFormatEvent{}, nil
	}
	return RawFormatEvent(raw), nil
}

func flag(key string, value any) bool {
	b, ok := value.(bool)
	if !ok && value != nil {
		log.WithFields(logrus.Fields{"key": key, "type": fmt.Sprintf("%T", value)}).
			Debug("Non-boolean format value treated as false")
	}
	return ok && b
}

// headerLevel extracts a numeric header level. Anything that is not a finite
// number yields 0, the "no header" level.
func headerLevel(value any) float64 {
	var level float64
	switch v := value.(type) {
	case float64:
		level = v
	case float32:
		level = float64(v)
	case int:
		level = float64(v)
	case int8:
		level = float64(v)
	case int16:
		level = float64(v)
	case int32:
		level = float64(v)
	case int64:
		level = float64(v)
	case uint:
		level = float64(v)
	case uint8:
		level = float64(v)
	case uint16:
		level = float64(v)
	case uint32:
		level = float64(v)
	case uint64:
		level = float64(v)
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0
		}
		level = f
	default:
		return 0
	}
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return 0
	}
	return level
}

// listKind fans the single raw list enum out into the two exclusive flags.
func listKind(value any) (ordered, bullet bool) {
	kind, _ := value.(string)
	switch kind {
	case listBullet:
		return false, true
	case listOrdered:
		return true, false
	}
	if value != nil && value != false {
		log.WithField("value", value).Debug("Unrecognized list kind treated as no list")
	}
	return false, false
}

// linkTargets keeps a string or a sequence of strings. Any other shape,
// including a sequence holding a non-string, is the "no link" marker.
func linkTargets(value any) LinkValue {
	switch v := value.(type) {
	case string:
		return LinkValue{URLs: []string{v}}
	case []string:
		urls := make([]string, len(v))
		copy(urls, v)
		return LinkValue{URLs: urls, Multiple: true}
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				log.WithField("type", fmt.Sprintf("%T", item)).Debug("Link sequence holds a non-string target")
				return LinkValue{}
			}
			urls = append(urls, s)
		}
		return LinkValue{URLs: urls, Multiple: true}
	}
	return LinkValue{}
}
