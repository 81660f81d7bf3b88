package editor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/grovetools/editorbridge/errors"
)

// Inbound entry point names, as invoked by the editor surface.
const (
	EventFormatChanged         = "onFormatChanged"
	EventCursorChanged         = "onCursorChanged"
	EventHighlighted           = "onHighlighted"
	EventGotoLink              = "gotoLink"
	EventLinkTapped            = "onLinkTapped"
	EventSelectionStyleChanged = "onSelectionStyleChanged"
	EventSelectionChanged      = "onSelectionChanged"
	EventGetHTMLResponse       = "onGetHtmlResponse"
	EventDomLoaded             = "onDomLoaded"
	EventMediaTapped           = "onMediaTapped"
)

// EventNames lists every inbound entry point.
func EventNames() []string {
	return []string{
		EventFormatChanged,
		EventCursorChanged,
		EventHighlighted,
		EventGotoLink,
		EventLinkTapped,
		EventSelectionStyleChanged,
		EventSelectionChanged,
		EventGetHTMLResponse,
		EventDomLoaded,
		EventMediaTapped,
	}
}

// Dispatch routes one named inbound event with positional arguments to h.
//
// Format payloads and change sets are accepted as decoded objects or as JSON
// text; an unreadable payload is passed on empty. Positional scalars (index,
// length, title, url, media id) must have the right type, otherwise the event is
// dropped with a MALFORMED_EVENT error. A nil handler drops everything.
func Dispatch(h Handler, name string, args []any) error {
	if h == nil {
		return nil
	}

	switch name {
	case EventFormatChanged:
		h.OnFormatChanged(formatsArg(name, args, 0))

	case EventCursorChanged:
		index, err := intArg(name, args, 0)
		if err != nil {
			return err
		}
		h.OnCursorChanged(index, formatsArg(name, args, 1))

	case EventHighlighted:
		index, err := intArg(name, args, 0)
		if err != nil {
			return err
		}
		length, err := intArg(name, args, 1)
		if err != nil {
			return err
		}
		h.OnHighlighted(index, length, formatsArg(name, args, 2))

	case EventGotoLink:
		title, url, err := stringPair(name, args)
		if err != nil {
			return err
		}
		h.GotoLink(title, url)

	case EventLinkTapped:
		url, title, err := stringPair(name, args)
		if err != nil {
			return err
		}
		h.OnLinkTapped(url, title)

	case EventSelectionStyleChanged:
		h.OnSelectionStyleChanged(objectArg(name, args, 0))

	case EventSelectionChanged:
		h.OnSelectionChanged(objectArg(name, args, 0))

	case EventGetHTMLResponse:
		h.OnGetHTMLResponse(objectArg(name, args, 0))

	case EventDomLoaded:
		h.OnDomLoaded()

	case EventMediaTapped:
		mediaID, url, err := stringPair(name, args)
		if err != nil {
			return err
		}
		status, err := stringArg(name, args, 3)
		if err != nil {
			return err
		}
		h.OnMediaTapped(mediaID, url, objectArg(name, args, 2), status)

	default:
		return errors.UnknownEvent(name)
	}
	return nil
}

func stringPair(event string, args []any) (string, string, error) {
	first, err := stringArg(event, args, 0)
	if err != nil {
		return "", "", err
	}
	second, err := stringArg(event, args, 1)
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

// stringArg reads a string argument. Missing and null arguments read as "".
func stringArg(event string, args []any, i int) (string, error) {
	if i >= len(args) || args[i] == nil {
		return "", nil
	}
	s, ok := args[i].(string)
	if !ok {
		return "", errors.MalformedEvent(event, fmt.Sprintf("argument %d is %T, want string", i, args[i]))
	}
	return s, nil
}

// intArg reads an integral numeric argument of any numeric representation.
func intArg(event string, args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, errors.MalformedEvent(event, fmt.Sprintf("missing argument %d", i))
	}
	switch v := args[i].(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		if v <= math.MaxInt32 {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) && math.Abs(v) <= math.MaxInt32 {
			return int(v), nil
		}
	case json.Number:
		if n, err := strconv.Atoi(string(v)); err == nil {
			return n, nil
		}
	}
	return 0, errors.MalformedEvent(event, fmt.Sprintf("argument %d is %v (%T), want integer", i, args[i], args[i]))
}

func formatsArg(event string, args []any, i int) RawFormatEvent {
	return RawFormatEvent(objectArg(event, args, i))
}

// objectArg reads an object argument. Anything that is not an object, or
// JSON text of an object, reads as an empty object.
func objectArg(event string, args []any, i int) map[string]any {
	if i >= len(args) || args[i] == nil {
		return map[string]any{}
	}
	switch v := args[i].(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if ks, ok := k.(string); ok {
				out[ks] = val
			}
		}
		return out
	case string:
		return parseObject(event, []byte(v))
	case []byte:
		return parseObject(event, v)
	case json.RawMessage:
		return parseObject(event, v)
	}
	log.WithField("event", event).Debugf("Argument %d is %T, treating as empty object", i, args[i])
	return map[string]any{}
}

func parseObject(event string, data []byte) map[string]any {
	raw, err := ParseRawFormatEvent(data)
	if err != nil {
		log.WithError(err).WithField("event", event).Debug("Unreadable payload, treating as empty object")
	}
	return raw
}
