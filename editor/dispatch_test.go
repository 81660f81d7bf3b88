package editor

import (
	"encoding/json"
	"testing"

	"github.com/grovetools/editorbridge/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerCall struct {
	name          string
	index, length int
	raw           map[string]any
	a, b, c       string
}

type recordingHandler struct {
	calls []handlerCall
}

func (h *recordingHandler) add(c handlerCall) { h.calls = append(h.calls, c) }

func (h *recordingHandler) OnFormatChanged(raw RawFormatEvent) {
	h.add(handlerCall{name: EventFormatChanged, raw: raw})
}
func (h *recordingHandler) OnCursorChanged(index int, raw RawFormatEvent) {
	h.add(handlerCall{name: EventCursorChanged, index: index, raw: raw})
}
func (h *recordingHandler) OnHighlighted(index, length int, raw RawFormatEvent) {
	h.add(handlerCall{name: EventHighlighted, index: index, length: length, raw: raw})
}
func (h *recordingHandler) GotoLink(title, url string) {
	h.add(handlerCall{name: EventGotoLink, a: title, b: url})
}
func (h *recordingHandler) OnLinkTapped(url, title string) {
	h.add(handlerCall{name: EventLinkTapped, a: url, b: title})
}
func (h *recordingHandler) OnSelectionStyleChanged(changeSet map[string]any) {
	h.add(handlerCall{name: EventSelectionStyleChanged, raw: changeSet})
}
func (h *recordingHandler) OnSelectionChanged(args map[string]any) {
	h.add(handlerCall{name: EventSelectionChanged, raw: args})
}
func (h *recordingHandler) OnGetHTMLResponse(args map[string]any) {
	h.add(handlerCall{name: EventGetHTMLResponse, raw: args})
}
func (h *recordingHandler) OnMediaTapped(mediaID, url string, meta map[string]any, uploadStatus string) {
	h.add(handlerCall{name: EventMediaTapped, a: mediaID, b: url, raw: meta, c: uploadStatus})
}
func (h *recordingHandler) OnDomLoaded() {
	h.add(handlerCall{name: EventDomLoaded})
}

func TestDispatch_ArgumentShapes(t *testing.T) {
	tests := []struct {
		name  string
		event string
		args  []any
		want  handlerCall
	}{
		{
			name:  "format object",
			event: EventFormatChanged,
			args:  []any{map[string]any{"bold": true}},
			want:  handlerCall{name: EventFormatChanged, raw: map[string]any{"bold": true}},
		},
		{
			name:  "format JSON text",
			event: EventFormatChanged,
			args:  []any{`{"italic":true}`},
			want:  handlerCall{name: EventFormatChanged, raw: map[string]any{"italic": true}},
		},
		{
			name:  "format garbage text",
			event: EventFormatChanged,
			args:  []any{`{not json`},
			want:  handlerCall{name: EventFormatChanged, raw: map[string]any{}},
		},
		{
			name:  "format msgpack map",
			event: EventFormatChanged,
			args:  []any{map[any]any{"bold": true, 7: "dropped"}},
			want:  handlerCall{name: EventFormatChanged, raw: map[string]any{"bold": true}},
		},
		{
			name:  "format empty lua table arrives as list",
			event: EventFormatChanged,
			args:  []any{[]any{}},
			want:  handlerCall{name: EventFormatChanged, raw: map[string]any{}},
		},
		{
			name:  "format missing",
			event: EventFormatChanged,
			args:  nil,
			want:  handlerCall{name: EventFormatChanged, raw: map[string]any{}},
		},
		{
			name:  "cursor with float index",
			event: EventCursorChanged,
			args:  []any{12.0, map[string]any{"list": "bullet"}},
			want:  handlerCall{name: EventCursorChanged, index: 12, raw: map[string]any{"list": "bullet"}},
		},
		{
			name:  "cursor with int64 index",
			event: EventCursorChanged,
			args:  []any{int64(3), nil},
			want:  handlerCall{name: EventCursorChanged, index: 3, raw: map[string]any{}},
		},
		{
			name:  "highlight",
			event: EventHighlighted,
			args:  []any{json.Number("4"), uint64(6), `{"header":1}`},
			want:  handlerCall{name: EventHighlighted, index: 4, length: 6, raw: map[string]any{"header": 1.0}},
		},
		{
			name:  "goto link",
			event: EventGotoLink,
			args:  []any{"Docs", "http://docs"},
			want:  handlerCall{name: EventGotoLink, a: "Docs", b: "http://docs"},
		},
		{
			name:  "link tapped keeps url first",
			event: EventLinkTapped,
			args:  []any{"http://x", nil},
			want:  handlerCall{name: EventLinkTapped, a: "http://x", b: ""},
		},
		{
			name:  "style change set",
			event: EventSelectionStyleChanged,
			args:  []any{map[string]any{"orderedList": true}},
			want:  handlerCall{name: EventSelectionStyleChanged, raw: map[string]any{"orderedList": true}},
		},
		{
			name:  "media tapped",
			event: EventMediaTapped,
			args:  []any{"img-1", "http://x/cat.png", `{"width":640}`, "uploaded"},
			want: handlerCall{
				name: EventMediaTapped, a: "img-1", b: "http://x/cat.png",
				raw: map[string]any{"width": 640.0}, c: "uploaded",
			},
		},
		{
			name:  "media tapped without meta",
			event: EventMediaTapped,
			args:  []any{"img-2", "http://x/dog.png"},
			want:  handlerCall{name: EventMediaTapped, a: "img-2", b: "http://x/dog.png", raw: map[string]any{}},
		},
		{
			name:  "dom loaded",
			event: EventDomLoaded,
			want:  handlerCall{name: EventDomLoaded},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			require.NoError(t, Dispatch(h, tt.event, tt.args))
			require.Len(t, h.calls, 1)
			assert.Equal(t, tt.want, h.calls[0])
		})
	}
}

func TestDispatch_MalformedScalars(t *testing.T) {
	tests := []struct {
		name  string
		event string
		args  []any
	}{
		{"cursor without index", EventCursorChanged, nil},
		{"cursor with string index", EventCursorChanged, []any{"3", map[string]any{}}},
		{"cursor with fractional index", EventCursorChanged, []any{1.5, map[string]any{}}},
		{"highlight without length", EventHighlighted, []any{1.0}},
		{"goto link with numeric title", EventGotoLink, []any{1.0, "http://x"}},
		{"link tapped with object url", EventLinkTapped, []any{map[string]any{}, "t"}},
		{"media tapped with numeric id", EventMediaTapped, []any{7.0, "http://x"}},
		{"media tapped with numeric status", EventMediaTapped, []any{"m", "http://x", nil, 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			err := Dispatch(h, tt.event, tt.args)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeMalformedEvent))
			assert.Empty(t, h.calls)
		})
	}
}

func TestDispatch_UnknownEventAndNilHandler(t *testing.T) {
	h := &recordingHandler{}
	err := Dispatch(h, "onSomethingElse", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownEvent))
	assert.Empty(t, h.calls)

	assert.NoError(t, Dispatch(nil, EventFormatChanged, []any{map[string]any{"bold": true}}))
}

func TestEventNames_AllDispatchable(t *testing.T) {
	for _, name := range EventNames() {
		h := &recordingHandler{}
		err := Dispatch(h, name, []any{0.0, 0.0, map[string]any{}})
		if name == EventGotoLink || name == EventLinkTapped || name == EventMediaTapped {
			// numeric placeholders are not valid titles
			assert.Error(t, err, name)
			continue
		}
		assert.NoError(t, err, name)
		assert.Len(t, h.calls, 1, name)
	}
}
