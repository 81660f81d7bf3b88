package editor

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_EmptyPayload(t *testing.T) {
	assert.Empty(t, Decode(RawFormatEvent{}))
	assert.Empty(t, Decode(nil))
}

func TestDecode_BooleanStyles(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		style Style
		value any
		want  bool
	}{
		{"bold true", "bold", Bold, true, true},
		{"bold false", "bold", Bold, false, false},
		{"bold null", "bold", Bold, nil, false},
		{"bold string", "bold", Bold, "true", false},
		{"bold number", "bold", Bold, 1.0, false},
		{"italic true", "italic", Italic, true, true},
		{"italic object", "italic", Italic, map[string]any{"x": true}, false},
		{"blockquote true", "blockquote", BlockQuote, true, true},
		{"blockquote list", "blockquote", BlockQuote, []any{true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Decode(RawFormatEvent{tt.key: tt.value})
			require.Len(t, state, 1)
			enabled, ok := state.Enabled(tt.style)
			require.True(t, ok)
			assert.Equal(t, tt.want, enabled)
		})
	}
}

func TestDecode_HeaderBoundary(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"zero", 0.0, false},
		{"one", 1.0, true},
		{"null", nil, false},
		{"level three", 3.0, true},
		{"negative", -1.0, false},
		{"fraction", 0.5, true},
		{"int64 from msgpack", int64(2), true},
		{"uint64 from msgpack", uint64(0), false},
		{"json number", json.Number("1"), true},
		{"bad json number", json.Number("x"), false},
		{"string", "1", false},
		{"bool", true, false},
		{"NaN", math.NaN(), false},
		{"infinity", math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Decode(RawFormatEvent{"header": tt.value})
			enabled, ok := state.Enabled(Header)
			require.True(t, ok, "header key present must always yield an entry")
			assert.Equal(t, tt.want, enabled)
		})
	}
}

func TestDecode_ListFanOut(t *testing.T) {
	tests := []struct {
		name            string
		value           any
		ordered, bullet bool
	}{
		{"bullet", "bullet", false, true},
		{"ordered", "ordered", true, false},
		{"false", false, false, false},
		{"null", nil, false, false},
		{"unknown enum", "checked", false, false},
		{"wrong case", "Bullet", false, false},
		{"number", 1.0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Decode(RawFormatEvent{"list": tt.value})
			require.Len(t, state, 2)

			ordered, ok := state.Enabled(OrderedList)
			require.True(t, ok)
			bullet, ok := state.Enabled(UnorderedList)
			require.True(t, ok)

			assert.Equal(t, tt.ordered, ordered)
			assert.Equal(t, tt.bullet, bullet)
		})
	}
}

func TestDecode_LinkTyping(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    LinkValue
		present bool
	}{
		{"single url", "http://x", LinkValue{URLs: []string{"http://x"}}, true},
		{"number", 42.0, LinkValue{}, false},
		{"null", nil, LinkValue{}, false},
		{"bool", false, LinkValue{}, false},
		{"sequence", []any{"a", "b"}, LinkValue{URLs: []string{"a", "b"}, Multiple: true}, true},
		{"string slice", []string{"a"}, LinkValue{URLs: []string{"a"}, Multiple: true}, true},
		{"empty sequence", []any{}, LinkValue{URLs: []string{}, Multiple: true}, true},
		{"mixed sequence", []any{"a", 1.0}, LinkValue{}, false},
		{"object", map[string]any{"href": "x"}, LinkValue{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Decode(RawFormatEvent{"link": tt.value})
			link, ok := state.Link()
			require.True(t, ok, "a link key must always produce a LINK entry")
			assert.Equal(t, tt.want, link)
			assert.Equal(t, tt.present, link.Present())
		})
	}
}

func TestDecode_IgnoresUnknownKeys(t *testing.T) {
	state := Decode(RawFormatEvent{
		"bold":      true,
		"underline": true,
		"color":     "#ff0000",
		"Bold":      true,
	})
	assert.Equal(t, StyleState{Bold: {Enabled: true}}, state)
}

func TestDecode_Idempotent(t *testing.T) {
	raw := RawFormatEvent{"bold": true, "list": "ordered", "link": []any{"a"}, "header": 2.0}
	assert.Equal(t, Decode(raw), Decode(raw))
}

// randomValue produces values of every shape an editor or a hostile peer could send.
func randomValue(r *rand.Rand, depth int) any {
	switch r.Intn(14) {
	case 0:
		return nil
	case 1:
		return r.Intn(2) == 0
	case 2:
		return []string{"bullet", "ordered", "", "checked", "http://x"}[r.Intn(5)]
	case 3:
		return r.NormFloat64() * 10
	case 4:
		return int64(r.Intn(7) - 3)
	case 5:
		return uint64(r.Intn(4))
	case 6:
		return math.NaN()
	case 7:
		return math.Inf(-1)
	case 8:
		if depth > 2 {
			return nil
		}
		n := r.Intn(4)
		items := make([]any, n)
		for i := range items {
			items[i] = randomValue(r, depth+1)
		}
		return items
	case 9:
		if depth > 2 {
			return nil
		}
		return map[string]any{"k": randomValue(r, depth+1)}
	case 10:
		return []string{"a", "b"}
	case 11:
		return json.Number("2")
	case 12:
		return struct{ X int }{X: r.Int()}
	default:
		return []byte("bold")
	}
}

func TestDecode_TotalOnAdversarialInput(t *testing.T) {
	keys := []string{"bold", "italic", "blockquote", "header", "list", "link", "", "BOLD", "align", "orderedList"}
	r := rand.New(rand.NewSource(20261017))

	for i := 0; i < 2000; i++ {
		raw := RawFormatEvent{}
		for n := r.Intn(len(keys) + 1); n > 0; n-- {
			raw[keys[r.Intn(len(keys))]] = randomValue(r, 0)
		}

		var state StyleState
		require.NotPanics(t, func() { state = Decode(raw) }, "payload %#v", raw)
		require.NotNil(t, state)

		ordered, _ := state.Enabled(OrderedList)
		bullet, _ := state.Enabled(UnorderedList)
		assert.False(t, ordered && bullet, "list flags must be exclusive for %#v", raw)

		for style := range state {
			switch style {
			case Bold:
				assert.Contains(t, raw, "bold")
			case Italic:
				assert.Contains(t, raw, "italic")
			case BlockQuote:
				assert.Contains(t, raw, "blockquote")
			case Header:
				assert.Contains(t, raw, "header")
			case OrderedList, UnorderedList:
				assert.Contains(t, raw, "list")
			case Link:
				assert.Contains(t, raw, "link")
			default:
				t.Fatalf("unexpected style %v", style)
			}
		}
	}
}

func TestParseRawFormatEvent(t *testing.T) {
	raw, err := ParseRawFormatEvent([]byte(`{"bold":true,"header":1,"link":["a","b"]}`))
	require.NoError(t, err)
	state := Decode(raw)

	bold, _ := state.Enabled(Bold)
	header, _ := state.Enabled(Header)
	link, _ := state.Link()
	assert.True(t, bold)
	assert.True(t, header)
	assert.Equal(t, []string{"a", "b"}, link.URLs)

	raw, err = ParseRawFormatEvent([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, raw)

	raw, err = ParseRawFormatEvent([]byte(`[1,2]`))
	assert.Error(t, err)
	assert.NotNil(t, raw)
	assert.Empty(t, Decode(raw))
}
