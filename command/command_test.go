package command_test

import (
	"context"
	"strings"
	"testing"

	"github.com/grovetools/editorbridge/command"
	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/errors"
	"github.com/grovetools/editorbridge/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"words", "link Docs http://x", []string{"link", "Docs", "http://x"}, false},
		{"double quotes", `link "Read the docs" http://x`, []string{"link", "Read the docs", "http://x"}, false},
		{"single quotes keep backslash", `title 'a\b'`, []string{"title", `a\b`}, false},
		{"escaped space", `title a\ b`, []string{"title", "a b"}, false},
		{"empty quotes", `title ""`, []string{"title", ""}, false},
		{"extra whitespace", "  bold  ", []string{"bold"}, false},
		{"blank", "   ", nil, false},
		{"leading hash", "update-link #top", []string{"update-link", "#top"}, false},
		{"ampersand", "link Docs http://x?a=1&b=2", []string{"link", "Docs", "http://x?a=1&b=2"}, false},
		{"unterminated", `title "oops`, nil, true},
		{"bare apostrophe", "type it's", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := command.Split(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_Parse(t *testing.T) {
	r := command.NewRegistry()

	tests := []struct {
		name     string
		line     string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"rest joins words", "title Tom & Jerry", "title", []string{"Tom & Jerry"}, false},
		{"rest keeps apostrophes", "title don't stop", "title", []string{"don't stop"}, false},
		{"rest keeps spacing", "title a   b\tc ", "title", []string{"a   b\tc"}, false},
		{"rest unquotes one quoted word", `title "Tom & Jerry"`, "title", []string{"Tom & Jerry"}, false},
		{"rest keeps mixed quoting", `title "Tom" & 'Jerry'`, "title", []string{`"Tom" & 'Jerry'`}, false},
		{"rest empty quotes", `title ""`, "title", []string{""}, false},
		{"missing rest", "title   ", "", nil, true},
		{"fragment url", "update-link #top", "update-link", []string{"#top"}, false},
		{"query url", "link Docs http://x?a=1&b=2", "link", []string{"Docs", "http://x?a=1&b=2"}, false},
		{"alias", "B", "bold", []string{}, false},
		{"two args", `link "My docs" https://example.com/a?b=c`, "link", []string{"My docs", "https://example.com/a?b=c"}, false},
		{"relative url", "update-link /docs#top", "update-link", []string{"/docs#top"}, false},
		{"mailto", "link Mail mailto:a@b.c", "link", []string{"Mail", "mailto:a@b.c"}, false},
		{"javascript url refused", "link x javascript:alert(1)", "", nil, true},
		{"empty link title refused", `link "" http://x`, "", nil, true},
		{"too many args", "bold now", "", nil, true},
		{"too few args", "image cat", "", nil, true},
		{"unknown", "explode", "", nil, true},
		{"empty", "", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args, err := r.Parse(tt.line)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestRegistry_RunAgainstSession(t *testing.T) {
	transport := testutil.NewRecordingTransport()
	session := editor.NewSession(transport, nil)
	r := command.NewRegistry()
	ctx := context.Background()

	for _, line := range []string{
		"title Tom & Jerry",
		`link "Docs" http://x`,
		"update-link http://y",
		"clear-link",
		"ol",
		"disable",
	} {
		_, err := r.Run(ctx, session, line)
		require.NoError(t, err, line)
	}

	assert.Equal(t, []string{
		"setTitle('Tom &amp; Jerry');",
		"insertLink('Docs', 'http://x');",
		"quill.format('link', 'http://y');",
		"quill.format('link', null);",
		"toggleOrderedList();",
		"disable();",
	}, transport.Executed())

	transport.Answer(session.Encoder().GetTitle(), "Tom &amp; Jerry")
	out, err := r.Run(ctx, session, "get-title")
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry", out)

	_, err = r.Run(ctx, session, "get-selection")
	assert.True(t, errors.IsNoResult(err))
}

func TestRegistry_Register(t *testing.T) {
	r := command.NewRegistry()

	err := r.Register(command.Spec{
		Name:  "shout",
		Usage: "shout <text>",
		Args:  1,
		Rest:  true,
		Run: func(_ context.Context, _ command.Editor, args []string) (string, error) {
			return strings.ToUpper(args[0]), nil
		},
	})
	require.NoError(t, err)

	out, err := r.Run(context.Background(), nil, "shout hello there")
	require.NoError(t, err)
	assert.Equal(t, "HELLO THERE", out)

	assert.Error(t, r.Register(command.Spec{Name: "bold", Run: func(context.Context, command.Editor, []string) (string, error) { return "", nil }}))
	assert.Error(t, r.Register(command.Spec{Name: "fresh", Aliases: []string{"b"}, Run: func(context.Context, command.Editor, []string) (string, error) { return "", nil }}))
	assert.Error(t, r.Register(command.Spec{Name: "norun"}))

	_, ok := r.Lookup("SHOUT")
	assert.True(t, ok)
	assert.Contains(t, r.Help(), "shout <text>")
}
