package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		raw          string
		placeholders []string
	}{
		{"https://example.com/todos", nil},
		{"https://example.com/todos/{id}", []string{"id"}},
		{"{base}/users/{user}/posts/{post}", []string{"base", "user", "post"}},
		{"/a/{x}/b/{x}", []string{"x"}},
		{"/literal/{{braces}}", nil},
		{"/{ id }", []string{"id"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.placeholders, tmpl.Placeholders())
			assert.Equal(t, tt.raw, tmpl.String())
		})
	}
}

func TestParseTemplateErrors(t *testing.T) {
	tests := map[string]string{
		"unclosed":       "/todos/{id",
		"empty":          "/todos/{}",
		"not identifier": "/todos/{1id}",
		"dash":           "/todos/{todo-id}",
		"stray close":    "/todos/id}",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTemplate(raw)
			assert.Error(t, err)
		})
	}
}

func TestTemplateExpand(t *testing.T) {
	tmpl, err := ParseTemplate("{base}/todos/{id}?q={{x}}")
	require.NoError(t, err)

	values := map[string]string{"base": "https://h", "id": "7"}
	got, err := tmpl.Expand(func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, "https://h/todos/7?q={x}", got)

	delete(values, "id")
	_, err = tmpl.Expand(func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})
	assert.ErrorContains(t, err, "{id}")
}

func TestIsIdentifier(t *testing.T) {
	for _, s := range []string{"id", "_x", "userID", "p2", "ñame"} {
		assert.True(t, IsIdentifier(s), s)
	}
	for _, s := range []string{"", "2p", "a-b", "a b", "a.b", "type", "func"} {
		assert.False(t, IsIdentifier(s), s)
	}
}
