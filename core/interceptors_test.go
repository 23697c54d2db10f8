package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	create := MustDeclare[StatusCode](EndpointSpec{
		Name:   "Create",
		Verb:   "POST",
		URL:    "/todos",
		Params: []Param{BodyParam("todo")},
	})

	t.Run("debug includes body", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		client := newTestClient(t, nil, &Config{BaseURL: server.URL, Logger: zap.New(core)})
		_, err := create.Call(context.Background(), client, Args{"todo": map[string]any{"title": "x"}})
		require.NoError(t, err)

		start := logs.FilterMessage("http request start").All()
		require.Len(t, start, 1)
		assert.Equal(t, zapcore.DebugLevel, start[0].Level)
		assert.Equal(t, `{"title":"x"}`, start[0].ContextMap()["body"])
		assert.Equal(t, "Create", start[0].ContextMap()["endpoint"])

		response := logs.FilterMessage("http response").All()
		require.Len(t, response, 1)
		assert.EqualValues(t, http.StatusCreated, response[0].ContextMap()["status"])
	})

	t.Run("info omits body", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		client := newTestClient(t, nil, &Config{BaseURL: server.URL, Logger: zap.New(core)})
		_, err := create.Call(context.Background(), client, Args{"todo": map[string]any{"title": "x"}})
		require.NoError(t, err)

		start := logs.FilterMessage("http request start").All()
		require.Len(t, start, 1)
		assert.Equal(t, zapcore.InfoLevel, start[0].Level)
		assert.NotContains(t, start[0].ContextMap(), "body")
	})
}

func TestDescribeBody(t *testing.T) {
	assert.Equal(t, `{"a":1}`, describeBody(ContentTypeJSON, []byte("{ \"a\": 1 }\n")))
	assert.Equal(t, "a=1&b=2", describeBody(ContentTypeFormURLEncoded, []byte("a=1&b=2")))
	assert.Equal(t, "application/msgpack payload (3 bytes)", describeBody(ContentTypeMsgpack, []byte{0x81, 0xa1, 0x61}))
	assert.Empty(t, describeBody(ContentTypeJSON, []byte("null")))
	assert.Empty(t, describeBody(ContentTypeJSON, nil))
}
