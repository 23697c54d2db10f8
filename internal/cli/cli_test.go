package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vast-data/go-api-client/core"
)

const declarationSource = `package todos

import (
	"context"

	"github.com/vast-data/go-api-client/core"
)

type Todo struct {
	ID    int    ` + "`json:\"id\"`" + `
	Title string ` + "`json:\"title\"`" + `
}

// +apiclient:client=Client
type API interface {
	// +apiclient:GET "/todos/{id}"
	Todo(ctx context.Context, id int) (Todo, error)

	// +apiclient:DELETE "/todos/{id}"
	// +apiclient:since=2.0
	Delete(ctx context.Context, id int) (core.StatusCode, error)
}
`

const openAPIDocument = `openapi: 3.0.3
info:
  title: Todos
  version: "1"
servers:
  - url: https://example.com
paths:
  /todos/{id}:
    get:
      operationId: getTodo
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
`

// run executes apigen with an isolated config file.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "api.go"), declarationSource)

	stdout, _, err := run(t, "generate", dir)
	require.NoError(t, err)
	expected := filepath.Join(dir, "todos_apigen.go")
	assert.Equal(t, expected+"\n", stdout)

	content, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Contains(t, string(content), "// Code generated by apigen. DO NOT EDIT.")
	assert.Contains(t, string(content), "func NewClient(auth core.Authenticator, config *core.Config) (*Client, error)")
}

func TestGenerateCommandUsesGOFILE(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "api.go"), declarationSource)
	t.Setenv("GOFILE", "api.go")

	_, _, err := run(t, "generate", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "api_apigen.go"))
}

func TestGenerateCommandFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "api.go"), `package todos

import "context"

// +apiclient:client=Client
type API interface {
	// +apiclient:GET "/todos/{missing}"
	Todo(ctx context.Context) (string, error)
}
`)
	_, _, err := run(t, "generate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed")
	assert.NoFileExists(t, filepath.Join(dir, "todos_apigen.go"))
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "api.go"), declarationSource)

	stdout, _, err := run(t, "inspect", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Client (todos.API):")
	assert.Contains(t, stdout, "/todos/{id}")
	assert.Contains(t, stdout, "id:path")
	assert.Contains(t, stdout, "2.0")
}

func TestOpenAPICommand(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "todos.yaml")
	writeFile(t, docPath, openAPIDocument)

	stdout, _, err := run(t, "openapi", docPath, "--package", "todos")
	require.NoError(t, err)
	assert.Contains(t, stdout, "package todos")
	assert.Contains(t, stdout, `// +apiclient:GET "/todos/{id}"`)

	output := filepath.Join(dir, "todos", "api.go")
	stdout, _, err = run(t, "openapi", docPath, "--package", "todos", "--client", "Todos", "--output", output, "--generate")
	require.NoError(t, err)
	assert.FileExists(t, output)
	generated := filepath.Join(dir, "todos", "api_apigen.go")
	assert.Equal(t, generated+"\n", stdout)

	content, err := os.ReadFile(generated)
	require.NoError(t, err)
	assert.Contains(t, string(content), "type Todos struct")

	_, _, err = run(t, "openapi", docPath, "--generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--generate needs --output")
}

type echo struct {
	Method        string              `json:"method"`
	Path          string              `json:"path"`
	Query         map[string][]string `json:"query"`
	Authorization string              `json:"authorization"`
	Custom        string              `json:"custom"`
	ContentType   string              `json:"content_type"`
	Body          []byte              `json:"body"`
	RequestID     string              `json:"request_id"`
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.Header().Set(core.HeaderContentType, core.ContentTypeJSON)
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"not found"}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set(core.HeaderContentType, core.ContentTypeJSON)
		_ = json.NewEncoder(w).Encode(echo{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			Custom:        r.Header.Get("X-Custom"),
			ContentType:   r.Header.Get(core.HeaderContentType),
			Body:          body,
			RequestID:     r.Header.Get("X-Request-Id"),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func decodeEcho(t *testing.T, stdout string) echo {
	t.Helper()
	var got echo
	require.NoError(t, json.Unmarshal([]byte(stdout), &got), stdout)
	return got
}

func TestCallCommand(t *testing.T) {
	server := newEchoServer(t)
	noEnv := filepath.Join(t.TempDir(), "none.env")

	t.Run("get with query, headers and bearer", func(t *testing.T) {
		stdout, _, err := run(t, "call", "get", server.URL+"/items/{raw}",
			"-q", "a=1", "-q", "a=2",
			"-H", "X-Custom: {literal}",
			"--bearer", "token",
			"--request-id-header", "X-Request-Id",
			"--timeout", "5s",
			"--env-file", noEnv,
		)
		require.NoError(t, err)
		got := decodeEcho(t, stdout)
		assert.Equal(t, http.MethodGet, got.Method)
		assert.Equal(t, "/items/{raw}", got.Path)
		assert.Equal(t, []string{"1", "2"}, got.Query["a"])
		assert.Equal(t, "{literal}", got.Custom)
		assert.Equal(t, "Bearer token", got.Authorization)
		assert.NotEmpty(t, got.RequestID)
	})

	t.Run("relative URL with base and json body", func(t *testing.T) {
		stdout, _, err := run(t, "call", "POST", "/items",
			"--base-url", server.URL,
			"-d", `{"title": "x"}`,
			"-u", "alice:secret",
			"--env-file", noEnv,
		)
		require.NoError(t, err)
		got := decodeEcho(t, stdout)
		assert.Equal(t, "/items", got.Path)
		assert.Equal(t, core.ContentTypeJSON, got.ContentType)
		assert.JSONEq(t, `{"title":"x"}`, string(got.Body))
		assert.Equal(t, "Basic YWxpY2U6c2VjcmV0", got.Authorization)
	})

	t.Run("form body", func(t *testing.T) {
		stdout, _, err := run(t, "call", "POST", server.URL+"/login",
			"--form", "user=alice", "--form", "pass=p w",
			"--env-file", noEnv,
		)
		require.NoError(t, err)
		got := decodeEcho(t, stdout)
		assert.Equal(t, core.ContentTypeFormURLEncoded, got.ContentType)
		assert.Equal(t, "pass=p+w&user=alice", string(got.Body))
	})

	t.Run("msgpack body", func(t *testing.T) {
		stdout, _, err := run(t, "call", "PUT", server.URL+"/items/1",
			"-d", `{"title":"x"}`, "--msgpack",
			"--env-file", noEnv,
		)
		require.NoError(t, err)
		got := decodeEcho(t, stdout)
		assert.Equal(t, core.ContentTypeMsgpack, got.ContentType)
		var decoded map[string]any
		require.NoError(t, msgpack.Unmarshal(got.Body, &decoded))
		assert.Equal(t, "x", decoded["title"])
	})

	t.Run("credentials from env file", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		writeFile(t, envFile, "APIGEN_TOKEN=from-file\nAPIGEN_BASE_URL="+server.URL+"\n")
		stdout, _, err := run(t, "call", "GET", "/items", "--env-file", envFile)
		require.NoError(t, err)
		assert.Equal(t, "Bearer from-file", decodeEcho(t, stdout).Authorization)
	})

	t.Run("api error", func(t *testing.T) {
		_, _, err := run(t, "call", "GET", server.URL+"/missing", "--env-file", noEnv)
		require.Error(t, err)
		assert.True(t, core.IsApiError(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, args := range [][]string{
			{"call", "GET", server.URL, "-d", "{not json"},
			{"call", "GET", server.URL, "-d", "{}", "--form", "a=b"},
			{"call", "GET", server.URL, "-q", "novalue"},
			{"call", "GET", server.URL, "-H", "NoColon"},
			{"call", "GET", server.URL, "-u", "nopassword"},
			{"call", "FETCH", server.URL},
			{"call", "GET", "/relative"},
		} {
			_, _, err := run(t, append(args, "--env-file", noEnv)...)
			assert.Error(t, err, args)
		}
	})
}

func TestReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	writeFile(t, path, `log_level: debug
log_file: /tmp/apigen.log
generate:
  output: client_apigen.go
openapi:
  package: todos
  client: Todos
call:
  base_url: https://example.com
  timeout: 5s
  request_id_header: X-Request-Id
`)
	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "client_apigen.go", cfg.Generate.Output)
	assert.Equal(t, "todos", cfg.OpenAPI.Package)
	assert.Equal(t, "Todos", cfg.OpenAPI.Client)
	assert.Equal(t, "https://example.com", cfg.Call.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Call.Timeout)
	assert.Equal(t, "X-Request-Id", cfg.Call.RequestIDHeader)

	cfg, err = ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &ProjectConfig{}, cfg)

	writeFile(t, path, "log_level: [unterminated")
	_, err = ReadConfig(path)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "apigen.log")
	logger, closeLogger, err := newLogger(&stderr, "info", file)
	require.NoError(t, err)
	logger.Info("hello")
	logger.Debug("hidden from console")
	closeLogger()

	assert.Contains(t, stderr.String(), "hello")
	assert.NotContains(t, stderr.String(), "hidden from console")

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"hello"`)
	assert.Contains(t, string(content), `"msg":"hidden from console"`)

	_, _, err = newLogger(&stderr, "loud", "")
	assert.Error(t, err)
}
