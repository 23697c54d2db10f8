package core

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type todo struct {
	UserID    int    `json:"userId"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Note      string `json:"note,omitempty"`
}

func TestEncodeBodyJSON(t *testing.T) {
	data, contentType, err := encodeBody(EncodingJSON, todo{UserID: 1, ID: 2, Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, contentType)
	assert.JSONEq(t, `{"userId":1,"id":2,"title":"x","completed":false}`, string(data))
}

func TestMsgpackRoundTripUsesJSONTags(t *testing.T) {
	in := todo{UserID: 1, ID: 2, Title: "msgpack", Completed: true}
	data, contentType, err := encodeBody(EncodingMsgpack, in)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeMsgpack, contentType)

	var generic map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &generic))
	assert.Contains(t, generic, "userId")
	assert.NotContains(t, generic, "note")

	var out todo
	require.NoError(t, decodeBody(data, ContentTypeMsgpack, EncodingJSON, false, &out))
	assert.Equal(t, in, out)
}

func TestEncodeBodyForm(t *testing.T) {
	type login struct {
		User   string   `json:"user"`
		Scopes []string `json:"scope"`
		Skip   string   `json:"-"`
		Empty  string   `json:"empty,omitempty"`
		Plain  int
	}
	data, contentType, err := encodeBody(EncodingForm, login{User: "ann", Scopes: []string{"a", "b"}, Skip: "no", Plain: 3})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeFormURLEncoded, contentType)

	values, err := url.ParseQuery(string(data))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"user": {"ann"}, "scope": {"a", "b"}, "Plain": {"3"}}, values)

	data, _, err = encodeBody(EncodingForm, map[string]string{"a": "1"})
	require.NoError(t, err)
	assert.Equal(t, "a=1", string(data))

	_, _, err = encodeBody(EncodingForm, 42)
	assert.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	var out todo
	require.NoError(t, decodeBody([]byte(`{"userId":1,"id":1,"title":"t","completed":true}`), "application/json; charset=utf-8", EncodingJSON, false, &out))
	assert.Equal(t, todo{UserID: 1, ID: 1, Title: "t", Completed: true}, out)

	t.Run("empty body", func(t *testing.T) {
		var out todo
		assert.ErrorContains(t, decodeBody(nil, ContentTypeJSON, EncodingJSON, false, &out), "empty")
		assert.ErrorContains(t, decodeBody([]byte("  \n"), "", EncodingJSON, false, &out), "empty")
		assert.ErrorContains(t, decodeBody(nil, ContentTypeMsgpack, EncodingJSON, false, &out), "empty")
	})

	t.Run("null body", func(t *testing.T) {
		var out todo
		assert.ErrorContains(t, decodeBody([]byte("null\n"), ContentTypeJSON, EncodingJSON, false, &out), "null")
		assert.ErrorContains(t, decodeBody([]byte{0xc0}, ContentTypeMsgpack, EncodingJSON, false, &out), "null")

		var list []todo
		assert.NoError(t, decodeBody([]byte("null"), ContentTypeJSON, EncodingJSON, false, &list))
		assert.Nil(t, list)
		var ptr *todo
		assert.NoError(t, decodeBody([]byte("null"), ContentTypeJSON, EncodingJSON, false, &ptr))
		var anything any
		assert.NoError(t, decodeBody([]byte("null"), ContentTypeJSON, EncodingJSON, false, &anything))
	})

	t.Run("shape mismatch", func(t *testing.T) {
		var out todo
		assert.Error(t, decodeBody([]byte(`[1,2,3]`), ContentTypeJSON, EncodingJSON, false, &out))
	})

	t.Run("trailing data", func(t *testing.T) {
		var out todo
		assert.ErrorContains(t, decodeBody([]byte(`{"id":1} {"id":2}`), ContentTypeJSON, EncodingJSON, false, &out), "after JSON value")
	})

	t.Run("strict rejects unknown fields", func(t *testing.T) {
		var out todo
		body := []byte(`{"id":1,"extra":true}`)
		assert.NoError(t, decodeBody(body, ContentTypeJSON, EncodingJSON, false, &out))
		assert.Error(t, decodeBody(body, ContentTypeJSON, EncodingJSON, true, &out))
	})

	t.Run("untyped response follows endpoint encoding", func(t *testing.T) {
		data, err := msgpack.Marshal(map[string]any{"id": 9})
		require.NoError(t, err)
		var out todo
		require.NoError(t, decodeBody(data, "", EncodingMsgpack, false, &out))
		assert.Equal(t, 9, out.ID)
	})
}

func TestEncodeMultipart(t *testing.T) {
	parts := Parts{
		{Name: "file", Value: FileData{Filename: "a.txt", ContentType: "text/plain", Content: []byte("hello")}},
		{Name: "raw", Value: []byte{1, 2, 3}},
		{Name: "stream", Value: strings.NewReader("streamed")},
		{Name: "count", Value: 3},
		{Name: "tags", Value: []string{"x", "y"}},
		{Name: "skipped", Value: nil},
		{Name: "noBytes", Value: []byte(nil)},
	}
	body, contentType, err := encodeMultipart(parts)
	require.NoError(t, err)

	form := readMultipart(t, body, contentType)
	assert.Equal(t, []string{"hello"}, form["file"])
	assert.Equal(t, []string{"\x01\x02\x03"}, form["raw"])
	assert.Equal(t, []string{"streamed"}, form["stream"])
	assert.Equal(t, []string{"3"}, form["count"])
	assert.Equal(t, []string{"x", "y"}, form["tags"])
	assert.NotContains(t, form, "skipped")
	assert.NotContains(t, form, "noBytes")
}

func TestFileDataPartHeaders(t *testing.T) {
	body, contentType, err := encodeMultipart(Parts{{Name: "upload", Value: &FileData{Content: []byte("z")}}})
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "upload", part.FormName())
	assert.Equal(t, "upload", part.FileName())
	assert.Equal(t, ContentTypeOctetStream, part.Header.Get(HeaderContentType))
}

func TestToParts(t *testing.T) {
	parts, err := toParts(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, Parts{{Name: "a", Value: 1}, {Name: "b", Value: 2}}, parts)

	type upload struct {
		File FileData `json:"file"`
		Tag  string   `json:"tag,omitempty"`
	}
	parts, err = toParts(&upload{File: FileData{Filename: "f"}})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "file", parts[0].Name)
	assert.IsType(t, FileData{}, parts[0].Value)

	_, err = toParts("not a struct")
	assert.Error(t, err)
}

// readMultipart collects every part's content by field name.
func readMultipart(t *testing.T, body []byte, contentType string) map[string][]string {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, ContentTypeMultipartForm, mediaType)

	form := make(map[string][]string)
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		form[part.FormName()] = append(form[part.FormName()], string(content))
	}
	return form
}
