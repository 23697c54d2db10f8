package core

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// FileData represents a file to be uploaded in multipart form data.
// ContentType defaults to application/octet-stream.
type FileData struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Part is one named multipart field.
type Part struct {
	Name  string
	Value any
}

// Parts is an ordered multipart form, the preferred value of an aggregate
// multipart parameter.
type Parts []Part

// structTag is shared by the JSON, msgpack, form and multipart encoders so a
// single `json:"name,omitempty"` tag controls field naming everywhere.
const structTag = "json"

// encodeBody serializes v with the given encoding and returns the payload and
// its content type.
func encodeBody(encoding Encoding, v any) ([]byte, string, error) {
	switch encoding {
	case EncodingJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return data, encoding.ContentType(), nil
	case EncodingMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag(structTag)
		if err := enc.Encode(v); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), encoding.ContentType(), nil
	case EncodingForm:
		values, err := toFormValues(v)
		if err != nil {
			return nil, "", err
		}
		return []byte(values.Encode()), encoding.ContentType(), nil
	}
	return nil, "", fmt.Errorf("unsupported encoding %s", encoding)
}

// decodeBody decodes data into out. Msgpack media types select msgpack; an
// untyped response falls back to the endpoint encoding; everything else is JSON.
func decodeBody(data []byte, contentType string, encoding Encoding, strict bool, out any) error {
	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = mt
		}
	}
	if isMsgpack(mediaType) || (mediaType == "" && encoding == EncodingMsgpack) {
		if len(data) == 0 {
			return errors.New("empty response body")
		}
		if len(data) == 1 && data[0] == msgpackNil && !acceptsNull(out) {
			return fmt.Errorf("null response body cannot decode into %T", out)
		}
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag(structTag)
		dec.DisallowUnknownFields(strict)
		return dec.Decode(out)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty response body")
	}
	if bytes.Equal(trimmed, []byte("null")) && !acceptsNull(out) {
		return fmt.Errorf("null response body cannot decode into %T", out)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(out); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

const msgpackNil = 0xc0

// acceptsNull reports whether the value out points to has a nil state.
func acceptsNull(out any) bool {
	switch reflect.TypeOf(out).Elem().Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	}
	return false
}

func isMsgpack(mediaType string) bool {
	switch mediaType {
	case ContentTypeMsgpack, ContentTypeXMsgpack, ContentTypeVndMsgpack:
		return true
	}
	return false
}

//  ######################################################
//              FORM ENCODING
//  ######################################################

// toFormValues accepts url.Values, string maps, map[string]any or a struct
// (fields named by json tags).
func toFormValues(v any) (url.Values, error) {
	switch typed := v.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return typed, nil
	case map[string][]string:
		return url.Values(typed), nil
	case map[string]string:
		values := url.Values{}
		for k, val := range typed {
			values.Set(k, val)
		}
		return values, nil
	}
	parts, err := toParts(v)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	for _, part := range parts {
		for _, s := range formStrings(reflect.ValueOf(part.Value)) {
			values.Add(part.Name, s)
		}
	}
	return values, nil
}

// formStrings flattens a value to its form representation; slices repeat the key.
func formStrings(v reflect.Value) []string {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	if m, ok := v.Interface().(encoding.TextMarshaler); ok {
		text, err := m.MarshalText()
		if err == nil {
			return []string{string(text)}
		}
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return []string{string(v.Bytes())}
		}
		var out []string
		for i := 0; i < v.Len(); i++ {
			out = append(out, formStrings(v.Index(i))...)
		}
		return out
	case reflect.Map, reflect.Struct:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return []string{fmt.Sprint(v.Interface())}
		}
		return []string{string(data)}
	}
	return []string{fmt.Sprint(v.Interface())}
}

//  ######################################################
//              MULTIPART ENCODING
//  ######################################################

// toParts expands an aggregate value into ordered parts. Maps are sorted by key.
func toParts(v any) (Parts, error) {
	switch typed := v.(type) {
	case Parts:
		return typed, nil
	case []Part:
		return typed, nil
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make(Parts, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, Part{Name: k, Value: typed[k]})
		}
		return parts, nil
	case url.Values:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts Parts
		for _, k := range keys {
			for _, val := range typed[k] {
				parts = append(parts, Part{Name: k, Value: val})
			}
		}
		return parts, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot expand %T into named fields: expected a struct, map or Parts", v)
	}
	return structParts(rv), nil
}

// structParts reads exported fields, honoring json tag names, "-" and omitempty.
func structParts(rv reflect.Value) Parts {
	var parts Parts
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		omitEmpty := false
		if tag, ok := field.Tag.Lookup(structTag); ok {
			tagName, opts, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
			omitEmpty = strings.Contains(opts, "omitempty")
		}
		value := rv.Field(i)
		if omitEmpty && value.IsZero() {
			continue
		}
		parts = append(parts, Part{Name: name, Value: value.Interface()})
	}
	return parts
}

// encodeMultipart writes parts as multipart/form-data and returns the body and
// its content type (with boundary).
func encodeMultipart(parts Parts) ([]byte, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, part := range parts {
		switch v := part.Value.(type) {
		case nil:
			continue
		case FileData:
			if err := writeFilePart(writer, part.Name, v); err != nil {
				return nil, "", err
			}
		case *FileData:
			if v == nil {
				continue
			}
			if err := writeFilePart(writer, part.Name, *v); err != nil {
				return nil, "", err
			}
		case []byte:
			if v == nil {
				continue
			}
			// Handle raw byte data as file without filename
			fileWriter, err := writer.CreateFormFile(part.Name, part.Name)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create form file for %s: %w", part.Name, err)
			}
			if _, err := fileWriter.Write(v); err != nil {
				return nil, "", fmt.Errorf("failed to write byte content for %s: %w", part.Name, err)
			}
		case io.Reader:
			fileWriter, err := writer.CreateFormFile(part.Name, part.Name)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create form file for %s: %w", part.Name, err)
			}
			if _, err := io.Copy(fileWriter, v); err != nil {
				return nil, "", fmt.Errorf("failed to copy content for %s: %w", part.Name, err)
			}
		default:
			for _, s := range formStrings(reflect.ValueOf(v)) {
				if err := writer.WriteField(part.Name, s); err != nil {
					return nil, "", fmt.Errorf("failed to write field %s: %w", part.Name, err)
				}
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, name string, file FileData) error {
	filename := file.Filename
	if filename == "" {
		filename = name
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = ContentTypeOctetStream
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     name,
		"filename": filename,
	}))
	h.Set(HeaderContentType, contentType)
	partWriter, err := writer.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create form file for %s: %w", name, err)
	}
	if _, err = partWriter.Write(file.Content); err != nil {
		return fmt.Errorf("failed to write file content for %s: %w", name, err)
	}
	return nil
}
