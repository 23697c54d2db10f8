package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Shape is the conversion applied to a completed response. The set is closed;
// a Method's shape follows from its type parameter (see ShapeOf).
type Shape int

const (
	// ShapeDecoded decodes a 2xx body into the declared type.
	ShapeDecoded Shape = iota
	// ShapeRaw returns a 2xx body unmodified as []byte.
	ShapeRaw
	// ShapeStatus discards the body and returns the StatusCode for any status.
	ShapeStatus
	// ShapeText returns a 2xx body as a string.
	ShapeText
)

func (s Shape) String() string {
	switch s {
	case ShapeDecoded:
		return "decoded"
	case ShapeRaw:
		return "raw"
	case ShapeStatus:
		return "status"
	case ShapeText:
		return "text"
	default:
		return "unknown"
	}
}

func (s Shape) valid() bool {
	return s >= ShapeDecoded && s <= ShapeText
}

// StatusCode is the result type of status-only methods.
type StatusCode int

// IsSuccess reports whether the code is in the 2xx range.
func (c StatusCode) IsSuccess() bool {
	return c >= 200 && c <= 299
}

func (c StatusCode) String() string {
	if text := http.StatusText(int(c)); text != "" {
		return fmt.Sprintf("%d %s", int(c), text)
	}
	return fmt.Sprintf("%d", int(c))
}

// ShapeOf maps a result type to its Shape: []byte is raw, StatusCode is
// status-only, string is text, everything else is decoded.
func ShapeOf[T any]() Shape {
	switch any(*new(T)).(type) {
	case []byte:
		return ShapeRaw
	case StatusCode:
		return ShapeStatus
	case string:
		return ShapeText
	}
	return ShapeDecoded
}

// decodeOptions carries what the decoded-body adapter needs beyond the response.
type decodeOptions struct {
	encoding Encoding
	strict   bool
}

// convertResponse applies the adapter for shape to resp and always closes the body.
func convertResponse[T any](shape Shape, resp *http.Response, opts decodeOptions) (T, error) {
	var zero T
	defer resp.Body.Close()

	switch shape {
	case ShapeStatus:
		_, _ = io.Copy(io.Discard, resp.Body)
		return castResult[T](StatusCode(resp.StatusCode))
	case ShapeRaw:
		body, err := readSuccessBody(resp)
		if err != nil {
			return zero, err
		}
		return castResult[T](body)
	case ShapeText:
		body, err := readSuccessBody(resp)
		if err != nil {
			return zero, err
		}
		return castResult[T](string(body))
	case ShapeDecoded:
		body, err := readSuccessBody(resp)
		if err != nil {
			return zero, err
		}
		contentType := resp.Header.Get(HeaderContentType)
		var out T
		if err = decodeBody(body, contentType, opts.encoding, opts.strict, &out); err != nil {
			method, url := requestOf(resp)
			return zero, &DecodeError{
				Method:      method,
				URL:         url,
				StatusCode:  resp.StatusCode,
				ContentType: contentType,
				Err:         err,
			}
		}
		return out, nil
	}
	return zero, fmt.Errorf("unsupported return shape %s", shape)
}

func castResult[T any](v any) (T, error) {
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cannot return %T as %T", v, zero)
	}
	return out, nil
}

// readSuccessBody returns the whole body of a 2xx response, or an *ApiError.
func readSuccessBody(resp *http.Response) ([]byte, error) {
	if err := validateResponse(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// validateResponse checks the response for valid HTTP status codes (specifically for 2xx codes).
// It returns an error if the status code is not a valid 2xx code or if the response is nil.
func validateResponse(response *http.Response) error {
	if response == nil {
		return &ApiError{
			Method:     "<unknown method>",
			URL:        "<unknown URL>",
			StatusCode: 0,
			Body:       "server unreachable: verify the host is correct and the network is accessible",
		}
	}
	if StatusCode(response.StatusCode).IsSuccess() {
		return nil
	}
	method, url := requestOf(response)
	return &ApiError{
		Method:     method,
		URL:        url,
		StatusCode: response.StatusCode,
		Body:       getResponseBodyAsStr(response),
	}
}

func requestOf(response *http.Response) (method, url string) {
	method, url = "<unknown method>", "<unknown URL>"
	if response.Request != nil {
		if response.Request.URL != nil {
			url = response.Request.URL.String()
		}
		method = response.Request.Method
	}
	return method, url
}

// getResponseBodyAsStr reads and returns the HTTP response body as a string.
// If the response body contains valid JSON, it returns a pretty-printed version.
func getResponseBodyAsStr(r *http.Response) string {
	var b bytes.Buffer
	if r == nil || r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	if err = json.Indent(&b, body, "", "  "); err == nil {
		return b.String()
	}
	return string(body)
}
