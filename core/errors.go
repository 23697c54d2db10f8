package core

import (
	"errors"
	"fmt"
)

// ErrNotSupported is wrapped by a RequestError when the configured server
// version is older than the endpoint's AvailableFrom version.
var ErrNotSupported = errors.New("endpoint not supported by server version")

// ApiError is returned when a response status is outside the 2xx range and the
// return shape requires a successful response.
type ApiError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *ApiError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("response body: %s", e.Body)
	}
	return fmt.Sprintf(
		"%s request to %s returned status code %d"+
			" - response body: %s", e.Method, e.URL, e.StatusCode, e.Body,
	)
}

// DecodeError is returned when a successful response body does not match the
// declared decoded shape.
type DecodeError struct {
	Method      string
	URL         string
	StatusCode  int
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf(
		"failed to decode %s response from %s (status %d, content type %q): %v",
		e.Method, e.URL, e.StatusCode, e.ContentType, e.Err,
	)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RequestError is returned when a request cannot be built: missing arguments,
// a malformed URL after interpolation, an illegal header, or a body that
// fails to encode.
type RequestError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("endpoint %s: %s: %v", e.Endpoint, e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// DeclarationError describes an invalid endpoint declaration. Declarations are
// validated as a whole; several DeclarationErrors are joined with errors.Join.
type DeclarationError struct {
	Endpoint string
	Reason   string
}

func (e *DeclarationError) Error() string {
	if e.Endpoint == "" {
		return "invalid endpoint declaration: " + e.Reason
	}
	return fmt.Sprintf("invalid declaration of endpoint %s: %s", e.Endpoint, e.Reason)
}

func IsApiError(err error) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr)
}

func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

func IsRequestError(err error) bool {
	var requestErr *RequestError
	return errors.As(err, &requestErr)
}

func IsDeclarationError(err error) bool {
	var declErr *DeclarationError
	return errors.As(err, &declErr)
}

// IgnoreStatusCodes returns nil when err is an ApiError with one of codes.
func IgnoreStatusCodes(err error, codes ...int) error {
	var apiErr *ApiError
	if !errors.As(err, &apiErr) {
		return err
	}
	for _, code := range codes {
		if apiErr.StatusCode == code {
			return nil
		}
	}
	return err
}

// ExpectStatusCodes reports whether err is an ApiError with one of codes.
func ExpectStatusCodes(err error, codes ...int) bool {
	var apiErr *ApiError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.StatusCode == code {
			return true
		}
	}
	return false
}
