package core

import (
	"context"
)

// Args maps parameter names to call arguments.
type Args map[string]any

// Method is a declared endpoint whose calls return T. The return shape is
// fixed by T (see ShapeOf).
type Method[T any] struct {
	*Endpoint
}

// Declare validates spec for result type T.
func Declare[T any](spec EndpointSpec) (*Method[T], error) {
	endpoint, err := DeclareEndpoint(spec, ShapeOf[T]())
	if err != nil {
		return nil, err
	}
	return &Method[T]{Endpoint: endpoint}, nil
}

// MustDeclare is like Declare but panics on an invalid declaration. It is meant
// for package-level variables so a bad declaration stops the program at init.
func MustDeclare[T any](spec EndpointSpec) *Method[T] {
	m, err := Declare[T](spec)
	if err != nil {
		panic(err)
	}
	return m
}

// Call issues one request through c and converts the response to T.
//
// Errors:
//   - *RequestError when the request cannot be built (including ErrNotSupported)
//   - the transport error from net/http, unchanged
//   - *ApiError for a non-2xx status (every shape except status-only)
//   - *DecodeError when a 2xx body does not decode into T
func (m *Method[T]) Call(ctx context.Context, c *Client, args Args) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	prepared, err := c.buildRequest(ctx, m.Endpoint, args)
	if err != nil {
		return zero, err
	}
	response, err := c.send(ctx, m.Endpoint, prepared)
	if err != nil {
		return zero, err
	}
	return convertResponse[T](m.shape, response, decodeOptions{
		encoding: m.encoding,
		strict:   c.config.StrictDecoding,
	})
}
