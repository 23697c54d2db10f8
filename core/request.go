package core

import (
	"bytes"
	"context"
	"encoding"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"
)

// preparedRequest is a built request plus a copy of its encoded body for the
// before-request hook and logging.
type preparedRequest struct {
	req  *http.Request
	body []byte
}

func (c *Client) buildRequest(ctx context.Context, e *Endpoint, args Args) (*preparedRequest, error) {
	fail := func(op string, err error) error {
		return &RequestError{Endpoint: e.name, Op: op, Err: err}
	}

	if err := c.checkVersion(e); err != nil {
		return nil, fail("version check", err)
	}
	if err := e.checkArgs(args); err != nil {
		return nil, fail("arguments", err)
	}

	rawURL, err := e.url.Expand(e.lookup(args, url.PathEscape))
	if err != nil {
		return nil, fail("url", err)
	}
	target, err := c.resolveURL(rawURL)
	if err != nil {
		return nil, fail("url", err)
	}
	if err = e.addQuery(target, args); err != nil {
		return nil, fail("query", err)
	}

	body, contentType, err := e.encodeArgsBody(args)
	if err != nil {
		return nil, fail("body", err)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, e.verb, target.String(), reader)
	if err != nil {
		return nil, fail("request", err)
	}

	// Defaults first; endpoint headers may override them, auth always wins.
	req.Header.Set(HeaderAccept, e.accept())
	if body != nil {
		req.Header.Set(HeaderContentType, contentType)
	}
	if c.config.UserAgent != "" {
		req.Header.Set(HeaderUserAgent, c.config.UserAgent)
	}
	if c.config.RequestIDHeader != "" {
		req.Header.Set(c.config.RequestIDHeader, uuid.NewString())
	}
	for _, h := range e.headers {
		value, err := h.value.Expand(e.lookup(args, nil))
		if err != nil {
			return nil, fail("header "+h.name, err)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fail("header "+h.name, fmt.Errorf("value %q is not a legal header value", value))
		}
		req.Header.Set(h.name, value)
	}
	c.auth.setAuthHeader(req.Header)

	return &preparedRequest{req: req, body: body}, nil
}

// send runs the hooks around the transport call. Transport errors are
// returned unchanged.
func (c *Client) send(ctx context.Context, e *Endpoint, prepared *preparedRequest) (*http.Response, error) {
	req := prepared.req
	logger := c.config.Logger

	beforeRequestLog(logger, e.name, req, prepared.body)
	if c.config.BeforeRequestFn != nil {
		var hookBody io.Reader
		if prepared.body != nil {
			hookBody = bytes.NewReader(prepared.body)
		}
		if err := c.config.BeforeRequestFn(ctx, req, req.Method, req.URL.String(), hookBody); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	response, err := c.client.Do(req)
	if err != nil {
		transportErrorLog(logger, e.name, req, err)
		return nil, err
	}
	afterRequestLog(logger, e.name, response, time.Since(start))

	if c.config.AfterRequestFn != nil {
		if err = c.config.AfterRequestFn(ctx, response); err != nil {
			response.Body.Close()
			return nil, err
		}
	}
	return response, nil
}

func (c *Client) checkVersion(e *Endpoint) error {
	if e.availableFrom == nil || c.config.serverVersion == nil {
		return nil
	}
	if c.config.serverVersion.LessThan(e.availableFrom) {
		return fmt.Errorf("%w: %s requires %s, server is %s",
			ErrNotSupported, e.name, e.availableFrom, c.config.serverVersion)
	}
	return nil
}

// resolveURL parses an expanded template. Relative URLs are joined to BaseURL;
// the result must be absolute.
func (c *Client) resolveURL(rawURL string) (*url.URL, error) {
	if !hasScheme(rawURL) && c.config.BaseURL != "" {
		if strings.HasPrefix(rawURL, "/") {
			rawURL = c.config.BaseURL + rawURL
		} else {
			rawURL = c.config.BaseURL + "/" + rawURL
		}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL (set Config.BaseURL for relative templates)", rawURL)
	}
	return u, nil
}

func hasScheme(rawURL string) bool {
	scheme, _, ok := strings.Cut(rawURL, "://")
	return ok && scheme != "" && !strings.ContainsAny(scheme, "/?#{")
}

// checkArgs reports unknown arguments and declared parameters without one.
func (e *Endpoint) checkArgs(args Args) error {
	var errs []error
	unknown := make([]string, 0)
	for name := range args {
		if _, ok := e.paramIndex[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, fmt.Errorf("unknown argument %q", name))
	}
	for _, p := range e.params {
		if _, ok := args[p.Name]; !ok {
			errs = append(errs, fmt.Errorf("missing %s argument %q", p.Kind, p.Name))
		}
	}
	return errors.Join(errs...)
}

// lookup resolves template placeholders: parameters shadow scope values.
// escape, when non-nil, is applied to parameter values only.
func (e *Endpoint) lookup(args Args, escape func(string) string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if _, ok := e.paramIndex[name]; ok {
			v, ok := args[name]
			if !ok {
				return "", false
			}
			s := stringify(v)
			if escape != nil {
				s = escape(s)
			}
			return s, true
		}
		if v, ok := e.scope[name]; ok {
			return stringify(v), true
		}
		return "", false
	}
}

func (e *Endpoint) addQuery(u *url.URL, args Args) error {
	if len(e.queryParams) == 0 {
		return nil
	}
	query := u.Query()
	added := false
	for _, name := range e.queryParams {
		value := args[name]
		if value == nil {
			continue
		}
		for _, s := range formStrings(reflect.ValueOf(value)) {
			query.Add(name, s)
			added = true
		}
	}
	if added {
		u.RawQuery = query.Encode()
	}
	return nil
}

// encodeArgsBody returns a nil body when the endpoint has none or the body
// argument is nil.
func (e *Endpoint) encodeArgsBody(args Args) ([]byte, string, error) {
	if e.bodyParam != "" {
		value := args[e.bodyParam]
		if value == nil {
			return nil, "", nil
		}
		return encodeBody(e.encoding, value)
	}
	if len(e.multipartParams) == 0 {
		return nil, "", nil
	}

	var parts Parts
	if e.multipart == MultipartAggregate {
		name := e.multipartParams[0]
		expanded, err := toParts(args[name])
		if err != nil {
			return nil, "", fmt.Errorf("multipart parameter %q: %w", name, err)
		}
		parts = expanded
	} else {
		for _, name := range e.multipartParams {
			parts = append(parts, Part{Name: name, Value: args[name]})
		}
	}
	return encodeMultipart(parts)
}

func (e *Endpoint) accept() string {
	if e.shape != ShapeDecoded {
		return "*/*"
	}
	if e.encoding == EncodingMsgpack {
		return ContentTypeMsgpack + ", " + ContentTypeJSON + ";q=0.9"
	}
	return ContentTypeJSON
}

// stringify renders a template value. TextMarshalers and Stringers are honored.
func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case encoding.TextMarshaler:
		if text, err := typed.MarshalText(); err == nil {
			return string(text)
		}
	}
	return fmt.Sprint(v)
}
