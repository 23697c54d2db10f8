package core

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	version "github.com/hashicorp/go-version"
	"golang.org/x/net/http/httpguts"
)

// ParamKind tells the request pipeline what to do with an argument.
type ParamKind int

const (
	// ParamPath values are interpolated into the URL template or header templates.
	ParamPath ParamKind = iota
	// ParamQuery values are appended to the query string.
	ParamQuery
	// ParamBody is the typed request body, encoded with the endpoint Encoding.
	ParamBody
	// ParamMultipart values become parts of a multipart/form-data body.
	ParamMultipart
)

func (k ParamKind) String() string {
	switch k {
	case ParamPath:
		return "path"
	case ParamQuery:
		return "query"
	case ParamBody:
		return "body"
	case ParamMultipart:
		return "multipart"
	default:
		return "unknown"
	}
}

// Param is one declared method parameter.
type Param struct {
	Name string
	Kind ParamKind
}

func PathParam(name string) Param      { return Param{Name: name, Kind: ParamPath} }
func QueryParam(name string) Param     { return Param{Name: name, Kind: ParamQuery} }
func BodyParam(name string) Param      { return Param{Name: name, Kind: ParamBody} }
func MultipartParam(name string) Param { return Param{Name: name, Kind: ParamMultipart} }

// Scope holds outer-scope values (typically package constants) that URL and
// header templates may reference. Parameters shadow scope entries.
type Scope map[string]any

// Header is a per-endpoint request header; Value is a template.
type Header struct {
	Name  string
	Value string
}

// Encoding selects how a ParamBody argument is serialized.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMsgpack
	EncodingForm
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingMsgpack:
		return "msgpack"
	case EncodingForm:
		return "form"
	default:
		return "unknown"
	}
}

// ContentType is the Content-Type sent with a body in this encoding.
func (e Encoding) ContentType() string {
	switch e {
	case EncodingMsgpack:
		return ContentTypeMsgpack
	case EncodingForm:
		return ContentTypeFormURLEncoded
	default:
		return ContentTypeJSON
	}
}

// ParseEncoding maps "json", "msgpack" and "form" to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return EncodingJSON, nil
	case "msgpack":
		return EncodingMsgpack, nil
	case "form":
		return EncodingForm, nil
	}
	return 0, fmt.Errorf("unknown encoding %q (expected json, msgpack or form)", s)
}

// MultipartMode controls how ParamMultipart arguments form the request body.
type MultipartMode int

const (
	// MultipartFields combines every multipart parameter into one form, one
	// part per parameter, named after the parameter.
	MultipartFields MultipartMode = iota
	// MultipartAggregate takes a single parameter holding all parts (Parts,
	// a map or a struct).
	MultipartAggregate
)

func (m MultipartMode) String() string {
	if m == MultipartAggregate {
		return "aggregate"
	}
	return "fields"
}

// EndpointSpec is the declaration of one client method.
type EndpointSpec struct {
	Name          string
	Verb          string
	URL           string
	Params        []Param
	Scope         Scope
	Headers       []Header
	Encoding      Encoding
	Multipart     MultipartMode
	AvailableFrom string // minimum server version, optional
}

var knownVerbs = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
	http.MethodConnect: {},
	http.MethodTrace:   {},
}

// IsVerb reports whether s (any case) is a supported HTTP method.
func IsVerb(s string) bool {
	_, ok := knownVerbs[strings.ToUpper(s)]
	return ok
}

type headerTemplate struct {
	name  string
	value *Template
}

// Endpoint is a validated, immutable EndpointSpec.
type Endpoint struct {
	name            string
	verb            string
	url             *Template
	params          []Param
	paramIndex      map[string]Param
	scope           Scope
	headers         []headerTemplate
	encoding        Encoding
	multipart       MultipartMode
	bodyParam       string
	multipartParams []string
	queryParams     []string
	shape           Shape
	availableFrom   *version.Version
}

// DeclareEndpoint validates spec for the given return shape. Every violation is
// reported as a *DeclarationError; several are joined with errors.Join and no
// Endpoint is returned.
func DeclareEndpoint(spec EndpointSpec, shape Shape) (*Endpoint, error) {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, &DeclarationError{Endpoint: spec.Name, Reason: fmt.Sprintf(format, args...)})
	}

	e := &Endpoint{
		name:       spec.Name,
		verb:       strings.ToUpper(strings.TrimSpace(spec.Verb)),
		paramIndex: make(map[string]Param, len(spec.Params)),
		scope:      spec.Scope,
		encoding:   spec.Encoding,
		multipart:  spec.Multipart,
		shape:      shape,
	}

	if !IsIdentifier(spec.Name) {
		fail("name %q is not an identifier", spec.Name)
	}
	if e.verb == "" {
		fail("missing HTTP verb")
	} else if !IsVerb(e.verb) {
		fail("unknown HTTP verb %q", spec.Verb)
	}
	if !shape.valid() {
		fail("unknown return shape %d", int(shape))
	}
	if spec.Encoding < EncodingJSON || spec.Encoding > EncodingForm {
		fail("unknown encoding %d", int(spec.Encoding))
	}
	if spec.Multipart != MultipartFields && spec.Multipart != MultipartAggregate {
		fail("unknown multipart mode %d", int(spec.Multipart))
	}

	// Parameters
	for _, p := range spec.Params {
		if !IsIdentifier(p.Name) {
			fail("parameter name %q is not an identifier", p.Name)
			continue
		}
		if _, dup := e.paramIndex[p.Name]; dup {
			fail("duplicate parameter %q", p.Name)
			continue
		}
		e.paramIndex[p.Name] = p
		e.params = append(e.params, p)
		switch p.Kind {
		case ParamPath:
		case ParamQuery:
			e.queryParams = append(e.queryParams, p.Name)
		case ParamBody:
			if e.bodyParam != "" {
				fail("parameters %q and %q are both declared as the request body", e.bodyParam, p.Name)
				continue
			}
			e.bodyParam = p.Name
		case ParamMultipart:
			e.multipartParams = append(e.multipartParams, p.Name)
		default:
			fail("parameter %q has unknown kind %d", p.Name, int(p.Kind))
		}
	}
	if e.bodyParam != "" && len(e.multipartParams) > 0 {
		fail("request body %q cannot be combined with multipart parameters %s",
			e.bodyParam, strings.Join(e.multipartParams, ", "))
	}
	if spec.Multipart == MultipartAggregate && len(e.multipartParams) != 1 {
		fail("aggregate multipart mode needs exactly one multipart parameter, got %d", len(e.multipartParams))
	}

	// Templates
	used := make(map[string]bool)
	resolve := func(where string, tmpl *Template) {
		for _, name := range tmpl.Placeholders() {
			if p, ok := e.paramIndex[name]; ok {
				if p.Kind != ParamPath {
					fail("%s placeholder {%s} refers to %s parameter %q", where, name, p.Kind, name)
				}
				used[name] = true
				continue
			}
			if _, ok := spec.Scope[name]; ok {
				continue
			}
			fail("%s placeholder {%s} does not match any parameter or scope value", where, name)
		}
	}

	if strings.TrimSpace(spec.URL) == "" {
		fail("missing URL template")
	} else if tmpl, err := ParseTemplate(spec.URL); err != nil {
		fail("URL: %v", err)
	} else {
		e.url = tmpl
		resolve("URL", tmpl)
	}

	for _, h := range spec.Headers {
		if !httpguts.ValidHeaderFieldName(h.Name) {
			fail("header name %q is not a valid HTTP header name", h.Name)
			continue
		}
		tmpl, err := ParseTemplate(h.Value)
		if err != nil {
			fail("header %s: %v", h.Name, err)
			continue
		}
		resolve("header "+h.Name, tmpl)
		e.headers = append(e.headers, headerTemplate{name: http.CanonicalHeaderKey(h.Name), value: tmpl})
	}

	for _, p := range e.params {
		if p.Kind == ParamPath && !used[p.Name] {
			fail("path parameter %q is not referenced by the URL or any header", p.Name)
		}
	}

	if spec.AvailableFrom != "" {
		v, err := version.NewVersion(spec.AvailableFrom)
		if err != nil {
			fail("available-from version %q: %v", spec.AvailableFrom, err)
		} else {
			e.availableFrom = v
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return e, nil
}

func (e *Endpoint) Name() string {
	return e.name
}

func (e *Endpoint) Verb() string {
	return e.verb
}

// URL returns the raw URL template.
func (e *Endpoint) URL() string {
	return e.url.String()
}

func (e *Endpoint) Shape() Shape {
	return e.shape
}

func (e *Endpoint) Encoding() Encoding {
	return e.encoding
}

func (e *Endpoint) MultipartMode() MultipartMode {
	return e.multipart
}

// Params returns a copy of the declared parameters in declaration order.
func (e *Endpoint) Params() []Param {
	return append([]Param(nil), e.params...)
}

func (e *Endpoint) Headers() []Header {
	headers := make([]Header, 0, len(e.headers))
	for _, h := range e.headers {
		headers = append(headers, Header{Name: h.name, Value: h.value.String()})
	}
	return headers
}

// AvailableFrom returns the minimum server version, or "" when unrestricted.
func (e *Endpoint) AvailableFrom() string {
	if e.availableFrom == nil {
		return ""
	}
	return e.availableFrom.String()
}

// HasBody reports whether calls send a request body.
func (e *Endpoint) HasBody() bool {
	return e.bodyParam != "" || len(e.multipartParams) > 0
}

// ScopeNames returns the sorted scope keys.
func (e *Endpoint) ScopeNames() []string {
	names := make([]string, 0, len(e.scope))
	for name := range e.scope {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
