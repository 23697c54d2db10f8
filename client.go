package apiclient

import (
	"github.com/vast-data/go-api-client/core"
)

type (
	Client        = core.Client
	Config        = core.Config
	ConfigFunc    = core.ConfigFunc
	Authenticator = core.Authenticator
	Endpoint      = core.Endpoint
	EndpointSpec  = core.EndpointSpec
	Param         = core.Param
	ParamKind     = core.ParamKind
	Scope         = core.Scope
	Header        = core.Header
	Encoding      = core.Encoding
	MultipartMode = core.MultipartMode
	Shape         = core.Shape
	StatusCode    = core.StatusCode
	Args          = core.Args
	FileData      = core.FileData
	Part          = core.Part
	Parts         = core.Parts

	ApiError         = core.ApiError
	DecodeError      = core.DecodeError
	RequestError     = core.RequestError
	DeclarationError = core.DeclarationError
)

type Method[T any] = core.Method[T]

const (
	EncodingJSON    = core.EncodingJSON
	EncodingMsgpack = core.EncodingMsgpack
	EncodingForm    = core.EncodingForm

	MultipartFields    = core.MultipartFields
	MultipartAggregate = core.MultipartAggregate

	ShapeDecoded = core.ShapeDecoded
	ShapeRaw     = core.ShapeRaw
	ShapeStatus  = core.ShapeStatus
	ShapeText    = core.ShapeText
)

var ErrNotSupported = core.ErrNotSupported

func NewClient(auth Authenticator, config *Config) (*Client, error) {
	return core.NewClient(auth, config)
}

func Declare[T any](spec EndpointSpec) (*Method[T], error) {
	return core.Declare[T](spec)
}

func MustDeclare[T any](spec EndpointSpec) *Method[T] {
	return core.MustDeclare[T](spec)
}

func NoAuth() Authenticator                             { return core.NoAuth() }
func BearerAuth(token string) Authenticator             { return core.BearerAuth(token) }
func BasicAuth(username, password string) Authenticator { return core.BasicAuth(username, password) }
func CustomAuth(header, value string) Authenticator     { return core.CustomAuth(header, value) }

func PathParam(name string) Param      { return core.PathParam(name) }
func QueryParam(name string) Param     { return core.QueryParam(name) }
func BodyParam(name string) Param      { return core.BodyParam(name) }
func MultipartParam(name string) Param { return core.MultipartParam(name) }

func IsApiError(err error) bool         { return core.IsApiError(err) }
func IsDecodeError(err error) bool      { return core.IsDecodeError(err) }
func IsRequestError(err error) bool     { return core.IsRequestError(err) }
func IsDeclarationError(err error) bool { return core.IsDeclarationError(err) }

func IgnoreStatusCodes(err error, codes ...int) error {
	return core.IgnoreStatusCodes(err, codes...)
}

func ExpectStatusCodes(err error, codes ...int) bool {
	return core.ExpectStatusCodes(err, codes...)
}
