package core

// HTTP-related constants for REST operations
// These constants provide type-safe header names, content types, and auth types

// HTTP Header Names
const (
	HeaderAccept        = "Accept"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"
	HeaderRequestID     = "X-Request-ID"
)

// HTTP Content Types
const (
	ContentTypeJSON           = "application/json"
	ContentTypeMsgpack        = "application/msgpack"
	ContentTypeXMsgpack       = "application/x-msgpack"
	ContentTypeVndMsgpack     = "application/vnd.msgpack"
	ContentTypeMultipartForm  = "multipart/form-data"
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
	ContentTypeTextPlain      = "text/plain"
	ContentTypeOctetStream    = "application/octet-stream"
)

// HTTP Authentication Types
const (
	AuthTypeBasic  = "Basic"
	AuthTypeBearer = "Bearer"
)

// Environment variables
const (
	EnvLogLevel = "APICLIENT_LOG"
)
