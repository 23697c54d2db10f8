package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/net/http/httpguts"
)

// AuthKind identifies an Authenticator variant.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthBearer
	AuthBasic
	AuthCustom
)

func (k AuthKind) String() string {
	switch k {
	case AuthNone:
		return "none"
	case AuthBearer:
		return "bearer"
	case AuthBasic:
		return "basic"
	case AuthCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Authenticator is the credential a Client applies to every request it issues.
// The set of implementations is closed: NoneAuthenticator, BearerAuthenticator,
// BasicAuthenticator and HeaderAuthenticator.
type Authenticator interface {
	Kind() AuthKind
	validate() error
	setAuthHeader(headers http.Header)
}

// NoAuth returns an Authenticator that leaves requests untouched.
func NoAuth() Authenticator {
	return NoneAuthenticator{}
}

// BearerAuth returns an Authenticator sending "Authorization: Bearer <token>".
func BearerAuth(token string) Authenticator {
	return BearerAuthenticator{Token: token}
}

// BasicAuth returns an Authenticator sending HTTP Basic credentials.
// The encoded credentials are computed once here.
func BasicAuth(username, password string) Authenticator {
	auth := BasicAuthenticator{Username: username, Password: password}
	auth.encodedAuth = auth.encode()
	return auth
}

// CustomAuth returns an Authenticator that sets an arbitrary header, e.g.
// CustomAuth("X-Api-Key", key).
func CustomAuth(header, value string) Authenticator {
	return HeaderAuthenticator{Header: header, Value: value}
}

type NoneAuthenticator struct{}

func (NoneAuthenticator) Kind() AuthKind { return AuthNone }

func (NoneAuthenticator) validate() error { return nil }

func (NoneAuthenticator) setAuthHeader(_ http.Header) {}

func (NoneAuthenticator) String() string { return "none" }

type BearerAuthenticator struct {
	Token string
}

func (BearerAuthenticator) Kind() AuthKind { return AuthBearer }

func (auth BearerAuthenticator) validate() error {
	if auth.Token == "" {
		return errors.New("bearer token cannot be empty")
	}
	if !httpguts.ValidHeaderFieldValue(auth.Token) {
		return errors.New("bearer token contains characters not allowed in a header value")
	}
	return nil
}

func (auth BearerAuthenticator) setAuthHeader(headers http.Header) {
	headers.Set(HeaderAuthorization, AuthTypeBearer+" "+auth.Token)
}

// String redacts the token.
func (BearerAuthenticator) String() string { return "bearer(***)" }

type BasicAuthenticator struct {
	Username    string
	Password    string
	encodedAuth string // Cached Base64-encoded credentials
}

func (BasicAuthenticator) Kind() AuthKind { return AuthBasic }

func (auth BasicAuthenticator) validate() error {
	if auth.Username == "" {
		return errors.New("basic auth username cannot be empty")
	}
	return nil
}

func (auth BasicAuthenticator) encode() string {
	return base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
}

func (auth BasicAuthenticator) setAuthHeader(headers http.Header) {
	encoded := auth.encodedAuth
	if encoded == "" {
		// Struct literal instead of BasicAuth()
		encoded = auth.encode()
	}
	headers.Set(HeaderAuthorization, AuthTypeBasic+" "+encoded)
}

func (auth BasicAuthenticator) String() string {
	return fmt.Sprintf("basic(%s:***)", auth.Username)
}

// HeaderAuthenticator carries a credential in a custom header.
type HeaderAuthenticator struct {
	Header string
	Value  string
}

func (HeaderAuthenticator) Kind() AuthKind { return AuthCustom }

func (auth HeaderAuthenticator) validate() error {
	if auth.Header == "" {
		return errors.New("custom auth header name cannot be empty")
	}
	if !httpguts.ValidHeaderFieldName(auth.Header) {
		return fmt.Errorf("custom auth header name %q is not a valid HTTP header name", auth.Header)
	}
	if !httpguts.ValidHeaderFieldValue(auth.Value) {
		return fmt.Errorf("custom auth header %q has a value not allowed in a header", auth.Header)
	}
	return nil
}

func (auth HeaderAuthenticator) setAuthHeader(headers http.Header) {
	headers.Set(auth.Header, auth.Value)
}

func (auth HeaderAuthenticator) String() string {
	return fmt.Sprintf("custom(%s: ***)", auth.Header)
}
