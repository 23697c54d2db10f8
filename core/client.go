package core

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client is the runtime half of a generated API client: one transport handle
// and one Authenticator, both fixed at construction. It is safe for
// concurrent use.
type Client struct {
	config *Config
	client *http.Client
	auth   Authenticator
}

// NewClient validates auth and config and builds the transport. A nil config
// is treated as the zero Config; a nil auth as NoAuth(). Extra validators run
// after the defaults (base URL, user agent, logger, server version).
func NewClient(auth Authenticator, config *Config, validators ...ConfigFunc) (*Client, error) {
	var cfg Config
	if config != nil {
		cfg = *config
	}
	if err := cfg.Validate(append(defaultValidators(), validators...)...); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	auth = normalizeAuth(auth)
	if err := auth.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s authenticator: %w", auth.Kind(), err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(&cfg)
	}

	cfg.Logger.Debug("client created",
		zap.Stringer("auth", auth.Kind()),
		zap.String("base_url", cfg.BaseURL),
		zap.String("server_version", cfg.ServerVersion),
	)

	return &Client{
		config: &cfg,
		client: httpClient,
		auth:   auth,
	}, nil
}

func newHTTPClient(cfg *Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	transport.MaxConnsPerHost = cfg.MaxConnections
	if !cfg.RespectProxy {
		transport.Proxy = nil
	}

	client := &http.Client{Transport: transport}
	if cfg.Tracing {
		client.Transport = otelhttp.NewTransport(transport)
	}
	if cfg.Timeout != nil {
		client.Timeout = *cfg.Timeout
	}
	return client
}

// normalizeAuth maps nil to NoneAuthenticator and dereferences pointers to the
// built-in variants so the client always holds its own copy.
func normalizeAuth(auth Authenticator) Authenticator {
	switch a := auth.(type) {
	case nil:
		return NoneAuthenticator{}
	case *NoneAuthenticator:
		return NoneAuthenticator{}
	case *BearerAuthenticator:
		if a == nil {
			return NoneAuthenticator{}
		}
		return *a
	case *BasicAuthenticator:
		if a == nil {
			return NoneAuthenticator{}
		}
		return *a
	case *HeaderAuthenticator:
		if a == nil {
			return NoneAuthenticator{}
		}
		return *a
	}
	return auth
}

// Auth returns the authenticator. It cannot be replaced after construction.
func (c *Client) Auth() Authenticator {
	return c.auth
}

// Config returns a copy of the validated configuration.
func (c *Client) Config() Config {
	return *c.config
}

func (c *Client) HTTPClient() *http.Client {
	return c.client
}

func (c *Client) Logger() *zap.Logger {
	return c.config.Logger
}
