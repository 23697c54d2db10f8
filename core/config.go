package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the configuration shared by every method of a client.
// The zero value is usable: no base URL, no timeout, no logging.
type Config struct {
	BaseURL            string         // Prefix for relative URL templates, e.g. "https://api.example.com/v1".
	InsecureSkipVerify bool           // Skip TLS certificate verification.
	RespectProxy       bool           // Whether to respect proxy environment variables (HTTP_PROXY, HTTPS_PROXY, NO_PROXY).
	Timeout            *time.Duration // Overall request timeout. Nil means none.
	MaxConnections     int            // Maximum number of concurrent connections per host. 0 means unlimited.
	UserAgent          string         // Optional custom User-Agent header. WithUserAgent fills a default.
	ServerVersion      string         // Optional server version; endpoints declared with a newer AvailableFrom fail with ErrNotSupported.
	RequestIDHeader    string         // When set, every request carries a fresh UUID in this header.
	StrictDecoding     bool           // Reject unknown fields when decoding response bodies.
	Tracing            bool           // Wrap the transport with OpenTelemetry instrumentation.

	// Logger receives request/response logs. WithLogger fills it from the
	// APICLIENT_LOG environment variable.
	Logger *zap.Logger

	// HTTPClient replaces the client built from the transport settings above.
	HTTPClient *http.Client

	// BeforeRequestFn is an optional function hook executed before a request is sent.
	// It allows for request inspection, mutation, or logging.
	//
	// Parameters:
	//   - ctx: The request context for managing deadlines and cancellations.
	//   - req: Request object
	//   - verb: The HTTP method (e.g., GET, POST, PUT).
	//   - url: The target URL (path and query parameters).
	//   - body: A fresh reader over the encoded request body, nil without a body.
	//
	// Return:
	//   - error: Any error returned will abort the request.
	BeforeRequestFn func(ctx context.Context, r *http.Request, verb, url string, body io.Reader) error

	// AfterRequestFn is an optional function hook executed after a response is
	// received and before it is converted to the method's return shape.
	// Returning an error closes the response and aborts the call.
	AfterRequestFn func(ctx context.Context, response *http.Response) error

	serverVersion *version.Version
}

// ConfigFunc defines a function that can modify or validate a Config.
type ConfigFunc func(*Config) error

// Validate applies the given ConfigFunc validators to the config and returns
// every error they report.
func (config *Config) Validate(validators ...ConfigFunc) error {
	var errs []error
	for _, fn := range validators {
		if err := fn(config); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// defaultValidators are applied by NewClient before any caller-supplied ones.
func defaultValidators() []ConfigFunc {
	return []ConfigFunc{
		WithBaseURL,
		WithUserAgent,
		WithLogger,
		WithServerVersion,
	}
}

// WithTimeout returns a ConfigFunc that sets a default timeout if none is provided.
func WithTimeout(timeout time.Duration) ConfigFunc {
	return func(config *Config) error {
		if timeout < 0 {
			return fmt.Errorf("timeout cannot be negative: %s", timeout)
		}
		if config.Timeout == nil {
			config.Timeout = &timeout
		}
		return nil
	}
}

// WithMaxConnections returns a ConfigFunc that sets the maximum number of connections
// if not explicitly provided.
func WithMaxConnections(maxConnections int) ConfigFunc {
	return func(config *Config) error {
		if config.MaxConnections < 0 {
			return fmt.Errorf("max connections cannot be negative: %d", config.MaxConnections)
		}
		if config.MaxConnections == 0 {
			config.MaxConnections = maxConnections
		}
		return nil
	}
}

// WithUserAgent sets a default User-Agent header if none is provided in the config.
func WithUserAgent(config *Config) error {
	if config.UserAgent == "" {
		config.UserAgent = fmt.Sprintf(
			"%s,os:%s,arch:%s",
			fmt.Sprintf("go-api-client-%s", ClientVersion()),
			runtime.GOOS,
			runtime.GOARCH,
		)
	}
	return nil
}

// WithBaseURL checks that BaseURL, when set, is an absolute http(s) URL and
// strips a trailing slash.
func WithBaseURL(config *Config) error {
	if config.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must use http or https", config.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", config.BaseURL)
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return nil
}

// WithServerVersion parses ServerVersion once so calls can compare against it.
func WithServerVersion(config *Config) error {
	if config.ServerVersion == "" {
		config.serverVersion = nil
		return nil
	}
	v, err := version.NewVersion(config.ServerVersion)
	if err != nil {
		return fmt.Errorf("invalid server version %q: %w", config.ServerVersion, err)
	}
	config.serverVersion = v
	return nil
}

// WithLogger installs a logger when none is provided. APICLIENT_LOG selects the
// level (debug, info, warn, error); when it is unset logging is disabled.
func WithLogger(config *Config) error {
	if config.Logger != nil {
		return nil
	}
	logger, err := NewLogger(os.Getenv(EnvLogLevel))
	if err != nil {
		return err
	}
	config.Logger = logger
	return nil
}

// NewLogger builds a console logger writing to stderr at the given level.
// An empty level returns a no-op logger.
func NewLogger(level string) (*zap.Logger, error) {
	if strings.TrimSpace(level) == "" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", EnvLogLevel, level, err)
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core).Named("apiclient"), nil
}
