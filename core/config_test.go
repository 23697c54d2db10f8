package core

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func TestConfigValidators(t *testing.T) {
	config := &Config{}
	require.NoError(t, config.Validate(
		WithTimeout(30*time.Second),
		WithMaxConnections(10),
		WithUserAgent,
	))
	require.NotNil(t, config.Timeout)
	assert.Equal(t, 30*time.Second, *config.Timeout)
	assert.Equal(t, 10, config.MaxConnections)
	assert.Contains(t, config.UserAgent, "go-api-client-")

	// Explicit values win over defaults.
	timeout := 5 * time.Second
	config = &Config{Timeout: &timeout, MaxConnections: 2, UserAgent: "mine"}
	require.NoError(t, config.Validate(WithTimeout(time.Minute), WithMaxConnections(10), WithUserAgent))
	assert.Equal(t, 5*time.Second, *config.Timeout)
	assert.Equal(t, 2, config.MaxConnections)
	assert.Equal(t, "mine", config.UserAgent)
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		fn     ConfigFunc
	}{
		{"base url without scheme", Config{BaseURL: "example.com/api"}, WithBaseURL},
		{"base url ftp", Config{BaseURL: "ftp://example.com"}, WithBaseURL},
		{"base url without host", Config{BaseURL: "https://"}, WithBaseURL},
		{"bad server version", Config{ServerVersion: "five"}, WithServerVersion},
		{"negative max connections", Config{MaxConnections: -1}, WithMaxConnections(4)},
		{"negative timeout", Config{}, WithTimeout(-time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.config.Validate(tt.fn))
		})
	}
}

func TestWithBaseURLTrimsSlash(t *testing.T) {
	config := &Config{BaseURL: "https://example.com/api/"}
	require.NoError(t, config.Validate(WithBaseURL))
	assert.Equal(t, "https://example.com/api", config.BaseURL)
}

func TestWithLogger(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	config := &Config{}
	require.NoError(t, config.Validate(WithLogger))
	require.NotNil(t, config.Logger)

	t.Setenv(EnvLogLevel, "debug")
	config = &Config{}
	require.NoError(t, config.Validate(WithLogger))
	assert.True(t, config.Logger.Core().Enabled(zap.DebugLevel))

	t.Setenv(EnvLogLevel, "chatty")
	config = &Config{}
	assert.Error(t, config.Validate(WithLogger))

	injected := zap.NewExample()
	config = &Config{Logger: injected}
	require.NoError(t, config.Validate(WithLogger))
	assert.Same(t, injected, config.Logger)
}

func TestNewClientTransport(t *testing.T) {
	timeout := 3 * time.Second
	client, err := NewClient(BearerAuth("t"), &Config{
		InsecureSkipVerify: true,
		MaxConnections:     4,
		Timeout:            &timeout,
	})
	require.NoError(t, err)

	httpClient := client.HTTPClient()
	assert.Equal(t, timeout, httpClient.Timeout)
	transport, ok := httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, 4, transport.MaxConnsPerHost)
	assert.Nil(t, transport.Proxy)

	assert.Equal(t, BearerAuthenticator{Token: "t"}, client.Auth())
	assert.NotNil(t, client.Logger())
	assert.NotEmpty(t, client.Config().UserAgent)
}

func TestNewClientRespectProxyAndTracing(t *testing.T) {
	client, err := NewClient(nil, &Config{RespectProxy: true})
	require.NoError(t, err)
	transport := client.HTTPClient().Transport.(*http.Transport)
	assert.NotNil(t, transport.Proxy)
	assert.Zero(t, client.HTTPClient().Timeout)

	client, err = NewClient(nil, &Config{Tracing: true})
	require.NoError(t, err)
	assert.IsType(t, &otelhttp.Transport{}, client.HTTPClient().Transport)
}

func TestNewClientErrors(t *testing.T) {
	_, err := NewClient(CustomAuth("Bad Header", "v"), nil)
	assert.ErrorContains(t, err, "invalid custom authenticator")

	_, err = NewClient(nil, &Config{BaseURL: "nope"})
	assert.ErrorContains(t, err, "invalid client config")
}

func TestNewClientCopiesConfig(t *testing.T) {
	injected := &http.Client{}
	config := &Config{UserAgent: "first", HTTPClient: injected}
	client, err := NewClient(nil, config)
	require.NoError(t, err)
	config.UserAgent = "second"

	assert.Equal(t, "first", client.Config().UserAgent)
	assert.Same(t, injected, client.HTTPClient())
}

func TestNewClientProxyEnvironment(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://proxy.internal:3128")
	t.Setenv("NO_PROXY", "")
	req, err := http.NewRequest(http.MethodGet, "https://api.example.com/items", nil)
	require.NoError(t, err)

	tests := []struct {
		name         string
		respectProxy bool
		want         string
	}{
		{name: "honored", respectProxy: true, want: "http://proxy.internal:3128"},
		{name: "ignored", respectProxy: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(nil, &Config{RespectProxy: tt.respectProxy})
			require.NoError(t, err)
			transport := client.HTTPClient().Transport.(*http.Transport)
			if tt.want == "" {
				assert.Nil(t, transport.Proxy)
				return
			}
			require.NotNil(t, transport.Proxy)
			proxyURL, err := transport.Proxy(req)
			require.NoError(t, err)
			require.NotNil(t, proxyURL)
			assert.Equal(t, tt.want, proxyURL.String())
		})
	}
}
