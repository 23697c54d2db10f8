package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vast-data/go-api-client/core"
)

// Variables read from the environment or the env file by "apigen call".
const (
	EnvBaseURL  = "APIGEN_BASE_URL"
	EnvToken    = "APIGEN_TOKEN"
	EnvUser     = "APIGEN_USER"
	EnvPassword = "APIGEN_PASSWORD"
)

func CallCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <VERB> <url>",
		Short: "Send one request through the client runtime",
		Long: "Declare a one-off endpoint and call it, printing the response body. " +
			"Credentials come from flags, the environment or the env file (" + EnvToken + ", " + EnvUser + "/" + EnvPassword + ").",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(app, cmd, args)
		},
	}

	cmd.Flags().String("base-url", "", "Base URL relative request URLs resolve against")
	cmd.Flags().StringArrayP("header", "H", nil, `Request header "Name: value" (repeatable)`)
	cmd.Flags().StringArrayP("query", "q", nil, "Query parameter key=value (repeatable)")
	cmd.Flags().StringP("data", "d", "", "JSON request body")
	cmd.Flags().StringArray("form", nil, "Form field key=value sent urlencoded (repeatable)")
	cmd.Flags().Bool("msgpack", false, "Send --data encoded as msgpack")
	cmd.Flags().String("bearer", "", "Bearer token")
	cmd.Flags().StringP("user", "u", "", "Basic auth credentials user:password")
	cmd.Flags().String("auth-header", "", `Custom auth header "Name: value"`)
	cmd.Flags().String("env-file", ".env", "Env file holding credentials")
	cmd.Flags().Duration("timeout", 0, "Request timeout (0: none)")
	cmd.Flags().String("request-id-header", "", "Send a fresh request id in this header")
	cmd.Flags().Bool("insecure", false, "Skip TLS certificate verification")

	return cmd
}

func runCall(app *App, cmd *cobra.Command, args []string) error {
	envFile := stringFlag(cmd, "env-file", app.Config.Call.EnvFile)
	if envFile == "" {
		envFile = ".env"
	}
	env, err := readEnv(envFile)
	if err != nil {
		return err
	}

	spec, callArgs, err := callSpec(cmd, args[0], args[1])
	if err != nil {
		return err
	}
	method, err := core.Declare[[]byte](spec)
	if err != nil {
		return err
	}

	auth, err := callAuth(cmd, env)
	if err != nil {
		return err
	}
	config := &core.Config{
		BaseURL:            stringFlag(cmd, "base-url", firstNonEmpty(app.Config.Call.BaseURL, env[EnvBaseURL])),
		RequestIDHeader:    stringFlag(cmd, "request-id-header", app.Config.Call.RequestIDHeader),
		InsecureSkipVerify: app.Config.Call.Insecure,
		Logger:             app.Logger,
	}
	if insecure, _ := cmd.Flags().GetBool("insecure"); insecure {
		config.InsecureSkipVerify = true
	}
	timeout := app.Config.Call.Timeout
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if timeout > 0 {
		config.Timeout = &timeout
	}

	client, err := core.NewClient(auth, config)
	if err != nil {
		return err
	}

	start := time.Now()
	body, err := method.Call(cmd.Context(), client, callArgs)
	if err != nil {
		var apiErr *core.ApiError
		if errors.As(err, &apiErr) {
			app.Logger.Warn("request failed", zap.Int("status", apiErr.StatusCode))
		}
		return err
	}
	app.Logger.Debug("request done", zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(body)))

	out := cmd.OutOrStdout()
	if _, err = out.Write(body); err != nil {
		return err
	}
	if len(body) > 0 && body[len(body)-1] != '\n' {
		fmt.Fprintln(out)
	}
	return nil
}

// callSpec builds the one-off endpoint. The URL and header values are used
// literally, so braces are escaped.
func callSpec(cmd *cobra.Command, verb, rawURL string) (core.EndpointSpec, core.Args, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return core.EndpointSpec{}, nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	queries, _ := cmd.Flags().GetStringArray("query")
	if len(queries) > 0 {
		values := u.Query()
		for _, q := range queries {
			key, value, ok := strings.Cut(q, "=")
			if !ok || key == "" {
				return core.EndpointSpec{}, nil, fmt.Errorf("query %q must look like key=value", q)
			}
			values.Add(key, value)
		}
		u.RawQuery = values.Encode()
	}

	spec := core.EndpointSpec{
		Name: "Call",
		Verb: strings.ToUpper(verb),
		URL:  escapeTemplate(u.String()),
	}

	headers, _ := cmd.Flags().GetStringArray("header")
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return core.EndpointSpec{}, nil, fmt.Errorf("header %q must look like \"Name: value\"", h)
		}
		spec.Headers = append(spec.Headers, core.Header{
			Name:  strings.TrimSpace(name),
			Value: escapeTemplate(strings.TrimSpace(value)),
		})
	}

	data, _ := cmd.Flags().GetString("data")
	forms, _ := cmd.Flags().GetStringArray("form")
	useMsgpack, _ := cmd.Flags().GetBool("msgpack")
	switch {
	case data != "" && len(forms) > 0:
		return core.EndpointSpec{}, nil, fmt.Errorf("--data and --form are mutually exclusive")
	case data != "":
		if !json.Valid([]byte(data)) {
			return core.EndpointSpec{}, nil, fmt.Errorf("--data is not valid JSON")
		}
		spec.Params = []core.Param{core.BodyParam("body")}
		if useMsgpack {
			var decoded any
			if err = json.Unmarshal([]byte(data), &decoded); err != nil {
				return core.EndpointSpec{}, nil, err
			}
			spec.Encoding = core.EncodingMsgpack
			return spec, core.Args{"body": decoded}, nil
		}
		return spec, core.Args{"body": json.RawMessage(data)}, nil
	case len(forms) > 0:
		values := url.Values{}
		for _, f := range forms {
			key, value, ok := strings.Cut(f, "=")
			if !ok || key == "" {
				return core.EndpointSpec{}, nil, fmt.Errorf("form field %q must look like key=value", f)
			}
			values.Add(key, value)
		}
		spec.Params = []core.Param{core.BodyParam("body")}
		spec.Encoding = core.EncodingForm
		return spec, core.Args{"body": values}, nil
	}
	return spec, nil, nil
}

func callAuth(cmd *cobra.Command, env map[string]string) (core.Authenticator, error) {
	if token, _ := cmd.Flags().GetString("bearer"); token != "" {
		return core.BearerAuth(token), nil
	}
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		name, password, ok := strings.Cut(user, ":")
		if !ok {
			return nil, fmt.Errorf("--user must look like user:password")
		}
		return core.BasicAuth(name, password), nil
	}
	if header, _ := cmd.Flags().GetString("auth-header"); header != "" {
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			return nil, fmt.Errorf("--auth-header must look like \"Name: value\"")
		}
		return core.CustomAuth(strings.TrimSpace(name), strings.TrimSpace(value)), nil
	}
	if token := env[EnvToken]; token != "" {
		return core.BearerAuth(token), nil
	}
	if user := env[EnvUser]; user != "" {
		return core.BasicAuth(user, env[EnvPassword]), nil
	}
	return core.NoAuth(), nil
}

// readEnv merges the env file (if present) over the process environment.
func readEnv(path string) (map[string]string, error) {
	env := map[string]string{}
	for _, key := range []string{EnvBaseURL, EnvToken, EnvUser, EnvPassword} {
		if value, ok := os.LookupEnv(key); ok {
			env[key] = value
		}
	}
	fileEnv, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return env, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	for key, value := range fileEnv {
		env[key] = value
	}
	return env, nil
}

func escapeTemplate(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
