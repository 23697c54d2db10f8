package core

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ######################################################
//
//	REQUEST/RESPONSE LOGGING
//
// ######################################################

// beforeRequestLog logs HTTP request details before sending the request.
// At debug level the request body is included (compacted when it is JSON).
// At info level only the endpoint, HTTP method and URL are logged.
func beforeRequestLog(logger *zap.Logger, endpoint string, req *http.Request, body []byte) {
	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
	}
	if ce := logger.Check(zapcore.DebugLevel, "http request start"); ce != nil {
		if bodyMsg := describeBody(req.Header.Get(HeaderContentType), body); bodyMsg != "" {
			fields = append(fields, zap.String("body", bodyMsg))
		}
		ce.Write(fields...)
		return
	}
	logger.Info("http request start", fields...)
}

// afterRequestLog logs a summary of the response.
func afterRequestLog(logger *zap.Logger, endpoint string, response *http.Response, elapsed time.Duration) {
	logger.Info("http response",
		zap.String("endpoint", endpoint),
		zap.Int("status", response.StatusCode),
		zap.String("content_type", response.Header.Get(HeaderContentType)),
		zap.Int64("content_length", response.ContentLength),
		zap.Duration("elapsed", elapsed),
	)
}

func transportErrorLog(logger *zap.Logger, endpoint string, req *http.Request, err error) {
	logger.Warn("http request failed",
		zap.String("endpoint", endpoint),
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Error(err),
	)
}

// describeBody renders a request body for debug logs. Binary payloads are
// summarized by size.
func describeBody(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case ContentTypeJSON:
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err == nil {
			return compact.String()
		}
		return string(trimmed)
	case ContentTypeFormURLEncoded, ContentTypeTextPlain:
		return string(trimmed)
	}
	return mediaType + " payload (" + strconv.Itoa(len(body)) + " bytes)"
}
