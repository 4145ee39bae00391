// Package api provides the shared HTTP plumbing for the Whisk backend
// clients: one-shot JSON requests with fixed timeouts and a uniform error
// taxonomy. Response bodies are read through gjson so that missing or new
// fields in an evolving third-party API degrade to defaults instead of
// failing hard.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Timeouts for the different call classes.
const (
	CheckTimeout    = 10 * time.Second  // lightweight checks (version, credit)
	DefaultTimeout  = 15 * time.Second  // auth and profile calls
	ServerTimeout   = 30 * time.Second  // flow server CRUD
	UploadTimeout   = 60 * time.Second  // image caption/upload
	GenerateTimeout = 120 * time.Second // generation calls
)

// ErrCannotConnect represents any transport-level failure. The raw cause is
// logged, never shown: callers map it to a fixed non-leaky message.
var ErrCannotConnect = errors.New("cannot connect to server")

// HTTPError is a non-2xx response. Body is kept so callers can surface the
// server's own message.
type HTTPError struct {
	Code int
	Body []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Message extracts a human-readable message from the error body's JSON
// `message` field, falling back to a generic "HTTP {code}" string.
func (e *HTTPError) Message() string {
	if msg := gjson.GetBytes(e.Body, "message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	return e.Error()
}

// Result is the uniform response shape every client method maps onto.
type Result struct {
	Success bool
	Data    gjson.Result
	Message string
}

// Fail builds a failed Result from any error per the taxonomy in
// ErrorMessage.
func Fail(err error) Result {
	return Result{Success: false, Message: ErrorMessage(err)}
}

// ErrorMessage maps an error onto the user-facing string: the server's own
// message for HTTP errors, a fixed string for connection failures, and the
// error text for anything unexpected. Transport internals never leak.
func ErrorMessage(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Message()
	case errors.Is(err, ErrCannotConnect):
		return "Cannot connect to server"
	default:
		return err.Error()
	}
}

// Do issues one blocking HTTP request and returns the response body.
// Non-2xx statuses become *HTTPError; transport failures become
// ErrCannotConnect (with the cause logged at debug level).
func Do(ctx context.Context, hc *http.Client, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	slog.Info("api request", "method", method, "url", url)
	slog.Debug("api request body", "body", string(body))

	resp, err := hc.Do(req)
	if err != nil {
		slog.Error("api connection failed", "url", url, "err", err)
		return nil, fmt.Errorf("%w: %s %s", ErrCannotConnect, method, url)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("api read failed", "url", url, "err", err)
		return nil, fmt.Errorf("%w: %s %s", ErrCannotConnect, method, url)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("api error response", "url", url, "status", resp.StatusCode)
		slog.Debug("api error body", "body", string(respBody))
		return nil, &HTTPError{Code: resp.StatusCode, Body: respBody}
	}

	slog.Info("api response", "url", url, "status", resp.StatusCode)
	slog.Debug("api response body", "body", string(respBody))
	return respBody, nil
}

// NewClient returns an http.Client with the given per-request timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// JSONHeaders are the standard headers for JSON API calls. A bearer token is
// added when non-empty.
func JSONHeaders(token string) map[string]string {
	h := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}
