package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"aicore/internal/models"
	"aicore/internal/utils"
)

// ErrorKind classifies vendor failures
type ErrorKind string

const (
	KindUnauthorized        ErrorKind = "unauthorized"
	KindRateLimited         ErrorKind = "rate_limited"
	KindServiceUnavailable  ErrorKind = "service_unavailable"
	KindTimeout             ErrorKind = "timeout"
	KindTransport           ErrorKind = "transport"
	KindBadResponse         ErrorKind = "bad_response"
	KindUnsupportedProvider ErrorKind = "unsupported_provider"
	KindClientError         ErrorKind = "client_error"
)

// ErrUnsupportedProvider is wrapped by the factory for unknown provider types
var ErrUnsupportedProvider = errors.New("unsupported provider type")

// Error is returned by every adapter for vendor or transport failures.
// Message never contains the API key.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a provider error, or "" for other errors
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// classifyStatus maps an HTTP status code to an error kind
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindUnauthorized
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindServiceUnavailable
	default:
		return KindClientError
	}
}

var genericMessages = map[ErrorKind]string{
	KindUnauthorized:       "provider rejected the credentials",
	KindRateLimited:        "provider rate limit exceeded",
	KindServiceUnavailable: "provider service unavailable",
	KindClientError:        "provider rejected the request",
}

// statusError builds an error from a non-2xx vendor response. The vendor's
// {"error":{"message":...}} body is used when it can be parsed.
func statusError(code int, body []byte, apiKey string) *Error {
	kind := classifyStatus(code)
	msg := genericMessages[kind]

	if vendorMsg := parseVendorMessage(body); vendorMsg != "" {
		msg = vendorMsg
	}
	msg = fmt.Sprintf("%s (status %d)", msg, code)

	return &Error{
		Kind:       kind,
		StatusCode: code,
		Message:    sanitize(msg, apiKey),
	}
}

// parseVendorMessage extracts the message from {"error":{"message":"..."}}.
// Gemini and OpenAI use this envelope; Claude nests it the same way.
func parseVendorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}

	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}

	var plain string
	if err := json.Unmarshal(envelope.Error, &plain); err == nil {
		return plain
	}
	return ""
}

// transportError classifies a failure that happened before a response arrived
func transportError(err error, apiKey string) *Error {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}

	msg := "request to provider failed"
	if kind == KindTimeout {
		msg = "request to provider timed out"
	}
	if errors.Is(err, context.Canceled) {
		msg = "request to provider was canceled"
	}

	return &Error{
		Kind:    kind,
		Message: sanitize(fmt.Sprintf("%s: %v", msg, err), apiKey),
		Err:     err,
	}
}

// badResponse reports a 2xx body that does not match the vendor envelope
func badResponse(code int, reason string) *Error {
	return &Error{
		Kind:       KindBadResponse,
		StatusCode: code,
		Message:    reason,
	}
}

// sanitize strips the key in raw and query-escaped form. Gemini sends it in
// the query string, where url.Error text shows it escaped.
func sanitize(msg, apiKey string) string {
	msg = strings.TrimSpace(utils.Redact(msg, apiKey, url.QueryEscape(apiKey)))
	return utils.Truncate(msg, models.MaxErrorMessageLength)
}
