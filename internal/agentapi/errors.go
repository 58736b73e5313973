package agentapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind classifies a failed HTTP exchange with the agent service.
type Kind string

const (
	KindBadRequest       Kind = "bad_request"
	KindAuthentication   Kind = "authentication"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUnprocessable    Kind = "unprocessable"
	KindRateLimit        Kind = "rate_limit"
	KindServer           Kind = "server"
	KindUnknown          Kind = "unknown"
)

// Sentinels for errors.Is matching against *APIError.
var (
	ErrBadRequest       = &APIError{Kind: KindBadRequest}
	ErrAuthentication   = &APIError{Kind: KindAuthentication}
	ErrPermissionDenied = &APIError{Kind: KindPermissionDenied}
	ErrNotFound         = &APIError{Kind: KindNotFound}
	ErrConflict         = &APIError{Kind: KindConflict}
	ErrUnprocessable    = &APIError{Kind: KindUnprocessable}
	ErrRateLimit        = &APIError{Kind: KindRateLimit}
	ErrServer           = &APIError{Kind: KindServer}
)

// ErrTimeout matches any *TimeoutError.
var ErrTimeout = errors.New("agent request timed out")

// APIError is a non-2xx reply from the agent service.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
	RequestID  string
	RetryAfter time.Duration // the Retry-After hint; the client itself never retries
	Body       []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("agent API error (status %d, %s, request %s): %s", e.StatusCode, e.Kind, e.RequestID, msg)
	}
	return fmt.Sprintf("agent API error (status %d, %s): %s", e.StatusCode, e.Kind, msg)
}

// Is matches a sentinel of the same Kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.Kind == KindRateLimit || (e.Kind == KindServer && e.StatusCode != http.StatusNotImplemented)
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindPermissionDenied
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity:
		return KindUnprocessable
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// NewAPIError builds an APIError from a status code and response body. The
// message is taken from the body when it is a recognizable JSON error.
func NewAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:       KindForStatus(status),
		StatusCode: status,
		Body:       body,
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(truncate(string(body), 500))
		return apiErr
	}

	if meta, ok := payload["metadata"].(map[string]any); ok {
		apiErr.Message, _ = meta["message"].(string)
		apiErr.RequestID, _ = meta["request_id"].(string)
	}
	if apiErr.Message == "" {
		apiErr.Message, _ = payload["message"].(string)
	}
	if apiErr.Message == "" {
		switch v := payload["error"].(type) {
		case string:
			apiErr.Message = v
		case map[string]any:
			apiErr.Message, _ = v["message"].(string)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message, _ = payload["detail"].(string)
	}
	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// TimeoutError reports that a turn did not finish within the client timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
