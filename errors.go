package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingEndpoint   = errors.New("endpoint is required. Provide it or set FOUNDRY_PROJECT_ENDPOINT")
	ErrMissingCredential = errors.New("credential is required. Provide a token credential, an API key, or sign in for DefaultAzureCredential")
)

// APIError represents an error returned by the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
	RequestID  string
	Details    map[string]any
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.RequestID != "" {
		return fmt.Sprintf("foundry api error (%d): %s (request_id=%s)", e.StatusCode, msg, e.RequestID)
	}
	return fmt.Sprintf("foundry api error (%d): %s", e.StatusCode, msg)
}

type BadRequestError struct{ *APIError }
type AuthenticationError struct{ *APIError }
type ForbiddenError struct{ *APIError }
type NotFoundError struct{ *APIError }
type ConflictError struct{ *APIError }
type RateLimitError struct {
	*APIError
	RetryAfter *time.Duration
}
type ServerError struct{ *APIError }

// RunFailedError is returned by Runs.CreateAndProcess when FailOnError is set
// and the run did not complete.
type RunFailedError struct {
	RunID     string
	ThreadID  string
	Status    RunStatus
	LastError *RunError
}

func (e *RunFailedError) Error() string {
	if e.LastError != nil {
		return fmt.Sprintf("run %s on thread %s ended with status %s: %s: %s", e.RunID, e.ThreadID, e.Status, e.LastError.Code, e.LastError.Message)
	}
	return fmt.Sprintf("run %s on thread %s ended with status %s", e.RunID, e.ThreadID, e.Status)
}

// apiErrorFromResponse maps an HTTP status code and optional JSON body to a typed error.
func apiErrorFromResponse(status int, body []byte, headers http.Header, requestIDHeader string) error {
	code, message, details := extractErrorDetail(status, body)
	requestID := ""
	if headers != nil {
		if requestIDHeader != "" {
			requestID = headers.Get(requestIDHeader)
		}
		if requestID == "" {
			requestID = firstNonEmpty(headers.Get("x-ms-request-id"), headers.Get("apim-request-id"))
		}
	}

	base := &APIError{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Body:       body,
		RequestID:  requestID,
		Details:    details,
	}

	switch status {
	case http.StatusBadRequest:
		return &BadRequestError{APIError: base}
	case http.StatusUnauthorized:
		return &AuthenticationError{APIError: base}
	case http.StatusForbidden:
		return &ForbiddenError{APIError: base}
	case http.StatusNotFound:
		return &NotFoundError{APIError: base}
	case http.StatusConflict:
		return &ConflictError{APIError: base}
	case http.StatusTooManyRequests:
		return &RateLimitError{APIError: base, RetryAfter: parseRetryAfter(headers)}
	default:
		if status >= 500 {
			return &ServerError{APIError: base}
		}
		return base
	}
}

// extractErrorDetail understands both the Azure envelope
// {"error":{"code":"...","message":"..."}} and flat bodies.
func extractErrorDetail(status int, body []byte) (string, string, map[string]any) {
	details := map[string]any{}
	if len(body) == 0 {
		return "", fmt.Sprintf("HTTP %d", status), details
	}
	raw := strings.TrimSpace(string(body))

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		details = parsed
		if nested, ok := parsed["error"].(map[string]any); ok {
			code, _ := nested["code"].(string)
			if msg := findDetailString(nested); msg != "" {
				return code, msg, details
			}
			if code != "" {
				return code, code, details
			}
		}
		if msg := findDetailString(parsed); msg != "" {
			code, _ := parsed["code"].(string)
			return code, msg, details
		}
	}
	if raw != "" {
		return "", raw, details
	}
	return "", fmt.Sprintf("HTTP %d", status), details
}

func findDetailString(parsed map[string]any) string {
	for _, key := range []string{"message", "detail", "error"} {
		if v, ok := parsed[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func parseRetryAfter(headers http.Header) *time.Duration {
	if headers == nil {
		return nil
	}
	if val := headers.Get("retry-after-ms"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			d := time.Duration(ms) * time.Millisecond
			return &d
		}
	}
	val := headers.Get("Retry-After")
	if val == "" {
		return nil
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		d := time.Duration(seconds) * time.Second
		return &d
	}
	if t, err := http.ParseTime(val); err == nil {
		d := time.Until(t)
		return &d
	}
	return nil
}
