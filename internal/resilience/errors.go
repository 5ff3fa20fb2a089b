package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Sentinel error kinds surfaced by the pipeline.
var (
	// ErrInput rejects a run before any external call (e.g. empty persona).
	ErrInput = eris.New("invalid input")

	// ErrNonRetryable marks HTTP 400-class failures that must not be retried.
	ErrNonRetryable = eris.New("non-retryable request")

	// ErrRateLimited marks HTTP 429-class failures.
	ErrRateLimited = eris.New("rate limited")
)

// StatusError carries the HTTP status code of a failed upstream call.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d %s", e.Service, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: status %d %s: %s", e.Service, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Is lets errors.Is match a StatusError against the sentinel kinds.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNonRetryable:
		return e.StatusCode == http.StatusBadRequest
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// NewStatusError builds a StatusError, wrapping it as transient when the code
// is safe to retry.
func NewStatusError(service string, statusCode int, body string) error {
	se := &StatusError{Service: service, StatusCode: statusCode, Body: body}
	if IsTransientHTTPStatus(statusCode) {
		return NewTransientError(se, statusCode)
	}
	return se
}

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

var (
	badRequestRe = regexp.MustCompile(`(?i)\b400\b|bad request`)
	rateLimitRe  = regexp.MustCompile(`(?i)\b429\b|rate.?limit|too many requests`)
)

// IsNonRetryable reports whether err is an HTTP 400 / "Bad Request" failure.
// Typed StatusErrors are checked first; otherwise the message is inspected
// because most SDKs only surface the status in their error text.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNonRetryable) {
		return true
	}
	return badRequestRe.MatchString(err.Error())
}

// IsRateLimited reports whether err is an HTTP 429-class failure.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return rateLimitRe.MatchString(err.Error())
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

var networkPatterns = []string{
	"connection reset by peer",
	"connection refused",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
