package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInternal             = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrUpstreamUnavailable  = NewError("UPSTREAM_UNAVAILABLE", "firehose upstream unavailable", http.StatusBadGateway)
	ErrUpstreamRejected     = NewError("UPSTREAM_REJECTED", "firehose upstream rejected the request", http.StatusBadGateway)
	ErrCircuitOpen          = NewError("CIRCUIT_OPEN", "firehose upstream temporarily disabled", http.StatusServiceUnavailable)
	ErrRateLimited          = NewError("RATE_LIMIT_EXCEEDED", "rate limit exceeded", http.StatusTooManyRequests)
	ErrStreamingUnsupported = NewError("STREAMING_UNSUPPORTED", "response writer does not support streaming", http.StatusInternalServerError)
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if detail, ok := e.Details["message"].(string); ok && detail != "" {
		msg = detail
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so sentinel comparisons survive the copies made by the
// With* helpers.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// IsRetryable defaults to true only for UPSTREAM_UNAVAILABLE unless overridden
// with AsRetryable or AsFatal.
func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.Code == ErrUpstreamUnavailable.Code
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

// clone copies e including its details so sentinels are never mutated.
func (e *Error) clone() *Error {
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]interface{}, len(e.Details)+1)
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	return &c
}

func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithStatus overrides the HTTP status, e.g. to mirror an upstream answer.
func (e *Error) WithStatus(status int) *Error {
	c := e.clone()
	c.Status = status
	return c
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	c := e.clone()
	if c.Details == nil {
		c.Details = make(map[string]interface{}, 1)
	}
	c.Details[key] = value
	return c
}

func (e *Error) AsRetryable() *Error {
	return e.withRetryable(true)
}

func (e *Error) AsFatal() *Error {
	return e.withRetryable(false)
}

func (e *Error) withRetryable(retryable bool) *Error {
	c := e.clone()
	c.retryable = &retryable
	return c
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
