package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType classifies provider failures for the caller's retry decisions.
// This client never retries; it only reports the class.
type ErrorType string

const (
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeBadRequest ErrorType = "bad_request"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProvider   ErrorType = "provider"
)

// ErrUnknownProvider indicates that no adapter is registered for the
// requested provider.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderError is a classified failure from one provider call.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int
	Type       ErrorType
	Message    string

	// RetryAfterSeconds is the provider's back-off hint, 0 when absent.
	RetryAfterSeconds int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %s (%s, status %d)",
		e.Provider, e.Model, e.Message, e.Type, e.StatusCode)
}

// Transient reports whether the failure class is worth retrying upstream.
func (e *ProviderError) Transient() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeNetwork:
		return true
	case ErrorTypeProvider:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsTransient reports whether err represents a transient provider failure
// (timeout, rate limit, network, 5xx). Context deadline expiry counts: a
// whole-request timeout is the canonical transient failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ClassifyStatus maps an HTTP status code to an error type.
func ClassifyStatus(status int) ErrorType {
	switch {
	case status == 429:
		return ErrorTypeRateLimit
	case status == 401 || status == 403:
		return ErrorTypeAuth
	case status == 408 || status == 504:
		return ErrorTypeTimeout
	case status >= 400 && status < 500:
		return ErrorTypeBadRequest
	default:
		return ErrorTypeProvider
	}
}
