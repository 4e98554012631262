package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"paperchat/internal/domain"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// APIError is a non-2xx reply from an embedding or chat endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match any provider failure with errors.Is(err, domain.ErrProvider).
func (e *APIError) Unwrap() error {
	return domain.ErrProvider
}

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return ErrorPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		switch {
		case strings.Contains(msg, "insufficient_quota"), strings.Contains(msg, "quota"):
			return ErrorQuota
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ErrorRate
		case strings.Contains(msg, "context_length"), strings.Contains(msg, "too long"):
			return ErrorContext
		case apiErr.StatusCode >= 500, apiErr.StatusCode == http.StatusRequestTimeout:
			return ErrorTransient
		default:
			return ErrorPermanent
		}
	}

	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context length"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, "connection reset"), strings.Contains(e, "connection refused"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// Retryable reports whether another attempt could succeed.
func Retryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorRate, ErrorTransient:
		return true
	default:
		return false
	}
}
