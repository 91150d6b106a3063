package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Error codes
const (
	CodeEnrichError = "ENRICH_ERROR"
	CodeSource      = "SOURCE_ERROR"
	CodeRateLimit   = "RATE_LIMIT_ERROR"
	CodeValidation  = "VALIDATION_ERROR"
	CodeCache       = "CACHE_ERROR"
	CodeStore       = "STORE_ERROR"
	CodeTimeout     = "TIMEOUT_ERROR"
	CodeInProgress  = "IN_PROGRESS_ERROR"
)

type EnrichError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *EnrichError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EnrichError) Unwrap() error {
	return e.Cause
}

func NewEnrichError(message, code string, statusCode int, context map[string]any) *EnrichError {
	return &EnrichError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *EnrichError) WithCause(cause error) *EnrichError {
	e.Cause = cause
	return e
}

// SourceError is returned by provider clients. Adapters absorb it before it
// reaches the aggregator.
type SourceError struct {
	*EnrichError
	Source string
}

func NewSourceError(message, source string, statusCode int, cause error) *SourceError {
	return &SourceError{
		EnrichError: &EnrichError{
			Message:    message,
			Code:       CodeSource,
			StatusCode: statusCode,
			Context: map[string]any{
				"source": source,
			},
			Cause: cause,
		},
		Source: source,
	}
}

type RateLimitError struct {
	*SourceError
	RetryAfter time.Duration
}

func NewRateLimitError(source string, statusCode int, retryAfter time.Duration) *RateLimitError {
	se := NewSourceError("rate limited", source, statusCode, nil)
	se.Code = CodeRateLimit
	se.Context["retry_after"] = retryAfter.String()
	return &RateLimitError{
		SourceError: se,
		RetryAfter:  retryAfter,
	}
}

type ValidationError struct {
	*EnrichError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		EnrichError: &EnrichError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*EnrichError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		EnrichError: &EnrichError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type StoreError struct {
	*EnrichError
	Operation string
	CreatorID string
}

func NewStoreError(message, operation, creatorID string, cause error) *StoreError {
	return &StoreError{
		EnrichError: &EnrichError{
			Message:    message,
			Code:       CodeStore,
			StatusCode: 500,
			Context: map[string]any{
				"operation":  operation,
				"creator_id": creatorID,
			},
			Cause: cause,
		},
		Operation: operation,
		CreatorID: creatorID,
	}
}

// TimeoutError reports an expired invocation deadline. It is distinct from a
// data error so callers can retry later.
type TimeoutError struct {
	*EnrichError
	Operation string
	Timeout   time.Duration
}

func NewTimeoutError(operation string, timeout time.Duration, cause error) *TimeoutError {
	return &TimeoutError{
		EnrichError: &EnrichError{
			Message:    fmt.Sprintf("%s timed out after %s", operation, timeout),
			Code:       CodeTimeout,
			StatusCode: 504,
			Context: map[string]any{
				"operation": operation,
				"timeout":   timeout.String(),
			},
			Cause: cause,
		},
		Operation: operation,
		Timeout:   timeout,
	}
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	return stderrors.As(err, &te)
}

func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return stderrors.As(err, &rl)
}

func (e *EnrichError) HTTPStatus() int {
	return e.StatusCode
}

type statusCoder interface {
	HTTPStatus() int
}

// StatusCode returns the HTTP status carried by err, or 500.
func StatusCode(err error) int {
	var sc statusCoder
	if stderrors.As(err, &sc) && sc.HTTPStatus() > 0 {
		return sc.HTTPStatus()
	}
	return 500
}
