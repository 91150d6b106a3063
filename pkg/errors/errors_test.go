package errors

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestTimeoutErrorClassification(t *testing.T) {
	err := NewTimeoutError("batch sync", 90*time.Second, context.DeadlineExceeded)
	wrapped := fmt.Errorf("handler: %w", err)

	if !IsTimeout(wrapped) {
		t.Fatalf("expected wrapped timeout to be classified as timeout")
	}
	if IsRateLimited(wrapped) {
		t.Fatalf("timeout must not classify as rate limit")
	}
	if got := StatusCode(wrapped); got != 504 {
		t.Fatalf("expected 504, got %d", got)
	}
	if err.Error() != "batch sync timed out after 1m30s: context deadline exceeded" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestRateLimitErrorIsSourceError(t *testing.T) {
	err := NewRateLimitError("podcast", 429, time.Minute)
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit classification")
	}
	if err.Code != CodeRateLimit {
		t.Fatalf("expected code %s, got %s", CodeRateLimit, err.Code)
	}
	if err.Source != "podcast" {
		t.Fatalf("expected source podcast, got %s", err.Source)
	}
	if StatusCode(err) != 429 {
		t.Fatalf("expected 429, got %d", StatusCode(err))
	}
}

func TestStoreErrorUnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewStoreError("save failed", "save_profile", "imam-example", cause)
	if got := err.Unwrap(); got != cause {
		t.Fatalf("expected cause to unwrap")
	}
	if StatusCode(fmt.Errorf("x: %w", err)) != 500 {
		t.Fatalf("expected 500")
	}
	if StatusCode(fmt.Errorf("plain")) != 500 {
		t.Fatalf("expected default 500")
	}
}

func TestStatusCodes(t *testing.T) {
	cause := fmt.Errorf("upstream closed")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("name is required", "name", ""), 400},
		{"in progress", NewEnrichError("run in progress", CodeInProgress, 409, nil), 409},
		{"wrapped enrich", fmt.Errorf("run: %w", NewEnrichError("aggregation failed", CodeEnrichError, 502, nil).WithCause(cause)), 502},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Fatalf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}

	err := NewEnrichError("aggregation failed", CodeEnrichError, 502, nil).WithCause(cause)
	if err.Error() != "aggregation failed: upstream closed" || err.Unwrap() != cause {
		t.Fatalf("unexpected error chain: %v", err)
	}
}
