package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestRetryPolicy_CalculateBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name     string
		attempt  int
		expected time.Duration
	}{
		{name: "attempt 0 returns 0", attempt: 0, expected: 0},
		{name: "attempt 1 returns initial backoff", attempt: 1, expected: 1 * time.Second},
		{name: "attempt 2 doubles backoff", attempt: 2, expected: 2 * time.Second},
		{name: "attempt 3 quadruples backoff", attempt: 3, expected: 4 * time.Second},
		{name: "large attempt caps at max backoff", attempt: 10, expected: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.CalculateBackoff(tt.attempt); got != tt.expected {
				t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestRetryPolicy_IsRetryableError(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "HTTP 500", err: &HTTPError{StatusCode: http.StatusInternalServerError}, expected: true},
		{name: "HTTP 429", err: &HTTPError{StatusCode: http.StatusTooManyRequests}, expected: true},
		{name: "HTTP 404", err: &HTTPError{StatusCode: http.StatusNotFound}, expected: false},
		{name: "wrapped HTTP 503", err: fmt.Errorf("fetch: %w", &HTTPError{StatusCode: http.StatusServiceUnavailable}), expected: true},
		{name: "OAuth2 500", err: &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusInternalServerError}}, expected: true},
		{name: "OAuth2 400", err: &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}}, expected: false},
		{name: "OAuth2 without response", err: &oauth2.RetrieveError{}, expected: false},
		{name: "generic error", err: errors.New("generic error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsRetryableError(tt.err); got != tt.expected {
				t.Errorf("IsRetryableError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryPolicy_IsRateLimitError(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.IsRateLimitError(nil) {
		t.Error("nil error should not be a rate limit error")
	}
	if !policy.IsRateLimitError(&HTTPError{StatusCode: http.StatusTooManyRequests}) {
		t.Error("HTTP 429 should be a rate limit error")
	}
	if policy.IsRateLimitError(&HTTPError{StatusCode: http.StatusInternalServerError}) {
		t.Error("HTTP 500 should not be a rate limit error")
	}
}

func fastPolicy(attempts int) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
		RetryableErrors:   []int{http.StatusServiceUnavailable, http.StatusTooManyRequests},
	}
}

func TestExecuteWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		attempts  int
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "success first try",
			attempts:  3,
			wantCalls: 1,
		},
		{
			name:      "success after retryable failure",
			failures:  []error{&HTTPError{StatusCode: http.StatusServiceUnavailable}},
			attempts:  3,
			wantCalls: 2,
		},
		{
			name:      "rate limited then success",
			failures:  []error{&HTTPError{StatusCode: http.StatusTooManyRequests}},
			attempts:  3,
			wantCalls: 2,
		},
		{
			name:      "non-retryable stops immediately",
			failures:  []error{&HTTPError{StatusCode: http.StatusNotFound}},
			attempts:  3,
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name: "exhausts attempts",
			failures: []error{
				&HTTPError{StatusCode: http.StatusServiceUnavailable},
				&HTTPError{StatusCode: http.StatusServiceUnavailable},
				&HTTPError{StatusCode: http.StatusServiceUnavailable},
			},
			attempts:  3,
			wantErr:   true,
			wantCalls: 3,
		},
		{
			name:      "zero attempts still runs once",
			attempts:  0,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			op := func(context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}

			err := ExecuteWithRetry(context.Background(), op, fastPolicy(tt.attempts), "test")
			if (err != nil) != tt.wantErr {
				t.Errorf("ExecuteWithRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("ExecuteWithRetry() made %d calls, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestExecuteWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := &RetryPolicy{
		MaxAttempts:     3,
		InitialBackoff:  time.Hour,
		RetryableErrors: []int{http.StatusServiceUnavailable},
	}

	calls := 0
	op := func(context.Context) error {
		calls++
		cancel()
		return &HTTPError{StatusCode: http.StatusServiceUnavailable}
	}

	err := ExecuteWithRetry(ctx, op, policy, "cancelled")
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("made %d calls, want 1", calls)
	}
}

func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Message: "Not Found"}
	if got := err.Error(); got != "HTTP 404: Not Found" {
		t.Errorf("Error() = %q", got)
	}
}
