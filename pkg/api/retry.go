package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"

	"golang.org/x/oauth2"
)

// RetryPolicy defines the configuration for retry behavior
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	RetryableErrors   []int // HTTP status codes that should trigger retries
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableErrors:   []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// CalculateBackoff calculates the backoff duration for a given attempt
func (rp *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	multiplier := rp.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	backoff := float64(rp.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if rp.MaxBackoff > 0 && backoff > float64(rp.MaxBackoff) {
		backoff = float64(rp.MaxBackoff)
	}

	return time.Duration(backoff)
}

// IsRetryableError checks if an error should trigger a retry
func (rp *RetryPolicy) IsRetryableError(err error) bool {
	if code, ok := statusCode(err); ok {
		return slices.Contains(rp.RetryableErrors, code)
	}
	return false
}

// IsRateLimitError checks if an error is specifically due to rate limiting
func (rp *RetryPolicy) IsRateLimitError(err error) bool {
	code, ok := statusCode(err)
	return ok && code == http.StatusTooManyRequests
}

// statusCode extracts an HTTP status from our HTTPError or an oauth2 token error.
func statusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}

	var oauthErr *oauth2.RetrieveError
	if errors.As(err, &oauthErr) && oauthErr.Response != nil {
		return oauthErr.Response.StatusCode, true
	}

	return 0, false
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func(ctx context.Context) error

// ExecuteWithRetry executes an operation with retry logic. Backoff sleeps
// end early when ctx is done.
func ExecuteWithRetry(ctx context.Context, operation RetryableOperation, policy *RetryPolicy, operationName string) error {
	var lastErr error

	attempts := max(policy.MaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := policy.CalculateBackoff(attempt - 1)
			if policy.IsRateLimitError(lastErr) {
				backoff *= 2 // longer backoff for rate limits
			}
			slog.Warn("Retrying operation",
				"operation", operationName,
				"attempt", attempt,
				"maxAttempts", attempts,
				"backoff", backoff,
				"lastError", lastErr)
			if err := sleep(ctx, backoff); err != nil {
				return fmt.Errorf("operation %s cancelled: %w", operationName, err)
			}
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("Operation succeeded after retry",
					"operation", operationName,
					"attempt", attempt)
			}
			return nil
		}

		lastErr = err

		if ctx.Err() != nil || !policy.IsRetryableError(err) {
			slog.Debug("Error is not retryable, stopping",
				"operation", operationName,
				"attempt", attempt,
				"error", err)
			return err
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
