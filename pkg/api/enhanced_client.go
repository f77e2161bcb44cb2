// Package api provides the HTTP plumbing used by the Reddit fetch client:
// rate limiting, retries with backoff, standard headers and JSON decoding.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "reddit-feeds/1.0"

// EnhancedClientConfig configures the enhanced HTTP client
type EnhancedClientConfig struct {
	BaseClient     *http.Client
	RateLimiter    RateLimiter
	RetryPolicy    *RetryPolicy
	UserAgent      string
	DefaultHeaders map[string]string
}

// EnhancedClient provides HTTP client functionality with rate limiting, retries, and standard headers
type EnhancedClient struct {
	client         *http.Client
	rateLimiter    RateLimiter
	retryPolicy    *RetryPolicy
	userAgent      string
	defaultHeaders map[string]string
}

// NewEnhancedClient creates a new enhanced HTTP client with the provided configuration
func NewEnhancedClient(config *EnhancedClientConfig) *EnhancedClient {
	if config == nil {
		config = &EnhancedClientConfig{}
	}
	if config.BaseClient == nil {
		config.BaseClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.RateLimiter == nil {
		config.RateLimiter = NewNoOpRateLimiter()
	}
	if config.RetryPolicy == nil {
		config.RetryPolicy = DefaultRetryPolicy()
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.DefaultHeaders == nil {
		config.DefaultHeaders = make(map[string]string)
	}

	return &EnhancedClient{
		client:         config.BaseClient,
		rateLimiter:    config.RateLimiter,
		retryPolicy:    config.RetryPolicy,
		userAgent:      config.UserAgent,
		defaultHeaders: config.DefaultHeaders,
	}
}

// GetAndDecode performs a GET request with rate limiting and retries and
// decodes the JSON body into target.
func (ec *EnhancedClient) GetAndDecode(ctx context.Context, url string, target any, additionalHeaders map[string]string) error {
	operation := func(ctx context.Context) error {
		if err := ec.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := ec.newRequest(ctx, url, additionalHeaders)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := ec.client.Do(req)
		duration := time.Since(start)
		if err != nil {
			ec.logAPICall(url, duration, false, err)
			return fmt.Errorf("failed to perform GET request: %w", err)
		}
		defer func() { _ = res.Body.Close() }()

		if err := EnsureStatusOK(res); err != nil {
			ec.logAPICall(url, duration, false, err)
			return err
		}

		if err := json.NewDecoder(res.Body).Decode(target); err != nil {
			ec.logAPICall(url, duration, false, err)
			return fmt.Errorf("failed to decode json response: %w", err)
		}

		ec.logAPICall(url, duration, true, nil)
		return nil
	}

	return ExecuteWithRetry(ctx, operation, ec.retryPolicy, fmt.Sprintf("GET %s", url))
}

func (ec *EnhancedClient) newRequest(ctx context.Context, url string, additionalHeaders map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", ec.userAgent)
	for key, value := range ec.defaultHeaders {
		req.Header.Set(key, value)
	}
	// additional headers override defaults
	for key, value := range additionalHeaders {
		req.Header.Set(key, value)
	}
	return req, nil
}

// logAPICall logs API call statistics
func (ec *EnhancedClient) logAPICall(url string, duration time.Duration, success bool, err error) {
	status := "success"
	if !success {
		status = "failure"
	}

	fields := []any{
		"url", url,
		"duration", duration,
		"status", status,
	}
	if err != nil {
		fields = append(fields, "error", err)
	}

	if success {
		slog.Debug("API call completed", fields...)
	} else {
		slog.Warn("API call failed", fields...)
	}
}

// EnsureStatusOK returns an *HTTPError unless the response status is 200 OK.
func EnsureStatusOK(res *http.Response) error {
	if res.StatusCode != http.StatusOK {
		return &HTTPError{
			StatusCode: res.StatusCode,
			Message:    http.StatusText(res.StatusCode),
		}
	}
	return nil
}

// NewRedditClient creates an enhanced client configured for the Reddit API.
// minInterval is the minimum delay between requests.
func NewRedditClient(baseClient *http.Client, userAgent string, minInterval time.Duration) *EnhancedClient {
	var limiter RateLimiter = NewNoOpRateLimiter()
	if minInterval > 0 {
		limiter = NewSimpleRateLimiter(minInterval)
	}

	return NewEnhancedClient(&EnhancedClientConfig{
		BaseClient:  baseClient,
		RateLimiter: limiter,
		RetryPolicy: DefaultRetryPolicy(),
		UserAgent:   userAgent,
		DefaultHeaders: map[string]string{
			"Accept": "application/json",
		},
	})
}
