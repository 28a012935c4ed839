package coach

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryConfig configures retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns defaults tuned for LLM API latency.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transient-error substrings by category,
// matched case-insensitively against err.Error().
//
// String matching is used because neither Genkit nor the provider SDKs
// expose typed errors for transient failures.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable", "overloaded"},
	{"connection reset", "connection refused", "timeout", "temporary"},
}

// retryableError reports whether err is transient.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(lower, pattern) {
				return true
			}
		}
	}
	return false
}

// withRetry runs call with exponential backoff, rate-limiting each
// attempt. Non-retryable errors fail immediately.
func (c *Coach) withRetry(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var lastErr error
	delay := c.retry.InitialInterval

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		text, err := call(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !retryableError(err) {
			return "", err
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying model call", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}
	return "", fmt.Errorf("after %d retries: %w", c.retry.MaxRetries, lastErr)
}
