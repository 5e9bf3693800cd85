package ai

import (
	"context"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func (rp retryPolicy) attempts() int {
	if rp.maxAttempts <= 0 {
		return 1
	}
	return rp.maxAttempts
}

// backoff waits base*2^(attempt-1), capped at maxDelay, plus up to 250ms of jitter.
func (rp retryPolicy) backoff(ctx context.Context, attempt int) error {
	sleep := rp.baseDelay * time.Duration(1<<(attempt-1))
	if sleep > rp.maxDelay {
		sleep = rp.maxDelay
	}
	sleep += time.Duration(rand.Intn(250)) * time.Millisecond

	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetryable reports whether another attempt may succeed.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errInvalidOutput) || errors.Is(err, errEmptyResponse) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests ||
			apiErr.Code == http.StatusRequestTimeout ||
			apiErr.Code >= http.StatusInternalServerError
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}
