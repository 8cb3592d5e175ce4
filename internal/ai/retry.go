package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
	defaultMaxBackoff     = 10 * time.Second
)

type retryingCompleter struct {
	next           Completer
	attempts       int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// WithRetry retries transient completion failures with exponential backoff.
// attempts <= 0 uses the default of three.
func WithRetry(next Completer, attempts int) Completer {
	return withRetryBackoff(next, attempts, defaultInitialBackoff, defaultMaxBackoff)
}

func withRetryBackoff(next Completer, attempts int, initial, max time.Duration) Completer {
	if next == nil {
		return nil
	}
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}
	return &retryingCompleter{next: next, attempts: attempts, initialBackoff: initial, maxBackoff: max}
}

func (r *retryingCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	delay := r.initialBackoff
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		content, err := r.next.Complete(ctx, system, user)
		if err == nil {
			return content, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !shouldRetry(err) || attempt == r.attempts-1 {
			break
		}
		logrus.WithError(err).WithField("attempt", attempt+1).Debug("retrying completion")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > r.maxBackoff {
			delay = r.maxBackoff
		}
	}
	return "", lastErr
}

func shouldRetry(err error) bool {
	var status *StatusError
	if !errors.As(err, &status) {
		return false
	}
	switch status.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}
