// Package retry re-runs flaky upstream calls with exponential backoff. The
// map image endpoints shed load with 429s and intermittent 5xxs under quota
// pressure, and a short retry usually rides those out.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config controls retry behavior.
type Config struct {
	// Attempts is the total number of tries, including the first. Zero
	// means the default of 3.
	Attempts int

	// InitialBackoff is the delay before the second try; each further try
	// doubles it. Zero means the default of 500ms.
	InitialBackoff time.Duration

	// ShouldRetry overrides the default transient check when set.
	ShouldRetry func(err error) bool
}

const jitterFraction = 0.25

// Transient marks an error as safe to retry, carrying the HTTP status that
// triggered it when one exists.
type Transient struct {
	Err        error
	StatusCode int
}

func (e *Transient) Error() string { return e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

// IsTransient reports whether the error chain contains a Transient marker or
// a retryable network failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *Transient
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED)
}

// Do runs fn up to cfg.Attempts times, sleeping with jittered exponential
// backoff between tries. Non-transient errors and context cancellation stop
// the loop immediately.
func Do[T any](ctx context.Context, cfg Config, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt >= attempts-1 {
			break
		}

		zap.L().Warn("retrying operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		delay := float64(backoff) * math.Pow(2, float64(attempt))
		delay += (rand.Float64()*2 - 1) * delay * jitterFraction

		timer := time.NewTimer(time.Duration(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}
