package http

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/pfamflow/pfam-int/internal/constants"
)

// ErrorType is the retry class of a failed request.
type ErrorType int

const (
	ErrorTypeSuccess   ErrorType = iota
	ErrorTypeNetwork             // timeouts, refused or reset connections
	ErrorTypeRetryable           // 429 and 5xx gateway-style responses
	ErrorTypeFatal               // anything else; never retried
	ErrorTypeCancelled           // the caller gave up
)

var errorTypeNames = [...]string{"success", "network", "retryable", "fatal", "cancelled"}

func (t ErrorType) String() string {
	if t < 0 || int(t) >= len(errorTypeNames) {
		return "unknown"
	}
	return errorTypeNames[t]
}

// Lower-cased fragments of error text mapped to their class.
var (
	networkFragments   = []string{"connection reset", "connection refused", "broken pipe", "no such host", "eof", "timeout"}
	retryableFragments = []string{"status 429", "status 500", "status 502", "status 503", "status 504"}
)

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// Config holds retry parameters for ExecuteWithRetry. MaxRetries counts
// attempts, not retries.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	OnRetry      func(attempt int, err error, errorType ErrorType) // optional, called before each sleep
}

// DefaultConfig uses the package-wide retry constants.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
	}
}

// ClassifyError determines the error type for retry strategy and for
// describing transport failures to the user.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrorTypeNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, networkFragments):
		return ErrorTypeNetwork
	case containsAny(msg, retryableFragments):
		return ErrorTypeRetryable
	}
	// Unknown failures are not retried.
	return ErrorTypeFatal
}

// CalculateBackoff returns exponential backoff duration with full jitter
//
// Formula: random(0, min(maxDelay, initialDelay * 2^attempt))
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	if attempt > 30 {
		attempt = 30
	}
	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// ExecuteWithRetry runs an idempotent operation with retry logic
//
// Retry strategy:
//   - Network/Retryable errors: Exponential backoff with full jitter
//   - Fatal errors: Return immediately without retry
//   - Context cancellation: Return immediately, including mid-backoff
//
// Only idempotent requests may be wrapped; the analysis trigger never is.
func ExecuteWithRetry(ctx context.Context, config Config, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		errType := ClassifyError(err)
		switch errType {
		case ErrorTypeSuccess:
			return nil
		case ErrorTypeFatal, ErrorTypeCancelled:
			return err
		}

		if attempt == config.MaxRetries-1 {
			break
		}

		backoff := CalculateBackoff(attempt, config.InitialDelay, config.MaxDelay)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < backoff {
			return fmt.Errorf("deadline too close to retry: %w", err)
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err, errType)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries, lastErr)
}
