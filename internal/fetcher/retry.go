package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
)

// BackoffMode selects the delay policy between attempts
type BackoffMode string

const (
	// BackoffFixed waits the same delay between every attempt
	BackoffFixed BackoffMode = "fixed"
	// BackoffExponential doubles the delay up to the configured maximum
	BackoffExponential BackoffMode = "exponential"
)

// ParseBackoffMode validates a backoff mode name
func ParseBackoffMode(s string) (BackoffMode, error) {
	switch BackoffMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackoffFixed:
		return BackoffFixed, nil
	case BackoffExponential:
		return BackoffExponential, nil
	}
	return "", fmt.Errorf("unknown backoff mode %q (want %q or %q)", s, BackoffFixed, BackoffExponential)
}

// Retrier runs an operation until it succeeds, fails permanently or runs out
// of attempts.
type Retrier struct {
	attempts   int
	delay      time.Duration
	maxDelay   time.Duration
	multiplier float64
	mode       BackoffMode
	onRetry    func(err error, wait time.Duration)
}

// RetrierOptions contains options for creating a Retrier
type RetrierOptions struct {
	// Attempts is the total number of tries, including the first one
	Attempts   int
	Delay      time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Mode       BackoffMode
	// OnRetry is called before sleeping between attempts
	OnRetry func(err error, wait time.Duration)
}

// DefaultRetrierOptions returns default retrier options
func DefaultRetrierOptions() RetrierOptions {
	return RetrierOptions{
		Attempts:   3,
		Delay:      1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Mode:       BackoffFixed,
	}
}

// NewRetrier creates a new Retrier with the given options
func NewRetrier(opts RetrierOptions) *Retrier {
	defaults := DefaultRetrierOptions()
	if opts.Attempts <= 0 {
		opts.Attempts = defaults.Attempts
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.MaxDelay < opts.Delay {
		opts.MaxDelay = opts.Delay
	}
	if opts.Multiplier <= 1 {
		opts.Multiplier = defaults.Multiplier
	}
	if opts.Mode == "" {
		opts.Mode = BackoffFixed
	}

	return &Retrier{
		attempts:   opts.Attempts,
		delay:      opts.Delay,
		maxDelay:   opts.MaxDelay,
		multiplier: opts.Multiplier,
		mode:       opts.Mode,
		onRetry:    opts.OnRetry,
	}
}

// hintedBackOff lets a Retry-After header stretch the next delay
type hintedBackOff struct {
	backoff.BackOff
	hint     time.Duration
	maxDelay time.Duration
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	next := h.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if h.hint > next {
		next = min(h.hint, h.maxDelay)
	}
	h.hint = 0
	return next
}

func (r *Retrier) newBackoff() *hintedBackOff {
	var b backoff.BackOff
	switch r.mode {
	case BackoffExponential:
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = r.delay
		eb.MaxInterval = r.maxDelay
		eb.Multiplier = r.multiplier
		eb.RandomizationFactor = 0
		eb.MaxElapsedTime = 0
		eb.Reset()
		b = eb
	default:
		b = backoff.NewConstantBackOff(r.delay)
	}
	return &hintedBackOff{BackOff: b, maxDelay: max(r.maxDelay, r.delay)}
}

// Do executes operation and reports how many attempts were made
func (r *Retrier) Do(ctx context.Context, operation func() error) (int, error) {
	hinted := r.newBackoff()
	b := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(r.attempts-1)), ctx)

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := operation()
		if err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		var retryable *domain.RetryableError
		if errors.As(err, &retryable) && retryable.RetryAfter > 0 {
			hinted.hint = retryable.RetryAfter
		}
		return err
	}, b, func(err error, wait time.Duration) {
		if r.onRetry != nil {
			r.onRetry(err, wait)
		}
	})

	return attempts, err
}

// RetryWithValue runs operation through r and returns the value of the
// successful attempt together with the number of attempts made
func RetryWithValue[T any](ctx context.Context, r *Retrier, operation func() (T, error)) (T, int, error) {
	var result T
	attempts, err := r.Do(ctx, func() error {
		v, err := operation()
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, attempts, err
	}
	return result, attempts, nil
}

// ShouldRetryStatus returns true if the HTTP status code should be retried
func ShouldRetryStatus(statusCode int) bool {
	return domain.IsTransientStatus(statusCode)
}

// ParseRetryAfter parses the Retry-After header value (delta seconds or HTTP date)
func ParseRetryAfter(retryAfter string) time.Duration {
	retryAfter = strings.TrimSpace(retryAfter)
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
