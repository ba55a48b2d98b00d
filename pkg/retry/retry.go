// Package retry re-runs an operation with exponential backoff and jitter.
// The explorer uses it to wait for PostgreSQL and Redis at startup.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// markedError carries an explicit retry decision made by the operation.
type markedError struct {
	err       error
	permanent bool
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err}
}

// Permanent marks err as final: Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, permanent: true}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var m *markedError
	return errors.As(err, &m) && !m.permanent
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var m *markedError
	return errors.As(err, &m) && m.permanent
}

// Always retries every error that is not Permanent.
func Always(error) bool { return true }

// Policy describes how many times and how long to wait.
type Policy struct {
	// Attempts counts the first call. Default: 3
	Attempts int

	// BaseDelay is the wait before the first retry. Default: 100ms
	BaseDelay time.Duration

	// MaxDelay caps every wait. Default: 30s
	MaxDelay time.Duration

	// Factor multiplies the wait after each retry. Default: 2
	Factor float64

	// Jitter spreads each wait by ±Jitter of its length. Default: 0.1
	Jitter float64

	// ShouldRetry overrides the default of retrying only Retryable errors.
	ShouldRetry func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  30 * time.Second,
		Factor:    2,
		Jitter:    0.1,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1))
	d = min(d, float64(p.MaxDelay))
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(d, 0))
}

func (p Policy) retryable(err error) bool {
	if IsPermanent(err) {
		return false
	}
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return IsRetryable(err)
}

// Option adjusts a Policy.
type Option func(*Policy)

// WithMaxAttempts sets the number of attempts.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.Attempts = n
		}
	}
}

// WithInitialDelay sets the wait before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.BaseDelay = d
		}
	}
}

// WithMaxDelay caps the wait between attempts.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.MaxDelay = d
		}
	}
}

// WithMultiplier sets the backoff factor (>= 1).
func WithMultiplier(f float64) Option {
	return func(p *Policy) {
		if f >= 1 {
			p.Factor = f
		}
	}
}

// WithJitter sets the jitter fraction in [0, 1].
func WithJitter(j float64) Option {
	return func(p *Policy) {
		if j >= 0 && j <= 1 {
			p.Jitter = j
		}
	}
}

// WithRetryIf sets the retry classifier.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) {
		p.ShouldRetry = fn
	}
}

// WithOnRetry sets the callback invoked before each wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *Policy) {
		p.OnRetry = fn
	}
}

// Retrier runs operations under one Policy.
type Retrier struct {
	policy Policy
}

// New creates a Retrier from DefaultPolicy and opts.
func New(opts ...Option) *Retrier {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	return &Retrier{policy: p}
}

// Policy returns the effective policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do calls op until it succeeds, the policy gives up or ctx is done. The
// returned error is the last one op returned, without its Retryable or
// Permanent mark.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	p := r.policy
	var last error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		last = unmark(err)

		if attempt >= p.Attempts || !p.retryable(err) {
			return last
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, last, delay)
		}
		if !sleep(ctx, delay) {
			return last
		}
	}
}

func unmark(err error) error {
	if m, ok := err.(*markedError); ok {
		return m.err
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Do runs op with a one-off Retrier.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, op)
}

// DoWithData runs op under r and returns the value of the successful attempt.
func DoWithData[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

// ConnectRetrier returns a Retrier for dialing backing services at startup.
// Every failure is retried; attempts <= 0 means a single attempt.
func ConnectRetrier(attempts int, opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(max(attempts, 1)),
		WithInitialDelay(500 * time.Millisecond),
		WithMaxDelay(10 * time.Second),
		WithMultiplier(2),
		WithJitter(0.2),
		WithRetryIf(Always),
	}
	return New(append(base, opts...)...)
}
