// Package retry runs operations against the persistence backend with a
// bounded number of attempts and exponential backoff between them.
package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/datarhei/settings/log"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

type Config struct {
	Attempts  int           // Number of attempts, including the first one
	BaseDelay time.Duration // Delay before the first retry, doubled for every further retry
	Logger    log.Logger
}

// Executor retries failing operations. After the last attempt the error of
// that attempt is returned unchanged.
type Executor struct {
	attempts  int
	baseDelay time.Duration
	logger    log.Logger

	retries  atomic.Uint64
	failures atomic.Uint64
}

// Stats are the counters of an executor.
type Stats struct {
	Retries  uint64 // Attempts that failed and have been retried
	Failures uint64 // Operations that failed after all attempts
}

func New(config Config) *Executor {
	e := &Executor{
		attempts:  config.Attempts,
		baseDelay: config.BaseDelay,
		logger:    config.Logger,
	}

	if e.attempts <= 0 {
		e.attempts = DefaultAttempts
	}

	if e.baseDelay <= 0 {
		e.baseDelay = DefaultBaseDelay
	}

	if e.logger == nil {
		e.logger = log.New("")
	}

	return e
}

// Do runs op with the configured number of attempts.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return e.DoAttempts(ctx, e.attempts, op)
}

// DoAttempts runs op with at most the given number of attempts. Waiting
// between attempts stops if ctx is done.
func (e *Executor) DoAttempts(ctx context.Context, attempts int, op func(ctx context.Context) error) error {
	_, err := run(ctx, e, attempts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}

// Attempts returns the configured number of attempts.
func (e *Executor) Attempts() int {
	return e.attempts
}

func (e *Executor) Stats() Stats {
	return Stats{
		Retries:  e.retries.Load(),
		Failures: e.failures.Load(),
	}
}

// schedule returns delays of base, 2*base, 4*base, ... without jitter.
func (e *Executor) schedule(attempts int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = e.baseDelay << uint(attempts)

	return b
}

// Permanent wraps an error such that it is not retried. The wrapped error
// is returned unchanged.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Value runs op like Executor.Do and returns its value.
func Value[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, e, e.attempts, op)
}

func run[T any](ctx context.Context, e *Executor, attempts int, op func(ctx context.Context) (T, error)) (T, error) {
	if attempts < 1 {
		attempts = 1
	}

	try := 0
	permanent := false

	value, err := backoff.Retry(ctx, func() (T, error) {
		try++

		v, err := op(ctx)

		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			permanent = true
		}

		return v, err
	},
		backoff.WithBackOff(e.schedule(attempts)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.retries.Add(1)
			e.logger.Warn().WithError(err).WithFields(log.Fields{
				"attempt":  try,
				"attempts": attempts,
				"next":     next.String(),
			}).Log("Operation failed, retrying")
		}),
	)

	if err != nil && !permanent {
		e.failures.Add(1)
		e.logger.Error().WithError(err).WithField("attempts", try).Log("Operation failed")
	}

	// On the last attempt the permanent error isn't unwrapped by backoff
	var perr *backoff.PermanentError
	if errors.As(err, &perr) {
		err = perr.Err
	}

	return value, err
}
