package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	e := New(Config{})
	require.Equal(t, DefaultAttempts, e.Attempts())
	require.Equal(t, DefaultBaseDelay, e.baseDelay)
}

func TestSucceedsAfterFailures(t *testing.T) {
	e := New(Config{Attempts: 3, BaseDelay: time.Millisecond})

	calls := 0

	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("failure %d", calls)
		}

		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, Stats{Retries: 2}, e.Stats())
}

func TestExhaustionReturnsLastError(t *testing.T) {
	e := New(Config{Attempts: 3, BaseDelay: time.Millisecond})

	errLast := errors.New("failure 3")
	calls := 0

	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return errLast
		}

		return fmt.Errorf("failure %d", calls)
	})

	require.Same(t, errLast, err)
	require.Equal(t, 3, calls)
	require.Equal(t, Stats{Retries: 2, Failures: 1}, e.Stats())
}

func TestDelaysDouble(t *testing.T) {
	e := New(Config{Attempts: 3, BaseDelay: 20 * time.Millisecond})

	start := time.Now()

	err := e.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("failure")
	})

	require.Error(t, err)
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)

	b := e.schedule(3)
	require.Equal(t, 20*time.Millisecond, b.NextBackOff())
	require.Equal(t, 40*time.Millisecond, b.NextBackOff())
	require.Equal(t, 80*time.Millisecond, b.NextBackOff())
}

func TestDoAttempts(t *testing.T) {
	e := New(Config{Attempts: 3, BaseDelay: time.Millisecond})

	calls := 0

	err := e.DoAttempts(context.Background(), 1, func(ctx context.Context) error {
		calls++
		return errors.New("failure")
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestContextStopsWaiting(t *testing.T) {
	e := New(Config{Attempts: 3, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := e.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("failure")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestValue(t *testing.T) {
	e := New(Config{Attempts: 2, BaseDelay: time.Millisecond})

	calls := 0

	v, err := Value(context.Background(), e, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("failure")
		}

		return "hotel", nil
	})

	require.NoError(t, err)
	require.Equal(t, "hotel", v)
}

type notFound struct{}

func (notFound) Error() string { return "not found" }

func TestPermanent(t *testing.T) {
	e := New(Config{Attempts: 3, BaseDelay: time.Millisecond})

	calls := 0

	err := e.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(notFound{})
	})

	var nf notFound
	require.ErrorAs(t, err, &nf)
	require.Equal(t, 1, calls)
	require.Equal(t, Stats{}, e.Stats())
}

func TestPermanentOnLastAttempt(t *testing.T) {
	e := New(Config{Attempts: 1, BaseDelay: time.Millisecond})

	err := e.Do(context.Background(), func(ctx context.Context) error {
		return Permanent(notFound{})
	})

	require.Equal(t, notFound{}, err)

	e = New(Config{Attempts: 2, BaseDelay: time.Millisecond})

	calls := 0

	_, err = Value(context.Background(), e, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("storage unavailable")
		}

		return 0, Permanent(notFound{})
	})

	require.Equal(t, notFound{}, err)
	require.Equal(t, 2, calls)
}
