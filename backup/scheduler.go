package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/datarhei/settings/log"

	"github.com/adhocore/gronx"
)

type Scheduler interface {
	// Next returns the duration until the next scheduled time in reference
	// to time.Now(). If there's no next scheduled time, a negative duration
	// and an error will be returned.
	Next() (time.Duration, error)

	// NextAfter returns the same as Next(), but with the given reference
	// time.
	NextAfter(after time.Time) (time.Duration, error)
}

type scheduler struct {
	pattern string
	pit     time.Time
	isCron  bool
}

// NewScheduler accepts either a cron expression or a single point in time
// in RFC3339 format.
func NewScheduler(pattern string) (Scheduler, error) {
	s := &scheduler{}

	t, err := time.Parse(time.RFC3339, pattern)
	if err == nil {
		s.pit = t
		s.isCron = false
	} else {
		cron := gronx.New()
		if !cron.IsValid(pattern) {
			return nil, fmt.Errorf("invalid schedule '%s': neither a cron expression nor a RFC3339 time", pattern)
		}
		s.pattern = pattern
		s.isCron = true
	}

	return s, nil
}

func (s *scheduler) Next() (time.Duration, error) {
	return s.NextAfter(time.Now())
}

func (s *scheduler) NextAfter(after time.Time) (time.Duration, error) {
	var t time.Time
	var err error

	if s.isCron {
		t, err = gronx.NextTickAfter(s.pattern, after, false)
		if err != nil {
			return time.Duration(-1), fmt.Errorf("no next time has been scheduled")
		}
	} else {
		t = s.pit
	}

	d := t.Sub(after)
	if d < time.Duration(0) {
		return d, fmt.Errorf("no next time has been scheduled")
	}

	return d, nil
}

// Run calls fn at every scheduled time. It returns when ctx is done or if
// there's no next scheduled time. Errors of fn are logged.
func Run(ctx context.Context, s Scheduler, logger log.Logger, fn func(ctx context.Context) error) {
	if logger == nil {
		logger = log.New("")
	}

	for {
		d, err := s.Next()
		if err != nil {
			logger.Debug().WithError(err).Log("Stopping schedule")
			return
		}

		timer := time.NewTimer(d)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			logger.Error().WithError(err).Log("Scheduled backup failed")
		}
	}
}
