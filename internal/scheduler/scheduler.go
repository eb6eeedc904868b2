// Package scheduler periodically precomputes month grids so that the first
// request of a new day or month is served from cache.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"panchcal/internal/grid"
	appLog "panchcal/internal/log"
)

// Warmer fills a cache entry for one month.
type Warmer interface {
	Warm(year int, month time.Month) error
}

// Scheduler runs the warm-up job on a cron schedule in a fixed zone.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	warmer Warmer
	loc    *time.Location
	now    func() time.Time
	ahead  int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides time.Now when deciding the current month.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMonthsAhead sets how many months after the current one are warmed.
// The default is 1.
func WithMonthsAhead(n int) Option {
	return func(s *Scheduler) {
		if n >= 0 {
			s.ahead = n
		}
	}
}

// New validates spec (standard 5-field cron or a descriptor such as
// "@daily") and returns a stopped Scheduler.
func New(spec string, loc *time.Location, w Warmer, opts ...Option) (*Scheduler, error) {
	if w == nil {
		return nil, errors.New("scheduler: nil warmer")
	}
	if loc == nil {
		loc = time.UTC
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}

	s := &Scheduler{spec: spec, warmer: w, loc: loc, now: time.Now, ahead: 1}
	for _, o := range opts {
		o(s)
	}

	logger := cronLogger{}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return s, nil
}

// Months returns the (year, month) pairs the next run will warm.
func (s *Scheduler) Months() [][2]int {
	today := s.now().In(s.loc)
	out := make([][2]int, 0, s.ahead+1)
	for i := 0; i <= s.ahead; i++ {
		y, m := grid.Shift(today.Year(), today.Month(), i)
		out = append(out, [2]int{y, int(m)})
	}
	return out
}

// RunOnce warms the current month and the configured months ahead.
// Failures are logged and do not stop the remaining months.
func (s *Scheduler) RunOnce() {
	start := time.Now()
	warmed := 0
	for _, ym := range s.Months() {
		if err := s.warmer.Warm(ym[0], time.Month(ym[1])); err != nil {
			appLog.Error("grid warm-up failed", err, "year", ym[0], "month", ym[1])
			continue
		}
		warmed++
	}
	appLog.Info("grid warm-up completed", "months", warmed, "elapsed", time.Since(start).Round(time.Millisecond))
}

// Start runs one warm-up immediately and then schedules the job.
func (s *Scheduler) Start() {
	s.RunOnce()
	s.cron.Start()
	appLog.Info("scheduler started", "spec", s.spec, "timezone", s.loc.String(), "next", s.Next())
}

// Next returns the next scheduled run, or the zero time if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts scheduling and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		appLog.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

// cronLogger routes robfig/cron's internal logging to appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
