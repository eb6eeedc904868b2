// Package calendar is the public face of panchcal: it ties the Panchang
// resolver, the rule engine and the grid builder to one time zone.
package calendar

import (
	"fmt"
	"time"

	"panchcal/internal/grid"
	"panchcal/internal/model"
	"panchcal/internal/panchang"
	"panchcal/internal/rules"
)

// MaxRangeDays bounds EventsBetween.
const MaxRangeDays = 3 * 366

// Service answers calendar queries for a single zone. It is immutable after
// New and safe for concurrent use.
type Service struct {
	engine  *rules.Engine
	loc     *time.Location
	builder *grid.Builder
	clock   grid.Clock
}

// Option configures a Service.
type Option func(*Service)

// WithEngine replaces the built-in rule table.
func WithEngine(e *rules.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithLocation sets the zone whose midnight anchors every date.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the wall clock used for "today".
func WithClock(c grid.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New returns a Service. Without options it uses the built-in rules in UTC.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.engine == nil {
		s.engine = rules.Default()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	var gopts []grid.Option
	if s.clock != nil {
		gopts = append(gopts, grid.WithClock(s.clock))
	}
	s.builder = grid.NewBuilder(s.engine, s.loc, gopts...)
	return s
}

// Location returns the service zone.
func (s *Service) Location() *time.Location { return s.loc }

// Engine returns the rule engine in use.
func (s *Service) Engine() *rules.Engine { return s.engine }

// Date validates y/m/d in the service zone.
func (s *Service) Date(year int, month time.Month, day int) (model.Date, error) {
	return model.NewDate(year, month, day, s.loc)
}

// ParseDate parses an ISO "YYYY-MM-DD" date in the service zone. An empty
// string means today.
func (s *Service) ParseDate(v string) (model.Date, error) {
	if v == "" {
		return s.Today(), nil
	}
	return model.ParseDate(v, s.loc)
}

// ComputePanchang returns the Panchang snapshot for d.
func (s *Service) ComputePanchang(d model.Date) (panchang.Snapshot, error) {
	return panchang.Compute(s.anchor(d))
}

// BuildCalendarGrid returns the 42-cell grid for year/month.
func (s *Service) BuildCalendarGrid(year int, month time.Month) (grid.Grid, error) {
	return s.builder.Build(year, month)
}

// EventsForDate returns every occurrence on d in rule-table order.
func (s *Service) EventsForDate(d model.Date) ([]model.Occurrence, error) {
	d = s.anchor(d)
	p, err := panchang.Compute(d)
	if err != nil {
		return nil, err
	}
	return s.EventsFor(d, p), nil
}

// EventsFor evaluates the rule table against a snapshot the caller already
// holds for d. p must come from ComputePanchang(d).
func (s *Service) EventsFor(d model.Date, p panchang.Snapshot) []model.Occurrence {
	return s.engine.Evaluate(s.anchor(d), p)
}

// EventsBetween returns the occurrences on each day from..to inclusive,
// ordered by date and then by rule-table order.
func (s *Service) EventsBetween(from, to model.Date) ([]model.DatedOccurrence, error) {
	from, to = s.anchor(from), s.anchor(to)
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, &model.InvalidDateError{
			Input:  fmt.Sprintf("%s..%s", from, to),
			Reason: "range ends before it starts",
		}
	}

	if span := daysBetween(from, to) + 1; span > MaxRangeDays {
		return nil, &model.InvalidDateError{
			Input:  fmt.Sprintf("%s..%s", from, to),
			Reason: fmt.Sprintf("range of %d days exceeds %d", span, MaxRangeDays),
		}
	}

	var out []model.DatedOccurrence
	for d := from; !to.Before(d); d = d.AddDays(1) {
		occ, err := s.EventsForDate(d)
		if err != nil {
			return nil, err
		}
		for _, o := range occ {
			out = append(out, model.DatedOccurrence{Date: d, Occurrence: o})
		}
	}
	return out, nil
}

// Navigate returns the grid offset months away from year/month.
func (s *Service) Navigate(year int, month time.Month, offset int) (grid.Grid, error) {
	return s.builder.Navigate(year, month, offset)
}

// Today returns the current date in the service zone.
func (s *Service) Today() model.Date {
	return s.builder.Today()
}

// IsToday reports whether d is today in the service zone.
func (s *Service) IsToday(d model.Date) bool {
	return s.builder.IsToday(d)
}

func daysBetween(from, to model.Date) int {
	a := time.Date(from.Year, from.Month, from.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year, to.Month, to.Day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

// anchor moves d into the service zone without changing its Y/M/D.
func (s *Service) anchor(d model.Date) model.Date {
	d.Loc = s.loc
	return d
}
