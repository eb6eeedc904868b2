// Package grid builds six-week month grids for the calendar widget.
package grid

import (
	"time"

	"panchcal/internal/model"
	"panchcal/internal/panchang"
	"panchcal/internal/rules"
)

// CellCount is the fixed number of cells in a grid: six Sunday-first weeks.
const CellCount = 42

// Cell is one day of the grid.
type Cell struct {
	Date           model.Date         `json:"date"`
	IsCurrentMonth bool               `json:"is_current_month"`
	Panchang       panchang.Snapshot  `json:"panchang"`
	Events         []model.Occurrence `json:"events"`
}

// Grid is a month view. Cells are chronological with no gaps and Cells[0]
// is always a Sunday.
type Grid struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Cells [CellCount]Cell `json:"cells"`
}

// CurrentMonthCells returns the cells that belong to the grid's own month.
func (g *Grid) CurrentMonthCells() []Cell {
	out := make([]Cell, 0, 31)
	for _, c := range g.Cells {
		if c.IsCurrentMonth {
			out = append(out, c)
		}
	}
	return out
}

// Weeks splits the grid into six rows of seven cells.
func (g *Grid) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, CellCount/7)
	for i := 0; i < CellCount; i += 7 {
		weeks = append(weeks, g.Cells[i:i+7])
	}
	return weeks
}

// Clock reports the current wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Builder assembles grids. It holds only immutable collaborators and is safe
// for concurrent use.
type Builder struct {
	engine *rules.Engine
	loc    *time.Location
	clock  Clock
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the wall clock used by IsToday.
func WithClock(c Clock) Option {
	return func(b *Builder) {
		b.clock = c
	}
}

// NewBuilder returns a Builder evaluating engine for dates anchored in loc.
// A nil engine uses the built-in rule table; a nil loc uses UTC.
func NewBuilder(engine *rules.Engine, loc *time.Location, opts ...Option) *Builder {
	if engine == nil {
		engine = rules.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	b := &Builder{engine: engine, loc: loc, clock: systemClock{}}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Location returns the zone the builder anchors dates in.
func (b *Builder) Location() *time.Location {
	return b.loc
}

// Build returns the grid for year/month.
func (b *Builder) Build(year int, month time.Month) (Grid, error) {
	first, err := model.NewDate(year, month, 1, b.loc)
	if err != nil {
		return Grid{}, err
	}

	g := Grid{Year: year, Month: month}
	start := first.AddDays(-int(first.Weekday()))
	for i := range g.Cells {
		d := start.AddDays(i)
		inMonth := d.Year == year && d.Month == month
		compute := panchang.Compute
		if !inMonth {
			// Padding may fall a few days outside the supported years.
			compute = panchang.ComputeUnranged
		}
		snap, err := compute(d)
		if err != nil {
			return Grid{}, err
		}
		g.Cells[i] = Cell{
			Date:           d,
			IsCurrentMonth: inMonth,
			Panchang:       snap,
			Events:         b.engine.Evaluate(d, snap),
		}
	}
	return g, nil
}

// Shift returns year/month moved by offset months, rolling the year over.
func Shift(year int, month time.Month, offset int) (int, time.Month) {
	t := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// Navigate builds the grid offset months away from year/month.
func (b *Builder) Navigate(year int, month time.Month, offset int) (Grid, error) {
	y, m := Shift(year, month, offset)
	return b.Build(y, m)
}

// Today returns the current date in the builder's zone.
func (b *Builder) Today() model.Date {
	return model.DateOf(b.clock.Now(), b.loc)
}

// IsToday reports whether d is today's date, ignoring time of day.
func (b *Builder) IsToday(d model.Date) bool {
	return d.SameDay(b.Today())
}
