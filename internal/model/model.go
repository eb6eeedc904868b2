package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported Gregorian year range. The ephemeris fits degrade quickly outside
// a few centuries around J2000, so dates beyond this window are rejected.
const (
	MinYear = 1800
	MaxYear = 2200
)

const dateLayout = "2006-01-02"

// Date is a Gregorian calendar date interpreted at local midnight in Loc.
//
// Dates are small comparable values; construct them with NewDate, ParseDate
// or DateOf so the day is always a real calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int

	// Loc is the zone whose midnight anchors the date. Nil means UTC.
	Loc *time.Location
}

// NewDate validates year/month/day and returns the corresponding Date.
// Go's time.Date silently normalizes overflow (Feb 30 -> Mar 2); NewDate
// rejects it instead.
func NewDate(year int, month time.Month, day int, loc *time.Location) (Date, error) {
	input := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
	if year < MinYear || year > MaxYear {
		return Date{}, &InvalidDateError{Input: input, Reason: fmt.Sprintf("year outside supported range %d..%d", MinYear, MaxYear)}
	}
	if month < time.January || month > time.December {
		return Date{}, &InvalidDateError{Input: input, Reason: "month must be 1..12"}
	}
	if day < 1 || day > DaysIn(year, month) {
		return Date{}, &InvalidDateError{Input: input, Reason: "day does not exist in month"}
	}
	return Date{Year: year, Month: month, Day: day, Loc: loc}, nil
}

// ParseDate parses a YYYY-MM-DD string into a Date anchored in loc.
func ParseDate(s string, loc *time.Location) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, &InvalidDateError{Input: s, Reason: "empty date"}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, &InvalidDateError{Input: s, Reason: "expected YYYY-MM-DD", Err: err}
	}
	return NewDate(t.Year(), t.Month(), t.Day(), loc)
}

// DateOf extracts the calendar date of t as seen in loc. A nil loc keeps t's
// own location.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d, Loc: t.Location()}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) location() *time.Location {
	if d.Loc == nil {
		return time.UTC
	}
	return d.Loc
}

// Time returns local midnight of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, d.location())
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, d.location())
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day(), Loc: d.Loc}
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// SameDay reports whether d and other name the same calendar day,
// ignoring their locations.
func (d Date) SameDay(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Validate re-checks a Date that may have been built as a struct literal.
func (d Date) Validate() error {
	_, err := NewDate(d.Year, d.Month, d.Day, d.Loc)
	return err
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText renders the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses YYYY-MM-DD. The result is anchored in UTC.
func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b), nil)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Category classifies an event occurrence for display.
type Category string

const (
	CategoryMajor    Category = "major"
	CategoryFestival Category = "festival"
	CategorySeason   Category = "season"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMajor, CategoryFestival, CategorySeason:
		return true
	}
	return false
}

// Occurrence is a named event matched on a specific date.
type Occurrence struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
}

// DatedOccurrence pairs an occurrence with the day it falls on. Range
// queries (ICS export) produce these.
type DatedOccurrence struct {
	Date Date `json:"date"`
	Occurrence
}

// InvalidDateError reports a date that cannot be used for computation:
// unparseable, impossible, outside the supported range, or one whose
// astronomical intermediates came out non-finite.
type InvalidDateError struct {
	Input  string
	Reason string
	Err    error
}

func (e *InvalidDateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid date %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// IsInvalidDate reports whether err is (or wraps) an InvalidDateError.
func IsInvalidDate(err error) bool {
	var ide *InvalidDateError
	return errors.As(err, &ide)
}
