package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/teambition/rrule-go"

	"panchcal/internal/model"
	"panchcal/internal/panchang"
)

// Group orders matching strategies. A table lists every rule of a lower
// group before any rule of a higher one.
type Group int

const (
	GroupSolarDay Group = iota + 1
	GroupSolarNakshatra
	GroupSolarTithi
	GroupCivil
)

func (g Group) String() string {
	switch g {
	case GroupSolarDay:
		return "solar-day"
	case GroupSolarNakshatra:
		return "solar-nakshatra"
	case GroupSolarTithi:
		return "solar-tithi"
	case GroupCivil:
		return "civil"
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Matcher is a declarative predicate over a date and its Panchang snapshot.
type Matcher interface {
	// Match reports whether the rule applies on d.
	Match(d model.Date, p panchang.Snapshot) bool

	// Group is the matching strategy, which fixes table order.
	Group() Group

	// Key identifies the predicate. Two rules with equal keys would always
	// fire together and compete for the same primary slot.
	Key() string

	validate() error
}

// SolarDay matches a given day of a solar month.
type SolarDay struct {
	Month int
	Day   int
}

func (m SolarDay) Match(_ model.Date, p panchang.Snapshot) bool {
	return p.Solar.MonthIndex == m.Month && p.Solar.Day == m.Day
}

func (m SolarDay) Group() Group { return GroupSolarDay }

func (m SolarDay) Key() string {
	return fmt.Sprintf("solar-day month=%d day=%d", m.Month, m.Day)
}

func (m SolarDay) validate() error {
	if err := checkMonth(m.Month); err != nil {
		return err
	}
	if m.Day < 1 || m.Day > 30 {
		return fmt.Errorf("solar day %d outside 1..30", m.Day)
	}
	return nil
}

// SolarNakshatra matches a lunar mansion inside a solar month.
type SolarNakshatra struct {
	Month     int
	Nakshatra int
}

func (m SolarNakshatra) Match(_ model.Date, p panchang.Snapshot) bool {
	return p.Solar.MonthIndex == m.Month && p.Nakshatra.Index == m.Nakshatra
}

func (m SolarNakshatra) Group() Group { return GroupSolarNakshatra }

func (m SolarNakshatra) Key() string {
	return fmt.Sprintf("solar-nakshatra month=%d nakshatra=%d", m.Month, m.Nakshatra)
}

func (m SolarNakshatra) validate() error {
	if err := checkMonth(m.Month); err != nil {
		return err
	}
	if m.Nakshatra < 0 || m.Nakshatra >= panchang.NakshatraCount {
		return fmt.Errorf("nakshatra %d outside 0..%d", m.Nakshatra, panchang.NakshatraCount-1)
	}
	return nil
}

// SolarTithi matches a lunar day inside a solar month.
type SolarTithi struct {
	Month int
	Tithi int
}

func (m SolarTithi) Match(_ model.Date, p panchang.Snapshot) bool {
	return p.Solar.MonthIndex == m.Month && p.Tithi.Index == m.Tithi
}

func (m SolarTithi) Group() Group { return GroupSolarTithi }

func (m SolarTithi) Key() string {
	return fmt.Sprintf("solar-tithi month=%d tithi=%d", m.Month, m.Tithi)
}

func (m SolarTithi) validate() error {
	if err := checkMonth(m.Month); err != nil {
		return err
	}
	if m.Tithi < 0 || m.Tithi >= panchang.TithiCount {
		return fmt.Errorf("tithi %d outside 0..%d", m.Tithi, panchang.TithiCount-1)
	}
	return nil
}

// Civil matches Gregorian dates described by a yearly RFC 5545 recurrence
// such as "FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=2" or
// "FREQ=YEARLY;BYMONTH=5;BYDAY=2SU". The Panchang snapshot is ignored.
type Civil struct {
	RRule string
}

// Fixed returns a Civil matcher for the same month and day every year.
func Fixed(month time.Month, day int) Civil {
	return Civil{RRule: fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYMONTHDAY=%d", int(month), day)}
}

func (m Civil) Match(d model.Date, _ panchang.Snapshot) bool {
	plan := civilPlanFor(m.RRule)
	if plan.err != nil {
		return false
	}
	day := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return plan.yearDays(d.Year)[day.YearDay()]
}

func (m Civil) Group() Group { return GroupCivil }

func (m Civil) Key() string {
	return "civil " + canonicalRRule(m.RRule)
}

func (m Civil) validate() error {
	plan := civilPlanFor(m.RRule)
	if plan.err != nil {
		return plan.err
	}
	opt := plan.opt
	if opt.Freq != rrule.YEARLY {
		return errors.New("civil rules must use FREQ=YEARLY")
	}
	if opt.Count != 0 {
		return errors.New("civil rules must not use COUNT")
	}
	if opt.Interval > 1 {
		return errors.New("civil rules must not use INTERVAL")
	}
	opt.Dtstart = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := rrule.NewRRule(opt); err != nil {
		return err
	}
	return nil
}

// canonicalRRule upper-cases the rule, strips whitespace and sorts the
// parts after FREQ, so equivalent spellings share one predicate key.
func canonicalRRule(s string) string {
	var freq string
	var rest []string
	for _, part := range strings.Split(strings.ToUpper(strings.Join(strings.Fields(s), "")), ";") {
		switch {
		case part == "":
		case strings.HasPrefix(part, "FREQ="):
			freq = part
		default:
			rest = append(rest, part)
		}
	}
	slices.Sort(rest)
	if freq != "" {
		rest = append([]string{freq}, rest...)
	}
	return strings.Join(rest, ";")
}

// civilPlan is a parsed recurrence plus the days it hits per year.
// Plans are shared by every Civil value with the same canonical rule.
type civilPlan struct {
	opt rrule.ROption
	err error

	mu    sync.Mutex
	years map[int]map[int]bool
}

var civilPlans sync.Map // canonical rule -> *civilPlan

func civilPlanFor(raw string) *civilPlan {
	key := canonicalRRule(raw)
	if p, ok := civilPlans.Load(key); ok {
		return p.(*civilPlan)
	}
	p := &civilPlan{years: make(map[int]map[int]bool)}
	if opt, err := rrule.StrToROption(key); err != nil {
		p.err = err
	} else {
		p.opt = *opt
	}
	actual, _ := civilPlans.LoadOrStore(key, p)
	return actual.(*civilPlan)
}

// yearDays returns the set of YearDay values the rule hits in year. The
// returned map is never modified after it is stored.
func (p *civilPlan) yearDays(year int) map[int]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if days, ok := p.years[year]; ok {
		return days
	}

	days := make(map[int]bool)
	opt := p.opt
	// Anchor at Jan 1 so only this year's instances are generated.
	opt.Dtstart = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	if r, err := rrule.NewRRule(opt); err == nil {
		end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
		for _, t := range r.Between(opt.Dtstart, end, true) {
			days[t.YearDay()] = true
		}
	}
	p.years[year] = days
	return days
}

func checkMonth(m int) error {
	if m < 0 || m >= panchang.SolarMonths {
		return fmt.Errorf("solar month %d outside 0..%d", m, panchang.SolarMonths-1)
	}
	return nil
}
