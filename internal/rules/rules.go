// Package rules maps a date and its Panchang snapshot onto named festival and
// holiday occurrences.
//
// A rule table is an ordered list of declarative Rule records. Rules are
// grouped by matching strategy (solar day, solar month + nakshatra, solar
// month + tithi, Gregorian recurrence) and the table must list the groups in
// that order. Evaluate walks the whole table on every call, with no
// short-circuit and no deduplication, so the first occurrence it returns is a
// stable "primary" label for the day.
package rules

import (
	"fmt"
	"io"
	"strings"

	"panchcal/internal/model"
	"panchcal/internal/panchang"
)

// Rule is one entry of the table.
type Rule struct {
	Name        string
	Category    model.Category
	Description string
	Match       Matcher
}

// Occurrence returns the event a matching rule produces.
func (r Rule) Occurrence() model.Occurrence {
	return model.Occurrence{
		Name:        r.Name,
		Category:    r.Category,
		Description: r.Description,
	}
}

// Engine evaluates a validated, immutable rule table.
// An Engine is safe for concurrent use.
type Engine struct {
	rules []Rule
}

// New validates the table and returns an Engine over a private copy of it.
func New(table ...Rule) (*Engine, error) {
	rules := make([]Rule, len(table))
	copy(rules, table)

	seen := make(map[string]int, len(rules))
	var last Group
	for i, r := range rules {
		pos := i + 1
		fail := func(reason string, err error) error {
			return &ConfigurationError{Position: pos, Rule: r.Name, Reason: reason, Err: err}
		}

		if strings.TrimSpace(r.Name) == "" {
			return nil, fail("name is empty", nil)
		}
		if !r.Category.Valid() {
			return nil, fail(fmt.Sprintf("unknown category %q", r.Category), nil)
		}
		if r.Match == nil {
			return nil, fail("no matcher", nil)
		}
		if err := r.Match.validate(); err != nil {
			return nil, fail("invalid matcher", err)
		}
		g := r.Match.Group()
		if g < last {
			return nil, fail(fmt.Sprintf("%s rule listed after %s rules", g, last), nil)
		}
		last = g
		key := r.Match.Key()
		if prev, dup := seen[key]; dup {
			return nil, fail(fmt.Sprintf("same predicate as rule %d (%s)", prev, key), nil)
		}
		seen[key] = pos
	}

	return &Engine{rules: rules}, nil
}

// With returns a new Engine with extra rules appended to this table.
func (e *Engine) With(extra ...Rule) (*Engine, error) {
	table := make([]Rule, 0, len(e.rules)+len(extra))
	table = append(table, e.rules...)
	table = append(table, extra...)
	return New(table...)
}

// Evaluate returns every matching occurrence in table order.
func (e *Engine) Evaluate(d model.Date, p panchang.Snapshot) []model.Occurrence {
	out := make([]model.Occurrence, 0, 2)
	for _, r := range e.rules {
		if r.Match.Match(d, p) {
			out = append(out, r.Occurrence())
		}
	}
	return out
}

// Primary returns the first occurrence for the day, if any.
func (e *Engine) Primary(d model.Date, p panchang.Snapshot) (model.Occurrence, bool) {
	for _, r := range e.rules {
		if r.Match.Match(d, p) {
			return r.Occurrence(), true
		}
	}
	return model.Occurrence{}, false
}

// Has reports whether the table already holds a rule with m's predicate.
func (e *Engine) Has(m Matcher) bool {
	key := m.Key()
	for _, r := range e.rules {
		if r.Match.Key() == key {
			return true
		}
	}
	return false
}

// Rules returns a copy of the table.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Len returns the number of rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Describe writes one tab-separated line per rule:
// position, category, predicate key, name.
func (e *Engine) Describe(w io.Writer) error {
	for i, r := range e.rules {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.Category, r.Match.Key(), r.Name); err != nil {
			return err
		}
	}
	return nil
}
