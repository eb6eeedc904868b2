package ics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "panchcal/internal/log"
	"panchcal/internal/model"
	"panchcal/internal/rules"
)

// ReadHolidays parses an iCalendar stream and returns one civil rule per
// usable VEVENT.
//
//   - A yearly RRULE is kept, with BYMONTH/BYMONTHDAY filled in from
//     DTSTART when the rule leaves them implicit.
//   - A one-off event becomes a fixed yearly date.
//   - Other recurrence frequencies and yearly rules with INTERVAL>1 are
//     skipped.
//   - CATEGORIES selects major/festival/season; anything else is festival.
//
// Events are deduplicated by predicate within the stream; the first one wins.
// Skipped events are logged, not returned as errors.
func ReadHolidays(src string, r io.Reader) ([]rules.Rule, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		appLog.Error("ics parse failed", err, "source", src)
		return nil, fmt.Errorf("ics: parse %s: %w", src, err)
	}

	out := make([]rules.Rule, 0, len(cal.Events()))
	seen := make(map[string]bool)
	for _, ve := range cal.Events() {
		rule, perr := holidayFromEvent(ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "source", src, "uid", ve.Id(), "reason", perr)
			continue
		}
		key := rule.Match.Key()
		if seen[key] {
			appLog.Debug("ics vevent duplicates an earlier event", "source", src, "name", rule.Name)
			continue
		}
		seen[key] = true
		out = append(out, rule)
	}

	appLog.Info("ics holidays loaded", "source", src, "rules", len(out))
	return out, nil
}

// ReadHolidaysFile is ReadHolidays over a local file.
func ReadHolidaysFile(path string) ([]rules.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ics: %w", err)
	}
	defer f.Close()
	return ReadHolidays(path, f)
}

func holidayFromEvent(ve *ical.VEvent) (rules.Rule, error) {
	var out rules.Rule

	p := ve.GetProperty(ical.ComponentPropertySummary)
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return out, errors.New("missing SUMMARY")
	}
	out.Name = strings.TrimSpace(p.Value)

	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = strings.TrimSpace(p.Value)
	}

	out.Category = model.CategoryFestival
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		for _, c := range strings.Split(p.Value, ",") {
			if cat := model.Category(strings.ToLower(strings.TrimSpace(c))); cat.Valid() {
				out.Category = cat
				break
			}
		}
	}

	start, err := ve.GetAllDayStartAt()
	if err != nil {
		if start, err = ve.GetStartAt(); err != nil {
			return out, fmt.Errorf("DTSTART: %w", err)
		}
	}

	raw := ""
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		raw = p.Value
	}
	rr, err := yearlyRRule(raw, start)
	if err != nil {
		return out, err
	}
	out.Match = rules.Civil{RRule: rr}
	// Check the rule on its own so one unusable event is skipped here
	// instead of failing the whole table later.
	if _, err := rules.New(out); err != nil {
		return out, err
	}
	return out, nil
}

// yearlyRRule completes raw so that it pins a date without DTSTART.
func yearlyRRule(raw string, start time.Time) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return rules.Fixed(start.Month(), start.Day()).RRule, nil
	}

	parts := strings.Split(strings.ToUpper(strings.Join(strings.Fields(raw), "")), ";")
	keys := make(map[string]string, len(parts))
	for _, part := range parts {
		k, v, _ := strings.Cut(part, "=")
		keys[k] = v
	}
	if keys["FREQ"] != "YEARLY" {
		return "", fmt.Errorf("unsupported recurrence %q", raw)
	}
	// A bounded series is treated as the open-ended yearly holiday.
	delete(keys, "COUNT")
	delete(keys, "UNTIL")
	if v, ok := keys["INTERVAL"]; ok {
		if v != "1" {
			return "", fmt.Errorf("unsupported recurrence %q: INTERVAL=%s", raw, v)
		}
		delete(keys, "INTERVAL")
	}

	if _, ok := keys["BYMONTH"]; !ok {
		if !hasAny(keys, "BYYEARDAY", "BYWEEKNO") {
			keys["BYMONTH"] = fmt.Sprint(int(start.Month()))
		}
	}
	if !hasAny(keys, "BYMONTHDAY", "BYDAY", "BYYEARDAY", "BYWEEKNO", "BYSETPOS") {
		keys["BYMONTHDAY"] = fmt.Sprint(start.Day())
	}

	ordered := []string{"FREQ=YEARLY"}
	for _, k := range []string{"WKST", "BYMONTH", "BYWEEKNO", "BYYEARDAY", "BYMONTHDAY", "BYDAY", "BYSETPOS"} {
		if v, ok := keys[k]; ok {
			ordered = append(ordered, k+"="+v)
		}
	}
	return strings.Join(ordered, ";"), nil
}

func hasAny(keys map[string]string, names ...string) bool {
	for _, n := range names {
		if _, ok := keys[n]; ok {
			return true
		}
	}
	return false
}
