package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panchcal/internal/calendar"
	"panchcal/internal/model"
	"panchcal/internal/rules"
)

var ist = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

func occurrencesDecJan(t *testing.T) []model.DatedOccurrence {
	t.Helper()
	s := calendar.New(calendar.WithLocation(ist))
	from, err := s.Date(2025, time.December, 1)
	require.NoError(t, err)
	to, err := s.Date(2026, time.January, 31)
	require.NoError(t, err)
	occ, err := s.EventsBetween(from, to)
	require.NoError(t, err)
	require.Len(t, occ, 5)
	return occ
}

func exporter() Exporter {
	return Exporter{
		CalendarName: "Kerala Holidays",
		Location:     ist,
		Now:          func() time.Time { return time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC) },
	}
}

func TestExportParsesBack(t *testing.T) {
	occ := occurrencesDecJan(t)

	var buf bytes.Buffer
	require.NoError(t, exporter().Export(&buf, occ))
	assert.Contains(t, buf.String(), "X-WR-CALNAME:Kerala Holidays")
	assert.Contains(t, buf.String(), "PRODID:"+DefaultProductID)

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, len(occ))
	for i, ev := range events {
		o := occ[i]
		assert.Equal(t, UID(o.Date, o.Name), ev.Id())
		assert.Equal(t, o.Name, ev.GetProperty(ical.ComponentPropertySummary).Value)
		assert.Equal(t, string(o.Category), ev.GetProperty(ical.ComponentPropertyCategories).Value)

		start, err := ev.GetAllDayStartAt()
		require.NoError(t, err)
		assert.Equal(t, o.Date.String(), start.Format("2006-01-02"))

		end, err := ev.GetAllDayEndAt()
		require.NoError(t, err)
		assert.Equal(t, o.Date.AddDays(1).String(), end.Format("2006-01-02"))
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Exporter{}.Export(&buf, nil))

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Empty(t, cal.Events())
	assert.Contains(t, buf.String(), "X-WR-CALNAME:"+DefaultCalendarName)
}

func TestExportIsDeterministic(t *testing.T) {
	occ := occurrencesDecJan(t)
	var a, b bytes.Buffer
	require.NoError(t, exporter().Export(&a, occ))
	require.NoError(t, exporter().Export(&b, occ))
	assert.Equal(t, a.String(), b.String())
}

func TestUID(t *testing.T) {
	d, err := model.NewDate(2026, time.October, 2, ist)
	require.NoError(t, err)

	a := UID(d, "Gandhi Jayanthi")
	assert.Equal(t, a, UID(d, "Gandhi Jayanthi"))
	assert.NotEqual(t, a, UID(d, "Vijayadashami"))
	assert.NotEqual(t, a, UID(d.AddDays(365), "Gandhi Jayanthi"))

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
}

const holidayFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//holidays//EN
BEGIN:VEVENT
UID:mannam@example
SUMMARY:Mannam Jayanthi
CATEGORIES:Major
DTSTART;VALUE=DATE:20260102
END:VEVENT
BEGIN:VEVENT
UID:mothers@example
SUMMARY:Mothers Day
DTSTART;VALUE=DATE:20250511
RRULE:FREQ=YEARLY;BYMONTH=5;BYDAY=2SU
END:VEVENT
BEGIN:VEVENT
UID:anniv@example
SUMMARY:Library Anniversary
DESCRIPTION:Founded in 1829
DTSTART;VALUE=DATE:20240310
RRULE:FREQ=YEARLY;COUNT=5
END:VEVENT
BEGIN:VEVENT
UID:weekly@example
SUMMARY:Market Day
DTSTART;VALUE=DATE:20240101
RRULE:FREQ=WEEKLY
END:VEVENT
BEGIN:VEVENT
UID:census@example
SUMMARY:Census Day
DTSTART;VALUE=DATE:20260301
RRULE:FREQ=YEARLY;INTERVAL=10
END:VEVENT
BEGIN:VEVENT
UID:nameless@example
DTSTART;VALUE=DATE:20240101
END:VEVENT
BEGIN:VEVENT
UID:mannam-again@example
SUMMARY:Mannam Jayanthi (observed)
DTSTART;VALUE=DATE:20270102
END:VEVENT
END:VCALENDAR
`

func TestReadHolidays(t *testing.T) {
	feed := strings.ReplaceAll(holidayFeed, "\n", "\r\n")
	got, err := ReadHolidays("feed", strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Mannam Jayanthi", got[0].Name)
	assert.Equal(t, model.CategoryMajor, got[0].Category)
	assert.Equal(t, rules.Fixed(time.January, 2), got[0].Match)

	assert.Equal(t, "Mothers Day", got[1].Name)
	assert.Equal(t, model.CategoryFestival, got[1].Category)
	assert.Equal(t, rules.Civil{RRule: "FREQ=YEARLY;BYMONTH=5;BYDAY=2SU"}, got[1].Match)

	assert.Equal(t, "Library Anniversary", got[2].Name)
	assert.Equal(t, "Founded in 1829", got[2].Description)
	assert.Equal(t, rules.Civil{RRule: "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=10"}, got[2].Match)

	// The imported rules extend the default table cleanly.
	e, err := rules.Default().With(got...)
	require.NoError(t, err)
	assert.Equal(t, rules.Default().Len()+3, e.Len())
}

func TestReadHolidaysRoundTripsExport(t *testing.T) {
	occ := occurrencesDecJan(t)
	var buf bytes.Buffer
	require.NoError(t, exporter().Export(&buf, occ))

	got, err := ReadHolidays("export", &buf)
	require.NoError(t, err)
	require.Len(t, got, len(occ))
	for i, r := range got {
		assert.Equal(t, occ[i].Name, r.Name)
		assert.Equal(t, occ[i].Category, r.Category)
		assert.Equal(t, rules.Fixed(occ[i].Date.Month, occ[i].Date.Day), r.Match)
	}
}

func TestReadHolidaysRejectsGarbage(t *testing.T) {
	_, err := ReadHolidays("junk", strings.NewReader("not a calendar"))
	assert.Error(t, err)
}

func TestYearlyRRule(t *testing.T) {
	start := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		raw  string
		want string
	}{
		{"", "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=10"},
		{"FREQ=YEARLY", "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=10"},
		{"freq=yearly;bymonth=11;byday=-1th", "FREQ=YEARLY;BYMONTH=11;BYDAY=-1TH"},
		{"FREQ=YEARLY;UNTIL=20300101T000000Z;BYMONTHDAY=1", "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=1"},
		{"FREQ=YEARLY;BYYEARDAY=100", "FREQ=YEARLY;BYYEARDAY=100"},
		{"FREQ=YEARLY;INTERVAL=1;BYMONTHDAY=5", "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=5"},
	}
	for _, tt := range tests {
		got, err := yearlyRRule(tt.raw, start)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := yearlyRRule("FREQ=MONTHLY;BYMONTHDAY=1", start)
	assert.Error(t, err)

	_, err = yearlyRRule("FREQ=YEARLY;INTERVAL=4", start)
	assert.ErrorContains(t, err, "INTERVAL=4")
}

func TestReadHolidaysSkipsEventsTheEngineRejects(t *testing.T) {
	feed := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//holidays//EN
BEGIN:VEVENT
UID:bad-day@example
SUMMARY:Bad Weekday
DTSTART;VALUE=DATE:20260301
RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=XX
END:VEVENT
BEGIN:VEVENT
UID:good@example
SUMMARY:Library Day
DTSTART;VALUE=DATE:20260914
END:VEVENT
END:VCALENDAR
`
	got, err := ReadHolidays("feed", strings.NewReader(strings.ReplaceAll(feed, "\n", "\r\n")))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Library Day", got[0].Name)

	_, err = rules.Default().With(got...)
	assert.NoError(t, err)
}
