package rules

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panchcal/internal/model"
	"panchcal/internal/panchang"
)

var ist = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

func date(t *testing.T, y int, m time.Month, d int) model.Date {
	t.Helper()
	out, err := model.NewDate(y, m, d, ist)
	require.NoError(t, err)
	return out
}

func snapshot(month, day, nakshatra, tithi int) panchang.Snapshot {
	var p panchang.Snapshot
	p.Solar.MonthIndex = month
	p.Solar.Day = day
	p.Nakshatra.Index = nakshatra
	p.Tithi.Index = tithi
	return p
}

func names(occ []model.Occurrence) []string {
	out := make([]string, len(occ))
	for i, o := range occ {
		out[i] = o.Name
	}
	return out
}

func TestDefaultTableGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Describe(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "default_rules", buf.Bytes())
}

func TestGandhiJayanthiIndependentOfPanchang(t *testing.T) {
	e := Default()
	for year := 1900; year <= 2100; year += 7 {
		d := date(t, year, time.October, 2)
		for _, p := range []panchang.Snapshot{
			snapshot(0, 1, 0, 0),
			snapshot(5, 15, 20, 9),
			snapshot(11, 30, 26, 29),
		} {
			assert.Contains(t, names(e.Evaluate(d, p)), "Gandhi Jayanthi", "year %d", year)
		}
	}

	got := e.Evaluate(date(t, 2026, time.October, 3), snapshot(5, 16, 4, 21))
	assert.NotContains(t, names(got), "Gandhi Jayanthi")
}

func TestEvaluateReturnsAllMatchesInTableOrder(t *testing.T) {
	e := Default()

	// Vijayadashami fell on Gandhi Jayanthi in 2025.
	d := date(t, 2025, time.October, 2)
	p, err := panchang.Compute(d)
	require.NoError(t, err)

	got := e.Evaluate(d, p)
	assert.Equal(t, []string{"Vijayadashami", "Gandhi Jayanthi"}, names(got))

	primary, ok := e.Primary(d, p)
	require.True(t, ok)
	assert.Equal(t, "Vijayadashami", primary.Name)
	assert.Equal(t, model.CategoryMajor, primary.Category)
}

func TestEvaluateStrategies(t *testing.T) {
	e := Default()
	plain := date(t, 2026, time.June, 10)

	tests := []struct {
		name string
		p    panchang.Snapshot
		want []string
	}{
		{"Vishu", snapshot(0, 1, 7, 5), []string{"Vishu"}},
		{"Medam 2 is not Vishu", snapshot(0, 2, 7, 5), []string{}},
		{"Onam", snapshot(4, 20, 21, 12), []string{"Thiruvonam"}},
		{"Thiruvonam outside Chingam", snapshot(5, 20, 21, 12), []string{}},
		{"Chingam 1 on Atham", snapshot(4, 1, 12, 3), []string{"Chingam 1", "Atham", "Vinayaka Chathurthi"}},
		{"Deepavali", snapshot(6, 4, 13, 29), []string{"Deepavali"}},
		{"Shivaratri", snapshot(10, 3, 21, 28), []string{"Maha Shivaratri"}},
		{"Pooram in Kumbham", snapshot(10, 12, 10, 8), []string{"Attukal Pongala"}},
		{"nothing", snapshot(2, 10, 1, 1), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(e.Evaluate(plain, tt.p)))
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := Default()
	d := date(t, 2025, time.October, 2)
	p := snapshot(5, 15, 20, 9)

	first := e.Evaluate(d, p)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.Evaluate(d, p))
	}
}

func TestCivilRecurrences(t *testing.T) {
	p := snapshot(0, 1, 0, 0)

	fixed := Fixed(time.February, 29)
	assert.True(t, fixed.Match(date(t, 2024, time.February, 29), p))
	assert.False(t, fixed.Match(date(t, 2025, time.March, 1), p))

	mothersDay := Civil{RRule: "FREQ=YEARLY;BYMONTH=5;BYDAY=2SU"}
	require.NoError(t, mothersDay.validate())
	assert.True(t, mothersDay.Match(date(t, 2026, time.May, 10), p))
	assert.False(t, mothersDay.Match(date(t, 2026, time.May, 3), p))
	assert.True(t, mothersDay.Match(date(t, 2025, time.May, 11), p))
}

func TestCanonicalRRule(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=2", "FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=2"},
		{"freq=yearly;bymonthday=2;bymonth=10", "FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=2"},
		{"BYDAY=2SU; BYMONTH=5; FREQ=YEARLY;", "FREQ=YEARLY;BYDAY=2SU;BYMONTH=5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canonicalRRule(tt.in), tt.in)
	}
}

func TestCivilMatchAcrossYears(t *testing.T) {
	p := snapshot(0, 1, 0, 0)
	jayanthi := Civil{RRule: "FREQ=YEARLY;BYMONTHDAY=2;BYMONTH=10"}
	for _, y := range []int{model.MinYear, 1999, 2026, model.MaxYear} {
		assert.True(t, jayanthi.Match(date(t, y, time.October, 2), p), y)
		assert.False(t, jayanthi.Match(date(t, y, time.October, 3), p), y)
	}
	assert.False(t, Civil{RRule: "FREQ=SOMETIMES"}.Match(date(t, 2026, time.October, 2), p))
}

func TestNewRejectsBadTables(t *testing.T) {
	ok := Rule{Name: "Onam", Category: model.CategoryMajor, Match: SolarNakshatra{Month: 4, Nakshatra: 21}}

	tests := []struct {
		name  string
		table []Rule
		pos   int
	}{
		{"empty name", []Rule{{Category: model.CategoryMajor, Match: SolarDay{Month: 0, Day: 1}}}, 1},
		{"bad category", []Rule{{Name: "x", Category: "holiday", Match: SolarDay{Month: 0, Day: 1}}}, 1},
		{"nil matcher", []Rule{{Name: "x", Category: model.CategorySeason}}, 1},
		{"month out of range", []Rule{{Name: "x", Category: model.CategorySeason, Match: SolarDay{Month: 12, Day: 1}}}, 1},
		{"solar day zero", []Rule{{Name: "x", Category: model.CategorySeason, Match: SolarDay{Month: 1, Day: 0}}}, 1},
		{"nakshatra out of range", []Rule{ok, {Name: "x", Category: model.CategoryFestival, Match: SolarNakshatra{Month: 1, Nakshatra: 27}}}, 2},
		{"tithi out of range", []Rule{{Name: "x", Category: model.CategoryFestival, Match: SolarTithi{Month: 1, Tithi: 30}}}, 1},
		{"unparseable rrule", []Rule{{Name: "x", Category: model.CategoryMajor, Match: Civil{RRule: "FREQ=SOMETIMES"}}}, 1},
		{"monthly rrule", []Rule{{Name: "x", Category: model.CategoryMajor, Match: Civil{RRule: "FREQ=MONTHLY;BYMONTHDAY=1"}}}, 1},
		{"count rrule", []Rule{{Name: "x", Category: model.CategoryMajor, Match: Civil{RRule: "FREQ=YEARLY;COUNT=3"}}}, 1},
		{"same predicate", []Rule{ok, {Name: "Onam again", Category: model.CategoryFestival, Match: SolarNakshatra{Month: 4, Nakshatra: 21}}}, 2},
		{"same civil date spelled differently", []Rule{
			{Name: "a", Category: model.CategoryMajor, Match: Fixed(time.October, 2)},
			{Name: "b", Category: model.CategoryMajor, Match: Civil{RRule: "freq=yearly;bymonth=10;bymonthday=2"}},
		}, 2},
		{"same civil date with parts reordered", []Rule{
			{Name: "a", Category: model.CategoryMajor, Match: Fixed(time.October, 2)},
			{Name: "b", Category: model.CategoryMajor, Match: Civil{RRule: "FREQ=YEARLY;BYMONTHDAY=2;BYMONTH=10"}},
		}, 2},
		{"interval rrule", []Rule{{Name: "x", Category: model.CategoryMajor, Match: Civil{RRule: "FREQ=YEARLY;INTERVAL=2;BYMONTH=1;BYMONTHDAY=1"}}}, 1},
		{"group out of order", []Rule{
			{Name: "Christmas", Category: model.CategoryFestival, Match: Fixed(time.December, 25)},
			ok,
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.table...)
			require.Error(t, err)
			require.True(t, IsConfigurationError(err))

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.pos, ce.Position)
		})
	}
}

func TestWithAppendsCivilRules(t *testing.T) {
	extra := Rule{Name: "Samiti Foundation Day", Category: model.CategoryFestival, Match: Fixed(time.March, 12)}
	e, err := Default().With(extra)
	require.NoError(t, err)
	assert.Equal(t, Default().Len()+1, e.Len())

	got := e.Evaluate(date(t, 2026, time.March, 12), snapshot(10, 28, 0, 0))
	assert.Equal(t, []string{"Samiti Foundation Day"}, names(got))

	// The default table is not modified.
	assert.NotContains(t, names(Default().Evaluate(date(t, 2026, time.March, 12), snapshot(10, 28, 0, 0))), "Samiti Foundation Day")

	_, err = Default().With(Rule{Name: "Dup", Category: model.CategoryMajor, Match: Fixed(time.December, 25)})
	assert.True(t, IsConfigurationError(err))
}

func TestRulesReturnsCopy(t *testing.T) {
	e := Default()
	rs := e.Rules()
	require.NotEmpty(t, rs)
	rs[0].Name = "mutated"
	assert.Equal(t, "Vishu", e.Rules()[0].Name)
}

func TestGroupsAreContiguous(t *testing.T) {
	var last Group
	for _, r := range Default().Rules() {
		assert.GreaterOrEqual(t, int(r.Match.Group()), int(last), r.Name)
		last = r.Match.Group()
	}
	assert.Equal(t, GroupCivil, last)
}

func TestHas(t *testing.T) {
	e := Default()
	assert.True(t, e.Has(Fixed(time.December, 25)))
	assert.True(t, e.Has(Civil{RRule: "freq=yearly; bymonth=12; bymonthday=25"}))
	assert.True(t, e.Has(Civil{RRule: "BYMONTHDAY=2;FREQ=YEARLY;BYMONTH=10"}))
	assert.True(t, e.Has(SolarNakshatra{Month: 4, Nakshatra: 21}))
	assert.False(t, e.Has(Fixed(time.December, 26)))
}
