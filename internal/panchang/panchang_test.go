package panchang

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"panchcal/internal/model"
)

var ist = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

func date(t *testing.T, y int, m time.Month, d int) model.Date {
	t.Helper()
	out, err := model.NewDate(y, m, d, ist)
	require.NoError(t, err)
	return out
}

func TestComputeKnownDates(t *testing.T) {
	tests := []struct {
		name      string
		date      model.Date
		tithi     int
		nakshatra string
		month     string
		day       int
	}{
		{"Thiruvonam 2025", date(t, 2025, time.September, 6), 12, "Thiruvonam", "Chingam", 20},
		{"Vijayadashami 2025", date(t, 2025, time.October, 2), 9, "Uthradam", "Kanni", 15},
		{"Deepavali 2025", date(t, 2025, time.October, 21), 29, "Chithira", "Thulam", 4},
		{"Vishu 2026", date(t, 2026, time.April, 15), 27, "Pooruruttathi", "Medam", 1},
		{"Gandhi Jayanthi 2026", date(t, 2026, time.October, 2), 20, "Rohini", "Kanni", 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Compute(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.tithi, snap.Tithi.Index)
			assert.Equal(t, tt.nakshatra, snap.Nakshatra.Name.English)
			assert.Equal(t, tt.month, snap.Solar.MonthName.English)
			assert.Equal(t, tt.day, snap.Solar.Day)
		})
	}
}

func TestComputeRangesOverYears(t *testing.T) {
	d := date(t, 1990, time.January, 1)
	for i := 0; i < 60*366; i += 3 {
		cur := d.AddDays(i)
		snap, err := Compute(cur)
		require.NoError(t, err, cur.String())

		if snap.Tithi.Index < 0 || snap.Tithi.Index >= TithiCount {
			t.Fatalf("%s: tithi %d out of range", cur, snap.Tithi.Index)
		}
		if snap.Nakshatra.Index < 0 || snap.Nakshatra.Index >= NakshatraCount {
			t.Fatalf("%s: nakshatra %d out of range", cur, snap.Nakshatra.Index)
		}
		if snap.Solar.MonthIndex < 0 || snap.Solar.MonthIndex >= SolarMonths {
			t.Fatalf("%s: solar month %d out of range", cur, snap.Solar.MonthIndex)
		}
		if snap.Solar.Day < 1 || snap.Solar.Day > 30 {
			t.Fatalf("%s: solar day %d out of range", cur, snap.Solar.Day)
		}
		if snap.LunarMonth < 0 || snap.LunarMonth >= SolarMonths {
			t.Fatalf("%s: lunar month %d out of range", cur, snap.LunarMonth)
		}
	}
}

func TestPositionsNormalized(t *testing.T) {
	d := date(t, 2000, time.January, 1)
	for i := 0; i < 3650; i += 11 {
		pos, err := PositionsOf(d.AddDays(i))
		require.NoError(t, err)
		for _, v := range []float64{pos.SunSidereal, pos.MoonSidereal} {
			assert.True(t, v >= 0 && v < 360, "sidereal longitude %v", v)
		}
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	d := date(t, 2026, time.October, 16)
	a, err := Compute(d)
	require.NoError(t, err)
	b, err := Compute(d)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, math.Float64bits(a.Solar.Degree), math.Float64bits(b.Solar.Degree))
}

func TestSolarMonthStableInsideChingam(t *testing.T) {
	for day := 25; day <= 31; day++ {
		sd, err := SolarCalendarDate(date(t, 2026, time.August, day))
		require.NoError(t, err)
		assert.Equal(t, 4, sd.MonthIndex, "Aug %d", day)
		assert.Equal(t, "Chingam", sd.MonthName.English)
		assert.False(t, sd.NearBoundary)
	}
}

func TestSolarDayRepeatsAtSignBoundaryIsFlagged(t *testing.T) {
	// The sun enters Karkidakam just after midnight on Jul 17 2025 and is
	// still inside its first degree a day later.
	first, err := SolarCalendarDate(date(t, 2025, time.July, 17))
	require.NoError(t, err)
	second, err := SolarCalendarDate(date(t, 2025, time.July, 18))
	require.NoError(t, err)

	assert.Equal(t, 3, first.MonthIndex)
	assert.Equal(t, 1, first.Day)
	assert.Equal(t, 1, second.Day)
	assert.True(t, first.NearBoundary)
	assert.True(t, second.NearBoundary)
}

func TestComputeRejectsInvalidDates(t *testing.T) {
	bad := []model.Date{
		{Year: 2026, Month: time.February, Day: 30, Loc: ist},
		{Year: 2026, Month: 0, Day: 1},
		{Year: 1500, Month: time.January, Day: 1},
	}
	for _, d := range bad {
		_, err := Compute(d)
		assert.True(t, model.IsInvalidDate(err), "%+v", d)

		_, err = SolarCalendarDate(d)
		assert.True(t, model.IsInvalidDate(err), "%+v", d)
	}
}

func TestComputeUnrangedSkipsOnlyYearCheck(t *testing.T) {
	d := model.Date{Year: 1799, Month: time.December, Day: 29, Loc: ist}
	_, err := Compute(d)
	assert.True(t, model.IsInvalidDate(err))

	snap, err := ComputeUnranged(d)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snap.Tithi.Index, 0)
	assert.Less(t, snap.Nakshatra.Index, NakshatraCount)

	inRange := model.Date{Year: 2025, Month: time.September, Day: 6, Loc: ist}
	a, err := Compute(inRange)
	require.NoError(t, err)
	b, err := ComputeUnranged(inRange)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTithiAt(t *testing.T) {
	tests := []struct {
		name   string
		sun    float64
		moon   float64
		index  int
		paksha Paksha
		eng    string
	}{
		{"conjunction", 100, 100, 0, Waxing, "Prathama"},
		{"first step", 100, 112.5, 1, Waxing, "Dwitiya"},
		{"full moon", 10, 190, 15, Waning, "Prathama"},
		{"last waxing", 10, 189.9, 14, Waxing, "Pournami"},
		{"wraps around", 350, 20, 2, Waxing, "Tritiya"},
		{"new moon", 0, 359, 29, Waning, "Amavasya"},
		{"waning chaturdashi", 0, 347, 28, Waning, "Chathurdashi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TithiAt(tt.sun, tt.moon)
			require.NoError(t, err)
			assert.Equal(t, tt.index, got.Index)
			assert.Equal(t, tt.paksha, got.Paksha)
			assert.Equal(t, tt.eng, got.Name.English)
		})
	}
}

func TestNakshatraAt(t *testing.T) {
	got, err := NakshatraAt(0)
	require.NoError(t, err)
	assert.Equal(t, "Ashwathy", got.Name.English)

	got, err = NakshatraAt(359.999)
	require.NoError(t, err)
	assert.Equal(t, 26, got.Index)
	assert.Equal(t, "Revathi", got.Name.English)

	got, err = NakshatraAt(13.34)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Index)
}

func TestSolarDateAt(t *testing.T) {
	got, err := SolarDateAt(0.5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MonthIndex)
	assert.Equal(t, "Medam", got.MonthName.English)
	assert.Equal(t, 1, got.Day)
	assert.True(t, got.NearBoundary)

	got, err = SolarDateAt(359.9)
	require.NoError(t, err)
	assert.Equal(t, 11, got.MonthIndex)
	assert.Equal(t, 30, got.Day)
	assert.True(t, got.NearBoundary)

	got, err = SolarDateAt(135)
	require.NoError(t, err)
	assert.Equal(t, 4, got.MonthIndex)
	assert.Equal(t, 16, got.Day)
	assert.False(t, got.NearBoundary)
}

func TestNonFiniteLongitudesFailFast(t *testing.T) {
	_, err := TithiAt(math.NaN(), 10)
	assert.True(t, model.IsInvalidDate(err))
	_, err = NakshatraAt(math.Inf(1))
	assert.True(t, model.IsInvalidDate(err))
	_, err = SolarDateAt(math.NaN())
	assert.True(t, model.IsInvalidDate(err))
}

func TestLunarMonthIndex(t *testing.T) {
	waxing := Tithi{Index: 3, Paksha: Waxing}
	waning := Tithi{Index: 20, Paksha: Waning}
	assert.Equal(t, 5, LunarMonthIndex(4, waxing))
	assert.Equal(t, 4, LunarMonthIndex(4, waning))
	assert.Equal(t, 0, LunarMonthIndex(11, waxing))
	assert.Equal(t, 11, LunarMonthIndex(11, waning))
}

func TestNameTables(t *testing.T) {
	assert.Len(t, solarMonthNames, SolarMonths)
	assert.Len(t, nakshatraNames, NakshatraCount)
	assert.Len(t, tithiCycleNames, 14)

	for i := 0; i < TithiCount; i++ {
		n, ok := TithiName(i)
		require.True(t, ok)
		assert.NotEmpty(t, n.English)
		assert.True(t, norm.NFC.IsNormalString(n.Native), "tithi %d", i)
	}
	_, ok := TithiName(TithiCount)
	assert.False(t, ok)
	_, ok = NakshatraName(-1)
	assert.False(t, ok)
	_, ok = SolarMonthName(12)
	assert.False(t, ok)

	idx, ok := NakshatraIndex("Thiruvonam")
	assert.True(t, ok)
	assert.Equal(t, 21, idx)
	idx, ok = SolarMonthIndex("Chingam")
	assert.True(t, ok)
	assert.Equal(t, 4, idx)
	_, ok = SolarMonthIndex("Sravana")
	assert.False(t, ok)
}

func TestPakshaText(t *testing.T) {
	b, err := Waning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "waning", string(b))
	assert.Equal(t, "waxing", Waxing.String())
}
