// Package panchang derives the Malayalam solar date, tithi and nakshatra for
// a Gregorian date from sidereal sun and moon positions.
//
// Everything here is a pure function of its inputs. A Snapshot is computed
// for local midnight of the date, not sunrise as in a printed almanac, so a
// tithi or nakshatra that changes early in the morning can show the previous
// value.
package panchang

import (
	"fmt"
	"math"

	"panchcal/internal/astro"
	"panchcal/internal/model"
)

const (
	TithiCount     = 30
	NakshatraCount = 27
	SolarMonths    = 12

	tithiSpan     = 12.0
	nakshatraSpan = 360.0 / NakshatraCount
	signSpan      = 30.0

	// BoundaryMargin is how close (in degrees) the sun may sit to a sign edge
	// before a SolarDate is flagged as NearBoundary. The sun moves about one
	// degree a day, which is also the order of the approximation's error.
	BoundaryMargin = 1.0
)

// Paksha is the waxing or waning half of the lunar month.
type Paksha int

const (
	Waxing Paksha = iota
	Waning
)

func (p Paksha) String() string {
	if p == Waning {
		return "waning"
	}
	return "waxing"
}

// MarshalText renders the paksha as "waxing" or "waning".
func (p Paksha) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Tithi is the lunar day: one of 30 twelve-degree steps of moon-sun
// elongation.
type Tithi struct {
	Index  int    `json:"index"`
	Name   Name   `json:"name"`
	Paksha Paksha `json:"paksha"`
}

// Nakshatra is one of 27 lunar mansions of 13°20' each.
type Nakshatra struct {
	Index int  `json:"index"`
	Name  Name `json:"name"`
}

// SolarDate is the Malayalam solar month and day.
//
// Day is the degree of the sun within its sign plus one, so it always lies in
// 1..30 and does not count civil days since the month began: a day number
// can repeat or be skipped across consecutive dates. NearBoundary marks
// dates where the sun is within BoundaryMargin of a sign edge and the month
// itself may be off by one day.
type SolarDate struct {
	MonthIndex   int     `json:"month_index"`
	MonthName    Name    `json:"month_name"`
	Day          int     `json:"day"`
	Degree       float64 `json:"degree"`
	NearBoundary bool    `json:"near_boundary"`
}

// Snapshot aggregates the Panchang attributes of one date.
type Snapshot struct {
	Tithi     Tithi     `json:"tithi"`
	Nakshatra Nakshatra `json:"nakshatra"`
	Solar     SolarDate `json:"solar"`

	// LunarMonth is an auxiliary lunar month number for display only.
	LunarMonth int `json:"lunar_month"`
}

// Positions holds the intermediate sidereal positions for a date.
type Positions struct {
	JulianDay    float64 `json:"julian_day"`
	Ayanamsa     float64 `json:"ayanamsa"`
	SunSidereal  float64 `json:"sun_sidereal"`
	MoonSidereal float64 `json:"moon_sidereal"`
	MoonLatitude float64 `json:"moon_latitude"`
}

// PositionsOf computes sidereal sun and moon longitudes at local midnight of d.
func PositionsOf(d model.Date) (Positions, error) {
	if err := d.Validate(); err != nil {
		return Positions{}, err
	}
	return positions(d)
}

func positions(d model.Date) (Positions, error) {
	jd := astro.JulianDay(d.Time())
	ayan := astro.Ayanamsa(jd)
	p := Positions{
		JulianDay:    jd,
		Ayanamsa:     ayan,
		SunSidereal:  astro.ToSidereal(astro.SunLongitude(jd), ayan),
		MoonSidereal: astro.ToSidereal(astro.MoonLongitude(jd), ayan),
		MoonLatitude: astro.MoonLatitude(jd),
	}
	for _, v := range []float64{p.JulianDay, p.Ayanamsa, p.SunSidereal, p.MoonSidereal} {
		if !finite(v) {
			return Positions{}, &model.InvalidDateError{Input: d.String(), Reason: "non-finite astronomical intermediate"}
		}
	}
	return p, nil
}

// Compute returns the Panchang snapshot for d. Identical input always yields
// an identical snapshot.
func Compute(d model.Date) (Snapshot, error) {
	if err := d.Validate(); err != nil {
		return Snapshot{}, err
	}
	return compute(d)
}

// ComputeUnranged is Compute without the supported-year check. Month grids
// use it for padding days that spill past the first or last supported month.
func ComputeUnranged(d model.Date) (Snapshot, error) {
	return compute(d)
}

func compute(d model.Date) (Snapshot, error) {
	pos, err := positions(d)
	if err != nil {
		return Snapshot{}, err
	}

	tithi, err := TithiAt(pos.SunSidereal, pos.MoonSidereal)
	if err != nil {
		return Snapshot{}, annotate(err, d)
	}
	nak, err := NakshatraAt(pos.MoonSidereal)
	if err != nil {
		return Snapshot{}, annotate(err, d)
	}
	solar, err := SolarDateAt(pos.SunSidereal)
	if err != nil {
		return Snapshot{}, annotate(err, d)
	}

	return Snapshot{
		Tithi:      tithi,
		Nakshatra:  nak,
		Solar:      solar,
		LunarMonth: LunarMonthIndex(solar.MonthIndex, tithi),
	}, nil
}

// SolarCalendarDate returns only the solar month and day for d.
func SolarCalendarDate(d model.Date) (SolarDate, error) {
	pos, err := PositionsOf(d)
	if err != nil {
		return SolarDate{}, err
	}
	solar, err := SolarDateAt(pos.SunSidereal)
	if err != nil {
		return SolarDate{}, annotate(err, d)
	}
	return solar, nil
}

// TithiAt derives the tithi from sidereal sun and moon longitudes.
func TithiAt(sunSidereal, moonSidereal float64) (Tithi, error) {
	if !finite(sunSidereal) || !finite(moonSidereal) {
		return Tithi{}, errNonFinite("tithi")
	}
	elong := astro.Normalize(moonSidereal - sunSidereal)
	idx := clampIndex(int(math.Floor(elong/tithiSpan)), TithiCount)

	name, _ := TithiName(idx)
	paksha := Waxing
	if idx >= 15 {
		paksha = Waning
	}
	return Tithi{Index: idx, Name: name, Paksha: paksha}, nil
}

// NakshatraAt derives the lunar mansion from the moon's sidereal longitude.
func NakshatraAt(moonSidereal float64) (Nakshatra, error) {
	if !finite(moonSidereal) {
		return Nakshatra{}, errNonFinite("nakshatra")
	}
	lon := astro.Normalize(moonSidereal)
	idx := clampIndex(int(math.Floor(lon/nakshatraSpan)), NakshatraCount)

	name, _ := NakshatraName(idx)
	return Nakshatra{Index: idx, Name: name}, nil
}

// SolarDateAt derives the solar month and day from the sun's sidereal
// longitude.
func SolarDateAt(sunSidereal float64) (SolarDate, error) {
	if !finite(sunSidereal) {
		return SolarDate{}, errNonFinite("solar date")
	}
	lon := astro.Normalize(sunSidereal)
	sign := clampIndex(int(math.Floor(lon/signSpan)), SolarMonths)
	deg := math.Mod(lon, signSpan)

	name, _ := SolarMonthName(sign)
	return SolarDate{
		MonthIndex:   sign,
		MonthName:    name,
		Day:          int(math.Floor(deg)) + 1,
		Degree:       deg,
		NearBoundary: deg < BoundaryMargin || deg > signSpan-BoundaryMargin,
	}, nil
}

// LunarMonthIndex numbers the lunar month from the solar sign: during the
// waxing half it is already the month after the sign.
func LunarMonthIndex(signIndex int, t Tithi) int {
	if t.Paksha == Waxing {
		return (signIndex + 1) % SolarMonths
	}
	return signIndex % SolarMonths
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clampIndex guards the floor of a value that is in [0, n) mathematically
// but may land on n after floating-point rounding.
func clampIndex(i, n int) int {
	if i >= n {
		return n - 1
	}
	if i < 0 {
		return 0
	}
	return i
}

func errNonFinite(what string) error {
	return &model.InvalidDateError{Reason: fmt.Sprintf("non-finite longitude for %s", what)}
}

func annotate(err error, d model.Date) error {
	if ide, ok := err.(*model.InvalidDateError); ok && ide.Input == "" {
		return &model.InvalidDateError{Input: d.String(), Reason: ide.Reason, Err: ide.Err}
	}
	return err
}
