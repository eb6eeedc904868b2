// Package astro computes approximate solar and lunar ecliptic longitudes.
//
// The formulas are truncated low-order series (a two-term solar equation of
// centre, and the lunar equation of centre plus evection and variation) with a
// linear ayanamsa. Expect errors of a few tenths of a degree for the moon;
// that is enough to name a tithi or nakshatra for a day, occasionally off by
// one near a boundary.
package astro

import "math"

const (
	// J2000 is the Julian Day of 2000-01-01 12:00 TT.
	J2000 = 2451545.0

	julianCentury = 36525.0
	unixEpochJD   = 2440587.5
	msPerDay      = 86400000.0
)

// Linear ayanamsa fit: degrees at J2000 and drift per Julian century.
const (
	ayanamsaAtJ2000    = 24.103388
	ayanamsaPerCentury = 1.28195
)

// Normalize maps a degree value into [0, 360). Non-finite input yields NaN,
// which callers must check before using the result as a table index.
func Normalize(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// -tiny + 360 can round up to exactly 360.
	if r >= 360 {
		r = 0
	}
	return r
}

// ToSidereal converts a tropical longitude to a sidereal one.
func ToSidereal(tropical, ayanamsa float64) float64 {
	return Normalize(tropical - ayanamsa)
}

// Ayanamsa returns the approximate precession offset in degrees for jd.
func Ayanamsa(jd float64) float64 {
	return ayanamsaAtJ2000 + ayanamsaPerCentury*JulianCenturies(jd)
}

// SunLongitude returns the sun's apparent tropical longitude in [0, 360).
func SunLongitude(jd float64) float64 {
	d := jd - J2000
	l := sunMeanLongitude(d)
	g := 357.528 + 0.9856003*d
	return Normalize(l + 1.915*sinDeg(g) + 0.020*sinDeg(2*g))
}

// MoonLongitude returns the moon's tropical longitude in [0, 360).
func MoonLongitude(jd float64) float64 {
	d := jd - J2000
	l := 218.316 + 13.176396*d
	m := 134.963 + 13.064993*d
	elong := l - sunMeanLongitude(d)

	lon := l +
		6.289*sinDeg(m) + // equation of centre
		1.274*sinDeg(2*elong-m) + // evection
		0.658*sinDeg(2*elong) // variation
	return Normalize(lon)
}

// MoonLatitude returns the moon's ecliptic latitude in degrees from the mean
// argument of latitude.
func MoonLatitude(jd float64) float64 {
	d := jd - J2000
	f := 93.272 + 13.229350*d
	return 5.128 * sinDeg(f)
}

func sunMeanLongitude(d float64) float64 {
	return 280.460 + 0.9856474*d
}

func sinDeg(deg float64) float64 {
	return math.Sin(deg * math.Pi / 180)
}
