package astro

import "time"

// JulianDay returns the Julian Day of the instant t. Passing local midnight
// of a calendar date yields the JD of the matching UTC instant, so the zone
// offset is accounted for.
func JulianDay(t time.Time) float64 {
	return float64(t.UnixMilli())/msPerDay + unixEpochJD
}

// JulianCenturies returns Julian centuries elapsed since J2000.
func JulianCenturies(jd float64) float64 {
	return (jd - J2000) / julianCentury
}
