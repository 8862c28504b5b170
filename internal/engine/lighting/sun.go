// Package lighting computes where the sun, the moon and the celestial
// sphere are for an observer on Earth at a given instant.
package lighting

import (
	gomath "math"
	"time"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// Horizontal is a position on the observer's sky, in radians.
// Azimuth runs clockwise from north, elevation up from the horizon.
type Horizontal struct {
	Azimuth   float64
	Elevation float64
}

// SolarPosition is the sun's horizontal position.
type SolarPosition = Horizontal

// Direction converts the position to a unit vector pointing at the body,
// with +Y up and north toward -Z.
func (p Horizontal) Direction() math.Vec3 {
	cosEl := gomath.Cos(p.Elevation)
	return math.Vec3{
		X: float32(gomath.Sin(p.Azimuth) * cosEl),
		Y: float32(gomath.Sin(p.Elevation)),
		Z: float32(-gomath.Cos(p.Azimuth) * cosEl),
	}
}

// yearAngle is the fractional year in radians, zero at the March equinox.
func yearAngle(t time.Time) float64 {
	return float64(t.UTC().YearDay()-81) * 2 * gomath.Pi / 365
}

// EquationOfTime returns the apparent minus mean solar time, in minutes.
func EquationOfTime(t time.Time) float64 {
	b := yearAngle(t)
	return 9.87*gomath.Sin(2*b) - 7.53*gomath.Cos(b) - 1.5*gomath.Sin(b)
}

// Declination returns the sun's declination, in radians.
func Declination(t time.Time) float64 {
	return radians(23.45 * gomath.Sin(yearAngle(t)))
}

// LocalSolarTime shifts t by the longitude and the equation of time.
func LocalSolarTime(longitude float64, t time.Time) time.Time {
	correction := 4*longitude + EquationOfTime(t)
	return t.UTC().Add(time.Duration(correction * float64(time.Minute)))
}

// HourAngle returns the sun's hour angle in radians: zero at solar noon,
// negative in the morning.
func HourAngle(longitude float64, t time.Time) float64 {
	solar := LocalSolarTime(longitude, t)
	seconds := solar.Hour()*3600 + solar.Minute()*60 + solar.Second()
	hours := float64(seconds) / 3600
	return radians(15) * (hours - 12)
}

// SunPosition returns the sun's azimuth and elevation seen from longitude,
// latitude (degrees, east and north positive) at t.
func SunPosition(longitude, latitude float64, t time.Time) SolarPosition {
	lat := radians(latitude)
	hra := HourAngle(longitude, t)
	decl := Declination(t)

	elevation := gomath.Asin(gomath.Sin(decl)*gomath.Sin(lat) + gomath.Cos(decl)*gomath.Cos(lat)*gomath.Cos(hra))
	cosAz := (gomath.Sin(decl)*gomath.Cos(lat) - gomath.Cos(decl)*gomath.Sin(lat)*gomath.Cos(hra)) / gomath.Cos(elevation)
	azimuth := gomath.Acos(clamp(cosAz, -1, 1))
	if hra > 0 {
		azimuth = 2*gomath.Pi - azimuth
	}

	return SolarPosition{Azimuth: azimuth, Elevation: elevation}
}

func radians(deg float64) float64 {
	return deg * gomath.Pi / 180
}

func clamp(v, lo, hi float64) float64 {
	return gomath.Max(lo, gomath.Min(hi, v))
}
