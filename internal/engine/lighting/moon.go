package lighting

import (
	gomath "math"
	"time"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// Ecliptic is a geocentric ecliptic position, in radians.
type Ecliptic struct {
	Longitude float64
	Latitude  float64
}

// MoonEcliptic returns the moon's ecliptic position at t from the leading
// periodic terms of the lunar theory; good to about a degree.
func MoonEcliptic(t time.Time) Ecliptic {
	d := t.UTC().Sub(j2000).Hours() / 24

	meanLongitude := 218.316 + 13.176396*d
	meanAnomaly := radians(134.963 + 13.064993*d)
	argLatitude := radians(93.272 + 13.229350*d)

	return Ecliptic{
		Longitude: radians(gomath.Mod(meanLongitude+6.289*gomath.Sin(meanAnomaly), 360)),
		Latitude:  radians(5.128 * gomath.Sin(argLatitude)),
	}
}

// obliquity returns the tilt of the ecliptic, in radians.
func obliquity(t time.Time) float64 {
	d := t.UTC().Sub(j2000).Hours() / 24
	return radians(23.439 - 0.0000004*d)
}

// Equatorial converts to right ascension and declination, in radians.
func (e Ecliptic) Equatorial(t time.Time) (ra, dec float64) {
	eps := obliquity(t)
	sinL, cosL := gomath.Sincos(e.Longitude)
	ra = gomath.Atan2(sinL*gomath.Cos(eps)-gomath.Tan(e.Latitude)*gomath.Sin(eps), cosL)
	dec = gomath.Asin(gomath.Sin(e.Latitude)*gomath.Cos(eps) + gomath.Cos(e.Latitude)*gomath.Sin(eps)*sinL)
	return ra, dec
}

// MoonPosition returns the moon's azimuth and elevation seen from
// longitude, latitude (degrees, east and north positive) at t. Parallax is
// ignored.
func MoonPosition(longitude, latitude float64, t time.Time) Horizontal {
	ra, dec := MoonEcliptic(t).Equatorial(t)
	lst := radians(15*GMST(t) + longitude)
	return horizontal(lst-ra, dec, radians(latitude))
}

// MoonMatrix turns the moon's texture quad to face the observer from its
// place on the sky.
func MoonMatrix(moon Horizontal) math.Mat4 {
	return math.Rotate2D(float32(moon.Azimuth), float32(moon.Elevation))
}

// horizontal converts an hour angle and declination to azimuth and
// elevation for an observer at lat, all in radians.
func horizontal(hourAngle, dec, lat float64) Horizontal {
	sinH, cosH := gomath.Sincos(hourAngle)
	sinD, cosD := gomath.Sincos(dec)
	sinP, cosP := gomath.Sincos(lat)

	elevation := gomath.Asin(clamp(sinP*sinD+cosP*cosD*cosH, -1, 1))
	azimuth := gomath.Atan2(-cosD*sinH, sinD*cosP-cosD*cosH*sinP)
	if azimuth < 0 {
		azimuth += 2 * gomath.Pi
	}
	return Horizontal{Azimuth: azimuth, Elevation: elevation}
}
