package lighting

import (
	gomath "math"
	"time"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// j2000 is the epoch 2000-01-01 12:00 UTC.
var j2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// GMST returns Greenwich mean sidereal time in hours, in [0, 24).
func GMST(t time.Time) float64 {
	days := t.UTC().Sub(j2000).Hours() / 24
	gmst := gomath.Mod(18.697374558+24.06570982441908*days, 24)
	if gmst < 0 {
		gmst += 24
	}
	return gmst
}

// CelestialMatrix orients the star sphere for an observer: tilt the pole by
// the colatitude, then spin by longitude plus sidereal time.
func CelestialMatrix(longitude, latitude float64, t time.Time) math.Mat4 {
	declination := math.RotateX(float32(radians(90 - latitude)))
	rotation := math.RotateY(float32(radians(longitude + 360*GMST(t)/24)))
	return declination.Mul(rotation)
}

// Astronomy is everything the sky and lighting passes need for one frame.
type Astronomy struct {
	Sun        SolarPosition
	SunVector  math.Vec3
	Moon       Horizontal
	MoonVector math.Vec3
	MoonMatrix math.Mat4
	Celestial  math.Mat4
}

// Observe computes the astronomy for longitude, latitude at t.
func Observe(longitude, latitude float64, t time.Time) Astronomy {
	sun := SunPosition(longitude, latitude, t)
	moon := MoonPosition(longitude, latitude, t)
	return Astronomy{
		Sun:        sun,
		SunVector:  sun.Direction(),
		Moon:       moon,
		MoonVector: moon.Direction(),
		MoonMatrix: MoonMatrix(moon),
		Celestial:  CelestialMatrix(longitude, latitude, t),
	}
}
