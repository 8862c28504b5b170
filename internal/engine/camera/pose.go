package camera

import gomath "math"

// Direction is a compass heading on the 2D grid.
type Direction string

const (
	Up    Direction = "up"
	Right Direction = "right"
	Down  Direction = "down"
	Left  Direction = "left"
)

var headings = [4]Direction{Up, Right, Down, Left}

// GridPose is the camera reduced to a grid cell and a heading.
type GridPose struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Direction Direction `json:"direction"`
}

// AvatarPosition rounds the camera's XZ position to the nearest cell
// (halves to even) and quantizes yaw into one of four headings.
func (c *FlyCamera) AvatarPosition() GridPose {
	return GridPose{
		X:         int(gomath.RoundToEven(float64(c.Position.X))),
		Y:         int(gomath.RoundToEven(float64(c.Position.Z))),
		Direction: Heading(c.Rotation.Y),
	}
}

// Heading maps a yaw in degrees to round(yaw/90) mod 4.
func Heading(yaw float32) Direction {
	q := int(gomath.RoundToEven(float64(yaw) / 90))
	return headings[((q%4)+4)%4]
}
