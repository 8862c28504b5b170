// Package camera provides the first-person camera that drives the view.
package camera

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// Defaults for a walking viewpoint a little above the floor.
const (
	DefaultSpeed = 5.0
	DefaultFOV   = 60.0
	DefaultNear  = 0.1
	DefaultFar   = 500.0
)

// FlyCamera moves in the XZ plane along its yaw and looks with yaw and pitch.
// Rotation is in degrees: X is pitch, Y is yaw. Pitch is not clamped.
type FlyCamera struct {
	Position math.Vec3
	Rotation math.Vec2

	Width, Height int

	Speed     float32 // world units per second
	FOV       float32 // vertical, degrees
	Near, Far float32

	// Derived by ComputeMatrices.
	Translate math.Mat4
	Rotate    math.Mat4
	Project   math.Mat4
	MVP       math.Mat4
}

// NewFlyCamera creates a camera with default speed and projection.
func NewFlyCamera(width, height int, position math.Vec3, rotation math.Vec2) *FlyCamera {
	c := &FlyCamera{
		Position: position,
		Rotation: rotation,
		Width:    width,
		Height:   height,
		Speed:    DefaultSpeed,
		FOV:      DefaultFOV,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
	c.Translate = math.Identity()
	c.Rotate = math.Identity()
	c.Project = math.Identity()
	c.MVP = math.Identity()
	return c
}

// Update integrates movement. input is a direction in camera space
// (x right, z forward); it is normalized so diagonals are not faster,
// then turned by yaw only so looking up or down does not change the
// walking direction.
func (c *FlyCamera) Update(dt float32, input math.Vec3) {
	dir, err := input.Unit()
	if err != nil {
		return
	}
	s := dt * c.Speed

	yaw := float64(math.Radians(c.Rotation.Y))
	dx, dz := float32(gomath.Cos(yaw)), float32(gomath.Sin(yaw))

	c.Position.X += s * (dir.X*dx + dir.Z*dz)
	c.Position.Z += s * (dir.X*dz - dir.Z*dx)
}

// UpdateMouse adds delta (pitch, yaw) in degrees to the rotation.
func (c *FlyCamera) UpdateMouse(delta math.Vec2) {
	c.Rotation = c.Rotation.Add(delta)
}

// Resize updates the viewport used for the aspect ratio.
func (c *FlyCamera) Resize(width, height int) {
	c.Width = width
	c.Height = height
}

// ComputeMatrices rebuilds Translate, Rotate, Project and
// MVP = Translate · Rotate · Project. It must run once per frame before
// anything reads the matrices. On error the previous matrices are kept.
func (c *FlyCamera) ComputeMatrices() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("viewport %dx%d: %w", c.Width, c.Height, math.ErrInvalidFrustum)
	}
	project, err := math.Perspective(math.Radians(c.FOV), float32(c.Width)/float32(c.Height), c.Near, c.Far)
	if err != nil {
		return fmt.Errorf("camera projection: %w", err)
	}

	rot := c.Rotation.Radians()
	c.Project = project
	c.Rotate = math.Rotate2D(rot.Y, rot.X)
	c.Translate = math.Translate(c.Position.Neg())
	c.MVP = c.Translate.Mul(c.Rotate).Mul(c.Project)
	return nil
}
