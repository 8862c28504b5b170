package mesh

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a linear RGB triple in [0,1].
type Color struct {
	R, G, B float32
}

// DefaultColor is used for entities that carry no color.
var DefaultColor = MustParseColor("#114433")

// ParseColor parses "#rrggbb" or "#rgb".
func ParseColor(hex string) (Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", hex, err)
	}
	return Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)}, nil
}

// MustParseColor is ParseColor for compile-time constants.
func MustParseColor(hex string) Color {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped().Hex()
}

// Components returns the color as a 3-element array.
func (c Color) Components() [3]float32 {
	return [3]float32{c.R, c.G, c.B}
}
