package entity

// WallColors is the palette order the wall color key cycles through.
var WallColors = []string{"gray", "pink", "orange", "green", "blue", "purple", "yellow"}

var palette = map[string]string{
	"gray":   "#919c9c",
	"pink":   "#d95a88",
	"orange": "#e6a56e",
	"green":  "#3dc06c",
	"blue":   "#66bdff",
	"purple": "#956bc3",
	"yellow": "#e7dd6f",
}

// PaletteHex returns the hex color for a palette name.
func PaletteHex(name string) (string, bool) {
	hex, ok := palette[name]
	return hex, ok
}

// WallColor returns the palette name at index i, wrapping in both directions.
func WallColor(i int) string {
	n := len(WallColors)
	return WallColors[((i%n)+n)%n]
}
