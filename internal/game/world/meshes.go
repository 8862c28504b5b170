package world

import (
	"github.com/Faultbox/vrc3d/internal/engine/mesh"
	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/pkg/math"
)

// Building texture names, in atlas layer order.
var BuildingTextures = []string{"empty", "audio_block", "calendar", "grid", "link", "microphone", "note", "zoom"}

var (
	deskTopColor = mesh.MustParseColor("#e6a56e")
	deskLegColor = mesh.MustParseColor("#333333")
	noteColor    = mesh.MustParseColor("#e7dd6f")
	zoomColor    = mesh.MustParseColor("#0000ff")
	avatarColor  = mesh.MustParseColor("#ffffff")
	floorColor   = mesh.MustParseColor("#eeeeee")
)

var (
	unitCube  = math.V3(1, 1, 1)
	linkCube  = math.V3(0.8, 0.8, 0.8)
	smallCube = math.V3(0.6, 0.6, 0.6)
	deskLeg   = math.V3(0.04, 0.35, 0.04)
	slab      = math.V3(0.05, 0.8, 0.4)
)

// TextureLayer resolves a building texture name to its atlas layer, or -1.
type TextureLayer func(name string) int

// BuildMesh returns the geometry for e. The second result is false for
// kinds that are not drawn (bots, unknown types). avatarLayer is the photo
// layer for avatars and is ignored otherwise.
func BuildMesh(e entity.Entity, layer TextureLayer, avatarLayer int) (mesh.Mesh, bool) {
	h := e.Header()
	pos := h.Pos.World()

	textured := func(name string, size math.Vec3, color mesh.Color) mesh.Mesh {
		tex := mesh.Full(layer(name))
		return mesh.Box(mesh.BoxSpec{Position: pos, Size: size, Color: color, Texture: &tex})
	}

	switch e := e.(type) {
	case *entity.Wall:
		return mesh.Box(mesh.BoxSpec{Position: pos, Size: unitCube, Color: paletteColor(e.Color)}), true

	case *entity.Note:
		return mesh.Box(mesh.BoxSpec{Position: pos, Size: unitCube, Color: noteColor}), true

	case *entity.Desk:
		return deskMesh(pos), true

	case *entity.Link:
		return textured("link", linkCube, mesh.DefaultColor), true

	case *entity.ZoomLink:
		return textured("zoom", smallCube, zoomColor), true

	case *entity.AudioBlock:
		return textured("audio_block", smallCube, mesh.DefaultColor), true

	case *entity.Calendar:
		return textured("calendar", smallCube, mesh.DefaultColor), true

	case *entity.AudioRoom:
		// Pos is the top-left cell; the tile is centered on the room.
		center := pos.Add(math.V3(e.Width/2-0.5, 0, e.Height/2-0.5))
		tex := mesh.TexRegion{U0: 0, U1: e.Width, V0: 0, V1: e.Height, Layer: float32(layer("microphone"))}
		return mesh.Box(mesh.BoxSpec{
			Position: center,
			Size:     math.V3(e.Width, 0.002, e.Height),
			Color:    mesh.DefaultColor,
			Texture:  &tex,
		}), true

	case *entity.Avatar:
		tex := mesh.TexRegion{U0: 0, U1: 1, V0: -1, V1: 1, Layer: float32(avatarLayer)}
		return mesh.Box(mesh.BoxSpec{Position: pos, Size: slab, Color: avatarColor, Texture: &tex}), true

	case *entity.Bot, *entity.Unknown:
		return mesh.Mesh{}, false
	}
	return mesh.Mesh{}, false
}

func deskMesh(pos math.Vec3) mesh.Mesh {
	top := mesh.Box(mesh.BoxSpec{
		Position: pos,
		Offset:   math.V3(0, 0.35, 0),
		Size:     math.V3(0.9, 0.04, 0.9),
		Color:    deskTopColor,
	})
	legs := make([]mesh.Mesh, 0, 4)
	for _, off := range []math.Vec3{
		math.V3(-0.4, 0, -0.4),
		math.V3(-0.4, 0, 0.4),
		math.V3(0.4, 0, -0.4),
		math.V3(0.4, 0, 0.4),
	} {
		legs = append(legs, mesh.Box(mesh.BoxSpec{Position: pos, Offset: off, Size: deskLeg, Color: deskLegColor}))
	}
	return mesh.Concat(append([]mesh.Mesh{top}, legs...)...)
}

// FloorMesh is the 1000x1000 grid plane centered on (500, 500).
func FloorMesh(gridLayer int) mesh.Mesh {
	tex := mesh.TexRegion{U0: 0.5, U1: 1000.5, V0: 0.5, V1: 1000.5, Layer: float32(gridLayer)}
	return mesh.Box(mesh.BoxSpec{
		Position: math.V3(500, 0, 500),
		Size:     math.V3(1000, 0.001, 1000),
		Color:    floorColor,
		Texture:  &tex,
	})
}

func paletteColor(name string) mesh.Color {
	hex, ok := entity.PaletteHex(name)
	if !ok {
		return mesh.DefaultColor
	}
	return mesh.MustParseColor(hex)
}
