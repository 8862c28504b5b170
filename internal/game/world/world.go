// Package world turns the entity stream into scene geometry: building blocks
// in one buffer, avatars in another, each with its own texture atlas.
package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/engine/atlas"
	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/internal/engine/scene"
	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/logger"
	"github.com/Faultbox/vrc3d/pkg/math"
)

// FloorID keys the floor plane in the building scene. Remote ids are positive.
const FloorID entity.ID = -1

// Texture units. The shadow map takes the unit after the two atlases.
const (
	AvatarTextureUnit   = 0
	BuildingTextureUnit = 1
	ShadowTextureUnit   = 2
)

// AtlasSize is the layer size and count of one texture array.
type AtlasSize struct {
	Width, Height, Layers int
}

// Config sizes the scenes and atlases.
type Config struct {
	BuildingCapacity int
	AvatarCapacity   int
	BuildingAtlas    AtlasSize
	AvatarAtlas      AtlasSize
}

// DefaultConfig returns the stock sizes.
func DefaultConfig() Config {
	return Config{
		BuildingCapacity: scene.DefaultCapacity,
		AvatarCapacity:   scene.AvatarCapacity,
		BuildingAtlas:    AtlasSize{Width: 128, Height: 128, Layers: 8},
		AvatarAtlas:      AtlasSize{Width: 150, Height: 150, Layers: 50},
	}
}

// Program is the world shader.
type Program interface {
	renderer.Uniforms
	Use()
}

// Frame carries the per-frame uniforms.
type Frame struct {
	MVP        math.Mat4
	Camera     math.Vec3
	Sun        math.Vec3
	LightSpace math.Mat4
	Shadows    bool
}

// World owns both scenes. It is driven from the frame loop only.
type World struct {
	Building *scene.Buffer[entity.ID]
	Avatars  *scene.Buffer[entity.ID]

	buildingAtlas *atlas.Atlas[string]
	avatarAtlas   *atlas.Atlas[entity.ID]
	entities      *entity.Manager
	inbound       <-chan entity.Entity
	log           *zap.Logger
}

// New builds the atlases and scenes, loads the building textures from
// textures and places the floor. inbound may be nil for a static world.
func New(backend renderer.Backend, cfg Config, textures atlas.PixelSource[string], inbound <-chan entity.Entity) (*World, error) {
	w := &World{
		entities: entity.NewManager(),
		inbound:  inbound,
		log:      logger.Named("world"),
	}

	var err error
	w.buildingAtlas, err = atlas.New[string](backend,
		cfg.BuildingAtlas.Width, cfg.BuildingAtlas.Height, cfg.BuildingAtlas.Layers, textures)
	if err != nil {
		return nil, fmt.Errorf("building atlas: %w", err)
	}
	w.avatarAtlas, err = atlas.New[entity.ID](backend,
		cfg.AvatarAtlas.Width, cfg.AvatarAtlas.Height, cfg.AvatarAtlas.Layers, nil)
	if err != nil {
		return nil, fmt.Errorf("avatar atlas: %w", err)
	}

	for _, name := range BuildingTextures {
		if _, err := w.buildingAtlas.Add(name); err != nil {
			w.log.Warn("building texture unavailable, drawing untextured",
				zap.String("texture", name),
				zap.Error(err),
			)
		}
	}

	w.Building, err = scene.New[entity.ID](backend, scene.Config{
		Name:        "building",
		Capacity:    cfg.BuildingCapacity,
		Texture:     w.buildingAtlas,
		TextureUnit: BuildingTextureUnit,
		Sampler:     "texture_array_sampler",
	})
	if err != nil {
		return nil, err
	}
	w.Avatars, err = scene.New[entity.ID](backend, scene.Config{
		Name:        "avatars",
		Capacity:    cfg.AvatarCapacity,
		Texture:     w.avatarAtlas,
		TextureUnit: AvatarTextureUnit,
		Sampler:     "avatar_array_sampler",
	})
	if err != nil {
		return nil, err
	}

	if err := w.Building.Upsert(FloorID, FloorMesh(w.textureLayer("grid"))); err != nil {
		return nil, fmt.Errorf("floor: %w", err)
	}
	return w, nil
}

// Drain applies every queued entity without blocking and returns how many
// were taken. Failures are logged per entity; the drain continues.
func (w *World) Drain() int {
	n := 0
	for {
		select {
		case e, ok := <-w.inbound:
			if !ok {
				w.log.Info("entity stream closed")
				w.inbound = nil
				return n
			}
			n++
			if err := w.Apply(e); err != nil {
				h := e.Header()
				w.log.Error("entity not applied",
					zap.Int64("id", int64(h.ID)),
					zap.String("type", h.Type),
					zap.Error(err),
				)
			}
		default:
			return n
		}
	}
}

// Apply places, replaces or removes one entity.
func (w *World) Apply(e entity.Entity) error {
	h := e.Header()
	if h.Deleted {
		return w.remove(e)
	}

	switch e := e.(type) {
	case *entity.Bot:
		return nil
	case *entity.Unknown:
		w.log.Warn("unknown entity type",
			zap.String("type", e.Type),
			zap.Int64("id", int64(e.ID)),
		)
		return nil
	case *entity.Avatar:
		m, _ := BuildMesh(e, w.textureLayer, w.avatarLayer(e))
		if err := w.Avatars.Upsert(h.ID, m); err != nil {
			return err
		}
	default:
		m, ok := BuildMesh(e, w.textureLayer, -1)
		if !ok {
			return nil
		}
		if err := w.Building.Upsert(h.ID, m); err != nil {
			return err
		}
	}

	w.moveScene(e)
	w.entities.Apply(e)
	return nil
}

// moveScene tombstones the previous geometry of an id whose live record
// sat in the other scene, so a building that comes back as an avatar (or
// the reverse) is not drawn twice.
func (w *World) moveScene(e entity.Entity) {
	h := e.Header()
	prev, ok := w.entities.Get(h.ID)
	if !ok {
		return
	}
	wasAvatar := entity.KindOf(prev) == entity.KindAvatar
	if wasAvatar == (entity.KindOf(e) == entity.KindAvatar) {
		return
	}

	old := w.Building
	if wasAvatar {
		old = w.Avatars
	}
	if err := old.Delete(h.ID); err != nil {
		w.log.Warn("previous geometry not removed", zap.Int64("id", int64(h.ID)), zap.Error(err))
		return
	}
	w.log.Info("entity changed scene",
		zap.Int64("id", int64(h.ID)),
		zap.Stringer("from", entity.KindOf(prev)),
		zap.Stringer("to", entity.KindOf(e)),
	)
}

// remove tombstones an entity in the scene that owns it. The live record
// decides the owner; the deletion's own type is used for ids never seen.
func (w *World) remove(e entity.Entity) error {
	h := e.Header()
	kind := entity.ParseKind(h.Type)
	if prev, ok := w.entities.Get(h.ID); ok {
		kind = entity.KindOf(prev)
	}

	var err error
	switch kind {
	case entity.KindBot, entity.KindUnknown:
		// never placed
		return nil
	case entity.KindAvatar:
		err = w.Avatars.Delete(h.ID)
	default:
		err = w.Building.Delete(h.ID)
	}
	if err != nil {
		return err
	}
	w.entities.Apply(e)
	return nil
}

func (w *World) textureLayer(name string) int {
	layer, err := w.buildingAtlas.Index(name)
	if err != nil {
		return -1
	}
	return layer
}

// avatarLayer registers the avatar's photo on first sight. Avatars without a
// usable photo are drawn in their vertex color.
func (w *World) avatarLayer(a *entity.Avatar) int {
	if layer, err := w.avatarAtlas.Index(a.ID); err == nil {
		return layer
	}
	if a.Photo == nil {
		return -1
	}
	layer, err := w.avatarAtlas.AddImage(a.ID, a.Photo)
	if err != nil {
		level := w.log.Warn
		if errors.Is(err, atlas.ErrAtlasFull) {
			level = w.log.Info
		}
		level("avatar photo not registered",
			zap.Int64("id", int64(a.ID)),
			zap.Error(err),
		)
		return -1
	}
	return layer
}

// Draw renders both scenes with the world program.
func (w *World) Draw(p Program, f Frame) error {
	p.Use()
	p.SetMat4("matrix", f.MVP)
	p.SetMat4("light_space_matrix", f.LightSpace)
	p.SetVec3("camera", f.Camera)
	p.SetVec3("sun_position", f.Sun)
	p.SetInt("shadow_map", ShadowTextureUnit)
	if f.Shadows {
		p.SetInt("shadows_enabled", 1)
	} else {
		p.SetInt("shadows_enabled", 0)
	}

	p.SetInt("tile_texture", 1)
	if err := w.Building.Draw(p); err != nil {
		return err
	}
	p.SetInt("tile_texture", 0)
	return w.Avatars.Draw(p)
}

// Entities returns the live entity set.
func (w *World) Entities() *entity.Manager {
	return w.entities
}
