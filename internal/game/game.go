// Package game implements the main loop: it owns the window and GL state,
// drains the entity stream into the world and hands outbound requests to the
// network session.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/vrc3d/internal/config"
	"github.com/Faultbox/vrc3d/internal/engine/atlas"
	"github.com/Faultbox/vrc3d/internal/engine/camera"
	"github.com/Faultbox/vrc3d/internal/engine/input"
	"github.com/Faultbox/vrc3d/internal/engine/lighting"
	"github.com/Faultbox/vrc3d/internal/engine/mesh"
	"github.com/Faultbox/vrc3d/internal/engine/renderer/opengl"
	"github.com/Faultbox/vrc3d/internal/engine/screenshot"
	"github.com/Faultbox/vrc3d/internal/engine/shader"
	"github.com/Faultbox/vrc3d/internal/engine/shadow"
	"github.com/Faultbox/vrc3d/internal/engine/sky"
	"github.com/Faultbox/vrc3d/internal/engine/window"
	"github.com/Faultbox/vrc3d/internal/game/control"
	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/game/world"
	"github.com/Faultbox/vrc3d/internal/logger"
	"github.com/Faultbox/vrc3d/internal/network"
	"github.com/Faultbox/vrc3d/pkg/math"
)

// Title is the window caption.
const Title = "VRC3D"

// Game is the main viewer instance.
type Game struct {
	config *config.Config
	log    *zap.Logger

	window     *window.Window
	renderer   *opengl.Renderer
	input      *input.Input
	camera     *camera.FlyCamera
	controller *control.Controller

	program    *shader.Program
	skyProgram *shader.Program
	world      *world.World
	sky        *sky.Sky
	shadows    *shadow.Pass // nil when disabled

	screenshots *screenshot.Saver

	session  *network.Session // nil offline
	inbound  chan entity.Entity
	outbound chan network.Message
}

// New opens the window and builds every GPU resource. Must run on the main
// thread.
func New(cfg *config.Config) (*Game, error) {
	g := &Game{
		config: cfg,
		log:    logger.Named("game"),
	}
	g.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.Bool("offline", cfg.Network.Offline),
	)

	clearColor, err := mesh.ParseColor(cfg.Graphics.ClearColor)
	if err != nil {
		return nil, fmt.Errorf("clear color: %w", err)
	}

	// Create window (this also creates OpenGL context)
	g.window, err = window.New(window.Config{
		Title:        Title,
		Width:        cfg.Graphics.Width,
		Height:       cfg.Graphics.Height,
		Fullscreen:   cfg.Graphics.Fullscreen,
		VSync:        cfg.Graphics.VSync,
		CaptureMouse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := g.window.GetSize()
	g.renderer, err = opengl.New(opengl.Config{
		Width:      width,
		Height:     height,
		ClearColor: clearColor.Components(),
	})
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	if err := g.initScene(width, height); err != nil {
		g.Close()
		return nil, err
	}
	if !cfg.Network.Offline {
		if err := g.initSession(); err != nil {
			g.Close()
			return nil, err
		}
	}

	g.input = input.New()
	g.screenshots = screenshot.New(cfg.Graphics.ScreenshotDir, "vrc3d")
	g.log.Info("viewer initialized")
	return g, nil
}

func (g *Game) initScene(width, height int) error {
	cfg := g.config
	var err error

	g.program, err = shader.New("world", shader.WorldVertex, shader.WorldFragment)
	if err != nil {
		return err
	}
	g.skyProgram, err = shader.New("sky", shader.SkyVertex, shader.SkyFragment)
	if err != nil {
		return err
	}

	if !cfg.Network.Offline {
		g.inbound = make(chan entity.Entity, cfg.Network.InboundQueue)
		g.outbound = make(chan network.Message, cfg.Network.OutboundQueue)
	}

	g.world, err = world.New(g.renderer, world.Config{
		BuildingCapacity: cfg.Scene.BuildingCapacity,
		AvatarCapacity:   cfg.Scene.AvatarCapacity,
		BuildingAtlas:    world.AtlasSize(cfg.Scene.BuildingAtlas),
		AvatarAtlas:      world.AtlasSize(cfg.Scene.AvatarAtlas),
	}, atlas.Dir{Root: cfg.Scene.TextureDir}, g.inbound)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}

	g.sky, err = sky.New(g.renderer, g.skyProgram, cfg.Sky.ShowGrid, cfg.Sky.ShowAtmosphere)
	if err != nil {
		return fmt.Errorf("sky: %w", err)
	}

	if cfg.Graphics.Shadows {
		g.shadows, err = shadow.NewPass(g.renderer, cfg.Graphics.ShadowResolution)
		if err != nil {
			g.log.Warn("shadows disabled", zap.Error(err))
			g.shadows = nil
		}
	}

	c := cfg.Camera
	g.camera = camera.NewFlyCamera(width, height,
		math.Vec3{X: c.Position[0], Y: c.Position[1], Z: c.Position[2]},
		math.Vec2{X: c.Rotation[0], Y: c.Rotation[1]},
	)
	g.camera.Speed = c.Speed
	g.camera.FOV = c.FOV
	g.camera.Near = c.Near
	g.camera.Far = c.Far

	g.controller = control.NewController(g.camera, c.MouseSensitivity, g.outbound)
	g.controller.Toggles = control.Toggles{
		ShowGrid:      cfg.Sky.ShowGrid,
		ShowShadowMap: cfg.Graphics.ShowShadowMap,
	}
	return nil
}

func (g *Game) initSession() error {
	n := g.config.Network
	var err error
	g.session, err = network.NewSession(network.SessionConfig{
		Host:           n.Host,
		Secure:         n.Secure,
		Credentials:    network.Credentials{AppID: n.AppID, AppSecret: n.AppSecret},
		Identity:       network.BotIdentity{Name: n.BotName, Emoji: n.BotEmoji},
		RequestTimeout: n.RequestTimeout.Duration,
		ReconnectDelay: n.ReconnectDelay.Duration,
		PhotoDir:       n.PhotoDir,
		PhotoSize:      g.config.Scene.AvatarAtlas.Width,
	})
	if err != nil {
		return fmt.Errorf("network session: %w", err)
	}
	return nil
}

// Run starts the network workers and the frame loop. It returns when the
// window closes, Escape is pressed or ctx is done. The outbound queue is
// closed before the cancel, so the worker sends what is still queued.
func (g *Game) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers, workerCtx := errgroup.WithContext(ctx)
	if g.session != nil {
		g.session.Start(workerCtx, workers, g.inbound, g.outbound)
	}

	err := g.loop(ctx)

	if g.outbound != nil {
		close(g.outbound)
		g.outbound = nil
	}
	cancel()
	if werr := workers.Wait(); werr != nil {
		g.log.Error("network worker failed", zap.Error(werr))
	}
	return err
}

func (g *Game) loop(ctx context.Context) error {
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := lastTime

	g.log.Info("starting frame loop")

	for {
		select {
		case <-ctx.Done():
			g.log.Info("frame loop cancelled")
			return nil
		default:
		}

		// Calculate delta time
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		// 1. Process input
		if g.input.Update() {
			return nil
		}
		for _, event := range g.input.Events() {
			if event.Type == input.EventWindowResize {
				g.resize()
			}
		}

		// 2. Update
		if g.controller.Update(dt, &g.input.State) {
			return nil
		}
		g.world.Drain()

		// 3. Render
		if err := g.render(now); err != nil {
			return fmt.Errorf("render error: %w", err)
		}

		if g.controller.Screenshot {
			g.saveScreenshot()
		}

		// 4. Present (swap buffers)
		g.window.SwapBuffers()

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			g.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Int("entities", g.world.Entities().Count()),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
}

func (g *Game) resize() {
	width, height := g.window.GetSize()
	g.renderer.Resize(width, height)
	g.camera.Resize(width, height)
}

// render draws shadows, sky, building and avatars in that order.
func (g *Game) render(now time.Time) error {
	if err := g.camera.ComputeMatrices(); err != nil {
		// A minimized window has no aspect ratio; skip the frame.
		if errors.Is(err, math.ErrInvalidFrustum) {
			return nil
		}
		return err
	}
	astro := lighting.Observe(g.config.Sky.Longitude, g.config.Sky.Latitude, now)

	frame := world.Frame{
		MVP:        g.camera.MVP,
		Camera:     g.camera.Position,
		Sun:        astro.SunVector,
		LightSpace: math.Identity(),
	}
	if g.shadows != nil {
		lightSpace, err := shadow.LightMatrix(g.camera.Translate, astro.Sun)
		if err != nil {
			return err
		}
		if err := g.shadows.Render(lightSpace, g.world.Building, g.world.Avatars); err != nil {
			return err
		}
		frame.LightSpace = lightSpace
		frame.Shadows = true
	}

	g.renderer.Begin()

	g.sky.ShowGrid = g.controller.Toggles.ShowGrid
	if err := g.sky.Draw(g.camera, astro); err != nil {
		return err
	}

	if g.shadows != nil {
		g.shadows.Map.BindTexture(world.ShadowTextureUnit)
	}
	if err := g.world.Draw(g.program, frame); err != nil {
		return err
	}

	if g.shadows != nil && g.controller.Toggles.ShowShadowMap {
		return g.shadows.DrawDebugQuad()
	}
	return nil
}

// saveScreenshot reads the back buffer before the swap. Failures are logged.
func (g *Game) saveScreenshot() {
	pixels, width, height := g.renderer.ReadPixels()
	path, err := g.screenshots.Save(pixels, width, height)
	if err != nil {
		g.log.Error("screenshot failed", zap.Error(err))
		return
	}
	g.log.Info("screenshot saved", zap.String("path", path))
}

// Close releases GPU resources and the window.
func (g *Game) Close() {
	g.log.Info("closing viewer")

	if g.shadows != nil {
		g.shadows.Destroy()
	}
	if g.skyProgram != nil {
		g.skyProgram.Delete()
	}
	if g.program != nil {
		g.program.Delete()
	}
	if g.renderer != nil {
		g.renderer.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
}
