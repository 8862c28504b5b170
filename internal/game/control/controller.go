package control

import (
	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/engine/camera"
	"github.com/Faultbox/vrc3d/internal/engine/input"
	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/logger"
	"github.com/Faultbox/vrc3d/internal/network"
	"github.com/Faultbox/vrc3d/pkg/math"
)

// Controls is the per-frame input the controller reads.
type Controls interface {
	IsKeyPressed(key input.Key) bool
	MouseDelta() math.Vec2
	Direction() math.Vec3
}

// Toggles are view switches flipped from the keyboard.
type Toggles struct {
	ShowGrid      bool
	ShowShadowMap bool
}

// Controller turns input into camera motion and outbound requests. It owns
// no GL state and runs on the frame loop goroutine.
type Controller struct {
	Camera  *camera.FlyCamera
	Toggles Toggles

	// Screenshot is set for the frame the capture key went down.
	Screenshot bool

	// Mouse pixels per degree of rotation.
	Sensitivity float32

	outbound chan<- network.Message
	pose     camera.GridPose
	sent     bool
	color    int
	log      *zap.Logger
}

// NewController drives cam. outbound may be nil when running offline.
func NewController(cam *camera.FlyCamera, sensitivity float32, outbound chan<- network.Message) *Controller {
	if sensitivity <= 0 {
		sensitivity = 6
	}
	return &Controller{
		Camera:      cam,
		Sensitivity: sensitivity,
		outbound:    outbound,
		log:         logger.Named("controller"),
	}
}

// Update advances one frame and reports whether the user asked to quit.
func (c *Controller) Update(dt float32, in Controls) bool {
	if in.IsKeyPressed(input.KeyEscape) {
		c.log.Info("quit requested", zap.Any("position", c.Camera.Position))
		return true
	}

	// SDL reports y growing downward; pitch grows looking up.
	if d := in.MouseDelta(); d != (math.Vec2{}) {
		c.Camera.UpdateMouse(math.Vec2{X: -d.Y / c.Sensitivity, Y: d.X / c.Sensitivity})
	}
	c.Camera.Update(dt, in.Direction())

	if in.IsKeyPressed(input.KeyX) {
		c.send(network.WallMessage{Action: network.WallCreate, Color: entity.WallColor(c.color)})
	}
	if in.IsKeyPressed(input.KeyC) {
		c.color++
		c.send(network.WallMessage{Action: network.WallUpdate, Color: entity.WallColor(c.color)})
	}
	if in.IsKeyPressed(input.KeyG) {
		c.Toggles.ShowGrid = !c.Toggles.ShowGrid
	}
	if in.IsKeyPressed(input.KeyH) {
		c.Toggles.ShowShadowMap = !c.Toggles.ShowShadowMap
	}
	c.Screenshot = in.IsKeyPressed(input.KeyP)

	c.syncPose()
	return false
}

// Color returns the palette name new walls get.
func (c *Controller) Color() string {
	return entity.WallColor(c.color)
}

// syncPose queues the avatar position when its grid pose changed. A pose
// dropped on a full queue stays pending and is retried next frame.
func (c *Controller) syncPose() {
	pose := c.Camera.AvatarPosition()
	if c.sent && pose == c.pose {
		return
	}
	if c.send(network.PositionUpdate{Pose: pose}) {
		c.log.Debug("avatar moved",
			zap.Int("x", pose.X),
			zap.Int("y", pose.Y),
			zap.String("direction", string(pose.Direction)),
		)
		c.pose = pose
		c.sent = true
	}
}

// send enqueues msg without blocking the frame.
func (c *Controller) send(msg network.Message) bool {
	if c.outbound == nil {
		return false
	}
	select {
	case c.outbound <- msg:
		return true
	default:
		c.log.Warn("outbound queue full, dropping message", zap.Any("message", msg))
		return false
	}
}
