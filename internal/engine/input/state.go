package input

import "github.com/Faultbox/vrc3d/pkg/math"

// Key is a logical key the viewer reacts to.
type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyX
	KeyC
	KeyG
	KeyH
	KeyP
	KeyEscape
)

// State tracks held keys, keys pressed this frame and accumulated mouse motion.
type State struct {
	held    map[Key]bool
	pressed map[Key]bool
	mouse   math.Vec2
}

// NewState returns an empty State.
func NewState() State {
	return State{
		held:    make(map[Key]bool),
		pressed: make(map[Key]bool),
	}
}

// BeginFrame clears the per-frame press set and mouse delta.
func (s *State) BeginFrame() {
	clear(s.pressed)
	s.mouse = math.Vec2{}
}

// Apply folds one event into the state.
func (s *State) Apply(ev Event) {
	switch ev.Type {
	case EventKeyDown:
		if !s.held[ev.Key] {
			s.pressed[ev.Key] = true
		}
		s.held[ev.Key] = true
	case EventKeyUp:
		delete(s.held, ev.Key)
	case EventMouseMove:
		s.mouse.X += float32(ev.DX)
		s.mouse.Y += float32(ev.DY)
	}
}

// IsKeyHeld reports whether key is currently down.
func (s *State) IsKeyHeld(key Key) bool {
	return s.held[key]
}

// IsKeyPressed reports whether key went down this frame.
func (s *State) IsKeyPressed(key Key) bool {
	return s.pressed[key]
}

// MouseDelta returns the relative motion (dx, dy) accumulated this frame.
func (s *State) MouseDelta() math.Vec2 {
	return s.mouse
}

// Direction returns the unnormalized movement input: x is strafe
// (D/Right positive), z is forward (W/Up positive).
func (s *State) Direction() math.Vec3 {
	var d math.Vec3
	if s.held[KeyW] || s.held[KeyUp] {
		d.Z++
	}
	if s.held[KeyS] || s.held[KeyDown] {
		d.Z--
	}
	if s.held[KeyD] || s.held[KeyRight] {
		d.X++
	}
	if s.held[KeyA] || s.held[KeyLeft] {
		d.X--
	}
	return d
}
