// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Event types for game use
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    Key
	Width  int
	Height int
	DX, DY int
}

// Input polls SDL and keeps the per-frame State.
type Input struct {
	State
	events []Event
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		State:  NewState(),
		events: make([]Event, 0, 16),
	}
}

// Update polls SDL events and converts them to game events.
// Returns true if the game should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	i.State.BeginFrame()

	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if ev, ok := i.translate(event); ok {
			i.events = append(i.events, ev)
			i.State.Apply(ev)
			if ev.Type == EventQuit {
				quit = true
			}
		}
	}
	return quit
}

func (i *Input) translate(event sdl.Event) (Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Event{Type: EventQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			return Event{Type: EventWindowResize, Width: int(e.Data1), Height: int(e.Data2)}, true
		}

	case *sdl.KeyboardEvent:
		key, ok := scancodes[e.Keysym.Scancode]
		if !ok {
			return Event{}, false
		}
		if e.Type == sdl.KEYDOWN {
			if e.Repeat != 0 {
				return Event{}, false
			}
			return Event{Type: EventKeyDown, Key: key}, true
		}
		return Event{Type: EventKeyUp, Key: key}, true

	case *sdl.MouseMotionEvent:
		return Event{Type: EventMouseMove, DX: int(e.XRel), DY: int(e.YRel)}, true
	}
	return Event{}, false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Scancodes are physical key positions, so WASD works on any layout.
var scancodes = map[sdl.Scancode]Key{
	sdl.SCANCODE_W:      KeyW,
	sdl.SCANCODE_A:      KeyA,
	sdl.SCANCODE_S:      KeyS,
	sdl.SCANCODE_D:      KeyD,
	sdl.SCANCODE_UP:     KeyUp,
	sdl.SCANCODE_DOWN:   KeyDown,
	sdl.SCANCODE_LEFT:   KeyLeft,
	sdl.SCANCODE_RIGHT:  KeyRight,
	sdl.SCANCODE_X:      KeyX,
	sdl.SCANCODE_C:      KeyC,
	sdl.SCANCODE_G:      KeyG,
	sdl.SCANCODE_H:      KeyH,
	sdl.SCANCODE_P:      KeyP,
	sdl.SCANCODE_ESCAPE: KeyEscape,
}
