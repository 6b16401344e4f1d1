package engine

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// Camera controls bound by the engine:
//
//	A/D, Left/Right  orbit around the target
//	W/S, Up/Down     raise and lower the orbit
//	Q/E, -/=         zoom out and in
//	J/L, I/K         pan the target across the ground
//	Drag             orbit with the mouse
//	Scroll           zoom
//	R                randomize the scene
//	Esc              close the window
type inputState struct {
	mu   *sync.Mutex
	held map[uint32]bool
}

func newInputState() *inputState {
	return &inputState{
		mu:   &sync.Mutex{},
		held: make(map[uint32]bool),
	}
}

// press marks key as held and reports whether it was up before.
func (s *inputState) press(key uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.held[key]
	s.held[key] = true
	return !was
}

func (s *inputState) release(key uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, key)
}

func (s *inputState) isHeld(keys ...uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if s.held[k] {
			return true
		}
	}
	return false
}

// controller returns the scene camera's controller, or nil when the camera has none.
func (e *engine) controller() camera.CameraController {
	return e.scene.Camera().Controller()
}

// bindControls installs the camera and scene controls on w.
func (e *engine) bindControls(w window.Window) {
	w.SetKeyDownCallback(e.keyDown)
	w.SetKeyUpCallback(e.input.release)
	w.SetScrollCallback(func(delta float32) {
		if c := e.controller(); c != nil {
			c.Zoom(delta)
		}
	})
	w.SetDragCallback(func(dx, dy float32) {
		if c := e.controller(); c != nil {
			c.Drag(dx, dy)
		}
	})
}

// keyDown records a held key. Randomize fires once per press, not on key repeat.
func (e *engine) keyDown(key uint32) {
	if !e.input.press(key) {
		return
	}
	if key == common.KeyR {
		if err := e.scene.Randomize(); err != nil {
			common.Logger().Warn("randomize failed", "error", err)
			return
		}
		common.Logger().Info("scene randomized", "seed", e.scene.Parameters().Generator.Seed)
	}
}

// applyInput moves the camera for every held control key. Runs once per engine tick.
func (e *engine) applyInput() {
	c := e.controller()
	if c == nil {
		return
	}
	in := e.input
	if in.isHeld(common.KeyA, common.KeyLeft) {
		c.OrbitLeft()
	}
	if in.isHeld(common.KeyD, common.KeyRight) {
		c.OrbitRight()
	}
	if in.isHeld(common.KeyW, common.KeyUp) {
		c.OrbitUp()
	}
	if in.isHeld(common.KeyS, common.KeyDown) {
		c.OrbitDown()
	}
	if in.isHeld(common.KeyE, common.KeyEqual) {
		c.Zoom(1)
	}
	if in.isHeld(common.KeyQ, common.KeyMinus) {
		c.Zoom(-1)
	}

	var right, forward float32
	if in.isHeld(common.KeyL) {
		right++
	}
	if in.isHeld(common.KeyJ) {
		right--
	}
	if in.isHeld(common.KeyI) {
		forward++
	}
	if in.isHeld(common.KeyK) {
		forward--
	}
	if right != 0 || forward != 0 {
		c.Pan(right, forward)
	}
}
