package mandelbrot

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Button identifies a pointer button.
type Button uint8

// Pointer buttons.
const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return fmt.Sprintf("Button(%d)", uint8(b))
	}
}

// Event is an input event delivered to a Controller. Positions are in pixels
// with the origin at the top-left corner of the output.
type Event interface {
	isEvent()
}

// PointerDown reports a button press at Pos.
type PointerDown struct {
	Button Button
	Pos    mgl64.Vec2
}

// PointerMove reports the pointer moving to Pos.
type PointerMove struct {
	Pos mgl64.Vec2
}

// PointerUp reports a button release.
type PointerUp struct {
	Button Button
}

// Wheel reports a scroll at Pos. Only the sign of Delta is used:
// positive zooms in and negative zooms out.
type Wheel struct {
	Delta float64
	Pos   mgl64.Vec2
}

// Resize reports new output dimensions.
type Resize struct {
	Resolution Resolution
}

// Reset returns the view to the initial window.
type Reset struct{}

func (PointerDown) isEvent() {}
func (PointerMove) isEvent() {}
func (PointerUp) isEvent()   {}
func (Wheel) isEvent()       {}
func (Resize) isEvent()      {}
func (Reset) isEvent()       {}
