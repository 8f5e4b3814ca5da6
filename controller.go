package mandelbrot

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultZoomStep is the zoom delta of one wheel notch or click.
const DefaultZoomStep = 0.1

// Controller turns input events into viewport changes and re-renders.
//
// It is a two state machine. In the idle state a press of the pan button
// records the pointer and enters the panning state; every move while panning
// pans the viewport by the pointer delta and renders; releasing the pan button
// returns to idle. Zoom input works in either state and zooms toward the
// pointer.
//
// When a render fails the viewport change that triggered it is rolled back, so
// the viewport always matches the last frame that was presented. Controller
// is not safe for concurrent use; events are expected from a single goroutine.
type Controller struct {
	renderer Renderer
	surface  Surface

	vp      Viewport
	initial Viewport
	res     Resolution

	zoomStep  float64
	panButton Button
	clickZoom bool

	panning bool
	last    mgl64.Vec2
}

// NewController creates a controller rendering with r at res and presenting
// to s. A nil surface skips presentation. No frame is rendered until Render
// or the first event.
func NewController(r Renderer, s Surface, res Resolution, opts ...ControllerOption) *Controller {
	o := defaultControllerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.clickZoom && !o.panSet {
		o.panButton = ButtonMiddle
	}
	return &Controller{
		renderer:  r,
		surface:   s,
		vp:        o.viewport,
		initial:   o.viewport,
		res:       res,
		zoomStep:  o.zoomStep,
		panButton: o.panButton,
		clickZoom: o.clickZoom,
	}
}

// Viewport returns the current viewport.
func (c *Controller) Viewport() Viewport {
	return c.vp
}

// Resolution returns the current output resolution.
func (c *Controller) Resolution() Resolution {
	return c.res
}

// Panning reports whether a drag is in progress.
func (c *Controller) Panning() bool {
	return c.panning
}

// Render renders the current viewport and presents it.
func (c *Controller) Render() error {
	fb, err := c.renderer.RenderFrame(c.vp, c.res)
	if err != nil {
		return err
	}
	if c.surface == nil {
		return nil
	}
	if err := c.surface.Present(fb.Width(), fb.Height(), fb.Bytes()); err != nil {
		return fmt.Errorf("mandelbrot: present %dx%d frame: %w", fb.Width(), fb.Height(), err)
	}
	return nil
}

// Handle applies one event. Events that change the view render a new frame;
// the returned error is the zoom, pan or render failure, if any.
func (c *Controller) Handle(ev Event) error {
	switch ev := ev.(type) {
	case PointerDown:
		if ev.Button == c.panButton {
			c.panning = true
			c.last = ev.Pos
			return nil
		}
		if c.clickZoom {
			switch ev.Button {
			case ButtonLeft:
				return c.zoom(ev.Pos, c.zoomStep)
			case ButtonRight:
				return c.zoom(ev.Pos, -c.zoomStep)
			}
		}
		return nil

	case PointerMove:
		if !c.panning {
			return nil
		}
		d := ev.Pos.Sub(c.last)
		if d.X() == 0 && d.Y() == 0 {
			return nil
		}
		err := c.update(func(vp *Viewport) error {
			return vp.Pan(d.X(), d.Y(), c.res)
		})
		if err != nil {
			return err
		}
		c.last = ev.Pos
		return nil

	case PointerUp:
		if ev.Button == c.panButton {
			c.panning = false
		}
		return nil

	case Wheel:
		switch {
		case ev.Delta > 0:
			return c.zoom(ev.Pos, c.zoomStep)
		case ev.Delta < 0:
			return c.zoom(ev.Pos, -c.zoomStep)
		}
		return nil

	case Resize:
		if !ev.Resolution.Valid() {
			return fmt.Errorf("%w: resize to %v", ErrDimensionMismatch, ev.Resolution)
		}
		prev := c.res
		c.res = ev.Resolution
		if err := c.Render(); err != nil {
			c.res = prev
			return err
		}
		return nil

	case Reset:
		return c.update(func(vp *Viewport) error {
			*vp = c.initial
			return nil
		})

	default:
		return fmt.Errorf("mandelbrot: unsupported event %T", ev)
	}
}

// zoom zooms toward the pixel under pos.
func (c *Controller) zoom(pos mgl64.Vec2, delta float64) error {
	p := c.pixelAt(pos)
	return c.update(func(vp *Viewport) error {
		return vp.ZoomToward(p, c.res, delta)
	})
}

// update applies fn to a copy of the viewport, renders it and keeps it only
// if the render succeeded.
func (c *Controller) update(fn func(*Viewport) error) error {
	prev := c.vp
	next := c.vp
	if err := fn(&next); err != nil {
		return err
	}
	c.vp = next
	if err := c.Render(); err != nil {
		c.vp = prev
		return err
	}
	return nil
}

// pixelAt rounds pos to the nearest pixel inside the output.
func (c *Controller) pixelAt(pos mgl64.Vec2) Pixel {
	clamp := func(v float64, n int) int {
		switch {
		case math.IsNaN(v), v <= 0:
			return 0
		case v >= float64(n-1):
			return max(n-1, 0)
		}
		return int(math.Round(v))
	}
	return Pixel{X: clamp(pos.X(), c.res.Width), Y: clamp(pos.Y(), c.res.Height)}
}
