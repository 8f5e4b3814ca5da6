package mandelbrot

import (
	"fmt"
	"math"
)

// Default plane window, showing the whole set.
const (
	DefaultMinRe = -2.0
	DefaultMaxRe = 1.0
	DefaultMinIm = -1.2
	DefaultMaxIm = 1.2
)

// Resolution is the output size in pixels.
type Resolution struct {
	Width, Height int
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Pixels returns Width*Height.
func (r Resolution) Pixels() int {
	return r.Width * r.Height
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Pixel is an integer grid index with the origin at the top-left corner.
type Pixel struct {
	X, Y int
}

// Viewport is the rectangle of the complex plane mapped onto the output.
// X maps to the real axis and Y to the imaginary axis.
//
// ZoomFactor tracks the cumulative zoom relative to the default window and is
// only used to compute the next zoom increment; the mapping is always derived
// from the bounds. A zero ZoomFactor is treated as 1.
type Viewport struct {
	MinRe, MaxRe float64
	MinIm, MaxIm float64
	ZoomFactor   float64
}

// DefaultViewport returns the initial window with a zoom factor of 1.
func DefaultViewport() Viewport {
	return Viewport{
		MinRe:      DefaultMinRe,
		MaxRe:      DefaultMaxRe,
		MinIm:      DefaultMinIm,
		MaxIm:      DefaultMaxIm,
		ZoomFactor: 1,
	}
}

// Validate checks that both axes are finite and strictly increasing.
func (v Viewport) Validate() error {
	for _, f := range [...]float64{v.MinRe, v.MaxRe, v.MinIm, v.MaxIm} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite bound in %v", ErrInvalidViewport, v)
		}
	}
	if !(v.MinRe < v.MaxRe) || !(v.MinIm < v.MaxIm) {
		return fmt.Errorf("%w: empty or inverted window %v", ErrInvalidViewport, v)
	}
	if v.ZoomFactor < 0 || math.IsNaN(v.ZoomFactor) {
		return fmt.Errorf("%w: zoom factor %g", ErrInvalidViewport, v.ZoomFactor)
	}
	return nil
}

// Extent returns the window width and height in plane units.
func (v Viewport) Extent() (re, im float64) {
	return v.MaxRe - v.MinRe, v.MaxIm - v.MinIm
}

// Center returns the plane coordinate at the middle of the window.
func (v Viewport) Center() (re, im float64) {
	return (v.MinRe + v.MaxRe) / 2, (v.MinIm + v.MaxIm) / 2
}

// Zoom returns the cumulative zoom factor.
func (v Viewport) Zoom() float64 {
	if v.ZoomFactor == 0 {
		return 1
	}
	return v.ZoomFactor
}

func (v Viewport) String() string {
	return fmt.Sprintf("[%g, %g]x[%g, %g]", v.MinRe, v.MaxRe, v.MinIm, v.MaxIm)
}

// ToPlane maps a pixel to its plane coordinate by linear interpolation.
// The corners (0, 0) and (W-1, H-1) map exactly to (MinRe, MinIm) and
// (MaxRe, MaxIm). A one pixel wide axis uses a denominator of 1.
func (v Viewport) ToPlane(p Pixel, res Resolution) (re, im float64) {
	return axis(v.MinRe, v.MaxRe, p.X, res.Width), axis(v.MinIm, v.MaxIm, p.Y, res.Height)
}

// axis interpolates index i of an n-sample axis across [lo, hi].
// Every evaluator of the mapping goes through here so they agree bit for bit.
func axis(lo, hi float64, i, n int) float64 {
	return lo + (hi-lo)*float64(i)/denominator(n)
}

func denominator(n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(n - 1)
}

// ZoomToward scales the window by 1/(1+delta) around the plane point under
// center, which stays under the same pixel afterwards. Positive delta zooms
// in and negative zooms out.
//
// A delta that makes the zoom factor non-positive, or a resize that would
// collapse the window below float64 resolution, returns ErrInvalidViewport
// and leaves v unchanged.
func (v *Viewport) ZoomToward(center Pixel, res Resolution, delta float64) error {
	scale := 1 + delta
	if !(scale > 0) || math.IsInf(scale, 0) {
		return fmt.Errorf("%w: zoom delta %g", ErrInvalidViewport, delta)
	}
	if !res.Valid() {
		return fmt.Errorf("%w: resolution %v", ErrDimensionMismatch, res)
	}

	fx := float64(center.X) / denominator(res.Width)
	fy := float64(center.Y) / denominator(res.Height)
	cre, cim := v.ToPlane(center, res)

	w, h := v.Extent()
	w /= scale
	h /= scale

	next := Viewport{
		MinRe:      cre - w*fx,
		MinIm:      cim - h*fy,
		ZoomFactor: v.Zoom() * scale,
	}
	next.MaxRe = next.MinRe + w
	next.MaxIm = next.MinIm + h

	if err := next.Validate(); err != nil {
		return fmt.Errorf("zoom toward %v by %g: %w", center, delta, err)
	}
	*v = next
	return nil
}

// Pan translates the window so the content follows a pointer drag of
// (dx, dy) pixels. The window size is preserved.
func (v *Viewport) Pan(dx, dy float64, res Resolution) error {
	if !res.Valid() {
		return fmt.Errorf("%w: resolution %v", ErrDimensionMismatch, res)
	}
	w, h := v.Extent()
	sre := w * dx / float64(res.Width)
	sim := h * dy / float64(res.Height)

	next := *v
	next.MinRe -= sre
	next.MaxRe -= sre
	next.MinIm -= sim
	next.MaxIm -= sim

	if err := next.Validate(); err != nil {
		return fmt.Errorf("pan by (%g, %g): %w", dx, dy, err)
	}
	*v = next
	return nil
}
