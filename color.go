package mandelbrot

import (
	"image/color"
	"math"
)

// Color is a packed 32-bit colour laid out as 0xAARRGGBB.
// Every colour produced by this package is fully opaque.
type Color uint32

// Black is the colour of points that never escape.
const Black Color = 0xFF000000

// NewColor packs opaque red, green and blue channels.
func NewColor(r, g, b uint8) Color {
	return Color(0xFF)<<24 | Color(r)<<16 | Color(g)<<8 | Color(b)
}

// A returns the alpha channel.
func (c Color) A() uint8 { return uint8(c >> 24) }

// R returns the red channel.
func (c Color) R() uint8 { return uint8(c >> 16) }

// G returns the green channel.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue channel.
func (c Color) B() uint8 { return uint8(c) }

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}.RGBA()
}

// ColorOf maps an escape iteration count to a colour.
//
// Points that reach maxIterations are black. Every other count becomes a fully
// saturated, full value HSV colour whose hue is n/maxIterations, so the
// gradient sweeps the colour wheel once as escape time grows.
func ColorOf(n, maxIterations int) Color {
	if maxIterations <= 0 || n >= maxIterations {
		return Black
	}
	if n < 0 {
		n = 0
	}

	h6 := float64(n) / float64(maxIterations) * 6
	fl := math.Floor(h6)
	hi := int(fl) % 6
	f := h6 - fl

	const v, p = 255, 0
	q := channel(255 * (1 - f))
	t := channel(255 * f)

	switch hi {
	case 0:
		return NewColor(v, t, p)
	case 1:
		return NewColor(q, v, p)
	case 2:
		return NewColor(p, v, t)
	case 3:
		return NewColor(p, q, v)
	case 4:
		return NewColor(t, p, v)
	default:
		return NewColor(v, p, q)
	}
}

// channel rounds half to even and clamps into a byte.
func channel(x float64) uint8 {
	x = math.RoundToEven(x)
	if x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x)
}

// Palette caches ColorOf for every count in [0, maxIterations].
// A session's iteration cap never changes, so the table is built once.
type Palette []Color

// NewPalette builds the palette for maxIterations.
func NewPalette(maxIterations int) Palette {
	if maxIterations < 0 {
		maxIterations = 0
	}
	p := make(Palette, maxIterations+1)
	for n := range p {
		p[n] = ColorOf(n, maxIterations)
	}
	return p
}

// Color returns the colour for count n, clamping out-of-range counts.
func (p Palette) Color(n int) Color {
	switch {
	case len(p) == 0:
		return Black
	case n < 0:
		return p[0]
	case n >= len(p):
		return p[len(p)-1]
	}
	return p[n]
}
