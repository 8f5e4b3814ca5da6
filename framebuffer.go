package mandelbrot

import (
	"fmt"
	"image"
	"image/color"
)

// BytesPerPixel is the packed size of one FrameBuffer cell.
const BytesPerPixel = 4

// FrameBuffer is the rendered frame: a row-major grid of opaque colours with
// the origin at the top-left corner, stored as R, G, B, A bytes per pixel.
//
// Storage is reallocated only when the resolution changes, so zooming and
// panning reuse the same memory frame after frame. The zero value is an
// empty buffer ready for EnsureSize.
type FrameBuffer struct {
	width  int
	height int
	pix    []byte
	allocs int
}

// NewFrameBuffer returns a zeroed buffer for res.
func NewFrameBuffer(res Resolution) *FrameBuffer {
	fb := &FrameBuffer{}
	fb.EnsureSize(res)
	return fb
}

// EnsureSize makes the storage match res. It is a no-op when the size is
// unchanged; otherwise the old storage is dropped and a fresh zeroed one of
// exactly Width*Height cells is allocated. It reports whether it allocated.
func (f *FrameBuffer) EnsureSize(res Resolution) bool {
	if f.pix != nil && f.width == res.Width && f.height == res.Height {
		return false
	}
	w, h := max(res.Width, 0), max(res.Height, 0)
	f.width, f.height = w, h
	f.pix = make([]byte, w*h*BytesPerPixel)
	f.allocs++
	return true
}

// Allocations returns how many times EnsureSize allocated storage.
func (f *FrameBuffer) Allocations() int {
	return f.allocs
}

// Width returns the width in pixels.
func (f *FrameBuffer) Width() int {
	return f.width
}

// Height returns the height in pixels.
func (f *FrameBuffer) Height() int {
	return f.height
}

// Resolution returns the current dimensions.
func (f *FrameBuffer) Resolution() Resolution {
	return Resolution{Width: f.width, Height: f.height}
}

// Set stores c at (x, y). Out of range coordinates are ignored.
func (f *FrameBuffer) Set(x, y int, c Color) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	f.setIndex(y*f.width+x, c)
}

func (f *FrameBuffer) setIndex(i int, c Color) {
	o := i * BytesPerPixel
	f.pix[o+0] = c.R()
	f.pix[o+1] = c.G()
	f.pix[o+2] = c.B()
	f.pix[o+3] = c.A()
}

// ColorAt returns the colour at (x, y), or 0 outside the buffer.
func (f *FrameBuffer) ColorAt(x, y int) Color {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return 0
	}
	o := (y*f.width + x) * BytesPerPixel
	return Color(f.pix[o+3])<<24 | Color(f.pix[o+0])<<16 | Color(f.pix[o+1])<<8 | Color(f.pix[o+2])
}

// Bytes returns the packed pixels, row-major with a stride of
// Width*BytesPerPixel. The slice is a view of the buffer's own storage: it
// must be treated as read-only and is only valid until the next render.
func (f *FrameBuffer) Bytes() []byte {
	return f.pix
}

// CopyTo copies the packed pixels into dst and returns the number of bytes
// copied. dst must hold at least Width*Height*BytesPerPixel bytes.
func (f *FrameBuffer) CopyTo(dst []byte) (int, error) {
	if len(dst) < len(f.pix) {
		return 0, fmt.Errorf("%w: destination holds %d bytes, frame %dx%d needs %d",
			ErrDimensionMismatch, len(dst), f.width, f.height, len(f.pix))
	}
	return copy(dst, f.pix), nil
}

// ToImage returns a copy of the frame as an image.RGBA.
func (f *FrameBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	copy(img.Pix, f.pix)
	return img
}

// At implements image.Image.
func (f *FrameBuffer) At(x, y int) color.Color {
	return f.ColorAt(x, y)
}

// Bounds implements image.Image.
func (f *FrameBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// ColorModel implements image.Image.
func (f *FrameBuffer) ColorModel() color.Model {
	return color.RGBAModel
}
