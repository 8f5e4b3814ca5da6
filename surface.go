package mandelbrot

// Surface presents rendered frames.
//
// pix holds width*height pixels in top-left-origin row-major order, four bytes
// per pixel in R, G, B, A order. It is only valid for the duration of the call:
// implementations that need the pixels later must copy them.
type Surface interface {
	Present(width, height int, pix []byte) error
}

// Renderer produces frames for a viewport. *Engine implements it.
type Renderer interface {
	RenderFrame(vp Viewport, res Resolution) (*FrameBuffer, error)
}
