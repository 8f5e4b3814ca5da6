package mandelbrot

import "errors"

// Render and interaction errors. They are always returned wrapped with
// diagnostic detail; test for them with errors.Is.
var (
	// ErrDeviceDispatch reports that the accelerator was unavailable or the
	// kernel launch failed. The previous frame is left untouched.
	ErrDeviceDispatch = errors.New("mandelbrot: device dispatch failed")

	// ErrDimensionMismatch reports buffer dimensions that disagree with the
	// requested resolution, or a resolution that is not positive.
	ErrDimensionMismatch = errors.New("mandelbrot: dimension mismatch")

	// ErrInvalidViewport reports a zoom or pan that would collapse or invert
	// the plane window. The viewport is left unchanged.
	ErrInvalidViewport = errors.New("mandelbrot: invalid viewport")

	// ErrFallbackToCPU indicates an accelerator declined a launch.
	// The engine transparently reruns it on the software accelerator.
	ErrFallbackToCPU = errors.New("mandelbrot: falling back to CPU rendering")

	// ErrEngineClosed is returned by RenderFrame after Close.
	ErrEngineClosed = errors.New("mandelbrot: engine closed")
)
