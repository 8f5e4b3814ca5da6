// Package mandelbrot renders interactive views of the Mandelbrot set.
//
// # Overview
//
// A Viewport selects a rectangle of the complex plane. An Engine maps every
// pixel of the output Resolution into that rectangle, runs the escape-time
// iteration z ← z² + c for it, and colours the resulting count with a
// rainbow HSV palette (points that never escape are black). A Controller
// turns pointer and wheel input into zoom and pan operations on the viewport
// and re-renders after each one.
//
// # Quick Start
//
//	import "github.com/gogpu/mandelbrot"
//
//	e := mandelbrot.NewEngine()
//	defer e.Close()
//
//	fb, err := e.RenderFrame(mandelbrot.DefaultViewport(), mandelbrot.Resolution{Width: 800, Height: 600})
//	if err != nil {
//	    return err
//	}
//	png.Encode(w, fb)
//
// # Accelerators
//
// Frames are computed by an Accelerator using an asynchronous
// Dispatch/Synchronize pair. The built-in SoftwareAccelerator splits the frame
// into row bands evaluated by a work-stealing goroutine pool. A GPU
// accelerator built on gogpu/wgpu compute shaders is enabled by a blank import:
//
//	import _ "github.com/gogpu/mandelbrot/gpu"
//
// The GPU evaluates the kernel in float32 and declines launches once the pixel
// spacing is too small for it, at which point the engine transparently uses
// the software accelerator.
//
// # Coordinate System
//
// Uses standard computer graphics coordinates:
//   - Origin (0,0) at top-left
//   - X increases right and maps to the real axis
//   - Y increases down and maps to the imaginary axis, from MinIm to MaxIm
//
// # Errors
//
// Failures wrap ErrDeviceDispatch, ErrDimensionMismatch or ErrInvalidViewport.
// None of them are fatal: the previous frame and viewport are kept and the
// next render simply tries again.
package mandelbrot

// Version is the current version of the library.
const Version = "0.1.0"
