package mandelbrot

// EngineOption configures an Engine during creation.
//
// Example:
//
//	// Software rendering with a smaller iteration budget
//	e := mandelbrot.NewEngine(mandelbrot.WithMaxIterations(256), mandelbrot.WithSoftwareOnly())
type EngineOption func(*engineOptions)

type engineOptions struct {
	maxIterations int
	accelerator   Accelerator
	softwareOnly  bool
	workers       int
	bandHeight    int
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		maxIterations: DefaultMaxIterations,
	}
}

// WithMaxIterations sets the iteration cap. It is fixed for the engine's
// lifetime; values below 1 are raised to 1.
func WithMaxIterations(n int) EngineOption {
	return func(o *engineOptions) {
		o.maxIterations = max(n, 1)
	}
}

// WithAccelerator makes the engine try a rather than the registered
// accelerator. The engine does not take ownership of a.
func WithAccelerator(a Accelerator) EngineOption {
	return func(o *engineOptions) {
		o.accelerator = a
	}
}

// WithSoftwareOnly disables every accelerator except the built-in software one.
func WithSoftwareOnly() EngineOption {
	return func(o *engineOptions) {
		o.softwareOnly = true
	}
}

// WithWorkers sets the number of software renderer goroutines.
// Zero or a negative value uses GOMAXPROCS.
func WithWorkers(n int) EngineOption {
	return func(o *engineOptions) {
		o.workers = n
	}
}

// WithBandHeight sets how many rows each software work item evaluates.
func WithBandHeight(rows int) EngineOption {
	return func(o *engineOptions) {
		o.bandHeight = rows
	}
}

// ControllerOption configures a Controller during creation.
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	zoomStep   float64
	panButton  Button
	panSet     bool
	clickZoom  bool
	viewport   Viewport
	initialSet bool
}

func defaultControllerOptions() controllerOptions {
	return controllerOptions{
		zoomStep:  DefaultZoomStep,
		panButton: ButtonLeft,
		viewport:  DefaultViewport(),
	}
}

// WithZoomStep sets the zoom delta applied per wheel notch or click.
// Non-positive steps are ignored.
func WithZoomStep(step float64) ControllerOption {
	return func(o *controllerOptions) {
		if step > 0 {
			o.zoomStep = step
		}
	}
}

// WithPanButton selects the button that starts a drag.
func WithPanButton(b Button) ControllerOption {
	return func(o *controllerOptions) {
		o.panButton = b
		o.panSet = true
	}
}

// WithClickZoom makes a left click zoom in and a right click zoom out around
// the pointer. Unless WithPanButton is also given, panning moves to the
// middle button.
func WithClickZoom() ControllerOption {
	return func(o *controllerOptions) {
		o.clickZoom = true
	}
}

// WithInitialViewport starts the controller at vp instead of the default window.
// Reset returns to it.
func WithInitialViewport(vp Viewport) ControllerOption {
	return func(o *controllerOptions) {
		o.viewport = vp
		o.initialSet = true
	}
}
