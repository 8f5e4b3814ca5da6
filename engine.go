package mandelbrot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/mandelbrot/internal/parallel"
)

// DefaultMaxIterations is the iteration cap used unless WithMaxIterations is given.
const DefaultMaxIterations = 1000

// Engine renders viewports into a reused FrameBuffer.
//
// Each frame is one launch: an accelerator fills the per-pixel iteration
// counts, the engine waits for it to finish and then maps the counts through
// the palette into the frame buffer. The registered accelerator is tried first
// when it can run the launch; otherwise, or when it returns ErrFallbackToCPU,
// the built-in software accelerator runs it.
//
// A failed render leaves the previous frame untouched. Engine is safe for
// concurrent use; renders are serialized.
type Engine struct {
	mu sync.Mutex

	maxIterations int
	palette       Palette

	pool         *parallel.WorkerPool
	bandHeight   int
	software     *SoftwareAccelerator
	accelerator  Accelerator
	softwareOnly bool

	frame      *FrameBuffer
	iterations []uint32
	last       string
	closed     bool
}

// NewEngine creates an engine. Without options it renders with
// DefaultMaxIterations on the registered accelerator and GOMAXPROCS CPU workers.
func NewEngine(opts ...EngineOption) *Engine {
	o := defaultEngineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	pool := parallel.NewWorkerPool(o.workers)
	return &Engine{
		maxIterations: o.maxIterations,
		palette:       NewPalette(o.maxIterations),
		pool:          pool,
		bandHeight:    o.bandHeight,
		software:      newSharedSoftwareAccelerator(pool, o.bandHeight),
		accelerator:   o.accelerator,
		softwareOnly:  o.softwareOnly,
		frame:         &FrameBuffer{},
	}
}

// MaxIterations returns the engine's iteration cap.
func (e *Engine) MaxIterations() int {
	return e.maxIterations
}

// Frame returns the most recently rendered frame. Before the first successful
// render it is empty.
func (e *Engine) Frame() *FrameBuffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// LastAccelerator returns the name of the accelerator that computed the most
// recent frame, or "" before the first successful render.
func (e *Engine) LastAccelerator() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// RenderFrame renders vp at res and returns the engine's frame buffer.
//
// The buffer is reallocated only when res changes. The returned pointer is
// the same on every call and its contents are replaced by the next render.
//
// On failure the previous frame is left untouched and the error wraps one of
// ErrDimensionMismatch, ErrInvalidViewport, ErrDeviceDispatch or
// ErrEngineClosed.
func (e *Engine) RenderFrame(vp Viewport, res Resolution) (*FrameBuffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if !res.Valid() {
		return nil, fmt.Errorf("%w: resolution %v", ErrDimensionMismatch, res)
	}
	if err := vp.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	n := res.Pixels()
	if len(e.iterations) != n {
		e.iterations = make([]uint32, n)
	}
	launch := &Launch{
		Grid:          res,
		Viewport:      vp,
		MaxIterations: e.maxIterations,
		Iterations:    e.iterations,
	}

	name, err := e.run(launch)
	if err != nil {
		return nil, err
	}

	if e.frame.EnsureSize(res) {
		Logger().Debug("mandelbrot: frame buffer allocated",
			"width", res.Width, "height", res.Height, "bytes", len(e.frame.Bytes()))
	}
	if err := e.colorize(launch.Iterations); err != nil {
		return nil, fmt.Errorf("%w: colorize: %w", ErrDeviceDispatch, err)
	}
	e.last = name

	Logger().Debug("mandelbrot: frame rendered",
		"width", res.Width,
		"height", res.Height,
		"accelerator", name,
		"viewport", vp.String(),
		"elapsed", time.Since(start))
	return e.frame, nil
}

// run executes l on the chosen accelerator and falls back to software when
// it declines.
func (e *Engine) run(l *Launch) (string, error) {
	if err := l.Validate(); err != nil {
		return "", err
	}

	if a := e.pick(l); a != nil {
		err := launchSync(a, l)
		if err == nil {
			return a.Name(), nil
		}
		if !errors.Is(err, ErrFallbackToCPU) {
			return "", fmt.Errorf("%w: %s: %w", ErrDeviceDispatch, a.Name(), err)
		}
		Logger().Debug("mandelbrot: accelerator declined launch, using software",
			"accelerator", a.Name(), "grid", l.Grid.String())
	}

	if err := launchSync(e.software, l); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDeviceDispatch, e.software.Name(), err)
	}
	return e.software.Name(), nil
}

// pick returns the device accelerator to try, or nil for software.
func (e *Engine) pick(l *Launch) Accelerator {
	if e.softwareOnly {
		return nil
	}
	a := e.accelerator
	if a == nil {
		a = RegisteredAccelerator()
	}
	if a == nil || !a.CanAccelerate(l) {
		return nil
	}
	return a
}

// launchSync dispatches l and waits for it.
func launchSync(a Accelerator, l *Launch) error {
	if err := a.Dispatch(l); err != nil {
		return err
	}
	return a.Synchronize()
}

// colorize maps counts through the palette into the frame, one band per item.
func (e *Engine) colorize(counts []uint32) error {
	fb := e.frame
	w := fb.Width()
	bands := parallel.Bands(fb.Height(), e.bandHeight)
	work := make([]func() error, len(bands))
	for i, b := range bands {
		work[i] = func() error {
			for idx := b.Y0 * w; idx < b.Y1*w; idx++ {
				fb.setIndex(idx, e.palette.Color(int(counts[idx])))
			}
			return nil
		}
	}
	return e.pool.ExecuteAll(work)
}

// Close stops the engine's workers. The registered accelerator is left
// alone; see CloseAccelerator. Close is safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.software.Close()
	e.pool.Close()
}
