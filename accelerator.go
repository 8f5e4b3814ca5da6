package mandelbrot

import (
	"errors"
	"fmt"
	"sync"
)

// Launch describes one escape-time kernel launch: a grid of Width×Height
// threads, each evaluating Iterate for one pixel of the viewport and storing
// the count at Iterations[y*Width+x].
type Launch struct {
	Grid          Resolution
	Viewport      Viewport
	MaxIterations int

	// Iterations receives the per-pixel counts. It must hold exactly
	// Grid.Pixels() elements and stays owned by the caller.
	Iterations []uint32
}

// Validate checks the launch geometry before any device work is issued.
func (l *Launch) Validate() error {
	if !l.Grid.Valid() {
		return fmt.Errorf("%w: launch grid %v", ErrDimensionMismatch, l.Grid)
	}
	if len(l.Iterations) != l.Grid.Pixels() {
		return fmt.Errorf("%w: launch grid %v needs %d counts, buffer holds %d",
			ErrDimensionMismatch, l.Grid, l.Grid.Pixels(), len(l.Iterations))
	}
	return l.Viewport.Validate()
}

// Accelerator executes escape-time launches on a compute device.
//
// Launches are asynchronous and in order: Dispatch enqueues the work and
// Synchronize blocks until it has completed and the counts are visible in
// Launch.Iterations. A caller must pair every successful Dispatch with a
// Synchronize from the same goroutine before issuing the next launch.
//
// Implementations are provided by the software renderer in this package and
// by GPU backend packages. Users opt in to GPU acceleration via blank import:
//
//	import _ "github.com/gogpu/mandelbrot/gpu" // enables GPU acceleration
type Accelerator interface {
	// Name returns the accelerator name (e.g., "software", "wgpu").
	Name() string

	// Init acquires device resources. Called once during registration.
	Init() error

	// Close releases device resources.
	Close()

	// CanAccelerate reports whether the accelerator can run l with the
	// precision it needs. It is a fast check that issues no device work.
	CanAccelerate(l *Launch) bool

	// Dispatch enqueues l. It returns ErrFallbackToCPU when the device
	// declines the launch.
	Dispatch(l *Launch) error

	// Synchronize waits for the outstanding launch. Without one it returns nil.
	Synchronize() error
}

// DeviceProviderAware is implemented by accelerators that can render on a
// device owned by someone else, such as a gogpu window. After
// SetDeviceProvider succeeds the accelerator uses that device and never
// releases it.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers a process-wide accelerator that engines try
// before their software renderer.
//
// Only one accelerator can be registered. Subsequent calls replace and close
// the previous one. Init is called during registration; if it fails the
// accelerator is not registered and the error is returned.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("mandelbrot: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil && old != a {
		old.Close()
	}
	return nil
}

// RegisteredAccelerator returns the registered accelerator, or nil if none.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// CloseAccelerator unregisters and closes the registered accelerator.
// Programs that blank-import a GPU package should defer it from main.
func CloseAccelerator() {
	accelMu.Lock()
	a := accel
	accel = nil
	accelMu.Unlock()
	if a != nil {
		a.Close()
	}
}

// SetAcceleratorDeviceProvider hands provider to the registered accelerator
// so that it renders on the host application's device. It does nothing when
// no accelerator is registered or the accelerator renders without a device.
//
// The gpu package accepts a gpucontext.DeviceProvider or a *wgpu.Device.
func SetAcceleratorDeviceProvider(provider any) error {
	dpa, ok := RegisteredAccelerator().(DeviceProviderAware)
	if !ok {
		return nil
	}
	return dpa.SetDeviceProvider(provider)
}
