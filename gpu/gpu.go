//go:build !nogpu

// Package gpu registers the wgpu compute accelerator.
//
// Import it for its side effect:
//
//	import _ "github.com/gogpu/mandelbrot/gpu"
//
// If no Vulkan, Metal or DX12 adapter is available the accelerator stays
// registered but declines every launch, and frames are computed by the
// software accelerator. The same happens per frame once a zoom goes deeper
// than float32 can resolve.
package gpu

import (
	"github.com/gogpu/mandelbrot"
	gpuimpl "github.com/gogpu/mandelbrot/internal/gpu"
)

func init() {
	accel := &gpuimpl.EscapeTimeAccelerator{}
	if err := mandelbrot.RegisterAccelerator(accel); err != nil {
		mandelbrot.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider makes the registered accelerator share the GPU device of
// a host application, such as a gogpu window. provider is a
// gpucontext.DeviceProvider backed by gogpu/wgpu, or a *wgpu.Device.
func SetDeviceProvider(provider any) error {
	return mandelbrot.SetAcceleratorDeviceProvider(provider)
}

// Ready reports whether the registered accelerator has a usable GPU.
func Ready() bool {
	a, ok := mandelbrot.RegisteredAccelerator().(*gpuimpl.EscapeTimeAccelerator)
	return ok && a.Ready()
}

// AdapterName returns the name of the GPU in use, or "".
func AdapterName() string {
	a, ok := mandelbrot.RegisteredAccelerator().(*gpuimpl.EscapeTimeAccelerator)
	if !ok {
		return ""
	}
	return a.Adapter()
}
