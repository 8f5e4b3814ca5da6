//go:build nogpu

package gpu

import "github.com/gogpu/mandelbrot"

// SetDeviceProvider forwards provider to whatever accelerator is registered.
// Built with nogpu, no GPU accelerator is registered.
func SetDeviceProvider(provider any) error {
	return mandelbrot.SetAcceleratorDeviceProvider(provider)
}

// Ready reports false: the module was built with the nogpu tag.
func Ready() bool { return false }

// AdapterName returns "".
func AdapterName() string { return "" }
