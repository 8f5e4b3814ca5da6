//go:build !nogpu

package gpu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/mandelbrot"
	"github.com/gogpu/wgpu"

	// Register the platform HAL backends via init().
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// DefaultMapTimeout bounds how long Synchronize waits for the GPU.
const DefaultMapTimeout = 5 * time.Second

// probeIterations is the budget of the start-up self check.
const probeIterations = 64

var errNoHardwareAdapter = errors.New("gpu: no hardware adapter")

// EscapeTimeAccelerator evaluates the escape-time kernel in a wgpu compute
// shader, one invocation per pixel. It implements mandelbrot.Accelerator.
//
// Dispatch records and submits a compute pass followed by a copy of the
// counts into a mappable staging buffer. Synchronize maps the staging buffer,
// which waits for the submission, and copies the counts into the launch.
//
// The shader works in float32. Launches whose pixel spacing float32 can no
// longer resolve are declined in CanAccelerate, as is everything when no
// usable adapter was found during Init.
type EscapeTimeAccelerator struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	limits   gputypes.Limits
	label    string

	shader     *wgpu.ShaderModule
	bindLayout *wgpu.BindGroupLayout
	pipeLayout *wgpu.PipelineLayout
	pipeline   *wgpu.ComputePipeline

	// Per-grid resources, recreated when the grid changes.
	grid      mandelbrot.Resolution
	params    *wgpu.Buffer
	counts    *wgpu.Buffer
	staging   *wgpu.Buffer
	bindGroup *wgpu.BindGroup

	pending *mandelbrot.Launch

	// MapTimeout overrides DefaultMapTimeout when positive.
	MapTimeout time.Duration

	gpuReady       bool
	externalDevice bool // shared device, never released here
}

var (
	_ mandelbrot.Accelerator         = (*EscapeTimeAccelerator)(nil)
	_ mandelbrot.DeviceProviderAware = (*EscapeTimeAccelerator)(nil)
)

// Name returns "wgpu".
func (a *EscapeTimeAccelerator) Name() string { return "wgpu" }

// Init acquires a GPU and builds the compute pipeline. A missing or broken
// GPU is logged and leaves the accelerator declining every launch, so Init
// itself never fails.
func (a *EscapeTimeAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gpuReady {
		return nil
	}
	if err := a.initGPU(); err != nil {
		slogger().Warn("mandelbrot/gpu: GPU init failed, using CPU fallback", "err", err)
	}
	return nil
}

// Ready reports whether a GPU pipeline is available.
func (a *EscapeTimeAccelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// Adapter returns the name of the GPU in use, or "" before a successful Init.
func (a *EscapeTimeAccelerator) Adapter() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.label
}

func (a *EscapeTimeAccelerator) initGPU() error {
	inst, err := wgpu.CreateInstance(&wgpu.InstanceDescriptor{Backends: wgpu.BackendsPrimary})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		inst.Release()
		return fmt.Errorf("request adapter: %w", err)
	}
	info := adapter.Info()
	if info.DeviceType == gputypes.DeviceTypeCPU {
		adapter.Release()
		inst.Release()
		return fmt.Errorf("%w: %s is a CPU adapter", errNoHardwareAdapter, info.Name)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "mandelbrot",
		RequiredLimits: adapter.Limits(),
	})
	if err != nil {
		adapter.Release()
		inst.Release()
		return fmt.Errorf("request device: %w", err)
	}

	a.instance = inst
	a.adapter = adapter
	a.device = device
	a.queue = device.Queue()
	a.limits = device.Limits()
	a.label = info.Name
	a.externalDevice = false

	if err := a.start(); err != nil {
		a.releaseDevice()
		return err
	}
	slogger().Info("mandelbrot/gpu: compute accelerator ready",
		"adapter", info.Name, "type", info.DeviceType.String(), "backend", info.Backend.String())
	return nil
}

// start builds the pipeline on the current device and verifies it against
// the CPU kernel.
func (a *EscapeTimeAccelerator) start() error {
	if err := a.createPipeline(); err != nil {
		return err
	}
	if err := a.probe(); err != nil {
		a.destroyPipeline()
		return err
	}
	a.gpuReady = true
	return nil
}

func (a *EscapeTimeAccelerator) createPipeline() error {
	spirv, err := compileSPIRV(escapeTimeShaderSource)
	if err != nil {
		return err
	}
	a.shader, err = a.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "escape_time",
		SPIRV: spirv,
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	a.bindLayout, err = a.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "escape_time_bind_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: paramsSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: &gputypes.BufferBindingLayout{
					Type: gputypes.BufferBindingTypeStorage,
				},
			},
		},
	})
	if err != nil {
		a.destroyPipeline()
		return fmt.Errorf("create bind group layout: %w", err)
	}

	a.pipeLayout, err = a.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "escape_time_pipe_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		a.destroyPipeline()
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	a.pipeline, err = a.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      "escape_time_pipeline",
		Layout:     a.pipeLayout,
		Module:     a.shader,
		EntryPoint: "main",
	})
	if err != nil {
		a.destroyPipeline()
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	return nil
}

// probeViewport has sample points whose escaping orbits are exact in float32
// and whose bounded orbits stay bounded at either precision.
var probeViewport = mandelbrot.Viewport{MinRe: -2, MaxRe: 1, MinIm: -1.5, MaxIm: 1.5, ZoomFactor: 1}

// probe renders a 3x3 grid and compares it with the CPU kernel, so a
// miscompiled pipeline is never used.
func (a *EscapeTimeAccelerator) probe() error {
	l := &mandelbrot.Launch{
		Grid:          mandelbrot.Resolution{Width: 3, Height: 3},
		Viewport:      probeViewport,
		MaxIterations: probeIterations,
		Iterations:    make([]uint32, 9),
	}
	if err := a.dispatchLocked(l); err != nil {
		return fmt.Errorf("probe dispatch: %w", err)
	}
	if err := a.synchronizeLocked(); err != nil {
		return fmt.Errorf("probe synchronize: %w", err)
	}
	for i, got := range l.Iterations {
		p := mandelbrot.Pixel{X: i % 3, Y: i / 3}
		re, im := l.Viewport.ToPlane(p, l.Grid)
		want := mandelbrot.Iterate(re, im, probeIterations)
		if int(got) != want {
			return fmt.Errorf("probe mismatch at (%d,%d): gpu %d, cpu %d", p.X, p.Y, got, want)
		}
	}
	return nil
}

// CanAccelerate reports whether the GPU is ready, the counts fit in one
// storage binding and float32 can resolve the launch's pixel spacing.
func (a *EscapeTimeAccelerator) CanAccelerate(l *mandelbrot.Launch) bool {
	if l == nil || !l.Grid.Valid() {
		return false
	}
	a.mu.Lock()
	ready, limits := a.gpuReady, a.limits
	a.mu.Unlock()
	if !ready {
		return false
	}
	return fits(l.Grid, limits) && f32Resolves(l)
}

// fits reports whether grid stays within the storage binding and dispatch
// limits of a device.
func fits(grid mandelbrot.Resolution, limits gputypes.Limits) bool {
	size := uint64(grid.Pixels()) * 4 //nolint:gosec // validated positive
	if limits.MaxStorageBufferBindingSize > 0 && size > limits.MaxStorageBufferBindingSize {
		return false
	}
	if limits.MaxBufferSize > 0 && size > limits.MaxBufferSize {
		return false
	}
	if n := limits.MaxComputeWorkgroupsPerDimension; n > 0 {
		if workgroups(grid.Width) > n || workgroups(grid.Height) > n {
			return false
		}
	}
	return true
}

// Dispatch submits the compute pass for l. It returns ErrFallbackToCPU when
// no GPU is available.
func (a *EscapeTimeAccelerator) Dispatch(l *mandelbrot.Launch) error {
	if l == nil {
		return errors.New("gpu: nil launch")
	}
	if err := l.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return mandelbrot.ErrFallbackToCPU
	}
	return a.dispatchLocked(l)
}

func (a *EscapeTimeAccelerator) dispatchLocked(l *mandelbrot.Launch) error {
	if a.pending != nil {
		return errors.New("gpu: launch dispatched before the previous one was synchronized")
	}
	if err := a.ensureGrid(l.Grid); err != nil {
		return err
	}
	if err := a.queue.WriteBuffer(a.params, 0, encodeParams(l)); err != nil {
		return fmt.Errorf("write params: %w", err)
	}

	enc, err := a.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "escape_time"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	pass, err := enc.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "escape_time"})
	if err != nil {
		enc.DiscardEncoding()
		return fmt.Errorf("begin compute pass: %w", err)
	}
	pass.SetPipeline(a.pipeline)
	pass.SetBindGroup(0, a.bindGroup, nil)
	pass.Dispatch(workgroups(l.Grid.Width), workgroups(l.Grid.Height), 1)
	if err := pass.End(); err != nil {
		enc.DiscardEncoding()
		return fmt.Errorf("end compute pass: %w", err)
	}
	enc.CopyBufferToBuffer(a.counts, 0, a.staging, 0, countsSize(l.Grid))

	cb, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("finish commands: %w", err)
	}
	if _, err := a.queue.Submit(cb); err != nil {
		cb.Release()
		return fmt.Errorf("submit: %w", err)
	}
	a.pending = l
	return nil
}

// Synchronize waits for the outstanding launch and fills its Iterations.
func (a *EscapeTimeAccelerator) Synchronize() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.synchronizeLocked()
}

func (a *EscapeTimeAccelerator) synchronizeLocked() error {
	l := a.pending
	a.pending = nil
	if l == nil {
		return nil
	}

	timeout := a.MapTimeout
	if timeout <= 0 {
		timeout = DefaultMapTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	size := countsSize(l.Grid)
	if err := a.staging.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("map counts: %w", err)
	}
	defer func() { _ = a.staging.Unmap() }()

	rng, err := a.staging.MappedRange(0, size)
	if err != nil {
		return fmt.Errorf("mapped range: %w", err)
	}
	defer rng.Release()

	data := rng.Bytes()
	if uint64(len(data)) < size {
		return fmt.Errorf("mapped range: got %d bytes, want %d", len(data), size)
	}
	for i := range l.Iterations {
		l.Iterations[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return nil
}

func countsSize(grid mandelbrot.Resolution) uint64 {
	return uint64(grid.Pixels()) * 4 //nolint:gosec // validated positive
}

// ensureGrid (re)creates the buffers and bind group for grid.
func (a *EscapeTimeAccelerator) ensureGrid(grid mandelbrot.Resolution) error {
	if grid == a.grid && a.bindGroup != nil {
		return nil
	}
	a.destroyGrid()

	size := countsSize(grid)
	var err error
	a.params, err = a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "escape_time_params",
		Size:  paramsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	a.counts, err = a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "escape_time_counts",
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		a.destroyGrid()
		return fmt.Errorf("create counts buffer: %w", err)
	}
	a.staging, err = a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "escape_time_staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		a.destroyGrid()
		return fmt.Errorf("create staging buffer: %w", err)
	}
	a.bindGroup, err = a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "escape_time_bind_group",
		Layout: a.bindLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: a.params, Size: paramsSize},
			{Binding: 1, Buffer: a.counts, Size: size},
		},
	})
	if err != nil {
		a.destroyGrid()
		return fmt.Errorf("create bind group: %w", err)
	}
	a.grid = grid
	slogger().Debug("mandelbrot/gpu: grid buffers allocated",
		"width", grid.Width, "height", grid.Height, "bytes", size)
	return nil
}

func (a *EscapeTimeAccelerator) destroyGrid() {
	if a.bindGroup != nil {
		a.bindGroup.Release()
		a.bindGroup = nil
	}
	for _, b := range []**wgpu.Buffer{&a.staging, &a.counts, &a.params} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	a.grid = mandelbrot.Resolution{}
}

func (a *EscapeTimeAccelerator) destroyPipeline() {
	a.destroyGrid()
	if a.pipeline != nil {
		a.pipeline.Release()
		a.pipeline = nil
	}
	if a.pipeLayout != nil {
		a.pipeLayout.Release()
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.bindLayout.Release()
		a.bindLayout = nil
	}
	if a.shader != nil {
		a.shader.Release()
		a.shader = nil
	}
	a.gpuReady = false
}

// releaseDevice drops the pipeline and, unless the device is shared, the
// device, adapter and instance.
func (a *EscapeTimeAccelerator) releaseDevice() {
	a.pending = nil
	a.destroyPipeline()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Release()
		}
		if a.adapter != nil {
			a.adapter.Release()
		}
		if a.instance != nil {
			a.instance.Release()
		}
	}
	a.device = nil
	a.adapter = nil
	a.instance = nil
	a.queue = nil
	a.limits = gputypes.Limits{}
	a.label = ""
	a.externalDevice = false
}

// Close releases every GPU resource the accelerator owns. A shared device is
// left to its provider.
func (a *EscapeTimeAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil {
		_ = a.synchronizeLocked()
	}
	a.releaseDevice()
}

// SetDeviceProvider switches to a device shared by the host application.
// provider is either a *wgpu.Device or a gpucontext.DeviceProvider whose
// Device returns one.
func (a *EscapeTimeAccelerator) SetDeviceProvider(provider any) error {
	device, label, err := sharedDevice(provider)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil {
		_ = a.synchronizeLocked()
	}
	a.releaseDevice()

	a.device = device
	a.queue = device.Queue()
	a.limits = device.Limits()
	a.label = label
	a.externalDevice = true
	if err := a.start(); err != nil {
		a.releaseDevice()
		return fmt.Errorf("gpu: start on shared device: %w", err)
	}
	slogger().Info("mandelbrot/gpu: switched to shared GPU device", "adapter", label)
	return nil
}

func sharedDevice(provider any) (*wgpu.Device, string, error) {
	switch p := provider.(type) {
	case *wgpu.Device:
		if p == nil {
			return nil, "", errors.New("gpu: nil device")
		}
		return p, "shared", nil
	case gpucontext.DeviceProvider:
		d, ok := p.Device().(*wgpu.Device)
		if !ok || d == nil {
			return nil, "", fmt.Errorf("gpu: provider device is %T, not *wgpu.Device", p.Device())
		}
		info := p.AdapterInfo()
		if info.Type == gpucontext.AdapterTypeSoftware {
			return nil, "", fmt.Errorf("%w: %s is a software adapter", errNoHardwareAdapter, info.Name)
		}
		return d, info.Name, nil
	default:
		return nil, "", fmt.Errorf("gpu: unsupported device provider %T", provider)
	}
}

// SetLogger sets the logger used by the accelerator.
func (a *EscapeTimeAccelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}
