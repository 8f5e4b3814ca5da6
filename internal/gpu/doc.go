//go:build !nogpu

// Package gpu implements the escape-time kernel as a wgpu compute shader.
//
// The WGSL source in shaders/ is compiled to SPIR-V with naga when the
// pipeline is built. Each invocation evaluates one pixel in float32 and writes
// its iteration count to a storage buffer, which is copied to a mappable
// staging buffer and read back on Synchronize.
package gpu
