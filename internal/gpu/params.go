//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/mandelbrot"
)

// paramsSize is the size of the Params uniform in escape_time.wgsl.
const paramsSize = 32

// workgroupSize is the edge of the square workgroup in escape_time.wgsl.
const workgroupSize = 8

// f32Mantissa is the number of significant bits a float32 carries.
const f32Mantissa = 24

// f32Margin is how many bits of a float32 coordinate must remain to tell
// neighbouring pixels apart before a launch is left to the CPU.
const f32Margin = 4

// encodeParams packs the launch into the Params uniform layout.
func encodeParams(l *mandelbrot.Launch) []byte {
	buf := make([]byte, paramsSize)
	vp := l.Viewport
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(vp.MinRe)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(vp.MaxRe)))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(vp.MinIm)))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(float32(vp.MaxIm)))
	binary.LittleEndian.PutUint32(buf[16:], uint32(l.Grid.Width))  //nolint:gosec // validated positive
	binary.LittleEndian.PutUint32(buf[20:], uint32(l.Grid.Height)) //nolint:gosec // validated positive
	binary.LittleEndian.PutUint32(buf[24:], uint32(max(l.MaxIterations, 0)))
	return buf
}

// workgroups returns the dispatch size covering n invocations.
func workgroups(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize) //nolint:gosec // n is a validated dimension
}

// f32Resolves reports whether float32 coordinates can still separate
// adjacent pixels of the launch on both axes.
func f32Resolves(l *mandelbrot.Launch) bool {
	vp := l.Viewport
	return axisResolves(vp.MinRe, vp.MaxRe, l.Grid.Width) &&
		axisResolves(vp.MinIm, vp.MaxIm, l.Grid.Height)
}

func axisResolves(lo, hi float64, n int) bool {
	if n <= 1 {
		return true
	}
	if float32(lo) == float32(hi) {
		return false
	}
	step := (hi - lo) / float64(n-1)
	mag := max(math.Abs(lo), math.Abs(hi))
	if mag > math.MaxFloat32 {
		return false
	}
	if mag == 0 {
		return true
	}
	return step > math.Ldexp(mag, -(f32Mantissa-f32Margin))
}
