package mandelbrot

import (
	"errors"
	"testing"
)

func TestSoftwareAcceleratorMatchesIterate(t *testing.T) {
	sw := NewSoftwareAccelerator(3, 5)
	if err := sw.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sw.Close)

	res := Resolution{Width: 41, Height: 23}
	vp := Viewport{MinRe: -1.8, MaxRe: 0.6, MinIm: -1.1, MaxIm: 0.9}
	l := &Launch{Grid: res, Viewport: vp, MaxIterations: 120, Iterations: make([]uint32, res.Pixels())}

	if err := sw.Dispatch(l); err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if err := sw.Synchronize(); err != nil {
		t.Fatalf("Synchronize() = %v", err)
	}

	for y := range res.Height {
		for x := range res.Width {
			re, im := vp.ToPlane(Pixel{x, y}, res)
			want := uint32(Iterate(re, im, 120))
			if got := l.Iterations[y*res.Width+x]; got != want {
				t.Fatalf("count(%d, %d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestSoftwareAcceleratorBandHeights(t *testing.T) {
	res := Resolution{Width: 13, Height: 17}
	vp := DefaultViewport()

	ref := make([]uint32, res.Pixels())
	for y := range res.Height {
		for x := range res.Width {
			re, im := vp.ToPlane(Pixel{x, y}, res)
			ref[y*res.Width+x] = uint32(Iterate(re, im, 64))
		}
	}

	for _, band := range []int{0, 1, 4, 17, 100} {
		sw := NewSoftwareAccelerator(2, band)
		l := &Launch{Grid: res, Viewport: vp, MaxIterations: 64, Iterations: make([]uint32, res.Pixels())}
		if err := sw.Dispatch(l); err != nil {
			t.Fatalf("band %d: Dispatch() = %v", band, err)
		}
		if err := sw.Synchronize(); err != nil {
			t.Fatalf("band %d: Synchronize() = %v", band, err)
		}
		for i := range ref {
			if l.Iterations[i] != ref[i] {
				t.Fatalf("band %d: count[%d] = %d, want %d", band, i, l.Iterations[i], ref[i])
			}
		}
		sw.Close()
	}
}

func TestSoftwareAcceleratorOrdering(t *testing.T) {
	sw := NewSoftwareAccelerator(2, 0)
	t.Cleanup(sw.Close)

	if err := sw.Synchronize(); err != nil {
		t.Errorf("Synchronize() without a launch = %v, want nil", err)
	}

	res := Resolution{Width: 8, Height: 8}
	l := &Launch{Grid: res, Viewport: DefaultViewport(), MaxIterations: 10, Iterations: make([]uint32, res.Pixels())}
	if err := sw.Dispatch(l); err != nil {
		t.Fatal(err)
	}
	if err := sw.Dispatch(l); err == nil {
		t.Error("second Dispatch before Synchronize should fail")
	}
	if err := sw.Synchronize(); err != nil {
		t.Fatal(err)
	}
	if err := sw.Dispatch(l); err != nil {
		t.Errorf("Dispatch after Synchronize = %v", err)
	}
	if err := sw.Synchronize(); err != nil {
		t.Fatal(err)
	}
}

func TestSoftwareAcceleratorRejectsBadLaunch(t *testing.T) {
	sw := NewSoftwareAccelerator(1, 0)
	t.Cleanup(sw.Close)

	if err := sw.Dispatch(nil); err == nil {
		t.Error("Dispatch(nil) should fail")
	}

	l := &Launch{Grid: Resolution{Width: 4, Height: 4}, Viewport: DefaultViewport(), Iterations: make([]uint32, 15)}
	if err := sw.Dispatch(l); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Dispatch(short buffer) = %v, want ErrDimensionMismatch", err)
	}
	if !sw.CanAccelerate(l) {
		t.Error("software accelerator should accept every launch")
	}
	if sw.Name() != "software" {
		t.Errorf("Name() = %q", sw.Name())
	}
}
