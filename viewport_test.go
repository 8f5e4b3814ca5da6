package mandelbrot

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-12

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func sameWindow(a, b Viewport) bool {
	return near(a.MinRe, b.MinRe) && near(a.MaxRe, b.MaxRe) && near(a.MinIm, b.MinIm) && near(a.MaxIm, b.MaxIm)
}

func TestDefaultViewport(t *testing.T) {
	vp := DefaultViewport()
	if vp.MinRe != -2 || vp.MaxRe != 1 || vp.MinIm != -1.2 || vp.MaxIm != 1.2 {
		t.Errorf("DefaultViewport() = %v", vp)
	}
	if vp.Zoom() != 1 {
		t.Errorf("Zoom() = %g, want 1", vp.Zoom())
	}
	if err := vp.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestViewportValidate(t *testing.T) {
	tests := []struct {
		name string
		vp   Viewport
	}{
		{"inverted re", Viewport{MinRe: 1, MaxRe: -1, MinIm: -1, MaxIm: 1}},
		{"inverted im", Viewport{MinRe: -1, MaxRe: 1, MinIm: 1, MaxIm: -1}},
		{"empty re", Viewport{MinRe: 0.5, MaxRe: 0.5, MinIm: -1, MaxIm: 1}},
		{"NaN bound", Viewport{MinRe: math.NaN(), MaxRe: 1, MinIm: -1, MaxIm: 1}},
		{"infinite bound", Viewport{MinRe: -1, MaxRe: math.Inf(1), MinIm: -1, MaxIm: 1}},
		{"negative zoom", Viewport{MinRe: -1, MaxRe: 1, MinIm: -1, MaxIm: 1, ZoomFactor: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.vp.Validate(); !errors.Is(err, ErrInvalidViewport) {
				t.Errorf("Validate() = %v, want ErrInvalidViewport", err)
			}
		})
	}

	zero := Viewport{MinRe: -1, MaxRe: 1, MinIm: -1, MaxIm: 1}
	if err := zero.Validate(); err != nil {
		t.Errorf("zero zoom factor: Validate() = %v, want nil", err)
	}
	if zero.Zoom() != 1 {
		t.Errorf("zero zoom factor: Zoom() = %g, want 1", zero.Zoom())
	}
}

func TestToPlaneCorners(t *testing.T) {
	vp := DefaultViewport()
	res := Resolution{Width: 640, Height: 480}

	re, im := vp.ToPlane(Pixel{0, 0}, res)
	if re != vp.MinRe || im != vp.MinIm {
		t.Errorf("top-left = (%g, %g), want (%g, %g)", re, im, vp.MinRe, vp.MinIm)
	}
	re, im = vp.ToPlane(Pixel{res.Width - 1, res.Height - 1}, res)
	if re != vp.MaxRe || im != vp.MaxIm {
		t.Errorf("bottom-right = (%g, %g), want (%g, %g)", re, im, vp.MaxRe, vp.MaxIm)
	}
}

func TestToPlaneThreeByThree(t *testing.T) {
	vp := DefaultViewport()
	res := Resolution{Width: 3, Height: 3}

	re, im := vp.ToPlane(Pixel{1, 1}, res)
	if re != -0.5 || im != 0 {
		t.Errorf("center = (%g, %g), want (-0.5, 0)", re, im)
	}
	re, im = vp.ToPlane(Pixel{2, 2}, res)
	if re != 1 || im != 1.2 {
		t.Errorf("corner = (%g, %g), want (1, 1.2)", re, im)
	}
}

func TestToPlaneMonotonic(t *testing.T) {
	vp := Viewport{MinRe: -0.7453, MaxRe: -0.7449, MinIm: 0.1126, MaxIm: 0.1129}
	res := Resolution{Width: 97, Height: 61}

	prev := math.Inf(-1)
	for x := range res.Width {
		re, _ := vp.ToPlane(Pixel{x, 0}, res)
		if !(re > prev) {
			t.Fatalf("re not strictly increasing at x=%d: %g after %g", x, re, prev)
		}
		prev = re
	}

	prev = math.Inf(-1)
	for y := range res.Height {
		_, im := vp.ToPlane(Pixel{0, y}, res)
		if !(im > prev) {
			t.Fatalf("im not strictly increasing at y=%d: %g after %g", y, im, prev)
		}
		prev = im
	}

	// Affine: equal pixel steps give equal plane steps.
	a, _ := vp.ToPlane(Pixel{10, 0}, res)
	b, _ := vp.ToPlane(Pixel{20, 0}, res)
	c, _ := vp.ToPlane(Pixel{30, 0}, res)
	if !near(b-a, c-b) {
		t.Errorf("steps differ: %g vs %g", b-a, c-b)
	}
}

func TestToPlaneSinglePixelAxis(t *testing.T) {
	vp := DefaultViewport()
	re, im := vp.ToPlane(Pixel{0, 0}, Resolution{Width: 1, Height: 1})
	if re != vp.MinRe || im != vp.MinIm {
		t.Errorf("1x1 = (%g, %g), want (%g, %g)", re, im, vp.MinRe, vp.MinIm)
	}
}

func TestZoomTowardKeepsPointUnderCursor(t *testing.T) {
	res := Resolution{Width: 200, Height: 150}
	center := Pixel{X: 37, Y: 112}

	vp := DefaultViewport()
	beforeRe, beforeIm := vp.ToPlane(center, res)

	if err := vp.ZoomToward(center, res, 0.1); err != nil {
		t.Fatalf("ZoomToward() = %v", err)
	}

	afterRe, afterIm := vp.ToPlane(center, res)
	if !near(beforeRe, afterRe) || !near(beforeIm, afterIm) {
		t.Errorf("point under cursor moved: (%g, %g) -> (%g, %g)", beforeRe, beforeIm, afterRe, afterIm)
	}

	w, h := vp.Extent()
	if !near(w, 3/1.1) || !near(h, 2.4/1.1) {
		t.Errorf("extent = (%g, %g), want (%g, %g)", w, h, 3/1.1, 2.4/1.1)
	}
	if !near(vp.ZoomFactor, 1.1) {
		t.Errorf("ZoomFactor = %g, want 1.1", vp.ZoomFactor)
	}
}

func TestZoomTowardRoundTrip(t *testing.T) {
	res := Resolution{Width: 320, Height: 240}
	for _, d := range []float64{0.1, 0.5, 2, -0.1, -0.5} {
		for _, center := range []Pixel{{0, 0}, {160, 120}, {319, 239}, {13, 200}} {
			orig := DefaultViewport()
			vp := orig
			if err := vp.ZoomToward(center, res, d); err != nil {
				t.Fatalf("ZoomToward(%v, %g) = %v", center, d, err)
			}
			if err := vp.ZoomToward(center, res, -d/(1+d)); err != nil {
				t.Fatalf("inverse ZoomToward(%v, %g) = %v", center, -d/(1+d), err)
			}
			if !sameWindow(vp, orig) {
				t.Errorf("d=%g center=%v: round trip %v, want %v", d, center, vp, orig)
			}
			if !near(vp.ZoomFactor, 1) {
				t.Errorf("d=%g center=%v: ZoomFactor = %g, want 1", d, center, vp.ZoomFactor)
			}
		}
	}
}

func TestZoomTowardRejectsBadDelta(t *testing.T) {
	res := Resolution{Width: 100, Height: 100}
	for _, d := range []float64{-1, -1.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		vp := DefaultViewport()
		err := vp.ZoomToward(Pixel{50, 50}, res, d)
		if !errors.Is(err, ErrInvalidViewport) {
			t.Errorf("ZoomToward(delta=%g) = %v, want ErrInvalidViewport", d, err)
		}
		if vp != DefaultViewport() {
			t.Errorf("ZoomToward(delta=%g) modified viewport to %v", d, vp)
		}
	}

	vp := DefaultViewport()
	if err := vp.ZoomToward(Pixel{}, Resolution{}, 0.1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("ZoomToward(empty resolution) = %v, want ErrDimensionMismatch", err)
	}
}

func TestZoomTowardPrecisionLimit(t *testing.T) {
	res := Resolution{Width: 64, Height: 64}
	vp := DefaultViewport()

	// Zooming in forever must end in an error, never an inverted window.
	var err error
	for range 2000 {
		if err = vp.ZoomToward(Pixel{20, 40}, res, 1); err != nil {
			break
		}
		if !(vp.MinRe < vp.MaxRe) || !(vp.MinIm < vp.MaxIm) {
			t.Fatalf("window collapsed without error: %v", vp)
		}
	}
	if err == nil {
		t.Fatal("expected ErrInvalidViewport after exhausting float64 precision")
	}
	if !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("err = %v, want ErrInvalidViewport", err)
	}
	if verr := vp.Validate(); verr != nil {
		t.Errorf("viewport left invalid after failed zoom: %v", verr)
	}
}

func TestPan(t *testing.T) {
	res := Resolution{Width: 300, Height: 240}
	vp := DefaultViewport()
	w0, h0 := vp.Extent()

	if err := vp.Pan(30, -24, res); err != nil {
		t.Fatalf("Pan() = %v", err)
	}

	// Dragging right by a tenth of the width shows what was a tenth to the left.
	if !near(vp.MinRe, -2.3) || !near(vp.MaxRe, 0.7) {
		t.Errorf("re window = [%g, %g], want [-2.3, 0.7]", vp.MinRe, vp.MaxRe)
	}
	if !near(vp.MinIm, -0.96) || !near(vp.MaxIm, 1.44) {
		t.Errorf("im window = [%g, %g], want [-0.96, 1.44]", vp.MinIm, vp.MaxIm)
	}

	w1, h1 := vp.Extent()
	if !near(w0, w1) || !near(h0, h1) {
		t.Errorf("extent changed: (%g, %g) -> (%g, %g)", w0, h0, w1, h1)
	}
	if vp.ZoomFactor != 1 {
		t.Errorf("Pan changed ZoomFactor to %g", vp.ZoomFactor)
	}

	if err := vp.Pan(-30, 24, res); err != nil {
		t.Fatal(err)
	}
	if !sameWindow(vp, DefaultViewport()) {
		t.Errorf("pan there and back = %v, want default", vp)
	}
}

func TestPanErrors(t *testing.T) {
	vp := DefaultViewport()
	if err := vp.Pan(1, 1, Resolution{Width: 0, Height: 10}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Pan(empty resolution) = %v, want ErrDimensionMismatch", err)
	}
	if err := vp.Pan(math.Inf(1), 0, Resolution{Width: 10, Height: 10}); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("Pan(+Inf) = %v, want ErrInvalidViewport", err)
	}
	if vp != DefaultViewport() {
		t.Errorf("failed Pan modified viewport to %v", vp)
	}
}
