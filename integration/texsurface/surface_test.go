// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texsurface

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/mandelbrot"
)

// mockProvider implements gpucontext.DeviceProvider for testing.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device             { return struct{}{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return struct{}{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return struct{}{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "mock", Type: gpucontext.AdapterTypeDiscrete}
}

// mockTexture implements gpucontext.Texture and TextureUpdater.
type mockTexture struct {
	width     int
	height    int
	data      []byte
	destroyed bool
	updated   int
}

func (m *mockTexture) Width() int  { return m.width }
func (m *mockTexture) Height() int { return m.height }

func (m *mockTexture) UpdateData(data []byte) error {
	m.data = append(m.data[:0], data...)
	m.updated++
	return nil
}

func (m *mockTexture) Destroy() {
	m.destroyed = true
}

// staticTexture cannot be updated in place.
type staticTexture struct {
	width, height int
}

func (m *staticTexture) Width() int  { return m.width }
func (m *staticTexture) Height() int { return m.height }

// mockCreator implements gpucontext.TextureCreator.
type mockCreator struct {
	textures []*mockTexture
	static   bool
	failNext bool
}

func (m *mockCreator) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if m.failNext {
		m.failNext = false
		return nil, errors.New("mock texture creation failed")
	}
	tex := &mockTexture{width: width, height: height, data: append([]byte(nil), data...)}
	m.textures = append(m.textures, tex)
	if m.static {
		return &staticTexture{width: width, height: height}, nil
	}
	return tex, nil
}

// mockDrawer implements gpucontext.TextureDrawer.
type mockDrawer struct {
	creator   *mockCreator
	drawn     gpucontext.Texture
	x, y      float32
	drawCount int
	drawErr   error
}

func (m *mockDrawer) DrawTexture(tex gpucontext.Texture, x, y float32) error {
	if m.drawErr != nil {
		return m.drawErr
	}
	m.drawn = tex
	m.x, m.y = x, y
	m.drawCount++
	return nil
}

func (m *mockDrawer) TextureCreator() gpucontext.TextureCreator {
	if m.creator == nil {
		return nil
	}
	return m.creator
}

func frame(w, h int, v byte) []byte {
	pix := make([]byte, w*h*mandelbrot.BytesPerPixel)
	for i := range pix {
		pix[i] = v
	}
	return pix
}

func newTestSurface(t *testing.T) *Surface {
	t.Helper()
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSharesDeviceWithAccelerator(t *testing.T) {
	s, err := New(&mockProvider{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()
	if s.Provider() == nil {
		t.Error("Provider() = nil")
	}
}

func TestPresentValidates(t *testing.T) {
	s := newTestSurface(t)

	tests := []struct {
		name string
		w, h int
		pix  []byte
	}{
		{"zero width", 0, 4, nil},
		{"negative height", 4, -1, nil},
		{"short buffer", 4, 4, make([]byte, 63)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Present(tt.w, tt.h, tt.pix); !errors.Is(err, mandelbrot.ErrDimensionMismatch) {
				t.Errorf("Present() error = %v, want ErrDimensionMismatch", err)
			}
		})
	}
	if s.Frames() != 0 {
		t.Errorf("Frames() = %d after rejected presents, want 0", s.Frames())
	}
}

func TestPresentCopies(t *testing.T) {
	s := newTestSurface(t)

	pix := frame(2, 2, 7)
	if err := s.Present(2, 2, pix); err != nil {
		t.Fatal(err)
	}
	pix[0] = 99

	creator := &mockCreator{}
	dc := &mockDrawer{creator: creator}
	if err := s.RenderTo(dc); err != nil {
		t.Fatal(err)
	}
	if got := creator.textures[0].data[0]; got != 7 {
		t.Errorf("texture byte = %d, want 7 (surface must copy the frame)", got)
	}
}

func TestRenderToBeforePresent(t *testing.T) {
	s := newTestSurface(t)
	if err := s.RenderTo(&mockDrawer{creator: &mockCreator{}}); !errors.Is(err, ErrNoFrame) {
		t.Errorf("RenderTo() error = %v, want ErrNoFrame", err)
	}
}

func TestRenderToInvalidDrawContext(t *testing.T) {
	s := newTestSurface(t)
	if err := s.Present(1, 1, frame(1, 1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.RenderTo(nil); !errors.Is(err, ErrInvalidDrawContext) {
		t.Errorf("RenderTo(nil) error = %v, want ErrInvalidDrawContext", err)
	}
	if err := s.RenderTo(&mockDrawer{}); !errors.Is(err, ErrInvalidDrawContext) {
		t.Errorf("RenderTo(no creator) error = %v, want ErrInvalidDrawContext", err)
	}
}

func TestRenderToUploadsOncePerFrame(t *testing.T) {
	s := newTestSurface(t)
	creator := &mockCreator{}
	dc := &mockDrawer{creator: creator}

	if err := s.Present(4, 3, frame(4, 3, 1)); err != nil {
		t.Fatal(err)
	}
	if !s.IsDirty() {
		t.Error("surface should be dirty after Present")
	}
	if err := s.RenderTo(dc); err != nil {
		t.Fatal(err)
	}
	if err := s.RenderTo(dc); err != nil {
		t.Fatal(err)
	}
	if len(creator.textures) != 1 {
		t.Fatalf("created %d textures, want 1", len(creator.textures))
	}
	tex := creator.textures[0]
	if tex.width != 4 || tex.height != 3 {
		t.Errorf("texture size = %dx%d, want 4x3", tex.width, tex.height)
	}
	if tex.updated != 0 {
		t.Errorf("texture updated %d times without a new frame", tex.updated)
	}
	if dc.drawCount != 2 {
		t.Errorf("DrawTexture called %d times, want 2", dc.drawCount)
	}
	if s.IsDirty() {
		t.Error("surface should be clean after upload")
	}

	// Same size: updated in place.
	if err := s.Present(4, 3, frame(4, 3, 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.RenderTo(dc); err != nil {
		t.Fatal(err)
	}
	if len(creator.textures) != 1 || tex.updated != 1 {
		t.Errorf("textures = %d, updates = %d; want 1 and 1", len(creator.textures), tex.updated)
	}
	if tex.data[0] != 2 {
		t.Errorf("texture byte = %d, want 2", tex.data[0])
	}
}

func TestRenderToRecreatesOnResize(t *testing.T) {
	s := newTestSurface(t)
	creator := &mockCreator{}
	dc := &mockDrawer{creator: creator}

	if err := s.Present(4, 4, frame(4, 4, 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.RenderTo(dc); err != nil {
		t.Fatal(err)
	}
	first := creator.textures[0]

	if err := s.Present(8, 2, frame(8, 2, 1)); err != nil {
		t.Fatal(err)
	}
	if first.destroyed {
		t.Error("old texture destroyed before the next upload")
	}
	if err := s.RenderTo(dc); err != nil {
		t.Fatal(err)
	}
	if len(creator.textures) != 2 {
		t.Fatalf("created %d textures, want 2", len(creator.textures))
	}
	if !first.destroyed {
		t.Error("old texture not destroyed after the upload")
	}
	if w, h := s.Size(); w != 8 || h != 2 {
		t.Errorf("Size() = %dx%d, want 8x2", w, h)
	}
}

func TestRenderToRecreatesStaticTextures(t *testing.T) {
	s := newTestSurface(t)
	creator := &mockCreator{static: true}
	dc := &mockDrawer{creator: creator}

	for i := range 3 {
		if err := s.Present(2, 2, frame(2, 2, byte(i))); err != nil {
			t.Fatal(err)
		}
		if err := s.RenderTo(dc); err != nil {
			t.Fatal(err)
		}
	}
	if len(creator.textures) != 3 {
		t.Errorf("created %d textures, want 3", len(creator.textures))
	}
}

func TestRenderAtPosition(t *testing.T) {
	s := newTestSurface(t)
	dc := &mockDrawer{creator: &mockCreator{}}
	if err := s.Present(1, 1, frame(1, 1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.RenderAt(dc, 10, 20); err != nil {
		t.Fatal(err)
	}
	if dc.x != 10 || dc.y != 20 {
		t.Errorf("drawn at (%v, %v), want (10, 20)", dc.x, dc.y)
	}
}

func TestRenderToErrors(t *testing.T) {
	s := newTestSurface(t)
	if err := s.Present(1, 1, frame(1, 1, 0)); err != nil {
		t.Fatal(err)
	}

	creator := &mockCreator{failNext: true}
	if err := s.RenderTo(&mockDrawer{creator: creator}); err == nil {
		t.Error("expected texture creation error")
	}
	drawErr := errors.New("lost surface")
	if err := s.RenderTo(&mockDrawer{creator: creator, drawErr: drawErr}); !errors.Is(err, drawErr) {
		t.Errorf("RenderTo() error = %v, want %v", err, drawErr)
	}
}

func TestSurfaceClose(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	creator := &mockCreator{}
	if err := s.Present(2, 2, frame(2, 2, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.RenderTo(&mockDrawer{creator: creator}); err != nil {
		t.Fatal(err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !creator.textures[0].destroyed {
		t.Error("Close did not destroy the texture")
	}
	if err := s.Present(2, 2, frame(2, 2, 0)); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Present() after Close error = %v, want ErrSurfaceClosed", err)
	}
	if err := s.RenderTo(&mockDrawer{creator: creator}); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("RenderTo() after Close error = %v, want ErrSurfaceClosed", err)
	}
	if s.Provider() != nil {
		t.Error("Provider() after Close should be nil")
	}
}

func TestControllerPresentsToSurface(t *testing.T) {
	s := newTestSurface(t)
	e := mandelbrot.NewEngine(mandelbrot.WithSoftwareOnly(), mandelbrot.WithMaxIterations(50), mandelbrot.WithWorkers(2))
	t.Cleanup(e.Close)

	c := mandelbrot.NewController(e, s, mandelbrot.Resolution{Width: 16, Height: 12})
	if err := c.Render(); err != nil {
		t.Fatal(err)
	}
	if w, h := s.Size(); w != 16 || h != 12 {
		t.Errorf("Size() = %dx%d, want 16x12", w, h)
	}

	creator := &mockCreator{}
	if err := s.RenderTo(&mockDrawer{creator: creator}); err != nil {
		t.Fatal(err)
	}
	fb := e.Frame()
	if got, want := creator.textures[0].data, fb.Bytes(); string(got) != string(want) {
		t.Error("texture contents differ from the rendered frame")
	}
}
