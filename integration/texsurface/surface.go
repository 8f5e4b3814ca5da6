// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texsurface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/mandelbrot"
)

// Common errors returned by Surface operations.
var (
	// ErrSurfaceClosed is returned when operations are attempted on a closed surface.
	ErrSurfaceClosed = errors.New("texsurface: surface is closed")

	// ErrNoFrame is returned by RenderTo before the first Present.
	ErrNoFrame = errors.New("texsurface: no frame presented")

	// ErrInvalidDrawContext is returned when the draw context has no texture creator.
	ErrInvalidDrawContext = errors.New("texsurface: draw context has no TextureCreator")
)

// textureDestroyer matches the Destroy method of gogpu textures.
type textureDestroyer interface {
	Destroy()
}

// Surface holds the latest frame and mirrors it into a GPU texture.
type Surface struct {
	mu sync.Mutex

	provider gpucontext.DeviceProvider
	pix      []byte
	width    int
	height   int
	dirty    bool
	frames   int

	texture    gpucontext.Texture
	oldTexture gpucontext.Texture // replaced after a resize, destroyed on the next upload
	closed     bool
}

var _ mandelbrot.Surface = (*Surface)(nil)

// New creates a surface for a gogpu window. A nil provider is allowed for
// off-screen use; otherwise its device is shared with the registered
// accelerator. Failing to share is not an error: the accelerator keeps its
// own device.
func New(provider gpucontext.DeviceProvider) (*Surface, error) {
	if provider != nil {
		if err := mandelbrot.SetAcceleratorDeviceProvider(provider); err != nil {
			mandelbrot.Logger().Warn("texsurface: accelerator cannot share the window device", "err", err)
		}
	}
	return &Surface{provider: provider}, nil
}

// Present copies the frame. pix must hold width*height RGBA pixels.
func (s *Surface) Present(width, height int, pix []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: present %dx%d", mandelbrot.ErrDimensionMismatch, width, height)
	}
	n := width * height * mandelbrot.BytesPerPixel
	if len(pix) < n {
		return fmt.Errorf("%w: present %dx%d with %d bytes", mandelbrot.ErrDimensionMismatch, width, height, len(pix))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if cap(s.pix) < n {
		s.pix = make([]byte, n)
	}
	s.pix = s.pix[:n]
	copy(s.pix, pix)
	if (width != s.width || height != s.height) && s.texture != nil {
		s.retireTexture()
	}
	s.width, s.height = width, height
	s.dirty = true
	s.frames++
	return nil
}

// Size returns the dimensions of the latest frame.
func (s *Surface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Frames returns the number of frames presented so far.
func (s *Surface) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// IsDirty reports whether a presented frame has not been uploaded yet.
func (s *Surface) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Texture returns the current texture, or nil before the first RenderTo.
func (s *Surface) Texture() gpucontext.Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.texture
}

// RenderTo uploads the latest frame if needed and draws it at (0, 0).
func (s *Surface) RenderTo(dc gpucontext.TextureDrawer) error {
	return s.RenderAt(dc, 0, 0)
}

// RenderAt uploads the latest frame if needed and draws it at (x, y).
func (s *Surface) RenderAt(dc gpucontext.TextureDrawer, x, y float32) error {
	if dc == nil {
		return ErrInvalidDrawContext
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if s.pix == nil {
		return ErrNoFrame
	}
	if err := s.upload(dc); err != nil {
		return err
	}
	if err := dc.DrawTexture(s.texture, x, y); err != nil {
		return fmt.Errorf("texsurface: draw texture: %w", err)
	}
	return nil
}

// upload creates or refreshes the texture from the latest frame.
func (s *Surface) upload(dc gpucontext.TextureDrawer) error {
	if s.texture != nil && !s.dirty {
		return nil
	}

	// The previous draw has been submitted by now, so a texture retired on
	// resize is no longer in flight.
	if s.oldTexture != nil {
		destroy(s.oldTexture)
		s.oldTexture = nil
	}

	if s.texture != nil {
		if updater, ok := s.texture.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(s.pix); err != nil {
				return fmt.Errorf("texsurface: texture update failed: %w", err)
			}
			s.dirty = false
			return nil
		}
		// Without in-place updates the texture is recreated.
		s.retireTexture()
	}

	creator := dc.TextureCreator()
	if creator == nil {
		return ErrInvalidDrawContext
	}
	tex, err := creator.NewTextureFromRGBA(s.width, s.height, s.pix)
	if err != nil {
		return fmt.Errorf("texsurface: texture creation failed: %w", err)
	}
	s.texture = tex
	s.dirty = false
	return nil
}

func (s *Surface) retireTexture() {
	if s.oldTexture != nil {
		destroy(s.oldTexture)
	}
	s.oldTexture = s.texture
	s.texture = nil
}

func destroy(tex gpucontext.Texture) {
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

// Provider returns the device provider, or nil once closed.
func (s *Surface) Provider() gpucontext.DeviceProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.provider
}

// Close destroys the textures. Close is idempotent.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.oldTexture != nil {
		destroy(s.oldTexture)
		s.oldTexture = nil
	}
	if s.texture != nil {
		destroy(s.texture)
		s.texture = nil
	}
	s.pix = nil
	s.provider = nil
	return nil
}
