// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package texsurface presents Mandelbrot frames in a gogpu window.
//
// A Surface implements mandelbrot.Surface. Present copies the frame into the
// surface; RenderTo, called from the window's draw callback, uploads the
// latest frame to a GPU texture and draws it:
//
//	s, _ := texsurface.New(app.GPUContextProvider())
//	defer s.Close()
//
//	engine := mandelbrot.NewEngine()
//	ctrl := mandelbrot.NewController(engine, s, mandelbrot.Resolution{Width: 800, Height: 600})
//	_ = ctrl.Render()
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    _ = s.RenderTo(dc.AsTextureDrawer())
//	})
//
// New hands the provider to the registered accelerator so the compute
// shader runs on the window's device.
//
// # Thread Safety
//
// Present and RenderTo may be called from different goroutines.
//
// # Integration Without Circular Imports
//
// The package only depends on gpucontext interfaces; textures are created
// through the TextureCreator of the draw context and destroyed through an
// optional Destroy method.
package texsurface
