// Command mandelview serves an interactive Mandelbrot viewer over HTTP, or
// writes a single frame as PNG to standard output for inspection.
//
// Usage:
//
//	mandelview -addr :8080
//	mandelview -png -re -0.7436 -im 0.1318 -zoom 5000 -max-iter 4000 | display
//
// Drag to pan, scroll to zoom toward the pointer, press r to reset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/text/language"

	"github.com/gogpu/mandelbrot"
	"github.com/gogpu/mandelbrot/gpu"
	"github.com/gogpu/mandelbrot/integration/wsview"
	"github.com/gogpu/mandelbrot/internal/caption"
)

type config struct {
	addr     string
	width    int
	height   int
	maxIter  int
	workers  int
	useGPU   bool
	debug    bool
	caption  bool
	locale   string
	png      bool
	centerRe float64
	centerIm float64
	zoom     float64
}

func main() {
	var cfg config
	flag.StringVar(&cfg.addr, "addr", "localhost:8080", "listen address")
	flag.IntVar(&cfg.width, "width", wsview.DefaultWidth, "frame width")
	flag.IntVar(&cfg.height, "height", wsview.DefaultHeight, "frame height")
	flag.IntVar(&cfg.maxIter, "max-iter", mandelbrot.DefaultMaxIterations, "iteration cap")
	flag.IntVar(&cfg.workers, "workers", 0, "software render workers (0 = GOMAXPROCS)")
	flag.BoolVar(&cfg.useGPU, "gpu", true, "use the GPU accelerator when available")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&cfg.caption, "caption", true, "draw a status caption on frames")
	flag.StringVar(&cfg.locale, "locale", "en", "number formatting locale of the caption")
	flag.BoolVar(&cfg.png, "png", false, "write one frame as PNG to stdout and exit")
	flag.Float64Var(&cfg.centerRe, "re", -0.5, "real part of the view centre (with -png)")
	flag.Float64Var(&cfg.centerIm, "im", 0, "imaginary part of the view centre (with -png)")
	flag.Float64Var(&cfg.zoom, "zoom", 1, "magnification relative to the default view (with -png)")
	flag.Parse()

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	mandelbrot.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "mandelview:", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	defer mandelbrot.CloseAccelerator()

	engineOpts := []mandelbrot.EngineOption{
		mandelbrot.WithMaxIterations(cfg.maxIter),
		mandelbrot.WithWorkers(cfg.workers),
	}
	if !cfg.useGPU {
		engineOpts = append(engineOpts, mandelbrot.WithSoftwareOnly())
	} else if gpu.Ready() {
		mandelbrot.Logger().Info("GPU accelerator ready", "adapter", gpu.AdapterName())
	}

	var capt *caption.Caption
	if cfg.caption {
		tag, err := language.Parse(cfg.locale)
		if err != nil {
			return fmt.Errorf("locale %q: %w", cfg.locale, err)
		}
		capt, err = caption.New(0, tag)
		if err != nil {
			return err
		}
		defer capt.Close()
	}

	res := mandelbrot.Resolution{Width: cfg.width, Height: cfg.height}
	if !res.Valid() {
		return fmt.Errorf("%w: %v", mandelbrot.ErrDimensionMismatch, res)
	}

	if cfg.png {
		return writePNG(os.Stdout, cfg, res, engineOpts, capt)
	}
	return serve(cfg, res, engineOpts, capt)
}

// viewAround returns the default window scaled by 1/zoom around a centre.
func viewAround(re, im, zoom float64) (mandelbrot.Viewport, error) {
	if zoom <= 0 {
		return mandelbrot.Viewport{}, fmt.Errorf("%w: zoom %g", mandelbrot.ErrInvalidViewport, zoom)
	}
	w, h := mandelbrot.DefaultViewport().Extent()
	w, h = w/zoom/2, h/zoom/2
	vp := mandelbrot.Viewport{
		MinRe: re - w, MaxRe: re + w,
		MinIm: im - h, MaxIm: im + h,
		ZoomFactor: zoom,
	}
	return vp, vp.Validate()
}

// writePNG renders the view selected by -re, -im and -zoom and encodes it
// to w.
func writePNG(w io.Writer, cfg config, res mandelbrot.Resolution, opts []mandelbrot.EngineOption, capt *caption.Caption) error {
	vp, err := viewAround(cfg.centerRe, cfg.centerIm, cfg.zoom)
	if err != nil {
		return err
	}
	e := mandelbrot.NewEngine(opts...)
	defer e.Close()

	start := time.Now()
	fb, err := e.RenderFrame(vp, res)
	if err != nil {
		return err
	}
	img := fb.ToImage()
	if capt != nil {
		capt.Draw(img, capt.Status(vp, e.MaxIterations()))
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	mandelbrot.Logger().Info("frame written", "size", res.String(),
		"accelerator", e.LastAccelerator(), "elapsed", time.Since(start))
	return nil
}

func serve(cfg config, res mandelbrot.Resolution, opts []mandelbrot.EngineOption, capt *caption.Caption) error {
	serverOpts := []wsview.Option{
		wsview.WithEngineOptions(opts...),
		wsview.WithResolution(res),
	}
	if capt != nil {
		serverOpts = append(serverOpts, wsview.WithCaption(capt))
	}
	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           wsview.NewServer(serverOpts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		mandelbrot.Logger().Info("listening", "url", "http://"+cfg.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
