package mandelbrot

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so disabled calls
// return before any attribute is formatted.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var (
	silent  = slog.New(nopHandler{})
	current atomic.Pointer[slog.Logger]
)

func init() { current.Store(silent) }

// SetLogger routes the package's log output, and that of the registered
// accelerator, to l. Nothing is logged until it is called; nil silences
// logging again. It may be called while frames are rendering.
//
// Levels:
//   - Debug: one record per frame (size, accelerator, duration)
//   - Info: accelerator lifecycle, such as the GPU adapter chosen
//   - Warn: CPU fallbacks and failures to release resources
//
// For example:
//
//	mandelbrot.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)

	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	if a != nil {
		propagateLogger(a, l)
	}
}

// Logger returns the logger set by SetLogger. The gpu and integration
// packages log through it.
func Logger() *slog.Logger {
	return current.Load()
}

// propagateLogger hands l to a if it takes a logger of its own.
func propagateLogger(a Accelerator, l *slog.Logger) {
	if ls, ok := a.(interface{ SetLogger(*slog.Logger) }); ok {
		ls.SetLogger(l)
	}
}
