// Package wsview serves an interactive Mandelbrot viewer to web browsers.
//
// The page at "/" opens a WebSocket to "/ws". Every connection is a session
// with its own Engine and Controller: the browser sends pointer, wheel and
// resize events as JSON text messages and receives each rendered frame as a
// binary message (see EncodeFrame) followed by a ViewMessage.
package wsview

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gogpu/mandelbrot"
	"github.com/gogpu/mandelbrot/internal/caption"
)

//go:embed static
var staticFiles embed.FS

// Defaults for Server options.
const (
	DefaultWidth        = 800
	DefaultHeight       = 600
	DefaultMaxWidth     = 3840
	DefaultMaxHeight    = 2160
	DefaultWriteTimeout = 10 * time.Second
)

// readLimit bounds client messages, which are small JSON objects.
const readLimit = 4096

// Server hands out viewer sessions. Its zero value is not usable; create it
// with NewServer.
type Server struct {
	engineOpts     []mandelbrot.EngineOption
	controllerOpts []mandelbrot.ControllerOption
	resolution     mandelbrot.Resolution
	maxResolution  mandelbrot.Resolution
	caption        *caption.Caption
	originPatterns []string
	writeTimeout   time.Duration

	sessions atomic.Int64
	total    atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithEngineOptions sets the options of every session's engine.
func WithEngineOptions(opts ...mandelbrot.EngineOption) Option {
	return func(s *Server) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithControllerOptions sets the options of every session's controller.
func WithControllerOptions(opts ...mandelbrot.ControllerOption) Option {
	return func(s *Server) {
		s.controllerOpts = append(s.controllerOpts, opts...)
	}
}

// WithResolution sets the size of the first frame, before the browser
// reports its canvas size.
func WithResolution(res mandelbrot.Resolution) Option {
	return func(s *Server) {
		if res.Valid() {
			s.resolution = res
		}
	}
}

// WithMaxResolution bounds the resolution a browser may request.
func WithMaxResolution(res mandelbrot.Resolution) Option {
	return func(s *Server) {
		if res.Valid() {
			s.maxResolution = res
		}
	}
}

// WithCaption draws a status caption on every frame.
func WithCaption(c *caption.Caption) Option {
	return func(s *Server) {
		s.caption = c
	}
}

// WithOriginPatterns allows cross-origin connections from the given host
// patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = append(s.originPatterns, patterns...)
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewServer creates a server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		resolution:    mandelbrot.Resolution{Width: DefaultWidth, Height: DefaultHeight},
		maxResolution: mandelbrot.Resolution{Width: DefaultMaxWidth, Height: DefaultMaxHeight},
		writeTimeout:  DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving the page and the WebSocket.
func (s *Server) Handler() http.Handler {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err) // embedded at build time
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	return int(s.sessions.Load())
}

// ServeWS upgrades the request and runs a session until the browser
// disconnects or the request context ends.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		mandelbrot.Logger().Warn("wsview: accept", "err", err)
		return
	}
	c.SetReadLimit(readLimit)

	id := s.total.Add(1)
	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	log := mandelbrot.Logger().With("session", id, "remote", r.RemoteAddr)
	log.Info("wsview: session started")

	err = s.run(r.Context(), c)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Info("wsview: session ended")
		_ = c.CloseNow()
	default:
		if errors.Is(err, context.Canceled) {
			log.Info("wsview: session ended")
			_ = c.CloseNow()
			return
		}
		log.Warn("wsview: session failed", "err", err)
		_ = c.Close(websocket.StatusInternalError, "session failed")
	}
}

// run drives one session: it renders the first frame and then applies
// client messages in order.
func (s *Server) run(ctx context.Context, c *websocket.Conn) error {
	engine := mandelbrot.NewEngine(s.engineOpts...)
	defer engine.Close()

	sess := &session{server: s, conn: c, ctx: ctx, engine: engine}
	sess.ctrl = mandelbrot.NewController(engine, sess, s.resolution, s.controllerOpts...)

	if err := sess.render(); err != nil {
		return err
	}
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			return err
		}
		if err := sess.handle(msg); err != nil {
			return err
		}
	}
}

// session is the display surface of one connection.
type session struct {
	server *Server
	conn   *websocket.Conn
	ctx    context.Context
	engine *mandelbrot.Engine
	ctrl   *mandelbrot.Controller
	buf    []byte
}

// render renders the current view, reporting failures to the client.
func (ss *session) render() error {
	return ss.report(ss.ctrl.Render())
}

// handle applies one client message.
func (ss *session) handle(msg ClientMessage) error {
	ev, err := msg.Event()
	if err != nil {
		return ss.report(err)
	}
	if rs, ok := ev.(mandelbrot.Resize); ok {
		limit := ss.server.maxResolution
		if rs.Resolution.Width > limit.Width || rs.Resolution.Height > limit.Height {
			return ss.report(fmt.Errorf("%w: %v exceeds the %v limit", mandelbrot.ErrDimensionMismatch, rs.Resolution, limit))
		}
	}
	return ss.report(ss.ctrl.Handle(ev))
}

// report sends a non-fatal error to the client. Connection failures are
// returned and end the session.
func (ss *session) report(err error) error {
	if err == nil {
		return nil
	}
	var ce connError
	if errors.As(err, &ce) {
		return ce.err
	}
	mandelbrot.Logger().Debug("wsview: event failed", "err", err)
	return ss.writeJSON(ErrorMessage{Type: MsgError, Error: err.Error()})
}

// connError marks a failed write to the connection.
type connError struct {
	err error
}

func (e connError) Error() string { return e.err.Error() }
func (e connError) Unwrap() error { return e.err }

// Present implements mandelbrot.Surface by sending the frame and its view.
func (ss *session) Present(width, height int, pix []byte) error {
	ss.buf = EncodeFrame(ss.buf, width, height, pix)
	if c := ss.server.caption; c != nil {
		img := &image.RGBA{
			Pix:    ss.buf[HeaderSize:],
			Stride: width * mandelbrot.BytesPerPixel,
			Rect:   image.Rect(0, 0, width, height),
		}
		c.Draw(img, c.Status(ss.ctrl.Viewport(), ss.engine.MaxIterations()))
	}

	ctx, cancel := context.WithTimeout(ss.ctx, ss.server.writeTimeout)
	defer cancel()
	if err := ss.conn.Write(ctx, websocket.MessageBinary, ss.buf); err != nil {
		return connError{err: err}
	}

	vp := ss.ctrl.Viewport()
	return ss.writeJSON(ViewMessage{
		Type:          MsgView,
		MinRe:         vp.MinRe,
		MaxRe:         vp.MaxRe,
		MinIm:         vp.MinIm,
		MaxIm:         vp.MaxIm,
		Zoom:          vp.Zoom(),
		Width:         width,
		Height:        height,
		MaxIterations: ss.engine.MaxIterations(),
		Accelerator:   ss.engine.LastAccelerator(),
	})
}

func (ss *session) writeJSON(v any) error {
	ctx, cancel := context.WithTimeout(ss.ctx, ss.server.writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, ss.conn, v); err != nil {
		return connError{err: err}
	}
	return nil
}
