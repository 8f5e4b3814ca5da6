package wsview

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/mandelbrot"
)

// HeaderSize is the length of the binary frame header: width and height as
// little-endian uint32, followed by width*height RGBA pixels.
const HeaderSize = 8

// Client message types.
const (
	MsgDown   = "down"
	MsgMove   = "move"
	MsgUp     = "up"
	MsgWheel  = "wheel"
	MsgResize = "resize"
	MsgReset  = "reset"
)

// Server message types.
const (
	MsgView  = "view"
	MsgError = "error"
)

// ClientMessage is an input event sent by the browser as JSON.
//
// Button uses the DOM numbering (0 left, 1 middle, 2 right) and DeltaY the
// DOM wheel convention, where positive values scroll down and zoom out.
type ClientMessage struct {
	Type   string  `json:"type"`
	Button int     `json:"button,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// ViewMessage describes the frame that was just sent.
type ViewMessage struct {
	Type          string  `json:"type"`
	MinRe         float64 `json:"minRe"`
	MaxRe         float64 `json:"maxRe"`
	MinIm         float64 `json:"minIm"`
	MaxIm         float64 `json:"maxIm"`
	Zoom          float64 `json:"zoom"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	MaxIterations int     `json:"maxIterations"`
	Accelerator   string  `json:"accelerator,omitempty"`
}

// ErrorMessage reports a failed event. The session stays open.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Event converts m into a controller event.
func (m ClientMessage) Event() (mandelbrot.Event, error) {
	pos := mgl64.Vec2{m.X, m.Y}
	switch m.Type {
	case MsgDown:
		b, err := button(m.Button)
		if err != nil {
			return nil, err
		}
		return mandelbrot.PointerDown{Button: b, Pos: pos}, nil
	case MsgMove:
		return mandelbrot.PointerMove{Pos: pos}, nil
	case MsgUp:
		b, err := button(m.Button)
		if err != nil {
			return nil, err
		}
		return mandelbrot.PointerUp{Button: b}, nil
	case MsgWheel:
		return mandelbrot.Wheel{Delta: -m.DeltaY, Pos: pos}, nil
	case MsgResize:
		return mandelbrot.Resize{Resolution: mandelbrot.Resolution{Width: m.Width, Height: m.Height}}, nil
	case MsgReset:
		return mandelbrot.Reset{}, nil
	default:
		return nil, fmt.Errorf("wsview: unknown message type %q", m.Type)
	}
}

func button(b int) (mandelbrot.Button, error) {
	switch b {
	case 0:
		return mandelbrot.ButtonLeft, nil
	case 1:
		return mandelbrot.ButtonMiddle, nil
	case 2:
		return mandelbrot.ButtonRight, nil
	default:
		return 0, fmt.Errorf("wsview: unsupported button %d", b)
	}
}

// EncodeFrame writes the header and pixels of a frame into buf, growing it
// as needed, and returns the message.
func EncodeFrame(buf []byte, width, height int, pix []byte) []byte {
	n := HeaderSize + len(pix)
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	binary.LittleEndian.PutUint32(buf[0:], uint32(width))  //nolint:gosec // frame dimensions are positive
	binary.LittleEndian.PutUint32(buf[4:], uint32(height)) //nolint:gosec // frame dimensions are positive
	copy(buf[HeaderSize:], pix)
	return buf
}

// DecodeFrame splits a binary frame message into its dimensions and pixels.
func DecodeFrame(msg []byte) (width, height int, pix []byte, err error) {
	if len(msg) < HeaderSize {
		return 0, 0, nil, fmt.Errorf("%w: frame message of %d bytes", mandelbrot.ErrDimensionMismatch, len(msg))
	}
	width = int(binary.LittleEndian.Uint32(msg[0:]))
	height = int(binary.LittleEndian.Uint32(msg[4:]))
	pix = msg[HeaderSize:]
	if len(pix) != width*height*mandelbrot.BytesPerPixel {
		return 0, 0, nil, fmt.Errorf("%w: %dx%d frame with %d pixel bytes", mandelbrot.ErrDimensionMismatch, width, height, len(pix))
	}
	return width, height, pix, nil
}
