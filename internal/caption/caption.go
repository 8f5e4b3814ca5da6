// Package caption draws a one-line status caption onto rendered frames.
//
// Glyphs are rasterized with golang.org/x/image/font/opentype from the Go
// Regular font. The caption width used for the backdrop comes from HarfBuzz
// shaping (go-text/typesetting) so kerning is accounted for, and numbers are
// formatted for a locale with golang.org/x/text/message.
package caption

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	gtlanguage "github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/mandelbrot"
)

// DefaultSize is the caption font size in pixels.
const DefaultSize = 13.0

// padding around the text inside the backdrop, in pixels.
const padding = 4

var (
	textColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	backdropColor = color.RGBA{A: 160}
)

// Caption formats and draws status lines. It is safe for concurrent use.
type Caption struct {
	size    float64
	printer *message.Printer

	mu     sync.Mutex
	face   font.Face // x/image faces are not safe for concurrent use
	shaper shaping.HarfbuzzShaper
	gtFace *gotext.Face
}

// New creates a caption drawer at size pixels (DefaultSize when size <= 0)
// formatting numbers for tag.
func New(size float64, tag language.Tag) (*Caption, error) {
	if size <= 0 {
		size = DefaultSize
	}
	otFont, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("caption: parse font: %w", err)
	}
	face, err := opentype.NewFace(otFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("caption: create face: %w", err)
	}
	gtFace, err := gotext.ParseTTF(bytes.NewReader(goregular.TTF))
	if err != nil {
		_ = face.Close()
		return nil, fmt.Errorf("caption: parse font for shaping: %w", err)
	}
	return &Caption{
		size:    size,
		printer: message.NewPrinter(tag),
		face:    face,
		gtFace:  gtFace,
	}, nil
}

// Status formats the zoom, centre and iteration budget of a view, e.g.
// "zoom 1,234.5x  centre -0.7436439 +0.1318259i  1,000 iterations".
func (c *Caption) Status(vp mandelbrot.Viewport, maxIterations int) string {
	re, im := vp.Center()
	sign := '+'
	if im < 0 {
		sign = '-'
	}
	d := digits(vp)
	return c.printer.Sprintf("zoom %.1fx  centre %.*f %c%.*fi  %d iterations",
		vp.Zoom(), d, re, sign, d, math.Abs(im), maxIterations)
}

// log10Slack absorbs rounding in the window extent, so a window of 1e-4
// computed as 9.99999e-05 gets the same digits as an exact one.
const log10Slack = 1e-9

// digits returns enough decimals to tell neighbouring pixels apart at the
// zoom of vp.
func digits(vp mandelbrot.Viewport) int {
	w, _ := vp.Extent()
	if !(w > 0) {
		return 3
	}
	return min(max(int(math.Ceil(-math.Log10(w)-log10Slack))+3, 3), 17)
}

// Measure returns the shaped advance of s in pixels.
func (c *Caption) Measure(s string) float64 {
	if s == "" {
		return 0
	}
	runes := []rune(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      c.gtFace,
		Size:      fixed.Int26_6(c.size * 64),
		Script:    gtlanguage.Latin,
		Language:  gtlanguage.NewLanguage("en"),
	})
	return float64(out.Advance) / 64
}

// Bounds returns the rectangle Draw covers for s, anchored at the top-left
// corner of the frame.
func (c *Caption) Bounds(s string) image.Rectangle {
	c.mu.Lock()
	m := c.face.Metrics()
	c.mu.Unlock()
	w := int(math.Ceil(c.Measure(s)))
	h := m.Height.Ceil()
	return image.Rect(0, 0, w+2*padding, h+2*padding)
}

// Draw paints s over a translucent backdrop in the top-left corner of dst.
func (c *Caption) Draw(dst draw.Image, s string) {
	if s == "" {
		return
	}
	r := c.Bounds(s).Add(dst.Bounds().Min).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(backdropColor), image.Point{}, draw.Over)

	c.mu.Lock()
	defer c.mu.Unlock()
	ascent := c.face.Metrics().Ascent
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: c.face,
		Dot: fixed.Point26_6{
			X: fixed.I(r.Min.X + padding),
			Y: fixed.I(r.Min.Y+padding) + ascent,
		},
	}
	d.DrawString(s)
}

// Close releases the rasterizer face.
func (c *Caption) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.face.Close()
}
