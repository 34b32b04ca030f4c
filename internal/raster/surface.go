// Package raster draws engine frames onto in-memory images for PNG export.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/llgcode/draw2d/draw2dimg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/geocalc/geocalc/backend-go/internal/engine"
	"github.com/geocalc/geocalc/backend-go/internal/palette"
)

var (
	regularOnce sync.Once
	regular     *opentype.Font
	regularErr  error
)

func goRegular() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

type pathOp struct {
	op   byte // 'M', 'L', 'A', 'Z'
	args [6]float64
}

type state struct {
	stroke     color.Color
	fill       color.Color
	lineWidth  float64
	shadow     color.Color
	shadowBlur float64
	fontSize   float64
	align      engine.TextAlign
	matrix     engine.Matrix2D
}

// Surface is an engine.Surface backed by an RGBA image. Paths go through a
// draw2d graphic context; text is drawn with Go Regular.
type Surface struct {
	img   *image.RGBA
	gc    *draw2dimg.GraphicContext
	path  []pathOp
	state state
	stack []state
	faces map[float64]font.Face
}

// NewSurface creates a transparent surface of width x height pixels.
func NewSurface(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	if _, err := goRegular(); err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	return &Surface{
		img: img,
		gc:  draw2dimg.NewGraphicContext(img),
		state: state{
			stroke:    color.Black,
			fill:      color.Black,
			lineWidth: 1,
			fontSize:  10,
			align:     engine.AlignLeft,
			matrix:    engine.Identity(),
		},
		faces: make(map[float64]font.Face),
	}, nil
}

// Image returns the backing image.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// EncodePNG writes the image as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

// Close releases cached font faces.
func (s *Surface) Close() error {
	for size, f := range s.faces {
		f.Close()
		delete(s.faces, size)
	}
	return nil
}

// Size reports the surface size in device pixels.
func (s *Surface) Size() (float64, float64) {
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (s *Surface) Clear(c string) {
	col, err := palette.Parse(c)
	if err != nil {
		col = color.NRGBA{}
	}
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (s *Surface) Save() {
	s.stack = append(s.stack, s.state)
	s.gc.Save()
}

func (s *Surface) Restore() {
	n := len(s.stack)
	if n == 0 {
		return
	}
	s.state = s.stack[n-1]
	s.stack = s.stack[:n-1]
	s.gc.Restore()
}

func (s *Surface) Translate(x, y float64) {
	s.gc.Translate(x, y)
	s.state.matrix = s.state.matrix.Multiply(engine.Translate(x, y))
}

func (s *Surface) Scale(x, y float64) {
	s.gc.Scale(x, y)
	s.state.matrix = s.state.matrix.Multiply(engine.Scale(x, y))
}

func (s *Surface) BeginPath() {
	s.path = s.path[:0]
}

func (s *Surface) MoveTo(x, y float64) {
	s.path = append(s.path, pathOp{op: 'M', args: [6]float64{x, y}})
}

func (s *Surface) LineTo(x, y float64) {
	s.path = append(s.path, pathOp{op: 'L', args: [6]float64{x, y}})
}

// Arc follows Canvas2D semantics: angles in radians measured clockwise on
// screen, drawn counterclockwise when ccw is set.
func (s *Surface) Arc(x, y, radius, start, end float64, ccw bool) {
	sweep := end - start
	switch {
	case !ccw && sweep < 0:
		sweep = math.Mod(sweep, 2*math.Pi) + 2*math.Pi
	case ccw && sweep > 0:
		sweep = math.Mod(sweep, 2*math.Pi) - 2*math.Pi
	}
	sweep = max(-2*math.Pi, min(2*math.Pi, sweep))
	s.path = append(s.path, pathOp{op: 'A', args: [6]float64{x, y, radius, start, sweep}})
}

func (s *Surface) ClosePath() {
	s.path = append(s.path, pathOp{op: 'Z'})
}

// replay rebuilds the recorded path on the graphic context.
func (s *Surface) replay() {
	s.gc.BeginPath()
	for _, p := range s.path {
		a := p.args
		switch p.op {
		case 'M':
			s.gc.MoveTo(a[0], a[1])
		case 'L':
			s.gc.LineTo(a[0], a[1])
		case 'A':
			s.gc.ArcTo(a[0], a[1], a[2], a[2], a[3], a[4])
		case 'Z':
			s.gc.Close()
		}
	}
}

// Stroke outlines the current path. A shadow is approximated by a wider
// translucent stroke underneath.
func (s *Surface) Stroke() {
	if len(s.path) == 0 || s.state.stroke == nil {
		return
	}
	if s.state.shadow != nil && s.state.shadowBlur > 0 {
		s.replay()
		s.gc.SetStrokeColor(fade(s.state.shadow, 0.35))
		s.gc.SetLineWidth(s.state.lineWidth + s.state.shadowBlur/2)
		s.gc.Stroke()
	}
	s.replay()
	s.gc.SetStrokeColor(s.state.stroke)
	s.gc.SetLineWidth(s.state.lineWidth)
	s.gc.Stroke()
}

func (s *Surface) Fill() {
	if len(s.path) == 0 || s.state.fill == nil {
		return
	}
	s.replay()
	s.gc.SetFillColor(s.state.fill)
	s.gc.Fill()
}

func (s *Surface) SetStrokeStyle(c string) { s.state.stroke = parseColor(c) }
func (s *Surface) SetFillStyle(c string)   { s.state.fill = parseColor(c) }
func (s *Surface) SetLineWidth(w float64)  { s.state.lineWidth = w }
func (s *Surface) SetFontSize(px float64)  { s.state.fontSize = px }

func (s *Surface) SetTextAlign(a engine.TextAlign) { s.state.align = a }

func (s *Surface) SetShadow(c string, blur float64) {
	s.state.shadow = parseColor(c)
	s.state.shadowBlur = blur
}

// FillText draws text with its baseline at (x, y) in user space. Glyphs are
// sized by the current scale but not rotated or skewed.
func (s *Surface) FillText(text string, x, y float64) {
	if text == "" || s.state.fill == nil {
		return
	}
	m := s.state.matrix
	scale := m.LinearScale()
	face, err := s.face(s.state.fontSize * scale)
	if err != nil {
		return
	}

	dx, dy := m.TransformPoint(x, y)
	width := font.MeasureString(face, text)
	dot := fixed.Point26_6{X: fixed.Int26_6(dx * 64), Y: fixed.Int26_6(dy * 64)}
	switch s.state.align {
	case engine.AlignCenter:
		dot.X -= width / 2
	case engine.AlignRight:
		dot.X -= width
	}

	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(s.state.fill),
		Face: face,
		Dot:  dot,
	}
	d.DrawString(text)
}

func (s *Surface) face(size float64) (font.Face, error) {
	size = math.Round(size*4) / 4
	if f, ok := s.faces[size]; ok {
		return f, nil
	}
	fnt, err := goRegular()
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %.2f: %w", size, err)
	}
	s.faces[size] = f
	return f, nil
}

// parseColor maps an unparseable or empty style to nil, which disables
// painting with it.
func parseColor(c string) color.Color {
	if c == "" {
		return nil
	}
	col, err := palette.Parse(c)
	if err != nil {
		return nil
	}
	return col
}

func fade(c color.Color, alpha float64) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A) * alpha)
	return n
}
