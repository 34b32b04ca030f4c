package raster

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/engine"
)

func newSurface(t *testing.T, w, h int) *Surface {
	t.Helper()
	s, err := NewSurface(w, h)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func rgbaAt(s *Surface, x, y int) color.RGBA {
	return s.Image().RGBAAt(x, y)
}

func TestNewSurfaceRejectsEmpty(t *testing.T) {
	if _, err := NewSurface(0, 10); err == nil {
		t.Error("zero width accepted")
	}
}

func TestClearAndFill(t *testing.T) {
	s := newSurface(t, 40, 40)
	s.Clear("#ffffff")
	if got := rgbaAt(s, 0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background = %v", got)
	}

	s.BeginPath()
	s.MoveTo(10, 10)
	s.LineTo(30, 10)
	s.LineTo(30, 30)
	s.LineTo(10, 30)
	s.ClosePath()
	s.SetFillStyle("#ff0000")
	s.Fill()

	if got := rgbaAt(s, 20, 20); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("inside = %v", got)
	}
	if got := rgbaAt(s, 5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("outside = %v", got)
	}
}

func TestScaleTransformsPaths(t *testing.T) {
	s := newSurface(t, 40, 40)
	s.Clear("#000000")
	s.Scale(2, 2)
	s.BeginPath()
	s.Arc(10, 10, 4, 0, 2*math.Pi, false)
	s.SetFillStyle("#00ff00")
	s.Fill()

	if got := rgbaAt(s, 20, 20); got.G != 255 {
		t.Errorf("scaled centre = %v", got)
	}
	if got := rgbaAt(s, 10, 10); got.G != 0 {
		t.Errorf("unscaled centre painted: %v", got)
	}
}

func TestFillTextPaints(t *testing.T) {
	s := newSurface(t, 120, 40)
	s.Clear("#ffffff")
	s.SetFillStyle("#000000")
	s.SetFontSize(20)
	s.FillText("Root", 10, 30)

	dark := 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 120; x++ {
			if rgbaAt(s, x, y).R < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("no glyph pixels drawn")
	}
}

func TestSaveRestore(t *testing.T) {
	s := newSurface(t, 20, 20)
	s.SetLineWidth(3)
	s.Save()
	s.SetLineWidth(7)
	s.Translate(5, 5)
	s.Restore()
	if s.state.lineWidth != 3 {
		t.Errorf("line width = %v after restore", s.state.lineWidth)
	}
	if s.state.matrix != engine.Identity() {
		t.Errorf("matrix = %v after restore", s.state.matrix)
	}
	s.Restore() // unbalanced restore is ignored
}

func TestRenderEngineFrame(t *testing.T) {
	e := engine.NewEngine()
	if err := e.LoadSample(); err != nil {
		t.Fatal(err)
	}
	e.SetViewTransform(document.DefaultViewTransform())

	s := newSurface(t, 320, 240)
	e.RenderTo(s)

	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("bounds = %v", b)
	}

	// the y axis crosses the centre column
	if got := rgbaAt(s, 160, 5); got == (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("axis pixel is background")
	}
}
