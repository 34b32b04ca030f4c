package engine

import (
	"math"
	"testing"
)

func TestViewInverse(t *testing.T) {
	views := []View{
		{PanX: 0, PanY: 0, Zoom: 50, Width: 800, Height: 600},
		{PanX: -123.5, PanY: 47.25, Zoom: 0.1, Width: 1024, Height: 768},
		{PanX: 9000, PanY: -3000, Zoom: 1234.5, Width: 320, Height: 200},
	}
	screens := [][2]float64{{0, 0}, {400, 300}, {17.5, 599}, {-50, 1e4}}

	for _, v := range views {
		for _, sp := range screens {
			x, y := v.ScreenToWorld(sp[0], sp[1])
			sx, sy := v.WorldToScreen(x, y)
			if math.Abs(sx-sp[0]) > 1e-6 || math.Abs(sy-sp[1]) > 1e-6 {
				t.Errorf("%+v: (%v,%v) -> (%v,%v) -> (%v,%v)", v, sp[0], sp[1], x, y, sx, sy)
			}
		}
	}
}

func TestViewFormulas(t *testing.T) {
	v := View{PanX: 10, PanY: -20, Zoom: 50, Width: 800, Height: 600}
	sx, sy := v.WorldToScreen(1, 2)
	if sx != 1*50+400+10 || sy != -2*50+300-20 {
		t.Errorf("WorldToScreen(1,2) = (%v,%v)", sx, sy)
	}

	mx, my := v.Matrix().TransformPoint(1, 2)
	if math.Abs(mx-sx) > 1e-9 || math.Abs(my-sy) > 1e-9 {
		t.Errorf("Matrix disagrees: (%v,%v) vs (%v,%v)", mx, my, sx, sy)
	}
}

func TestViewWorldRect(t *testing.T) {
	v := NewView(800, 600)
	r := v.WorldRect()
	if math.Abs(r.X+8) > 1e-9 || math.Abs(r.Width-16) > 1e-9 {
		t.Errorf("x range = [%v, %v], want [-8, 8]", r.X, r.X+r.Width)
	}
	if math.Abs(r.Y+6) > 1e-9 || math.Abs(r.Height-12) > 1e-9 {
		t.Errorf("y range = [%v, %v], want [-6, 6]", r.Y, r.Y+r.Height)
	}
}

func TestZoomClamp(t *testing.T) {
	v := NewView(800, 600)
	for i := 0; i < 500; i++ {
		v.ZoomWheel(1, 1.1, 0.1)
		if v.Zoom < 0.1 {
			t.Fatalf("zoom dropped to %v after %d steps", v.Zoom, i+1)
		}
	}
	if v.Zoom != 0.1 {
		t.Errorf("zoom = %v, want floor 0.1", v.Zoom)
	}

	v.ZoomWheel(-1, 1.1, 0.1)
	if math.Abs(v.Zoom-0.11) > 1e-12 {
		t.Errorf("zoom in from floor = %v, want 0.11", v.Zoom)
	}
}

func TestViewPanAndTransform(t *testing.T) {
	v := NewView(800, 600)
	v.Pan(15, -5)
	v.Pan(5, 5)
	if v.PanX != 20 || v.PanY != 0 {
		t.Errorf("pan = (%v,%v)", v.PanX, v.PanY)
	}

	tr := v.Transform()
	var w View
	w.SetTransform(tr)
	if w.PanX != 20 || w.Zoom != 50 {
		t.Errorf("SetTransform = %+v", w)
	}
	tr.Zoom = 0
	w.SetTransform(tr)
	if w.Zoom != 50 {
		t.Errorf("zero zoom restored as %v", w.Zoom)
	}
}
