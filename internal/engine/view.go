package engine

import "github.com/geocalc/geocalc/backend-go/internal/document"

// View maps between world coordinates (y up) and screen pixels (y down).
//
//	sx = x*zoom + width/2 + panX
//	sy = -y*zoom + height/2 + panY
type View struct {
	PanX   float64
	PanY   float64
	Zoom   float64
	Width  float64
	Height float64
}

// NewView creates a view of the given pixel size at the default zoom.
func NewView(width, height float64) View {
	return View{Zoom: document.DefaultZoom, Width: width, Height: height}
}

// Matrix returns the world-to-screen transform.
func (v View) Matrix() Matrix2D {
	return Translate(v.Width/2+v.PanX, v.Height/2+v.PanY).Multiply(Scale(v.Zoom, -v.Zoom))
}

// WorldToScreen converts a world position to pixels.
func (v View) WorldToScreen(x, y float64) (float64, float64) {
	return x*v.Zoom + v.Width/2 + v.PanX, -y*v.Zoom + v.Height/2 + v.PanY
}

// ScreenToWorld converts pixels to a world position.
func (v View) ScreenToWorld(sx, sy float64) (float64, float64) {
	return (sx - v.Width/2 - v.PanX) / v.Zoom, -(sy - v.Height/2 - v.PanY) / v.Zoom
}

// WorldRect returns the visible world region.
func (v View) WorldRect() Rect {
	return v.Matrix().Invert().TransformRect(Rect{Width: v.Width, Height: v.Height})
}

// Tolerance converts a pixel distance to world units.
func (v View) Tolerance(px float64) float64 {
	return px / v.Zoom
}

// Pan moves the view by a screen-pixel delta.
func (v *View) Pan(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// ZoomWheel zooms in by factor for a negative wheel delta and out otherwise.
// Zoom never drops below minZoom.
func (v *View) ZoomWheel(deltaY, factor, minZoom float64) {
	z := v.Zoom
	if deltaY < 0 {
		z *= factor
	} else {
		z /= factor
	}
	v.Zoom = max(minZoom, z)
}

// SetViewport updates the pixel size. Non-positive sizes are ignored.
func (v *View) SetViewport(width, height float64) {
	if width > 0 && height > 0 {
		v.Width = width
		v.Height = height
	}
}

// Transform returns the persisted part of the view.
func (v View) Transform() document.ViewTransform {
	return document.ViewTransform{PanX: v.PanX, PanY: v.PanY, Zoom: v.Zoom}
}

// SetTransform restores pan and zoom. A non-positive zoom resets to the
// default.
func (v *View) SetTransform(t document.ViewTransform) {
	v.PanX = t.PanX
	v.PanY = t.PanY
	v.Zoom = t.Zoom
	if v.Zoom <= 0 {
		v.Zoom = document.DefaultZoom
	}
}
