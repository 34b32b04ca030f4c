package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/expr"
	"github.com/geocalc/geocalc/backend-go/internal/palette"
)

// Frame is everything one render pass reads.
type Frame struct {
	Scene       *Scene
	View        View
	Selection   []string
	Interaction *Interaction
	// Cursor is the pointer position in world units, nil when the pointer is
	// off the surface.
	Cursor *Vec
	// PixelRatio is device pixels per CSS pixel. Zero means 1.
	PixelRatio float64
}

// Renderer draws frames. It reads the scene and never mutates it.
type Renderer struct {
	GridMinSpacing float64 // minimum pixels between grid lines
}

// NewRenderer creates a renderer with the default grid spacing.
func NewRenderer() *Renderer {
	return &Renderer{GridMinSpacing: 60}
}

// Draw renders one frame onto s. The view is resized to the surface before
// drawing. Draw order: grid, axes, functions, points, segments, polygons,
// measurements, angles, construction preview.
func (r *Renderer) Draw(s Surface, f Frame) {
	ratio := f.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	w, h := s.Size()
	v := f.View
	v.SetViewport(w/ratio, h/ratio)

	s.Clear(palette.Background)
	s.Save()
	defer s.Restore()
	if ratio != 1 {
		s.Scale(ratio, ratio)
	}

	selected := make(map[string]bool, len(f.Selection))
	for _, id := range f.Selection {
		selected[id] = true
	}

	step := GridStep(v.Zoom, r.GridMinSpacing)
	r.drawGrid(s, v, step)
	r.drawAxes(s, v, step)

	if f.Scene == nil {
		return
	}
	sc := f.Scene
	scope := sc.Scope()

	for _, obj := range sc.objects {
		if fn, ok := obj.(*document.Func); ok && fn.Compiled != nil {
			tag(s, fn.ID)
			drawFunction(s, v, fn, scope, selected[fn.ID])
		}
	}
	for _, obj := range sc.objects {
		if p, ok := obj.(*document.Point); ok {
			tag(s, p.ID)
			drawPoint(s, v, p, selected[p.ID])
		}
	}
	for _, obj := range sc.objects {
		if seg, ok := obj.(*document.Segment); ok {
			tag(s, seg.ID)
			drawSegment(s, v, sc, seg, selected[seg.ID])
		}
	}
	for _, obj := range sc.objects {
		if poly, ok := obj.(*document.Polygon); ok {
			tag(s, poly.ID)
			drawPolygon(s, v, sc, poly, selected[poly.ID])
		}
	}
	for _, obj := range sc.objects {
		if m, ok := obj.(*document.Measurement); ok {
			tag(s, m.ID)
			drawMeasurement(s, v, m)
		}
	}
	for _, obj := range sc.objects {
		if a, ok := obj.(*document.Angle); ok {
			tag(s, a.ID)
			drawAngle(s, v, sc, a)
		}
	}
	tag(s, "")

	if f.Interaction != nil {
		drawPreview(s, v, sc, f.Interaction, f.Cursor)
	}
}

func tag(s Surface, id string) {
	if t, ok := s.(ObjectTagger); ok {
		t.TagObject(id)
	}
}

// GridStep returns the smallest 1, 2 or 5 times a power of ten that puts
// grid lines at least minSpacing pixels apart.
func GridStep(zoom, minSpacing float64) float64 {
	raw := minSpacing / zoom
	base := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5} {
		if m*base >= raw {
			return m * base
		}
	}
	return 10 * base
}

func (r *Renderer) drawGrid(s Surface, v View, step float64) {
	world := v.WorldRect()

	s.BeginPath()
	s.SetStrokeStyle(palette.Grid)
	s.SetLineWidth(1)
	for i := math.Ceil(world.X / step); i*step <= world.X+world.Width; i++ {
		sx, _ := v.WorldToScreen(i*step, 0)
		s.MoveTo(sx, 0)
		s.LineTo(sx, v.Height)
	}
	for i := math.Ceil(world.Y / step); i*step <= world.Y+world.Height; i++ {
		_, sy := v.WorldToScreen(0, i*step)
		s.MoveTo(0, sy)
		s.LineTo(v.Width, sy)
	}
	s.Stroke()
}

func (r *Renderer) drawAxes(s Surface, v View, step float64) {
	ox, oy := v.WorldToScreen(0, 0)

	s.BeginPath()
	s.SetStrokeStyle(palette.Axis)
	s.SetLineWidth(2)
	if oy >= 0 && oy <= v.Height {
		s.MoveTo(0, oy)
		s.LineTo(v.Width, oy)
	}
	if ox >= 0 && ox <= v.Width {
		s.MoveTo(ox, 0)
		s.LineTo(ox, v.Height)
	}
	s.Stroke()

	// tick labels stay on screen when the axis scrolls away
	world := v.WorldRect()
	s.SetFillStyle(palette.Text)
	s.SetFontSize(11)

	s.SetTextAlign(AlignCenter)
	ly := min(max(oy+14, 12), v.Height-4)
	for i := math.Ceil(world.X / step); i*step <= world.X+world.Width; i++ {
		if i == 0 {
			continue
		}
		sx, _ := v.WorldToScreen(i*step, 0)
		s.FillText(formatTick(i*step, step), sx, ly)
	}

	lx, align := ox-6, AlignRight
	if lx < 30 {
		lx, align = 6, AlignLeft
	} else if lx > v.Width-6 {
		lx = v.Width - 6
	}
	s.SetTextAlign(align)
	for i := math.Ceil(world.Y / step); i*step <= world.Y+world.Height; i++ {
		if i == 0 {
			continue
		}
		_, sy := v.WorldToScreen(0, i*step)
		s.FillText(formatTick(i*step, step), lx, sy+4)
	}
}

func formatTick(v, step float64) string {
	if math.Abs(v) >= 1e6 {
		return strconv.FormatFloat(v, 'g', 6, 64)
	}
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// offscreen bounds vertical coordinates so near-asymptote samples stay
// drawable without changing what is visible.
const offscreen = 1e4

func drawFunction(s Surface, v View, fn *document.Func, scope expr.Bindings, selected bool) {
	env := make(expr.Bindings, len(scope)+1)
	for k, val := range scope {
		env[k] = val
	}

	s.BeginPath()
	s.SetStrokeStyle(fn.Color)
	if selected {
		s.SetLineWidth(4)
		s.SetShadow(fn.Color, 15)
	} else {
		s.SetLineWidth(2)
		s.SetShadow("", 0)
	}

	penDown := false
	for px := 0; px <= int(v.Width); px++ {
		x, _ := v.ScreenToWorld(float64(px), 0)
		env["x"] = x
		y, err := fn.Compiled.Evaluate(env)
		if err != nil {
			continue
		}
		if !finite(y) {
			penDown = false
			continue
		}
		_, sy := v.WorldToScreen(x, y)
		sy = min(max(sy, -offscreen), v.Height+offscreen)
		if penDown {
			s.LineTo(float64(px), sy)
		} else {
			s.MoveTo(float64(px), sy)
			penDown = true
		}
	}
	s.Stroke()
	s.SetShadow("", 0)
}

func drawPoint(s Surface, v View, p *document.Point, selected bool) {
	sx, sy := v.WorldToScreen(p.X, p.Y)

	s.BeginPath()
	if p.IsDerived {
		s.SetFillStyle(palette.DerivedPoint)
		s.Arc(sx, sy, 5, 0, 2*math.Pi, false)
	} else {
		s.SetFillStyle(palette.Point)
		s.Arc(sx, sy, 4, 0, 2*math.Pi, false)
	}
	s.Fill()

	if selected {
		s.BeginPath()
		s.SetStrokeStyle(palette.Point)
		s.SetLineWidth(2)
		s.Arc(sx, sy, 8, 0, 2*math.Pi, false)
		s.Stroke()
	}

	if p.IsDerived && p.Label != "" {
		s.SetFillStyle(palette.Text)
		s.SetFontSize(11)
		s.SetTextAlign(AlignLeft)
		s.FillText(p.Label, sx+8, sy-8)
	}
}

func drawSegment(s Surface, v View, sc *Scene, seg *document.Segment, selected bool) {
	a, aok := sc.vec(seg.Point1ID)
	b, bok := sc.vec(seg.Point2ID)
	if !aok || !bok {
		return
	}
	ax, ay := v.WorldToScreen(a.X, a.Y)
	bx, by := v.WorldToScreen(b.X, b.Y)

	s.BeginPath()
	s.SetStrokeStyle(colorOr(seg.Color, palette.Segment))
	s.SetLineWidth(strokeWidth(selected))
	s.MoveTo(ax, ay)
	s.LineTo(bx, by)
	s.Stroke()
}

func drawPolygon(s Surface, v View, sc *Scene, poly *document.Polygon, selected bool) {
	vs, ok := sc.vecs(poly.PointIDs)
	if !ok || len(vs) < 3 {
		return
	}
	color := colorOr(poly.Color, palette.Polygon)

	s.BeginPath()
	for i, p := range vs {
		sx, sy := v.WorldToScreen(p.X, p.Y)
		if i == 0 {
			s.MoveTo(sx, sy)
		} else {
			s.LineTo(sx, sy)
		}
	}
	s.ClosePath()
	s.SetFillStyle(palette.WithAlpha(color, 0.2))
	s.Fill()
	s.SetStrokeStyle(color)
	s.SetLineWidth(strokeWidth(selected))
	s.Stroke()
}

func drawMeasurement(s Surface, v View, m *document.Measurement) {
	sx, sy := v.WorldToScreen(m.X, m.Y)
	s.SetFillStyle(palette.Measurement)
	s.SetFontSize(12)
	s.SetTextAlign(AlignCenter)
	s.FillText(m.Label, sx, sy-6)
}

func drawAngle(s Surface, v View, sc *Scene, a *document.Angle) {
	vertex, ok1 := sc.vec(a.VertexPointID)
	arm1, ok2 := sc.vec(a.Arm1PointID)
	arm2, ok3 := sc.vec(a.Arm2PointID)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	deg, err := AngleDegrees(vertex, arm1, arm2)
	if err != nil {
		return
	}

	vx, vy := v.WorldToScreen(vertex.X, vertex.Y)
	ax, ay := v.WorldToScreen(arm1.X, arm1.Y)
	bx, by := v.WorldToScreen(arm2.X, arm2.Y)
	color := colorOr(a.Color, palette.Angle)

	s.BeginPath()
	s.SetStrokeStyle(color)
	s.SetLineWidth(1.5)
	s.MoveTo(ax, ay)
	s.LineTo(vx, vy)
	s.LineTo(bx, by)
	s.Stroke()

	const radius = 24
	start := math.Atan2(ay-vy, ax-vx)
	delta := math.Atan2(by-vy, bx-vx) - start
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}
	for delta <= -math.Pi {
		delta += 2 * math.Pi
	}

	s.BeginPath()
	s.SetLineWidth(2)
	s.MoveTo(vx+radius*math.Cos(start), vy+radius*math.Sin(start))
	s.Arc(vx, vy, radius, start, start+delta, delta < 0)
	s.Stroke()

	mid := start + delta/2
	s.Save()
	s.Translate(vx, vy)
	s.SetFillStyle(color)
	s.SetFontSize(12)
	s.SetTextAlign(AlignCenter)
	s.FillText(fmt.Sprintf("%.1f°", deg), 42*math.Cos(mid), 42*math.Sin(mid)+4)
	s.Restore()
}

func drawPreview(s Surface, v View, sc *Scene, in *Interaction, cursor *Vec) {
	pts, ok := sc.vecs(in.PointIDs)
	if !ok || len(pts) == 0 {
		return
	}
	if cursor != nil {
		pts = append(pts, *cursor)
	}

	s.BeginPath()
	s.SetStrokeStyle(palette.Preview)
	s.SetLineWidth(1.5)
	if in.Tool == ToolAngle {
		// arms radiate from the vertex
		vx, vy := v.WorldToScreen(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			sx, sy := v.WorldToScreen(p.X, p.Y)
			s.MoveTo(vx, vy)
			s.LineTo(sx, sy)
		}
	} else {
		for i, p := range pts {
			sx, sy := v.WorldToScreen(p.X, p.Y)
			if i == 0 {
				s.MoveTo(sx, sy)
			} else {
				s.LineTo(sx, sy)
			}
		}
	}
	s.Stroke()

	if in.Tool == ToolPolygon && len(in.PointIDs) >= 3 {
		first := pts[0]
		sx, sy := v.WorldToScreen(first.X, first.Y)
		s.BeginPath()
		s.Arc(sx, sy, 8, 0, 2*math.Pi, false)
		s.Stroke()
	}
}

func colorOr(c, fallback string) string {
	if c == "" {
		return fallback
	}
	return c
}

func strokeWidth(selected bool) float64 {
	if selected {
		return 3
	}
	return 2
}
