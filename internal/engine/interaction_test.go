package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/geocalc/geocalc/backend-go/internal/document"
)

func newTestEngine() *Engine {
	opts := DefaultOptions()
	opts.Seed = 1
	return NewEngineWithOptions(opts)
}

func clickWorld(e *Engine, x, y float64) {
	sx, sy := e.View().WorldToScreen(x, y)
	e.Click(sx, sy)
}

func objectsOf[T document.Object](s *Scene) []T {
	var out []T
	for _, obj := range s.Objects() {
		if o, ok := obj.(T); ok {
			out = append(out, o)
		}
	}
	return out
}

func noticeTitles(e *Engine) []string {
	var out []string
	for _, n := range e.TakeNotices() {
		out = append(out, n.Title)
	}
	return out
}

func TestPolygonClosesOnFirstVertex(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolPolygon)

	clickWorld(e, 0, 0)
	clickWorld(e, 2, 0)
	clickWorld(e, 0, 2)
	if in := e.Interaction(); in == nil || len(in.PointIDs) != 3 {
		t.Fatalf("interaction = %+v, want three vertices", in)
	}
	clickWorld(e, 0.05, -0.05)

	polys := objectsOf[*document.Polygon](e.Scene())
	if len(polys) != 1 {
		t.Fatalf("polygons = %d, want 1", len(polys))
	}
	points := objectsOf[*document.Point](e.Scene())
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	want := []string{points[0].ID, points[1].ID, points[2].ID}
	if !equalStrings(polys[0].PointIDs, want) {
		t.Errorf("pointIds = %v, want %v", polys[0].PointIDs, want)
	}
	if e.Interaction() != nil {
		t.Error("interaction not cleared")
	}
}

func TestPolygonDoesNotCloseWithTwoVertices(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolPolygon)

	clickWorld(e, 0, 0)
	clickWorld(e, 2, 0)
	clickWorld(e, 0, 0)

	if n := len(objectsOf[*document.Polygon](e.Scene())); n != 0 {
		t.Fatalf("polygons = %d, want 0", n)
	}
	in := e.Interaction()
	if in == nil || len(in.PointIDs) != 3 || in.PointIDs[0] != in.PointIDs[2] {
		t.Fatalf("interaction = %+v, want first vertex appended again", in)
	}
}

func TestPolygonIgnoresRepeatedLastVertex(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolPolygon)

	clickWorld(e, 0, 0)
	clickWorld(e, 2, 0)
	clickWorld(e, 2.1, 0)
	if in := e.Interaction(); in == nil || len(in.PointIDs) != 2 {
		t.Errorf("interaction = %+v, want two vertices", in)
	}
}

func TestSegmentTool(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolSegment)

	clickWorld(e, 0, 0)
	clickWorld(e, 0.1, 0.1) // same point, within tolerance
	if got := noticeTitles(e); len(got) != 1 || got[0] != "Pick a different point" {
		t.Errorf("notices = %v", got)
	}
	if e.Interaction() == nil {
		t.Fatal("interaction dropped after repeat click")
	}

	clickWorld(e, 3, 1)
	segs := objectsOf[*document.Segment](e.Scene())
	if len(segs) != 1 {
		t.Fatalf("segments = %d, want 1", len(segs))
	}
	points := objectsOf[*document.Point](e.Scene())
	if segs[0].Point1ID != points[0].ID || segs[0].Point2ID != points[1].ID {
		t.Errorf("segment = %+v", segs[0])
	}
	if e.Interaction() != nil {
		t.Error("interaction not cleared")
	}
}

func TestToolSwitchDiscardsConstruction(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolSegment)
	clickWorld(e, 0, 0)
	before := e.Scene().Len()

	e.SetTool(ToolPolygon)
	if e.Interaction() != nil {
		t.Error("interaction survived tool switch")
	}
	if e.Scene().Len() != before {
		t.Errorf("scene changed on tool switch: %d -> %d", before, e.Scene().Len())
	}

	clickWorld(e, 5, 5)
	if in := e.Interaction(); in == nil || in.Tool != ToolPolygon || len(in.PointIDs) != 1 {
		t.Errorf("interaction = %+v", in)
	}
}

func TestDistanceTool(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolDistance)

	clickWorld(e, 1, 1)
	if got := noticeTitles(e); len(got) != 1 || got[0] != "No point here" {
		t.Fatalf("notices = %v", got)
	}
	if e.Interaction() != nil {
		t.Fatal("interaction started without a point")
	}

	a, _ := e.AddPoint(0, 0)
	b, _ := e.AddPoint(3, 4)
	clickWorld(e, 0, 0)
	clickWorld(e, 3, 4)

	ms := objectsOf[*document.Measurement](e.Scene())
	if len(ms) != 1 {
		t.Fatalf("measurements = %d, want 1", len(ms))
	}
	m := ms[0]
	if m.Label != "5.000" || m.X != 1.5 || m.Y != 2 {
		t.Errorf("measurement = %+v", m)
	}
	if m.Point1ID != a || m.Point2ID != b {
		t.Errorf("measurement refs = %s, %s", m.Point1ID, m.Point2ID)
	}

	if err := e.Scene().Update(b, Patch{X: ptr(6.0), Y: ptr(8.0)}); err != nil {
		t.Fatal(err)
	}
	if m.Label != "10.000" || m.X != 3 || m.Y != 4 {
		t.Errorf("measurement after moving %s = %+v", b, m)
	}

	// the measurement goes with its points
	e.DeleteObject(a)
	if n := len(objectsOf[*document.Measurement](e.Scene())); n != 0 {
		t.Errorf("measurements after delete = %d", n)
	}
}

func TestAngleTool(t *testing.T) {
	e := newTestEngine()
	v, _ := e.AddPoint(0, 0)
	a, _ := e.AddPoint(2, 0)
	b, _ := e.AddPoint(0, 2)
	e.SetTool(ToolAngle)

	clickWorld(e, 0, 0)
	if in := e.Interaction(); in == nil || in.Step != StepArm1 {
		t.Fatalf("after vertex: %+v", in)
	}
	clickWorld(e, 2, 0)
	if in := e.Interaction(); in == nil || in.Step != StepArm2 {
		t.Fatalf("after arm1: %+v", in)
	}
	clickWorld(e, 0, 2)

	angles := objectsOf[*document.Angle](e.Scene())
	if len(angles) != 1 {
		t.Fatalf("angles = %d", len(angles))
	}
	got := angles[0]
	if got.VertexPointID != v || got.Arm1PointID != a || got.Arm2PointID != b {
		t.Errorf("angle = %+v", got)
	}
	info, err := e.Describe(got.ID)
	if err != nil {
		t.Fatal(err)
	}
	if info.Degrees == nil || *info.Degrees < 89.999 || *info.Degrees > 90.001 {
		t.Errorf("degrees = %v", info.Degrees)
	}
}

func TestAngleToolDegenerate(t *testing.T) {
	e := newTestEngine()
	e.AddPoint(0, 0)
	e.AddPoint(2, 0)
	e.SetTool(ToolAngle)

	clickWorld(e, 0, 0)
	clickWorld(e, 0, 0)
	clickWorld(e, 2, 0)

	if n := len(objectsOf[*document.Angle](e.Scene())); n != 0 {
		t.Errorf("angles = %d, want 0", n)
	}
	if got := noticeTitles(e); len(got) != 1 || got[0] != "Degenerate angle" {
		t.Errorf("notices = %v", got)
	}
}

func TestRootsTool(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddFunction("x^2 - 1"); err != nil {
		t.Fatal(err)
	}
	e.SetTool(ToolRoots)

	clickWorld(e, 0, 5)
	if got := noticeTitles(e); len(got) != 1 || got[0] != "No function selected" {
		t.Fatalf("far click notices = %v", got)
	}

	for i := 0; i < 2; i++ {
		clickWorld(e, 0, -1)
		if got := noticeTitles(e); len(got) != 1 || got[0] != "Found 2 root(s)." {
			t.Fatalf("run %d notices = %v", i, got)
		}
		points := objectsOf[*document.Point](e.Scene())
		if len(points) != 2 {
			t.Fatalf("run %d: %d points, want 2", i, len(points))
		}
		if points[0].Label != "Root (-1.00, 0.00)" || points[1].Label != "Root (1.00, 0.00)" {
			t.Errorf("labels = %q, %q", points[0].Label, points[1].Label)
		}
		if !points[0].IsDerived {
			t.Error("root point not derived")
		}
	}
}

func TestRootsToolNoRoot(t *testing.T) {
	e := newTestEngine()
	e.AddFunction("x^2 + 1")
	e.SetTool(ToolRoots)
	clickWorld(e, 0, 1)

	if got := noticeTitles(e); len(got) != 1 || got[0] != "No root found in the current view." {
		t.Errorf("notices = %v", got)
	}
	if e.Scene().Len() != 1 {
		t.Errorf("scene has %d objects", e.Scene().Len())
	}
}

func TestIntersectTool(t *testing.T) {
	e := newTestEngine()
	f1, _ := e.AddFunction("x")
	e.AddFunction("2 - x")
	e.SetTool(ToolIntersect)

	clickWorld(e, 3, 3)
	if sel := e.Selection(); len(sel) != 1 || sel[0] != f1 {
		t.Fatalf("selection = %v, want [%s]", sel, f1)
	}
	notices := e.TakeNotices()
	if len(notices) != 1 || !strings.Contains(notices[0].Description, "y=x selected") {
		t.Errorf("notices = %+v", notices)
	}

	clickWorld(e, 3, -1)
	points := objectsOf[*document.Point](e.Scene())
	if len(points) != 1 || points[0].Label != "Intersect (1.00, 1.00)" {
		t.Fatalf("points = %+v", points)
	}
	if len(e.Selection()) != 0 {
		t.Errorf("selection = %v after search", e.Selection())
	}
}

func TestExtremumTool(t *testing.T) {
	e := newTestEngine()
	e.AddFunction("x^3 - 3x")
	e.SetTool(ToolExtremum)
	clickWorld(e, 0, 0)

	points := objectsOf[*document.Point](e.Scene())
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].Label != "Extremum (-1.00, 2.00)" || points[1].Label != "Extremum (1.00, -2.00)" {
		t.Errorf("labels = %q, %q", points[0].Label, points[1].Label)
	}
}

func TestDeleteFunctionDropsDerivedPoints(t *testing.T) {
	e := newTestEngine()
	f, _ := e.AddFunction("x^2 - 4")
	e.SetTool(ToolRoots)
	clickWorld(e, 0, -4)
	if n := len(objectsOf[*document.Point](e.Scene())); n != 2 {
		t.Fatalf("roots = %d", n)
	}

	removed, err := e.DeleteObject(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 3 || e.Scene().Len() != 0 {
		t.Errorf("removed %v, %d objects left", removed, e.Scene().Len())
	}
}

func TestDeleteTool(t *testing.T) {
	e := newTestEngine()
	e.AddPoint(1, 1)
	e.SetTool(ToolDelete)

	clickWorld(e, 4, 4)
	if e.Scene().Len() != 1 || len(e.TakeNotices()) != 0 {
		t.Fatal("miss deleted something")
	}
	clickWorld(e, 1.1, 1)
	if e.Scene().Len() != 0 {
		t.Error("point not deleted")
	}
	if got := noticeTitles(e); len(got) != 1 || got[0] != "Object deleted." {
		t.Errorf("notices = %v", got)
	}
}

func TestBestFitTool(t *testing.T) {
	e := newTestEngine()
	e.AddPoint(0, 1)
	e.AddPoint(1, 3)
	e.AddPoint(2, 5)
	e.SetTool(ToolBestFit)
	e.Click(0, 0)

	fns := objectsOf[*document.Func](e.Scene())
	if len(fns) != 1 || fns[0].Expression != "2*x + 1" {
		t.Fatalf("functions = %+v", fns)
	}
}

func TestTangentTool(t *testing.T) {
	e := newTestEngine()
	e.AddFunction("x^2")
	e.SetTool(ToolTangent)
	clickWorld(e, 1, 1)

	fns := objectsOf[*document.Func](e.Scene())
	if len(fns) != 2 {
		t.Fatalf("functions = %d", len(fns))
	}
	if fns[1].Expression != "2*(x - 1) + 1" {
		t.Errorf("tangent = %q", fns[1].Expression)
	}
	v, err := fns[1].Compiled.Evaluate(map[string]float64{"x": 3})
	if err != nil || v != 5 {
		t.Errorf("tangent(3) = %v, %v", v, err)
	}
}

func TestTangentToolFarFromOrigin(t *testing.T) {
	e := newTestEngine()
	e.AddFunction("x^3")
	e.SetTool(ToolTangent)
	const x0 = 100.1234
	clickWorld(e, x0, x0*x0*x0)

	fns := objectsOf[*document.Func](e.Scene())
	if len(fns) != 2 {
		t.Fatalf("functions = %d", len(fns))
	}
	tangent := fns[1].Compiled
	for _, x := range []float64{x0, x0 + 0.5} {
		got, err := tangent.Evaluate(map[string]float64{"x": x})
		if err != nil {
			t.Fatal(err)
		}
		want := x0*x0*x0 + 3*x0*x0*(x-x0)
		if math.Abs(got-want) > 1e-6 {
			t.Errorf("tangent(%g) = %.9f, want %.9f (%q)", x, got, want, fns[1].Expression)
		}
	}
}

func TestMidpointTool(t *testing.T) {
	e := newTestEngine()
	e.AddPoint(0, 0)
	e.AddPoint(4, 2)
	e.SetTool(ToolMidpoint)
	clickWorld(e, 0, 0)
	clickWorld(e, 4, 2)

	points := objectsOf[*document.Point](e.Scene())
	if len(points) != 3 || points[2].X != 2 || points[2].Y != 1 {
		t.Errorf("points = %+v", points)
	}
}

func TestSelectToolToggles(t *testing.T) {
	e := newTestEngine()
	p, _ := e.AddPoint(0, 0)
	e.SetTool(ToolSelect)

	clickWorld(e, 0, 0)
	if sel := e.Selection(); len(sel) != 1 || sel[0] != p {
		t.Fatalf("selection = %v", sel)
	}
	clickWorld(e, 0, 0)
	if sel := e.Selection(); len(sel) != 0 {
		t.Errorf("selection = %v after second click", sel)
	}
}

func TestMoveDragPansWithoutClick(t *testing.T) {
	e := newTestEngine()
	e.PointerDown(100, 100)
	e.PointerMove(130, 110)
	e.PointerMove(150, 120)
	e.PointerUp(150, 120)

	v := e.View()
	if v.PanX != 50 || v.PanY != 20 {
		t.Errorf("pan = (%v, %v), want (50, 20)", v.PanX, v.PanY)
	}
}

func TestPointerClickPlacesPoint(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolPoint)
	e.PointerDown(450, 250)
	e.PointerMove(460, 260)
	e.PointerUp(450, 250)

	points := objectsOf[*document.Point](e.Scene())
	if len(points) != 1 || points[0].X != 1 || points[0].Y != 1 {
		t.Fatalf("points = %+v", points)
	}
	if points[0].Label != "(1.00, 1.00)" {
		t.Errorf("label = %q", points[0].Label)
	}
	if v := e.View(); v.PanX != 0 || v.PanY != 0 {
		t.Errorf("point tool panned the view: %+v", v)
	}
}

func TestSliderTool(t *testing.T) {
	e := newTestEngine()
	e.SetTool(ToolSlider)
	e.Click(0, 0)
	e.Click(0, 0)

	sliders := objectsOf[*document.Slider](e.Scene())
	if len(sliders) != 2 || sliders[0].Name != "a" || sliders[1].Name != "b" {
		t.Fatalf("sliders = %+v", sliders)
	}
	s := sliders[0]
	if s.Min != -5 || s.Max != 5 || s.Step != 0.1 || s.Value != 1 {
		t.Errorf("slider = %+v", s)
	}
}

func TestWheel(t *testing.T) {
	e := newTestEngine()
	e.Wheel(-100)
	if z := e.View().Zoom; z < 54.99 || z > 55.01 {
		t.Errorf("zoom in = %v", z)
	}
	e.Wheel(100)
	if z := e.View().Zoom; z < 49.99 || z > 50.01 {
		t.Errorf("zoom out = %v", z)
	}
}

func TestAddFunctionInvalid(t *testing.T) {
	e := newTestEngine()
	if _, err := e.AddFunction("sin(("); err == nil {
		t.Fatal("no error")
	}
	if got := noticeTitles(e); len(got) != 1 || got[0] != "Invalid expression" {
		t.Errorf("notices = %v", got)
	}
	if id, err := e.AddFunction(""); err != nil {
		t.Fatal(err)
	} else if f, _ := e.Scene().Func(id); f.Expression != DefaultExpression {
		t.Errorf("default expression = %q", f.Expression)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := newTestEngine()
	if err := e.LoadSample(); err != nil {
		t.Fatal(err)
	}
	e.SetViewTransform(document.ViewTransform{PanX: 12, PanY: -3, Zoom: 80})

	data, err := e.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "compiled") {
		t.Error("snapshot carries compiled form")
	}

	other := newTestEngine()
	if err := other.LoadSnapshot(data); err != nil {
		t.Fatal(err)
	}
	if other.Scene().Len() != e.Scene().Len() {
		t.Errorf("objects = %d, want %d", other.Scene().Len(), e.Scene().Len())
	}
	if v := other.View(); v.PanX != 12 || v.PanY != -3 || v.Zoom != 80 {
		t.Errorf("view = %+v", v)
	}
	for _, f := range objectsOf[*document.Func](other.Scene()) {
		if f.Compiled == nil {
			t.Errorf("%s not compiled after load", f.Expression)
		}
	}
}

func TestHitTest(t *testing.T) {
	e := newTestEngine()
	id, err := e.AddPoint(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	sx, sy := e.View().WorldToScreen(1, 1)
	if got := e.HitTest(sx+5, sy); got != id {
		t.Errorf("HitTest near point = %q, want %q", got, id)
	}
	if got := e.HitTest(sx+200, sy+200); got != "" {
		t.Errorf("HitTest far away = %q, want empty", got)
	}
}
