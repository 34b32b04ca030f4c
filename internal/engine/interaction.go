package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/palette"
	"github.com/geocalc/geocalc/backend-go/internal/typeid"
)

// PointerDown starts a press at a surface position in CSS pixels.
func (e *Engine) PointerDown(sx, sy float64) {
	e.pointer.down = true
	e.pointer.downX, e.pointer.downY = sx, sy
	e.pointer.lastX, e.pointer.lastY = sx, sy
	e.pointer.over = true
	e.pointer.x, e.pointer.y = sx, sy
}

// PointerMove tracks the cursor. Under the move tool a held press pans.
func (e *Engine) PointerMove(sx, sy float64) {
	e.pointer.over = true
	e.pointer.x, e.pointer.y = sx, sy
	if !e.pointer.down || e.tool != ToolMove {
		return
	}
	e.view.Pan(sx-e.pointer.lastX, sy-e.pointer.lastY)
	e.pointer.lastX, e.pointer.lastY = sx, sy
}

// PointerUp ends a press and treats it as a click, unless the move tool
// dragged it further than the drag threshold from where it started.
func (e *Engine) PointerUp(sx, sy float64) {
	wasDown := e.pointer.down
	e.pointer.down = false
	dragged := math.Abs(sx-e.pointer.downX) > e.opts.DragThreshold ||
		math.Abs(sy-e.pointer.downY) > e.opts.DragThreshold
	if e.tool == ToolMove && wasDown && dragged {
		return
	}
	e.Click(sx, sy)
}

// PointerLeave cancels a press without clicking.
func (e *Engine) PointerLeave() {
	e.pointer.down = false
	e.pointer.over = false
}

// Wheel zooms: negative deltaY zooms in.
func (e *Engine) Wheel(deltaY float64) {
	e.view.ZoomWheel(deltaY, e.opts.ZoomFactor, e.opts.MinZoom)
}

// Click applies the active tool at a surface position in CSS pixels.
func (e *Engine) Click(sx, sy float64) {
	x, y := e.view.ScreenToWorld(sx, sy)
	tol := e.view.Tolerance(e.opts.ClickTolerance)

	switch e.tool {
	case ToolPoint:
		e.AddPoint(x, y)
	case ToolSlider:
		e.AddSlider()
	case ToolIntersect:
		e.clickIntersect(x, y, tol)
	case ToolRoots:
		e.clickRoots(x, y, tol)
	case ToolExtremum:
		e.clickExtremum(x, y, tol)
	case ToolBestFit:
		e.bestFit()
	case ToolSegment:
		e.clickSegment(x, y, tol)
	case ToolPolygon:
		e.clickPolygon(x, y, tol)
	case ToolDistance:
		e.clickDistance(x, y, tol)
	case ToolAngle:
		e.clickAngle(x, y, tol)
	case ToolMidpoint:
		e.clickMidpoint(x, y, tol)
	case ToolTangent:
		e.clickTangent(x, y, tol)
	case ToolSelect:
		e.clickSelect(x, y, tol)
	case ToolDelete:
		if obj, ok := e.scene.ClosestObject(x, y, tol); ok {
			e.DeleteObject(obj.ObjectID())
			e.notify(NoticeInfo, "Object deleted.", "")
		}
	}
}

// visibleRange is the world x extent of the surface.
func (e *Engine) visibleRange() (float64, float64) {
	r := e.view.WorldRect()
	return r.X, r.X + r.Width
}

func (e *Engine) clickRoots(x, y, tol float64) {
	f, ok := e.scene.ClosestFunction(x, y, tol)
	if !ok {
		e.notify(NoticeError, "No function selected", "Click closer to a function to find its roots.")
		return
	}
	lo, hi := e.visibleRange()
	e.applyDerived(PrefixRoot, e.opts.Analysis.FindRoots(f.Compiled, e.scene.Scope(), lo, hi))
}

func (e *Engine) clickExtremum(x, y, tol float64) {
	f, ok := e.scene.ClosestFunction(x, y, tol)
	if !ok {
		e.notify(NoticeError, "No function selected.", "")
		return
	}
	lo, hi := e.visibleRange()
	found, err := e.opts.Analysis.FindExtrema(f.Compiled, e.scene.Scope(), lo, hi)
	if err != nil {
		e.notify(NoticeError, "Could not compute derivative.", err.Error())
		return
	}
	e.applyDerived(PrefixExtremum, found)
}

// clickIntersect selects a first function, then searches against a second
// distinct one and clears the selection.
func (e *Engine) clickIntersect(x, y, tol float64) {
	f, ok := e.scene.ClosestFunction(x, y, tol)
	if !ok {
		return
	}

	var first *document.Func
	if len(e.selection) == 1 {
		first, _ = e.scene.Func(e.selection[0])
	}
	if first == nil {
		e.selection = []string{f.ID}
		e.notify(NoticeInfo, "", fmt.Sprintf("Function y=%s selected. Select another to find intersections.", f.Expression))
		return
	}
	if first.ID == f.ID {
		return
	}

	lo, hi := e.visibleRange()
	found, err := e.opts.Analysis.FindIntersections(first.Compiled, f.Compiled, e.scene.Scope(), lo, hi)
	if err != nil {
		e.notify(NoticeError, "Could not find intersections.", err.Error())
	} else {
		e.applyDerived(PrefixIntersect, found)
	}
	e.selection = nil
}

// applyDerived replaces the previous results of one kind of search with
// found. An empty result leaves earlier points in place.
func (e *Engine) applyDerived(prefix string, found []Derived) {
	noun := strings.ToLower(prefix)
	if len(found) == 0 {
		e.notify(NoticeError, fmt.Sprintf("No %s found in the current view.", noun), "")
		return
	}

	points := make([]*document.Point, len(found))
	for i, d := range found {
		points[i] = &document.Point{
			ID:        typeid.NewPointID(),
			X:         d.X,
			Y:         d.Y,
			Label:     d.Label(prefix),
			IsDerived: true,
		}
	}
	removed, err := e.scene.ReplaceDerived(prefix, points)
	if err != nil {
		e.notify(NoticeError, "Could not add points.", err.Error())
		return
	}
	e.forget(removed)
	e.notify(NoticeInfo, fmt.Sprintf("Found %d %s(s).", len(points), noun), "")
}

// pointAt returns the point under the click, creating one when there is
// none.
func (e *Engine) pointAt(x, y, tol float64) (string, bool) {
	if p, ok := e.scene.ClosestPoint(x, y, tol); ok {
		return p.ID, true
	}
	id, err := e.AddPoint(x, y)
	if err != nil {
		e.notify(NoticeError, "Could not add point.", err.Error())
		return "", false
	}
	return id, true
}

// existingPoint returns the point under the click or reports that there is
// none.
func (e *Engine) existingPoint(x, y, tol float64) (*document.Point, bool) {
	p, ok := e.scene.ClosestPoint(x, y, tol)
	if !ok {
		e.notify(NoticeError, "No point here", "Click on an existing point.")
	}
	return p, ok
}

// pending returns the construction in progress for tool, if any.
func (e *Engine) pending(tool Tool) *Interaction {
	if e.interaction != nil && e.interaction.Tool == tool {
		return e.interaction
	}
	return nil
}

func (e *Engine) clickSegment(x, y, tol float64) {
	id, ok := e.pointAt(x, y, tol)
	if !ok {
		return
	}
	in := e.pending(ToolSegment)
	if in == nil {
		e.interaction = &Interaction{Tool: ToolSegment, PointIDs: []string{id}}
		return
	}
	if in.PointIDs[0] == id {
		e.notify(NoticeError, "Pick a different point", "A segment needs two distinct points.")
		return
	}

	seg := &document.Segment{ID: typeid.NewSegmentID(), Point1ID: in.PointIDs[0], Point2ID: id, Color: palette.Segment}
	if err := e.scene.Add(seg); err != nil {
		e.notify(NoticeError, "Could not add segment.", err.Error())
	}
	e.interaction = nil
}

// clickPolygon appends a vertex, or closes the polygon when the click lands
// on the first vertex and at least three vertices are already placed.
func (e *Engine) clickPolygon(x, y, tol float64) {
	id, ok := e.pointAt(x, y, tol)
	if !ok {
		return
	}
	in := e.pending(ToolPolygon)
	if in == nil {
		e.interaction = &Interaction{Tool: ToolPolygon, PointIDs: []string{id}}
		return
	}

	n := len(in.PointIDs)
	if id == in.PointIDs[0] && n >= 3 {
		poly := &document.Polygon{
			ID:       typeid.NewPolygonID(),
			PointIDs: append([]string(nil), in.PointIDs...),
			Color:    palette.Polygon,
		}
		if err := e.scene.Add(poly); err != nil {
			e.notify(NoticeError, "Could not add polygon.", err.Error())
		}
		e.interaction = nil
		return
	}
	if id == in.PointIDs[n-1] {
		// a repeated click on the last vertex adds nothing
		return
	}
	in.PointIDs = append(in.PointIDs, id)
}

func (e *Engine) clickDistance(x, y, tol float64) {
	p, ok := e.existingPoint(x, y, tol)
	if !ok {
		return
	}
	in := e.pending(ToolDistance)
	if in == nil {
		e.interaction = &Interaction{Tool: ToolDistance, PointIDs: []string{p.ID}}
		return
	}
	first, ok := e.scene.Point(in.PointIDs[0])
	if !ok {
		e.interaction = nil
		return
	}
	if first.ID == p.ID {
		e.notify(NoticeError, "Pick a different point", "Distance needs two distinct points.")
		return
	}

	m := &document.Measurement{ID: typeid.NewMeasurementID()}
	measureDistance(m, first, p)
	if err := e.scene.Add(m); err != nil {
		e.notify(NoticeError, "Could not add measurement.", err.Error())
	}
	e.interaction = nil
}

// clickAngle collects vertex, first arm and second arm, in that order.
func (e *Engine) clickAngle(x, y, tol float64) {
	p, ok := e.existingPoint(x, y, tol)
	if !ok {
		return
	}
	in := e.pending(ToolAngle)
	if in == nil {
		e.interaction = &Interaction{Tool: ToolAngle, PointIDs: []string{p.ID}, Step: StepArm1}
		return
	}
	if in.Step == StepArm1 {
		in.PointIDs = append(in.PointIDs, p.ID)
		in.Step = StepArm2
		return
	}

	ids := append(in.PointIDs, p.ID)
	e.interaction = nil
	vs, ok := e.scene.vecs(ids)
	if !ok {
		return
	}
	if _, err := AngleDegrees(vs[0], vs[1], vs[2]); err != nil {
		e.notify(NoticeError, "Degenerate angle", "An arm point sits on the vertex.")
		return
	}
	a := &document.Angle{
		ID:            typeid.NewAngleID(),
		VertexPointID: ids[0],
		Arm1PointID:   ids[1],
		Arm2PointID:   ids[2],
		Color:         palette.Angle,
	}
	if err := e.scene.Add(a); err != nil {
		e.notify(NoticeError, "Could not add angle.", err.Error())
	}
}

func (e *Engine) clickMidpoint(x, y, tol float64) {
	p, ok := e.existingPoint(x, y, tol)
	if !ok {
		return
	}
	in := e.pending(ToolMidpoint)
	if in == nil {
		e.interaction = &Interaction{Tool: ToolMidpoint, PointIDs: []string{p.ID}}
		return
	}
	first, ok := e.scene.Point(in.PointIDs[0])
	e.interaction = nil
	if !ok || first.ID == p.ID {
		return
	}
	mid := Midpoint(Vec{X: first.X, Y: first.Y}, Vec{X: p.X, Y: p.Y})
	e.AddPoint(mid.X, mid.Y)
}

// clickTangent adds the tangent line to the closest function at the
// clicked x.
func (e *Engine) clickTangent(x, y, tol float64) {
	f, ok := e.scene.ClosestFunction(x, y, tol)
	if !ok {
		e.notify(NoticeError, "No function selected.", "")
		return
	}
	d, err := f.Compiled.Derivative("x")
	if err != nil {
		e.notify(NoticeError, "Could not compute derivative.", err.Error())
		return
	}
	scope := e.scene.Scope()
	y0 := f.Compiled.Func("x", scope)(x)
	slope := d.Func("x", scope)(x)
	if !finite(y0) || !finite(slope) {
		e.notify(NoticeError, "No tangent here.", "The function is undefined at this point.")
		return
	}

	text := fmt.Sprintf("%s*(x - %s) + %s", formatCoef(slope), formatCoef(x), formatCoef(y0))
	if _, err := e.AddFunction(text); err == nil {
		e.notify(NoticeInfo, "Tangent added.", "y = "+text)
	}
}

// bestFit adds the least-squares line through every user-placed point.
func (e *Engine) bestFit() {
	var n, sx, sy, sxx, sxy float64
	for _, obj := range e.scene.objects {
		p, ok := obj.(*document.Point)
		if !ok || p.IsDerived {
			continue
		}
		n++
		sx += p.X
		sy += p.Y
		sxx += p.X * p.X
		sxy += p.X * p.Y
	}
	if n < 2 {
		e.notify(NoticeError, "Not enough points.", "Place at least two points to fit a line.")
		return
	}
	denom := n*sxx - sx*sx
	if math.Abs(denom) < 1e-12 {
		e.notify(NoticeError, "Cannot fit a line.", "All points share one x value.")
		return
	}
	slope := (n*sxy - sx*sy) / denom
	intercept := (sy - slope*sx) / n

	text := fmt.Sprintf("%s*x + %s", formatCoef(slope), formatCoef(intercept))
	if _, err := e.AddFunction(text); err == nil {
		e.notify(NoticeInfo, "Line of best fit added.", "y = "+text)
	}
}

func (e *Engine) clickSelect(x, y, tol float64) {
	obj, ok := e.scene.ClosestObject(x, y, tol)
	if !ok {
		e.selection = nil
		return
	}
	id := obj.ObjectID()
	for i, sel := range e.selection {
		if sel == id {
			e.selection = append(e.selection[:i], e.selection[i+1:]...)
			return
		}
	}
	e.selection = append(e.selection, id)
}

// formatCoef prints a number for splicing into an expression, in the
// shortest form that parses back to v exactly. Negative values are
// parenthesized.
func formatCoef(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}
