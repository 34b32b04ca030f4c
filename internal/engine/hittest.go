package engine

import (
	"math"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/expr"
)

// Hit testing scans objects in insertion order and keeps the first strictly
// closer candidate, so earlier objects win exact ties. A candidate counts
// only when its distance is below tol, in world units.

// ClosestFunction returns the function whose value at x is nearest y.
func (s *Scene) ClosestFunction(x, y, tol float64) (*document.Func, bool) {
	scope := s.Scope()
	scope["x"] = x

	var best *document.Func
	bestDist := math.Inf(1)
	for _, obj := range s.objects {
		f, ok := obj.(*document.Func)
		if !ok || f.Compiled == nil {
			continue
		}
		fy, err := f.Compiled.Evaluate(scope)
		if err != nil {
			continue
		}
		if d := math.Abs(fy - y); d < bestDist {
			best, bestDist = f, d
		}
	}
	if best == nil || !(bestDist < tol) {
		return nil, false
	}
	return best, true
}

// ClosestPoint returns the point nearest (x, y).
func (s *Scene) ClosestPoint(x, y, tol float64) (*document.Point, bool) {
	at := Vec{X: x, Y: y}

	var best *document.Point
	bestDist := math.Inf(1)
	for _, obj := range s.objects {
		p, ok := obj.(*document.Point)
		if !ok {
			continue
		}
		if d := Distance(at, Vec{X: p.X, Y: p.Y}); d < bestDist {
			best, bestDist = p, d
		}
	}
	if best == nil || !(bestDist < tol) {
		return nil, false
	}
	return best, true
}

// ClosestObject returns the object nearest (x, y) across every kind that
// has a position: points, function curves, segments, polygon edges,
// measurement anchors and angle vertices. Sliders are never hit.
func (s *Scene) ClosestObject(x, y, tol float64) (document.Object, bool) {
	at := Vec{X: x, Y: y}
	scope := s.Scope()
	scope["x"] = x

	var best document.Object
	bestDist := math.Inf(1)
	for _, obj := range s.objects {
		d := s.distanceTo(obj, at, scope)
		if d < bestDist {
			best, bestDist = obj, d
		}
	}
	if best == nil || !(bestDist < tol) {
		return nil, false
	}
	return best, true
}

func (s *Scene) distanceTo(obj document.Object, at Vec, scope expr.Bindings) float64 {
	switch o := obj.(type) {
	case *document.Point:
		return Distance(at, Vec{X: o.X, Y: o.Y})

	case *document.Func:
		if o.Compiled == nil {
			break
		}
		fy, err := o.Compiled.Evaluate(scope)
		if err != nil || !finite(fy) {
			break
		}
		return math.Abs(fy - at.Y)

	case *document.Segment:
		a, aok := s.vec(o.Point1ID)
		b, bok := s.vec(o.Point2ID)
		if aok && bok {
			return DistanceToSegment(at, a, b)
		}

	case *document.Polygon:
		vs, ok := s.vecs(o.PointIDs)
		if !ok {
			break
		}
		d := math.Inf(1)
		for i := range vs {
			d = min(d, DistanceToSegment(at, vs[i], vs[(i+1)%len(vs)]))
		}
		return d

	case *document.Measurement:
		return Distance(at, Vec{X: o.X, Y: o.Y})

	case *document.Angle:
		if v, ok := s.vec(o.VertexPointID); ok {
			return Distance(at, v)
		}
	}
	return math.Inf(1)
}

func (s *Scene) vec(pointID string) (Vec, bool) {
	p, ok := s.Point(pointID)
	if !ok {
		return Vec{}, false
	}
	return Vec{X: p.X, Y: p.Y}, true
}

func (s *Scene) vecs(pointIDs []string) ([]Vec, bool) {
	out := make([]Vec, 0, len(pointIDs))
	for _, id := range pointIDs {
		v, ok := s.vec(id)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
