package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/rclancey/earcut"
)

// ErrDegenerate is returned for geometry that has no meaningful measure,
// such as an angle with a zero-length arm.
var ErrDegenerate = errors.New("degenerate geometry")

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Vec is a world-space position.
type Vec struct {
	X, Y float64
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec) Vec {
	return Vec{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// AngleDegrees returns the angle at vertex between the arms towards a and b,
// in [0, 180].
func AngleDegrees(vertex, a, b Vec) (float64, error) {
	ux, uy := a.X-vertex.X, a.Y-vertex.Y
	vx, vy := b.X-vertex.X, b.Y-vertex.Y
	lu, lv := math.Hypot(ux, uy), math.Hypot(vx, vy)
	if lu == 0 || lv == 0 {
		return 0, fmt.Errorf("%w: zero-length arm", ErrDegenerate)
	}
	cos := (ux*vx + uy*vy) / (lu * lv)
	cos = max(-1, min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, nil
}

// DistanceToSegment returns the distance from p to the segment ab.
func DistanceToSegment(p, a, b Vec) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = max(0, min(1, t))
	return Distance(p, Vec{X: a.X + t*dx, Y: a.Y + t*dy})
}

// PolygonArea triangulates the polygon and returns its area. Vertex order
// does not affect the sign.
func PolygonArea(vertices []Vec) (float64, error) {
	if len(vertices) < 3 {
		return 0, fmt.Errorf("%w: %d vertices", ErrDegenerate, len(vertices))
	}

	coords := make([]float64, len(vertices)*2)
	for i, v := range vertices {
		coords[i*2] = v.X
		coords[i*2+1] = v.Y
	}

	indices, err := earcut.Earcut(coords, nil, 2)
	if err != nil {
		return 0, fmt.Errorf("triangulate polygon: %w", err)
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return 0, fmt.Errorf("%w: polygon has no area", ErrDegenerate)
	}

	var area float64
	for i := 0; i < len(indices); i += 3 {
		a, b, c := vertices[indices[i]], vertices[indices[i+1]], vertices[indices[i+2]]
		area += math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
	}
	return area, nil
}

// Centroid returns the vertex average.
func Centroid(vertices []Vec) Vec {
	var c Vec
	if len(vertices) == 0 {
		return c
	}
	for _, v := range vertices {
		c.X += v.X
		c.Y += v.Y
	}
	n := float64(len(vertices))
	return Vec{X: c.X / n, Y: c.Y / n}
}
