package document

import "github.com/geocalc/geocalc/backend-go/internal/typeid"

// NewSampleObjects returns a small demo graph: a sine wave, a parabola
// shifted by slider a, and a segment between two points.
func NewSampleObjects() []Object {
	p1 := &Point{ID: typeid.NewPointID(), X: -2, Y: 1, Label: "(-2, 1)"}
	p2 := &Point{ID: typeid.NewPointID(), X: 3, Y: 2, Label: "(3, 2)"}

	return []Object{
		&Slider{ID: typeid.NewSliderID(), Name: "a", Min: -5, Max: 5, Step: 0.1, Value: 1},
		&Func{ID: typeid.NewFunctionID(), Expression: "sin(x)", Color: "#2f7fd9"},
		&Func{ID: typeid.NewFunctionID(), Expression: "x^2 - a", Color: "#d9462f"},
		p1,
		p2,
		&Segment{ID: typeid.NewSegmentID(), Point1ID: p1.ID, Point2ID: p2.ID, Color: "#2a9d4b"},
	}
}

// NewSampleSnapshot returns the demo graph with the default view.
func NewSampleSnapshot() (*Snapshot, error) {
	return NewSnapshot(NewSampleObjects(), DefaultViewTransform())
}
