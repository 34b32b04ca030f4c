package document

import (
	"encoding/json"
	"fmt"

	"github.com/geocalc/geocalc/backend-go/internal/expr"
)

type Kind string

const (
	KindPoint       Kind = "point"
	KindFunction    Kind = "function"
	KindSlider      Kind = "slider"
	KindSegment     Kind = "segment"
	KindPolygon     Kind = "polygon"
	KindMeasurement Kind = "measurement"
	KindAngle       Kind = "angle"
)

// Object is one graph object. The set of implementations is closed.
type Object interface {
	ObjectID() string
	Kind() Kind
	// PointRefs lists the point ids the object references without owning.
	PointRefs() []string
	// Clone returns a deep copy.
	Clone() Object
	isObject()
}

type Point struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Label     string  `json:"label,omitempty"`
	IsDerived bool    `json:"isDerived,omitempty"`
}

// Func is a graphed curve y = f(x). Compiled always matches Expression; a
// rejected edit is kept in Rejected with the reason in Err.
type Func struct {
	ID         string        `json:"id"`
	Expression string        `json:"expression"`
	Color      string        `json:"color"`
	Compiled   *expr.Program `json:"-"`
	Err        string        `json:"-"`
	Rejected   string        `json:"-"`
}

type Slider struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
	Value float64 `json:"value"`
}

type Segment struct {
	ID       string `json:"id"`
	Point1ID string `json:"point1Id"`
	Point2ID string `json:"point2Id"`
	Color    string `json:"color"`
}

type Polygon struct {
	ID       string   `json:"id"`
	PointIDs []string `json:"pointIds"`
	Color    string   `json:"color"`
}

// Measurement is a text annotation at a world location. Distance readouts
// remember their endpoints so they go away with them.
type Measurement struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Point1ID string  `json:"point1Id,omitempty"`
	Point2ID string  `json:"point2Id,omitempty"`
}

type Angle struct {
	ID            string `json:"id"`
	Arm1PointID   string `json:"arm1PointId"`
	VertexPointID string `json:"vertexPointId"`
	Arm2PointID   string `json:"arm2PointId"`
	Color         string `json:"color"`
}

func (p *Point) ObjectID() string       { return p.ID }
func (f *Func) ObjectID() string        { return f.ID }
func (s *Slider) ObjectID() string      { return s.ID }
func (s *Segment) ObjectID() string     { return s.ID }
func (p *Polygon) ObjectID() string     { return p.ID }
func (m *Measurement) ObjectID() string { return m.ID }
func (a *Angle) ObjectID() string       { return a.ID }

func (*Point) Kind() Kind       { return KindPoint }
func (*Func) Kind() Kind        { return KindFunction }
func (*Slider) Kind() Kind      { return KindSlider }
func (*Segment) Kind() Kind     { return KindSegment }
func (*Polygon) Kind() Kind     { return KindPolygon }
func (*Measurement) Kind() Kind { return KindMeasurement }
func (*Angle) Kind() Kind       { return KindAngle }

func (*Point) PointRefs() []string  { return nil }
func (*Func) PointRefs() []string   { return nil }
func (*Slider) PointRefs() []string { return nil }

func (s *Segment) PointRefs() []string { return []string{s.Point1ID, s.Point2ID} }
func (p *Polygon) PointRefs() []string { return p.PointIDs }
func (a *Angle) PointRefs() []string {
	return []string{a.Arm1PointID, a.VertexPointID, a.Arm2PointID}
}

func (m *Measurement) PointRefs() []string {
	var refs []string
	if m.Point1ID != "" {
		refs = append(refs, m.Point1ID)
	}
	if m.Point2ID != "" {
		refs = append(refs, m.Point2ID)
	}
	return refs
}

func (p *Point) Clone() Object       { c := *p; return &c }
func (f *Func) Clone() Object        { c := *f; return &c }
func (s *Slider) Clone() Object      { c := *s; return &c }
func (s *Segment) Clone() Object     { c := *s; return &c }
func (m *Measurement) Clone() Object { c := *m; return &c }
func (a *Angle) Clone() Object       { c := *a; return &c }
func (p *Polygon) Clone() Object {
	c := *p
	c.PointIDs = append([]string(nil), p.PointIDs...)
	return &c
}

func (*Point) isObject()       {}
func (*Func) isObject()        {}
func (*Slider) isObject()      {}
func (*Segment) isObject()     {}
func (*Polygon) isObject()     {}
func (*Measurement) isObject() {}
func (*Angle) isObject()       {}

// DefaultZoom is the pixels-per-unit scale of a fresh view.
const DefaultZoom = 50

// ViewTransform is the persisted pan/zoom state.
type ViewTransform struct {
	PanX float64 `json:"x"`
	PanY float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

func DefaultViewTransform() ViewTransform {
	return ViewTransform{Zoom: DefaultZoom}
}

// ObjectNode is the serialized form of an Object: a kind tag plus the
// variant's fields.
type ObjectNode struct {
	ID   string          `json:"id"`
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Snapshot is a saved graph.
type Snapshot struct {
	Objects       []ObjectNode  `json:"objects"`
	ViewTransform ViewTransform `json:"viewTransform"`
}

// NewObjectNode serializes obj. Compiled expressions are not carried.
func NewObjectNode(obj Object) (ObjectNode, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return ObjectNode{}, fmt.Errorf("encode %s %s: %w", obj.Kind(), obj.ObjectID(), err)
	}
	return ObjectNode{ID: obj.ObjectID(), Type: obj.Kind(), Data: data}, nil
}

// Decode returns the Object held by the node. Functions come back
// uncompiled.
func (n ObjectNode) Decode() (Object, error) {
	var obj Object
	switch n.Type {
	case KindPoint:
		obj = &Point{}
	case KindFunction:
		obj = &Func{}
	case KindSlider:
		obj = &Slider{}
	case KindSegment:
		obj = &Segment{}
	case KindPolygon:
		obj = &Polygon{}
	case KindMeasurement:
		obj = &Measurement{}
	case KindAngle:
		obj = &Angle{}
	default:
		return nil, fmt.Errorf("unknown object type %q", n.Type)
	}
	if err := json.Unmarshal(n.Data, obj); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", n.Type, n.ID, err)
	}
	if obj.ObjectID() == "" {
		return nil, fmt.Errorf("decode %s: missing id", n.Type)
	}
	return obj, nil
}

// NewSnapshot builds a snapshot from live objects.
func NewSnapshot(objects []Object, view ViewTransform) (*Snapshot, error) {
	s := &Snapshot{Objects: make([]ObjectNode, 0, len(objects)), ViewTransform: view}
	for _, obj := range objects {
		node, err := NewObjectNode(obj)
		if err != nil {
			return nil, err
		}
		s.Objects = append(s.Objects, node)
	}
	return s, nil
}

// EncodeSnapshot serializes objects and view to JSON.
func EncodeSnapshot(objects []Object, view ViewTransform) ([]byte, error) {
	s, err := NewSnapshot(objects, view)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses a saved graph. A missing or non-positive zoom is
// replaced by DefaultZoom.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.ViewTransform.Zoom <= 0 {
		s.ViewTransform.Zoom = DefaultZoom
	}
	return &s, nil
}

// Decode returns the snapshot's objects in saved order.
func (s *Snapshot) Decode() ([]Object, error) {
	objects := make([]Object, 0, len(s.Objects))
	for _, n := range s.Objects {
		obj, err := n.Decode()
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}
