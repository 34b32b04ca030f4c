package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/expr"
)

var (
	ErrNotFound          = errors.New("object not found")
	ErrDuplicateID       = errors.New("duplicate object id")
	ErrDuplicateName     = errors.New("slider name already in use")
	ErrInvalidExpression = errors.New("invalid expression")
	ErrInvalidObject     = errors.New("invalid object")
	ErrDanglingRef       = errors.New("reference to missing point")
	ErrNoSliderName      = errors.New("no slider names left")
)

// Scene is the ordered collection of graph objects. It owns every object and
// keeps point references resolvable: an object referencing a point never
// outlives it.
type Scene struct {
	objects []document.Object
	byID    map[string]document.Object
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{byID: make(map[string]document.Object)}
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	return len(s.objects)
}

// Objects returns the objects in insertion order. The slice is a copy; the
// objects are not.
func (s *Scene) Objects() []document.Object {
	return append([]document.Object(nil), s.objects...)
}

// Get looks up an object by id.
func (s *Scene) Get(id string) (document.Object, bool) {
	obj, ok := s.byID[id]
	return obj, ok
}

// Point looks up a point by id.
func (s *Scene) Point(id string) (*document.Point, bool) {
	p, ok := s.byID[id].(*document.Point)
	return p, ok
}

// Func looks up a function by id.
func (s *Scene) Func(id string) (*document.Func, bool) {
	f, ok := s.byID[id].(*document.Func)
	return f, ok
}

// Scope returns the slider bindings every function is evaluated under.
func (s *Scene) Scope() expr.Bindings {
	scope := make(expr.Bindings)
	for _, obj := range s.objects {
		if sl, ok := obj.(*document.Slider); ok {
			scope[sl.Name] = sl.Value
		}
	}
	return scope
}

// Add appends obj. Functions are compiled here; an expression that does not
// compile is rejected and nothing is added.
func (s *Scene) Add(obj document.Object) error {
	if err := s.check(obj); err != nil {
		return err
	}
	for _, ref := range obj.PointRefs() {
		if _, ok := s.Point(ref); !ok {
			return fmt.Errorf("%w: %s", ErrDanglingRef, ref)
		}
	}
	if f, ok := obj.(*document.Func); ok && f.Compiled == nil {
		prog, err := expr.Compile(f.Expression)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidExpression, err)
		}
		f.Compiled = prog
	}
	s.insert(obj)
	return nil
}

func (s *Scene) check(obj document.Object) error {
	if obj == nil || obj.ObjectID() == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidObject)
	}
	if _, ok := s.byID[obj.ObjectID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, obj.ObjectID())
	}

	switch o := obj.(type) {
	case *document.Slider:
		if err := validSlider(o); err != nil {
			return err
		}
		if s.sliderNamed(o.Name) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateName, o.Name)
		}
	case *document.Polygon:
		if len(o.PointIDs) < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 points", ErrInvalidObject)
		}
	}
	return nil
}

func validSlider(sl *document.Slider) error {
	if sl.Name == "" || sl.Name == "x" || expr.IsFunction(sl.Name) || expr.IsConstant(sl.Name) {
		return fmt.Errorf("%w: bad slider name %q", ErrInvalidObject, sl.Name)
	}
	if !(sl.Min < sl.Max) {
		return fmt.Errorf("%w: slider min %g not below max %g", ErrInvalidObject, sl.Min, sl.Max)
	}
	if sl.Step < 0 {
		return fmt.Errorf("%w: negative slider step", ErrInvalidObject)
	}
	return nil
}

func (s *Scene) insert(obj document.Object) {
	s.objects = append(s.objects, obj)
	s.byID[obj.ObjectID()] = obj
}

func (s *Scene) sliderNamed(name string) *document.Slider {
	for _, obj := range s.objects {
		if sl, ok := obj.(*document.Slider); ok && sl.Name == name {
			return sl
		}
	}
	return nil
}

// Patch is a partial update. Nil fields are left alone; fields that do not
// apply to the target kind are ignored.
type Patch struct {
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Label      *string  `json:"label,omitempty"`
	Expression *string  `json:"expression,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Name       *string  `json:"name,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Step       *float64 `json:"step,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

// Update merges p into the object with the given id.
//
// A function whose new expression fails to compile keeps its previous
// expression and compiled form. The rejected text and the reason are kept on
// the function until the next successful edit, and the error is returned.
// A slider keeps the name it was added with; a patch naming another is
// rejected.
func (s *Scene) Update(id string, p Patch) error {
	obj, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch o := obj.(type) {
	case *document.Point:
		setFloat(&o.X, p.X)
		setFloat(&o.Y, p.Y)
		setString(&o.Label, p.Label)
		if p.X != nil || p.Y != nil {
			s.remeasure(o.ID)
		}

	case *document.Func:
		setString(&o.Color, p.Color)
		if p.Expression != nil {
			prog, err := expr.Compile(*p.Expression)
			if err != nil {
				o.Rejected = *p.Expression
				o.Err = err.Error()
				return fmt.Errorf("%w: %w", ErrInvalidExpression, err)
			}
			o.Expression = *p.Expression
			o.Compiled = prog
			o.Rejected = ""
			o.Err = ""
		}

	case *document.Slider:
		if p.Name != nil && *p.Name != o.Name {
			return fmt.Errorf("%w: slider %s cannot be renamed", ErrInvalidObject, o.Name)
		}
		next := *o
		setFloat(&next.Min, p.Min)
		setFloat(&next.Max, p.Max)
		setFloat(&next.Step, p.Step)
		setFloat(&next.Value, p.Value)
		if err := validSlider(&next); err != nil {
			return err
		}
		next.Value = min(max(next.Value, next.Min), next.Max)
		*o = next

	case *document.Segment:
		setString(&o.Color, p.Color)
	case *document.Polygon:
		setString(&o.Color, p.Color)
	case *document.Angle:
		setString(&o.Color, p.Color)

	case *document.Measurement:
		setFloat(&o.X, p.X)
		setFloat(&o.Y, p.Y)
		setString(&o.Label, p.Label)
	}
	return nil
}

// remeasure refreshes every distance readout with an endpoint at pointID.
func (s *Scene) remeasure(pointID string) {
	for _, obj := range s.objects {
		m, ok := obj.(*document.Measurement)
		if !ok || (m.Point1ID != pointID && m.Point2ID != pointID) {
			continue
		}
		a, okA := s.Point(m.Point1ID)
		b, okB := s.Point(m.Point2ID)
		if okA && okB {
			measureDistance(m, a, b)
		}
	}
}

// measureDistance labels m with the distance between a and b and anchors it
// at their midpoint.
func measureDistance(m *document.Measurement, a, b *document.Point) {
	va, vb := Vec{X: a.X, Y: a.Y}, Vec{X: b.X, Y: b.Y}
	mid := Midpoint(va, vb)
	m.Label = fmt.Sprintf("%.3f", Distance(va, vb))
	m.X, m.Y = mid.X, mid.Y
	m.Point1ID, m.Point2ID = a.ID, b.ID
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Delete removes the object and everything that can no longer stand without
// it, and returns the removed ids in scene order.
//
// Removing a point removes every segment, polygon, angle and measurement that
// references it. Removing a function removes every derived point in the
// scene, not only the ones computed from that function.
func (s *Scene) Delete(id string) ([]string, error) {
	obj, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	doomed := map[string]bool{id: true}
	if _, ok := obj.(*document.Func); ok {
		for _, o := range s.objects {
			if p, ok := o.(*document.Point); ok && p.IsDerived {
				doomed[p.ID] = true
			}
		}
	}
	return s.removeCascade(doomed), nil
}

// removeCascade removes doomed plus every object referencing a doomed point.
func (s *Scene) removeCascade(doomed map[string]bool) []string {
	for _, o := range s.objects {
		for _, ref := range o.PointRefs() {
			if doomed[ref] {
				doomed[o.ObjectID()] = true
				break
			}
		}
	}

	var removed []string
	kept := s.objects[:0]
	for _, o := range s.objects {
		if doomed[o.ObjectID()] {
			removed = append(removed, o.ObjectID())
			delete(s.byID, o.ObjectID())
			continue
		}
		kept = append(kept, o)
	}
	for i := len(kept); i < len(s.objects); i++ {
		s.objects[i] = nil
	}
	s.objects = kept
	return removed
}

// ReplaceDerived removes derived points whose label starts with prefix, and
// anything built on them, then appends points.
func (s *Scene) ReplaceDerived(prefix string, points []*document.Point) ([]string, error) {
	doomed := make(map[string]bool)
	for _, o := range s.objects {
		if p, ok := o.(*document.Point); ok && p.IsDerived && strings.HasPrefix(p.Label, prefix) {
			doomed[p.ID] = true
		}
	}
	for _, p := range points {
		if _, ok := s.byID[p.ID]; ok && !doomed[p.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
	}

	removed := s.removeCascade(doomed)
	for _, p := range points {
		s.insert(p)
	}
	return removed, nil
}

// NextSliderName returns the name for a new slider: the letter at the
// position given by the current slider count, moving on past names already
// taken. Names are never reused for renaming, so deleting "b" leaves "c"
// alone and the next slider may receive "b" only after "c".."z" are taken.
func (s *Scene) NextSliderName() (string, error) {
	count := 0
	for _, o := range s.objects {
		if _, ok := o.(*document.Slider); ok {
			count++
		}
	}
	for i := 0; i < 26; i++ {
		name := string(rune('a' + (count+i)%26))
		if name == "x" || name == "e" {
			continue
		}
		if s.sliderNamed(name) == nil {
			return name, nil
		}
	}
	return "", ErrNoSliderName
}

// Load replaces the scene with objects, recompiling every function. A
// function whose saved expression no longer compiles is kept, flagged with
// its error, and not drawn. The scene is left untouched on error.
func (s *Scene) Load(objects []document.Object) error {
	next := NewScene()
	for _, obj := range objects {
		if err := next.check(obj); err != nil {
			return err
		}
		if f, ok := obj.(*document.Func); ok {
			f.Compiled = nil
			prog, err := expr.Compile(f.Expression)
			if err != nil {
				f.Err = err.Error()
			} else {
				f.Compiled = prog
				f.Err = ""
			}
		}
		next.insert(obj)
	}
	for _, obj := range next.objects {
		for _, ref := range obj.PointRefs() {
			if _, ok := next.Point(ref); !ok {
				return fmt.Errorf("%w: %s references %s", ErrDanglingRef, obj.ObjectID(), ref)
			}
		}
	}

	*s = *next
	return nil
}

// Clone returns a deep copy. Compiled programs are shared; they are
// immutable.
func (s *Scene) Clone() *Scene {
	c := NewScene()
	for _, obj := range s.objects {
		c.insert(obj.Clone())
	}
	return c
}
