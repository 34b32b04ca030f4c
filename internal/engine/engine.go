package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/geocalc/geocalc/backend-go/internal/document"
	"github.com/geocalc/geocalc/backend-go/internal/palette"
	"github.com/geocalc/geocalc/backend-go/internal/typeid"
)

// DefaultExpression is the curve a new function starts with.
const DefaultExpression = "x^2"

// Options tunes input handling and analysis.
type Options struct {
	ClickTolerance float64 // hit radius in pixels
	DragThreshold  float64 // pixels of travel before a press counts as a drag
	ZoomFactor     float64 // zoom multiplier per wheel notch
	MinZoom        float64
	GridMinSpacing float64 // pixels
	PixelRatio     float64 // device pixels per CSS pixel
	Analysis       Analysis
	Seed           int64 // curve colour seed; 0 seeds from the clock
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		ClickTolerance: 20,
		DragThreshold:  2,
		ZoomFactor:     1.1,
		MinZoom:        0.1,
		GridMinSpacing: 60,
		PixelRatio:     1,
		Analysis:       DefaultAnalysis(),
	}
}

// Engine is the graphing engine that owns the scene, view and tool state.
// It processes commands from the frontend and returns query results.
// An Engine is not safe for concurrent use.
type Engine struct {
	opts     Options
	scene    *Scene
	view     View
	renderer *Renderer

	// Tool state
	tool        Tool
	interaction *Interaction
	selection   []string

	// Messages for the frontend, drained by TakeNotices
	notices []Notice

	pointer pointerState
	rng     *rand.Rand
}

type pointerState struct {
	down         bool
	downX, downY float64
	lastX, lastY float64
	over         bool
	x, y         float64
}

// NewEngine creates an engine with default options.
func NewEngine() *Engine {
	return NewEngineWithOptions(DefaultOptions())
}

// NewEngineWithOptions creates an engine with the given options.
func NewEngineWithOptions(opts Options) *Engine {
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		opts:     opts,
		scene:    NewScene(),
		view:     NewView(800, 600),
		renderer: &Renderer{GridMinSpacing: opts.GridMinSpacing},
		tool:     ToolMove,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// --- Commands (frontend → backend) ---

// SetTool switches tools. Any construction in progress is dropped without
// touching the scene, and the selection is cleared.
func (e *Engine) SetTool(t Tool) {
	e.tool = t
	e.interaction = nil
	e.selection = nil
}

// SetToolByName switches tools by frontend name.
func (e *Engine) SetToolByName(name string) error {
	t, err := ParseTool(name)
	if err != nil {
		return err
	}
	e.SetTool(t)
	return nil
}

// SetViewport sets the surface size in CSS pixels.
func (e *Engine) SetViewport(width, height float64) {
	e.view.SetViewport(width, height)
}

// SetPixelRatio sets device pixels per CSS pixel.
func (e *Engine) SetPixelRatio(ratio float64) {
	if ratio > 0 {
		e.opts.PixelRatio = ratio
	}
}

// SetViewTransform restores pan and zoom.
func (e *Engine) SetViewTransform(t document.ViewTransform) {
	e.view.SetTransform(t)
}

// ResetView returns to the origin at the default zoom.
func (e *Engine) ResetView() {
	e.view.SetTransform(document.DefaultViewTransform())
}

// AddFunction adds a curve. An empty expression gets DefaultExpression.
func (e *Engine) AddFunction(expression string) (string, error) {
	if expression == "" {
		expression = DefaultExpression
	}
	f := &document.Func{
		ID:         typeid.NewFunctionID(),
		Expression: expression,
		Color:      palette.CurveColor(e.rng),
	}
	if err := e.scene.Add(f); err != nil {
		e.notify(NoticeError, "Invalid expression", err.Error())
		return "", err
	}
	return f.ID, nil
}

// AddSlider adds a slider named by NextSliderName, ranging -5..5 in steps of
// 0.1 with value 1.
func (e *Engine) AddSlider() (string, error) {
	name, err := e.scene.NextSliderName()
	if err != nil {
		e.notify(NoticeError, "Too many sliders", "Every slider name is taken.")
		return "", err
	}
	s := &document.Slider{ID: typeid.NewSliderID(), Name: name, Min: -5, Max: 5, Step: 0.1, Value: 1}
	if err := e.scene.Add(s); err != nil {
		return "", err
	}
	return s.ID, nil
}

// AddPoint places a user point at a world position.
func (e *Engine) AddPoint(x, y float64) (string, error) {
	p := &document.Point{ID: typeid.NewPointID(), X: x, Y: y, Label: fmt.Sprintf("(%.2f, %.2f)", x, y)}
	if err := e.scene.Add(p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// UpdateObject merges a patch into an object. See Scene.Update.
func (e *Engine) UpdateObject(id string, p Patch) error {
	err := e.scene.Update(id, p)
	if errors.Is(err, ErrInvalidExpression) {
		e.notify(NoticeError, "Invalid expression", err.Error())
	}
	return err
}

// DeleteObject removes an object with its dependents and forgets them in
// the selection and in any construction in progress.
func (e *Engine) DeleteObject(id string) ([]string, error) {
	removed, err := e.scene.Delete(id)
	if err != nil {
		return nil, err
	}
	e.forget(removed)
	return removed, nil
}

func (e *Engine) forget(removed []string) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}

	kept := e.selection[:0]
	for _, id := range e.selection {
		if !gone[id] {
			kept = append(kept, id)
		}
	}
	e.selection = kept

	if e.interaction != nil {
		for _, id := range e.interaction.PointIDs {
			if gone[id] {
				e.interaction = nil
				break
			}
		}
	}
}

// SetSelection sets the selected object IDs.
func (e *Engine) SetSelection(ids []string) {
	e.selection = append([]string(nil), ids...)
}

// LoadSnapshot replaces the scene and view with a saved graph.
func (e *Engine) LoadSnapshot(data []byte) error {
	snap, err := document.DecodeSnapshot(data)
	if err != nil {
		return err
	}
	return e.loadSnapshot(snap)
}

func (e *Engine) loadSnapshot(snap *document.Snapshot) error {
	objects, err := snap.Decode()
	if err != nil {
		return err
	}
	if err := e.scene.Load(objects); err != nil {
		return err
	}
	e.view.SetTransform(snap.ViewTransform)
	e.interaction = nil
	e.selection = nil
	return nil
}

// LoadSample loads the built-in demo graph.
func (e *Engine) LoadSample() error {
	snap, err := document.NewSampleSnapshot()
	if err != nil {
		return err
	}
	return e.loadSnapshot(snap)
}

// Tick renders the current state and returns draw commands.
// This is called once per animation frame from the frontend.
func (e *Engine) Tick() string {
	return e.Render()
}

// --- Queries (frontend ← backend) ---

// Render draws the scene into a command buffer and returns it as JSON.
func (e *Engine) Render() string {
	r := e.opts.PixelRatio
	buf := NewCommandBuffer(e.view.Width*r, e.view.Height*r)
	e.RenderTo(buf)
	result, _ := buf.JSON()
	return result
}

// RenderTo draws one frame onto s. The viewport follows the surface size.
func (e *Engine) RenderTo(s Surface) {
	w, h := s.Size()
	e.view.SetViewport(w/e.opts.PixelRatio, h/e.opts.PixelRatio)
	e.renderer.Draw(s, e.frame())
}

func (e *Engine) frame() Frame {
	f := Frame{
		Scene:       e.scene,
		View:        e.view,
		Selection:   e.selection,
		Interaction: e.interaction,
		PixelRatio:  e.opts.PixelRatio,
	}
	if e.pointer.over {
		x, y := e.view.ScreenToWorld(e.pointer.x, e.pointer.y)
		f.Cursor = &Vec{X: x, Y: y}
	}
	return f
}

// Snapshot serializes the scene and view for saving. Compiled expressions
// are left out.
func (e *Engine) Snapshot() ([]byte, error) {
	return document.EncodeSnapshot(e.scene.Objects(), e.view.Transform())
}

// Scene returns the live scene.
func (e *Engine) Scene() *Scene {
	return e.scene
}

// View returns the current view.
func (e *Engine) View() View {
	return e.view
}

// Tool returns the active tool.
func (e *Engine) Tool() Tool {
	return e.tool
}

// Interaction returns a copy of the construction in progress, or nil.
func (e *Engine) Interaction() *Interaction {
	if e.interaction == nil {
		return nil
	}
	c := *e.interaction
	c.PointIDs = append([]string(nil), e.interaction.PointIDs...)
	return &c
}

// Selection returns the selected object IDs.
func (e *Engine) Selection() []string {
	return append([]string(nil), e.selection...)
}

// SelectionBounds returns the world-space box around the selected points,
// segments, polygons and angles.
func (e *Engine) SelectionBounds() Rect {
	var out Rect
	first := true
	for _, id := range e.selection {
		obj, ok := e.scene.Get(id)
		if !ok {
			continue
		}
		ids := obj.PointRefs()
		if p, ok := obj.(*document.Point); ok {
			ids = []string{p.ID}
		}
		vs, ok := e.scene.vecs(ids)
		if !ok {
			continue
		}
		for _, v := range vs {
			r := Rect{X: v.X, Y: v.Y}
			if first {
				out, first = r, false
				continue
			}
			minX, minY := min(out.X, r.X), min(out.Y, r.Y)
			maxX, maxY := max(out.X+out.Width, r.X), max(out.Y+out.Height, r.Y)
			out = Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
		}
	}
	return out
}

// HitTest returns the id of the object nearest a surface position within the
// click tolerance, or "".
func (e *Engine) HitTest(sx, sy float64) string {
	x, y := e.view.ScreenToWorld(sx, sy)
	if obj, ok := e.scene.ClosestObject(x, y, e.view.Tolerance(e.opts.ClickTolerance)); ok {
		return obj.ObjectID()
	}
	return ""
}

// TakeNotices returns and clears pending user messages.
func (e *Engine) TakeNotices() []Notice {
	n := e.notices
	e.notices = nil
	return n
}

func (e *Engine) notify(level, title, description string) {
	e.notices = append(e.notices, Notice{Level: level, Title: title, Description: description})
}

// ObjectInfo describes one object for the objects panel.
type ObjectInfo struct {
	ID       string          `json:"id"`
	Kind     document.Kind   `json:"kind"`
	Label    string          `json:"label"`
	Error    string          `json:"error,omitempty"`
	Rejected string          `json:"rejected,omitempty"`
	Length   *float64        `json:"length,omitempty"`
	Area     *float64        `json:"area,omitempty"`
	Degrees  *float64        `json:"degrees,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// Describe returns panel information for one object, including its measure
// where it has one.
func (e *Engine) Describe(id string) (ObjectInfo, error) {
	obj, ok := e.scene.Get(id)
	if !ok {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	node, err := document.NewObjectNode(obj)
	if err != nil {
		return ObjectInfo{}, err
	}
	info := ObjectInfo{ID: id, Kind: obj.Kind(), Data: node.Data}

	switch o := obj.(type) {
	case *document.Point:
		info.Label = o.Label
	case *document.Func:
		info.Label = "y = " + o.Expression
		info.Error = o.Err
		info.Rejected = o.Rejected
	case *document.Slider:
		info.Label = fmt.Sprintf("%s = %g", o.Name, o.Value)
	case *document.Segment:
		info.Label = "Segment"
		if vs, ok := e.scene.vecs(o.PointRefs()); ok {
			d := Distance(vs[0], vs[1])
			info.Length = &d
		}
	case *document.Polygon:
		info.Label = fmt.Sprintf("Polygon (%d vertices)", len(o.PointIDs))
		if vs, ok := e.scene.vecs(o.PointIDs); ok {
			if a, err := PolygonArea(vs); err == nil {
				info.Area = &a
			}
		}
	case *document.Measurement:
		info.Label = o.Label
	case *document.Angle:
		info.Label = "Angle"
		if vs, ok := e.scene.vecs([]string{o.VertexPointID, o.Arm1PointID, o.Arm2PointID}); ok {
			if deg, err := AngleDegrees(vs[0], vs[1], vs[2]); err == nil {
				info.Degrees = &deg
			}
		}
	}
	return info, nil
}

// ObjectsJSON returns Describe for every object, in scene order, as JSON.
func (e *Engine) ObjectsJSON() string {
	infos := make([]ObjectInfo, 0, e.scene.Len())
	for _, obj := range e.scene.objects {
		if info, err := e.Describe(obj.ObjectID()); err == nil {
			infos = append(infos, info)
		}
	}
	data, _ := json.Marshal(infos)
	return string(data)
}
