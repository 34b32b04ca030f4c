package engine

import (
	"encoding/json"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "clear", "save", "restore", "transform", "stroke", "fill", "text"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] for "transform"
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "stroke" and "fill"
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	ShadowColor string        `json:"shadowColor,omitempty"` // Glow color
	ShadowBlur  float64       `json:"shadowBlur,omitempty"`  // Glow radius
	Text        string        `json:"text,omitempty"`        // For "text"
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	Align       TextAlign     `json:"align,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["A", x, y, r, start, end, ccw], ["Z"].
type PathCommand []interface{}

type drawState struct {
	stroke      string
	fill        string
	lineWidth   float64
	shadowColor string
	shadowBlur  float64
	fontSize    float64
	align       TextAlign
}

// CommandBuffer is a Surface that records draw commands instead of
// rasterizing. Each stroke, fill or text command carries its full style so
// the replaying side needs no state of its own beyond save/restore and
// transforms.
type CommandBuffer struct {
	width, height float64
	commands      []DrawCommand
	path          []PathCommand
	state         drawState
	stack         []drawState
	objectID      string
}

// NewCommandBuffer creates a buffer for a surface of the given pixel size.
func NewCommandBuffer(width, height float64) *CommandBuffer {
	return &CommandBuffer{
		width:  width,
		height: height,
		state:  drawState{stroke: "#000000", fill: "#000000", lineWidth: 1, fontSize: 10, align: AlignLeft},
	}
}

// Commands returns the recorded commands in painter's order.
func (b *CommandBuffer) Commands() []DrawCommand {
	return b.commands
}

// JSON serializes the recorded commands.
func (b *CommandBuffer) JSON() (string, error) {
	return DrawCommandsToJSON(b.commands)
}

func (b *CommandBuffer) Size() (float64, float64) {
	return b.width, b.height
}

func (b *CommandBuffer) TagObject(id string) {
	b.objectID = id
}

func (b *CommandBuffer) Clear(color string) {
	b.commands = append(b.commands, DrawCommand{Op: "clear", Fill: color})
}

func (b *CommandBuffer) Save() {
	b.stack = append(b.stack, b.state)
	b.commands = append(b.commands, DrawCommand{Op: "save"})
}

func (b *CommandBuffer) Restore() {
	if n := len(b.stack); n > 0 {
		b.state = b.stack[n-1]
		b.stack = b.stack[:n-1]
	}
	b.commands = append(b.commands, DrawCommand{Op: "restore"})
}

func (b *CommandBuffer) Translate(x, y float64) {
	b.commands = append(b.commands, DrawCommand{Op: "transform", Transform: Translate(x, y).ToSlice()})
}

func (b *CommandBuffer) Scale(x, y float64) {
	b.commands = append(b.commands, DrawCommand{Op: "transform", Transform: Scale(x, y).ToSlice()})
}

func (b *CommandBuffer) BeginPath() {
	b.path = nil
}

func (b *CommandBuffer) MoveTo(x, y float64) {
	b.path = append(b.path, PathCommand{"M", x, y})
}

func (b *CommandBuffer) LineTo(x, y float64) {
	b.path = append(b.path, PathCommand{"L", x, y})
}

func (b *CommandBuffer) Arc(x, y, radius, startAngle, endAngle float64, counterclockwise bool) {
	b.path = append(b.path, PathCommand{"A", x, y, radius, startAngle, endAngle, counterclockwise})
}

func (b *CommandBuffer) ClosePath() {
	b.path = append(b.path, PathCommand{"Z"})
}

func (b *CommandBuffer) Stroke() {
	if len(b.path) == 0 {
		return
	}
	b.commands = append(b.commands, DrawCommand{
		Op:          "stroke",
		ObjectID:    b.objectID,
		Path:        b.path,
		Stroke:      b.state.stroke,
		StrokeWidth: b.state.lineWidth,
		ShadowColor: b.state.shadowColor,
		ShadowBlur:  b.state.shadowBlur,
	})
}

func (b *CommandBuffer) Fill() {
	if len(b.path) == 0 {
		return
	}
	b.commands = append(b.commands, DrawCommand{
		Op:       "fill",
		ObjectID: b.objectID,
		Path:     b.path,
		Fill:     b.state.fill,
	})
}

func (b *CommandBuffer) SetStrokeStyle(color string) { b.state.stroke = color }
func (b *CommandBuffer) SetFillStyle(color string)   { b.state.fill = color }
func (b *CommandBuffer) SetLineWidth(width float64)  { b.state.lineWidth = width }
func (b *CommandBuffer) SetFontSize(px float64)      { b.state.fontSize = px }
func (b *CommandBuffer) SetTextAlign(a TextAlign)    { b.state.align = a }

func (b *CommandBuffer) SetShadow(color string, blur float64) {
	b.state.shadowColor = color
	b.state.shadowBlur = blur
	if blur <= 0 {
		b.state.shadowColor = ""
		b.state.shadowBlur = 0
	}
}

func (b *CommandBuffer) FillText(text string, x, y float64) {
	b.commands = append(b.commands, DrawCommand{
		Op:       "text",
		ObjectID: b.objectID,
		Text:     text,
		X:        x,
		Y:        y,
		Fill:     b.state.fill,
		FontSize: b.state.fontSize,
		Align:    b.state.align,
	})
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r Rect) string {
	data, _ := json.Marshal(map[string]float64{
		"x":      r.X,
		"y":      r.Y,
		"width":  r.Width,
		"height": r.Height,
	})
	return string(data)
}
