package engine

import "fmt"

// Tool is the active construction or inspection tool.
type Tool int

const (
	ToolMove      Tool = iota // Pan the view
	ToolPoint                 // Place a point
	ToolSlider                // Add a slider
	ToolIntersect             // Pick two functions, mark their crossings
	ToolExtremum              // Mark the turning points of a function
	ToolRoots                 // Mark the zeros of a function
	ToolBestFit               // Least-squares line through placed points
	ToolSegment               // Two points, joined
	ToolPolygon               // Vertex by vertex, closed on the first
	ToolDistance              // Two existing points, measured
	ToolAngle                 // Vertex then two arms
	ToolMidpoint              // Point halfway between two existing points
	ToolTangent               // Tangent line to a function at the click
	ToolSelect                // Toggle selection
	ToolDelete                // Remove an object and its dependents
)

var toolNames = [...]string{
	ToolMove:      "move",
	ToolPoint:     "point",
	ToolSlider:    "slider",
	ToolIntersect: "intersect",
	ToolExtremum:  "extremum",
	ToolRoots:     "roots",
	ToolBestFit:   "best-fit",
	ToolSegment:   "segment",
	ToolPolygon:   "polygon",
	ToolDistance:  "distance",
	ToolAngle:     "angle",
	ToolMidpoint:  "midpoint",
	ToolTangent:   "tangent",
	ToolSelect:    "select",
	ToolDelete:    "delete",
}

// String returns the tool name used by the frontend.
func (t Tool) String() string {
	if t >= 0 && int(t) < len(toolNames) {
		return toolNames[t]
	}
	return "unknown"
}

// ParseTool looks up a tool by name.
func ParseTool(name string) (Tool, error) {
	for i, n := range toolNames {
		if n == name {
			return Tool(i), nil
		}
	}
	return ToolMove, fmt.Errorf("unknown tool %q", name)
}

func (t Tool) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tool) UnmarshalText(b []byte) error {
	parsed, err := ParseTool(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Tools lists every tool in sidebar order.
func Tools() []Tool {
	out := make([]Tool, len(toolNames))
	for i := range out {
		out[i] = Tool(i)
	}
	return out
}

// Angle construction steps: the role of the next click.
const (
	StepVertex = "vertex"
	StepArm1   = "arm1"
	StepArm2   = "arm2"
)

// Interaction is an in-progress multi-click construction. A nil
// *Interaction means idle.
type Interaction struct {
	Tool     Tool     `json:"tool"`
	PointIDs []string `json:"pointIds"`
	// Step is set for the angle tool only.
	Step string `json:"step,omitempty"`
}

// Notice levels.
const (
	NoticeInfo  = "info"
	NoticeError = "error"
)

// Notice is a user-visible message produced by a tool action.
type Notice struct {
	Level       string `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
