package engine

// TextAlign is the horizontal anchor for FillText.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// Surface is a 2D drawing target with Canvas2D semantics. Coordinates are in
// surface pixels after any Save/Translate/Scale state. Colours are CSS
// strings.
type Surface interface {
	// Size returns the surface size in device pixels.
	Size() (width, height float64)
	Clear(color string)

	Save()
	Restore()
	Translate(x, y float64)
	Scale(x, y float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	// Arc adds a circular arc from startAngle to endAngle (radians, clockwise
	// in screen space unless counterclockwise is set).
	Arc(x, y, radius, startAngle, endAngle float64, counterclockwise bool)
	ClosePath()
	Stroke()
	Fill()

	SetStrokeStyle(color string)
	SetFillStyle(color string)
	SetLineWidth(width float64)
	// SetShadow sets a glow drawn under strokes. A zero blur disables it.
	SetShadow(color string, blur float64)
	SetFontSize(px float64)
	SetTextAlign(align TextAlign)
	FillText(text string, x, y float64)
}

// ObjectTagger is implemented by surfaces that can attribute the commands
// that follow to a scene object. An empty id ends the attribution.
type ObjectTagger interface {
	TagObject(id string)
}
