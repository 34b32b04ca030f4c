// Package palette picks curve colours and converts the CSS colour strings
// used in draw commands into RGBA for raster output.
package palette

import (
	"fmt"
	"image/color"
	"math/rand"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Theme colours shared by the canvas and the PNG exporter.
const (
	Background   = "#ffffff"
	Grid         = "#e4e7ec"
	Axis         = "#1f2933"
	Text         = "#52606d"
	Point        = "#2f6fdb"
	DerivedPoint = "#e8833a"
	Segment      = "#3e4c59"
	Polygon      = "#7b61ff"
	Angle        = "#0f9d76"
	Preview      = "#9aa5b1"
	Measurement  = "#1f2933"
)

// CurveColor returns a new function colour: random hue at 70% saturation and
// 50% lightness.
func CurveColor(r *rand.Rand) string {
	return colorful.Hsl(r.Float64()*360, 0.7, 0.5).Hex()
}

// WithAlpha returns c as an rgba() string with the given opacity. Unparseable
// input is returned unchanged.
func WithAlpha(c string, alpha float64) string {
	rgba, err := Parse(c)
	if err != nil {
		return c
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", rgba.R, rgba.G, rgba.B, clamp(alpha, 0, 1))
}

// Parse reads a CSS colour in #rgb, #rrggbb, rgb(), rgba() or hsl() form.
// The result is not premultiplied.
func Parse(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	switch {
	case strings.HasPrefix(s, "#"):
		c, err := colorful.Hex(s)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return toNRGBA(c, 1), nil

	case strings.HasPrefix(s, "hsl("):
		var h, sat, l float64
		if _, err := fmt.Sscanf(s, "hsl(%g, %g%%, %g%%)", &h, &sat, &l); err != nil {
			return color.NRGBA{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return toNRGBA(colorful.Hsl(h, sat/100, l/100), 1), nil

	case strings.HasPrefix(s, "rgba("):
		var r, g, b, a float64
		if _, err := fmt.Sscanf(s, "rgba(%g, %g, %g, %g)", &r, &g, &b, &a); err != nil {
			return color.NRGBA{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return toNRGBA(colorful.Color{R: r / 255, G: g / 255, B: b / 255}, a), nil

	case strings.HasPrefix(s, "rgb("):
		var r, g, b float64
		if _, err := fmt.Sscanf(s, "rgb(%g, %g, %g)", &r, &g, &b); err != nil {
			return color.NRGBA{}, fmt.Errorf("parse colour %q: %w", s, err)
		}
		return toNRGBA(colorful.Color{R: r / 255, G: g / 255, B: b / 255}, 1), nil
	}
	return color.NRGBA{}, fmt.Errorf("parse colour %q: unsupported format", s)
}

func toNRGBA(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(clamp(alpha, 0, 1)*255 + 0.5)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
