package palette

import (
	"image/color"
	"math/rand"
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestCurveColor(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		c := CurveColor(r)
		if !strings.HasPrefix(c, "#") || len(c) != 7 {
			t.Fatalf("CurveColor() = %q, want #rrggbb", c)
		}
		parsed, err := colorful.Hex(c)
		if err != nil {
			t.Fatal(err)
		}
		_, s, l := parsed.Hsl()
		if s < 0.65 || s > 0.75 || l < 0.45 || l > 0.55 {
			t.Errorf("CurveColor() = %q has s=%.2f l=%.2f", c, s, l)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff0000", color.NRGBA{255, 0, 0, 255}},
		{"#0f0", color.NRGBA{0, 255, 0, 255}},
		{"rgb(0, 0, 255)", color.NRGBA{0, 0, 255, 255}},
		{"rgba(10, 20, 30, 0.5)", color.NRGBA{10, 20, 30, 128}},
		{"hsl(0, 100%, 50%)", color.NRGBA{255, 0, 0, 255}},
		{"  #FFFFFF ", color.NRGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "red", "#12", "hsl(x)"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded", bad)
		}
	}
}

func TestWithAlpha(t *testing.T) {
	if got := WithAlpha("#ff0000", 0.2); got != "rgba(255, 0, 0, 0.2)" {
		t.Errorf("WithAlpha = %q", got)
	}
	if got := WithAlpha("nonsense", 0.2); got != "nonsense" {
		t.Errorf("WithAlpha passthrough = %q", got)
	}
}
