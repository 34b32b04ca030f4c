package engine

import (
	"fmt"
	"math"

	"github.com/geocalc/geocalc/backend-go/internal/expr"
)

// Label prefixes for derived points. A new search replaces every earlier
// point carrying the same prefix.
const (
	PrefixRoot      = "Root"
	PrefixIntersect = "Intersect"
	PrefixExtremum  = "Extremum"
)

// Analysis holds the numeric search parameters.
type Analysis struct {
	Steps     int     // scan subintervals across the range
	Tolerance float64 // bisection tolerance
	MaxIter   int     // bisection iteration cap
}

// DefaultAnalysis returns the standard search parameters.
func DefaultAnalysis() Analysis {
	return Analysis{Steps: 1000, Tolerance: 1e-7, MaxIter: 100}
}

// Derived is a located point, before it becomes a scene object.
type Derived struct {
	X, Y float64
}

// Label formats the point the way derived points are labelled in the scene.
func (d Derived) Label(prefix string) string {
	return fmt.Sprintf("%s (%.2f, %.2f)", prefix, d.X, d.Y)
}

// Bisect finds a root of f in [a, b]. An endpoint already within tol of zero
// is returned as is. Without a sign change it reports false. Otherwise it
// halves the bracket until the half-width drops below tol, f hits zero
// exactly, or maxIter halvings have run, and returns the last midpoint.
func Bisect(f func(float64) float64, a, b, tol float64, maxIter int) (float64, bool) {
	fa := f(a)
	if math.Abs(fa) < tol {
		return a, true
	}
	fb := f(b)
	if math.Abs(fb) < tol {
		return b, true
	}
	if !finite(fa) || !finite(fb) || fa*fb >= 0 {
		return 0, false
	}

	c := a
	for i := 0; i < maxIter; i++ {
		c = (a + b) / 2
		fc := f(c)
		if fc == 0 || (b-a)/2 < tol {
			return c, true
		}
		if fa*fc < 0 {
			b = c
		} else {
			a = c
			fa = fc
		}
	}
	return c, true
}

// ScanRoots samples f at steps+1 evenly spaced points over [lo, hi] and
// bisects every subinterval whose ends differ in sign. A sample that is
// exactly zero is reported as a root. Roots closer together than one step,
// and roots where f touches zero without crossing, are missed.
func (an Analysis) ScanRoots(f func(float64) float64, lo, hi float64) []float64 {
	if an.Steps <= 0 || !(hi > lo) {
		return nil
	}
	step := (hi - lo) / float64(an.Steps)

	var roots []float64
	push := func(r float64) {
		if n := len(roots); n > 0 && math.Abs(r-roots[n-1]) < step/2 {
			return
		}
		roots = append(roots, r)
	}

	x0 := lo
	y0 := f(x0)
	for i := 1; i <= an.Steps; i++ {
		x1 := lo + float64(i)*step
		y1 := f(x1)
		switch {
		case y0 == 0:
			push(x0)
		case finite(y0) && finite(y1) && y0*y1 < 0:
			if r, ok := Bisect(f, x0, x1, an.Tolerance, an.MaxIter); ok {
				push(r)
			}
		}
		x0, y0 = x1, y1
	}
	if y0 == 0 {
		push(x0)
	}
	return roots
}

// FindRoots locates zeros of prog over [lo, hi]. Roots sit on the x axis.
func (an Analysis) FindRoots(prog *expr.Program, scope expr.Bindings, lo, hi float64) []Derived {
	var out []Derived
	for _, x := range an.ScanRoots(prog.Func("x", scope), lo, hi) {
		out = append(out, Derived{X: x, Y: 0})
	}
	return out
}

// FindIntersections locates crossings of f1 and f2 by scanning their
// difference. The y coordinate comes from f1.
func (an Analysis) FindIntersections(f1, f2 *expr.Program, scope expr.Bindings, lo, hi float64) ([]Derived, error) {
	diff, err := f1.Sub(f2)
	if err != nil {
		return nil, fmt.Errorf("difference of %q and %q: %w", f1.Source(), f2.Source(), err)
	}
	return an.project(diff, f1, scope, lo, hi), nil
}

// FindExtrema locates zeros of the symbolic derivative of f. The y
// coordinate comes from f.
func (an Analysis) FindExtrema(f *expr.Program, scope expr.Bindings, lo, hi float64) ([]Derived, error) {
	d, err := f.Derivative("x")
	if err != nil {
		return nil, fmt.Errorf("derivative of %q: %w", f.Source(), err)
	}
	return an.project(d, f, scope, lo, hi), nil
}

// project finds roots of g and evaluates f at each.
func (an Analysis) project(g, f *expr.Program, scope expr.Bindings, lo, hi float64) []Derived {
	fy := f.Func("x", scope)
	var out []Derived
	for _, x := range an.ScanRoots(g.Func("x", scope), lo, hi) {
		y := fy(x)
		if !finite(y) {
			continue
		}
		out = append(out, Derived{X: x, Y: y})
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
