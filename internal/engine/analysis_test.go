package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/geocalc/geocalc/backend-go/internal/expr"
)

func TestBisect(t *testing.T) {
	x, ok := Bisect(func(x float64) float64 { return x - 3 }, 0, 10, 1e-7, 100)
	if !ok || math.Abs(x-3) > 1e-6 {
		t.Errorf("Bisect(x-3) = %v, %v", x, ok)
	}

	if _, ok := Bisect(func(x float64) float64 { return x*x + 1 }, -5, 5, 1e-7, 100); ok {
		t.Error("Bisect(x^2+1) found a root")
	}

	// endpoint already a root
	x, ok = Bisect(func(x float64) float64 { return x }, 0, 1, 1e-7, 100)
	if !ok || x != 0 {
		t.Errorf("endpoint root = %v, %v", x, ok)
	}
}

func TestBisectIterationCap(t *testing.T) {
	calls := 0
	f := func(x float64) float64 {
		calls++
		return x - math.Pi
	}
	if _, ok := Bisect(f, 0, 10, 0, 5); !ok {
		t.Fatal("no result")
	}
	// two endpoint evaluations plus one per halving
	if calls != 7 {
		t.Errorf("f called %d times, want 7", calls)
	}
}

func TestScanRootsSine(t *testing.T) {
	roots := DefaultAnalysis().ScanRoots(math.Sin, -0.1, 3.2)
	if len(roots) != 2 {
		t.Fatalf("roots = %v, want 2", roots)
	}
	if math.Abs(roots[0]) > 1e-3 || math.Abs(roots[1]-math.Pi) > 1e-3 {
		t.Errorf("roots = %v, want [0, pi]", roots)
	}
}

func TestScanRootsExactZeroAndTangent(t *testing.T) {
	an := Analysis{Steps: 10, Tolerance: 1e-7, MaxIter: 100}

	// sample grid hits x=0 exactly
	roots := an.ScanRoots(func(x float64) float64 { return x }, -1, 1)
	if len(roots) != 1 || roots[0] != 0 {
		t.Errorf("exact zero: roots = %v", roots)
	}

	// touching zero without crossing is missed between samples
	roots = an.ScanRoots(func(x float64) float64 { return (x - 0.05) * (x - 0.05) }, -1, 1)
	if len(roots) != 0 {
		t.Errorf("tangent root: roots = %v, want none", roots)
	}
}

func TestFindIntersections(t *testing.T) {
	f1 := expr.MustCompile("x^2")
	f2 := expr.MustCompile("x + 2")
	got, err := DefaultAnalysis().FindIntersections(f1, f2, nil, -5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 intersections", got)
	}
	want := []Derived{{-1, 1}, {2, 4}}
	for i := range want {
		if math.Abs(got[i].X-want[i].X) > 1e-5 || math.Abs(got[i].Y-want[i].Y) > 1e-4 {
			t.Errorf("intersection %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFindIntersectionsUsesScope(t *testing.T) {
	f1 := expr.MustCompile("a*x")
	f2 := expr.MustCompile("1")
	got, err := DefaultAnalysis().FindIntersections(f1, f2, expr.Bindings{"a": 2}, -5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || math.Abs(got[0].X-0.5) > 1e-5 {
		t.Errorf("got %v, want x=0.5", got)
	}
}

func TestFindExtrema(t *testing.T) {
	f := expr.MustCompile("x^3 - 3x")
	got, err := DefaultAnalysis().FindExtrema(f, nil, -3, 3.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 extrema", got)
	}
	if math.Abs(got[0].X+1) > 1e-5 || math.Abs(got[0].Y-2) > 1e-4 {
		t.Errorf("max = %+v, want (-1, 2)", got[0])
	}
	if math.Abs(got[1].X-1) > 1e-5 || math.Abs(got[1].Y+2) > 1e-4 {
		t.Errorf("min = %+v, want (1, -2)", got[1])
	}

	if _, err := DefaultAnalysis().FindExtrema(expr.MustCompile("floor(x)"), nil, -1, 1); !errors.Is(err, expr.ErrNotDifferentiable) {
		t.Errorf("floor: err = %v", err)
	}
}

func TestFindRootsLabel(t *testing.T) {
	got := DefaultAnalysis().FindRoots(expr.MustCompile("x - 1.5"), nil, -5, 5)
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	if l := got[0].Label(PrefixRoot); l != "Root (1.50, 0.00)" {
		t.Errorf("label = %q", l)
	}
}
