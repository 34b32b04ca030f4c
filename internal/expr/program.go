// Package expr compiles and evaluates the infix math expressions that define
// graphed functions, and differentiates them symbolically.
package expr

import (
	"fmt"
	"math"
	"sort"
)

// MaxNodes caps the size of a compiled expression. Functions are sampled once
// per pixel column every frame, so the cap bounds per-frame cost.
const MaxNodes = 2000

// Bindings maps identifiers to values for one evaluation.
type Bindings map[string]float64

// Program is a compiled expression, safe for concurrent evaluation.
type Program struct {
	source string
	root   Node
}

// Compile parses text into a Program.
func Compile(text string) (*Program, error) {
	root, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return newProgram(text, root)
}

func newProgram(source string, root Node) (*Program, error) {
	if n := countNodes(root); n > MaxNodes {
		return nil, fmt.Errorf("%w: %d nodes (limit %d)", ErrTooComplex, n, MaxNodes)
	}
	return &Program{source: source, root: root}, nil
}

// MustCompile is like Compile but panics on error. For literals in tests and
// sample scenes.
func MustCompile(text string) *Program {
	p, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string {
	return p.source
}

// String returns the canonical form of the expression.
func (p *Program) String() string {
	return p.root.String()
}

// Root returns the parsed tree.
func (p *Program) Root() Node {
	return p.root
}

// Variables returns the free identifiers, excluding built-in constants,
// sorted.
func (p *Program) Variables() []string {
	seen := make(map[string]bool)
	collectIdents(p.root, seen)
	var names []string
	for name := range seen {
		if !IsConstant(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Evaluate computes the expression under b. An unknown identifier is an
// error; domain problems such as sqrt(-1) or 1/0 yield NaN or ±Inf.
func (p *Program) Evaluate(b Bindings) (float64, error) {
	return eval(p.root, b)
}

// Func returns a one-variable closure over scope. Errors evaluate to NaN.
func (p *Program) Func(variable string, scope Bindings) func(float64) float64 {
	env := make(Bindings, len(scope)+1)
	for k, v := range scope {
		env[k] = v
	}
	return func(x float64) float64 {
		env[variable] = x
		v, err := eval(p.root, env)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}

// Derivative returns the derivative of p with respect to variable.
func (p *Program) Derivative(variable string) (*Program, error) {
	d, err := diff(p.root, variable)
	if err != nil {
		return nil, err
	}
	return newProgram(d.String(), d)
}

// Sub returns the program p - q, built from the compiled trees so its
// depth stays within what each operand already passed.
func (p *Program) Sub(q *Program) (*Program, error) {
	d := &Binary{Op: '-', L: p.root, R: q.root}
	return newProgram(d.String(), d)
}

// Differentiate parses text and returns its derivative with respect to
// variable as text.
func Differentiate(text, variable string) (string, error) {
	p, err := Compile(text)
	if err != nil {
		return "", err
	}
	d, err := p.Derivative(variable)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

func eval(n Node, b Bindings) (float64, error) {
	switch n := n.(type) {
	case *Num:
		return n.Value, nil

	case *Ident:
		if v, ok := b[n.Name]; ok {
			return v, nil
		}
		if v, ok := constants[n.Name]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("%w: undefined symbol %s", ErrEval, n.Name)

	case *Neg:
		v, err := eval(n.X, b)
		return -v, err

	case *Binary:
		l, err := eval(n.L, b)
		if err != nil {
			return 0, err
		}
		r, err := eval(n.R, b)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case '+':
			return l + r, nil
		case '-':
			return l - r, nil
		case '*':
			return l * r, nil
		case '/':
			return l / r, nil
		case '%':
			return math.Mod(l, r), nil
		case '^':
			return math.Pow(l, r), nil
		}
		return 0, fmt.Errorf("%w: unknown operator %c", ErrEval, n.Op)

	case *Call:
		fn, ok := builtins[n.Fn]
		if !ok {
			return 0, fmt.Errorf("%w: undefined function %s", ErrEval, n.Fn)
		}
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, b)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return fn.fn(args), nil
	}
	return 0, fmt.Errorf("%w: unknown node %T", ErrEval, n)
}
