package expr

import (
	"fmt"
	"math"
)

// diff differentiates n with respect to v. Identifiers other than v are
// treated as constants.
func diff(n Node, v string) (Node, error) {
	if !dependsOn(n, v) {
		return num(0), nil
	}

	switch n := n.(type) {
	case *Ident:
		return num(1), nil

	case *Neg:
		d, err := diff(n.X, v)
		if err != nil {
			return nil, err
		}
		return neg(d), nil

	case *Binary:
		return diffBinary(n, v)

	case *Call:
		return diffCall(n, v)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotDifferentiable, n)
}

func diffBinary(n *Binary, v string) (Node, error) {
	if n.Op == '%' {
		return nil, fmt.Errorf("%w: %s", ErrNotDifferentiable, n)
	}

	dl, err := diff(n.L, v)
	if err != nil {
		return nil, err
	}
	dr, err := diff(n.R, v)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case '+':
		return add(dl, dr), nil
	case '-':
		return sub(dl, dr), nil
	case '*':
		return add(mul(dl, n.R), mul(n.L, dr)), nil
	case '/':
		return div(sub(mul(dl, n.R), mul(n.L, dr)), pow(n.R, num(2))), nil
	}

	// '^'
	switch {
	case !dependsOn(n.R, v):
		// power rule
		return mul(mul(n.R, pow(n.L, sub(n.R, num(1)))), dl), nil
	case !dependsOn(n.L, v):
		// exponential rule
		return mul(mul(n, call("ln", n.L)), dr), nil
	default:
		// d(f^g) = f^g * (g' ln f + g f'/f)
		return mul(n, add(mul(dr, call("ln", n.L)), div(mul(n.R, dl), n.L))), nil
	}
}

func diffCall(n *Call, v string) (Node, error) {
	switch n.Fn {
	case "pow":
		return diff(&Binary{Op: '^', L: n.Args[0], R: n.Args[1]}, v)
	case "log":
		if len(n.Args) == 2 {
			return diff(&Binary{Op: '/', L: call("ln", n.Args[0]), R: call("ln", n.Args[1])}, v)
		}
	case "atan2":
		y, x := n.Args[0], n.Args[1]
		dy, err := diff(y, v)
		if err != nil {
			return nil, err
		}
		dx, err := diff(x, v)
		if err != nil {
			return nil, err
		}
		return div(sub(mul(x, dy), mul(y, dx)), add(pow(x, num(2)), pow(y, num(2)))), nil
	}

	if len(n.Args) != 1 {
		return nil, fmt.Errorf("%w: %s", ErrNotDifferentiable, n)
	}
	u := n.Args[0]
	du, err := diff(u, v)
	if err != nil {
		return nil, err
	}

	var outer Node
	switch n.Fn {
	case "sin":
		outer = call("cos", u)
	case "cos":
		outer = neg(call("sin", u))
	case "tan":
		outer = pow(call("sec", u), num(2))
	case "sec":
		outer = mul(call("sec", u), call("tan", u))
	case "csc":
		outer = neg(mul(call("csc", u), call("cot", u)))
	case "cot":
		outer = neg(pow(call("csc", u), num(2)))
	case "asin":
		outer = div(num(1), call("sqrt", sub(num(1), pow(u, num(2)))))
	case "acos":
		outer = neg(div(num(1), call("sqrt", sub(num(1), pow(u, num(2))))))
	case "atan":
		outer = div(num(1), add(num(1), pow(u, num(2))))
	case "sinh":
		outer = call("cosh", u)
	case "cosh":
		outer = call("sinh", u)
	case "tanh":
		outer = div(num(1), pow(call("cosh", u), num(2)))
	case "exp":
		outer = n
	case "ln", "log":
		outer = div(num(1), u)
	case "log10":
		outer = div(num(1), mul(u, call("ln", num(10))))
	case "log2":
		outer = div(num(1), mul(u, call("ln", num(2))))
	case "sqrt":
		outer = div(num(1), mul(num(2), n))
	case "cbrt":
		outer = div(num(1), mul(num(3), pow(n, num(2))))
	case "abs":
		outer = call("sign", u)
	default:
		// floor, ceil, round, sign, min, max
		return nil, fmt.Errorf("%w: %s", ErrNotDifferentiable, n.Fn)
	}
	return mul(outer, du), nil
}

// Constructors below fold constants and drop 0/1 identities so derivatives
// stay readable.

func num(v float64) Node { return &Num{Value: v} }

func call(fn string, args ...Node) Node { return &Call{Fn: fn, Args: args} }

func numValue(n Node) (float64, bool) {
	if c, ok := n.(*Num); ok {
		return c.Value, true
	}
	return 0, false
}

func isNum(n Node, v float64) bool {
	c, ok := numValue(n)
	return ok && c == v
}

func neg(a Node) Node {
	if c, ok := numValue(a); ok {
		return num(-c)
	}
	if inner, ok := a.(*Neg); ok {
		return inner.X
	}
	return &Neg{X: a}
}

func add(a, b Node) Node {
	ca, aok := numValue(a)
	cb, bok := numValue(b)
	switch {
	case aok && bok:
		return num(ca + cb)
	case isNum(a, 0):
		return b
	case isNum(b, 0):
		return a
	}
	if nb, ok := b.(*Neg); ok {
		return &Binary{Op: '-', L: a, R: nb.X}
	}
	return &Binary{Op: '+', L: a, R: b}
}

func sub(a, b Node) Node {
	ca, aok := numValue(a)
	cb, bok := numValue(b)
	switch {
	case aok && bok:
		return num(ca - cb)
	case isNum(b, 0):
		return a
	case isNum(a, 0):
		return neg(b)
	}
	return &Binary{Op: '-', L: a, R: b}
}

func mul(a, b Node) Node {
	ca, aok := numValue(a)
	cb, bok := numValue(b)
	switch {
	case aok && bok:
		return num(ca * cb)
	case isNum(a, 0), isNum(b, 0):
		return num(0)
	case isNum(a, 1):
		return b
	case isNum(b, 1):
		return a
	case isNum(a, -1):
		return neg(b)
	case isNum(b, -1):
		return neg(a)
	}
	if na, ok := a.(*Neg); ok {
		return neg(mul(na.X, b))
	}
	if nb, ok := b.(*Neg); ok {
		return neg(mul(a, nb.X))
	}
	if bok && !aok {
		// keep coefficients in front: x*2 -> 2*x
		return &Binary{Op: '*', L: b, R: a}
	}
	return &Binary{Op: '*', L: a, R: b}
}

func div(a, b Node) Node {
	ca, aok := numValue(a)
	cb, bok := numValue(b)
	switch {
	case aok && bok && cb != 0:
		return num(ca / cb)
	case isNum(a, 0):
		return num(0)
	case isNum(b, 1):
		return a
	}
	return &Binary{Op: '/', L: a, R: b}
}

func pow(a, b Node) Node {
	ca, aok := numValue(a)
	cb, bok := numValue(b)
	switch {
	case aok && bok:
		if v := math.Pow(ca, cb); !math.IsNaN(v) && !math.IsInf(v, 0) {
			return num(v)
		}
	case isNum(b, 0):
		return num(1)
	case isNum(b, 1):
		return a
	}
	return &Binary{Op: '^', L: a, R: b}
}
