package expr

import (
	"strconv"
	"strings"
)

// Node is a parsed expression tree node.
type Node interface {
	String() string
	precedence() int
}

// Operator binding strength, used when printing with minimal parentheses.
const (
	precAdd = iota + 1
	precMul
	precNeg
	precPow
	precAtom
)

// Num is a numeric literal.
type Num struct {
	Value float64
}

// Ident is a variable, slider or constant reference.
type Ident struct {
	Name string
}

// Neg is unary minus.
type Neg struct {
	X Node
}

// Binary is an infix operation. Op is one of + - * / % ^.
type Binary struct {
	Op   byte
	L, R Node
}

// Call is a call to a built-in function.
type Call struct {
	Fn   string
	Args []Node
}

func (n *Num) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (n *Num) precedence() int {
	if n.Value < 0 {
		return precNeg
	}
	return precAtom
}

func (n *Ident) String() string  { return n.Name }
func (n *Ident) precedence() int { return precAtom }

func (n *Neg) String() string {
	return "-" + wrap(n.X, n.X.precedence() < precNeg)
}

func (n *Neg) precedence() int { return precNeg }

func (n *Binary) String() string {
	p := n.precedence()
	lp, rp := n.L.precedence(), n.R.precedence()

	var left, right bool
	switch n.Op {
	case '^':
		// right-associative: (a^b)^c needs parens, a^b^c does not
		left = lp <= p
		right = rp < p
	case '-', '/', '%':
		left = lp < p
		right = rp <= p
	default:
		left = lp < p
		right = rp < p
	}
	if n.Op == '+' || n.Op == '-' {
		// "a + -b" is legal but reads badly
		right = right || rp == precNeg
	}

	var b strings.Builder
	b.WriteString(wrap(n.L, left))
	switch n.Op {
	case '+', '-':
		b.WriteString(" ")
		b.WriteByte(n.Op)
		b.WriteString(" ")
	default:
		b.WriteByte(n.Op)
	}
	b.WriteString(wrap(n.R, right))
	return b.String()
}

func (n *Binary) precedence() int {
	switch n.Op {
	case '+', '-':
		return precAdd
	case '^':
		return precPow
	default:
		return precMul
	}
}

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Fn + "(" + strings.Join(args, ", ") + ")"
}

func (n *Call) precedence() int { return precAtom }

func wrap(n Node, paren bool) string {
	if paren {
		return "(" + n.String() + ")"
	}
	return n.String()
}

// countNodes returns the size of the tree rooted at n.
func countNodes(n Node) int {
	switch n := n.(type) {
	case *Neg:
		return 1 + countNodes(n.X)
	case *Binary:
		return 1 + countNodes(n.L) + countNodes(n.R)
	case *Call:
		c := 1
		for _, a := range n.Args {
			c += countNodes(a)
		}
		return c
	default:
		return 1
	}
}

// dependsOn reports whether the tree references the identifier name.
func dependsOn(n Node, name string) bool {
	switch n := n.(type) {
	case *Ident:
		return n.Name == name
	case *Neg:
		return dependsOn(n.X, name)
	case *Binary:
		return dependsOn(n.L, name) || dependsOn(n.R, name)
	case *Call:
		for _, a := range n.Args {
			if dependsOn(a, name) {
				return true
			}
		}
	}
	return false
}

func collectIdents(n Node, seen map[string]bool) {
	switch n := n.(type) {
	case *Ident:
		seen[n.Name] = true
	case *Neg:
		collectIdents(n.X, seen)
	case *Binary:
		collectIdents(n.L, seen)
		collectIdents(n.R, seen)
	case *Call:
		for _, a := range n.Args {
			collectIdents(a, seen)
		}
	}
}
