package expr

import "fmt"

const (
	// MaxSourceLength bounds the text handed to Parse, in bytes.
	MaxSourceLength = 8192
	// MaxDepth bounds how deeply parentheses, calls, signs and exponents nest.
	MaxDepth = 256
)

type parser struct {
	tokens []token
	pos    int
	depth  int
}

// Parse turns source text into an expression tree.
//
// Grammar, loosest binding first:
//
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/" | "%") unary | implicit }
//	unary   = ("-" | "+") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | ident | ident "(" args ")" | "(" sum ")"
//
// An implicit product is a number, identifier or "(" directly following an
// operand, so "2x", "3sin(x)" and "(x+1)(x-1)" all multiply.
func Parse(src string) (Node, error) {
	if len(src) > MaxSourceLength {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooComplex, len(src), MaxSourceLength)
	}
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}

	p := &parser{tokens: tokens}
	n, err := p.sum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// enter records one more level of nesting at t and fails past MaxDepth.
// Callers pair it with a deferred leave.
func (p *parser) enter(t token) error {
	p.depth++
	if p.depth > MaxDepth {
		return fmt.Errorf("%w: nested deeper than %d at position %d", ErrTooComplex, MaxDepth, t.pos)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) isOp(ops string) (byte, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return 0, false
	}
	for i := 0; i < len(ops); i++ {
		if t.text[0] == ops[i] {
			return ops[i], true
		}
	}
	return 0, false
}

func (p *parser) sum() (Node, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp("+-")
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) product() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if op, ok := p.isOp("*/%"); ok {
			p.next()
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: op, L: left, R: right}
			continue
		}

		switch p.peek().kind {
		case tokNumber, tokIdent, tokLParen:
			right, err := p.power()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: '*', L: left, R: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) unary() (Node, error) {
	if op, ok := p.isOp("+-"); ok {
		if err := p.enter(p.next()); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op == '+' {
			return x, nil
		}
		return &Neg{X: x}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.isOp("^"); ok {
		if err := p.enter(p.next()); err != nil {
			return nil, err
		}
		defer p.leave()
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: '^', L: base, R: exp}, nil
	}
	return base, nil
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &Num{Value: t.num}, nil

	case tokIdent:
		if fn, ok := lookupFunc(t.text); ok && p.peek().kind == tokLParen {
			return p.call(t, fn)
		}
		if _, ok := lookupFunc(t.text); ok {
			return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("function %s needs arguments", t.text)}
		}
		return &Ident{Name: t.text}, nil

	case tokLParen:
		if err := p.enter(t); err != nil {
			return nil, err
		}
		defer p.leave()
		n, err := p.sum()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: closing.pos, Msg: "missing closing parenthesis"}
		}
		return n, nil

	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of expression"}
	default:
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
}

func (p *parser) call(name token, fn builtin) (Node, error) {
	if err := p.enter(p.next()); err != nil {
		return nil, err
	}
	defer p.leave()
	var args []Node
	if p.peek().kind != tokRParen {
		for {
			a, err := p.sum()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, &SyntaxError{Pos: closing.pos, Msg: "missing closing parenthesis"}
	}
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, &SyntaxError{Pos: name.pos, Msg: fmt.Sprintf("wrong number of arguments to %s: %d", name.text, len(args))}
	}
	return &Call{Fn: name.text, Args: args}, nil
}
