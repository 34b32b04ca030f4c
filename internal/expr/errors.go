package expr

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax            = errors.New("syntax error")
	ErrEval              = errors.New("evaluation error")
	ErrNotDifferentiable = errors.New("not differentiable")
	ErrTooComplex        = errors.New("expression too complex")
)

// SyntaxError reports where parsing stopped. Pos is a byte offset into the
// source text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}
