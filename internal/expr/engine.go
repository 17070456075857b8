// Package expr parses and evaluates math markup.
//
// The grading core only depends on the Engine interface. LaTeX is the bundled
// implementation for a practical subset of LaTeX: arithmetic, \frac, \binom,
// \sqrt, powers, factorials, \pi and single-letter variables. It keeps no
// state between calls, so concurrent evaluations cannot influence each other.
package expr

import (
	"context"
	"fmt"
)

// Engine evaluates markup. Rejected input is reported as *EvaluationError;
// cancellation as ctx.Err().
type Engine interface {
	Evaluate(ctx context.Context, markup string, mode Mode, precision int) (Value, error)
}

type LaTeX struct {
	Limits Limits
}

func NewLaTeX() *LaTeX {
	return &LaTeX{Limits: DefaultLimits()}
}

func (l *LaTeX) Evaluate(ctx context.Context, markup string, mode Mode, precision int) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}
	if precision < 1 {
		return Value{}, l.fail(markup, mode, fmt.Errorf("%w: precision %d", ErrUnsupported, precision))
	}
	if l.Limits.MaxPrecision > 0 && precision > l.Limits.MaxPrecision {
		return Value{}, l.fail(markup, mode, fmt.Errorf("%w: precision %d above %d", ErrTooLarge, precision, l.Limits.MaxPrecision))
	}
	if l.Limits.MaxInputLength > 0 && len(markup) > l.Limits.MaxInputLength {
		return Value{}, l.fail(markup, mode, fmt.Errorf("%w: %d bytes of markup, limit %d", ErrTooLarge, len(markup), l.Limits.MaxInputLength))
	}
	root, err := parse(ctx, markup, l.Limits.MaxDepth)
	if err != nil {
		return Value{}, l.fail(markup, mode, err)
	}

	switch mode {
	case Numeric:
		n := &numeric{ctx: ctx, digits: precision + guardDigits, limits: l.Limits}
		r, err := n.eval(root)
		if err != nil {
			return Value{}, l.fail(markup, mode, err)
		}
		v, err := numericValue(ctx, r.v, precision)
		if err != nil {
			return Value{}, l.fail(markup, mode, err)
		}
		return v, nil

	case Symbolic:
		s := &symbolic{ctx: ctx, limits: l.Limits}
		f, err := s.eval(root)
		if err != nil {
			return Value{}, l.fail(markup, mode, err)
		}
		return SymbolicValue(f), nil
	}
	return Value{}, l.fail(markup, mode, fmt.Errorf("%w: mode %s", ErrUnsupported, mode))
}

func (l *LaTeX) fail(markup string, mode Mode, err error) error {
	if isCancel(err) {
		return err
	}
	return &EvaluationError{Markup: markup, Mode: mode, Err: err}
}
