package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

var (
	ErrKindMismatch = errors.New("value kind does not match grading mode")
	ErrUnknownMode  = errors.New("no strategy for mode")
)

// Strategy decides equivalence and suspicion for one Mode.
type Strategy interface {
	Equivalent(ctx context.Context, ref, cand expr.Value, cfg Config) (bool, error)
	Suspicious(cand expr.Value, cfg Config) bool
}

// Comparator evaluates a candidate and classifies it against a reference.
// It holds no per-call state and is safe for concurrent use.
type Comparator struct {
	engine     expr.Engine
	strategies map[expr.Mode]Strategy
}

func NewComparator(engine expr.Engine) *Comparator {
	return &Comparator{
		engine: engine,
		strategies: map[expr.Mode]Strategy{
			expr.Numeric:  numericStrategy{},
			expr.Symbolic: symbolicStrategy{},
		},
	}
}

// Compare returns one of the four terminal classifications. Engine failures
// and cancellation are returned unchanged; the classification is meaningless
// when err != nil.
func (c *Comparator) Compare(ctx context.Context, ref expr.Value, markup string, cfg Config) (Classification, error) {
	s, ok := c.strategies[cfg.Mode]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMode, cfg.Mode)
	}
	cand, err := c.engine.Evaluate(ctx, markup, cfg.Mode, cfg.Precision)
	if err != nil {
		return 0, err
	}
	eq, err := s.Equivalent(ctx, ref, cand, cfg)
	if err != nil {
		return 0, err
	}
	return classify(eq, s.Suspicious(cand, cfg)), nil
}

// symbolicStrategy compares normal forms. Tolerance does not apply and
// nothing is suspicious.
type symbolicStrategy struct{}

func (symbolicStrategy) Equivalent(ctx context.Context, ref, cand expr.Value, _ Config) (bool, error) {
	if ref.Kind() != expr.KindSymbolic || cand.Kind() != expr.KindSymbolic {
		return false, fmt.Errorf("%w: %s vs %s", ErrKindMismatch, ref.Kind(), cand.Kind())
	}
	return ref.Form().Equivalent(ctx, cand.Form())
}

func (symbolicStrategy) Suspicious(expr.Value, Config) bool { return false }
