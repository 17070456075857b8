package grading

import (
	"context"
	"fmt"
	"math/big"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

// numericStrategy accepts a candidate within an absolute tolerance of the
// reference. Both values are already rounded to the configured precision.
type numericStrategy struct{}

func (numericStrategy) Equivalent(_ context.Context, ref, cand expr.Value, cfg Config) (bool, error) {
	if ref.Kind() != expr.KindNumeric || cand.Kind() != expr.KindNumeric {
		return false, fmt.Errorf("%w: %s vs %s", ErrKindMismatch, ref.Kind(), cand.Kind())
	}
	diff := new(big.Rat).Sub(ref.Rat(), cand.Rat())
	return cfg.Tolerance.Within(diff), nil
}

func (numericStrategy) Suspicious(cand expr.Value, cfg Config) bool {
	return IsSuspicious(cand, cfg.SuspiciousRunLength, cfg.SuspicionRule)
}
