package grading

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

// BatchGrader grades many candidates against one reference. The result has
// one entry per candidate, in input order, whatever happens to any item.
type BatchGrader struct {
	eval   *BoundedEvaluator
	logger *zap.Logger
}

func NewBatchGrader(eval *BoundedEvaluator, logger *zap.Logger) *BatchGrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchGrader{eval: eval, logger: logger}
}

func (g *BatchGrader) withLogger(l *zap.Logger) *BatchGrader {
	return &BatchGrader{eval: g.eval, logger: l}
}

// Grade returns an error only for an invalid config or when ctx is cancelled
// before the batch completes; no partial result is returned then.
func (g *BatchGrader) Grade(ctx context.Context, ref expr.Value, candidates []string, cfg Config) ([]Classification, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	out := make([]Classification, len(candidates))

	var eg errgroup.Group
	eg.SetLimit(cfg.Workers)
	for i, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			out[i] = g.gradeOne(ctx, ref, cand, cfg)
			g.logger.Debug("graded", zap.Int("index", i), zap.Stringer("code", out[i]))
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch aborted after cancellation: %w", err)
	}
	return out, nil
}

func (g *BatchGrader) gradeOne(ctx context.Context, ref expr.Value, cand string, cfg Config) Classification {
	if strings.TrimSpace(cand) == "" {
		return NotEquivalent
	}
	return g.eval.Evaluate(ctx, ref, cand, cfg)
}
