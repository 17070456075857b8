// Package grading classifies candidate answers against a reference answer.
//
// Every candidate gets exactly one Classification: the four terminal codes
// from comparison, Timeout when the per-item budget runs out, or Other when
// the candidate cannot be evaluated. Only reference failures, invalid config
// and caller cancellation are returned as errors.
package grading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

// ErrReference means the reference answer could not be evaluated. The whole
// batch is void.
var ErrReference = errors.New("reference answer cannot be evaluated")

type Grader struct {
	engine  expr.Engine
	cmp     *Comparator
	batch   *BatchGrader
	logger  *zap.Logger
	metrics *Metrics
}

type GraderOption func(*Grader)

func WithLogger(l *zap.Logger) GraderOption { return func(g *Grader) { g.logger = l } }

func WithMetrics(m *Metrics) GraderOption { return func(g *Grader) { g.metrics = m } }

func New(engine expr.Engine, opts ...GraderOption) *Grader {
	g := &Grader{engine: engine, logger: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	g.cmp = NewComparator(engine)
	g.batch = NewBatchGrader(NewBoundedEvaluator(g.cmp, g.logger, g.metrics), g.logger)
	return g
}

// Compare grades a single pair without a time budget; bound it through ctx.
func (g *Grader) Compare(ctx context.Context, ref expr.Value, markup string, cfg Config) (Classification, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	return g.cmp.Compare(ctx, ref, markup, cfg)
}

// CompareMarkup evaluates the reference, then grades one candidate under the
// same rules as a batch item.
func (g *Grader) CompareMarkup(ctx context.Context, refMarkup, candidate string, cfg Config) (Classification, error) {
	out, err := g.GradeMarkup(ctx, refMarkup, []string{candidate}, cfg)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Reference evaluates the reference markup under cfg.TimeBudget.
func (g *Grader) Reference(ctx context.Context, markup string, cfg Config) (expr.Value, error) {
	if err := cfg.Validate(); err != nil {
		return expr.Value{}, err
	}
	rctx, cancel := context.WithTimeout(ctx, cfg.TimeBudget)
	defer cancel()

	v, err := g.engine.Evaluate(rctx, markup, cfg.Mode, cfg.Precision)
	if err != nil {
		if ctx.Err() != nil {
			return expr.Value{}, ctx.Err()
		}
		return expr.Value{}, fmt.Errorf("%w: %w", ErrReference, err)
	}
	return v, nil
}

// Grade grades candidates against an already evaluated reference.
func (g *Grader) Grade(ctx context.Context, ref expr.Value, candidates []string, cfg Config) ([]Classification, error) {
	return g.run(func(b *BatchGrader) ([]Classification, error) {
		return b.Grade(ctx, ref, candidates, cfg)
	}, cfg, len(candidates))
}

// GradeMarkup evaluates the reference once and grades every candidate
// against it.
func (g *Grader) GradeMarkup(ctx context.Context, refMarkup string, candidates []string, cfg Config) ([]Classification, error) {
	return g.run(func(b *BatchGrader) ([]Classification, error) {
		ref, err := g.Reference(ctx, refMarkup, cfg)
		if err != nil {
			return nil, err
		}
		b.logger.Debug("reference evaluated", zap.Stringer("value", ref))
		return b.Grade(ctx, ref, candidates, cfg)
	}, cfg, len(candidates))
}

func (g *Grader) run(fn func(*BatchGrader) ([]Classification, error), cfg Config, n int) ([]Classification, error) {
	log := g.logger.With(zap.String("run_id", uuid.NewString()))
	start := time.Now()
	log.Debug("batch started",
		zap.Int("items", n),
		zap.Stringer("mode", cfg.Mode),
		zap.Int("precision", cfg.Precision),
		zap.Stringer("tolerance", cfg.Tolerance),
		zap.Duration("time_budget", cfg.TimeBudget),
		zap.Int("workers", cfg.Workers),
	)

	out, err := fn(g.batch.withLogger(log))
	if err != nil {
		g.metrics.batch("failed")
		log.Warn("batch failed", zap.Error(err))
		return nil, err
	}
	g.metrics.batch("ok")

	counts := make(map[string]int, len(printable))
	for _, c := range out {
		counts[c.String()]++
	}
	log.Info("batch graded",
		zap.Int("items", len(out)),
		zap.Any("codes", counts),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
