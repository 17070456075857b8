package grading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-grader/internal/expr"
)

// BoundedEvaluator runs one comparison under cfg.TimeBudget and always
// returns a classification.
type BoundedEvaluator struct {
	cmp     *Comparator
	logger  *zap.Logger
	metrics *Metrics
}

func NewBoundedEvaluator(cmp *Comparator, logger *zap.Logger, metrics *Metrics) *BoundedEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoundedEvaluator{cmp: cmp, logger: logger, metrics: metrics}
}

type outcome struct {
	c   Classification
	err error
}

// Evaluate returns Timeout when the budget runs out first and Other when the
// engine rejects the candidate or panics. A comparison still running after
// the deadline is abandoned; it sees a cancelled context and its result is
// dropped into a buffered channel nobody reads.
func (b *BoundedEvaluator) Evaluate(ctx context.Context, ref expr.Value, markup string, cfg Config) Classification {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, cfg.TimeBudget)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("comparison panicked: %v", r)}
			}
		}()
		c, err := b.cmp.Compare(ctx, ref, markup, cfg)
		done <- outcome{c: c, err: err}
	}()

	var c Classification
	select {
	case o := <-done:
		c = b.resolve(markup, o)
	case <-ctx.Done():
		c = Timeout
		b.logger.Debug("evaluation abandoned", zap.Duration("budget", cfg.TimeBudget))
	}
	b.metrics.observe(c, time.Since(start))
	return c
}

func (b *BoundedEvaluator) resolve(markup string, o outcome) Classification {
	switch {
	case o.err == nil:
		return o.c
	case errors.Is(o.err, context.DeadlineExceeded), errors.Is(o.err, context.Canceled):
		return Timeout
	}
	var ee *expr.EvaluationError
	if errors.As(o.err, &ee) {
		b.logger.Debug("candidate rejected", zap.String("markup", truncate(markup, 80)), zap.Error(o.err))
	} else {
		b.logger.Warn("comparison failed", zap.String("markup", truncate(markup, 80)), zap.Error(o.err))
	}
	return Other
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
