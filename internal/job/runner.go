package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-grader/internal/grading"
	"github.com/mind-engage/mindengage-grader/internal/table"
)

// Result summarises one graded column.
type Result struct {
	Column      string         `json:"column"`
	Destination string         `json:"destination"`
	Rows        int            `json:"rows"`
	Counts      map[string]int `json:"counts"`
	Unresolved  int            `json:"unresolved"` // timeouts and evaluation failures
	Codes       []string       `json:"codes"`
}

// ErrTooManyRows rejects a column larger than the runner's row limit.
var ErrTooManyRows = errors.New("column exceeds row limit")

type Runner struct {
	grader  *grading.Grader
	table   table.Table
	base    grading.Config
	logger  *zap.Logger
	maxRows int
}

type RunnerOption func(*Runner)

// WithMaxRows caps the rows of a single column job. Zero means no cap
// beyond table.MaxRow.
func WithMaxRows(n int) RunnerOption { return func(r *Runner) { r.maxRows = n } }

func NewRunner(g *grading.Grader, t table.Table, base grading.Config, logger *zap.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{grader: g, table: t, base: base, logger: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// GradeColumn checks the ranges, reads the answers, grades them and writes
// one printable code per answer to the destination.
func (r *Runner) GradeColumn(ctx context.Context, c Column) (Result, error) {
	if err := c.validate(); err != nil {
		return Result{}, err
	}
	src, dst, err := c.Ranges()
	if err != nil {
		return Result{}, err
	}
	if r.maxRows > 0 && src.Rows() > r.maxRows {
		return Result{}, fmt.Errorf("%w: %s has %d rows, limit %d", ErrTooManyRows, src, src.Rows(), r.maxRows)
	}
	cfg, err := c.Config(r.base)
	if err != nil {
		return Result{}, err
	}

	log := r.logger.With(zap.String("column", c.label()))
	start := time.Now()

	answers, err := r.table.ReadColumn(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", src, err)
	}
	codes, err := r.grader.GradeMarkup(ctx, c.Correct, answers, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("grade %s: %w", c.label(), err)
	}
	out := grading.Strings(codes)
	if err := r.table.WriteColumn(ctx, dst, out); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", dst, err)
	}

	res := Result{Column: c.label(), Destination: dst.String(), Rows: len(out), Counts: map[string]int{}, Codes: out}
	for i, code := range out {
		res.Counts[code]++
		if !codes[i].Terminal() {
			res.Unresolved++
		}
	}
	log.Info("column graded",
		zap.String("destination", res.Destination),
		zap.Int("rows", res.Rows),
		zap.Any("counts", res.Counts),
		zap.Int("unresolved", res.Unresolved),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Run grades columns one after another and stops at the first failure.
func (r *Runner) Run(ctx context.Context, cols []Column) ([]Result, error) {
	results := make([]Result, 0, len(cols))
	for _, c := range cols {
		res, err := r.GradeColumn(ctx, c)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
