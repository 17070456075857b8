// Package job grades whole spreadsheet columns: read the answers, grade them
// against one reference and write the codes back row for row.
package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-grader/internal/expr"
	"github.com/mind-engage/mindengage-grader/internal/grading"
	"github.com/mind-engage/mindengage-grader/internal/table"
)

// ErrRangeMismatch means source and destination cannot be paired row for
// row. Nothing is read or written when it is returned.
var ErrRangeMismatch = errors.New("source and destination ranges do not match")

// Column is one grading task. Zero fields fall back to the runner's base
// config.
type Column struct {
	Name                string        `yaml:"name" json:"name,omitempty"`
	Correct             string        `yaml:"correct" json:"correct"`
	Source              string        `yaml:"source" json:"source"`
	Destination         string        `yaml:"destination" json:"destination"`
	Mode                string        `yaml:"mode" json:"mode,omitempty"`
	Precision           int           `yaml:"precision" json:"precision,omitempty"`
	Tolerance           string        `yaml:"tolerance" json:"tolerance,omitempty"`
	SuspiciousRunLength int           `yaml:"suspicious_run_length" json:"suspicious_run_length,omitempty"`
	SuspicionRule       string        `yaml:"suspicion_rule" json:"suspicion_rule,omitempty"`
	TimeBudget          time.Duration `yaml:"time_budget" json:"time_budget,omitempty"`
	Workers             int           `yaml:"workers" json:"workers,omitempty"`
}

func (c Column) label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Source
}

// Config overlays the column's settings on base.
func (c Column) Config(base grading.Config) (grading.Config, error) {
	opts := []grading.Option{func(cfg *grading.Config) { *cfg = base }}
	if c.Mode != "" {
		m, err := expr.ParseMode(c.Mode)
		if err != nil {
			return grading.Config{}, fmt.Errorf("%w: %v", grading.ErrInvalidConfig, err)
		}
		opts = append(opts, grading.WithMode(m))
	}
	if c.Precision != 0 {
		opts = append(opts, grading.WithPrecision(c.Precision))
	}
	if c.Tolerance != "" {
		tol, err := grading.ParseTolerance(c.Tolerance)
		if err != nil {
			return grading.Config{}, err
		}
		opts = append(opts, grading.WithTolerance(tol))
	}
	if c.SuspiciousRunLength != 0 {
		opts = append(opts, grading.WithSuspiciousRunLength(c.SuspiciousRunLength))
	}
	if c.SuspicionRule != "" {
		r, err := grading.ParseSuspicionRule(c.SuspicionRule)
		if err != nil {
			return grading.Config{}, err
		}
		opts = append(opts, grading.WithSuspicionRule(r))
	}
	if c.TimeBudget != 0 {
		opts = append(opts, grading.WithTimeBudget(c.TimeBudget))
	}
	if c.Workers != 0 {
		opts = append(opts, grading.WithWorkers(c.Workers))
	}
	return grading.NewConfig(opts...)
}

// Ranges parses and pairs the source and destination ranges.
func (c Column) Ranges() (src, dst table.Range, err error) {
	if src, err = table.ParseRange(c.Source); err != nil {
		return src, dst, fmt.Errorf("%w: source: %w", ErrRangeMismatch, err)
	}
	if dst, err = table.ParseRange(c.Destination); err != nil {
		return src, dst, fmt.Errorf("%w: destination: %w", ErrRangeMismatch, err)
	}
	if err = src.Column(); err != nil {
		return src, dst, fmt.Errorf("%w: source: %w", ErrRangeMismatch, err)
	}
	if err = dst.Column(); err != nil {
		return src, dst, fmt.Errorf("%w: destination: %w", ErrRangeMismatch, err)
	}
	if src.Rows() != dst.Rows() {
		return src, dst, fmt.Errorf("%w: %s has %d rows, %s has %d", ErrRangeMismatch, src, src.Rows(), dst, dst.Rows())
	}
	return src, dst, nil
}

func (c Column) validate() error {
	switch {
	case c.Correct == "":
		return fmt.Errorf("column %q: missing correct answer", c.label())
	case c.Source == "":
		return fmt.Errorf("column %q: missing source range", c.label())
	case c.Destination == "":
		return fmt.Errorf("column %q: missing destination range", c.label())
	}
	return nil
}
