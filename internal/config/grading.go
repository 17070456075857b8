package config

import (
	"fmt"

	"github.com/mind-engage/mindengage-grader/internal/expr"
	"github.com/mind-engage/mindengage-grader/internal/grading"
	"github.com/mind-engage/mindengage-grader/internal/table"
)

// Grading builds the validated default grading config.
func (c Config) Grading() (grading.Config, error) {
	mode, err := expr.ParseMode(c.Mode)
	if err != nil {
		return grading.Config{}, fmt.Errorf("GRADER_MODE: %w", err)
	}
	tol, err := grading.ParseTolerance(c.Tolerance)
	if err != nil {
		return grading.Config{}, fmt.Errorf("GRADER_TOLERANCE: %w", err)
	}
	rule, err := grading.ParseSuspicionRule(c.SuspicionRule)
	if err != nil {
		return grading.Config{}, fmt.Errorf("GRADER_SUSPICION_RULE: %w", err)
	}
	return grading.NewConfig(
		grading.WithMode(mode),
		grading.WithPrecision(c.Precision),
		grading.WithSuspiciousRunLength(c.SuspiciousRunLength),
		grading.WithTolerance(tol),
		grading.WithSuspicionRule(rule),
		grading.WithTimeBudget(c.TimeBudget),
		grading.WithWorkers(c.Workers),
	)
}

// TableSource describes the table backend column jobs run against.
func (c Config) TableSource() table.Source {
	return table.Source{
		Store:           c.Store,
		SpreadsheetID:   c.SpreadsheetID,
		CredentialsFile: c.CredentialsFile,
		DBDriver:        c.DBDriver,
		DBDSN:           c.DBDSN,
	}
}
