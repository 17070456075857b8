// Package table reads and writes single columns of spreadsheet-shaped data.
package table

import (
	"context"
	"fmt"
)

// Table is a positional cell store addressed by A1 ranges.
type Table interface {
	// ReadColumn returns exactly r.Rows() values; missing cells read as "".
	ReadColumn(ctx context.Context, r Range) ([]string, error)
	// WriteColumn writes values to consecutive rows of r.
	WriteColumn(ctx context.Context, r Range, values []string) error
}

func pad(values []string, n int) []string {
	if len(values) >= n {
		return values[:n]
	}
	out := make([]string, n)
	copy(out, values)
	return out
}

func checkWrite(r Range, values []string) error {
	if err := r.Column(); err != nil {
		return err
	}
	if len(values) != r.Rows() {
		return errValueCount(r, len(values))
	}
	return nil
}

func errValueCount(r Range, n int) error {
	return fmt.Errorf("%w: %s has %d rows, got %d values", ErrValueCount, r, r.Rows(), n)
}
