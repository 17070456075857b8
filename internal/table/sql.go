package table

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLTable stores cells in the cells table created by db.EnsureSchema.
// Works on SQLite and Postgres.
type SQLTable struct {
	db *sql.DB
}

func NewSQLTable(db *sql.DB) *SQLTable { return &SQLTable{db: db} }

func (t *SQLTable) ReadColumn(ctx context.Context, r Range) ([]string, error) {
	if err := r.Column(); err != nil {
		return nil, err
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT row_idx, value FROM cells
		 WHERE sheet=$1 AND col_idx=$2 AND row_idx BETWEEN $3 AND $4`,
		r.Sheet, r.Col, r.Row, r.EndRow)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r, err)
	}
	defer rows.Close()

	out := make([]string, r.Rows())
	for rows.Next() {
		var (
			row   int
			value string
		)
		if err := rows.Scan(&row, &value); err != nil {
			return nil, fmt.Errorf("read %s: %w", r, err)
		}
		out[row-r.Row] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", r, err)
	}
	return out, nil
}

// WriteColumn upserts every cell of r in one transaction.
func (t *SQLTable) WriteColumn(ctx context.Context, r Range, values []string) (err error) {
	if err := checkWrite(r, values); err != nil {
		return err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cells (sheet, col_idx, row_idx, value) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (sheet, col_idx, row_idx) DO UPDATE SET value=excluded.value`)
	if err != nil {
		return fmt.Errorf("write %s: %w", r, err)
	}
	defer stmt.Close()

	for i, v := range values {
		if _, err = stmt.ExecContext(ctx, r.Sheet, r.Col, r.Row+i, v); err != nil {
			return fmt.Errorf("write %s row %d: %w", r, r.Row+i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("write %s: %w", r, err)
	}
	return nil
}
