package table

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsTable reads and writes one Google spreadsheet.
type SheetsTable struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
}

func NewSheetsTable(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*SheetsTable, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: empty spreadsheet id")
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &SheetsTable{values: srv.Spreadsheets.Values, spreadsheetID: spreadsheetID}, nil
}

// CredentialsFile returns client options for a service-account or OAuth
// credentials JSON file.
func CredentialsFile(path string) []option.ClientOption {
	return []option.ClientOption{
		option.WithCredentialsFile(path),
		option.WithScopes(sheets.SpreadsheetsScope),
	}
}

func (t *SheetsTable) ReadColumn(ctx context.Context, r Range) ([]string, error) {
	if err := r.Column(); err != nil {
		return nil, err
	}
	resp, err := t.values.Get(t.spreadsheetID, r.String()).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get %s: %w", r, err)
	}
	out := make([]string, 0, r.Rows())
	for _, row := range resp.Values {
		if len(row) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, fmt.Sprint(row[0]))
	}
	// trailing empty rows are omitted by the API
	return pad(out, r.Rows()), nil
}

// WriteColumn writes with RAW input. Values that parse as numbers are sent
// as numbers so codes land as numeric cells.
func (t *SheetsTable) WriteColumn(ctx context.Context, r Range, values []string) error {
	if err := checkWrite(r, values); err != nil {
		return err
	}
	rows := make([][]interface{}, len(values))
	for i, v := range values {
		rows[i] = []interface{}{cellValue(v)}
	}
	vr := &sheets.ValueRange{Range: r.String(), MajorDimension: "ROWS", Values: rows}
	_, err := t.values.Update(t.spreadsheetID, r.String(), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: update %s: %w", r, err)
	}
	return nil
}

func cellValue(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
