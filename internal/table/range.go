package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxRow is the highest row a range may address, the Google Sheets cell
// ceiling for a single column.
const MaxRow = 10_000_000

var (
	ErrInvalidRange    = errors.New("invalid A1 range")
	ErrUnboundedRange  = errors.New("range has no row bounds")
	ErrNotSingleColumn = errors.New("range spans more than one column")
	ErrValueCount      = errors.New("value count does not match range rows")
)

// Range is a rectangular A1 range such as Sheet1!A2:A643. Columns are
// zero-based, rows one-based and inclusive. EndRow is 0 for whole-column
// ranges like A:A.
type Range struct {
	Sheet  string
	Col    int
	EndCol int
	Row    int
	EndRow int
}

// ParseRange parses A1 notation. The sheet part is optional and may be
// quoted ('My Sheet'!B2:B9, with '' for a literal quote).
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	var r Range
	cells := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		sheet, err := unquoteSheet(s[:i])
		if err != nil {
			return Range{}, fmt.Errorf("%w %q: %v", ErrInvalidRange, s, err)
		}
		r.Sheet, cells = sheet, s[i+1:]
	}
	start, end, hasEnd := strings.Cut(cells, ":")
	var err error
	if r.Col, r.Row, err = parseCell(start); err != nil {
		return Range{}, fmt.Errorf("%w %q: %v", ErrInvalidRange, s, err)
	}
	r.EndCol, r.EndRow = r.Col, r.Row
	if hasEnd {
		if r.EndCol, r.EndRow, err = parseCell(end); err != nil {
			return Range{}, fmt.Errorf("%w %q: %v", ErrInvalidRange, s, err)
		}
	}
	if (r.Row == 0) != (r.EndRow == 0) {
		return Range{}, fmt.Errorf("%w %q: mixed row bounds", ErrInvalidRange, s)
	}
	if r.EndCol < r.Col || r.EndRow < r.Row {
		return Range{}, fmt.Errorf("%w %q: end before start", ErrInvalidRange, s)
	}
	return r, nil
}

func unquoteSheet(s string) (string, error) {
	if s == "" {
		return "", errors.New("empty sheet name")
	}
	if !strings.HasPrefix(s, "'") {
		return s, nil
	}
	if len(s) < 2 || !strings.HasSuffix(s, "'") {
		return "", errors.New("unterminated sheet quote")
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
}

// parseCell parses "B12" or a bare column "B" (row 0).
func parseCell(s string) (col, row int, err error) {
	s = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "$", "")))
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("missing column in %q", s)
	}
	if col, err = ColumnIndex(s[:i]); err != nil {
		return 0, 0, err
	}
	if i == len(s) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(s[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("bad row in %q", s)
	}
	if row > MaxRow {
		return 0, 0, fmt.Errorf("row %d in %q above %d", row, s, MaxRow)
	}
	return col, row, nil
}

// ColumnIndex converts a column name to its zero-based index (A=0, AA=26).
func ColumnIndex(name string) (int, error) {
	if name == "" || len(name) > 3 {
		return 0, fmt.Errorf("bad column %q", name)
	}
	idx := 0
	for _, c := range strings.ToUpper(name) {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("bad column %q", name)
		}
		idx = idx*26 + int(c-'A'+1)
	}
	return idx - 1, nil
}

// ColumnName is the inverse of ColumnIndex.
func ColumnName(idx int) string {
	var b []byte
	for idx++; idx > 0; idx = (idx - 1) / 26 {
		b = append([]byte{byte('A' + (idx-1)%26)}, b...)
	}
	return string(b)
}

// Rows is the number of rows in a bounded range, 0 otherwise.
func (r Range) Rows() int {
	if r.Row == 0 {
		return 0
	}
	return r.EndRow - r.Row + 1
}

func (r Range) SingleColumn() bool { return r.Col == r.EndCol }

// Column checks that r is a bounded single column.
func (r Range) Column() error {
	if r.Row == 0 {
		return fmt.Errorf("%w: %s", ErrUnboundedRange, r)
	}
	if !r.SingleColumn() {
		return fmt.Errorf("%w: %s", ErrNotSingleColumn, r)
	}
	return nil
}

func (r Range) String() string {
	cell := func(c, row int) string {
		if row == 0 {
			return ColumnName(c)
		}
		return ColumnName(c) + strconv.Itoa(row)
	}
	out := cell(r.Col, r.Row) + ":" + cell(r.EndCol, r.EndRow)
	if r.Sheet == "" {
		return out
	}
	return quoteSheet(r.Sheet) + "!" + out
}

func quoteSheet(s string) string {
	for _, c := range s {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return "'" + strings.ReplaceAll(s, "'", "''") + "'"
		}
	}
	return s
}
