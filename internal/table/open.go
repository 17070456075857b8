package table

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/mind-engage/mindengage-grader/internal/db"
)

const (
	StoreSheets = "sheets"
	StoreSQL    = "sql"
)

// Source selects and configures a Table backend.
type Source struct {
	Store           string `yaml:"store"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
	DBDriver        string `yaml:"db_driver"`
	DBDSN           string `yaml:"db_dsn"`
}

// Open returns the configured Table and a func releasing its resources.
func Open(ctx context.Context, s Source) (Table, func() error, error) {
	switch s.Store {
	case StoreSheets:
		var opts []option.ClientOption // application default credentials
		if s.CredentialsFile != "" {
			opts = CredentialsFile(s.CredentialsFile)
		}
		t, err := NewSheetsTable(ctx, s.SpreadsheetID, opts...)
		if err != nil {
			return nil, nil, err
		}
		return t, func() error { return nil }, nil

	case StoreSQL, "":
		driver := db.Driver(s.DBDriver)
		if driver == "" {
			driver = db.DriverSQLite
		}
		conn, err := db.Open(ctx, driver, s.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", driver, err)
		}
		return NewSQLTable(conn), conn.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", s.Store)
}
