package job

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJob = `
store: sheets
spreadsheet_id: 1NxwMbKl6d77dcvQa
credentials_file: creds.json
columns:
  - name: test 1
    correct: '\frac{88}{379}'
    source: rbiter!A2:A643
    destination: rbiter!B2:B643
    mode: symbolic
  - correct: '2'
    source: rbiter!C2:C643
    destination: rbiter!D2:D643
    tolerance: "0.01"
    time_budget: 2s
    workers: 4
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleJob), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sheets", f.Store)
	assert.Equal(t, "1NxwMbKl6d77dcvQa", f.SpreadsheetID)
	assert.Equal(t, "creds.json", f.CredentialsFile)
	require.Len(t, f.Columns, 2)
	assert.Equal(t, `\frac{88}{379}`, f.Columns[0].Correct)
	assert.Equal(t, "symbolic", f.Columns[0].Mode)
	assert.Equal(t, "0.01", f.Columns[1].Tolerance)
	assert.Equal(t, 2*time.Second, f.Columns[1].TimeBudget)
	assert.Equal(t, 4, f.Columns[1].Workers)
}

func TestParseRejectsIncompleteJobs(t *testing.T) {
	for name, doc := range map[string]string{
		"no columns":     "store: sql\n",
		"no correct":     "columns:\n  - source: A1:A2\n    destination: B1:B2\n",
		"no destination": "columns:\n  - correct: '1'\n    source: A1:A2\n",
		"not yaml":       "columns: [",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
