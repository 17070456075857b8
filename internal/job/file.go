package job

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-grader/internal/table"
)

// File is a YAML job description:
//
//	store: sheets
//	spreadsheet_id: 1NxwMbKl6d77...
//	credentials_file: creds.json
//	columns:
//	  - correct: '\frac{88}{379}'
//	    source: rbiter!A2:A643
//	    destination: rbiter!B2:B643
//	    mode: symbolic
type File struct {
	table.Source `yaml:",inline"`
	Columns      []Column `yaml:"columns"`
}

func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, err
	}
	if len(f.Columns) == 0 {
		return File{}, errors.New("job has no columns")
	}
	for _, c := range f.Columns {
		if err := c.validate(); err != nil {
			return File{}, err
		}
	}
	return f, nil
}
