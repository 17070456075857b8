package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-grader/internal/job"
	"github.com/mind-engage/mindengage-grader/internal/table"
)

func (a *app) gradeCmd() *cobra.Command {
	var col job.Column
	cmd := &cobra.Command{
		Use:   "grade [job.yaml]",
		Short: "Grade spreadsheet columns and write the codes back",
		Long: `Grades every column of a YAML job file, or a single column given with
--correct, --source and --destination. Source and destination must be
single-column A1 ranges with the same number of rows.`,
		Example: `  grader grade jobs/midterm.yaml
  grader grade --store sheets --spreadsheet-id 1Nxw... --credentials creds.json \
    --correct '\frac{88}{379}' --source 'rbiter!A2:A643' --destination 'rbiter!B2:B643' --mode symbolic`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.jobFile(args, col)
			if err != nil {
				return err
			}
			base, err := a.env.Grading()
			if err != nil {
				return err
			}

			tbl, closeTable, err := table.Open(cmd.Context(), f.Source)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeTable(); err != nil {
					a.logger.Warn("close table", zap.Error(err))
				}
			}()

			results, err := job.NewRunner(a.grader(), tbl, base, a.logger).Run(cmd.Context(), f.Columns)
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s -> %s: %d rows (%s)\n", r.Column, r.Destination, r.Rows, formatCounts(r.Counts))
				if r.Unresolved > 0 {
					fmt.Fprintf(out, "  %d unresolved (timeout or evaluation failure)\n", r.Unresolved)
				}
			}
			return err
		},
	}
	a.bindStoreFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&col.Name, "name", "", "label for the column in logs")
	f.StringVar(&col.Correct, "correct", "", "reference answer (LaTeX)")
	f.StringVar(&col.Source, "source", "", "A1 range of answers, e.g. Sheet1!A2:A100")
	f.StringVar(&col.Destination, "destination", "", "A1 range for the codes, e.g. Sheet1!B2:B100")
	return cmd
}

// jobFile loads the job file, or builds a one-column job from flags. A job
// file without a store uses the configured one.
func (a *app) jobFile(args []string, col job.Column) (job.File, error) {
	if len(args) == 0 {
		if col.Correct == "" || col.Source == "" || col.Destination == "" {
			return job.File{}, fmt.Errorf("either a job file or --correct, --source and --destination are required")
		}
		return job.File{Source: a.env.TableSource(), Columns: []job.Column{col}}, nil
	}
	f, err := job.LoadFile(args[0])
	if err != nil {
		return job.File{}, err
	}
	if f.Store == "" {
		f.Source = a.env.TableSource()
	}
	return f, nil
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
