// Command grader grades LaTeX answers against a reference answer, from the
// command line, from spreadsheet columns, or over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mind-engage/mindengage-grader/internal/config"
	"github.com/mind-engage/mindengage-grader/internal/expr"
	"github.com/mind-engage/mindengage-grader/internal/grading"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by all subcommands. Flags write straight into
// env, so the environment supplies defaults and flags override them.
type app struct {
	env     config.Config
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{env: config.FromEnv(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "grader",
		Short: "Grade math answers written in LaTeX",
		Long: `grader compares submitted LaTeX answers with a reference answer.

Each answer gets one code:
  0    not equivalent
  0.1  not equivalent, suspicious (long digit run)
  1    equivalent
  1.1  equivalent, suspicious
  2    evaluation timed out
  3    evaluation failed`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			if a.verbose || a.env.Verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&a.env.Mode, "mode", a.env.Mode, "numeric or symbolic")
	pf.IntVar(&a.env.Precision, "precision", a.env.Precision, "significant digits for numeric evaluation")
	pf.StringVar(&a.env.Tolerance, "tolerance", a.env.Tolerance, "inclusive absolute tolerance for numeric mode")
	pf.IntVar(&a.env.SuspiciousRunLength, "suspicious-run", a.env.SuspiciousRunLength, "digit run length that marks an answer suspicious")
	pf.StringVar(&a.env.SuspicionRule, "suspicion-rule", a.env.SuspicionRule, "repeated (same digit) or digits (any digits)")
	pf.DurationVar(&a.env.TimeBudget, "time-budget", a.env.TimeBudget, "time limit per answer")
	pf.IntVar(&a.env.Workers, "workers", a.env.Workers, "answers evaluated concurrently")

	root.AddCommand(a.compareCmd(), a.gradeCmd(), a.serveCmd(), a.hashPasswordCmd())
	return root
}

func (a *app) grader(opts ...grading.GraderOption) *grading.Grader {
	return grading.New(expr.NewLaTeX(), append([]grading.GraderOption{grading.WithLogger(a.logger)}, opts...)...)
}

func (a *app) bindStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&a.env.Store, "store", a.env.Store, "table backend: sheets or sql")
	f.StringVar(&a.env.SpreadsheetID, "spreadsheet-id", a.env.SpreadsheetID, "Google spreadsheet id")
	f.StringVar(&a.env.CredentialsFile, "credentials", a.env.CredentialsFile, "Google credentials JSON file")
	f.StringVar(&a.env.DBDriver, "db-driver", a.env.DBDriver, "sqlite or postgres")
	f.StringVar(&a.env.DBDSN, "db-dsn", a.env.DBDSN, "database DSN")
}
