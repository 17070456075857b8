package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-grader/internal/api/http"
	auth "github.com/mind-engage/mindengage-grader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grader/internal/grading"
	"github.com/mind-engage/mindengage-grader/internal/job"
	"github.com/mind-engage/mindengage-grader/internal/table"
)

func (a *app) serveCmd() *cobra.Command {
	var noColumns bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the grading HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			base, err := a.env.Grading()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			g := a.grader(grading.WithMetrics(grading.NewMetrics(reg)))

			var runner *job.Runner
			if !noColumns {
				openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				tbl, closeTable, err := table.Open(openCtx, a.env.TableSource())
				cancel()
				if err != nil {
					return fmt.Errorf("table store: %w", err)
				}
				defer closeTable()
				runner = job.NewRunner(g, tbl, base, a.logger, job.WithMaxRows(a.env.MaxBatch))
			}

			h := api.NewRouter(api.Deps{
				Auth: auth.NewAuthService(a.env.AuthSecret, a.env.TokenTTL),
				Users: auth.NewPasswordLogin(auth.User{
					Name: a.env.AdminUser, PassHash: a.env.AdminPassHash, Role: "admin",
				}),
				Grader:      g,
				Defaults:    base,
				Runner:      runner,
				MaxBatch:    a.env.MaxBatch,
				Gatherer:    reg,
				CORSOrigins: a.env.CORSOrigins,
				Logger:      a.logger,
			})
			srv := &http.Server{Addr: a.env.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			a.logger.Info("listening",
				zap.String("addr", a.env.HTTPAddr),
				zap.String("store", a.env.Store),
				zap.Bool("columns", runner != nil),
			)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	a.bindStoreFlags(cmd)
	cmd.Flags().StringVar(&a.env.HTTPAddr, "addr", a.env.HTTPAddr, "listen address")
	cmd.Flags().BoolVar(&noColumns, "no-columns", false, "do not open a table store; disables /grade/column")
	return cmd
}
