package cli

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/conflictsuite/internal/api"
	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/scheduler"
)

// NewSoakCmd создаёт команду повторных прогонов по расписанию.
func NewSoakCmd(appFn func() *App, outputFn func() *Output) *cobra.Command {
	var (
		cronExpr       string
		interval       time.Duration
		timezone       string
		maxRuns        int
		stopOnFailure  bool
		listen         bool
		verifyAccepted bool
		failFast       bool
	)

	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Re-run the conflict matrix on a cron expression or interval",
		Example: `  conflictsuite soak --interval 10m --max-runs 24
  conflictsuite soak --cron "*/30 * * * *" --timezone Europe/Moscow --listen`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFn()
			out := outputFn()
			ctx := cmd.Context()

			suite, err := app.Suite()
			if err != nil {
				return err
			}

			recorder, store, cleanup, err := app.Recorders(ctx, app.Config.DBURL != "", app.Config.RabbitURL != "")
			defer cleanup()
			if err != nil {
				return err
			}

			orch, err := app.Orchestrator(suite, recorder, verifyAccepted, failFast)
			if err != nil {
				return err
			}

			sched, err := scheduler.New(scheduler.Config{
				Runner: orch,
				Schedule: &domain.Schedule{
					CronExpr: cronExpr,
					Interval: interval,
					Timezone: timezone,
					MaxRuns:  maxRuns,
				},
				Logger:        app.Logger,
				StopOnFailure: stopOnFailure,
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			serverCtx, stopServer := context.WithCancel(gctx)

			g.Go(func() error {
				defer stopServer()
				return sched.Run(gctx)
			})

			if listen {
				cfg := api.Config{
					Suite:    suite,
					Live:     orch,
					Gatherer: app.Registry,
					Logger:   app.Logger,
				}
				if store != nil {
					cfg.Store = store
				}
				mux := http.NewServeMux()
				api.NewHandler(cfg).RegisterRoutes(mux)
				g.Go(func() error {
					return serveHTTP(serverCtx, app.Config.APIAddr, mux, app.Logger)
				})
			}

			err = g.Wait()
			s := sched.Schedule()
			out.Success("Soak finished after " + strconv.Itoa(s.Runs) + " run(s)")

			// Ctrl-C — штатное завершение soak-режима
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (minute hour dom month dow)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between runs when --cron is not set")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "Timezone for --cron")
	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "Stop after N runs (0 = until interrupted)")
	cmd.Flags().BoolVar(&stopOnFailure, "stop-on-failure", false, "Stop after the first failed run")
	cmd.Flags().BoolVar(&listen, "listen", false, "Serve the read API, live progress and /metrics on API_PORT")
	cmd.Flags().BoolVar(&verifyAccepted, "verify-accepted", false, "After transactions clear, re-issue the attempted command and require success")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop each run after the first failed rule")

	return cmd
}
