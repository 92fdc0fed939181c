package cli

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/orchestrator"
)

// NewRunCmd создаёт команду одного прогона матрицы.
func NewRunCmd(appFn func() *App, outputFn func() *Output) *cobra.Command {
	var verifyAccepted, failFast bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conflict matrix once",
		Long: `Run walks the conflict matrix rule by rule against the cluster.

Results are stored in Postgres when DB_URL is set and published to
RabbitMQ when RABBITMQ_URL is set. Exit status is non-zero if any rule fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFn()
			out := outputFn()
			ctx := cmd.Context()

			suite, err := app.Suite()
			if err != nil {
				return err
			}

			recorder, _, cleanup, err := app.Recorders(ctx, app.Config.DBURL != "", app.Config.RabbitURL != "")
			defer cleanup()
			if err != nil {
				return err
			}

			orch, err := app.Orchestrator(suite, recorder, verifyAccepted, failFast)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = app.Config.MetricsAddr
			}

			g, gctx := errgroup.WithContext(ctx)
			serverCtx, stopServer := context.WithCancel(gctx)

			var report *orchestrator.Report
			g.Go(func() error {
				defer stopServer()
				var runErr error
				report, runErr = orch.Run(gctx)
				return runErr
			})

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("GET /metrics", app.MetricsHandler())
				g.Go(func() error {
					return serveHTTP(serverCtx, metricsAddr, mux, app.Logger)
				})
			}

			runErr := g.Wait()
			if report != nil {
				printReport(out, report)
			}
			if runErr != nil {
				return runErr
			}
			if report.Run.Status == domain.RunStatusFailed {
				return fmt.Errorf("%w: %d of %d rules failed", ErrSuiteFailed, report.Run.Failed, report.Run.Rules)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verifyAccepted, "verify-accepted", false, "After transactions clear, re-issue the attempted command and require success")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop after the first failed rule")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics on this address while running (overrides METRICS_ADDR)")

	return cmd
}

// printReport выводит результаты правил и итог прогона.
func printReport(out *Output, report *orchestrator.Report) {
	headers := []string{"RULE", "BLOCKING", "ATTEMPTED", "STATUS", "FAILURE", "POLL", "DURATION"}
	rows := make([][]string, len(report.Outcomes))
	for i, o := range report.Outcomes {
		rows[i] = []string{
			o.Rule,
			string(o.Blocking),
			string(o.Attempted),
			string(o.Status),
			string(o.Failure),
			string(o.PollStatus),
			o.Duration().Round(time.Millisecond).String(),
		}
	}
	out.Print(headers, rows, report)

	run := report.Run
	out.Success(fmt.Sprintf("Run %s: %s (%s/%s passed)",
		run.ID, run.Status, strconv.Itoa(run.Passed), strconv.Itoa(run.Rules)))
	for _, o := range report.Outcomes {
		if o.Status == domain.OutcomePassed {
			continue
		}
		detail := o.Observed
		if o.Error != "" {
			detail = o.Error
		}
		out.Error(fmt.Sprintf("%s (%s vs %s): %s: expected %q, got %q",
			o.Rule, o.Blocking, o.Attempted, o.Failure, o.Expected, detail))
	}
}
