package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/poller"
)

// NewWaitCmd создаёт команды ожидания простоя кластера.
func NewWaitCmd(appFn func() *App, outputFn func() *Output) *cobra.Command {
	var timeout, interval time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until cluster transactions or compactions finish",
	}

	targets := []struct {
		use, short, query string
	}{
		{"transactions", "Wait until SHOW TRANSACTIONS returns no rows", domain.QueryShowTransactions},
		{"compacts", "Wait until SHOW COMPACTS returns no rows", domain.QueryShowCompacts},
	}

	for _, t := range targets {
		query := t.query
		cmd.AddCommand(&cobra.Command{
			Use:   t.use,
			Short: t.short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				app := appFn()
				out := outputFn()
				ctx := cmd.Context()

				dialer, err := app.Config.Dialer(app.Logger)
				if err != nil {
					return err
				}
				conn, err := dialer.Dial(ctx)
				if err != nil {
					return fmt.Errorf("dial cluster: %w", err)
				}
				defer conn.Close(ctx)

				p := poller.New(poller.Config{Conn: conn, Logger: app.Logger, Metrics: app.Metrics})
				res, err := p.WaitUntilZero(ctx, query, poller.Options{Timeout: timeout, Interval: interval})
				if err != nil {
					return err
				}

				out.Print(
					[]string{"QUERY", "STATUS", "ATTEMPTS", "LAST_COUNT", "ELAPSED"},
					[][]string{{query, string(res.Status), strconv.Itoa(res.Attempts), strconv.Itoa(res.LastCount), res.Elapsed.Round(time.Millisecond).String()}},
					res,
				)
				if !res.Completed() {
					return fmt.Errorf("%w: %s returned %d rows after %s", ErrWaitTimedOut, query, res.LastCount, timeout)
				}
				return nil
			},
		})
	}

	cmd.PersistentFlags().DurationVar(&timeout, "timeout", poller.DefaultTimeout, "Overall wait budget (0 = query once)")
	cmd.PersistentFlags().DurationVar(&interval, "interval", poller.DefaultInterval, "Pause between queries")

	return cmd
}
