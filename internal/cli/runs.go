package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewRunsCmd создаёт группу команд для просмотра истории через read API.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse stored suite runs (via the read API)",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsOutcomesCmd(clientFn, outputFn),
	)

	return cmd
}

var runHeaders = []string{"ID", "STATUS", "PASSED", "FAILED", "RULES", "CLUSTER", "STARTED"}

func runRow(r RunResponse) []string {
	return []string{r.ID, r.Status, strconv.Itoa(r.Passed), strconv.Itoa(r.Failed), strconv.Itoa(r.Rules), r.Cluster, r.StartedAt}
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suite runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := clientFn().ListRuns(cmd.Context(), ListRunsOpts{
				Status: status,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}

			outputFn().Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, PASSED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip the first N results")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show suite run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			outputFn().Print(
				append(runHeaders, "FINISHED", "ERROR"),
				[][]string{append(runRow(*run), run.FinishedAt, run.Error)},
				run,
			)
			return nil
		},
	}
}

func newRunsOutcomesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "outcomes RUN_ID",
		Short: "List rule outcomes of a suite run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcomes, err := clientFn().ListOutcomes(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			headers := []string{"RULE", "BLOCKING", "ATTEMPTED", "STATUS", "FAILURE", "POLL", "OBSERVED"}
			rows := make([][]string, len(outcomes))
			for i, o := range outcomes {
				rows[i] = []string{o.Rule, o.Blocking, o.Attempted, o.Status, o.Failure, o.PollStatus, o.Observed}
			}

			outputFn().Print(headers, rows, outcomes)
			return nil
		},
	}
}
