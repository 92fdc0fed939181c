package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/conflictsuite/internal/matrix"
)

// NewMatrixCmd создаёт группу команд для работы с матрицей конфликтов.
func NewMatrixCmd(appFn func() *App, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Inspect and validate the conflict matrix",
	}

	cmd.AddCommand(
		newMatrixShowCmd(appFn, outputFn),
		newMatrixValidateCmd(outputFn),
	)

	return cmd
}

func newMatrixShowCmd(appFn func() *App, outputFn func() *Output) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the conflict matrix (--suite or built-in)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := outputFn()

			suite, err := appFn().Suite()
			if err != nil {
				return err
			}

			if asYAML {
				data, err := matrix.Marshal(suite)
				if err != nil {
					return err
				}
				out.Raw(data)
				return nil
			}

			headers := []string{"RULE", "BLOCKING", "ATTEMPTED", "EXPECTED", "CHAIN"}
			rows := make([][]string, len(suite.Rules))
			for i, r := range suite.Rules {
				chain := make([]string, len(r.Chain))
				for j, v := range r.Chain {
					chain[j] = fmt.Sprint(v)
				}
				rows[i] = []string{r.Name, string(r.Blocking), string(r.Attempted), r.ExpectedError, strings.Join(chain, ",")}
			}
			out.Print(headers, rows, suite)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the suite as YAML (a starting point for --suite)")

	return cmd
}

func newMatrixValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a suite file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			suite, err := matrix.LoadFile(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("%s: %d rules OK", args[0], len(suite.Rules)))
			return nil
		},
	}
}
