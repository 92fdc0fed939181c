package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/conflictsuite/internal/telemetry"
)

// NewRootCmd создаёт дерево команд conflictsuite.
//
// App и Output создаются лениво в PersistentPreRunE, после разбора
// флагов и загрузки .env: подкомандам передаются замыкания appFn и outputFn.
func NewRootCmd(version string) *cobra.Command {
	var (
		envFiles   []string
		jsonOutput bool
		apiURL     string
		suitePath  string
		rules      []string
		app        *App
	)

	root := &cobra.Command{
		Use:   "conflictsuite",
		Short: "Conflict test harness for cluster maintenance operations",
		Long: `conflictsuite launches an administrative operation on the cluster, waits until
it is accepted, issues a conflicting operation over a second connection and
checks that the cluster rejects it with the documented error message.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(envFiles...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				cfg.APIURL = apiURL
			}

			logger := telemetry.SetupLogger()
			app = newApp(cfg, logger, suitePath, rules)
			return nil
		},
	}

	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default .env)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL, "Read API URL (overrides API_URL)")
	root.PersistentFlags().StringVar(&suitePath, "suite", "", "Suite YAML file (built-in matrix if empty)")
	root.PersistentFlags().StringSliceVar(&rules, "rule", nil, "Run only these rules (repeatable)")

	appFn := func() *App { return app }
	outputFn := func() *Output { return NewOutput(jsonOutput, root.OutOrStdout(), root.ErrOrStderr()) }
	clientFn := func() *Client { return NewClient(app.Config.APIURL) }

	root.AddCommand(
		NewRunCmd(appFn, outputFn),
		NewSoakCmd(appFn, outputFn),
		NewServeCmd(appFn),
		NewMatrixCmd(appFn, outputFn),
		NewWaitCmd(appFn, outputFn),
		NewWatchCmd(appFn, outputFn),
		NewRunsCmd(clientFn, outputFn),
	)

	return root
}
