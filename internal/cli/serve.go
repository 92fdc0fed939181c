package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/conflictsuite/internal/api"
)

// NewServeCmd создаёт команду read API над историей прогонов.
func NewServeCmd(appFn func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only results API and /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := appFn()
			ctx := cmd.Context()

			if app.Config.DBURL == "" {
				return ErrNoStore
			}

			suite, err := app.Suite()
			if err != nil {
				return err
			}

			_, store, cleanup, err := app.Recorders(ctx, true, false)
			defer cleanup()
			if err != nil {
				return err
			}

			handler := api.NewHandler(api.Config{
				Store:    store,
				Suite:    suite,
				Gatherer: app.Registry,
				Logger:   app.Logger,
			})

			return serveHTTP(ctx, app.Config.APIAddr, api.NewServeMux(handler), app.Logger)
		},
	}
}
