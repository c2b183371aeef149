package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goldwatch/internal/httpapi"
	"goldwatch/internal/logging"
	"goldwatch/internal/scheduler"
)

// newServeCmd creates the long-running service command.
func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and HTTP API",
		Long: `Runs the collection scheduler and the HTTP API until interrupted.

The scheduler only registers jobs when scheduler.enabled is set
(ENABLE_SCHEDULER=true); the API is always served.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable, cannot serve")
			}

			addr, _ := cmd.Flags().GetString("listen")
			if addr == "" {
				addr = app.Config.Server.ListenAddr
			}

			orch := scheduler.New(scheduler.Options{
				Store:         app.Store,
				Quote:         app.Quote,
				Shop:          app.Shop,
				Aggregator:    app.Aggregator,
				Sender:        app.Sender,
				Logger:        logging.WithComponent(app.Logger, "scheduler"),
				Enabled:       app.Config.Scheduler.Enabled,
				RetentionDays: app.Config.Scheduler.RetentionDays,
			})
			if err := orch.Start(); err != nil {
				return fmt.Errorf("starting scheduler: %w", err)
			}
			defer orch.Stop()

			server := httpapi.NewServer(app.Store, app.Quote, app.Shop,
				app.Aggregator, orch, logging.WithComponent(app.Logger, "http"))

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.Logger.Info().
				Str("addr", addr).
				Bool("scheduler", app.Config.Scheduler.Enabled).
				Msg("Service starting")

			if err := server.Run(ctx, addr); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			app.Logger.Info().Msg("Service stopped")
			return nil
		},
	}

	cmd.Flags().String("listen", "", "listen address (default from config)")
	return cmd
}
