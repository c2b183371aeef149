// Package cli provides the command-line interface for the collection service.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"goldwatch/internal/config"
	"goldwatch/internal/logging"
	"goldwatch/internal/notify"
	"goldwatch/internal/quote"
	"goldwatch/internal/shop"
	"goldwatch/internal/stats"
	"goldwatch/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.Store
	Quote      *quote.Fetcher
	Shop       *shop.Scraper
	Aggregator *stats.Aggregator
	Sender     notify.Sender
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Database.Path).Msg("SQLite store initialized")
	}

	app.Quote = quote.NewFetcher(cfg.Source.QuoteURL)
	app.Shop = shop.NewScraper(cfg.Source.ShopURL)
	if app.Store != nil {
		app.Aggregator = stats.NewAggregator(app.Store)
		if cfg.Webhook.URL != "" {
			app.Sender = notify.NewWebhookSender(cfg.Webhook.URL, app.Store,
				logging.WithComponent(logger, "notify"))
		} else {
			app.Sender = notify.NopSender{}
			logger.Debug().Msg("No webhook configured, notifications disabled")
		}
	}

	rootCmd := &cobra.Command{
		Use:   "goldwatch",
		Short: "Gold price collection and alerting service",
		Long: `Goldwatch collects domestic gold quotes and retail shop prices on a
schedule, aggregates them into hourly and daily reports, and pushes
threshold alerts to a webhook.

Use 'goldwatch serve' to run the scheduler and HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/goldwatch)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newCollectCmd(app))
	rootCmd.AddCommand(newShopCollectCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Goldwatch v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}
