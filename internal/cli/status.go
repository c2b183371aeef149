package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"goldwatch/internal/timeref"
)

// newStatusCmd shows the latest stored data and push statistics.
func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show latest stored data and push statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			latest, err := app.Store.LatestSnapshot(ctx)
			if err != nil {
				return err
			}
			shopBatch, err := app.Store.LatestShopBatch(ctx)
			if err != nil {
				return err
			}
			alertCfg, err := app.Store.AlertConfig(ctx)
			if err != nil {
				return err
			}
			pushStats, err := app.Store.PushStats(ctx, 100)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"latest_snapshot": latest,
					"latest_shop":     shopBatch,
					"alert_config":    alertCfg,
					"push_stats":      pushStats,
				})
			}

			output.Bold("Latest Quote")
			if latest == nil {
				output.Dim("  no data")
			} else {
				output.Printf("  %.2f at %s (%s)\n", latest.Price,
					latest.CollectedAt.In(timeref.Location).Format("2006-01-02 15:04:05"),
					output.FormatChange(latest.ChangeAmount, latest.ChangePercent))
			}
			output.Println()

			output.Bold("Latest Shop Batch")
			if shopBatch == nil {
				output.Dim("  no data")
			} else {
				output.Printf("  %s: %d brands\n", shopBatch.Date, len(shopBatch.Prices))
			}
			output.Println()

			output.Bold("Alert Config")
			output.Printf("  Enabled: %v\n", alertCfg.Enabled)
			output.Printf("  High:    %s\n", optionalCell(alertCfg.HighPrice))
			output.Printf("  Low:     %s\n", optionalCell(alertCfg.LowPrice))
			output.Println()

			output.Bold("Push Stats (last 100)")
			output.Printf("  Total: %d  Success: %d  Failed: %d\n",
				pushStats.Total, pushStats.Success, pushStats.Failed)
			for typ, count := range pushStats.ByType {
				output.Printf("    %-8s %d\n", typ, count)
			}
			return nil
		},
	}
}
