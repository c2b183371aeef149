package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"goldwatch/internal/shop"
)

const commandTimeout = 30 * time.Second

// newCollectCmd fetches one quote and optionally saves it.
func newCollectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch the current gold quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			snap, err := app.Quote.Fetch(ctx)
			if err != nil {
				output.Error("Fetch failed: %v", err)
				return err
			}

			save, _ := cmd.Flags().GetBool("save")
			if save {
				if app.Store == nil {
					return fmt.Errorf("store unavailable, cannot save")
				}
				if err := app.Store.SaveSnapshot(ctx, snap); err != nil {
					output.Error("Save failed: %v", err)
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(snap)
			}

			output.Bold("Gold Quote (Au T+D)")
			output.Printf("  Price:   %.2f\n", snap.Price)
			output.Printf("  Change:  %s\n", output.FormatChange(snap.ChangeAmount, snap.ChangePercent))
			output.Printf("  Range:   %.2f - %.2f (open %.2f)\n", snap.LowPrice, snap.HighPrice, snap.OpenPrice)
			output.Printf("  Time:    %s\n", snap.CollectedAt.Format("2006-01-02 15:04:05"))
			if save {
				output.Success("Snapshot saved")
			}
			return nil
		},
	}

	cmd.Flags().Bool("save", false, "persist the snapshot")
	return cmd
}

// newShopCollectCmd scrapes and stores today's shop prices.
func newShopCollectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shop-collect",
		Short: "Collect today's retail shop gold prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable, cannot collect")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			batch, err := app.Shop.Fetch(ctx)
			if err != nil {
				output.Error("Scrape failed: %v", err)
				return err
			}

			valid := shop.FilterValid(batch.Prices)
			if len(valid) == 0 {
				return fmt.Errorf("no valid shop price rows for %s", batch.Date)
			}
			batch.Prices = valid

			if err := app.Store.UpsertShopBatch(ctx, batch); err != nil {
				output.Error("Save failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(batch)
			}

			output.Success("Collected %d brand prices for %s", len(valid), batch.Date)
			table := NewTable(output, "BRAND", "GOLD", "PLATINUM", "BAR")
			for _, p := range valid {
				table.AddRow(p.BrandName,
					fmt.Sprintf("%.2f", p.GoldPrice),
					optionalCell(p.PlatinumPrice),
					optionalCell(p.BarPrice))
			}
			table.Render()
			return nil
		},
	}
}

func optionalCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
