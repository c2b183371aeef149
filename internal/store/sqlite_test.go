package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"goldwatch/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot(collectedAt time.Time, price float64) *models.PriceSnapshot {
	volume := int64(123456)
	return &models.PriceSnapshot{
		Price:         price,
		OpenPrice:     price - 2,
		HighPrice:     price + 5,
		LowPrice:      price - 5,
		BuyPrice:      price - 0.1,
		SellPrice:     price + 0.1,
		LastClose:     price - 3,
		ChangeAmount:  3,
		ChangePercent: 0.24,
		Volume:        &volume,
		SourceTime:    collectedAt.Format("15:04:05"),
		CollectedAt:   collectedAt,
	}
}

func TestSaveSnapshotIgnoresDuplicateCollectedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	if err := store.SaveSnapshot(ctx, testSnapshot(at, 1245.40)); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	// Same instant with a different price is a benign duplicate collection.
	if err := store.SaveSnapshot(ctx, testSnapshot(at, 9999)); err != nil {
		t.Fatalf("duplicate save failed: %v", err)
	}

	snaps, err := store.SnapshotsBetween(ctx, at.Add(-time.Hour), at.Add(time.Hour))
	if err != nil {
		t.Fatalf("SnapshotsBetween failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("len(snaps) = %d, want 1", len(snaps))
	}
	if snaps[0].Price != 1245.40 {
		t.Errorf("Price = %v, want the first write to win", snaps[0].Price)
	}
}

func TestLatestSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if latest != nil {
		t.Fatalf("LatestSnapshot on empty store = %+v, want nil", latest)
	}

	base := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	for i, price := range []float64{1240, 1245, 1250} {
		snap := testSnapshot(base.Add(time.Duration(i)*5*time.Minute), price)
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	latest, err = store.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if latest == nil || latest.Price != 1250 {
		t.Errorf("latest = %+v, want price 1250", latest)
	}
	if latest.Volume == nil || *latest.Volume != 123456 {
		t.Errorf("Volume = %v, want 123456", latest.Volume)
	}
}

func TestDeleteSnapshotsBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cutoff := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	older := testSnapshot(cutoff.Add(-time.Second), 1240)
	atCutoff := testSnapshot(cutoff, 1245)
	newer := testSnapshot(cutoff.Add(time.Second), 1250)
	for _, s := range []*models.PriceSnapshot{older, atCutoff, newer} {
		if err := store.SaveSnapshot(ctx, s); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	deleted, err := store.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteSnapshotsBefore failed: %v", err)
	}
	// Strictly before: the row exactly at the cutoff survives.
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	snaps, err := store.SnapshotsBetween(ctx, cutoff.Add(-time.Hour), cutoff.Add(time.Hour))
	if err != nil {
		t.Fatalf("SnapshotsBetween failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Errorf("len(snaps) = %d, want 2", len(snaps))
	}
}

func TestUpsertShopBatchOverwritesDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.ShopPriceBatch{
		Date: "2024-06-15",
		Prices: []models.BrandPrice{
			{BrandName: "周大福", GoldPrice: 1268, Unit: "元/克", UpdateDate: "2024-06-15"},
		},
		CollectedAt: time.Date(2024, 6, 15, 7, 30, 0, 0, time.UTC),
	}
	if err := store.UpsertShopBatch(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &models.ShopPriceBatch{
		Date: "2024-06-15",
		Prices: []models.BrandPrice{
			{BrandName: "周大福", GoldPrice: 1270, Unit: "元/克", UpdateDate: "2024-06-15"},
			{BrandName: "老凤祥", GoldPrice: 1272, Unit: "元/克", UpdateDate: "2024-06-15"},
		},
		CollectedAt: time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC),
	}
	if err := store.UpsertShopBatch(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	batch, err := store.ShopBatchByDate(ctx, "2024-06-15")
	if err != nil {
		t.Fatalf("ShopBatchByDate failed: %v", err)
	}
	if batch == nil {
		t.Fatal("batch is nil")
	}
	if len(batch.Prices) != 2 {
		t.Errorf("len(Prices) = %d, want the re-collection to replace the batch", len(batch.Prices))
	}
	if batch.Prices[0].GoldPrice != 1270 {
		t.Errorf("GoldPrice = %v, want 1270", batch.Prices[0].GoldPrice)
	}
	if !batch.CollectedAt.Equal(second.CollectedAt) {
		t.Errorf("CollectedAt = %v, want refreshed to %v", batch.CollectedAt, second.CollectedAt)
	}
}

func TestShopBatchQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.ShopBatchByDate(ctx, "2024-01-01")
	if err != nil {
		t.Fatalf("ShopBatchByDate failed: %v", err)
	}
	if missing != nil {
		t.Errorf("missing date = %+v, want nil", missing)
	}

	base := time.Date(2024, 6, 13, 7, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		day := base.Add(time.Duration(i) * 24 * time.Hour)
		batch := &models.ShopPriceBatch{
			Date: day.Format("2006-01-02"),
			Prices: []models.BrandPrice{
				{BrandName: "周大福", GoldPrice: 1268, Unit: "元/克", UpdateDate: day.Format("2006-01-02")},
			},
			CollectedAt: day,
		}
		if err := store.UpsertShopBatch(ctx, batch); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	latest, err := store.LatestShopBatch(ctx)
	if err != nil {
		t.Fatalf("LatestShopBatch failed: %v", err)
	}
	if latest == nil || latest.Date != "2024-06-15" {
		t.Errorf("latest = %+v, want date 2024-06-15", latest)
	}

	since, err := store.ShopBatchesSince(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ShopBatchesSince failed: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("len(since) = %d, want 2", len(since))
	}

	deleted, err := store.DeleteShopBatchesBefore(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteShopBatchesBefore failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestAlertConfigSeedsDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg, err := store.AlertConfig(ctx)
	if err != nil {
		t.Fatalf("AlertConfig failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("cfg is nil")
	}
	if cfg.HighPrice == nil || *cfg.HighPrice != defaultAlertHigh {
		t.Errorf("HighPrice = %v, want %v", cfg.HighPrice, defaultAlertHigh)
	}
	if cfg.LowPrice == nil || *cfg.LowPrice != defaultAlertLow {
		t.Errorf("LowPrice = %v, want %v", cfg.LowPrice, defaultAlertLow)
	}
	if !cfg.Enabled {
		t.Error("Enabled = false, want the seeded config enabled")
	}
}

func TestSaveAlertConfig(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	high := 1300.0
	if err := store.SaveAlertConfig(ctx, &models.AlertConfig{
		HighPrice: &high,
		Enabled:   false,
	}); err != nil {
		t.Fatalf("SaveAlertConfig failed: %v", err)
	}

	cfg, err := store.AlertConfig(ctx)
	if err != nil {
		t.Fatalf("AlertConfig failed: %v", err)
	}
	if cfg.HighPrice == nil || *cfg.HighPrice != 1300 {
		t.Errorf("HighPrice = %v, want 1300", cfg.HighPrice)
	}
	if cfg.LowPrice != nil {
		t.Errorf("LowPrice = %v, want nil", *cfg.LowPrice)
	}
	if cfg.Enabled {
		t.Error("Enabled = true, want false")
	}

	// A later save updates the same singleton row.
	low := 1150.0
	if err := store.SaveAlertConfig(ctx, &models.AlertConfig{
		HighPrice: &high,
		LowPrice:  &low,
		Enabled:   true,
	}); err != nil {
		t.Fatalf("second SaveAlertConfig failed: %v", err)
	}

	updated, err := store.AlertConfig(ctx)
	if err != nil {
		t.Fatalf("AlertConfig failed: %v", err)
	}
	if updated.ID != cfg.ID {
		t.Errorf("ID changed from %d to %d, want the singleton row updated", cfg.ID, updated.ID)
	}
	if updated.LowPrice == nil || *updated.LowPrice != 1150 {
		t.Errorf("LowPrice = %v, want 1150", updated.LowPrice)
	}
}

func TestAppendPushLogTruncatesContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	long := make([]rune, 1500)
	for i := range long {
		long[i] = '金'
	}
	if err := store.AppendPushLog(ctx, &models.PushLog{
		Type:    models.PushHourly,
		Content: string(long),
		Success: true,
	}); err != nil {
		t.Fatalf("AppendPushLog failed: %v", err)
	}

	logs, err := store.RecentPushLogs(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPushLogs failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("len(logs) = %d, want 1", len(logs))
	}
	if got := len([]rune(logs[0].Content)); got != 1000 {
		t.Errorf("content length = %d runes, want 1000", got)
	}
}

func TestPushStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []models.PushLog{
		{Type: models.PushHourly, Content: "h", Success: true},
		{Type: models.PushHourly, Content: "h", Success: false, Error: "status 500"},
		{Type: models.PushAlert, Content: "a", Success: true},
		{Type: models.PushError, Content: "e", Success: true},
	}
	for i := range entries {
		if err := store.AppendPushLog(ctx, &entries[i]); err != nil {
			t.Fatalf("AppendPushLog failed: %v", err)
		}
	}

	stats, err := store.PushStats(ctx, 100)
	if err != nil {
		t.Fatalf("PushStats failed: %v", err)
	}
	if stats.Total != 4 || stats.Success != 3 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 4/3/1", stats)
	}
	if stats.ByType["hourly"] != 2 || stats.ByType["alert"] != 1 || stats.ByType["error"] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
}
