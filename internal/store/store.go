// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"goldwatch/internal/models"
)

// Store defines the interface for data persistence. Different jobs may hit
// the store concurrently (a cleanup racing a collect), so implementations
// must tolerate concurrent reads and writes.
type Store interface {
	// Price snapshots
	SaveSnapshot(ctx context.Context, snap *models.PriceSnapshot) error
	LatestSnapshot(ctx context.Context) (*models.PriceSnapshot, error)
	SnapshotsBetween(ctx context.Context, from, to time.Time) ([]models.PriceSnapshot, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Shop price batches
	UpsertShopBatch(ctx context.Context, batch *models.ShopPriceBatch) error
	ShopBatchByDate(ctx context.Context, date string) (*models.ShopPriceBatch, error)
	LatestShopBatch(ctx context.Context) (*models.ShopPriceBatch, error)
	ShopBatchesSince(ctx context.Context, cutoff time.Time) ([]models.ShopPriceBatch, error)
	DeleteShopBatchesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Alert configuration
	AlertConfig(ctx context.Context) (*models.AlertConfig, error)
	SaveAlertConfig(ctx context.Context, cfg *models.AlertConfig) error

	// Push log
	AppendPushLog(ctx context.Context, entry *models.PushLog) error
	RecentPushLogs(ctx context.Context, limit int) ([]models.PushLog, error)
	PushStats(ctx context.Context, limit int) (*models.PushStats, error)

	// Lifecycle
	Close() error
}
