// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"goldwatch/internal/models"
	"goldwatch/pkg/utils"
)

// defaultAlertHigh and defaultAlertLow seed the singleton alert config on
// first read, matching the dashboard's expectations.
const (
	defaultAlertHigh = 1250.0
	defaultAlertLow  = 1200.0
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Gold price snapshots, one row per collection instant
	CREATE TABLE IF NOT EXISTS gold_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		price REAL NOT NULL,
		open_price REAL NOT NULL,
		high_price REAL NOT NULL,
		low_price REAL NOT NULL,
		buy_price REAL NOT NULL,
		sell_price REAL NOT NULL,
		last_close REAL NOT NULL,
		change_amount REAL NOT NULL,
		change_percent REAL NOT NULL,
		volume INTEGER,
		source_time TEXT NOT NULL,
		collected_at DATETIME NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_gold_prices_collected_at ON gold_prices(collected_at);

	-- Shop brand prices, one row per calendar date
	CREATE TABLE IF NOT EXISTS shop_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL UNIQUE,
		prices TEXT NOT NULL,
		collected_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Singleton alert threshold configuration
	CREATE TABLE IF NOT EXISTS alert_configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		high_price REAL,
		low_price REAL,
		enabled INTEGER NOT NULL DEFAULT 1,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Append-only push delivery audit trail
	CREATE TABLE IF NOT EXISTS push_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_push_logs_created_at ON push_logs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot inserts a price snapshot. A snapshot with an already-stored
// collected_at is a benign duplicate collection and is silently ignored.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *models.PriceSnapshot) error {
	var volume interface{}
	if snap.Volume != nil {
		volume = *snap.Volume
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO gold_prices
		(price, open_price, high_price, low_price, buy_price, sell_price,
		 last_close, change_amount, change_percent, volume, source_time, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Price, snap.OpenPrice, snap.HighPrice, snap.LowPrice,
		snap.BuyPrice, snap.SellPrice, snap.LastClose,
		snap.ChangeAmount, snap.ChangePercent, volume,
		snap.SourceTime, snap.CollectedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently collected snapshot, or nil when
// the table is empty.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*models.PriceSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, price, open_price, high_price, low_price, buy_price, sell_price,
		       last_close, change_amount, change_percent, volume, source_time, collected_at
		FROM gold_prices
		ORDER BY collected_at DESC
		LIMIT 1`)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	return snap, nil
}

// SnapshotsBetween returns snapshots with collected_at in [from, to],
// ascending by collection time.
func (s *SQLiteStore) SnapshotsBetween(ctx context.Context, from, to time.Time) ([]models.PriceSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, price, open_price, high_price, low_price, buy_price, sell_price,
		       last_close, change_amount, change_percent, volume, source_time, collected_at
		FROM gold_prices
		WHERE collected_at >= ? AND collected_at <= ?
		ORDER BY collected_at ASC`,
		from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []models.PriceSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// DeleteSnapshotsBefore deletes snapshots collected strictly before cutoff
// and returns the number of rows removed.
func (s *SQLiteStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM gold_prices WHERE collected_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting old snapshots: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*models.PriceSnapshot, error) {
	var snap models.PriceSnapshot
	var volume sql.NullInt64
	err := row.Scan(&snap.ID, &snap.Price, &snap.OpenPrice, &snap.HighPrice,
		&snap.LowPrice, &snap.BuyPrice, &snap.SellPrice, &snap.LastClose,
		&snap.ChangeAmount, &snap.ChangePercent, &volume,
		&snap.SourceTime, &snap.CollectedAt)
	if err != nil {
		return nil, err
	}
	if volume.Valid {
		v := volume.Int64
		snap.Volume = &v
	}
	return &snap, nil
}

// UpsertShopBatch inserts or replaces the shop price batch for its date.
// Re-collecting a date overwrites the brand list and refreshes collected_at.
func (s *SQLiteStore) UpsertShopBatch(ctx context.Context, batch *models.ShopPriceBatch) error {
	pricesJSON, err := json.Marshal(batch.Prices)
	if err != nil {
		return fmt.Errorf("marshaling brand prices: %w", err)
	}

	collectedAt := batch.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shop_prices (date, prices, collected_at)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			prices = excluded.prices,
			collected_at = excluded.collected_at`,
		batch.Date, string(pricesJSON), collectedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting shop batch: %w", err)
	}
	return nil
}

// ShopBatchByDate returns the batch for one calendar date, or nil if absent.
func (s *SQLiteStore) ShopBatchByDate(ctx context.Context, date string) (*models.ShopPriceBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, prices, collected_at, created_at
		FROM shop_prices
		WHERE date = ?`, date)

	batch, err := scanShopBatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying shop batch: %w", err)
	}
	return batch, nil
}

// LatestShopBatch returns the most recently collected batch, or nil.
func (s *SQLiteStore) LatestShopBatch(ctx context.Context) (*models.ShopPriceBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, prices, collected_at, created_at
		FROM shop_prices
		ORDER BY collected_at DESC
		LIMIT 1`)

	batch, err := scanShopBatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest shop batch: %w", err)
	}
	return batch, nil
}

// ShopBatchesSince returns batches collected at or after cutoff, ascending
// by date.
func (s *SQLiteStore) ShopBatchesSince(ctx context.Context, cutoff time.Time) ([]models.ShopPriceBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, prices, collected_at, created_at
		FROM shop_prices
		WHERE collected_at >= ?
		ORDER BY date ASC`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying shop batches: %w", err)
	}
	defer rows.Close()

	var batches []models.ShopPriceBatch
	for rows.Next() {
		batch, err := scanShopBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shop batch: %w", err)
		}
		batches = append(batches, *batch)
	}
	return batches, rows.Err()
}

// DeleteShopBatchesBefore deletes batches collected strictly before cutoff.
func (s *SQLiteStore) DeleteShopBatchesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM shop_prices WHERE collected_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting old shop batches: %w", err)
	}
	return res.RowsAffected()
}

func scanShopBatch(row rowScanner) (*models.ShopPriceBatch, error) {
	var batch models.ShopPriceBatch
	var pricesJSON string
	err := row.Scan(&batch.ID, &batch.Date, &pricesJSON, &batch.CollectedAt, &batch.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(pricesJSON), &batch.Prices); err != nil {
		return nil, fmt.Errorf("unmarshaling brand prices: %w", err)
	}
	return &batch, nil
}

// AlertConfig returns the singleton alert configuration, creating the
// default row on first read.
func (s *SQLiteStore) AlertConfig(ctx context.Context) (*models.AlertConfig, error) {
	cfg, err := s.firstAlertConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	high, low := defaultAlertHigh, defaultAlertLow
	seed := &models.AlertConfig{HighPrice: &high, LowPrice: &low, Enabled: true}
	if err := s.SaveAlertConfig(ctx, seed); err != nil {
		return nil, err
	}
	return s.firstAlertConfig(ctx)
}

func (s *SQLiteStore) firstAlertConfig(ctx context.Context) (*models.AlertConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, high_price, low_price, enabled
		FROM alert_configs
		ORDER BY id ASC
		LIMIT 1`)

	var cfg models.AlertConfig
	var high, low sql.NullFloat64
	err := row.Scan(&cfg.ID, &high, &low, &cfg.Enabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying alert config: %w", err)
	}
	if high.Valid {
		v := high.Float64
		cfg.HighPrice = &v
	}
	if low.Valid {
		v := low.Float64
		cfg.LowPrice = &v
	}
	return &cfg, nil
}

// SaveAlertConfig updates the singleton alert configuration, creating it
// when absent.
func (s *SQLiteStore) SaveAlertConfig(ctx context.Context, cfg *models.AlertConfig) error {
	var high, low interface{}
	if cfg.HighPrice != nil {
		high = *cfg.HighPrice
	}
	if cfg.LowPrice != nil {
		low = *cfg.LowPrice
	}

	existing, err := s.firstAlertConfig(ctx)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO alert_configs (high_price, low_price, enabled)
			VALUES (?, ?, ?)`, high, low, cfg.Enabled)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE alert_configs
			SET high_price = ?, low_price = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, high, low, cfg.Enabled, existing.ID)
	}
	if err != nil {
		return fmt.Errorf("saving alert config: %w", err)
	}
	return nil
}

// AppendPushLog records one delivery attempt. Content is truncated to 1000
// characters before storage.
func (s *SQLiteStore) AppendPushLog(ctx context.Context, entry *models.PushLog) error {
	content := utils.Truncate(entry.Content, 1000)

	var errDetail interface{}
	if entry.Error != "" {
		errDetail = entry.Error
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_logs (type, content, success, error)
		VALUES (?, ?, ?, ?)`,
		string(entry.Type), content, entry.Success, errDetail)
	if err != nil {
		return fmt.Errorf("appending push log: %w", err)
	}
	return nil
}

// RecentPushLogs returns the newest limit entries, newest first.
func (s *SQLiteStore) RecentPushLogs(ctx context.Context, limit int) ([]models.PushLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, content, success, error, created_at
		FROM push_logs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying push logs: %w", err)
	}
	defer rows.Close()

	var logs []models.PushLog
	for rows.Next() {
		var entry models.PushLog
		var errDetail sql.NullString
		var pushType string
		if err := rows.Scan(&entry.ID, &pushType, &entry.Content,
			&entry.Success, &errDetail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning push log: %w", err)
		}
		entry.Type = models.PushType(pushType)
		if errDetail.Valid {
			entry.Error = errDetail.String
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// PushStats summarizes the newest limit push log entries.
func (s *SQLiteStore) PushStats(ctx context.Context, limit int) (*models.PushStats, error) {
	logs, err := s.RecentPushLogs(ctx, limit)
	if err != nil {
		return nil, err
	}

	stats := &models.PushStats{ByType: make(map[string]int)}
	for _, entry := range logs {
		stats.Total++
		if entry.Success {
			stats.Success++
		} else {
			stats.Failed++
		}
		stats.ByType[string(entry.Type)]++
	}
	return stats, nil
}
