// Package models defines the domain types shared across the application.
package models

import "time"

// PriceSnapshot represents one normalized observation of the AUTD gold
// quote. CollectedAt is an absolute instant derived from the source-reported
// time of day in the reference timezone, not the fetch wall clock.
type PriceSnapshot struct {
	ID            int64     `json:"id,omitempty"`
	Price         float64   `json:"price"`
	OpenPrice     float64   `json:"open_price"`
	HighPrice     float64   `json:"high_price"`
	LowPrice      float64   `json:"low_price"`
	BuyPrice      float64   `json:"buy_price"`
	SellPrice     float64   `json:"sell_price"`
	LastClose     float64   `json:"last_close"`
	ChangeAmount  float64   `json:"change_amount"`
	ChangePercent float64   `json:"change_percent"`
	Volume        *int64    `json:"volume,omitempty"`
	SourceTime    string    `json:"source_time"` // HH:MM:SS as reported by the feed
	CollectedAt   time.Time `json:"collected_at"`
}

// BrandPrice is one retail shop's quote for a single day.
// PlatinumPrice and BarPrice are optional; the source table marks missing
// values with placeholder text.
type BrandPrice struct {
	BrandName     string   `json:"brand_name"`
	GoldPrice     float64  `json:"gold_price"`
	PlatinumPrice *float64 `json:"platinum_price,omitempty"`
	BarPrice      *float64 `json:"bar_price,omitempty"`
	Unit          string   `json:"unit"`
	UpdateDate    string   `json:"update_date"` // YYYY-MM-DD
}

// ShopPriceBatch is the full set of brand quotes collected for one calendar
// date. Re-collecting the same date replaces the batch (upsert by Date).
type ShopPriceBatch struct {
	ID          int64        `json:"id,omitempty"`
	Date        string       `json:"date"` // YYYY-MM-DD, source-local
	Prices      []BrandPrice `json:"prices"`
	CollectedAt time.Time    `json:"collected_at"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
}

// AlertConfig is the single shared threshold configuration.
// A nil threshold means that side never fires.
type AlertConfig struct {
	ID        int64    `json:"id"`
	HighPrice *float64 `json:"high_price"`
	LowPrice  *float64 `json:"low_price"`
	Enabled   bool     `json:"enabled"`
}

// PushType classifies an outbound notification.
type PushType string

const (
	PushHourly PushType = "hourly"
	PushDaily  PushType = "daily"
	PushAlert  PushType = "alert"
	PushError  PushType = "error"
)

// PushLog is one delivery attempt, success or failure. The log is
// append-only; nothing in the service mutates or deletes entries.
type PushLog struct {
	ID        int64     `json:"id"`
	Type      PushType  `json:"type"`
	Content   string    `json:"content"` // truncated to 1000 chars at write time
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PushStats summarizes recent push log entries.
type PushStats struct {
	Total   int            `json:"total"`
	Success int            `json:"success"`
	Failed  int            `json:"failed"`
	ByType  map[string]int `json:"by_type"`
}

// TodayStats carries the most recent snapshot's fields plus aggregates
// computed over all of today's snapshots. The latest fields are copied from
// the last snapshot, never recomputed.
type TodayStats struct {
	PriceSnapshot
	DayHigh  float64 `json:"day_high"`
	DayLow   float64 `json:"day_low"`
	AvgPrice float64 `json:"avg_price"`
}

// DailySummary aggregates one full prior day for the daily report.
type DailySummary struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	OpenPrice     float64 `json:"open_price"`
	ClosePrice    float64 `json:"close_price"`
	HighPrice     float64 `json:"high_price"`
	LowPrice      float64 `json:"low_price"`
	ChangePercent float64 `json:"change_percent"`
	Samples       int     `json:"samples"`
}

// BrandHistoryPoint is one day's price for a single brand; Price is nil when
// the brand was absent from that day's batch.
type BrandHistoryPoint struct {
	Date  string      `json:"date"`
	Price *BrandPrice `json:"price"`
}
