// Package quote fetches and normalizes the AUTD gold quote from the
// upstream feed.
//
// The feed is a loosely structured text payload of the form
//
//	var hq_str_gds_AUTD = "1245.40,1245.30,1245.50,1243.00,...";
//
// Parsing is strict: a missing identifier or a short field list is a
// structural error, never a best-effort default. Change amount and percent
// are always recomputed from price and last close because the feed's own
// values are unreliable.
package quote

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "goldwatch/internal/errors"
	"goldwatch/internal/models"
	"goldwatch/internal/timeref"
)

const (
	sourceName   = "gold-index"
	fetchTimeout = 5 * time.Second
	// The feed needs at least price..lastClose plus the volume and change
	// columns to be considered well-formed.
	minFields = 13

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var payloadPattern = regexp.MustCompile(`var hq_str_gds_AUTD\s*=\s*"([^"]+)"`)

// Fetcher retrieves price snapshots from the quote feed.
type Fetcher struct {
	url    string
	client *resty.Client
	// now is injectable for tests; defaults to timeref.Now.
	now func() time.Time
}

// NewFetcher creates a quote fetcher for the given feed URL.
func NewFetcher(url string) *Fetcher {
	client := resty.New().
		SetTimeout(fetchTimeout).
		SetHeader("User-Agent", userAgent)

	return &Fetcher{
		url:    url,
		client: client,
		now:    timeref.Now,
	}
}

// SetClock overrides the fetcher's clock. Used by tests.
func (f *Fetcher) SetClock(now func() time.Time) {
	f.now = now
}

// Fetch retrieves, parses and validates the current quote.
func (f *Fetcher) Fetch(ctx context.Context) (*models.PriceSnapshot, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, apperrors.NewFetchError(sourceName, f.url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, apperrors.NewFetchError(sourceName, f.url,
			fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	snap, err := f.Parse(string(resp.Body()))
	if err != nil {
		return nil, err
	}
	if err := Validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Parse extracts a snapshot from the raw feed payload. The snapshot's
// CollectedAt combines today's reference-timezone date with the
// source-reported time of day.
func (f *Fetcher) Parse(raw string) (*models.PriceSnapshot, error) {
	match := payloadPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil, apperrors.NewParseError(sourceName, "AUTD quote identifier not found in payload")
	}

	fields := strings.Split(match[1], ",")
	if len(fields) < minFields {
		return nil, apperrors.NewParseError(sourceName,
			fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields)))
	}

	price, err := parseFloat(fields[0], "price")
	if err != nil {
		return nil, err
	}
	buyPrice, err := parseFloat(fields[1], "buy_price")
	if err != nil {
		return nil, err
	}
	sellPrice, err := parseFloat(fields[2], "sell_price")
	if err != nil {
		return nil, err
	}
	openPrice, err := parseFloat(fields[3], "open_price")
	if err != nil {
		return nil, err
	}
	highPrice, err := parseFloat(fields[4], "high_price")
	if err != nil {
		return nil, err
	}
	lowPrice, err := parseFloat(fields[5], "low_price")
	if err != nil {
		return nil, err
	}
	sourceTime := strings.TrimSpace(fields[6])
	lastClose, err := parseFloat(fields[7], "last_close")
	if err != nil {
		return nil, err
	}

	// Volume is optional; a non-numeric column yields absent, not an error.
	var volume *int64
	if v, err := strconv.ParseInt(strings.TrimSpace(fields[9]), 10, 64); err == nil {
		volume = &v
	}

	// The feed's own change columns are unreliable; recompute from price
	// and last close.
	changeAmount := round2(price - lastClose)
	changePercent := 0.0
	if lastClose > 0 {
		changePercent = round2((price - lastClose) / lastClose * 100)
	}

	collectedAt, err := timeref.CombineClock(f.now(), sourceTime)
	if err != nil {
		return nil, apperrors.NewParseError(sourceName,
			fmt.Sprintf("bad source time %q", sourceTime))
	}

	return &models.PriceSnapshot{
		Price:         price,
		OpenPrice:     openPrice,
		HighPrice:     highPrice,
		LowPrice:      lowPrice,
		BuyPrice:      buyPrice,
		SellPrice:     sellPrice,
		LastClose:     lastClose,
		ChangeAmount:  changeAmount,
		ChangePercent: changePercent,
		Volume:        volume,
		SourceTime:    sourceTime,
		CollectedAt:   collectedAt,
	}, nil
}

// Validate checks a snapshot against the domain plausibility bounds:
// price within [500, 2000] yuan/gram, change within ±10%, and
// low <= price <= high.
func Validate(snap *models.PriceSnapshot) error {
	for _, field := range []struct {
		name  string
		value float64
	}{
		{"price", snap.Price},
		{"open_price", snap.OpenPrice},
		{"high_price", snap.HighPrice},
		{"low_price", snap.LowPrice},
	} {
		if math.IsNaN(field.value) || math.IsInf(field.value, 0) {
			return apperrors.NewValidationError(field.name, field.value, "missing or non-finite")
		}
	}

	if snap.Price < 500 || snap.Price > 2000 {
		return apperrors.NewValidationError("price", snap.Price, "outside plausible range [500, 2000]")
	}
	if math.Abs(snap.ChangePercent) > 10 {
		return apperrors.NewValidationError("change_percent", snap.ChangePercent, "outside plausible range [-10, 10]")
	}
	if snap.HighPrice < snap.Price || snap.Price < snap.LowPrice {
		return apperrors.NewValidationError("price", snap.Price, "violates low <= price <= high")
	}
	return nil
}

func parseFloat(s, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, apperrors.NewParseError(sourceName,
			fmt.Sprintf("non-numeric %s field %q", field, s))
	}
	return v, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
