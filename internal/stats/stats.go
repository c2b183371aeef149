// Package stats derives aggregate views over stored price snapshots.
package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"goldwatch/internal/models"
	"goldwatch/internal/store"
	"goldwatch/internal/timeref"
)

// Aggregator computes daily and hourly aggregates from the snapshot store.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// TodayStats aggregates every snapshot collected between the start of ref's
// reference-timezone calendar day and ref itself. Returns nil when the day
// has no snapshots yet. The latest price fields are copied from the most
// recent snapshot, not recomputed.
func (a *Aggregator) TodayStats(ctx context.Context, ref time.Time) (*models.TodayStats, error) {
	snaps, err := a.store.SnapshotsBetween(ctx, timeref.StartOfDay(ref), ref)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	high := snaps[0].Price
	low := snaps[0].Price
	sum := 0.0
	for _, s := range snaps {
		if s.Price > high {
			high = s.Price
		}
		if s.Price < low {
			low = s.Price
		}
		sum += s.Price
	}

	latest := snaps[len(snaps)-1]
	return &models.TodayStats{
		PriceSnapshot: latest,
		DayHigh:       high,
		DayLow:        low,
		AvgPrice:      round2(sum / float64(len(snaps))),
	}, nil
}

// HourlyBuckets groups snapshots in [start, end] by reference-timezone
// calendar hour and returns one aggregate point per hour, ascending by
// bucket start. Averages cover price, open, buy, sell, last close and the
// change columns; high is the bucket max, low the bucket min.
func (a *Aggregator) HourlyBuckets(ctx context.Context, start, end time.Time) ([]models.PriceSnapshot, error) {
	snaps, err := a.store.SnapshotsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	buckets := make(map[time.Time][]models.PriceSnapshot)
	for _, s := range snaps {
		key := timeref.HourKey(s.CollectedAt)
		buckets[key] = append(buckets[key], s)
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]models.PriceSnapshot, 0, len(keys))
	for _, key := range keys {
		group := buckets[key]
		agg := models.PriceSnapshot{
			HighPrice:   group[0].HighPrice,
			LowPrice:    group[0].LowPrice,
			CollectedAt: key,
		}

		var price, open, buy, sell, lastClose, changePct, changeAmt float64
		for _, s := range group {
			price += s.Price
			open += s.OpenPrice
			buy += s.BuyPrice
			sell += s.SellPrice
			lastClose += s.LastClose
			changePct += s.ChangePercent
			changeAmt += s.ChangeAmount
			if s.HighPrice > agg.HighPrice {
				agg.HighPrice = s.HighPrice
			}
			if s.LowPrice < agg.LowPrice {
				agg.LowPrice = s.LowPrice
			}
		}

		n := float64(len(group))
		agg.Price = round2(price / n)
		agg.OpenPrice = round2(open / n)
		agg.BuyPrice = round2(buy / n)
		agg.SellPrice = round2(sell / n)
		agg.LastClose = round2(lastClose / n)
		agg.ChangePercent = round2(changePct / n)
		agg.ChangeAmount = round2(changeAmt / n)
		out = append(out, agg)
	}
	return out, nil
}

// RawSeries returns unaggregated snapshots in [start, end], ascending by
// collection time.
func (a *Aggregator) RawSeries(ctx context.Context, start, end time.Time) ([]models.PriceSnapshot, error) {
	return a.store.SnapshotsBetween(ctx, start, end)
}

// DailySummary aggregates one full reference-timezone calendar day for the
// daily report. Returns nil when the day has no snapshots.
func (a *Aggregator) DailySummary(ctx context.Context, day time.Time) (*models.DailySummary, error) {
	start := timeref.StartOfDay(day)
	end := start.Add(24*time.Hour - time.Nanosecond)

	snaps, err := a.store.SnapshotsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	high := snaps[0].Price
	low := snaps[0].Price
	for _, s := range snaps {
		if s.Price > high {
			high = s.Price
		}
		if s.Price < low {
			low = s.Price
		}
	}

	last := snaps[len(snaps)-1]
	return &models.DailySummary{
		Date:          timeref.DateString(start),
		OpenPrice:     snaps[0].OpenPrice,
		ClosePrice:    last.Price,
		HighPrice:     high,
		LowPrice:      low,
		ChangePercent: last.ChangePercent,
		Samples:       len(snaps),
	}, nil
}

// BrandHistory extracts one brand's daily prices from the stored batches of
// the last `days` days. Days where the brand is absent yield a nil price.
func (a *Aggregator) BrandHistory(ctx context.Context, brand string, days int) ([]models.BrandHistoryPoint, error) {
	cutoff := timeref.StartOfDay(timeref.DaysAgo(timeref.Now(), days))
	batches, err := a.store.ShopBatchesSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	points := make([]models.BrandHistoryPoint, 0, len(batches))
	for _, batch := range batches {
		point := models.BrandHistoryPoint{Date: batch.Date}
		for i := range batch.Prices {
			if batch.Prices[i].BrandName == brand {
				point.Price = &batch.Prices[i]
				break
			}
		}
		points = append(points, point)
	}
	return points, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
