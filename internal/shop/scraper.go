// Package shop scrapes the daily table of retail brand gold quotes.
//
// Extraction is a two-stage pipeline: locating the structural anchors
// (card, table, rows) fails closed with a typed error, while per-field
// coercion of optional columns fails open to an absent value.
package shop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	apperrors "goldwatch/internal/errors"
	"goldwatch/internal/models"
	"goldwatch/internal/timeref"
)

const (
	sourceName   = "gold-shop"
	fetchTimeout = 10 * time.Second
	// brand, gold, platinum, bar, unit, date
	minColumns = 6

	defaultUnit = "元/克"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Scraper retrieves shop price batches from the source page.
type Scraper struct {
	url    string
	client *resty.Client
}

// NewScraper creates a shop price scraper for the given page URL.
func NewScraper(url string) *Scraper {
	client := resty.New().
		SetTimeout(fetchTimeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	return &Scraper{url: url, client: client}
}

// Fetch retrieves and parses the current shop price table.
func (s *Scraper) Fetch(ctx context.Context) (*models.ShopPriceBatch, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return nil, apperrors.NewFetchError(sourceName, s.url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, apperrors.NewFetchError(sourceName, s.url,
			fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	batch, err := Parse(string(resp.Body()))
	if err != nil {
		return nil, err
	}
	batch.CollectedAt = timeref.Now()
	return batch, nil
}

// Parse extracts the brand price table from the page markup. Rows missing a
// brand name, a numeric gold price, or a date are dropped silently; only a
// wholly empty result is an error.
func Parse(html string) (*models.ShopPriceBatch, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewScrapeError("document", err.Error())
	}

	card := doc.Find("main .card").First()
	if card.Length() == 0 {
		return nil, apperrors.NewScrapeError("main .card", "price card not found")
	}

	table := card.Find("table.table")
	if table.Length() == 0 {
		return nil, apperrors.NewScrapeError("table.table", "price table not found")
	}

	rows := table.Find("tbody tr")
	if rows.Length() == 0 {
		return nil, apperrors.NewScrapeError("tbody tr", "price table is empty")
	}

	var prices []models.BrandPrice
	var batchDate string

	// The first row is the header; data rows follow.
	rows.Slice(1, rows.Length()).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minColumns {
			return
		}

		brandName := strings.TrimSpace(cells.Eq(0).Text())
		goldStr := strings.TrimSpace(cells.Eq(1).Text())
		platinumStr := strings.TrimSpace(cells.Eq(2).Text())
		barStr := strings.TrimSpace(cells.Eq(3).Text())
		unit := strings.TrimSpace(cells.Eq(4).Text())
		dateStr := strings.TrimSpace(cells.Eq(5).Text())

		// The first data row supplies the batch date.
		if i == 0 {
			batchDate = dateStr
		}

		goldPrice, err := strconv.ParseFloat(goldStr, 64)
		if brandName == "" || err != nil || dateStr == "" {
			return
		}

		if unit == "" {
			unit = defaultUnit
		}

		prices = append(prices, models.BrandPrice{
			BrandName:     brandName,
			GoldPrice:     goldPrice,
			PlatinumPrice: parseOptionalFloat(platinumStr),
			BarPrice:      parseOptionalFloat(barStr),
			Unit:          unit,
			UpdateDate:    dateStr,
		})
	})

	if len(prices) == 0 {
		return nil, apperrors.ErrNoData
	}

	return &models.ShopPriceBatch{
		Date:   batchDate,
		Prices: prices,
	}, nil
}

// parseOptionalFloat coerces placeholder or non-numeric text to absent.
func parseOptionalFloat(value string) *float64 {
	if value == "" || value == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ValidateBrandPrice checks one brand quote against the plausibility
// bounds: gold [500, 2000], platinum [200, 1500] and bar [400, 1800] when
// present, brand name non-empty and at most 50 characters.
func ValidateBrandPrice(p *models.BrandPrice) error {
	if p.BrandName == "" || len([]rune(p.BrandName)) > 50 {
		return apperrors.NewValidationError("brand_name", p.BrandName, "empty or longer than 50 characters")
	}
	if p.GoldPrice < 500 || p.GoldPrice > 2000 {
		return apperrors.NewValidationError("gold_price", p.GoldPrice, "outside plausible range [500, 2000]")
	}
	if p.PlatinumPrice != nil && (*p.PlatinumPrice < 200 || *p.PlatinumPrice > 1500) {
		return apperrors.NewValidationError("platinum_price", *p.PlatinumPrice, "outside plausible range [200, 1500]")
	}
	if p.BarPrice != nil && (*p.BarPrice < 400 || *p.BarPrice > 1800) {
		return apperrors.NewValidationError("bar_price", *p.BarPrice, "outside plausible range [400, 1800]")
	}
	return nil
}

// FilterValid returns the subset of prices that pass validation.
func FilterValid(prices []models.BrandPrice) []models.BrandPrice {
	valid := prices[:0:0]
	for i := range prices {
		if err := ValidateBrandPrice(&prices[i]); err == nil {
			valid = append(valid, prices[i])
		}
	}
	return valid
}
