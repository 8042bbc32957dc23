package flows

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/mauv0809/etf-flows/internal/models"
)

// Cumulate returns running totals per ticker. records must already be
// sorted by date ascending; the input is not modified. Each output Total is
// the sum of that day's cumulative ticker values.
func Cumulate(records []models.DayRecord, tickers []string) []models.DayRecord {
	out := make([]models.DayRecord, len(records))
	running := make(map[string]decimal.Decimal, len(tickers))

	for d, rec := range records {
		c := rec.Clone()
		c.Total = decimal.Zero
		for _, t := range tickers {
			running[t] = running[t].Add(rec.Value(t))
			c.Values[t] = running[t]
			c.Total = c.Total.Add(running[t])
		}
		out[d] = c
	}
	return out
}

// PercentShare expresses each value as a percentage of total, rounded to
// two decimals. A zero total or a non-finite share yields 0.
func PercentShare(values map[string]decimal.Decimal, total decimal.Decimal) map[string]float64 {
	shares := make(map[string]float64, len(values))
	t := total.InexactFloat64()
	for ticker, v := range values {
		if total.IsZero() {
			shares[ticker] = 0
			continue
		}
		share := v.InexactFloat64() / t * 100
		if math.IsNaN(share) || math.IsInf(share, 0) {
			shares[ticker] = 0
			continue
		}
		shares[ticker] = math.Round(share*100) / 100
	}
	return shares
}

// SharePoint is one day of a composition chart.
type SharePoint struct {
	Date   string             `json:"date"`
	Shares map[string]float64 `json:"shares"`
}

// PercentSeries computes the per-day share of each ticker, restricted to
// tickers.
func PercentSeries(records []models.DayRecord, tickers []string) []SharePoint {
	out := make([]SharePoint, 0, len(records))
	for _, rec := range records {
		values := make(map[string]decimal.Decimal, len(tickers))
		for _, t := range tickers {
			values[t] = rec.Value(t)
		}
		out = append(out, SharePoint{
			Date:   rec.Date.Format("2006-01-02"),
			Shares: PercentShare(values, rec.Total),
		})
	}
	return out
}
