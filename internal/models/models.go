package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DayRecord is one enriched row of a flows table: the normalized flow per
// ticker for a calendar date, their recomputed sum and the day's rank.
type DayRecord struct {
	Date   time.Time                  `json:"date"`
	Values map[string]decimal.Decimal `json:"values"`
	Total  decimal.Decimal            `json:"total"`
	Rank   int                        `json:"rank"`
	Raw    map[string]string          `json:"raw,omitempty"` // source cell text by column header
}

// Value returns the flow for ticker, zero when the ticker is absent.
func (r DayRecord) Value(ticker string) decimal.Decimal {
	if v, ok := r.Values[ticker]; ok {
		return v
	}
	return decimal.Zero
}

// Clone returns a deep copy so derived series never alias the source maps.
func (r DayRecord) Clone() DayRecord {
	out := r
	out.Values = make(map[string]decimal.Decimal, len(r.Values))
	for k, v := range r.Values {
		out.Values[k] = v
	}
	if r.Raw != nil {
		out.Raw = make(map[string]string, len(r.Raw))
		for k, v := range r.Raw {
			out.Raw[k] = v
		}
	}
	return out
}

// StoredFlow is the persisted representation of a DayRecord.
type StoredFlow struct {
	ETF             string                     `json:"etf"`
	Key             string                     `json:"key"`
	Day             string                     `json:"day"`
	CloseOfBusiness time.Time                  `json:"close_of_business"`
	Flows           map[string]decimal.Decimal `json:"flows"`
	Total           decimal.Decimal            `json:"total"`
	Rank            int                        `json:"rank"`
	Raw             json.RawMessage            `json:"raw,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// Record converts a stored row back into a DayRecord for re-aggregation.
func (f StoredFlow) Record() DayRecord {
	values := make(map[string]decimal.Decimal, len(f.Flows))
	for k, v := range f.Flows {
		values[k] = v
	}
	y, m, d := f.CloseOfBusiness.UTC().Date()
	return DayRecord{
		Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Values: values,
		Total:  f.Total,
		Rank:   f.Rank,
	}
}

// TickerInfo is the display metadata of one ETF ticker.
type TickerInfo struct {
	Ticker   string            `json:"ticker" yaml:"-"`
	Provider string            `json:"provider" yaml:"provider"`
	Index    int               `json:"index" yaml:"index"`
	Colors   map[string]string `json:"colors" yaml:"colors"` // theme -> css color
	URL      string            `json:"url" yaml:"url"`
	Known    bool              `json:"known" yaml:"-"`
}
