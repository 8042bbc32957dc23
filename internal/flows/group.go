package flows

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mauv0809/etf-flows/internal/models"
)

// WeekGroup holds the days of one ISO week inside a month.
type WeekGroup struct {
	Week  int                `json:"week"`
	Total decimal.Decimal    `json:"total"`
	Days  []models.DayRecord `json:"days"`

	first time.Time
}

// MonthGroup holds the weeks of one calendar month. Rank orders all months
// of the table by Total descending, independent of the daily rank.
type MonthGroup struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
	Rank  int             `json:"rank"`
	Weeks []WeekGroup     `json:"weeks"`
}

// YearGroup holds the months of one calendar year.
type YearGroup struct {
	Year           int                        `json:"year"`
	Total          decimal.Decimal            `json:"total"`
	TotalPerTicker map[string]decimal.Decimal `json:"total_per_ticker"`
	Months         []MonthGroup               `json:"months"`
}

// Group buckets records by year, month and ISO week in a single pass.
// Years, months and weeks come out newest first; days keep their input
// order within a week. Period totals sum the day totals.
func Group(records []models.DayRecord, tickers []string) []YearGroup {
	type monthKey struct {
		year  int
		month time.Month
	}
	type weekKey struct {
		monthKey
		week int
	}

	years := make(map[int]*YearGroup)
	months := make(map[monthKey]*MonthGroup)
	weeks := make(map[weekKey]*WeekGroup)
	monthWeeks := make(map[monthKey][]weekKey)
	yearMonths := make(map[int][]monthKey)

	for _, rec := range records {
		y, m, _ := rec.Date.Date()
		_, w := rec.Date.ISOWeek()
		mk := monthKey{y, m}
		wk := weekKey{mk, w}

		yg, ok := years[y]
		if !ok {
			yg = &YearGroup{Year: y, TotalPerTicker: make(map[string]decimal.Decimal, len(tickers))}
			for _, t := range tickers {
				yg.TotalPerTicker[t] = decimal.Zero
			}
			years[y] = yg
		}
		mg, ok := months[mk]
		if !ok {
			mg = &MonthGroup{Year: y, Month: m, Name: m.String()}
			months[mk] = mg
			yearMonths[y] = append(yearMonths[y], mk)
		}
		wg, ok := weeks[wk]
		if !ok {
			wg = &WeekGroup{Week: w, first: rec.Date}
			weeks[wk] = wg
			monthWeeks[mk] = append(monthWeeks[mk], wk)
		}
		if rec.Date.Before(wg.first) {
			wg.first = rec.Date
		}

		wg.Days = append(wg.Days, rec)
		wg.Total = wg.Total.Add(rec.Total)
		mg.Total = mg.Total.Add(rec.Total)
		yg.Total = yg.Total.Add(rec.Total)
		for _, t := range tickers {
			yg.TotalPerTicker[t] = yg.TotalPerTicker[t].Add(rec.Value(t))
		}
	}

	all := make([]*MonthGroup, 0, len(months))
	for _, mg := range months {
		all = append(all, mg)
	}
	rankMonths(all)

	out := make([]YearGroup, 0, len(years))
	for y, yg := range years {
		mks := yearMonths[y]
		sort.Slice(mks, func(a, b int) bool { return mks[a].month > mks[b].month })
		for _, mk := range mks {
			mg := months[mk]
			wks := monthWeeks[mk]
			sort.Slice(wks, func(a, b int) bool { return weeks[wks[a]].first.After(weeks[wks[b]].first) })
			for _, wk := range wks {
				mg.Weeks = append(mg.Weeks, *weeks[wk])
			}
			yg.Months = append(yg.Months, *mg)
		}
		out = append(out, *yg)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Year > out[b].Year })
	return out
}

// rankMonths assigns 1-based ranks by total descending; equal totals rank
// the earlier month first.
func rankMonths(all []*MonthGroup) {
	sort.Slice(all, func(a, b int) bool {
		if !all[a].Total.Equal(all[b].Total) {
			return all[a].Total.GreaterThan(all[b].Total)
		}
		if all[a].Year != all[b].Year {
			return all[a].Year < all[b].Year
		}
		return all[a].Month < all[b].Month
	})
	for i, mg := range all {
		mg.Rank = i + 1
	}
}
