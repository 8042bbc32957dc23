package flows

import (
	"sort"

	"github.com/mauv0809/etf-flows/internal/models"
)

// Rank returns a copy of records, in their original order, with Rank set to
// the 1-based position of each day when sorted by total descending. Equal
// totals rank the earlier date first, then keep input order.
func Rank(records []models.DayRecord) []models.DayRecord {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := records[order[a]], records[order[b]]
		if !ra.Total.Equal(rb.Total) {
			return ra.Total.GreaterThan(rb.Total)
		}
		return ra.Date.Before(rb.Date)
	})

	out := make([]models.DayRecord, len(records))
	for pos, i := range order {
		out[i] = records[i].Clone()
		out[i].Rank = pos + 1
	}
	return out
}

// SortByDate returns a copy of records sorted by date ascending.
func SortByDate(records []models.DayRecord) []models.DayRecord {
	out := make([]models.DayRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Date.Before(out[b].Date)
	})
	return out
}
