package flows

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/etf-flows/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(date time.Time, values map[string]string) models.DayRecord {
	r := models.DayRecord{Date: date, Values: map[string]decimal.Decimal{}}
	for k, v := range values {
		d := decimal.RequireFromString(v)
		r.Values[k] = d
		r.Total = r.Total.Add(d)
	}
	return r
}

func TestRank(t *testing.T) {
	records := []models.DayRecord{
		rec(day(2024, 1, 1), map[string]string{"A": "10", "B": "-5"}),
		rec(day(2024, 1, 2), map[string]string{"A": "0", "B": "20"}),
		rec(day(2024, 1, 3), map[string]string{"A": "-30"}),
		rec(day(2024, 1, 4), map[string]string{"A": "7"}),
	}

	ranked := Rank(records)
	require.Len(t, ranked, 4)

	// original order preserved
	for i := range records {
		assert.Equal(t, records[i].Date, ranked[i].Date)
	}
	assert.Equal(t, []int{3, 1, 4, 2}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank, ranked[3].Rank})

	// input untouched
	assert.Zero(t, records[0].Rank)
}

func TestRank_IsPermutation(t *testing.T) {
	var records []models.DayRecord
	for i := 0; i < 50; i++ {
		records = append(records, rec(day(2024, 3, 1).AddDate(0, 0, i), map[string]string{"A": decimal.NewFromInt(int64((i*37)%101 - 50)).String()}))
	}

	ranked := Rank(records)
	seen := make(map[int]bool)
	var top models.DayRecord
	for _, r := range ranked {
		assert.False(t, seen[r.Rank], "duplicate rank %d", r.Rank)
		seen[r.Rank] = true
		assert.GreaterOrEqual(t, r.Rank, 1)
		assert.LessOrEqual(t, r.Rank, len(records))
		if r.Rank == 1 {
			top = r
		}
	}
	for _, r := range ranked {
		assert.True(t, top.Total.GreaterThanOrEqual(r.Total))
	}
}

func TestRank_TieBreaksByDate(t *testing.T) {
	records := []models.DayRecord{
		rec(day(2024, 1, 5), map[string]string{"A": "5"}),
		rec(day(2024, 1, 2), map[string]string{"A": "5"}),
		rec(day(2024, 1, 9), map[string]string{"A": "5"}),
	}
	ranked := Rank(records)
	assert.Equal(t, 2, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].Rank)
	assert.Equal(t, 3, ranked[2].Rank)
}

func TestCumulate(t *testing.T) {
	tickers := []string{"A", "B"}
	records := []models.DayRecord{
		rec(day(2024, 1, 1), map[string]string{"A": "10", "B": "-5"}),
		rec(day(2024, 1, 2), map[string]string{"A": "0", "B": "20"}),
		rec(day(2024, 1, 3), map[string]string{"B": "1.5"}),
	}

	cum := Cumulate(records, tickers)
	require.Len(t, cum, 3)

	assert.True(t, decimal.NewFromInt(10).Equal(cum[1].Values["A"]))
	assert.True(t, decimal.NewFromInt(15).Equal(cum[1].Values["B"]))
	assert.True(t, decimal.NewFromInt(25).Equal(cum[1].Total))

	assert.True(t, decimal.NewFromInt(10).Equal(cum[2].Values["A"]), "missing values carry the running sum")
	assert.True(t, decimal.RequireFromString("16.5").Equal(cum[2].Values["B"]))

	// input untouched
	assert.True(t, decimal.NewFromInt(20).Equal(records[1].Values["B"]))
}

func TestCumulate_Law(t *testing.T) {
	tickers := []string{"A"}
	var records []models.DayRecord
	for i := 0; i < 20; i++ {
		records = append(records, rec(day(2024, 2, 1).AddDate(0, 0, i), map[string]string{"A": decimal.NewFromInt(int64(i*i - 40)).String()}))
	}

	cum := Cumulate(records, tickers)
	sum := decimal.Zero
	for d := range records {
		sum = sum.Add(records[d].Value("A"))
		assert.True(t, sum.Equal(cum[d].Values["A"]), "day %d", d)
	}
}

func TestPercentShare(t *testing.T) {
	values := map[string]decimal.Decimal{
		"A": decimal.NewFromInt(25),
		"B": decimal.NewFromInt(50),
		"C": decimal.NewFromInt(25),
	}
	shares := PercentShare(values, decimal.NewFromInt(100))
	assert.InDelta(t, 25.0, shares["A"], 1e-9)
	assert.InDelta(t, 50.0, shares["B"], 1e-9)

	var sum float64
	for _, s := range shares {
		sum += s
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestPercentShare_ZeroTotal(t *testing.T) {
	values := map[string]decimal.Decimal{
		"A": decimal.NewFromInt(5),
		"B": decimal.NewFromInt(-5),
	}
	shares := PercentShare(values, decimal.Zero)
	assert.Equal(t, map[string]float64{"A": 0, "B": 0}, shares)
}

func TestPercentSeries(t *testing.T) {
	records := Cumulate([]models.DayRecord{
		rec(day(2024, 1, 1), map[string]string{"A": "3", "B": "1"}),
		rec(day(2024, 1, 2), map[string]string{"A": "-3", "B": "-1"}),
	}, []string{"A", "B"})

	series := PercentSeries(records, []string{"A", "B"})
	require.Len(t, series, 2)
	assert.Equal(t, "2024-01-01", series[0].Date)
	assert.InDelta(t, 75.0, series[0].Shares["A"], 1e-9)
	assert.Equal(t, 0.0, series[1].Shares["A"], "cumulative total back to zero")
}

func TestGroup(t *testing.T) {
	tickers := []string{"A", "B"}
	records := Rank([]models.DayRecord{
		rec(day(2023, 12, 29), map[string]string{"A": "1"}),
		rec(day(2024, 1, 2), map[string]string{"A": "10", "B": "5"}),
		rec(day(2024, 1, 3), map[string]string{"A": "-2"}),
		rec(day(2024, 1, 9), map[string]string{"B": "4"}),
		rec(day(2024, 2, 1), map[string]string{"A": "100"}),
	})

	years := Group(records, tickers)
	require.Len(t, years, 2)

	y2024 := years[0]
	assert.Equal(t, 2024, y2024.Year)
	assert.True(t, decimal.NewFromInt(117).Equal(y2024.Total))
	assert.True(t, decimal.NewFromInt(108).Equal(y2024.TotalPerTicker["A"]))
	assert.True(t, decimal.NewFromInt(9).Equal(y2024.TotalPerTicker["B"]))

	require.Len(t, y2024.Months, 2)
	feb, jan := y2024.Months[0], y2024.Months[1]
	assert.Equal(t, time.February, feb.Month)
	assert.Equal(t, "January", jan.Name)
	assert.Equal(t, 1, feb.Rank)
	assert.Equal(t, 2, jan.Rank)
	assert.True(t, decimal.NewFromInt(17).Equal(jan.Total))

	require.Len(t, jan.Weeks, 2)
	assert.Equal(t, 2, jan.Weeks[0].Week, "newest week first")
	assert.Equal(t, 1, jan.Weeks[1].Week)
	require.Len(t, jan.Weeks[1].Days, 2)
	assert.Equal(t, 2, jan.Weeks[1].Days[0].Date.Day(), "days keep input order")
	assert.True(t, decimal.NewFromInt(13).Equal(jan.Weeks[1].Total))

	y2023 := years[1]
	assert.Equal(t, 3, y2023.Months[0].Rank)
	assert.NotZero(t, y2023.Months[0].Weeks[0].Days[0].Rank, "daily rank carried through")
}
