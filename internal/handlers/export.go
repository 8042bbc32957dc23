package handlers

import (
	"fmt"
	"net/http"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
)

// flowRow is one (day, ticker) line of the CSV export.
type flowRow struct {
	Date     string `csv:"date"`
	Key      string `csv:"key"`
	Ticker   string `csv:"ticker"`
	Provider string `csv:"provider"`
	Flow     string `csv:"flow"`
	DayTotal string `csv:"day_total"`
	Rank     int    `csv:"rank"`
}

// FlowsCSV handles GET /api/etfs/:etf/flows.csv
// Streams one row per day and ticker, oldest day first.
func (h *Handler) FlowsCSV(c echo.Context) error {
	src, stored, err := h.load(c, c.Param("etf"))
	if err != nil {
		return err
	}
	_, tickers := recordsOf(src, stored)

	rows := make([]*flowRow, 0, len(stored)*len(tickers))
	for _, f := range stored {
		for _, t := range tickers {
			v, ok := f.Flows[t]
			if !ok {
				continue
			}
			rows = append(rows, &flowRow{
				Date:     f.CloseOfBusiness.Format("2006-01-02"),
				Key:      f.Key,
				Ticker:   t,
				Provider: src.Lookup(t).Provider,
				Flow:     v.String(),
				DayTotal: f.Total.String(),
				Rank:     f.Rank,
			})
		}
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", src.ID+"-flows.csv"))
	res.WriteHeader(http.StatusOK)
	return gocsv.Marshal(rows, res)
}
