package ingest

import (
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/mauv0809/etf-flows/internal/models"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 02 2006",
	"Jan 2 2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"Mon 02 Jan 2006",
	"2006-01-02",
	"01/02/2006",
}

// ParseDate parses a table date cell into a UTC calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ExtractTable locates the flows table in markup and returns its data rows
// keyed by header text, in document order.
func ExtractTable(markup string, layout Layout) ([]RawRow, error) {
	layout = layout.withDefaults()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &ExtractionError{Selector: layout.Selector, Reason: "unparsable markup: " + err.Error()}
	}

	table := doc.Find(layout.Selector).First()
	if table.Length() == 0 {
		return nil, &ExtractionError{Selector: layout.Selector, Reason: "table not found"}
	}

	rows := table.Find("tr")
	if rows.Length() <= layout.HeaderRow {
		return nil, &ExtractionError{Selector: layout.Selector, Reason: "header row not found"}
	}

	var headers []string
	rows.Eq(layout.HeaderRow).ChildrenFiltered("th, td").Each(func(i int, s *goquery.Selection) {
		h := cellText(s)
		switch {
		case h == "" && i == 0, strings.EqualFold(h, layout.DateColumn):
			h = layout.DateColumn
		case strings.EqualFold(h, layout.TotalColumn):
			h = layout.TotalColumn
		}
		headers = append(headers, h)
	})
	if !slices.Contains(headers, layout.DateColumn) {
		return nil, &ExtractionError{Selector: layout.Selector, Reason: "date column not found"}
	}

	var out []RawRow
	rows.Slice(layout.HeaderRow+1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
		var row RawRow
		tr.ChildrenFiltered("th, td").Each(func(i int, s *goquery.Selection) {
			if i >= len(headers) || headers[i] == "" {
				return
			}
			row = append(row, Cell{Header: headers[i], Text: cellText(s)})
		})
		if len(row) == 0 {
			return
		}
		out = append(out, row)
	})

	if len(out) == 0 {
		return nil, &ExtractionError{Selector: layout.Selector, Reason: "no data rows"}
	}
	return out, nil
}

// cellText returns the trimmed text of a cell, or the first non-empty text
// node when the cell holds nested markup.
func cellText(s *goquery.Selection) string {
	if s.Children().Length() == 0 {
		return squash(s.Text())
	}
	return firstText(s)
}

func firstText(s *goquery.Selection) string {
	var out string
	s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if goquery.NodeName(c) == "#text" {
			out = squash(c.Text())
		} else {
			out = firstText(c)
		}
		return out == ""
	})
	return out
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Enrich turns raw rows into typed day records. Rows whose date does not
// parse are dropped. Tickers are discovered in first-seen order, every
// record carries every ticker and the total is recomputed from the values.
func Enrich(rows []RawRow, layout Layout) Series {
	layout = layout.withDefaults()

	var (
		tickers []string
		seen    = make(map[string]bool)
		records = make([]models.DayRecord, 0, len(rows))
	)

	for _, row := range rows {
		dateText, ok := row.Get(layout.DateColumn)
		if !ok {
			continue
		}
		date, ok := ParseDate(dateText)
		if !ok {
			continue
		}

		rec := models.DayRecord{
			Date:   date,
			Values: make(map[string]decimal.Decimal, len(row)),
			Total:  decimal.Zero,
			Raw:    row.Map(),
		}
		for _, c := range row {
			if !isTicker(c.Header, layout) {
				continue
			}
			if !seen[c.Header] {
				seen[c.Header] = true
				tickers = append(tickers, c.Header)
			}
			v := NormalizeFlow(c.Text)
			rec.Values[c.Header] = v
			rec.Total = rec.Total.Add(v)
		}
		records = append(records, rec)
	}

	for i := range records {
		for _, t := range tickers {
			if _, ok := records[i].Values[t]; !ok {
				records[i].Values[t] = decimal.Zero
			}
		}
	}

	return Series{Tickers: tickers, Records: records}
}

// isTicker reports whether a column carries per-fund flows.
func isTicker(header string, layout Layout) bool {
	if header == "" || strings.EqualFold(header, layout.DateColumn) || strings.EqualFold(header, layout.TotalColumn) {
		return false
	}
	_, isDate := ParseDate(header)
	return !isDate
}
