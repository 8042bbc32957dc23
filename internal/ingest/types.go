package ingest

import (
	"fmt"

	"github.com/mauv0809/etf-flows/internal/models"
)

// Layout describes where the flows table lives in a page and how its
// columns are named. A zero HeaderRow is a valid layout (headers in the
// first row); the catalog fills unset YAML fields from DefaultLayout.
type Layout struct {
	Selector    string // CSS selector of the flows table
	HeaderRow   int    // index of the row holding the column headers
	DateColumn  string // header of the date column
	TotalColumn string // header of the sourced total column
}

// DefaultLayout matches the farside.co.uk flow tables.
var DefaultLayout = Layout{
	Selector:    "table.etf",
	HeaderRow:   1,
	DateColumn:  "Date",
	TotalColumn: "Total",
}

// withDefaults fills empty names from DefaultLayout and clamps a negative
// HeaderRow to the first row.
func (l Layout) withDefaults() Layout {
	if l.Selector == "" {
		l.Selector = DefaultLayout.Selector
	}
	if l.HeaderRow < 0 {
		l.HeaderRow = 0
	}
	if l.DateColumn == "" {
		l.DateColumn = DefaultLayout.DateColumn
	}
	if l.TotalColumn == "" {
		l.TotalColumn = DefaultLayout.TotalColumn
	}
	return l
}

// Cell is one table cell paired with its column header.
type Cell struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

// RawRow is one physical table row in document order. Headers are
// discovered from the table, never hardcoded.
type RawRow []Cell

// Get returns the text of the cell under header.
func (r RawRow) Get(header string) (string, bool) {
	for _, c := range r {
		if c.Header == header {
			return c.Text, true
		}
	}
	return "", false
}

// Map returns the row as header -> text.
func (r RawRow) Map() map[string]string {
	m := make(map[string]string, len(r))
	for _, c := range r {
		m[c.Header] = c.Text
	}
	return m
}

// Series is the output of Enrich: the discovered tickers and the typed
// day records in source order.
type Series struct {
	Tickers []string           `json:"tickers"`
	Records []models.DayRecord `json:"records"`
}

// FetchError reports an unreachable source or a non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError reports markup that no longer has the expected table
// structure.
type ExtractionError struct {
	Selector string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %q: %s", e.Selector, e.Reason)
}
