// Package catalog describes the ETF flow sources: where each page lives,
// how its table is laid out and how its tickers are displayed.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mauv0809/etf-flows/internal/ingest"
	"github.com/mauv0809/etf-flows/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrUnknownETF is returned for an ETF family missing from the catalog.
var ErrUnknownETF = errors.New("unknown etf")

// Catalog maps an ETF family id ("btc", "eth") to its source.
type Catalog struct {
	ETFs map[string]*Source `yaml:"etfs"`
}

// Source is one flows page and its ticker display metadata.
type Source struct {
	ID      string                       `yaml:"-"`
	Name    string                       `yaml:"name"`
	URL     string                       `yaml:"url"`
	Layout  ingest.Layout                `yaml:"-"`
	Tickers map[string]models.TickerInfo `yaml:"tickers"`
}

// layoutFile is the YAML form of a table layout. Every field is optional
// and falls back to ingest.DefaultLayout on its own.
type layoutFile struct {
	Selector    string `yaml:"selector"`
	HeaderRow   *int   `yaml:"header_row"`
	DateColumn  string `yaml:"date_column"`
	TotalColumn string `yaml:"total_column"`
}

func (l layoutFile) resolve() ingest.Layout {
	out := ingest.DefaultLayout
	if l.Selector != "" {
		out.Selector = l.Selector
	}
	if l.HeaderRow != nil {
		out.HeaderRow = *l.HeaderRow
	}
	if l.DateColumn != "" {
		out.DateColumn = l.DateColumn
	}
	if l.TotalColumn != "" {
		out.TotalColumn = l.TotalColumn
	}
	return out
}

// UnmarshalYAML decodes a source and resolves its layout field by field.
func (s *Source) UnmarshalYAML(value *yaml.Node) error {
	var f struct {
		Name    string                       `yaml:"name"`
		URL     string                       `yaml:"url"`
		Layout  layoutFile                   `yaml:"layout"`
		Tickers map[string]models.TickerInfo `yaml:"tickers"`
	}
	if err := value.Decode(&f); err != nil {
		return err
	}
	s.Name = f.Name
	s.URL = f.URL
	s.Layout = f.Layout.resolve()
	s.Tickers = f.Tickers
	return nil
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the embedded one when path is
// empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML catalog.
func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.ETFs) == 0 {
		return nil, errors.New("catalog defines no etfs")
	}
	for id, src := range c.ETFs {
		if src == nil || src.URL == "" {
			return nil, fmt.Errorf("catalog etf %q: missing url", id)
		}
		src.ID = id
		for t, info := range src.Tickers {
			info.Ticker = t
			info.Known = true
			src.Tickers[t] = info
		}
	}
	return &c, nil
}

// Source returns the source for an ETF family id, case-insensitively.
func (c *Catalog) Source(id string) (*Source, error) {
	src, ok := c.ETFs[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownETF, id)
	}
	return src, nil
}

// IDs returns the configured family ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.ETFs))
	for id := range c.ETFs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the display metadata of ticker. Unknown tickers get a
// generic entry placed after every known one.
func (s *Source) Lookup(ticker string) models.TickerInfo {
	if info, ok := s.Tickers[ticker]; ok {
		return info
	}
	return models.TickerInfo{
		Ticker:   ticker,
		Provider: ticker,
		Index:    len(s.Tickers),
		Colors:   map[string]string{"light": "black", "dark": "white"},
		URL:      "/",
	}
}

// Order sorts tickers for display: known tickers by configured index, then
// unknown tickers in discovery order.
func (s *Source) Order(tickers []string) []string {
	out := make([]string, len(tickers))
	copy(out, tickers)
	sort.SliceStable(out, func(a, b int) bool {
		return s.Lookup(out[a]).Index < s.Lookup(out[b]).Index
	})
	return out
}

// KnownTickers returns the configured tickers in display order.
func (s *Source) KnownTickers() []string {
	out := make([]string, 0, len(s.Tickers))
	for t := range s.Tickers {
		out = append(out, t)
	}
	sort.Slice(out, func(a, b int) bool {
		return s.Tickers[out[a]].Index < s.Tickers[out[b]].Index
	})
	return out
}
