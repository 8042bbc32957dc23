package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, []string{"btc", "eth"}, c.IDs())

	btc, err := c.Source("BTC")
	require.NoError(t, err)
	assert.Equal(t, "btc", btc.ID)
	assert.Equal(t, "table.etf", btc.Layout.Selector)
	assert.Equal(t, 1, btc.Layout.HeaderRow)
	assert.Equal(t, "IBIT", btc.KnownTickers()[0])

	ibit := btc.Lookup("IBIT")
	assert.True(t, ibit.Known)
	assert.Equal(t, "Blackrock", ibit.Provider)
}

func TestSource_UnknownETF(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Source("sol")
	assert.ErrorIs(t, err, ErrUnknownETF)
}

func TestSource_LookupAndOrder(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	btc, _ := c.Source("btc")

	unknown := btc.Lookup("NEWX")
	assert.False(t, unknown.Known)
	assert.Equal(t, "NEWX", unknown.Provider)
	assert.Equal(t, len(btc.Tickers), unknown.Index)
	assert.Equal(t, "/", unknown.URL)

	discovered := []string{"NEWX", "GBTC", "IBIT", "ZZZ", "FBTC"}
	assert.Equal(t, []string{"IBIT", "FBTC", "GBTC", "NEWX", "ZZZ"}, btc.Order(discovered))
	assert.Equal(t, []string{"NEWX", "GBTC", "IBIT", "ZZZ", "FBTC"}, discovered, "input untouched")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
etfs:
  sol:
    url: https://example.com/sol
    tickers:
      BSOL: { provider: Bitwise, index: 0 }
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	sol, err := c.Source("sol")
	require.NoError(t, err)
	assert.Equal(t, "table.etf", sol.Layout.Selector, "layout defaults applied")
	assert.True(t, sol.Lookup("BSOL").Known)
}

func TestParse_PartialLayout(t *testing.T) {
	c, err := Parse([]byte(`
etfs:
  sol:
    url: https://example.com/sol
    layout:
      selector: table.flows
  flat:
    url: https://example.com/flat
    layout:
      header_row: 0
      date_column: Day
`))
	require.NoError(t, err)

	sol, err := c.Source("sol")
	require.NoError(t, err)
	assert.Equal(t, "table.flows", sol.Layout.Selector)
	assert.Equal(t, 1, sol.Layout.HeaderRow, "unset header_row keeps the default")
	assert.Equal(t, "Date", sol.Layout.DateColumn)
	assert.Equal(t, "Total", sol.Layout.TotalColumn)

	flat, err := c.Source("flat")
	require.NoError(t, err)
	assert.Equal(t, "table.etf", flat.Layout.Selector)
	assert.Equal(t, 0, flat.Layout.HeaderRow, "explicit zero is kept")
	assert.Equal(t, "Day", flat.Layout.DateColumn)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("etfs: {}"))
	assert.Error(t, err)

	_, err = Parse([]byte("etfs:\n  btc:\n    name: x\n"))
	assert.Error(t, err)

	_, err = Parse([]byte(":::"))
	assert.Error(t, err)
}
