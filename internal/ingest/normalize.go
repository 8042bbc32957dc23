package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// cellReplacer strips grouping separators and currency noise.
var cellReplacer = strings.NewReplacer(
	",", "",
	" ", "",
	"\u00a0", "",
	"$", "",
	"\u2212", "-",
)

// NormalizeFlow converts a raw cell into a signed flow. Accounting notation
// "(X)" yields -|X|. Placeholders and anything unparsable yield zero.
func NormalizeFlow(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return decimal.Zero
	}

	negative := strings.ContainsAny(s, "()")
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	s = cellReplacer.Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Abs().Neg()
	}
	return d
}
