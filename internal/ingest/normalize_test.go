package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeFlow(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"dash placeholder", "-", "0"},
		{"empty", "", "0"},
		{"whitespace", "   ", "0"},
		{"plain integer", "10", "10"},
		{"fraction", "12.5", "12.5"},
		{"accounting negative", "(5)", "-5"},
		{"accounting negative fraction", "(43.2)", "-43.2"},
		{"accounting negative grouped", "(1,234.5)", "-1234.5"},
		{"grouped thousands", "1,234", "1234"},
		{"signed negative", "-7.1", "-7.1"},
		{"padded", "  20 ", "20"},
		{"non-breaking space", "1 000", "1000"},
		{"currency", "$15", "15"},
		{"text", "n/a", "0"},
		{"nan", "NaN", "0"},
		{"only parentheses", "()", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeFlow(tt.raw)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeFlow_ParenthesesNegateMagnitude(t *testing.T) {
	for _, x := range []string{"1", "5", "0.3", "1,000", "250.75"} {
		pos := NormalizeFlow(x)
		neg := NormalizeFlow("(" + x + ")")
		assert.True(t, neg.Equal(pos.Neg()), "(%s) = %s, want %s", x, neg, pos.Neg())
	}
}
