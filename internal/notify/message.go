// Package notify delivers best-effort run summaries to external channels.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notifier delivers a Message. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Message summarizes one run that persisted data.
type Message struct {
	Type       string                     `json:"type"`
	ETF        string                     `json:"etf"`
	Time       time.Time                  `json:"time"`
	Trigger    string                     `json:"trigger"`
	Production bool                       `json:"production"`
	Action     string                     `json:"action"`
	Key        string                     `json:"key"`
	Flows      map[string]decimal.Decimal `json:"flows"`
	Total      decimal.Decimal            `json:"total"`
}

var printer = message.NewPrinter(language.English)

// HTML renders the Telegram flavoured markup of m.
func (m Message) HTML() string {
	env := "Dev"
	if m.Production {
		env = "Prod"
	}

	var b strings.Builder
	b.WriteString("<u><b>Data updated</b></u>\n")
	fmt.Fprintf(&b, "Time: %s UTC\n", m.Time.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Trigger: %s (%s)\n", html.EscapeString(m.Trigger), env)
	fmt.Fprintf(&b, "Action: %s <b>%s</b>\n", html.EscapeString(m.Action), html.EscapeString(m.Key))
	if !m.Total.IsZero() && len(m.Flows) > 0 {
		if raw, err := json.MarshalIndent(m.Flows, "", "  "); err == nil {
			fmt.Fprintf(&b, "<pre>%s</pre>\n", html.EscapeString(string(raw)))
		}
	}
	b.WriteString("Flows: ")
	b.WriteString(FormatMillions(m.Total))
	b.WriteString(" m$")
	return b.String()
}

// FormatMillions prints a flow total rounded to whole millions with
// thousands separators, e.g. 1,234.
func FormatMillions(v decimal.Decimal) string {
	return printer.Sprintf("%d", v.Round(0).IntPart())
}
