package analytics

import (
	"github.com/shopspring/decimal"
)

// Query is the requested reporting window as YYYY-MM-DD dates. Empty values
// select the default window.
type Query struct {
	DateStart string
	DateEnd   string
}

// Row is one day of ad account insights.
type Row struct {
	Date        string          `json:"date"`
	Spend       decimal.Decimal `json:"spend"`
	Clicks      decimal.Decimal `json:"clicks"`
	Impressions decimal.Decimal `json:"impressions"`
	Conversions decimal.Decimal `json:"conversions"`
}

// Totals sums every metric across the window.
type Totals struct {
	Spend       decimal.Decimal `json:"spend"`
	Clicks      decimal.Decimal `json:"clicks"`
	Impressions decimal.Decimal `json:"impressions"`
	Conversions decimal.Decimal `json:"conversions"`
}

// Dashboard is the payload rendered by the dashboard view.
type Dashboard struct {
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
	Rows      []Row  `json:"rows"`
	Totals    Totals `json:"totals"`
}

func totalsOf(rows []Row) Totals {
	t := Totals{Spend: decimal.Zero, Clicks: decimal.Zero, Impressions: decimal.Zero, Conversions: decimal.Zero}
	for _, r := range rows {
		t.Spend = t.Spend.Add(r.Spend)
		t.Clicks = t.Clicks.Add(r.Clicks)
		t.Impressions = t.Impressions.Add(r.Impressions)
		t.Conversions = t.Conversions.Add(r.Conversions)
	}
	return t
}
