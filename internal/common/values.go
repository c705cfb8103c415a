package common

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for every stored date.
const DateLayout = "2006-01-02"

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// NormalizeCurrency upper-cases a currency code, returning fallback when empty.
func NormalizeCurrency(code, fallback string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return strings.ToUpper(strings.TrimSpace(fallback))
	}
	return c
}

// NormalizeDate reduces a date or RFC 3339 timestamp to YYYY-MM-DD.
// Timestamps keep the calendar date as written in their own offset, the same
// date the store's date filters compare against. Returns false when the value is not a recognisable date.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DateLayout), true
	}
	if len(s) >= 10 {
		if t, err := time.Parse(DateLayout, s[:10]); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// AddDays shifts a YYYY-MM-DD date by n days. Invalid input is returned unchanged.
func AddDays(date string, n int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// FormatDate formats t as YYYY-MM-DD in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
