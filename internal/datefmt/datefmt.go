// Package datefmt normalizes calendar dates into the sortable string form
// YYYYMMDDHHmmss used everywhere in storage, so that lexical comparison
// equals chronological comparison.
package datefmt

import (
	"fmt"
	"strings"
	"time"
)

const Layout = "20060102150405"

var acceptedLayouts = []string{
	Layout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"20060102",
	"01-02-06",
	"1/2/06",
}

// Normalize parses a raw cell value as a calendar date and renders it in the
// sortable form. Returns an error for anything that is not a valid date.
func Normalize(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range acceptedLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(Layout), nil
		}
	}
	return "", fmt.Errorf("%q is not a valid date", raw)
}

// After reports whether a is strictly later than b. Both must already be in
// the normalized form.
func After(a, b string) bool {
	return a > b
}

func Format(t time.Time) string {
	return t.Format(Layout)
}

func Now() string {
	return time.Now().Format(Layout)
}

func StartOfDay(t time.Time) string {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).Format(Layout)
}

func EndOfDay(t time.Time) string {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 0, t.Location()).Format(Layout)
}

func StartOfMonth(t time.Time) string {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).Format(Layout)
}

func EndOfMonth(t time.Time) string {
	year, month, _ := t.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	return EndOfDay(first.AddDate(0, 1, -1))
}

// DecadeAgo and DecadeAfter bound open-ended range filters the way the list
// endpoints expect.
func DecadeAgo(t time.Time) string {
	return t.AddDate(-10, 0, 0).Format(Layout)
}

func DecadeAfter(t time.Time) string {
	return t.AddDate(10, 0, 0).Format(Layout)
}
