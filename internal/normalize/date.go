// Package normalize converts scraped cell values into canonical typed values.
// Every function here is pure and degrades to a sentinel instead of failing.
package normalize

import (
	"strings"
	"time"
)

// UnknownDate is the grouping key for records without a usable date.
const UnknownDate = "unknown"

// MarketLocation is the timezone exchange dates are published in (IST, no DST).
var MarketLocation = time.FixedZone("IST", 5*60*60+30*60)

// displayLayout is the DD/MM/YYYY grouping format.
const displayLayout = "02/01/2006"

var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var marketLayouts = []string{
	"2/1/2006",
	"2-Jan-2006 15:04",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// NormalizeDate returns the DD/MM/YYYY market date of v, or UnknownDate.
// Accepted inputs: nil, string (ISO-8601, DD/MM/YYYY, DD-Mon-YYYY[ HH:MM]),
// *string, time.Time, *time.Time and unix milliseconds as int64/int/float64.
// Zero milliseconds is treated as unknown.
func NormalizeDate(v any) string {
	t, ok := ToTime(v)
	if !ok {
		return UnknownDate
	}
	return t.In(MarketLocation).Format(displayLayout)
}

// ToTime converts any NormalizeDate input into an instant.
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case string:
		return ParseDate(x)
	case *string:
		if x == nil {
			return time.Time{}, false
		}
		return ParseDate(*x)
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	case int64:
		return fromMillis(x)
	case int:
		return fromMillis(int64(x))
	case float64:
		if x != x { // NaN
			return time.Time{}, false
		}
		return fromMillis(int64(x))
	default:
		return time.Time{}, false
	}
}

func fromMillis(ms int64) (time.Time, bool) {
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// ParseDate parses an ISO instant or a market-local date string.
// Date ranges such as "26/09/2025 26/09/2025" resolve to their first date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range marketLayouts {
		if t, err := time.ParseInLocation(layout, s, MarketLocation); err == nil {
			return t, true
		}
	}
	if first, _, found := strings.Cut(s, " "); found {
		if t, err := time.ParseInLocation("2/1/2006", first, MarketLocation); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBSEDate parses BSE's DD/MM/YYYY cells as market-local midnight.
// Only the first date of a range is used.
func ParseBSEDate(s string) (time.Time, bool) {
	first, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	if first == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2/1/2006", first, MarketLocation)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseNSEDate parses NSE's "26-Sep-2025 14:30" cells in market time.
func ParseNSEDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2-Jan-2006 15:04", "2-Jan-2006 15:04:05", "2-Jan-2006"} {
		if t, err := time.ParseInLocation(layout, s, MarketLocation); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MarketDay returns the DD/MM/YYYY key of t in market time.
func MarketDay(t time.Time) string {
	return t.In(MarketLocation).Format(displayLayout)
}

// IsDisplayDate reports whether s is exactly a DD/MM/YYYY date.
func IsDisplayDate(s string) bool {
	if len(s) != len(displayLayout) {
		return false
	}
	_, err := time.Parse(displayLayout, s)
	return err == nil
}
