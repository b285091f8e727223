package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-eE]`)
	numericPrefix = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
)

// Number is the tagged result of a lossy numeric parse.
// OK is false when the input was absent or unparseable; Raw keeps the input text.
type Number struct {
	Value float64
	OK    bool
	Raw   string
}

// OrZero collapses an unparseable result to 0.
func (n Number) OrZero() float64 {
	if !n.OK {
		return 0
	}
	return n.Value
}

// ParseNumber strips everything except digits, '.', '-' and exponent markers
// and parses the longest numeric prefix of what remains.
func ParseNumber(v any) Number {
	switch x := v.(type) {
	case nil:
		return Number{}
	case float64:
		return finite(x, strconv.FormatFloat(x, 'f', -1, 64))
	case float32:
		return finite(float64(x), strconv.FormatFloat(float64(x), 'f', -1, 32))
	case int:
		return Number{Value: float64(x), OK: true, Raw: strconv.Itoa(x)}
	case int64:
		return Number{Value: float64(x), OK: true, Raw: strconv.FormatInt(x, 10)}
	case *int64:
		if x == nil {
			return Number{}
		}
		return Number{Value: float64(*x), OK: true, Raw: strconv.FormatInt(*x, 10)}
	case *float64:
		if x == nil {
			return Number{}
		}
		return finite(*x, strconv.FormatFloat(*x, 'f', -1, 64))
	case *string:
		if x == nil {
			return Number{}
		}
		return parseNumberString(*x)
	case string:
		return parseNumberString(x)
	default:
		return Number{}
	}
}

func parseNumberString(s string) Number {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	prefix := numericPrefix.FindString(cleaned)
	if prefix == "" {
		return Number{Raw: s}
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return Number{Raw: s}
	}
	return finite(f, s)
}

func finite(f float64, raw string) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{Raw: raw}
	}
	return Number{Value: f, OK: true, Raw: raw}
}

// ToNumber is the silent-failure normalizer: any absent or unparseable input is 0.
// A malformed cell is therefore indistinguishable from a real zero; use
// ParseNumber when the difference matters.
func ToNumber(v any) float64 {
	return ParseNumber(v).OrZero()
}

// ParseIntSafe removes thousands separators and parses s, flooring fractions.
// Returns nil for empty or non-numeric input.
func ParseIntSafe(s string) *int64 {
	f := ParseFloatSafe(s)
	if f == nil {
		return nil
	}
	n := int64(math.Floor(*f))
	return &n
}

// ParseFloatSafe removes thousands separators and parses s.
// Returns nil for empty or non-numeric input.
func ParseFloatSafe(s string) *float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var (
	percentPattern = regexp.MustCompile(`\(([\d.]+)\)`)
	holdingPattern = regexp.MustCompile(`([\d,]+)\s*\(([\d.]+)\)`)
)

// ExtractPercentage returns the parenthesised number in s, e.g. 5.67 for "1,234 (5.67)".
func ExtractPercentage(s string) *float64 {
	m := percentPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return ParseFloatSafe(m[1])
}

// SplitHolding splits a combined "1,234 (5.67)" holding cell into quantity and percentage.
// Cells without the combined shape fall back to parsing the whole text.
func SplitHolding(s string) (*int64, *float64) {
	s = strings.TrimSpace(s)
	if m := holdingPattern.FindStringSubmatch(s); m != nil {
		return ParseIntSafe(m[1]), ParseFloatSafe(m[2])
	}
	return ParseIntSafe(s), ExtractPercentage(s)
}
