package normalize

import "strings"

var buyKeywords = []string{"buy", "purchase", "acquisition"}

var sellKeywords = []string{"sell", "sale", "disposal", "dispose"}

// IsBuyTransaction reports whether typeText names an acquisition.
// Anything else, including empty input, is treated as a sell.
func IsBuyTransaction(typeText string) bool {
	return ClassifyDirection(typeText) == DirectionBuy
}

// Direction is the three-valued transaction direction.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionBuy
	DirectionSell
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "BUY"
	case DirectionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ClassifyDirection maps a transaction type string to a Direction.
// Buy keywords win when both vocabularies appear.
func ClassifyDirection(typeText string) Direction {
	t := strings.ToLower(strings.TrimSpace(typeText))
	if t == "" {
		return DirectionUnknown
	}
	for _, k := range buyKeywords {
		if strings.Contains(t, k) {
			return DirectionBuy
		}
	}
	for _, k := range sellKeywords {
		if strings.Contains(t, k) {
			return DirectionSell
		}
	}
	return DirectionUnknown
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// TrimmedPtr returns nil for nil or blank input and a trimmed copy otherwise.
func TrimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
