package domain

// Exchange identifies the market a filing was published on.
type Exchange string

const (
	ExchangeBSE Exchange = "BSE"
	ExchangeNSE Exchange = "NSE"
)

// String returns the string representation of Exchange.
func (e Exchange) String() string {
	return string(e)
}

// IsValid checks if the exchange is a known value.
func (e Exchange) IsValid() bool {
	return e == ExchangeBSE || e == ExchangeNSE
}

// ParseExchange converts a case-sensitive exchange code. ok is false for unknown codes.
func ParseExchange(s string) (Exchange, bool) {
	e := Exchange(s)
	return e, e.IsValid()
}
