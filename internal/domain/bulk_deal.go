package domain

import "github.com/shopspring/decimal"

// DealType is the side of a bulk deal.
type DealType string

const (
	DealTypeBuy  DealType = "B"
	DealTypeSell DealType = "S"
)

// BulkDeal is one row of the BSE bulk deals report.
type BulkDeal struct {
	ID          string          `json:"id"`
	Date        int64           `json:"date"` // unix ms, 0 when unparseable
	DateText    string          `json:"dateText"`
	ScripCode   string          `json:"scripCode"`
	CompanyName string          `json:"companyName"`
	ClientName  string          `json:"clientName"`
	DealType    DealType        `json:"dealType"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalValue  decimal.Decimal `json:"totalValue"` // Quantity * Price
	CreatedAt   int64           `json:"createdAt"`
}
