package domain

// RawRow is one scraped table row before unification.
// Cells are kept exactly as scraped; nil means the cell was empty.
type RawRow interface {
	SourceExchange() Exchange
}

// BSERow is a row of the BSE insider trading table.
type BSERow struct {
	ScripCode   *string
	CompanyName *string
	PersonName  *string
	Category    *string

	// PreTransaction and PostTransaction hold combined cells like "1,234 (5.67)".
	PreTransaction  *string
	PostTransaction *string

	SecurityType       *string
	NumberOfSecurities *string
	ValuePerSecurity   *string
	TransactionType    *string

	DateOfAllotmentOrTransactionText *string // may be a range "26/09/2025 26/09/2025"
	ModeOfAcquisition                *string
	DerivativeType                   *string
	BuyValueUnits                    *string
	SellValueUnits                   *string
	DateOfIntimationText             *string
}

// SourceExchange implements RawRow.
func (*BSERow) SourceExchange() Exchange { return ExchangeBSE }

// NSERow is a row of the NSE insider trading table.
type NSERow struct {
	Symbol             *string
	CompanyName        *string
	AcquirerOrDisposer *string
	Regulation         *string
	SecurityType       *string
	Quantity           *string
	TransactionType    *string
	DisclosedAt        *string // "26-Sep-2025 14:30"
	XBRLLink           *string // may be relative to the NSE site
}

// SourceExchange implements RawRow.
func (*NSERow) SourceExchange() Exchange { return ExchangeNSE }

// RowFilter narrows a scrape to one security. Zero value fetches everything.
type RowFilter struct {
	ScripCode string // BSE scrip code or NSE symbol
}
