package domain

// InsiderRecord is the canonical cross-exchange insider transaction.
// Records are immutable once stored.
type InsiderRecord struct {
	ID       string   `json:"id"`
	Exchange Exchange `json:"exchange" validate:"required,oneof=BSE NSE"`

	ScripCode       string `json:"scripCode" validate:"required"` // BSE numeric code or NSE symbol
	CompanyName     string `json:"companyName"`
	PersonName      string `json:"personName"`
	Category        string `json:"category"`
	SecurityType    string `json:"securityType"`
	TransactionType string `json:"transactionType"`

	NumberOfSecurities *int64 `json:"numberOfSecurities" validate:"required,gte=0"`

	// TransactionDate is unix milliseconds; 0 when the source date could not be parsed.
	TransactionDate     int64   `json:"transactionDate"`
	TransactionDateText *string `json:"transactionDateText"`
	AllotmentDateText   *string `json:"allotmentDateText"`

	SecuritiesHeldPreTransaction  *int64   `json:"securitiesHeldPreTransaction"`
	SecuritiesHeldPrePercentage   *float64 `json:"securitiesHeldPrePercentage"`
	ValuePerSecurity              *float64 `json:"valuePerSecurity"`
	SecuritiesHeldPostTransaction *int64   `json:"securitiesHeldPostTransaction"`
	SecuritiesHeldPostPercentage  *float64 `json:"securitiesHeldPostPercentage"`
	ModeOfAcquisition             *string  `json:"modeOfAcquisition"`
	DerivativeType                *string  `json:"derivativeType"`
	BuyValueUnits                 *string  `json:"buyValueUnits"`
	SellValueUnits                *string  `json:"sellValueUnits"`

	XBRLLink *string `json:"xbrlLink"`

	CreatedAt int64 `json:"createdAt"` // ingestion wall clock (ms), not the transaction date
}

// Quantity returns NumberOfSecurities or 0 when absent.
func (r *InsiderRecord) Quantity() int64 {
	if r == nil || r.NumberOfSecurities == nil {
		return 0
	}
	return *r.NumberOfSecurities
}

// Clone returns a copy that shares no pointers with r.
func (r *InsiderRecord) Clone() *InsiderRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.NumberOfSecurities = cloneInt(r.NumberOfSecurities)
	c.TransactionDateText = cloneString(r.TransactionDateText)
	c.AllotmentDateText = cloneString(r.AllotmentDateText)
	c.SecuritiesHeldPreTransaction = cloneInt(r.SecuritiesHeldPreTransaction)
	c.SecuritiesHeldPrePercentage = cloneFloat(r.SecuritiesHeldPrePercentage)
	c.ValuePerSecurity = cloneFloat(r.ValuePerSecurity)
	c.SecuritiesHeldPostTransaction = cloneInt(r.SecuritiesHeldPostTransaction)
	c.SecuritiesHeldPostPercentage = cloneFloat(r.SecuritiesHeldPostPercentage)
	c.ModeOfAcquisition = cloneString(r.ModeOfAcquisition)
	c.DerivativeType = cloneString(r.DerivativeType)
	c.BuyValueUnits = cloneString(r.BuyValueUnits)
	c.SellValueUnits = cloneString(r.SellValueUnits)
	c.XBRLLink = cloneString(r.XBRLLink)
	return &c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
