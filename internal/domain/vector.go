package domain

// Vector is an embedded transaction summary stored in a date namespace.
type Vector struct {
	ID       string
	Values   []float32
	Metadata VectorMetadata
}

// VectorMetadata is stored next to each vector.
// Summary holds the exact text that was embedded.
type VectorMetadata struct {
	Date               string  `json:"date"`
	Exchange           string  `json:"exchange"`
	ScripCode          string  `json:"scripCode"`
	CompanyName        string  `json:"companyName"`
	PersonName         string  `json:"personName"`
	Category           string  `json:"category"`
	TransactionType    string  `json:"transactionType"`
	NumberOfSecurities int64   `json:"numberOfSecurities"`
	BuyValue           float64 `json:"buyValue"`
	SellValue          float64 `json:"sellValue"`
	SecurityType       string  `json:"securityType"`
	ValuePerSecurity   float64 `json:"valuePerSecurity"`
	Summary            string  `json:"summary"`
}

// VectorMatch is a similarity search hit.
type VectorMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata VectorMetadata `json:"metadata"`
}

// NamespaceStats describes one vector namespace.
type NamespaceStats struct {
	RecordCount int64 `json:"recordCount"`
}

// IndexStats is the result of a stats call over all namespaces.
type IndexStats struct {
	Namespaces       map[string]NamespaceStats `json:"namespaces"`
	TotalRecordCount int64                     `json:"totalRecordCount"`
}
