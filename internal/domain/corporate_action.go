package domain

// CorporateAction is one row of the BSE corporate actions listing.
type CorporateAction struct {
	ID          string  `json:"id"`
	ScripCode   string  `json:"scripCode"`
	CompanyName string  `json:"companyName"`
	Purpose     string  `json:"purpose"`
	ExDate      int64   `json:"exDate"` // unix ms, 0 when unparseable
	ExDateText  string  `json:"exDateText"`
	RecordDate  *string `json:"recordDate"`
	BCStartDate *string `json:"bcStartDate"`
	BCEndDate   *string `json:"bcEndDate"`
	NDStartDate *string `json:"ndStartDate"`
	NDEndDate   *string `json:"ndEndDate"`
	CreatedAt   int64   `json:"createdAt"`
}
