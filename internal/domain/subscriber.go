package domain

// Subscriber receives notification emails for new filings.
type Subscriber struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"` // identity provider user id
	Name       string `json:"name"`
	Email      string `json:"email"`
	CreatedAt  int64  `json:"createdAt"`
}
