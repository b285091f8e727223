package embedding

import (
	"fmt"
	"strconv"
	"strings"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/normalize"
)

// Summary renders the fixed-template text of a record. The same string is
// the embedding input and the stored metadata.summary.
func Summary(rec *domain.InsiderRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transaction Type: %s\n", orDefault(rec.TransactionType, "Unknown"))
	fmt.Fprintf(&b, "Person: %s\n", orDefault(rec.PersonName, "Unknown"))
	fmt.Fprintf(&b, "Category: %s\n", orDefault(rec.Category, "Unknown"))
	fmt.Fprintf(&b, "Company: %s (%s)\n",
		orDefault(rec.CompanyName, "Unknown Company"),
		orDefault(string(rec.Exchange), "Unknown Exchange"))
	fmt.Fprintf(&b, "Scrip Code: %s\n", rec.ScripCode)
	fmt.Fprintf(&b, "Security Type: %s\n", orDefault(rec.SecurityType, "Unknown"))
	fmt.Fprintf(&b, "Number of Securities: %d\n", rec.Quantity())
	fmt.Fprintf(&b, "Transaction Value: %s\n", formatNumber(TransactionValue(rec)))
	fmt.Fprintf(&b, "Holdings Before: %d shares (%s%%)\n",
		derefInt(rec.SecuritiesHeldPreTransaction), formatNumber(derefFloat(rec.SecuritiesHeldPrePercentage)))
	fmt.Fprintf(&b, "Holdings After: %d shares (%s%%)\n",
		derefInt(rec.SecuritiesHeldPostTransaction), formatNumber(derefFloat(rec.SecuritiesHeldPostPercentage)))
	fmt.Fprintf(&b, "Mode of Acquisition: %s", orDefault(normalize.StringValue(rec.ModeOfAcquisition), "N/A"))
	return b.String()
}

// TransactionValue is the buy value for buy-side records and the sell value otherwise.
func TransactionValue(rec *domain.InsiderRecord) float64 {
	if normalize.IsBuyTransaction(rec.TransactionType) {
		return normalize.ToNumber(rec.BuyValueUnits)
	}
	return normalize.ToNumber(rec.SellValueUnits)
}

// Metadata builds the vector metadata stored alongside the embedding.
func Metadata(rec *domain.InsiderRecord, dateKey, summary string) domain.VectorMetadata {
	return domain.VectorMetadata{
		Date:               dateKey,
		Exchange:           string(rec.Exchange),
		ScripCode:          rec.ScripCode,
		CompanyName:        rec.CompanyName,
		PersonName:         rec.PersonName,
		Category:           rec.Category,
		TransactionType:    rec.TransactionType,
		NumberOfSecurities: rec.Quantity(),
		BuyValue:           normalize.ToNumber(rec.BuyValueUnits),
		SellValue:          normalize.ToNumber(rec.SellValueUnits),
		SecurityType:       rec.SecurityType,
		ValuePerSecurity:   derefFloat(rec.ValuePerSecurity),
		Summary:            summary,
	}
}

// formatNumber prints the shortest decimal form, never an exponent for ordinary values.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func derefInt(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
