package unify

import (
	"strings"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/normalize"
)

// DateKey returns the DD/MM/YYYY partition key of a record.
// A clean DD/MM/YYYY prefix of the source text wins over the parsed instant.
// Records with neither get normalize.UnknownDate.
func DateKey(rec *domain.InsiderRecord) string {
	if rec == nil {
		return normalize.UnknownDate
	}
	if rec.TransactionDateText != nil {
		first, _, _ := strings.Cut(strings.TrimSpace(*rec.TransactionDateText), " ")
		if normalize.IsDisplayDate(first) {
			return first
		}
	}
	return normalize.NormalizeDate(rec.TransactionDate)
}

// Namespace converts a date key into a vector namespace name ("05/03/2024" -> "05-03-2024").
func Namespace(dateKey string) string {
	return strings.ReplaceAll(dateKey, "/", "-")
}
