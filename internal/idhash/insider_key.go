package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"insider-pipeline/internal/domain"
)

// ComputeLegacyKey computes the per-exchange dedup key.
// Formula: SHA256(legacy|exchange|scrip_code|person_name|transaction_date|quantity)
// Returns hex-encoded hash (64 characters).
func ComputeLegacyKey(
	exchange domain.Exchange,
	scripCode string,
	personName string,
	transactionDate int64,
	quantity int64,
) string {
	return sum("legacy", string(exchange), scripCode, personName,
		fmt.Sprint(transactionDate), fmt.Sprint(quantity))
}

// ComputeUnifiedKey computes the cross-exchange identity key.
// Formula: SHA256(unified|exchange|scrip_code|transaction_date|quantity)
func ComputeUnifiedKey(
	exchange domain.Exchange,
	scripCode string,
	transactionDate int64,
	quantity int64,
) string {
	return sum("unified", string(exchange), scripCode,
		fmt.Sprint(transactionDate), fmt.Sprint(quantity))
}

// ComputeScripQuantityKey computes the narrow unified key that ignores exchange and date.
// Formula: SHA256(scrip_qty|scrip_code|quantity)
func ComputeScripQuantityKey(scripCode string, quantity int64) string {
	return sum("scrip_qty", scripCode, fmt.Sprint(quantity))
}

// ComputeBulkDealKey computes the bulk deal dedup key.
// Formula: SHA256(bulk|scrip_code|client_name|date_text|quantity)
func ComputeBulkDealKey(scripCode, clientName, dateText string, quantity int64) string {
	return sum("bulk", scripCode, clientName, dateText, fmt.Sprint(quantity))
}

// ComputeCorporateActionKey computes the corporate action dedup key.
// Formula: SHA256(corp|scrip_code|purpose|ex_date_text)
func ComputeCorporateActionKey(scripCode, purpose, exDateText string) string {
	return sum("corp", scripCode, purpose, exDateText)
}

func sum(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
