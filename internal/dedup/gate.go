// Package dedup decides whether an insider record is new on the legacy
// (per-exchange) track or the unified (cross-exchange) track.
package dedup

import (
	"context"
	"errors"
	"fmt"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/idhash"
	"insider-pipeline/internal/storage"
)

// Track selects which store a record is checked against.
type Track int

const (
	TrackLegacy Track = iota
	TrackUnified
)

func (t Track) String() string {
	switch t {
	case TrackLegacy:
		return "legacy"
	case TrackUnified:
		return "unified"
	default:
		return "unknown"
	}
}

// IdentityMode selects the unified identity key.
type IdentityMode string

const (
	// IdentityFull keys on (exchange, scrip, transaction date, quantity).
	IdentityFull IdentityMode = "full"

	// IdentityScripQuantity keys on (scrip, quantity) only. Two distinct
	// filings with equal quantity for one security collapse into one record.
	IdentityScripQuantity IdentityMode = "scrip_quantity"
)

// ParseIdentityMode parses a config value. Empty means IdentityFull.
func ParseIdentityMode(s string) (IdentityMode, error) {
	switch IdentityMode(s) {
	case "", IdentityFull:
		return IdentityFull, nil
	case IdentityScripQuantity:
		return IdentityScripQuantity, nil
	default:
		return "", fmt.Errorf("unknown identity mode %q", s)
	}
}

// Gate checks and admits records on both tracks.
// Admission is a conditional insert: the store's unique key decides the
// winner, so concurrent runs cannot both insert the same identity.
type Gate struct {
	legacy  storage.LegacyInsiderStore
	unified storage.UnifiedInsiderStore
	mode    IdentityMode
}

// NewGate creates a gate. An empty mode means IdentityFull.
func NewGate(legacy storage.LegacyInsiderStore, unified storage.UnifiedInsiderStore, mode IdentityMode) *Gate {
	if mode == "" {
		mode = IdentityFull
	}
	return &Gate{legacy: legacy, unified: unified, mode: mode}
}

// Mode returns the unified identity mode.
func (g *Gate) Mode() IdentityMode {
	return g.mode
}

// Key returns the dedup key of rec on track.
func (g *Gate) Key(rec *domain.InsiderRecord, track Track) string {
	if track == TrackLegacy {
		return idhash.ComputeLegacyKey(rec.Exchange, rec.ScripCode, rec.PersonName, rec.TransactionDate, rec.Quantity())
	}
	if g.mode == IdentityScripQuantity {
		return idhash.ComputeScripQuantityKey(rec.ScripCode, rec.Quantity())
	}
	return idhash.ComputeUnifiedKey(rec.Exchange, rec.ScripCode, rec.TransactionDate, rec.Quantity())
}

// Exists reports whether rec is already stored on track.
func (g *Gate) Exists(ctx context.Context, rec *domain.InsiderRecord, track Track) (bool, error) {
	if rec == nil {
		return false, storage.ErrInvalidInput
	}

	key := g.Key(rec, track)
	var (
		exists bool
		err    error
	)
	switch track {
	case TrackLegacy:
		exists, err = g.legacy.Exists(ctx, rec.Exchange, key)
	case TrackUnified:
		exists, err = g.unified.Exists(ctx, key)
	default:
		return false, fmt.Errorf("unknown track %d", track)
	}
	if err != nil {
		return false, fmt.Errorf("check %s track: %w", track, err)
	}
	return exists, nil
}

// Admit inserts rec on track unless its key is already present.
// inserted is false when the record was a duplicate, including when a
// concurrent writer won the insert after Exists returned false.
func (g *Gate) Admit(ctx context.Context, rec *domain.InsiderRecord, track Track) (id string, inserted bool, err error) {
	exists, err := g.Exists(ctx, rec, track)
	if err != nil {
		return "", false, err
	}
	if exists {
		return "", false, nil
	}
	return g.Insert(ctx, rec, track)
}

// Insert is the conditional insert without the existence read.
// A unique-key conflict reports inserted=false and no error.
func (g *Gate) Insert(ctx context.Context, rec *domain.InsiderRecord, track Track) (id string, inserted bool, err error) {
	if rec == nil {
		return "", false, storage.ErrInvalidInput
	}

	key := g.Key(rec, track)
	switch track {
	case TrackLegacy:
		id, err = g.legacy.Insert(ctx, key, rec)
	case TrackUnified:
		id, err = g.unified.Insert(ctx, key, rec)
	default:
		return "", false, fmt.Errorf("unknown track %d", track)
	}
	if errors.Is(err, storage.ErrDuplicateKey) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("insert %s track: %w", track, err)
	}
	return id, true, nil
}
