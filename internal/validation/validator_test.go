package validation

import (
	"errors"
	"testing"

	"insider-pipeline/internal/domain"
)

func qty(v int64) *int64 { return &v }

func TestValidateInsider(t *testing.T) {
	v := NewRecordValidator()

	tests := []struct {
		name    string
		rec     *domain.InsiderRecord
		wantErr error
	}{
		{
			name: "valid",
			rec:  &domain.InsiderRecord{Exchange: domain.ExchangeBSE, ScripCode: "500325", NumberOfSecurities: qty(1000)},
		},
		{
			name: "zero quantity is valid",
			rec:  &domain.InsiderRecord{Exchange: domain.ExchangeNSE, ScripCode: "INFY", NumberOfSecurities: qty(0)},
		},
		{
			name:    "missing quantity",
			rec:     &domain.InsiderRecord{Exchange: domain.ExchangeBSE, ScripCode: "500325"},
			wantErr: ErrMissingQuantity,
		},
		{
			name:    "negative quantity",
			rec:     &domain.InsiderRecord{Exchange: domain.ExchangeBSE, ScripCode: "500325", NumberOfSecurities: qty(-5)},
			wantErr: ErrMissingQuantity,
		},
		{
			name:    "missing scrip",
			rec:     &domain.InsiderRecord{Exchange: domain.ExchangeBSE, NumberOfSecurities: qty(1)},
			wantErr: ErrMissingScripCode,
		},
		{
			name:    "bad exchange",
			rec:     &domain.InsiderRecord{Exchange: "LSE", ScripCode: "X", NumberOfSecurities: qty(1)},
			wantErr: ErrInvalidExchange,
		},
		{
			name:    "nil",
			rec:     nil,
			wantErr: ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInsider(tt.rec)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
