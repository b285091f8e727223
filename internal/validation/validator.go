// Package validation checks canonical records before they reach storage.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"insider-pipeline/internal/domain"
)

// RecordValidator validates unified insider records.
type RecordValidator struct {
	validate *validator.Validate
}

// NewRecordValidator creates a validator using the struct tags on domain types.
func NewRecordValidator() *RecordValidator {
	return &RecordValidator{validate: validator.New()}
}

// ValidateInsider returns nil when rec can be stored.
// Field failures are mapped to the sentinel errors of this package.
func (v *RecordValidator) ValidateInsider(rec *domain.InsiderRecord) error {
	if rec == nil {
		return ErrInvalidRecord
	}
	err := v.validate.Struct(rec)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	var first error
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		if first != nil {
			continue
		}
		switch fe.Field() {
		case "NumberOfSecurities":
			first = ErrMissingQuantity
		case "ScripCode":
			first = ErrMissingScripCode
		case "Exchange":
			first = ErrInvalidExchange
		}
	}
	if first == nil {
		first = ErrInvalidRecord
	}
	return fmt.Errorf("%w (%s)", first, strings.Join(msgs, ", "))
}
