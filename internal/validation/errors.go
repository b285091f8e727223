package validation

import "errors"

// Validation errors
var (
	ErrMissingQuantity  = errors.New("missing number of securities")
	ErrMissingScripCode = errors.New("missing scrip code")
	ErrInvalidExchange  = errors.New("invalid exchange value")
	ErrInvalidRecord    = errors.New("invalid record")
)
