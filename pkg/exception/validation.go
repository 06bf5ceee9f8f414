package exception

import "github.com/yanun0323/errors"

// ErrValidation is the category root for bad input and business-rule
// violations. Callers receive these synchronously and no state changes.
var ErrValidation = errors.New("validation error")

var (
	ErrNonPositiveQuantity  = errors.Wrap(ErrValidation, "quantity must be positive")
	ErrNonPositivePrice     = errors.Wrap(ErrValidation, "price must be positive")
	ErrEmptySymbol          = errors.Wrap(ErrValidation, "symbol must not be empty")
	ErrEmptyUsername        = errors.Wrap(ErrValidation, "username must not be empty")
	ErrUnknownUser          = errors.Wrap(ErrValidation, "user not found")
	ErrUnknownInstrument    = errors.Wrap(ErrValidation, "instrument not found")
	ErrDuplicateUsername    = errors.Wrap(ErrValidation, "username already exists")
	ErrDuplicateSymbol      = errors.Wrap(ErrValidation, "symbol already exists")
	ErrInsufficientBalance  = errors.Wrap(ErrValidation, "insufficient balance")
	ErrInsufficientHolding  = errors.Wrap(ErrValidation, "insufficient holding")
	ErrSelfTrade            = errors.Wrap(ErrValidation, "buyer and seller must differ")
	ErrInstrumentMismatch   = errors.Wrap(ErrValidation, "orders reference different instruments")
	ErrQuantityExceedsOrder = errors.Wrap(ErrValidation, "executed quantity exceeds order quantity")
)
