package ledger

import "errors"

// Sentinel errors for every way a ledger operation can fail. Each is
// terminal for the operation that raised it: no partial mutation
// survives. Raise sites wrap these with entity ids and expected/actual
// amounts so callers can render a useful message; match with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrNotOwner          = errors.New("caller does not own the ticket")
	ErrSoldOut           = errors.New("event is sold out")
	ErrPaymentMismatch   = errors.New("paid amount does not match the price")
	ErrAlreadyUsed       = errors.New("ticket already used")
	ErrSelfPurchase      = errors.New("cannot buy your own listing")
	ErrInvalidPrice      = errors.New("ask price must be positive")
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
)
