package ledger

import "errors"

// Domain errors returned by the engine and its stores. The HTTP layer maps
// these to status codes; anything else is treated as a persistence failure
// and surfaced as a generic server error.
var (
	ErrInvalidAmount     = errors.New("amount must be greater than 0")
	ErrAccountNotFound   = errors.New("account not found")
	ErrMissingRecipient  = errors.New("recipient account number is required")
	ErrRecipientNotFound = errors.New("recipient account not found")
	ErrSelfTransfer      = errors.New("cannot transfer to your own account")
	ErrInsufficientFunds = errors.New("insufficient balance")
)
