package domain

import "errors"

var (
	// ErrInvalidRecipient transfer recipient is the zero address
	ErrInvalidRecipient = errors.New("transfer to the zero address")

	// ErrInvalidSpender approval spender is the zero address
	ErrInvalidSpender = errors.New("approve to the zero address")

	// ErrInsufficientBalance sender/owner balance below the requested amount
	ErrInsufficientBalance = errors.New("transfer amount exceeds balance")

	// ErrInsufficientAllowance spender's authorized amount below the requested amount
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInvalidAddress malformed account identifier
	ErrInvalidAddress = errors.New("invalid address")

	// ErrUnknownCommand command type outside the known set
	ErrUnknownCommand = errors.New("unknown command type")

	// ErrWALWriteFailed journal append failed
	ErrWALWriteFailed = errors.New("wal write failed")

	// ErrSelectCommandFailed command dedupe lookup failed
	ErrSelectCommandFailed = errors.New("select command failed")
)

// IsValidationError reports whether err is one of the deterministic
// precondition failures a caller must correct and resubmit, as opposed to an
// infrastructure fault.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrInvalidSpender) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientAllowance)
}
