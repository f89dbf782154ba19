package domain

import "github.com/google/uuid"

// CommandType selects which of the three mutating ledger operations a
// command requests.
type CommandType uint8

const (
	// CommandTypeTransfer moves amount from From to To.
	CommandTypeTransfer CommandType = 1
	// CommandTypeApprove sets the (From, Spender) allowance to Amount.
	CommandTypeApprove CommandType = 2
	// CommandTypeTransferFrom moves Amount from From to To on Spender's
	// authority, consuming allowance.
	CommandTypeTransferFrom CommandType = 3
)

// Command is the envelope for one mutating ledger operation. Field order
// keeps the struct free of padding holes.
type Command struct {
	// Sequence is the global apply order, assigned by the serialization
	// point (1, 2, 3...). Used by WAL replay to reconstruct state in order.
	Sequence uint64 `json:"sequence"`
	// From is the sender for a transfer, the owner for approve and
	// transferFrom.
	From Address `json:"from"`
	// To is the recipient for transfer and transferFrom. Unused by approve.
	To Address `json:"to"`
	// Spender is the authorized third party for approve and transferFrom.
	// Unused by a direct transfer.
	Spender Address `json:"spender"`
	// Amount in base token units.
	Amount uint64 `json:"amount"`
	// CreatedAt is the admission time in unix nanoseconds.
	CreatedAt int64 `json:"created_at"`
	// RefID is the external idempotency key. uuid.Nil disables dedupe.
	RefID uuid.UUID `json:"ref_id"`
	// Type goes last to sit in what would otherwise be padding.
	Type CommandType `json:"type"`
}
