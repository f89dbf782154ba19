package usecase

import (
	"context"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
)

// Ledger is the driven port every ledger backend implements. Execute handles
// all three mutating operations; the command type decides which.
type Ledger interface {
	// Execute validates and atomically applies one command. A validation
	// failure leaves state untouched.
	Execute(ctx context.Context, cmd *domain.Command) error
	// BalanceOf returns the stored balance, zero for an absent account.
	BalanceOf(ctx context.Context, account domain.Address) (uint64, error)
	// Allowance returns the stored (owner, spender) allowance, zero if absent.
	Allowance(ctx context.Context, owner, spender domain.Address) (uint64, error)
	// TotalSupply returns the fixed token supply.
	TotalSupply(ctx context.Context) (uint64, error)
	// Metadata returns the immutable name/symbol/decimals.
	Metadata(ctx context.Context) (domain.Metadata, error)
}
