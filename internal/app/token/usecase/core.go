package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
)

// TokenUseCase is the application service driving a Ledger. It assembles
// commands for the three mutating operations and passes queries through.
type TokenUseCase struct {
	ledger Ledger
}

func NewTokenUseCase(ledger Ledger) *TokenUseCase {
	return &TokenUseCase{
		ledger: ledger,
	}
}

// Transfer moves amount from sender to recipient.
func (c *TokenUseCase) Transfer(ctx context.Context, refID uuid.UUID, sender, recipient domain.Address, amount uint64) error {
	cmd := &domain.Command{
		RefID:  refID,
		Type:   domain.CommandTypeTransfer,
		From:   sender,
		To:     recipient,
		Amount: amount,
	}
	return c.ledger.Execute(ctx, cmd)
}

// Approve sets spender's allowance out of owner's balance to amount,
// overwriting any prior value.
func (c *TokenUseCase) Approve(ctx context.Context, refID uuid.UUID, owner, spender domain.Address, amount uint64) error {
	cmd := &domain.Command{
		RefID:   refID,
		Type:    domain.CommandTypeApprove,
		From:    owner,
		Spender: spender,
		Amount:  amount,
	}
	return c.ledger.Execute(ctx, cmd)
}

// TransferFrom moves amount from owner to recipient on spender's authority.
func (c *TokenUseCase) TransferFrom(ctx context.Context, refID uuid.UUID, spender, owner, recipient domain.Address, amount uint64) error {
	cmd := &domain.Command{
		RefID:   refID,
		Type:    domain.CommandTypeTransferFrom,
		From:    owner,
		To:      recipient,
		Spender: spender,
		Amount:  amount,
	}
	return c.ledger.Execute(ctx, cmd)
}

func (c *TokenUseCase) BalanceOf(ctx context.Context, account domain.Address) (uint64, error) {
	return c.ledger.BalanceOf(ctx, account)
}

func (c *TokenUseCase) Allowance(ctx context.Context, owner, spender domain.Address) (uint64, error) {
	return c.ledger.Allowance(ctx, owner, spender)
}

func (c *TokenUseCase) TotalSupply(ctx context.Context) (uint64, error) {
	return c.ledger.TotalSupply(ctx)
}

func (c *TokenUseCase) Metadata(ctx context.Context) (domain.Metadata, error) {
	return c.ledger.Metadata(ctx)
}
