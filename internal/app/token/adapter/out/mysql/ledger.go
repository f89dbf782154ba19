// Package mysql persists the token ledger in MySQL. Every mutating command
// runs in one database transaction with pessimistic row locks, so the same
// conservation and non-negativity guarantees hold as for the in-memory
// backends.
package mysql

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/usecase"
	"github.com/JoeShih716/go-token-ledger/pkg/mysql"
)

// sqlAccount maps to the token_accounts table.
type sqlAccount struct {
	Address   []byte `gorm:"primaryKey;type:binary(20)"`
	Balance   uint64
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"`
}

func (*sqlAccount) TableName() string {
	return "token_accounts"
}

// sqlAllowance maps to the token_allowances table, keyed by (owner, spender).
type sqlAllowance struct {
	Owner     []byte `gorm:"primaryKey;type:binary(20)"`
	Spender   []byte `gorm:"primaryKey;type:binary(20)"`
	Amount    uint64
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"`
}

func (*sqlAllowance) TableName() string {
	return "token_allowances"
}

// sqlCommand maps to the token_commands journal table. The auto-increment ID
// doubles as the global apply sequence; the unique ref_id index backs
// idempotent resubmission.
type sqlCommand struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	RefID       []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"`
	FromAddress []byte `gorm:"type:binary(20)"`
	ToAddress   []byte `gorm:"type:binary(20)"`
	Spender     []byte `gorm:"type:binary(20)"`
	Amount      uint64
	Type        uint8
	CreatedAt   int64 `gorm:"autoCreateTime:milli"`
}

func (*sqlCommand) TableName() string {
	return "token_commands"
}

// sqlToken maps to the single-row token_info table holding the immutable
// metadata and the fixed supply.
type sqlToken struct {
	ID          int64 `gorm:"primaryKey"`
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply uint64
}

func (*sqlToken) TableName() string {
	return "token_info"
}

type Ledger struct {
	client *mysql.Client
	sink   domain.Sink
}

// NewLedger wraps a MySQL client as a token ledger backend. sink may be nil.
func NewLedger(client *mysql.Client, sink domain.Sink) *Ledger {
	return &Ledger{
		client: client,
		sink:   sink,
	}
}

// EnsureDeployed migrates the schema and, on first run, writes the token
// metadata row and credits the full supply to creator. Re-running against an
// already-deployed database is a no-op: the stored metadata wins.
func (l *Ledger) EnsureDeployed(ctx context.Context, meta domain.Metadata, supply uint64, creator domain.Address) error {
	db := l.client.DB().WithContext(ctx)
	if err := db.AutoMigrate(&sqlToken{}, &sqlAccount{}, &sqlAllowance{}, &sqlCommand{}); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var info sqlToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&info).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		info = sqlToken{
			ID:          1,
			Name:        meta.Name,
			Symbol:      meta.Symbol,
			Decimals:    meta.Decimals,
			TotalSupply: supply,
		}
		if err := tx.Create(&info).Error; err != nil {
			return err
		}
		if supply == 0 {
			return nil
		}
		return tx.Create(&sqlAccount{Address: creator[:], Balance: supply}).Error
	})
}

// Execute applies one command in a single database transaction. Validation
// order matches the in-memory backends exactly, including transferFrom's
// allowance-before-recipient precedence.
func (l *Ledger) Execute(ctx context.Context, cmd *domain.Command) error {
	var event *domain.Event
	err := l.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Idempotency: a ref_id we have already journaled was applied.
		if cmd.RefID != uuid.Nil {
			var prior sqlCommand
			err := tx.Where("ref_id = ?", cmd.RefID[:]).First(&prior).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrSelectCommandFailed
			}
		}

		var ev domain.Event
		var err error
		switch cmd.Type {
		case domain.CommandTypeTransfer:
			ev, err = l.applyTransfer(tx, cmd)
		case domain.CommandTypeApprove:
			ev, err = l.applyApprove(tx, cmd)
		case domain.CommandTypeTransferFrom:
			ev, err = l.applyTransferFrom(tx, cmd)
		default:
			return domain.ErrUnknownCommand
		}
		if err != nil {
			return err
		}

		record := sqlCommand{
			FromAddress: cmd.From[:],
			ToAddress:   cmd.To[:],
			Spender:     cmd.Spender[:],
			Amount:      cmd.Amount,
			Type:        uint8(cmd.Type),
		}
		if cmd.RefID != uuid.Nil {
			record.RefID = cmd.RefID[:]
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		cmd.Sequence = uint64(record.ID)
		ev.Sequence = cmd.Sequence
		event = &ev
		return nil
	})
	if err != nil {
		return err
	}
	// Emit only after commit; a rolled-back command must leave no trace on
	// the event stream.
	if event != nil && l.sink != nil {
		l.sink.Emit(*event)
	}
	return nil
}

func (l *Ledger) applyTransfer(tx *gorm.DB, cmd *domain.Command) (domain.Event, error) {
	if cmd.To.IsZero() {
		return domain.Event{}, domain.ErrInvalidRecipient
	}
	accounts, err := lockAccounts(tx, cmd.From, cmd.To)
	if err != nil {
		return domain.Event{}, err
	}
	if balanceOf(accounts, cmd.From) < cmd.Amount {
		return domain.Event{}, domain.ErrInsufficientBalance
	}
	if err := move(tx, accounts, cmd.From, cmd.To, cmd.Amount); err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		Type:   domain.EventTransfer,
		From:   cmd.From,
		To:     cmd.To,
		Amount: cmd.Amount,
	}, nil
}

func (l *Ledger) applyApprove(tx *gorm.DB, cmd *domain.Command) (domain.Event, error) {
	if cmd.Spender.IsZero() {
		return domain.Event{}, domain.ErrInvalidSpender
	}
	// Set, not increment: the later approval wins whatever was stored.
	row := sqlAllowance{Owner: cmd.From[:], Spender: cmd.Spender[:], Amount: cmd.Amount}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "spender"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		Type:   domain.EventApproval,
		From:   cmd.From,
		To:     cmd.Spender,
		Amount: cmd.Amount,
	}, nil
}

func (l *Ledger) applyTransferFrom(tx *gorm.DB, cmd *domain.Command) (domain.Event, error) {
	// Allowance first: this precedence is observable and must not change.
	var grant sqlAllowance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner = ? AND spender = ?", cmd.From[:], cmd.Spender[:]).
		First(&grant).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Event{}, err
	}
	if grant.Amount < cmd.Amount {
		return domain.Event{}, domain.ErrInsufficientAllowance
	}
	if cmd.To.IsZero() {
		return domain.Event{}, domain.ErrInvalidRecipient
	}
	accounts, err := lockAccounts(tx, cmd.From, cmd.To)
	if err != nil {
		return domain.Event{}, err
	}
	if balanceOf(accounts, cmd.From) < cmd.Amount {
		return domain.Event{}, domain.ErrInsufficientBalance
	}
	if err := move(tx, accounts, cmd.From, cmd.To, cmd.Amount); err != nil {
		return domain.Event{}, err
	}
	// A zero-amount spend against a nonexistent grant has nothing to update.
	if grant.Owner != nil {
		grant.Amount -= cmd.Amount
		if err := tx.Save(&grant).Error; err != nil {
			return domain.Event{}, err
		}
	}
	return domain.Event{
		Type:   domain.EventTransfer,
		From:   cmd.From,
		To:     cmd.To,
		Amount: cmd.Amount,
	}, nil
}

// lockAccounts takes FOR UPDATE locks on the given account rows in ascending
// address order, so concurrent transfers touching the same accounts cannot
// deadlock. Missing rows come back as zero-balance entries.
func lockAccounts(tx *gorm.DB, addrs ...domain.Address) (map[domain.Address]*sqlAccount, error) {
	keys := make([][]byte, 0, len(addrs))
	seen := make(map[domain.Address]bool, len(addrs))
	for _, a := range addrs {
		if !seen[a] {
			seen[a] = true
			keys = append(keys, append([]byte(nil), a[:]...))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })

	var rows []sqlAccount
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address IN ?", keys).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	accounts := make(map[domain.Address]*sqlAccount, len(addrs))
	for i := range rows {
		addr, err := domain.AddressFromBytes(rows[i].Address)
		if err != nil {
			return nil, err
		}
		accounts[addr] = &rows[i]
	}
	return accounts, nil
}

func balanceOf(accounts map[domain.Address]*sqlAccount, addr domain.Address) uint64 {
	if row, ok := accounts[addr]; ok {
		return row.Balance
	}
	return 0
}

// move debits from and credits to, creating the recipient row if absent.
// Callers have already verified the balance under the row lock.
func move(tx *gorm.DB, accounts map[domain.Address]*sqlAccount, from, to domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	fromRow := accounts[from]
	fromRow.Balance -= amount
	if err := tx.Save(fromRow).Error; err != nil {
		return err
	}

	toRow, ok := accounts[to]
	if !ok {
		return tx.Create(&sqlAccount{Address: to[:], Balance: amount}).Error
	}
	toRow.Balance += amount
	return tx.Save(toRow).Error
}

// BalanceOf returns the stored balance, zero for an absent account.
func (l *Ledger) BalanceOf(ctx context.Context, account domain.Address) (uint64, error) {
	var row sqlAccount
	err := l.client.DB().WithContext(ctx).Where("address = ?", account[:]).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Balance, nil
}

// Allowance returns the stored (owner, spender) allowance, zero if absent.
func (l *Ledger) Allowance(ctx context.Context, owner, spender domain.Address) (uint64, error) {
	var row sqlAllowance
	err := l.client.DB().WithContext(ctx).
		Where("owner = ? AND spender = ?", owner[:], spender[:]).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Amount, nil
}

// TotalSupply returns the fixed supply recorded at deploy time.
func (l *Ledger) TotalSupply(ctx context.Context) (uint64, error) {
	var info sqlToken
	if err := l.client.DB().WithContext(ctx).First(&info).Error; err != nil {
		return 0, err
	}
	return info.TotalSupply, nil
}

// Metadata returns the immutable token description recorded at deploy time.
func (l *Ledger) Metadata(ctx context.Context) (domain.Metadata, error) {
	var info sqlToken
	if err := l.client.DB().WithContext(ctx).First(&info).Error; err != nil {
		return domain.Metadata{}, err
	}
	return domain.Metadata{
		Name:     info.Name,
		Symbol:   info.Symbol,
		Decimals: info.Decimals,
	}, nil
}

var _ usecase.Ledger = (*Ledger)(nil)
