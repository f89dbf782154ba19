package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/pkg/wal"
)

// allowanceKey indexes the (owner, spender) allowance map.
type allowanceKey struct {
	Owner   domain.Address
	Spender domain.Address
}

// tokenState is the shared in-memory ledger state machine: the balance and
// allowance maps, metadata, the WAL journal and the event sink. MutexLedger
// and SerialLedger differ only in how callers are admitted to it; all
// validation and mutation logic lives here.
//
// Invariants, held at every point visible outside the mutex:
//   - sum of balances == totalSupply (conservation)
//   - no balance or allowance below zero; violating commands are rejected,
//     never clamped
//   - a map entry is removed when it reaches zero, so absence == zero
type tokenState struct {
	mu          sync.RWMutex
	meta        domain.Metadata
	totalSupply uint64
	balances    map[domain.Address]uint64
	allowances  map[allowanceKey]uint64
	// processed commands by RefID, for idempotent resubmission
	processed map[uuid.UUID]time.Time
	sequence  uint64
	wal       *wal.WAL
	sink      domain.Sink
}

// newTokenState deploys a fresh ledger: supply fully credited to creator,
// then replays the WAL (if any) to restore prior mutations.
func newTokenState(meta domain.Metadata, supply uint64, creator domain.Address, w *wal.WAL, sink domain.Sink) (*tokenState, error) {
	s := &tokenState{
		meta:        meta,
		totalSupply: supply,
		balances:    make(map[domain.Address]uint64),
		allowances:  make(map[allowanceKey]uint64),
		processed:   make(map[uuid.UUID]time.Time),
		wal:         w,
		sink:        sink,
	}
	if supply > 0 {
		s.balances[creator] = supply
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, err
	}
	return s, nil
}

// recoverFromWAL rebuilds state by re-applying every journaled command.
// Only applied commands are ever journaled, so replay cannot fail on a
// validation rule unless the journal belongs to a different deployment.
func (s *tokenState) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	history := make([]domain.Command, 0)
	err := s.wal.ReadAll(func(jsonRaw []byte) error {
		var cmd domain.Command
		if err := json.Unmarshal(jsonRaw, &cmd); err != nil {
			return err
		}
		history = append(history, cmd)
		return nil
	})
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range history {
		if err := s.applyRecovered(&history[i], now); err != nil {
			return err
		}
	}
	return nil
}

// applyRecovered replays one journaled command without journaling it again.
// Runs single-threaded inside the constructor, so no lock is taken.
func (s *tokenState) applyRecovered(cmd *domain.Command, now time.Time) error {
	if err := s.check(cmd); err != nil {
		return err
	}
	s.apply(cmd)
	s.sequence = cmd.Sequence
	if cmd.RefID != uuid.Nil {
		s.processed[cmd.RefID] = now
	}
	return nil
}

// Execute validates and atomically applies one command under the write lock.
func (s *tokenState) Execute(ctx context.Context, cmd *domain.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeLocked(cmd)
}

// executeLocked runs the full admission pipeline: dedupe, validate, journal,
// apply, emit. Every precondition failure returns before any map write.
func (s *tokenState) executeLocked(cmd *domain.Command) error {
	if cmd.RefID != uuid.Nil {
		if _, ok := s.processed[cmd.RefID]; ok {
			return nil
		}
	}

	if err := s.check(cmd); err != nil {
		return err
	}

	cmd.Sequence = s.sequence + 1
	if cmd.CreatedAt == 0 {
		cmd.CreatedAt = time.Now().UnixNano()
	}

	// Journal before mutating: a command is on disk before its effects exist.
	if s.wal != nil {
		if err := s.wal.Write(cmd); err != nil {
			return domain.ErrWALWriteFailed
		}
	}

	s.apply(cmd)
	s.sequence = cmd.Sequence
	if cmd.RefID != uuid.Nil {
		s.processed[cmd.RefID] = time.Now()
	}
	return nil
}

// check enforces every precondition without touching state. The transferFrom
// order is load-bearing: allowance sufficiency is checked before recipient
// validity and before the owner balance, matching the contract's observable
// failure precedence.
func (s *tokenState) check(cmd *domain.Command) error {
	switch cmd.Type {
	case domain.CommandTypeTransfer:
		if cmd.To.IsZero() {
			return domain.ErrInvalidRecipient
		}
		if s.balances[cmd.From] < cmd.Amount {
			return domain.ErrInsufficientBalance
		}
	case domain.CommandTypeApprove:
		if cmd.Spender.IsZero() {
			return domain.ErrInvalidSpender
		}
	case domain.CommandTypeTransferFrom:
		if s.allowances[allowanceKey{Owner: cmd.From, Spender: cmd.Spender}] < cmd.Amount {
			return domain.ErrInsufficientAllowance
		}
		if cmd.To.IsZero() {
			return domain.ErrInvalidRecipient
		}
		if s.balances[cmd.From] < cmd.Amount {
			return domain.ErrInsufficientBalance
		}
	default:
		return domain.ErrUnknownCommand
	}
	return nil
}

// apply performs the state mutation for a command that passed check, then
// hands the resulting event to the sink. Emitting inside the serialization
// point keeps the event stream in apply order.
func (s *tokenState) apply(cmd *domain.Command) {
	switch cmd.Type {
	case domain.CommandTypeTransfer:
		s.debit(cmd.From, cmd.Amount)
		s.credit(cmd.To, cmd.Amount)
		s.emit(domain.Event{
			Sequence: cmd.Sequence,
			Type:     domain.EventTransfer,
			From:     cmd.From,
			To:       cmd.To,
			Amount:   cmd.Amount,
		})
	case domain.CommandTypeApprove:
		key := allowanceKey{Owner: cmd.From, Spender: cmd.Spender}
		// Last-writer-wins assignment, not a delta.
		if cmd.Amount == 0 {
			delete(s.allowances, key)
		} else {
			s.allowances[key] = cmd.Amount
		}
		s.emit(domain.Event{
			Sequence: cmd.Sequence,
			Type:     domain.EventApproval,
			From:     cmd.From,
			To:       cmd.Spender,
			Amount:   cmd.Amount,
		})
	case domain.CommandTypeTransferFrom:
		key := allowanceKey{Owner: cmd.From, Spender: cmd.Spender}
		remaining := s.allowances[key] - cmd.Amount
		if remaining == 0 {
			delete(s.allowances, key)
		} else {
			s.allowances[key] = remaining
		}
		s.debit(cmd.From, cmd.Amount)
		s.credit(cmd.To, cmd.Amount)
		s.emit(domain.Event{
			Sequence: cmd.Sequence,
			Type:     domain.EventTransfer,
			From:     cmd.From,
			To:       cmd.To,
			Amount:   cmd.Amount,
		})
	}
}

func (s *tokenState) debit(account domain.Address, amount uint64) {
	remaining := s.balances[account] - amount
	if remaining == 0 {
		delete(s.balances, account)
	} else {
		s.balances[account] = remaining
	}
}

func (s *tokenState) credit(account domain.Address, amount uint64) {
	if amount == 0 {
		return
	}
	s.balances[account] += amount
}

func (s *tokenState) emit(ev domain.Event) {
	if s.sink != nil {
		s.sink.Emit(ev)
	}
}

// BalanceOf returns the stored balance, zero for an absent account.
func (s *tokenState) BalanceOf(ctx context.Context, account domain.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account], nil
}

// Allowance returns the stored (owner, spender) allowance, zero if absent.
func (s *tokenState) Allowance(ctx context.Context, owner, spender domain.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowances[allowanceKey{Owner: owner, Spender: spender}], nil
}

// TotalSupply returns the fixed supply set at deploy time.
func (s *tokenState) TotalSupply(ctx context.Context) (uint64, error) {
	return s.totalSupply, nil
}

// Metadata returns the immutable token description.
func (s *tokenState) Metadata(ctx context.Context) (domain.Metadata, error) {
	return s.meta, nil
}
