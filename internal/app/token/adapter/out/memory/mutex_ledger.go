package memory

import (
	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/usecase"
	"github.com/JoeShih716/go-token-ledger/pkg/wal"
)

// MutexLedger serializes mutating commands with a single RWMutex per ledger
// instance. Queries share the read side and may run concurrently; no caller
// ever observes a half-applied command.
type MutexLedger struct {
	*tokenState
}

// NewMutexLedger deploys a ledger with supply credited to creator, restoring
// any prior state from the WAL. Both wal and sink may be nil.
func NewMutexLedger(meta domain.Metadata, supply uint64, creator domain.Address, w *wal.WAL, sink domain.Sink) (*MutexLedger, error) {
	state, err := newTokenState(meta, supply, creator, w, sink)
	if err != nil {
		return nil, err
	}
	return &MutexLedger{tokenState: state}, nil
}

var _ usecase.Ledger = (*MutexLedger)(nil)
