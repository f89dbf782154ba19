package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/eventlog"
)

func newSerialLedger(t *testing.T, supply uint64, creator domain.Address, sink domain.Sink) (*SerialLedger, context.CancelFunc) {
	t.Helper()
	l, err := NewSerialLedger(testMeta, supply, creator, nil, sink)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	return l, cancel
}

func TestSerialLedger_CoreOperations(t *testing.T) {
	creator, x, y := addr(1), addr(2), addr(3)
	l, stop := newSerialLedger(t, 5000, creator, nil)
	defer stop()

	require.NoError(t, transfer(t, l, creator, x, 100))
	require.Equal(t, uint64(100), balance(t, l, x))
	require.Equal(t, uint64(4900), balance(t, l, creator))

	require.NoError(t, approve(t, l, creator, y, 50))
	require.Equal(t, uint64(50), allowance(t, l, creator, y))

	require.NoError(t, transferFrom(t, l, y, creator, x, 50))
	require.Equal(t, uint64(150), balance(t, l, x))
	require.Equal(t, uint64(0), allowance(t, l, creator, y))
}

func TestSerialLedger_ValidationFailures(t *testing.T) {
	creator, x := addr(1), addr(2)
	l, stop := newSerialLedger(t, 100, creator, nil)
	defer stop()

	require.ErrorIs(t, transfer(t, l, creator, domain.ZeroAddress, 1), domain.ErrInvalidRecipient)
	require.ErrorIs(t, transfer(t, l, creator, x, 101), domain.ErrInsufficientBalance)
	require.ErrorIs(t, approve(t, l, creator, domain.ZeroAddress, 1), domain.ErrInvalidSpender)
	require.ErrorIs(t, transferFrom(t, l, x, creator, domain.ZeroAddress, 1), domain.ErrInsufficientAllowance)

	require.Equal(t, uint64(100), balance(t, l, creator))
}

func TestSerialLedger_EventsFollowApplyOrder(t *testing.T) {
	creator, x := addr(1), addr(2)
	events := eventlog.New(0)
	l, stop := newSerialLedger(t, 5000, creator, events)
	defer stop()

	for i := 0; i < 10; i++ {
		require.NoError(t, transfer(t, l, creator, x, 1))
	}

	got := events.All()
	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1].Sequence+1, got[i].Sequence)
	}
}

func TestSerialLedger_ConcurrentSubmitters(t *testing.T) {
	creator, x := addr(1), addr(2)
	const supply = 100000
	const workers = 50
	const perWorker = 20

	l, stop := newSerialLedger(t, supply, creator, nil)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = transfer(t, l, creator, x, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(workers*perWorker), balance(t, l, x))
	require.Equal(t, uint64(supply), balance(t, l, creator)+balance(t, l, x))
}
