package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/usecase"
	"github.com/JoeShih716/go-token-ledger/pkg/wal"
)

// commandRequest wraps a command with a result channel so Execute can wait
// for the processing loop to answer.
type commandRequest struct {
	Cmd    *domain.Command
	Result chan error
}

// SerialLedger serializes mutating commands through a single processing
// goroutine fed by a channel, instead of contending on a lock. Queries read
// a consistent snapshot concurrently.
//
// Execute(wait) -> channel -> run loop -> WAL -> map update -> result channel
type SerialLedger struct {
	*tokenState
	requests chan *commandRequest
	// requestPool recycles envelopes to keep allocation off the hot path.
	requestPool sync.Pool
}

// NewSerialLedger deploys a ledger with supply credited to creator, restoring
// prior state from the WAL. Call Start before submitting commands.
func NewSerialLedger(meta domain.Metadata, supply uint64, creator domain.Address, w *wal.WAL, sink domain.Sink) (*SerialLedger, error) {
	state, err := newTokenState(meta, supply, creator, w, sink)
	if err != nil {
		return nil, err
	}
	return &SerialLedger{
		tokenState: state,
		requests:   make(chan *commandRequest, 1024),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &commandRequest{
					Result: make(chan error, 1),
				}
			},
		},
	}, nil
}

// Start launches the processing loop. It runs until ctx is canceled, then
// drains whatever is already queued so no admitted command is lost.
func (l *SerialLedger) Start(ctx context.Context) {
	go l.run(ctx)
}

func (l *SerialLedger) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.drain()
			return
		case req := <-l.requests:
			req.Result <- l.tokenState.Execute(ctx, req.Cmd)
		}
	}
}

func (l *SerialLedger) drain() {
	for {
		select {
		case req := <-l.requests:
			req.Result <- l.tokenState.Execute(context.Background(), req.Cmd)
		default:
			return
		}
	}
}

// Execute queues the command and blocks until the loop has applied or
// rejected it.
func (l *SerialLedger) Execute(ctx context.Context, cmd *domain.Command) error {
	req := l.requestPool.Get().(*commandRequest)
	req.Cmd = cmd
	// The result channel should be empty, but make sure.
	select {
	case <-req.Result:
	default:
	}

	select {
	case l.requests <- req:
	case <-ctx.Done():
		l.requestPool.Put(req)
		return ctx.Err()
	}

	err := <-req.Result
	l.requestPool.Put(req)
	return err
}

var _ usecase.Ledger = (*SerialLedger)(nil)
