package domain

// EventType discriminates the two observable ledger events.
type EventType string

const (
	// EventTransfer is emitted on every successful transfer or transferFrom.
	EventTransfer EventType = "transfer"
	// EventApproval is emitted on every successful approve.
	EventApproval EventType = "approval"
)

// Event is one entry of the ledger's ordered, append-only event stream.
// For a transfer event From/To are the moved-from and moved-to accounts;
// for an approval event they are the owner and the spender.
type Event struct {
	Sequence uint64    `json:"sequence"`
	Type     EventType `json:"type"`
	From     Address   `json:"from"`
	To       Address   `json:"to"`
	Amount   uint64    `json:"amount"`
}

// Sink receives events after the corresponding state change has been
// committed. Emit must not block for long and has no way to fail: event
// delivery problems can never roll back ledger state.
type Sink interface {
	Emit(Event)
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}
