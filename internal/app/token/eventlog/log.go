// Package eventlog keeps an ordered, append-only in-memory record of ledger
// events for indexers, UIs and tests. It is a sink: the ledger writes to it
// after committing state, and nothing here can roll a mutation back.
package eventlog

import (
	"sync"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
)

// Log stores up to maxSize most recent events.
type Log struct {
	mu      sync.RWMutex
	events  []domain.Event
	maxSize int
}

// New creates a log capped at maxSize events; zero or negative means
// unbounded.
func New(maxSize int) *Log {
	return &Log{
		events:  make([]domain.Event, 0, max(maxSize, 0)),
		maxSize: maxSize,
	}
}

// Emit appends one event, evicting the oldest when over capacity.
func (l *Log) Emit(ev domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)
	if l.maxSize > 0 && len(l.events) > l.maxSize {
		l.events = l.events[len(l.events)-l.maxSize:]
	}
}

// Recent returns the most recent n events, newest first.
func (l *Log) Recent(n int) []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.events) {
		n = len(l.events)
	}
	result := make([]domain.Event, n)
	for i := 0; i < n; i++ {
		result[i] = l.events[len(l.events)-1-i]
	}
	return result
}

// All returns every retained event in emission order.
func (l *Log) All() []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.Event, len(l.events))
	copy(result, l.events)
	return result
}

// Len reports how many events are currently retained.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

var _ domain.Sink = (*Log)(nil)
