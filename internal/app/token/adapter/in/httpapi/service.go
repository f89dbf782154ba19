// Package httpapi is the driving adapter: a JSON HTTP surface over the token
// use case plus a websocket feed of ledger events.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/eventlog"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/usecase"
)

type Service struct {
	core   *usecase.TokenUseCase
	events *eventlog.Log
	hub    *Hub
}

// NewService builds the API over core. events and hub may be nil when the
// event endpoints are not exposed.
func NewService(core *usecase.TokenUseCase, events *eventlog.Log, hub *Hub) *Service {
	return &Service{
		core:   core,
		events: events,
		hub:    hub,
	}
}

// Register wires every route onto mux.
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/token", s.HandleToken)
	mux.HandleFunc("/api/balance", s.HandleBalance)
	mux.HandleFunc("/api/allowance", s.HandleAllowance)
	mux.HandleFunc("/api/transfer", s.HandleTransfer)
	mux.HandleFunc("/api/approve", s.HandleApprove)
	mux.HandleFunc("/api/transferfrom", s.HandleTransferFrom)
	mux.HandleFunc("/api/events/recent", s.HandleRecentEvents)
	if s.hub != nil {
		mux.HandleFunc("/api/events", s.hub.HandleWebsocket)
	}
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a rejected command to a status code: deterministic
// validation failures are the caller's to fix (422), everything else is an
// infrastructure fault (500).
func (s *Service) writeDomainError(w http.ResponseWriter, err error) {
	if domain.IsValidationError(err) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}
