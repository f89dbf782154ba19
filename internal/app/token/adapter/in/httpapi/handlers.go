package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
)

// parseRefID accepts an empty ref_id (dedupe disabled) or a uuid string.
func parseRefID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

// HandleToken answers GET /api/token with the immutable metadata and the
// fixed supply.
func (s *Service) HandleToken(w http.ResponseWriter, r *http.Request) {
	meta, err := s.core.Metadata(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	supply, err := s.core.TotalSupply(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		domain.Metadata
		TotalSupply uint64 `json:"total_supply"`
	}{Metadata: meta, TotalSupply: supply})
}

// HandleBalance answers GET /api/balance?address=0x...
func (s *Service) HandleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(r.URL.Query().Get("address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	balance, err := s.core.BalanceOf(r.Context(), account)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"address": account,
		"balance": balance,
	})
}

// HandleAllowance answers GET /api/allowance?owner=0x...&spender=0x...
func (s *Service) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParseAddress(r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spender, err := domain.ParseAddress(r.URL.Query().Get("spender"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := s.core.Allowance(r.Context(), owner, spender)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"owner":     owner,
		"spender":   spender,
		"allowance": amount,
	})
}

// HandleTransfer answers POST /api/transfer.
func (s *Service) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		RefID  string         `json:"ref_id"`
		From   domain.Address `json:"from"`
		To     domain.Address `json:"to"`
		Amount uint64         `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	refID, err := parseRefID(req.RefID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ref_id: "+err.Error())
		return
	}

	if err := s.core.Transfer(r.Context(), refID, req.From, req.To, req.Amount); err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Best effort: report the sender's post-transfer balance.
	balance, _ := s.core.BalanceOf(r.Context(), req.From)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"current_balance": balance,
	})
}

// HandleApprove answers POST /api/approve.
func (s *Service) HandleApprove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		RefID   string         `json:"ref_id"`
		Owner   domain.Address `json:"owner"`
		Spender domain.Address `json:"spender"`
		Amount  uint64         `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	refID, err := parseRefID(req.RefID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ref_id: "+err.Error())
		return
	}

	if err := s.core.Approve(r.Context(), refID, req.Owner, req.Spender, req.Amount); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleTransferFrom answers POST /api/transferfrom.
func (s *Service) HandleTransferFrom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		RefID     string         `json:"ref_id"`
		Spender   domain.Address `json:"spender"`
		Owner     domain.Address `json:"owner"`
		Recipient domain.Address `json:"recipient"`
		Amount    uint64         `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	refID, err := parseRefID(req.RefID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ref_id: "+err.Error())
		return
	}

	if err := s.core.TransferFrom(r.Context(), refID, req.Spender, req.Owner, req.Recipient, req.Amount); err != nil {
		s.writeDomainError(w, err)
		return
	}

	remaining, _ := s.core.Allowance(r.Context(), req.Owner, req.Spender)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":             true,
		"remaining_allowance": remaining,
	})
}

// HandleRecentEvents answers GET /api/events/recent?n=50, newest first.
func (s *Service) HandleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.writeError(w, http.StatusNotFound, "event log not enabled")
		return
	}
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid n")
			return
		}
		n = parsed
	}
	s.writeJSON(w, http.StatusOK, s.events.Recent(n))
}
