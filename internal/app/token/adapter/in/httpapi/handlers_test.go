package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-token-ledger/internal/app/token/adapter/out/memory"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/domain"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/eventlog"
	"github.com/JoeShih716/go-token-ledger/internal/app/token/usecase"
)

const (
	creatorHex   = "0x0000000000000000000000000000000000000001"
	spenderHex   = "0x0000000000000000000000000000000000000002"
	recipientHex = "0x0000000000000000000000000000000000000003"
	zeroHex      = "0x0000000000000000000000000000000000000000"
)

// setupTest deploys a fresh in-memory ledger with 5000 units credited to the
// creator and wires the API over it.
func setupTest(t *testing.T) (*Service, *eventlog.Log) {
	t.Helper()

	creator, err := domain.ParseAddress(creatorHex)
	require.NoError(t, err)

	events := eventlog.New(0)
	ledger, err := memory.NewMutexLedger(domain.Metadata{
		Name:     "erc20TokenName",
		Symbol:   "erc20TokenSymbol",
		Decimals: 18,
	}, 5000, creator, nil, events)
	require.NoError(t, err)

	svc := NewService(usecase.NewTokenUseCase(ledger), events, nil)
	return svc, events
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func getJSON(t *testing.T, handler http.HandlerFunc, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if out != nil {
		require.NoError(t, json.NewDecoder(w.Result().Body).Decode(out))
	}
	return w
}

func TestHandleToken(t *testing.T) {
	svc, _ := setupTest(t)

	var resp struct {
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Decimals    uint8  `json:"decimals"`
		TotalSupply uint64 `json:"total_supply"`
	}
	w := getJSON(t, svc.HandleToken, "/api/token", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "erc20TokenName", resp.Name)
	require.Equal(t, "erc20TokenSymbol", resp.Symbol)
	require.Equal(t, uint8(18), resp.Decimals)
	require.Equal(t, uint64(5000), resp.TotalSupply)
}

func TestHandleTransfer(t *testing.T) {
	svc, _ := setupTest(t)

	w := postJSON(t, svc.HandleTransfer, "/api/transfer", map[string]any{
		"from":   creatorHex,
		"to":     recipientHex,
		"amount": 100,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success        bool   `json:"success"`
		CurrentBalance uint64 `json:"current_balance"`
	}
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	require.True(t, resp.Success)
	require.Equal(t, uint64(4900), resp.CurrentBalance)

	var bal struct {
		Balance uint64 `json:"balance"`
	}
	getJSON(t, svc.HandleBalance, "/api/balance?address="+recipientHex, &bal)
	require.Equal(t, uint64(100), bal.Balance)
}

func TestHandleTransfer_InsufficientBalance(t *testing.T) {
	svc, _ := setupTest(t)

	w := postJSON(t, svc.HandleTransfer, "/api/transfer", map[string]any{
		"from":   creatorHex,
		"to":     recipientHex,
		"amount": 5100,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	require.Equal(t, "transfer amount exceeds balance", resp["error"])
}

func TestHandleTransfer_ZeroRecipient(t *testing.T) {
	svc, _ := setupTest(t)

	w := postJSON(t, svc.HandleTransfer, "/api/transfer", map[string]any{
		"from":   creatorHex,
		"to":     zeroHex,
		"amount": 1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	require.Equal(t, "transfer to the zero address", resp["error"])
}

func TestHandleTransfer_MalformedBody(t *testing.T) {
	svc, _ := setupTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/transfer", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	svc.HandleTransfer(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleApproveAndAllowance(t *testing.T) {
	svc, events := setupTest(t)

	w := postJSON(t, svc.HandleApprove, "/api/approve", map[string]any{
		"owner":   creatorHex,
		"spender": spenderHex,
		"amount":  100,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Allowance uint64 `json:"allowance"`
	}
	getJSON(t, svc.HandleAllowance, "/api/allowance?owner="+creatorHex+"&spender="+spenderHex, &resp)
	require.Equal(t, uint64(100), resp.Allowance)

	all := events.All()
	require.Len(t, all, 1)
	require.Equal(t, domain.EventApproval, all[0].Type)
	require.Equal(t, uint64(100), all[0].Amount)
}

func TestHandleApprove_ZeroSpender(t *testing.T) {
	svc, _ := setupTest(t)

	w := postJSON(t, svc.HandleApprove, "/api/approve", map[string]any{
		"owner":   creatorHex,
		"spender": zeroHex,
		"amount":  10,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	require.Equal(t, "approve to the zero address", resp["error"])
}

func TestHandleTransferFrom(t *testing.T) {
	svc, _ := setupTest(t)

	postJSON(t, svc.HandleApprove, "/api/approve", map[string]any{
		"owner":   creatorHex,
		"spender": spenderHex,
		"amount":  100,
	})

	w := postJSON(t, svc.HandleTransferFrom, "/api/transferfrom", map[string]any{
		"spender":   spenderHex,
		"owner":     creatorHex,
		"recipient": recipientHex,
		"amount":    100,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success            bool   `json:"success"`
		RemainingAllowance uint64 `json:"remaining_allowance"`
	}
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	require.True(t, resp.Success)
	require.Equal(t, uint64(0), resp.RemainingAllowance)

	var bal struct {
		Balance uint64 `json:"balance"`
	}
	getJSON(t, svc.HandleBalance, "/api/balance?address="+recipientHex, &bal)
	require.Equal(t, uint64(100), bal.Balance)
}

func TestHandleTransferFrom_InsufficientAllowance(t *testing.T) {
	svc, _ := setupTest(t)

	w := postJSON(t, svc.HandleTransferFrom, "/api/transferfrom", map[string]any{
		"spender":   spenderHex,
		"owner":     creatorHex,
		"recipient": recipientHex,
		"amount":    1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	require.Equal(t, "insufficient allowance", resp["error"])
}

func TestHandleBalance_BadAddress(t *testing.T) {
	svc, _ := setupTest(t)
	w := getJSON(t, svc.HandleBalance, "/api/balance?address=bogus", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRecentEvents(t *testing.T) {
	svc, _ := setupTest(t)

	for i := 0; i < 3; i++ {
		postJSON(t, svc.HandleTransfer, "/api/transfer", map[string]any{
			"from":   creatorHex,
			"to":     recipientHex,
			"amount": 1,
		})
	}

	var got []domain.Event
	w := getJSON(t, svc.HandleRecentEvents, "/api/events/recent?n=2", &got)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, got, 2)
	// Newest first.
	require.Greater(t, got[0].Sequence, got[1].Sequence)
}

func TestHandleTransfer_IdempotentRefID(t *testing.T) {
	svc, _ := setupTest(t)

	payload := map[string]any{
		"ref_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"from":   creatorHex,
		"to":     recipientHex,
		"amount": 100,
	}
	require.Equal(t, http.StatusOK, postJSON(t, svc.HandleTransfer, "/api/transfer", payload).Code)
	require.Equal(t, http.StatusOK, postJSON(t, svc.HandleTransfer, "/api/transfer", payload).Code)

	var bal struct {
		Balance uint64 `json:"balance"`
	}
	getJSON(t, svc.HandleBalance, "/api/balance?address="+recipientHex, &bal)
	require.Equal(t, uint64(100), bal.Balance)
}
