package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/susu-network/susu/internal/app/engine"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

// ─── Server Test Harness ────────────────────────────────────────────────────

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "susu.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewServer(engine.New(db, engine.DefaultConfig())).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

func createAccount(t *testing.T, h http.Handler, id, rate, balance string) {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/accounts", map[string]string{
		"id": id, "rate": rate, "opening_balance": balance,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create account: status %d, body %s", w.Code, w.Body.String())
	}
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestWithdrawalFlow(t *testing.T) {
	h := setupServer(t)
	createAccount(t, h, "acc-1", "5", "200")

	w := doJSON(t, h, http.MethodPost, "/api/accounts/acc-1/withdrawals", map[string]string{
		"amount": "155", "date": "2026-08-01",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("withdraw: status %d, body %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["client_gets"] != "150" {
		t.Errorf("client_gets = %v, want 150", resp["client_gets"])
	}
	if resp["commission_paid"] != "5" {
		t.Errorf("commission_paid = %v, want 5", resp["commission_paid"])
	}
	if resp["new_balance"] != "45" {
		t.Errorf("new_balance = %v, want 45", resp["new_balance"])
	}

	// Cycle view reflects the completed page.
	w = doJSON(t, h, http.MethodGet, "/api/accounts/acc-1/cycle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cycle: status %d", w.Code)
	}
	cycle := decode(t, w)
	if cycle["cumulative"] != "0" {
		t.Errorf("cumulative = %v, want 0", cycle["cumulative"])
	}
	if cycle["threshold"] != "155" {
		t.Errorf("threshold = %v, want 155", cycle["threshold"])
	}
}

func TestWithdrawal_InsufficientBalance(t *testing.T) {
	h := setupServer(t)
	createAccount(t, h, "acc-1", "5", "50")

	w := doJSON(t, h, http.MethodPost, "/api/accounts/acc-1/withdrawals", map[string]string{
		"amount": "100",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	errObj, ok := resp["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing error object in %v", resp)
	}
	if errObj["type"] != "insufficient_balance" {
		t.Errorf("error type = %v, want insufficient_balance", errObj["type"])
	}
	if errObj["shortfall"] != "55" {
		t.Errorf("shortfall = %v, want 55", errObj["shortfall"])
	}
}

func TestReverseFlow(t *testing.T) {
	h := setupServer(t)
	createAccount(t, h, "acc-1", "5", "200")

	w := doJSON(t, h, http.MethodPost, "/api/accounts/acc-1/withdrawals", map[string]string{
		"amount": "155", "date": "2026-08-01",
	})
	resp := decode(t, w)
	withdrawal, ok := resp["withdrawal"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing withdrawal in %v", resp)
	}
	id, _ := withdrawal["id"].(string)

	w = doJSON(t, h, http.MethodPost, "/api/withdrawals/"+id+"/reverse", map[string]string{
		"reason": "wrong client",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("reverse: status %d, body %s", w.Code, w.Body.String())
	}
	rev := decode(t, w)
	if rev["restored_balance"] != "200" {
		t.Errorf("restored_balance = %v, want 200", rev["restored_balance"])
	}

	// Second reversal conflicts.
	w = doJSON(t, h, http.MethodPost, "/api/withdrawals/"+id+"/reverse", map[string]string{
		"reason": "again",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("double reverse: status %d, want 409", w.Code)
	}
}

func TestReverse_UnknownWithdrawal(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/withdrawals/nope/reverse", map[string]string{"reason": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRateUpdate(t *testing.T) {
	h := setupServer(t)
	createAccount(t, h, "acc-1", "10", "1000")

	// Put some progress in the accumulator, then lower the rate.
	doJSON(t, h, http.MethodPost, "/api/accounts/acc-1/cycle/adjust", map[string]string{"value": "7"})
	w := doJSON(t, h, http.MethodPut, "/api/accounts/acc-1/rate", map[string]string{"rate": "5"})
	if w.Code != http.StatusOK {
		t.Fatalf("rate update: status %d, body %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["cumulative_adjusted"] != true {
		t.Errorf("cumulative_adjusted = %v, want true", resp["cumulative_adjusted"])
	}
	if resp["new_cumulative"] != "2" {
		t.Errorf("new_cumulative = %v, want 2", resp["new_cumulative"])
	}
}

func TestLedgerProjection(t *testing.T) {
	h := setupServer(t)
	createAccount(t, h, "acc-1", "5", "400")

	doJSON(t, h, http.MethodPost, "/api/accounts/acc-1/deposits", map[string]string{
		"amount": "100", "date": "2026-08-01",
	})
	doJSON(t, h, http.MethodPost, "/api/accounts/acc-1/withdrawals", map[string]string{
		"amount": "155", "date": "2026-08-02",
	})

	w := doJSON(t, h, http.MethodGet, "/api/accounts/acc-1/ledger?kind=commission", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ledger: status %d", w.Code)
	}
	resp := decode(t, w)
	entries, ok := resp["entries"].([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("commission entries = %v, want exactly 1", resp["entries"])
	}

	w = doJSON(t, h, http.MethodGet, "/api/accounts/acc-1/totals?from=2026-08-01&to=2026-08-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("totals: status %d", w.Code)
	}
	totals := decode(t, w)
	if totals["deposits"] != "100" {
		t.Errorf("deposits = %v, want 100", totals["deposits"])
	}
	if totals["commissions"] != "5" {
		t.Errorf("commissions = %v, want 5", totals["commissions"])
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/accounts/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
