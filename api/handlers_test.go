package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/susu-engine/api"
	"github.com/warp/susu-engine/susu"
	"github.com/warp/susu-engine/susu/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	handler := api.NewHandler(mem, susu.DefaultCurrency)
	handler.Engine.Now = func() time.Time {
		return time.Date(2025, time.June, 18, 12, 0, 0, 0, time.UTC)
	}

	server := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(server.Close)
	return server, mem
}

func seedLedger(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()

	err := mem.PutCustomer(ctx, susu.Customer{
		ID: "cust-1", Name: "Ama Mensah", Phone: "0244000001", Branch: "Accra",
	})
	require.NoError(t, err)

	for i, amount := range []float64{5, 145, 150} {
		_, err := mem.AppendTransaction(ctx, susu.Transaction{
			CustomerID: "cust-1",
			Kind:       susu.KindContribution,
			Amount:     decimal.NewFromFloat(amount),
			DateString: fmt.Sprintf("2025-06-%02d", 10+i),
		})
		require.NoError(t, err)
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestPreviewWithdrawal_HappyPath(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp := postJSON(t, server.URL+"/api/customers/cust-1/withdrawals/preview",
		map[string]any{"amount": 140})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var preview struct {
		OK             bool     `json:"ok"`
		WithdrawAmount float64  `json:"withdraw_amount"`
		CompanyProfit  float64  `json:"company_profit"`
		BalanceAfter   float64  `json:"balance_after"`
		Rate           float64  `json:"rate"`
		Log            []string `json:"log"`
	}
	decodeBody(t, resp, &preview)

	assert.True(t, preview.OK)
	assert.Equal(t, 140.0, preview.WithdrawAmount)
	assert.Equal(t, 5.0, preview.CompanyProfit)
	assert.Equal(t, 155.0, preview.BalanceAfter)
	assert.Equal(t, 5.0, preview.Rate)
	assert.NotEmpty(t, preview.Log)
}

func TestPreviewWithdrawal_SoftFailure(t *testing.T) {
	// A customer without any rate signal gets ok=false with 200, not 4xx,
	// so the UI can fall back to manual entry.
	server, mem := newTestServer(t)
	require.NoError(t, mem.PutCustomer(context.Background(),
		susu.Customer{ID: "fresh", Name: "Kofi"}))

	resp := postJSON(t, server.URL+"/api/customers/fresh/withdrawals/preview",
		map[string]any{"amount": 50})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var preview struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	decodeBody(t, resp, &preview)
	assert.False(t, preview.OK)
	assert.NotEmpty(t, preview.Error)
}

func TestPreviewWithdrawal_UnknownCustomer(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/customers/ghost/withdrawals/preview",
		map[string]any{"amount": 50})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreviewWithdrawal_ValidationRejectsZeroAmount(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp := postJSON(t, server.URL+"/api/customers/cust-1/withdrawals/preview",
		map[string]any{"amount": 0})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// COMMIT
// =============================================================================

func TestCommitWithdrawal_RecordsBothLegs(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp := postJSON(t, server.URL+"/api/customers/cust-1/withdrawals",
		map[string]any{"amount": 140, "confirmed_contact": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var commit struct {
		CashTransactionID   string  `json:"cash_transaction_id"`
		ProfitTransactionID string  `json:"profit_transaction_id"`
		ProfitAmount        float64 `json:"profit_amount"`
		Balance             struct {
			Available float64 `json:"available"`
		} `json:"balance"`
	}
	decodeBody(t, resp, &commit)

	assert.NotEmpty(t, commit.CashTransactionID)
	assert.NotEmpty(t, commit.ProfitTransactionID)
	assert.Equal(t, 5.0, commit.ProfitAmount)
	assert.Equal(t, 155.0, commit.Balance.Available)

	withdrawals, err := mem.Transactions(context.Background(), susu.TransactionFilter{
		CustomerID: "cust-1", Kind: susu.KindWithdrawal,
	})
	require.NoError(t, err)
	assert.Len(t, withdrawals, 2)
}

func TestCommitWithdrawal_MissingConfirmationIs400(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp := postJSON(t, server.URL+"/api/customers/cust-1/withdrawals",
		map[string]any{"amount": 140})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCommitWithdrawal_InsufficientIs409WithMinimum(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp := postJSON(t, server.URL+"/api/customers/cust-1/withdrawals",
		map[string]any{"amount": 300, "confirmed_contact": true})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		MinimumRequired float64 `json:"minimum_required"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 305.0, body.MinimumRequired)
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

func TestGetBalance(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp, err := http.Get(server.URL + "/api/customers/cust-1/balance")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance struct {
		TotalContributions float64 `json:"total_contributions"`
		Available          float64 `json:"available"`
	}
	decodeBody(t, resp, &balance)
	assert.Equal(t, 300.0, balance.TotalContributions)
	assert.Equal(t, 300.0, balance.Available)
}

func TestListCustomers(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp, err := http.Get(server.URL + "/api/customers?search=ama")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Customers []struct {
			Name      string  `json:"name"`
			Available float64 `json:"available"`
		} `json:"customers"`
		TotalCount int `json:"total_count"`
	}
	decodeBody(t, resp, &page)
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "Ama Mensah", page.Customers[0].Name)
	assert.Equal(t, 300.0, page.Customers[0].Available)
}

func TestGetSummary(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	resp, err := http.Get(server.URL + "/api/summary?range=all")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary struct {
		FilterLabel    string  `json:"filter_label"`
		RangeLabel     string  `json:"range_label"`
		Contributions  float64 `json:"contributions"`
		TotalCustomers int     `json:"total_customers"`
	}
	decodeBody(t, resp, &summary)
	assert.Equal(t, "All Branches", summary.FilterLabel)
	assert.Equal(t, "All Time", summary.RangeLabel)
	assert.Equal(t, 300.0, summary.Contributions)
	assert.Equal(t, 1, summary.TotalCustomers)
}

func TestWithdrawalHistoryFeed(t *testing.T) {
	server, mem := newTestServer(t)
	seedLedger(t, mem)

	// Legacy-labelled rows still surface, normalized.
	_, err := mem.AppendTransaction(context.Background(), susu.Transaction{
		CustomerID: "cust-1", Kind: susu.KindWithdrawal,
		Method: "Manual", Amount: decimal.NewFromInt(20), DateString: "2025-06-14",
	})
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/api/withdrawals/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []struct {
		Method       string  `json:"method"`
		Subtype      string  `json:"subtype"`
		Amount       float64 `json:"amount"`
		CustomerName string  `json:"customer_name"`
	}
	decodeBody(t, resp, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "SUSU Withdrawal", records[0].Method)
	assert.Equal(t, "CASH", records[0].Subtype)
	assert.Equal(t, "Ama Mensah", records[0].CustomerName)
}

// =============================================================================
// WRITE ENDPOINTS
// =============================================================================

func TestUpsertCustomerAndRecordContribution(t *testing.T) {
	server, mem := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/customers", map[string]any{
		"id": "new-1", "name": "Yaw Owusu", "branch": "Tema",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/customers/new-1/contributions",
		map[string]any{"amount": 12.5, "date": "2025-06-18"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var tx struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
		Date string `json:"date"`
	}
	decodeBody(t, resp, &tx)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "CONTRIBUTION", tx.Kind)
	assert.Equal(t, "2025-06-18", tx.Date)

	balance := susu.ComputeBalance("new-1", mustTransactions(t, mem, "new-1"), susu.AllTime)
	assert.Equal(t, "12.5", balance.TotalContributions.String())
}

func TestRecordContribution_UnknownCustomer(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/customers/ghost/contributions",
		map[string]any{"amount": 5})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func mustTransactions(t *testing.T, mem *store.Memory, id susu.CustomerID) []susu.Transaction {
	t.Helper()
	txs, err := mem.Transactions(context.Background(), susu.TransactionFilter{CustomerID: id})
	require.NoError(t, err)
	return txs
}
