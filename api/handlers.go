/*
handlers.go - HTTP API handlers for the SUSU withdrawal engine

PURPOSE:
  Exposes the withdrawal engine and aggregation views via REST. Handles
  HTTP request/response, JSON serialization, validation, and delegates to
  domain logic.

ENDPOINTS:
  Customers:
    POST   /api/customers                            Create/replace customer
    GET    /api/customers                            Searchable paginated rows
    GET    /api/customers/{id}/balance               Balance snapshot
    POST   /api/customers/{id}/contributions         Record a contribution

  Withdrawals:
    POST   /api/customers/{id}/withdrawals/preview   Advisory quote
    POST   /api/customers/{id}/withdrawals           Commit (two legs)
    GET    /api/withdrawals/history                  Newest-first feed

  Dashboard:
    GET    /api/summary                              Scope rollup

ERROR HANDLING:
  - 400: Validation errors, missing confirmation, no inferable rate
  - 404: Customer not found
  - 409: Insufficient balance (includes minimum_required)
  - 500: Store failures, partial commits

  Preview is the exception: pricing failures come back 200 with ok=false
  so operator UIs can fall back to manual entry.

SECURITY NOTE:
  No authentication. Deploy behind the gateway that already authenticates
  branch operators.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/susu-engine/susu"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      susu.Store
	Engine     *susu.Engine
	Aggregator *susu.Aggregator
	Currency   susu.Currency

	validate *validator.Validate
}

// NewHandler creates a new handler with the given store.
func NewHandler(store susu.Store, currency susu.Currency) *Handler {
	engine := susu.NewEngine(store)
	engine.Currency = currency
	agg := susu.NewAggregator(store)
	agg.Currency = currency

	return &Handler{
		Store:      store,
		Engine:     engine,
		Aggregator: agg,
		Currency:   currency,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// decodeValid decodes a JSON body into dst and runs struct validation.
func (h *Handler) decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// =============================================================================
// WITHDRAWAL HANDLERS
// =============================================================================

// PreviewWithdrawal prices a withdrawal without recording anything.
// POST /api/customers/{id}/withdrawals/preview
func (h *Handler) PreviewWithdrawal(w http.ResponseWriter, r *http.Request) {
	customerID := susu.CustomerID(chi.URLParam(r, "id"))

	var body WithdrawalRequestDTO
	if err := h.decodeValid(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := toWithdrawalRequest(customerID, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	preview, err := h.Engine.PreviewWithdrawal(r.Context(), req)
	if errors.Is(err, susu.ErrCustomerNotFound) {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}
	if err != nil && !susu.IsClientError(err) {
		writeError(w, http.StatusInternalServerError, "Preview failed", err)
		return
	}
	if err != nil {
		// Soft failure: the UI falls back to manual amounts.
		writeJSON(w, http.StatusOK, PreviewDTO{
			OK:    false,
			Error: err.Error(),
			Log:   preview.Log,
		})
		return
	}

	writeJSON(w, http.StatusOK, PreviewDTO{
		OK:             true,
		WithdrawAmount: preview.WithdrawAmount.InexactFloat64(),
		CompanyProfit:  preview.CompanyProfit.InexactFloat64(),
		ProfitBoxes:    preview.ProfitBoxes,
		BalanceAfter:   preview.BalanceAfter.InexactFloat64(),
		Rate:           preview.Rate.InexactFloat64(),
		Log:            preview.Log,
	})
}

// CommitWithdrawal records an approved withdrawal.
// POST /api/customers/{id}/withdrawals
func (h *Handler) CommitWithdrawal(w http.ResponseWriter, r *http.Request) {
	customerID := susu.CustomerID(chi.URLParam(r, "id"))

	var body WithdrawalRequestDTO
	if err := h.decodeValid(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := toWithdrawalRequest(customerID, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Engine.CommitWithdrawal(r.Context(), req)
	if err != nil {
		h.writeCommitError(w, result, err)
		return
	}

	writeJSON(w, http.StatusCreated, CommitDTO{
		CashTransactionID:   string(result.CashTransactionID),
		ProfitTransactionID: string(result.ProfitTransactionID),
		Rate:                result.Rate.InexactFloat64(),
		ProfitBoxes:         result.ProfitBoxes,
		ProfitAmount:        result.ProfitAmount.InexactFloat64(),
		TotalDeducted:       result.TotalDeducted.InexactFloat64(),
		Balance:             toBalanceDTO(result.Balance),
		Log:                 result.Log,
	})
}

// writeCommitError maps commit failures to HTTP statuses.
func (h *Handler) writeCommitError(w http.ResponseWriter, result susu.CommitResult, err error) {
	var insufficient *susu.InsufficientFundsError
	var partial *susu.PartialCommitError

	switch {
	case errors.Is(err, susu.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "Customer not found", nil)
	case errors.Is(err, susu.ErrConfirmationRequired):
		writeError(w, http.StatusBadRequest, "Confirm the customer was called before withdrawing", nil)
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":            "Insufficient available balance",
			"available":        insufficient.Available.InexactFloat64(),
			"requested":        insufficient.Requested.InexactFloat64(),
			"minimum_required": insufficient.MinimumRequired.InexactFloat64(),
			"shortfall":        insufficient.Shortfall.InexactFloat64(),
		})
	case susu.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Withdrawal rejected", err)
	case errors.As(err, &partial):
		// The cash leg is in the ledger; give the operator everything
		// needed to reconcile.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":               "Withdrawal partially recorded",
			"details":             partial.Error(),
			"cash_transaction_id": string(partial.CashTransactionID),
			"missing_profit":      partial.ProfitAmount.InexactFloat64(),
			"log":                 result.Log,
		})
	default:
		writeError(w, http.StatusInternalServerError, "Withdrawal failed", err)
	}
}

// WithdrawalHistory returns the newest-first SUSU withdrawal feed.
// GET /api/withdrawals/history?limit&customer_id
func (h *Handler) WithdrawalHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	customerID := susu.CustomerID(r.URL.Query().Get("customer_id"))

	records, err := h.Aggregator.WithdrawalHistory(r.Context(), customerID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	dtos := make([]WithdrawalRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = WithdrawalRecordDTO{
			ID:            string(rec.ID),
			CustomerID:    string(rec.CustomerID),
			CustomerName:  rec.CustomerName,
			CustomerPhone: rec.CustomerPhone,
			Method:        rec.DisplayMethod,
			Subtype:       string(rec.ResolvedSubtype),
			Note:          rec.Note,
			Amount:        rec.Amount.InexactFloat64(),
			Date:          recordDate(rec.Transaction),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// UpsertCustomer creates or replaces a customer profile.
// POST /api/customers
func (h *Handler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var body UpsertCustomerRequest
	if err := h.decodeValid(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	customer := susu.Customer{
		ID:          susu.CustomerID(body.ID),
		Name:        body.Name,
		Phone:       body.Phone,
		Location:    body.Location,
		Branch:      body.Branch,
		ManagerID:   body.ManagerID,
		AgentID:     body.AgentID,
		DefaultRate: decimal.NewFromFloat(body.DefaultRate),
	}
	if err := h.Store.PutCustomer(r.Context(), customer); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(customer))
}

// ListCustomers returns the searchable, paginated customer detail rows.
// GET /api/customers?search&page&branch&manager_id&range|start&end
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := h.Engine.Now().UTC()
	window, _ := susu.ResolveWindow(q.Get("range"), q.Get("start"), q.Get("end"), now)
	page, _ := strconv.Atoi(q.Get("page"))

	scope := susu.Scope{Branch: q.Get("branch"), ManagerID: q.Get("manager_id")}
	result, err := h.Aggregator.CustomerRows(r.Context(), scope, q.Get("search"),
		page, susu.DefaultPerPage, window, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	rows := make([]CustomerRowDTO, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = CustomerRowDTO{
			ID:             string(row.ID),
			Name:           row.Name,
			Phone:          row.Phone,
			Location:       row.Location,
			Branch:         row.Branch,
			TotalSaved:     row.Contributions.InexactFloat64(),
			TotalWithdrawn: row.CashWithdrawn.InexactFloat64(),
			Available:      row.Available.InexactFloat64(),
			RateHint:       row.RateHint.InexactFloat64(),
			Dormant:        row.Dormant,
		}
		if !row.LastContribution.IsZero() {
			rows[i].LastContribution = row.LastContribution.String()
		}
	}

	writeJSON(w, http.StatusOK, CustomerPageDTO{
		Customers:            rows,
		Page:                 result.Page,
		TotalPages:           result.TotalPages,
		TotalCount:           result.Total,
		StartIndex:           result.StartIndex,
		EndIndex:             result.EndIndex,
		OverallCashWithdrawn: result.OverallCashWithdrawn.InexactFloat64(),
		OverallAvailable:     result.OverallAvailable.InexactFloat64(),
	})
}

// GetBalance returns a balance snapshot, optionally window-filtered.
// GET /api/customers/{id}/balance?start&end
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	customerID := susu.CustomerID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	window := susu.AllTime
	if q.Get("start") != "" || q.Get("end") != "" {
		window, _ = susu.ResolveWindow("custom", q.Get("start"), q.Get("end"), h.Engine.Now().UTC())
	}

	balance, err := h.Aggregator.CustomerBalance(r.Context(), customerID, window)
	if errors.Is(err, susu.ErrCustomerNotFound) {
		writeError(w, http.StatusNotFound, "Customer not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// RecordContribution appends a contribution to the ledger.
// POST /api/customers/{id}/contributions
func (h *Handler) RecordContribution(w http.ResponseWriter, r *http.Request) {
	customerID := susu.CustomerID(chi.URLParam(r, "id"))

	var body ContributionRequest
	if err := h.decodeValid(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, err := h.Store.Customer(r.Context(), customerID); err != nil {
		if errors.Is(err, susu.ErrCustomerNotFound) {
			writeError(w, http.StatusNotFound, "Customer not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load customer", err)
		return
	}

	now := h.Engine.Now().UTC()
	occurred := susu.DateOf(now)
	timestamp := now
	if body.Date != "" {
		d, ok := susu.ParseDate(body.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", nil)
			return
		}
		occurred = d
		timestamp = d.Time
	}

	t := susu.Transaction{
		CustomerID: customerID,
		Kind:       susu.KindContribution,
		Note:       body.Note,
		Amount:     decimal.NewFromFloat(body.Amount),
		Timestamp:  timestamp,
		DateString: occurred.String(),
		CreatedAt:  now,
	}
	id, err := h.Store.AppendTransaction(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record contribution", err)
		return
	}

	writeJSON(w, http.StatusCreated, TransactionDTO{
		ID:         string(id),
		CustomerID: string(customerID),
		Kind:       string(t.Kind),
		Amount:     body.Amount,
		Date:       occurred.String(),
	})
}

// =============================================================================
// SUMMARY HANDLER
// =============================================================================

// GetSummary returns the dashboard rollup for a scope and window.
// GET /api/summary?range|start&end&branch&manager_id
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := h.Engine.Now().UTC()
	window, rangeLabel := susu.ResolveWindow(q.Get("range"), q.Get("start"), q.Get("end"), now)

	scope := susu.Scope{Branch: q.Get("branch"), ManagerID: q.Get("manager_id")}
	summary, err := h.Aggregator.Summarize(r.Context(), scope, window, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}

	branches := make([]BranchRowDTO, len(summary.Branches))
	for i, b := range summary.Branches {
		branches[i] = BranchRowDTO{
			Branch:        b.Branch,
			Contributions: b.Contributions.InexactFloat64(),
			CashWithdrawn: b.CashWithdrawn.InexactFloat64(),
			ProfitTaken:   b.ProfitTaken.InexactFloat64(),
			Available:     b.Available.InexactFloat64(),
		}
	}

	writeJSON(w, http.StatusOK, SummaryDTO{
		FilterLabel:            filterLabel(scope),
		RangeLabel:             rangeLabel,
		Contributions:          summary.Contributions.InexactFloat64(),
		CashWithdrawn:          summary.CashWithdrawn.InexactFloat64(),
		ProfitTaken:            summary.ProfitTaken.InexactFloat64(),
		Available:              summary.Available.InexactFloat64(),
		Today:                  toPeriodTotalsDTO(summary.Today),
		Week:                   toPeriodTotalsDTO(summary.Week),
		Month:                  toPeriodTotalsDTO(summary.Month),
		Branches:               branches,
		TotalCustomers:         summary.TotalCustomers,
		ActiveCustomers:        summary.ActiveCustomers,
		DormantCustomers:       summary.DormantCustomers,
		ExpectedDaily:          summary.ExpectedDaily.InexactFloat64(),
		TodayCollectionPercent: summary.TodayCollectionPercent.InexactFloat64(),
	})
}

// filterLabel renders the human-readable scope description shown on the
// dashboard header.
func filterLabel(scope susu.Scope) string {
	switch {
	case scope.Branch != "" && scope.Branch != "all":
		return "Branch: " + scope.Branch
	case scope.ManagerID != "" && scope.ManagerID != "all":
		return "Manager: " + scope.ManagerID
	default:
		return "All Branches"
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func toWithdrawalRequest(customerID susu.CustomerID, body WithdrawalRequestDTO) (susu.WithdrawalRequest, error) {
	req := susu.WithdrawalRequest{
		CustomerID:       customerID,
		Amount:           decimal.NewFromFloat(body.Amount),
		Note:             body.Note,
		ConfirmedContact: body.ConfirmedContact,
	}
	if body.ManualRate > 0 {
		req.ManualRate = decimal.NewFromFloat(body.ManualRate)
	}
	if body.Date != "" {
		d, ok := susu.ParseDate(body.Date)
		if !ok {
			return susu.WithdrawalRequest{}, errors.New("unparseable date: " + body.Date)
		}
		req.OccurredOn = d
	}
	return req, nil
}

// recordDate renders the best-known date of a ledger row.
func recordDate(t susu.Transaction) string {
	if d, ok := t.OccurredOn(); ok {
		return d.String()
	}
	if !t.CreatedAt.IsZero() {
		return t.CreatedAt.Format("2006-01-02")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
