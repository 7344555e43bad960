/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the operator dashboard

ROUTE GROUPS:
  /api/customers/*     Customer profiles, balances, contributions, withdrawals
  /api/withdrawals/*   Withdrawal history feed
  /api/summary         Scope dashboard rollup
  /healthz             Liveness probe

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.UpsertCustomer)
			r.Get("/{id}/balance", h.GetBalance)
			r.Post("/{id}/contributions", h.RecordContribution)
			r.Post("/{id}/withdrawals/preview", h.PreviewWithdrawal)
			r.Post("/{id}/withdrawals", h.CommitWithdrawal)
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/history", h.WithdrawalHistory)
		})

		r.Get("/summary", h.GetSummary)
	})

	return r
}
