// Package server wires the HTTP API: routing, auth, CORS and the
// shared service graph over a single store.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rumor-ml/expensetrack/internal/analytics"
	"github.com/rumor-ml/expensetrack/internal/budget"
	"github.com/rumor-ml/expensetrack/internal/handlers"
	"github.com/rumor-ml/expensetrack/internal/ingest"
	"github.com/rumor-ml/expensetrack/internal/middleware"
	"github.com/rumor-ml/expensetrack/internal/registry"
	"github.com/rumor-ml/expensetrack/internal/rules"
	"github.com/rumor-ml/expensetrack/internal/store"
	"github.com/rumor-ml/expensetrack/internal/streaming"
)

// Server owns the route table and the streaming hub.
type Server struct {
	store  *store.Store
	hub    *streaming.StreamHub
	mux    *http.ServeMux
	origin string
}

// New builds the service graph and registers every route. The
// verifier is an interface so tests can run without Firebase.
func New(st *store.Store, reg *registry.Registry, eng *rules.Engine, verifier middleware.TokenVerifier, origin string) *Server {
	s := &Server{
		store:  st,
		hub:    streaming.NewStreamHub(),
		mux:    http.NewServeMux(),
		origin: origin,
	}

	coordinator := ingest.NewCoordinator(st, reg, eng, nil)
	planner := budget.NewPlanner(st)
	svc := analytics.NewService(st)
	h := handlers.New(st, coordinator, planner, svc, s.hub)
	auth := middleware.NewAuthMiddleware(verifier)

	s.mux.HandleFunc("GET /health", healthCheck)

	protect := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, auth.RequireAuth(fn))
	}

	protect("GET /api/accounts", h.ListAccounts)
	protect("POST /api/accounts", h.CreateAccount)
	protect("GET /api/accounts/{id}", h.GetAccount)
	protect("PUT /api/accounts/{id}", h.UpdateAccount)
	protect("DELETE /api/accounts/{id}", h.DeleteAccount)

	protect("GET /api/categories", h.ListCategories)
	protect("POST /api/categories", h.CreateCategory)
	protect("PUT /api/categories/{id}", h.UpdateCategory)
	protect("DELETE /api/categories/{id}", h.DeleteCategory)

	protect("GET /api/merchants", h.ListMerchants)
	protect("POST /api/merchants", h.CreateMerchant)
	protect("PUT /api/merchants/{id}", h.UpdateMerchant)
	protect("DELETE /api/merchants/{id}", h.DeleteMerchant)

	protect("GET /api/tags", h.ListTags)
	protect("POST /api/tags", h.CreateTag)
	protect("DELETE /api/tags/{id}", h.DeleteTag)

	protect("GET /api/transactions", h.ListTransactions)
	protect("POST /api/transactions", h.CreateTransaction)
	protect("GET /api/transactions/{id}", h.GetTransaction)
	protect("PATCH /api/transactions/{id}", h.PatchTransaction)
	protect("DELETE /api/transactions/{id}", h.DeleteTransaction)
	protect("POST /api/transactions/{id}/tags/{tagID}", h.TagTransaction)
	protect("DELETE /api/transactions/{id}/tags/{tagID}", h.UntagTransaction)

	protect("POST /api/upload", h.Upload)
	protect("GET /api/upload/stream/{sessionID}", h.Stream)

	protect("GET /api/budget/plan", h.GetBudgetPlan)
	protect("POST /api/budget/plan", h.SaveBudgetPlan)
	protect("DELETE /api/budget/plan", h.DeleteBudgetPlan)

	protect("GET /api/alerts", h.ListAlerts)
	protect("POST /api/alerts/{id}/acknowledge", h.AcknowledgeAlert)

	protect("GET /api/dashboard", h.GetDashboard)
	protect("GET /api/analytics", h.GetAnalytics)
	protect("GET /api/export", h.Export)

	return s
}

// Handler returns the mux wrapped in CORS.
func (s *Server) Handler() http.Handler {
	return middleware.CORS(s.origin)(s.mux)
}

// Close releases the underlying store.
func (s *Server) Close() error {
	return s.store.Close()
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{Status: "ok", Service: "expensetrack"})
}
