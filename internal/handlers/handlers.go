// Package handlers implements the HTTP surface over the store, the
// ingestion coordinator, and the reporting services. Every handler is
// scoped to the authenticated user injected by the auth middleware.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/rumor-ml/expensetrack/internal/analytics"
	"github.com/rumor-ml/expensetrack/internal/budget"
	"github.com/rumor-ml/expensetrack/internal/ingest"
	"github.com/rumor-ml/expensetrack/internal/middleware"
	"github.com/rumor-ml/expensetrack/internal/store"
	"github.com/rumor-ml/expensetrack/internal/streaming"
)

// Handler carries the service dependencies shared by all endpoints.
type Handler struct {
	store       *store.Store
	coordinator *ingest.Coordinator
	planner     *budget.Planner
	evaluator   *budget.Evaluator
	analytics   *analytics.Service
	hub         *streaming.StreamHub
}

// New wires a Handler over its dependencies.
func New(st *store.Store, coordinator *ingest.Coordinator, planner *budget.Planner, svc *analytics.Service, hub *streaming.StreamHub) *Handler {
	return &Handler{
		store:       st,
		coordinator: coordinator,
		planner:     planner,
		evaluator:   budget.NewEvaluator(st),
		analytics:   svc,
		hub:         hub,
	}
}

// userID returns the authenticated user. The auth middleware guarantees
// presence on every wired route; the empty-string guard covers direct
// handler tests only.
func userID(r *http.Request) string {
	id, _ := middleware.GetUserID(r.Context())
	return id
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeStoreError maps the error taxonomy onto HTTP statuses: missing
// rows and foreign ownership violations are 404, per-user name
// collisions are 409, preconditions are 400, everything else is a 500
// with the detail kept server-side.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateName):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ingest.ErrNoAccounts), errors.Is(err, ingest.ErrNoValidTransactions), errors.Is(err, analytics.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("ERROR: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
