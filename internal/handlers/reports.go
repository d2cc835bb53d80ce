package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/rumor-ml/expensetrack/internal/export"
	"github.com/rumor-ml/expensetrack/internal/validate"
)

// GetDashboard serves the month's spending summary.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := validate.Month(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dash, err := h.analytics.Dashboard(r.Context(), userID(r), month)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// GetAnalytics serves the period report. include_capital_transfers
// defaults to false, keeping exclusion-tagged transactions out of the
// aggregates.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "3m"
	}
	include := r.URL.Query().Get("include_capital_transfers") == "true"
	report, err := h.analytics.Report(r.Context(), userID(r), period, include)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Export streams the user's full dataset as a JSON attachment.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	bundle, err := export.Build(r.Context(), h.store, userID(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	name := fmt.Sprintf("expensetrack-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.Write(w, bundle); err != nil {
		log.Printf("ERROR: writing export: %v", err)
	}
}
