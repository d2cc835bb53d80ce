package handlers

import (
	"net/http"

	"github.com/rumor-ml/expensetrack/internal/budget"
	"github.com/rumor-ml/expensetrack/internal/validate"
)

// GetBudgetPlan serves the month's plan view, or the historical
// suggestion view when no goals exist for the month.
func (h *Handler) GetBudgetPlan(w http.ResponseWriter, r *http.Request) {
	month, err := validate.Month(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := h.planner.GetPlan(r.Context(), userID(r), month)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type savePlanRequest struct {
	Month   string              `json:"month"`
	Budgets []budget.BudgetItem `json:"budgets"`
}

// SaveBudgetPlan bulk-upserts the month's goals. Zero limits delete.
func (h *Handler) SaveBudgetPlan(w http.ResponseWriter, r *http.Request) {
	var req savePlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	month, err := validate.Month(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, item := range req.Budgets {
		if item.CategoryID == "" {
			writeError(w, http.StatusBadRequest, "budget item missing category_id")
			return
		}
		if item.LimitAmount.IsNegative() {
			writeError(w, http.StatusBadRequest, "limit_amount cannot be negative")
			return
		}
	}
	if err := h.planner.SavePlan(r.Context(), userID(r), month, req.Budgets); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "budgets saved"})
}

// DeleteBudgetPlan removes every goal for the month.
func (h *Handler) DeleteBudgetPlan(w http.ResponseWriter, r *http.Request) {
	month, err := validate.Month(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deleted, err := h.planner.DeletePlan(r.Context(), userID(r), month)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no budget plan for " + string(month)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted budget plan for " + string(month)})
}

// ListAlerts serves unread alerts, newest first.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.ListUnreadAlerts(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// AcknowledgeAlert marks one alert read. Safe to repeat.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.store.AcknowledgeAlert(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
