package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/store"
	"github.com/rumor-ml/expensetrack/internal/validate"
)

type transactionList struct {
	Transactions []domain.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

// ListTransactions serves the filtered, paged transaction log.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := validate.Pagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := store.ListOptions{
		AccountID:  q.Get("account_id"),
		CategoryID: q.Get("category_id"),
		Search:     q.Get("search"),
		Limit:      limit,
		Offset:     offset,
	}
	if dir := q.Get("direction"); dir != "" {
		opts.Direction, err = validate.Direction(dir)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if from := q.Get("from"); from != "" {
		opts.From, err = time.Parse("2006-01-02", from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if to := q.Get("to"); to != "" {
		opts.To, err = time.Parse("2006-01-02", to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}

	txns, total, err := h.store.ListTransactions(r.Context(), userID(r), opts)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionList{
		Transactions: txns,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTransaction(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTransaction inserts a manually entered transaction and runs the
// budget alert check against it.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t domain.Transaction
	if !decodeBody(w, r, &t) {
		return
	}
	t.ID = ""
	t.UserID = userID(r)
	t.Source = "manual"

	draft := domain.DraftTransaction{
		TxnDate:     t.TxnDate,
		Description: t.Description,
		Amount:      t.Amount,
		Direction:   t.Direction,
		AccountID:   t.AccountID,
		Source:      t.Source,
	}
	if err := draft.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.CreateTransaction(r.Context(), &t); err != nil {
		writeStoreError(w, err)
		return
	}
	if _, err := h.evaluator.Evaluate(r.Context(), t.UserID, t); err != nil {
		log.Printf("WARNING: alert evaluation failed for transaction %s: %v", t.ID, err)
	}
	writeJSON(w, http.StatusCreated, t)
}

// PatchTransaction applies a partial update. Only the supplied fields
// change; a present tag_ids list replaces the transaction's tag set.
// The budget check reruns afterwards since amount, date or category may
// have moved.
func (h *Handler) PatchTransaction(w http.ResponseWriter, r *http.Request) {
	var patch domain.TransactionPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := validate.Patch(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := userID(r)
	t, err := h.store.GetTransaction(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := patch.Apply(t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UpdateTransaction(r.Context(), t); err != nil {
		writeStoreError(w, err)
		return
	}
	if patch.TagIDs != nil {
		if err := h.store.SetTransactionTags(r.Context(), user, t.ID, *patch.TagIDs); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if _, err := h.evaluator.Evaluate(r.Context(), user, *t); err != nil {
		log.Printf("WARNING: alert evaluation failed for transaction %s: %v", t.ID, err)
	}

	updated, err := h.store.GetTransaction(r.Context(), user, t.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTransaction(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
