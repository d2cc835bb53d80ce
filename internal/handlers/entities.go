package handlers

import (
	"net/http"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/validate"
)

// --- accounts ---

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if !decodeBody(w, r, &a) {
		return
	}
	if err := validate.Name("account name", a.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.ID = ""
	a.UserID = userID(r)
	if err := h.store.CreateAccount(r.Context(), &a); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAccount(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var a domain.Account
	if !decodeBody(w, r, &a) {
		return
	}
	if err := validate.Name("account name", a.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.ID = r.PathValue("id")
	a.UserID = userID(r)
	if err := h.store.UpdateAccount(r.Context(), &a); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAccount(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- categories ---

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if !decodeBody(w, r, &c) {
		return
	}
	if err := validate.Name("category name", c.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.ID = ""
	c.UserID = userID(r)
	if err := h.store.CreateCategory(r.Context(), &c); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var c domain.Category
	if !decodeBody(w, r, &c) {
		return
	}
	if err := validate.Name("category name", c.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.ID = r.PathValue("id")
	c.UserID = userID(r)
	if err := h.store.UpdateCategory(r.Context(), &c); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCategory(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- merchants ---

func (h *Handler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	merchants, err := h.store.ListMerchants(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merchants)
}

func (h *Handler) CreateMerchant(w http.ResponseWriter, r *http.Request) {
	var m domain.Merchant
	if !decodeBody(w, r, &m) {
		return
	}
	if err := validate.Name("merchant name", m.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.ID = ""
	m.UserID = userID(r)
	if err := h.store.CreateMerchant(r.Context(), &m); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) UpdateMerchant(w http.ResponseWriter, r *http.Request) {
	var m domain.Merchant
	if !decodeBody(w, r, &m) {
		return
	}
	if err := validate.Name("merchant name", m.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.ID = r.PathValue("id")
	m.UserID = userID(r)
	if err := h.store.UpdateMerchant(r.Context(), &m); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMerchant(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMerchant(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- tags ---

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.ListTags(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var t domain.Tag
	if !decodeBody(w, r, &t) {
		return
	}
	if err := validate.Name("tag name", t.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = ""
	t.UserID = userID(r)
	if err := h.store.CreateTag(r.Context(), &t); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTag(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// --- transaction/tag associations ---

func (h *Handler) TagTransaction(w http.ResponseWriter, r *http.Request) {
	err := h.store.TagTransaction(r.Context(), userID(r), r.PathValue("id"), r.PathValue("tagID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) UntagTransaction(w http.ResponseWriter, r *http.Request) {
	err := h.store.UntagTransaction(r.Context(), userID(r), r.PathValue("id"), r.PathValue("tagID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
