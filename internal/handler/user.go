package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/svdberg/tapwacht/internal/auth"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/store"
)

type UserHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewUserHandler(users *store.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Tenders lists the organization's tender pool.
func (h *UserHandler) Tenders(w http.ResponseWriter, r *http.Request) {
	tenders, err := h.users.ListTenders(r.Context(), auth.OrganizationID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tenders")
		return
	}
	if tenders == nil {
		tenders = []model.User{}
	}
	writeJSON(w, http.StatusOK, tenders)
}

type setTenderRequest struct {
	IsTender bool `json:"is_tender"`
}

// SetTender adds a member to or removes them from the tender pool.
func (h *UserHandler) SetTender(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req setTenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.users.SetTender(r.Context(), id, req.IsTender); err != nil {
		h.logger.Error("set tender", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
