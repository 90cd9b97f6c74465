package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/svdberg/tapwacht/internal/auth"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/store"
)

// AuthorizationHandler manages the standing authorizations between
// tenders and organizing associations that POS admission checks
// against.
type AuthorizationHandler struct {
	authorizations *store.AuthorizationStore
	users          *store.UserStore
	logger         *slog.Logger
}

func NewAuthorizationHandler(authorizations *store.AuthorizationStore, users *store.UserStore, logger *slog.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{
		authorizations: authorizations,
		users:          users,
		logger:         logger,
	}
}

// List returns the organization's authorizations, past and present.
func (h *AuthorizationHandler) List(w http.ResponseWriter, r *http.Request) {
	auths, err := h.authorizations.ListByOrganization(r.Context(), auth.OrganizationID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list authorizations")
		return
	}
	if auths == nil {
		auths = []model.Authorization{}
	}
	writeJSON(w, http.StatusOK, auths)
}

type createAuthorizationRequest struct {
	UserID    int64      `json:"user_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Create grants a user an authorization with the caller's organization.
// A nil end date leaves the authorization open-ended.
func (h *AuthorizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAuthorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.StartDate.IsZero() {
		writeError(w, http.StatusBadRequest, "start_date is required")
		return
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		writeError(w, http.StatusBadRequest, "end_date must not precede start_date")
		return
	}

	user, err := h.users.GetByID(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	created, err := h.authorizations.Create(r.Context(), model.Authorization{
		UserID:         req.UserID,
		OrganizationID: auth.OrganizationID(r.Context()),
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	})
	if err != nil {
		h.logger.Error("create authorization", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create authorization")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// End closes an open authorization as of now.
func (h *AuthorizationHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	a, err := h.authorizations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load authorization")
		return
	}
	if a == nil || a.OrganizationID != auth.OrganizationID(r.Context()) {
		writeError(w, http.StatusNotFound, "authorization not found")
		return
	}
	if err := h.authorizations.End(r.Context(), id, time.Now().UTC()); err != nil {
		h.logger.Error("end authorization", "authorization_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to end authorization")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
