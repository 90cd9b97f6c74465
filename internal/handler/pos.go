package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/svdberg/tapwacht/internal/gate"
	"github.com/svdberg/tapwacht/internal/middleware"
	"github.com/svdberg/tapwacht/internal/store"
)

// POSHandler answers admission checks from bar terminals: may this user
// open the register for this event right now.
type POSHandler struct {
	events         *store.EventStore
	users          *store.UserStore
	availabilities *store.AvailabilityStore
	authorizations *store.AuthorizationStore
	logger         *slog.Logger
}

func NewPOSHandler(events *store.EventStore, users *store.UserStore, availabilities *store.AvailabilityStore, authorizations *store.AuthorizationStore, logger *slog.Logger) *POSHandler {
	return &POSHandler{
		events:         events,
		users:          users,
		availabilities: availabilities,
		authorizations: authorizations,
		logger:         logger,
	}
}

type admissionRequest struct {
	UserID  int64 `json:"user_id"`
	EventID int64 `json:"event_id"`
}

type admissionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func (h *POSHandler) Admission(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	event, err := h.events.GetByID(r.Context(), req.EventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
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

	records, err := h.availabilities.RecordsForEvent(r.Context(), event.ID)
	if err != nil {
		h.logger.Error("admission records", "event_id", event.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check admission")
		return
	}

	now := time.Now().UTC()
	allowed, reason := gate.Admission(*event, records, user.ID, now, user.IsSuperuser)
	if allowed && !user.IsSuperuser {
		// Opening a register bills the organizing association, so the
		// tender needs a standing authorization with it.
		active, err := h.authorizations.ActiveFor(r.Context(), user.ID, event.OrganizerID, now)
		if err != nil {
			h.logger.Error("admission authorization", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check admission")
			return
		}
		if !active {
			allowed, reason = false, "no active authorization"
		}
	}
	if claims, ok := middleware.TerminalFromContext(r.Context()); ok {
		h.logger.Info("admission check",
			"terminal", claims.Terminal,
			"event_id", event.ID,
			"user_id", user.ID,
			"allowed", allowed)
	}
	writeJSON(w, http.StatusOK, admissionResponse{Allowed: allowed, Reason: reason})
}
