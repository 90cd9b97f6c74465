package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/svdberg/tapwacht/internal/auth"
	"github.com/svdberg/tapwacht/internal/availability"
	"github.com/svdberg/tapwacht/internal/gate"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/store"
)

type AvailabilityHandler struct {
	availabilities *store.AvailabilityStore
	events         *store.EventStore
	logger         *slog.Logger
}

func NewAvailabilityHandler(availabilities *store.AvailabilityStore, events *store.EventStore, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilities: availabilities,
		events:         events,
		logger:         logger,
	}
}

// ListTypes returns the caller's organization's availability types.
func (h *AvailabilityHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.availabilities.ListTypes(r.Context(), auth.OrganizationID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list availability types")
		return
	}
	writeJSON(w, http.StatusOK, types)
}

type createTypeRequest struct {
	Name   string `json:"name"`
	Nature string `json:"nature"`
}

func (h *AvailabilityHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req createTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	nature, err := availability.ParseNature(req.Nature)
	if err != nil {
		writeError(w, http.StatusBadRequest, "nature must be one of A, Y, M, N")
		return
	}

	created, err := h.availabilities.CreateType(r.Context(), auth.OrganizationID(r.Context()), req.Name, nature)
	if err != nil {
		h.logger.Error("create availability type", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create availability type")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type setAvailabilityRequest struct {
	AvailabilityID int64 `json:"availability_id"`
}

// Set declares or re-declares the caller's availability for an event.
func (h *AvailabilityHandler) Set(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	typ, err := h.availabilities.GetType(r.Context(), req.AvailabilityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load availability type")
		return
	}
	if typ == nil {
		writeError(w, http.StatusBadRequest, "availability type not found")
		return
	}
	if err := availability.ValidateOwnership(typ.OrganizationID, event.OrganizerID); err != nil {
		if errors.Is(err, availability.ErrForeignAvailability) {
			writeError(w, http.StatusForbidden, "availability type belongs to another organization")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to validate availability type")
		return
	}
	if event.IsClosed && !auth.IsSuperuser(r.Context()) {
		writeError(w, http.StatusForbidden, "enrollment is closed")
		return
	}

	if err := h.availabilities.Set(r.Context(), auth.UserID(r.Context()), event.ID, typ.ID); err != nil {
		h.logger.Error("set availability", "event_id", event.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set availability")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bartenders returns the event's availability records plus whether the
// assigned crew satisfies the certification requirement.
func (h *AvailabilityHandler) Bartenders(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	records, err := h.availabilities.RecordsForEvent(r.Context(), event.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list availability")
		return
	}
	eligibility, err := h.availabilities.EligibilityForEvent(r.Context(), event.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check certification")
		return
	}

	type recordResponse struct {
		UserID int64  `json:"user_id"`
		TypeID int64  `json:"availability_id"`
		Nature string `json:"nature"`
	}
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			UserID: rec.UserID,
			TypeID: rec.TypeID,
			Nature: rec.Nature.Code(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":              event.ID,
		"records":               out,
		"needs_iva":             gate.NeedsIva(*event),
		"meets_iva_requirement": !gate.NeedsIva(*event) || gate.MeetsIvaRequirement(records, eligibility),
	})
}

func (h *AvailabilityHandler) loadEvent(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return nil, false
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return nil, false
	}
	return event, true
}
