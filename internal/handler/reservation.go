package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/svdberg/tapwacht/internal/auth"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/store"
)

type ReservationHandler struct {
	reservations *store.ReservationStore
	logger       *slog.Logger
}

func NewReservationHandler(reservations *store.ReservationStore, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, logger: logger}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.reservations.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}
	if reservations == nil {
		reservations = []model.StandardReservation{}
	}
	writeJSON(w, http.StatusOK, reservations)
}

type reservationRequest struct {
	LocationID int64 `json:"location_id"`
	StartDay   int   `json:"start_day"`
	StartTime  int   `json:"start_time"`
	EndDay     int   `json:"end_day"`
	EndTime    int   `json:"end_time"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	created, err := h.reservations.Create(r.Context(), model.StandardReservation{
		OrganizationID: auth.OrganizationID(r.Context()),
		LocationID:     req.LocationID,
		StartDay:       req.StartDay,
		StartTime:      req.StartTime,
		EndDay:         req.EndDay,
		EndTime:        req.EndTime,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidReservation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create reservation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reservation")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	reservation, err := h.reservations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load reservation")
		return
	}
	if reservation == nil {
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	if err := h.reservations.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete reservation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reservation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
