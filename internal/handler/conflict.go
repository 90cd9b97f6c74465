package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/svdberg/tapwacht/internal/conflict"
	"github.com/svdberg/tapwacht/internal/model"
)

// ConflictHandler exposes the conflict engine as read-only planning
// queries.
type ConflictHandler struct {
	resolver *conflict.Resolver
	logger   *slog.Logger
}

func NewConflictHandler(resolver *conflict.Resolver, logger *slog.Logger) *ConflictHandler {
	return &ConflictHandler{resolver: resolver, logger: logger}
}

// parseWindow reads the start/end/locations query parameters shared by
// all conflict queries. Absent locations means the public scope.
func (h *ConflictHandler) parseWindow(w http.ResponseWriter, r *http.Request) (start, end time.Time, locationIDs []int64, ok bool) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required")
		return
	}

	var err error
	start, err = parseFlexibleTime(startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD format")
		return
	}
	end, err = parseFlexibleTime(endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD format")
		return
	}

	if raw := r.URL.Query().Get("locations"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "locations must be a comma-separated list of ids")
				return
			}
			locationIDs = append(locationIDs, id)
		}
	}
	return start, end, locationIDs, true
}

func (h *ConflictHandler) writeResolverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conflict.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "start must be before end")
	case errors.Is(err, conflict.ErrLocationNotFound):
		writeError(w, http.StatusNotFound, "unknown location")
	default:
		h.logger.Error("conflict query", "error", err)
		writeError(w, http.StatusInternalServerError, "conflict query failed")
	}
}

// Conflicts lists the events colliding with the window.
func (h *ConflictHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	start, end, locationIDs, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	var excludeID int64
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "exclude must be an event id")
			return
		}
		excludeID = id
	}

	events, err := h.resolver.Conflicts(r.Context(), start, end, locationIDs, excludeID)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Adjacent lists events that touch or nearly touch the window without
// colliding with it.
func (h *ConflictHandler) Adjacent(w http.ResponseWriter, r *http.Request) {
	start, end, locationIDs, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	events, err := h.resolver.Adjacent(r.Context(), start, end, locationIDs, 0)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Standard lists the weekly reservations the window would collide with.
func (h *ConflictHandler) Standard(w http.ResponseWriter, r *http.Request) {
	start, end, locationIDs, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	reservations, err := h.resolver.StandardConflicts(r.Context(), start, end, locationIDs)
	if err != nil {
		h.writeResolverError(w, err)
		return
	}
	if reservations == nil {
		reservations = []model.StandardReservation{}
	}
	writeJSON(w, http.StatusOK, reservations)
}
