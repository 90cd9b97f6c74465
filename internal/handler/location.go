package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/svdberg/tapwacht/internal/store"
)

type LocationHandler struct {
	locations *store.LocationStore
	logger    *slog.Logger
}

func NewLocationHandler(locations *store.LocationStore, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

type locationRequest struct {
	Name             string `json:"name"`
	Capacity         int    `json:"capacity"`
	IsPublic         bool   `json:"is_public"`
	PreventConflicts bool   `json:"prevent_conflicts"`
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	loc, err := h.locations.Create(r.Context(), req.Name, req.Capacity, req.IsPublic, req.PreventConflicts)
	if err != nil {
		h.logger.Error("create location", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create location")
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}
