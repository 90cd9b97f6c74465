package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/svdberg/tapwacht/internal/auth"
	"github.com/svdberg/tapwacht/internal/conflict"
	"github.com/svdberg/tapwacht/internal/gate"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/notify"
	"github.com/svdberg/tapwacht/internal/store"
	"github.com/svdberg/tapwacht/internal/websocket"
)

type EventHandler struct {
	events     *store.EventStore
	locations  *store.LocationStore
	resolver   *conflict.Resolver
	dispatcher *notify.Dispatcher
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewEventHandler(
	events *store.EventStore,
	locations *store.LocationStore,
	resolver *conflict.Resolver,
	dispatcher *notify.Dispatcher,
	hub *websocket.Hub,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		events:     events,
		locations:  locations,
		resolver:   resolver,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
	}
}

type eventRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	StartsAt       string  `json:"starts_at"`
	EndsAt         string  `json:"ends_at"`
	LocationIDs    []int64 `json:"location_ids"`
	ParticipantIDs []int64 `json:"participant_ids"`
	IsClosed       bool    `json:"is_closed"`
	Option         bool    `json:"option"`
	Kegs           int     `json:"kegs"`
	IsRisky        bool    `json:"is_risky"`
	TenderComments string  `json:"tender_comments"`
}

func (h *EventHandler) parseAndValidate(r *http.Request, w http.ResponseWriter) (*eventRequest, time.Time, time.Time, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, time.Time{}, time.Time{}, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return nil, time.Time{}, time.Time{}, false
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "starts_at must be RFC3339 format")
		return nil, time.Time{}, time.Time{}, false
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ends_at must be RFC3339 format")
		return nil, time.Time{}, time.Time{}, false
	}
	if !startsAt.Before(endsAt) {
		writeError(w, http.StatusBadRequest, "starts_at must be before ends_at")
		return nil, time.Time{}, time.Time{}, false
	}

	return &req, startsAt, endsAt, true
}

// checkConflicts runs the conflict check and, when bookings collide,
// writes a 422 naming each location already taken. Returns true when the
// booking may proceed. Must run inside the location lock.
func (h *EventHandler) checkConflicts(ctx context.Context, w http.ResponseWriter, start, end time.Time, locationIDs []int64, excludeEventID int64) bool {
	// An event without locations holds no resource. The resolver's
	// empty-set default (all public locations) is for ad-hoc queries,
	// not for validating a booking.
	if len(locationIDs) == 0 {
		return true
	}

	conflicts, err := h.resolver.Conflicts(ctx, start, end, locationIDs, excludeEventID)
	if err != nil {
		switch {
		case errors.Is(err, conflict.ErrInvalidInterval):
			writeError(w, http.StatusBadRequest, "starts_at must be before ends_at")
		case errors.Is(err, conflict.ErrLocationNotFound):
			writeError(w, http.StatusBadRequest, "unknown location")
		default:
			h.logger.Error("conflict check", "error", err)
			writeError(w, http.StatusInternalServerError, "conflict check failed")
		}
		return false
	}
	if len(conflicts) == 0 {
		return true
	}

	names := h.conflictingLocationNames(ctx, conflicts, locationIDs)
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":     "location already booked: " + strings.Join(names, ", "),
		"locations": names,
	})
	return false
}

// conflictingLocationNames resolves the names of the requested locations
// that collide with existing bookings.
func (h *EventHandler) conflictingLocationNames(ctx context.Context, conflicts []model.Event, requested []int64) []string {
	taken := make(map[int64]bool)
	for _, e := range conflicts {
		for _, id := range e.LocationIDs {
			taken[id] = true
		}
	}

	var names []string
	seen := make(map[int64]bool)
	for _, id := range requested {
		if !taken[id] || seen[id] {
			continue
		}
		seen[id] = true
		loc, err := h.locations.GetByID(ctx, id)
		if err != nil || loc == nil {
			names = append(names, strconv.FormatInt(id, 10))
			continue
		}
		names = append(names, loc.Name)
	}
	if len(names) == 0 {
		// Conflicts found through the public-location scope
		for id := range taken {
			if loc, err := h.locations.GetByID(ctx, id); err == nil && loc != nil {
				names = append(names, loc.Name)
			}
		}
	}
	return names
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, startsAt, endsAt, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	event := model.Event{
		OrganizerID:    auth.OrganizationID(r.Context()),
		ParticipantIDs: req.ParticipantIDs,
		Name:           req.Name,
		Description:    req.Description,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		LocationIDs:    req.LocationIDs,
		IsClosed:       req.IsClosed,
		Option:         req.Option,
		Kegs:           req.Kegs,
		IsRisky:        req.IsRisky,
		TenderComments: req.TenderComments,
	}

	var created *model.Event
	err := h.events.WithLocationLock(req.LocationIDs, func() error {
		if !h.checkConflicts(r.Context(), w, startsAt, endsAt, req.LocationIDs, 0) {
			return errHandled
		}
		var err error
		created, err = h.events.Create(r.Context(), event)
		return err
	})
	if errors.Is(err, errHandled) {
		return
	}
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	h.afterWrite(nil, *created, "created")
	writeJSON(w, http.StatusCreated, created)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	old, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	if old == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	req, startsAt, endsAt, ok := h.parseAndValidate(r, w)
	if !ok {
		return
	}

	event := *old
	event.ParticipantIDs = req.ParticipantIDs
	event.Name = req.Name
	event.Description = req.Description
	event.StartsAt = startsAt
	event.EndsAt = endsAt
	event.LocationIDs = req.LocationIDs
	event.IsClosed = req.IsClosed
	event.Option = req.Option
	event.Kegs = req.Kegs
	event.IsRisky = req.IsRisky
	event.TenderComments = req.TenderComments

	var updated *model.Event
	err = h.events.WithLocationLock(req.LocationIDs, func() error {
		if !h.checkConflicts(r.Context(), w, startsAt, endsAt, req.LocationIDs, id) {
			return errHandled
		}
		var err error
		updated, err = h.events.Update(r.Context(), event)
		return err
	})
	if errors.Is(err, errHandled) {
		return
	}
	if err != nil {
		h.logger.Error("update event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	h.afterWrite(old, *updated, "updated")
	writeJSON(w, http.StatusOK, updated)
}

// afterWrite broadcasts the change and dispatches any enrollment
// transition, both off the request path.
func (h *EventHandler) afterWrite(old *model.Event, updated model.Event, action string) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.EventMessage(action, updated.ID))
	}
	if h.dispatcher == nil {
		return
	}
	for _, intent := range gate.DetectTransition(old, updated) {
		go h.dispatcher.Dispatch(context.Background(), intent, updated)
	}
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "start and end query parameters are required")
		return
	}
	start, err := parseFlexibleTime(startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD format")
		return
	}
	end, err := parseFlexibleTime(endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD format")
		return
	}

	events, err := h.events.ListBetween(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err := h.events.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.EventMessage("deleted", id))
	}
	w.WriteHeader(http.StatusNoContent)
}

// FreeQuarters returns the free 15-minute slots of the event's rounded
// span, checked against the event's own locations.
func (h *EventHandler) FreeQuarters(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	quarters, err := h.resolver.FreeQuarters(r.Context(), *event, event.LocationIDs)
	if err != nil {
		if errors.Is(err, conflict.ErrIntervalTooLong) {
			writeError(w, http.StatusBadRequest, "event span exceeds one week")
			return
		}
		h.logger.Error("free quarters", "event_id", event.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute free quarters")
		return
	}
	if quarters == nil {
		quarters = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": event.ID,
		"quarters": quarters,
	})
}

// FreeQuartersAfter returns how many free quarters follow the event
// before the next booking starts.
func (h *EventHandler) FreeQuartersAfter(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	count, err := h.resolver.FreeQuartersAfter(r.Context(), *event, event.LocationIDs)
	if err != nil {
		h.logger.Error("free quarters after", "event_id", event.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute free quarters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": event.ID,
		"quarters": count,
	})
}

func (h *EventHandler) loadEvent(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
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

// errHandled signals that the locked section already wrote a response.
var errHandled = errors.New("response already written")
