package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/svdberg/tapwacht/internal/ical"
	"github.com/svdberg/tapwacht/internal/store"
)

// feedHorizon bounds the calendar feed: a month back, a year ahead.
const (
	feedLookback  = 31 * 24 * time.Hour
	feedLookahead = 365 * 24 * time.Hour
)

type ICalHandler struct {
	events        *store.EventStore
	locations     *store.LocationStore
	organizations *store.OrganizationStore
	feed          *ical.Feed
	logger        *slog.Logger
}

func NewICalHandler(events *store.EventStore, locations *store.LocationStore, organizations *store.OrganizationStore, feed *ical.Feed, logger *slog.Logger) *ICalHandler {
	return &ICalHandler{
		events:        events,
		locations:     locations,
		organizations: organizations,
		feed:          feed,
		logger:        logger,
	}
}

// Feed serves the full calendar.
func (h *ICalHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, 0)
}

// OrganizationFeed serves only one organization's events, looked up by
// its slug so the URL is shareable.
func (h *ICalHandler) OrganizationFeed(w http.ResponseWriter, r *http.Request) {
	org, err := h.organizations.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.logger.Error("ical feed: lookup organization", "error", err)
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		return
	}
	if org == nil {
		http.Error(w, "unknown organization", http.StatusNotFound)
		return
	}
	h.serveFeed(w, r, org.ID)
}

func (h *ICalHandler) serveFeed(w http.ResponseWriter, r *http.Request, organizationID int64) {
	now := time.Now().UTC()
	events, err := h.events.ListBetween(r.Context(), now.Add(-feedLookback), now.Add(feedLookahead))
	if err != nil {
		h.logger.Error("ical feed: list events", "error", err)
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		return
	}
	if organizationID != 0 {
		filtered := events[:0]
		for _, e := range events {
			if e.OrganizerID == organizationID {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	locations, err := h.locations.List(r.Context())
	if err != nil {
		h.logger.Error("ical feed: list locations", "error", err)
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		return
	}
	names := make(map[int64]string, len(locations))
	for _, loc := range locations {
		names[loc.ID] = loc.Name
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tapwacht.ics"`)
	w.Write([]byte(h.feed.Render(events, names)))
}
