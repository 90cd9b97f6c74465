package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/svdberg/tapwacht/internal/availability"
	"github.com/svdberg/tapwacht/internal/store"
)

const (
	tickInterval = 60 * time.Second
	// reminderLead is how long before the shift starts the reminder goes out.
	reminderLead = time.Hour
)

// Scheduler sends shift reminders to assigned bartenders shortly before
// their event starts.
type Scheduler struct {
	mu             sync.RWMutex
	service        *Service
	push           *store.PushStore
	events         *store.EventStore
	availabilities *store.AvailabilityStore
	cancel         context.CancelFunc
	done           chan struct{}

	// sent holds event IDs already reminded, pruned each tick.
	sent map[int64]time.Time
}

func NewScheduler(svc *Service, pushStore *store.PushStore, eventStore *store.EventStore, availabilityStore *store.AvailabilityStore) *Scheduler {
	return &Scheduler{
		service:        svc,
		push:           pushStore,
		events:         eventStore,
		availabilities: availabilityStore,
		sent:           make(map[int64]time.Time),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()
	s.prune(now)

	events, err := s.events.ListBetween(ctx, now, now.Add(reminderLead))
	if err != nil {
		slog.Error("shift reminders: list events", "error", err)
		return
	}

	for _, event := range events {
		if s.alreadySent(event.ID) {
			continue
		}

		records, err := s.availabilities.RecordsForEvent(ctx, event.ID)
		if err != nil {
			slog.Error("shift reminders: records", "event_id", event.ID, "error", err)
			continue
		}
		userIDs := availability.AssignedUsers(records)
		if len(userIDs) == 0 {
			s.markSent(event.ID, event.StartsAt)
			continue
		}

		subs, err := s.push.ListByUsers(ctx, userIDs)
		if err != nil {
			slog.Error("shift reminders: list subscriptions", "event_id", event.ID, "error", err)
			continue
		}

		minutes := int(time.Until(event.StartsAt).Round(time.Minute).Minutes())
		payload := Payload{
			Title: "Bardienst",
			Body:  fmt.Sprintf("%s begint over %d minuten", event.Name, minutes),
			URL:   fmt.Sprintf("/events/%d", event.ID),
			Tag:   fmt.Sprintf("shift-%d", event.ID),
		}

		for _, sub := range subs {
			if err := s.service.Send(ctx, &sub, payload); err != nil {
				if errors.Is(err, ErrExpired) {
					if err := s.push.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
						slog.Error("shift reminders: drop expired subscription", "error", err)
					}
				} else {
					slog.Error("shift reminders: send", "event_id", event.ID, "error", err)
				}
			}
		}

		s.markSent(event.ID, event.StartsAt)
	}
}

func (s *Scheduler) alreadySent(eventID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sent[eventID]
	return ok
}

func (s *Scheduler) markSent(eventID int64, startsAt time.Time) {
	s.mu.Lock()
	s.sent[eventID] = startsAt
	s.mu.Unlock()
}

// prune clears entries for events that started more than a day ago, so
// the map does not grow without bound.
func (s *Scheduler) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, startsAt := range s.sent {
		if now.Sub(startsAt) > 24*time.Hour {
			delete(s.sent, id)
		}
	}
}
