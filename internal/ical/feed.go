package ical

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/svdberg/tapwacht/internal/model"
)

// Feed renders events as an iCalendar document for external calendar
// subscriptions.
type Feed struct {
	prodID string
	domain string
}

func NewFeed(domain string) *Feed {
	return &Feed{
		prodID: "-//tapwacht//planner//NL",
		domain: domain,
	}
}

// Render serializes the events. Location names are resolved by the
// caller so the feed stays a pure transformation.
func (f *Feed) Render(events []model.Event, locationNames map[int64]string) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(f.prodID)

	for _, event := range events {
		uid := fmt.Sprintf("event-%d@%s", event.ID, f.domain)
		e := cal.AddEvent(uid)
		e.SetDtStampTime(time.Now().UTC())
		e.SetStartAt(event.StartsAt)
		e.SetEndAt(event.EndsAt)
		e.SetSummary(event.Name)
		if event.Description != "" {
			e.SetDescription(event.Description)
		}
		if names := resolveNames(event.LocationIDs, locationNames); names != "" {
			e.SetLocation(names)
		}
	}

	return cal.Serialize()
}

func resolveNames(ids []int64, names map[int64]string) string {
	var parts []string
	for _, id := range ids {
		if name, ok := names[id]; ok {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}
