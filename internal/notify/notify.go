package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/svdberg/tapwacht/internal/email"
	"github.com/svdberg/tapwacht/internal/gate"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/push"
	"github.com/svdberg/tapwacht/internal/store"
	"github.com/svdberg/tapwacht/internal/websocket"
)

// Dispatcher fans an enrollment transition out to email, web push and
// the planner board. Every channel is best-effort: a failure is logged
// and never surfaces to the write that produced the intent.
type Dispatcher struct {
	templates *store.MailTemplateStore
	users     *store.UserStore
	pushStore *store.PushStore
	pushSvc   *push.Service
	email     *email.Client
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewDispatcher(
	templates *store.MailTemplateStore,
	users *store.UserStore,
	pushStore *store.PushStore,
	pushSvc *push.Service,
	emailClient *email.Client,
	hub *websocket.Hub,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		templates: templates,
		users:     users,
		pushStore: pushStore,
		pushSvc:   pushSvc,
		email:     emailClient,
		hub:       hub,
		logger:    logger,
	}
}

// templateData is the context a mail template renders against.
type templateData struct {
	Event model.Event
	User  model.User
}

func templateName(kind gate.TransitionKind) string {
	if kind == gate.EnrollmentOpened {
		return model.TemplateEnrollOpen
	}
	return model.TemplateEnrollClosed
}

func boardAction(kind gate.TransitionKind) string {
	if kind == gate.EnrollmentOpened {
		return "opened"
	}
	return "closed"
}

// Dispatch delivers one intent across all channels. It is meant to run
// in its own goroutine after the event write has committed.
func (d *Dispatcher) Dispatch(ctx context.Context, intent gate.Intent, event model.Event) {
	tenders, err := d.users.ListTenders(ctx, event.OrganizerID)
	if err != nil {
		d.logger.Error("notify: list tenders", "event_id", event.ID, "error", err)
		tenders = nil
	}

	d.sendMail(ctx, intent, event, tenders)
	d.sendPush(ctx, intent, event, tenders)

	if d.hub != nil {
		d.hub.Broadcast(websocket.EnrollmentMessage(boardAction(intent.Kind), event.ID))
	}
}

func (d *Dispatcher) sendMail(ctx context.Context, intent gate.Intent, event model.Event, tenders []model.User) {
	if d.email == nil || !d.email.Configured() || len(tenders) == 0 {
		return
	}

	tpl, err := d.templates.Get(ctx, event.OrganizerID, templateName(intent.Kind))
	if err != nil {
		d.logger.Error("notify: load template", "event_id", event.ID, "error", err)
		return
	}
	if tpl == nil || !tpl.IsActive {
		return
	}

	for _, tender := range tenders {
		subject, body, err := render(tpl, templateData{Event: event, User: tender})
		if err != nil {
			d.logger.Error("notify: render template", "template", tpl.Name, "error", err)
			return
		}
		if err := d.email.Send(ctx, tender.Email, subject, body, ""); err != nil {
			d.logger.Error("notify: send mail", "event_id", event.ID, "to", tender.Email, "error", err)
		}
	}
}

func (d *Dispatcher) sendPush(ctx context.Context, intent gate.Intent, event model.Event, tenders []model.User) {
	if d.pushSvc == nil || !d.pushSvc.Configured() || len(tenders) == 0 {
		return
	}

	userIDs := make([]int64, len(tenders))
	for i, tender := range tenders {
		userIDs[i] = tender.ID
	}
	subs, err := d.pushStore.ListByUsers(ctx, userIDs)
	if err != nil {
		d.logger.Error("notify: list push subscriptions", "event_id", event.ID, "error", err)
		return
	}

	title := "Inschrijving geopend"
	if intent.Kind == gate.EnrollmentClosed {
		title = "Inschrijving gesloten"
	}
	payload := push.Payload{
		Title: title,
		Body:  event.Name,
		URL:   fmt.Sprintf("/events/%d", event.ID),
		Tag:   fmt.Sprintf("enrollment-%d", event.ID),
	}

	for _, sub := range subs {
		if err := d.pushSvc.Send(ctx, &sub, payload); err != nil {
			if errors.Is(err, push.ErrExpired) {
				if err := d.pushStore.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
					d.logger.Error("notify: drop expired subscription", "error", err)
				}
				continue
			}
			d.logger.Error("notify: send push", "event_id", event.ID, "error", err)
		}
	}
}

// render executes the template's subject and body against the data.
func render(tpl *model.MailTemplate, data templateData) (subject, body string, err error) {
	subject, err = renderOne("subject", tpl.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err = renderOne("body", tpl.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func renderOne(name, text string, data templateData) (string, error) {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}
