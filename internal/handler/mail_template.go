package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"text/template"

	"github.com/svdberg/tapwacht/internal/auth"
	"github.com/svdberg/tapwacht/internal/model"
	"github.com/svdberg/tapwacht/internal/store"
)

// MailTemplateHandler lets the board edit the enrollment mails.
type MailTemplateHandler struct {
	templates *store.MailTemplateStore
	logger    *slog.Logger
}

func NewMailTemplateHandler(templates *store.MailTemplateStore, logger *slog.Logger) *MailTemplateHandler {
	return &MailTemplateHandler{templates: templates, logger: logger}
}

func validTemplateName(name string) bool {
	return name == model.TemplateEnrollOpen || name == model.TemplateEnrollClosed
}

func (h *MailTemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validTemplateName(name) {
		writeError(w, http.StatusNotFound, "unknown template")
		return
	}
	tpl, err := h.templates.Get(r.Context(), auth.OrganizationID(r.Context()), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	if tpl == nil {
		writeError(w, http.StatusNotFound, "template not configured")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

type mailTemplateRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	IsActive bool   `json:"is_active"`
}

func (h *MailTemplateHandler) Put(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validTemplateName(name) {
		writeError(w, http.StatusNotFound, "unknown template")
		return
	}
	var req mailTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "subject and body are required")
		return
	}
	// Reject templates that would fail at send time.
	if _, err := template.New("subject").Parse(req.Subject); err != nil {
		writeError(w, http.StatusBadRequest, "subject does not parse: "+err.Error())
		return
	}
	if _, err := template.New("body").Parse(req.Body); err != nil {
		writeError(w, http.StatusBadRequest, "body does not parse: "+err.Error())
		return
	}

	err := h.templates.Upsert(r.Context(), model.MailTemplate{
		OrganizationID: auth.OrganizationID(r.Context()),
		Name:           name,
		Subject:        req.Subject,
		Body:           req.Body,
		IsActive:       req.IsActive,
	})
	if err != nil {
		h.logger.Error("save mail template", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
