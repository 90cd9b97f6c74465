package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/svdberg/tapwacht/internal/model"
)

type MailTemplateStore struct {
	db *sql.DB
}

func NewMailTemplateStore(db *sql.DB) *MailTemplateStore {
	return &MailTemplateStore{db: db}
}

// Get returns the organization's template by name, or nil when none is
// configured.
func (s *MailTemplateStore) Get(ctx context.Context, organizationID int64, name string) (*model.MailTemplate, error) {
	var t model.MailTemplate
	var isActive int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, subject, body, is_active
		 FROM mail_templates WHERE organization_id = ? AND name = ?`,
		organizationID, name,
	).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Subject, &t.Body, &isActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mail template: %w", err)
	}
	t.IsActive = isActive != 0
	return &t, nil
}

func (s *MailTemplateStore) Upsert(ctx context.Context, t model.MailTemplate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mail_templates (organization_id, name, subject, body, is_active)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (organization_id, name) DO UPDATE
		 SET subject = excluded.subject, body = excluded.body, is_active = excluded.is_active`,
		t.OrganizationID, t.Name, t.Subject, t.Body, boolInt(t.IsActive),
	)
	if err != nil {
		return fmt.Errorf("upsert mail template: %w", err)
	}
	return nil
}
