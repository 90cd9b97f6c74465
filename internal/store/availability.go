package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/svdberg/tapwacht/internal/availability"
	"github.com/svdberg/tapwacht/internal/gate"
	"github.com/svdberg/tapwacht/internal/model"
)

type AvailabilityStore struct {
	db *sql.DB
}

func NewAvailabilityStore(db *sql.DB) *AvailabilityStore {
	return &AvailabilityStore{db: db}
}

func (s *AvailabilityStore) CreateType(ctx context.Context, organizationID int64, name string, nature availability.Nature) (*model.AvailabilityType, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO availability_types (organization_id, name, nature) VALUES (?, ?, ?)`,
		organizationID, name, nature.Code(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert availability type: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetType(ctx, id)
}

func (s *AvailabilityStore) GetType(ctx context.Context, id int64) (*model.AvailabilityType, error) {
	var t model.AvailabilityType
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, nature FROM availability_types WHERE id = ?`, id,
	).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Nature)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get availability type: %w", err)
	}
	return &t, nil
}

func (s *AvailabilityStore) ListTypes(ctx context.Context, organizationID int64) ([]model.AvailabilityType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, name, nature FROM availability_types
		 WHERE organization_id = ? ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("query availability types: %w", err)
	}
	defer rows.Close()

	var types []model.AvailabilityType
	for rows.Next() {
		var t model.AvailabilityType
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Nature); err != nil {
			return nil, fmt.Errorf("scan availability type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// Set records or replaces the user's availability for the event. The
// (user, event) pair is unique; re-declaring overwrites the previous
// type, any nature-to-nature change is legal.
func (s *AvailabilityStore) Set(ctx context.Context, userID, eventID, availabilityID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bartender_availabilities (user_id, event_id, availability_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, event_id) DO UPDATE SET availability_id = excluded.availability_id`,
		userID, eventID, availabilityID,
	)
	if err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	return nil
}

// RecordsForEvent returns the event's availability records joined with
// the nature of their type, the shape the gate consumes.
func (s *AvailabilityStore) RecordsForEvent(ctx context.Context, eventID int64) ([]availability.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ba.user_id, ba.event_id, ba.availability_id, at.nature
		 FROM bartender_availabilities ba
		 JOIN availability_types at ON at.id = ba.availability_id
		 WHERE ba.event_id = ?
		 ORDER BY ba.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query availability records: %w", err)
	}
	defer rows.Close()

	var records []availability.Record
	for rows.Next() {
		var r availability.Record
		var code string
		if err := rows.Scan(&r.UserID, &r.EventID, &r.TypeID, &code); err != nil {
			return nil, fmt.Errorf("scan availability record: %w", err)
		}
		nature, err := availability.ParseNature(code)
		if err != nil {
			return nil, err
		}
		r.Nature = nature
		records = append(records, r)
	}
	return records, rows.Err()
}

// EligibilityForEvent returns the IVA certification facts for every user
// with an availability record on the event.
func (s *AvailabilityStore) EligibilityForEvent(ctx context.Context, eventID int64) ([]gate.Eligibility, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.iva_override, u.certificate_approved_at IS NOT NULL
		 FROM bartender_availabilities ba
		 JOIN users u ON u.id = ba.user_id
		 WHERE ba.event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query eligibility: %w", err)
	}
	defer rows.Close()

	var eligibility []gate.Eligibility
	for rows.Next() {
		var e gate.Eligibility
		var override, approved int
		if err := rows.Scan(&e.UserID, &override, &approved); err != nil {
			return nil, fmt.Errorf("scan eligibility: %w", err)
		}
		e.IvaOverride = override != 0
		e.CertificateApproved = approved != 0
		eligibility = append(eligibility, e)
	}
	return eligibility, rows.Err()
}
