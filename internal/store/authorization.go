package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/svdberg/tapwacht/internal/model"
)

type AuthorizationStore struct {
	db *sql.DB
}

func NewAuthorizationStore(db *sql.DB) *AuthorizationStore {
	return &AuthorizationStore{db: db}
}

const authorizationCols = `id, user_id, organization_id, start_date, end_date`

func scanAuthorization(scanner interface{ Scan(...any) error }) (*model.Authorization, error) {
	var a model.Authorization
	var endDate sql.NullTime
	err := scanner.Scan(&a.ID, &a.UserID, &a.OrganizationID, &a.StartDate, &endDate)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		a.EndDate = &endDate.Time
	}
	return &a, nil
}

func (s *AuthorizationStore) Create(ctx context.Context, a model.Authorization) (*model.Authorization, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO authorizations (user_id, organization_id, start_date, end_date)
		 VALUES (?, ?, ?, ?)`,
		a.UserID, a.OrganizationID, a.StartDate, a.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert authorization: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AuthorizationStore) GetByID(ctx context.Context, id int64) (*model.Authorization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+authorizationCols+` FROM authorizations WHERE id = ?`, id)
	a, err := scanAuthorization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get authorization: %w", err)
	}
	return a, nil
}

func (s *AuthorizationStore) ListByOrganization(ctx context.Context, organizationID int64) ([]model.Authorization, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+authorizationCols+` FROM authorizations WHERE organization_id = ? ORDER BY start_date`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list authorizations: %w", err)
	}
	defer rows.Close()

	var out []model.Authorization
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan authorization: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ActiveFor reports whether the user holds an authorization with the
// organization that is valid at the given moment.
func (s *AuthorizationStore) ActiveFor(ctx context.Context, userID, organizationID int64, now time.Time) (bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+authorizationCols+` FROM authorizations WHERE user_id = ? AND organization_id = ?`,
		userID, organizationID,
	)
	if err != nil {
		return false, fmt.Errorf("list user authorizations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return false, fmt.Errorf("scan authorization: %w", err)
		}
		if a.Active(now) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// End closes an open authorization at the given moment. Ending an
// already-ended authorization is a no-op.
func (s *AuthorizationStore) End(ctx context.Context, id int64, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE authorizations SET end_date = ? WHERE id = ? AND end_date IS NULL`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("end authorization: %w", err)
	}
	return nil
}
