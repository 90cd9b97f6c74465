package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/svdberg/tapwacht/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, email, name, password_hash, organization_id, is_tender, is_superuser, iva_override, certificate_approved_at, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var isTender, isSuperuser, ivaOverride int
	var approvedAt sql.NullTime
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.OrganizationID,
		&isTender, &isSuperuser, &ivaOverride, &approvedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.IsTender = isTender != 0
	u.IsSuperuser = isSuperuser != 0
	u.IvaOverride = ivaOverride != 0
	if approvedAt.Valid {
		u.CertificateApprovedAt = &approvedAt.Time
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, email, name, passwordHash string, organizationID int64) (*model.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, organization_id) VALUES (?, ?, ?, ?)`,
		email, name, passwordHash, organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListTenders returns the organization's active bartenders, the
// audience for enrollment notifications.
func (s *UserStore) ListTenders(ctx context.Context, organizationID int64) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users
		 WHERE organization_id = ? AND is_tender = 1 AND email != ''
		 ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("query tenders: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) SetTender(ctx context.Context, id int64, isTender bool) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_tender = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolInt(isTender), id); err != nil {
		return fmt.Errorf("set tender flag: %w", err)
	}
	return nil
}
