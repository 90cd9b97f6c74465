package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/svdberg/tapwacht/internal/model"
)

type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

const locationCols = `id, name, capacity, is_public, prevent_conflicts, created_at`

func scanLocation(scanner interface{ Scan(...any) error }) (*model.Location, error) {
	var l model.Location
	var isPublic, prevent int
	err := scanner.Scan(&l.ID, &l.Name, &l.Capacity, &isPublic, &prevent, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.IsPublic = isPublic != 0
	l.PreventConflicts = prevent != 0
	return &l, nil
}

func (s *LocationStore) Create(ctx context.Context, name string, capacity int, isPublic, preventConflicts bool) (*model.Location, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (name, capacity, is_public, prevent_conflicts) VALUES (?, ?, ?, ?)`,
		name, capacity, boolInt(isPublic), boolInt(preventConflicts),
	)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *LocationStore) GetByID(ctx context.Context, id int64) (*model.Location, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+locationCols+` FROM locations WHERE id = ?`, id)
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

func (s *LocationStore) List(ctx context.Context) ([]model.Location, error) {
	return s.list(ctx, `SELECT `+locationCols+` FROM locations ORDER BY name`)
}

// ListPublic returns the locations considered by default when a conflict
// query names no explicit location set.
func (s *LocationStore) ListPublic(ctx context.Context) ([]model.Location, error) {
	return s.list(ctx, `SELECT `+locationCols+` FROM locations WHERE is_public = 1 ORDER BY name`)
}

func (s *LocationStore) list(ctx context.Context, query string) ([]model.Location, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
