package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svdberg/tapwacht/internal/model"
)

// ErrInvalidReservation rejects reservations whose start moment is not
// before their end moment within the week.
var ErrInvalidReservation = errors.New("reservation start must be before its end")

type ReservationStore struct {
	db *sql.DB
}

func NewReservationStore(db *sql.DB) *ReservationStore {
	return &ReservationStore{db: db}
}

const reservationCols = `id, organization_id, location_id, start_day, start_time, end_day, end_time`

func scanReservation(scanner interface{ Scan(...any) error }) (*model.StandardReservation, error) {
	var r model.StandardReservation
	err := scanner.Scan(&r.ID, &r.OrganizationID, &r.LocationID, &r.StartDay, &r.StartTime, &r.EndDay, &r.EndTime)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ReservationStore) Create(ctx context.Context, r model.StandardReservation) (*model.StandardReservation, error) {
	if r.StartDay < model.Monday || r.StartDay > model.Sunday ||
		r.EndDay < model.Monday || r.EndDay > model.Sunday {
		return nil, fmt.Errorf("weekday out of range: %w", ErrInvalidReservation)
	}
	if r.StartDay == r.EndDay && r.StartTime >= r.EndTime {
		return nil, ErrInvalidReservation
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO standard_reservations (organization_id, location_id, start_day, start_time, end_day, end_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.OrganizationID, r.LocationID, r.StartDay, r.StartTime, r.EndDay, r.EndTime,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ReservationStore) GetByID(ctx context.Context, id int64) (*model.StandardReservation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reservationCols+` FROM standard_reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

func (s *ReservationStore) List(ctx context.Context) ([]model.StandardReservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reservationCols+` FROM standard_reservations ORDER BY start_day, start_time`)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []model.StandardReservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

func (s *ReservationStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM standard_reservations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}
