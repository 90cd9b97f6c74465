package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/svdberg/tapwacht/internal/model"
)

type EventStore struct {
	db *sql.DB

	// locks serializes check-then-act booking sequences per location.
	// Two concurrent creates could otherwise both pass the conflict
	// check and both commit.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db, locks: make(map[int64]*sync.Mutex)}
}

// WithLocationLock runs fn while holding this process's booking lock for
// each given location. Locations are locked in id order so overlapping
// sets cannot deadlock. Callers wrap the conflict check and the commit
// in a single fn.
func (s *EventStore) WithLocationLock(locationIDs []int64, fn func() error) error {
	ids := append([]int64(nil), locationIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var held []*sync.Mutex
	for _, id := range ids {
		s.mu.Lock()
		lock, ok := s.locks[id]
		if !ok {
			lock = &sync.Mutex{}
			s.locks[id] = lock
		}
		s.mu.Unlock()
		lock.Lock()
		held = append(held, lock)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()

	return fn()
}

const eventCols = `id, organizer_id, name, description, starts_at, ends_at, is_closed, option, kegs, is_risky, tender_comments, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var isClosed, option, isRisky int
	err := scanner.Scan(&e.ID, &e.OrganizerID, &e.Name, &e.Description, &e.StartsAt, &e.EndsAt,
		&isClosed, &option, &e.Kegs, &isRisky, &e.TenderComments, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.IsClosed = isClosed != 0
	e.Option = option != 0
	e.IsRisky = isRisky != 0
	return &e, nil
}

func (s *EventStore) Create(ctx context.Context, e model.Event) (*model.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO events (organizer_id, name, description, starts_at, ends_at, is_closed, option, kegs, is_risky, tender_comments)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OrganizerID, e.Name, e.Description, e.StartsAt.UTC(), e.EndsAt.UTC(),
		boolInt(e.IsClosed), boolInt(e.Option), e.Kegs, boolInt(e.IsRisky), e.TenderComments,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceLinks(ctx, tx, "event_locations", "location_id", id, e.LocationIDs); err != nil {
		return nil, err
	}
	if err := replaceLinks(ctx, tx, "event_participants", "organization_id", id, e.ParticipantIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *EventStore) Update(ctx context.Context, e model.Event) (*model.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE events
		 SET organizer_id = ?, name = ?, description = ?, starts_at = ?, ends_at = ?,
		     is_closed = ?, option = ?, kegs = ?, is_risky = ?, tender_comments = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.OrganizerID, e.Name, e.Description, e.StartsAt.UTC(), e.EndsAt.UTC(),
		boolInt(e.IsClosed), boolInt(e.Option), e.Kegs, boolInt(e.IsRisky), e.TenderComments, e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if err := replaceLinks(ctx, tx, "event_locations", "location_id", e.ID, e.LocationIDs); err != nil {
		return nil, err
	}
	if err := replaceLinks(ctx, tx, "event_participants", "organization_id", e.ID, e.ParticipantIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event: %w", err)
	}
	return s.GetByID(ctx, e.ID)
}

func replaceLinks(ctx context.Context, tx *sql.Tx, table, column string, eventID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (event_id, `+column+`) VALUES (?, ?)`, eventID, id); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := s.loadLinks(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// OccurringAt returns events overlapping the half-open interval
// [start, end). Touching events are excluded.
func (s *EventStore) OccurringAt(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	return s.listQuery(ctx,
		`SELECT `+eventCols+` FROM events
		 WHERE starts_at < ? AND ends_at > ?
		 ORDER BY starts_at`,
		end.UTC(), start.UTC())
}

// ListBetween returns events fully or partially inside [start, end),
// newest first, for listings and the calendar feed.
func (s *EventStore) ListBetween(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	return s.listQuery(ctx,
		`SELECT `+eventCols+` FROM events
		 WHERE starts_at < ? AND ends_at > ?
		 ORDER BY starts_at DESC`,
		end.UTC(), start.UTC())
}

// NextStartingAt returns the earliest event starting at or after t at
// any of the given locations. An empty location set means all public
// locations.
func (s *EventStore) NextStartingAt(ctx context.Context, t time.Time, locationIDs []int64) (*model.Event, error) {
	query := `SELECT ` + prefixCols("e", eventCols) + `
		 FROM events e
		 JOIN event_locations el ON el.event_id = e.id
		 JOIN locations l ON l.id = el.location_id
		 WHERE e.starts_at >= ?`
	args := []any{t.UTC()}

	if len(locationIDs) > 0 {
		query += ` AND el.location_id IN (` + placeholders(len(locationIDs)) + `)`
		for _, id := range locationIDs {
			args = append(args, id)
		}
	} else {
		query += ` AND l.is_public = 1`
	}
	query += ` ORDER BY e.starts_at LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next event: %w", err)
	}
	if err := s.loadLinks(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EventStore) listQuery(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range events {
		if err := s.loadLinks(ctx, &events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (s *EventStore) loadLinks(ctx context.Context, e *model.Event) error {
	locations, err := s.linkIDs(ctx, `SELECT location_id FROM event_locations WHERE event_id = ? ORDER BY location_id`, e.ID)
	if err != nil {
		return fmt.Errorf("load event locations: %w", err)
	}
	e.LocationIDs = locations

	participants, err := s.linkIDs(ctx, `SELECT organization_id FROM event_participants WHERE event_id = ? ORDER BY organization_id`, e.ID)
	if err != nil {
		return fmt.Errorf("load event participants: %w", err)
	}
	e.ParticipantIDs = participants
	return nil
}

func (s *EventStore) linkIDs(ctx context.Context, query string, eventID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func placeholders(n int) string {
	out := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}

func prefixCols(alias, cols string) string {
	return alias + "." + strings.ReplaceAll(cols, ", ", ", "+alias+".")
}
