// Package repository implements the store contract on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
//
// The atomic unit is a single transaction that opens with
// SELECT ... FOR UPDATE on the event row. The row-level exclusive lock
// serialises every registration, cancellation, and promotion touching that
// event: a concurrent attempt blocks until the first transaction commits or
// rolls back, so no two writers can read the same capacity snapshot and both
// act on it. Unrelated events never contend.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

// Repository implements store.Store on a pgx connection pool.
type Repository struct {
	db *pgxpool.Pool
}

// New constructs a Repository.
func New(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// txConflict reports whether err is a retryable transaction failure
// (serialization failure or deadlock).
func txConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// WithEvent runs fn inside one transaction holding an exclusive row lock on
// the event. fn's writes become visible to other connections only on commit.
func (r *Repository) WithEvent(ctx context.Context, eventID string, fn func(tx store.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			if txConflict(err) {
				err = fmt.Errorf("%w: %v", store.ErrTxConflict, err)
			}
		}
	}()

	// Acquire the per-event exclusive lock before any read the branch logic
	// depends on.
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT true FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrEventNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	if err = fn(&eventTx{tx: tx, eventID: eventID}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// eventTx is the transactional view of one locked event.
type eventTx struct {
	tx      pgx.Tx
	eventID string
}

func (t *eventTx) Snapshot(ctx context.Context) (model.Snapshot, error) {
	snap := model.Snapshot{EventID: t.eventID}
	err := t.tx.QueryRow(ctx,
		`SELECT organizer_id, capacity, registered_count, status, ends_at
		 FROM events WHERE id = $1`,
		t.eventID,
	).Scan(&snap.OrganizerID, &snap.Capacity, &snap.CurrentCount, &snap.Status, &snap.EndsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, store.ErrEventNotFound
		}
		return model.Snapshot{}, fmt.Errorf("read event snapshot: %w", err)
	}
	return snap, nil
}

func (t *eventTx) ApplyDelta(ctx context.Context, delta int) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE events SET registered_count = registered_count + $1 WHERE id = $2`,
		delta, t.eventID,
	)
	if err != nil {
		return fmt.Errorf("apply counter delta: %w", err)
	}
	return nil
}

func (t *eventTx) SetCurrentCount(ctx context.Context, n int) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE events SET registered_count = $1 WHERE id = $2`,
		n, t.eventID,
	)
	if err != nil {
		return fmt.Errorf("set counter: %w", err)
	}
	return nil
}

const registrationColumns = `id, event_id, participant_id, status, waitlist_position,
	registered_at, cancelled_at, attended_at`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.Status,
		&reg.WaitlistPosition, &reg.RegisteredAt, &reg.CancelledAt, &reg.AttendedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (t *eventTx) Registration(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1 AND event_id = $2`,
		id, t.eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (t *eventTx) ActiveRegistration(ctx context.Context, participantID string) (*model.Registration, error) {
	reg, err := scanRegistration(t.tx.QueryRow(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1 AND participant_id = $2 AND status IN ('REGISTERED', 'WAITLISTED')`,
		t.eventID, participantID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active registration: %w", err)
	}
	return reg, nil
}

func (t *eventTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		reg.ID, reg.EventID, reg.ParticipantID, reg.Status, reg.WaitlistPosition,
		reg.RegisteredAt, reg.CancelledAt, reg.AttendedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (t *eventTx) UpdateRegistration(ctx context.Context, reg *model.Registration) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE registrations
		 SET status = $1, waitlist_position = $2, cancelled_at = $3, attended_at = $4
		 WHERE id = $5`,
		reg.Status, reg.WaitlistPosition, reg.CancelledAt, reg.AttendedAt, reg.ID,
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRegistrationNotFound
	}
	return nil
}

func (t *eventTx) Waitlisted(ctx context.Context) ([]model.Registration, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE event_id = $1 AND status = 'WAITLISTED'
		 ORDER BY waitlist_position ASC, registered_at ASC`,
		t.eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlisted: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

// UpdateWaitlistPositions rewrites every position in one round trip.
func (t *eventTx) UpdateWaitlistPositions(ctx context.Context, positions map[string]int) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for id, pos := range positions {
		batch.Queue(`UPDATE registrations SET waitlist_position = $1 WHERE id = $2`, pos, id)
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for range positions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("rewrite waitlist positions: %w", err)
		}
	}
	return nil
}

func (t *eventTx) CountByStatus(ctx context.Context, status model.Status) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`,
		t.eventID, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return n, nil
}

// ─── Read-only accessors (no lock) ────────────────────────────────────────────

func (r *Repository) EventSnapshot(ctx context.Context, eventID string) (model.Snapshot, error) {
	snap := model.Snapshot{EventID: eventID}
	err := r.db.QueryRow(ctx,
		`SELECT organizer_id, capacity, registered_count, status, ends_at
		 FROM events WHERE id = $1`,
		eventID,
	).Scan(&snap.OrganizerID, &snap.Capacity, &snap.CurrentCount, &snap.Status, &snap.EndsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Snapshot{}, store.ErrEventNotFound
		}
		return model.Snapshot{}, fmt.Errorf("read event snapshot: %w", err)
	}
	return snap, nil
}

func (r *Repository) Registration(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (r *Repository) ListByEvent(ctx context.Context, eventID string, filter model.Status) ([]model.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		 FROM registrations WHERE event_id = $1`
	args := []any{eventID}
	if filter != "" {
		query += ` AND status = $2`
		args = append(args, filter)
	}
	query += ` ORDER BY registered_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func (r *Repository) ListByParticipant(ctx context.Context, participantID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE participant_id = $1
		 ORDER BY registered_at DESC`,
		participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list by participant: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func (r *Repository) WaitlistCount(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = 'WAITLISTED'`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("waitlist count: %w", err)
	}
	return n, nil
}

func (r *Repository) Stats(ctx context.Context, eventID string) (model.RegistrationStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM registrations WHERE event_id = $1 GROUP BY status`,
		eventID,
	)
	if err != nil {
		return model.RegistrationStats{}, fmt.Errorf("registration stats: %w", err)
	}
	defer rows.Close()

	var stats model.RegistrationStats
	for rows.Next() {
		var status model.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return model.RegistrationStats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch status {
		case model.StatusRegistered:
			stats.Registered = n
		case model.StatusWaitlisted:
			stats.Waitlisted = n
		case model.StatusCancelled:
			stats.Cancelled = n
		case model.StatusAttended:
			stats.Attended = n
		case model.StatusNoShow:
			stats.NoShow = n
		}
		stats.Total += n
	}
	return stats, rows.Err()
}

func collectRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.Status,
			&reg.WaitlistPosition, &reg.RegisteredAt, &reg.CancelledAt, &reg.AttendedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ─── Events ───────────────────────────────────────────────────────────────────

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		OrganizerID: req.OrganizerID,
		Capacity:    req.Capacity,
		Status:      model.EventOpen,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, description, organizer_id, capacity,
			registered_count, status, starts_at, ends_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.Name, event.Description, event.OrganizerID, event.Capacity,
		event.RegisteredCount, event.Status, event.StartsAt, event.EndsAt, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, organizer_id, capacity, registered_count,
			status, starts_at, ends_at, created_at
		 FROM events
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.OrganizerID, &e.Capacity,
			&e.RegisteredCount, &e.Status, &e.StartsAt, &e.EndsAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or store.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, organizer_id, capacity, registered_count,
			status, starts_at, ends_at, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.OrganizerID, &e.Capacity,
		&e.RegisteredCount, &e.Status, &e.StartsAt, &e.EndsAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}
