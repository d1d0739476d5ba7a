// Package service implements the registration and waitlist allocator: the
// business protocol that enrolls participants into capacity-bounded events,
// keeps a FIFO waitlist when an event is full, and promotes exactly one
// waitlisted participant when a cancellation frees a seat.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/notify"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

// EventCatalog is the event-aggregate collaborator: creation and lookup of
// events. Capacity reads and counter mutations go through store.Tx instead,
// because they must share the allocator's atomic unit.
type EventCatalog interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
}

// RegistrationService orchestrates register, cancel, promote, and attendance
// as atomic operations against the store.
type RegistrationService struct {
	store      store.Store
	events     EventCatalog
	emitter    notify.Emitter
	logger     *slog.Logger
	maxRetries int
	now        func() time.Time
}

// NewRegistrationService constructs a RegistrationService. maxRetries bounds
// internal retries on transaction conflicts; values below 1 are raised to 1.
func NewRegistrationService(
	st store.Store,
	events EventCatalog,
	emitter notify.Emitter,
	logger *slog.Logger,
	maxRetries int,
) *RegistrationService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RegistrationService{
		store:      st,
		events:     events,
		emitter:    emitter,
		logger:     logger,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// withRetry runs op, retrying on transaction conflicts up to the configured
// bound, then surfaces ErrTemporaryConflict.
func (s *RegistrationService) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, store.ErrTxConflict) {
			return err
		}
		s.logger.Warn("transaction conflict, retrying", "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%w (%d attempts)", ErrTemporaryConflict, s.maxRetries)
}

// CreateEvent validates the request and delegates to the event catalog.
func (s *RegistrationService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if req.OrganizerID == "" {
		return nil, fmt.Errorf("organizer_id is required")
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, fmt.Errorf("capacity must be a positive integer")
		}
		if *req.Capacity > 100_000 {
			return nil, fmt.Errorf("capacity cannot exceed 100,000")
		}
	}
	if req.EndsAt.IsZero() || req.StartsAt.IsZero() {
		return nil, fmt.Errorf("starts_at and ends_at are required")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, fmt.Errorf("ends_at must be after starts_at")
	}
	return s.events.Create(ctx, req)
}

// GetEvent returns a single event by ID.
func (s *RegistrationService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	return s.events.GetByID(ctx, id)
}

// ListEvents returns all events.
func (s *RegistrationService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// ListByEvent returns an event's registrations, optionally filtered by status.
func (s *RegistrationService) ListByEvent(ctx context.Context, eventID string, filter model.Status) ([]model.Registration, error) {
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("unknown status filter %q", filter)
	}
	return s.store.ListByEvent(ctx, eventID, filter)
}

// ListByParticipant returns every record a participant holds across events.
func (s *RegistrationService) ListByParticipant(ctx context.Context, participantID string) ([]model.Registration, error) {
	if participantID == "" {
		return nil, fmt.Errorf("participant id is required")
	}
	return s.store.ListByParticipant(ctx, participantID)
}

// WaitlistCount returns the number of waitlisted records for an event.
func (s *RegistrationService) WaitlistCount(ctx context.Context, eventID string) (int, error) {
	return s.store.WaitlistCount(ctx, eventID)
}

// Stats summarises an event's registrations by status.
func (s *RegistrationService) Stats(ctx context.Context, eventID string) (model.RegistrationStats, error) {
	return s.store.Stats(ctx, eventID)
}

// Reconcile recomputes the event's registered-count counter from live
// REGISTERED records and repairs it if it diverged, e.g. after a crash
// between a record write and the counter update on a backend without full
// atomicity. Run out-of-band, never on the request path. Returns the
// corrected count.
func (s *RegistrationService) Reconcile(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.withRetry(ctx, func() error {
		return s.store.WithEvent(ctx, eventID, func(tx store.Tx) error {
			snap, err := tx.Snapshot(ctx)
			if err != nil {
				return err
			}
			n, err := tx.CountByStatus(ctx, model.StatusRegistered)
			if err != nil {
				return err
			}
			count = n
			if n == snap.CurrentCount {
				return nil
			}
			s.logger.Warn("registered count diverged, repairing",
				"event_id", eventID, "counter", snap.CurrentCount, "actual", n)
			return tx.SetCurrentCount(ctx, n)
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
