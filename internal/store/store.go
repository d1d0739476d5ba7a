// Package store defines the persistence contract for the registration
// allocator. Every state transition that touches more than one row (a
// registration record plus the event counter, or a record plus its waitlist
// siblings) runs inside WithEvent, which the backend must make atomic and
// exclusive per event.
package store

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
)

// ErrEventNotFound is returned when a requested event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrRegistrationNotFound is returned when a requested registration does not exist.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrTxConflict is returned when the atomic unit could not commit because of
// a serialization failure or lock timeout. Callers may retry the whole
// operation.
var ErrTxConflict = errors.New("transaction conflict")

// Store is the durable home of events and registration records.
//
// WithEvent opens the atomic unit for one event: the backend takes an
// exclusive per-event lock (a row lock or equivalent), runs fn, and commits
// only if fn returns nil. Two concurrent WithEvent calls for the same event
// are serialised; calls for different events do not contend. A non-nil error
// from fn rolls back every write made through the Tx.
type Store interface {
	WithEvent(ctx context.Context, eventID string, fn func(tx Tx) error) error

	// Read-only accessors. They run outside any atomic unit and may observe
	// a state older than a concurrent WithEvent, never a partial one.
	EventSnapshot(ctx context.Context, eventID string) (model.Snapshot, error)
	Registration(ctx context.Context, id string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string, filter model.Status) ([]model.Registration, error)
	ListByParticipant(ctx context.Context, participantID string) ([]model.Registration, error)
	WaitlistCount(ctx context.Context, eventID string) (int, error)
	Stats(ctx context.Context, eventID string) (model.RegistrationStats, error)
}

// Tx is the view inside one event's atomic unit. All methods are implicitly
// scoped to the locked event.
type Tx interface {
	// Snapshot returns the event's capacity view as of the lock acquisition.
	Snapshot(ctx context.Context) (model.Snapshot, error)

	// ApplyDelta adjusts the event's registered-count counter.
	ApplyDelta(ctx context.Context, delta int) error

	// SetCurrentCount overwrites the counter. Used by reconciliation only.
	SetCurrentCount(ctx context.Context, n int) error

	// Registration loads a record by ID, or ErrRegistrationNotFound.
	Registration(ctx context.Context, id string) (*model.Registration, error)

	// ActiveRegistration returns the participant's REGISTERED or WAITLISTED
	// record for this event, or nil when there is none.
	ActiveRegistration(ctx context.Context, participantID string) (*model.Registration, error)

	// InsertRegistration persists a new record.
	InsertRegistration(ctx context.Context, reg *model.Registration) error

	// UpdateRegistration rewrites an existing record in full.
	UpdateRegistration(ctx context.Context, reg *model.Registration) error

	// Waitlisted returns this event's WAITLISTED records ordered by
	// (waitlist_position, registered_at).
	Waitlisted(ctx context.Context) ([]model.Registration, error)

	// UpdateWaitlistPositions rewrites positions in one batch, keyed by
	// registration ID.
	UpdateWaitlistPositions(ctx context.Context, positions map[string]int) error

	// CountByStatus counts this event's records holding the given status.
	CountByStatus(ctx context.Context, status model.Status) (int, error)
}
