package service

import "errors"

// Precondition errors. Terminal, never retried, surfaced verbatim.
var (
	// ErrEventNotOpen means the event is cancelled, ended, or otherwise not
	// accepting registrations.
	ErrEventNotOpen = errors.New("event is not open for registration")

	// ErrAlreadyRegistered means the participant already holds an active
	// (REGISTERED or WAITLISTED) record for the event.
	ErrAlreadyRegistered = errors.New("participant already registered for this event")

	// ErrAlreadyCancelled means the record was cancelled before this call.
	ErrAlreadyCancelled = errors.New("registration already cancelled")

	// ErrNotCancellable means the record is in a terminal attendance state
	// (ATTENDED or NO_SHOW) and can no longer be cancelled.
	ErrNotCancellable = errors.New("registration can no longer be cancelled")

	// ErrNotOwner means the acting participant does not own the record.
	ErrNotOwner = errors.New("registration belongs to another participant")

	// ErrNotOrganizer means the caller does not organise the event.
	ErrNotOrganizer = errors.New("caller is not the event organizer")

	// ErrEventNotEnded means attendance was marked before the event finished.
	ErrEventNotEnded = errors.New("event has not ended yet")

	// ErrInvalidStatusForAttendance means the record is not in REGISTERED
	// state (cancelled, waitlisted, or already marked).
	ErrInvalidStatusForAttendance = errors.New("registration status does not allow attendance marking")
)

// ErrTemporaryConflict is returned after the bounded internal retries on a
// transaction conflict are exhausted. Safe to retry client-side.
var ErrTemporaryConflict = errors.New("temporary conflict, retry the operation")
