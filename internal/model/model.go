// Package model defines the core domain types for the registration and
// waitlist system.
package model

import "time"

// Status is the lifecycle state of a registration record.
type Status string

const (
	StatusRegistered Status = "REGISTERED"
	StatusWaitlisted Status = "WAITLISTED"
	StatusCancelled  Status = "CANCELLED"
	StatusAttended   Status = "ATTENDED"
	StatusNoShow     Status = "NO_SHOW"
)

// Active reports whether the record still occupies a seat or a waitlist slot.
func (s Status) Active() bool {
	return s == StatusRegistered || s == StatusWaitlisted
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusWaitlisted, StatusCancelled, StatusAttended, StatusNoShow:
		return true
	}
	return false
}

// EventStatus is the registration-window state of an event. The event
// aggregate owns it; the allocator only reads it.
type EventStatus string

const (
	EventOpen      EventStatus = "OPEN"
	EventCancelled EventStatus = "CANCELLED"
)

// Event represents a capacity-bounded event created by an organizer.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OrganizerID string `json:"organizer_id"`
	// Capacity is nil for events with unbounded seating.
	Capacity        *int        `json:"capacity"`
	RegisteredCount int         `json:"registered_count"`
	Status          EventStatus `json:"status"`
	StartsAt        time.Time   `json:"starts_at"`
	EndsAt          time.Time   `json:"ends_at"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Snapshot reduces the event to the fields the allocator reads.
func (e *Event) Snapshot() Snapshot {
	return Snapshot{
		EventID:      e.ID,
		OrganizerID:  e.OrganizerID,
		Capacity:     e.Capacity,
		CurrentCount: e.RegisteredCount,
		Status:       e.Status,
		EndsAt:       e.EndsAt,
	}
}

// Snapshot is the capacity view of an event at a point in time.
type Snapshot struct {
	EventID      string
	OrganizerID  string
	Capacity     *int
	CurrentCount int
	Status       EventStatus
	EndsAt       time.Time
}

// HasCapacity reports whether another seat can be filled.
func (s Snapshot) HasCapacity() bool {
	return s.Capacity == nil || s.CurrentCount < *s.Capacity
}

// AvailableSpots returns the number of free seats, or nil when unbounded.
func (s Snapshot) AvailableSpots() *int {
	if s.Capacity == nil {
		return nil
	}
	n := *s.Capacity - s.CurrentCount
	if n < 0 {
		n = 0
	}
	return &n
}

// Open reports whether the event accepts registrations at the given instant.
func (s Snapshot) Open(now time.Time) bool {
	return s.Status == EventOpen && now.Before(s.EndsAt)
}

// Ended reports whether the event has finished at the given instant.
func (s Snapshot) Ended(now time.Time) bool {
	return now.After(s.EndsAt)
}

// Registration represents a participant's registration for an event.
// Cancellation is a status transition, never a deletion; a participant may
// hold several historical records for one event but at most one active one.
type Registration struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
	Status        Status `json:"status"`
	// WaitlistPosition is set only while Status is WAITLISTED. Positions for
	// an event's waitlisted records are dense: 1..W with no gaps.
	WaitlistPosition *int       `json:"waitlist_position,omitempty"`
	RegisteredAt     time.Time  `json:"registered_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	AttendedAt       *time.Time `json:"attended_at,omitempty"`
}

// Eligibility is the verdict of a read-only pre-check. It is advisory:
// Register re-verifies everything inside the atomic unit.
type Eligibility struct {
	Eligible         bool   `json:"eligible"`
	Reason           string `json:"reason,omitempty"`
	HasCapacity      bool   `json:"has_capacity"`
	WillBeWaitlisted bool   `json:"will_be_waitlisted"`
	AvailableSpots   *int   `json:"available_spots"`
}

// RegistrationStats summarises the records of one event by status.
type RegistrationStats struct {
	Registered int `json:"registered"`
	Waitlisted int `json:"waitlisted"`
	Cancelled  int `json:"cancelled"`
	Attended   int `json:"attended"`
	NoShow     int `json:"no_show"`
	Total      int `json:"total"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OrganizerID string    `json:"organizer_id"`
	Capacity    *int      `json:"capacity"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	ParticipantID string `json:"participant_id"`
}

// CancelRequest identifies the participant asking for the cancellation.
type CancelRequest struct {
	ParticipantID string `json:"participant_id"`
}

// AttendanceRequest is the payload for marking attendance.
type AttendanceRequest struct {
	OrganizerID string `json:"organizer_id"`
	Attended    bool   `json:"attended"`
}

// RegisterResult is the outcome of a registration attempt.
type RegisterResult struct {
	Registration *Registration `json:"registration"`
	Waitlisted   bool          `json:"waitlisted"`
}

// CancelResult is the outcome of a cancellation, including the record
// promoted from the waitlist when a seat was freed.
type CancelResult struct {
	Cancelled *Registration `json:"cancelled"`
	Promoted  *Registration `json:"promoted,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
