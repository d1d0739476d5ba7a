// Package memstore provides an in-memory implementation of store.Store.
// It backs local runs and the allocator test suite; nothing survives a
// restart. The per-event atomic unit is a mutex held for the duration of
// WithEvent, with all writes staged on copies and applied only when the
// callback succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

// Store is an in-memory store.Store.
type Store struct {
	mu     sync.RWMutex
	events map[string]*eventState
}

type eventState struct {
	mu    sync.Mutex
	event model.Event
	regs  map[string]*model.Registration
}

// New constructs an empty Store.
func New() *Store {
	return &Store{events: make(map[string]*eventState)}
}

func (s *Store) eventState(id string) (*eventState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	es, ok := s.events[id]
	return es, ok
}

func cloneReg(reg *model.Registration) *model.Registration {
	c := *reg
	if reg.WaitlistPosition != nil {
		p := *reg.WaitlistPosition
		c.WaitlistPosition = &p
	}
	if reg.CancelledAt != nil {
		t := *reg.CancelledAt
		c.CancelledAt = &t
	}
	if reg.AttendedAt != nil {
		t := *reg.AttendedAt
		c.AttendedAt = &t
	}
	return &c
}

// WithEvent serialises callers per event with the event's mutex. Writes are
// staged and applied only if fn returns nil.
func (s *Store) WithEvent(ctx context.Context, eventID string, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	es, ok := s.eventState(eventID)
	if !ok {
		return store.ErrEventNotFound
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	staged := &eventTx{
		event: es.event,
		regs:  make(map[string]*model.Registration, len(es.regs)),
	}
	for id, reg := range es.regs {
		staged.regs[id] = cloneReg(reg)
	}

	if err := fn(staged); err != nil {
		return err
	}

	es.event = staged.event
	es.regs = staged.regs
	return nil
}

// eventTx is the staged view of one event.
type eventTx struct {
	event model.Event
	regs  map[string]*model.Registration
}

func (t *eventTx) Snapshot(ctx context.Context) (model.Snapshot, error) {
	return t.event.Snapshot(), nil
}

func (t *eventTx) ApplyDelta(ctx context.Context, delta int) error {
	t.event.RegisteredCount += delta
	return nil
}

func (t *eventTx) SetCurrentCount(ctx context.Context, n int) error {
	t.event.RegisteredCount = n
	return nil
}

func (t *eventTx) Registration(ctx context.Context, id string) (*model.Registration, error) {
	reg, ok := t.regs[id]
	if !ok {
		return nil, store.ErrRegistrationNotFound
	}
	return cloneReg(reg), nil
}

func (t *eventTx) ActiveRegistration(ctx context.Context, participantID string) (*model.Registration, error) {
	for _, reg := range t.regs {
		if reg.ParticipantID == participantID && reg.Status.Active() {
			return cloneReg(reg), nil
		}
	}
	return nil, nil
}

func (t *eventTx) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	t.regs[reg.ID] = cloneReg(reg)
	return nil
}

func (t *eventTx) UpdateRegistration(ctx context.Context, reg *model.Registration) error {
	if _, ok := t.regs[reg.ID]; !ok {
		return store.ErrRegistrationNotFound
	}
	t.regs[reg.ID] = cloneReg(reg)
	return nil
}

func (t *eventTx) Waitlisted(ctx context.Context) ([]model.Registration, error) {
	var regs []model.Registration
	for _, reg := range t.regs {
		if reg.Status == model.StatusWaitlisted {
			regs = append(regs, *cloneReg(reg))
		}
	}
	sortWaitlist(regs)
	return regs, nil
}

func (t *eventTx) UpdateWaitlistPositions(ctx context.Context, positions map[string]int) error {
	for id, pos := range positions {
		reg, ok := t.regs[id]
		if !ok {
			return store.ErrRegistrationNotFound
		}
		p := pos
		reg.WaitlistPosition = &p
	}
	return nil
}

func (t *eventTx) CountByStatus(ctx context.Context, status model.Status) (int, error) {
	n := 0
	for _, reg := range t.regs {
		if reg.Status == status {
			n++
		}
	}
	return n, nil
}

func sortWaitlist(regs []model.Registration) {
	sort.Slice(regs, func(i, j int) bool {
		pi, pj := 0, 0
		if regs[i].WaitlistPosition != nil {
			pi = *regs[i].WaitlistPosition
		}
		if regs[j].WaitlistPosition != nil {
			pj = *regs[j].WaitlistPosition
		}
		if pi != pj {
			return pi < pj
		}
		return regs[i].RegisteredAt.Before(regs[j].RegisteredAt)
	})
}

// ─── Read-only accessors ──────────────────────────────────────────────────────

func (s *Store) EventSnapshot(ctx context.Context, eventID string) (model.Snapshot, error) {
	es, ok := s.eventState(eventID)
	if !ok {
		return model.Snapshot{}, store.ErrEventNotFound
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.event.Snapshot(), nil
}

func (s *Store) Registration(ctx context.Context, id string) (*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, es := range s.events {
		es.mu.Lock()
		reg, ok := es.regs[id]
		if ok {
			out := cloneReg(reg)
			es.mu.Unlock()
			return out, nil
		}
		es.mu.Unlock()
	}
	return nil, store.ErrRegistrationNotFound
}

func (s *Store) ListByEvent(ctx context.Context, eventID string, filter model.Status) ([]model.Registration, error) {
	es, ok := s.eventState(eventID)
	if !ok {
		return nil, store.ErrEventNotFound
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	var regs []model.Registration
	for _, reg := range es.regs {
		if filter == "" || reg.Status == filter {
			regs = append(regs, *cloneReg(reg))
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.Before(regs[j].RegisteredAt)
	})
	return regs, nil
}

func (s *Store) ListByParticipant(ctx context.Context, participantID string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var regs []model.Registration
	for _, es := range s.events {
		es.mu.Lock()
		for _, reg := range es.regs {
			if reg.ParticipantID == participantID {
				regs = append(regs, *cloneReg(reg))
			}
		}
		es.mu.Unlock()
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].RegisteredAt.After(regs[j].RegisteredAt)
	})
	return regs, nil
}

func (s *Store) WaitlistCount(ctx context.Context, eventID string) (int, error) {
	es, ok := s.eventState(eventID)
	if !ok {
		return 0, store.ErrEventNotFound
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	n := 0
	for _, reg := range es.regs {
		if reg.Status == model.StatusWaitlisted {
			n++
		}
	}
	return n, nil
}

func (s *Store) Stats(ctx context.Context, eventID string) (model.RegistrationStats, error) {
	es, ok := s.eventState(eventID)
	if !ok {
		return model.RegistrationStats{}, store.ErrEventNotFound
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	var stats model.RegistrationStats
	for _, reg := range es.regs {
		switch reg.Status {
		case model.StatusRegistered:
			stats.Registered++
		case model.StatusWaitlisted:
			stats.Waitlisted++
		case model.StatusCancelled:
			stats.Cancelled++
		case model.StatusAttended:
			stats.Attended++
		case model.StatusNoShow:
			stats.NoShow++
		}
		stats.Total++
	}
	return stats, nil
}

// ─── Events ───────────────────────────────────────────────────────────────────

// Create inserts a new event and returns it with a generated UUID.
func (s *Store) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = &eventState{
		event: *event,
		regs:  make(map[string]*model.Registration),
	}
	return event, nil
}

// List returns all events ordered by creation time descending.
func (s *Store) List(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []model.Event
	for _, es := range s.events {
		es.mu.Lock()
		events = append(events, es.event)
		es.mu.Unlock()
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// GetByID returns a single event or store.ErrEventNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Event, error) {
	es, ok := s.eventState(id)
	if !ok {
		return nil, store.ErrEventNotFound
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	event := es.event
	return &event, nil
}

// SetEventStatus flips the registration window. Test and admin helper.
func (s *Store) SetEventStatus(ctx context.Context, id string, status model.EventStatus) error {
	es, ok := s.eventState(id)
	if !ok {
		return store.ErrEventNotFound
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	es.event.Status = status
	return nil
}
