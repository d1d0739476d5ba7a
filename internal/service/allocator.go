package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/notify"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

// Register enrolls a participant into an event. When a seat is free the
// record is created REGISTERED and the capacity counter incremented; when the
// event is full the record joins the waitlist at the tail. Record write and
// counter update share one atomic unit, and every precondition is re-verified
// inside it, so an eligibility answer that went stale between check and call
// cannot overbook the event or duplicate a registration.
func (s *RegistrationService) Register(ctx context.Context, eventID, participantID string) (*model.RegisterResult, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if participantID == "" {
		return nil, fmt.Errorf("participant_id is required")
	}

	var result model.RegisterResult
	err := s.withRetry(ctx, func() error {
		result = model.RegisterResult{}
		return s.store.WithEvent(ctx, eventID, func(tx store.Tx) error {
			snap, err := tx.Snapshot(ctx)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			if !snap.Open(now) {
				return ErrEventNotOpen
			}
			active, err := tx.ActiveRegistration(ctx, participantID)
			if err != nil {
				return err
			}
			if active != nil {
				return ErrAlreadyRegistered
			}

			reg := &model.Registration{
				ID:            uuid.New().String(),
				EventID:       eventID,
				ParticipantID: participantID,
				RegisteredAt:  now,
			}
			if snap.HasCapacity() {
				reg.Status = model.StatusRegistered
				if err := tx.InsertRegistration(ctx, reg); err != nil {
					return err
				}
				if err := tx.ApplyDelta(ctx, 1); err != nil {
					return err
				}
			} else {
				pos, err := nextPosition(ctx, tx)
				if err != nil {
					return err
				}
				reg.Status = model.StatusWaitlisted
				reg.WaitlistPosition = &pos
				if err := tx.InsertRegistration(ctx, reg); err != nil {
					return err
				}
			}
			result = model.RegisterResult{
				Registration: reg,
				Waitlisted:   reg.Status == model.StatusWaitlisted,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Post-commit: emission never holds the event lock.
	if result.Waitlisted {
		s.emitter.Emit(ctx, notify.KindWaitlisted, participantID, eventID,
			map[string]any{"position": *result.Registration.WaitlistPosition})
	} else {
		s.emitter.Emit(ctx, notify.KindRegistrationConfirmed, participantID, eventID, nil)
	}
	return &result, nil
}

// Cancel transitions a record to CANCELLED. Cancelling a REGISTERED record
// frees a seat and promotes the head of the waitlist, if any, inside the same
// atomic unit; the counter nets to zero when a promotion occurs and -1 when
// the waitlist was empty. Cancelling a WAITLISTED record renumbers the
// remaining waitlist. A second cancel of the same record fails with
// ErrAlreadyCancelled.
func (s *RegistrationService) Cancel(ctx context.Context, registrationID, actingParticipantID string) (*model.CancelResult, error) {
	if registrationID == "" {
		return nil, fmt.Errorf("registration id is required")
	}
	if actingParticipantID == "" {
		return nil, fmt.Errorf("participant_id is required")
	}

	// The record's event never changes, so an unlocked read is enough to
	// find the event whose lock the atomic unit must take.
	located, err := s.store.Registration(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	var result model.CancelResult
	err = s.withRetry(ctx, func() error {
		result = model.CancelResult{}
		return s.store.WithEvent(ctx, located.EventID, func(tx store.Tx) error {
			reg, err := tx.Registration(ctx, registrationID)
			if err != nil {
				return err
			}
			if reg.ParticipantID != actingParticipantID {
				return ErrNotOwner
			}
			switch reg.Status {
			case model.StatusCancelled:
				return ErrAlreadyCancelled
			case model.StatusAttended, model.StatusNoShow:
				return ErrNotCancellable
			}

			now := s.now().UTC()
			wasRegistered := reg.Status == model.StatusRegistered
			reg.Status = model.StatusCancelled
			reg.CancelledAt = &now
			reg.WaitlistPosition = nil
			if err := tx.UpdateRegistration(ctx, reg); err != nil {
				return err
			}
			result.Cancelled = reg

			if !wasRegistered {
				// A waitlist departure only closes the gap it left.
				return resequence(ctx, tx)
			}

			if err := tx.ApplyDelta(ctx, -1); err != nil {
				return err
			}
			head, err := headOfQueue(ctx, tx)
			if err != nil {
				return err
			}
			if head == nil {
				return nil
			}
			head.Status = model.StatusRegistered
			head.WaitlistPosition = nil
			if err := tx.UpdateRegistration(ctx, head); err != nil {
				return err
			}
			if err := tx.ApplyDelta(ctx, 1); err != nil {
				return err
			}
			result.Promoted = head
			return resequence(ctx, tx)
		})
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, notify.KindRegistrationCancelled,
		result.Cancelled.ParticipantID, result.Cancelled.EventID, nil)
	if result.Promoted != nil {
		s.emitter.Emit(ctx, notify.KindPromotedFromWaitlist,
			result.Promoted.ParticipantID, result.Promoted.EventID, nil)
	}
	return &result, nil
}

// MarkAttendance records whether a registered participant showed up. Only the
// event organizer may call it, only after the event ended, and only on a
// REGISTERED record; it succeeds once per record. No capacity or waitlist
// effect.
func (s *RegistrationService) MarkAttendance(ctx context.Context, registrationID, organizerID string, attended bool) (*model.Registration, error) {
	if registrationID == "" {
		return nil, fmt.Errorf("registration id is required")
	}
	if organizerID == "" {
		return nil, fmt.Errorf("organizer_id is required")
	}

	located, err := s.store.Registration(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	var marked *model.Registration
	err = s.withRetry(ctx, func() error {
		return s.store.WithEvent(ctx, located.EventID, func(tx store.Tx) error {
			snap, err := tx.Snapshot(ctx)
			if err != nil {
				return err
			}
			if snap.OrganizerID != organizerID {
				return ErrNotOrganizer
			}
			now := s.now().UTC()
			if !snap.Ended(now) {
				return ErrEventNotEnded
			}
			reg, err := tx.Registration(ctx, registrationID)
			if err != nil {
				return err
			}
			if reg.Status != model.StatusRegistered {
				return ErrInvalidStatusForAttendance
			}
			if attended {
				reg.Status = model.StatusAttended
				at := now
				reg.AttendedAt = &at
			} else {
				reg.Status = model.StatusNoShow
			}
			if err := tx.UpdateRegistration(ctx, reg); err != nil {
				return err
			}
			marked = reg
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return marked, nil
}

// clockAt is a test seam: it pins the service clock to a fixed instant.
func (s *RegistrationService) clockAt(t time.Time) {
	s.now = func() time.Time { return t }
}
