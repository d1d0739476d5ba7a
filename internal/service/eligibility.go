package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
)

// CheckEligibility answers "can this participant register now" without
// mutating anything. It applies the same rules as Register, so a positive
// verdict is contradicted by Register only when a genuine race closed the
// last seat or created the registration in between; the verdict is advisory,
// Register is authoritative.
func (s *RegistrationService) CheckEligibility(ctx context.Context, participantID, eventID string) (*model.Eligibility, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if participantID == "" {
		return nil, fmt.Errorf("participant_id is required")
	}

	snap, err := s.store.EventSnapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}

	verdict := &model.Eligibility{
		HasCapacity:    snap.HasCapacity(),
		AvailableSpots: snap.AvailableSpots(),
	}
	if !snap.Open(s.now().UTC()) {
		verdict.Reason = ErrEventNotOpen.Error()
		return verdict, nil
	}

	regs, err := s.store.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	for _, reg := range regs {
		if reg.EventID == eventID && reg.Status.Active() {
			verdict.Reason = ErrAlreadyRegistered.Error()
			return verdict, nil
		}
	}

	verdict.Eligible = true
	verdict.WillBeWaitlisted = !verdict.HasCapacity
	return verdict, nil
}
