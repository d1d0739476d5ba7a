package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

func newEvent(t *testing.T, s *Store) *model.Event {
	t.Helper()
	capacity := 10
	event, err := s.Create(context.Background(), model.CreateEventRequest{
		Name:        "Hack Night",
		OrganizerID: "org",
		Capacity:    &capacity,
		StartsAt:    time.Now(),
		EndsAt:      time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return event
}

func TestWithEvent_UnknownEvent(t *testing.T) {
	s := New()
	err := s.WithEvent(context.Background(), "nope", func(tx store.Tx) error {
		t.Fatal("callback must not run")
		return nil
	})
	require.ErrorIs(t, err, store.ErrEventNotFound)
}

func TestWithEvent_RollsBackOnError(t *testing.T) {
	s := New()
	event := newEvent(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithEvent(ctx, event.ID, func(tx store.Tx) error {
		require.NoError(t, tx.ApplyDelta(ctx, 5))
		require.NoError(t, tx.InsertRegistration(ctx, &model.Registration{
			ID:            "reg-1",
			EventID:       event.ID,
			ParticipantID: "alice",
			Status:        model.StatusRegistered,
			RegisteredAt:  time.Now(),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither the counter bump nor the insert survived.
	snap, err := s.EventSnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentCount)

	_, err = s.Registration(ctx, "reg-1")
	require.ErrorIs(t, err, store.ErrRegistrationNotFound)
}

func TestWithEvent_CommitsOnSuccess(t *testing.T) {
	s := New()
	event := newEvent(t, s)
	ctx := context.Background()

	err := s.WithEvent(ctx, event.ID, func(tx store.Tx) error {
		if err := tx.InsertRegistration(ctx, &model.Registration{
			ID:            "reg-1",
			EventID:       event.ID,
			ParticipantID: "alice",
			Status:        model.StatusRegistered,
			RegisteredAt:  time.Now(),
		}); err != nil {
			return err
		}
		return tx.ApplyDelta(ctx, 1)
	})
	require.NoError(t, err)

	snap, err := s.EventSnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentCount)

	reg, err := s.Registration(ctx, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.ParticipantID)
}

func TestWithEvent_TxReadsSeeStagedWrites(t *testing.T) {
	s := New()
	event := newEvent(t, s)
	ctx := context.Background()

	err := s.WithEvent(ctx, event.ID, func(tx store.Tx) error {
		pos := 1
		if err := tx.InsertRegistration(ctx, &model.Registration{
			ID:               "reg-1",
			EventID:          event.ID,
			ParticipantID:    "alice",
			Status:           model.StatusWaitlisted,
			WaitlistPosition: &pos,
			RegisteredAt:     time.Now(),
		}); err != nil {
			return err
		}

		regs, err := tx.Waitlisted(ctx)
		if err != nil {
			return err
		}
		require.Len(t, regs, 1)

		n, err := tx.CountByStatus(ctx, model.StatusWaitlisted)
		if err != nil {
			return err
		}
		require.Equal(t, 1, n)
		return nil
	})
	require.NoError(t, err)
}

func TestWaitlisted_OrderedByPositionThenTime(t *testing.T) {
	s := New()
	event := newEvent(t, s)
	ctx := context.Background()

	base := time.Now()
	err := s.WithEvent(ctx, event.ID, func(tx store.Tx) error {
		// Deliberately corrupted duplicate positions; arrival time breaks
		// the tie.
		for i, id := range []string{"late", "early"} {
			pos := 1
			at := base.Add(time.Duration(1-i) * time.Minute)
			if err := tx.InsertRegistration(ctx, &model.Registration{
				ID:               id,
				EventID:          event.ID,
				ParticipantID:    id,
				Status:           model.StatusWaitlisted,
				WaitlistPosition: &pos,
				RegisteredAt:     at,
			}); err != nil {
				return err
			}
		}
		regs, err := tx.Waitlisted(ctx)
		if err != nil {
			return err
		}
		require.Len(t, regs, 2)
		assert.Equal(t, "early", regs[0].ID)
		assert.Equal(t, "late", regs[1].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestReadAccessors(t *testing.T) {
	s := New()
	event := newEvent(t, s)
	other := newEvent(t, s)
	ctx := context.Background()

	err := s.WithEvent(ctx, event.ID, func(tx store.Tx) error {
		return tx.InsertRegistration(ctx, &model.Registration{
			ID:            "reg-1",
			EventID:       event.ID,
			ParticipantID: "alice",
			Status:        model.StatusRegistered,
			RegisteredAt:  time.Now(),
		})
	})
	require.NoError(t, err)

	regs, err := s.ListByEvent(ctx, event.ID, "")
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	regs, err = s.ListByEvent(ctx, other.ID, "")
	require.NoError(t, err)
	assert.Empty(t, regs)

	regs, err = s.ListByParticipant(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	n, err := s.WaitlistCount(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	events, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	got, err := s.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)

	_, err = s.GetByID(ctx, "nope")
	require.ErrorIs(t, err, store.ErrEventNotFound)
}
