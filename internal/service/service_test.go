package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
)

func TestCreateEvent_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	starts := time.Now().Add(time.Hour)
	ends := starts.Add(2 * time.Hour)

	tests := []struct {
		name string
		req  model.CreateEventRequest
	}{
		{
			name: "missing name",
			req:  model.CreateEventRequest{OrganizerID: "org", StartsAt: starts, EndsAt: ends},
		},
		{
			name: "blank name",
			req:  model.CreateEventRequest{Name: "   ", OrganizerID: "org", StartsAt: starts, EndsAt: ends},
		},
		{
			name: "missing organizer",
			req:  model.CreateEventRequest{Name: "Talk", StartsAt: starts, EndsAt: ends},
		},
		{
			name: "zero capacity",
			req:  model.CreateEventRequest{Name: "Talk", OrganizerID: "org", Capacity: intPtr(0), StartsAt: starts, EndsAt: ends},
		},
		{
			name: "negative capacity",
			req:  model.CreateEventRequest{Name: "Talk", OrganizerID: "org", Capacity: intPtr(-5), StartsAt: starts, EndsAt: ends},
		},
		{
			name: "huge capacity",
			req:  model.CreateEventRequest{Name: "Talk", OrganizerID: "org", Capacity: intPtr(200_000), StartsAt: starts, EndsAt: ends},
		},
		{
			name: "missing times",
			req:  model.CreateEventRequest{Name: "Talk", OrganizerID: "org"},
		},
		{
			name: "ends before starts",
			req:  model.CreateEventRequest{Name: "Talk", OrganizerID: "org", StartsAt: ends, EndsAt: starts},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateEvent(ctx, tc.req)
			require.Error(t, err)
		})
	}
}

func TestCreateEvent_UnboundedCapacityAllowed(t *testing.T) {
	svc, _, _ := newTestService(t)

	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Name:        "Open Lecture",
		OrganizerID: "org",
		StartsAt:    time.Now().Add(time.Hour),
		EndsAt:      time.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Nil(t, event.Capacity)
	assert.Equal(t, model.EventOpen, event.Status)
}

func TestListByEvent_StatusFilter(t *testing.T) {
	svc, _, _ := newTestService(t)
	event := createEvent(t, svc, intPtr(1))
	ctx := context.Background()

	_, err := svc.Register(ctx, event.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Register(ctx, event.ID, "bob")
	require.NoError(t, err)

	registered, err := svc.ListByEvent(ctx, event.ID, model.StatusRegistered)
	require.NoError(t, err)
	require.Len(t, registered, 1)
	assert.Equal(t, "alice", registered[0].ParticipantID)

	waitlisted, err := svc.ListByEvent(ctx, event.ID, model.StatusWaitlisted)
	require.NoError(t, err)
	require.Len(t, waitlisted, 1)
	assert.Equal(t, "bob", waitlisted[0].ParticipantID)

	_, err = svc.ListByEvent(ctx, event.ID, model.Status("BOGUS"))
	require.Error(t, err)
}

func TestListByParticipant_SpansEvents(t *testing.T) {
	svc, _, _ := newTestService(t)
	first := createEvent(t, svc, intPtr(5))
	second := createEvent(t, svc, intPtr(5))
	ctx := context.Background()

	_, err := svc.Register(ctx, first.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Register(ctx, second.ID, "alice")
	require.NoError(t, err)

	regs, err := svc.ListByParticipant(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}

func TestWaitlistCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	event := createEvent(t, svc, intPtr(1))
	ctx := context.Background()

	n, err := svc.WaitlistCount(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = svc.Register(ctx, event.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Register(ctx, event.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Register(ctx, event.ID, "carol")
	require.NoError(t, err)

	n, err = svc.WaitlistCount(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	event := createEvent(t, svc, intPtr(2))
	ctx := context.Background()

	alice, err := svc.Register(ctx, event.ID, "alice")
	require.NoError(t, err)
	bob, err := svc.Register(ctx, event.ID, "bob")
	require.NoError(t, err)
	_, err = svc.Register(ctx, event.ID, "carol")
	require.NoError(t, err)

	svc.clockAt(event.EndsAt.Add(time.Minute))
	_, err = svc.MarkAttendance(ctx, alice.Registration.ID, "organizer-1", true)
	require.NoError(t, err)
	_, err = svc.MarkAttendance(ctx, bob.Registration.ID, "organizer-1", false)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStats{
		Registered: 0,
		Waitlisted: 1,
		Cancelled:  0,
		Attended:   1,
		NoShow:     1,
		Total:      3,
	}, stats)
}
