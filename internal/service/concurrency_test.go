package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
)

// TestRegister_ConcurrentOverCapacity fires N parallel registrations at an
// event with capacity K. Exactly K must land REGISTERED, the other N-K must
// be waitlisted with dense positions 1..N-K, and the counter must equal K.
func TestRegister_ConcurrentOverCapacity(t *testing.T) {
	const (
		capacity     = 10
		participants = 50
	)

	svc, _, _ := newTestService(t)
	event := createEvent(t, svc, intPtr(capacity))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, participants)
	for i := 0; i < participants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, event.ID, fmt.Sprintf("participant-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "participant-%d", i)
	}

	stats, err := svc.Stats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, stats.Registered)
	assert.Equal(t, participants-capacity, stats.Waitlisted)

	snap, err := svc.store.EventSnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, snap.CurrentCount)

	// Positions are exactly {1..N-K}, no duplicates or holes.
	waitlisted, err := svc.ListByEvent(ctx, event.ID, model.StatusWaitlisted)
	require.NoError(t, err)
	seen := make(map[int]bool)
	for _, reg := range waitlisted {
		require.NotNil(t, reg.WaitlistPosition)
		pos := *reg.WaitlistPosition
		assert.False(t, seen[pos], "duplicate position %d", pos)
		seen[pos] = true
		assert.GreaterOrEqual(t, pos, 1)
		assert.LessOrEqual(t, pos, participants-capacity)
	}
	assert.Len(t, seen, participants-capacity)
}

// TestRegister_ConcurrentDuplicates races the same participant against one
// event: exactly one attempt wins, the rest fail with ErrAlreadyRegistered.
func TestRegister_ConcurrentDuplicates(t *testing.T) {
	const attempts = 20

	svc, _, _ := newTestService(t)
	event := createEvent(t, svc, intPtr(100))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, event.ID, "alice")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, ErrAlreadyRegistered)
		}
	}
	assert.Equal(t, 1, won)

	regs, err := svc.ListByEvent(ctx, event.ID, "")
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

// TestCancel_ConcurrentPromotions cancels every seat holder in parallel on a
// full event with a deep waitlist. Each freed seat must promote exactly one
// record: the event stays at capacity and the waitlist shrinks by the number
// of cancellations, positions staying dense.
func TestCancel_ConcurrentPromotions(t *testing.T) {
	const (
		capacity   = 8
		waitlisted = 12
	)

	svc, _, _ := newTestService(t)
	event := createEvent(t, svc, intPtr(capacity))
	ctx := context.Background()

	seatIDs := make([]string, capacity)
	for i := 0; i < capacity; i++ {
		result, err := svc.Register(ctx, event.ID, fmt.Sprintf("seat-%d", i))
		require.NoError(t, err)
		seatIDs[i] = result.Registration.ID
	}
	for i := 0; i < waitlisted; i++ {
		_, err := svc.Register(ctx, event.ID, fmt.Sprintf("queued-%d", i))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i, id := range seatIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := svc.Cancel(ctx, id, fmt.Sprintf("seat-%d", i))
			assert.NoError(t, err)
		}(i, id)
	}
	wg.Wait()

	stats, err := svc.Stats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, stats.Registered, "every freed seat promotes exactly one record")
	assert.Equal(t, waitlisted-capacity, stats.Waitlisted)
	assert.Equal(t, capacity, stats.Cancelled)

	snap, err := svc.store.EventSnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, snap.CurrentCount)

	remaining, err := svc.ListByEvent(ctx, event.ID, model.StatusWaitlisted)
	require.NoError(t, err)
	seen := make(map[int]bool)
	for _, reg := range remaining {
		require.NotNil(t, reg.WaitlistPosition)
		seen[*reg.WaitlistPosition] = true
	}
	for pos := 1; pos <= waitlisted-capacity; pos++ {
		assert.True(t, seen[pos], "missing position %d", pos)
	}
}

// TestCancel_ConcurrentSameRecord races cancellations of one record: one
// wins, the rest see ErrAlreadyCancelled, and promotion happens once.
func TestCancel_ConcurrentSameRecord(t *testing.T) {
	const attempts = 10

	svc, _, _ := newTestService(t)
	event := createEvent(t, svc, intPtr(1))
	ctx := context.Background()

	alice, err := svc.Register(ctx, event.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Register(ctx, event.ID, "bob")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Cancel(ctx, alice.Registration.ID, "alice")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, ErrAlreadyCancelled)
		}
	}
	assert.Equal(t, 1, won)

	// Bob was promoted exactly once; the counter still reads one seat.
	stats, err := svc.Stats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Registered)
	assert.Equal(t, 0, stats.Waitlisted)

	snap, err := svc.store.EventSnapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentCount)
}
