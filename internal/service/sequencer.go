package service

import (
	"context"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/model"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

// The waitlist sequencer keeps positions dense: for W waitlisted records the
// positions are exactly 1..W, FIFO by arrival. All helpers run inside the
// event's atomic unit; computing a next position outside it would let two
// concurrent registrations claim the same slot.

// nextPosition returns one past the current maximum position, or 1 when the
// waitlist is empty.
func nextPosition(ctx context.Context, tx store.Tx) (int, error) {
	regs, err := tx.Waitlisted(ctx)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, reg := range regs {
		if reg.WaitlistPosition != nil && *reg.WaitlistPosition > max {
			max = *reg.WaitlistPosition
		}
	}
	return max + 1, nil
}

// headOfQueue returns the waitlisted record with the lowest position, or nil
// when the waitlist is empty. Ties on position break by registration time,
// so FIFO order survives even if stored positions were corrupted.
func headOfQueue(ctx context.Context, tx store.Tx) (*model.Registration, error) {
	regs, err := tx.Waitlisted(ctx)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, nil
	}
	head := regs[0]
	return &head, nil
}

// resequence rewrites the remaining waitlist to 1..W. The store returns
// records ordered by (position, registered_at); a single batched rewrite of
// the records whose position changed restores density after any removal and
// doubles as the recovery path for corrupted positions.
func resequence(ctx context.Context, tx store.Tx) error {
	regs, err := tx.Waitlisted(ctx)
	if err != nil {
		return err
	}
	positions := make(map[string]int)
	for i, reg := range regs {
		want := i + 1
		if reg.WaitlistPosition == nil || *reg.WaitlistPosition != want {
			positions[reg.ID] = want
		}
	}
	return tx.UpdateWaitlistPositions(ctx, positions)
}
