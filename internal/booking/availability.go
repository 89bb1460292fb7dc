package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

// SlotOf rebuilds the slot a stored booking occupies.
func SlotOf(b dbgen.Booking) (Slot, error) {
	slot, err := ParseSlot(b.CourtID, b.BookingDate, b.StartTime, b.EndTime)
	if err != nil {
		return Slot{}, fmt.Errorf("booking %d has malformed slot: %w", b.ID, err)
	}
	return slot, nil
}

// findConflict returns the first active booking overlapping slot, if any.
func findConflict(ctx context.Context, q *dbgen.Queries, slot Slot) (*dbgen.Booking, error) {
	active, err := q.ListActiveBookingsForCourtDate(ctx, dbgen.ListActiveBookingsForCourtDateParams{
		CourtID:     slot.CourtID,
		BookingDate: slot.DateString(),
	})
	if err != nil {
		return nil, fmt.Errorf("list active bookings for court %d: %w", slot.CourtID, err)
	}
	for i := range active {
		existing, err := SlotOf(active[i])
		if err != nil {
			return nil, err
		}
		if Overlaps(slot, existing) {
			return &active[i], nil
		}
	}
	return nil, nil
}

// CheckAvailability reports whether the window is free on the court. It
// validates the window against operating hours first and never writes.
func (e *Engine) CheckAvailability(ctx context.Context, courtID int64, date, start, end string) (bool, error) {
	slot, err := ParseSlot(courtID, date, start, end)
	if err != nil {
		return false, err
	}
	schedule, err := e.catalog.CourtSchedule(ctx, courtID, slot.Date)
	if err != nil {
		return false, err
	}
	if err := slot.WithinHours(schedule.Hours); err != nil {
		return false, err
	}

	conflict, err := findConflict(ctx, e.db.Queries, slot)
	if err != nil {
		return false, err
	}
	if conflict != nil {
		log.Ctx(ctx).Debug().
			Str("component", "booking").
			Int64("court_id", courtID).
			Int64("conflicting_booking_id", conflict.ID).
			Msg("Slot unavailable")
		return false, nil
	}
	return true, nil
}
