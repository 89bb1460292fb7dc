package booking

import (
	"context"
	"testing"
	"time"

	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/testutil"
)

func TestHandleNoShowsIsIdempotent(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.RequireConfirmation = false })
	ctx := context.Background()
	alice := testutil.SeedUser(t, h.db, "alice")

	missed := h.book(t, alice.ID, "10:00", "11:00")
	attended := h.book(t, alice.ID, "08:00", "09:00")
	later := h.book(t, alice.ID, "12:00", "13:00")

	h.clock.Set(time.Date(2030, time.March, 4, 8, 50, 0, 0, time.UTC))
	if _, err := h.engine.CheckInBooking(ctx, attended.ID, alice.ID); err != nil {
		t.Fatalf("check in: %v", err)
	}

	// Exactly at the end of the slot the booking is not yet a no-show.
	h.clock.Set(time.Date(2030, time.March, 4, 11, 0, 0, 0, time.UTC))
	result, err := h.engine.HandleNoShows(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.MarkedBookingIDs) != 0 {
		t.Fatalf("expected nothing marked at slot end, got %v", result.MarkedBookingIDs)
	}

	h.clock.Set(time.Date(2030, time.March, 4, 11, 1, 0, 0, time.UTC))
	result, err = h.engine.HandleNoShows(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.MarkedBookingIDs) != 1 || result.MarkedBookingIDs[0] != missed.ID {
		t.Fatalf("marked: got %v want [%d]", result.MarkedBookingIDs, missed.ID)
	}

	again, err := h.engine.HandleNoShows(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(again.MarkedBookingIDs) != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %v", again.MarkedBookingIDs)
	}

	for id, want := range map[int64]string{
		missed.ID:   StatusNoShow,
		attended.ID: StatusCheckedIn,
		later.ID:    StatusConfirmed,
	} {
		b, err := h.engine.GetBooking(ctx, id)
		if err != nil {
			t.Fatalf("get booking %d: %v", id, err)
		}
		if b.Status != want {
			t.Fatalf("booking %d: got %s want %s", id, b.Status, want)
		}
	}

	noShowFacts := 0
	for _, fact := range h.events.Facts() {
		if fact.Type == events.BookingNoShow {
			noShowFacts++
		}
	}
	if noShowFacts != 1 {
		t.Fatalf("no-show facts: got %d want 1", noShowFacts)
	}
}

func TestHandleNoShowsIgnoresPendingBookings(t *testing.T) {
	h := newHarness(t, nil)
	alice := testutil.SeedUser(t, h.db, "alice")
	pending := h.book(t, alice.ID, "10:00", "11:00")

	h.clock.Set(time.Date(2030, time.March, 5, 9, 0, 0, 0, time.UTC))
	result, err := h.engine.HandleNoShows(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.MarkedBookingIDs) != 0 {
		t.Fatalf("expected pending booking %d to be skipped, got %v", pending.ID, result.MarkedBookingIDs)
	}
}

func TestHandleNoShowsUsesFacilityTimezone(t *testing.T) {
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database, "America/New_York", "06:00", "22:00")
	alice := testutil.SeedUser(t, database, "alice")
	ctx := context.Background()

	b, err := database.Queries.CreateBooking(ctx, dbgen.CreateBookingParams{
		CourtID:     venue.Court.ID,
		UserID:      alice.ID,
		BookingDate: testDate,
		StartTime:   "10:00",
		EndTime:     "11:00",
		Status:      StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	// 11:00 EST is 16:00 UTC on this date.
	result, err := HandleNoShows(ctx, database, time.Date(2030, time.March, 4, 15, 30, 0, 0, time.UTC), NoShowOptions{})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.MarkedBookingIDs) != 0 {
		t.Fatalf("expected booking to still be running, got %v", result.MarkedBookingIDs)
	}

	result, err = HandleNoShows(ctx, database, time.Date(2030, time.March, 4, 16, 1, 0, 0, time.UTC), NoShowOptions{})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.MarkedBookingIDs) != 1 || result.MarkedBookingIDs[0] != b.ID {
		t.Fatalf("marked: got %v want [%d]", result.MarkedBookingIDs, b.ID)
	}
}

func TestHandleNoShowsReportsOrphanedMatches(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.RequireConfirmation = false })
	ctx := context.Background()
	alice := testutil.SeedUser(t, h.db, "alice")

	b := h.book(t, alice.ID, "10:00", "11:00")
	match, err := h.db.Queries.CreateMatch(ctx, dbgen.CreateMatchParams{
		BookingID:     b.ID,
		CreatorUserID: alice.ID,
		SportID:       1,
		TeamSize:      2,
		TeamCount:     2,
		Title:         "Evening doubles",
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}

	h.clock.Set(time.Date(2030, time.March, 4, 12, 0, 0, 0, time.UTC))
	result, err := h.engine.HandleNoShows(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(result.OrphanedMatchIDs) != 1 || result.OrphanedMatchIDs[0] != match.ID {
		t.Fatalf("orphaned: got %v want [%d]", result.OrphanedMatchIDs, match.ID)
	}

	reloaded, err := h.db.Queries.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if reloaded.Status != "open" {
		t.Fatalf("expected match to be left open, got %s", reloaded.Status)
	}
}
