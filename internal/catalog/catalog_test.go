package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/apperr"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/testutil"
)

func TestCourtScheduleResolvesHoursAndLocation(t *testing.T) {
	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database, "America/New_York", "07:00", "21:00")
	store := NewStore(database.Queries)

	date := time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC)
	schedule, err := store.CourtSchedule(context.Background(), venue.Court.ID, date)
	if err != nil {
		t.Fatalf("court schedule: %v", err)
	}
	if !schedule.Hours.Open {
		t.Fatal("expected facility to be open")
	}
	if schedule.Hours.OpensAt != "07:00" || schedule.Hours.ClosesAt != "21:00" {
		t.Fatalf("hours: got %s-%s", schedule.Hours.OpensAt, schedule.Hours.ClosesAt)
	}
	if schedule.Location.String() != "America/New_York" {
		t.Fatalf("location: got %s", schedule.Location)
	}
	if schedule.Facility.ID != venue.Facility.ID {
		t.Fatalf("facility: got %d want %d", schedule.Facility.ID, venue.Facility.ID)
	}
}

func TestCourtScheduleClosedDay(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	facility, err := database.Queries.CreateFacility(ctx, dbgen.CreateFacilityParams{Name: "Weekday Club", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("create facility: %v", err)
	}
	if _, err := database.Queries.UpsertOperatingHours(ctx, dbgen.UpsertOperatingHoursParams{
		FacilityID: facility.ID,
		DayOfWeek:  int64(time.Monday),
		OpensAt:    "08:00",
		ClosesAt:   "20:00",
	}); err != nil {
		t.Fatalf("create hours: %v", err)
	}
	court := testutil.SeedCourt(t, database, facility.ID, 1)
	store := NewStore(database.Queries)

	sunday := time.Date(2030, time.March, 3, 0, 0, 0, 0, time.UTC)
	schedule, err := store.CourtSchedule(ctx, court.ID, sunday)
	if err != nil {
		t.Fatalf("court schedule: %v", err)
	}
	if schedule.Hours.Open {
		t.Fatal("expected facility to be closed on sunday")
	}
}

func TestGetCourtNotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	store := NewStore(database.Queries)

	_, err := store.GetCourt(context.Background(), 9999)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
