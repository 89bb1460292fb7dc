package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// Venue is a seeded facility with one court open every day.
type Venue struct {
	Facility dbgen.Facility
	Court    dbgen.Court
}

// SeedVenue creates a facility in tz with a single court, open opens-closes on every weekday.
func SeedVenue(t *testing.T, database *db.DB, tz, opens, closes string) Venue {
	t.Helper()
	ctx := context.Background()

	facility, err := database.Queries.CreateFacility(ctx, dbgen.CreateFacilityParams{
		Name:     "Test Facility",
		Timezone: tz,
	})
	if err != nil {
		t.Fatalf("create facility: %v", err)
	}
	for day := int64(0); day < 7; day++ {
		if _, err := database.Queries.UpsertOperatingHours(ctx, dbgen.UpsertOperatingHoursParams{
			FacilityID: facility.ID,
			DayOfWeek:  day,
			OpensAt:    opens,
			ClosesAt:   closes,
		}); err != nil {
			t.Fatalf("create operating hours: %v", err)
		}
	}
	court := SeedCourt(t, database, facility.ID, 1)

	return Venue{Facility: facility, Court: court}
}

func SeedCourt(t *testing.T, database *db.DB, facilityID, number int64) dbgen.Court {
	t.Helper()

	court, err := database.Queries.CreateCourt(context.Background(), dbgen.CreateCourtParams{
		FacilityID:  facilityID,
		Name:        fmt.Sprintf("Court %d", number),
		CourtNumber: number,
		Status:      "active",
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	return court
}

var userSeq atomic.Int64

// SeedUser creates a customer with a unique email.
func SeedUser(t *testing.T, database *db.DB, name string) dbgen.User {
	t.Helper()
	return SeedUserWithRole(t, database, name, "customer", sql.NullInt64{})
}

func SeedUserWithRole(t *testing.T, database *db.DB, name, role string, homeFacility sql.NullInt64) dbgen.User {
	t.Helper()

	user, err := database.Queries.CreateUser(context.Background(), dbgen.CreateUserParams{
		Email:          fmt.Sprintf("%s-%d@example.com", name, userSeq.Add(1)),
		DisplayName:    name,
		Role:           role,
		HomeFacilityID: homeFacility,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

// SeedUsers creates n customers named prefix1..prefixN.
func SeedUsers(t *testing.T, database *db.DB, prefix string, n int) []dbgen.User {
	t.Helper()

	users := make([]dbgen.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, SeedUser(t, database, fmt.Sprintf("%s%d", prefix, i)))
	}
	return users
}

// Clock is a settable clock for tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
