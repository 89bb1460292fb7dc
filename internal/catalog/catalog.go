// Package catalog answers questions about facilities, their courts and
// operating hours. The booking engine treats it as a read-only collaborator.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/codr1/Courtside/internal/apperr"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
)

type Catalog interface {
	GetCourt(ctx context.Context, courtID int64) (dbgen.Court, error)
	CourtSchedule(ctx context.Context, courtID int64, date time.Time) (Schedule, error)
	ListFacilities(ctx context.Context) ([]dbgen.Facility, error)
}

// Hours is a facility's opening window for one weekday. Open is false when the
// facility has no hours that day.
type Hours struct {
	Open     bool
	OpensAt  string
	ClosesAt string
}

// Schedule is everything needed to validate a slot on one court for one date.
type Schedule struct {
	Court    dbgen.Court
	Facility dbgen.Facility
	Location *time.Location
	Hours    Hours
}

type Store struct {
	q *dbgen.Queries
}

func NewStore(q *dbgen.Queries) *Store {
	return &Store{q: q}
}

func (s *Store) GetCourt(ctx context.Context, courtID int64) (dbgen.Court, error) {
	court, err := s.q.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Court{}, apperr.NotFound("court", courtID)
		}
		return dbgen.Court{}, fmt.Errorf("get court %d: %w", courtID, err)
	}
	return court, nil
}

// CourtSchedule resolves the court, its facility, the facility time zone and the
// operating hours for date's weekday.
func (s *Store) CourtSchedule(ctx context.Context, courtID int64, date time.Time) (Schedule, error) {
	court, err := s.GetCourt(ctx, courtID)
	if err != nil {
		return Schedule{}, err
	}

	facility, err := s.q.GetFacility(ctx, court.FacilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Schedule{}, apperr.NotFound("facility", court.FacilityID)
		}
		return Schedule{}, fmt.Errorf("get facility %d: %w", court.FacilityID, err)
	}

	loc, err := FacilityLocation(facility)
	if err != nil {
		return Schedule{}, err
	}

	schedule := Schedule{Court: court, Facility: facility, Location: loc}

	hours, err := s.q.GetOperatingHours(ctx, dbgen.GetOperatingHoursParams{
		FacilityID: facility.ID,
		DayOfWeek:  int64(date.Weekday()),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule, nil
		}
		return Schedule{}, fmt.Errorf("get operating hours for facility %d: %w", facility.ID, err)
	}
	schedule.Hours = Hours{Open: true, OpensAt: hours.OpensAt, ClosesAt: hours.ClosesAt}

	return schedule, nil
}

func (s *Store) ListFacilities(ctx context.Context) ([]dbgen.Facility, error) {
	facilities, err := s.q.ListFacilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	return facilities, nil
}

// FacilityLocation loads the facility's IANA time zone, defaulting to UTC when unset.
func FacilityLocation(facility dbgen.Facility) (*time.Location, error) {
	tz := strings.TrimSpace(facility.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load location %q for facility %d: %w", tz, facility.ID, err)
	}
	return loc, nil
}
