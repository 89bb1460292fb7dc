package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/catalog"
)

const DateLayout = "2006-01-02"

// EndOfDay is the only clock value past 23:59 a slot may use.
const EndOfDay ClockTime = 24 * 60

// ClockTime is minutes since local midnight.
type ClockTime int

// ParseClockTime accepts HH:MM or HH:MM:SS with zero seconds, and 24:00 as end of day.
func ParseClockTime(value string) (ClockTime, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("time %q must be HH:MM", value)
	}
	for _, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("time %q must be HH:MM", value)
		}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("time %q has invalid hour", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("time %q has invalid minute", value)
	}
	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || second != 0 {
			return 0, fmt.Errorf("time %q must fall on a whole minute", value)
		}
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q is out of range", value)
	}
	if hour == 24 && minute != 0 {
		return 0, fmt.Errorf("time %q is out of range", value)
	}
	return ClockTime(hour*60 + minute), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate parses a YYYY-MM-DD civil date. The result is midnight UTC.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", value)
	}
	return date, nil
}

// Slot is a normalized court reservation window on one civil date.
type Slot struct {
	CourtID int64
	Date    time.Time
	Start   ClockTime
	End     ClockTime
}

func (s Slot) DateString() string {
	return s.Date.Format(DateLayout)
}

// StartIn returns the slot start as an instant in loc.
func (s Slot) StartIn(loc *time.Location) time.Time {
	return s.at(s.Start, loc)
}

// EndIn returns the slot end as an instant in loc. 24:00 is midnight of the next day.
func (s Slot) EndIn(loc *time.Location) time.Time {
	return s.at(s.End, loc)
}

func (s Slot) at(c ClockTime, loc *time.Location) time.Time {
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, loc)
}

func (s Slot) Duration() time.Duration {
	return time.Duration(s.End-s.Start) * time.Minute
}

// ParseSlot validates formats and ordering without consulting operating hours.
func ParseSlot(courtID int64, date, start, end string) (Slot, error) {
	if courtID <= 0 {
		return Slot{}, apperr.New(apperr.KindInvalidInterval, "court id is required")
	}
	day, err := ParseDate(date)
	if err != nil {
		return Slot{}, apperr.Wrap(apperr.KindInvalidInterval, err, "%s", err.Error())
	}
	startAt, err := ParseClockTime(start)
	if err != nil {
		return Slot{}, apperr.Wrap(apperr.KindInvalidInterval, err, "start %s", err.Error())
	}
	endAt, err := ParseClockTime(end)
	if err != nil {
		return Slot{}, apperr.Wrap(apperr.KindInvalidInterval, err, "end %s", err.Error())
	}
	if startAt >= endAt {
		return Slot{}, apperr.New(apperr.KindInvalidInterval, "start %s must be before end %s", startAt, endAt)
	}
	return Slot{CourtID: courtID, Date: day, Start: startAt, End: endAt}, nil
}

// WithinHours checks the slot against one day's operating hours.
func (s Slot) WithinHours(hours catalog.Hours) error {
	if !hours.Open {
		return apperr.New(apperr.KindInvalidInterval, "facility is closed on %s", s.Date.Weekday())
	}
	opens, err := ParseClockTime(hours.OpensAt)
	if err != nil {
		return fmt.Errorf("operating hours open: %w", err)
	}
	closes, err := ParseClockTime(hours.ClosesAt)
	if err != nil {
		return fmt.Errorf("operating hours close: %w", err)
	}
	if s.Start < opens || s.End > closes {
		return apperr.New(apperr.KindInvalidInterval,
			"%s-%s is outside operating hours %s-%s", s.Start, s.End, opens, closes)
	}
	return nil
}

// NormalizeSlot parses a requested window and checks it against operating hours.
func NormalizeSlot(courtID int64, date, start, end string, hours catalog.Hours) (Slot, error) {
	slot, err := ParseSlot(courtID, date, start, end)
	if err != nil {
		return Slot{}, err
	}
	if err := slot.WithinHours(hours); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// Overlaps reports whether two slots on the same court and date conflict.
// Windows are half-open, so touching boundaries do not conflict.
func Overlaps(a, b Slot) bool {
	if a.CourtID != b.CourtID || !a.Date.Equal(b.Date) {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}
