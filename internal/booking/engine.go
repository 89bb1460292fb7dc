package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/catalog"
	"github.com/codr1/Courtside/internal/clock"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/identity"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCheckedIn = "checked_in"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

const (
	defaultInsertRetryAttempts = 3
	retryBackoff               = 25 * time.Millisecond
	courtStatusActive          = "active"
)

// IsActive reports whether a booking in status still holds its slot.
func IsActive(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

func validStatus(status string) bool {
	return IsActive(status) || status == StatusCancelled || status == StatusNoShow
}

// MatchCascade lets booking cancellation reach the match attached to it. The
// implementation runs on the caller's transaction and returns facts to emit
// after commit.
type MatchCascade interface {
	CancelForBooking(ctx context.Context, q *dbgen.Queries, bookingID int64, at time.Time) ([]events.Fact, error)
}

type BookingRequest struct {
	CourtID         int64  `json:"court_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

type Options struct {
	RequireConfirmation bool
	EarlyCheckIn        time.Duration
	InsertRetryAttempts int
	Clock               clock.Clock
	Events              events.Emitter
	Matches             MatchCascade
}

type Engine struct {
	db      *db.DB
	catalog catalog.Catalog
	users   identity.Directory
	opts    Options
	clock   clock.Clock
	events  events.Emitter
}

func NewEngine(database *db.DB, cat catalog.Catalog, users identity.Directory, opts Options) (*Engine, error) {
	if database == nil {
		return nil, errors.New("booking engine requires a database")
	}
	if cat == nil || users == nil {
		return nil, errors.New("booking engine requires a catalog and a user directory")
	}
	if opts.InsertRetryAttempts <= 0 {
		opts.InsertRetryAttempts = defaultInsertRetryAttempts
	}
	return &Engine{
		db:      database,
		catalog: cat,
		users:   users,
		opts:    opts,
		clock:   clock.OrReal(opts.Clock),
		events:  events.OrDiscard(opts.Events),
	}, nil
}

// BookCourt reserves a slot. The conflict check and the insert share one
// immediate transaction; the bookings trigger rejects any overlap that slips past.
func (e *Engine) BookCourt(ctx context.Context, req BookingRequest, userID int64) (dbgen.Booking, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_engine").
		Int64("court_id", req.CourtID).
		Int64("user_id", userID).
		Str("booking_date", req.Date).
		Str("start_time", req.StartTime).
		Str("end_time", req.EndTime).
		Logger()

	slot, err := ParseSlot(req.CourtID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		logger.Debug().Err(err).Msg("Rejected booking interval")
		return dbgen.Booking{}, err
	}
	if req.TotalPriceCents < 0 {
		return dbgen.Booking{}, apperr.New(apperr.KindInvalidInput, "total price must not be negative")
	}
	if _, err := e.users.GetUser(ctx, userID); err != nil {
		return dbgen.Booking{}, err
	}
	schedule, err := e.catalog.CourtSchedule(ctx, req.CourtID, slot.Date)
	if err != nil {
		return dbgen.Booking{}, err
	}
	if err := slot.WithinHours(schedule.Hours); err != nil {
		logger.Debug().Err(err).Msg("Rejected booking outside operating hours")
		return dbgen.Booking{}, err
	}
	if schedule.Court.Status != courtStatusActive {
		return dbgen.Booking{}, apperr.New(apperr.KindSlotUnavailable, "court %d is %s", req.CourtID, schedule.Court.Status)
	}

	status := StatusPending
	if !e.opts.RequireConfirmation {
		status = StatusConfirmed
	}

	var created dbgen.Booking
	for attempt := 1; ; attempt++ {
		err = e.db.RunInTx(ctx, func(txdb *db.DB) error {
			conflict, err := findConflict(ctx, txdb.Queries, slot)
			if err != nil {
				return err
			}
			if conflict != nil {
				return apperr.New(apperr.KindSlotUnavailable,
					"court %d is already booked %s-%s on %s", slot.CourtID, conflict.StartTime, conflict.EndTime, slot.DateString())
			}

			created, err = txdb.Queries.CreateBooking(ctx, dbgen.CreateBookingParams{
				CourtID:         slot.CourtID,
				UserID:          userID,
				BookingDate:     slot.DateString(),
				StartTime:       slot.Start.String(),
				EndTime:         slot.End.String(),
				Status:          status,
				TotalPriceCents: req.TotalPriceCents,
			})
			if err != nil {
				if db.IsBookingOverlap(err) {
					return apperr.Wrap(apperr.KindSlotUnavailable, err, "court %d is already booked on %s", slot.CourtID, slot.DateString())
				}
				return fmt.Errorf("create booking: %w", err)
			}
			return nil
		})
		if err == nil || !db.IsBusy(err) {
			break
		}
		if attempt >= e.opts.InsertRetryAttempts {
			logger.Warn().Err(err).Int("attempts", attempt).Msg("Booking insert contention exhausted retries")
			return dbgen.Booking{}, apperr.Wrap(apperr.KindSlotUnavailable, err, "court %d is busy, try again", slot.CourtID)
		}
		logger.Debug().Err(err).Int("attempt", attempt).Msg("Retrying contended booking insert")
		select {
		case <-ctx.Done():
			return dbgen.Booking{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	if err != nil {
		if apperr.IsKind(err, apperr.KindSlotUnavailable) {
			logger.Info().Err(err).Msg("Slot unavailable")
		} else {
			logger.Error().Err(err).Msg("Failed to create booking")
		}
		return dbgen.Booking{}, err
	}

	logger.Info().Int64("booking_id", created.ID).Str("status", created.Status).Msg("Booking created")
	e.events.Emit(ctx, bookingFact(events.BookingCreated, created, e.clock.Now()))
	return created, nil
}

// ConfirmBooking moves a pending booking to confirmed. Only the owner may confirm.
func (e *Engine) ConfirmBooking(ctx context.Context, bookingID, userID int64) (dbgen.Booking, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_engine").
		Int64("booking_id", bookingID).
		Int64("user_id", userID).
		Logger()

	var updated dbgen.Booking
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		current, err := loadBooking(ctx, txdb.Queries, bookingID)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return apperr.New(apperr.KindNotOwner, "booking %d belongs to another user", bookingID)
		}
		if current.Status != StatusPending {
			return apperr.Transition("booking", bookingID, current.Status, StatusConfirmed)
		}
		updated, err = txdb.Queries.ConfirmBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("confirm booking %d: %w", bookingID, err)
		}
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to confirm booking")
		return dbgen.Booking{}, err
	}

	logger.Info().Msg("Booking confirmed")
	e.events.Emit(ctx, bookingFact(events.BookingConfirmed, updated, e.clock.Now()))
	return updated, nil
}

// CancelBooking cancels a pending or confirmed booking. The owner, an admin, or
// an owner-role user of the court's facility may cancel. An open or full match
// on the booking is cancelled in the same transaction.
func (e *Engine) CancelBooking(ctx context.Context, bookingID, userID int64) (dbgen.Booking, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_engine").
		Int64("booking_id", bookingID).
		Int64("user_id", userID).
		Logger()

	actor, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return dbgen.Booking{}, err
	}

	now := e.clock.Now()
	var updated dbgen.Booking
	var cascaded []events.Fact
	err = e.db.RunInTx(ctx, func(txdb *db.DB) error {
		current, err := loadBooking(ctx, txdb.Queries, bookingID)
		if err != nil {
			return err
		}
		if current.UserID != actor.ID {
			court, err := e.catalog.GetCourt(ctx, current.CourtID)
			if err != nil {
				return err
			}
			if !actor.CanOperateFacility(court.FacilityID) {
				return apperr.New(apperr.KindNotOwner, "booking %d belongs to another user", bookingID)
			}
		}
		if current.Status != StatusPending && current.Status != StatusConfirmed {
			return apperr.Transition("booking", bookingID, current.Status, StatusCancelled)
		}

		if e.opts.Matches != nil {
			cascaded, err = e.opts.Matches.CancelForBooking(ctx, txdb.Queries, bookingID, now)
			if err != nil {
				return err
			}
		}

		updated, err = txdb.Queries.CancelBooking(ctx, dbgen.CancelBookingParams{
			CancelledAt: sql.NullTime{Time: now, Valid: true},
			ID:          bookingID,
		})
		if err != nil {
			return fmt.Errorf("cancel booking %d: %w", bookingID, err)
		}
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to cancel booking")
		return dbgen.Booking{}, err
	}

	logger.Info().Int("cascaded_facts", len(cascaded)).Msg("Booking cancelled")
	events.EmitAll(ctx, e.events, cascaded)
	e.events.Emit(ctx, bookingFact(events.BookingCancelled, updated, now))
	return updated, nil
}

// CheckInBooking records the owner's arrival. Check-in opens EarlyCheckIn
// before the slot starts and closes when it ends, in facility local time.
func (e *Engine) CheckInBooking(ctx context.Context, bookingID, ownerID int64) (dbgen.Booking, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_engine").
		Int64("booking_id", bookingID).
		Int64("user_id", ownerID).
		Logger()

	now := e.clock.Now()
	var updated dbgen.Booking
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		current, err := loadBooking(ctx, txdb.Queries, bookingID)
		if err != nil {
			return err
		}
		if current.UserID != ownerID {
			return apperr.New(apperr.KindNotOwner, "booking %d belongs to another user", bookingID)
		}
		if current.Status != StatusConfirmed {
			return apperr.Transition("booking", bookingID, current.Status, StatusCheckedIn)
		}

		slot, err := SlotOf(current)
		if err != nil {
			return err
		}
		schedule, err := e.catalog.CourtSchedule(ctx, current.CourtID, slot.Date)
		if err != nil {
			return err
		}
		opensAt := slot.StartIn(schedule.Location).Add(-e.opts.EarlyCheckIn)
		closesAt := slot.EndIn(schedule.Location)
		if now.Before(opensAt) || !now.Before(closesAt) {
			return apperr.New(apperr.KindOutsideCheckInWindow,
				"check-in for booking %d is open from %s until %s",
				bookingID, opensAt.Format(time.RFC3339), closesAt.Format(time.RFC3339))
		}

		updated, err = MarkCheckedIn(ctx, txdb.Queries, current, now)
		return err
	})
	if err != nil {
		logRejection(logger, err, "Failed to check in booking")
		return dbgen.Booking{}, err
	}

	logger.Info().Msg("Booking checked in")
	e.events.Emit(ctx, bookingFact(events.BookingCheckedIn, updated, now))
	return updated, nil
}

// MarkCheckedIn moves a confirmed booking to checked_in on the caller's transaction.
func MarkCheckedIn(ctx context.Context, q *dbgen.Queries, current dbgen.Booking, at time.Time) (dbgen.Booking, error) {
	if current.Status != StatusConfirmed {
		return dbgen.Booking{}, apperr.Transition("booking", current.ID, current.Status, StatusCheckedIn)
	}
	updated, err := q.CheckInBooking(ctx, dbgen.CheckInBookingParams{
		CheckInAt: sql.NullTime{Time: at, Valid: true},
		ID:        current.ID,
	})
	if err != nil {
		return dbgen.Booking{}, fmt.Errorf("check in booking %d: %w", current.ID, err)
	}
	return updated, nil
}

// ConfirmPending confirms a pending booking on the caller's transaction.
func ConfirmPending(ctx context.Context, q *dbgen.Queries, current dbgen.Booking) (dbgen.Booking, error) {
	if current.Status != StatusPending {
		return dbgen.Booking{}, apperr.Transition("booking", current.ID, current.Status, StatusConfirmed)
	}
	updated, err := q.ConfirmBooking(ctx, current.ID)
	if err != nil {
		return dbgen.Booking{}, fmt.Errorf("confirm booking %d: %w", current.ID, err)
	}
	return updated, nil
}

func (e *Engine) GetBooking(ctx context.Context, bookingID int64) (dbgen.Booking, error) {
	return loadBooking(ctx, e.db.Queries, bookingID)
}

// GetBookingsForCourt lists every booking on the court for the date, in start order.
func (e *Engine) GetBookingsForCourt(ctx context.Context, courtID int64, date string) ([]dbgen.Booking, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInterval, err, "%s", err.Error())
	}
	if _, err := e.catalog.GetCourt(ctx, courtID); err != nil {
		return nil, err
	}
	bookings, err := e.db.Queries.ListBookingsForCourtDate(ctx, dbgen.ListBookingsForCourtDateParams{
		CourtID:     courtID,
		BookingDate: day.Format(DateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings for court %d: %w", courtID, err)
	}
	return bookings, nil
}

func (e *Engine) GetBookingsForFacility(ctx context.Context, facilityID int64, date string) ([]dbgen.Booking, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInterval, err, "%s", err.Error())
	}
	bookings, err := e.db.Queries.ListBookingsForFacilityDate(ctx, dbgen.ListBookingsForFacilityDateParams{
		FacilityID:  facilityID,
		BookingDate: day.Format(DateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings for facility %d: %w", facilityID, err)
	}
	return bookings, nil
}

// GetUserBookings lists a user's bookings, newest first. An empty status lists all.
func (e *Engine) GetUserBookings(ctx context.Context, userID int64, status string) ([]dbgen.Booking, error) {
	if status == "" {
		bookings, err := e.db.Queries.ListBookingsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list bookings for user %d: %w", userID, err)
		}
		return bookings, nil
	}
	if !validStatus(status) {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown booking status %q", status)
	}
	bookings, err := e.db.Queries.ListBookingsByUserAndStatus(ctx, dbgen.ListBookingsByUserAndStatusParams{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s bookings for user %d: %w", status, userID, err)
	}
	return bookings, nil
}

// HandleNoShows runs the no-show sweep at the engine's current time.
func (e *Engine) HandleNoShows(ctx context.Context) (NoShowResult, error) {
	return HandleNoShows(ctx, e.db, e.clock.Now(), NoShowOptions{Events: e.events})
}

// LoadBooking reads a booking through q, mapping a missing row to NotFound.
func LoadBooking(ctx context.Context, q *dbgen.Queries, bookingID int64) (dbgen.Booking, error) {
	return loadBooking(ctx, q, bookingID)
}

func loadBooking(ctx context.Context, q *dbgen.Queries, bookingID int64) (dbgen.Booking, error) {
	b, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Booking{}, apperr.NotFound("booking", bookingID)
		}
		return dbgen.Booking{}, fmt.Errorf("get booking %d: %w", bookingID, err)
	}
	return b, nil
}

func bookingFact(t events.Type, b dbgen.Booking, at time.Time) events.Fact {
	fact := events.NewFact(t, at)
	fact.BookingID = b.ID
	fact.UserID = b.UserID
	fact.Attributes = map[string]string{
		"court_id":     strconv.FormatInt(b.CourtID, 10),
		"booking_date": b.BookingDate,
		"start_time":   b.StartTime,
		"end_time":     b.EndTime,
		"status":       b.Status,
	}
	return fact
}

// logRejection logs business rule failures quietly and storage failures loudly.
func logRejection(logger zerolog.Logger, err error, msg string) {
	if kind, ok := apperr.KindOf(err); ok {
		logger.Info().Err(err).Str("kind", string(kind)).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}
