// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/catalog"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/identity"
	"github.com/codr1/Courtside/internal/scheduler"
)

const idPathKey = "id"

var (
	engine        *booking.Engine
	courtCatalog  catalog.Catalog
	sweepObserver scheduler.SweepObserver
)

type availabilityResponse struct {
	CourtID   int64  `json:"court_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *booking.Engine, cat catalog.Catalog, observer scheduler.SweepObserver) {
	engine = e
	courtCatalog = cat
	sweepObserver = observer
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if engine == nil || courtCatalog == nil {
		log.Ctx(r.Context()).Error().Msg("Booking handlers not initialized")
		apiutil.WriteError(w, r, errors.New("booking handlers not initialized"))
		return false
	}
	return true
}

// POST /api/v1/bookings
func HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}

	var req booking.BookingRequest
	if !apiutil.DecodeBody(w, r, &req) {
		return
	}

	created, err := engine.BookCourt(r.Context(), req, user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// GET /api/v1/bookings?status=
func HandleListMyBookings(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	list, err := engine.GetUserBookings(r.Context(), user.ID, status)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, nonNil(list))
}

// GET /api/v1/bookings/{id}
func HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}

	b, err := engine.GetBooking(r.Context(), bookingID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if b.UserID != user.ID {
		court, err := courtCatalog.GetCourt(r.Context(), b.CourtID)
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		if !apiutil.RequireFacilityAccess(w, r, court.FacilityID) {
			return
		}
	}
	apiutil.Respond(w, r, http.StatusOK, b)
}

type bookingTransition func(ctx context.Context, bookingID, userID int64) (dbgen.Booking, error)

// POST /api/v1/bookings/{id}/confirm
func HandleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	transition(w, r, func(ctx context.Context, bookingID, userID int64) (dbgen.Booking, error) {
		return engine.ConfirmBooking(ctx, bookingID, userID)
	})
}

// POST /api/v1/bookings/{id}/cancel
func HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	transition(w, r, func(ctx context.Context, bookingID, userID int64) (dbgen.Booking, error) {
		return engine.CancelBooking(ctx, bookingID, userID)
	})
}

// POST /api/v1/bookings/{id}/checkin
func HandleCheckInBooking(w http.ResponseWriter, r *http.Request) {
	transition(w, r, func(ctx context.Context, bookingID, userID int64) (dbgen.Booking, error) {
		return engine.CheckInBooking(ctx, bookingID, userID)
	})
}

func transition(w http.ResponseWriter, r *http.Request, apply bookingTransition) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}

	updated, err := apply(r.Context(), bookingID, user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, updated)
}

// GET /api/v1/courts/{id}/availability?date=&start_time=&end_time=
func HandleCourtAvailability(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	courtID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}
	query := make(map[string]string, 3)
	for _, key := range []string{"date", "start_time", "end_time"} {
		value, ok := apiutil.RequiredQuery(w, r, key)
		if !ok {
			return
		}
		query[key] = value
	}

	available, err := engine.CheckAvailability(r.Context(), courtID, query["date"], query["start_time"], query["end_time"])
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, availabilityResponse{
		CourtID:   courtID,
		Date:      query["date"],
		StartTime: query["start_time"],
		EndTime:   query["end_time"],
		Available: available,
	})
}

// GET /api/v1/courts/{id}/bookings?date=
func HandleCourtBookings(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	courtID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}
	date, ok := apiutil.RequiredQuery(w, r, "date")
	if !ok {
		return
	}

	court, err := courtCatalog.GetCourt(r.Context(), courtID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if !apiutil.RequireFacilityAccess(w, r, court.FacilityID) {
		return
	}

	list, err := engine.GetBookingsForCourt(r.Context(), courtID, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, nonNil(list))
}

// GET /api/v1/facilities/{id}/bookings?date=
func HandleFacilityBookings(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	facilityID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}
	date, ok := apiutil.RequiredQuery(w, r, "date")
	if !ok {
		return
	}
	if !apiutil.RequireFacilityAccess(w, r, facilityID) {
		return
	}

	list, err := engine.GetBookingsForFacility(r.Context(), facilityID, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, nonNil(list))
}

// POST /api/v1/admin/noshows/sweep
func HandleNoShowSweep(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if !apiutil.RequireRole(w, r, identity.RoleAdmin) {
		return
	}

	result, err := scheduler.RunNoShowSweep(r.Context(), engine.HandleNoShows, sweepObserver)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if result.MarkedBookingIDs == nil {
		result.MarkedBookingIDs = []int64{}
	}
	if result.OrphanedMatchIDs == nil {
		result.OrphanedMatchIDs = []int64{}
	}
	apiutil.Respond(w, r, http.StatusOK, result)
}

func nonNil(list []dbgen.Booking) []dbgen.Booking {
	if list == nil {
		return []dbgen.Booking{}
	}
	return list
}
