package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/catalog"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
)

// Match statuses that leave a match orphaned when its booking becomes a no-show.
const (
	matchStatusOpen = "open"
	matchStatusFull = "full"
)

type NoShowOptions struct {
	Events events.Emitter
}

type NoShowResult struct {
	MarkedBookingIDs []int64 `json:"marked_booking_ids"`
	// OrphanedMatchIDs are open or full matches whose booking was just marked no-show.
	OrphanedMatchIDs []int64 `json:"orphaned_match_ids"`
}

// HandleNoShows marks confirmed bookings that ended strictly before now without
// a check-in as no_show. Each facility is evaluated in its own time zone. The
// update is guarded by status, so running the sweep twice changes nothing the
// second time. Matches on those bookings are left alone and reported.
func HandleNoShows(ctx context.Context, database *db.DB, now time.Time, opts NoShowOptions) (NoShowResult, error) {
	var result NoShowResult
	if database == nil {
		return result, fmt.Errorf("no-show sweep requires database")
	}
	emitter := events.OrDiscard(opts.Events)

	facilities, err := database.Queries.ListFacilities(ctx)
	if err != nil {
		return result, fmt.Errorf("list facilities for no-show sweep: %w", err)
	}

	logger := log.Ctx(ctx).With().Str("component", "noshow_reconciler").Logger()
	for _, facility := range facilities {
		facilityLogger := logger.With().Int64("facility_id", facility.ID).Logger()

		loc, err := catalog.FacilityLocation(facility)
		if err != nil {
			facilityLogger.Error().Err(err).Str("timezone", facility.Timezone).Msg("Failed to load facility timezone for no-show sweep")
			loc = time.UTC
		}
		localDate := now.In(loc).Format(DateLayout)

		candidates, err := database.Queries.ListNoShowCandidates(ctx, dbgen.ListNoShowCandidatesParams{
			FacilityID:  facility.ID,
			BookingDate: localDate,
		})
		if err != nil {
			return result, fmt.Errorf("list no-show candidates for facility %d: %w", facility.ID, err)
		}

		for _, candidate := range candidates {
			slot, err := SlotOf(candidate)
			if err != nil {
				facilityLogger.Error().Err(err).Int64("booking_id", candidate.ID).Msg("Skipping booking with malformed slot")
				continue
			}
			if !slot.EndIn(loc).Before(now) {
				continue
			}

			var marked bool
			var orphanedMatchID int64
			err = database.RunInTx(ctx, func(txdb *db.DB) error {
				rows, err := txdb.Queries.MarkBookingNoShow(ctx, dbgen.MarkBookingNoShowParams{
					NoShowAt: now,
					ID:       candidate.ID,
				})
				if err != nil {
					return fmt.Errorf("mark booking %d no-show: %w", candidate.ID, err)
				}
				if rows == 0 {
					return nil
				}
				marked = true

				match, err := txdb.Queries.GetMatchByBookingID(ctx, candidate.ID)
				if err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return nil
					}
					return fmt.Errorf("get match for booking %d: %w", candidate.ID, err)
				}
				if match.Status == matchStatusOpen || match.Status == matchStatusFull {
					orphanedMatchID = match.ID
				}
				return nil
			})
			if err != nil {
				facilityLogger.Error().Err(err).Int64("booking_id", candidate.ID).Msg("Failed to mark booking as no-show")
				return result, err
			}
			if !marked {
				continue
			}

			result.MarkedBookingIDs = append(result.MarkedBookingIDs, candidate.ID)
			event := facilityLogger.Info().
				Int64("booking_id", candidate.ID).
				Int64("court_id", candidate.CourtID).
				Str("booking_date", candidate.BookingDate).
				Str("end_time", candidate.EndTime)
			if orphanedMatchID != 0 {
				result.OrphanedMatchIDs = append(result.OrphanedMatchIDs, orphanedMatchID)
				event.Int64("orphaned_match_id", orphanedMatchID)
			}
			event.Msg("Marked booking as no-show")

			candidate.Status = StatusNoShow
			fact := bookingFact(events.BookingNoShow, candidate, now)
			if orphanedMatchID != 0 {
				fact.MatchID = orphanedMatchID
			}
			emitter.Emit(ctx, fact)
		}
	}

	if len(result.MarkedBookingIDs) > 0 || len(result.OrphanedMatchIDs) > 0 {
		logger.Info().
			Int("marked", len(result.MarkedBookingIDs)).
			Int("orphaned_matches", len(result.OrphanedMatchIDs)).
			Msg("No-show sweep complete")
	}
	return result, nil
}
