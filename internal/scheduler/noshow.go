package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/booking"
)

const (
	noShowJobName    = "booking_no_shows"
	noShowJobTimeout = 2 * time.Minute
)

// NoShowSweep runs one pass of the no-show reconciler.
type NoShowSweep func(ctx context.Context) (booking.NoShowResult, error)

// SweepObserver records the outcome of each sweep.
type SweepObserver interface {
	ObserveSweep(marked, orphaned int, elapsed time.Duration, err error)
}

// RegisterNoShowJob schedules sweep on cronExpr. Runs never overlap; a tick
// that fires while the previous sweep is still going is skipped.
func RegisterNoShowJob(svc *Service, cronExpr string, sweep NoShowSweep, observer SweepObserver) (gocron.Job, error) {
	if sweep == nil {
		return nil, fmt.Errorf("no-show job requires a sweep")
	}
	return svc.AddJob(noShowJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), noShowJobTimeout)
		defer cancel()
		_, _ = RunNoShowSweep(ctx, sweep, observer)
	}, gocron.WithSingletonMode(gocron.LimitModeReschedule))
}

// RunNoShowSweep runs sweep once, logging and observing the result.
func RunNoShowSweep(ctx context.Context, sweep NoShowSweep, observer SweepObserver) (booking.NoShowResult, error) {
	jobLogger := log.With().
		Str("component", "noshow_job").
		Str("job_name", noShowJobName).
		Logger()
	ctx = jobLogger.WithContext(ctx)

	started := time.Now()
	result, err := sweep(ctx)
	elapsed := time.Since(started)

	if observer != nil {
		observer.ObserveSweep(len(result.MarkedBookingIDs), len(result.OrphanedMatchIDs), elapsed, err)
	}
	if err != nil {
		jobLogger.Error().Err(err).Dur("elapsed", elapsed).Msg("No-show sweep failed")
		return result, err
	}
	if len(result.OrphanedMatchIDs) > 0 {
		jobLogger.Warn().
			Ints64("orphaned_match_ids", result.OrphanedMatchIDs).
			Msg("Matches left without a booking; creators must cancel them")
	}
	jobLogger.Debug().
		Int("marked", len(result.MarkedBookingIDs)).
		Dur("elapsed", elapsed).
		Msg("No-show sweep finished")
	return result, nil
}
