// cmd/server/server.go
package main

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api"
	"github.com/codr1/Courtside/internal/api/auth"
	"github.com/codr1/Courtside/internal/api/bookings"
	"github.com/codr1/Courtside/internal/api/matches"
	"github.com/codr1/Courtside/internal/api/ratings"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/catalog"
	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/identity"
	"github.com/codr1/Courtside/internal/match"
	"github.com/codr1/Courtside/internal/metrics"
	"github.com/codr1/Courtside/internal/rating"
	"github.com/codr1/Courtside/internal/ratelimit"
	"github.com/codr1/Courtside/internal/scheduler"
)

// app holds the long-lived dependencies the handlers and jobs share.
type app struct {
	db            *db.DB
	authenticator *identity.Authenticator
	limiter       *ratelimit.Limiter
	metrics       *metrics.Metrics
	relay         *events.NATSRelay

	closeOnce sync.Once
}

func newApp(cfg *config.Config) (*app, error) {
	if cfg.App.SecretKey == "" {
		return nil, errors.New("refusing to sign tokens with an empty secret key")
	}
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{db: database}

	var (
		emitters      events.Multi
		sweepObserver scheduler.SweepObserver
	)
	if cfg.Features.EnableMetrics {
		a.metrics = metrics.New()
		emitters = append(emitters, a.metrics)
		sweepObserver = a.metrics
	}
	if cfg.Features.EnableEvents {
		a.relay, err = events.DialNATS(events.NATSConfig{
			URL:       cfg.Events.NATSURL,
			ClusterID: cfg.Events.ClusterID,
			ClientID:  cfg.Events.ClientID,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		emitters = append(emitters, a.relay)
	}

	courts := catalog.NewStore(database.Queries)
	users := identity.NewStore(database.Queries)

	matchEngine, err := match.NewEngine(database, users, match.Options{
		Teams:                  cfg.Match.Teams,
		TeamImbalanceTolerance: cfg.Match.TeamImbalanceTolerance,
		CreatorLeavePolicy:     cfg.Match.CreatorLeavePolicy,
		Events:                 emitters,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	bookingEngine, err := booking.NewEngine(database, courts, users, booking.Options{
		RequireConfirmation: cfg.Booking.RequireConfirmation,
		EarlyCheckIn:        cfg.EarlyCheckIn(),
		InsertRetryAttempts: cfg.Booking.InsertRetryAttempts,
		Events:              emitters,
		Matches:             matchEngine,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	ratingEngine, err := rating.NewEngine(database, rating.Options{
		MinScore: int64(cfg.Rating.MinScore),
		MaxScore: int64(cfg.Rating.MaxScore),
		Events:   emitters,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.authenticator = identity.NewAuthenticator(users, cfg.App.SecretKey, cfg.App.TokenTTL, nil)
	a.limiter = ratelimit.New(ratelimit.DefaultConfig())

	auth.InitHandlers(a.authenticator, users, a.limiter, cfg.App.Environment == "production")
	bookings.InitHandlers(bookingEngine, courts, sweepObserver)
	matches.InitHandlers(matchEngine)
	ratings.InitHandlers(ratingEngine)

	if err := scheduler.Init(); err != nil {
		a.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	svc, err := scheduler.ServiceInstance()
	if err != nil {
		a.Close()
		return nil, err
	}
	if _, err := scheduler.RegisterNoShowJob(svc, cfg.Scheduler.NoShowCron, bookingEngine.HandleNoShows, sweepObserver); err != nil {
		a.Close()
		return nil, fmt.Errorf("register no-show job: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		a.Close()
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	return a, nil
}

// Close stops background work before releasing connections. Safe to call twice.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		if err := scheduler.Stop(); err != nil && err != scheduler.ErrNotInitialized {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		if a.limiter != nil {
			a.limiter.Close()
		}
		if a.relay != nil {
			if err := a.relay.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close NATS connection")
			}
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close database")
			}
		}
	})
}

func newServer(cfg *config.Config, a *app) *http.Server {
	router := http.NewServeMux()

	var observer api.RequestObserver
	if a.metrics != nil {
		observer = a.metrics
		router.Handle("GET /metrics", a.metrics.Handler())
	}

	// Setup middleware chain; the last entry runs first.
	handler := api.ChainMiddleware(
		router,
		api.WithAuth(a.authenticator),
		api.WithLogging,
		api.WithMetrics(observer),
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/token", auth.HandleToken)
	mux.HandleFunc("GET /api/v1/auth/me", auth.HandleMe)

	// Booking routes
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleListMyBookings)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", bookings.HandleConfirmBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleCancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/checkin", bookings.HandleCheckInBooking)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", bookings.HandleCourtAvailability)
	mux.HandleFunc("GET /api/v1/courts/{id}/bookings", bookings.HandleCourtBookings)
	mux.HandleFunc("GET /api/v1/facilities/{id}/bookings", bookings.HandleFacilityBookings)
	mux.HandleFunc("POST /api/v1/admin/noshows/sweep", bookings.HandleNoShowSweep)

	// Match routes
	mux.HandleFunc("POST /api/v1/matches", matches.HandleCreateMatch)
	mux.HandleFunc("GET /api/v1/matches/mine", matches.HandleMyMatches)
	mux.HandleFunc("GET /api/v1/matches/orphaned", matches.HandleOrphanedMatches)
	mux.HandleFunc("GET /api/v1/matches/{id}", matches.HandleGetMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/invitations", matches.HandleInvitePlayer)
	mux.HandleFunc("POST /api/v1/matches/{id}/invitations/respond", matches.HandleRespondToInvitation)
	mux.HandleFunc("POST /api/v1/matches/{id}/join", matches.HandleJoinMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/leave", matches.HandleLeaveMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/team", matches.HandleAssignTeam)
	mux.HandleFunc("POST /api/v1/matches/{id}/kick", matches.HandleKickPlayer)
	mux.HandleFunc("POST /api/v1/matches/{id}/checkin", matches.HandleCheckInPlayer)
	mux.HandleFunc("GET /api/v1/matches/{id}/ready", matches.HandleMatchReadiness)
	mux.HandleFunc("POST /api/v1/matches/{id}/start", matches.HandleStartMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/complete", matches.HandleCompleteMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/cancel", matches.HandleCancelMatch)

	// Rating routes
	mux.HandleFunc("POST /api/v1/matches/{id}/ratings", ratings.HandleRatePlayer)
	mux.HandleFunc("GET /api/v1/matches/{id}/ratings", ratings.HandleMatchRatings)
	mux.HandleFunc("GET /api/v1/matches/{id}/ratings/complete", ratings.HandleRatingCompletion)
	mux.HandleFunc("GET /api/v1/ratings/received", ratings.HandleRatingsReceived)
	mux.HandleFunc("GET /api/v1/ratings/given", ratings.HandleRatingsGiven)
}
