// Package match runs the pickup-match lifecycle on top of a court booking:
// roster management, teams, check-in, and the open → full → in_progress →
// completed progression.
package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/clock"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/identity"
)

const (
	StatusOpen       = "open"
	StatusFull       = "full"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	CreatorLeaveReject   = "reject"
	CreatorLeaveTransfer = "transfer"
)

const defaultTeams = 2

var matchTransitions = map[string][]string{
	StatusOpen:       {StatusFull, StatusCancelled},
	StatusFull:       {StatusOpen, StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// Capacity is the number of seats on m.
func Capacity(m dbgen.Match) int64 {
	return m.TeamSize * m.TeamCount
}

type CreateMatchRequest struct {
	CreatorUserID int64  `json:"creator_user_id"`
	BookingID     int64  `json:"booking_id"`
	SportID       int64  `json:"sport_id"`
	TeamSize      int64  `json:"team_size"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	MinSkillLevel *int64 `json:"min_skill_level,omitempty"`
	MaxSkillLevel *int64 `json:"max_skill_level,omitempty"`
}

type Options struct {
	Teams                  int
	TeamImbalanceTolerance int
	CreatorLeavePolicy     string
	Clock                  clock.Clock
	Events                 events.Emitter
}

type Engine struct {
	db     *db.DB
	users  identity.Directory
	opts   Options
	clock  clock.Clock
	events events.Emitter
}

func NewEngine(database *db.DB, users identity.Directory, opts Options) (*Engine, error) {
	if database == nil {
		return nil, errors.New("match engine requires a database")
	}
	if users == nil {
		return nil, errors.New("match engine requires a user directory")
	}
	if opts.Teams == 0 {
		opts.Teams = defaultTeams
	}
	if opts.Teams < 2 || opts.Teams > 26 {
		return nil, fmt.Errorf("match engine: teams must be between 2 and 26, got %d", opts.Teams)
	}
	// Teams fill one player at a time, so a tolerance below 1 rejects every first assignment.
	if opts.TeamImbalanceTolerance < 1 {
		return nil, fmt.Errorf("match engine: team imbalance tolerance must be at least 1, got %d", opts.TeamImbalanceTolerance)
	}
	switch opts.CreatorLeavePolicy {
	case "":
		opts.CreatorLeavePolicy = CreatorLeaveReject
	case CreatorLeaveReject, CreatorLeaveTransfer:
	default:
		return nil, fmt.Errorf("match engine: unknown creator leave policy %q", opts.CreatorLeavePolicy)
	}
	return &Engine{
		db:     database,
		users:  users,
		opts:   opts,
		clock:  clock.OrReal(opts.Clock),
		events: events.OrDiscard(opts.Events),
	}, nil
}

// CreateMatch opens a match on the creator's booking and seats the creator.
// A pending booking is confirmed in the same transaction.
func (e *Engine) CreateMatch(ctx context.Context, req CreateMatchRequest) (dbgen.Match, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "match_engine").
		Int64("booking_id", req.BookingID).
		Int64("user_id", req.CreatorUserID).
		Logger()

	title := strings.TrimSpace(req.Title)
	if err := validateCreate(req, title); err != nil {
		logRejection(logger, err, "Rejected match")
		return dbgen.Match{}, err
	}

	now := e.clock.Now()
	var created dbgen.Match
	var facts []events.Fact
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		b, err := booking.LoadBooking(ctx, q, req.BookingID)
		if err != nil {
			return err
		}
		if b.UserID != req.CreatorUserID {
			return apperr.New(apperr.KindNotOwner, "booking %d belongs to another user", b.ID)
		}
		if _, err := q.GetMatchByBookingID(ctx, b.ID); err == nil {
			return apperr.New(apperr.KindAlreadyInMatch, "booking %d already hosts a match", b.ID)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get match for booking %d: %w", b.ID, err)
		}

		switch b.Status {
		case booking.StatusPending:
			b, err = booking.ConfirmPending(ctx, q, b)
			if err != nil {
				return err
			}
			fact := events.NewFact(events.BookingConfirmed, now)
			fact.BookingID = b.ID
			fact.UserID = b.UserID
			facts = append(facts, fact)
		case booking.StatusConfirmed:
		default:
			return apperr.New(apperr.KindInvalidTransition, "booking %d is %s; a match needs a pending or confirmed booking", b.ID, b.Status)
		}

		created, err = q.CreateMatch(ctx, dbgen.CreateMatchParams{
			BookingID:     b.ID,
			CreatorUserID: req.CreatorUserID,
			SportID:       req.SportID,
			TeamSize:      req.TeamSize,
			TeamCount:     int64(e.opts.Teams),
			Title:         title,
			Description:   strings.TrimSpace(req.Description),
			MinSkillLevel: nullInt(req.MinSkillLevel),
			MaxSkillLevel: nullInt(req.MaxSkillLevel),
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindAlreadyInMatch, err, "booking %d already hosts a match", b.ID)
			}
			return fmt.Errorf("create match: %w", err)
		}

		creator, err := q.CreateMatchPlayer(ctx, dbgen.CreateMatchPlayerParams{
			MatchID:  created.ID,
			UserID:   req.CreatorUserID,
			Status:   PlayerJoined,
			JoinedAt: sql.NullTime{Time: now, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("seat creator in match %d: %w", created.ID, err)
		}
		facts = append(facts, matchFact(events.MatchCreated, created, now), playerFact(events.PlayerJoined, creator, now))
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to create match")
		return dbgen.Match{}, err
	}

	logger.Info().
		Int64("match_id", created.ID).
		Int64("capacity", Capacity(created)).
		Msg("Match created")
	events.EmitAll(ctx, e.events, facts)
	return created, nil
}

func validateCreate(req CreateMatchRequest, title string) error {
	if req.SportID <= 0 {
		return apperr.New(apperr.KindInvalidInput, "sport_id is required")
	}
	if req.TeamSize < 1 {
		return apperr.New(apperr.KindInvalidInput, "team_size must be at least 1")
	}
	if title == "" {
		return apperr.New(apperr.KindInvalidInput, "title is required")
	}
	if req.MinSkillLevel != nil && req.MaxSkillLevel != nil && *req.MinSkillLevel > *req.MaxSkillLevel {
		return apperr.New(apperr.KindInvalidInput, "min_skill_level must not exceed max_skill_level")
	}
	return nil
}

// AllPlayersCheckedIn reports whether every seat is taken by a checked-in player.
func (e *Engine) AllPlayersCheckedIn(ctx context.Context, matchID int64) (bool, error) {
	m, err := loadMatch(ctx, e.db.Queries, matchID)
	if err != nil {
		return false, err
	}
	return allCheckedIn(ctx, e.db.Queries, m)
}

func allCheckedIn(ctx context.Context, q *dbgen.Queries, m dbgen.Match) (bool, error) {
	checkedIn, err := q.CountCheckedInPlayers(ctx, m.ID)
	if err != nil {
		return false, fmt.Errorf("count checked-in players in match %d: %w", m.ID, err)
	}
	return checkedIn == Capacity(m), nil
}

// CanStartMatch holds when the match is full and every player has checked in.
func (e *Engine) CanStartMatch(ctx context.Context, matchID int64) (bool, error) {
	m, err := loadMatch(ctx, e.db.Queries, matchID)
	if err != nil {
		return false, err
	}
	if m.Status != StatusFull {
		return false, nil
	}
	return allCheckedIn(ctx, e.db.Queries, m)
}

// StartMatch moves a full, fully checked-in match to in_progress. The booking
// is checked in alongside and outstanding invitations are declined.
func (e *Engine) StartMatch(ctx context.Context, matchID, userID int64) (dbgen.Match, error) {
	logger := e.logger(ctx, matchID, userID)

	now := e.clock.Now()
	var started dbgen.Match
	var facts []events.Fact
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.CreatorUserID != userID {
			return apperr.New(apperr.KindNotOwner, "only the creator can start match %d", matchID)
		}
		if m.Status != StatusFull {
			return apperr.Transition("match", m.ID, m.Status, StatusInProgress)
		}
		ready, err := allCheckedIn(ctx, q, m)
		if err != nil {
			return err
		}
		if !ready {
			return apperr.New(apperr.KindInvalidTransition, "match %d: cannot start until all %d players have checked in", m.ID, Capacity(m))
		}

		b, err := booking.LoadBooking(ctx, q, m.BookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case booking.StatusConfirmed:
			b, err = booking.MarkCheckedIn(ctx, q, b, now)
			if err != nil {
				return err
			}
			fact := events.NewFact(events.BookingCheckedIn, now)
			fact.BookingID = b.ID
			fact.UserID = b.UserID
			fact.MatchID = m.ID
			facts = append(facts, fact)
		case booking.StatusCheckedIn:
		default:
			return apperr.New(apperr.KindInvalidTransition, "match %d: booking %d is %s", m.ID, b.ID, b.Status)
		}

		declined, err := q.DeclinePendingInvitations(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("decline invitations for match %d: %w", m.ID, err)
		}
		if declined > 0 {
			logger.Debug().Int64("declined", declined).Msg("Declined outstanding invitations")
		}

		started, err = setStatus(ctx, q, m, StatusInProgress, now)
		if err != nil {
			return err
		}
		facts = append(facts, matchFact(events.MatchStarted, started, now))
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to start match")
		return dbgen.Match{}, err
	}

	logger.Info().Msg("Match started")
	events.EmitAll(ctx, e.events, facts)
	return started, nil
}

func (e *Engine) CompleteMatch(ctx context.Context, matchID int64) (dbgen.Match, error) {
	logger := e.logger(ctx, matchID, 0)

	now := e.clock.Now()
	var completed dbgen.Match
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		m, err := loadMatch(ctx, txdb.Queries, matchID)
		if err != nil {
			return err
		}
		completed, err = setStatus(ctx, txdb.Queries, m, StatusCompleted, now)
		return err
	})
	if err != nil {
		logRejection(logger, err, "Failed to complete match")
		return dbgen.Match{}, err
	}

	logger.Info().Msg("Match completed")
	e.events.Emit(ctx, matchFact(events.MatchCompleted, completed, now))
	return completed, nil
}

// CancelMatch cancels an open or full match. The booking is left as it is.
func (e *Engine) CancelMatch(ctx context.Context, matchID, userID int64) (dbgen.Match, error) {
	logger := e.logger(ctx, matchID, userID)

	now := e.clock.Now()
	var cancelled dbgen.Match
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		m, err := loadMatch(ctx, txdb.Queries, matchID)
		if err != nil {
			return err
		}
		if m.CreatorUserID != userID {
			return apperr.New(apperr.KindNotOwner, "only the creator can cancel match %d", matchID)
		}
		cancelled, err = setStatus(ctx, txdb.Queries, m, StatusCancelled, now)
		return err
	})
	if err != nil {
		logRejection(logger, err, "Failed to cancel match")
		return dbgen.Match{}, err
	}

	logger.Info().Msg("Match cancelled")
	e.events.Emit(ctx, matchFact(events.MatchCancelled, cancelled, now))
	return cancelled, nil
}

// CancelForBooking cancels the match on bookingID, if any, on the caller's
// transaction. A match already in progress blocks the booking cancellation.
func (e *Engine) CancelForBooking(ctx context.Context, q *dbgen.Queries, bookingID int64, at time.Time) ([]events.Fact, error) {
	m, err := q.GetMatchByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get match for booking %d: %w", bookingID, err)
	}

	switch m.Status {
	case StatusOpen, StatusFull:
	case StatusInProgress:
		return nil, apperr.New(apperr.KindInvalidTransition, "booking %d hosts match %d which is already in progress", bookingID, m.ID)
	default:
		return nil, nil
	}

	cancelled, err := setStatus(ctx, q, m, StatusCancelled, at)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Str("component", "match_engine").
		Int64("match_id", m.ID).
		Int64("booking_id", bookingID).
		Msg("Match cancelled with its booking")

	fact := matchFact(events.MatchCancelled, cancelled, at)
	fact.Attributes["reason"] = "booking_cancelled"
	return []events.Fact{fact}, nil
}

type MatchView struct {
	Match         dbgen.Match         `json:"match"`
	Players       []dbgen.MatchPlayer `json:"players"`
	Capacity      int64               `json:"capacity"`
	Seated        int64               `json:"seated"`
	BookingStatus string              `json:"booking_status"`
	// Orphaned is set when the booking is gone but the match was never closed.
	Orphaned bool `json:"orphaned"`
}

func (e *Engine) GetMatch(ctx context.Context, matchID int64) (MatchView, error) {
	q := e.db.Queries
	m, err := loadMatch(ctx, q, matchID)
	if err != nil {
		return MatchView{}, err
	}
	players, err := q.ListMatchPlayers(ctx, matchID)
	if err != nil {
		return MatchView{}, fmt.Errorf("list players for match %d: %w", matchID, err)
	}
	b, err := booking.LoadBooking(ctx, q, m.BookingID)
	if err != nil {
		return MatchView{}, err
	}

	view := MatchView{
		Match:         m,
		Players:       players,
		Capacity:      Capacity(m),
		BookingStatus: b.Status,
	}
	for _, p := range players {
		if IsSeated(p.Status) {
			view.Seated++
		}
	}
	view.Orphaned = (m.Status == StatusOpen || m.Status == StatusFull) && !booking.IsActive(b.Status)
	return view, nil
}

// ListOrphanedMatches lists the creator's open or full matches whose booking
// was cancelled or marked no-show.
func (e *Engine) ListOrphanedMatches(ctx context.Context, creatorUserID int64) ([]dbgen.Match, error) {
	matches, err := e.db.Queries.ListOrphanedMatchesByCreator(ctx, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("list orphaned matches for user %d: %w", creatorUserID, err)
	}
	return matches, nil
}

func (e *Engine) ListMatchesByCreator(ctx context.Context, creatorUserID int64) ([]dbgen.Match, error) {
	matches, err := e.db.Queries.ListMatchesByCreator(ctx, creatorUserID)
	if err != nil {
		return nil, fmt.Errorf("list matches for user %d: %w", creatorUserID, err)
	}
	return matches, nil
}

// LoadMatch reads a match through q, mapping a missing row to NotFound.
func LoadMatch(ctx context.Context, q *dbgen.Queries, matchID int64) (dbgen.Match, error) {
	return loadMatch(ctx, q, matchID)
}

func loadMatch(ctx context.Context, q *dbgen.Queries, matchID int64) (dbgen.Match, error) {
	m, err := q.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Match{}, apperr.NotFound("match", matchID)
		}
		return dbgen.Match{}, fmt.Errorf("get match %d: %w", matchID, err)
	}
	return m, nil
}

func setStatus(ctx context.Context, q *dbgen.Queries, m dbgen.Match, to string, at time.Time) (dbgen.Match, error) {
	if !slices.Contains(matchTransitions[m.Status], to) {
		return dbgen.Match{}, apperr.Transition("match", m.ID, m.Status, to)
	}
	stamp := sql.NullTime{Time: at, Valid: true}
	params := dbgen.UpdateMatchStatusParams{Status: to, ID: m.ID, FromStatus: m.Status}
	switch to {
	case StatusInProgress:
		params.StartedAt = stamp
	case StatusCompleted:
		params.CompletedAt = stamp
	case StatusCancelled:
		params.CancelledAt = stamp
	}
	updated, err := q.UpdateMatchStatus(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbgen.Match{}, apperr.Transition("match", m.ID, m.Status, to)
		}
		return dbgen.Match{}, fmt.Errorf("update match %d to %s: %w", m.ID, to, err)
	}
	return updated, nil
}

// syncCapacity moves open to full when every seat is taken and full back to
// open when a seat frees up. It returns the fact for a status change, if any.
func (e *Engine) syncCapacity(ctx context.Context, q *dbgen.Queries, m dbgen.Match, at time.Time) (dbgen.Match, *events.Fact, error) {
	seated, err := q.CountSeatedPlayers(ctx, m.ID)
	if err != nil {
		return dbgen.Match{}, nil, fmt.Errorf("count seated players in match %d: %w", m.ID, err)
	}

	var to string
	var factType events.Type
	switch {
	case m.Status == StatusOpen && seated >= Capacity(m):
		to, factType = StatusFull, events.MatchFull
	case m.Status == StatusFull && seated < Capacity(m):
		to, factType = StatusOpen, events.MatchReopened
	default:
		return m, nil, nil
	}

	updated, err := setStatus(ctx, q, m, to, at)
	if err != nil {
		return dbgen.Match{}, nil, err
	}
	fact := matchFact(factType, updated, at)
	return updated, &fact, nil
}

func (e *Engine) logger(ctx context.Context, matchID, userID int64) zerolog.Logger {
	return log.Ctx(ctx).With().
		Str("component", "match_engine").
		Int64("match_id", matchID).
		Int64("user_id", userID).
		Logger()
}

func matchFact(t events.Type, m dbgen.Match, at time.Time) events.Fact {
	fact := events.NewFact(t, at)
	fact.MatchID = m.ID
	fact.BookingID = m.BookingID
	fact.UserID = m.CreatorUserID
	fact.Attributes = map[string]string{
		"status":   m.Status,
		"capacity": strconv.FormatInt(Capacity(m), 10),
	}
	return fact
}

func playerFact(t events.Type, p dbgen.MatchPlayer, at time.Time) events.Fact {
	fact := events.NewFact(t, at)
	fact.MatchID = p.MatchID
	fact.UserID = p.UserID
	fact.Attributes = map[string]string{"status": p.Status}
	if p.Team.Valid {
		fact.Attributes["team"] = p.Team.String
	}
	return fact
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func logRejection(logger zerolog.Logger, err error, msg string) {
	if kind, ok := apperr.KindOf(err); ok {
		logger.Info().Err(err).Str("kind", string(kind)).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}
