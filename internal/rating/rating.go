// Package rating records peer ratings between players of a completed match.
package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/clock"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/match"
)

const (
	defaultMinScore = 1
	defaultMaxScore = 5
	maxCommentLen   = 1000
)

type RatingRequest struct {
	MatchID             int64  `json:"match_id"`
	RaterUserID         int64  `json:"rater_user_id"`
	RatedUserID         int64  `json:"rated_user_id"`
	SkillRating         int64  `json:"skill_rating"`
	SportsmanshipRating int64  `json:"sportsmanship_rating"`
	Comment             string `json:"comment,omitempty"`
}

type Options struct {
	MinScore int64
	MaxScore int64
	Clock    clock.Clock
	Events   events.Emitter
}

type Engine struct {
	db     *db.DB
	opts   Options
	clock  clock.Clock
	events events.Emitter
}

func NewEngine(database *db.DB, opts Options) (*Engine, error) {
	if database == nil {
		return nil, errors.New("rating engine requires a database")
	}
	if opts.MinScore == 0 && opts.MaxScore == 0 {
		opts.MinScore, opts.MaxScore = defaultMinScore, defaultMaxScore
	}
	if opts.MinScore > opts.MaxScore {
		return nil, fmt.Errorf("rating engine: min score %d exceeds max score %d", opts.MinScore, opts.MaxScore)
	}
	return &Engine{
		db:     database,
		opts:   opts,
		clock:  clock.OrReal(opts.Clock),
		events: events.OrDiscard(opts.Events),
	}, nil
}

// RatePlayer stores one rater's scores for another participant of a completed match.
func (e *Engine) RatePlayer(ctx context.Context, req RatingRequest) (dbgen.PlayerRating, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "rating_engine").
		Int64("match_id", req.MatchID).
		Int64("rater_user_id", req.RaterUserID).
		Int64("rated_user_id", req.RatedUserID).
		Logger()

	comment := strings.TrimSpace(req.Comment)
	if err := e.validate(req, comment); err != nil {
		logger.Info().Err(err).Msg("Rejected rating")
		return dbgen.PlayerRating{}, err
	}

	var created dbgen.PlayerRating
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := match.LoadMatch(ctx, q, req.MatchID)
		if err != nil {
			return err
		}
		if m.Status != match.StatusCompleted {
			return apperr.New(apperr.KindMatchNotCompleted, "match %d is %s; ratings open once it is completed", m.ID, m.Status)
		}
		for _, userID := range []int64{req.RaterUserID, req.RatedUserID} {
			if err := requireParticipant(ctx, q, m.ID, userID); err != nil {
				return err
			}
		}

		if _, err := q.GetPlayerRating(ctx, dbgen.GetPlayerRatingParams{
			MatchID:     m.ID,
			RaterUserID: req.RaterUserID,
			RatedUserID: req.RatedUserID,
		}); err == nil {
			return apperr.New(apperr.KindDuplicateRating, "user %d already rated user %d for match %d", req.RaterUserID, req.RatedUserID, m.ID)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get rating: %w", err)
		}

		created, err = q.CreatePlayerRating(ctx, dbgen.CreatePlayerRatingParams{
			MatchID:             m.ID,
			RaterUserID:         req.RaterUserID,
			RatedUserID:         req.RatedUserID,
			SkillRating:         req.SkillRating,
			SportsmanshipRating: req.SportsmanshipRating,
			Comment:             sql.NullString{String: comment, Valid: comment != ""},
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindDuplicateRating, err, "user %d already rated user %d for match %d", req.RaterUserID, req.RatedUserID, m.ID)
			}
			return fmt.Errorf("create rating: %w", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := apperr.KindOf(err); ok {
			logger.Info().Err(err).Msg("Rejected rating")
		} else {
			logger.Error().Err(err).Msg("Failed to store rating")
		}
		return dbgen.PlayerRating{}, err
	}

	logger.Info().Int64("rating_id", created.ID).Msg("Rating recorded")
	fact := events.NewFact(events.RatingSubmitted, e.clock.Now())
	fact.MatchID = created.MatchID
	fact.UserID = created.RatedUserID
	fact.Attributes = map[string]string{
		"rater_user_id":        strconv.FormatInt(created.RaterUserID, 10),
		"skill_rating":         strconv.FormatInt(created.SkillRating, 10),
		"sportsmanship_rating": strconv.FormatInt(created.SportsmanshipRating, 10),
	}
	e.events.Emit(ctx, fact)
	return created, nil
}

func (e *Engine) validate(req RatingRequest, comment string) error {
	if req.RaterUserID == req.RatedUserID {
		return apperr.New(apperr.KindInvalidParticipant, "players cannot rate themselves")
	}
	for name, score := range map[string]int64{
		"skill_rating":         req.SkillRating,
		"sportsmanship_rating": req.SportsmanshipRating,
	} {
		if score < e.opts.MinScore || score > e.opts.MaxScore {
			return apperr.New(apperr.KindInvalidInput, "%s must be between %d and %d", name, e.opts.MinScore, e.opts.MaxScore)
		}
	}
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return apperr.New(apperr.KindInvalidInput, "comment must be at most %d characters", maxCommentLen)
	}
	return nil
}

func requireParticipant(ctx context.Context, q *dbgen.Queries, matchID, userID int64) error {
	_, err := q.GetActiveMatchPlayer(ctx, dbgen.GetActiveMatchPlayerParams{MatchID: matchID, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindInvalidParticipant, "user %d did not play in match %d", userID, matchID)
		}
		return fmt.Errorf("get player %d in match %d: %w", userID, matchID, err)
	}
	return nil
}

// HasUserRatedAllPlayers reports whether userID has rated every other
// participant of the match.
func (e *Engine) HasUserRatedAllPlayers(ctx context.Context, matchID, userID int64) (bool, error) {
	q := e.db.Queries
	if _, err := match.LoadMatch(ctx, q, matchID); err != nil {
		return false, err
	}
	if err := requireParticipant(ctx, q, matchID, userID); err != nil {
		return false, err
	}

	roster, err := q.ListActiveMatchPlayers(ctx, matchID)
	if err != nil {
		return false, fmt.Errorf("list roster for match %d: %w", matchID, err)
	}
	others := int64(0)
	for _, p := range roster {
		if p.UserID != userID {
			others++
		}
	}
	given, err := q.CountRatingsGivenInMatch(ctx, dbgen.CountRatingsGivenInMatchParams{MatchID: matchID, RaterUserID: userID})
	if err != nil {
		return false, fmt.Errorf("count ratings by user %d: %w", userID, err)
	}
	return given >= others, nil
}

func (e *Engine) ListMatchRatings(ctx context.Context, matchID int64) ([]dbgen.PlayerRating, error) {
	ratings, err := e.db.Queries.ListRatingsByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list ratings for match %d: %w", matchID, err)
	}
	return ratings, nil
}

func (e *Engine) ListRatingsReceived(ctx context.Context, userID int64) ([]dbgen.PlayerRating, error) {
	ratings, err := e.db.Queries.ListRatingsReceived(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings received by user %d: %w", userID, err)
	}
	return ratings, nil
}

func (e *Engine) ListRatingsGiven(ctx context.Context, userID int64) ([]dbgen.PlayerRating, error) {
	ratings, err := e.db.Queries.ListRatingsGiven(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings given by user %d: %w", userID, err)
	}
	return ratings, nil
}
