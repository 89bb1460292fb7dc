// internal/api/ratings/handlers.go
package ratings

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/rating"
)

const idPathKey = "id"

var engine *rating.Engine

type rateRequest struct {
	RatedUserID         int64  `json:"rated_user_id"`
	SkillRating         int64  `json:"skill_rating"`
	SportsmanshipRating int64  `json:"sportsmanship_rating"`
	Comment             string `json:"comment,omitempty"`
}

type completionResponse struct {
	MatchID  int64 `json:"match_id"`
	RatedAll bool  `json:"rated_all"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *rating.Engine) {
	engine = e
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if engine == nil {
		log.Ctx(r.Context()).Error().Msg("Rating handlers not initialized")
		apiutil.WriteError(w, r, errors.New("rating handlers not initialized"))
		return false
	}
	return true
}

// POST /api/v1/matches/{id}/ratings
func HandleRatePlayer(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	matchID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}
	var req rateRequest
	if !apiutil.DecodeBody(w, r, &req) {
		return
	}

	created, err := engine.RatePlayer(r.Context(), rating.RatingRequest{
		MatchID:             matchID,
		RaterUserID:         user.ID,
		RatedUserID:         req.RatedUserID,
		SkillRating:         req.SkillRating,
		SportsmanshipRating: req.SportsmanshipRating,
		Comment:             req.Comment,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// GET /api/v1/matches/{id}/ratings
func HandleMatchRatings(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	if _, ok := apiutil.RequireUser(w, r); !ok {
		return
	}
	matchID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}
	list, err := engine.ListMatchRatings(r.Context(), matchID)
	respondList(w, r, list, err)
}

// GET /api/v1/matches/{id}/ratings/complete
func HandleRatingCompletion(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	matchID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return
	}
	done, err := engine.HasUserRatedAllPlayers(r.Context(), matchID, user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, completionResponse{MatchID: matchID, RatedAll: done})
}

// GET /api/v1/ratings/received
func HandleRatingsReceived(w http.ResponseWriter, r *http.Request) {
	listForUser(w, r, func(ctx context.Context, userID int64) ([]dbgen.PlayerRating, error) {
		return engine.ListRatingsReceived(ctx, userID)
	})
}

// GET /api/v1/ratings/given
func HandleRatingsGiven(w http.ResponseWriter, r *http.Request) {
	listForUser(w, r, func(ctx context.Context, userID int64) ([]dbgen.PlayerRating, error) {
		return engine.ListRatingsGiven(ctx, userID)
	})
}

func listForUser(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID int64) ([]dbgen.PlayerRating, error)) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	found, err := list(r.Context(), user.ID)
	respondList(w, r, found, err)
}

func respondList(w http.ResponseWriter, r *http.Request, list []dbgen.PlayerRating, err error) {
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if list == nil {
		list = []dbgen.PlayerRating{}
	}
	apiutil.Respond(w, r, http.StatusOK, list)
}
