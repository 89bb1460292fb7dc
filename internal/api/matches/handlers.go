// internal/api/matches/handlers.go
package matches

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/apiutil"
	"github.com/codr1/Courtside/internal/api/authz"
	"github.com/codr1/Courtside/internal/apperr"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/match"
)

const idPathKey = "id"

var engine *match.Engine

type createMatchRequest struct {
	BookingID     int64  `json:"booking_id"`
	SportID       int64  `json:"sport_id"`
	TeamSize      int64  `json:"team_size"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	MinSkillLevel *int64 `json:"min_skill_level,omitempty"`
	MaxSkillLevel *int64 `json:"max_skill_level,omitempty"`
}

type targetRequest struct {
	UserID int64 `json:"user_id"`
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

type joinRequest struct {
	Team *string `json:"team,omitempty"`
}

type teamRequest struct {
	// UserID defaults to the caller.
	UserID int64  `json:"user_id,omitempty"`
	Team   string `json:"team"`
}

type readinessResponse struct {
	MatchID      int64 `json:"match_id"`
	AllPlayersIn bool  `json:"all_players_checked_in"`
	CanStart     bool  `json:"can_start"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(e *match.Engine) {
	engine = e
}

func ready(w http.ResponseWriter, r *http.Request) bool {
	if engine == nil {
		log.Ctx(r.Context()).Error().Msg("Match handlers not initialized")
		apiutil.WriteError(w, r, errors.New("match handlers not initialized"))
		return false
	}
	return true
}

// matchRequest resolves the caller and the match id shared by every match route.
func matchRequest(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, int64, bool) {
	if !ready(w, r) {
		return nil, 0, false
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return nil, 0, false
	}
	matchID, ok := apiutil.PathID(w, r, idPathKey)
	if !ok {
		return nil, 0, false
	}
	return user, matchID, true
}

// POST /api/v1/matches
func HandleCreateMatch(w http.ResponseWriter, r *http.Request) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}

	var req createMatchRequest
	if !apiutil.DecodeBody(w, r, &req) {
		return
	}

	created, err := engine.CreateMatch(r.Context(), match.CreateMatchRequest{
		CreatorUserID: user.ID,
		BookingID:     req.BookingID,
		SportID:       req.SportID,
		TeamSize:      req.TeamSize,
		Title:         req.Title,
		Description:   req.Description,
		MinSkillLevel: req.MinSkillLevel,
		MaxSkillLevel: req.MaxSkillLevel,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusCreated, created)
}

// GET /api/v1/matches/{id}
func HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	view, err := engine.GetMatch(r.Context(), matchID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if view.Players == nil {
		view.Players = []dbgen.MatchPlayer{}
	}
	apiutil.Respond(w, r, http.StatusOK, view)
}

// GET /api/v1/matches/mine
func HandleMyMatches(w http.ResponseWriter, r *http.Request) {
	listForCreator(w, r, func(ctx context.Context, userID int64) ([]dbgen.Match, error) {
		return engine.ListMatchesByCreator(ctx, userID)
	})
}

// GET /api/v1/matches/orphaned
func HandleOrphanedMatches(w http.ResponseWriter, r *http.Request) {
	listForCreator(w, r, func(ctx context.Context, userID int64) ([]dbgen.Match, error) {
		return engine.ListOrphanedMatches(ctx, userID)
	})
}

func listForCreator(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID int64) ([]dbgen.Match, error)) {
	if !ready(w, r) {
		return
	}
	user, ok := apiutil.RequireUser(w, r)
	if !ok {
		return
	}
	found, err := list(r.Context(), user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if found == nil {
		found = []dbgen.Match{}
	}
	apiutil.Respond(w, r, http.StatusOK, found)
}

// POST /api/v1/matches/{id}/invitations
func HandleInvitePlayer(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	var req targetRequest
	if !apiutil.DecodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		apiutil.WriteError(w, r, apperr.New(apperr.KindInvalidInput, "user_id is required"))
		return
	}
	respondPlayer(w, r, http.StatusCreated)(engine.InvitePlayer(r.Context(), matchID, user.ID, req.UserID))
}

// POST /api/v1/matches/{id}/invitations/respond
func HandleRespondToInvitation(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	var req respondRequest
	if !apiutil.DecodeBody(w, r, &req) {
		return
	}
	respondPlayer(w, r, http.StatusOK)(engine.RespondToInvitation(r.Context(), matchID, user.ID, req.Accept))
}

// POST /api/v1/matches/{id}/join
func HandleJoinMatch(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if r.ContentLength != 0 && !apiutil.DecodeBody(w, r, &req) {
		return
	}
	respondPlayer(w, r, http.StatusOK)(engine.JoinMatch(r.Context(), matchID, user.ID, req.Team))
}

// POST /api/v1/matches/{id}/leave
func HandleLeaveMatch(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	respondPlayer(w, r, http.StatusOK)(engine.LeaveMatch(r.Context(), matchID, user.ID))
}

// POST /api/v1/matches/{id}/team
func HandleAssignTeam(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	var req teamRequest
	if !apiutil.DecodeBody(w, r, &req) {
		return
	}
	target := req.UserID
	if target == 0 {
		target = user.ID
	}
	respondPlayer(w, r, http.StatusOK)(engine.AssignTeam(r.Context(), matchID, user.ID, target, req.Team))
}

// POST /api/v1/matches/{id}/kick
func HandleKickPlayer(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	var req targetRequest
	if !apiutil.DecodeBody(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		apiutil.WriteError(w, r, apperr.New(apperr.KindInvalidInput, "user_id is required"))
		return
	}
	respondPlayer(w, r, http.StatusOK)(engine.KickPlayer(r.Context(), matchID, user.ID, req.UserID))
}

// POST /api/v1/matches/{id}/checkin
func HandleCheckInPlayer(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	respondPlayer(w, r, http.StatusOK)(engine.CheckInPlayer(r.Context(), matchID, user.ID))
}

// GET /api/v1/matches/{id}/ready
func HandleMatchReadiness(w http.ResponseWriter, r *http.Request) {
	_, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	allIn, err := engine.AllPlayersCheckedIn(r.Context(), matchID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	canStart, err := engine.CanStartMatch(r.Context(), matchID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, r, http.StatusOK, readinessResponse{MatchID: matchID, AllPlayersIn: allIn, CanStart: canStart})
}

// POST /api/v1/matches/{id}/start
func HandleStartMatch(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	respondMatch(w, r)(engine.StartMatch(r.Context(), matchID, user.ID))
}

// POST /api/v1/matches/{id}/complete
// Only the creator or an admin may record the end of a match.
func HandleCompleteMatch(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	if !authz.IsAdmin(user) {
		view, err := engine.GetMatch(r.Context(), matchID)
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		if view.Match.CreatorUserID != user.ID {
			apiutil.WriteError(w, r, apperr.New(apperr.KindNotOwner, "only the creator can complete match %d", matchID))
			return
		}
	}
	respondMatch(w, r)(engine.CompleteMatch(r.Context(), matchID))
}

// POST /api/v1/matches/{id}/cancel
func HandleCancelMatch(w http.ResponseWriter, r *http.Request) {
	user, matchID, ok := matchRequest(w, r)
	if !ok {
		return
	}
	respondMatch(w, r)(engine.CancelMatch(r.Context(), matchID, user.ID))
}

func respondPlayer(w http.ResponseWriter, r *http.Request, status int) func(dbgen.MatchPlayer, error) {
	return func(player dbgen.MatchPlayer, err error) {
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		apiutil.Respond(w, r, status, player)
	}
}

func respondMatch(w http.ResponseWriter, r *http.Request) func(dbgen.Match, error) {
	return func(m dbgen.Match, err error) {
		if err != nil {
			apiutil.WriteError(w, r, err)
			return
		}
		apiutil.Respond(w, r, http.StatusOK, m)
	}
}
