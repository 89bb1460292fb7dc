package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
)

const (
	PlayerInvited   = "invited"
	PlayerJoined    = "joined"
	PlayerCheckedIn = "checked_in"
	PlayerDeclined  = "declined"
	PlayerLeft      = "left"
	PlayerKicked    = "kicked"
)

var playerTransitions = map[string][]string{
	PlayerInvited:   {PlayerJoined, PlayerDeclined},
	PlayerJoined:    {PlayerCheckedIn, PlayerLeft, PlayerKicked},
	PlayerCheckedIn: {PlayerKicked},
}

// IsActivePlayer reports whether a roster entry still counts toward the match.
func IsActivePlayer(status string) bool {
	switch status {
	case PlayerInvited, PlayerJoined, PlayerCheckedIn:
		return true
	}
	return false
}

// IsSeated reports whether a roster entry occupies one of the match's seats.
func IsSeated(status string) bool {
	return status == PlayerJoined || status == PlayerCheckedIn
}

// TeamLabels returns A, B, ... for count teams.
func TeamLabels(count int64) []string {
	labels := make([]string, 0, count)
	for i := int64(0); i < count; i++ {
		labels = append(labels, string(rune('A'+i)))
	}
	return labels
}

func transitionPlayer(ctx context.Context, q *dbgen.Queries, player dbgen.MatchPlayer, to string, at time.Time) (dbgen.MatchPlayer, error) {
	if !slices.Contains(playerTransitions[player.Status], to) {
		return dbgen.MatchPlayer{}, apperr.New(apperr.KindInvalidTransition,
			"player %d in match %d: cannot transition from %s to %s", player.UserID, player.MatchID, player.Status, to)
	}
	params := dbgen.UpdateMatchPlayerStatusParams{
		Status:    to,
		CheckedIn: to == PlayerCheckedIn,
		ID:        player.ID,
	}
	if to == PlayerJoined {
		params.JoinedAt = sql.NullTime{Time: at, Valid: true}
	}
	updated, err := q.UpdateMatchPlayerStatus(ctx, params)
	if err != nil {
		return dbgen.MatchPlayer{}, fmt.Errorf("update player %d in match %d: %w", player.UserID, player.MatchID, err)
	}
	return updated, nil
}

// activeEntry returns the user's active roster entry, or nil when there is none.
func activeEntry(ctx context.Context, q *dbgen.Queries, matchID, userID int64) (*dbgen.MatchPlayer, error) {
	player, err := q.GetActiveMatchPlayer(ctx, dbgen.GetActiveMatchPlayerParams{MatchID: matchID, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get player %d in match %d: %w", userID, matchID, err)
	}
	return &player, nil
}

func requireEntry(ctx context.Context, q *dbgen.Queries, matchID, userID int64) (dbgen.MatchPlayer, error) {
	player, err := activeEntry(ctx, q, matchID, userID)
	if err != nil {
		return dbgen.MatchPlayer{}, err
	}
	if player == nil {
		return dbgen.MatchPlayer{}, apperr.New(apperr.KindNotFound, "user %d is not on the roster of match %d", userID, matchID)
	}
	return *player, nil
}

func requireRosterOpen(m dbgen.Match) error {
	if m.Status == StatusOpen || m.Status == StatusFull {
		return nil
	}
	return apperr.New(apperr.KindInvalidTransition, "match %d is %s; the roster is locked", m.ID, m.Status)
}

func requireSeatFree(ctx context.Context, q *dbgen.Queries, m dbgen.Match) error {
	seated, err := q.CountSeatedPlayers(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("count seated players in match %d: %w", m.ID, err)
	}
	if seated >= Capacity(m) {
		return apperr.New(apperr.KindRosterFull, "match %d has no free seats (%d/%d)", m.ID, seated, Capacity(m))
	}
	return nil
}

// checkTeamMove validates placing userID on team given the current seated roster.
func checkTeamMove(m dbgen.Match, roster []dbgen.MatchPlayer, userID int64, team string, tolerance int) error {
	labels := TeamLabels(m.TeamCount)
	if !slices.Contains(labels, team) {
		return apperr.New(apperr.KindInvalidTeam, "team %q is not one of %v", team, labels)
	}

	counts := make(map[string]int64, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}
	for _, p := range roster {
		if !IsSeated(p.Status) || p.UserID == userID || !p.Team.Valid {
			continue
		}
		counts[p.Team.String]++
	}
	counts[team]++

	if counts[team] > m.TeamSize {
		return apperr.New(apperr.KindInvalidTeam, "team %s already has %d players", team, m.TeamSize)
	}
	smallest := counts[team]
	for _, c := range counts {
		smallest = min(smallest, c)
	}
	if counts[team]-smallest > int64(tolerance) {
		return apperr.New(apperr.KindInvalidTeam, "team %s would lead the smallest team by %d", team, counts[team]-smallest)
	}
	return nil
}

func (e *Engine) applyTeam(ctx context.Context, q *dbgen.Queries, m dbgen.Match, player dbgen.MatchPlayer, team string) (dbgen.MatchPlayer, error) {
	roster, err := q.ListActiveMatchPlayers(ctx, m.ID)
	if err != nil {
		return dbgen.MatchPlayer{}, fmt.Errorf("list roster for match %d: %w", m.ID, err)
	}
	if err := checkTeamMove(m, roster, player.UserID, team, e.opts.TeamImbalanceTolerance); err != nil {
		return dbgen.MatchPlayer{}, err
	}
	updated, err := q.UpdateMatchPlayerTeam(ctx, dbgen.UpdateMatchPlayerTeamParams{
		Team: sql.NullString{String: team, Valid: true},
		ID:   player.ID,
	})
	if err != nil {
		return dbgen.MatchPlayer{}, fmt.Errorf("assign team for player %d: %w", player.UserID, err)
	}
	return updated, nil
}

// InvitePlayer adds target as invited. The inviter must hold a seat.
func (e *Engine) InvitePlayer(ctx context.Context, matchID, inviterUserID, targetUserID int64) (dbgen.MatchPlayer, error) {
	logger := e.logger(ctx, matchID, inviterUserID).With().Int64("target_user_id", targetUserID).Logger()

	if _, err := e.users.GetUser(ctx, targetUserID); err != nil {
		return dbgen.MatchPlayer{}, err
	}

	now := e.clock.Now()
	var invited dbgen.MatchPlayer
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Status == StatusFull {
			return apperr.New(apperr.KindRosterFull, "match %d is full", matchID)
		}
		if err := requireRosterOpen(m); err != nil {
			return err
		}
		inviter, err := activeEntry(ctx, q, matchID, inviterUserID)
		if err != nil {
			return err
		}
		if inviter == nil || !IsSeated(inviter.Status) {
			return apperr.New(apperr.KindInvalidParticipant, "user %d is not playing in match %d", inviterUserID, matchID)
		}
		existing, err := activeEntry(ctx, q, matchID, targetUserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.New(apperr.KindAlreadyInMatch, "user %d is already %s in match %d", targetUserID, existing.Status, matchID)
		}
		if err := requireSeatFree(ctx, q, m); err != nil {
			return err
		}

		invited, err = q.CreateMatchPlayer(ctx, dbgen.CreateMatchPlayerParams{
			MatchID:   matchID,
			UserID:    targetUserID,
			Status:    PlayerInvited,
			InvitedBy: sql.NullInt64{Int64: inviterUserID, Valid: true},
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Wrap(apperr.KindAlreadyInMatch, err, "user %d is already in match %d", targetUserID, matchID)
			}
			return fmt.Errorf("invite player %d to match %d: %w", targetUserID, matchID, err)
		}
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to invite player")
		return dbgen.MatchPlayer{}, err
	}

	logger.Info().Msg("Player invited")
	e.events.Emit(ctx, playerFact(events.PlayerInvited, invited, now))
	return invited, nil
}

// JoinMatch seats the user, promoting an existing invitation when there is one.
// A non-nil team places the player on that team in the same step.
func (e *Engine) JoinMatch(ctx context.Context, matchID, userID int64, team *string) (dbgen.MatchPlayer, error) {
	logger := e.logger(ctx, matchID, userID)

	if _, err := e.users.GetUser(ctx, userID); err != nil {
		return dbgen.MatchPlayer{}, err
	}

	now := e.clock.Now()
	var joined dbgen.MatchPlayer
	var facts []events.Fact
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		existing, err := activeEntry(ctx, q, matchID, userID)
		if err != nil {
			return err
		}
		if existing != nil && IsSeated(existing.Status) {
			return apperr.New(apperr.KindAlreadyInMatch, "user %d already plays in match %d", userID, matchID)
		}
		joined, facts, err = e.seat(ctx, q, m, existing, userID, team, now)
		return err
	})
	if err != nil {
		logRejection(logger, err, "Failed to join match")
		return dbgen.MatchPlayer{}, err
	}

	logger.Info().Msg("Player joined match")
	events.EmitAll(ctx, e.events, facts)
	return joined, nil
}

// RespondToInvitation accepts or declines a pending invitation.
func (e *Engine) RespondToInvitation(ctx context.Context, matchID, userID int64, accept bool) (dbgen.MatchPlayer, error) {
	logger := e.logger(ctx, matchID, userID).With().Bool("accept", accept).Logger()

	now := e.clock.Now()
	var updated dbgen.MatchPlayer
	var facts []events.Fact
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		entry, err := requireEntry(ctx, q, matchID, userID)
		if err != nil {
			return err
		}
		if entry.Status != PlayerInvited {
			to := PlayerDeclined
			if accept {
				to = PlayerJoined
			}
			return apperr.New(apperr.KindInvalidTransition,
				"player %d in match %d: cannot transition from %s to %s", userID, matchID, entry.Status, to)
		}

		if accept {
			updated, facts, err = e.seat(ctx, q, m, &entry, userID, nil, now)
			return err
		}

		if err := requireRosterOpen(m); err != nil {
			return err
		}
		updated, err = transitionPlayer(ctx, q, entry, PlayerDeclined, now)
		if err != nil {
			return err
		}
		facts = append(facts, playerFact(events.PlayerDeclined, updated, now))
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to respond to invitation")
		return dbgen.MatchPlayer{}, err
	}

	logger.Info().Str("status", updated.Status).Msg("Invitation answered")
	events.EmitAll(ctx, e.events, facts)
	return updated, nil
}

// seat gives the user a seat on m, either by promoting invite or creating a new
// entry, and advances open to full when the last seat is taken.
func (e *Engine) seat(ctx context.Context, q *dbgen.Queries, m dbgen.Match, invite *dbgen.MatchPlayer, userID int64, team *string, at time.Time) (dbgen.MatchPlayer, []events.Fact, error) {
	if m.Status == StatusFull {
		return dbgen.MatchPlayer{}, nil, apperr.New(apperr.KindRosterFull, "match %d is full", m.ID)
	}
	if m.Status != StatusOpen {
		return dbgen.MatchPlayer{}, nil, apperr.New(apperr.KindInvalidTransition, "match %d is %s; the roster is locked", m.ID, m.Status)
	}
	if err := requireSeatFree(ctx, q, m); err != nil {
		return dbgen.MatchPlayer{}, nil, err
	}

	var player dbgen.MatchPlayer
	var err error
	if invite != nil {
		player, err = transitionPlayer(ctx, q, *invite, PlayerJoined, at)
		if err != nil {
			return dbgen.MatchPlayer{}, nil, err
		}
	} else {
		player, err = q.CreateMatchPlayer(ctx, dbgen.CreateMatchPlayerParams{
			MatchID:  m.ID,
			UserID:   userID,
			Status:   PlayerJoined,
			JoinedAt: sql.NullTime{Time: at, Valid: true},
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return dbgen.MatchPlayer{}, nil, apperr.Wrap(apperr.KindAlreadyInMatch, err, "user %d is already in match %d", userID, m.ID)
			}
			return dbgen.MatchPlayer{}, nil, fmt.Errorf("add player %d to match %d: %w", userID, m.ID, err)
		}
	}

	if team != nil {
		player, err = e.applyTeam(ctx, q, m, player, *team)
		if err != nil {
			return dbgen.MatchPlayer{}, nil, err
		}
	}

	facts := []events.Fact{playerFact(events.PlayerJoined, player, at)}
	_, fact, err := e.syncCapacity(ctx, q, m, at)
	if err != nil {
		return dbgen.MatchPlayer{}, nil, err
	}
	if fact != nil {
		facts = append(facts, *fact)
	}
	return player, facts, nil
}

// AssignTeam places a seated player on a team. The creator may move anyone;
// players may move themselves.
func (e *Engine) AssignTeam(ctx context.Context, matchID, actorUserID, targetUserID int64, team string) (dbgen.MatchPlayer, error) {
	logger := e.logger(ctx, matchID, actorUserID).With().
		Int64("target_user_id", targetUserID).
		Str("team", team).
		Logger()

	now := e.clock.Now()
	var updated dbgen.MatchPlayer
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if actorUserID != m.CreatorUserID && actorUserID != targetUserID {
			return apperr.New(apperr.KindNotOwner, "only the match creator can assign other players")
		}
		if err := requireRosterOpen(m); err != nil {
			return err
		}
		player, err := requireEntry(ctx, q, matchID, targetUserID)
		if err != nil {
			return err
		}
		if !IsSeated(player.Status) {
			return apperr.New(apperr.KindInvalidParticipant, "user %d has not joined match %d", targetUserID, matchID)
		}
		updated, err = e.applyTeam(ctx, q, m, player, team)
		return err
	})
	if err != nil {
		logRejection(logger, err, "Failed to assign team")
		return dbgen.MatchPlayer{}, err
	}

	logger.Info().Msg("Team assigned")
	e.events.Emit(ctx, playerFact(events.PlayerTeamChanged, updated, now))
	return updated, nil
}

// KickPlayer removes a seated player. Only the creator may kick, and not themselves.
func (e *Engine) KickPlayer(ctx context.Context, matchID, creatorUserID, targetUserID int64) (dbgen.MatchPlayer, error) {
	logger := e.logger(ctx, matchID, creatorUserID).With().Int64("target_user_id", targetUserID).Logger()

	now := e.clock.Now()
	var kicked dbgen.MatchPlayer
	var facts []events.Fact
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.CreatorUserID != creatorUserID {
			return apperr.New(apperr.KindNotOwner, "only the creator of match %d can remove players", matchID)
		}
		if targetUserID == creatorUserID {
			return apperr.New(apperr.KindCreatorCannotLeave, "the creator cannot remove themselves from match %d", matchID)
		}
		if err := requireRosterOpen(m); err != nil {
			return err
		}
		player, err := requireEntry(ctx, q, matchID, targetUserID)
		if err != nil {
			return err
		}
		kicked, err = transitionPlayer(ctx, q, player, PlayerKicked, now)
		if err != nil {
			return err
		}
		facts = append(facts, playerFact(events.PlayerKicked, kicked, now))

		_, fact, err := e.syncCapacity(ctx, q, m, now)
		if err != nil {
			return err
		}
		if fact != nil {
			facts = append(facts, *fact)
		}
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to kick player")
		return dbgen.MatchPlayer{}, err
	}

	logger.Info().Msg("Player kicked")
	events.EmitAll(ctx, e.events, facts)
	return kicked, nil
}

// LeaveMatch gives up a joined seat. A creator leaving follows the configured
// policy: reject, or hand the match to the earliest seated player.
func (e *Engine) LeaveMatch(ctx context.Context, matchID, userID int64) (dbgen.MatchPlayer, error) {
	logger := e.logger(ctx, matchID, userID)

	now := e.clock.Now()
	var left dbgen.MatchPlayer
	var facts []events.Fact
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if err := requireRosterOpen(m); err != nil {
			return err
		}
		player, err := requireEntry(ctx, q, matchID, userID)
		if err != nil {
			return err
		}
		if player.Status != PlayerJoined {
			return apperr.New(apperr.KindInvalidTransition,
				"player %d in match %d: cannot transition from %s to %s", userID, matchID, player.Status, PlayerLeft)
		}

		if m.CreatorUserID == userID {
			if e.opts.CreatorLeavePolicy != CreatorLeaveTransfer {
				return apperr.New(apperr.KindCreatorCannotLeave, "the creator cannot leave match %d; cancel it instead", matchID)
			}
			successor, err := nextCreator(ctx, q, m.ID, userID)
			if err != nil {
				return err
			}
			if _, err := q.UpdateMatchCreator(ctx, dbgen.UpdateMatchCreatorParams{CreatorUserID: successor, ID: m.ID}); err != nil {
				return fmt.Errorf("transfer match %d: %w", m.ID, err)
			}
			fact := matchFact(events.MatchCreatorMoved, m, now)
			fact.UserID = successor
			facts = append(facts, fact)
			logger.Info().Int64("new_creator_user_id", successor).Msg("Match ownership transferred")
		}

		left, err = transitionPlayer(ctx, q, player, PlayerLeft, now)
		if err != nil {
			return err
		}
		facts = append(facts, playerFact(events.PlayerLeft, left, now))

		_, fact, err := e.syncCapacity(ctx, q, m, now)
		if err != nil {
			return err
		}
		if fact != nil {
			facts = append(facts, *fact)
		}
		return nil
	})
	if err != nil {
		logRejection(logger, err, "Failed to leave match")
		return dbgen.MatchPlayer{}, err
	}

	logger.Info().Msg("Player left match")
	events.EmitAll(ctx, e.events, facts)
	return left, nil
}

// nextCreator picks the seated player other than current who joined first.
func nextCreator(ctx context.Context, q *dbgen.Queries, matchID, current int64) (int64, error) {
	roster, err := q.ListActiveMatchPlayers(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("list roster for match %d: %w", matchID, err)
	}
	candidates := make([]dbgen.MatchPlayer, 0, len(roster))
	for _, p := range roster {
		if p.UserID != current && IsSeated(p.Status) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return 0, apperr.New(apperr.KindCreatorCannotLeave, "nobody else is playing in match %d to take it over", matchID)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.JoinedAt.Valid && b.JoinedAt.Valid && !a.JoinedAt.Time.Equal(b.JoinedAt.Time) {
			return a.JoinedAt.Time.Before(b.JoinedAt.Time)
		}
		return a.ID < b.ID
	})
	return candidates[0].UserID, nil
}

// CheckInPlayer marks a seated player present. Check-in opens once the match is full.
func (e *Engine) CheckInPlayer(ctx context.Context, matchID, userID int64) (dbgen.MatchPlayer, error) {
	logger := e.logger(ctx, matchID, userID)

	now := e.clock.Now()
	var checkedIn dbgen.MatchPlayer
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries
		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Status != StatusFull {
			return apperr.New(apperr.KindInvalidTransition, "match %d is %s; players check in once it is full", matchID, m.Status)
		}
		player, err := requireEntry(ctx, q, matchID, userID)
		if err != nil {
			return err
		}
		checkedIn, err = transitionPlayer(ctx, q, player, PlayerCheckedIn, now)
		return err
	})
	if err != nil {
		logRejection(logger, err, "Failed to check in player")
		return dbgen.MatchPlayer{}, err
	}

	logger.Info().Msg("Player checked in")
	e.events.Emit(ctx, playerFact(events.PlayerCheckedIn, checkedIn, now))
	return checkedIn, nil
}
