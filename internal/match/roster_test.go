package match

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/codr1/Courtside/internal/apperr"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/testutil"
)

func TestKickReopensAndSeatCanBeRefilled(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	players := testutil.SeedUsers(t, h.db, "player", 5)
	creator := players[0]
	m := h.newMatch(t, creator.ID, 2)
	h.fill(t, m.ID, players[1:4])

	if _, err := h.engine.JoinMatch(ctx, m.ID, players[4].ID, nil); !errors.Is(err, apperr.ErrRosterFull) {
		t.Fatalf("join full match: expected roster full, got %v", err)
	}
	if _, err := h.engine.KickPlayer(ctx, m.ID, players[1].ID, players[2].ID); !errors.Is(err, apperr.ErrNotOwner) {
		t.Fatalf("kick by player: expected not owner, got %v", err)
	}
	if _, err := h.engine.KickPlayer(ctx, m.ID, creator.ID, creator.ID); !errors.Is(err, apperr.ErrCreatorCannotLeave) {
		t.Fatalf("self kick: expected creator cannot leave, got %v", err)
	}

	h.events.Reset()
	kicked, err := h.engine.KickPlayer(ctx, m.ID, creator.ID, players[3].ID)
	if err != nil {
		t.Fatalf("kick: %v", err)
	}
	if kicked.Status != PlayerKicked {
		t.Fatalf("kicked status: %s", kicked.Status)
	}
	if got := h.status(t, m.ID); got != StatusOpen {
		t.Fatalf("kick should reopen the match, got %s", got)
	}
	types := h.events.Types()
	if len(types) != 2 || types[0] != events.PlayerKicked || types[1] != events.MatchReopened {
		t.Fatalf("facts: %v", types)
	}

	if _, err := h.engine.JoinMatch(ctx, m.ID, players[4].ID, nil); err != nil {
		t.Fatalf("refill: %v", err)
	}
	if got := h.status(t, m.ID); got != StatusFull {
		t.Fatalf("refill should fill the match, got %s", got)
	}

	// A kicked player may come back once a seat frees up.
	if _, err := h.engine.LeaveMatch(ctx, m.ID, players[4].ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := h.engine.JoinMatch(ctx, m.ID, players[3].ID, nil); err != nil {
		t.Fatalf("rejoin after kick: %v", err)
	}
}

func TestKickCheckedInPlayer(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	players := testutil.SeedUsers(t, h.db, "player", 4)
	m := h.newMatch(t, players[0].ID, 2)
	h.fill(t, m.ID, players[1:])

	if _, err := h.engine.CheckInPlayer(ctx, m.ID, players[2].ID); err != nil {
		t.Fatalf("check in: %v", err)
	}
	if _, err := h.engine.CheckInPlayer(ctx, m.ID, players[2].ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("double check in: expected invalid transition, got %v", err)
	}
	if _, err := h.engine.LeaveMatch(ctx, m.ID, players[2].ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("checked-in leave: expected invalid transition, got %v", err)
	}
	kicked, err := h.engine.KickPlayer(ctx, m.ID, players[0].ID, players[2].ID)
	if err != nil {
		t.Fatalf("kick checked-in player: %v", err)
	}
	if kicked.Status != PlayerKicked || !kicked.CheckedIn {
		t.Fatalf("kicked entry should keep its check-in, got %s checked_in %v", kicked.Status, kicked.CheckedIn)
	}
	if got := h.status(t, m.ID); got != StatusOpen {
		t.Fatalf("got %s want open", got)
	}
}

func TestCreatorLeavePolicies(t *testing.T) {
	t.Run("reject", func(t *testing.T) {
		h := newHarness(t, nil)
		players := testutil.SeedUsers(t, h.db, "player", 2)
		m := h.newMatch(t, players[0].ID, 2)
		h.fill(t, m.ID, players[1:])

		if _, err := h.engine.LeaveMatch(context.Background(), m.ID, players[0].ID); !errors.Is(err, apperr.ErrCreatorCannotLeave) {
			t.Fatalf("expected creator cannot leave, got %v", err)
		}
	})

	t.Run("transfer to earliest seated player", func(t *testing.T) {
		h := newHarness(t, func(o *Options) { o.CreatorLeavePolicy = CreatorLeaveTransfer })
		ctx := context.Background()
		players := testutil.SeedUsers(t, h.db, "player", 4)
		m := h.newMatch(t, players[0].ID, 2)
		h.fill(t, m.ID, players[1:])

		if _, err := h.engine.LeaveMatch(ctx, m.ID, players[0].ID); err != nil {
			t.Fatalf("creator leave: %v", err)
		}
		view, err := h.engine.GetMatch(ctx, m.ID)
		if err != nil {
			t.Fatalf("get match: %v", err)
		}
		if view.Match.CreatorUserID != players[1].ID {
			t.Fatalf("new creator: got %d want %d", view.Match.CreatorUserID, players[1].ID)
		}
		if view.Match.Status != StatusOpen || view.Seated != 3 {
			t.Fatalf("after leave: status %s seated %d", view.Match.Status, view.Seated)
		}
		if _, err := h.engine.KickPlayer(ctx, m.ID, players[1].ID, players[3].ID); err != nil {
			t.Fatalf("new creator should be able to kick: %v", err)
		}
	})

	t.Run("transfer with nobody left", func(t *testing.T) {
		h := newHarness(t, func(o *Options) { o.CreatorLeavePolicy = CreatorLeaveTransfer })
		creator := testutil.SeedUser(t, h.db, "solo")
		m := h.newMatch(t, creator.ID, 2)

		if _, err := h.engine.LeaveMatch(context.Background(), m.ID, creator.ID); !errors.Is(err, apperr.ErrCreatorCannotLeave) {
			t.Fatalf("expected creator cannot leave, got %v", err)
		}
	})
}

func TestInvitations(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	players := testutil.SeedUsers(t, h.db, "player", 6)
	creator := players[0]
	m := h.newMatch(t, creator.ID, 2)

	if _, err := h.engine.InvitePlayer(ctx, m.ID, players[1].ID, players[2].ID); !errors.Is(err, apperr.ErrInvalidParticipant) {
		t.Fatalf("invite by outsider: expected invalid participant, got %v", err)
	}
	if _, err := h.engine.InvitePlayer(ctx, m.ID, creator.ID, 9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("invite unknown user: expected not found, got %v", err)
	}

	invite, err := h.engine.InvitePlayer(ctx, m.ID, creator.ID, players[1].ID)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if invite.Status != PlayerInvited || invite.InvitedBy.Int64 != creator.ID {
		t.Fatalf("invite: %+v", invite)
	}
	if _, err := h.engine.InvitePlayer(ctx, m.ID, creator.ID, players[1].ID); !errors.Is(err, apperr.ErrAlreadyInMatch) {
		t.Fatalf("duplicate invite: expected already in match, got %v", err)
	}
	if _, err := h.engine.InvitePlayer(ctx, m.ID, players[1].ID, players[2].ID); !errors.Is(err, apperr.ErrInvalidParticipant) {
		t.Fatalf("invitee cannot invite before joining, got %v", err)
	}

	declined, err := h.engine.RespondToInvitation(ctx, m.ID, players[1].ID, false)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != PlayerDeclined {
		t.Fatalf("declined status: %s", declined.Status)
	}
	if _, err := h.engine.RespondToInvitation(ctx, m.ID, players[1].ID, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("answer after decline: expected not found, got %v", err)
	}

	// Re-inviting after a decline is allowed and accepting counts as joining.
	if _, err := h.engine.InvitePlayer(ctx, m.ID, creator.ID, players[1].ID); err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	if _, err := h.engine.JoinMatch(ctx, m.ID, players[1].ID, nil); err != nil {
		t.Fatalf("join with invitation: %v", err)
	}
	if _, err := h.engine.JoinMatch(ctx, m.ID, players[1].ID, nil); !errors.Is(err, apperr.ErrAlreadyInMatch) {
		t.Fatalf("second join: expected already in match, got %v", err)
	}
	if _, err := h.engine.RespondToInvitation(ctx, m.ID, players[1].ID, true); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("accept while joined: expected invalid transition, got %v", err)
	}

	// Invitations hold no seat, so the match can fill around them.
	if _, err := h.engine.InvitePlayer(ctx, m.ID, players[1].ID, players[5].ID); err != nil {
		t.Fatalf("invite by joined player: %v", err)
	}
	h.fill(t, m.ID, players[2:4])
	if got := h.status(t, m.ID); got != StatusFull {
		t.Fatalf("got %s want full", got)
	}
	if _, err := h.engine.InvitePlayer(ctx, m.ID, creator.ID, players[4].ID); !errors.Is(err, apperr.ErrRosterFull) {
		t.Fatalf("invite into full match: expected roster full, got %v", err)
	}
	if _, err := h.engine.RespondToInvitation(ctx, m.ID, players[5].ID, true); !errors.Is(err, apperr.ErrRosterFull) {
		t.Fatalf("accept into full match: expected roster full, got %v", err)
	}

	for _, p := range players[:4] {
		if _, err := h.engine.CheckInPlayer(ctx, m.ID, p.ID); err != nil {
			t.Fatalf("check in: %v", err)
		}
	}
	if _, err := h.engine.StartMatch(ctx, m.ID, creator.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	entry, err := h.db.Queries.GetActiveMatchPlayer(ctx, dbgen.GetActiveMatchPlayerParams{MatchID: m.ID, UserID: players[5].ID})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("outstanding invitation should be declined at start, got %+v %v", entry, err)
	}
}

func TestTeamAssignment(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	players := testutil.SeedUsers(t, h.db, "player", 6)
	creator := players[0]
	m := h.newMatch(t, creator.ID, 3)
	h.fill(t, m.ID, players[1:4])

	a, b := "A", "B"
	if _, err := h.engine.AssignTeam(ctx, m.ID, creator.ID, players[1].ID, "C"); !errors.Is(err, apperr.ErrInvalidTeam) {
		t.Fatalf("unknown label: expected invalid team, got %v", err)
	}
	if _, err := h.engine.AssignTeam(ctx, m.ID, players[2].ID, players[1].ID, a); !errors.Is(err, apperr.ErrNotOwner) {
		t.Fatalf("assign someone else: expected not owner, got %v", err)
	}
	if _, err := h.engine.AssignTeam(ctx, m.ID, creator.ID, players[5].ID, a); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("assign outsider: expected not found, got %v", err)
	}

	if _, err := h.engine.AssignTeam(ctx, m.ID, players[1].ID, players[1].ID, a); err != nil {
		t.Fatalf("self assign: %v", err)
	}
	// A=2, B=0 would exceed the tolerance of one.
	if _, err := h.engine.AssignTeam(ctx, m.ID, creator.ID, players[2].ID, a); !errors.Is(err, apperr.ErrInvalidTeam) {
		t.Fatalf("imbalance: expected invalid team, got %v", err)
	}
	if _, err := h.engine.AssignTeam(ctx, m.ID, creator.ID, players[2].ID, b); err != nil {
		t.Fatalf("assign B: %v", err)
	}
	if _, err := h.engine.AssignTeam(ctx, m.ID, creator.ID, creator.ID, a); err != nil {
		t.Fatalf("assign A: %v", err)
	}

	// Moving a player re-evaluates balance without counting their old team.
	moved, err := h.engine.AssignTeam(ctx, m.ID, creator.ID, creator.ID, b)
	if err != nil {
		t.Fatalf("move to B: %v", err)
	}
	if moved.Team.String != b {
		t.Fatalf("team: got %q want B", moved.Team.String)
	}
	if _, err := h.engine.AssignTeam(ctx, m.ID, creator.ID, players[3].ID, a); err != nil {
		t.Fatalf("assign A: %v", err)
	}

	joined, err := h.engine.JoinMatch(ctx, m.ID, players[4].ID, &b)
	if err != nil {
		t.Fatalf("join with team: %v", err)
	}
	if joined.Team.String != b {
		t.Fatalf("join team: got %q want B", joined.Team.String)
	}
	if _, err := h.engine.JoinMatch(ctx, m.ID, players[5].ID, &b); !errors.Is(err, apperr.ErrInvalidTeam) {
		t.Fatalf("team B is full: expected invalid team, got %v", err)
	}
	if got := h.status(t, m.ID); got != StatusOpen {
		t.Fatalf("rejected join must roll back, got %s", got)
	}
}

func TestCheckTeamMove(t *testing.T) {
	m := dbgen.Match{ID: 1, TeamSize: 2, TeamCount: 3}
	on := func(userID int64, team string) dbgen.MatchPlayer {
		return dbgen.MatchPlayer{UserID: userID, Status: PlayerJoined, Team: sql.NullString{String: team, Valid: team != ""}}
	}
	roster := []dbgen.MatchPlayer{on(1, "A"), on(2, "B"), on(3, "C"), on(4, ""), {UserID: 5, Status: PlayerInvited, Team: sql.NullString{String: "A", Valid: true}}}

	cases := []struct {
		name      string
		userID    int64
		team      string
		tolerance int
		wantErr   bool
	}{
		{"invited entries do not count", 4, "A", 1, false},
		{"bad label", 4, "D", 1, true},
		{"reassign to same team", 1, "A", 1, false},
		{"move away leaves gap", 1, "B", 1, true},
	}
	for _, tc := range cases {
		err := checkTeamMove(m, roster, tc.userID, tc.team, tc.tolerance)
		if tc.wantErr != (err != nil) {
			t.Fatalf("%s: got %v wantErr %v", tc.name, err, tc.wantErr)
		}
	}

	// The first assignment onto empty teams always fits the minimum tolerance.
	empty := dbgen.Match{ID: 2, TeamSize: 5, TeamCount: 2}
	unassigned := []dbgen.MatchPlayer{on(1, ""), on(2, "")}
	for _, team := range []string{"A", "B"} {
		if err := checkTeamMove(empty, unassigned, 1, team, 1); err != nil {
			t.Fatalf("first player onto %s: %v", team, err)
		}
	}
	if err := checkTeamMove(empty, []dbgen.MatchPlayer{on(1, "A"), on(2, "")}, 2, "A", 1); !errors.Is(err, apperr.ErrInvalidTeam) {
		t.Fatalf("second player onto A over empty B: got %v", err)
	}

	full := []dbgen.MatchPlayer{on(1, "A"), on(2, "A"), on(3, "B"), on(4, "B"), on(6, "C")}
	if err := checkTeamMove(m, full, 7, "A", 5); !errors.Is(err, apperr.ErrInvalidTeam) {
		t.Fatalf("team over size: got %v", err)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	creator := testutil.SeedUser(t, h.db, "creator")
	m := h.newMatch(t, creator.ID, 2)
	hopefuls := testutil.SeedUsers(t, h.db, "hopeful", 10)

	results := make([]error, len(hopefuls))
	var g errgroup.Group
	for i, p := range hopefuls {
		g.Go(func() error {
			_, results[i] = h.engine.JoinMatch(ctx, m.ID, p.ID, nil)
			return nil
		})
	}
	_ = g.Wait()

	joined := 0
	for i, err := range results {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, apperr.ErrRosterFull):
		default:
			t.Fatalf("join %d: unexpected error %v", i, err)
		}
	}
	if joined != 3 {
		t.Fatalf("joined: got %d want 3", joined)
	}

	view, err := h.engine.GetMatch(ctx, m.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if view.Seated != 4 || view.Match.Status != StatusFull {
		t.Fatalf("after race: seated %d status %s", view.Seated, view.Match.Status)
	}
}

func TestTeamLabels(t *testing.T) {
	got := TeamLabels(4)
	want := []string{"A", "B", "C", "D"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
