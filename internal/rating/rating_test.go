package rating

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/apperr"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/catalog"
	"github.com/codr1/Courtside/internal/db"
	dbgen "github.com/codr1/Courtside/internal/db/generated"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/identity"
	"github.com/codr1/Courtside/internal/match"
	"github.com/codr1/Courtside/internal/testutil"
)

type fixture struct {
	db      *db.DB
	matches *match.Engine
	events  *events.Recorder
	engine  *Engine
	players []dbgen.User
	match   dbgen.Match
}

// newFixture plays a 2v2 match up to the point where it is full and every
// player has checked in.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database, "UTC", "06:00", "22:00")
	clk := testutil.NewClock(time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC))
	recorder := events.NewRecorder()
	users := identity.NewStore(database.Queries)

	matches, err := match.NewEngine(database, users, match.Options{TeamImbalanceTolerance: 1, Clock: clk})
	if err != nil {
		t.Fatalf("new match engine: %v", err)
	}
	bookings, err := booking.NewEngine(database, catalog.NewStore(database.Queries), users, booking.Options{Clock: clk, Matches: matches})
	if err != nil {
		t.Fatalf("new booking engine: %v", err)
	}
	engine, err := NewEngine(database, Options{Clock: clk, Events: recorder})
	if err != nil {
		t.Fatalf("new rating engine: %v", err)
	}

	players := testutil.SeedUsers(t, database, "player", 5)
	b, err := bookings.BookCourt(ctx, booking.BookingRequest{
		CourtID:   venue.Court.ID,
		Date:      "2030-03-04",
		StartTime: "10:00",
		EndTime:   "11:00",
	}, players[0].ID)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	m, err := matches.CreateMatch(ctx, match.CreateMatchRequest{
		CreatorUserID: players[0].ID,
		BookingID:     b.ID,
		SportID:       1,
		TeamSize:      2,
		Title:         "Morning doubles",
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	for _, p := range players[1:4] {
		if _, err := matches.JoinMatch(ctx, m.ID, p.ID, nil); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	for _, p := range players[:4] {
		if _, err := matches.CheckInPlayer(ctx, m.ID, p.ID); err != nil {
			t.Fatalf("check in: %v", err)
		}
	}

	return &fixture{db: database, matches: matches, events: recorder, engine: engine, players: players, match: m}
}

func (f *fixture) play(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.matches.StartMatch(ctx, f.match.ID, f.players[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.matches.CompleteMatch(ctx, f.match.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func (f *fixture) request(rater, rated int) RatingRequest {
	return RatingRequest{
		MatchID:             f.match.ID,
		RaterUserID:         f.players[rater].ID,
		RatedUserID:         f.players[rated].ID,
		SkillRating:         4,
		SportsmanshipRating: 5,
	}
}

func TestRatePlayerRequiresCompletedMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.RatePlayer(ctx, f.request(0, 1)); !errors.Is(err, apperr.ErrMatchNotCompleted) {
		t.Fatalf("rating a full match: expected match not completed, got %v", err)
	}
	if _, err := f.matches.StartMatch(ctx, f.match.ID, f.players[0].ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.engine.RatePlayer(ctx, f.request(0, 1)); !errors.Is(err, apperr.ErrMatchNotCompleted) {
		t.Fatalf("rating a running match: expected match not completed, got %v", err)
	}
	if _, err := f.matches.CompleteMatch(ctx, f.match.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	created, err := f.engine.RatePlayer(ctx, RatingRequest{
		MatchID:             f.match.ID,
		RaterUserID:         f.players[0].ID,
		RatedUserID:         f.players[1].ID,
		SkillRating:         3,
		SportsmanshipRating: 5,
		Comment:             "  great dinks  ",
	})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if created.Comment.String != "great dinks" || created.SkillRating != 3 {
		t.Fatalf("rating: %+v", created)
	}
	types := f.events.Types()
	if len(types) != 1 || types[0] != events.RatingSubmitted {
		t.Fatalf("facts: %v", types)
	}
}

func TestRatePlayerValidation(t *testing.T) {
	f := newFixture(t)
	f.play(t)
	ctx := context.Background()

	self := f.request(1, 1)
	outsider := f.request(0, 4)
	byOutsider := f.request(4, 0)
	lowSkill := f.request(0, 1)
	lowSkill.SkillRating = 0
	highSportsmanship := f.request(0, 1)
	highSportsmanship.SportsmanshipRating = 6
	unknownMatch := f.request(0, 1)
	unknownMatch.MatchID = 999
	longComment := f.request(0, 1)
	longComment.Comment = strings.Repeat("é", maxCommentLen+1)

	cases := []struct {
		name string
		req  RatingRequest
		want error
	}{
		{"self rating", self, apperr.ErrInvalidParticipant},
		{"rated did not play", outsider, apperr.ErrInvalidParticipant},
		{"rater did not play", byOutsider, apperr.ErrInvalidParticipant},
		{"score below range", lowSkill, apperr.ErrInvalidInput},
		{"score above range", highSportsmanship, apperr.ErrInvalidInput},
		{"unknown match", unknownMatch, apperr.ErrNotFound},
		{"comment too long", longComment, apperr.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.engine.RatePlayer(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}
}

func TestRatePlayerCommentLimitCountsCharacters(t *testing.T) {
	f := newFixture(t)
	f.play(t)

	req := f.request(0, 1)
	req.Comment = strings.Repeat("é", maxCommentLen)
	created, err := f.engine.RatePlayer(context.Background(), req)
	if err != nil {
		t.Fatalf("multi-byte comment at the limit: %v", err)
	}
	if created.Comment.String != req.Comment {
		t.Fatal("comment should be stored unchanged")
	}
}

func TestRatePlayerRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.play(t)
	ctx := context.Background()

	if _, err := f.engine.RatePlayer(ctx, f.request(0, 1)); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if _, err := f.engine.RatePlayer(ctx, f.request(0, 1)); !errors.Is(err, apperr.ErrDuplicateRating) {
		t.Fatalf("expected duplicate rating, got %v", err)
	}
	// The reverse direction is a different rating.
	if _, err := f.engine.RatePlayer(ctx, f.request(1, 0)); err != nil {
		t.Fatalf("reverse rating: %v", err)
	}

	_, err := f.db.Queries.CreatePlayerRating(ctx, dbgen.CreatePlayerRatingParams{
		MatchID:             f.match.ID,
		RaterUserID:         f.players[0].ID,
		RatedUserID:         f.players[1].ID,
		SkillRating:         1,
		SportsmanshipRating: 1,
	})
	if !db.IsUniqueViolation(err) {
		t.Fatalf("unique index should reject a second row, got %v", err)
	}
}

func TestHasUserRatedAllPlayers(t *testing.T) {
	f := newFixture(t)
	f.play(t)
	ctx := context.Background()

	done, err := f.engine.HasUserRatedAllPlayers(ctx, f.match.ID, f.players[0].ID)
	if err != nil || done {
		t.Fatalf("before rating: got %v %v", done, err)
	}
	for _, rated := range []int{1, 2, 3} {
		if _, err := f.engine.RatePlayer(ctx, f.request(0, rated)); err != nil {
			t.Fatalf("rate %d: %v", rated, err)
		}
		done, err = f.engine.HasUserRatedAllPlayers(ctx, f.match.ID, f.players[0].ID)
		if err != nil {
			t.Fatalf("has rated all: %v", err)
		}
		if want := rated == 3; done != want {
			t.Fatalf("after rating %d: got %v want %v", rated, done, want)
		}
	}
	if _, err := f.engine.HasUserRatedAllPlayers(ctx, f.match.ID, f.players[4].ID); !errors.Is(err, apperr.ErrInvalidParticipant) {
		t.Fatalf("outsider: expected invalid participant, got %v", err)
	}

	byMatch, err := f.engine.ListMatchRatings(ctx, f.match.ID)
	if err != nil || len(byMatch) != 3 {
		t.Fatalf("match ratings: %d %v", len(byMatch), err)
	}
	given, err := f.engine.ListRatingsGiven(ctx, f.players[0].ID)
	if err != nil || len(given) != 3 {
		t.Fatalf("given: %d %v", len(given), err)
	}
	received, err := f.engine.ListRatingsReceived(ctx, f.players[2].ID)
	if err != nil || len(received) != 1 || received[0].RaterUserID != f.players[0].ID {
		t.Fatalf("received: %+v %v", received, err)
	}
}

func TestNewEngineScoreRange(t *testing.T) {
	database := testutil.NewTestDB(t)
	if _, err := NewEngine(database, Options{MinScore: 5, MaxScore: 1}); err == nil {
		t.Fatal("expected inverted range to be rejected")
	}
	e, err := NewEngine(database, Options{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if e.opts.MinScore != 1 || e.opts.MaxScore != 5 {
		t.Fatalf("defaults: %d-%d", e.opts.MinScore, e.opts.MaxScore)
	}
}
