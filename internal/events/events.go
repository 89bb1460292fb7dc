// Package events carries state-change facts out of the engines after commit.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	BookingCreated    Type = "booking.created"
	BookingConfirmed  Type = "booking.confirmed"
	BookingCancelled  Type = "booking.cancelled"
	BookingCheckedIn  Type = "booking.checked_in"
	BookingNoShow     Type = "booking.no_show"
	MatchCreated      Type = "match.created"
	MatchFull         Type = "match.full"
	MatchReopened     Type = "match.reopened"
	MatchStarted      Type = "match.started"
	MatchCompleted    Type = "match.completed"
	MatchCancelled    Type = "match.cancelled"
	MatchCreatorMoved Type = "match.creator_transferred"
	PlayerInvited     Type = "match.player_invited"
	PlayerJoined      Type = "match.player_joined"
	PlayerDeclined    Type = "match.player_declined"
	PlayerLeft        Type = "match.player_left"
	PlayerKicked      Type = "match.player_kicked"
	PlayerCheckedIn   Type = "match.player_checked_in"
	PlayerTeamChanged Type = "match.player_team_changed"
	RatingSubmitted   Type = "rating.submitted"
)

// Fact is one committed state change.
type Fact struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	BookingID  int64             `json:"booking_id,omitempty"`
	MatchID    int64             `json:"match_id,omitempty"`
	UserID     int64             `json:"user_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewFact stamps a fact with a fresh id.
func NewFact(t Type, at time.Time) Fact {
	return Fact{ID: uuid.NewString(), Type: t, OccurredAt: at}
}

// Emitter receives facts. Implementations must not block the caller for long
// and must not fail the operation that produced the fact.
type Emitter interface {
	Emit(ctx context.Context, fact Fact)
}

type discard struct{}

func (discard) Emit(context.Context, Fact) {}

// Discard drops every fact.
var Discard Emitter = discard{}

// OrDiscard returns e, or Discard when e is nil.
func OrDiscard(e Emitter) Emitter {
	if e == nil {
		return Discard
	}
	return e
}

// EmitAll sends facts in order.
func EmitAll(ctx context.Context, e Emitter, facts []Fact) {
	for _, fact := range facts {
		e.Emit(ctx, fact)
	}
}

// Recorder keeps facts in memory.
type Recorder struct {
	mu    sync.Mutex
	facts []Fact
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, fact Fact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facts = append(r.facts, fact)
}

func (r *Recorder) Facts() []Fact {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Fact, len(r.facts))
	copy(out, r.facts)
	return out
}

// Types returns the recorded fact types in emission order.
func (r *Recorder) Types() []Type {
	facts := r.Facts()
	types := make([]Type, 0, len(facts))
	for _, f := range facts {
		types = append(types, f.Type)
	}
	return types
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facts = nil
}

// Multi fans a fact out to several emitters.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, fact Fact) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, fact)
		}
	}
}
