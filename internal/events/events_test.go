package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestNATSRelayPublishesUnderTypedSubject(t *testing.T) {
	pub := &fakePublisher{}
	relay := NewNATSRelay(pub)

	fact := NewFact(MatchStarted, time.Date(2030, time.March, 4, 10, 0, 0, 0, time.UTC))
	fact.MatchID = 42
	relay.Emit(context.Background(), fact)

	if len(pub.subjects) != 1 || pub.subjects[0] != "courtside.match.started" {
		t.Fatalf("subjects: got %v", pub.subjects)
	}
	var decoded Fact
	if err := json.Unmarshal(pub.payloads[0], &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.ID != fact.ID || decoded.MatchID != 42 {
		t.Fatalf("payload: got %+v", decoded)
	}
}

func TestNATSRelaySwallowsPublishErrors(t *testing.T) {
	relay := NewNATSRelay(&fakePublisher{err: errors.New("connection lost")})
	relay.Emit(context.Background(), NewFact(BookingCreated, time.Now()))
}

func TestMultiAndRecorder(t *testing.T) {
	first := NewRecorder()
	second := NewRecorder()
	emitter := Multi{first, nil, second}

	EmitAll(context.Background(), emitter, []Fact{
		NewFact(BookingCreated, time.Now()),
		NewFact(BookingConfirmed, time.Now()),
	})

	for _, rec := range []*Recorder{first, second} {
		types := rec.Types()
		if len(types) != 2 || types[0] != BookingCreated || types[1] != BookingConfirmed {
			t.Fatalf("types: got %v", types)
		}
	}

	first.Reset()
	if len(first.Facts()) != 0 {
		t.Fatal("expected reset to clear facts")
	}
	if OrDiscard(nil) != Discard {
		t.Fatal("expected nil emitter to become Discard")
	}
}
