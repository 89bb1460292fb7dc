package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/Courtside/internal/events"
)

// counterValue sums every sample of the named counter whose labels include want.
func counterValue(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			match := true
			for k, v := range want {
				if labels[k] != v {
					match = false
				}
			}
			if match {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

func TestEmitCountsFactsByType(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.Emit(ctx, events.NewFact(events.BookingCreated, time.Now()))
	m.Emit(ctx, events.NewFact(events.BookingCreated, time.Now()))
	m.Emit(ctx, events.NewFact(events.MatchStarted, time.Now()))

	if got := counterValue(t, m, "courtside_facts_total", map[string]string{"type": "booking.created"}); got != 2 {
		t.Fatalf("booking.created: got %v want 2", got)
	}
	if got := counterValue(t, m, "courtside_facts_total", map[string]string{"type": "match.started"}); got != 1 {
		t.Fatalf("match.started: got %v want 1", got)
	}
}

func TestObserveSweep(t *testing.T) {
	m := New()

	m.ObserveSweep(3, 1, 20*time.Millisecond, nil)
	m.ObserveSweep(0, 0, 5*time.Millisecond, errors.New("database locked"))

	cases := map[string]float64{
		"courtside_noshow_sweeps_total":           2,
		"courtside_noshow_sweep_failures_total":   1,
		"courtside_noshow_bookings_total":         3,
		"courtside_noshow_orphaned_matches_total": 1,
	}
	for name, want := range cases {
		if got := counterValue(t, m, name, nil); got != want {
			t.Fatalf("%s: got %v want %v", name, got, want)
		}
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodPost, http.StatusCreated, time.Millisecond)

	server := httptest.NewServer(m.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `courtside_http_requests_total{code="201",method="POST"} 1`) {
		t.Fatalf("expected request counter in output, got:\n%s", body)
	}
}
