package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const planningJSON = `[
	{"id": 42, "title": "Go avancé", "start": "2026-03-15T09:00:00+01:00", "end": "2026-03-15T12:00:00+01:00", "event_type": "course"},
	{"id": 43, "title": "Projet", "start": "2026-03-15T14:00:00+01:00", "end": "2026-03-15T17:00:00+01:00"}
]`

func TestPlanningEventsFetchesAndParses(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/apps/planning/json_dashboard", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("start"); got != "2026-03-15T00:00:00+01:00" {
			t.Errorf("start = %q", got)
		}
		if got := q.Get("end"); got != "2026-03-16T00:00:00+01:00" {
			t.Errorf("end = %q", got)
		}
		_, _ = w.Write([]byte(planningJSON))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	store.jars["u1"] = sessionJar()
	c := testClient(t, srv.URL, store, nil)

	events, err := c.PlanningEvents(context.Background(), "u1", date)
	if err != nil {
		t.Fatalf("PlanningEvents error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != 42 || events[0].Title != "Go avancé" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[0].EventType == nil || *events[0].EventType != "course" {
		t.Fatalf("event_type not parsed: %+v", events[0])
	}
	if events[1].EventType != nil {
		t.Fatalf("absent event_type should stay nil: %+v", events[1])
	}
}

func TestPlanningEventsCachedUntilTTLExpires(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	var fetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/apps/planning/json_dashboard", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		_, _ = w.Write([]byte(planningJSON))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	store.jars["u1"] = sessionJar()
	c := testClient(t, srv.URL, store, now)

	for i := 0; i < 3; i++ {
		if _, err := c.PlanningEvents(context.Background(), "u1", date); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Fatalf("warm cache must short-circuit the fetch, saw %d fetches", n)
	}

	// Past the TTL the entry is stale and exactly one refetch happens.
	current = current.Add(2 * time.Minute)
	if _, err := c.PlanningEvents(context.Background(), "u1", date); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if n := atomic.LoadInt32(&fetches); n != 2 {
		t.Fatalf("expected one refetch after expiry, saw %d fetches", n)
	}
}

func TestPlanningEventsSessionExpired(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newMemStore()
	store.jars["u1"] = sessionJar()
	c := testClient(t, srv.URL, store, nil)

	_, err := c.PlanningEvents(context.Background(), "u1", time.Now())
	if !IsKind(err, KindSessionExpired) {
		t.Fatalf("expected session-expired error, got %v", err)
	}
}

func TestPlanningEventsMalformedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer srv.Close()

	store := newMemStore()
	store.jars["u1"] = sessionJar()
	c := testClient(t, srv.URL, store, nil)

	_, err := c.PlanningEvents(context.Background(), "u1", time.Now())
	if !IsKind(err, KindContractViolation) {
		t.Fatalf("expected contract-violation error, got %v", err)
	}
}
