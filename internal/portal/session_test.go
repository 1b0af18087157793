package portal

import (
	"context"
	"testing"
	"time"
)

func TestValidSessionDropsExpiredCookies(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.jars["u1"] = Jar{
		{Name: "_session_id", Value: "abcdefghijklmnopqrstuvwxyz"},
		{Name: "stale", Value: "x", Expires: epoch(now.Add(-time.Hour))},
	}
	c := testClient(t, "http://portal.invalid", store, func() time.Time { return now })

	jar, err := c.ValidSession(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ValidSession error: %v", err)
	}
	if len(jar) != 1 || jar[0].Name != "_session_id" {
		t.Fatalf("expired cookie survived: %+v", jar)
	}
}

func TestHasValidSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.jars["live"] = sessionJar()
	store.jars["dead"] = Jar{{Name: "s", Value: "x", Expires: epoch(now.Add(-time.Minute))}}
	c := testClient(t, "http://portal.invalid", store, func() time.Time { return now })

	ctx := context.Background()
	if ok, err := c.HasValidSession(ctx, "live"); err != nil || !ok {
		t.Fatalf("live session: ok=%v err=%v", ok, err)
	}
	if ok, err := c.HasValidSession(ctx, "dead"); err != nil || ok {
		t.Fatalf("fully expired jar must not count: ok=%v err=%v", ok, err)
	}
	if ok, err := c.HasValidSession(ctx, "absent"); err != nil || ok {
		t.Fatalf("absent jar must not count: ok=%v err=%v", ok, err)
	}
}

func TestErrorHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind Kind
		want int
	}{
		{KindSessionExpired, 404},
		{KindNoSavedCredentials, 400},
		{KindInvalidCredentials, 400},
		{KindInputValidation, 400},
		{KindUpstreamRejected, 502},
		{KindContractViolation, 502},
		{KindTransport, 500},
	}
	for _, tc := range cases {
		if got := HTTPStatus(newError(tc.kind, "boom")); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.kind, got, tc.want)
		}
	}
	if got := HTTPStatus(context.Canceled); got != 500 {
		t.Errorf("non-portal error: got %d, want 500", got)
	}
}
