package lookup_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"marquee/internal/lookup"
	"marquee/internal/services"
)

func TestStatusErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		want      lookup.Class
		transient bool
	}{
		{http.StatusTooManyRequests, lookup.ClassRateLimited, true},
		{http.StatusServiceUnavailable, lookup.ClassUnavailable, true},
		{http.StatusBadGateway, lookup.ClassUnavailable, true},
		{http.StatusUnauthorized, lookup.ClassPermanent, false},
		{http.StatusForbidden, lookup.ClassPermanent, false},
		{http.StatusBadRequest, lookup.ClassPermanent, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := lookup.StatusError("tmdb", "search", tc.status, "", nil)
			if got := lookup.Classify(err); got != tc.want {
				t.Fatalf("Classify(%d) = %q, want %q", tc.status, got, tc.want)
			}
			if services.IsTransient(err) != tc.transient {
				t.Fatalf("IsTransient(%d) = %v, want %v", tc.status, !tc.transient, tc.transient)
			}
		})
	}
}

func TestStatusErrorAuthMarker(t *testing.T) {
	err := lookup.StatusError("omdb", "search", http.StatusUnauthorized, "Invalid API key!", nil)
	if !errors.Is(err, lookup.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent marker, got %v", err)
	}
}

func TestStatusErrorRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	err := lookup.StatusError("youtube", "search", http.StatusTooManyRequests, "", header)
	after, ok := lookup.RetryAfter(err)
	if !ok || after != 7*time.Second {
		t.Fatalf("RetryAfter = %v, %v; want 7s, true", after, ok)
	}
	if !errors.Is(err, lookup.ErrRateLimited) {
		t.Fatalf("expected rate limited marker, got %v", err)
	}
}

func TestClassifyCancelledAndPlain(t *testing.T) {
	wrapped := fmt.Errorf("search: %w", context.Canceled)
	if got := lookup.Classify(wrapped); got != lookup.ClassCancelled {
		t.Fatalf("Classify(cancelled) = %q", got)
	}
	if got := lookup.Classify(errors.New("boom")); got != lookup.ClassPermanent {
		t.Fatalf("Classify(plain) = %q", got)
	}
	if got := lookup.Classify(nil); got != lookup.ClassNone {
		t.Fatalf("Classify(nil) = %q", got)
	}
}
