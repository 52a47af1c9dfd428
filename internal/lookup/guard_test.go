package lookup_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marquee/internal/lookup"
	"marquee/internal/query"
)

type flakySearcher struct {
	failures int
	calls    int
	details  int
}

func (f *flakySearcher) Name() string     { return "fake" }
func (f *flakySearcher) Kind() query.Kind { return query.KindMetadata }

func (f *flakySearcher) Search(_ context.Context, q query.NormalizedQuery) ([]lookup.Candidate, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, lookup.StatusError("fake", "search", http.StatusTooManyRequests, "", nil)
	}
	return []lookup.Candidate{{ExternalID: "1", Title: q.CanonicalTitle, Kind: q.Kind}}, nil
}

func (f *flakySearcher) Details(_ context.Context, c lookup.Candidate) (lookup.Candidate, error) {
	f.details++
	c.Payload.Distributor = "Janus Films"
	return c, nil
}

type searchOnly struct{}

func (searchOnly) Name() string     { return "plain" }
func (searchOnly) Kind() query.Kind { return query.KindVideo }
func (searchOnly) Search(context.Context, query.NormalizedQuery) ([]lookup.Candidate, error) {
	return nil, nil
}

func TestGuardRetriesThroughThrottle(t *testing.T) {
	inner := &flakySearcher{failures: 2}
	policy := lookup.RetryPolicy{MaxRateRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	guarded := lookup.Guard(inner, lookup.NewThrottle(time.Millisecond), policy, nil)

	got, err := guarded.Search(context.Background(), query.Normalize("Stalker", nil, query.KindMetadata))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "stalker" {
		t.Fatalf("unexpected candidates: %#v", got)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
}

func TestGuardDetails(t *testing.T) {
	inner := &flakySearcher{}
	guarded := lookup.Guard(inner, nil, lookup.RetryPolicy{}, nil)
	c, err := guarded.Details(context.Background(), lookup.Candidate{ExternalID: "9"})
	if err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	if c.Payload.Distributor != "Janus Films" || inner.details != 1 {
		t.Fatalf("unexpected details result: %#v (calls=%d)", c, inner.details)
	}

	plain := lookup.Guard(searchOnly{}, nil, lookup.RetryPolicy{}, nil)
	in := lookup.Candidate{ExternalID: "x"}
	out, err := plain.Details(context.Background(), in)
	if err != nil || out.ExternalID != "x" {
		t.Fatalf("Details on search-only client = %#v, %v", out, err)
	}
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_ = json.NewEncoder(w).Encode(map[string]string{"title": "Stalker"})
		case "/quota":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`quotaExceeded`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(server.Close)

	var payload struct {
		Title string `json:"title"`
	}
	err := lookup.GetJSON(context.Background(), server.Client(), lookup.Request{Service: "fake", Operation: "get", URL: server.URL + "/ok"}, &payload)
	if err != nil {
		t.Fatalf("GetJSON returned error: %v", err)
	}
	if payload.Title != "Stalker" {
		t.Fatalf("unexpected payload: %#v", payload)
	}

	err = lookup.GetJSON(context.Background(), server.Client(), lookup.Request{Service: "fake", Operation: "get", URL: server.URL + "/down"}, &payload)
	if !errors.Is(err, lookup.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	classify := func(status int, body []byte) error {
		if status == http.StatusForbidden && string(body) == "quotaExceeded" {
			return lookup.StatusError("fake", "get", http.StatusTooManyRequests, "quota", nil)
		}
		return nil
	}
	err = lookup.GetJSON(context.Background(), server.Client(), lookup.Request{Service: "fake", Operation: "get", URL: server.URL + "/quota", Classify: classify}, &payload)
	if !errors.Is(err, lookup.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
