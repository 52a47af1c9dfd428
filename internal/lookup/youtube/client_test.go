package youtube_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"marquee/internal/lookup"
	"marquee/internal/lookup/youtube"
	"marquee/internal/query"
)

func intPtr(v int) *int { return &v }

func TestSearchMapsVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("key") != "key" || q.Get("type") != "video" {
			t.Fatalf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		if q.Get("q") != "all we imagine as light 2024 trailer" {
			t.Fatalf("unexpected search terms: %q", q.Get("q"))
		}
		if q.Get("maxResults") != "5" {
			t.Fatalf("unexpected maxResults: %q", q.Get("maxResults"))
		}
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"videoId":"abc123"},"snippet":{"title":"All We Imagine as Light (2024) Official Trailer","channelTitle":"Janus Films"}},
			{"id":{},"snippet":{"title":"channel result"}},
			{"id":{"videoId":"def456"},"snippet":{"title":"Director&#39;s interview","channelTitle":"NYFF"}}
		]}`))
	}))
	t.Cleanup(server.Close)

	client, err := youtube.New("key", server.URL, youtube.WithMaxResults(5))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	got, err := client.Search(context.Background(), query.Normalize("All We Imagine as Light", intPtr(2024), query.KindVideo))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	want := []lookup.Candidate{
		{
			ExternalID: "abc123",
			Title:      "All We Imagine as Light (2024) Official Trailer",
			Year:       intPtr(2024),
			Kind:       query.KindVideo,
			MediaType:  "video",
			Source:     "youtube",
			SourceRank: 0,
			Payload:    lookup.Payload{VideoURL: "https://www.youtube.com/watch?v=abc123", ChannelTitle: "Janus Films"},
		},
		{
			ExternalID: "def456",
			Title:      "Director's interview",
			Kind:       query.KindVideo,
			MediaType:  "video",
			Source:     "youtube",
			SourceRank: 1,
			Payload:    lookup.Payload{VideoURL: "https://www.youtube.com/watch?v=def456", ChannelTitle: "NYFF"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchQuotaIsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded"}]}}`))
	}))
	t.Cleanup(server.Close)

	client, err := youtube.New("key", server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Search(context.Background(), query.Normalize("Anything", nil, query.KindVideo))
	if !errors.Is(err, lookup.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestSearchForbiddenIsAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"errors":[{"reason":"forbidden"}]}}`))
	}))
	t.Cleanup(server.Close)

	client, err := youtube.New("key", server.URL)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Search(context.Background(), query.Normalize("Anything", nil, query.KindVideo))
	if !errors.Is(err, lookup.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestSearchURL(t *testing.T) {
	got := youtube.SearchURL("Perfect Days", "Wim Wenders", intPtr(2023))
	want := "https://www.youtube.com/results?search_query=Perfect+Days+Wim+Wenders+2023+trailer"
	if got != want {
		t.Fatalf("SearchURL = %q, want %q", got, want)
	}
	if youtube.SearchURL("  ", "", nil) != "" {
		t.Fatal("expected empty URL for empty title")
	}
}
