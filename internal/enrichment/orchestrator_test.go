package enrichment_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"marquee/internal/classify"
	"marquee/internal/enrichment"
	"marquee/internal/film"
	"marquee/internal/lookup"
	"marquee/internal/lookupcache"
	"marquee/internal/matching"
	"marquee/internal/query"
)

func intPtr(v int) *int { return &v }

// fakeSearcher answers from a table keyed by canonical title and records every
// call it receives.
type fakeSearcher struct {
	kind    query.Kind
	results map[string][]lookup.Candidate
	errs    map[string]error

	mu        sync.Mutex
	calls     map[string]int
	details   int
	detailErr error
	// onSearch runs after a call is recorded, before the answer is returned.
	onSearch func(title string)
}

func newFake(kind query.Kind) *fakeSearcher {
	return &fakeSearcher{
		kind:    kind,
		results: make(map[string][]lookup.Candidate),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeSearcher) Name() string     { return "fake-" + string(f.kind) }
func (f *fakeSearcher) Kind() query.Kind { return f.kind }

func (f *fakeSearcher) Search(_ context.Context, q query.NormalizedQuery) ([]lookup.Candidate, error) {
	f.mu.Lock()
	f.calls[q.CanonicalTitle]++
	f.mu.Unlock()
	if f.onSearch != nil {
		f.onSearch(q.CanonicalTitle)
	}
	if err := f.errs[q.CanonicalTitle]; err != nil {
		return nil, err
	}
	return f.results[q.CanonicalTitle], nil
}

func (f *fakeSearcher) Details(_ context.Context, c lookup.Candidate) (lookup.Candidate, error) {
	f.mu.Lock()
	f.details++
	f.mu.Unlock()
	if f.detailErr != nil {
		return lookup.Candidate{}, f.detailErr
	}
	c.Payload.ProductionCompanies = []string{"Studio " + c.Title}
	c.Payload.Distributor = "Distributor " + c.Title
	return c, nil
}

func (f *fakeSearcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeSearcher) addMovie(title string, year int) {
	key := query.CleanTitle(title)
	f.results[key] = append(f.results[key], lookup.Candidate{
		ExternalID: fmt.Sprintf("m-%s-%d", strings.ReplaceAll(key, " ", "-"), year),
		Title:      title,
		Year:       intPtr(year),
		Kind:       query.KindMetadata,
		MediaType:  lookup.MediaTypeMovie,
		SourceRank: len(f.results[key]),
	})
}

func (f *fakeSearcher) addTrailer(title string, year int) {
	key := query.CleanTitle(title)
	f.results[key] = append(f.results[key], lookup.Candidate{
		ExternalID: "v-" + strings.ReplaceAll(key, " ", "-"),
		Title:      fmt.Sprintf("%s (%d) | Official Trailer", title, year),
		Year:       intPtr(year),
		Kind:       query.KindVideo,
		MediaType:  "video",
		SourceRank: len(f.results[key]),
		Payload:    lookup.Payload{VideoURL: "https://www.youtube.com/watch?v=" + strings.ReplaceAll(key, " ", "")},
	})
}

type harness struct {
	store    lookupcache.Store
	metadata *fakeSearcher
	video    *fakeSearcher
	orch     *enrichment.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    lookupcache.NewMemoryStore(),
		metadata: newFake(query.KindMetadata),
		video:    newFake(query.KindVideo),
	}
	h.orch = h.build(t)
	return h
}

func (h *harness) build(t *testing.T) *enrichment.Orchestrator {
	t.Helper()
	orch, err := enrichment.New(enrichment.Deps{
		Store:      h.store,
		Policy:     lookupcache.Policy{NoMatchTTL: lookupcache.DefaultNoMatchTTL},
		Matcher:    matching.New(0, 0, 0, nil),
		Metadata:   h.metadata,
		Video:      h.video,
		Classifier: classify.New(2025),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return orch
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := enrichment.New(enrichment.Deps{}); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestEnrichPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Anora", 2024)
	h.metadata.errs["the brutalist"] = fmt.Errorf("search: %w", lookup.ErrAuth)
	h.video.addTrailer("Anora", 2024)

	films := []film.Record{
		{Slug: "anora", Title: "Anora", Year: intPtr(2024), Director: "Sean Baker"},
		{Slug: "the-brutalist", Title: "The Brutalist", Year: intPtr(2024), Director: "Brady Corbet"},
		{Slug: "unknown", Title: "A Film Nobody Indexed", Year: intPtr(2025)},
	}
	original := make([]film.Record, len(films))
	for i := range films {
		original[i] = films[i].Clone()
	}

	out, summary := h.orch.Enrich(context.Background(), films, enrichment.Options{Workers: 2})

	if diff := cmp.Diff(original, films); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
	if len(out) != 3 || len(summary.Films) != 3 {
		t.Fatalf("expected 3 films, got %d records and %d outcomes", len(out), len(summary.Films))
	}

	anora := out[0].Enrichment
	if anora.ExternalID != "m-anora-2024" || anora.Distributor != "Distributor Anora" || anora.ProductionCompany != "Studio Anora" {
		t.Fatalf("unexpected metadata for anora: %+v", anora)
	}
	if math.Abs(anora.MetadataConfidence-1) > 1e-9 {
		t.Fatalf("MetadataConfidence = %v, want 1", anora.MetadataConfidence)
	}
	if !strings.HasPrefix(anora.TrailerURL, "https://www.youtube.com/watch?v=") {
		t.Fatalf("TrailerURL = %q", anora.TrailerURL)
	}

	brutalist := summary.Films[1]
	if brutalist.Metadata.Status != enrichment.StatusError {
		t.Fatalf("brutalist metadata status = %s, want error", brutalist.Metadata.Status)
	}
	if brutalist.Metadata.Decision != matching.NoCandidates {
		t.Fatalf("brutalist decision = %s, want %s", brutalist.Metadata.Decision, matching.NoCandidates)
	}
	if brutalist.Metadata.Reason != "permanent" || brutalist.Metadata.Err == "" {
		t.Fatalf("unexpected error outcome: %+v", brutalist.Metadata)
	}
	if out[1].Enrichment.HasMetadata() {
		t.Fatalf("failed lookup merged metadata: %+v", out[1].Enrichment)
	}
	if out[1].Enrichment.TrailerSearchURL == "" {
		t.Fatal("expected manual trailer search url on failed film")
	}

	if got := summary.Films[2].Metadata.Status; got != enrichment.StatusNoCandidates {
		t.Fatalf("unknown film metadata status = %s, want no_candidates", got)
	}

	counts := summary.Counts[query.KindMetadata]
	if counts.Accepted != 1 || counts.Errors != 1 || counts.NoCandidates != 1 {
		t.Fatalf("unexpected metadata counts: %+v", counts)
	}
	if failed := summary.Failed(); len(failed) != 1 || failed[0].Slug != "the-brutalist" {
		t.Fatalf("Failed() = %+v", failed)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}

	// Errors are never cached; confirmed outcomes are.
	ctx := context.Background()
	if _, ok, _ := h.store.Get(ctx, query.Normalize("The Brutalist", intPtr(2024), query.KindMetadata)); ok {
		t.Fatal("errored lookup was cached")
	}
	entry, ok, err := h.store.Get(ctx, query.Normalize("A Film Nobody Indexed", intPtr(2025), query.KindMetadata))
	if err != nil || !ok {
		t.Fatalf("expected cached no-match, ok=%v err=%v", ok, err)
	}
	if !entry.IsNoMatch() || entry.TTL != lookupcache.DefaultNoMatchTTL {
		t.Fatalf("unexpected no-match entry: %+v", entry)
	}
	accepted, ok, err := h.store.Get(ctx, query.Normalize("Anora", intPtr(2024), query.KindMetadata))
	if err != nil || !ok || accepted.Value == nil || accepted.TTL != 0 {
		t.Fatalf("unexpected accepted entry: %+v ok=%v err=%v", accepted, ok, err)
	}
}

func TestEnrichSecondRunUsesCache(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Anora", 2024)
	h.video.addTrailer("Anora", 2024)
	films := []film.Record{
		{Slug: "anora", Title: "Anora", Year: intPtr(2024)},
		{Slug: "missing", Title: "Missing Picture", Year: intPtr(2025)},
	}

	first, _ := h.orch.Enrich(context.Background(), films, enrichment.Options{Workers: 1})
	metaCalls, videoCalls, details := h.metadata.totalCalls(), h.video.totalCalls(), h.metadata.details

	second, summary := h.build(t).Enrich(context.Background(), films, enrichment.Options{Workers: 1})
	if h.metadata.totalCalls() != metaCalls || h.video.totalCalls() != videoCalls || h.metadata.details != details {
		t.Fatalf("second run hit the network: metadata %d->%d video %d->%d", metaCalls, h.metadata.totalCalls(), videoCalls, h.video.totalCalls())
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached run differs (-first +second):\n%s", diff)
	}
	for _, kind := range query.Kinds {
		if hits := summary.Counts[kind].CacheHits; hits != 2 {
			t.Fatalf("%s cache hits = %d, want 2", kind, hits)
		}
	}
}

func TestEnrichDuplicateTitlesSearchOnce(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Stalker", 1979)
	films := []film.Record{
		{Slug: "stalker-1", Title: "Stalker", Year: intPtr(1979)},
		{Slug: "stalker-2", Title: "Stalker (1979)"},
	}
	out, _ := h.orch.Enrich(context.Background(), films, enrichment.Options{Workers: 1, SkipTrailers: true})
	if got := h.metadata.calls["stalker"]; got != 1 {
		t.Fatalf("search calls = %d, want 1", got)
	}
	if out[0].Enrichment.ExternalID != out[1].Enrichment.ExternalID || out[1].Enrichment.ExternalID == "" {
		t.Fatalf("duplicate films resolved differently: %q vs %q", out[0].Enrichment.ExternalID, out[1].Enrichment.ExternalID)
	}
}

func TestEnrichOutputIndependentOfWorkers(t *testing.T) {
	var films []film.Record
	build := func() *harness {
		h := newHarness(t)
		for i := range 20 {
			title := fmt.Sprintf("Festival Feature %d", i)
			year := 2015 + i%10
			if i%3 != 0 {
				h.metadata.addMovie(title, year)
			}
			if i%2 == 0 {
				h.video.addTrailer(title, year)
			}
			if i%7 == 0 {
				h.metadata.errs[query.CleanTitle(title)] = lookup.ErrBlocked
			}
		}
		return h
	}
	for i := range 20 {
		films = append(films, film.Record{
			Slug:     fmt.Sprintf("feature-%d", i),
			Title:    fmt.Sprintf("Festival Feature %d", i),
			Year:     intPtr(2015 + i%10),
			Director: "Someone",
		})
	}

	serial, serialSummary := build().orch.Enrich(context.Background(), films, enrichment.Options{Workers: 1})
	parallel, parallelSummary := build().orch.Enrich(context.Background(), films, enrichment.Options{Workers: 8})

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Fatalf("records differ between worker counts (-serial +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(serialSummary.Counts, parallelSummary.Counts); diff != "" {
		t.Fatalf("counts differ between worker counts (-serial +parallel):\n%s", diff)
	}
	for i, rec := range parallel {
		if rec.Slug != films[i].Slug {
			t.Fatalf("output order changed at %d: %s", i, rec.Slug)
		}
		if rec.Classification == nil {
			t.Fatalf("film %s not classified", rec.Slug)
		}
	}
}

func TestEnrichEligibility(t *testing.T) {
	h := newHarness(t)
	films := []film.Record{
		{Slug: "double", Title: "Vertigo + Rear Window", Director: "Alfred Hitchcock / Alfred Hitchcock"},
		{Slug: "omnibus", Title: "Tales", Director: "A. One, B. Two, C. Three"},
		{Slug: "shorts", Title: "Currents Program 1", Section: "Shorts"},
		{Slug: "untitled"},
	}
	_, summary := h.orch.Enrich(context.Background(), films, enrichment.Options{})

	want := []struct{ metadata, trailer enrichment.Status }{
		{enrichment.StatusSkipped, enrichment.StatusNoCandidates},
		{enrichment.StatusSkipped, enrichment.StatusSkipped},
		{enrichment.StatusNoCandidates, enrichment.StatusSkipped},
		{enrichment.StatusSkipped, enrichment.StatusSkipped},
	}
	for i, w := range want {
		got := summary.Films[i]
		if got.Metadata.Status != w.metadata || got.Trailer.Status != w.trailer {
			t.Fatalf("%s: metadata=%s trailer=%s, want %s/%s", got.Slug, got.Metadata.Status, got.Trailer.Status, w.metadata, w.trailer)
		}
	}
	if h.metadata.calls["vertigo and rear window"] != 0 {
		t.Fatal("double feature was searched")
	}
}

func TestEnrichSkipFlags(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Anora", 2024)
	h.video.addTrailer("Anora", 2024)
	films := []film.Record{{Slug: "anora", Title: "Anora", Year: intPtr(2024), Director: "Sean Baker"}}

	out, summary := h.orch.Enrich(context.Background(), films, enrichment.Options{SkipTrailers: true})
	if summary.Films[0].Trailer.Status != enrichment.StatusDisabled {
		t.Fatalf("trailer status = %s, want disabled", summary.Films[0].Trailer.Status)
	}
	if h.video.totalCalls() != 0 {
		t.Fatal("video searcher called while disabled")
	}
	if out[0].Enrichment.TrailerURL != "" {
		t.Fatalf("TrailerURL = %q, want empty", out[0].Enrichment.TrailerURL)
	}
	if !strings.Contains(out[0].Enrichment.TrailerSearchURL, "search_query=") {
		t.Fatalf("TrailerSearchURL = %q", out[0].Enrichment.TrailerSearchURL)
	}
	if !out[0].Enrichment.HasMetadata() {
		t.Fatal("metadata should still be merged")
	}
}

func TestEnrichDetailFailureKeepsMatch(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Anora", 2024)
	h.metadata.detailErr = lookup.ErrUnavailable
	out, summary := h.orch.Enrich(context.Background(), []film.Record{{Slug: "anora", Title: "Anora", Year: intPtr(2024)}}, enrichment.Options{SkipTrailers: true})
	if summary.Films[0].Metadata.Status != enrichment.StatusAccepted {
		t.Fatalf("status = %s, want accepted", summary.Films[0].Metadata.Status)
	}
	if out[0].Enrichment.ExternalID == "" || out[0].Enrichment.Distributor != "" {
		t.Fatalf("unexpected enrichment: %+v", out[0].Enrichment)
	}
}

func TestEnrichLimit(t *testing.T) {
	h := newHarness(t)
	films := []film.Record{{Slug: "a", Title: "A"}, {Slug: "b", Title: "B"}, {Slug: "c", Title: "C"}}
	out, summary := h.orch.Enrich(context.Background(), films, enrichment.Options{Limit: 2})
	if len(out) != 2 || out[0].Slug != "a" || out[1].Slug != "b" || len(summary.Films) != 2 {
		t.Fatalf("unexpected limited output: %+v", out)
	}
}

func TestEnrichCancelledBeforeStart(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Anora", 2024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, summary := h.orch.Enrich(ctx, []film.Record{{Slug: "anora", Title: "Anora", Year: intPtr(2024)}}, enrichment.Options{})
	if !summary.Cancelled {
		t.Fatal("expected cancelled summary")
	}
	if h.metadata.totalCalls() != 0 {
		t.Fatal("searcher called after cancellation")
	}
	if summary.Films[0].Metadata.Status != enrichment.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", summary.Films[0].Metadata.Status)
	}
	if len(out) != 1 || out[0].Enrichment.HasMetadata() {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestEnrichCancelDuringLookupKeepsInFlightResult(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Anora", 2024)
	h.metadata.addMovie("Perfect Days", 2023)

	started := make(chan struct{})
	release := make(chan struct{})
	h.metadata.onSearch = func(title string) {
		if title == "anora" {
			close(started)
			<-release
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
		close(release)
	}()

	films := []film.Record{
		{Slug: "anora", Title: "Anora", Year: intPtr(2024)},
		{Slug: "perfect-days", Title: "Perfect Days", Year: intPtr(2023)},
	}
	out, summary := h.orch.Enrich(ctx, films, enrichment.Options{Workers: 1, SkipTrailers: true})

	if !summary.Cancelled {
		t.Fatal("expected cancelled summary")
	}
	if got := summary.Films[0].Metadata.Status; got != enrichment.StatusAccepted {
		t.Fatalf("in-flight lookup status = %s, want accepted", got)
	}
	if !out[0].Enrichment.HasMetadata() {
		t.Fatalf("in-flight result not merged: %+v", out[0].Enrichment)
	}
	entry, ok, err := h.store.Get(context.Background(), query.Normalize("Anora", intPtr(2024), query.KindMetadata))
	if err != nil || !ok || entry.Value == nil {
		t.Fatalf("in-flight result not cached: entry=%+v ok=%v err=%v", entry, ok, err)
	}

	if got := summary.Films[1].Metadata.Status; got != enrichment.StatusCancelled {
		t.Fatalf("later film status = %s, want cancelled", got)
	}
	if out[1].Enrichment.HasMetadata() {
		t.Fatalf("later film enriched after cancel: %+v", out[1].Enrichment)
	}
	h.metadata.mu.Lock()
	laterCalls := h.metadata.calls["perfect days"]
	h.metadata.mu.Unlock()
	if laterCalls != 0 {
		t.Fatalf("searched %d times after cancel", laterCalls)
	}
}

func TestEnrichCacheReadFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.metadata.addMovie("Anora", 2024)
	h.store = failingStore{Store: h.store}
	orch := h.build(t)
	out, _ := orch.Enrich(context.Background(), []film.Record{{Slug: "anora", Title: "Anora", Year: intPtr(2024)}}, enrichment.Options{SkipTrailers: true})
	if !out[0].Enrichment.HasMetadata() {
		t.Fatal("expected lookup to proceed when the cache is unreadable")
	}
}

type failingStore struct {
	lookupcache.Store
}

func (failingStore) Get(context.Context, query.NormalizedQuery) (lookupcache.Entry, bool, error) {
	return lookupcache.Entry{}, false, errors.New("disk on fire")
}
