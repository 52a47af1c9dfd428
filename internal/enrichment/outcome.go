package enrichment

import (
	"time"

	"marquee/internal/matching"
	"marquee/internal/query"
)

// Status is the per-kind result recorded for one film.
type Status string

const (
	StatusAccepted     Status = "accepted"
	StatusRejected     Status = "rejected"
	StatusNoCandidates Status = "no_candidates"
	StatusError        Status = "error"
	StatusSkipped      Status = "skipped"
	StatusCancelled    Status = "cancelled"
	StatusDisabled     Status = "disabled"
)

// Outcome describes what happened to one lookup kind for one film. Decision
// is set whenever a lookup ran; a failed lookup counts as NO_CANDIDATES.
type Outcome struct {
	Status     Status            `json:"status"`
	Decision   matching.Decision `json:"decision,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	FromCache  bool              `json:"from_cache,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Err        string            `json:"error,omitempty"`
}

// FilmOutcome pairs a film with its per-kind outcomes.
type FilmOutcome struct {
	Index    int     `json:"index"`
	Slug     string  `json:"slug"`
	Title    string  `json:"title"`
	Metadata Outcome `json:"metadata"`
	Trailer  Outcome `json:"trailer"`
}

// For returns the outcome recorded for kind.
func (f FilmOutcome) For(kind query.Kind) Outcome {
	if kind == query.KindVideo {
		return f.Trailer
	}
	return f.Metadata
}

// Counts tallies outcomes for one kind.
type Counts struct {
	Accepted     int `json:"accepted"`
	Rejected     int `json:"rejected"`
	NoCandidates int `json:"no_candidates"`
	Errors       int `json:"errors"`
	Skipped      int `json:"skipped"`
	Cancelled    int `json:"cancelled"`
	Disabled     int `json:"disabled"`
	CacheHits    int `json:"cache_hits"`
}

func (c *Counts) add(o Outcome) {
	switch o.Status {
	case StatusAccepted:
		c.Accepted++
	case StatusRejected:
		c.Rejected++
	case StatusNoCandidates:
		c.NoCandidates++
	case StatusError:
		c.Errors++
	case StatusSkipped:
		c.Skipped++
	case StatusCancelled:
		c.Cancelled++
	case StatusDisabled:
		c.Disabled++
	}
	if o.FromCache {
		c.CacheHits++
	}
}

// Summary reports a whole run.
type Summary struct {
	RunID     string                `json:"run_id"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration_ns"`
	Films     []FilmOutcome         `json:"films"`
	Counts    map[query.Kind]Counts `json:"counts"`
	Cancelled bool                  `json:"cancelled,omitempty"`
}

func (s *Summary) tally() {
	s.Counts = make(map[query.Kind]Counts, len(query.Kinds))
	for _, kind := range query.Kinds {
		var c Counts
		for _, f := range s.Films {
			c.add(f.For(kind))
		}
		s.Counts[kind] = c
	}
}

// Failed returns the films with at least one errored lookup.
func (s Summary) Failed() []FilmOutcome {
	var out []FilmOutcome
	for _, f := range s.Films {
		if f.Metadata.Status == StatusError || f.Trailer.Status == StatusError {
			out = append(out, f)
		}
	}
	return out
}
