package lookup

import (
	"context"

	"marquee/internal/query"
)

// Payload carries the kind-specific facts a candidate contributes on merge.
type Payload struct {
	ProductionCompanies []string `json:"production_companies,omitempty"`
	Distributor         string   `json:"distributor,omitempty"`
	IMDbID              string   `json:"imdb_id,omitempty"`
	VideoURL            string   `json:"video_url,omitempty"`
	ChannelTitle        string   `json:"channel_title,omitempty"`
}

// Candidate is one ranked result returned by an external service.
type Candidate struct {
	ExternalID string     `json:"external_id"`
	Title      string     `json:"title"`
	Year       *int       `json:"year,omitempty"`
	Kind       query.Kind `json:"kind"`
	MediaType  string     `json:"media_type,omitempty"`
	Source     string     `json:"source"`
	// SourceRank is the 0-based position in the service's result list.
	SourceRank int     `json:"source_rank"`
	Payload    Payload `json:"payload"`
}

// Searcher issues one search against an external service and returns its
// candidates in service order.
type Searcher interface {
	Name() string
	Kind() query.Kind
	Search(ctx context.Context, q query.NormalizedQuery) ([]Candidate, error)
}

// Detailer is implemented by searchers that can fill in payload fields a
// search result omits (production companies, distributor).
type Detailer interface {
	Details(ctx context.Context, c Candidate) (Candidate, error)
}

// MediaTypeMovie is the media type of feature film candidates.
const MediaTypeMovie = "movie"
