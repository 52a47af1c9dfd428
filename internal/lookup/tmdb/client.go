package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"marquee/internal/lookup"
	"marquee/internal/query"
)

// Name identifies this service in logs, errors, and candidates.
const Name = "tmdb"

type result struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	MediaType   string `json:"media_type"`
}

type searchResponse struct {
	Page    int      `json:"page"`
	Results []result `json:"results"`
}

type company struct {
	Name string `json:"name"`
}

type movieDetails struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	ReleaseDate         string    `json:"release_date"`
	IMDbID              string    `json:"imdb_id"`
	ProductionCompanies []company `json:"production_companies"`
}

// Client provides access to the TMDB API for film searches.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

var (
	_ lookup.Searcher = (*Client)(nil)
	_ lookup.Detailer = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: lookup.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) Name() string     { return Name }
func (c *Client) Kind() query.Kind { return query.KindMetadata }

// Search runs /search/movie for the query title, filtered by release year
// when the query carries one. An empty year-filtered page is retried once
// without the year so catalogue dates that differ from the screening year
// still reach the matcher.
func (c *Client) Search(ctx context.Context, q query.NormalizedQuery) ([]lookup.Candidate, error) {
	title := strings.TrimSpace(q.CanonicalTitle)
	if title == "" {
		return nil, nil
	}
	results, err := c.search(ctx, title, q.Year)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && q.Year != nil {
		if results, err = c.search(ctx, title, nil); err != nil {
			return nil, err
		}
	}

	candidates := make([]lookup.Candidate, 0, len(results))
	for idx, r := range results {
		mediaType := r.MediaType
		if mediaType == "" {
			mediaType = lookup.MediaTypeMovie
		}
		candidates = append(candidates, lookup.Candidate{
			ExternalID: strconv.FormatInt(r.ID, 10),
			Title:      strings.TrimSpace(r.Title),
			Year:       yearFromDate(r.ReleaseDate),
			Kind:       query.KindMetadata,
			MediaType:  mediaType,
			Source:     Name,
			SourceRank: idx,
		})
	}
	return candidates, nil
}

func (c *Client) search(ctx context.Context, title string, year *int) ([]result, error) {
	params := c.params()
	params.Set("query", title)
	params.Set("include_adult", "false")
	if year != nil {
		params.Set("primary_release_year", strconv.Itoa(*year))
	}
	var payload searchResponse
	err := lookup.GetJSON(ctx, c.httpClient, lookup.Request{
		Service:   Name,
		Operation: "search",
		URL:       c.baseURL + "/search/movie?" + params.Encode(),
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// Details fetches /movie/{id} and fills production companies and the IMDb id.
func (c *Client) Details(ctx context.Context, cand lookup.Candidate) (lookup.Candidate, error) {
	id := strings.TrimSpace(cand.ExternalID)
	if id == "" {
		return cand, nil
	}
	var payload movieDetails
	err := lookup.GetJSON(ctx, c.httpClient, lookup.Request{
		Service:   Name,
		Operation: "details",
		URL:       fmt.Sprintf("%s/movie/%s?%s", c.baseURL, url.PathEscape(id), c.params().Encode()),
	}, &payload)
	if err != nil {
		return cand, err
	}
	companies := make([]string, 0, len(payload.ProductionCompanies))
	for _, pc := range payload.ProductionCompanies {
		if name := strings.TrimSpace(pc.Name); name != "" {
			companies = append(companies, name)
		}
	}
	cand.Payload.ProductionCompanies = companies
	cand.Payload.IMDbID = strings.TrimSpace(payload.IMDbID)
	if cand.Year == nil {
		cand.Year = yearFromDate(payload.ReleaseDate)
	}
	return cand, nil
}

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	return params
}

func yearFromDate(date string) *int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}
