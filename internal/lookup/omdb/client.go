package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"marquee/internal/lookup"
	"marquee/internal/query"
	"marquee/internal/services"
)

// Name identifies this service in logs, errors, and candidates.
const Name = "omdb"

type searchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
}

type envelope struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

type searchResponse struct {
	envelope
	Search []searchItem `json:"Search"`
}

type titleResponse struct {
	envelope
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	IMDbID     string `json:"imdbID"`
	Director   string `json:"Director"`
	Production string `json:"Production"`
	Type       string `json:"Type"`
}

// Client queries OMDb by title and by IMDb id.
type Client struct {
	apiKey     string
	baseURL    string
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

// New creates an OMDb client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("omdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("omdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: lookup.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) Name() string     { return Name }
func (c *Client) Kind() query.Kind { return query.KindMetadata }

// Search lists movie results for the query title and year. When the year
// filter finds nothing the title alone is tried once more.
func (c *Client) Search(ctx context.Context, q query.NormalizedQuery) ([]lookup.Candidate, error) {
	title := strings.TrimSpace(q.CanonicalTitle)
	if title == "" {
		return nil, nil
	}
	items, err := c.search(ctx, title, q.Year)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 && q.Year != nil {
		if items, err = c.search(ctx, title, nil); err != nil {
			return nil, err
		}
	}

	candidates := make([]lookup.Candidate, 0, len(items))
	for idx, item := range items {
		candidates = append(candidates, lookup.Candidate{
			ExternalID: strings.TrimSpace(item.IMDbID),
			Title:      strings.TrimSpace(item.Title),
			Year:       parseYear(item.Year),
			Kind:       query.KindMetadata,
			MediaType:  strings.ToLower(strings.TrimSpace(item.Type)),
			Source:     Name,
			SourceRank: idx,
			Payload:    lookup.Payload{IMDbID: strings.TrimSpace(item.IMDbID)},
		})
	}
	return candidates, nil
}

func (c *Client) search(ctx context.Context, title string, year *int) ([]searchItem, error) {
	params := c.params()
	params.Set("s", title)
	params.Set("type", "movie")
	if year != nil {
		params.Set("y", strconv.Itoa(*year))
	}
	var payload searchResponse
	if err := c.get(ctx, "search", params, &payload); err != nil {
		return nil, err
	}
	if err := payload.failure("search"); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return payload.Search, nil
}

// Details fetches the full record for the candidate's IMDb id. OMDb's
// Production field names the releasing company.
func (c *Client) Details(ctx context.Context, cand lookup.Candidate) (lookup.Candidate, error) {
	id := strings.TrimSpace(cand.ExternalID)
	if id == "" {
		return cand, nil
	}
	params := c.params()
	params.Set("i", id)
	params.Set("plot", "short")

	var payload titleResponse
	if err := c.get(ctx, "details", params, &payload); err != nil {
		return cand, err
	}
	if err := payload.failure("details"); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return cand, nil
		}
		return cand, err
	}
	if production := known(payload.Production); production != "" {
		cand.Payload.Distributor = production
	}
	if cand.Year == nil {
		cand.Year = parseYear(payload.Year)
	}
	cand.Payload.IMDbID = id
	return cand, nil
}

func (c *Client) get(ctx context.Context, operation string, params url.Values, out any) error {
	return lookup.GetJSON(ctx, c.httpClient, lookup.Request{
		Service:   Name,
		Operation: operation,
		URL:       c.baseURL + "/?" + params.Encode(),
		Classify: func(status int, body []byte) error {
			var env envelope
			if json.Unmarshal(body, &env) != nil || env.Error == "" {
				return nil
			}
			return env.failure(operation)
		},
	}, out)
}

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	return params
}

// failure interprets OMDb's in-body error reporting.
func (e envelope) failure(operation string) error {
	if !strings.EqualFold(e.Response, "false") {
		return nil
	}
	message := strings.TrimSpace(e.Error)
	lower := strings.ToLower(message)
	var marker error
	switch {
	case strings.Contains(lower, "not found"):
		marker = services.ErrNotFound
	case strings.Contains(lower, "limit"):
		marker = lookup.ErrRateLimited
	case strings.Contains(lower, "api key"):
		marker = lookup.ErrAuth
	case strings.Contains(lower, "too many results"):
		marker = services.ErrNotFound
	default:
		marker = lookup.ErrBlocked
	}
	return services.Wrap(marker, Name, operation, message, nil)
}

func known(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "N/A") {
		return ""
	}
	return value
}

func parseYear(value string) *int {
	value = strings.TrimSpace(value)
	if len(value) < 4 {
		return nil
	}
	year, err := strconv.Atoi(value[:4])
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}
