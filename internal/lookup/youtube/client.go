package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"marquee/internal/lookup"
	"marquee/internal/query"
)

// Name identifies this service in logs, errors, and candidates.
const Name = "youtube"

const (
	watchBaseURL  = "https://www.youtube.com/watch"
	resultsURL    = "https://www.youtube.com/results"
	mediaTypeClip = "video"
)

var yearPattern = regexp.MustCompile(`\b(18[7-9]\d|19\d\d|20\d\d|2100)\b`)

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Client searches YouTube for trailer videos.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

var _ lookup.Searcher = (*Client)(nil)

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

// WithMaxResults bounds the number of results requested per search.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// New creates a YouTube client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("youtube api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("youtube base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: 10,
		httpClient: lookup.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) Name() string     { return Name }
func (c *Client) Kind() query.Kind { return query.KindVideo }

// Search looks up "<title> <year> trailer" and returns the video results.
func (c *Client) Search(ctx context.Context, q query.NormalizedQuery) ([]lookup.Candidate, error) {
	title := strings.TrimSpace(q.CanonicalTitle)
	if title == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	params.Set("q", searchTerms(title, "", q.Year))

	var payload searchResponse
	err := lookup.GetJSON(ctx, c.httpClient, lookup.Request{
		Service:   Name,
		Operation: "search",
		URL:       c.baseURL + "/search?" + params.Encode(),
		Classify:  classifyAPIError,
	}, &payload)
	if err != nil {
		return nil, err
	}

	candidates := make([]lookup.Candidate, 0, len(payload.Items))
	for _, item := range payload.Items {
		id := strings.TrimSpace(item.ID.VideoID)
		if id == "" {
			continue
		}
		videoTitle := html.UnescapeString(strings.TrimSpace(item.Snippet.Title))
		candidates = append(candidates, lookup.Candidate{
			ExternalID: id,
			Title:      videoTitle,
			Year:       yearInTitle(videoTitle),
			Kind:       query.KindVideo,
			MediaType:  mediaTypeClip,
			Source:     Name,
			SourceRank: len(candidates),
			Payload: lookup.Payload{
				VideoURL:     WatchURL(id),
				ChannelTitle: html.UnescapeString(strings.TrimSpace(item.Snippet.ChannelTitle)),
			},
		})
	}
	return candidates, nil
}

// WatchURL returns the canonical watch page for a video id.
func WatchURL(videoID string) string {
	return watchBaseURL + "?" + url.Values{"v": {videoID}}.Encode()
}

// SearchURL returns a results page a person can open to look for the
// trailer by hand.
func SearchURL(title, director string, year *int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return resultsURL + "?" + url.Values{"search_query": {searchTerms(title, director, year)}}.Encode()
}

func searchTerms(title, director string, year *int) string {
	parts := []string{title}
	if director = strings.TrimSpace(director); director != "" {
		parts = append(parts, director)
	}
	if year != nil {
		parts = append(parts, strconv.Itoa(*year))
	}
	parts = append(parts, "trailer")
	return strings.Join(parts, " ")
}

func yearInTitle(title string) *int {
	match := yearPattern.FindString(title)
	if match == "" {
		return nil
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &year
}

// classifyAPIError maps quota exhaustion, which YouTube reports as 403, to a
// rate limit.
func classifyAPIError(status int, body []byte) error {
	var payload apiError
	if json.Unmarshal(body, &payload) != nil {
		return nil
	}
	for _, e := range payload.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return lookup.StatusError(Name, "search", http.StatusTooManyRequests, e.Reason, nil)
		}
	}
	return nil
}
