package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marquee/internal/services"
)

// DefaultHTTPTimeout bounds a single request to an external service.
const DefaultHTTPTimeout = 15 * time.Second

// NewHTTPClient returns the client used by lookup services.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultHTTPTimeout}
}

// Request describes one JSON GET against an external service.
type Request struct {
	Service   string
	Operation string
	URL       string
	// Classify may translate a non-200 status into a failure; returning nil
	// falls back to StatusError.
	Classify func(status int, body []byte) error
}

// GetJSON executes req and decodes a 200 response into out.
func GetJSON(ctx context.Context, client *http.Client, req Request, out any) error {
	if client == nil {
		client = NewHTTPClient()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, req.Service, req.Operation, "build request", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = RedactURL(urlErr.URL)
		}
		return TransportError(req.Service, req.Operation, fmt.Errorf("latency=%v: %w", latency.Round(time.Millisecond), err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return TransportError(req.Service, req.Operation, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		if req.Classify != nil {
			if classified := req.Classify(resp.StatusCode, body); classified != nil {
				return classified
			}
		}
		return StatusError(req.Service, req.Operation, resp.StatusCode, string(body), resp.Header)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(ErrUnavailable, req.Service, req.Operation, "decode response", err)
	}
	return nil
}

// credentialParams are query parameters that carry API keys.
var credentialParams = []string{"api_key", "apikey", "key"}

// RedactURL masks credential query parameters so request URLs can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	values := u.Query()
	changed := false
	for _, name := range credentialParams {
		if values.Has(name) {
			values.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = values.Encode()
	return u.String()
}
