package amplitude

import (
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/loopcredit/dailybrief/internal/event"
)

const (
	defaultBaseURL = "https://amplitude.com/api/2"
	exportTimeout  = 120 * time.Second

	maxRetries     = 5
	baseRetryDelay = 1 * time.Second
)

// ActiveEvent is the segmentation pseudo-event counting any activity.
const ActiveEvent = "_active"

// Client talks to the Amplitude HTTP API: the Export API for the full raw
// event stream and the Segmentation API for cheap unique-user counts.
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// New creates an export client. baseURL may be empty for production.
func New(apiKey, secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:    apiKey,
		secretKey: secretKey,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: exportTimeout,
		},
	}
}

// ExportDay downloads all events for one calendar day via the Export API.
// The response body is one or more gzipped NDJSON chunks; undecodable
// lines are skipped, not fatal. Requires the Export API to be enabled on
// the Amplitude plan.
func (c *Client) ExportDay(ctx context.Context, day time.Time) ([]*event.Event, error) {
	query := url.Values{}
	query.Set("start", day.Format("20060102")+"T00")
	query.Set("end", day.Format("20060102")+"T23")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/export?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build export request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.secretKey)

	resp, err := c.doWithRateLimit(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Amplitude returns 404 for a day with zero events.
		slog.Warn("Export returned no data for day", "day", day.Format("2006-01-02"))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("export request failed: status %d", resp.StatusCode)
	}

	// gzip.Reader consumes concatenated members, which is exactly how the
	// export endpoint chunks its output.
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	events, skipped, err := event.DecodeNDJSON(gz)
	if err != nil {
		return nil, fmt.Errorf("decode export stream: %w", err)
	}
	if skipped > 0 {
		slog.Warn("Skipped undecodable export lines", "skipped", skipped)
	}
	slog.Info("Export fetched", "day", day.Format("2006-01-02"), "events", len(events))
	return events, nil
}

// segmentationResponse is the subset of the Segmentation API response the
// client reads.
type segmentationResponse struct {
	Data struct {
		Series [][]float64 `json:"series"`
	} `json:"data"`
}

// UniqueCount returns the unique-user count for one event type on one day
// via the Segmentation API. Failures degrade to zero with a warning — the
// count is a pre-flight sanity figure, never load-bearing for the report.
func (c *Client) UniqueCount(ctx context.Context, eventType string, day time.Time) int {
	eventJSON, err := json.Marshal(map[string]string{"event_type": eventType})
	if err != nil {
		slog.Warn("Could not encode segmentation event filter", "event_type", eventType, "error", err)
		return 0
	}

	dayStr := day.Format("20060102")
	query := url.Values{}
	query.Set("e", string(eventJSON))
	query.Set("start", dayStr)
	query.Set("end", dayStr)
	query.Set("m", "uniques")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/segmentation?"+query.Encode(), nil)
	if err != nil {
		slog.Warn("Could not build segmentation request", "event_type", eventType, "error", err)
		return 0
	}
	req.SetBasicAuth(c.apiKey, c.secretKey)

	resp, err := c.doWithRateLimit(req)
	if err != nil {
		slog.Warn("Segmentation request failed", "event_type", eventType, "error", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Segmentation request failed", "event_type", eventType, "status", resp.StatusCode)
		return 0
	}

	var seg segmentationResponse
	if err := json.NewDecoder(resp.Body).Decode(&seg); err != nil {
		slog.Warn("Could not decode segmentation response", "event_type", eventType, "error", err)
		return 0
	}
	if len(seg.Data.Series) == 0 || len(seg.Data.Series[0]) == 0 {
		return 0
	}
	return int(seg.Data.Series[0][0])
}

// DAU returns daily active users (any event) for one day.
func (c *Client) DAU(ctx context.Context, day time.Time) int {
	return c.UniqueCount(ctx, ActiveEvent, day)
}

// doWithRateLimit executes a request with exponential-backoff retry on
// HTTP 429: 1s, 2s, 4s, 8s, 16s, honoring Retry-After when present.
// Waits are context-cancellable. The caller must close the response body.
func (c *Client) doWithRateLimit(req *http.Request) (*http.Response, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		if attempt == maxRetries {
			return nil, fmt.Errorf("rate limit exceeded after %d retries", maxRetries)
		}

		retryDelay := baseRetryDelay * (1 << attempt)
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				retryDelay = seconds
			}
		}

		slog.Warn("Amplitude API rate limited (HTTP 429), retrying",
			"retry_delay", retryDelay,
			"attempt", attempt+1,
			"max_retries", maxRetries,
		)

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("unreachable: retry loop must return or error")
}
