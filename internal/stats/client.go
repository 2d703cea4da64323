// Package stats is a client of the statistics service that counts page hits.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
)

// EventURIPrefix is the public path of an event; hits are keyed by it.
const EventURIPrefix = "/events/"

// EndpointHit is one recorded visit.
type EndpointHit struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// ViewStats is one row of GET /stats.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

type Client struct {
	baseURL string
	app     string
	http    *http.Client
	now     func() time.Time
}

func NewClient(baseURL, app string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		app:     app,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// ViewCounts returns unique-IP view counts per event id. Ids with no hits are
// present with zero.
func (c *Client) ViewCounts(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	q := url.Values{}
	q.Set("start", time.Unix(0, 0).UTC().Format(model.DateTimeLayout))
	q.Set("end", c.now().UTC().Format(model.DateTimeLayout))
	q.Set("unique", "true")
	for _, id := range eventIDs {
		counts[id] = 0
		q.Add("uris", EventURIPrefix+id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get stats", resp)
	}

	var rows []ViewStats
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	for _, r := range rows {
		id, ok := strings.CutPrefix(r.URI, EventURIPrefix)
		if !ok {
			continue
		}
		if _, wanted := counts[id]; wanted {
			counts[id] += r.Hits
		}
	}
	return counts, nil
}

// Hit records one visit of uri from ip.
func (c *Client) Hit(ctx context.Context, uri, ip string) error {
	body, err := json.Marshal(EndpointHit{
		App:       c.app,
		URI:       uri,
		IP:        ip,
		Timestamp: c.now().UTC().Format(model.DateTimeLayout),
	})
	if err != nil {
		return fmt.Errorf("encode hit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build hit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post hit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError("post hit", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}
