// Package source fetches the raw monuments payload from the open-data
// search endpoint.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/metrics"
)

var (
	// ErrFetch marks network failures and non-success responses.
	ErrFetch = errors.New("source fetch failed")
	// ErrParse marks payloads without a decodable record list.
	ErrParse = errors.New("source payload invalid")
)

type Config struct {
	URL      string
	Timeout  time.Duration // per attempt. Default: 2m.
	RetryMax int           // extra attempts after the first.
	MaxBytes int64         // response body cap. Default: 64MB.
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 64 << 20
	}
}

type Client struct {
	http *retryablehttp.Client
	cfg  Config
}

func New(cfg Config) *Client {
	cfg.defaults()

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = time.Second
	rc.RetryWaitMax = 30 * time.Second
	rc.Logger = logger.With("component", "source")

	return &Client{http: rc, cfg: cfg}
}

type payload struct {
	NHits   int                `json:"nhits"`
	Records *[]json.RawMessage `json:"records"`
}

// Fetch downloads and decodes the full record list.
func (c *Client) Fetch(ctx context.Context) ([]Item, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	items, err := Decode(body)
	if err != nil {
		return nil, err
	}

	logger.Debug("source fetched", "records", len(items), "bytes", len(body))
	return items, nil
}

// Decode parses a search response. A payload without a records array is a
// parse failure; an empty array is not. Records that do not decode are
// logged and dropped.
func Decode(body []byte) ([]Item, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if p.Records == nil {
		return nil, fmt.Errorf("%w: no records list", ErrParse)
	}

	items := make([]Item, 0, len(*p.Records))
	for i, raw := range *p.Records {
		var item Item
		if err := json.Unmarshal(raw, &item); err != nil {
			logger.Warn("skipping undecodable source record", "index", i, "error", err)
			metrics.RecordsSkipped.Inc()
			continue
		}
		items = append(items, item)
	}

	return items, nil
}
