// Package images downloads and keeps one image per monument. Images are
// write-once: an id that already has a blob is never fetched again.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/metrics"
	"github.com/bowerhall/monumentd/internal/monument"
)

type Config struct {
	// URLTemplate is formatted with the monument's asset id.
	URLTemplate string
	Timeout     time.Duration // Default: 30s.
	CacheSize   int           // images kept in memory for reads. Default: 256.
	MaxBytes    int64         // Default: 20MB.
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 256
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 20 << 20
	}
}

type Cache struct {
	blobs  Blobs
	client *http.Client
	cfg    Config
	flight singleflight.Group
	recent *lru.Cache[int, []byte]
}

func New(blobs Blobs, cfg Config) (*Cache, error) {
	cfg.defaults()

	recent, err := lru.New[int, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("image lru: %w", err)
	}

	return &Cache{
		blobs:  blobs,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		recent: recent,
	}, nil
}

func (c *Cache) Has(ctx context.Context, id int) bool {
	ok, err := c.blobs.Exists(ctx, id)
	if err != nil {
		logger.Warn("image lookup failed", "id", id, "error", err)
		return false
	}
	return ok
}

func (c *Cache) Get(ctx context.Context, id int) ([]byte, error) {
	if data, ok := c.recent.Get(id); ok {
		return data, nil
	}

	data, err := c.blobs.Read(ctx, id)
	if err != nil {
		return nil, err
	}

	c.recent.Add(id, data)
	return data, nil
}

// Populate downloads the image of m unless m has no asset id or an image is
// already stored. It reports whether a new image was written; every failure
// is logged and reported as false.
func (c *Cache) Populate(ctx context.Context, m *monument.Monument) bool {
	if m.AssetID == nil || *m.AssetID == 0 {
		return false
	}

	id, assetID := m.ID, *m.AssetID
	v, _, _ := c.flight.Do(strconv.Itoa(id), func() (any, error) {
		return c.populate(ctx, id, assetID), nil
	})
	return v.(bool)
}

func (c *Cache) populate(ctx context.Context, id, assetID int) bool {
	if c.Has(ctx, id) {
		return false
	}

	data, err := c.download(ctx, assetID)
	if errors.Is(err, ErrNotFound) {
		metrics.ImageFetches.WithLabelValues("absent").Inc()
		logger.Debug("image not available", "id", id, "asset_id", assetID, "reason", err)
		return false
	}
	if err != nil {
		metrics.ImageFetches.WithLabelValues("failed").Inc()
		logger.Warn("image download failed", "id", id, "asset_id", assetID, "error", err)
		return false
	}

	if err := c.blobs.Write(ctx, id, data); err != nil {
		metrics.ImageFetches.WithLabelValues("failed").Inc()
		logger.Error("image write failed", "id", id, "error", err)
		return false
	}

	metrics.ImageFetches.WithLabelValues("stored").Inc()
	logger.Debug("image stored", "id", id, "asset_id", assetID, "size", len(data))
	return true
}

// download treats non-200 responses and empty 200 bodies as absent: the
// image service answers 200 with no content for unknown ids. Bodies over
// MaxBytes are rejected rather than truncated.
func (c *Cache) download(ctx context.Context, assetID int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.cfg.URLTemplate, assetID), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrNotFound, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.cfg.MaxBytes {
		return nil, fmt.Errorf("image larger than %d bytes", c.cfg.MaxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrNotFound)
	}

	return data, nil
}

// PopulateAll runs Populate for every monument at once and returns the
// number of images written. A failed download does not affect the others.
func (c *Cache) PopulateAll(ctx context.Context, batch []monument.Monument) int {
	var g errgroup.Group
	var added atomic.Int64

	for i := range batch {
		m := &batch[i]
		g.Go(func() error {
			if c.Populate(ctx, m) {
				added.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	return int(added.Load())
}
