// Package refresh runs harvest cycles: fetch the source, convert, merge
// facets, cache images and commit the batch. At most one cycle runs at a
// time; further triggers wait for the gate and then run in turn.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/bowerhall/monumentd/internal/alerts"
	"github.com/bowerhall/monumentd/internal/convert"
	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/metrics"
	"github.com/bowerhall/monumentd/internal/monument"
	"github.com/bowerhall/monumentd/internal/source"
)

// DefaultSchedule runs a cycle twice a day.
const DefaultSchedule = "@every 12h"

// ErrStopped is returned by triggers issued after Stop.
var ErrStopped = errors.New("refresh coordinator stopped")

// Fetcher downloads the raw source payload.
type Fetcher interface {
	Fetch(ctx context.Context) ([]source.Item, error)
}

// ImagePopulator caches images for a batch and reports which ids have one.
type ImagePopulator interface {
	PopulateAll(ctx context.Context, batch []monument.Monument) int
	Has(ctx context.Context, id int) bool
}

// FacetMerger adds the facet values of a batch.
type FacetMerger interface {
	MergeBatch(ctx context.Context, batch []monument.Monument) (int, error)
}

// Committer persists a batch and publishes it to readers.
type Committer interface {
	Count() int
	Commit(ctx context.Context, batch []monument.Monument) (int, error)
}

// Config tunes a Coordinator. A nil Alerter only logs failures.
type Config struct {
	Schedule string // standard cron expression or descriptor. Default: @every 12h.
	Alerter  *alerts.Alerter
}

// Result summarizes one cycle. Error is set when the cycle failed.
type Result struct {
	CycleID     string        `json:"cycleId"`
	Fetched     int           `json:"fetched"`
	Converted   int           `json:"converted"`
	Skipped     int           `json:"skipped"`
	FacetsAdded int           `json:"facetsAdded"`
	ImagesAdded int           `json:"imagesAdded"`
	Committed   int           `json:"committed"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finishedAt"`
	Error       string        `json:"error,omitempty"`
}

// Coordinator schedules refresh cycles and runs them one at a time.
type Coordinator struct {
	src     Fetcher
	images  ImagePopulator
	facets  FacetMerger
	store   Committer
	alerter *alerts.Alerter

	schedule cron.Schedule
	expr     string

	gate sync.Mutex

	// life is cancelled by Stop and bounds every cycle.
	life   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards cron, stopped, last
	cron    *cron.Cron
	stopped bool
	last    *Result

	ready atomic.Bool
}

// New validates the schedule and returns a stopped coordinator; call
// Start to run it.
func New(src Fetcher, images ImagePopulator, facets FacetMerger, store Committer, cfg Config) (*Coordinator, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", cfg.Schedule, err)
	}

	life, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		src:      src,
		images:   images,
		facets:   facets,
		store:    store,
		alerter:  cfg.Alerter,
		schedule: schedule,
		expr:     cfg.Schedule,
		life:     life,
		cancel:   cancel,
	}, nil
}

// Start runs a blocking first cycle when the store is empty, then hands
// further cycles to the scheduler. A failed first cycle is logged and the
// service starts with no data.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.store.Count() == 0 {
		logger.Info("record store empty, running initial refresh")
		if _, err := c.Trigger(ctx); errors.Is(err, ErrStopped) {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}

	c.cron = cron.New()
	c.cron.Schedule(c.schedule, cron.FuncJob(c.TriggerAsync))
	c.cron.Start()

	c.ready.Store(true)
	logger.Info("refresh scheduled", "schedule", c.expr, "next", c.schedule.Next(time.Now()))
	return nil
}

// Ready reports whether Start has completed and Stop has not been called.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// Trigger runs one cycle, waiting for any active cycle to finish first.
// The cycle is cancelled when either ctx or the coordinator is stopped.
func (c *Coordinator) Trigger(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return Result{}, ErrStopped
	}
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	c.gate.Lock()
	defer c.gate.Unlock()

	if c.life.Err() != nil {
		return Result{}, ErrStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(c.life, cancel)()

	return c.runCycle(ctx)
}

// TriggerAsync queues a cycle without waiting for it.
func (c *Coordinator) TriggerAsync() {
	go func() {
		if _, err := c.Trigger(context.Background()); errors.Is(err, ErrStopped) {
			logger.Debug("refresh trigger dropped after stop")
		}
	}()
}

// LastResult returns the outcome of the most recent cycle.
func (c *Coordinator) LastResult() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Stop halts the scheduler, cancels the running cycle and waits for it and
// any queued triggers to return.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	sched := c.cron
	c.mu.Unlock()

	if sched != nil {
		<-sched.Stop().Done()
	}
	c.cancel()
	c.ready.Store(false)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("refresh coordinator stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for refresh cycle: %w", ctx.Err())
	}
}

func (c *Coordinator) runCycle(ctx context.Context) (res Result, err error) {
	res.CycleID = uuid.NewString()
	log := logger.With("cycle", res.CycleID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
		}
		res.Duration = time.Since(start)
		res.FinishedAt = time.Now()
		if err != nil {
			res.Error = err.Error()
		}
		c.finish(ctx, res, err)
	}()

	log.Info("refresh started")

	items, err := c.src.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}
	res.Fetched = len(items)

	batch, skipped := convert.ConvertAll(items)
	res.Converted, res.Skipped = len(batch), skipped
	metrics.RecordsSkipped.Add(float64(skipped))

	if len(batch) == 0 {
		log.Warn("source returned no usable records", "fetched", res.Fetched)
		return res, nil
	}

	added, err := c.facets.MergeBatch(ctx, batch)
	if err != nil {
		return res, fmt.Errorf("merge facets: %w", err)
	}
	res.FacetsAdded = added

	res.ImagesAdded = c.images.PopulateAll(ctx, batch)
	for i := range batch {
		batch[i].HasImage = c.images.Has(ctx, batch[i].ID)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Committed, err = c.store.Commit(ctx, batch)
	if err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}

	return res, nil
}

func (c *Coordinator) finish(ctx context.Context, res Result, err error) {
	c.mu.Lock()
	c.last = &res
	c.mu.Unlock()

	metrics.RefreshDuration.Observe(res.Duration.Seconds())

	log := logger.With("cycle", res.CycleID)

	switch {
	case err == nil:
		metrics.RefreshCycles.WithLabelValues("ok").Inc()
		log.Info("refresh finished",
			"fetched", res.Fetched,
			"converted", res.Converted,
			"skipped", res.Skipped,
			"facets_added", res.FacetsAdded,
			"images_added", res.ImagesAdded,
			"committed", res.Committed,
			"duration", res.Duration,
		)
	case ctx.Err() != nil:
		metrics.RefreshCycles.WithLabelValues("cancelled").Inc()
		log.Warn("refresh cancelled", "error", err)
	default:
		metrics.RefreshCycles.WithLabelValues("failed").Inc()
		log.Error("refresh failed", "error", err, "duration", res.Duration)
		c.alerter.Critical("refresh", "refresh cycle failed", err)
	}
}
