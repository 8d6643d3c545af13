package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bowerhall/monumentd/internal/alerts"
	"github.com/bowerhall/monumentd/internal/api"
	"github.com/bowerhall/monumentd/internal/catalog"
	"github.com/bowerhall/monumentd/internal/config"
	"github.com/bowerhall/monumentd/internal/dbopen"
	"github.com/bowerhall/monumentd/internal/facets"
	"github.com/bowerhall/monumentd/internal/images"
	"github.com/bowerhall/monumentd/internal/logger"
	"github.com/bowerhall/monumentd/internal/metrics"
	"github.com/bowerhall/monumentd/internal/refresh"
	"github.com/bowerhall/monumentd/internal/source"
	"github.com/bowerhall/monumentd/internal/store"
)

func init() {
	godotenv.Load()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prometheus.MustRegister(metrics.Collectors()...)

	db, err := dbopen.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open database", "error", err, "path", cfg.DatabasePath)
	}

	records, err := store.Open(db)
	if err != nil {
		logger.Fatal("failed to open record store", "error", err)
	}

	index, err := facets.Open(db)
	if err != nil {
		logger.Fatal("failed to open facet index", "error", err)
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open image storage", "error", err)
	}

	imageCache, err := images.New(blobs, images.Config{
		URLTemplate: cfg.Images.URLTemplate,
		Timeout:     cfg.Images.Timeout,
		CacheSize:   cfg.Images.CacheSize,
	})
	if err != nil {
		logger.Fatal("failed to create image cache", "error", err)
	}

	src := source.New(source.Config{
		URL:      cfg.Source.URL,
		Timeout:  cfg.Source.Timeout,
		RetryMax: cfg.Source.RetryMax,
	})

	coordinator, err := refresh.New(src, imageCache, index, records, refresh.Config{
		Schedule: cfg.Refresh.Schedule,
		Alerter:  newAlerter(cfg.Alerts),
	})
	if err != nil {
		logger.Fatal("failed to create refresh coordinator", "error", err)
	}

	handler := api.New(catalog.New(records, index, imageCache), coordinator, api.Options{
		DataDir:    cfg.DataDir,
		AdminToken: cfg.HTTP.AdminToken,
	}).Handler()
	if cfg.HTTP.AdminToken == "" {
		logger.Info("admin endpoints disabled, set ADMIN_TOKEN to enable")
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", "error", err)
		}
	}()

	if err := coordinator.Start(ctx); err != nil {
		logger.Error("refresh coordinator did not start", "error", err)
	}

	logger.Info("monumentd started",
		"records", records.Count(),
		"schedule", cfg.Refresh.Schedule,
		"data_dir", cfg.DataDir,
		"minio", cfg.Storage.Enabled,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := shutdown(shutdownCtx, server, coordinator, db); err != nil {
		logger.Fatal("unclean shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}

func openBlobs(ctx context.Context, cfg *config.Config) (images.Blobs, error) {
	if !cfg.Storage.Enabled {
		logger.Info("storing images on disk", "dir", cfg.Images.Dir)
		return images.NewDir(cfg.Images.Dir)
	}

	bucket, err := images.NewBucket(images.BucketConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := bucket.Init(ctx); err != nil {
		return nil, err
	}

	logger.Info("storing images in minio", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	return bucket, nil
}

func newAlerter(cfg config.AlertsConfig) *alerts.Alerter {
	var notifiers []alerts.NotifyFunc

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notify, err := alerts.Telegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn("telegram alerts disabled", "error", err)
		} else {
			notifiers = append(notifiers, notify)
		}
	}

	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		notify, err := alerts.Discord(cfg.DiscordToken, cfg.DiscordChannelID)
		if err != nil {
			logger.Warn("discord alerts disabled", "error", err)
		} else {
			notifiers = append(notifiers, notify)
		}
	}

	if len(notifiers) == 0 {
		logger.Debug("no alert channels configured, failures are only logged")
		return alerts.New(nil, cfg.Cooldown)
	}

	logger.Info("refresh alerting enabled", "channels", len(notifiers))
	return alerts.New(alerts.Fanout(notifiers...), cfg.Cooldown)
}

// shutdown stops intake first, then the refresh cycle, then closes the
// database.
func shutdown(ctx context.Context, server *http.Server, coordinator *refresh.Coordinator, db *sql.DB) error {
	var result *multierror.Error

	if err := server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := coordinator.Stop(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := db.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}
