package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSourceURL        = "https://analisis.datosabiertos.jcyl.es/api/records/1.0/search/?dataset=relacion-monumentos&rows=10000"
	DefaultImageURLTemplate = "https://servicios.jcyl.es/pweb/downloadFoto.do?numbien=%d"
	DefaultSchedule         = "@every 12h"
)

func defaults() Config {
	return Config{
		DataDir: "data",
		Source: SourceConfig{
			URL:      DefaultSourceURL,
			Timeout:  2 * time.Minute,
			RetryMax: 3,
		},
		Images: ImagesConfig{
			URLTemplate: DefaultImageURLTemplate,
			Timeout:     30 * time.Second,
			CacheSize:   256,
		},
		Refresh: RefreshConfig{Schedule: DefaultSchedule},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Storage: StorageConfig{
			Endpoint: "minio:9000",
			Bucket:   "monumentd-images",
		},
		Alerts: AlertsConfig{Cooldown: time.Hour},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by MONUMENTD_CONFIG and finally environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("MONUMENTD_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.DataDir = envString("MONUMENTD_DATA_DIR", cfg.DataDir)
	cfg.DatabasePath = envString("MONUMENTD_DB", cfg.DatabasePath)
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "monuments.db")
	}

	cfg.Source = loadSourceConfig(cfg.Source)

	images, err := loadImagesConfig(cfg.Images, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Images = images

	cfg.Refresh.Schedule = envString("REFRESH_SCHEDULE", cfg.Refresh.Schedule)
	cfg.HTTP = loadHTTPConfig(cfg.HTTP)
	cfg.Storage = loadStorageConfig(cfg.Storage)
	cfg.Alerts = loadAlertsConfig(cfg.Alerts)

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

func loadSourceConfig(base SourceConfig) SourceConfig {
	base.URL = envString("SOURCE_URL", base.URL)
	base.Timeout = envDuration("SOURCE_TIMEOUT", base.Timeout)

	if n, err := strconv.Atoi(os.Getenv("SOURCE_RETRY_MAX")); err == nil && n >= 0 {
		base.RetryMax = n
	}

	return base
}

func loadImagesConfig(base ImagesConfig, dataDir string) (ImagesConfig, error) {
	base.Dir = envString("IMAGES_DIR", base.Dir)
	if base.Dir == "" {
		base.Dir = filepath.Join(dataDir, "images")
	}

	base.URLTemplate = envString("IMAGES_URL_TEMPLATE", base.URLTemplate)
	if strings.Count(base.URLTemplate, "%d") != 1 {
		return ImagesConfig{}, fmt.Errorf("IMAGES_URL_TEMPLATE must contain exactly one %%d: %q", base.URLTemplate)
	}

	base.Timeout = envDuration("IMAGES_TIMEOUT", base.Timeout)

	if n, err := strconv.Atoi(os.Getenv("IMAGES_CACHE_SIZE")); err == nil && n > 0 {
		base.CacheSize = n
	}

	return base, nil
}

func loadHTTPConfig(base HTTPConfig) HTTPConfig {
	base.Addr = envString("HTTP_ADDR", base.Addr)
	base.AdminToken = envString("ADMIN_TOKEN", base.AdminToken)
	return base
}

func loadStorageConfig(base StorageConfig) StorageConfig {
	base.Endpoint = envString("MINIO_ENDPOINT", base.Endpoint)
	base.AccessKey = envString("MINIO_ACCESS_KEY", base.AccessKey)
	base.SecretKey = envString("MINIO_SECRET_KEY", base.SecretKey)
	base.Bucket = envString("MINIO_BUCKET", base.Bucket)

	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		base.UseSSL = v == "true"
	}

	base.Enabled = base.AccessKey != "" && base.SecretKey != ""

	return base
}

func loadAlertsConfig(base AlertsConfig) AlertsConfig {
	base.TelegramToken = envString("TELEGRAM_TOKEN", base.TelegramToken)
	if id, err := strconv.ParseInt(os.Getenv("ALERT_CHAT_ID"), 10, 64); err == nil {
		base.TelegramChatID = id
	}

	base.DiscordToken = envString("DISCORD_TOKEN", base.DiscordToken)
	base.DiscordChannelID = envString("ALERT_CHANNEL_ID", base.DiscordChannelID)
	base.Cooldown = envDuration("ALERT_COOLDOWN", base.Cooldown)

	return base
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}
