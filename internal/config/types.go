package config

import "time"

type Config struct {
	DataDir      string        `yaml:"data_dir"`
	DatabasePath string        `yaml:"database"`
	Source       SourceConfig  `yaml:"source"`
	Images       ImagesConfig  `yaml:"images"`
	Refresh      RefreshConfig `yaml:"refresh"`
	HTTP         HTTPConfig    `yaml:"http"`
	Storage      StorageConfig `yaml:"storage"`
	Alerts       AlertsConfig  `yaml:"alerts"`
}

type SourceConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

type ImagesConfig struct {
	Dir         string        `yaml:"dir"`
	URLTemplate string        `yaml:"url_template"` // must contain a single %d for the asset id
	Timeout     time.Duration `yaml:"timeout"`
	CacheSize   int           `yaml:"cache_size"`
}

type RefreshConfig struct {
	Schedule string `yaml:"schedule"` // standard cron expression or descriptor, e.g. "@every 12h"
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`

	// AdminToken guards /admin routes; they are disabled when empty.
	AdminToken string `yaml:"admin_token"`
}

// StorageConfig selects MinIO as the image backend when credentials are set.
type StorageConfig struct {
	Enabled   bool   `yaml:"-"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AlertsConfig struct {
	TelegramToken    string        `yaml:"telegram_token"`
	TelegramChatID   int64         `yaml:"telegram_chat_id"`
	DiscordToken     string        `yaml:"discord_token"`
	DiscordChannelID string        `yaml:"discord_channel_id"`
	Cooldown         time.Duration `yaml:"cooldown"`
}
