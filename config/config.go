package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every environment-driven setting. Notification keys
// are optional; leaving them unset disables the corresponding channel.
type Config struct {
	Port             string
	DatabaseURL      string
	AppEnv           string
	ReportsDir       string
	AggregateWorkers int
	ReportRetention  time.Duration // 0 disables the retention sweeper
	SendgridAPIKey   string
	AlertEmail       string
	SlackWebhookURL  string
}

// Load reads the configuration from the environment, applying defaults
// for anything unset.
func Load() Config {
	cfg := Config{
		Port:             envOr("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AppEnv:           envOr("APP_ENV", "production"),
		ReportsDir:       envOr("REPORTS_DIR", "reports"),
		AggregateWorkers: envIntOr("AGGREGATE_WORKERS", 4),
		SendgridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		AlertEmail:       os.Getenv("ALERT_EMAIL"),
		SlackWebhookURL:  os.Getenv("SLACK_WEBHOOK_URL"),
	}
	if v := os.Getenv("REPORT_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReportRetention = d
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
