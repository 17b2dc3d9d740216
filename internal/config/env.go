// internal/config/env.go
package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv applies environment overrides on top of file config
func LoadFromEnv(cfg *Config) {
	if port := os.Getenv("VIGIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if logLevel := os.Getenv("VIGIL_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	if interval := os.Getenv("VIGIL_CHECK_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	// Channel credentials are the usual thing injected via environment
	if url := os.Getenv("VIGIL_SLACK_WEBHOOK_URL"); url != "" {
		cfg.Alerts.SlackWebhookURL = url
	}
	if key := os.Getenv("VIGIL_PAGERDUTY_ROUTING_KEY"); key != "" {
		cfg.Alerts.PagerDutyRoutingKey = key
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
