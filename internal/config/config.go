// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level vigil configuration
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
	Endpoints map[string]string `yaml:"endpoints"` // name -> URL
	RPO       RPOConfig         `yaml:"rpo"`
	RTO       RTOConfig         `yaml:"rto"`
	Alerts    AlertsConfig      `yaml:"alerts"`
	Logs      LogsConfig        `yaml:"logs"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// SchedulerConfig controls the health-check loop
type SchedulerConfig struct {
	Interval     time.Duration `yaml:"interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// RPOConfig defines the backup-recency thresholds
type RPOConfig struct {
	Target        time.Duration `yaml:"target"`
	WarningRatio  float64       `yaml:"warning_ratio"`
	CriticalRatio float64       `yaml:"critical_ratio"`
	Interval      time.Duration `yaml:"interval"`
}

// RTOConfig defines the restore-time thresholds. Phase estimates are
// hours per named recovery phase; empty means built-in defaults.
type RTOConfig struct {
	TargetHours            float64            `yaml:"target_hours"`
	CriticalThresholdHours float64            `yaml:"critical_threshold_hours"`
	Interval               time.Duration      `yaml:"interval"`
	PhaseHours             map[string]float64 `yaml:"phase_hours"`
}

// AlertsConfig configures delivery channels. A channel with no
// credential self-disables rather than failing startup.
type AlertsConfig struct {
	SlackWebhookURL     string        `yaml:"slack_webhook_url"`
	PagerDutyURL        string        `yaml:"pagerduty_url"`
	PagerDutyRoutingKey string        `yaml:"pagerduty_routing_key"`
	Timeout             time.Duration `yaml:"timeout"`
}

// LogsConfig configures log forwarding sinks
type LogsConfig struct {
	IntakeURL      string        `yaml:"intake_url"`
	IndexURL       string        `yaml:"index_url"`
	IndexName      string        `yaml:"index_name"`
	ForwardTimeout time.Duration `yaml:"forward_timeout"`
	RatePerSecond  int           `yaml:"rate_per_second"`
}

// YAML durations are Go duration strings ("30s", "5m"). yaml.v3 has no
// native time.Duration support, so sections carrying durations decode
// through an aux struct; absent keys keep whatever value is already set.

func setDuration(dst *time.Duration, raw *string) error {
	if raw == nil || *raw == "" {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", *raw, err)
	}
	*dst = d
	return nil
}

func (c *SchedulerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval     *string `yaml:"interval"`
		ProbeTimeout *string `yaml:"probe_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if err := setDuration(&c.Interval, raw.Interval); err != nil {
		return err
	}
	return setDuration(&c.ProbeTimeout, raw.ProbeTimeout)
}

func (c *RPOConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Target        *string  `yaml:"target"`
		WarningRatio  *float64 `yaml:"warning_ratio"`
		CriticalRatio *float64 `yaml:"critical_ratio"`
		Interval      *string  `yaml:"interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.WarningRatio != nil {
		c.WarningRatio = *raw.WarningRatio
	}
	if raw.CriticalRatio != nil {
		c.CriticalRatio = *raw.CriticalRatio
	}
	if err := setDuration(&c.Target, raw.Target); err != nil {
		return err
	}
	return setDuration(&c.Interval, raw.Interval)
}

func (c *RTOConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TargetHours            *float64           `yaml:"target_hours"`
		CriticalThresholdHours *float64           `yaml:"critical_threshold_hours"`
		Interval               *string            `yaml:"interval"`
		PhaseHours             map[string]float64 `yaml:"phase_hours"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TargetHours != nil {
		c.TargetHours = *raw.TargetHours
	}
	if raw.CriticalThresholdHours != nil {
		c.CriticalThresholdHours = *raw.CriticalThresholdHours
	}
	if raw.PhaseHours != nil {
		c.PhaseHours = raw.PhaseHours
	}
	return setDuration(&c.Interval, raw.Interval)
}

func (c *AlertsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SlackWebhookURL     *string `yaml:"slack_webhook_url"`
		PagerDutyURL        *string `yaml:"pagerduty_url"`
		PagerDutyRoutingKey *string `yaml:"pagerduty_routing_key"`
		Timeout             *string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.SlackWebhookURL != nil {
		c.SlackWebhookURL = *raw.SlackWebhookURL
	}
	if raw.PagerDutyURL != nil {
		c.PagerDutyURL = *raw.PagerDutyURL
	}
	if raw.PagerDutyRoutingKey != nil {
		c.PagerDutyRoutingKey = *raw.PagerDutyRoutingKey
	}
	return setDuration(&c.Timeout, raw.Timeout)
}

func (c *LogsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		IntakeURL      *string `yaml:"intake_url"`
		IndexURL       *string `yaml:"index_url"`
		IndexName      *string `yaml:"index_name"`
		ForwardTimeout *string `yaml:"forward_timeout"`
		RatePerSecond  *int    `yaml:"rate_per_second"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.IntakeURL != nil {
		c.IntakeURL = *raw.IntakeURL
	}
	if raw.IndexURL != nil {
		c.IndexURL = *raw.IndexURL
	}
	if raw.IndexName != nil {
		c.IndexName = *raw.IndexName
	}
	if raw.RatePerSecond != nil {
		c.RatePerSecond = *raw.RatePerSecond
	}
	return setDuration(&c.ForwardTimeout, raw.ForwardTimeout)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			LogLevel: "info",
		},
		Scheduler: SchedulerConfig{
			Interval:     60 * time.Second,
			ProbeTimeout: 10 * time.Second,
		},
		Endpoints: map[string]string{},
		RPO: RPOConfig{
			Target:        24 * time.Hour,
			WarningRatio:  0.75,
			CriticalRatio: 0.9,
			Interval:      5 * time.Minute,
		},
		RTO: RTOConfig{
			TargetHours:            4,
			CriticalThresholdHours: 3.5,
			Interval:               time.Hour,
		},
		Alerts: AlertsConfig{
			Timeout: 10 * time.Second,
		},
		Logs: LogsConfig{
			ForwardTimeout: 10 * time.Second,
			RatePerSecond:  50,
		},
	}
}

// Load reads a YAML config file over the defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration ranges
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("config: scheduler interval must be positive")
	}
	if c.Scheduler.ProbeTimeout <= 0 {
		return errors.New("config: probe timeout must be positive")
	}
	if c.Scheduler.ProbeTimeout >= c.Scheduler.Interval {
		return errors.New("config: probe timeout must be shorter than scheduler interval")
	}
	if err := c.RPO.Validate(); err != nil {
		return err
	}
	return c.RTO.Validate()
}

// Validate checks RPO thresholds
func (c *RPOConfig) Validate() error {
	if c.Target <= 0 {
		return errors.New("config: rpo target must be positive")
	}
	if c.WarningRatio <= 0 || c.WarningRatio >= 1 {
		return fmt.Errorf("config: rpo warning_ratio must be in (0,1), got %v", c.WarningRatio)
	}
	if c.CriticalRatio <= 0 || c.CriticalRatio >= 1 {
		return fmt.Errorf("config: rpo critical_ratio must be in (0,1), got %v", c.CriticalRatio)
	}
	if c.WarningRatio >= c.CriticalRatio {
		return errors.New("config: rpo warning_ratio must be below critical_ratio")
	}
	if c.Interval <= 0 {
		return errors.New("config: rpo interval must be positive")
	}
	return nil
}

// Validate checks RTO thresholds
func (c *RTOConfig) Validate() error {
	if c.TargetHours <= 0 {
		return errors.New("config: rto target_hours must be positive")
	}
	if c.CriticalThresholdHours <= 0 || c.CriticalThresholdHours >= c.TargetHours {
		return errors.New("config: rto critical_threshold_hours must be in (0, target_hours)")
	}
	if c.Interval <= 0 {
		return errors.New("config: rto interval must be positive")
	}
	for phase, hours := range c.PhaseHours {
		if hours < 0 {
			return fmt.Errorf("config: rto phase %q has negative estimate", phase)
		}
	}
	return nil
}
