package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Overpass   OverpassConfig   `yaml:"overpass" mapstructure:"overpass"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Load       LoadConfig       `yaml:"load" mapstructure:"load"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// OverpassConfig configures the Overpass API client.
type OverpassConfig struct {
	Endpoint         string  `yaml:"endpoint" mapstructure:"endpoint"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	QueryTimeoutSecs int     `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	HTTPTimeoutSecs  int     `yaml:"http_timeout_secs" mapstructure:"http_timeout_secs"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ExtractConfig selects which points of interest are extracted.
type ExtractConfig struct {
	Area            string `yaml:"area" mapstructure:"area"`
	Boundary        string `yaml:"boundary" mapstructure:"boundary"`
	TagKey          string `yaml:"tag_key" mapstructure:"tag_key"`
	TagValue        string `yaml:"tag_value" mapstructure:"tag_value"`
	Limit           int    `yaml:"limit" mapstructure:"limit"`
	PlaceholderName string `yaml:"placeholder_name" mapstructure:"placeholder_name"`
}

// LoadConfig configures the destination table.
type LoadConfig struct {
	Table string `yaml:"table" mapstructure:"table"`
}

// TemporalConfig configures the Temporal worker and daily schedule.
type TemporalConfig struct {
	HostPort   string `yaml:"host_port" mapstructure:"host_port"`
	Namespace  string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue  string `yaml:"task_queue" mapstructure:"task_queue"`
	ScheduleID string `yaml:"schedule_id" mapstructure:"schedule_id"`
	Cron       string `yaml:"cron" mapstructure:"cron"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures the sync health checker run by serve.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StaleAfterHours      int     `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CAFES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "cafe-sync/1.0")
	v.SetDefault("overpass.query_timeout_secs", 25)
	v.SetDefault("overpass.http_timeout_secs", 60)
	v.SetDefault("overpass.max_attempts", 1)
	v.SetDefault("overpass.rate_per_sec", 1.0)
	v.SetDefault("extract.area", "Berlin")
	v.SetDefault("extract.boundary", "administrative")
	v.SetDefault("extract.tag_key", "amenity")
	v.SetDefault("extract.tag_value", "cafe")
	v.SetDefault("extract.limit", 50)
	v.SetDefault("extract.placeholder_name", "Unnamed")
	v.SetDefault("load.table", "berlin_cafes")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "cafe-sync")
	v.SetDefault("temporal.schedule_id", "berlin-cafes-daily")
	v.SetDefault("temporal.cron", "0 0 * * *")
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 168)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.stale_after_hours", 36)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given mode and reports every
// problem at once. Modes: "extract", "run", "migrate", "runs", "export",
// "serve", "worker".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "extract":
		errs = append(errs, c.validateExtract()...)
	case "run", "worker":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateExtract()...)
		if mode == "worker" && (c.Temporal.HostPort == "" || c.Temporal.TaskQueue == "") {
			errs = append(errs, "temporal.host_port and temporal.task_queue are required")
		}
	case "migrate", "runs", "export":
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Monitoring.Enabled && c.Monitoring.StaleAfterHours <= 0 {
			errs = append(errs, "monitoring.stale_after_hours must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required (CAFES_STORE_DATABASE_URL)")
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (postgres, sqlite)", c.Store.Driver))
	}
	if c.Load.Table == "" {
		errs = append(errs, "load.table is required")
	}
	return errs
}

func (c *Config) validateExtract() []string {
	var errs []string
	if c.Overpass.Endpoint == "" {
		errs = append(errs, "overpass.endpoint is required")
	}
	if c.Extract.Area == "" {
		errs = append(errs, "extract.area is required")
	}
	if c.Extract.TagKey == "" || c.Extract.TagValue == "" {
		errs = append(errs, "extract.tag_key and extract.tag_value are required")
	}
	if c.Extract.Limit <= 0 {
		errs = append(errs, "extract.limit must be > 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
