// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Store() StoreConfig
	Capture() CaptureConfig
	Engine() EngineConfig
	Hub() HubConfig
	Publish() PublishConfig
	Heal() HealConfig

	// Test/CLI overrides.
	SetStoreBaseDir(string)
	SetHubEnabled(bool)
	SetHealInterval(time.Duration)
}

// Config holds the entire application configuration. Callers access it
// through the Interface getters; the fields are exported only so viper can
// unmarshal into them.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	StoreCfg   StoreConfig   `mapstructure:"store" yaml:"store"`
	CaptureCfg CaptureConfig `mapstructure:"capture" yaml:"capture"`
	EngineCfg  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	HubCfg     HubConfig     `mapstructure:"hub" yaml:"hub"`
	PublishCfg PublishConfig `mapstructure:"publish" yaml:"publish"`
	HealCfg    HealConfig    `mapstructure:"heal" yaml:"heal"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Store() StoreConfig     { return c.StoreCfg }
func (c *Config) Capture() CaptureConfig { return c.CaptureCfg }
func (c *Config) Engine() EngineConfig   { return c.EngineCfg }
func (c *Config) Hub() HubConfig         { return c.HubCfg }
func (c *Config) Publish() PublishConfig { return c.PublishCfg }
func (c *Config) Heal() HealConfig       { return c.HealCfg }

func (c *Config) SetStoreBaseDir(dir string)      { c.StoreCfg.BaseDir = dir }
func (c *Config) SetHubEnabled(b bool)            { c.HubCfg.Enabled = b }
func (c *Config) SetHealInterval(d time.Duration) { c.HealCfg.Interval = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// StoreConfig locates the local on-disk store and bounds its growth.
type StoreConfig struct {
	BaseDir   string        `mapstructure:"base_dir" yaml:"base_dir"`
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
}

// CaptureConfig tunes failure ingestion.
type CaptureConfig struct {
	// LookbackMinutes bounds the window scanned by each cycle.
	LookbackMinutes int `mapstructure:"lookback_minutes" yaml:"lookback_minutes"`
	// DedupWindowMinutes is the window used for duplicate-hash suppression.
	DedupWindowMinutes int `mapstructure:"dedup_window_minutes" yaml:"dedup_window_minutes"`
	// TailFile, when set, is an agent log file followed in loop mode; error
	// lines found there are captured as failure events.
	TailFile string `mapstructure:"tail_file" yaml:"tail_file"`
}

// EngineConfig configures the fix engine's retry behavior.
type EngineConfig struct {
	MaxRetries            int           `mapstructure:"max_retries" yaml:"max_retries"`
	BaseDelay             time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay              time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	CommandTimeout        time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	RunValidationCommands bool          `mapstructure:"run_validation_commands" yaml:"run_validation_commands"`
}

// HubConfig configures the remote GEP marketplace client.
type HubConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	SenderID   string        `mapstructure:"sender_id" yaml:"sender_id"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	MaxRetries uint64        `mapstructure:"max_retries" yaml:"max_retries"`
}

// PublishConfig bounds republication of already-seen fixes.
type PublishConfig struct {
	DedupWindow time.Duration `mapstructure:"dedup_window" yaml:"dedup_window"`
}

// HealConfig drives the orchestrator's outer loop.
type HealConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "remedy")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Store --
	v.SetDefault("store.base_dir", "")
	v.SetDefault("store.retention", "168h")

	// -- Capture --
	v.SetDefault("capture.lookback_minutes", 60)
	v.SetDefault("capture.dedup_window_minutes", 30)
	v.SetDefault("capture.tail_file", "")

	// -- Engine --
	v.SetDefault("engine.max_retries", 3)
	v.SetDefault("engine.base_delay", "1s")
	v.SetDefault("engine.max_delay", "30s")
	v.SetDefault("engine.command_timeout", "60s")
	v.SetDefault("engine.run_validation_commands", false)

	// -- Hub --
	v.SetDefault("hub.enabled", false)
	v.SetDefault("hub.endpoint", "https://hub.evomap.net")
	v.SetDefault("hub.sender_id", "remedy-agent")
	v.SetDefault("hub.timeout", "8s")
	v.SetDefault("hub.rate_limit", 2.0)
	v.SetDefault("hub.max_retries", 3)

	// -- Publish --
	v.SetDefault("publish.dedup_window", "24h")

	// -- Heal --
	v.SetDefault("heal.interval", "5m")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults always validate; anything else is a programming error.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.StoreCfg.BaseDir == "" {
		dir, err := homedir.Expand("~/.remedy")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default store dir: %w", err)
		}
		cfg.StoreCfg.BaseDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.CaptureCfg.LookbackMinutes <= 0 {
		return fmt.Errorf("capture.lookback_minutes must be a positive integer")
	}
	if c.CaptureCfg.DedupWindowMinutes <= 0 {
		return fmt.Errorf("capture.dedup_window_minutes must be a positive integer")
	}
	if c.EngineCfg.MaxRetries <= 0 {
		return fmt.Errorf("engine.max_retries must be a positive integer")
	}
	if c.EngineCfg.BaseDelay <= 0 || c.EngineCfg.MaxDelay < c.EngineCfg.BaseDelay {
		return fmt.Errorf("engine.base_delay must be positive and no greater than engine.max_delay")
	}
	if c.HealCfg.Interval <= 0 {
		return fmt.Errorf("heal.interval must be a positive duration")
	}
	if c.PublishCfg.DedupWindow <= 0 {
		return fmt.Errorf("publish.dedup_window must be a positive duration")
	}
	if c.HubCfg.Enabled {
		if c.HubCfg.Endpoint == "" {
			return fmt.Errorf("hub.endpoint is required when the hub is enabled")
		}
		if c.HubCfg.Timeout <= 0 {
			return fmt.Errorf("hub.timeout must be a positive duration")
		}
		if c.HubCfg.RateLimit <= 0 {
			return fmt.Errorf("hub.rate_limit must be positive")
		}
	}
	return nil
}
