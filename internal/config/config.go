// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/exp1azy/ether-net/internal/capture"
)

// Config is the top-level configuration.
type Config struct {
	Capture CaptureConfig `mapstructure:"capture"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CaptureConfig selects and tunes the capture device.
type CaptureConfig struct {
	Type          string `mapstructure:"type"`   // pcap / afpacket / file
	Device        string `mapstructure:"device"` // interface name, or file path for type file
	Filter        string `mapstructure:"filter"`
	Promiscuous   bool   `mapstructure:"promiscuous"`
	ReadTimeoutMs int    `mapstructure:"read_timeout_ms"`
	SnapLen       int    `mapstructure:"snap_len"`
	BufferSizeMB  int    `mapstructure:"buffer_size_mb"` // afpacket ring budget
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string           `mapstructure:"level"`  // debug / info / warn / error
	Format string           `mapstructure:"format"` // json / text
	File   FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures rotated file log output.
type FileOutputConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load loads configuration from a YAML file. Environment variables with
// the ETHERNET_ prefix override file values (ETHERNET_CAPTURE_DEVICE,
// ETHERNET_LOG_LEVEL, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("ethernet")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("capture.type", "pcap")
	// Empty defaults so AutomaticEnv sees the keys on Unmarshal.
	v.SetDefault("capture.device", "")
	v.SetDefault("capture.filter", "")
	v.SetDefault("capture.promiscuous", true)
	v.SetDefault("capture.read_timeout_ms", 1000)
	v.SetDefault("capture.snap_len", 65535)
	v.SetDefault("capture.buffer_size_mb", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "/var/log/ether-net/ether-net.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9091")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks field values; it does not require a device, which may
// arrive later as a CLI flag.
func (c *Config) Validate() error {
	switch c.Capture.Type {
	case "pcap", "afpacket", "file":
	default:
		return fmt.Errorf("capture.type must be pcap, afpacket or file, got %q", c.Capture.Type)
	}
	if c.Capture.ReadTimeoutMs <= 0 {
		return fmt.Errorf("capture.read_timeout_ms must be positive, got %d", c.Capture.ReadTimeoutMs)
	}
	if c.Capture.SnapLen <= 0 {
		return fmt.Errorf("capture.snap_len must be positive, got %d", c.Capture.SnapLen)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}
	return nil
}

// SessionConfig converts the capture section into the session's view.
func (c *CaptureConfig) SessionConfig() capture.Config {
	return capture.Config{
		Filter:      c.Filter,
		Promiscuous: c.Promiscuous,
		ReadTimeout: time.Duration(c.ReadTimeoutMs) * time.Millisecond,
		SnapLen:     c.SnapLen,
	}
}
