package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"EnigmaNetz/Enigma-Netmon/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. NETMON_MONITOR_THRESHOLD.
const EnvPrefix = "NETMON"

// DefaultPaths are searched in order when no config path is given.
var DefaultPaths = []string{
	"/etc/enigma-netmon/config.json",
	"config.json",
}

// Config represents the application configuration
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Capture CaptureConfig `mapstructure:"capture"`
	Summary SummaryConfig `mapstructure:"summary"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Source is the file the configuration was read from; empty when running on defaults.
	Source string `mapstructure:"-"`
}

// LoggingConfig controls the diagnostic log (not the operator report stream).
type LoggingConfig struct {
	// Level is the minimum log level to output (debug, info, warn, error)
	Level string `mapstructure:"level"`
	// File is the path to the log file. If empty, logs to stderr only
	File string `mapstructure:"file"`
	// MaxSizeMB is the maximum size of log file before rotation
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// LogRetentionDays is how long rotated log files are kept
	LogRetentionDays int `mapstructure:"log_retention_days"`
}

// MonitorConfig controls counter sampling and anomaly detection.
type MonitorConfig struct {
	// CounterSource is the per-interface counter file
	CounterSource string `mapstructure:"counter_source"`
	// IntervalSeconds is the sampling interval
	IntervalSeconds int `mapstructure:"interval_seconds"`
	// Threshold is the per-field delta above which an interface is anomalous
	Threshold uint64 `mapstructure:"threshold"`
	// ReportMinimum is the smallest delta printed in the report
	ReportMinimum uint64 `mapstructure:"report_minimum"`
	// MaxConsecutiveReadFailures makes the loop give up after that many failed reads. 0 disables.
	MaxConsecutiveReadFailures int `mapstructure:"max_consecutive_read_failures"`
	// ExcludeInterfaces are never diffed (e.g. "lo")
	ExcludeInterfaces []string `mapstructure:"exclude_interfaces"`
}

// CaptureConfig controls triggered capture sessions.
type CaptureConfig struct {
	// OutputDir is where capture artifacts are stored
	OutputDir string `mapstructure:"output_dir"`
	// DurationSeconds bounds each capture
	DurationSeconds int `mapstructure:"duration_seconds"`
	// GraceSeconds is added to the duration before the capture process is killed
	GraceSeconds int `mapstructure:"grace_seconds"`
	// MaxPackets bounds each capture by packet count
	MaxPackets int `mapstructure:"max_packets"`
	// MaxFileSizeBytes bounds each capture by artifact size
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes"`
	// UseSudo runs the capture program through sudo
	UseSudo bool `mapstructure:"use_sudo"`
	// SudoPath, TsharkPath and CapinfosPath locate the external programs
	SudoPath     string `mapstructure:"sudo_path"`
	TsharkPath   string `mapstructure:"tshark_path"`
	CapinfosPath string `mapstructure:"capinfos_path"`
	// RetentionDays prunes artifacts older than this many days. 0 keeps everything.
	RetentionDays int `mapstructure:"retention_days"`
}

// SummaryConfig controls the post-capture summary.
type SummaryConfig struct {
	// LowTrafficFrames hides IP conversations with at most this many frames
	LowTrafficFrames uint64 `mapstructure:"low_traffic_frames"`
	// Categories are the conversation categories to summarize
	Categories []string `mapstructure:"categories"`
	// LocalStats adds an in-process packet statistics section
	LocalStats bool `mapstructure:"local_stats"`
	// TimeoutSeconds bounds each summary program run
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Interval returns the sampling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// CaptureDuration returns the per-capture duration bound.
func (c *Config) CaptureDuration() time.Duration {
	return time.Duration(c.Capture.DurationSeconds) * time.Second
}

// CaptureGrace returns the extra time a capture gets before it is killed.
func (c *Config) CaptureGrace() time.Duration {
	return time.Duration(c.Capture.GraceSeconds) * time.Second
}

// SummaryTimeout returns the time limit for one summary program run.
func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.Summary.TimeoutSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.log_retention_days", 7)

	v.SetDefault("monitor.counter_source", "/proc/net/dev")
	v.SetDefault("monitor.interval_seconds", 10)
	v.SetDefault("monitor.threshold", 1000000)
	v.SetDefault("monitor.report_minimum", 10)
	v.SetDefault("monitor.max_consecutive_read_failures", 30)
	v.SetDefault("monitor.exclude_interfaces", []string{})

	v.SetDefault("capture.output_dir", "PCAPS")
	v.SetDefault("capture.duration_seconds", 4)
	v.SetDefault("capture.grace_seconds", 5)
	v.SetDefault("capture.max_packets", 1000000)
	v.SetDefault("capture.max_file_size_bytes", 10000000)
	v.SetDefault("capture.use_sudo", true)
	v.SetDefault("capture.sudo_path", "/usr/bin/sudo")
	v.SetDefault("capture.tshark_path", "/usr/sbin/tshark")
	v.SetDefault("capture.capinfos_path", "/usr/sbin/capinfos")
	v.SetDefault("capture.retention_days", 0)

	v.SetDefault("summary.low_traffic_frames", 25)
	v.SetDefault("summary.categories", []string{"eth", "ip"})
	v.SetDefault("summary.local_stats", true)
	v.SetDefault("summary.timeout_seconds", 30)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9102")
	v.SetDefault("metrics.path", "/metrics")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := load(newViper(), "")
	if err != nil {
		// defaults are static and always valid
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from a JSON or YAML file. With an empty path
// the DefaultPaths are tried and, if none exists, defaults are used. A .env
// file in the working directory is loaded into the environment first.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := newViper()

	if configPath == "" {
		for _, p := range DefaultPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v, configPath)
}

func load(v *viper.Viper, source string) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.Source = source

	if err := config.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ValidateAndSetDefaults fills zero values with defaults and rejects
// configurations the monitor cannot run with.
func (c *Config) ValidateAndSetDefaults() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if _, err := logger.ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}

	if c.Monitor.CounterSource == "" {
		c.Monitor.CounterSource = "/proc/net/dev"
	}
	if c.Monitor.IntervalSeconds == 0 {
		c.Monitor.IntervalSeconds = 10
	}
	if c.Monitor.Threshold == 0 {
		c.Monitor.Threshold = 1000000
	}
	if c.Monitor.ReportMinimum == 0 {
		c.Monitor.ReportMinimum = 10
	}
	if c.Capture.OutputDir == "" {
		c.Capture.OutputDir = "PCAPS"
	}
	if c.Capture.DurationSeconds == 0 {
		c.Capture.DurationSeconds = 4
	}
	if c.Capture.MaxPackets == 0 {
		c.Capture.MaxPackets = 1000000
	}
	if c.Capture.MaxFileSizeBytes == 0 {
		c.Capture.MaxFileSizeBytes = 10000000
	}
	if c.Capture.TsharkPath == "" {
		c.Capture.TsharkPath = "/usr/sbin/tshark"
	}
	if c.Capture.CapinfosPath == "" {
		c.Capture.CapinfosPath = "/usr/sbin/capinfos"
	}
	if c.Capture.SudoPath == "" {
		c.Capture.SudoPath = "/usr/bin/sudo"
	}
	if c.Summary.LowTrafficFrames == 0 {
		c.Summary.LowTrafficFrames = 25
	}
	if len(c.Summary.Categories) == 0 {
		c.Summary.Categories = []string{"eth", "ip"}
	}
	if c.Summary.TimeoutSeconds == 0 {
		c.Summary.TimeoutSeconds = 30
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	switch {
	case c.Monitor.IntervalSeconds < 0:
		return fmt.Errorf("monitor.interval_seconds must be positive, got %d", c.Monitor.IntervalSeconds)
	case c.Monitor.MaxConsecutiveReadFailures < 0:
		return fmt.Errorf("monitor.max_consecutive_read_failures must not be negative, got %d", c.Monitor.MaxConsecutiveReadFailures)
	case c.Capture.DurationSeconds < 0:
		return fmt.Errorf("capture.duration_seconds must be positive, got %d", c.Capture.DurationSeconds)
	case c.Capture.GraceSeconds < 0:
		return fmt.Errorf("capture.grace_seconds must not be negative, got %d", c.Capture.GraceSeconds)
	case c.Capture.MaxPackets < 0:
		return fmt.Errorf("capture.max_packets must be positive, got %d", c.Capture.MaxPackets)
	case c.Capture.MaxFileSizeBytes < 0:
		return fmt.Errorf("capture.max_file_size_bytes must be positive, got %d", c.Capture.MaxFileSizeBytes)
	case c.Capture.RetentionDays < 0:
		return fmt.Errorf("capture.retention_days must not be negative, got %d", c.Capture.RetentionDays)
	case c.Summary.TimeoutSeconds < 0:
		return fmt.Errorf("summary.timeout_seconds must be positive, got %d", c.Summary.TimeoutSeconds)
	case c.Metrics.Enabled && c.Metrics.Listen == "":
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true")
	}
	for _, cat := range c.Summary.Categories {
		if !validCategory(cat) {
			return fmt.Errorf("summary.categories: unsupported category %q", cat)
		}
	}
	return nil
}

func validCategory(cat string) bool {
	switch cat {
	case "eth", "ip", "ipv6", "tcp", "udp":
		return true
	}
	return false
}

// InitializeLogging sets up logging based on config
func (c *Config) InitializeLogging() error {
	level, err := logger.ParseLogLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.Logging.File != "" {
		logDir := filepath.Dir(c.Logging.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	logConfig := logger.Config{
		LogLevel:   level,
		LogFile:    c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxAgeDays: c.Logging.LogRetentionDays,
	}

	if err := logger.Initialize(logConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}
