package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "/proc/net/dev", cfg.Monitor.CounterSource)
	assert.Equal(t, 10*time.Second, cfg.Interval())
	assert.Equal(t, uint64(1000000), cfg.Monitor.Threshold)
	assert.Equal(t, uint64(10), cfg.Monitor.ReportMinimum)
	assert.Equal(t, 4*time.Second, cfg.CaptureDuration())
	assert.Equal(t, 1000000, cfg.Capture.MaxPackets)
	assert.Equal(t, int64(10000000), cfg.Capture.MaxFileSizeBytes)
	assert.Equal(t, "PCAPS", cfg.Capture.OutputDir)
	assert.True(t, cfg.Capture.UseSudo)
	assert.Equal(t, 0, cfg.Capture.RetentionDays)
	assert.Equal(t, uint64(25), cfg.Summary.LowTrafficFrames)
	assert.Equal(t, []string{"eth", "ip"}, cfg.Summary.Categories)
	assert.Equal(t, 30*time.Second, cfg.SummaryTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Source)
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "logging": {"level": "debug"},
  "monitor": {"interval_seconds": 5, "threshold": 5000, "exclude_interfaces": ["lo"]},
  "capture": {"output_dir": "/var/lib/netmon", "duration_seconds": 8, "use_sudo": false},
  "summary": {"low_traffic_frames": 40, "categories": ["ip"]}
}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.Interval())
	assert.Equal(t, uint64(5000), cfg.Monitor.Threshold)
	assert.Equal(t, []string{"lo"}, cfg.Monitor.ExcludeInterfaces)
	assert.Equal(t, "/var/lib/netmon", cfg.Capture.OutputDir)
	assert.Equal(t, 8*time.Second, cfg.CaptureDuration())
	assert.False(t, cfg.Capture.UseSudo)
	assert.Equal(t, uint64(40), cfg.Summary.LowTrafficFrames)
	assert.Equal(t, []string{"ip"}, cfg.Summary.Categories)

	// untouched keys keep their defaults
	assert.Equal(t, uint64(10), cfg.Monitor.ReportMinimum)
	assert.Equal(t, 1000000, cfg.Capture.MaxPackets)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
monitor:
  threshold: 42
metrics:
  enabled: true
  listen: "127.0.0.1:9999"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.Monitor.Threshold)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Listen)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("NETMON_MONITOR_THRESHOLD", "777")
	t.Setenv("NETMON_CAPTURE_OUTPUT_DIR", "/tmp/caps")

	path := writeConfig(t, "config.json", `{"monitor": {"threshold": 5000}}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(777), cfg.Monitor.Threshold)
	assert.Equal(t, "/tmp/caps", cfg.Capture.OutputDir)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad log level", `{"logging": {"level": "loud"}}`, "invalid log level"},
		{"negative interval", `{"monitor": {"interval_seconds": -1}}`, "monitor.interval_seconds"},
		{"negative retention", `{"capture": {"retention_days": -3}}`, "capture.retention_days"},
		{"unknown category", `{"summary": {"categories": ["bluetooth"]}}`, "unsupported category"},
		{"negative summary timeout", `{"summary": {"timeout_seconds": -1}}`, "summary.timeout_seconds"},
		{"metrics without listen", `{"metrics": {"enabled": true, "listen": ""}}`, "metrics.listen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.json", tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.ValidateAndSetDefaults())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Monitor.IntervalSeconds)
	assert.Equal(t, "/usr/sbin/tshark", cfg.Capture.TsharkPath)
	assert.Equal(t, "/usr/sbin/capinfos", cfg.Capture.CapinfosPath)
	assert.Equal(t, 30, cfg.Summary.TimeoutSeconds)
}

func TestConfig_InitializeLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "netmon.log")
	require.NoError(t, cfg.InitializeLogging())

	_, err := os.Stat(filepath.Dir(cfg.Logging.File))
	assert.NoError(t, err)
}
