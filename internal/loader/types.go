// Package loader - Configuration Types
//
// Defines the YAML configuration structure for aimond.
package loader

import (
	"time"

	"github.com/xtxerr/aimon/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for aimond.
type Config struct {
	// Logging configures log level and format.
	Logging LoggingConfig `yaml:"logging"`

	// Device configures the polled analog-input device.
	Device DeviceConfig `yaml:"device"`

	// Series configures the in-memory store.
	Series SeriesConfig `yaml:"series"`

	// Persist configures day-file persistence and archival.
	Persist PersistConfig `yaml:"persist"`

	// View configures the live render feed.
	View ViewConfig `yaml:"view"`

	// Server configures the render feed HTTP server.
	Server ServerConfig `yaml:"server"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON selects JSON output instead of text.
	JSON bool `yaml:"json"`
}

// =============================================================================
// Device Configuration
// =============================================================================

// DeviceConfig configures the polled device.
type DeviceConfig struct {
	// Protocol selects the transport: "http" or "snmp".
	Protocol string `yaml:"protocol"`

	// Address is the device host or host:port.
	Address string `yaml:"address"`

	// APIRoot is the REST endpoint path (http protocol only).
	APIRoot string `yaml:"api_root"`

	// PollInterval is the steady-state polling cadence. Must be positive.
	PollInterval Duration `yaml:"poll_interval"`

	// Timeout is the per-request timeout. Must be positive.
	Timeout Duration `yaml:"timeout"`

	// Channels lists the analog channel indices to read. Must be
	// non-empty; entries must be unique and non-negative.
	Channels []int `yaml:"channels"`

	// MaxRetries bounds the startup handshake: after this many failed
	// connection attempts the process exits.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the sleep between handshake attempts.
	RetryDelay Duration `yaml:"retry_delay"`

	// SNMP holds transport settings used when Protocol is "snmp".
	SNMP SNMPConfig `yaml:"snmp"`
}

// SNMPConfig configures the SNMP transport.
type SNMPConfig struct {
	// Port is the agent port (default 161).
	Port uint16 `yaml:"port"`

	// Community is the SNMPv2c community string. Required for snmp
	// protocol; there is no insecure default.
	Community string `yaml:"community"`

	// OIDBase is the prefix of the per-channel scaled value objects.
	OIDBase string `yaml:"oid_base"`

	// Scale converts agent integers to engineering units.
	Scale float64 `yaml:"scale"`
}

// =============================================================================
// Series / Persist / View / Server
// =============================================================================

// SeriesConfig configures the in-memory store.
type SeriesConfig struct {
	// Retention bounds in-memory growth: after day rollover, samples
	// older than this are pruned. Must be at least the view window.
	Retention Duration `yaml:"retention"`
}

// PersistConfig configures day-file persistence.
type PersistConfig struct {
	// DataDir is where day files are written.
	DataDir string `yaml:"data_dir"`

	// FlushInterval is the persister cadence. Must be positive.
	FlushInterval Duration `yaml:"flush_interval"`

	// RetentionDays is how many calendar days of files are kept.
	// 0 disables the retention sweep.
	RetentionDays int `yaml:"retention_days"`

	// Archive configures the Parquet day archive.
	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig configures the Parquet archive tier.
type ArchiveConfig struct {
	// Enabled turns on Parquet archival of completed days.
	Enabled bool `yaml:"enabled"`

	// Compression is the Parquet codec: zstd, snappy, lz4, gzip, none.
	Compression string `yaml:"compression"`
}

// ViewConfig configures the live render feed.
type ViewConfig struct {
	// Window is the live view span.
	Window Duration `yaml:"window"`

	// Bucket is the resample bucket size.
	Bucket Duration `yaml:"bucket"`

	// Percentiles enables p50/p95 in the stats feed.
	Percentiles bool `yaml:"percentiles"`
}

// ServerConfig configures the render feed HTTP server.
type ServerConfig struct {
	// Listen is the listen address ("host:port" or ":port").
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds the final flush and server drain.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a config populated with package config defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Device: DeviceConfig{
			Protocol:     config.DefaultDeviceProtocol,
			APIRoot:      config.DefaultAPIRoot,
			PollInterval: Duration(config.DefaultPollInterval),
			Timeout:      Duration(config.DefaultRequestTimeout),
			Channels:     []int{0, 1, 2, 3},
			MaxRetries:   config.DefaultMaxConnectRetries,
			RetryDelay:   Duration(config.DefaultRetryDelay),
			SNMP: SNMPConfig{
				Port:  config.DefaultSNMPPort,
				Scale: 0.001,
			},
		},
		Series: SeriesConfig{
			Retention: Duration(config.DefaultSeriesRetention),
		},
		Persist: PersistConfig{
			DataDir:       config.DefaultDataDir,
			FlushInterval: Duration(config.DefaultFlushInterval),
			RetentionDays: config.DefaultRetentionDays,
			Archive: ArchiveConfig{
				Enabled:     true,
				Compression: "zstd",
			},
		},
		View: ViewConfig{
			Window: Duration(config.DefaultViewWindow),
			Bucket: Duration(config.DefaultViewBucket),
		},
		Server: ServerConfig{
			Listen:          config.DefaultListenAddress,
			ShutdownTimeout: Duration(config.DefaultShutdownTimeout),
		},
	}
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Accepts "30s" style strings or plain integers (seconds).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
