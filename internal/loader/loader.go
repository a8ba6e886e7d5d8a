// Package loader handles configuration file loading and validation.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Overlaying user values on documented defaults
//   - Fail-fast validation before any network activity starts
package loader

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/aimon/internal/errors"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file. User values overlay the
// defaults from DefaultConfig. Validation is the caller's step, after any
// CLI overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate checks the configuration for errors. Invalid values fail here,
// at construction, rather than surfacing mid-loop.
func (c *Config) Validate() error {
	v := errors.NewValidationErrors()

	c.Device.validate(v)
	c.Series.validate(v, c.View.Window.Duration())
	c.Persist.validate(v)
	c.View.validate(v)
	c.Server.validate(v)

	return v.Err()
}

func (c *DeviceConfig) validate(v *errors.ValidationErrors) {
	if c.Address == "" {
		v.AddMissing("device.address")
	}

	switch c.Protocol {
	case "http":
		if c.APIRoot == "" {
			v.AddMissing("device.api_root")
		}
	case "snmp":
		if c.SNMP.Community == "" {
			v.AddField("device.snmp.community",
				"required for snmp protocol (refusing to use insecure default)")
		}
		if c.SNMP.OIDBase == "" {
			v.AddMissing("device.snmp.oid_base")
		}
	default:
		v.AddField("device.protocol", fmt.Sprintf("unsupported protocol %q", c.Protocol))
	}

	if c.PollInterval.Duration() <= 0 {
		v.AddField("device.poll_interval", "must be positive")
	}
	if c.Timeout.Duration() <= 0 {
		v.AddField("device.timeout", "must be positive")
	}
	if c.MaxRetries < 0 {
		v.AddField("device.max_retries", "must be >= 0")
	}
	if c.RetryDelay.Duration() < 0 {
		v.AddField("device.retry_delay", "must be >= 0")
	}

	if len(c.Channels) == 0 {
		v.AddField("device.channels", "at least one channel required")
	}
	seen := make(map[int]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if ch < 0 {
			v.AddField("device.channels", fmt.Sprintf("channel %d is negative", ch))
		}
		if seen[ch] {
			v.AddField("device.channels", fmt.Sprintf("channel %d listed twice", ch))
		}
		seen[ch] = true
	}
}

func (c *SeriesConfig) validate(v *errors.ValidationErrors, viewWindow time.Duration) {
	if c.Retention.Duration() <= 0 {
		v.AddField("series.retention", "must be positive")
	} else if c.Retention.Duration() < viewWindow {
		v.AddField("series.retention", "must cover the view window")
	}
}

func (c *PersistConfig) validate(v *errors.ValidationErrors) {
	if c.DataDir == "" {
		v.AddMissing("persist.data_dir")
	}
	if c.FlushInterval.Duration() <= 0 {
		v.AddField("persist.flush_interval", "must be positive")
	}
	if c.RetentionDays < 0 {
		v.AddField("persist.retention_days", "must be >= 0")
	}
	switch c.Archive.Compression {
	case "", "zstd", "snappy", "lz4", "gzip", "none":
	default:
		v.AddField("persist.archive.compression",
			fmt.Sprintf("unsupported codec %q", c.Archive.Compression))
	}
}

func (c *ViewConfig) validate(v *errors.ValidationErrors) {
	if c.Window.Duration() <= 0 {
		v.AddField("view.window", "must be positive")
	}
	if c.Bucket.Duration() <= 0 {
		v.AddField("view.bucket", "must be positive")
	}
}

func (c *ServerConfig) validate(v *errors.ValidationErrors) {
	if c.Listen == "" {
		v.AddMissing("server.listen")
	}
	if c.ShutdownTimeout.Duration() <= 0 {
		v.AddField("server.shutdown_timeout", "must be positive")
	}
}
