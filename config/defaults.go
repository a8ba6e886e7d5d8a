// Package config provides configuration defaults and utilities
// for the aimon application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or CLI flags.
package config

import "time"

// =============================================================================
// Device Defaults
// =============================================================================

const (
	// DefaultDeviceProtocol selects the device transport.
	// Supported: "http" (ioLogik REST API) and "snmp".
	// Override via config: device.protocol
	DefaultDeviceProtocol = "http"

	// DefaultPollInterval is the steady-state polling cadence.
	// Override via config: device.poll_interval
	DefaultPollInterval = 5 * time.Second

	// DefaultRequestTimeout is the per-request timeout for a single fetch.
	// Override via config: device.timeout
	DefaultRequestTimeout = 1 * time.Second

	// DefaultMaxConnectRetries is the number of retry sleeps allowed while
	// establishing the initial device connection. Exhausting them is fatal.
	// Override via config: device.max_retries
	DefaultMaxConnectRetries = 5

	// DefaultRetryDelay is the sleep between connection attempts.
	// Override via config: device.retry_delay
	DefaultRetryDelay = 5 * time.Second

	// DefaultAPIRoot is the ioLogik REST endpoint for analog inputs.
	// Override via config: device.api_root
	DefaultAPIRoot = "/api/slot/0/io/ai"

	// DefaultSNMPPort is the SNMP agent port on the device.
	// Override via config: device.snmp.port
	DefaultSNMPPort = 161
)

// =============================================================================
// Series Defaults
// =============================================================================

const (
	// DefaultSeriesRetention bounds in-memory growth: after each day
	// rollover, samples older than this are pruned from the store. Must be
	// at least the view window so the live view is never starved.
	// Override via config: series.retention
	DefaultSeriesRetention = 48 * time.Hour
)

// =============================================================================
// Persistence Defaults
// =============================================================================

const (
	// DefaultFlushInterval is the persister cadence. Each flush overwrites
	// the current day file with a complete snapshot.
	// Override via config: persist.flush_interval
	DefaultFlushInterval = 60 * time.Second

	// DefaultDataDir is where day files (CSV and Parquet) are written.
	// Override via config: persist.data_dir
	DefaultDataDir = "data"

	// DefaultRetentionDays is how many calendar days of persisted files are
	// kept before the retention sweep deletes them. 0 disables the sweep.
	// Override via config: persist.retention_days
	DefaultRetentionDays = 30
)

// =============================================================================
// View Defaults
// =============================================================================

const (
	// DefaultViewWindow is the live view span.
	// Override via config: view.window
	DefaultViewWindow = 24 * time.Hour

	// DefaultViewBucket is the resample bucket for the render feed.
	// Override via config: view.bucket
	DefaultViewBucket = 1 * time.Minute
)

// =============================================================================
// Server Defaults
// =============================================================================

const (
	// DefaultListenAddress is the render feed listen address.
	// Override via config: server.listen
	DefaultListenAddress = "0.0.0.0:8050"

	// DefaultShutdownTimeout is how long to wait for the final flush and
	// the HTTP server drain during shutdown.
	// Override via config: server.shutdown_timeout
	DefaultShutdownTimeout = 10 * time.Second
)
