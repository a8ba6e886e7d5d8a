// aimond is the analog-input acquisition daemon: it polls a Moxa ioLogik
// device, buffers readings in an in-memory time series, persists dated day
// files, and serves the live render feed over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/aimon/internal/archive"
	"github.com/xtxerr/aimon/internal/device"
	"github.com/xtxerr/aimon/internal/loader"
	"github.com/xtxerr/aimon/internal/logging"
	"github.com/xtxerr/aimon/internal/persist"
	"github.com/xtxerr/aimon/internal/poller"
	"github.com/xtxerr/aimon/internal/series"
	"github.com/xtxerr/aimon/internal/server"
	"github.com/xtxerr/aimon/internal/view"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// run owns all deferred cleanup; the exit code decision stays here so
	// no defer is skipped by os.Exit.
	if err := run(); err != nil {
		logging.Error("aimond exiting", "error", err)
		os.Exit(1)
	}
	logging.Info("aimond stopped")
}

func run() error {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	address := flag.String("address", "", "device address (overrides config)")
	listen := flag.String("listen", "", "listen address (overrides config)")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	jsonLog := flag.Bool("json-log", false, "JSON log output")
	flag.Parse()

	// Load config
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("No config file found, using defaults")
			cfg = loader.DefaultConfig()
		} else {
			return fmt.Errorf("load config: %w", err)
		}
	}

	// CLI overrides
	if *address != "" {
		cfg.Device.Address = *address
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dataDir != "" {
		cfg.Persist.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *jsonLog {
		cfg.Logging.JSON = true
	}

	// Validate after overrides; invalid configuration is fatal before any
	// network activity starts.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	logging.Info("aimond starting", "version", Version, "device", cfg.Device.Address)

	// =========================================================================
	// Build the device client
	// =========================================================================

	var client device.Client
	switch cfg.Device.Protocol {
	case "snmp":
		client = device.NewSNMPClient(device.SNMPConfig{
			Address:   cfg.Device.Address,
			Port:      cfg.Device.SNMP.Port,
			Community: cfg.Device.SNMP.Community,
			OIDBase:   cfg.Device.SNMP.OIDBase,
			Scale:     cfg.Device.SNMP.Scale,
			Channels:  cfg.Device.Channels,
			Timeout:   cfg.Device.Timeout.Duration(),
		})
	default:
		client = device.NewHTTPClient(device.HTTPConfig{
			Address:  cfg.Device.Address,
			APIRoot:  cfg.Device.APIRoot,
			Channels: cfg.Device.Channels,
			Timeout:  cfg.Device.Timeout.Duration(),
		})
	}

	// =========================================================================
	// Store, persister, rehydration
	// =========================================================================

	store := series.NewStore()

	pst, err := persist.New(persist.Config{
		Store:              store,
		DataDir:            cfg.Persist.DataDir,
		Channels:           cfg.Device.Channels,
		FlushInterval:      cfg.Persist.FlushInterval.Duration(),
		RetentionDays:      cfg.Persist.RetentionDays,
		ArchiveEnabled:     cfg.Persist.Archive.Enabled,
		ArchiveCompression: cfg.Persist.Archive.Compression,
	})
	if err != nil {
		return fmt.Errorf("create persister: %w", err)
	}

	// A restart must not lose same-day history.
	if n, err := pst.Rehydrate(); err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	} else if n > 0 {
		logging.Info("rehydrated", "samples", n)
	}

	// =========================================================================
	// Poller
	// =========================================================================

	pol, err := poller.New(poller.Config{
		Client:       client,
		Store:        store,
		PollInterval: cfg.Device.PollInterval.Duration(),
		Timeout:      cfg.Device.Timeout.Duration(),
		MaxRetries:   cfg.Device.MaxRetries,
		RetryDelay:   cfg.Device.RetryDelay.Duration(),
		Retention:    cfg.Series.Retention.Duration(),
		OnRollover:   pst.Rollover,
	})
	if err != nil {
		return fmt.Errorf("create poller: %w", err)
	}

	// =========================================================================
	// View and server
	// =========================================================================

	agg := view.New(view.Config{
		Store:       store,
		Counters:    pol,
		Channels:    cfg.Device.Channels,
		Window:      cfg.View.Window.Duration(),
		Bucket:      cfg.View.Bucket.Duration(),
		Percentiles: cfg.View.Percentiles,
	})

	var querySvc *archive.QueryService
	if cfg.Persist.Archive.Enabled {
		querySvc, err = archive.NewQueryService(cfg.Persist.DataDir)
		if err != nil {
			return fmt.Errorf("create archive query service: %w", err)
		}
		defer querySvc.Close()
	}

	srv := server.New(server.Config{
		Listen:          cfg.Server.Listen,
		Aggregator:      agg,
		Archive:         querySvc,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	})

	// =========================================================================
	// Run
	// =========================================================================

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// A fatal handshake failure propagates through the group to the
	// process exit path; the persister and server drain on cancellation.
	g.Go(func() error { return pol.Run(ctx) })
	g.Go(func() error { return pst.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })

	return g.Wait()
}
