// Package poller drives the device fetch loop: a retry-bounded startup
// handshake followed by a drift-compensated polling loop that feeds the
// series store. A failed handshake is fatal; a failed steady-state poll is
// only a counter and a log line, retried by the next scheduled iteration.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/xtxerr/aimon/internal/device"
	"github.com/xtxerr/aimon/internal/errors"
	"github.com/xtxerr/aimon/internal/logging"
	"github.com/xtxerr/aimon/internal/series"
)

var log = logging.Component("poller")

// dayKeyLayout is the local calendar date bucket used for rollover checks.
const dayKeyLayout = "20060102"

// Config holds poller configuration.
type Config struct {
	// Client performs the actual device reads.
	Client device.Client

	// Store receives successful readings.
	Store *series.Store

	// PollInterval is the loop cadence. Must be positive.
	PollInterval time.Duration

	// Timeout is the per-fetch timeout. Must be positive.
	Timeout time.Duration

	// MaxRetries bounds the handshake. Must be >= 0.
	MaxRetries int

	// RetryDelay is the sleep between handshake attempts. Must be >= 0.
	RetryDelay time.Duration

	// Retention prunes the store after each day rollover.
	// Zero disables pruning.
	Retention time.Duration

	// OnRollover is invoked when the local calendar date advances.
	// May be nil.
	OnRollover func(now time.Time)
}

// Poller owns the fetch loop and its counters.
type Poller struct {
	cfg Config

	// Counters read by the view layer.
	failedAttempts atomic.Int64
	totalRetries   atomic.Int64

	currentDay string
}

// New creates a poller. Configuration errors fail here, before any
// network activity.
func New(cfg Config) (*Poller, error) {
	if cfg.Client == nil {
		return nil, errors.NewMissingField("poller client")
	}
	if cfg.Store == nil {
		return nil, errors.NewMissingField("poller store")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.NewInvalidValue("poll interval", cfg.PollInterval, "must be positive")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.NewInvalidValue("timeout", cfg.Timeout, "must be positive")
	}
	if cfg.MaxRetries < 0 {
		return nil, errors.NewInvalidValue("max retries", cfg.MaxRetries, "must be >= 0")
	}
	if cfg.RetryDelay < 0 {
		return nil, errors.NewInvalidValue("retry delay", cfg.RetryDelay, "must be >= 0")
	}

	return &Poller{cfg: cfg}, nil
}

// Counters returns the failed-attempt and handshake-retry counters.
func (p *Poller) Counters() (failedAttempts, totalRetries int64) {
	return p.failedAttempts.Load(), p.totalRetries.Load()
}

// Run performs the startup handshake and then polls until ctx is
// cancelled. The only error it returns is a fatal handshake failure;
// steady-state fetch errors never terminate the loop.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.ConnectWithRetry(ctx); err != nil {
		return err
	}
	p.fetchLoop(ctx)
	return nil
}

// ConnectWithRetry probes the device up to MaxRetries times with a fixed
// delay between attempts. Exhausting the attempts returns
// errors.ErrRetriesExhausted; the system has no data source without a
// reachable device, so the caller is expected to treat this as fatal.
func (p *Poller) ConnectWithRetry(ctx context.Context) error {
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		err := p.cfg.Client.FetchStatus(probeCtx)
		cancel()

		if err == nil {
			log.Info("connected to device", "attempts", attempt+1)
			return nil
		}

		p.totalRetries.Add(1)
		log.Error("device connection failed",
			"attempt", attempt+1,
			"max_retries", p.cfg.MaxRetries,
			"retry_delay", p.cfg.RetryDelay,
			"error", err)

		if !sleepCtx(ctx, p.cfg.RetryDelay) {
			return ctx.Err()
		}
	}

	return errors.Wrapf(errors.ErrRetriesExhausted,
		"after %d attempts", p.cfg.MaxRetries)
}

// fetchLoop polls on a fixed cadence. The sleep is shortened by the time
// the fetch took so the period tracks wall-clock cadence instead of
// drifting by the fetch latency.
func (p *Poller) fetchLoop(ctx context.Context) {
	p.currentDay = time.Now().Format(dayKeyLayout)
	log.Info("fetch loop started", "interval", p.cfg.PollInterval)

	for {
		loopStart := time.Now()

		p.pollOnce(ctx)

		elapsed := time.Since(loopStart)
		if !sleepCtx(ctx, p.cfg.PollInterval-elapsed) {
			log.Info("fetch loop stopped")
			return
		}

		p.checkRollover(time.Now())
	}
}

// pollOnce issues one fetch and appends the result. All failure modes are
// equivalent here: count, log at warning level, and let the next scheduled
// iteration be the retry.
func (p *Poller) pollOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	values, err := p.cfg.Client.FetchChannels(fetchCtx)
	if err != nil {
		p.failedAttempts.Add(1)
		log.Warn("fetch failed", "error", err)
		return
	}

	sample := series.Sample{
		Timestamp: start,
		Values:    values,
		PollMs:    int32(time.Since(start).Milliseconds()),
	}
	p.cfg.Store.Append(sample)

	log.Debug("sample appended",
		"timestamp", sample.Timestamp,
		"channels", len(values),
		"poll_ms", sample.PollMs)
}

// checkRollover compares the local calendar date to the last observed one
// and, when it has advanced, notifies the persister and prunes the store.
// Cheap enough to run every iteration.
func (p *Poller) checkRollover(now time.Time) {
	day := now.Format(dayKeyLayout)
	if day == p.currentDay {
		return
	}

	log.Info("day rollover", "from", p.currentDay, "to", day)
	p.currentDay = day

	if p.cfg.OnRollover != nil {
		p.cfg.OnRollover(now)
	}
	if p.cfg.Retention > 0 {
		evicted := p.cfg.Store.EvictBefore(now.Add(-p.cfg.Retention))
		if evicted > 0 {
			log.Info("pruned in-memory store",
				"evicted", evicted, "retention", p.cfg.Retention)
		}
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first. Returns false on
// cancellation. Non-positive durations return immediately.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
