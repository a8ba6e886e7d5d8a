package persist

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/aimon/internal/archive"
	"github.com/xtxerr/aimon/internal/logging"
	"github.com/xtxerr/aimon/internal/series"
)

var log = logging.Component("persister")

// Config holds persister configuration.
type Config struct {
	// Store is the series store flushed on each cycle.
	Store *series.Store

	// DataDir is where day files are written.
	DataDir string

	// Channels fixes the CSV column set.
	Channels []int

	// FlushInterval is the flush cadence.
	FlushInterval time.Duration

	// RetentionDays bounds how many day files are kept. 0 disables the
	// retention sweep.
	RetentionDays int

	// ArchiveEnabled turns on Parquet archival of completed days.
	ArchiveEnabled bool

	// ArchiveCompression is the Parquet codec name.
	ArchiveCompression string
}

// Persister flushes the store to the current day file on a fixed cadence,
// independent of the poll cadence. Each flush writes the complete
// deduplicated view of the current day, overwriting prior content, so the
// persisted file never accumulates duplicates across restarts.
type Persister struct {
	cfg Config

	mu         sync.Mutex
	currentKey string
	lastFlush  time.Time

	flushCount atomic.Int64
	flushFails atomic.Int64
}

// New creates a persister targeting today's date key. The data directory
// is created if it does not exist.
func New(cfg Config) (*Persister, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	return &Persister{
		cfg:        cfg,
		currentKey: DayKey(time.Now()),
	}, nil
}

// CurrentKey returns the date bucket currently being written.
func (p *Persister) CurrentKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentKey
}

// Rehydrate loads the current day's CSV file, if present, into the store
// so a restart does not lose same-day history. Returns the number of
// samples loaded.
func (p *Persister) Rehydrate() (int, error) {
	path := CSVPath(p.cfg.DataDir, p.CurrentKey())

	samples, err := ReadCSV(path)
	if err != nil {
		if isNotExist(err) {
			log.Info("no existing day file, starting fresh", "path", path)
			return 0, nil
		}
		return 0, err
	}

	for i := range samples {
		p.cfg.Store.Append(samples[i])
	}

	log.Info("rehydrated day file", "path", path, "samples", len(samples))
	return len(samples), nil
}

// Run flushes on the configured cadence until ctx is cancelled, then
// performs one final flush. Flush failures are logged and retried by the
// next cycle; they never stop the loop.
func (p *Persister) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	log.Info("persister started",
		"interval", p.cfg.FlushInterval, "data_dir", p.cfg.DataDir)

	for {
		select {
		case <-ticker.C:
			if err := p.Flush(); err != nil {
				log.Error("flush failed", "error", err)
			}
		case <-ctx.Done():
			if err := p.Flush(); err != nil {
				log.Error("final flush failed", "error", err)
			}
			log.Info("persister stopped")
			return nil
		}
	}
}

// Flush writes the current day's slice of the store snapshot to the
// current day file, replacing prior content. The store lock is only held
// for the snapshot copy, never during file I/O.
func (p *Persister) Flush() error {
	p.mu.Lock()
	key := p.currentKey
	p.mu.Unlock()

	snapshot := p.cfg.Store.Snapshot()
	daySamples := filterDay(snapshot, key)

	if err := WriteCSV(CSVPath(p.cfg.DataDir, key), p.cfg.Channels, daySamples); err != nil {
		p.flushFails.Add(1)
		return err
	}

	p.mu.Lock()
	p.lastFlush = time.Now()
	p.mu.Unlock()
	p.flushCount.Add(1)

	log.Debug("flushed", "key", key, "samples", len(daySamples))
	return nil
}

// Rollover is called by the poller when the local calendar date advances.
// It seals the finished day (final CSV flush and Parquet archive), then
// retargets fresh samples at the new date's key. The finished day's file
// is left in place; the in-memory store is not touched here.
func (p *Persister) Rollover(now time.Time) {
	newKey := DayKey(now)

	p.mu.Lock()
	oldKey := p.currentKey
	if oldKey == newKey {
		p.mu.Unlock()
		return
	}
	p.currentKey = newKey
	p.mu.Unlock()

	snapshot := p.cfg.Store.Snapshot()
	oldSamples := filterDay(snapshot, oldKey)

	// Seal the finished day's CSV.
	if err := WriteCSV(CSVPath(p.cfg.DataDir, oldKey), p.cfg.Channels, oldSamples); err != nil {
		log.Error("sealing flush failed", "key", oldKey, "error", err)
	}

	if p.cfg.ArchiveEnabled {
		path := archive.Path(p.cfg.DataDir, oldKey)
		codec := archive.ParseCompressionType(p.cfg.ArchiveCompression)
		if err := archive.WriteDay(path, oldSamples, codec); err != nil {
			log.Error("parquet archive failed", "key", oldKey, "error", err)
		} else {
			log.Info("archived day", "key", oldKey, "samples", len(oldSamples))
		}
	}

	if p.cfg.RetentionDays > 0 {
		p.sweepRetention(now)
	}

	log.Info("rollover complete", "from", oldKey, "to", newKey)
}

// Stats returns persister statistics.
func (p *Persister) Stats() PersisterStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PersisterStats{
		CurrentKey: p.currentKey,
		LastFlush:  p.lastFlush,
		FlushCount: p.flushCount.Load(),
		FlushFails: p.flushFails.Load(),
	}
}

// PersisterStats holds persister statistics.
type PersisterStats struct {
	CurrentKey string
	LastFlush  time.Time
	FlushCount int64
	FlushFails int64
}

// filterDay returns the samples whose local calendar date matches key.
func filterDay(samples []series.Sample, key string) []series.Sample {
	out := make([]series.Sample, 0, len(samples))
	for i := range samples {
		if DayKey(samples[i].Timestamp) == key {
			out = append(out, samples[i])
		}
	}
	return out
}
