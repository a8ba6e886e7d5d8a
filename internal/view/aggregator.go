// Package view assembles the render feed: the last view window of the
// series store, resampled into fixed buckets, one ordered series per
// configured channel, plus the poller's counters for display.
package view

import (
	"time"

	"github.com/xtxerr/aimon/internal/series"
)

// CounterSource exposes the poller counters shown alongside the series.
type CounterSource interface {
	Counters() (failedAttempts, totalRetries int64)
}

// Config holds aggregator configuration.
type Config struct {
	// Store is the series store read on each render.
	Store *series.Store

	// Counters supplies failedAttempts/totalRetries. May be nil.
	Counters CounterSource

	// Channels fixes which series appear in the feed, and their order.
	Channels []int

	// Window is the view span (how far back from now).
	Window time.Duration

	// Bucket is the resample bucket size.
	Bucket time.Duration

	// Percentiles enables p50/p95 in the stats feed.
	Percentiles bool
}

// Aggregator produces downsampled, time-windowed views of the store.
type Aggregator struct {
	cfg Config
}

// New creates an aggregator.
func New(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Point is one (bucket timestamp, mean value) pair.
type Point struct {
	Timestamp time.Time `json:"ts"`
	Value     float64   `json:"value"`
}

// ChannelSeries is the ordered series for one channel.
type ChannelSeries struct {
	Channel int     `json:"channel"`
	Points  []Point `json:"points"`
}

// Render is the complete render feed payload.
type Render struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	Window         string          `json:"window"`
	Bucket         string          `json:"bucket"`
	Series         []ChannelSeries `json:"series"`
	FailedAttempts int64           `json:"failed_attempts"`
	TotalRetries   int64           `json:"total_retries"`
}

// Render produces the feed for the window ending at now. An empty store
// yields an empty series per channel, never an error.
func (a *Aggregator) Render(now time.Time) Render {
	windowed := a.cfg.Store.Windowed(now, a.cfg.Window)
	buckets := series.ResampleMean(windowed, a.cfg.Bucket)

	out := Render{
		GeneratedAt: now,
		Window:      a.cfg.Window.String(),
		Bucket:      a.cfg.Bucket.String(),
		Series:      make([]ChannelSeries, 0, len(a.cfg.Channels)),
	}

	for _, ch := range a.cfg.Channels {
		points := make([]Point, 0, len(buckets))
		for _, b := range buckets {
			if v, ok := b.Means[ch]; ok {
				points = append(points, Point{Timestamp: b.Start, Value: v})
			}
		}
		out.Series = append(out.Series, ChannelSeries{Channel: ch, Points: points})
	}

	if a.cfg.Counters != nil {
		out.FailedAttempts, out.TotalRetries = a.cfg.Counters.Counters()
	}
	return out
}

// ChannelBucketStats is the stats feed row for one channel in one bucket.
type ChannelBucketStats struct {
	Timestamp time.Time `json:"ts"`
	Count     int64     `json:"count"`
	Mean      float64   `json:"mean"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	P50       *float64  `json:"p50,omitempty"`
	P95       *float64  `json:"p95,omitempty"`
}

// ChannelStatsSeries is the ordered stats series for one channel.
type ChannelStatsSeries struct {
	Channel int                  `json:"channel"`
	Buckets []ChannelBucketStats `json:"buckets"`
}

// StatsRender is the statistics feed payload.
type StatsRender struct {
	GeneratedAt    time.Time            `json:"generated_at"`
	Series         []ChannelStatsSeries `json:"series"`
	StoreSamples   int                  `json:"store_samples"`
	FailedAttempts int64                `json:"failed_attempts"`
	TotalRetries   int64                `json:"total_retries"`
}

// RenderStats produces the statistics feed: same windowing and bucketing
// as Render, but with count/min/max/mean (and percentiles when enabled)
// per channel bucket.
func (a *Aggregator) RenderStats(now time.Time) StatsRender {
	windowed := a.cfg.Store.Windowed(now, a.cfg.Window)
	buckets := series.ResampleStats(windowed, a.cfg.Bucket, a.cfg.Percentiles)

	out := StatsRender{
		GeneratedAt:  now,
		Series:       make([]ChannelStatsSeries, 0, len(a.cfg.Channels)),
		StoreSamples: a.cfg.Store.Len(),
	}

	for _, ch := range a.cfg.Channels {
		rows := make([]ChannelBucketStats, 0, len(buckets))
		for _, b := range buckets {
			stats, ok := b.Channels[ch]
			if !ok {
				continue
			}
			rows = append(rows, ChannelBucketStats{
				Timestamp: b.Start,
				Count:     stats.Count,
				Mean:      stats.Mean,
				Min:       stats.Min,
				Max:       stats.Max,
				P50:       stats.P50,
				P95:       stats.P95,
			})
		}
		out.Series = append(out.Series, ChannelStatsSeries{Channel: ch, Buckets: rows})
	}

	if a.cfg.Counters != nil {
		out.FailedAttempts, out.TotalRetries = a.cfg.Counters.Counters()
	}
	return out
}
