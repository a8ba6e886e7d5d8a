package series

import (
	"math"
	"sort"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// ChannelAggregate maintains running statistics for one channel within one
// time bucket. Percentiles are tracked with a DDSketch when enabled.
type ChannelAggregate struct {
	count int64
	sum   float64
	min   float64
	max   float64

	// DDSketch for percentiles (nil if disabled)
	sketch *ddsketch.DDSketch
}

// NewChannelAggregate creates an empty aggregate. When enablePercentile is
// true, a DDSketch with 1% relative accuracy tracks the value distribution.
func NewChannelAggregate(enablePercentile bool) *ChannelAggregate {
	agg := &ChannelAggregate{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	if enablePercentile {
		sketch, err := ddsketch.NewDefaultDDSketch(0.01)
		if err == nil {
			agg.sketch = sketch
		}
	}
	return agg
}

// Add adds a value to the aggregate.
func (a *ChannelAggregate) Add(value float64) {
	a.count++
	a.sum += value
	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}
	if a.sketch != nil {
		a.sketch.Add(value)
	}
}

// Count returns the number of values added.
func (a *ChannelAggregate) Count() int64 { return a.count }

// Result returns the aggregation result.
func (a *ChannelAggregate) Result() ChannelStats {
	stats := ChannelStats{
		Count: a.count,
		Sum:   a.sum,
	}
	if a.count > 0 {
		stats.Mean = a.sum / float64(a.count)
		stats.Min = a.min
		stats.Max = a.max
	}
	if a.sketch != nil && a.count > 0 {
		p50, err50 := a.sketch.GetValueAtQuantile(0.50)
		p95, err95 := a.sketch.GetValueAtQuantile(0.95)
		if err50 == nil && err95 == nil {
			stats.P50 = &p50
			stats.P95 = &p95
		}
	}
	return stats
}

// ChannelStats is the materialized result of a ChannelAggregate.
type ChannelStats struct {
	Count int64
	Sum   float64
	Mean  float64
	Min   float64
	Max   float64

	// Percentiles, present only when sketching was enabled.
	P50 *float64
	P95 *float64
}

// StatsBucket is one output row of ResampleStats: full per-channel
// statistics for one time bucket.
type StatsBucket struct {
	Start    time.Time
	Channels map[int]ChannelStats
}

// ResampleStats is the statistics counterpart of ResampleMean: same
// bucketing and same absent-value semantics, but each bucket carries
// count/min/max/mean and, when enablePercentile is set, p50/p95 per
// channel.
func ResampleStats(samples []Sample, bucketSize time.Duration, enablePercentile bool) []StatsBucket {
	if bucketSize <= 0 || len(samples) == 0 {
		return nil
	}

	aggs := make(map[int64]map[int]*ChannelAggregate)
	for i := range samples {
		key := samples[i].Timestamp.Truncate(bucketSize).UnixNano()
		byChannel, ok := aggs[key]
		if !ok {
			byChannel = make(map[int]*ChannelAggregate)
			aggs[key] = byChannel
		}
		for ch, v := range samples[i].Values {
			agg, ok := byChannel[ch]
			if !ok {
				agg = NewChannelAggregate(enablePercentile)
				byChannel[ch] = agg
			}
			agg.Add(v)
		}
	}

	keys := make([]int64, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buckets := make([]StatsBucket, 0, len(keys))
	for _, k := range keys {
		channels := make(map[int]ChannelStats, len(aggs[k]))
		for ch, agg := range aggs[k] {
			channels[ch] = agg.Result()
		}
		buckets = append(buckets, StatsBucket{
			Start:    time.Unix(0, k),
			Channels: channels,
		})
	}
	return buckets
}
