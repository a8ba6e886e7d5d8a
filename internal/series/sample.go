// Package series provides the in-memory time series store for analog
// channel readings: an append-only ordered collection with dedup-on-write,
// snapshot reads, time windowing, and bucketed resampling.
package series

import (
	"sort"
	"time"
)

// Sample represents a single timestamped reading from the device: one
// scalar value per channel that was present in the payload. A channel the
// device omitted is simply absent from Values, never a sentinel value.
type Sample struct {
	// Timestamp is the wall-clock instant the reading was taken.
	Timestamp time.Time

	// Values maps channel index to the scaled reading.
	Values map[int]float64

	// PollMs is the time taken for the poll in milliseconds.
	PollMs int32
}

// Value returns the reading for a channel and whether it was present.
func (s *Sample) Value(channel int) (float64, bool) {
	v, ok := s.Values[channel]
	return v, ok
}

// Channels returns the channel indices present in this sample, ascending.
func (s *Sample) Channels() []int {
	chs := make([]int, 0, len(s.Values))
	for ch := range s.Values {
		chs = append(chs, ch)
	}
	sort.Ints(chs)
	return chs
}

// Clone returns a deep copy of the sample. The values map is copied so the
// clone can be handed out without further synchronization.
func (s *Sample) Clone() Sample {
	values := make(map[int]float64, len(s.Values))
	for ch, v := range s.Values {
		values[ch] = v
	}
	return Sample{
		Timestamp: s.Timestamp,
		Values:    values,
		PollMs:    s.PollMs,
	}
}
