package series

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Store is a thread-safe, append-only collection of samples ordered by
// timestamp. Appending a sample whose timestamp equals an existing entry
// replaces that entry (last-write-wins), so the store never holds two
// samples with the same timestamp.
//
// All mutating and snapshot-reading operations are guarded by a single
// mutex; the lock is only ever held for the duration of a copy or an
// insert, never across I/O.
type Store struct {
	mu      sync.RWMutex
	samples []Sample

	// Statistics
	appendCount  atomic.Int64
	replaceCount atomic.Int64
	evictCount   atomic.Int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append inserts a sample, keeping the sequence ordered by timestamp.
// If a sample with the same timestamp already exists it is replaced.
func (st *Store) Append(sample Sample) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.appendCount.Add(1)

	n := len(st.samples)
	// Common case: strictly newer than everything stored.
	if n == 0 || sample.Timestamp.After(st.samples[n-1].Timestamp) {
		st.samples = append(st.samples, sample)
		return
	}

	// First index whose timestamp is >= sample.Timestamp.
	i := sort.Search(n, func(i int) bool {
		return !st.samples[i].Timestamp.Before(sample.Timestamp)
	})

	if i < n && st.samples[i].Timestamp.Equal(sample.Timestamp) {
		st.samples[i] = sample
		st.replaceCount.Add(1)
		return
	}

	st.samples = append(st.samples, Sample{})
	copy(st.samples[i+1:], st.samples[i:])
	st.samples[i] = sample
}

// Snapshot returns an independently-iterable copy of the current sequence,
// safe for the caller to read without further synchronization. This is the
// only way external readers observe store content.
func (st *Store) Snapshot() []Sample {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]Sample, len(st.samples))
	for i := range st.samples {
		out[i] = st.samples[i].Clone()
	}
	return out
}

// Windowed returns a snapshot filtered to samples with
// timestamp >= now - window.
func (st *Store) Windowed(now time.Time, window time.Duration) []Sample {
	cutoff := now.Add(-window)

	st.mu.RLock()
	defer st.mu.RUnlock()

	// Samples are ordered, so find the first one inside the window.
	i := sort.Search(len(st.samples), func(i int) bool {
		return !st.samples[i].Timestamp.Before(cutoff)
	})

	out := make([]Sample, 0, len(st.samples)-i)
	for ; i < len(st.samples); i++ {
		out = append(out, st.samples[i].Clone())
	}
	return out
}

// EvictBefore removes samples older than cutoff and returns how many were
// removed. Called after day rollover to bound in-memory growth.
func (st *Store) EvictBefore(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	i := sort.Search(len(st.samples), func(i int) bool {
		return !st.samples[i].Timestamp.Before(cutoff)
	})
	if i == 0 {
		return 0
	}

	st.samples = append(st.samples[:0:0], st.samples[i:]...)
	st.evictCount.Add(int64(i))
	return i
}

// Len returns the current number of samples.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.samples)
}

// TimeRange returns the timestamps of the oldest and newest samples.
// ok is false if the store is empty.
func (st *Store) TimeRange() (oldest, newest time.Time, ok bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if len(st.samples) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return st.samples[0].Timestamp, st.samples[len(st.samples)-1].Timestamp, true
}

// Stats returns store statistics.
func (st *Store) Stats() StoreStats {
	st.mu.RLock()
	count := len(st.samples)
	st.mu.RUnlock()

	return StoreStats{
		Count:        count,
		AppendCount:  st.appendCount.Load(),
		ReplaceCount: st.replaceCount.Load(),
		EvictCount:   st.evictCount.Load(),
	}
}

// StoreStats holds store statistics.
type StoreStats struct {
	Count        int
	AppendCount  int64
	ReplaceCount int64
	EvictCount   int64
}
