package series

import (
	"sort"
	"time"
)

// Bucket is one output row of a resample: the bucket start instant and the
// arithmetic mean of each channel's values within the bucket. Channels with
// no values in the bucket are absent from Means.
type Bucket struct {
	Start time.Time
	Means map[int]float64
}

// ResampleMean groups samples into fixed-size time buckets aligned to a
// fixed epoch and computes the per-channel arithmetic mean within each
// bucket. Absent channel values are ignored rather than treated as zero.
// Empty buckets produce no row; nothing is interpolated or forward-filled.
// Rows are ordered ascending by bucket start.
func ResampleMean(samples []Sample, bucketSize time.Duration) []Bucket {
	if bucketSize <= 0 || len(samples) == 0 {
		return nil
	}

	type acc struct {
		sum   map[int]float64
		count map[int]int
	}

	accs := make(map[int64]*acc)
	for i := range samples {
		start := samples[i].Timestamp.Truncate(bucketSize)
		key := start.UnixNano()
		a, ok := accs[key]
		if !ok {
			a = &acc{sum: make(map[int]float64), count: make(map[int]int)}
			accs[key] = a
		}
		for ch, v := range samples[i].Values {
			a.sum[ch] += v
			a.count[ch]++
		}
	}

	keys := make([]int64, 0, len(accs))
	for k := range accs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		a := accs[k]
		means := make(map[int]float64, len(a.sum))
		for ch, sum := range a.sum {
			means[ch] = sum / float64(a.count[ch])
		}
		buckets = append(buckets, Bucket{
			Start: time.Unix(0, k),
			Means: means,
		})
	}
	return buckets
}
