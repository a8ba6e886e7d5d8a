package view

import (
	"testing"
	"time"

	"github.com/xtxerr/aimon/internal/series"
)

type fakeCounters struct {
	failed, retries int64
}

func (f fakeCounters) Counters() (int64, int64) { return f.failed, f.retries }

func TestRender_EmptyStore(t *testing.T) {
	a := New(Config{
		Store:    series.NewStore(),
		Channels: []int{0, 1},
		Window:   time.Hour,
		Bucket:   time.Minute,
	})

	r := a.Render(time.Now())
	if len(r.Series) != 2 {
		t.Fatalf("expected a series per configured channel, got %d", len(r.Series))
	}
	for _, s := range r.Series {
		if len(s.Points) != 0 {
			t.Errorf("channel %d: expected empty series, got %d points", s.Channel, len(s.Points))
		}
	}
	if r.FailedAttempts != 0 || r.TotalRetries != 0 {
		t.Errorf("counters must stay zero without a source")
	}
}

func TestRender_BucketsAndWindow(t *testing.T) {
	st := series.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Outside the window, must not appear.
	st.Append(series.Sample{
		Timestamp: now.Add(-2 * time.Hour),
		Values:    map[int]float64{0: 99.0},
	})
	// Two samples in one bucket, one in the next.
	st.Append(series.Sample{
		Timestamp: now.Add(-10 * time.Minute),
		Values:    map[int]float64{0: 1.0, 1: 10.0},
	})
	st.Append(series.Sample{
		Timestamp: now.Add(-10*time.Minute + 20*time.Second),
		Values:    map[int]float64{0: 3.0},
	})
	st.Append(series.Sample{
		Timestamp: now.Add(-9 * time.Minute),
		Values:    map[int]float64{0: 5.0},
	})

	a := New(Config{
		Store:    st,
		Counters: fakeCounters{failed: 4, retries: 7},
		Channels: []int{0, 1},
		Window:   time.Hour,
		Bucket:   time.Minute,
	})

	r := a.Render(now)
	if r.FailedAttempts != 4 || r.TotalRetries != 7 {
		t.Errorf("counters: expected (4,7), got (%d,%d)", r.FailedAttempts, r.TotalRetries)
	}

	ch0 := r.Series[0]
	if ch0.Channel != 0 {
		t.Fatalf("series order must follow configured channels")
	}
	if len(ch0.Points) != 2 {
		t.Fatalf("channel 0: expected 2 buckets, got %d", len(ch0.Points))
	}
	if ch0.Points[0].Value != 2.0 {
		t.Errorf("first bucket mean: expected 2.0, got %v", ch0.Points[0].Value)
	}
	if ch0.Points[1].Value != 5.0 {
		t.Errorf("second bucket mean: expected 5.0, got %v", ch0.Points[1].Value)
	}
	if want := now.Add(-10 * time.Minute).Truncate(time.Minute); !ch0.Points[0].Timestamp.Equal(want) {
		t.Errorf("first bucket start: expected %v, got %v", want, ch0.Points[0].Timestamp)
	}

	// Channel 1 only appeared in the first bucket.
	ch1 := r.Series[1]
	if len(ch1.Points) != 1 || ch1.Points[0].Value != 10.0 {
		t.Errorf("channel 1: expected one point of 10.0, got %+v", ch1.Points)
	}
}

func TestRenderStats(t *testing.T) {
	st := series.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		st.Append(series.Sample{
			Timestamp: now.Add(time.Duration(-50+i) * time.Second),
			Values:    map[int]float64{0: float64(i + 1)},
		})
	}

	a := New(Config{
		Store:    st,
		Channels: []int{0},
		Window:   time.Hour,
		Bucket:   time.Minute,
	})

	r := a.RenderStats(now)
	if r.StoreSamples != 4 {
		t.Errorf("expected store size 4, got %d", r.StoreSamples)
	}
	if len(r.Series) != 1 || len(r.Series[0].Buckets) != 1 {
		t.Fatalf("expected one channel with one bucket, got %+v", r.Series)
	}
	b := r.Series[0].Buckets[0]
	if b.Count != 4 || b.Min != 1.0 || b.Max != 4.0 || b.Mean != 2.5 {
		t.Errorf("unexpected bucket stats: %+v", b)
	}
	if b.P50 != nil || b.P95 != nil {
		t.Errorf("percentiles must be absent when disabled")
	}
}

func TestRenderStats_Percentiles(t *testing.T) {
	st := series.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		st.Append(series.Sample{
			Timestamp: now.Add(time.Duration(-55+i) * time.Second),
			Values:    map[int]float64{0: float64(i + 1)},
		})
	}

	a := New(Config{
		Store:       st,
		Channels:    []int{0},
		Window:      time.Hour,
		Bucket:      time.Minute,
		Percentiles: true,
	})

	r := a.RenderStats(now)
	b := r.Series[0].Buckets[0]
	if b.P50 == nil || b.P95 == nil {
		t.Fatal("expected percentiles when enabled")
	}
	if *b.P50 < 20 || *b.P50 > 30 {
		t.Errorf("p50 out of range: %v", *b.P50)
	}
	if *b.P95 < 42 || *b.P95 > 50 {
		t.Errorf("p95 out of range: %v", *b.P95)
	}
}
