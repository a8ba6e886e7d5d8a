package series

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

func sampleAt(t time.Time, ch int, v float64) Sample {
	return Sample{Timestamp: t, Values: map[int]float64{ch: v}}
}

func TestStore_AppendOrdering(t *testing.T) {
	st := NewStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Append out of order.
	st.Append(sampleAt(base.Add(2*time.Second), 0, 2.0))
	st.Append(sampleAt(base, 0, 0.0))
	st.Append(sampleAt(base.Add(1*time.Second), 0, 1.0))

	snap := st.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if !snap[i-1].Timestamp.Before(snap[i].Timestamp) {
			t.Errorf("snapshot not strictly ascending at %d", i)
		}
	}
	if snap[1].Values[0] != 1.0 {
		t.Errorf("expected middle value 1.0, got %v", snap[1].Values[0])
	}
}

func TestStore_DedupLastWriteWins(t *testing.T) {
	st := NewStore()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st.Append(sampleAt(ts, 0, 1.0))
	st.Append(sampleAt(ts.Add(time.Second), 0, 9.0))
	st.Append(sampleAt(ts, 0, 2.0)) // same timestamp, replaces first

	snap := st.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 samples after dedup, got %d", len(snap))
	}
	if snap[0].Values[0] != 2.0 {
		t.Errorf("expected last write 2.0, got %v", snap[0].Values[0])
	}

	stats := st.Stats()
	if stats.ReplaceCount != 1 {
		t.Errorf("expected 1 replace, got %d", stats.ReplaceCount)
	}
}

func TestStore_ConcurrentAppendInvariants(t *testing.T) {
	st := NewStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				ts := base.Add(time.Duration(rng.Intn(1000)) * time.Millisecond)
				st.Append(sampleAt(ts, 0, rng.Float64()))
			}
		}(int64(g))
	}
	// Concurrent snapshot readers must never observe disorder.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			snap := st.Snapshot()
			for j := 1; j < len(snap); j++ {
				if snap[j-1].Timestamp.After(snap[j].Timestamp) {
					t.Error("snapshot out of order during concurrent appends")
					return
				}
			}
		}
	}()
	wg.Wait()
	<-done

	snap := st.Snapshot()
	for i := 1; i < len(snap); i++ {
		if !snap[i-1].Timestamp.Before(snap[i].Timestamp) {
			t.Fatal("final snapshot has duplicate or disordered timestamps")
		}
	}
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	st := NewStore()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.Append(sampleAt(ts, 0, 1.0))

	snap := st.Snapshot()
	snap[0].Values[0] = 99.0

	if v := st.Snapshot()[0].Values[0]; v != 1.0 {
		t.Errorf("mutating a snapshot leaked into the store: %v", v)
	}
}

func TestStore_Windowed(t *testing.T) {
	st := NewStore()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	st.Append(sampleAt(now.Add(-30*time.Hour), 0, 1.0))
	st.Append(sampleAt(now.Add(-1*time.Hour), 0, 2.0))

	got := st.Windowed(now, 24*time.Hour)
	if len(got) != 1 {
		t.Fatalf("expected 1 sample inside the window, got %d", len(got))
	}
	if got[0].Values[0] != 2.0 {
		t.Errorf("expected the 1h-old sample, got %v", got[0].Values[0])
	}
}

func TestStore_EvictBefore(t *testing.T) {
	st := NewStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		st.Append(sampleAt(base.Add(time.Duration(i)*time.Minute), 0, float64(i)))
	}

	evicted := st.EvictBefore(base.Add(5 * time.Minute))
	if evicted != 5 {
		t.Fatalf("expected 5 evicted, got %d", evicted)
	}
	if st.Len() != 5 {
		t.Fatalf("expected 5 remaining, got %d", st.Len())
	}
	oldest, _, ok := st.TimeRange()
	if !ok || !oldest.Equal(base.Add(5*time.Minute)) {
		t.Errorf("unexpected oldest after evict: %v", oldest)
	}

	if n := st.EvictBefore(base); n != 0 {
		t.Errorf("evicting before oldest should remove nothing, got %d", n)
	}
}
