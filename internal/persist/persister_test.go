package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xtxerr/aimon/internal/archive"
	"github.com/xtxerr/aimon/internal/series"
)

func newTestPersister(t *testing.T, st *series.Store) *Persister {
	t.Helper()
	p, err := New(Config{
		Store:          st,
		DataDir:        t.TempDir(),
		Channels:       testChannels,
		FlushInterval:  time.Minute,
		RetentionDays:  0,
		ArchiveEnabled: false,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestPersister_FlushAndRehydrate(t *testing.T) {
	st := series.NewStore()
	p := newTestPersister(t, st)

	now := time.Now()
	for i := 0; i < 5; i++ {
		st.Append(series.Sample{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Values:    map[int]float64{0: float64(i), 1: float64(i) * 2},
		})
	}

	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Simulate a restart: fresh store, same data dir.
	st2 := series.NewStore()
	p2, err := New(Config{
		Store:         st2,
		DataDir:       p.cfg.DataDir,
		Channels:      testChannels,
		FlushInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n, err := p2.Rehydrate()
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 rehydrated samples, got %d", n)
	}

	orig := st.Snapshot()
	got := st2.Snapshot()
	if len(got) != len(orig) {
		t.Fatalf("expected %d samples, got %d", len(orig), len(got))
	}
	for i := range orig {
		// CSV stores microsecond resolution.
		if got[i].Timestamp.UnixMicro() != orig[i].Timestamp.UnixMicro() {
			t.Errorf("sample %d timestamp mismatch", i)
		}
		for ch, v := range orig[i].Values {
			if got[i].Values[ch] != v {
				t.Errorf("sample %d channel %d: expected %v, got %v", i, ch, v, got[i].Values[ch])
			}
		}
	}
}

func TestPersister_RehydrateFreshStart(t *testing.T) {
	p := newTestPersister(t, series.NewStore())
	n, err := p.Rehydrate()
	if err != nil {
		t.Fatalf("a missing day file must not be an error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 samples, got %d", n)
	}
}

func TestPersister_FlushWritesOnlyCurrentDay(t *testing.T) {
	st := series.NewStore()
	p := newTestPersister(t, st)

	now := time.Now()
	st.Append(series.Sample{
		Timestamp: now.AddDate(0, 0, -1),
		Values:    map[int]float64{0: 1.0},
	})
	st.Append(series.Sample{
		Timestamp: now,
		Values:    map[int]float64{0: 2.0},
	})

	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := ReadCSV(CSVPath(p.cfg.DataDir, p.CurrentKey()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("yesterday's sample leaked into today's file: %d rows", len(got))
	}
	if got[0].Values[0] != 2.0 {
		t.Errorf("unexpected value: %v", got[0].Values[0])
	}
}

func TestPersister_Rollover(t *testing.T) {
	st := series.NewStore()
	dir := t.TempDir()
	p, err := New(Config{
		Store:              st,
		DataDir:            dir,
		Channels:           []int{0},
		FlushInterval:      time.Minute,
		ArchiveEnabled:     true,
		ArchiveCompression: "zstd",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	day1 := time.Date(2026, 3, 1, 23, 0, 0, 0, time.Local)
	day2 := time.Date(2026, 3, 2, 0, 0, 10, 0, time.Local)

	p.mu.Lock()
	p.currentKey = DayKey(day1)
	p.mu.Unlock()

	st.Append(series.Sample{Timestamp: day1, Values: map[int]float64{0: 1.0}})
	st.Append(series.Sample{Timestamp: day2, Values: map[int]float64{0: 2.0}})

	p.Rollover(day2)

	if got := p.CurrentKey(); got != DayKey(day2) {
		t.Fatalf("expected key %s, got %s", DayKey(day2), got)
	}

	// The finished day is sealed with its own samples only.
	sealed, err := ReadCSV(CSVPath(dir, DayKey(day1)))
	if err != nil {
		t.Fatalf("sealed CSV: %v", err)
	}
	if len(sealed) != 1 || sealed[0].Values[0] != 1.0 {
		t.Fatalf("unexpected sealed content: %+v", sealed)
	}

	// And archived to Parquet.
	archived, err := archive.ReadDay(archive.Path(dir, DayKey(day1)))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(archived) != 1 || archived[0].Values[0] != 1.0 {
		t.Fatalf("unexpected archive content: %+v", archived)
	}

	// A flush after rollover targets the new key with the new day only.
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	fresh, err := ReadCSV(CSVPath(dir, DayKey(day2)))
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 1 || fresh[0].Values[0] != 2.0 {
		t.Fatalf("unexpected fresh content: %+v", fresh)
	}

	// Repeated rollover for the same date is a no-op.
	p.Rollover(day2.Add(time.Minute))
	if got := p.CurrentKey(); got != DayKey(day2) {
		t.Errorf("key changed on same-day rollover: %s", got)
	}
}

func TestRetentionSweep(t *testing.T) {
	st := series.NewStore()
	dir := t.TempDir()
	p, err := New(Config{
		Store:         st,
		DataDir:       dir,
		Channels:      []int{0},
		FlushInterval: time.Minute,
		RetentionDays: 7,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	now := time.Date(2026, 3, 10, 0, 0, 1, 0, time.Local)
	old := now.AddDate(0, 0, -10)
	recent := now.AddDate(0, 0, -2)

	mustTouch(t, CSVPath(dir, DayKey(old)))
	mustTouch(t, filepath.Join(dir, "data_log_"+DayKey(old)+".parquet"))
	mustTouch(t, CSVPath(dir, DayKey(recent)))
	mustTouch(t, filepath.Join(dir, "unrelated.txt"))

	p.sweepRetention(now)

	if _, err := os.Stat(CSVPath(dir, DayKey(old))); !os.IsNotExist(err) {
		t.Error("old CSV should have been deleted")
	}
	if _, err := os.Stat(filepath.Join(dir, "data_log_"+DayKey(old)+".parquet")); !os.IsNotExist(err) {
		t.Error("old parquet should have been deleted")
	}
	if _, err := os.Stat(CSVPath(dir, DayKey(recent))); err != nil {
		t.Error("recent CSV should survive the sweep")
	}
	if _, err := os.Stat(filepath.Join(dir, "unrelated.txt")); err != nil {
		t.Error("unrelated files must never be touched")
	}
}

func TestDayFileKey(t *testing.T) {
	cases := []struct {
		name string
		key  string
		ok   bool
	}{
		{"data_log_20260301.csv", "20260301", true},
		{"data_log_20260301.parquet", "20260301", true},
		{"data_log_20260301.txt", "", false},
		{"data_log_2026.csv", "", false},
		{"data_log_abcdefgh.csv", "", false},
		{"other_20260301.csv", "", false},
	}
	for _, tc := range cases {
		key, ok := dayFileKey(tc.name)
		if ok != tc.ok || key != tc.key {
			t.Errorf("%s: expected (%q,%v), got (%q,%v)", tc.name, tc.key, tc.ok, key, ok)
		}
	}
}

func mustTouch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}
