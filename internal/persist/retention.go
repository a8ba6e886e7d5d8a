package persist

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xtxerr/aimon/internal/errors"
)

// dayFilePrefixes lists the day file families subject to retention.
var dayFilePrefixes = []string{"data_log_"}

// sweepRetention deletes day files whose date bucket is older than the
// configured retention, measured in whole calendar days from now. Runs at
// rollover, so at most once per day.
func (p *Persister) sweepRetention(now time.Time) {
	cutoff := now.AddDate(0, 0, -p.cfg.RetentionDays).Format(dayKeyLayout)

	entries, err := os.ReadDir(p.cfg.DataDir)
	if err != nil {
		log.Error("retention sweep failed", "error", err)
		return
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := dayFileKey(entry.Name())
		if !ok || key >= cutoff {
			continue
		}
		path := filepath.Join(p.cfg.DataDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Error("retention delete failed", "path", path, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Info("retention sweep",
			"deleted", deleted, "retention_days", p.cfg.RetentionDays)
	}
}

// dayFileKey extracts the date bucket from a day file name, for either
// the CSV or Parquet family. ok is false for unrelated files.
func dayFileKey(name string) (string, bool) {
	for _, prefix := range dayFilePrefixes {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		ext := filepath.Ext(rest)
		if ext != ".csv" && ext != ".parquet" {
			continue
		}
		key := strings.TrimSuffix(rest, ext)
		if len(key) != len(dayKeyLayout) {
			continue
		}
		if _, err := time.Parse(dayKeyLayout, key); err != nil {
			continue
		}
		return key, true
	}
	return "", false
}

// isNotExist reports whether err means the file was simply absent.
func isNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, fs.ErrNotExist)
}
