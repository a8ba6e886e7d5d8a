// Package persist flushes the series store to dated CSV day files on a
// fixed cadence, rotates the destination at local-midnight boundaries,
// archives completed days to Parquet, and rehydrates same-day history at
// startup.
package persist

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xtxerr/aimon/internal/errors"
	"github.com/xtxerr/aimon/internal/series"
)

// dayKeyLayout is the date bucket embedded in day file names.
const dayKeyLayout = "20060102"

// timestampLayout is the CSV timestamp format: local time with
// microsecond resolution.
const timestampLayout = "2006-01-02 15:04:05.000000"

// DayKey returns the date bucket for a local instant.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// CSVPath returns the CSV day file path for a date key.
func CSVPath(dataDir, key string) string {
	return filepath.Join(dataDir, fmt.Sprintf("data_log_%s.csv", key))
}

// WriteCSV writes the samples as a complete CSV table to path, replacing
// any prior content. The table has a leading Timestamp column and one
// "Channel <id>" column per configured channel; a channel absent from a
// sample produces an empty cell.
//
// The table is written to a temp file and renamed over the target, so a
// crash mid-flush leaves the previous day file intact for rehydration.
func WriteCSV(path string, channels []int, samples []series.Sample) error {
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(errors.ErrPersist, err.Error())
	}
	fail := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(errors.ErrPersist, err.Error())
	}

	w := csv.NewWriter(f)

	header := make([]string, 0, len(channels)+1)
	header = append(header, "Timestamp")
	for _, ch := range channels {
		header = append(header, fmt.Sprintf("Channel %d", ch))
	}
	if err := w.Write(header); err != nil {
		return fail(err)
	}

	row := make([]string, len(channels)+1)
	for i := range samples {
		row[0] = samples[i].Timestamp.Format(timestampLayout)
		for j, ch := range channels {
			if v, ok := samples[i].Values[ch]; ok {
				row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				row[j+1] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return fail(err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrPersist, err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.ErrPersist, err.Error())
	}
	return nil
}

// ReadCSV loads a day file written by WriteCSV. Unknown columns are
// ignored; empty cells leave the channel absent from the sample.
func ReadCSV(path string) ([]series.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Map column index to channel id from the header.
	header := records[0]
	channelCols := make(map[int]int) // column -> channel
	for col, name := range header {
		var ch int
		if _, err := fmt.Sscanf(name, "Channel %d", &ch); err == nil {
			channelCols[col] = ch
		}
	}

	samples := make([]series.Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, rec[0], time.Local)
		if err != nil {
			return nil, errors.Wrapf(err, "parse timestamp %q", rec[0])
		}

		values := make(map[int]float64)
		for col, ch := range channelCols {
			if col >= len(rec) || rec[col] == "" {
				continue
			}
			v, err := strconv.ParseFloat(rec[col], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "parse value %q", rec[col])
			}
			values[ch] = v
		}

		samples = append(samples, series.Sample{Timestamp: ts, Values: values})
	}
	return samples, nil
}
