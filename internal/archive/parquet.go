// Package archive persists completed days as compressed Parquet files and
// serves range queries across them via DuckDB. The CSV day file is the
// operator-facing table; the Parquet tier exists for analytical retention
// and cross-day history queries.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/aimon/internal/series"
)

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// Row is one sample-channel pair in Parquet form. A multi-channel sample
// fans out to one row per present channel.
type Row struct {
	TimestampUs int64   `parquet:"timestamp_us"`
	Channel     int32   `parquet:"channel"`
	Value       float64 `parquet:"value"`
	PollMs      int32   `parquet:"poll_ms"`
}

// Path returns the Parquet day file path for a date key.
func Path(dataDir, key string) string {
	return filepath.Join(dataDir, fmt.Sprintf("data_log_%s.parquet", key))
}

// WriteDay writes the samples of one day to path, replacing any prior
// content. Rows are emitted in timestamp order, channels ascending within
// a sample.
func WriteDay(path string, samples []series.Sample, compression CompressionType) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	writer := parquet.NewGenericWriter[Row](f,
		parquet.Compression(getCompression(compression)))

	rows := make([]Row, 0, len(samples))
	for i := range samples {
		chs := samples[i].Channels()
		for _, ch := range chs {
			rows = append(rows, Row{
				TimestampUs: samples[i].Timestamp.UnixMicro(),
				Channel:     int32(ch),
				Value:       samples[i].Values[ch],
				PollMs:      samples[i].PollMs,
			})
		}
	}

	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			f.Close()
			return fmt.Errorf("write rows: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return f.Close()
}

// ReadDay loads a Parquet day file back into samples, regrouping the
// per-channel rows by timestamp.
func ReadDay(path string) ([]series.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Row](f)
	defer reader.Close()

	numRows := reader.NumRows()
	if numRows == 0 {
		return nil, nil
	}

	rows := make([]Row, numRows)
	n, err := reader.Read(rows)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	rows = rows[:n]

	byTs := make(map[int64]*series.Sample)
	for _, row := range rows {
		s, ok := byTs[row.TimestampUs]
		if !ok {
			s = &series.Sample{
				Timestamp: time.UnixMicro(row.TimestampUs),
				Values:    make(map[int]float64),
				PollMs:    row.PollMs,
			}
			byTs[row.TimestampUs] = s
		}
		s.Values[int(row.Channel)] = row.Value
	}

	keys := make([]int64, 0, len(byTs))
	for k := range byTs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	samples := make([]series.Sample, 0, len(keys))
	for _, k := range keys {
		samples = append(samples, *byTs[k])
	}
	return samples, nil
}
