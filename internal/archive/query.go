package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/aimon/internal/logging"
)

var queryLog = logging.Component("archive-query")

// QueryService answers range queries across the Parquet day files using
// DuckDB's read_parquet. It serves history beyond the in-memory window;
// the live view never goes through it.
type QueryService struct {
	mu      sync.RWMutex
	db      *sql.DB
	dataDir string

	// Statistics
	queriesExecuted atomic.Int64
	rowsReturned    atomic.Int64
	queryErrors     atomic.Int64
}

// Point is one archived reading for one channel.
type Point struct {
	Timestamp time.Time
	Channel   int
	Value     float64
}

// RangeQuery defines parameters for an archive range query.
type RangeQuery struct {
	// Channel filters to one channel; negative means all channels.
	Channel int

	// From is inclusive, To exclusive.
	From time.Time
	To   time.Time

	// Limit caps the result; 0 means no limit.
	Limit int
}

// NewQueryService opens an in-memory DuckDB database over the archive
// directory.
func NewQueryService(dataDir string) (*QueryService, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	return &QueryService{
		db:      db,
		dataDir: dataDir,
	}, nil
}

// Close closes the query service.
func (s *QueryService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Query returns archived points in [From, To), ordered by timestamp then
// channel.
func (s *QueryService) Query(ctx context.Context, q RangeQuery) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := filepath.Join(s.dataDir, "data_log_*.parquet")
	if !s.haveFiles(pattern) {
		// No archive yet - an empty result, not an error.
		return nil, nil
	}

	query := `
		SELECT timestamp_us, channel, value
		FROM read_parquet($1)
		WHERE timestamp_us >= $2
		  AND timestamp_us < $3
		  AND ($4 < 0 OR channel = $4)
		ORDER BY timestamp_us, channel
	`

	rows, err := s.db.QueryContext(ctx, query,
		pattern,
		q.From.UnixMicro(),
		q.To.UnixMicro(),
		q.Channel,
	)
	if err != nil {
		s.queryErrors.Add(1)
		return nil, fmt.Errorf("query parquet: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var tsUs int64
		var channel int32
		var value float64
		if err := rows.Scan(&tsUs, &channel, &value); err != nil {
			s.queryErrors.Add(1)
			return nil, fmt.Errorf("scan row: %w", err)
		}
		points = append(points, Point{
			Timestamp: time.UnixMicro(tsUs),
			Channel:   int(channel),
			Value:     value,
		})
		if q.Limit > 0 && len(points) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		s.queryErrors.Add(1)
		return nil, err
	}

	s.queriesExecuted.Add(1)
	s.rowsReturned.Add(int64(len(points)))

	queryLog.Debug("archive query",
		"from", q.From, "to", q.To, "points", len(points))
	return points, nil
}

// Stats returns query service statistics.
func (s *QueryService) Stats() (executed, returned, errored int64) {
	return s.queriesExecuted.Load(), s.rowsReturned.Load(), s.queryErrors.Load()
}

func (s *QueryService) haveFiles(pattern string) bool {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return false
	}
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Size() > 0 {
			return true
		}
	}
	return false
}
