// Package server exposes the render feed over HTTP as JSON. Refresh
// cadence is the client's business; every request reads a fresh snapshot.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/xtxerr/aimon/internal/archive"
	"github.com/xtxerr/aimon/internal/logging"
	"github.com/xtxerr/aimon/internal/view"
)

var log = logging.Component("server")

// Config holds server configuration.
type Config struct {
	// Listen is the listen address.
	Listen string

	// Aggregator produces the live feed payloads.
	Aggregator *view.Aggregator

	// Archive answers history queries beyond the live window. May be nil
	// when archival is disabled.
	Archive *archive.QueryService

	// ShutdownTimeout bounds the drain on Shutdown.
	ShutdownTimeout time.Duration
}

// Server is the render feed HTTP server.
type Server struct {
	cfg  Config
	http *http.Server
}

// New creates the server and registers its routes.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then drains within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", s.cfg.Listen)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return <-errc
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg.Aggregator.Render(time.Now()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg.Aggregator.RenderStats(time.Now()))
}

// handleHistory serves archived points from the Parquet tier.
// Query params: from, to (RFC 3339, required), channel (optional).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Archive == nil {
		http.Error(w, "archive disabled", http.StatusNotFound)
		return
	}

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid 'from'", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid 'to'", http.StatusBadRequest)
		return
	}

	channel := -1
	if c := r.URL.Query().Get("channel"); c != "" {
		channel, err = strconv.Atoi(c)
		if err != nil {
			http.Error(w, "invalid 'channel'", http.StatusBadRequest)
			return
		}
	}

	points, err := s.cfg.Archive.Query(r.Context(), archive.RangeQuery{
		Channel: channel,
		From:    from,
		To:      to,
	})
	if err != nil {
		log.Error("history query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"from":   from,
		"to":     to,
		"points": points,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", "error", err)
	}
}
