// Package server exposes the on-demand invocation surface: a trigger
// endpoint for the next batch plus read-only queue and run listings for the
// external dashboard.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
	"github.com/propstream/propstream/internal/scraper"
)

// Server manages the HTTP server and routes
type Server struct {
	scraper *scraper.Service
	queue   interfaces.QueueStorage
	runs    interfaces.RunLogStorage
	logger  arbor.ILogger
	server  *http.Server
}

// New creates a new HTTP server
func New(cfg *common.ServerConfig, scraperSvc *scraper.Service, queue interfaces.QueueStorage, runs interfaces.RunLogStorage, logger arbor.ILogger) *Server {
	s := &Server{
		scraper: scraperSvc,
		queue:   queue,
		runs:    runs,
		logger:  logger,
	}

	router := http.NewServeMux()
	router.HandleFunc("/health", s.handleHealth)
	router.HandleFunc("/api/scrape/run", s.handleScrapeRun)
	router.HandleFunc("/api/queue", s.handleQueue)
	router.HandleFunc("/api/runs", s.handleRuns)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // the trigger endpoint waits for the batch
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleScrapeRun processes the next batch on demand and returns the
// per-item outcomes.
func (s *Server) handleScrapeRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	outcomes, err := s.scraper.ProcessBatch(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("On-demand batch failed")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if outcomes == nil {
		outcomes = []*scraper.Outcome{}
	}

	s.writeJSON(w, map[string]interface{}{
		"processed": len(outcomes),
		"outcomes":  outcomes,
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := models.QueueStatus(r.URL.Query().Get("status"))
	items, err := s.queue.ListItems(r.Context(), status, queryLimit(r, 50))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		runs []*models.RunLog
		err  error
	)
	if sourceID := r.URL.Query().Get("source_id"); sourceID != "" {
		runs, err = s.runs.ListRunsBySource(r.Context(), sourceID, queryLimit(r, 50))
	} else {
		runs, err = s.runs.ListRuns(r.Context(), queryLimit(r, 50))
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func queryLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
