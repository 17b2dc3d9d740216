// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FairForge/vigil/internal/config"
	"github.com/FairForge/vigil/internal/logagg"
	"github.com/FairForge/vigil/internal/metrics"
	"github.com/FairForge/vigil/internal/monitor"
)

// Server exposes the metrics snapshot, alert history, and log queries
// over REST/JSON for dashboard consumers. Rendering is theirs; this
// surface only projects state.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	monitor    *monitor.Monitor
	router     *mux.Router
	httpServer *http.Server
	startTime  time.Time
}

// NewServer creates the API server around a monitor
func NewServer(cfg *config.Config, logger *zap.Logger, mon *monitor.Monitor) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		monitor:   mon,
		router:    mux.NewRouter(),
		startTime: time.Now(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.monitor.Registry(),
		promhttp.HandlerOpts{})).Methods("GET")

	s.router.HandleFunc("/api/v1/dashboard", s.handleDashboard).Methods("GET")
	s.router.HandleFunc("/api/v1/alerts", s.handleAlerts).Methods("GET")
	s.router.HandleFunc("/api/v1/logs", s.handleLogs).Methods("GET")
	s.router.HandleFunc("/api/v1/logs/export", s.handleLogExport).Methods("GET")
	s.router.HandleFunc("/api/v1/backup", s.handleRecordBackup).Methods("POST")
	s.router.HandleFunc("/api/v1/events/security", s.handleRecordSecurityEvent).Methods("POST")

	s.router.Use(s.loggingMiddleware)
}

// Start blocks serving HTTP until Shutdown
func (s *Server) Start() error {
	s.logger.Info("api server listening", zap.Int("port", s.cfg.Server.Port))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitor.Snapshot())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	s.writeJSON(w, http.StatusOK, s.monitor.Dispatcher().History(limit))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	limit := queryInt(r, "limit", 100)

	var entries []logagg.Entry
	if level != "" {
		entries = s.monitor.Aggregator().ByLevel(level)
		if len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
	} else {
		entries = s.monitor.Aggregator().Recent(limit)
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLogExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = logagg.FormatJSON
	}

	data, err := s.monitor.Aggregator().Export(format)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	switch format {
	case logagg.FormatJSONGz:
		w.Header().Set("Content-Type", "application/gzip")
		w.Header().Set("Content-Disposition", `attachment; filename="logs.json.gz"`)
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRecordBackup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CompletedAt time.Time `json:"completed_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if body.CompletedAt.IsZero() {
		body.CompletedAt = time.Now().UTC()
	}

	s.monitor.RecordBackup(r.Context(), body.CompletedAt)
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"recorded": body.CompletedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRecordSecurityEvent(w http.ResponseWriter, r *http.Request) {
	var event metrics.SecurityEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if event.Kind == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}

	s.monitor.Store().RecordSecurityEvent(event)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"recorded": event.Kind})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
