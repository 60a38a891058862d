package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/coinplan/coinplan-backend/internal/logging"
	"github.com/coinplan/coinplan-backend/internal/usecase/contribution"
	"github.com/coinplan/coinplan-backend/internal/usecase/execution"
	"github.com/coinplan/coinplan-backend/internal/usecase/progress"
	"github.com/coinplan/coinplan-backend/internal/usecase/snapshotter"
)

// Server exposes the execution, progress, and contribution use cases over
// HTTP/JSON. It is the serving surface the UI layer talks to.
type Server struct {
	Execution     *execution.Service
	Progress      *progress.Calculator
	Contributions *contribution.Service
	Snapshotter   *snapshotter.Service
	Records       recordGetter

	server *http.Server
	logger *logging.Logger
}

// NewServer creates a new HTTP API server listening on addr
func NewServer(
	addr string,
	executionService *execution.Service,
	progressCalculator *progress.Calculator,
	contributionService *contribution.Service,
	snapshotterService *snapshotter.Service,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		Execution:     executionService,
		Progress:      progressCalculator,
		Contributions: contributionService,
		Snapshotter:   snapshotterService,
		Records:       executionService.Records,
		logger:        logger.Named("httpapi"),
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/executions/{month}/start", s.handleStartTracking).Methods(http.MethodPost)
	api.HandleFunc("/executions/{month}/complete", s.handleMarkComplete).Methods(http.MethodPost)
	api.HandleFunc("/executions/{month}/undo-start", s.handleUndoStart).Methods(http.MethodPost)
	api.HandleFunc("/executions/{month}/undo-complete", s.handleUndoComplete).Methods(http.MethodPost)
	api.HandleFunc("/executions/{month}", s.handleGetRecord).Methods(http.MethodGet)
	api.HandleFunc("/executions/{month}/progress", s.handleProgress).Methods(http.MethodGet)
	api.HandleFunc("/contributions", s.handleRecordContribution).Methods(http.MethodPost)
	api.HandleFunc("/allocations/sync", s.handleSyncAllocations).Methods(http.MethodPost)

	return r
}

// Start starts the HTTP server; it blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
