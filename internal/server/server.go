package server

import (
	"log/slog"
	"net/http"

	"github.com/duclunn/form-extractor/internal/export"
	"github.com/duclunn/form-extractor/internal/extract"
	"github.com/duclunn/form-extractor/internal/session"
)

// SettingsStore is the persisted-settings surface the API exposes.
type SettingsStore interface {
	ServerURL() string
	SetServerURL(url string) error
}

// Server handles HTTP requests for the extraction front end.
type Server struct {
	store          *session.Store
	runner         *session.Service
	exporter       *export.Service
	settings       SettingsStore
	client         *extract.Client
	maxUploadBytes int64
	logger         *slog.Logger
	mux            *http.ServeMux
}

// NewServer creates a new Server with a default mux.
func NewServer(store *session.Store, runner *session.Service, exporter *export.Service, settings SettingsStore, client *extract.Client, maxUploadBytes int64, logger *slog.Logger) *Server {
	return NewServerWithMux(store, runner, exporter, settings, client, maxUploadBytes, logger, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(store *session.Store, runner *session.Service, exporter *export.Service, settings SettingsStore, client *extract.Client, maxUploadBytes int64, logger *slog.Logger, mux *http.ServeMux) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:          store,
		runner:         runner,
		exporter:       exporter,
		settings:       settings,
		client:         client,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
		mux:            mux,
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes on the server's mux.
// Routes go from most specific to least specific to avoid conflicts.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/files/{index}/content", s.handleFileContent)
	s.mux.HandleFunc("DELETE /api/files/{index}", s.handleDeleteFile)
	s.mux.HandleFunc("POST /api/files", s.handleUploadFiles)

	s.mux.HandleFunc("POST /api/extract", s.handleExtract)
	s.mux.HandleFunc("GET /api/state", s.handleState)

	s.mux.HandleFunc("PATCH /api/rows/{index}", s.handleUpdateCell)
	s.mux.HandleFunc("DELETE /api/rows/{index}", s.handleDeleteRow)
	s.mux.HandleFunc("GET /api/rows", s.handleListRows)
	s.mux.HandleFunc("POST /api/rows", s.handleAddBlankRow)

	s.mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	s.mux.HandleFunc("GET /api/entries", s.handleListEntries)

	s.mux.HandleFunc("POST /api/reset", s.handleReset)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/export/entries/{id}", s.handleExportEntry)
	s.mux.HandleFunc("GET /api/export/xlsx", s.handleExportXLSX)
	s.mux.HandleFunc("GET /api/export/csv", s.handleExportCSV)
}

// corsMiddleware adds CORS headers and answers preflight requests so the
// browser front end can call the API from another origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the fully wrapped handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
