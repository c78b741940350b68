// Package api exposes orb runs over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/moonrock-orbs/internal/orbs"
	"github.com/MJE43/moonrock-orbs/internal/session"
	"github.com/MJE43/moonrock-orbs/internal/store"
)

// Version information - these will be set at build time via ldflags
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// GetVersionInfo returns the current version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
	}
}

const defaultRequestTimeout = 30 * time.Second

// Options tune a Server. Zero values pick defaults; an empty Token disables
// authentication.
type Options struct {
	Token          string
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	db             store.DB
	sessions       *session.Manager
	token          string
	timeout        time.Duration
	errorHandler   *ErrorHandler
	logger         *log.Logger
	securityLogger *SecurityLogger
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(db store.DB, opts Options) *Server {
	logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	securityLogger := NewSecurityLogger()

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	session.EngineVersion = EngineVersion
	server := &Server{
		db:             db,
		sessions:       session.NewManager(db),
		token:          opts.Token,
		timeout:        timeout,
		errorHandler:   NewErrorHandler(logger, securityLogger),
		logger:         logger,
		securityLogger: securityLogger,
		startTime:      time.Now(),
	}

	securityLogger.LogSystemStartup(map[string]interface{}{
		"orbs_in_catalog":  orbs.Size,
		"database_enabled": db != nil,
		"auth_enabled":     opts.Token != "",
		"request_timeout":  timeout,
	})

	return server
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.SecurityLoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.TokenAuthMiddleware)

		r.Get("/catalog", s.handleCatalog)
		r.Post("/verify", s.handleVerify)

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleCreateRun)
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Post("/{id}/actions", s.handleApplyAction)
			r.Get("/{id}/actions", s.handleListActions)
		})
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("response_encode_failed status=%d err=%v", status, err)
	}
}

// decodeJSON reads a request body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
