// Package server exposes the conversion service over HTTP: document upload,
// asynchronous conversion jobs, result retrieval and a WebSocket status feed.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paperloom/paperloom/internal/convert"
	"github.com/paperloom/paperloom/internal/jobs"
)

// orchestrator defines the conversion methods the server needs.
type orchestrator interface {
	Process(ctx context.Context, documentPath, outputDir string) (*convert.Result, error)
	EngineAvailable() bool
	EngineVersion() string
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	conv        orchestrator
	store       jobs.Store
	corsOrigin  string
	maxUploadMB int64
	uploadsDir  string
	outputsDir  string
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	UploadsDir  string
	OutputsDir  string
}

// UploadResponse is returned after a successful document upload.
type UploadResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// StatusResponse describes a job's current lifecycle state.
type StatusResponse struct {
	JobID     string    `json:"job_id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResultResponse carries a completed job's conversion result.
type ResultResponse struct {
	JobID    string          `json:"job_id"`
	Filename string          `json:"filename"`
	Status   string          `json:"status"`
	Result   *convert.Result `json:"result"`
}

// HealthResponse reports service health and primary engine availability.
type HealthResponse struct {
	Status          string `json:"status"`
	EngineAvailable bool   `json:"engine_available"`
	EngineVersion   string `json:"engine_version,omitempty"`
	Time            string `json:"time"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a conversion server, preparing its upload and output
// directories.
func NewServer(cfg Config, conv orchestrator, store jobs.Store) (*Server, error) {
	for _, dir := range []string{cfg.UploadsDir, cfg.OutputsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Server{
		conv:        conv,
		store:       store,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		uploadsDir:  cfg.UploadsDir,
		outputsDir:  cfg.OutputsDir,
	}, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.corsMiddleware(s.healthHandler))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /convert/upload", s.corsMiddleware(s.uploadHandler))
	mux.HandleFunc("POST /convert/process/{id}", s.corsMiddleware(s.processHandler))
	mux.HandleFunc("GET /convert/status/{id}", s.corsMiddleware(s.statusHandler))
	mux.HandleFunc("GET /convert/result/{id}", s.corsMiddleware(s.resultHandler))
	mux.HandleFunc("GET /convert/download/{id}", s.corsMiddleware(s.downloadHandler))
	mux.HandleFunc("GET /convert/jobs", s.corsMiddleware(s.listJobsHandler))
	mux.HandleFunc("DELETE /convert/{id}", s.corsMiddleware(s.deleteHandler))
	mux.HandleFunc("GET /ws/status", s.statusWebSocketHandler)
	mux.HandleFunc("OPTIONS /", s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {}))
}
