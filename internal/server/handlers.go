package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperloom/paperloom/internal/convert"
	"github.com/paperloom/paperloom/internal/document"
	"github.com/paperloom/paperloom/internal/jobs"
)

// metadataFileName is the per-job sidecar describing a finished conversion.
const metadataFileName = "metadata.json"

// multipartMemoryLimit is the in-memory buffer for multipart parsing;
// larger uploads spill to temporary files.
const multipartMemoryLimit = 32 << 20

// healthHandler returns service health and engine availability.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		EngineAvailable: s.conv.EngineAvailable(),
		EngineVersion:   s.conv.EngineVersion(),
		Time:            time.Now().UTC().Format(time.RFC3339),
	})
}

// uploadHandler accepts a PDF document and registers a new job in the
// uploaded state. Conversion does not start until the job is processed.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	// The cap is enforced by MaxBytesReader; only this much is buffered in
	// memory before the parser spills to disk.
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF documents are supported")
		return
	}

	job := jobs.New(filename, "")
	jobDir := filepath.Join(s.uploadsDir, job.ID)
	if err := os.MkdirAll(jobDir, 0o750); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	uploadPath := filepath.Join(jobDir, filename)
	size, err := saveUpload(uploadPath, file)
	if err != nil {
		_ = os.RemoveAll(jobDir)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	uploadSizeBytes.Observe(float64(size))

	job.UploadPath = uploadPath
	job.OutputDir = filepath.Join(s.outputsDir, job.ID)
	s.store.Put(job)

	slog.Info("document uploaded", "job_id", job.ID, "filename", filename, "bytes", size)
	writeJSON(w, http.StatusOK, UploadResponse{
		JobID:    job.ID,
		Filename: filename,
		Status:   string(job.Status),
	})
}

func saveUpload(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path) //nolint:gosec // G304: path is built from a fresh job ID
	if err != nil {
		return 0, err
	}
	defer func() { _ = dst.Close() }()
	return io.Copy(dst, src)
}

// processHandler starts conversion of an uploaded job. The transition to
// processing goes through the store, so concurrent process requests for the
// same job resolve to a single winner.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, ok = s.store.Transition(id, jobs.StatusUploaded, func(j *jobs.Job) {
		j.Status = jobs.StatusProcessing
	})
	if !ok {
		writeError(w, http.StatusConflict, "job is not in the uploaded state")
		return
	}

	go s.runConversion(job)

	writeJSON(w, http.StatusAccepted, StatusResponse{
		JobID:     job.ID,
		Filename:  job.Filename,
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	})
}

// runConversion drives one job to completion in the background.
func (s *Server) runConversion(job jobs.Job) {
	activeJobs.Inc()
	defer activeJobs.Dec()

	res, err := s.processDocument(job)
	if err != nil {
		conversionsTotal.WithLabelValues("none", "failed").Inc()
		slog.Error("conversion failed", "job_id", job.ID, "error", err)

		s.store.Transition(job.ID, jobs.StatusProcessing, func(j *jobs.Job) {
			j.Status = jobs.StatusFailed
			j.Message = failureMessage(err)
		})
		return
	}

	conversionsTotal.WithLabelValues(string(res.EngineUsed), "completed").Inc()
	conversionDuration.WithLabelValues(string(res.EngineUsed)).Observe(res.Elapsed.Seconds())

	done, ok := s.store.Transition(job.ID, jobs.StatusProcessing, func(j *jobs.Job) {
		j.Status = jobs.StatusCompleted
		j.Result = res
	})
	if !ok {
		// The job was deleted while converting; discard the orphaned output.
		_ = os.RemoveAll(job.OutputDir)
		return
	}

	if err := writeMetadata(job.OutputDir, done); err != nil {
		slog.Warn("failed to write job metadata", "job_id", job.ID, "error", err)
	}
	slog.Info("conversion job completed",
		"job_id", job.ID, "engine", res.EngineUsed, "pages", res.Stats.TotalPages)
}

// failureMessage keeps the client-facing message stable while the full error
// chain goes to the log.
// processDocument wraps the conversion so a panic in a parsing library
// fails the one job instead of crashing the server from its goroutine.
func (s *Server) processDocument(job jobs.Job) (res *convert.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("conversion panicked: %v", r)
		}
	}()
	return s.conv.Process(context.Background(), job.UploadPath, job.OutputDir)
}

func failureMessage(err error) string {
	var fbErr *convert.FallbackError
	if errors.As(err, &fbErr) {
		return "conversion failed: all strategies exhausted"
	}
	return "conversion failed"
}

// writeMetadata persists the job sidecar next to the conversion output.
func writeMetadata(outputDir string, job jobs.Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, metadataFileName), data, 0o600)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		JobID:     job.ID,
		Filename:  job.Filename,
		Status:    string(job.Status),
		Message:   job.Message,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	})
}

func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeError(w, http.StatusConflict, "job is not completed")
		return
	}

	writeJSON(w, http.StatusOK, ResultResponse{
		JobID:    job.ID,
		Filename: job.Filename,
		Status:   string(job.Status),
		Result:   job.Result,
	})
}

// downloadHandler serves the converted Markdown document as an attachment.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeError(w, http.StatusConflict, "job is not completed")
		return
	}

	name := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename)) + ".md"
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	http.ServeFile(w, r, filepath.Join(job.OutputDir, document.OutputFileName))
}

func (s *Server) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	list := s.store.List()
	out := make([]StatusResponse, 0, len(list))
	for _, job := range list {
		out = append(out, StatusResponse{
			JobID:     job.ID,
			Filename:  job.Filename,
			Status:    string(job.Status),
			Message:   job.Message,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// deleteHandler removes a job and everything it wrote to disk.
func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.Delete(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	if job.UploadPath != "" {
		_ = os.RemoveAll(filepath.Dir(job.UploadPath))
	}
	if job.OutputDir != "" {
		_ = os.RemoveAll(job.OutputDir)
	}

	slog.Info("conversion job deleted", "job_id", job.ID)
	w.WriteHeader(http.StatusNoContent)
}
