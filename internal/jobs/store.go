// Package jobs tracks conversion jobs across their lifecycle. Jobs live in a
// store owned by the service; handlers read and transition them through the
// store's API rather than sharing mutable state.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paperloom/paperloom/internal/convert"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is one conversion request. Jobs are stored and passed by value; the
// store is the single owner of the authoritative copy.
type Job struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	UploadPath string          `json:"-"`
	OutputDir  string          `json:"-"`
	Status     Status          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Result     *convert.Result `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// New creates a job in the uploaded state with a fresh identifier.
func New(filename, uploadPath string) Job {
	now := time.Now().UTC()
	return Job{
		ID:         uuid.NewString(),
		Filename:   filename,
		UploadPath: uploadPath,
		Status:     StatusUploaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Store holds jobs. Implementations must be safe for concurrent use.
type Store interface {
	Put(job Job)
	Get(id string) (Job, bool)
	// Transition applies update to the job only if it is currently in the
	// expected state, returning the updated job and whether the swap
	// happened. This is what prevents two requests from processing the
	// same upload concurrently.
	Transition(id string, expect Status, update func(*Job)) (Job, bool)
	Delete(id string) (Job, bool)
	List() []Job
}

// MemoryStore is an in-memory Store guarded by a single lock.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) Put(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *MemoryStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *MemoryStore) Transition(id string, expect Status, update func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != expect {
		return job, false
	}

	update(&job)
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return job, true
}

func (s *MemoryStore) Delete(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if ok {
		delete(s.jobs, id)
	}
	return job, ok
}

// List returns all jobs, newest first.
func (s *MemoryStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
