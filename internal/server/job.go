package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/snakefit/internal/contour"
	"github.com/cwbudde/snakefit/internal/snake"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Finished reports whether the state is terminal.
func (s JobState) Finished() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ErrJobNotFound is returned for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// ErrJobFinished is returned when cancelling a job that already ended.
var ErrJobFinished = errors.New("job already finished")

// JobConfig holds the contour to fit and the fit settings
type JobConfig struct {
	Contour contour.File `json:"contour"`

	// MaxCycles bounds the steepest-descent restarts (0 = unbounded)
	MaxCycles int `json:"maxCycles,omitempty"`

	// PreSearch seeds the fit with a mayfly global search
	PreSearch      bool  `json:"preSearch,omitempty"`
	PreSearchIters int   `json:"preSearchIters,omitempty"`
	PopSize        int   `json:"popSize,omitempty"`
	Seed           int64 `json:"seed,omitempty"`
}

// Job represents a snake fit running in the background
type Job struct {
	ID            string        `json:"id"`
	State         JobState      `json:"state"`
	Config        JobConfig     `json:"config"`
	Nodes         snake.NodeSet `json:"nodes,omitempty"`
	Energy        float64       `json:"energy"`
	InitialEnergy float64       `json:"initialEnergy"`
	Steps         int           `json:"steps"`
	Converged     bool          `json:"converged"`
	Stats         snake.Stats   `json:"stats"`
	StartTime     time.Time     `json:"startTime"`
	EndTime       *time.Time    `json:"endTime,omitempty"`
	Error         string        `json:"error,omitempty"`

	cancel context.CancelFunc
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new pending job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		Nodes:     config.Contour.Nodes.Clone(),
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.snapshot()
}

// snapshot copies the job so callers never share mutable state with the worker
func (j *Job) snapshot() Job {
	out := *j
	out.Nodes = j.Nodes.Clone()
	out.cancel = nil
	return out
}

// GetJob retrieves a snapshot of a job by ID
func (jm *JobManager) GetJob(id string) (Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return Job{}, false
	}
	return job.snapshot(), true
}

// ListJobs returns snapshots of all jobs
func (jm *JobManager) ListJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	updateFn(job)
	return nil
}

// attachCancel registers the function that stops the job's worker
func (jm *JobManager) attachCancel(id string, cancel context.CancelFunc) {
	jm.UpdateJob(id, func(j *Job) {
		j.cancel = cancel
	})
}

// CancelJob asks a pending or running job to stop. The worker notices on its
// next energy evaluation.
func (jm *JobManager) CancelJob(id string) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.State.Finished() {
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.State)
	}
	if job.cancel != nil {
		job.cancel()
	}
	return nil
}

// CancelAll stops every unfinished job
func (jm *JobManager) CancelAll() {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for _, job := range jm.jobs {
		if !job.State.Finished() && job.cancel != nil {
			job.cancel()
		}
	}
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.snapshot())
		}
	}
	return runningJobs
}
