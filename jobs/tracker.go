// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package jobs tracks long-running background work such as bulk imports.
//
// The Tracker is an in-memory registry of jobs with a small state machine:
// PENDING -> RUNNING -> {COMPLETED | FAILED | CANCELLED}. Cancellation is
// cooperative: cancelling flips the job's state and workers are expected to
// poll IsCancelled between units of work. A single coarse mutex guards all
// state; no I/O ever happens under the lock.
package jobs

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Progress describes how far along a job is.
type Progress struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Errors     int    `json:"errors"`
	Message    string `json:"message"`
}

// Percentage returns completion as 0-100. A zero total reads as 0.
func (p Progress) Percentage() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// Job is a tracked unit of background work. Fields are snapshots; the
// Tracker owns the live state.
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      Status     `json:"status"`
	Progress    Progress   `json:"progress"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProgressUpdate carries partial progress changes; nil fields are left as-is.
type ProgressUpdate struct {
	Current    *int
	Total      *int
	Successful *int
	Errors     *int
	Message    *string
}

// DefaultMaxJobs caps the number of jobs kept before old terminal jobs are
// evicted.
const DefaultMaxJobs = 100

// Tracker is an in-memory job registry. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	maxJobs int
	logger  *slog.Logger
}

// NewTracker creates a tracker with the default job cap.
func NewTracker() *Tracker {
	return NewTrackerWithCapacity(DefaultMaxJobs)
}

// NewTrackerWithCapacity creates a tracker that holds at most maxJobs jobs.
func NewTrackerWithCapacity(maxJobs int) *Tracker {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Tracker{
		jobs:    make(map[string]*Job),
		maxJobs: maxJobs,
		logger:  slog.Default().With("component", "jobs"),
	}
}

// Create registers a new pending job of the given type and returns a
// snapshot. When the registry is full, the oldest half of the terminal jobs
// is evicted first.
func (t *Tracker) Create(jobType string) Job {
	job := &Job{
		// Short ids keep CLI and API usage ergonomic; collisions across a
		// bounded registry of 100 jobs are not a practical concern.
		ID:        uuid.NewString()[:8],
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.jobs) >= t.maxJobs {
		t.evictOldTerminalLocked()
	}
	t.jobs[job.ID] = job

	t.logger.Debug("created job", "id", job.ID, "type", jobType)
	return *job
}

// Get returns a snapshot of the job, or false if it doesn't exist.
func (t *Tracker) Get(jobID string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs, newest first, optionally filtered by
// type. An empty jobType matches everything.
func (t *Tracker) List(jobType string) []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		if jobType != "" && job.Type != jobType {
			continue
		}
		result = append(result, *job)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// UpdateProgress merges the update into the job's progress. Unknown job ids
// are ignored.
func (t *Tracker) UpdateProgress(jobID string, update ProgressUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return
	}
	if update.Current != nil {
		job.Progress.Current = *update.Current
	}
	if update.Total != nil {
		job.Progress.Total = *update.Total
	}
	if update.Successful != nil {
		job.Progress.Successful = *update.Successful
	}
	if update.Errors != nil {
		job.Progress.Errors = *update.Errors
	}
	if update.Message != nil {
		job.Progress.Message = *update.Message
	}
}

// Start marks a pending job as running. Ignored for unknown ids.
func (t *Tracker) Start(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
}

// Complete marks a job as completed with an optional result payload.
func (t *Tracker) Complete(jobID string, result any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.CompletedAt = &now
	job.Result = result
}

// Fail marks a job as failed with the given error message.
func (t *Tracker) Fail(jobID string, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Error = errMsg
}

// Cancel requests cancellation of a pending or running job. Returns true if
// the job flipped to CANCELLED; cancelling a terminal or unknown job is a
// no-op returning false.
func (t *Tracker) Cancel(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false
	}
	now := time.Now().UTC()
	job.Status = StatusCancelled
	job.CompletedAt = &now

	t.logger.Info("job cancelled", "id", jobID, "type", job.Type)
	return true
}

// IsCancelled reports whether the job has been cancelled. Workers poll this
// between units of work. Unknown ids read as cancelled so an evicted job's
// worker stops.
func (t *Tracker) IsCancelled(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return true
	}
	return job.Status == StatusCancelled
}

// evictOldTerminalLocked removes the oldest half of terminal jobs.
// Caller must hold the lock.
func (t *Tracker) evictOldTerminalLocked() {
	terminal := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		if job.Status.Terminal() {
			terminal = append(terminal, job)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminalTime(terminal[i]).Before(terminalTime(terminal[j]))
	})
	for _, job := range terminal[:len(terminal)/2] {
		delete(t.jobs, job.ID)
	}
}

func terminalTime(j *Job) time.Time {
	if j.CompletedAt != nil {
		return *j.CompletedAt
	}
	return j.CreatedAt
}
