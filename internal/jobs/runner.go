// Copyright (c) 2026 Das ELB Hotel & Restaurant
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

// Package jobs runs API-triggered background work with observable handles.
// Callers get a job ID back immediately and can poll its state; nothing is
// fire-and-forget.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job states.
const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// Job is the observable state of one background task.
type Job struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Runner tracks background jobs in memory. State is per-instance and
// intentionally not persisted: a restart orphans nothing, because every job's
// effects land in the database.
type Runner struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRunner creates an empty runner.
func NewRunner() *Runner {
	return &Runner{jobs: make(map[string]*Job)}
}

// Submit starts fn in the background and returns a point-in-time snapshot of
// its job handle; the tracked job keeps mutating under the runner's mutex, so
// callers must read later state through Get. The job runs on a fresh context:
// cancelling the submitting request must not abort work that was accepted.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Name:      name,
		State:     StateRunning,
		StartedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	snapshot := *job
	r.mu.Unlock()

	go func() {
		err := fn(context.Background())

		now := time.Now().UTC()
		r.mu.Lock()
		defer r.mu.Unlock()
		job.FinishedAt = &now
		if err != nil {
			job.State = StateFailed
			job.Error = err.Error()
			slog.Error("background job failed", "job_id", job.ID, "name", name, "error", err)
			return
		}
		job.State = StateDone
		slog.Info("background job finished", "job_id", job.ID, "name", name, "duration_ms", now.Sub(job.StartedAt).Milliseconds())
	}()

	return &snapshot
}

// Get returns a snapshot of the job, or nil when the ID is unknown.
func (r *Runner) Get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}
