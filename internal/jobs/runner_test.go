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

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func waitForState(t *testing.T, r *Runner, id, want string) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job := r.Get(id); job != nil && job.State == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached state %q", id, want)
	return nil
}

func TestSubmitReturnsRunningHandle(t *testing.T) {
	r := NewRunner()
	release := make(chan struct{})

	job := r.Submit("poll", func(ctx context.Context) error {
		<-release
		return nil
	})

	if job.ID == "" {
		t.Fatal("missing job ID")
	}
	if got := r.Get(job.ID); got == nil || got.State != StateRunning {
		t.Fatalf("expected running job, got %+v", got)
	}

	close(release)
	done := waitForState(t, r, job.ID, StateDone)
	if done.FinishedAt == nil {
		t.Error("finished job must have a finish timestamp")
	}
}

func TestFailedJobKeepsError(t *testing.T) {
	r := NewRunner()
	job := r.Submit("import", func(ctx context.Context) error {
		return errors.New("mailbox unreachable")
	})

	failed := waitForState(t, r, job.ID, StateFailed)
	if failed.Error != "mailbox unreachable" {
		t.Errorf("error = %q", failed.Error)
	}
}

func TestGetUnknownID(t *testing.T) {
	r := NewRunner()
	if got := r.Get("no-such-job"); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestSubmitReturnsSnapshot(t *testing.T) {
	r := NewRunner()
	started := make(chan struct{})
	job := r.Submit("import", func(ctx context.Context) error {
		close(started)
		return nil
	})
	<-started

	// The handle is safe to encode while the background goroutine finishes
	// the job and mutates the tracked copy.
	if _, err := json.Marshal(job); err != nil {
		t.Fatalf("marshal handle: %v", err)
	}

	waitForState(t, r, job.ID, StateDone)
	if job.State != StateRunning || job.FinishedAt != nil {
		t.Errorf("handle must stay a submission-time snapshot, got %+v", job)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	r := NewRunner()
	job := r.Submit("noop", func(ctx context.Context) error { return nil })
	waitForState(t, r, job.ID, StateDone)

	snap := r.Get(job.ID)
	snap.State = "tampered"

	if again := r.Get(job.ID); again.State != StateDone {
		t.Error("Get must return a copy, not the tracked job")
	}
}
