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

package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daselb/concierge/internal/models"
)

type fakeMail struct {
	emails []models.IncomingEmail
}

func (f *fakeMail) FetchNew(ctx context.Context, sinceDays, maxResults int) ([]models.IncomingEmail, error) {
	return f.emails, nil
}

type fakePipeline struct {
	mu        sync.Mutex
	processed []string
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
	delay     time.Duration
}

func (f *fakePipeline) Process(ctx context.Context, email models.IncomingEmail, updateID *int64) (*models.EmailRecord, error) {
	cur := f.inFlight.Add(1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.inFlight.Add(-1)

	f.mu.Lock()
	f.processed = append(f.processed, email.MessageID)
	f.mu.Unlock()
	return &models.EmailRecord{MessageID: email.MessageID, Status: models.StatusDraftCreated}, nil
}

type fakeChecker struct {
	processed map[string]bool
}

func (f *fakeChecker) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	return f.processed[messageID], nil
}

type fakeSeen struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeSeen) IsNew(ctx context.Context, messageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[messageID] {
		return false, nil
	}
	f.seen[messageID] = true
	return true, nil
}

type fakeLock struct {
	mu   sync.Mutex
	held bool
}

func (f *fakeLock) TryAcquire(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	return nil
}

func emails(ids ...string) []models.IncomingEmail {
	out := make([]models.IncomingEmail, len(ids))
	for i, id := range ids {
		out[i] = models.IncomingEmail{MessageID: id, FromEmail: "guest@example.com", Subject: "Anfrage"}
	}
	return out
}

func newTestPoller(mail *fakeMail, pipe *fakePipeline, checker *fakeChecker, lock *fakeLock) *Poller {
	return New(Config{
		Mail:      mail,
		Pipeline:  pipe,
		Store:     checker,
		Seen:      &fakeSeen{},
		Lock:      lock,
		Interval:  time.Minute,
		SinceDays: 7,
		MaxFetch:  100,
	})
}

func TestPollOnceProcessesInOrder(t *testing.T) {
	pipe := &fakePipeline{}
	p := newTestPoller(
		&fakeMail{emails: emails("m1", "m2", "m3")},
		pipe,
		&fakeChecker{processed: map[string]bool{}},
		&fakeLock{},
	)

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}

	want := []string{"m1", "m2", "m3"}
	if len(pipe.processed) != len(want) {
		t.Fatalf("processed %v, want %v", pipe.processed, want)
	}
	for i, id := range want {
		if pipe.processed[i] != id {
			t.Errorf("position %d: got %s, want %s", i, pipe.processed[i], id)
		}
	}
}

func TestPollOnceSkipsProcessed(t *testing.T) {
	pipe := &fakePipeline{}
	p := newTestPoller(
		&fakeMail{emails: emails("m1", "m2")},
		pipe,
		&fakeChecker{processed: map[string]bool{"m1": true}},
		&fakeLock{},
	)

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(pipe.processed) != 1 || pipe.processed[0] != "m2" {
		t.Errorf("processed %v, want only m2", pipe.processed)
	}
}

func TestPollOnceSecondRunDedupedBySeenFilter(t *testing.T) {
	pipe := &fakePipeline{}
	p := newTestPoller(
		&fakeMail{emails: emails("m1")},
		pipe,
		&fakeChecker{processed: map[string]bool{}},
		&fakeLock{},
	)

	for i := 0; i < 2; i++ {
		if err := p.PollOnce(context.Background()); err != nil {
			t.Fatalf("PollOnce #%d: %v", i+1, err)
		}
	}
	if len(pipe.processed) != 1 {
		t.Errorf("processed %v, want one run total", pipe.processed)
	}
}

func TestPollOnceRespectsLock(t *testing.T) {
	pipe := &fakePipeline{}
	lock := &fakeLock{held: true}
	p := newTestPoller(
		&fakeMail{emails: emails("m1")},
		pipe,
		&fakeChecker{processed: map[string]bool{}},
		lock,
	)

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce: %v", err)
	}
	if len(pipe.processed) != 0 {
		t.Errorf("locked cycle must not process, got %v", pipe.processed)
	}
}

func TestImportAllBoundsConcurrency(t *testing.T) {
	pipe := &fakePipeline{delay: 30 * time.Millisecond}
	p := newTestPoller(
		&fakeMail{emails: emails("m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8")},
		pipe,
		&fakeChecker{processed: map[string]bool{}},
		&fakeLock{},
	)

	if err := p.ImportAll(context.Background()); err != nil {
		t.Fatalf("ImportAll: %v", err)
	}

	if len(pipe.processed) != 8 {
		t.Errorf("processed %d messages, want 8", len(pipe.processed))
	}
	if max := pipe.maxSeen.Load(); max > importConcurrency {
		t.Errorf("max concurrent pipeline runs = %d, limit is %d", max, importConcurrency)
	}
}

func TestImportAllFailsWhenLocked(t *testing.T) {
	p := newTestPoller(
		&fakeMail{emails: emails("m1")},
		&fakePipeline{},
		&fakeChecker{processed: map[string]bool{}},
		&fakeLock{held: true},
	)
	if err := p.ImportAll(context.Background()); err == nil {
		t.Fatal("expected error when lock is held")
	}
}
