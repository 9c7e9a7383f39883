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

// Package poller drives the mailbox: a periodic fetch-and-process loop plus
// a one-shot bulk importer. A Redis lock keeps exactly one poll cycle running
// system-wide, whichever trigger fired it.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daselb/concierge/internal/models"
)

// importConcurrency bounds parallel pipeline runs during bulk import. The
// model endpoint rate-limits aggressively above this.
const importConcurrency = 3

// MailFetcher retrieves recent messages. Satisfied by mail.Client.
type MailFetcher interface {
	FetchNew(ctx context.Context, sinceDays, maxResults int) ([]models.IncomingEmail, error)
}

// Processor runs one email through the drafting pipeline. Satisfied by
// pipeline.Orchestrator.
type Processor interface {
	Process(ctx context.Context, email models.IncomingEmail, updateID *int64) (*models.EmailRecord, error)
}

// ProcessedChecker is the durable dedup layer. Satisfied by store.Store.
type ProcessedChecker interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
}

// SeenFilter is the fast dedup layer. Satisfied by dedup.Filter.
type SeenFilter interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
}

// Lock serializes poll cycles. Satisfied by dedup.PollLock.
type Lock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Config carries the poller's dependencies and tuning.
type Config struct {
	Mail      MailFetcher
	Pipeline  Processor
	Store     ProcessedChecker
	Seen      SeenFilter
	Lock      Lock
	Interval  time.Duration
	SinceDays int
	MaxFetch  int
}

// Poller owns the mailbox processing loop.
type Poller struct {
	cfg Config
}

// New creates a poller.
func New(cfg Config) *Poller {
	return &Poller{cfg: cfg}
}

// Run polls on the configured interval until the context is cancelled. An
// immediate first cycle runs on startup.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("mailbox poller started", "interval", p.cfg.Interval)

	if err := p.PollOnce(ctx); err != nil {
		slog.Error("poll cycle failed", "error", err)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("mailbox poller stopped")
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				slog.Error("poll cycle failed", "error", err)
			}
		}
	}
}

// PollOnce runs a single poll cycle: fetch recent mail, drop duplicates,
// process the rest sequentially in arrival order. When another cycle holds
// the lock this returns immediately without error.
func (p *Poller) PollOnce(ctx context.Context) error {
	acquired, err := p.cfg.Lock.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire poll lock: %w", err)
	}
	if !acquired {
		slog.Info("poll cycle already in flight, skipping")
		return nil
	}
	defer func() {
		if err := p.cfg.Lock.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Error("release poll lock failed", "error", err)
		}
	}()

	emails, err := p.cfg.Mail.FetchNew(ctx, p.cfg.SinceDays, p.cfg.MaxFetch)
	if err != nil {
		return fmt.Errorf("fetch mailbox: %w", err)
	}

	processed := 0
	for _, email := range emails {
		ok, err := p.isNew(ctx, email.MessageID)
		if err != nil {
			slog.Error("dedup check failed, skipping message", "message_id", email.MessageID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		if _, err := p.cfg.Pipeline.Process(ctx, email, nil); err != nil {
			// The pipeline has already persisted the failure; keep going.
			slog.Error("pipeline run failed during poll", "message_id", email.MessageID, "error", err)
		}
		processed++
	}

	slog.Info("poll cycle complete", "fetched", len(emails), "processed", processed)
	return nil
}

// ImportAll bulk-processes the mailbox with bounded concurrency. Used for
// the initial backlog import; duplicate messages are skipped the same way
// the poll loop skips them.
func (p *Poller) ImportAll(ctx context.Context) error {
	acquired, err := p.cfg.Lock.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire poll lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another poll cycle is in flight")
	}
	defer func() {
		if err := p.cfg.Lock.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Error("release poll lock failed", "error", err)
		}
	}()

	emails, err := p.cfg.Mail.FetchNew(ctx, p.cfg.SinceDays, p.cfg.MaxFetch)
	if err != nil {
		return fmt.Errorf("fetch mailbox: %w", err)
	}
	slog.Info("bulk import started", "fetched", len(emails))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)

	imported := 0
	for _, email := range emails {
		ok, err := p.isNew(ctx, email.MessageID)
		if err != nil {
			slog.Error("dedup check failed, skipping message", "message_id", email.MessageID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		imported++

		g.Go(func() error {
			if _, err := p.cfg.Pipeline.Process(gctx, email, nil); err != nil {
				slog.Error("pipeline run failed during import", "message_id", email.MessageID, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bulk import: %w", err)
	}
	slog.Info("bulk import complete", "imported", imported, "skipped", len(emails)-imported)
	return nil
}

// isNew consults both dedup layers: the Redis seen-filter absorbs the common
// case, the database check survives Redis restarts.
func (p *Poller) isNew(ctx context.Context, messageID string) (bool, error) {
	fresh, err := p.cfg.Seen.IsNew(ctx, messageID)
	if err != nil {
		return false, err
	}
	if !fresh {
		return false, nil
	}

	done, err := p.cfg.Store.IsProcessed(ctx, messageID)
	if err != nil {
		return false, err
	}
	return !done, nil
}
