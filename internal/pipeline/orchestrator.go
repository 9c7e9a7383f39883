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

// Package pipeline runs an incoming email through the three drafting stages
// and persists exactly one terminal state per run: no_reply_needed,
// draft_created, or failed. Partially processed records never reach storage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daselb/concierge/internal/agent"
	"github.com/daselb/concierge/internal/metrics"
	"github.com/daselb/concierge/internal/models"
	"github.com/daselb/concierge/internal/notify"
)

// AgentRunner is the set of model invocations the pipeline drives. Satisfied
// by agent.Agents.
type AgentRunner interface {
	ClassifyIntent(ctx context.Context, subject, body string) (models.IntentResult, error)
	ExtractEntities(ctx context.Context, subject, body, intent string) (models.EntityResult, error)
	AnalyzeRisk(ctx context.Context, subject, body string) (models.RiskResult, error)
	ValidatePolicy(ctx context.Context, entities models.EntityResult, intent string, availability map[string]any, rooms []map[string]any) (models.PolicyResult, error)
	ComposeReply(ctx context.Context, in agent.ComposeInput) (models.DraftResult, error)
}

// RecordStore is the persistence surface the pipeline needs. Satisfied by
// store.Store.
type RecordStore interface {
	Save(ctx context.Context, rec *models.EmailRecord, updateID *int64) (*models.EmailRecord, error)
	LookupVIP(ctx context.Context, email string) (*models.VIPGuest, error)
	LatestStyleProfile(ctx context.Context) (*models.StyleProfile, error)
}

// AvailabilityAPI provides live hotel data for policy validation. Both calls
// degrade to empty results instead of failing. Satisfied by hotelapi.Client.
type AvailabilityAPI interface {
	Availability(ctx context.Context, roomType, checkIn, checkOut string) map[string]any
	Rooms(ctx context.Context) []map[string]any
}

// StaffNotifier is the alerting hook. Satisfied by notify.Notifier.
type StaffNotifier interface {
	NotifyStaff(ctx context.Context, rec *models.EmailRecord)
}

// Orchestrator wires the stages together.
type Orchestrator struct {
	agents   AgentRunner
	store    RecordStore
	hotelAPI AvailabilityAPI
	notifier StaffNotifier
	noReply  NoReplyPolicy
}

// Config carries the orchestrator's dependencies.
type Config struct {
	Agents   AgentRunner
	Store    RecordStore
	HotelAPI AvailabilityAPI
	Notifier StaffNotifier

	// HotelSenders feeds the own-sender skip rule.
	HotelSenders []string
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		agents:   cfg.Agents,
		store:    cfg.Store,
		hotelAPI: cfg.HotelAPI,
		notifier: cfg.Notifier,
		noReply:  NoReplyPolicy{HotelSenders: cfg.HotelSenders},
	}
}

// Process runs one email through the pipeline. updateID, when non-nil, makes
// the terminal save update that row instead of inserting; the retry path uses
// this to reprocess in place. The returned record reflects the persisted
// terminal state.
func (o *Orchestrator) Process(ctx context.Context, email models.IncomingEmail, updateID *int64) (*models.EmailRecord, error) {
	start := time.Now()

	rec, err := o.process(ctx, email, updateID)
	status := models.StatusFailed
	if rec != nil {
		status = rec.Status
	}
	metrics.RecordPipelineRun(status, time.Since(start))

	if err != nil {
		return rec, err
	}

	slog.Info("pipeline run complete",
		"record_id", rec.ID,
		"message_id", rec.MessageID,
		"status", rec.Status,
		"intent", rec.Intent,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (o *Orchestrator) process(ctx context.Context, email models.IncomingEmail, updateID *int64) (*models.EmailRecord, error) {
	rec := &models.EmailRecord{
		MessageID:   email.MessageID,
		ThreadID:    email.ThreadID,
		FromEmail:   email.FromEmail,
		FromName:    email.FromName,
		Subject:     email.Subject,
		Body:        email.Body,
		ReceivedAt:  email.ReceivedAt,
		ProcessedAt: time.Now().UTC(),
	}

	normalized := normalizeBody(email.Body)

	// The style profile feeds both the learned skip patterns and the
	// composer's style injection. Missing profile is not an error.
	profile, err := o.store.LatestStyleProfile(ctx)
	if err != nil {
		slog.Warn("style profile lookup failed, proceeding without", "error", err)
		profile = nil
	}
	learned := profile.NoReplySenderPatterns()

	// Stage 1: independent analyses in parallel. Latency is the slowest
	// call, not the sum.
	var (
		intent   models.IntentResult
		entities models.EntityResult
		risk     models.RiskResult
		vip      *models.VIPGuest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		intent, err = o.agents.ClassifyIntent(gctx, email.Subject, normalized)
		return err
	})
	g.Go(func() error {
		var err error
		entities, err = o.agents.ExtractEntities(gctx, email.Subject, normalized, "unclassified")
		return err
	})
	g.Go(func() error {
		var err error
		risk, err = o.agents.AnalyzeRisk(gctx, email.Subject, normalized)
		return err
	})
	g.Go(func() error {
		v, err := o.store.LookupVIP(gctx, email.FromEmail)
		if err != nil {
			slog.Warn("vip lookup failed, treating sender as regular guest", "error", err)
			return nil
		}
		vip = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return o.saveFailed(ctx, rec, updateID, fmt.Errorf("stage 1: %w", err))
	}

	rec.Intent = intent.Intent()
	rec.SecondaryIntent = intent.SecondaryIntent
	rec.Confidence = intent.Confidence
	rec.Language = intent.Lang()
	rec.Urgency = intent.Urgency
	rec.Entities = &entities
	rec.Risk = &risk
	rec.RiskScore = risk.OverallRiskScore
	rec.BookingReference = entities.ExistingBookingReference

	// The no-reply check runs on the full Stage 1 output, so a skipped
	// record still carries intent, confidence, language, and risk.
	if d := o.noReply.ShouldSkip(email.FromEmail, email.Subject, normalized, &risk, rec.Intent, learned); d.Skip {
		return o.saveNoReply(ctx, rec, updateID, d.Reason)
	}

	// Stage 2: live-data policy validation. Runs for every intent; sparse
	// entities just mean less live data reaches the validator.
	availability := map[string]any{}
	if entities.CheckInDate != "" && entities.CheckOutDate != "" {
		availability = o.hotelAPI.Availability(ctx, entities.RoomTypeRequested, entities.CheckInDate, entities.CheckOutDate)
	}
	rooms := o.hotelAPI.Rooms(ctx)

	policy, err := o.agents.ValidatePolicy(ctx, entities, rec.Intent, availability, rooms)
	if err != nil {
		return o.saveFailed(ctx, rec, updateID, fmt.Errorf("stage 2: %w", err))
	}
	rec.Policy = &policy

	// Stage 3: compose the candidate reply.
	styleInjection := ""
	if profile != nil {
		styleInjection = profile.InjectedPrompt
	}
	draft, err := o.agents.ComposeReply(ctx, agent.ComposeInput{
		Subject:        email.Subject,
		Body:           normalized,
		Intent:         rec.Intent,
		Language:       rec.Language,
		Entities:       entities,
		Policy:         policy,
		Risk:           risk,
		VIP:            vip,
		StyleInjection: styleInjection,
	})
	if err != nil {
		return o.saveFailed(ctx, rec, updateID, fmt.Errorf("stage 3: %w", err))
	}

	rec.DraftSubject = &draft.Subject
	rec.DraftBody = &draft.BodyText
	rec.Status = models.StatusDraftCreated
	rec.RequiresManagerApproval = policy.RequiresManagerApproval
	rec.RevenueAttributed = entities.Revenue()

	saved, err := o.store.Save(ctx, rec, updateID)
	if err != nil {
		return nil, fmt.Errorf("persist draft record: %w", err)
	}

	if o.notifier != nil && notify.ShouldNotify(rec.Risk, rec.Policy) {
		// Fire-and-forget: the caller's deadline must not cancel the alert.
		go o.notifier.NotifyStaff(context.WithoutCancel(ctx), saved)
	}

	return saved, nil
}

// saveNoReply persists the skip outcome. Drafts stay nil and revenue stays 0
// so the analytics never count suppressed mail.
func (o *Orchestrator) saveNoReply(ctx context.Context, rec *models.EmailRecord, updateID *int64, reason string) (*models.EmailRecord, error) {
	rec.Status = models.StatusNoReplyNeeded
	rec.DraftSubject = nil
	rec.DraftBody = nil
	rec.RevenueAttributed = 0

	slog.Info("no reply needed",
		"message_id", rec.MessageID,
		"from", rec.FromEmail,
		"reason", reason,
	)

	saved, err := o.store.Save(ctx, rec, updateID)
	if err != nil {
		return nil, fmt.Errorf("persist no-reply record: %w", err)
	}
	return saved, nil
}

// saveFailed persists the failure so operators can retry it. The save uses a
// cancellation-free context: a timed-out pipeline run must still leave its
// terminal row behind.
func (o *Orchestrator) saveFailed(ctx context.Context, rec *models.EmailRecord, updateID *int64, cause error) (*models.EmailRecord, error) {
	rec.Status = models.StatusFailed
	rec.DraftSubject = nil
	rec.DraftBody = nil

	slog.Error("pipeline run failed",
		"message_id", rec.MessageID,
		"error", cause,
	)

	saved, err := o.store.Save(context.WithoutCancel(ctx), rec, updateID)
	if err != nil {
		return nil, fmt.Errorf("persist failed record (cause: %v): %w", cause, err)
	}
	return saved, cause
}
