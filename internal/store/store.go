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

// Package store provides the Postgres-backed record store: one row per email,
// plus the audit log, the VIP guest registry, and the style-profile snapshots.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daselb/concierge/internal/models"
)

// Store provides CRUD operations for email records and their satellites.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store backed by the given Postgres pool. It ensures the
// schema exists on creation.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure record schema: %w", err)
	}
	slog.Info("record store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS email_records (
			id                        BIGSERIAL PRIMARY KEY,
			message_id                TEXT NOT NULL UNIQUE,
			thread_id                 TEXT NOT NULL DEFAULT '',
			from_email                TEXT NOT NULL DEFAULT '',
			from_name                 TEXT NOT NULL DEFAULT '',
			subject                   TEXT NOT NULL DEFAULT '',
			body                      TEXT NOT NULL DEFAULT '',
			received_at               TIMESTAMPTZ,
			processed_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			intent                    TEXT NOT NULL DEFAULT '',
			secondary_intent          TEXT NOT NULL DEFAULT '',
			confidence                DOUBLE PRECISION NOT NULL DEFAULT 0,
			language                  TEXT NOT NULL DEFAULT '',
			urgency                   TEXT NOT NULL DEFAULT '',
			entities                  JSONB,
			policy                    JSONB,
			risk                      JSONB,
			risk_score                DOUBLE PRECISION NOT NULL DEFAULT 0,
			draft_subject             TEXT,
			draft_body                TEXT,
			status                    TEXT NOT NULL DEFAULT 'received',
			approved_by               TEXT NOT NULL DEFAULT '',
			approved_at               TIMESTAMPTZ,
			sent_at                   TIMESTAMPTZ,
			rejection_reason          TEXT NOT NULL DEFAULT '',
			requires_manager_approval BOOLEAN NOT NULL DEFAULT FALSE,
			revenue_attributed        DOUBLE PRECISION NOT NULL DEFAULT 0,
			booking_reference         TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_records_status ON email_records(status);
		CREATE INDEX IF NOT EXISTS idx_records_intent ON email_records(intent);
		CREATE INDEX IF NOT EXISTS idx_records_received ON email_records(received_at DESC);

		CREATE TABLE IF NOT EXISTS audit_logs (
			id              BIGSERIAL PRIMARY KEY,
			email_record_id BIGINT NOT NULL REFERENCES email_records(id),
			action          TEXT NOT NULL,
			performed_by    TEXT NOT NULL DEFAULT '',
			timestamp       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			notes           TEXT NOT NULL DEFAULT '',
			diff_chars      INT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_audit_record ON audit_logs(email_record_id);

		CREATE TABLE IF NOT EXISTS vip_guests (
			id       BIGSERIAL PRIMARY KEY,
			email    TEXT NOT NULL UNIQUE,
			name     TEXT NOT NULL DEFAULT '',
			company  TEXT NOT NULL DEFAULT '',
			tier     TEXT NOT NULL DEFAULT '',
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS style_profiles (
			id              BIGSERIAL PRIMARY KEY,
			learned_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			emails_analyzed INT NOT NULL DEFAULT 0,
			profile_json    JSONB,
			injected_prompt TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

const recordColumns = `id, message_id, thread_id, from_email, from_name, subject, body,
	received_at, processed_at, intent, secondary_intent, confidence, language, urgency,
	entities, policy, risk, risk_score, draft_subject, draft_body, status,
	approved_by, approved_at, sent_at, rejection_reason, requires_manager_approval,
	revenue_attributed, booking_reference`

// Save persists an email record. With a nil updateID it inserts, updating the
// existing row instead when the message identifier was already seen (dedup by
// natural key). With a non-nil updateID it updates that row in place — the
// retry path pairs a synthetically modified message id with the original row
// id so reprocessing never creates duplicates.
func (s *Store) Save(ctx context.Context, rec *models.EmailRecord, updateID *int64) (*models.EmailRecord, error) {
	entities, err := marshalJSONB(rec.Entities)
	if err != nil {
		return nil, fmt.Errorf("marshal entities: %w", err)
	}
	policy, err := marshalJSONB(rec.Policy)
	if err != nil {
		return nil, fmt.Errorf("marshal policy: %w", err)
	}
	risk, err := marshalJSONB(rec.Risk)
	if err != nil {
		return nil, fmt.Errorf("marshal risk: %w", err)
	}

	if updateID != nil {
		row := s.pool.QueryRow(ctx, `
			UPDATE email_records SET
				message_id = $1, thread_id = $2, from_email = $3, from_name = $4,
				subject = $5, body = $6, received_at = $7, processed_at = $8,
				intent = $9, secondary_intent = $10, confidence = $11, language = $12,
				urgency = $13, entities = $14, policy = $15, risk = $16, risk_score = $17,
				draft_subject = $18, draft_body = $19, status = $20,
				requires_manager_approval = $21, revenue_attributed = $22
			WHERE id = $23
			RETURNING id
		`,
			rec.MessageID, rec.ThreadID, rec.FromEmail, rec.FromName,
			rec.Subject, rec.Body, rec.ReceivedAt, rec.ProcessedAt,
			rec.Intent, rec.SecondaryIntent, rec.Confidence, rec.Language,
			rec.Urgency, entities, policy, risk, rec.RiskScore,
			rec.DraftSubject, rec.DraftBody, rec.Status,
			rec.RequiresManagerApproval, rec.RevenueAttributed, *updateID,
		)
		if err := row.Scan(&rec.ID); err != nil {
			return nil, fmt.Errorf("update record %d: %w", *updateID, err)
		}
		return rec, nil
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO email_records
			(message_id, thread_id, from_email, from_name, subject, body,
			 received_at, processed_at, intent, secondary_intent, confidence,
			 language, urgency, entities, policy, risk, risk_score,
			 draft_subject, draft_body, status, requires_manager_approval,
			 revenue_attributed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (message_id) DO UPDATE SET
			processed_at              = EXCLUDED.processed_at,
			intent                    = EXCLUDED.intent,
			secondary_intent          = EXCLUDED.secondary_intent,
			confidence                = EXCLUDED.confidence,
			language                  = EXCLUDED.language,
			urgency                   = EXCLUDED.urgency,
			entities                  = EXCLUDED.entities,
			policy                    = EXCLUDED.policy,
			risk                      = EXCLUDED.risk,
			risk_score                = EXCLUDED.risk_score,
			draft_subject             = EXCLUDED.draft_subject,
			draft_body                = EXCLUDED.draft_body,
			status                    = EXCLUDED.status,
			requires_manager_approval = EXCLUDED.requires_manager_approval,
			revenue_attributed        = EXCLUDED.revenue_attributed
		RETURNING id
	`,
		rec.MessageID, rec.ThreadID, rec.FromEmail, rec.FromName,
		rec.Subject, rec.Body, rec.ReceivedAt, rec.ProcessedAt,
		rec.Intent, rec.SecondaryIntent, rec.Confidence, rec.Language,
		rec.Urgency, entities, policy, risk, rec.RiskScore,
		rec.DraftSubject, rec.DraftBody, rec.Status,
		rec.RequiresManagerApproval, rec.RevenueAttributed,
	)
	if err := row.Scan(&rec.ID); err != nil {
		return nil, fmt.Errorf("insert record %s: %w", rec.MessageID, err)
	}
	return rec, nil
}

// GetByID retrieves a single record, or nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*models.EmailRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM email_records WHERE id = $1`, id)
	return scanRecord(row)
}

// List returns records newest first, optionally filtered by status and intent.
func (s *Store) List(ctx context.Context, status, intent string, limit, offset int) ([]models.EmailRecord, error) {
	query, args, err := buildListQuery(status, intent, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []models.EmailRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// buildListQuery assembles the filtered list statement. Split out so the
// dynamic WHERE clause is testable without a database.
func buildListQuery(status, intent string, limit, offset int) (string, []any, error) {
	qb := sq.Select(
		"id", "message_id", "thread_id", "from_email", "from_name", "subject", "body",
		"received_at", "processed_at", "intent", "secondary_intent", "confidence",
		"language", "urgency", "entities", "policy", "risk", "risk_score",
		"draft_subject", "draft_body", "status", "approved_by", "approved_at",
		"sent_at", "rejection_reason", "requires_manager_approval",
		"revenue_attributed", "booking_reference",
	).
		From("email_records").
		OrderBy("received_at DESC NULLS LAST", "processed_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(sq.Dollar)

	if status != "" {
		qb = qb.Where(sq.Eq{"status": status})
	}
	if intent != "" {
		qb = qb.Where(sq.Eq{"intent": intent})
	}

	return qb.ToSql()
}

// IsProcessed reports whether a message identifier already has a record.
func (s *Store) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM email_records WHERE message_id = $1)`, messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed %s: %w", messageID, err)
	}
	return exists, nil
}

// UpdateStatus advances a record through the approval state machine. For
// "sent" it stamps sent_at and the approver; for "rejected" it records the
// reason.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status, approvedBy, rejectionReason string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}

	switch status {
	case models.StatusSent:
		_, err := s.pool.Exec(ctx, `
			UPDATE email_records
			SET status = $1, sent_at = NOW(), approved_by = $2, approved_at = NOW()
			WHERE id = $3
		`, status, approvedBy, id)
		return err
	case models.StatusRejected:
		_, err := s.pool.Exec(ctx, `
			UPDATE email_records
			SET status = $1, rejection_reason = $2
			WHERE id = $3
		`, status, rejectionReason, id)
		return err
	default:
		_, err := s.pool.Exec(ctx, `
			UPDATE email_records SET status = $1 WHERE id = $2
		`, status, id)
		return err
	}
}

// PrepareRetry primes a record for reprocessing: status back to failed and
// drafts cleared, so operators see the pipeline is redriving it.
func (s *Store) PrepareRetry(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE email_records
		SET status = $1, draft_subject = NULL, draft_body = NULL
		WHERE id = $2
	`, models.StatusFailed, id)
	return err
}

// AddAudit appends an audit event for a record.
func (s *Store) AddAudit(ctx context.Context, recordID int64, action, performedBy, notes string, diffChars int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (email_record_id, action, performed_by, notes, diff_chars)
		VALUES ($1, $2, $3, $4, $5)
	`, recordID, action, performedBy, notes, diffChars)
	return err
}

// LookupVIP finds a known guest by address, or nil.
func (s *Store) LookupVIP(ctx context.Context, email string) (*models.VIPGuest, error) {
	var g models.VIPGuest
	err := s.pool.QueryRow(ctx, `
		SELECT email, name, company, tier FROM vip_guests WHERE email = LOWER($1)
	`, email).Scan(&g.Email, &g.Name, &g.Company, &g.Tier)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup vip %s: %w", email, err)
	}
	return &g, nil
}

// LatestStyleProfile returns the newest style snapshot, or nil when none has
// been learned yet.
func (s *Store) LatestStyleProfile(ctx context.Context) (*models.StyleProfile, error) {
	var (
		p           models.StyleProfile
		profileJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, learned_at, emails_analyzed, profile_json, injected_prompt
		FROM style_profiles
		ORDER BY learned_at DESC
		LIMIT 1
	`).Scan(&p.ID, &p.LearnedAt, &p.EmailsAnalyzed, &profileJSON, &p.InjectedPrompt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest style profile: %w", err)
	}
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &p.ProfileJSON); err != nil {
			return nil, fmt.Errorf("decode style profile: %w", err)
		}
	}
	return &p, nil
}

// SaveStyleProfile appends a new style snapshot (latest row wins on read).
func (s *Store) SaveStyleProfile(ctx context.Context, emailsAnalyzed int, profile map[string]any, injectedPrompt string) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal style profile: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO style_profiles (emails_analyzed, profile_json, injected_prompt)
		VALUES ($1, $2, $3)
	`, emailsAnalyzed, profileJSON, injectedPrompt)
	return err
}

// Analytics summarises the record table for the operator dashboard.
type Analytics struct {
	TotalEmails   int64   `json:"total_emails"`
	PendingReview int64   `json:"pending_review"`
	SentToday     int64   `json:"sent_today"`
	AvgConfidence float64 `json:"avg_confidence"`
	TotalRevenue  float64 `json:"total_revenue_attributed"`
}

// Summary computes the dashboard aggregates.
func (s *Store) Summary(ctx context.Context) (*Analytics, error) {
	var a Analytics
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2 AND sent_at >= date_trunc('day', NOW())),
			COALESCE(AVG(confidence), 0),
			COALESCE(SUM(revenue_attributed), 0)
		FROM email_records
	`, models.StatusDraftCreated, models.StatusSent).Scan(
		&a.TotalEmails, &a.PendingReview, &a.SentToday, &a.AvgConfidence, &a.TotalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}
	return &a, nil
}

// scanRecord scans a single row into an EmailRecord.
func scanRecord(row pgx.Row) (*models.EmailRecord, error) {
	var (
		r        models.EmailRecord
		entities []byte
		policy   []byte
		risk     []byte
	)
	err := row.Scan(
		&r.ID, &r.MessageID, &r.ThreadID, &r.FromEmail, &r.FromName, &r.Subject, &r.Body,
		&r.ReceivedAt, &r.ProcessedAt, &r.Intent, &r.SecondaryIntent, &r.Confidence,
		&r.Language, &r.Urgency, &entities, &policy, &risk, &r.RiskScore,
		&r.DraftSubject, &r.DraftBody, &r.Status, &r.ApprovedBy, &r.ApprovedAt,
		&r.SentAt, &r.RejectionReason, &r.RequiresManagerApproval,
		&r.RevenueAttributed, &r.BookingReference,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &r.Entities); err != nil {
			return nil, fmt.Errorf("decode entities: %w", err)
		}
	}
	if len(policy) > 0 {
		if err := json.Unmarshal(policy, &r.Policy); err != nil {
			return nil, fmt.Errorf("decode policy: %w", err)
		}
	}
	if len(risk) > 0 {
		if err := json.Unmarshal(risk, &r.Risk); err != nil {
			return nil, fmt.Errorf("decode risk: %w", err)
		}
	}
	return &r, nil
}

func marshalJSONB(v any) ([]byte, error) {
	switch x := v.(type) {
	case *models.EntityResult:
		if x == nil {
			return nil, nil
		}
	case *models.PolicyResult:
		if x == nil {
			return nil, nil
		}
	case *models.RiskResult:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
