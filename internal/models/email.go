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

// Package models defines the data structures shared across the concierge service.
package models

import "time"

// Workflow statuses for an EmailRecord. The pipeline only ever drives a record
// into NoReplyNeeded, DraftCreated, or Failed; the remaining transitions belong
// to the operator surface.
const (
	StatusReceived      = "received"
	StatusNoReplyNeeded = "no_reply_needed"
	StatusDraftCreated  = "draft_created"
	StatusApproved      = "approved"
	StatusSent          = "sent"
	StatusRejected      = "rejected"
	StatusEscalated     = "escalated"
	StatusFailed        = "failed"
)

// ValidStatus reports whether s belongs to the closed status set.
func ValidStatus(s string) bool {
	switch s {
	case StatusReceived, StatusNoReplyNeeded, StatusDraftCreated, StatusApproved,
		StatusSent, StatusRejected, StatusEscalated, StatusFailed:
		return true
	}
	return false
}

// IncomingEmail is a fetched message ready for the drafting pipeline.
type IncomingEmail struct {
	MessageID  string     `json:"message_id"`
	ThreadID   string     `json:"thread_id,omitempty"`
	FromEmail  string     `json:"from_email"`
	FromName   string     `json:"from_name,omitempty"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// EmailRecord is the unit of work and its persisted outcome: one row per
// incoming email, keyed by the provider message ID, mutated in place as the
// pipeline and the approval surface advance it through the status machine.
type EmailRecord struct {
	ID        int64  `json:"id"`
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id,omitempty"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name,omitempty"`
	Subject   string `json:"subject"`
	// Body is the raw, un-normalized message body. Agents only ever see the
	// stripped and capped version; storage keeps the original.
	Body        string     `json:"body"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
	ProcessedAt time.Time  `json:"processed_at"`

	// Intent classification outputs.
	Intent          string  `json:"intent,omitempty"`
	SecondaryIntent string  `json:"secondary_intent,omitempty"`
	Confidence      float64 `json:"confidence"`
	Language        string  `json:"language,omitempty"`
	Urgency         string  `json:"urgency,omitempty"`

	// Structured agent outputs, persisted as JSONB.
	Entities *EntityResult `json:"entities,omitempty"`
	Policy   *PolicyResult `json:"policy,omitempty"`
	Risk     *RiskResult   `json:"risk,omitempty"`

	RiskScore float64 `json:"risk_score"`

	// Draft fields stay nil until the composition stage completes.
	DraftSubject *string `json:"draft_subject,omitempty"`
	DraftBody    *string `json:"draft_body,omitempty"`

	Status          string     `json:"status"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	RequiresManagerApproval bool `json:"requires_manager_approval"`

	// RevenueAttributed is always present and defaults to 0 so aggregate
	// sums stay well-defined.
	RevenueAttributed float64 `json:"revenue_attributed"`
	BookingReference  string  `json:"booking_reference,omitempty"`
}

// AuditEntry is an append-only event attached to an EmailRecord. Only the
// operator surface writes these, never the pipeline.
type AuditEntry struct {
	ID            int64     `json:"id"`
	EmailRecordID int64     `json:"email_record_id"`
	Action        string    `json:"action"`
	PerformedBy   string    `json:"performed_by"`
	Timestamp     time.Time `json:"timestamp"`
	Notes         string    `json:"notes,omitempty"`
	DiffChars     int       `json:"diff_chars,omitempty"`
}

// VIPGuest is a row in the known-guest registry, looked up by sender address
// during Stage 1.
type VIPGuest struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Tier    string `json:"tier,omitempty"`
}

// StyleProfile is the latest learned writing-style snapshot. It is refreshed
// by an external batch job; the pipeline consumes it read-only.
type StyleProfile struct {
	ID             int64          `json:"id"`
	LearnedAt      time.Time      `json:"learned_at"`
	EmailsAnalyzed int            `json:"emails_analyzed"`
	ProfileJSON    map[string]any `json:"profile_json,omitempty"`
	InjectedPrompt string         `json:"injected_prompt,omitempty"`
}

// NoReplySenderPatterns returns the sender substrings the style learner has
// flagged as never needing a reply. Missing or malformed profile data yields
// an empty list.
func (p *StyleProfile) NoReplySenderPatterns() []string {
	if p == nil || p.ProfileJSON == nil {
		return nil
	}
	raw, ok := p.ProfileJSON["no_reply_sender_patterns"].([]any)
	if !ok {
		return nil
	}
	patterns := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			patterns = append(patterns, s)
		}
	}
	return patterns
}
