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

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/daselb/concierge/internal/models"
)

// retrySuffix marks reprocessed message IDs so the natural-key constraint
// never collides with the original row during the rerun.
const retrySuffix = "_retry"

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be 1..500")
			return
		}
		limit = n
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be >= 0")
			return
		}
		offset = n
	}
	status := q.Get("status")
	if status != "" && !models.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	records, err := s.cfg.Store.List(r.Context(), status, q.Get("intent"), limit, offset)
	if err != nil {
		slog.Error("list records failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list records failed")
		return
	}
	if records == nil {
		records = []models.EmailRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"emails": records,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by"`
	// Subject and Body override the draft when the operator edited it
	// before sending.
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}

	var req approveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ApprovedBy == "" {
		writeError(w, http.StatusBadRequest, "approved_by is required")
		return
	}
	if rec.DraftBody == nil || rec.DraftSubject == nil {
		writeError(w, http.StatusConflict, "record has no draft to approve")
		return
	}
	if rec.Status == models.StatusSent {
		writeError(w, http.StatusConflict, "record already sent")
		return
	}

	subject := *rec.DraftSubject
	if req.Subject != "" {
		subject = req.Subject
	}
	body := *rec.DraftBody
	if req.Body != "" {
		body = req.Body
	}
	diff := diffChars(*rec.DraftBody, body) + diffChars(*rec.DraftSubject, subject)

	if err := s.cfg.Mail.Send(r.Context(), rec.FromEmail, subject, body, rec.MessageID); err != nil {
		slog.Error("send approved reply failed", "record_id", rec.ID, "error", err)
		writeError(w, http.StatusBadGateway, "sending the reply failed")
		return
	}

	if err := s.cfg.Store.UpdateStatus(r.Context(), rec.ID, models.StatusSent, req.ApprovedBy, ""); err != nil {
		slog.Error("mark record sent failed", "record_id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "reply sent but status update failed")
		return
	}
	s.audit(r.Context(), rec.ID, "approved_and_sent", req.ApprovedBy, "", diff)

	slog.Info("reply approved and sent", "record_id", rec.ID, "approved_by", req.ApprovedBy, "edited_chars", diff)
	writeJSON(w, http.StatusOK, map[string]any{"status": models.StatusSent, "edited_chars": diff})
}

type rejectRequest struct {
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}

	var req rejectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RejectedBy == "" {
		writeError(w, http.StatusBadRequest, "rejected_by is required")
		return
	}

	if err := s.cfg.Store.UpdateStatus(r.Context(), rec.ID, models.StatusRejected, "", req.Reason); err != nil {
		slog.Error("reject record failed", "record_id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "reject failed")
		return
	}
	s.audit(r.Context(), rec.ID, "rejected", req.RejectedBy, req.Reason, 0)

	writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusRejected})
}

type escalateRequest struct {
	EscalatedBy string `json:"escalated_by"`
	Reason      string `json:"reason"`
}

func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}

	var req escalateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EscalatedBy == "" {
		writeError(w, http.StatusBadRequest, "escalated_by is required")
		return
	}

	if err := s.cfg.Store.UpdateStatus(r.Context(), rec.ID, models.StatusEscalated, "", ""); err != nil {
		slog.Error("escalate record failed", "record_id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "escalate failed")
		return
	}
	s.audit(r.Context(), rec.ID, "escalated", req.EscalatedBy, req.Reason, 0)

	if s.cfg.Escalator != nil {
		s.cfg.Escalator.Escalate(context.WithoutCancel(r.Context()), rec, req.Reason)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusEscalated})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	rec := s.loadRecord(w, r)
	if rec == nil {
		return
	}
	if rec.Status == models.StatusSent {
		writeError(w, http.StatusConflict, "sent records cannot be reprocessed")
		return
	}

	if err := s.cfg.Store.PrepareRetry(r.Context(), rec.ID); err != nil {
		slog.Error("prepare retry failed", "record_id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "prepare retry failed")
		return
	}

	rowID := rec.ID
	email := models.IncomingEmail{
		MessageID:  rec.MessageID + retrySuffix,
		ThreadID:   rec.ThreadID,
		FromEmail:  rec.FromEmail,
		FromName:   rec.FromName,
		Subject:    rec.Subject,
		Body:       rec.Body,
		ReceivedAt: rec.ReceivedAt,
	}
	job := s.cfg.Jobs.Submit("retry", func(ctx context.Context) error {
		_, err := s.cfg.Pipeline.Process(ctx, email, &rowID)
		return err
	})
	s.audit(r.Context(), rec.ID, "retry_requested", "", "job "+job.ID, 0)

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleTriggerPoll(w http.ResponseWriter, r *http.Request) {
	job := s.cfg.Jobs.Submit("poll", func(ctx context.Context) error {
		return s.cfg.Mailbox.PollOnce(ctx)
	})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleImportAll(w http.ResponseWriter, r *http.Request) {
	job := s.cfg.Jobs.Submit("import-all", func(ctx context.Context) error {
		return s.cfg.Mailbox.ImportAll(ctx)
	})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.cfg.Jobs.Get(mux.Vars(r)["id"])
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type styleProfileRequest struct {
	EmailsAnalyzed int            `json:"emails_analyzed"`
	Profile        map[string]any `json:"profile"`
	InjectedPrompt string         `json:"injected_prompt"`
}

// handleSaveStyleProfile stores a style snapshot produced by the offline
// learner. The pipeline picks up the newest one on its next run.
func (s *Server) handleSaveStyleProfile(w http.ResponseWriter, r *http.Request) {
	var req styleProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Profile) == 0 && req.InjectedPrompt == "" {
		writeError(w, http.StatusBadRequest, "profile or injected_prompt is required")
		return
	}

	if err := s.cfg.Store.SaveStyleProfile(r.Context(), req.EmailsAnalyzed, req.Profile, req.InjectedPrompt); err != nil {
		slog.Error("save style profile failed", "error", err)
		writeError(w, http.StatusInternalServerError, "save style profile failed")
		return
	}

	slog.Info("style profile stored", "emails_analyzed", req.EmailsAnalyzed)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.cfg.Store.Summary(r.Context())
	if err != nil {
		slog.Error("analytics summary failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analytics failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// loadRecord resolves the {id} path variable to a record, writing the error
// response itself when the record cannot be served.
func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) *models.EmailRecord {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return nil
	}
	rec, err := s.cfg.Store.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("load record failed", "record_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "load record failed")
		return nil
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "record not found")
		return nil
	}
	return rec
}

// decodeBody parses a JSON request body, writing the 400 itself on failure.
// An empty body decodes to the zero request.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// diffChars measures how much an operator edit changed a draft: positionwise
// differing characters plus the length delta.
func diffChars(a, b string) int {
	if a == b {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	diff := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff + (len(a) - n) + (len(b) - n)
}

// audit records an operator action, logging instead of failing the request
// when the write does not land.
func (s *Server) audit(ctx context.Context, recordID int64, action, by, notes string, diff int) {
	if err := s.cfg.Store.AddAudit(ctx, recordID, action, by, notes, diff); err != nil {
		slog.Error("audit write failed", "record_id", recordID, "action", action, "error", err)
	}
}
