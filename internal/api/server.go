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

// Package api exposes the operator surface: record review, the approval
// workflow, poll and import triggers, job handles, style-profile uploads, and
// analytics. Everything under /api requires the shared API key; /health and
// /metrics do not.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daselb/concierge/internal/jobs"
	"github.com/daselb/concierge/internal/models"
	"github.com/daselb/concierge/internal/store"
)

// RecordStore is the persistence surface the handlers need. Satisfied by
// store.Store.
type RecordStore interface {
	GetByID(ctx context.Context, id int64) (*models.EmailRecord, error)
	List(ctx context.Context, status, intent string, limit, offset int) ([]models.EmailRecord, error)
	UpdateStatus(ctx context.Context, id int64, status, approvedBy, rejectionReason string) error
	PrepareRetry(ctx context.Context, id int64) error
	AddAudit(ctx context.Context, recordID int64, action, performedBy, notes string, diffChars int) error
	SaveStyleProfile(ctx context.Context, emailsAnalyzed int, profile map[string]any, injectedPrompt string) error
	Summary(ctx context.Context) (*store.Analytics, error)
}

// MailSender delivers approved replies. Satisfied by mail.Client.
type MailSender interface {
	Send(ctx context.Context, to, subject, body, inReplyTo string) error
}

// Escalator routes records to the manager. Satisfied by notify.Notifier.
type Escalator interface {
	Escalate(ctx context.Context, rec *models.EmailRecord, reason string)
}

// Mailbox triggers poll cycles. Satisfied by poller.Poller.
type Mailbox interface {
	PollOnce(ctx context.Context) error
	ImportAll(ctx context.Context) error
}

// Processor reruns the pipeline for retries. Satisfied by
// pipeline.Orchestrator.
type Processor interface {
	Process(ctx context.Context, email models.IncomingEmail, updateID *int64) (*models.EmailRecord, error)
}

// Config carries the server's dependencies.
type Config struct {
	APIKey    string
	Store     RecordStore
	Mail      MailSender
	Escalator Escalator
	Mailbox   Mailbox
	Pipeline  Processor
	Jobs      *jobs.Runner
}

// Server is the HTTP operator surface.
type Server struct {
	cfg    Config
	router *mux.Router
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	s := &Server{cfg: cfg, router: mux.NewRouter()}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.requireAPIKey)
	api.HandleFunc("/emails", s.handleListEmails).Methods(http.MethodGet)
	api.HandleFunc("/emails/{id:[0-9]+}", s.handleGetEmail).Methods(http.MethodGet)
	api.HandleFunc("/emails/{id:[0-9]+}/approve", s.handleApprove).Methods(http.MethodPost)
	api.HandleFunc("/emails/{id:[0-9]+}/reject", s.handleReject).Methods(http.MethodPost)
	api.HandleFunc("/emails/{id:[0-9]+}/escalate", s.handleEscalate).Methods(http.MethodPost)
	api.HandleFunc("/emails/{id:[0-9]+}/retry", s.handleRetry).Methods(http.MethodPost)
	api.HandleFunc("/trigger-poll", s.handleTriggerPoll).Methods(http.MethodPost)
	api.HandleFunc("/import-all", s.handleImportAll).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	api.HandleFunc("/style-profile", s.handleSaveStyleProfile).Methods(http.MethodPost)
	api.HandleFunc("/analytics/summary", s.handleAnalytics).Methods(http.MethodGet)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requireAPIKey rejects requests without the shared key.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != s.cfg.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON serializes a response payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

// writeError serializes an error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
