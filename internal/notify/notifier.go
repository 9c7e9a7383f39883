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

// Package notify alerts hotel staff about emails that need a human now:
// WhatsApp to the duty manager via the Twilio REST API, with an email
// fallback for escalations. Notification failures are logged and swallowed —
// an unreachable messaging provider must never fail the pipeline.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/daselb/concierge/internal/config"
	"github.com/daselb/concierge/internal/models"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// MailSender sends the escalation fallback email. Satisfied by mail.Client.
type MailSender interface {
	Send(ctx context.Context, to, subject, body, inReplyTo string) error
}

// Notifier delivers staff alerts.
type Notifier struct {
	cfg        config.NotifyConfig
	apiBase    string
	mailer     MailSender
	httpClient *http.Client
}

// New creates a notifier. mailer may be nil when no escalation email fallback
// is configured.
func New(cfg config.NotifyConfig, mailer MailSender) *Notifier {
	return &Notifier{
		cfg:     cfg,
		apiBase: twilioAPIBase,
		mailer:  mailer,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ShouldNotify decides whether a processed email warrants an immediate staff
// alert.
func ShouldNotify(risk *models.RiskResult, policy *models.PolicyResult) bool {
	if risk != nil && risk.NotifyStaffImmediately {
		return true
	}
	if policy != nil && policy.RequiresManagerApproval {
		return true
	}
	if risk != nil && risk.RecommendedPriority == "urgent" {
		return true
	}
	return false
}

// NotifyStaff sends the WhatsApp alert for a record. All errors are logged,
// never returned.
func (n *Notifier) NotifyStaff(ctx context.Context, rec *models.EmailRecord) {
	if !n.cfg.Enabled {
		return
	}

	msg := buildStaffMessage(rec)
	if err := n.sendWhatsApp(ctx, n.cfg.ManagerWhatsApp, msg); err != nil {
		slog.Error("staff notification failed",
			"record_id", rec.ID,
			"error", err,
		)
		return
	}
	slog.Info("staff notified", "record_id", rec.ID, "intent", rec.Intent)
}

// Escalate sends the manager escalation email for records flagged by an
// operator. Errors are logged, never returned.
func (n *Notifier) Escalate(ctx context.Context, rec *models.EmailRecord, reason string) {
	if n.mailer == nil || n.cfg.ManagerEmail == "" {
		slog.Warn("escalation requested but no manager email configured", "record_id", rec.ID)
		return
	}

	subject := fmt.Sprintf("[Eskalation] %s", rec.Subject)
	body := fmt.Sprintf(
		"Eine Gäste-E-Mail wurde zur Prüfung eskaliert.\n\nVon: %s <%s>\nBetreff: %s\nIntent: %s\nGrund: %s\n\nBitte im Dashboard prüfen (Record #%d).",
		rec.FromName, rec.FromEmail, rec.Subject, rec.Intent, reason, rec.ID,
	)
	if err := n.mailer.Send(ctx, n.cfg.ManagerEmail, subject, body, ""); err != nil {
		slog.Error("escalation email failed", "record_id", rec.ID, "error", err)
		return
	}
	slog.Info("escalation email sent", "record_id", rec.ID)
}

// buildStaffMessage formats the short WhatsApp alert text.
func buildStaffMessage(rec *models.EmailRecord) string {
	var b strings.Builder
	b.WriteString("🏨 Das ELB: Neue E-Mail braucht Aufmerksamkeit\n")
	fmt.Fprintf(&b, "Von: %s <%s>\n", rec.FromName, rec.FromEmail)
	fmt.Fprintf(&b, "Betreff: %s\n", rec.Subject)
	fmt.Fprintf(&b, "Intent: %s", rec.Intent)
	if rec.Risk != nil {
		if rec.Risk.NotificationReason != "" {
			fmt.Fprintf(&b, "\nGrund: %s", rec.Risk.NotificationReason)
		}
		fmt.Fprintf(&b, "\nPriorität: %s", rec.Risk.RecommendedPriority)
	}
	if rec.RevenueAttributed > 0 {
		fmt.Fprintf(&b, "\nGesch. Umsatz: %.0f EUR", rec.RevenueAttributed)
	}
	return b.String()
}

// sendWhatsApp posts one message through the Twilio Messages API.
func (n *Notifier) sendWhatsApp(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("From", "whatsapp:"+n.cfg.WhatsAppFrom)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", n.apiBase, n.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(n.cfg.AccountSID, n.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("twilio returned HTTP %d", resp.StatusCode)
	}
	return nil
}
