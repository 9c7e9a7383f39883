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

package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/daselb/concierge/internal/config"
	"github.com/daselb/concierge/internal/models"
)

func TestShouldNotify(t *testing.T) {
	tests := []struct {
		name   string
		risk   *models.RiskResult
		policy *models.PolicyResult
		want   bool
	}{
		{"nothing set", &models.RiskResult{}, &models.PolicyResult{}, false},
		{"nil results", nil, nil, false},
		{"staff flag", &models.RiskResult{NotifyStaffImmediately: true}, nil, true},
		{"manager approval", nil, &models.PolicyResult{RequiresManagerApproval: true}, true},
		{"urgent priority", &models.RiskResult{RecommendedPriority: "urgent"}, nil, true},
		{"high priority is not enough", &models.RiskResult{RecommendedPriority: "high"}, &models.PolicyResult{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotify(tt.risk, tt.policy); got != tt.want {
				t.Errorf("ShouldNotify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotifyStaffPostsToTwilio(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			t.Error("expected basic auth")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		form = r.PostForm
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{
		Enabled:         true,
		AccountSID:      "AC123",
		AuthToken:       "token",
		WhatsAppFrom:    "+4915700000000",
		ManagerWhatsApp: "+4915711111111",
	}, nil)
	n.apiBase = srv.URL

	rec := &models.EmailRecord{
		ID:        7,
		FromEmail: "anna.schmidt@example.com",
		FromName:  "Anna Schmidt",
		Subject:   "Beschwerde",
		Intent:    "complaint",
		Risk:      &models.RiskResult{RecommendedPriority: "urgent", NotificationReason: "anger level 9"},
	}
	n.NotifyStaff(context.Background(), rec)

	if form == nil {
		t.Fatal("no request reached the Twilio endpoint")
	}
	if got := form.Get("To"); got != "whatsapp:+4915711111111" {
		t.Errorf("wrong To: %q", got)
	}
	if got := form.Get("From"); got != "whatsapp:+4915700000000" {
		t.Errorf("wrong From: %q", got)
	}
	if body := form.Get("Body"); body == "" {
		t.Error("empty message body")
	}
}

func TestNotifyStaffSwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{
		Enabled:         true,
		AccountSID:      "AC123",
		AuthToken:       "bad",
		WhatsAppFrom:    "+4915700000000",
		ManagerWhatsApp: "+4915711111111",
	}, nil)
	n.apiBase = srv.URL

	// Must not panic or propagate the failure.
	n.NotifyStaff(context.Background(), &models.EmailRecord{ID: 1})
}

func TestNotifyStaffDisabled(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := New(config.NotifyConfig{Enabled: false}, nil)
	n.apiBase = srv.URL
	n.NotifyStaff(context.Background(), &models.EmailRecord{ID: 1})

	if called {
		t.Error("disabled notifier must not call the API")
	}
}

type fakeMailer struct {
	to      string
	subject string
	body    string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body, inReplyTo string) error {
	f.to, f.subject, f.body = to, subject, body
	return nil
}

func TestEscalateSendsEmail(t *testing.T) {
	m := &fakeMailer{}
	n := New(config.NotifyConfig{ManagerEmail: "manager@das-elb.de"}, m)

	rec := &models.EmailRecord{ID: 42, Subject: "Gruppenanfrage", FromEmail: "x@example.com", Intent: "group_booking"}
	n.Escalate(context.Background(), rec, "revenue above threshold")

	if m.to != "manager@das-elb.de" {
		t.Errorf("wrong recipient: %q", m.to)
	}
	if m.subject != "[Eskalation] Gruppenanfrage" {
		t.Errorf("wrong subject: %q", m.subject)
	}
}
