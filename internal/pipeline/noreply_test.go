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

package pipeline

import (
	"testing"

	"github.com/daselb/concierge/internal/models"
)

var testPolicy = NoReplyPolicy{
	HotelSenders: []string{"rezeption@das-elb.de", "info@das-elb.de", "das-elb.de"},
}

func TestShouldSkipRules(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		subject string
		body    string
		risk    *models.RiskResult
		intent  string
		learned []string
		skip    bool
	}{
		{name: "regular guest passes", from: "anna.schmidt@example.com", subject: "Zimmeranfrage", body: "Haben Sie ein Zimmer frei?"},
		{name: "own reception address", from: "rezeption@das-elb.de", subject: "Fwd: Anfrage", skip: true},
		{name: "own domain suffix", from: "buchhaltung@das-elb.de", subject: "Rechnung", skip: true},
		{name: "noreply prefix", from: "noreply@news.example.com", subject: "Angebot", skip: true},
		{name: "noreply in display form", from: "Beispiel Portal <no-reply@portal.example.com>", subject: "Update", skip: true},
		{name: "mailer daemon", from: "mailer-daemon@mx.example.com", subject: "Returned mail", skip: true},
		{name: "OTA platform domain", from: "noreply@booking.com", subject: "Neue Buchung", skip: true},
		{name: "channel manager", from: "system@dirs21.de", subject: "Sync", skip: true},
		{name: "paypal notification", from: "service@paypal.de", subject: "Zahlung erhalten", skip: true},
		{name: "out of office subject", from: "gast@example.com", subject: "Automatische Antwort: Ihre Anfrage", skip: true},
		{name: "english out of office", from: "guest@example.com", subject: "Out of Office re: booking", skip: true},
		{name: "bounce subject", from: "gast@example.com", subject: "Mail unzustellbar", skip: true},
		{name: "german generated body", from: "gast@example.com", subject: "Bestellung", body: "Sehr geehrte Damen und Herren,\ndiese E-Mail wurde automatisch generiert.", skip: true},
		{name: "english generated body", from: "guest@example.com", subject: "Receipt", body: "This is an automated message. Do not respond.", skip: true},
		{
			name: "marker beyond scan window ignored",
			from: "gast@example.com", subject: "Anfrage",
			body: string(make([]byte, 2500)) + "this is an automated message",
		},
		{
			name: "risk automated with other intent",
			from: "gast@example.com", subject: "Info",
			risk: &models.RiskResult{IsAutomatedMessage: true}, intent: "other",
			skip: true,
		},
		{
			name: "risk automated but real intent keeps reply",
			from: "gast@example.com", subject: "Buchung",
			risk: &models.RiskResult{IsAutomatedMessage: true}, intent: "room_booking",
		},
		{
			name: "learned pattern",
			from: "updates@portal-xyz.example.com", subject: "Statusbericht",
			learned: []string{"portal-xyz"},
			skip:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testPolicy.ShouldSkip(tt.from, tt.subject, tt.body, tt.risk, tt.intent, tt.learned)
			if d.Skip != tt.skip {
				t.Errorf("ShouldSkip(%q, %q) = %v (%s), want %v", tt.from, tt.subject, d.Skip, d.Reason, tt.skip)
			}
			if d.Skip && d.Reason == "" {
				t.Error("skip decisions must carry a reason")
			}
		})
	}
}

func TestShouldSkipIsDeterministic(t *testing.T) {
	// Same inputs, same answer: the check must be a pure function.
	for i := 0; i < 3; i++ {
		d := testPolicy.ShouldSkip("noreply@booking.com", "Neue Buchung", "", nil, "", nil)
		if !d.Skip {
			t.Fatalf("iteration %d: expected skip", i)
		}
	}
}
