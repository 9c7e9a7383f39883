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
	"strings"

	"github.com/daselb/concierge/internal/models"
)

// noReplyPrefixes are local-part prefixes of senders that never expect an
// answer. Matched against the raw sender string, so both "noreply@x" and
// "Name <noreply@x>" hit.
var noReplyPrefixes = []string{
	"noreply@",
	"no-reply@",
	"donotreply@",
	"do-not-reply@",
	"mailer-daemon@",
	"postmaster@",
}

// platformDomainFragments mark OTA portals, payment providers, and newsletter
// machinery whose mail is handled in the respective portal, not by reply.
var platformDomainFragments = []string{
	"dirs21.de",
	"booking.com",
	"expedia.com",
	"hotels.com",
	"airbnb.com",
	"trivago.com",
	"hrs.com",
	"hrs.de",
	"newsletter.",
	"versandbestaetigung@",
	"amazon.de",
	"ionos-online-marketing",
	"bueromarkt",
	"paypal",
}

// autoReplySubjectPhrases flag out-of-office and bounce subjects in German
// and English.
var autoReplySubjectPhrases = []string{
	"automatische antwort",
	"auto-reply",
	"out of office",
	"abwesenheitsnotiz",
	"außer haus",
	"nicht im büro",
	"unsubscribe",
	"delivery failure",
	"undelivered",
	"unzustellbar",
	"mailer-daemon",
}

// automatedBodyMarkers are generator phrases scanned for in the leading part
// of the body.
var automatedBodyMarkers = []string{
	"diese e-mail wurde automatisch generiert",
	"diese nachricht wurde automatisch",
	"this is an automated message",
	"this email was sent automatically",
	"do not reply to this email",
	"bitte nicht auf diese e-mail antworten",
}

// bodyScanChars bounds the automated-marker scan.
const bodyScanChars = 2000

// NoReplyPolicy decides whether an email should be answered at all. The
// decision is a pure function of its inputs.
type NoReplyPolicy struct {
	// HotelSenders are the hotel's own addresses and domains. Mail from
	// ourselves (loops, sent-items echoes) is never answered.
	HotelSenders []string
}

// SkipDecision is the outcome of the no-reply check.
type SkipDecision struct {
	Skip   bool
	Reason string
}

// ShouldSkip evaluates the skip rules in order and short-circuits on the
// first hit. risk and intent come from a completed classification; a nil risk
// disables the model-flag rule.
func (p *NoReplyPolicy) ShouldSkip(fromEmail, subject, body string, risk *models.RiskResult, intent string, learnedPatterns []string) SkipDecision {
	sender := strings.ToLower(strings.TrimSpace(fromEmail))
	subj := strings.ToLower(subject)

	for _, own := range p.HotelSenders {
		own = strings.ToLower(own)
		if sender == own || strings.HasSuffix(sender, own) {
			return SkipDecision{Skip: true, Reason: "own hotel sender: " + own}
		}
	}

	for _, prefix := range noReplyPrefixes {
		if strings.HasPrefix(sender, prefix) || strings.Contains(sender, "<"+prefix) {
			return SkipDecision{Skip: true, Reason: "no-reply sender: " + prefix}
		}
	}

	for _, fragment := range platformDomainFragments {
		if strings.Contains(sender, fragment) {
			return SkipDecision{Skip: true, Reason: "platform sender: " + fragment}
		}
	}

	for _, phrase := range autoReplySubjectPhrases {
		if strings.Contains(subj, phrase) {
			return SkipDecision{Skip: true, Reason: "auto-reply subject: " + phrase}
		}
	}

	scan := strings.ToLower(body)
	if len(scan) > bodyScanChars {
		scan = scan[:bodyScanChars]
	}
	for _, marker := range automatedBodyMarkers {
		if strings.Contains(scan, marker) {
			return SkipDecision{Skip: true, Reason: "automated body marker: " + marker}
		}
	}

	if risk != nil && risk.IsAutomatedMessage && intent == "other" {
		return SkipDecision{Skip: true, Reason: "classified as automated message"}
	}

	for _, pattern := range learnedPatterns {
		if pattern != "" && strings.Contains(sender, strings.ToLower(pattern)) {
			return SkipDecision{Skip: true, Reason: "learned no-reply pattern: " + pattern}
		}
	}

	return SkipDecision{}
}
