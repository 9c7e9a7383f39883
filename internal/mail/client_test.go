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

package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient bypasses the OAuth2 flow so tests exercise the API surface
// without a token endpoint.
func newTestClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		mailbox:    "rezeption@das-elb.de",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestFetchNewParsesMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$orderby") != "receivedDateTime asc" {
			t.Errorf("missing orderby, got query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{
					"id":               "msg-1",
					"conversationId":   "thread-1",
					"subject":          "Zimmeranfrage",
					"receivedDateTime": "2026-08-30T09:15:00Z",
					"from": map[string]any{
						"emailAddress": map[string]any{
							"name":    "Anna Schmidt",
							"address": "anna.schmidt@example.com",
						},
					},
					"body": map[string]any{
						"contentType": "html",
						"content":     "<p>Haben Sie ein Zimmer frei?</p>",
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	emails, err := c.FetchNew(context.Background(), 7, 50)
	if err != nil {
		t.Fatalf("FetchNew: %v", err)
	}
	if len(emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(emails))
	}

	e := emails[0]
	if e.MessageID != "msg-1" || e.ThreadID != "thread-1" {
		t.Errorf("wrong identifiers: %+v", e)
	}
	if e.FromEmail != "anna.schmidt@example.com" || e.FromName != "Anna Schmidt" {
		t.Errorf("wrong sender: %+v", e)
	}
	if e.ReceivedAt == nil || e.ReceivedAt.UTC().Hour() != 9 {
		t.Errorf("wrong received timestamp: %v", e.ReceivedAt)
	}
}

func TestFetchNewServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.FetchNew(context.Background(), 7, 50); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestSendBuildsPayload(t *testing.T) {
	var got sendMailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Send(context.Background(), "anna.schmidt@example.com", "Re: Zimmeranfrage", "Sehr geehrte Frau Schmidt, ...", "msg-1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Message.Subject != "Re: Zimmeranfrage" {
		t.Errorf("wrong subject: %q", got.Message.Subject)
	}
	if len(got.Message.ToRecipients) != 1 || got.Message.ToRecipients[0].EmailAddress.Address != "anna.schmidt@example.com" {
		t.Errorf("wrong recipients: %+v", got.Message.ToRecipients)
	}
	if len(got.Message.Headers) != 1 || got.Message.Headers[0].Value != "msg-1" {
		t.Errorf("threading header not set: %+v", got.Message.Headers)
	}
	if !got.SaveToSentItems {
		t.Error("expected SaveToSentItems")
	}
}
