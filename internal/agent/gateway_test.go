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

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daselb/concierge/internal/config"
)

func newTestGateway(endpoint string) *ChatClient {
	c := NewChatClient(config.LLMConfig{
		Endpoint:    endpoint,
		Model:       "test-model",
		APIKey:      "key",
		Temperature: 0.3,
		Retries:     5,
	})
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func chatReply(content, finishReason string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"content": content},
				"finish_reason": finishReason,
			},
		},
	}
}

func TestInvokeParsesFencedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatReply("```json\n{\"primary_intent\": \"room_booking\"}\n```", "stop"))
	}))
	defer srv.Close()

	result, err := newTestGateway(srv.URL).Invoke(context.Background(), "system", "user", 512)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result["primary_intent"] != "room_booking" {
		t.Errorf("result = %v", result)
	}
}

func TestInvokeStepsUpTokenLadder(t *testing.T) {
	var budgets []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		budgets = append(budgets, req.MaxTokens)

		if req.MaxTokens < 2048 {
			json.NewEncoder(w).Encode(chatReply(`{"partial`, "length"))
			return
		}
		json.NewEncoder(w).Encode(chatReply(`{"ok": true}`, "stop"))
	}))
	defer srv.Close()

	result, err := newTestGateway(srv.URL).Invoke(context.Background(), "system", "user", 512)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("result = %v", result)
	}

	want := []int{512, 1024, 2048}
	if len(budgets) != len(want) {
		t.Fatalf("budgets = %v, want %v", budgets, want)
	}
	for i := range want {
		if budgets[i] != want[i] {
			t.Errorf("budgets = %v, want %v", budgets, want)
			break
		}
	}
}

func TestInvokeRetriesRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatReply(`{"ok": true}`, "stop"))
	}))
	defer srv.Close()

	result, err := newTestGateway(srv.URL).Invoke(context.Background(), "system", "user", 512)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result["ok"] != true || calls != 3 {
		t.Errorf("result = %v after %d calls", result, calls)
	}
}

func TestInvokeErrorsAfterRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := newTestGateway(srv.URL).Invoke(context.Background(), "system", "user", 512); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestInvokeDegradesToEmptyOnUnparseableOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatReply("Sorry, I cannot produce JSON here.", "stop"))
	}))
	defer srv.Close()

	result, err := newTestGateway(srv.URL).Invoke(context.Background(), "system", "user", 512)
	if err != nil {
		t.Fatalf("unparseable output must degrade, not error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("result = %v, want empty map", result)
	}
}

func TestParseModelJSONSanitizesEscapes(t *testing.T) {
	// \P is not a valid JSON escape; models emit this inside German text.
	raw := `{"note": "Preis inkl. 7\% MwSt", "path": "a\Pb"}`
	result, err := parseModelJSON(raw)
	if err != nil {
		t.Fatalf("parseModelJSON: %v", err)
	}
	if result["note"] != `Preis inkl. 7\% MwSt` {
		t.Errorf("note = %q", result["note"])
	}
}

func TestSanitizeEscapesKeepsValidSequences(t *testing.T) {
	in := `{"a": "line\nbreak \"quoted\" ä"}`
	if got := sanitizeEscapes(in); got != in {
		t.Errorf("valid escapes must pass through unchanged:\n in: %s\nout: %s", in, got)
	}
}
