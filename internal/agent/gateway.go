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

// Package agent provides the LLM call gateway and the five role-specific
// agents built on top of it. The gateway is the only component that talks to
// the model provider; everything above it deals in typed results.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/daselb/concierge/internal/config"
	"github.com/daselb/concierge/internal/metrics"
)

// Gateway is the agent call boundary: one role prompt, one user message, one
// structured result. An empty map means the model answered but no structured
// data could be recovered; an error means the call itself failed after all
// retries.
type Gateway interface {
	Invoke(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (map[string]any, error)
}

// tokenSteps is the output-budget ladder walked when the model truncates its
// answer mid-JSON.
var tokenSteps = []int{512, 1024, 2048, 4096, 8192}

// ChatClient implements Gateway against an OpenAI-compatible chat-completions
// endpoint.
type ChatClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	retries     int
	httpClient  *http.Client

	// backoff is replaceable in tests.
	backoff func(attempt int) time.Duration
}

// NewChatClient builds a gateway client from configuration.
func NewChatClient(cfg config.LLMConfig) *ChatClient {
	return &ChatClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		retries:     cfg.Retries,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: func(attempt int) time.Duration {
			d := time.Duration(1<<attempt) * time.Second
			if d > 30*time.Second {
				d = 30 * time.Second
			}
			return d
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Invoke calls the model and returns the parsed JSON object it produced.
//
// Retry strategy, bounded by the configured retry budget:
//   - truncated output (finish_reason "length"): step up the token ladder
//   - HTTP 429: exponential backoff
//   - other transport/API errors: short backoff, error after final attempt
//   - unparseable output: sanitize and retry, empty map after final attempt
func (c *ChatClient) Invoke(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (map[string]any, error) {
	start := time.Now()
	result, err := c.invoke(ctx, systemPrompt, userMessage, maxTokens)
	if err != nil {
		metrics.RecordLLMCall("error", time.Since(start))
		return nil, err
	}
	metrics.RecordLLMCall("success", time.Since(start))
	return result, nil
}

func (c *ChatClient) invoke(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (map[string]any, error) {
	if maxTokens <= 0 {
		maxTokens = tokenSteps[0]
	}

	// Build the token ladder starting at the requested budget.
	ladder := make([]int, 0, len(tokenSteps))
	for _, t := range tokenSteps {
		if t >= maxTokens {
			ladder = append(ladder, t)
		}
	}
	if len(ladder) == 0 {
		ladder = []int{maxTokens}
	}
	ladderIdx := 0

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		raw, finishReason, err := c.complete(ctx, systemPrompt, userMessage, ladder[ladderIdx])
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt == c.retries-1 {
				break
			}
			slog.Warn("gateway call failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
			continue
		}

		if finishReason == "length" {
			if ladderIdx+1 < len(ladder) {
				ladderIdx++
				slog.Warn("model output truncated, stepping up token budget",
					"attempt", attempt+1,
					"max_tokens", ladder[ladderIdx],
				)
				continue
			}
			return nil, fmt.Errorf("model output truncated even at %d tokens", ladder[ladderIdx])
		}

		result, err := parseModelJSON(raw)
		if err != nil {
			lastErr = err
			if attempt == c.retries-1 {
				// Degrade to "no data extracted" — the pipeline must treat
				// this as an empty result, not a crash.
				slog.Error("model output unparseable on all attempts, returning empty result",
					"error", err,
				)
				return map[string]any{}, nil
			}
			slog.Warn("model output unparseable, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		return result, nil
	}

	return nil, fmt.Errorf("gateway call failed after %d attempts: %w", c.retries, lastErr)
}

// complete performs one chat-completions round trip and returns the raw
// message content plus the finish reason.
func (c *ChatClient) complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", "", fmt.Errorf("chat endpoint rate limited (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", "", fmt.Errorf("chat endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", "", fmt.Errorf("chat endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", "", fmt.Errorf("chat response has no choices")
	}

	choice := parsed.Choices[0]
	return strings.TrimSpace(choice.Message.Content), choice.FinishReason, nil
}

// parseModelJSON strips markdown code fences, sanitizes invalid escape
// sequences, and parses the model output into a JSON object.
func parseModelJSON(raw string) (map[string]any, error) {
	cleaned := stripFences(raw)

	var result map[string]any
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		return result, nil
	}

	sanitized := sanitizeEscapes(cleaned)
	if err := json.Unmarshal([]byte(sanitized), &result); err != nil {
		return nil, fmt.Errorf("parse model JSON: %w", err)
	}
	return result, nil
}

// stripFences removes ```json ... ``` or ``` ... ``` wrappers.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// sanitizeEscapes doubles any backslash not followed by a valid JSON escape
// character. Models occasionally emit sequences like \P inside German text.
func sanitizeEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && strings.IndexByte(`"\/bfnrtu`, s[i+1]) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}
