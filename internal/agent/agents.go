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
	"fmt"

	"github.com/daselb/concierge/internal/models"
)

// Agents wraps the gateway with the five role-specific invocations. Each
// returns a typed result decoded at the boundary; an empty gateway result
// decodes to a zero-valued struct, which callers treat as "no data extracted".
type Agents struct {
	gw Gateway
}

// NewAgents binds the role agents to a gateway.
func NewAgents(gw Gateway) *Agents {
	return &Agents{gw: gw}
}

// ClassifyIntent runs the intent classification agent.
func (a *Agents) ClassifyIntent(ctx context.Context, subject, body string) (models.IntentResult, error) {
	msg := fmt.Sprintf("Subject: %s\n\nBody:\n%s", subject, body)
	raw, err := a.gw.Invoke(ctx, intentPrompt, msg, 512)
	if err != nil {
		return models.IntentResult{}, fmt.Errorf("classify intent: %w", err)
	}
	var result models.IntentResult
	if err := decode(raw, &result); err != nil {
		return models.IntentResult{}, fmt.Errorf("classify intent: %w", err)
	}
	return result, nil
}

// ExtractEntities runs the entity extraction agent.
func (a *Agents) ExtractEntities(ctx context.Context, subject, body, intent string) (models.EntityResult, error) {
	msg := fmt.Sprintf("Classified intent: %s\n\nSubject: %s\n\nBody:\n%s", intent, subject, body)
	raw, err := a.gw.Invoke(ctx, entityPrompt, msg, 1024)
	if err != nil {
		return models.EntityResult{}, fmt.Errorf("extract entities: %w", err)
	}
	var result models.EntityResult
	if err := decode(raw, &result); err != nil {
		return models.EntityResult{}, fmt.Errorf("extract entities: %w", err)
	}
	return result, nil
}

// AnalyzeRisk runs the risk and sentiment agent.
func (a *Agents) AnalyzeRisk(ctx context.Context, subject, body string) (models.RiskResult, error) {
	msg := fmt.Sprintf("Subject: %s\n\nBody:\n%s", subject, body)
	raw, err := a.gw.Invoke(ctx, riskPrompt, msg, 768)
	if err != nil {
		return models.RiskResult{}, fmt.Errorf("analyze risk: %w", err)
	}
	var result models.RiskResult
	if err := decode(raw, &result); err != nil {
		return models.RiskResult{}, fmt.Errorf("analyze risk: %w", err)
	}
	return result, nil
}

// ValidatePolicy runs the policy validation agent over the extracted entities
// plus whatever live availability data the caller gathered. Absent live data
// is passed through as empty structures — the agent must cope.
func (a *Agents) ValidatePolicy(ctx context.Context, entities models.EntityResult, intent string, availability map[string]any, rooms []map[string]any) (models.PolicyResult, error) {
	entitiesJSON, _ := json.MarshalIndent(entities, "", "  ")
	availabilityJSON, _ := json.MarshalIndent(availability, "", "  ")
	roomsJSON, _ := json.MarshalIndent(rooms, "", "  ")

	msg := fmt.Sprintf(
		"INTENT: %s\n\nEXTRACTED ENTITIES:\n%s\n\nLIVE AVAILABILITY RESPONSE:\n%s\n\nLIVE ROOMS DATA:\n%s",
		intent, entitiesJSON, availabilityJSON, roomsJSON,
	)
	raw, err := a.gw.Invoke(ctx, policyPrompt, msg, 1024)
	if err != nil {
		return models.PolicyResult{}, fmt.Errorf("validate policy: %w", err)
	}
	var result models.PolicyResult
	if err := decode(raw, &result); err != nil {
		return models.PolicyResult{}, fmt.Errorf("validate policy: %w", err)
	}
	return result, nil
}

// ComposeInput carries everything the reply composer needs.
type ComposeInput struct {
	Subject  string
	Body     string
	Intent   string
	Language string
	Entities models.EntityResult
	Policy   models.PolicyResult
	Risk     models.RiskResult
	VIP      *models.VIPGuest

	// StyleInjection is the learned writing-style prompt fragment, appended
	// to the composer's role prompt when present.
	StyleInjection string
}

// ComposeReply runs the response writer agent.
func (a *Agents) ComposeReply(ctx context.Context, in ComposeInput) (models.DraftResult, error) {
	systemPrompt := composePrompt
	if in.StyleInjection != "" {
		systemPrompt = composePrompt + "\n\n" + in.StyleInjection
	}

	entitiesJSON, _ := json.MarshalIndent(in.Entities, "", "  ")
	policyJSON, _ := json.MarshalIndent(in.Policy, "", "  ")
	riskJSON, _ := json.MarshalIndent(in.Risk, "", "  ")

	vipText := "Not a known VIP guest"
	if in.VIP != nil {
		vipJSON, _ := json.Marshal(in.VIP)
		vipText = string(vipJSON)
	}

	msg := fmt.Sprintf(
		"ORIGINAL EMAIL:\nSubject: %s\nBody:\n%s\n\nINTENT: %s\nDETECTED LANGUAGE: %s\n\nEXTRACTED ENTITIES:\n%s\n\nPOLICY VALIDATION:\n%s\n\nRISK ASSESSMENT:\n%s\n\nVIP STATUS: %s",
		in.Subject, in.Body, in.Intent, in.Language, entitiesJSON, policyJSON, riskJSON, vipText,
	)
	raw, err := a.gw.Invoke(ctx, systemPrompt, msg, 2048)
	if err != nil {
		return models.DraftResult{}, fmt.Errorf("compose reply: %w", err)
	}
	var result models.DraftResult
	if err := decode(raw, &result); err != nil {
		return models.DraftResult{}, fmt.Errorf("compose reply: %w", err)
	}
	return result, nil
}

// decode maps a gateway result onto a typed struct. Unknown keys are dropped;
// absent keys leave zero values.
func decode(raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("re-marshal agent result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode agent result: %w", err)
	}
	return nil
}
