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

package models

// Agent outputs are decoded from model JSON immediately after the gateway call
// returns. Every field is optional: an absent key decodes to the zero value or
// nil, and downstream code must tolerate both. An entirely empty result means
// "no data extracted", not an error.

// IntentResult is the intent classifier's output.
type IntentResult struct {
	PrimaryIntent   string  `json:"primary_intent,omitempty"`
	SecondaryIntent string  `json:"secondary_intent,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	Language        string  `json:"language,omitempty"`
	Urgency         string  `json:"urgency,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// Intent returns the primary intent, defaulting to the catch-all category.
func (r IntentResult) Intent() string {
	if r.PrimaryIntent == "" {
		return "other"
	}
	return r.PrimaryIntent
}

// Lang returns the detected language, defaulting to German.
func (r IntentResult) Lang() string {
	if r.Language == "" {
		return "de"
	}
	return r.Language
}

// EntityResult is the structured booking data the entity extractor pulled out
// of the email. Pointer fields distinguish "not mentioned" from zero.
type EntityResult struct {
	GuestName                string             `json:"guest_name,omitempty"`
	GuestEmail               string             `json:"guest_email,omitempty"`
	GuestPhone               string             `json:"guest_phone,omitempty"`
	CompanyName              string             `json:"company_name,omitempty"`
	CheckInDate              string             `json:"check_in_date,omitempty"`
	CheckOutDate             string             `json:"check_out_date,omitempty"`
	Nights                   *int               `json:"nights,omitempty"`
	RoomTypeRequested        string             `json:"room_type_requested,omitempty"`
	NumAdults                *int               `json:"num_adults,omitempty"`
	NumChildren              *int               `json:"num_children,omitempty"`
	NumAttendees             *int               `json:"num_attendees,omitempty"`
	ConferenceRoomPreference string             `json:"conference_room_preference,omitempty"`
	CateringPackage          string             `json:"catering_package,omitempty"`
	EquipmentNeeded          []string           `json:"equipment_needed,omitempty"`
	SpecialRequests          string             `json:"special_requests,omitempty"`
	BudgetMentioned          string             `json:"budget_mentioned,omitempty"`
	EstimatedRevenue         *float64           `json:"estimated_revenue,omitempty"`
	ReservationDate          string             `json:"reservation_date,omitempty"`
	ReservationTime          string             `json:"reservation_time,omitempty"`
	NumPersonsDining         *int               `json:"num_persons_dining,omitempty"`
	ExistingBookingReference string             `json:"existing_booking_reference,omitempty"`
	FieldConfidence          map[string]float64 `json:"field_confidence,omitempty"`
}

// Revenue returns the extractor's revenue estimate, or 0 when absent.
func (r EntityResult) Revenue() float64 {
	if r.EstimatedRevenue == nil {
		return 0
	}
	return *r.EstimatedRevenue
}

// PolicyAlternative is a suggested substitute when the requested room is not
// available.
type PolicyAlternative struct {
	RoomType      string  `json:"room_type,omitempty"`
	PricePerNight float64 `json:"price_per_night,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// PolicyResult is the policy validator's output, including computed pricing
// and the manager-approval flag.
type PolicyResult struct {
	IsFulfillable           bool                `json:"is_fulfillable,omitempty"`
	AvailabilityChecked     bool                `json:"availability_checked,omitempty"`
	RoomAvailable           *bool               `json:"room_available,omitempty"`
	LivePricePerNight       *float64            `json:"live_price_per_night,omitempty"`
	TotalEstimatedPrice     *float64            `json:"total_estimated_price,omitempty"`
	PriceBreakdown          map[string]*float64 `json:"price_breakdown,omitempty"`
	PolicyIssues            []string            `json:"policy_issues,omitempty"`
	Alternatives            []PolicyAlternative `json:"alternatives,omitempty"`
	RequiresManagerApproval bool                `json:"requires_manager_approval,omitempty"`
	ManagerApprovalReason   string              `json:"manager_approval_reason,omitempty"`
	UpsellOpportunities     []string            `json:"upsell_opportunities,omitempty"`
	PolicyNotes             string              `json:"policy_notes,omitempty"`
}

// RiskResult is the risk and sentiment analyzer's output.
type RiskResult struct {
	Sentiment                 string   `json:"sentiment,omitempty"`
	AngerLevel                int      `json:"anger_level,omitempty"`
	LegalRisk                 bool     `json:"legal_risk,omitempty"`
	LegalRiskIndicators       []string `json:"legal_risk_indicators,omitempty"`
	IsVIPSignal               bool     `json:"is_vip_signal,omitempty"`
	VIPIndicators             []string `json:"vip_indicators,omitempty"`
	ComplaintSeverity         string   `json:"complaint_severity,omitempty"`
	RequiresManagerEscalation bool     `json:"requires_manager_escalation,omitempty"`
	EscalationReason          string   `json:"escalation_reason,omitempty"`
	EstimatedRevenueEUR       *float64 `json:"estimated_revenue_eur,omitempty"`
	RevenueCategory           string   `json:"revenue_category,omitempty"`
	NotifyStaffImmediately    bool     `json:"notify_staff_immediately,omitempty"`
	NotificationReason        string   `json:"notification_reason,omitempty"`
	OverallRiskScore          float64  `json:"overall_risk_score,omitempty"`
	RecommendedPriority       string   `json:"recommended_priority,omitempty"`
	IsAutomatedMessage        bool     `json:"is_automated_message,omitempty"`
	AutomatedMessageReason    string   `json:"automated_message_reason,omitempty"`
}

// DraftResult is the composed candidate reply.
type DraftResult struct {
	Subject                     string `json:"subject,omitempty"`
	BodyText                    string `json:"body_text,omitempty"`
	DetectedLanguage            string `json:"detected_language,omitempty"`
	IncludesPriceQuote          bool   `json:"includes_price_quote,omitempty"`
	IncludesBookingConfirmation bool   `json:"includes_booking_confirmation,omitempty"`
	ActionRequiredByStaff       string `json:"action_required_by_staff,omitempty"`
}
