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

// Package hotelapi queries the hotel management system for live room
// availability and pricing. Both lookups degrade to empty results on any
// error — the pipeline proceeds with absent data rather than aborting.
package hotelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// requestTimeout bounds each lookup; a slow management API must not stall the
// pipeline.
const requestTimeout = 5 * time.Second

// Client talks to the hotel management public API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a hotel management API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Availability fetches real-time availability for a room type and date range.
// Returns an empty map on any error.
func (c *Client) Availability(ctx context.Context, roomType, checkIn, checkOut string) map[string]any {
	params := url.Values{}
	params.Set("check_in", checkIn)
	params.Set("check_out", checkOut)
	params.Set("room_type", roomType)

	var result map[string]any
	if err := c.get(ctx, "/api/public/availability?"+params.Encode(), &result); err != nil {
		slog.Warn("availability lookup failed, proceeding without live data", "error", err)
		return map[string]any{}
	}
	if result == nil {
		return map[string]any{}
	}
	return result
}

// Rooms fetches the live room list with pricing. Returns an empty slice on
// any error.
func (c *Client) Rooms(ctx context.Context) []map[string]any {
	var result []map[string]any
	if err := c.get(ctx, "/api/public/rooms", &result); err != nil {
		slog.Warn("rooms lookup failed, proceeding without live data", "error", err)
		return []map[string]any{}
	}
	if result == nil {
		return []map[string]any{}
	}
	return result
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hotel API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hotel API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode hotel API response: %w", err)
	}
	return nil
}
