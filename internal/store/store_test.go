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

package store

import (
	"strings"
	"testing"
)

func TestBuildListQueryNoFilters(t *testing.T) {
	query, args, err := buildListQuery("", "", 50, 0)
	if err != nil {
		t.Fatalf("buildListQuery: %v", err)
	}
	if strings.Contains(query, "WHERE") {
		t.Errorf("unfiltered query must not have a WHERE clause: %s", query)
	}
	if !strings.Contains(query, "ORDER BY received_at DESC NULLS LAST, processed_at DESC") {
		t.Errorf("missing ordering clause: %s", query)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestBuildListQueryFilters(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		intent   string
		wantArgs int
	}{
		{"status only", "draft_created", "", 1},
		{"intent only", "", "room_booking", 1},
		{"both", "sent", "complaint", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildListQuery(tt.status, tt.intent, 20, 40)
			if err != nil {
				t.Fatalf("buildListQuery: %v", err)
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("expected %d args, got %v", tt.wantArgs, args)
			}
			if tt.status != "" && !strings.Contains(query, "status = $") {
				t.Errorf("missing status filter: %s", query)
			}
			if tt.intent != "" && !strings.Contains(query, "intent = $") {
				t.Errorf("missing intent filter: %s", query)
			}
			if !strings.Contains(query, "LIMIT 20") || !strings.Contains(query, "OFFSET 40") {
				t.Errorf("missing pagination: %s", query)
			}
		})
	}
}
