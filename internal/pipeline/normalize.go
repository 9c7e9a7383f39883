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

	"github.com/PuerkitoBio/goquery"
)

// maxAgentBodyChars caps the body text handed to agents. The raw body is
// persisted in full regardless.
const maxAgentBodyChars = 4000

const truncationMarker = "\n...[truncated]"

// normalizeBody prepares an email body for agent consumption: HTML stripped
// to text, whitespace collapsed, length capped. Plain-text bodies pass
// through the same whitespace and length treatment.
func normalizeBody(body string) string {
	text := body
	if looksLikeHTML(body) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
			doc.Find("script, style").Remove()
			text = doc.Text()
		}
	}

	text = collapseWhitespace(text)

	if len(text) > maxAgentBodyChars {
		text = text[:maxAgentBodyChars] + truncationMarker
	}
	return text
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<div") ||
		strings.Contains(lower, "<p>") ||
		strings.Contains(lower, "<br")
}

// collapseWhitespace trims each line and drops runs of blank lines down to
// one, keeping paragraph structure readable for the model.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, strings.Join(strings.Fields(line), " "))
	}
	// Drop a trailing blank line.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
