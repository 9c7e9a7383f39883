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
	"testing"
)

func TestNormalizeBodyStripsHTML(t *testing.T) {
	html := `<html><body>
		<style>p { color: red; }</style>
		<p>Sehr geehrte Damen und Herren,</p>
		<p>haben Sie vom <b>12.10.</b> bis 14.10. ein Zimmer frei?</p>
		<script>track();</script>
	</body></html>`

	got := normalizeBody(html)

	if strings.Contains(got, "<") {
		t.Errorf("tags survived: %q", got)
	}
	if strings.Contains(got, "track()") || strings.Contains(got, "color: red") {
		t.Errorf("script/style content survived: %q", got)
	}
	if !strings.Contains(got, "Sehr geehrte Damen und Herren,") {
		t.Errorf("text content lost: %q", got)
	}
	if !strings.Contains(got, "haben Sie vom 12.10. bis 14.10. ein Zimmer frei?") {
		t.Errorf("inline markup not flattened: %q", got)
	}
}

func TestNormalizeBodyCollapsesWhitespace(t *testing.T) {
	in := "Hallo,\n\n\n\n   ich hätte   eine Frage.  \n\n\nViele Grüße\n\n\n"
	want := "Hallo,\n\nich hätte eine Frage.\n\nViele Grüße"
	if got := normalizeBody(in); got != want {
		t.Errorf("normalizeBody = %q, want %q", got, want)
	}
}

func TestNormalizeBodyCapsLength(t *testing.T) {
	in := strings.Repeat("a", 10000)
	got := normalizeBody(in)

	if !strings.HasSuffix(got, truncationMarker) {
		t.Errorf("missing truncation marker: ...%q", got[len(got)-30:])
	}
	if len(got) != maxAgentBodyChars+len(truncationMarker) {
		t.Errorf("capped length = %d, want %d", len(got), maxAgentBodyChars+len(truncationMarker))
	}
}

func TestNormalizeBodyShortPlainTextUntouched(t *testing.T) {
	in := "Guten Tag,\nich möchte einen Tisch reservieren."
	if got := normalizeBody(in); got != in {
		t.Errorf("normalizeBody = %q, want unchanged", got)
	}
}
