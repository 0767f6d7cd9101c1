// Copyright 2025 Poiesic Systems
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


package openai

import "strings"

// repairJSON fixes the one malformation the model produces often enough to
// matter: a key that lost its opening quote, as in `{sentiment": "negative"`
// or `, intent": "churn_risk"`. Response keys are plain snake_case
// identifiers, so a bare identifier run after '{' or ',' that ends in `":`
// gets its opening quote restored. Anything else passes through untouched.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); {
		ch := s[i]
		b.WriteByte(ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		ws := i
		for ws < len(s) && (s[ws] == ' ' || s[ws] == '\t' || s[ws] == '\n') {
			ws++
		}
		end := ws
		for end < len(s) && isKeyByte(s[end]) {
			end++
		}
		if end > ws && end+1 < len(s) && s[end] == '"' && s[end+1] == ':' {
			b.WriteString(s[i:ws])
			b.WriteByte('"')
			b.WriteString(s[ws:end])
			i = end
		}
	}

	return b.String()
}

// isKeyByte reports whether b can appear in a snake_case response key.
func isKeyByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
