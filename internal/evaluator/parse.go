package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

// ParseScorecard validates model output against the rubric. The object must
// carry exactly the rubric's keys with the declared types; anything else is an
// EvaluationFormatError and nothing is salvaged.
func ParseScorecard(content string, r Rubric) (types.Scorecard, error) {
	raw := extractJSON(content)
	if raw == "" {
		return types.Scorecard{}, errs.EvaluationFormat("model response contains no JSON object", nil).
			WithDetail("response", truncate(content, 200))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return types.Scorecard{}, errs.EvaluationFormat("model response is not valid JSON", err)
	}

	var missing, extra []string
	for _, name := range r.Required() {
		v, ok := fields[name]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			missing = append(missing, name)
		}
	}
	for name := range fields {
		if !r.has(name) {
			extra = append(extra, name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(extra)
		e := errs.EvaluationFormat(keyProblem(missing, extra), nil)
		if len(missing) > 0 {
			e = e.WithDetail("missing", strings.Join(missing, ","))
		}
		if len(extra) > 0 {
			e = e.WithDetail("unexpected", strings.Join(extra, ","))
		}
		return types.Scorecard{}, e
	}

	var sc types.Scorecard
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return types.Scorecard{}, errs.EvaluationFormat("model response has wrong field types", err)
	}
	return sc, nil
}

func keyProblem(missing, extra []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected fields: "+strings.Join(extra, ", "))
	}
	return fmt.Sprintf("scorecard does not match rubric (%s)", strings.Join(parts, "; "))
}

// extractJSON strips markdown fences and returns the first balanced object.
// Braces inside string literals are ignored.
func extractJSON(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		lines = append(lines, line)
	}
	s = strings.Join(lines, "\n")

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// contentFromChoices pulls the first choice's message text out of a chat
// completion body.
func contentFromChoices(body []byte) (string, bool) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return "", false
	}
	return parsed.Choices[0].Message.Content, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
