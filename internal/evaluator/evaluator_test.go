package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"call-review-go/internal/config"
	"call-review-go/internal/errs"
	"call-review-go/internal/logger"
)

const validScorecard = `{
	"pitch_followed": 8, "confidence": 7, "tonality": 6, "energy": 7, "enthusiasm": 8,
	"customer_understanding": 6, "communication_skills": 7, "objection_handling": 5,
	"closing_skills": 4, "Overall Score": 6.4,
	"conclusion": "Handled {pricing} well but did not close."
}`

func TestDefaultRubricConformsToScorecard(t *testing.T) {
	if err := CheckConformance(DefaultRubric); err != nil {
		t.Fatalf("default rubric drifted: %v", err)
	}
}

func TestCheckConformanceDetectsDrift(t *testing.T) {
	r := DefaultRubric
	r.Properties = append([]Property(nil), DefaultRubric.Properties[:len(DefaultRubric.Properties)-1]...)
	r.Properties = append(r.Properties, Property{Name: "summary", Type: "string"})

	err := CheckConformance(r)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), `"summary" missing from scorecard`) || !strings.Contains(err.Error(), `"conclusion" missing from rubric`) {
		t.Fatalf("unexpected drift message: %v", err)
	}
}

func TestCheckConformanceDetectsTypeMismatch(t *testing.T) {
	r := DefaultRubric
	r.Properties = append([]Property(nil), DefaultRubric.Properties...)
	r.Properties[0].Type = "string"
	if err := CheckConformance(r); err == nil || !strings.Contains(err.Error(), "pitch_followed") {
		t.Fatalf("expected type mismatch on pitch_followed, got %v", err)
	}
}

func TestToolJSONShape(t *testing.T) {
	out, err := DefaultRubric.ToolJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name       string `json:"name"`
			Strict     bool   `json:"strict"`
			Parameters struct {
				Properties           map[string]map[string]string `json:"properties"`
				AdditionalProperties bool                         `json:"additionalProperties"`
				Required             []string                     `json:"required"`
			} `json:"parameters"`
		} `json:"function"`
	}
	if err := json.Unmarshal([]byte(out), &tools); err != nil {
		t.Fatalf("tool json invalid: %v", err)
	}
	fn := tools[0].Function
	if fn.Name != "call_audit" || !fn.Strict || fn.Parameters.AdditionalProperties {
		t.Fatalf("unexpected tool header %+v", fn)
	}
	if len(fn.Parameters.Required) != 11 || len(fn.Parameters.Properties) != 11 {
		t.Fatalf("expected 11 required properties, got %d/%d", len(fn.Parameters.Required), len(fn.Parameters.Properties))
	}
	if fn.Parameters.Properties["Overall Score"]["type"] != "decimal" {
		t.Fatalf("Overall Score should be decimal, got %v", fn.Parameters.Properties["Overall Score"])
	}
	if strings.Index(out, "pitch_followed") > strings.Index(out, "closing_skills") {
		t.Fatal("properties should keep rubric order")
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(DefaultRubric, "Agent: hello")
	for _, want := range []string{"Be highly critical", "verbatim", `"Agent: hello"`, "objection_handling", "output the evaluation as JSON"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParseScorecard(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "plain", content: validScorecard},
		{name: "fenced with prose", content: "Here is the audit:\n```json\n" + validScorecard + "\n```\nThanks."},
		{name: "no json", content: "I cannot score this call.", wantErr: "no JSON object"},
		{name: "truncated", content: `{"pitch_followed": 8, "confidence": 7`, wantErr: "no JSON object"},
		{name: "missing field", content: strings.Replace(validScorecard, `"closing_skills": 4,`, "", 1), wantErr: "missing fields: closing_skills"},
		{name: "null field", content: strings.Replace(validScorecard, `"energy": 7`, `"energy": null`, 1), wantErr: "missing fields: energy"},
		{name: "extra field", content: strings.Replace(validScorecard, `"energy": 7,`, `"energy": 7, "rapport": 3,`, 1), wantErr: "unexpected fields: rapport"},
		{name: "wrong type", content: strings.Replace(validScorecard, `"tonality": 6`, `"tonality": "six"`, 1), wantErr: "wrong field types"},
		{name: "fractional integer", content: strings.Replace(validScorecard, `"tonality": 6`, `"tonality": 6.5`, 1), wantErr: "wrong field types"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := ParseScorecard(tt.content, DefaultRubric)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if sc.PitchFollowed != 8 || sc.OverallScore != 6.4 || sc.Conclusion != "Handled {pricing} well but did not close." {
					t.Fatalf("unexpected scorecard %+v", sc)
				}
				return
			}
			if !errs.Is(err, errs.EvaluationFormatError) {
				t.Fatalf("expected evaluation format error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %v", tt.wantErr, err)
			}
		})
	}
}

func TestChatClientEvaluate(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": validScorecard}}},
		})
	}))
	defer ts.Close()

	c, err := NewChatClient(config.LLMConfig{APIKey: "k", BaseURL: ts.URL, Model: "gpt-4", Temperature: 0.7, MaxTokens: 500}, DefaultRubric)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc, err := c.Evaluate(context.Background(), "Agent: hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.ClosingSkills != 4 {
		t.Fatalf("unexpected scorecard %+v", sc)
	}
	if got.Model != "gpt-4" || got.Temperature != 0.7 || got.MaxTokens != 500 || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Messages[0].Role != "system" || !strings.Contains(got.Messages[0].Content, `"call_audit"`) {
		t.Fatalf("system message should embed the tool schema")
	}
}

func TestChatClientUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "Rate limit reached"}}`))
	}))
	defer ts.Close()

	c, _ := NewChatClient(config.LLMConfig{BaseURL: ts.URL}, DefaultRubric)
	_, err := c.Evaluate(context.Background(), "x")
	if !errs.Is(err, errs.EvaluationFormatError) || !strings.Contains(err.Error(), "Rate limit reached") {
		t.Fatalf("expected evaluation error with upstream message, got %v", err)
	}
}

func TestGuardTimeoutIsEvaluationError(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	c, _ := NewChatClient(config.LLMConfig{BaseURL: ts.URL}, DefaultRubric)
	ev := Guard(c, 20*time.Millisecond, logger.Discard())
	_, err := ev.Evaluate(context.Background(), "x")
	if !errs.Is(err, errs.EvaluationFormatError) || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout evaluation error, got %v", err)
	}
}

func TestMockEvaluatorProducesValidScorecard(t *testing.T) {
	ev, err := New(config.LLMConfig{Provider: "mock", Timeout: time.Second}, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc, err := ev.Evaluate(context.Background(), "Agent: hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.OverallScore == 0 || sc.Conclusion == "" {
		t.Fatalf("mock scorecard incomplete: %+v", sc)
	}
}
