package evaluator

import (
	"context"
	"fmt"

	"call-review-go/internal/duration"
	"call-review-go/internal/types"
)

// MockEvaluator returns a fixed scorecard without calling a model. The output
// still goes through ParseScorecard so it honours the same contract.
type MockEvaluator struct {
	Rubric Rubric
}

const mockResponse = "```json\n" + `{
  "pitch_followed": 7,
  "confidence": 6,
  "tonality": 7,
  "energy": 6,
  "enthusiasm": 6,
  "customer_understanding": 7,
  "communication_skills": 7,
  "objection_handling": 5,
  "closing_skills": 4,
  "Overall Score": 6.1,
  "conclusion": %q
}` + "\n```"

func (m MockEvaluator) Evaluate(_ context.Context, transcript string) (types.Scorecard, error) {
	conclusion := fmt.Sprintf(
		"The agent answered the price concern directly but never asked for a site visit. Transcript length %s.",
		duration.FormatPtr(duration.Estimate(transcript)),
	)
	return ParseScorecard(fmt.Sprintf(mockResponse, conclusion), m.Rubric)
}
