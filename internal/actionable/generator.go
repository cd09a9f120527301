package actionable

import (
	"fmt"

	"call-review-go/internal/aggregator"
)

// ActionCard is a coaching suggestion for a set of reviewed calls.
type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

// coachingThreshold is the dimension mean below which a card asks for coaching.
const coachingThreshold = 6.0

var coaching = map[string]string{
	"pitch_followed":         "Rehearse the flat walkthrough: layout, pricing and possession dates in the scripted order",
	"confidence":             "Prepare answers to the ten most common prospect doubts and role-play them",
	"tonality":               "Review call recordings for tone shifts under pressure; keep a steady, warm register",
	"energy":                 "Open calls with a clear agenda and keep momentum through the middle of the call",
	"enthusiasm":             "Share one concrete highlight of each property the prospect has not asked about",
	"customer_understanding": "Ask two discovery questions about budget and family needs before pitching",
	"communication_skills":   "Slow down, summarise what the prospect said, and confirm before moving on",
	"objection_handling":     "Acknowledge each objection, answer it with a fact, then check it is resolved",
	"closing_skills":         "End every call by proposing a specific next step such as a dated site visit",
}

// Generate turns a summary into a coaching card focused on the weakest dimension.
func Generate(s aggregator.Summary) ActionCard {
	if s.Count == 0 || s.WeakestDimension == "" {
		return ActionCard{
			Insight: "No evaluated calls match this selection",
			Action:  "Upload calls longer than the minimum duration to get a review",
			Impact:  "None yet",
		}
	}
	if s.WeakestMean < coachingThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("Weakest dimension is %s (mean %.2f over %d calls)", s.WeakestDimension, s.WeakestMean, s.Count),
			Action:  coaching[s.WeakestDimension],
			Impact:  "Lift the lowest-scoring part of the call and the overall score with it",
		}
	}
	return ActionCard{
		Insight: fmt.Sprintf("All dimensions average %.1f or better; mean overall %.2f", coachingThreshold, s.MeanOverallScore),
		Action:  fmt.Sprintf("Keep current practice; refine %s first", s.WeakestDimension),
		Impact:  "Maintain call quality",
	}
}
