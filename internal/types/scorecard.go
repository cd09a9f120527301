// internal/types/scorecard.go
package types

// --------------------------------------------
// Scorecard returned by the call audit.
// The json keys are the wire contract with the model: they must match the
// rubric schema property names exactly, including "Overall Score".
// --------------------------------------------
type Scorecard struct {
	PitchFollowed         int     `json:"pitch_followed" bson:"pitch_followed"`
	Confidence            int     `json:"confidence" bson:"confidence"`
	Tonality              int     `json:"tonality" bson:"tonality"`
	Energy                int     `json:"energy" bson:"energy"`
	Enthusiasm            int     `json:"enthusiasm" bson:"enthusiasm"`
	CustomerUnderstanding int     `json:"customer_understanding" bson:"customer_understanding"`
	CommunicationSkills   int     `json:"communication_skills" bson:"communication_skills"`
	ObjectionHandling     int     `json:"objection_handling" bson:"objection_handling"`
	ClosingSkills         int     `json:"closing_skills" bson:"closing_skills"`
	OverallScore          float64 `json:"Overall Score" bson:"Overall Score"`
	Conclusion            string  `json:"conclusion" bson:"conclusion"`
}

// DimensionScore is one rubric dimension and its score.
type DimensionScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Dimensions returns the nine rubric scores in rubric order.
func (s Scorecard) Dimensions() []DimensionScore {
	return []DimensionScore{
		{"pitch_followed", s.PitchFollowed},
		{"confidence", s.Confidence},
		{"tonality", s.Tonality},
		{"energy", s.Energy},
		{"enthusiasm", s.Enthusiasm},
		{"customer_understanding", s.CustomerUnderstanding},
		{"communication_skills", s.CommunicationSkills},
		{"objection_handling", s.ObjectionHandling},
		{"closing_skills", s.ClosingSkills},
	}
}
