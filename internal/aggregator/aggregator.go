package aggregator

import (
	"math"

	"call-review-go/internal/types"
)

// Summary condenses a set of evaluated calls.
type Summary struct {
	Count             int                `json:"count"`
	DimensionMeans    map[string]float64 `json:"dimension_means"`
	MeanOverallScore  float64            `json:"mean_overall_score"`
	WeakestDimension  string             `json:"weakest_dimension,omitempty"`
	WeakestMean       float64            `json:"weakest_mean"`
	SalespersonCounts map[string]int     `json:"salesperson_counts"`
}

// Summarize averages each rubric dimension and the overall score. The weakest
// dimension is the one with the lowest mean; ties go to the earlier dimension
// in rubric order.
func Summarize(records []types.CallRecord) Summary {
	s := Summary{
		Count:             len(records),
		DimensionMeans:    map[string]float64{},
		SalespersonCounts: map[string]int{},
	}
	if len(records) == 0 {
		return s
	}

	totals := map[string]int{}
	var order []string
	var overall float64
	for _, r := range records {
		for _, d := range r.Evaluation.Dimensions() {
			if _, seen := totals[d.Name]; !seen {
				order = append(order, d.Name)
			}
			totals[d.Name] += d.Score
		}
		overall += r.Evaluation.OverallScore
		if r.SalespersonName != "" {
			s.SalespersonCounts[r.SalespersonName]++
		}
	}

	n := float64(len(records))
	for i, name := range order {
		mean := round2(float64(totals[name]) / n)
		s.DimensionMeans[name] = mean
		if i == 0 || mean < s.WeakestMean {
			s.WeakestDimension, s.WeakestMean = name, mean
		}
	}
	s.MeanOverallScore = round2(overall / n)
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
