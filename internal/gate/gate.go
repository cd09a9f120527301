// Package gate decides which transcripts are long enough to be evaluated.
package gate

import (
	"fmt"

	"call-review-go/internal/duration"
)

// DefaultMinSeconds is the shortest call that gets evaluated.
const DefaultMinSeconds = 200

type Gate struct {
	MinSeconds float64
}

func Default() Gate {
	return Gate{MinSeconds: DefaultMinSeconds}
}

// Admit reports whether a transcript of duration d qualifies for evaluation.
// Unknown durations are never admitted.
func (g Gate) Admit(d *float64) bool {
	return d != nil && *d > g.MinSeconds
}

// Shortfall describes why a file was not admitted.
func (g Gate) Shortfall(fileName string, d *float64) string {
	if d == nil {
		return fmt.Sprintf("The call duration for '%s' could not be determined, so it cannot be evaluated.", fileName)
	}
	return fmt.Sprintf("The call duration for '%s' is %s, which is less than the required %s.",
		fileName, duration.Format(*d), duration.Format(g.MinSeconds))
}
