// Package duration estimates spoken duration from transcript text.
package duration

import (
	"math"
	"strconv"
	"strings"
)

// WordsPerMinute is the assumed speaking rate used when the transcription
// service does not report a duration.
const WordsPerMinute = 120

// Estimate returns the spoken duration in seconds, rounded to two decimals,
// or nil when text has no words.
func Estimate(text string) *float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return nil
	}
	secs := round2(float64(words) / (float64(WordsPerMinute) / 60))
	return &secs
}

// Format renders seconds the way records store them, e.g. "300 seconds".
func Format(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64) + " seconds"
}

// FormatPtr is Format for an optional duration; unknown renders as "unknown".
func FormatPtr(seconds *float64) string {
	if seconds == nil {
		return "unknown"
	}
	return Format(*seconds)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
