package quiz

import (
	"encoding/json"
	"math"
)

// Grade bands shown on the result view.
const (
	GradePass = "pass"
	GradeFair = "fair"
	GradeLow  = "low"
)

// Result is the score summary stored under quizResult.
type Result struct {
	Score   int `json:"score"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// NewResult builds a result with percent = round(100*score/total).
func NewResult(score, total int) Result {
	return Result{Score: score, Total: total, Percent: Percent(score, total)}
}

// Percent rounds half up, matching what users expect from 2/3 -> 67.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(score)/float64(total) + 0.5))
}

// Grade maps the percentage onto a display band.
func (r Result) Grade() string {
	switch {
	case r.Percent >= 70:
		return GradePass
	case r.Percent >= 40:
		return GradeFair
	default:
		return GradeLow
	}
}

// DecodeResult parses a stored result. Missing fields default to zero and a
// malformed or out-of-range value yields the zero Result with ok=false.
func DecodeResult(data []byte) (Result, bool) {
	var raw struct {
		Score   *int `json:"score"`
		Total   *int `json:"total"`
		Percent *int `json:"percent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, false
	}
	var r Result
	if raw.Score != nil {
		r.Score = *raw.Score
	}
	if raw.Total != nil {
		r.Total = *raw.Total
	}
	if raw.Percent != nil {
		r.Percent = *raw.Percent
	}
	if r.Score < 0 || r.Total < 0 || r.Percent < 0 || r.Percent > 100 {
		return Result{}, false
	}
	return r, true
}
