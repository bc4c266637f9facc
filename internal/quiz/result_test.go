package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{3, 4, 75},
		{2, 3, 67},
		{1, 3, 33},
		{1, 8, 13},
		{0, 5, 0},
		{5, 5, 100},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.score, tt.total), "%d/%d", tt.score, tt.total)
	}
}

func TestGrade(t *testing.T) {
	assert.Equal(t, GradePass, Result{Percent: 70}.Grade())
	assert.Equal(t, GradeFair, Result{Percent: 69}.Grade())
	assert.Equal(t, GradeFair, Result{Percent: 40}.Grade())
	assert.Equal(t, GradeLow, Result{Percent: 39}.Grade())
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Result
		ok   bool
	}{
		{"complete", `{"score":3,"total":4,"percent":75}`, Result{3, 4, 75}, true},
		{"missing fields", `{"score":2}`, Result{Score: 2}, true},
		{"not json", `oops`, Result{}, false},
		{"wrong type", `{"score":"three"}`, Result{}, false},
		{"out of range", `{"score":1,"total":1,"percent":140}`, Result{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeResult([]byte(tt.data))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
