package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Answer modes.
const (
	ModeSingle   = "single"
	ModeMultiple = "multiple"
)

// Question is one quiz item as stored under quizData.
type Question struct {
	Number        int       `json:"question_number"`
	Text          string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer AnswerKey `json:"correct_answer"`
	Explanation   string    `json:"explanation"`
	Mode          string    `json:"mode,omitempty"`
}

// Set is an ordered, non-empty question sequence.
type Set []Question

// AnswerKey holds the correct option(s). It decodes from either a JSON string
// or an array of strings and always encodes as an array.
type AnswerKey []string

func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*k = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*k = AnswerKey{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("correct_answer must be a string or an array of strings")
	}
	*k = AnswerKey(many)
	return nil
}

func (k AnswerKey) MarshalJSON() ([]byte, error) {
	if k == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(k))
}

// Matches reports whether selected is exactly the key, ignoring order.
func (k AnswerKey) Matches(selected []string) bool {
	if len(selected) != len(k) {
		return false
	}
	want := append([]string(nil), k...)
	got := append([]string(nil), selected...)
	sort.Strings(want)
	sort.Strings(got)
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// Contains reports whether option is one of the correct answers.
func (k AnswerKey) Contains(option string) bool {
	for _, v := range k {
		if v == option {
			return true
		}
	}
	return false
}

// AnswerMode resolves whether the question takes one answer or several.
// An explicit mode wins; otherwise more than one correct answer means multiple.
func (q Question) AnswerMode() string {
	switch q.Mode {
	case ModeSingle, ModeMultiple:
		return q.Mode
	}
	if len(q.CorrectAnswer) > 1 {
		return ModeMultiple
	}
	return ModeSingle
}

// HasOption reports whether option is offered by the question.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}
