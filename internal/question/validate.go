package question

import "strings"

// Validate checks the set against the question schema and fills zero
// question numbers with their 1-based position. Non-zero numbers are kept
// as given; the sequence itself is not enforced.
func Validate(set Set) error {
	if len(set) == 0 {
		return &SchemaError{Field: "questions", Message: "no questions"}
	}
	for i := range set {
		q := &set[i]
		if q.Number == 0 {
			q.Number = i + 1
		}
		if err := validateQuestion(*q); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(q Question) error {
	fail := func(field, msg string) error {
		return &SchemaError{Number: q.Number, Field: field, Message: msg}
	}

	if strings.TrimSpace(q.Text) == "" {
		return fail("question", "text is empty")
	}
	if len(q.Options) < 2 {
		return fail("options", "at least two options required")
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fail("options", "duplicate option "+quote(opt))
		}
		seen[opt] = struct{}{}
	}

	if len(q.CorrectAnswer) == 0 {
		return fail("correct_answer", "no correct answer")
	}
	answers := make(map[string]struct{}, len(q.CorrectAnswer))
	for _, a := range q.CorrectAnswer {
		if _, ok := seen[a]; !ok {
			return fail("correct_answer", quote(a)+" is not one of the options")
		}
		if _, dup := answers[a]; dup {
			return fail("correct_answer", "duplicate answer "+quote(a))
		}
		answers[a] = struct{}{}
	}

	switch q.Mode {
	case "", ModeSingle, ModeMultiple:
	default:
		return fail("mode", "unknown mode "+quote(q.Mode))
	}
	if q.AnswerMode() == ModeSingle && len(q.CorrectAnswer) != 1 {
		return fail("correct_answer", "single-answer question has several correct answers")
	}
	return nil
}

func quote(s string) string {
	return `"` + s + `"`
}
