package quiz

import (
	"errors"

	"github.com/gokatarajesh/quizforge/internal/question"
)

// Phase of the current question.
type Phase string

const (
	PhaseUnanswered Phase = "unanswered"
	PhaseSelected   Phase = "selected"
	PhaseSubmitted  Phase = "submitted"
)

var (
	ErrNoQuestions      = errors.New("no quiz loaded")
	ErrAlreadySubmitted = errors.New("answer already submitted")
	ErrNothingSelected  = errors.New("no option selected")
	ErrUnknownOption    = errors.New("option is not offered by this question")
)

// State is the persisted progress through a question set (quizState).
type State struct {
	Index     int      `json:"current_index"`
	Selected  []string `json:"selected"`
	Submitted bool     `json:"submitted"`
	Score     int      `json:"score"`
	// Graded[i] is true once question i has contributed to Score.
	Graded []bool `json:"graded"`
}

// Session drives one browser's walk through a question set. It is not safe
// for concurrent use; callers load, mutate and save it per action.
type Session struct {
	questions question.Set
	state     State
}

// NewSession resumes st over questions, clamping anything that no longer
// fits the set (for example after a shorter set replaced a longer one).
func NewSession(questions question.Set, st State) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if st.Index < 0 || st.Index >= len(questions) {
		st = State{}
	}
	if len(st.Graded) != len(questions) {
		graded := make([]bool, len(questions))
		copy(graded, st.Graded)
		st.Graded = graded
	}
	if st.Score < 0 || st.Score > len(questions) {
		st.Score = 0
	}
	if st.Submitted && len(st.Selected) == 0 {
		st.Submitted = false
	}
	return &Session{questions: questions, state: st}, nil
}

// State returns a copy of the current progress.
func (s *Session) State() State {
	st := s.state
	st.Selected = append([]string(nil), s.state.Selected...)
	st.Graded = append([]bool(nil), s.state.Graded...)
	return st
}

func (s *Session) Index() int { return s.state.Index }

func (s *Session) Total() int { return len(s.questions) }

func (s *Session) Score() int { return s.state.Score }

func (s *Session) Current() question.Question { return s.questions[s.state.Index] }

func (s *Session) IsFirst() bool { return s.state.Index == 0 }

func (s *Session) IsLast() bool { return s.state.Index == len(s.questions)-1 }

func (s *Session) Selected() []string { return append([]string(nil), s.state.Selected...) }

func (s *Session) IsSelected(option string) bool {
	for _, v := range s.state.Selected {
		if v == option {
			return true
		}
	}
	return false
}

func (s *Session) Phase() Phase {
	switch {
	case s.state.Submitted:
		return PhaseSubmitted
	case len(s.state.Selected) > 0:
		return PhaseSelected
	default:
		return PhaseUnanswered
	}
}

// Select picks option. Single-answer questions replace the selection,
// multiple-answer questions toggle it.
func (s *Session) Select(option string) error {
	if s.state.Submitted {
		return ErrAlreadySubmitted
	}
	q := s.Current()
	if !q.HasOption(option) {
		return ErrUnknownOption
	}

	if q.AnswerMode() == question.ModeSingle {
		s.state.Selected = []string{option}
		return nil
	}

	for i, v := range s.state.Selected {
		if v == option {
			s.state.Selected = append(s.state.Selected[:i:i], s.state.Selected[i+1:]...)
			return nil
		}
	}
	s.state.Selected = append(s.state.Selected, option)
	return nil
}

// Submit locks the selection and grades it. The score moves at most once per
// question, however often the question is revisited and resubmitted.
func (s *Session) Submit() (correct bool, err error) {
	if s.state.Submitted {
		return false, ErrAlreadySubmitted
	}
	if len(s.state.Selected) == 0 {
		return false, ErrNothingSelected
	}

	s.state.Submitted = true
	correct = s.Current().CorrectAnswer.Matches(s.state.Selected)
	if !s.state.Graded[s.state.Index] {
		s.state.Graded[s.state.Index] = true
		if correct {
			s.state.Score++
		}
	}
	return correct, nil
}

// Correct reports whether the submitted selection is right. Meaningless
// before submission.
func (s *Session) Correct() bool {
	return s.state.Submitted && s.Current().CorrectAnswer.Matches(s.state.Selected)
}

// Next advances to the following question. On the last question it returns
// the final result and done=true instead of moving.
func (s *Session) Next() (res Result, done bool) {
	if s.IsLast() {
		return NewResult(s.state.Score, len(s.questions)), true
	}
	s.state.Index++
	s.resetQuestion()
	return Result{}, false
}

// Previous moves back one question; a no-op on the first.
func (s *Session) Previous() bool {
	if s.IsFirst() {
		return false
	}
	s.state.Index--
	s.resetQuestion()
	return true
}

func (s *Session) resetQuestion() {
	s.state.Selected = nil
	s.state.Submitted = false
}
